package workspaceapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/jcpaschoal/crewspace/app/sdk/errs"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/types/capability"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

// Switch is the request to change the active workspace.
type Switch struct {
	WorkspaceID string `json:"workspaceId" validate:"required,uuid"`
}

// Decode implements the web.Decoder interface.
func (app *Switch) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app Switch) Validate() error {
	if err := errs.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	return nil
}

// Switched reports the outcome of a switch. Token is only set when the
// active workspace changed.
type Switched struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	WorkspaceID  string `json:"workspaceId"`
	ClaimVersion int    `json:"claimVersion"`
	Token        string `json:"token,omitempty"`
}

// Encode implements the web.Encoder interface.
func (s Switched) Encode() ([]byte, string, error) {
	data, err := json.Marshal(s)
	return data, "application/json", err
}

// =============================================================================

// Membership is one workspace the caller belongs to.
type Membership struct {
	WorkspaceID     string   `json:"workspaceId"`
	TenantID        string   `json:"tenantId"`
	WorkspaceName   string   `json:"workspaceName"`
	WorkspaceAvatar string   `json:"workspaceAvatar,omitempty"`
	Role            string   `json:"role"`
	Status          string   `json:"status"`
	Permissions     []string `json:"permissions"`
	Active          bool     `json:"active"`
	JoinedAt        string   `json:"joinedAt"`
}

func toAppMembership(bus membershipbus.Membership, active bool) Membership {
	return Membership{
		WorkspaceID:     bus.WorkspaceID.String(),
		TenantID:        bus.TenantID,
		WorkspaceName:   bus.WorkspaceName,
		WorkspaceAvatar: bus.WorkspaceAvatar,
		Role:            bus.Role.String(),
		Status:          bus.Status.String(),
		Permissions:     capabilityNames(bus.Permissions),
		Active:          active,
		JoinedAt:        bus.JoinedAt.Format(time.RFC3339),
	}
}

// Memberships is the envelope of the caller's memberships.
type Memberships struct {
	Success     bool         `json:"success"`
	Message     string       `json:"message"`
	Memberships []Membership `json:"memberships"`
}

// Encode implements the web.Encoder interface.
func (m Memberships) Encode() ([]byte, string, error) {
	data, err := json.Marshal(m)
	return data, "application/json", err
}

// MembershipResponse wraps one membership after an update.
type MembershipResponse struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	Membership Membership `json:"membership"`
}

// Encode implements the web.Encoder interface.
func (m MembershipResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(m)
	return data, "application/json", err
}

// =============================================================================

// RosterEntry is one row of the workspace roster.
type RosterEntry struct {
	UserID  string `json:"userId"`
	Name    string `json:"name"`
	Contact string `json:"contact"`
	Role    string `json:"role"`
	Status  string `json:"status"`
	Since   string `json:"since"`
}

func toAppRoster(entries []rosterbus.Entry) []RosterEntry {
	app := make([]RosterEntry, len(entries))
	for i, e := range entries {
		app[i] = RosterEntry{
			UserID:  e.UserID.String(),
			Name:    e.Name,
			Contact: e.Contact,
			Role:    e.Role.String(),
			Status:  e.Status.String(),
			Since:   e.CreatedAt.Format(time.RFC3339),
		}
	}

	return app
}

// =============================================================================

// UpdateMember defines what an administrator may change on a membership.
type UpdateMember struct {
	Role   *string `json:"role" validate:"omitempty,oneof=workspace_admin member employee"`
	Status *string `json:"status" validate:"omitempty,oneof=active suspended"`
}

// Decode implements the web.Decoder interface.
func (app *UpdateMember) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app UpdateMember) Validate() error {
	if err := errs.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	return nil
}

func toBusUpdateMembership(app UpdateMember) (membershipbus.UpdateMembership, error) {
	var fieldErrors errs.FieldErrors
	var um membershipbus.UpdateMembership

	if app.Role != nil {
		r, err := role.Parse(*app.Role)
		if err != nil {
			fieldErrors.Add("role", err)
		}
		um.Role = &r
	}

	if app.Status != nil {
		st, err := memberstatus.Parse(*app.Status)
		if err != nil {
			fieldErrors.Add("status", err)
		}
		um.Status = &st
	}

	if len(fieldErrors) > 0 {
		return membershipbus.UpdateMembership{}, fmt.Errorf("validate: %w", fieldErrors)
	}

	return um, nil
}

func capabilityNames(cs []capability.Capability) []string {
	out := make([]string, len(cs))
	for i, c := range cs {
		out[i] = c.String()
	}

	return out
}
