package invitationapp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/app/sdk/errs"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/phone"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

// =============================================================================
// Invitation (Output)
// =============================================================================

// Invitation represents an invitation as returned to workspace admins.
type Invitation struct {
	ID          string  `json:"id"`
	Code        string  `json:"code"`
	Phone       string  `json:"phone"`
	Name        string  `json:"name"`
	WorkspaceID string  `json:"workspaceId"`
	Role        string  `json:"role"`
	Status      string  `json:"status"`
	InvitedBy   string  `json:"invitedBy"`
	InviterName *string `json:"inviterName,omitempty"`
	InvitedAt   string  `json:"invitedAt"`
	ExpiresAt   string  `json:"expiresAt"`
	AcceptedAt  string  `json:"acceptedAt,omitempty"`
}

func toAppInvitation(bus invitationbus.Invitation) Invitation {
	app := Invitation{
		ID:          bus.ID.String(),
		Code:        bus.Code,
		Phone:       bus.Phone.String(),
		Name:        bus.Name.String(),
		WorkspaceID: bus.WorkspaceID.String(),
		Role:        bus.Role.String(),
		Status:      bus.Status.String(),
		InvitedBy:   bus.InvitedBy.String(),
		InviterName: bus.InviterName,
		InvitedAt:   bus.InvitedAt.Format(time.RFC3339),
		ExpiresAt:   bus.ExpiresAt.Format(time.RFC3339),
	}

	if bus.AcceptedAt != nil {
		app.AcceptedAt = bus.AcceptedAt.Format(time.RFC3339)
	}

	return app
}

func toAppInvitations(invs []invitationbus.Invitation) []Invitation {
	app := make([]Invitation, len(invs))
	for i, inv := range invs {
		app[i] = toAppInvitation(inv)
	}

	return app
}

// InvitationResponse wraps a single invitation in the response envelope.
type InvitationResponse struct {
	Success    bool       `json:"success"`
	Message    string     `json:"message"`
	Invitation Invitation `json:"invitation"`
}

// Encode implements the web.Encoder interface.
func (r InvitationResponse) Encode() ([]byte, string, error) {
	data, err := json.Marshal(r)
	return data, "application/json", err
}

// CodeCheck is what the public accept screen learns about a code. It never
// carries the phone of the invitee.
type CodeCheck struct {
	Success       bool    `json:"success"`
	Message       string  `json:"message"`
	Status        string  `json:"status"`
	Name          string  `json:"name"`
	WorkspaceName string  `json:"workspaceName"`
	Role          string  `json:"role"`
	InviterName   *string `json:"inviterName,omitempty"`
	ExpiresAt     string  `json:"expiresAt"`
}

// Encode implements the web.Encoder interface.
func (c CodeCheck) Encode() ([]byte, string, error) {
	data, err := json.Marshal(c)
	return data, "application/json", err
}

// Accepted is returned once a code was redeemed. Token carries the fresh
// claims bundle.
type Accepted struct {
	Success      bool       `json:"success"`
	Message      string     `json:"message"`
	Token        string     `json:"token"`
	UserID       string     `json:"userId"`
	WorkspaceID  string     `json:"workspaceId"`
	Role         string     `json:"role"`
	ClaimVersion int        `json:"claimVersion"`
	Invitation   Invitation `json:"invitation"`
}

// Encode implements the web.Encoder interface.
func (a Accepted) Encode() ([]byte, string, error) {
	data, err := json.Marshal(a)
	return data, "application/json", err
}

// =============================================================================
// NewInvitation (Input)
// =============================================================================

// NewInvitation defines the data needed to invite a person.
type NewInvitation struct {
	Phone string `json:"phone" validate:"required"`
	Name  string `json:"name" validate:"required"`
	Role  string `json:"role" validate:"required,oneof=workspace_admin member employee"`
}

// Decode implements the web.Decoder interface.
func (app *NewInvitation) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app NewInvitation) Validate() error {
	if err := errs.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	return nil
}

func toBusNewInvitation(app NewInvitation, workspaceID uuid.UUID, invitedBy uuid.UUID, inviterName *string) (invitationbus.NewInvitation, error) {
	var fieldErrors errs.FieldErrors

	p, err := phone.Parse(app.Phone)
	if err != nil {
		fieldErrors.Add("phone", err)
	}

	nme, err := name.Parse(app.Name)
	if err != nil {
		fieldErrors.Add("name", err)
	}

	r, err := role.Parse(app.Role)
	if err != nil {
		fieldErrors.Add("role", err)
	}

	if len(fieldErrors) > 0 {
		return invitationbus.NewInvitation{}, fmt.Errorf("validate: %w", fieldErrors)
	}

	bus := invitationbus.NewInvitation{
		Phone:       p,
		Name:        nme,
		WorkspaceID: workspaceID,
		Role:        r,
		InvitedBy:   invitedBy,
		InviterName: inviterName,
	}

	return bus, nil
}

// =============================================================================
// Accept (Input)
// =============================================================================

// Accept defines what the invitee submits to redeem a code. Name is used only
// when the identity does not exist yet.
type Accept struct {
	Code  string `json:"code" validate:"required"`
	Phone string `json:"phone" validate:"required"`
	Name  string `json:"name"`
}

// Decode implements the web.Decoder interface.
func (app *Accept) Decode(data []byte) error {
	return json.Unmarshal(data, app)
}

// Validate checks the data in the model is considered clean.
func (app Accept) Validate() error {
	if err := errs.Check(app); err != nil {
		return fmt.Errorf("validate: %w", err)
	}

	return nil
}
