package invitationbus

import (
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/types/invitestatus"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/phone"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

// Invitation is a single use code inviting a person, identified by phone,
// into a workspace with a role.
type Invitation struct {
	ID          uuid.UUID
	Code        string
	Phone       phone.Phone
	Name        name.Name
	WorkspaceID uuid.UUID
	TenantID    string
	Role        role.Role
	InvitedBy   uuid.UUID
	InviterName *string
	InvitedAt   time.Time
	ExpiresAt   time.Time
	Status      invitestatus.Status
	AcceptedAt  *time.Time
	AcceptedBy  *uuid.UUID
	UpdatedAt   time.Time
}

// PastDue reports whether the invitation can no longer be accepted because
// its validity window has closed.
func (inv Invitation) PastDue(now time.Time) bool {
	return now.After(inv.ExpiresAt)
}

// NewInvitation contains information needed to generate an invitation.
type NewInvitation struct {
	Phone       phone.Phone
	Name        name.Name
	WorkspaceID uuid.UUID
	Role        role.Role
	InvitedBy   uuid.UUID
	InviterName *string
}

// Notice is handed to the Notifier once an invitation exists. InviterName is
// nil when the inviter's display name is unknown.
type Notice struct {
	InvitationID  uuid.UUID
	Code          string
	Phone         phone.Phone
	InviteeName   name.Name
	WorkspaceName string
	Role          role.Role
	ExpiresAt     time.Time
	InviterName   *string
}

// AcceptResult is what a successful acceptance produced.
type AcceptResult struct {
	Invitation Invitation
	Membership membershipbus.Membership
	Claims     claimsbus.SyncResult
}

// QueryFilter holds the available fields a query can be filtered on.
type QueryFilter struct {
	WorkspaceID *uuid.UUID
	Status      *invitestatus.Status
	Phone       *phone.Phone
}
