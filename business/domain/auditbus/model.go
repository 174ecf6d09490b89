package auditbus

import (
	"time"

	"github.com/google/uuid"
)

// Set of actions recorded on the trail.
const (
	ActionInvitationGenerated   = "invitation.generated"
	ActionInvitationAccepted    = "invitation.accepted"
	ActionInvitationExpired     = "invitation.expired"
	ActionInvitationCancelled   = "invitation.cancelled"
	ActionInvitationRegenerated = "invitation.regenerated"
	ActionMembershipGranted     = "membership.granted"
	ActionMembershipUpdated     = "membership.updated"
	ActionWorkspaceSwitched     = "workspace.switched"
	ActionMembershipRepaired    = "membership.repaired"
)

// Event is an immutable record of a state change: who did what, in which
// workspace, to which record and when. A nil ActorID is a system action.
type Event struct {
	ID          uuid.UUID
	ActorID     *uuid.UUID
	WorkspaceID *uuid.UUID
	Action      string
	TargetID    string
	Metadata    map[string]any
	CreatedAt   time.Time
}

// NewEvent contains information needed to append an event.
type NewEvent struct {
	ActorID     *uuid.UUID
	WorkspaceID *uuid.UUID
	Action      string
	TargetID    string
	Metadata    map[string]any
}
