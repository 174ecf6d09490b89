package membershipbus

import (
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/types/capability"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

// Membership is the durable record that a user belongs to a workspace. It is
// the source of truth every other projection is derived from.
type Membership struct {
	UserID          uuid.UUID
	WorkspaceID     uuid.UUID
	TenantID        string
	Role            role.Role
	Status          memberstatus.Status
	Permissions     []capability.Capability
	WorkspaceName   string
	WorkspaceAvatar string
	JoinedAt        time.Time
	UpdatedAt       time.Time
}

// NewMembership contains information needed to create a membership.
type NewMembership struct {
	UserID          uuid.UUID
	WorkspaceID     uuid.UUID
	TenantID        string
	Role            role.Role
	Status          memberstatus.Status
	WorkspaceName   string
	WorkspaceAvatar string
}

// UpdateMembership contains the fields an administrator may change.
type UpdateMembership struct {
	Role   *role.Role
	Status *memberstatus.Status
}
