package rosterbus

import (
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

// Entry is the read model row shown in a workspace roster. It is derived from
// the membership and the identity and can always be rebuilt.
type Entry struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	TenantID    string
	Name        string
	Contact     string
	Role        role.Role
	Status      memberstatus.Status
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewEntry contains information needed to create a roster entry.
type NewEntry struct {
	UserID      uuid.UUID
	WorkspaceID uuid.UUID
	TenantID    string
	Name        string
	Contact     string
	Role        role.Role
	Status      memberstatus.Status
}

// UpdateEntry contains the fields mirrored from membership changes.
type UpdateEntry struct {
	Role   *role.Role
	Status *memberstatus.Status
}
