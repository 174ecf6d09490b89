package workspacebus

import (
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/types/name"
)

// Workspace represents an isolated workspace inside a tenant.
type Workspace struct {
	ID        uuid.UUID
	TenantID  string
	Name      name.Name
	Avatar    string
	Enabled   bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// NewWorkspace contains information needed to create a new workspace.
type NewWorkspace struct {
	TenantID string
	Name     name.Name
	Avatar   string
}

// UpdateWorkspace contains information needed to update a workspace.
type UpdateWorkspace struct {
	Name    *name.Name
	Avatar  *string
	Enabled *bool
}
