// Package authclaims holds the authorization bundle mirrored from a user's
// active workspace memberships into the token.
package authclaims

import (
	"slices"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/types/capability"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

// Workspace is the per workspace slice of the bundle.
type Workspace struct {
	WorkspaceID uuid.UUID               `json:"workspaceId"`
	TenantID    string                  `json:"tenantId"`
	Name        string                  `json:"name"`
	Avatar      string                  `json:"avatar,omitempty"`
	Role        role.Role               `json:"role"`
	Permissions []capability.Capability `json:"permissions"`
}

// Claims is the authorization bundle for one user. The zero WorkspaceID
// means the user has no active membership.
type Claims struct {
	UserID       uuid.UUID               `json:"userId"`
	Role         role.Role               `json:"role"`
	WorkspaceID  uuid.UUID               `json:"workspaceId"`
	TenantID     string                  `json:"tenantId"`
	Permissions  []capability.Capability `json:"permissions"`
	WorkspaceIDs []uuid.UUID             `json:"workspaceIds"`
	Workspaces   []Workspace             `json:"workspaces"`
}

// HasWorkspace reports whether the user holds an active membership in the
// given workspace.
func (c Claims) HasWorkspace(workspaceID uuid.UUID) bool {
	return slices.Contains(c.WorkspaceIDs, workspaceID)
}

// Can reports whether the active workspace grants the capability.
func (c Claims) Can(cp capability.Capability) bool {
	if c.WorkspaceID == uuid.Nil {
		return false
	}

	return capability.Contains(c.Permissions, cp)
}

// Equal provides support for the go-cmp package and for change detection.
func (c Claims) Equal(c2 Claims) bool {
	if c.UserID != c2.UserID ||
		!c.Role.Equal(c2.Role) ||
		c.WorkspaceID != c2.WorkspaceID ||
		c.TenantID != c2.TenantID ||
		!slices.Equal(c.Permissions, c2.Permissions) ||
		!slices.Equal(c.WorkspaceIDs, c2.WorkspaceIDs) {
		return false
	}

	return slices.EqualFunc(c.Workspaces, c2.Workspaces, func(a, b Workspace) bool {
		return a.WorkspaceID == b.WorkspaceID &&
			a.TenantID == b.TenantID &&
			a.Name == b.Name &&
			a.Avatar == b.Avatar &&
			a.Role.Equal(b.Role) &&
			slices.Equal(a.Permissions, b.Permissions)
	})
}
