package claimsbus

import (
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
)

// Build is the pure projection from memberships and the pointer to claims.
// Only active memberships are included. The active workspace is the pointer
// target when the user is an active member there, otherwise the most
// recently joined workspace, ties going to the lowest workspace id.
func Build(userID uuid.UUID, memberships []membershipbus.Membership, ptr *pointerbus.Pointer) authclaims.Claims {
	active := make([]membershipbus.Membership, 0, len(memberships))
	for _, m := range memberships {
		if m.UserID == userID && m.Status.Equal(memberstatus.Active) {
			active = append(active, m)
		}
	}

	slices.SortFunc(active, func(a, b membershipbus.Membership) int {
		return compareIDs(a.WorkspaceID, b.WorkspaceID)
	})

	claims := authclaims.Claims{
		UserID:       userID,
		WorkspaceIDs: make([]uuid.UUID, len(active)),
		Workspaces:   make([]authclaims.Workspace, len(active)),
	}

	for i, m := range active {
		claims.WorkspaceIDs[i] = m.WorkspaceID
		claims.Workspaces[i] = authclaims.Workspace{
			WorkspaceID: m.WorkspaceID,
			TenantID:    m.TenantID,
			Name:        m.WorkspaceName,
			Avatar:      m.WorkspaceAvatar,
			Role:        m.Role,
			Permissions: slices.Clone(m.Permissions),
		}
	}

	current, ok := pickActive(active, ptr)
	if !ok {
		return claims
	}

	claims.Role = current.Role
	claims.WorkspaceID = current.WorkspaceID
	claims.TenantID = current.TenantID
	claims.Permissions = slices.Clone(current.Permissions)

	return claims
}

func pickActive(active []membershipbus.Membership, ptr *pointerbus.Pointer) (membershipbus.Membership, bool) {
	if len(active) == 0 {
		return membershipbus.Membership{}, false
	}

	if ptr != nil {
		for _, m := range active {
			if m.WorkspaceID == ptr.ActiveWorkspaceID {
				return m, true
			}
		}
	}

	best := active[0]
	for _, m := range active[1:] {
		switch {
		case m.JoinedAt.After(best.JoinedAt):
			best = m

		case m.JoinedAt.Equal(best.JoinedAt) && compareIDs(m.WorkspaceID, best.WorkspaceID) < 0:
			best = m
		}
	}

	return best, true
}

func compareIDs(a, b uuid.UUID) int {
	return strings.Compare(a.String(), b.String())
}
