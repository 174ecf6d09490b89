package claimsbus_test

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/business/types/capability"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

var (
	user = uuid.MustParse("9a1f4e5e-2a4b-4e61-8d1b-4d8f33a51c01")
	wsA  = uuid.MustParse("11111111-1111-4111-8111-111111111111")
	wsB  = uuid.MustParse("22222222-2222-4222-8222-222222222222")
	wsC  = uuid.MustParse("33333333-3333-4333-8333-333333333333")
	t0   = time.Date(2025, time.January, 10, 12, 0, 0, 0, time.UTC)
)

func membership(ws uuid.UUID, r role.Role, st memberstatus.Status, joined time.Time) membershipbus.Membership {
	return membershipbus.Membership{
		UserID:        user,
		WorkspaceID:   ws,
		TenantID:      "tenant-" + ws.String()[:4],
		Role:          r,
		Status:        st,
		Permissions:   capability.ForRole(r),
		WorkspaceName: "ws " + ws.String()[:4],
		JoinedAt:      joined,
	}
}

func Test_Build(t *testing.T) {
	a := membership(wsA, role.WorkspaceAdmin, memberstatus.Active, t0)
	b := membership(wsB, role.Member, memberstatus.Active, t0.Add(time.Hour))
	c := membership(wsC, role.Member, memberstatus.Suspended, t0.Add(2*time.Hour))

	tests := []struct {
		name        string
		memberships []membershipbus.Membership
		ptr         *pointerbus.Pointer
		active      uuid.UUID
		ids         []uuid.UUID
	}{
		{
			name:        "pointer-target",
			memberships: []membershipbus.Membership{b, a},
			ptr:         &pointerbus.Pointer{UserID: user, ActiveWorkspaceID: wsA},
			active:      wsA,
			ids:         []uuid.UUID{wsA, wsB},
		},
		{
			name:        "no-pointer-latest-join",
			memberships: []membershipbus.Membership{a, b},
			active:      wsB,
			ids:         []uuid.UUID{wsA, wsB},
		},
		{
			name:        "pointer-at-suspended",
			memberships: []membershipbus.Membership{a, b, c},
			ptr:         &pointerbus.Pointer{UserID: user, ActiveWorkspaceID: wsC},
			active:      wsB,
			ids:         []uuid.UUID{wsA, wsB},
		},
		{
			name: "tie-lowest-id",
			memberships: []membershipbus.Membership{
				membership(wsB, role.Member, memberstatus.Active, t0),
				membership(wsA, role.Member, memberstatus.Active, t0),
			},
			active: wsA,
			ids:    []uuid.UUID{wsA, wsB},
		},
		{
			name:        "none-active",
			memberships: []membershipbus.Membership{c},
			ptr:         &pointerbus.Pointer{UserID: user, ActiveWorkspaceID: wsC},
			active:      uuid.Nil,
			ids:         []uuid.UUID{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := claimsbus.Build(user, tt.memberships, tt.ptr)

			if got.WorkspaceID != tt.active {
				t.Fatalf("active workspace: got %s, want %s", got.WorkspaceID, tt.active)
			}

			if diff := cmp.Diff(got.WorkspaceIDs, tt.ids); diff != "" {
				t.Fatalf("workspace ids mismatch:\n%s", diff)
			}

			if len(got.Workspaces) != len(tt.ids) {
				t.Fatalf("got %d workspaces, want %d", len(got.Workspaces), len(tt.ids))
			}
		})
	}
}

func Test_BuildAdminCapabilities(t *testing.T) {
	a := membership(wsA, role.WorkspaceAdmin, memberstatus.Active, t0)

	got := claimsbus.Build(user, []membershipbus.Membership{a}, nil)

	exp := authclaims.Claims{
		UserID:       user,
		Role:         role.WorkspaceAdmin,
		WorkspaceID:  wsA,
		TenantID:     a.TenantID,
		Permissions:  capability.ForRole(role.WorkspaceAdmin),
		WorkspaceIDs: []uuid.UUID{wsA},
		Workspaces: []authclaims.Workspace{
			{
				WorkspaceID: wsA,
				TenantID:    a.TenantID,
				Name:        a.WorkspaceName,
				Role:        role.WorkspaceAdmin,
				Permissions: capability.ForRole(role.WorkspaceAdmin),
			},
		},
	}

	if diff := cmp.Diff(got, exp); diff != "" {
		t.Fatalf("claims mismatch:\n%s", diff)
	}

	if !got.Can(capability.InvitationCreate) {
		t.Fatalf("admin should be able to create invitations")
	}
}

func Test_BuildIsPure(t *testing.T) {
	a := membership(wsA, role.WorkspaceAdmin, memberstatus.Active, t0)
	b := membership(wsB, role.Member, memberstatus.Active, t0.Add(time.Hour))

	first := claimsbus.Build(user, []membershipbus.Membership{a, b}, nil)
	second := claimsbus.Build(user, []membershipbus.Membership{b, a}, nil)

	if !first.Equal(second) {
		t.Fatalf("input order should not change the claims")
	}
}
