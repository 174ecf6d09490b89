package capability_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcpaschoal/crewspace/business/types/capability"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

func Test_ForRole(t *testing.T) {
	admin := capability.ForRole(role.WorkspaceAdmin)
	if !capability.Contains(admin, capability.InvitationCreate) {
		t.Fatal("admin should be able to create invitations")
	}

	if capability.Contains(capability.ForRole(role.Employee), capability.RosterRead) {
		t.Fatal("employee should not read the roster")
	}

	// The returned slice must not alias the role table.
	admin[0] = capability.RosterRead
	if !capability.Contains(capability.ForRole(role.WorkspaceAdmin), capability.InvitationCreate) {
		t.Fatal("ForRole leaked its internal table")
	}
}

func Test_ParseMany(t *testing.T) {
	got, err := capability.ParseMany([]string{"roster.read", "invitation.read"})
	if err != nil {
		t.Fatalf("ParseMany: %s", err)
	}

	want := []capability.Capability{capability.RosterRead, capability.InvitationRead}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{"roster.read", "invitation.read"}, capability.Strings(got)); diff != "" {
		t.Fatalf("Strings mismatch (-want +got):\n%s", diff)
	}

	if _, err := capability.ParseMany([]string{"everything"}); err == nil {
		t.Fatal("expected an error for an unknown capability")
	}
}

func Test_Allowed(t *testing.T) {
	tests := []struct {
		r   role.Role
		c   capability.Capability
		exp bool
	}{
		{role.WorkspaceAdmin, capability.MembershipRepair, true},
		{role.Member, capability.RosterRead, true},
		{role.Member, capability.InvitationCreate, false},
		{role.Employee, capability.RosterRead, false},
	}

	for _, tt := range tests {
		if got := capability.Allowed(tt.r, tt.c); got != tt.exp {
			t.Errorf("%s %s: got %t, want %t", tt.r, tt.c, got, tt.exp)
		}

		if got := capability.Contains(capability.ForRole(tt.r), tt.c); got != tt.exp {
			t.Errorf("ForRole(%s) contains %s: got %t, want %t", tt.r, tt.c, got, tt.exp)
		}
	}

	if got := capability.ForRole(role.Employee); len(got) != 0 {
		t.Fatalf("employee should hold no capability, got %v", got)
	}
}
