package repairbus_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/dbtest"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/phone"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

func outcomes(rep repairbus.Report) []string {
	out := make([]string, len(rep.Steps))
	for i, s := range rep.Steps {
		out[i] = s.Name + ":" + string(s.Outcome)
	}

	return out
}

func identityProfile(p phone.Phone) identitybus.Profile {
	return identitybus.Profile{
		LookupKey: p.String(),
		Name:      name.MustParse("Field User"),
		Phone:     phone.FromPhone(p),
	}
}

func addMapping(t *testing.T, tst *dbtest.Test, key string, ws workspacebus.Workspace) {
	t.Helper()

	_, err := tst.Core.Repair.AddMapping(context.Background(), repairbus.NewMapping{
		LookupKey:   key,
		WorkspaceID: ws.ID,
		Role:        role.Member,
		Name:        name.MustParse("Field User"),
	})
	if err != nil {
		t.Fatalf("Should be able to add mapping: %s", err)
	}
}

func Test_RepairFromScratch(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "W1", "T1")
	addMapping(t, tst, "user@x.com", ws)

	rep, err := tst.Core.Repair.Repair(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("Should be able to repair: %s", err)
	}

	exp := []string{"identity:created", "membership:created", "pointer:created", "claims:created", "roster:created"}
	if diff := cmp.Diff(outcomes(rep), exp); diff != "" {
		t.Fatalf("Report mismatch:\n%s", diff)
	}

	uid := rep.Steps[0].UserID

	m, err := tst.Core.Membership.QueryByID(ctx, uid, ws.ID)
	if err != nil {
		t.Fatalf("Membership should exist: %s", err)
	}

	if !m.Role.Equal(role.Member) || !m.Status.Equal(memberstatus.Active) {
		t.Fatalf("Membership should carry the mapped role, got %s %s", m.Role, m.Status)
	}

	cur, err := tst.Core.Claims.Current(ctx, uid)
	if err != nil {
		t.Fatalf("Claims should exist: %s", err)
	}

	if cur.Claims.WorkspaceID != ws.ID || cur.Claims.TenantID != "T1" {
		t.Fatalf("Claims should point at W1, got %s %s", cur.Claims.WorkspaceID, cur.Claims.TenantID)
	}

	// Running again finds nothing to do.
	rep, err = tst.Core.Repair.Repair(ctx, "USER@x.com")
	if err != nil {
		t.Fatalf("Should be able to repair again: %s", err)
	}

	if !rep.Converged() {
		t.Fatalf("Second run should be already correct, got %v", outcomes(rep))
	}
}

func Test_RepairMappingNotFound(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)

	_, err := tst.Core.Repair.Repair(context.Background(), "nobody@x.com")
	if !errors.Is(err, repairbus.ErrMappingNotFound) {
		t.Fatalf("Should fail with mapping not found, got %v", err)
	}
}

func Test_RepairKeepsAdminChanges(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "W1", "T1")
	addMapping(t, tst, "user@x.com", ws)

	rep, err := tst.Core.Repair.Repair(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("Should be able to repair: %s", err)
	}
	uid := rep.Steps[0].UserID

	m, err := tst.Core.Membership.QueryByID(ctx, uid, ws.ID)
	if err != nil {
		t.Fatalf("Should be able to query membership: %s", err)
	}

	suspended := memberstatus.Suspended
	if _, err := tst.Core.Membership.Update(ctx, m, membershipbus.UpdateMembership{Status: &suspended}); err != nil {
		t.Fatalf("Should be able to suspend: %s", err)
	}

	if _, err := tst.Core.Repair.Repair(ctx, "user@x.com"); err != nil {
		t.Fatalf("Should be able to repair: %s", err)
	}

	m, err = tst.Core.Membership.QueryByID(ctx, uid, ws.ID)
	if err != nil {
		t.Fatalf("Should be able to query membership: %s", err)
	}

	if !m.Status.Equal(memberstatus.Suspended) {
		t.Fatalf("Repair must not undo the suspension, got %s", m.Status)
	}
}

func Test_RepairResumesAfterFailure(t *testing.T) {
	t.Parallel()

	var observed []repairbus.Step
	tst := dbtest.New(t, dbtest.Options{
		RepairObserver: func(s repairbus.Step) { observed = append(observed, s) },
	})
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "W1", "T1")
	addMapping(t, tst, "user@x.com", ws)

	tst.DB.FailOn("identity.SetClaims", errors.New("provider timeout"))

	rep, err := tst.Core.Repair.Repair(ctx, "user@x.com")
	if err == nil {
		t.Fatalf("Repair should fail on the claims step")
	}

	exp := []string{"identity:created", "membership:created", "pointer:created", "claims:failed"}
	if diff := cmp.Diff(outcomes(rep), exp); diff != "" {
		t.Fatalf("Partial report mismatch:\n%s", diff)
	}

	if step, ok := rep.Failed(); !ok || step.Name != repairbus.StepClaims {
		t.Fatalf("Failed step should be claims, got %+v", step)
	}

	tst.DB.Clear()

	rep, err = tst.Core.Repair.Repair(ctx, "user@x.com")
	if err != nil {
		t.Fatalf("Should be able to resume: %s", err)
	}

	exp = []string{"identity:already_correct", "membership:already_correct", "pointer:already_correct", "claims:created", "roster:created"}
	if diff := cmp.Diff(outcomes(rep), exp); diff != "" {
		t.Fatalf("Resumed report mismatch:\n%s", diff)
	}

	if len(observed) != 4+5 {
		t.Fatalf("Observer should see every step, got %d", len(observed))
	}
}

func Test_RepairFromAcceptedInvitation(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "W1", "T1")
	p := phone.MustParse("+15551234567")

	inv, err := tst.Core.Invitation.Generate(ctx, invitationbus.NewInvitation{
		Phone:       p,
		Name:        name.MustParse("Field User"),
		WorkspaceID: ws.ID,
		Role:        role.Employee,
	})
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	idt, _, err := tst.Core.Identity.FindOrCreate(ctx, ws.TenantID, identityProfile(p))
	if err != nil {
		t.Fatalf("Should be able to create identity: %s", err)
	}

	// The claims write fails after the acceptance committed.
	tst.DB.FailOn("identity.SetClaims", errors.New("provider timeout"))

	if _, err := tst.Core.Invitation.Accept(ctx, inv.Code, p, idt.UID); err == nil {
		t.Fatalf("Accept should report the sync failure")
	}

	tst.DB.Clear()

	rep, err := tst.Core.Repair.Repair(ctx, p.String())
	if err != nil {
		t.Fatalf("Should be able to repair: %s", err)
	}

	exp := []string{"identity:already_correct", "membership:already_correct", "pointer:already_correct", "claims:created", "roster:already_correct"}
	if diff := cmp.Diff(outcomes(rep), exp); diff != "" {
		t.Fatalf("Report mismatch:\n%s", diff)
	}
}

func Test_RepairInWorkspace(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()

	ws1 := tst.AddWorkspace(t, "W1", "T1")
	ws2 := tst.AddWorkspace(t, "W2", "T2")
	addMapping(t, tst, "user@x.com", ws1)
	addMapping(t, tst, "user@x.com", ws2)

	if _, err := tst.Core.Repair.RepairInWorkspace(ctx, "user@x.com", tst.AddWorkspace(t, "W3", "T1").ID); !errors.Is(err, repairbus.ErrMappingNotFound) {
		t.Fatalf("A workspace without intents should report no mapping, got %v", err)
	}

	if _, err := tst.Core.Identity.FindUserInTenant(ctx, "T1", "user@x.com"); !errors.Is(err, identitybus.ErrNotFound) {
		t.Fatalf("Nothing should be provisioned for another workspace, got %v", err)
	}

	rep, err := tst.Core.Repair.RepairInWorkspace(ctx, "user@x.com", ws1.ID)
	if err != nil {
		t.Fatalf("Should be able to repair: %s", err)
	}

	for _, s := range rep.Steps {
		if s.WorkspaceID != ws1.ID {
			t.Fatalf("Only the requested workspace should be repaired, got step %s in %s", s.Name, s.WorkspaceID)
		}
	}

	if _, err := tst.Core.Identity.FindUserInTenant(ctx, "T2", "user@x.com"); !errors.Is(err, identitybus.ErrNotFound) {
		t.Fatalf("The other tenant should be left alone, got %v", err)
	}
}
