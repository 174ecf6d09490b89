package switchbus_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/dbtest"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

type seed struct {
	user      identitybus.Identity
	home      workspacebus.Workspace
	branch    workspacebus.Workspace
	suspended workspacebus.Workspace
}

func seedUser(t *testing.T, tst *dbtest.Test) seed {
	t.Helper()
	ctx := context.Background()

	s := seed{
		home:      tst.AddWorkspace(t, "Home Office", "tenant-acme"),
		branch:    tst.AddWorkspace(t, "North Branch", "tenant-acme"),
		suspended: tst.AddWorkspace(t, "Old Branch", "tenant-acme"),
	}

	idt, err := tst.Core.Identity.CreateUserInTenant(ctx, "tenant-acme", identitybus.Profile{
		LookupKey: "lead@acme.example",
		Name:      name.MustParse("Team Lead"),
	})
	if err != nil {
		t.Fatalf("Should be able to create identity: %s", err)
	}
	s.user = idt

	grants := []struct {
		ws workspacebus.Workspace
		st memberstatus.Status
	}{
		{s.home, memberstatus.Active},
		{s.branch, memberstatus.Active},
		{s.suspended, memberstatus.Suspended},
	}

	for _, g := range grants {
		_, err := tst.Core.Membership.Create(ctx, membershipbus.NewMembership{
			UserID:        idt.UID,
			WorkspaceID:   g.ws.ID,
			TenantID:      g.ws.TenantID,
			Role:          role.Member,
			Status:        g.st,
			WorkspaceName: g.ws.Name.String(),
		})
		if err != nil {
			t.Fatalf("Should be able to create membership: %s", err)
		}
	}

	if _, _, err := tst.Core.Pointer.Ensure(ctx, idt.UID, s.home.ID, s.home.TenantID); err != nil {
		t.Fatalf("Should be able to create pointer: %s", err)
	}

	if _, err := tst.Core.Claims.Sync(ctx, idt.UID); err != nil {
		t.Fatalf("Should be able to sync: %s", err)
	}

	return s
}

func Test_Switch(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()
	s := seedUser(t, tst)

	res, err := tst.Core.Switch.Switch(ctx, s.user.UID, s.branch.ID)
	if err != nil {
		t.Fatalf("Should be able to switch: %s", err)
	}

	if !res.Switched || res.Claims.WorkspaceID != s.branch.ID || res.Version != 2 {
		t.Fatalf("Should switch onto the branch, got %+v", res)
	}

	ptr, err := tst.Core.Pointer.QueryByUserID(ctx, s.user.UID)
	if err != nil {
		t.Fatalf("Should be able to query pointer: %s", err)
	}

	if ptr.ActiveWorkspaceID != s.branch.ID {
		t.Fatalf("Pointer should move, got %s", ptr.ActiveWorkspaceID)
	}

	events, err := tst.Core.Audit.QueryByTarget(ctx, s.user.UID.String())
	if err != nil {
		t.Fatalf("Should be able to query audit: %s", err)
	}

	if len(events) != 1 || events[0].Action != auditbus.ActionWorkspaceSwitched {
		t.Fatalf("Switch should be audited, got %d events", len(events))
	}
}

func Test_SwitchRefused(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()
	s := seedUser(t, tst)

	targets := map[string]uuid.UUID{
		"suspended": s.suspended.ID,
		"unknown":   uuid.New(),
	}

	for label, target := range targets {
		ok, err := tst.Core.Switch.SwitchActiveWorkspace(ctx, s.user.UID, target)
		if err != nil || ok {
			t.Fatalf("%s: should be refused without error, got %t %v", label, ok, err)
		}
	}

	ptr, err := tst.Core.Pointer.QueryByUserID(ctx, s.user.UID)
	if err != nil {
		t.Fatalf("Should be able to query pointer: %s", err)
	}

	if ptr.ActiveWorkspaceID != s.home.ID {
		t.Fatalf("Pointer should not move, got %s", ptr.ActiveWorkspaceID)
	}

	cur, err := tst.Core.Claims.Current(ctx, s.user.UID)
	if err != nil {
		t.Fatalf("Should be able to read claims: %s", err)
	}

	if cur.Version != 1 {
		t.Fatalf("Claims should not be rewritten, got version %d", cur.Version)
	}
}

func Test_SwitchStoreUnavailable(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()
	s := seedUser(t, tst)

	tst.DB.FailOn("pointer.Upsert", sqldb.ErrDBUnavailable)

	ok, err := tst.Core.Switch.SwitchActiveWorkspace(ctx, s.user.UID, s.branch.ID)
	if ok || !errors.Is(err, sqldb.ErrDBUnavailable) {
		t.Fatalf("Should surface the store outage, got %t %v", ok, err)
	}
}

func Test_SwitchConcurrent(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()
	s := seedUser(t, tst)

	var wg sync.WaitGroup
	for i := range 10 {
		target := s.home.ID
		if i%2 == 0 {
			target = s.branch.ID
		}

		wg.Add(1)
		go func() {
			defer wg.Done()
			tst.Core.Switch.SwitchActiveWorkspace(ctx, s.user.UID, target)
		}()
	}
	wg.Wait()

	// Whichever write landed last, a final sync agrees with the pointer.
	ptr, err := tst.Core.Pointer.QueryByUserID(ctx, s.user.UID)
	if err != nil {
		t.Fatalf("Should be able to query pointer: %s", err)
	}

	res, err := tst.Core.Claims.Sync(ctx, s.user.UID)
	if err != nil {
		t.Fatalf("Should be able to sync: %s", err)
	}

	if res.Claims.WorkspaceID != ptr.ActiveWorkspaceID {
		t.Fatalf("Claims should follow the pointer, got %s want %s", res.Claims.WorkspaceID, ptr.ActiveWorkspaceID)
	}
}
