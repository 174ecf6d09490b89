package invitationbus_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/dbtest"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/unitest"
	"github.com/jcpaschoal/crewspace/business/types/invitestatus"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/phone"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

var (
	pageOne = page.MustParse("1", "10")
	invitee = phone.MustParse("+15551234567")
	admin   = uuid.MustParse("5cf37266-3473-4006-984f-9325122678b7")
)

// sequence returns a code generator that hands out the codes in order and
// then keeps repeating the last one.
func sequence(codes ...string) func() (string, error) {
	var mu sync.Mutex
	var i int

	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()

		code := codes[min(i, len(codes)-1)]
		i++
		return code, nil
	}
}

func newInvitation(ws workspacebus.Workspace, p phone.Phone) invitationbus.NewInvitation {
	return invitationbus.NewInvitation{
		Phone:       p,
		Name:        name.MustParse("Ana Souza"),
		WorkspaceID: ws.ID,
		Role:        role.Employee,
		InvitedBy:   admin,
	}
}

func newIdentity(t *testing.T, tst *dbtest.Test, tenantID string, p phone.Phone) identitybus.Identity {
	t.Helper()

	idt, err := tst.Core.Identity.CreateUserInTenant(context.Background(), tenantID, identitybus.Profile{
		LookupKey: p.String(),
		Name:      name.MustParse("Ana Souza"),
		Phone:     phone.FromPhone(p),
	})
	if err != nil {
		t.Fatalf("Should be able to create identity: %s", err)
	}

	return idt
}

func errorIs(target error) func(got any, exp any) string {
	return func(got any, exp any) string {
		err, ok := got.(error)
		if !ok {
			return "expected an error"
		}

		if !errors.Is(err, target) {
			return "got " + err.Error() + ", want " + target.Error()
		}

		return ""
	}
}

// =============================================================================

func Test_Invitation(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t, dbtest.Options{
		InvitationOptions: []invitationbus.Option{
			invitationbus.WithCodeGenerator(sequence("ABC12345", "DEF23456", "GHJ34567")),
		},
	})

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")
	idt := newIdentity(t, tst, ws.TenantID, invitee)

	unitest.Run(t, happyPath(tst, ws, idt), "happy")
	unitest.Run(t, rejections(tst, ws), "rejections")
}

func happyPath(tst *dbtest.Test, ws workspacebus.Workspace, idt identitybus.Identity) []unitest.Table {
	return []unitest.Table{
		{
			Name: "generate",
			ExpResp: invitationbus.Invitation{
				Code:        "ABC12345",
				Phone:       invitee,
				Name:        name.MustParse("Ana Souza"),
				WorkspaceID: ws.ID,
				TenantID:    ws.TenantID,
				Role:        role.Employee,
				InvitedBy:   admin,
				InvitedAt:   tst.Clock.Now(),
				ExpiresAt:   tst.Clock.Now().Add(7 * 24 * time.Hour),
				Status:      invitestatus.Pending,
				UpdatedAt:   tst.Clock.Now(),
			},
			ExcFunc: func(ctx context.Context) any {
				inv, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee))
				if err != nil {
					return err
				}
				return inv
			},
			CmpFunc: func(got any, exp any) string {
				gotInv, ok := got.(invitationbus.Invitation)
				if !ok {
					return "error occurred"
				}

				expInv := exp.(invitationbus.Invitation)
				expInv.ID = gotInv.ID

				return cmp.Diff(gotInv, expInv)
			},
		},
		{
			Name: "notified",
			ExpResp: invitationbus.Notice{
				Code:          "ABC12345",
				Phone:         invitee,
				InviteeName:   name.MustParse("Ana Souza"),
				WorkspaceName: "Acme Field Ops",
				Role:          role.Employee,
				ExpiresAt:     tst.Clock.Now().Add(7 * 24 * time.Hour),
			},
			ExcFunc: func(ctx context.Context) any {
				ns := tst.Notifier.Notices()
				if len(ns) != 1 {
					return errors.New("expected one notice")
				}
				return ns[0]
			},
			CmpFunc: func(got any, exp any) string {
				gotN, ok := got.(invitationbus.Notice)
				if !ok {
					return "error occurred"
				}

				expN := exp.(invitationbus.Notice)
				expN.InvitationID = gotN.InvitationID

				return cmp.Diff(gotN, expN)
			},
		},
		{
			Name: "accept",
			ExpResp: membershipbus.Membership{
				UserID:        idt.UID,
				WorkspaceID:   ws.ID,
				TenantID:      ws.TenantID,
				Role:          role.Employee,
				Status:        memberstatus.Active,
				WorkspaceName: "Acme Field Ops",
			},
			ExcFunc: func(ctx context.Context) any {
				res, err := tst.Core.Invitation.Accept(ctx, "abc12345", invitee, idt.UID)
				if err != nil {
					return err
				}
				return res
			},
			CmpFunc: func(got any, exp any) string {
				res, ok := got.(invitationbus.AcceptResult)
				if !ok {
					return "error occurred"
				}

				if !res.Invitation.Status.Equal(invitestatus.Accepted) {
					return "invitation should be accepted"
				}

				if res.Invitation.AcceptedBy == nil || *res.Invitation.AcceptedBy != idt.UID {
					return "acceptedBy should be the identity"
				}

				if res.Claims.Version != 1 || res.Claims.Claims.WorkspaceID != ws.ID {
					return "claims should be synced onto the workspace"
				}

				gotM := res.Membership
				expM := exp.(membershipbus.Membership)
				expM.Permissions = gotM.Permissions
				expM.JoinedAt = gotM.JoinedAt
				expM.UpdatedAt = gotM.UpdatedAt

				return cmp.Diff(gotM, expM)
			},
		},
		{
			Name:    "derived",
			ExpResp: true,
			ExcFunc: func(ctx context.Context) any {
				ptr, err := tst.Core.Pointer.QueryByUserID(ctx, idt.UID)
				if err != nil {
					return err
				}

				entry, err := tst.Core.Roster.QueryByID(ctx, idt.UID, ws.ID)
				if err != nil {
					return err
				}

				return ptr.ActiveWorkspaceID == ws.ID && entry.Contact == invitee.String()
			},
			CmpFunc: func(got any, exp any) string {
				return cmp.Diff(got, exp)
			},
		},
		{
			Name:    "accept-again",
			ExpResp: 1,
			ExcFunc: func(ctx context.Context) any {
				if _, err := tst.Core.Invitation.Accept(ctx, "ABC12345", invitee, idt.UID); err != nil {
					return err
				}

				ms, err := tst.Core.Membership.QueryByUserID(ctx, idt.UID)
				if err != nil {
					return err
				}
				return len(ms)
			},
			CmpFunc: func(got any, exp any) string {
				return cmp.Diff(got, exp)
			},
		},
		{
			Name:    "accept-other-identity",
			ExpResp: invitationbus.ErrAlreadyTerminal,
			ExcFunc: func(ctx context.Context) any {
				_, err := tst.Core.Invitation.Accept(ctx, "ABC12345", invitee, uuid.New())
				return err
			},
			CmpFunc: errorIs(invitationbus.ErrAlreadyTerminal),
		},
		{
			Name:    "cancel-accepted",
			ExpResp: invitationbus.ErrInvalidState,
			ExcFunc: func(ctx context.Context) any {
				inv, err := tst.Core.Invitation.QueryByCode(ctx, "ABC12345")
				if err != nil {
					return err
				}

				_, err = tst.Core.Invitation.Cancel(ctx, inv.ID, ws.ID, admin)
				return err
			},
			CmpFunc: errorIs(invitationbus.ErrInvalidState),
		},
	}
}

func rejections(tst *dbtest.Test, ws workspacebus.Workspace) []unitest.Table {
	other := phone.MustParse("+15557654321")

	return []unitest.Table{
		{
			Name:    "unknown-code",
			ExpResp: invitationbus.ErrNotFound,
			ExcFunc: func(ctx context.Context) any {
				_, err := tst.Core.Invitation.Accept(ctx, "ZZZZZZZZ", invitee, uuid.New())
				return err
			},
			CmpFunc: errorIs(invitationbus.ErrNotFound),
		},
		{
			Name:    "malformed-code",
			ExpResp: invitationbus.ErrNotFound,
			ExcFunc: func(ctx context.Context) any {
				_, err := tst.Core.Invitation.Accept(ctx, "abc", invitee, uuid.New())
				return err
			},
			CmpFunc: errorIs(invitationbus.ErrNotFound),
		},
		{
			Name:    "phone-mismatch",
			ExpResp: invitationbus.ErrForbidden,
			ExcFunc: func(ctx context.Context) any {
				inv, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, other))
				if err != nil {
					return err
				}

				_, err = tst.Core.Invitation.Accept(ctx, inv.Code, invitee, uuid.New())
				return err
			},
			CmpFunc: errorIs(invitationbus.ErrForbidden),
		},
		{
			Name:    "pending-exists",
			ExpResp: invitationbus.ErrPendingExists,
			ExcFunc: func(ctx context.Context) any {
				_, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, other))
				return err
			},
			CmpFunc: errorIs(invitationbus.ErrPendingExists),
		},
		{
			Name:    "cancel-other-workspace",
			ExpResp: invitationbus.ErrForbidden,
			ExcFunc: func(ctx context.Context) any {
				p := other
				invs, err := tst.Core.Invitation.Query(ctx, invitationbus.QueryFilter{Phone: &p}, pageOne)
				if err != nil {
					return err
				}

				_, err = tst.Core.Invitation.Cancel(ctx, invs[0].ID, uuid.New(), admin)
				return err
			},
			CmpFunc: errorIs(invitationbus.ErrForbidden),
		},
		{
			Name:    "missing-role",
			ExpResp: invitationbus.ErrValidation,
			ExcFunc: func(ctx context.Context) any {
				ni := newInvitation(ws, phone.MustParse("+15550001111"))
				ni.Role = role.Role{}

				_, err := tst.Core.Invitation.Generate(ctx, ni)
				return err
			},
			CmpFunc: errorIs(invitationbus.ErrValidation),
		},
		{
			Name:    "disabled-workspace",
			ExpResp: workspacebus.ErrDisabled,
			ExcFunc: func(ctx context.Context) any {
				off, err := tst.Core.Workspace.Create(ctx, workspacebus.NewWorkspace{
					TenantID: ws.TenantID,
					Name:     name.MustParse("Closed Branch"),
				})
				if err != nil {
					return err
				}

				disabled := false
				off, err = tst.Core.Workspace.Update(ctx, off, workspacebus.UpdateWorkspace{Enabled: &disabled})
				if err != nil {
					return err
				}

				_, err = tst.Core.Invitation.Generate(ctx, newInvitation(off, phone.MustParse("+15550002222")))
				return err
			},
			CmpFunc: errorIs(workspacebus.ErrDisabled),
		},
	}
}

// =============================================================================

func Test_Expired(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")
	idt := newIdentity(t, tst, ws.TenantID, invitee)

	inv, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee))
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	tst.Clock.Advance(8 * 24 * time.Hour)

	if _, err := tst.Core.Invitation.Accept(ctx, inv.Code, invitee, idt.UID); !errors.Is(err, invitationbus.ErrExpired) {
		t.Fatalf("Should fail with expired, got %v", err)
	}

	stored, err := tst.DB.InvitationStore().QueryByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Should be able to query invitation: %s", err)
	}

	if !stored.Status.Equal(invitestatus.Expired) {
		t.Fatalf("Stored status should be expired, got %s", stored.Status)
	}

	if _, err := tst.Core.Membership.QueryByID(ctx, idt.UID, ws.ID); !errors.Is(err, membershipbus.ErrNotFound) {
		t.Fatalf("No membership should exist, got %v", err)
	}

	// Every later attempt still reports the expiry.
	if _, err := tst.Core.Invitation.Accept(ctx, inv.Code, invitee, idt.UID); !errors.Is(err, invitationbus.ErrExpired) {
		t.Fatalf("Should still fail with expired, got %v", err)
	}

	// A new invite for the same phone is allowed once the old one lapsed.
	if _, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee)); err != nil {
		t.Fatalf("Should be able to generate again: %s", err)
	}
}

func Test_LazyExpiryOnRead(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")

	inv, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee))
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	tst.Clock.Advance(invitationbus.Validity + time.Second)

	got, err := tst.Core.Invitation.QueryByCode(ctx, inv.Code)
	if err != nil {
		t.Fatalf("Should be able to query by code: %s", err)
	}

	if !got.Status.Equal(invitestatus.Expired) {
		t.Fatalf("Read should expire the invitation, got %s", got.Status)
	}

	if _, err := tst.Core.Invitation.Cancel(ctx, inv.ID, ws.ID, admin); !errors.Is(err, invitationbus.ErrInvalidState) {
		t.Fatalf("Expired invitation should not cancel, got %v", err)
	}
}

func Test_Regenerate(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t, dbtest.Options{
		InvitationOptions: []invitationbus.Option{
			invitationbus.WithCodeGenerator(sequence("XAAAAAA1", "XAAAAAA2")),
		},
	})
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")

	x1, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee))
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	tst.Clock.Advance(2 * 24 * time.Hour)

	x2, err := tst.Core.Invitation.Regenerate(ctx, x1.ID, ws.ID, admin)
	if err != nil {
		t.Fatalf("Should be able to regenerate: %s", err)
	}

	old, err := tst.Core.Invitation.QueryByID(ctx, x1.ID)
	if err != nil {
		t.Fatalf("Should be able to query the old invitation: %s", err)
	}

	if !old.Status.Equal(invitestatus.Cancelled) {
		t.Fatalf("Old invitation should be cancelled, got %s", old.Status)
	}

	if x2.Code != "XAAAAAA2" || x2.ID == x1.ID {
		t.Fatalf("Should get a new invitation, got %s", x2.Code)
	}

	if !x2.Phone.Equal(x1.Phone) || !x2.Name.Equal(x1.Name) || !x2.Role.Equal(x1.Role) {
		t.Fatalf("Invitee fields should carry over")
	}

	if !x2.ExpiresAt.Equal(tst.Clock.Now().Add(invitationbus.Validity)) {
		t.Fatalf("Expiry should be fresh, got %s", x2.ExpiresAt)
	}

	p := invitee
	pending := invitestatus.Pending
	n, err := tst.Core.Invitation.Count(ctx, invitationbus.QueryFilter{WorkspaceID: &ws.ID, Phone: &p, Status: &pending})
	if err != nil {
		t.Fatalf("Should be able to count: %s", err)
	}

	if n != 1 {
		t.Fatalf("Exactly one pending invitation should remain, got %d", n)
	}

	if got := len(tst.Notifier.Notices()); got != 2 {
		t.Fatalf("Both codes should be notified, got %d", got)
	}
}

func Test_RegenerateRollsBack(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t, dbtest.Options{
		InvitationOptions: []invitationbus.Option{
			invitationbus.WithCodeGenerator(sequence("XAAAAAA1", "XAAAAAA2")),
		},
	})
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")

	x1, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee))
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	tst.DB.FailOn("invitation.Create", errors.New("disk full"))

	if _, err := tst.Core.Invitation.Regenerate(ctx, x1.ID, ws.ID, admin); err == nil {
		t.Fatalf("Regenerate should fail")
	}

	tst.DB.Clear()

	old, err := tst.Core.Invitation.QueryByID(ctx, x1.ID)
	if err != nil {
		t.Fatalf("Should be able to query: %s", err)
	}

	if !old.Status.Equal(invitestatus.Pending) {
		t.Fatalf("Failed regenerate should leave the code pending, got %s", old.Status)
	}
}

func Test_AcceptRollsBack(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")
	idt := newIdentity(t, tst, ws.TenantID, invitee)

	inv, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee))
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	tst.DB.FailOn("roster.Create", errors.New("connection reset"))

	if _, err := tst.Core.Invitation.Accept(ctx, inv.Code, invitee, idt.UID); err == nil {
		t.Fatalf("Accept should fail")
	}

	tst.DB.Clear()

	stored, err := tst.DB.InvitationStore().QueryByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Should be able to query: %s", err)
	}

	if !stored.Status.Equal(invitestatus.Pending) {
		t.Fatalf("Code should still be pending, got %s", stored.Status)
	}

	if _, err := tst.Core.Membership.QueryByID(ctx, idt.UID, ws.ID); !errors.Is(err, membershipbus.ErrNotFound) {
		t.Fatalf("No membership should exist, got %v", err)
	}

	if _, err := tst.Core.Pointer.QueryByUserID(ctx, idt.UID); err == nil {
		t.Fatalf("No pointer should exist")
	}

	if _, err := tst.Core.Invitation.Accept(ctx, inv.Code, invitee, idt.UID); err != nil {
		t.Fatalf("Retry should succeed: %s", err)
	}
}

func Test_AcceptSyncFailure(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")
	idt := newIdentity(t, tst, ws.TenantID, invitee)

	inv, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee))
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	tst.DB.FailOn("identity.SetClaims", errors.New("provider timeout"))

	res, err := tst.Core.Invitation.Accept(ctx, inv.Code, invitee, idt.UID)
	if !claimsbus.IsSyncError(err) {
		t.Fatalf("Should report a sync error, got %v", err)
	}

	if !res.Invitation.Status.Equal(invitestatus.Accepted) {
		t.Fatalf("The committed acceptance should be returned")
	}

	tst.DB.Clear()

	res, err = tst.Core.Invitation.Accept(ctx, inv.Code, invitee, idt.UID)
	if err != nil {
		t.Fatalf("Retry should converge: %s", err)
	}

	if res.Claims.Version != 1 || res.Claims.Claims.WorkspaceID != ws.ID {
		t.Fatalf("Claims should be written on retry, got version %d", res.Claims.Version)
	}
}

func Test_CodeCollisions(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t, dbtest.Options{
		InvitationOptions: []invitationbus.Option{
			invitationbus.WithCodeGenerator(sequence("AAAAAAAA", "AAAAAAAA", "BBBBBBBB")),
		},
	})
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")

	first, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, phone.MustParse("+15550000001")))
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	second, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, phone.MustParse("+15550000002")))
	if err != nil {
		t.Fatalf("Should retry past the collision: %s", err)
	}

	if first.Code != "AAAAAAAA" || second.Code != "BBBBBBBB" {
		t.Fatalf("got codes %s and %s", first.Code, second.Code)
	}

	_, err = tst.Core.Invitation.Generate(ctx, newInvitation(ws, phone.MustParse("+15550000003")))
	if !errors.Is(err, invitationbus.ErrCodeGenerationExhausted) {
		t.Fatalf("Should exhaust the attempts, got %v", err)
	}
}

func Test_ConcurrentGenerate(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")

	const n = 50

	var wg sync.WaitGroup
	codes := make([]string, n)
	errs := make([]error, n)

	for i := range n {
		wg.Add(1)
		go func() {
			defer wg.Done()

			p := phone.MustParse(fmt.Sprintf("+1555000%04d", i))
			inv, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, p))
			codes[i] = inv.Code
			errs[i] = err
		}()
	}
	wg.Wait()

	seen := make(map[string]bool)
	for i := range n {
		if errs[i] != nil {
			t.Fatalf("Should be able to generate: %s", errs[i])
		}

		if seen[codes[i]] {
			t.Fatalf("Code %s was handed out twice", codes[i])
		}
		seen[codes[i]] = true
	}
}

func Test_ConcurrentAccept(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")
	idt := newIdentity(t, tst, ws.TenantID, invitee)

	inv, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee))
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	var wg sync.WaitGroup
	for range 8 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tst.Core.Invitation.Accept(ctx, inv.Code, invitee, idt.UID)
		}()
	}
	wg.Wait()

	ms, err := tst.Core.Membership.QueryByUserID(ctx, idt.UID)
	if err != nil {
		t.Fatalf("Should be able to query memberships: %s", err)
	}

	if len(ms) != 1 {
		t.Fatalf("Exactly one membership should exist, got %d", len(ms))
	}

	stored, err := tst.Core.Invitation.QueryByID(ctx, inv.ID)
	if err != nil {
		t.Fatalf("Should be able to query: %s", err)
	}

	if !stored.Status.Equal(invitestatus.Accepted) {
		t.Fatalf("Code should be accepted, got %s", stored.Status)
	}
}

// gate returns a code generator that holds every caller until n callers have
// arrived, so they all get past the pending check before any of them writes.
func gate(n int, codes ...string) func() (string, error) {
	var mu sync.Mutex
	var arrived int
	release := make(chan struct{})

	return func() (string, error) {
		mu.Lock()
		code := codes[arrived%len(codes)]
		arrived++
		if arrived == n {
			close(release)
		}
		mu.Unlock()

		select {
		case <-release:
		case <-time.After(2 * time.Second):
		}

		return code, nil
	}
}

func Test_ConcurrentGenerateSamePhone(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t, dbtest.Options{
		InvitationOptions: []invitationbus.Option{
			invitationbus.WithCodeGenerator(gate(2, "GAAAAAA1", "GAAAAAA2")),
		},
	})
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")

	var wg sync.WaitGroup
	errs := make([]error, 2)

	for i := range 2 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee))
		}()
	}
	wg.Wait()

	var created, refused int
	for _, err := range errs {
		switch {
		case err == nil:
			created++
		case errors.Is(err, invitationbus.ErrPendingExists):
			refused++
		default:
			t.Fatalf("Unexpected error: %s", err)
		}
	}

	if created != 1 || refused != 1 {
		t.Fatalf("One generate should win and one be refused, got %d created %d refused", created, refused)
	}

	p := invitee
	pending := invitestatus.Pending
	n, err := tst.Core.Invitation.Count(ctx, invitationbus.QueryFilter{WorkspaceID: &ws.ID, Phone: &p, Status: &pending})
	if err != nil {
		t.Fatalf("Should be able to count: %s", err)
	}

	if n != 1 {
		t.Fatalf("Exactly one pending invitation should exist, got %d", n)
	}
}

func Test_RegenerateRetriesCollision(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t, dbtest.Options{
		InvitationOptions: []invitationbus.Option{
			invitationbus.WithCodeGenerator(sequence("RAAAAAA1", "RAAAAAA2", "RAAAAAA2", "RAAAAAA3")),
		},
	})
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")

	x1, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, invitee))
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	other, err := tst.Core.Invitation.Generate(ctx, newInvitation(ws, phone.MustParse("+15550000077")))
	if err != nil {
		t.Fatalf("Should be able to generate: %s", err)
	}

	// The first code drawn inside the transaction is held by the other invitee.
	x2, err := tst.Core.Invitation.Regenerate(ctx, x1.ID, ws.ID, admin)
	if err != nil {
		t.Fatalf("Should retry past the collision inside the transaction: %s", err)
	}

	if x2.Code != "RAAAAAA3" || x2.Code == other.Code {
		t.Fatalf("Should draw a fresh code, got %s", x2.Code)
	}
}
