package auth_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"errors"
	"testing"
	"time"

	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/sdk/dbtest"
	"github.com/jcpaschoal/crewspace/business/types/capability"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/role"
	"github.com/jcpaschoal/crewspace/foundation/keystore"
)

const kid = "s4sKIjD9kIRjxs2tulPqGLdxSfgPErRN1Mu3Hd9k9NQ"

func newKeyStore(t *testing.T) *keystore.KeyStore {
	t.Helper()

	pk, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	ks := keystore.New()
	if err := ks.Add(kid, pk); err != nil {
		t.Fatalf("Should be able to add the key: %s", err)
	}

	return ks
}

// seedMember creates a workspace admin and returns the Membership so the
// caller can change it later.
func seedMember(t *testing.T, tst *dbtest.Test) membershipbus.Membership {
	t.Helper()
	ctx := context.Background()

	ws := tst.AddWorkspace(t, "Acme Field Ops", "tenant-acme")

	idt, err := tst.Core.Identity.CreateUserInTenant(ctx, ws.TenantID, identitybus.Profile{
		LookupKey: "ops@acme.example",
		Name:      name.MustParse("Ops Lead"),
	})
	if err != nil {
		t.Fatalf("Should be able to create identity: %s", err)
	}

	m, err := tst.Core.Membership.Create(ctx, membershipbus.NewMembership{
		UserID:        idt.UID,
		WorkspaceID:   ws.ID,
		TenantID:      ws.TenantID,
		Role:          role.WorkspaceAdmin,
		Status:        memberstatus.Active,
		WorkspaceName: ws.Name.String(),
	})
	if err != nil {
		t.Fatalf("Should be able to create membership: %s", err)
	}

	return m
}

func Test_Auth(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()
	ks := newKeyStore(t)

	a := auth.New(auth.Config{
		Log:       tst.Log,
		ClaimsBus: tst.Core.Claims,
		KeyLookup: ks,
		Issuer:    "crewspace-test",
		ActiveKID: kid,
	})

	m := seedMember(t, tst)

	res, err := tst.Core.Claims.Sync(ctx, m.UserID)
	if err != nil {
		t.Fatalf("Should be able to sync: %s", err)
	}

	token, err := a.GenerateToken(res)
	if err != nil {
		t.Fatalf("Should be able to generate a token: %s", err)
	}

	claims, err := a.Authenticate(ctx, "Bearer "+token)
	if err != nil {
		t.Fatalf("Should be able to authenticate the claims: %s", err)
	}

	if claims.UserID != m.UserID || claims.WorkspaceID != m.WorkspaceID || claims.Version != 1 {
		t.Fatalf("Should carry the synced claims, got %+v", claims)
	}

	if err := a.Authorize(claims, capability.InvitationCreate); err != nil {
		t.Fatalf("Admin should be able to create invitations: %s", err)
	}

	if _, err := a.Authenticate(ctx, token); !errors.Is(err, auth.ErrBearerMissing) {
		t.Fatalf("Should require the bearer scheme, got %v", err)
	}

	// Demote the member; the old token is now behind the stored claims.
	member := role.Member
	if _, err := tst.Core.Membership.Update(ctx, m, membershipbus.UpdateMembership{Role: &member}); err != nil {
		t.Fatalf("Should be able to update membership: %s", err)
	}

	if _, err := tst.Core.Claims.Sync(ctx, m.UserID); err != nil {
		t.Fatalf("Should be able to sync: %s", err)
	}

	if _, err := a.Authenticate(ctx, "Bearer "+token); !errors.Is(err, auth.ErrStale) {
		t.Fatalf("Should reject the stale token, got %v", err)
	}

	fresh, cur, err := a.Refresh(ctx, "Bearer "+token)
	if err != nil {
		t.Fatalf("Should be able to refresh: %s", err)
	}

	if cur.Version != 2 || !cur.Claims.Role.Equal(role.Member) {
		t.Fatalf("Refresh should use the stored claims, got version %d role %s", cur.Version, cur.Claims.Role)
	}

	claims, err = a.Authenticate(ctx, "Bearer "+fresh)
	if err != nil {
		t.Fatalf("Should be able to authenticate the refreshed token: %s", err)
	}

	if err := a.Authorize(claims, capability.InvitationCreate); !errors.Is(err, auth.ErrForbidden) {
		t.Fatalf("Member should not create invitations, got %v", err)
	}
}

func Test_AuthRejects(t *testing.T) {
	t.Parallel()

	tst := dbtest.New(t)
	ctx := context.Background()
	ks := newKeyStore(t)

	m := seedMember(t, tst)

	res, err := tst.Core.Claims.Sync(ctx, m.UserID)
	if err != nil {
		t.Fatalf("Should be able to sync: %s", err)
	}

	cfg := auth.Config{
		Log:       tst.Log,
		ClaimsBus: tst.Core.Claims,
		KeyLookup: ks,
		Issuer:    "crewspace-test",
		ActiveKID: kid,
	}

	a := auth.New(cfg)

	other := cfg
	other.Issuer = "someone-else"
	foreign, err := auth.New(other).GenerateToken(res)
	if err != nil {
		t.Fatalf("Should be able to generate a token: %s", err)
	}

	if _, err := a.Authenticate(ctx, "Bearer "+foreign); err == nil {
		t.Fatalf("Should reject a token from another issuer")
	}

	if _, _, err := a.Refresh(ctx, "Bearer "+foreign); err == nil {
		t.Fatalf("Refresh should reject a token from another issuer")
	}

	short := cfg
	short.TTL = time.Nanosecond
	expired, err := auth.New(short).GenerateToken(res)
	if err != nil {
		t.Fatalf("Should be able to generate a token: %s", err)
	}

	if _, err := a.Authenticate(ctx, "Bearer "+expired); err == nil {
		t.Fatalf("Should reject an expired token")
	}

	if _, _, err := a.Refresh(ctx, "Bearer "+expired); err != nil {
		t.Fatalf("Refresh should accept an expired token: %s", err)
	}

	if _, err := a.Authenticate(ctx, "Bearer "+expired+"x"); err == nil {
		t.Fatalf("Should reject a tampered token")
	}
}
