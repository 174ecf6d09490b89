package identitycache_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus/stores/identitycache"
	"github.com/jcpaschoal/crewspace/business/sdk/memdb"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/foundation/logger"
)

func newStore(t *testing.T) (*memdb.DB, *identitycache.Store, uuid.UUID) {
	t.Helper()

	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, "TEST", func(context.Context) string { return "" })

	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("******************** LOGS ********************\n%s", buf.String())
		}
	})

	db := memdb.New()
	store := identitycache.NewStore(log, db.IdentityStore(), time.Minute)

	idt := identitybus.Identity{
		UID:       uuid.New(),
		TenantID:  "tenant-acme",
		LookupKey: "ops@acme.example",
		Name:      name.MustParse("Ops Lead"),
		CreatedAt: time.Now().UTC(),
	}

	if err := store.Create(context.Background(), idt); err != nil {
		t.Fatalf("Should be able to create identity: %s", err)
	}

	return db, store, idt.UID
}

func claimsFor(uid uuid.UUID, tenantID string) authclaims.Claims {
	return authclaims.Claims{UserID: uid, TenantID: tenantID}
}

func Test_SetClaimsInTx(t *testing.T) {
	t.Parallel()

	db, store, uid := newStore(t)
	ctx := context.Background()

	if _, err := store.SetClaims(ctx, uid, claimsFor(uid, "first"), 0, time.Now()); err != nil {
		t.Fatalf("Should be able to set claims: %s", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Should be able to begin: %s", err)
	}

	txStore, err := store.NewWithTx(tx)
	if err != nil {
		t.Fatalf("Should be able to bind the store: %s", err)
	}

	want, err := txStore.SetClaims(ctx, uid, claimsFor(uid, "second"), 1, time.Now())
	if err != nil {
		t.Fatalf("Should be able to set claims inside the transaction: %s", err)
	}

	before, err := store.QueryClaims(ctx, uid)
	if err != nil {
		t.Fatalf("Should be able to query claims: %s", err)
	}

	if before.Version != 1 {
		t.Fatalf("Uncommitted claims should not be visible, got version %d", before.Version)
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Should be able to commit: %s", err)
	}

	got, err := store.QueryClaims(ctx, uid)
	if err != nil {
		t.Fatalf("Should be able to query claims: %s", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Should read the committed claims, not the cached copy:\n%s", diff)
	}
}

func Test_SetClaimsRollback(t *testing.T) {
	t.Parallel()

	db, store, uid := newStore(t)
	ctx := context.Background()

	want, err := store.SetClaims(ctx, uid, claimsFor(uid, "first"), 0, time.Now())
	if err != nil {
		t.Fatalf("Should be able to set claims: %s", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Should be able to begin: %s", err)
	}

	txStore, err := store.NewWithTx(tx)
	if err != nil {
		t.Fatalf("Should be able to bind the store: %s", err)
	}

	if _, err := txStore.SetClaims(ctx, uid, claimsFor(uid, "second"), 1, time.Now()); err != nil {
		t.Fatalf("Should be able to set claims inside the transaction: %s", err)
	}

	if err := tx.Rollback(); err != nil {
		t.Fatalf("Should be able to roll back: %s", err)
	}

	got, err := store.QueryClaims(ctx, uid)
	if err != nil {
		t.Fatalf("Should be able to query claims: %s", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Should keep the committed claims after a rollback:\n%s", diff)
	}
}

func Test_SetClaimsConflict(t *testing.T) {
	t.Parallel()

	_, store, uid := newStore(t)
	ctx := context.Background()

	want, err := store.SetClaims(ctx, uid, claimsFor(uid, "first"), 0, time.Now())
	if err != nil {
		t.Fatalf("Should be able to set claims: %s", err)
	}

	if _, err := store.SetClaims(ctx, uid, claimsFor(uid, "stale"), 0, time.Now()); err == nil {
		t.Fatal("Should not overwrite a newer version")
	}

	got, err := store.QueryClaims(ctx, uid)
	if err != nil {
		t.Fatalf("Should be able to query claims: %s", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Should keep the stored claims after a conflict:\n%s", diff)
	}
}
