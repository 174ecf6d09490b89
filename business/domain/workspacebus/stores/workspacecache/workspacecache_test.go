package workspacecache_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus/stores/workspacecache"
	"github.com/jcpaschoal/crewspace/business/sdk/memdb"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/foundation/logger"
)

func Test_UpdateInTx(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	log := logger.New(&buf, logger.LevelInfo, "TEST", func(context.Context) string { return "" })

	t.Cleanup(func() {
		if t.Failed() {
			t.Logf("******************** LOGS ********************\n%s", buf.String())
		}
	})

	db := memdb.New()
	store := workspacecache.NewStore(log, db.WorkspaceStore(), time.Minute)
	ctx := context.Background()

	now := time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC)

	ws := workspacebus.Workspace{
		ID:        uuid.New(),
		TenantID:  "tenant-acme",
		Name:      name.MustParse("Acme Field Ops"),
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := store.Create(ctx, ws); err != nil {
		t.Fatalf("Should be able to create workspace: %s", err)
	}

	tx, err := db.Begin()
	if err != nil {
		t.Fatalf("Should be able to begin: %s", err)
	}

	txStore, err := store.NewWithTx(tx)
	if err != nil {
		t.Fatalf("Should be able to bind the store: %s", err)
	}

	want := ws
	want.Enabled = false
	want.UpdatedAt = now.Add(time.Hour)

	if err := txStore.Update(ctx, want); err != nil {
		t.Fatalf("Should be able to update inside the transaction: %s", err)
	}

	before, err := store.QueryByID(ctx, ws.ID)
	if err != nil {
		t.Fatalf("Should be able to query workspace: %s", err)
	}

	if !before.Enabled {
		t.Fatal("Uncommitted changes should not be visible")
	}

	if err := tx.Commit(); err != nil {
		t.Fatalf("Should be able to commit: %s", err)
	}

	got, err := store.QueryByID(ctx, ws.ID)
	if err != nil {
		t.Fatalf("Should be able to query workspace: %s", err)
	}

	if diff := cmp.Diff(want, got); diff != "" {
		t.Fatalf("Should read the committed workspace, not the cached copy:\n%s", diff)
	}
}
