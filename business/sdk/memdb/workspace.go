package memdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
)

// WorkspaceStore implements workspacebus.Storer.
type WorkspaceStore struct {
	db *DB
	tx *Tx
}

// WorkspaceStore returns the workspace storer.
func (db *DB) WorkspaceStore() *WorkspaceStore {
	return &WorkspaceStore{db: db}
}

// NewWithTx binds the store to the transaction.
func (s *WorkspaceStore) NewWithTx(tx sqldb.CommitRollbacker) (workspacebus.Storer, error) {
	t, err := txOf(tx)
	if err != nil {
		return nil, err
	}

	return &WorkspaceStore{db: s.db, tx: t}, nil
}

// Create adds a workspace.
func (s *WorkspaceStore) Create(ctx context.Context, ws workspacebus.Workspace) error {
	return s.db.exec(s.tx, "workspace.Create", func(st *state) error {
		if _, exists := st.workspaces[ws.ID]; exists {
			return sqldb.ErrDBDuplicatedEntry{Column: "workspace_pkey"}
		}
		st.workspaces[ws.ID] = ws
		return nil
	})
}

// Update replaces a workspace.
func (s *WorkspaceStore) Update(ctx context.Context, ws workspacebus.Workspace) error {
	return s.db.exec(s.tx, "workspace.Update", func(st *state) error {
		if _, exists := st.workspaces[ws.ID]; !exists {
			return nil
		}
		st.workspaces[ws.ID] = ws
		return nil
	})
}

// QueryByID finds a workspace.
func (s *WorkspaceStore) QueryByID(ctx context.Context, workspaceID uuid.UUID) (workspacebus.Workspace, error) {
	var ws workspacebus.Workspace

	err := s.db.read(s.tx, "workspace.QueryByID", func(st *state) error {
		v, exists := st.workspaces[workspaceID]
		if !exists {
			return fmt.Errorf("db: %w", workspacebus.ErrNotFound)
		}
		ws = v
		return nil
	})

	return ws, err
}

// =============================================================================

func pageOf[T any](items []T, pg page.Page) []T {
	start := min(pg.Offset(), len(items))
	end := min(start+pg.RowsPerPage(), len(items))

	return items[start:end]
}
