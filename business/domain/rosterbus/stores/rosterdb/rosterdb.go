// Package rosterdb contains roster projection storage.
package rosterdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jmoiron/sqlx"
)

// Store manages the set of APIs for roster database access.
type Store struct {
	log *logger.Logger
	db  sqlx.ExtContext
}

// NewStore constructs the api for data access.
func NewStore(log *logger.Logger, db *sqlx.DB) *Store {
	return &Store{
		log: log,
		db:  db,
	}
}

// NewWithTx constructs a new Store value replacing the sqlx DB
// value with a sqlx DB value that is currently inside a transaction.
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (rosterbus.Storer, error) {
	ec, err := sqldb.GetExtContext(tx)
	if err != nil {
		return nil, err
	}

	store := Store{
		log: s.log,
		db:  ec,
	}

	return &store, nil
}

// Create inserts a new roster entry into the database.
func (s *Store) Create(ctx context.Context, e rosterbus.Entry) error {
	const q = `
	INSERT INTO "public"."roster_entry"
		(user_id, workspace_id, tenant_id, name, contact, role, status, created_at, updated_at)
	VALUES
		(:user_id, :workspace_id, :tenant_id, :name, :contact, :role, :status, :created_at, :updated_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBEntry(e)); err != nil {
		if errors.As(err, &sqldb.ErrDBDuplicatedEntry{}) {
			return fmt.Errorf("namedexeccontext: %w", rosterbus.ErrExists)
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// Update replaces the mirrored fields of a roster entry.
func (s *Store) Update(ctx context.Context, e rosterbus.Entry) error {
	const q = `
	UPDATE
		"public"."roster_entry"
	SET
		role = :role,
		status = :status,
		updated_at = :updated_at
	WHERE
		user_id = :user_id AND workspace_id = :workspace_id`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBEntry(e)); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryByID gets the roster entry of the user in the workspace.
func (s *Store) QueryByID(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (rosterbus.Entry, error) {
	data := struct {
		UserID      string `db:"user_id"`
		WorkspaceID string `db:"workspace_id"`
	}{
		UserID:      userID.String(),
		WorkspaceID: workspaceID.String(),
	}

	const q = `
	SELECT
		user_id, workspace_id, tenant_id, name, contact, role, status, created_at, updated_at
	FROM
		"public"."roster_entry"
	WHERE
		user_id = :user_id AND workspace_id = :workspace_id`

	var dbE entryDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbE); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return rosterbus.Entry{}, fmt.Errorf("db: %w", rosterbus.ErrNotFound)
		}
		return rosterbus.Entry{}, fmt.Errorf("db: %w", err)
	}

	return toBusEntry(dbE)
}

// QueryByWorkspace gets a page of the workspace roster ordered by name.
func (s *Store) QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]rosterbus.Entry, error) {
	data := map[string]any{
		"workspace_id":  workspaceID.String(),
		"offset":        pg.Offset(),
		"rows_per_page": pg.RowsPerPage(),
	}

	const q = `
	SELECT
		user_id, workspace_id, tenant_id, name, contact, role, status, created_at, updated_at
	FROM
		"public"."roster_entry"
	WHERE
		workspace_id = :workspace_id
	ORDER BY
		name, user_id
	OFFSET :offset ROWS FETCH NEXT :rows_per_page ROWS ONLY`

	var dbEs []entryDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbEs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusEntries(dbEs)
}

// CountByWorkspace returns the size of the workspace roster.
func (s *Store) CountByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	data := struct {
		WorkspaceID string `db:"workspace_id"`
	}{
		WorkspaceID: workspaceID.String(),
	}

	const q = `
	SELECT
		count(1)
	FROM
		"public"."roster_entry"
	WHERE
		workspace_id = :workspace_id`

	var count struct {
		Count int `db:"count"`
	}
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &count); err != nil {
		return 0, fmt.Errorf("db: %w", err)
	}

	return count.Count, nil
}
