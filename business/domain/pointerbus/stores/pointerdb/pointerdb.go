// Package pointerdb contains active workspace pointer storage.
package pointerdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jmoiron/sqlx"
)

type pointerDB struct {
	UserID            uuid.UUID `db:"user_id"`
	ActiveWorkspaceID uuid.UUID `db:"active_workspace_id"`
	ActiveTenantID    string    `db:"active_tenant_id"`
	LastSwitchedAt    time.Time `db:"last_switched_at"`
}

func toDBPointer(bus pointerbus.Pointer) pointerDB {
	return pointerDB{
		UserID:            bus.UserID,
		ActiveWorkspaceID: bus.ActiveWorkspaceID,
		ActiveTenantID:    bus.ActiveTenantID,
		LastSwitchedAt:    bus.LastSwitchedAt.UTC(),
	}
}

func toBusPointer(db pointerDB) pointerbus.Pointer {
	return pointerbus.Pointer{
		UserID:            db.UserID,
		ActiveWorkspaceID: db.ActiveWorkspaceID,
		ActiveTenantID:    db.ActiveTenantID,
		LastSwitchedAt:    db.LastSwitchedAt.UTC(),
	}
}

// =============================================================================

// Store manages the set of APIs for pointer database access.
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
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (pointerbus.Storer, error) {
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

// Create inserts the first pointer for a user.
func (s *Store) Create(ctx context.Context, p pointerbus.Pointer) error {
	const q = `
	INSERT INTO "public"."active_workspace_pointer"
		(user_id, active_workspace_id, active_tenant_id, last_switched_at)
	VALUES
		(:user_id, :active_workspace_id, :active_tenant_id, :last_switched_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBPointer(p)); err != nil {
		if errors.As(err, &sqldb.ErrDBDuplicatedEntry{}) {
			return fmt.Errorf("namedexeccontext: %w", pointerbus.ErrExists)
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// Upsert writes the pointer regardless of what is stored.
func (s *Store) Upsert(ctx context.Context, p pointerbus.Pointer) error {
	const q = `
	INSERT INTO "public"."active_workspace_pointer"
		(user_id, active_workspace_id, active_tenant_id, last_switched_at)
	VALUES
		(:user_id, :active_workspace_id, :active_tenant_id, :last_switched_at)
	ON CONFLICT (user_id) DO UPDATE SET
		active_workspace_id = EXCLUDED.active_workspace_id,
		active_tenant_id = EXCLUDED.active_tenant_id,
		last_switched_at = EXCLUDED.last_switched_at`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBPointer(p)); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryByUserID gets the pointer of the user.
func (s *Store) QueryByUserID(ctx context.Context, userID uuid.UUID) (pointerbus.Pointer, error) {
	data := struct {
		UserID string `db:"user_id"`
	}{
		UserID: userID.String(),
	}

	const q = `
	SELECT
		user_id, active_workspace_id, active_tenant_id, last_switched_at
	FROM
		"public"."active_workspace_pointer"
	WHERE
		user_id = :user_id`

	var dbP pointerDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbP); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return pointerbus.Pointer{}, fmt.Errorf("db: %w", pointerbus.ErrNotFound)
		}
		return pointerbus.Pointer{}, fmt.Errorf("db: %w", err)
	}

	return toBusPointer(dbP), nil
}
