// Package auditdb contains audit trail storage.
package auditdb

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jmoiron/sqlx"
)

// Store manages the set of APIs for audit database access.
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
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (auditbus.Storer, error) {
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

// Create appends an event.
func (s *Store) Create(ctx context.Context, e auditbus.Event) error {
	dbE, err := toDBEvent(e)
	if err != nil {
		return err
	}

	const q = `
	INSERT INTO "public"."audit_event"
		(event_id, actor_id, workspace_id, action, target_id, metadata, created_at)
	VALUES
		(:event_id, :actor_id, :workspace_id, :action, :target_id, CAST(:metadata AS JSONB), :created_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, dbE); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryByTarget gets the events about one record.
func (s *Store) QueryByTarget(ctx context.Context, targetID string) ([]auditbus.Event, error) {
	data := struct {
		TargetID string `db:"target_id"`
	}{
		TargetID: targetID,
	}

	const q = `
	SELECT
		event_id, actor_id, workspace_id, action, target_id, metadata, created_at
	FROM
		"public"."audit_event"
	WHERE
		target_id = :target_id
	ORDER BY
		created_at`

	var dbEs []eventDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbEs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusEvents(dbEs)
}

// QueryByWorkspace gets a page of the workspace's events, newest first.
func (s *Store) QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]auditbus.Event, error) {
	data := map[string]any{
		"workspace_id":  workspaceID.String(),
		"offset":        pg.Offset(),
		"rows_per_page": pg.RowsPerPage(),
	}

	const q = `
	SELECT
		event_id, actor_id, workspace_id, action, target_id, metadata, created_at
	FROM
		"public"."audit_event"
	WHERE
		workspace_id = :workspace_id
	ORDER BY
		created_at DESC
	OFFSET :offset ROWS FETCH NEXT :rows_per_page ROWS ONLY`

	var dbEs []eventDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbEs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusEvents(dbEs)
}
