// Package membershipdb contains membership related CRUD functionality.
package membershipdb

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jmoiron/sqlx"
)

// Store manages the set of APIs for membership database access.
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
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (membershipbus.Storer, error) {
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

// Create inserts a new membership into the database.
func (s *Store) Create(ctx context.Context, m membershipbus.Membership) error {
	const q = `
	INSERT INTO "public"."workspace_membership"
		(user_id, workspace_id, tenant_id, role, status, permissions, workspace_name, workspace_avatar, joined_at, updated_at)
	VALUES
		(:user_id, :workspace_id, :tenant_id, :role, :status, :permissions, :workspace_name, :workspace_avatar, :joined_at, :updated_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBMembership(m)); err != nil {
		if errors.As(err, &sqldb.ErrDBDuplicatedEntry{}) {
			return fmt.Errorf("namedexeccontext: %w", membershipbus.ErrExists)
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// Update replaces the mutable fields of a membership.
func (s *Store) Update(ctx context.Context, m membershipbus.Membership) error {
	const q = `
	UPDATE
		"public"."workspace_membership"
	SET
		role = :role,
		status = :status,
		permissions = :permissions,
		workspace_name = :workspace_name,
		workspace_avatar = :workspace_avatar,
		updated_at = :updated_at
	WHERE
		user_id = :user_id AND workspace_id = :workspace_id`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBMembership(m)); err != nil {
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryByID gets the membership of the user in the workspace.
func (s *Store) QueryByID(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (membershipbus.Membership, error) {
	data := struct {
		UserID      string `db:"user_id"`
		WorkspaceID string `db:"workspace_id"`
	}{
		UserID:      userID.String(),
		WorkspaceID: workspaceID.String(),
	}

	const q = `
	SELECT
		user_id, workspace_id, tenant_id, role, status, permissions, workspace_name, workspace_avatar, joined_at, updated_at
	FROM
		"public"."workspace_membership"
	WHERE
		user_id = :user_id AND workspace_id = :workspace_id`

	var dbM membershipDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbM); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return membershipbus.Membership{}, fmt.Errorf("db: %w", membershipbus.ErrNotFound)
		}
		return membershipbus.Membership{}, fmt.Errorf("db: %w", err)
	}

	return toBusMembership(dbM)
}

// QueryByUserID gets every membership of the user.
func (s *Store) QueryByUserID(ctx context.Context, userID uuid.UUID) ([]membershipbus.Membership, error) {
	data := struct {
		UserID string `db:"user_id"`
	}{
		UserID: userID.String(),
	}

	const q = `
	SELECT
		user_id, workspace_id, tenant_id, role, status, permissions, workspace_name, workspace_avatar, joined_at, updated_at
	FROM
		"public"."workspace_membership"
	WHERE
		user_id = :user_id
	ORDER BY
		joined_at, workspace_id`

	var dbMs []membershipDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbMs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusMemberships(dbMs)
}

// QueryByWorkspace gets a page of the workspace's memberships.
func (s *Store) QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]membershipbus.Membership, error) {
	data := map[string]any{
		"workspace_id":  workspaceID.String(),
		"offset":        pg.Offset(),
		"rows_per_page": pg.RowsPerPage(),
	}

	const q = `
	SELECT
		user_id, workspace_id, tenant_id, role, status, permissions, workspace_name, workspace_avatar, joined_at, updated_at
	FROM
		"public"."workspace_membership"
	WHERE
		workspace_id = :workspace_id
	ORDER BY
		joined_at, user_id
	OFFSET :offset ROWS FETCH NEXT :rows_per_page ROWS ONLY`

	var dbMs []membershipDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbMs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusMemberships(dbMs)
}

// CountByWorkspace returns the number of memberships in the workspace.
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
		"public"."workspace_membership"
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
