// Package invitationdb contains invitation related CRUD functionality.
package invitationdb

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/invitestatus"
	"github.com/jcpaschoal/crewspace/business/types/phone"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jmoiron/sqlx"
)

const columns = `
		invitation_id, code, phone, name, workspace_id, tenant_id, role, invited_by, inviter_name,
		invited_at, expires_at, status, accepted_at, accepted_by, updated_at`

// Store manages the set of APIs for invitation database access.
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
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (invitationbus.Storer, error) {
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

// Create inserts a new invitation into the database. A row that would break
// one of the pending unique indexes is not written; the index that blocked it
// is then looked up so the insert never aborts a surrounding transaction.
func (s *Store) Create(ctx context.Context, inv invitationbus.Invitation) error {
	const q = `
	INSERT INTO "public"."invitation"
		(` + columns + `)
	VALUES
		(:invitation_id, :code, :phone, :name, :workspace_id, :tenant_id, :role, :invited_by, :inviter_name,
		:invited_at, :expires_at, :status, :accepted_at, :accepted_by, :updated_at)
	ON CONFLICT DO NOTHING
	RETURNING
		invitation_id`

	var dest struct {
		ID uuid.UUID `db:"invitation_id"`
	}

	err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, toDBInvitation(inv), &dest)
	switch {
	case err == nil:
		return nil

	case !errors.Is(err, sqldb.ErrDBNotFound):
		return fmt.Errorf("namedquerystruct: %w", err)
	}

	taken, err := s.PendingCodeExists(ctx, inv.Code)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	if taken {
		return fmt.Errorf("create: %w", invitationbus.ErrCodeTaken)
	}

	pending, err := s.QueryPending(ctx, inv.WorkspaceID, inv.Phone)
	if err != nil {
		return fmt.Errorf("create: %w", err)
	}

	if len(pending) > 0 {
		return fmt.Errorf("create: invitationID[%s]: %w", pending[0].ID, invitationbus.ErrPendingExists)
	}

	return fmt.Errorf("create: invitationID[%s]: %w", inv.ID, sqldb.ErrDBDuplicatedEntry{Column: "invitation_pkey"})
}

// Transition writes the new state of the invitation only if the stored
// status still equals from. A lost race reports ErrAlreadyTerminal.
func (s *Store) Transition(ctx context.Context, inv invitationbus.Invitation, from invitestatus.Status) error {
	data := struct {
		invitationDB
		From string `db:"from_status"`
	}{
		invitationDB: toDBInvitation(inv),
		From:         from.String(),
	}

	const q = `
	UPDATE
		"public"."invitation"
	SET
		status = :status,
		accepted_at = :accepted_at,
		accepted_by = :accepted_by,
		updated_at = :updated_at
	WHERE
		invitation_id = :invitation_id AND status = :from_status
	RETURNING
		invitation_id`

	var dest struct {
		ID uuid.UUID `db:"invitation_id"`
	}
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dest); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return fmt.Errorf("db: invitationID[%s]: %w", inv.ID, invitationbus.ErrAlreadyTerminal)
		}
		return fmt.Errorf("db: %w", err)
	}

	return nil
}

// QueryByID gets the specified invitation from the database.
func (s *Store) QueryByID(ctx context.Context, invitationID uuid.UUID) (invitationbus.Invitation, error) {
	data := struct {
		ID string `db:"invitation_id"`
	}{
		ID: invitationID.String(),
	}

	const q = `
	SELECT` + columns + `
	FROM
		"public"."invitation"
	WHERE
		invitation_id = :invitation_id`

	var dbInv invitationDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbInv); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return invitationbus.Invitation{}, fmt.Errorf("db: %w", invitationbus.ErrNotFound)
		}
		return invitationbus.Invitation{}, fmt.Errorf("db: %w", err)
	}

	return toBusInvitation(dbInv)
}

// QueryByCode gets the most recently issued invitation carrying the code.
func (s *Store) QueryByCode(ctx context.Context, code string) (invitationbus.Invitation, error) {
	data := struct {
		Code string `db:"code"`
	}{
		Code: code,
	}

	const q = `
	SELECT` + columns + `
	FROM
		"public"."invitation"
	WHERE
		code = :code
	ORDER BY
		invited_at DESC
	LIMIT 1`

	var dbInv invitationDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbInv); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return invitationbus.Invitation{}, fmt.Errorf("db: %w", invitationbus.ErrNotFound)
		}
		return invitationbus.Invitation{}, fmt.Errorf("db: %w", err)
	}

	return toBusInvitation(dbInv)
}

// PendingCodeExists reports whether a pending invitation already holds the code.
func (s *Store) PendingCodeExists(ctx context.Context, code string) (bool, error) {
	data := struct {
		Code string `db:"code"`
	}{
		Code: code,
	}

	const q = `
	SELECT
		count(1)
	FROM
		"public"."invitation"
	WHERE
		code = :code AND status = 'pending'`

	var count struct {
		Count int `db:"count"`
	}
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &count); err != nil {
		return false, fmt.Errorf("db: %w", err)
	}

	return count.Count > 0, nil
}

// QueryPending gets the pending invitations for the phone in the workspace.
func (s *Store) QueryPending(ctx context.Context, workspaceID uuid.UUID, p phone.Phone) ([]invitationbus.Invitation, error) {
	data := struct {
		WorkspaceID string `db:"workspace_id"`
		Phone       string `db:"phone"`
	}{
		WorkspaceID: workspaceID.String(),
		Phone:       p.String(),
	}

	const q = `
	SELECT` + columns + `
	FROM
		"public"."invitation"
	WHERE
		workspace_id = :workspace_id AND phone = :phone AND status = 'pending'
	ORDER BY
		invited_at`

	var dbInvs []invitationDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbInvs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusInvitations(dbInvs)
}

// QueryAcceptedByPhone gets every accepted invitation for the phone.
func (s *Store) QueryAcceptedByPhone(ctx context.Context, p phone.Phone) ([]invitationbus.Invitation, error) {
	data := struct {
		Phone string `db:"phone"`
	}{
		Phone: p.String(),
	}

	const q = `
	SELECT` + columns + `
	FROM
		"public"."invitation"
	WHERE
		phone = :phone AND status = 'accepted'
	ORDER BY
		accepted_at`

	var dbInvs []invitationDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbInvs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusInvitations(dbInvs)
}

// Query retrieves a page of invitations, newest first.
func (s *Store) Query(ctx context.Context, filter invitationbus.QueryFilter, pg page.Page) ([]invitationbus.Invitation, error) {
	data := map[string]any{
		"offset":        pg.Offset(),
		"rows_per_page": pg.RowsPerPage(),
	}

	const q = `
	SELECT` + columns + `
	FROM
		"public"."invitation"`

	buf := bytes.NewBufferString(q)
	applyFilter(filter, data, buf)

	buf.WriteString(" ORDER BY invited_at DESC, invitation_id")
	buf.WriteString(" OFFSET :offset ROWS FETCH NEXT :rows_per_page ROWS ONLY")

	var dbInvs []invitationDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, buf.String(), data, &dbInvs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	return toBusInvitations(dbInvs)
}

// Count returns the number of invitations matching the filter.
func (s *Store) Count(ctx context.Context, filter invitationbus.QueryFilter) (int, error) {
	data := map[string]any{}

	const q = `
	SELECT
		count(1)
	FROM
		"public"."invitation"`

	buf := bytes.NewBufferString(q)
	applyFilter(filter, data, buf)

	var count struct {
		Count int `db:"count"`
	}
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, buf.String(), data, &count); err != nil {
		return 0, fmt.Errorf("db: %w", err)
	}

	return count.Count, nil
}
