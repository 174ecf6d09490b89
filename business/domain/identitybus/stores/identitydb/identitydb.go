// Package identitydb contains the identity provider storage backed by the
// service database.
package identitydb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jmoiron/sqlx"
)

// Store manages the set of APIs for identity database access.
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
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (identitybus.Storer, error) {
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

// Create inserts a new identity into the database.
func (s *Store) Create(ctx context.Context, idt identitybus.Identity) error {
	const q = `
	INSERT INTO "public"."identity"
		(user_id, tenant_id, lookup_key, name, phone, created_at)
	VALUES
		(:user_id, :tenant_id, :lookup_key, :name, :phone, :created_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBIdentity(idt)); err != nil {
		var dupErr sqldb.ErrDBDuplicatedEntry
		if errors.As(err, &dupErr) && dupErr.Column == "uq_identity_lookup" {
			return fmt.Errorf("namedexeccontext: %w", identitybus.ErrExists)
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryByID gets the specified identity from the database.
func (s *Store) QueryByID(ctx context.Context, uid uuid.UUID) (identitybus.Identity, error) {
	data := struct {
		UID string `db:"user_id"`
	}{
		UID: uid.String(),
	}

	const q = `
	SELECT
		user_id, tenant_id, lookup_key, name, phone, created_at
	FROM
		"public"."identity"
	WHERE
		user_id = :user_id`

	var dbIdt identityDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbIdt); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return identitybus.Identity{}, fmt.Errorf("db: %w", identitybus.ErrNotFound)
		}
		return identitybus.Identity{}, fmt.Errorf("db: %w", err)
	}

	return toBusIdentity(dbIdt)
}

// QueryByLookupKey gets the identity holding the phone or email in the tenant.
func (s *Store) QueryByLookupKey(ctx context.Context, tenantID string, lookupKey string) (identitybus.Identity, error) {
	data := struct {
		TenantID  string `db:"tenant_id"`
		LookupKey string `db:"lookup_key"`
	}{
		TenantID:  tenantID,
		LookupKey: lookupKey,
	}

	const q = `
	SELECT
		user_id, tenant_id, lookup_key, name, phone, created_at
	FROM
		"public"."identity"
	WHERE
		tenant_id = :tenant_id AND lookup_key = :lookup_key`

	var dbIdt identityDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbIdt); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return identitybus.Identity{}, fmt.Errorf("db: %w", identitybus.ErrNotFound)
		}
		return identitybus.Identity{}, fmt.Errorf("db: %w", err)
	}

	return toBusIdentity(dbIdt)
}

// SetClaims writes the claims document when its stored version equals
// expected and bumps the version. A lost race reports
// identitybus.ErrVersionConflict without aborting a surrounding transaction.
func (s *Store) SetClaims(ctx context.Context, uid uuid.UUID, claims authclaims.Claims, expected int, now time.Time) (identitybus.ClaimsRecord, error) {
	data, err := toDBClaims(uid, claims, now)
	if err != nil {
		return identitybus.ClaimsRecord{}, err
	}
	data.Version = expected

	const insert = `
	INSERT INTO "public"."identity_claims"
		(user_id, claims, version, updated_at)
	VALUES
		(:user_id, CAST(:claims AS JSONB), 1, :updated_at)
	ON CONFLICT (user_id) DO NOTHING
	RETURNING
		user_id, claims, version, updated_at`

	const update = `
	UPDATE
		"public"."identity_claims"
	SET
		claims = CAST(:claims AS JSONB),
		version = version + 1,
		updated_at = :updated_at
	WHERE
		user_id = :user_id AND version = :version
	RETURNING
		user_id, claims, version, updated_at`

	q := update
	if expected == 0 {
		q = insert
	}

	var dbClaims claimsDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbClaims); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return identitybus.ClaimsRecord{}, fmt.Errorf("db: version[%d]: %w", expected, identitybus.ErrVersionConflict)
		}
		return identitybus.ClaimsRecord{}, fmt.Errorf("db: %w", err)
	}

	return toBusClaims(dbClaims)
}

// QueryClaims gets the claims document stored for the identity.
func (s *Store) QueryClaims(ctx context.Context, uid uuid.UUID) (identitybus.ClaimsRecord, error) {
	data := struct {
		UID string `db:"user_id"`
	}{
		UID: uid.String(),
	}

	const q = `
	SELECT
		user_id, claims, version, updated_at
	FROM
		"public"."identity_claims"
	WHERE
		user_id = :user_id`

	var dbClaims claimsDB
	if err := sqldb.NamedQueryStruct(ctx, s.log, s.db, q, data, &dbClaims); err != nil {
		if errors.Is(err, sqldb.ErrDBNotFound) {
			return identitybus.ClaimsRecord{}, fmt.Errorf("db: %w", identitybus.ErrNotFound)
		}
		return identitybus.ClaimsRecord{}, fmt.Errorf("db: %w", err)
	}

	return toBusClaims(dbClaims)
}
