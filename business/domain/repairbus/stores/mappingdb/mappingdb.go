// Package mappingdb contains provisioning mapping storage.
package mappingdb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/role"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jmoiron/sqlx"
)

type mappingDB struct {
	LookupKey   string    `db:"lookup_key"`
	WorkspaceID uuid.UUID `db:"workspace_id"`
	TenantID    string    `db:"tenant_id"`
	Role        string    `db:"role"`
	Name        string    `db:"name"`
	Contact     string    `db:"contact"`
	CreatedAt   time.Time `db:"created_at"`
}

func toDBMapping(bus repairbus.Mapping) mappingDB {
	return mappingDB{
		LookupKey:   bus.LookupKey,
		WorkspaceID: bus.WorkspaceID,
		TenantID:    bus.TenantID,
		Role:        bus.Role.String(),
		Name:        bus.Name.String(),
		Contact:     bus.Contact,
		CreatedAt:   bus.CreatedAt.UTC(),
	}
}

func toBusMapping(db mappingDB) (repairbus.Mapping, error) {
	r, err := role.Parse(db.Role)
	if err != nil {
		return repairbus.Mapping{}, fmt.Errorf("parse role: %w", err)
	}

	n, err := name.Parse(db.Name)
	if err != nil {
		return repairbus.Mapping{}, fmt.Errorf("parse name: %w", err)
	}

	bus := repairbus.Mapping{
		LookupKey:   db.LookupKey,
		WorkspaceID: db.WorkspaceID,
		TenantID:    db.TenantID,
		Role:        r,
		Name:        n,
		Contact:     db.Contact,
		CreatedAt:   db.CreatedAt.UTC(),
	}

	return bus, nil
}

// =============================================================================

// Store manages the set of APIs for mapping database access.
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

// Create inserts a new mapping into the database.
func (s *Store) Create(ctx context.Context, m repairbus.Mapping) error {
	const q = `
	INSERT INTO "public"."provisioning_mapping"
		(lookup_key, workspace_id, tenant_id, role, name, contact, created_at)
	VALUES
		(:lookup_key, :workspace_id, :tenant_id, :role, :name, :contact, :created_at)`

	if err := sqldb.NamedExecContext(ctx, s.log, s.db, q, toDBMapping(m)); err != nil {
		if errors.As(err, &sqldb.ErrDBDuplicatedEntry{}) {
			return fmt.Errorf("namedexeccontext: %w", repairbus.ErrMappingExists)
		}
		return fmt.Errorf("namedexeccontext: %w", err)
	}

	return nil
}

// QueryByLookupKey gets every mapping recorded for the key, oldest first.
func (s *Store) QueryByLookupKey(ctx context.Context, lookupKey string) ([]repairbus.Mapping, error) {
	data := struct {
		LookupKey string `db:"lookup_key"`
	}{
		LookupKey: lookupKey,
	}

	const q = `
	SELECT
		lookup_key, workspace_id, tenant_id, role, name, contact, created_at
	FROM
		"public"."provisioning_mapping"
	WHERE
		lookup_key = :lookup_key
	ORDER BY
		created_at, workspace_id`

	var dbMs []mappingDB
	if err := sqldb.NamedQuerySlice(ctx, s.log, s.db, q, data, &dbMs); err != nil {
		return nil, fmt.Errorf("namedqueryslice: %w", err)
	}

	bus := make([]repairbus.Mapping, len(dbMs))
	for i, db := range dbMs {
		var err error
		bus[i], err = toBusMapping(db)
		if err != nil {
			return nil, err
		}
	}

	return bus, nil
}
