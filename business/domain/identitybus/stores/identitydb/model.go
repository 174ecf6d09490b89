package identitydb

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/phone"
)

type identityDB struct {
	UID       uuid.UUID      `db:"user_id"`
	TenantID  string         `db:"tenant_id"`
	LookupKey string         `db:"lookup_key"`
	Name      string         `db:"name"`
	Phone     sql.NullString `db:"phone"`
	CreatedAt time.Time      `db:"created_at"`
}

func toDBIdentity(bus identitybus.Identity) identityDB {
	return identityDB{
		UID:       bus.UID,
		TenantID:  bus.TenantID,
		LookupKey: bus.LookupKey,
		Name:      bus.Name.String(),
		Phone:     phone.ToSQLNullString(bus.Phone),
		CreatedAt: bus.CreatedAt.UTC(),
	}
}

func toBusIdentity(db identityDB) (identitybus.Identity, error) {
	nme, err := name.Parse(db.Name)
	if err != nil {
		return identitybus.Identity{}, fmt.Errorf("parse name: %w", err)
	}

	ph, err := phone.ParseNull(db.Phone.String)
	if err != nil {
		return identitybus.Identity{}, fmt.Errorf("parse phone: %w", err)
	}

	bus := identitybus.Identity{
		UID:       db.UID,
		TenantID:  db.TenantID,
		LookupKey: db.LookupKey,
		Name:      nme,
		Phone:     ph,
		CreatedAt: db.CreatedAt.UTC(),
	}

	return bus, nil
}

// =============================================================================

type claimsDB struct {
	UID       uuid.UUID `db:"user_id"`
	Claims    []byte    `db:"claims"`
	Version   int       `db:"version"`
	UpdatedAt time.Time `db:"updated_at"`
}

func toDBClaims(uid uuid.UUID, claims authclaims.Claims, now time.Time) (claimsDB, error) {
	data, err := json.Marshal(claims)
	if err != nil {
		return claimsDB{}, fmt.Errorf("marshal claims: %w", err)
	}

	db := claimsDB{
		UID:       uid,
		Claims:    data,
		UpdatedAt: now.UTC(),
	}

	return db, nil
}

func toBusClaims(db claimsDB) (identitybus.ClaimsRecord, error) {
	var claims authclaims.Claims
	if err := json.Unmarshal(db.Claims, &claims); err != nil {
		return identitybus.ClaimsRecord{}, fmt.Errorf("unmarshal claims: %w", err)
	}

	bus := identitybus.ClaimsRecord{
		UID:       db.UID,
		Claims:    claims,
		Version:   db.Version,
		UpdatedAt: db.UpdatedAt.UTC(),
	}

	return bus, nil
}
