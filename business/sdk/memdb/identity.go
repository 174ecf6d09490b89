package memdb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
)

// IdentityStore implements identitybus.Storer.
type IdentityStore struct {
	db *DB
	tx *Tx
}

// IdentityStore returns the identity storer.
func (db *DB) IdentityStore() *IdentityStore {
	return &IdentityStore{db: db}
}

// NewWithTx binds the store to the transaction.
func (s *IdentityStore) NewWithTx(tx sqldb.CommitRollbacker) (identitybus.Storer, error) {
	t, err := txOf(tx)
	if err != nil {
		return nil, err
	}

	return &IdentityStore{db: s.db, tx: t}, nil
}

// Create adds an identity, unique per tenant and lookup key.
func (s *IdentityStore) Create(ctx context.Context, idt identitybus.Identity) error {
	return s.db.exec(s.tx, "identity.Create", func(st *state) error {
		for _, v := range st.identities {
			if v.TenantID == idt.TenantID && v.LookupKey == idt.LookupKey {
				return fmt.Errorf("db: %w", identitybus.ErrExists)
			}
		}
		st.identities[idt.UID] = idt
		return nil
	})
}

// QueryByID finds an identity.
func (s *IdentityStore) QueryByID(ctx context.Context, uid uuid.UUID) (identitybus.Identity, error) {
	var idt identitybus.Identity

	err := s.db.read(s.tx, "identity.QueryByID", func(st *state) error {
		v, exists := st.identities[uid]
		if !exists {
			return fmt.Errorf("db: %w", identitybus.ErrNotFound)
		}
		idt = v
		return nil
	})

	return idt, err
}

// QueryByLookupKey finds the identity holding the key in the tenant.
func (s *IdentityStore) QueryByLookupKey(ctx context.Context, tenantID string, lookupKey string) (identitybus.Identity, error) {
	var idt identitybus.Identity

	err := s.db.read(s.tx, "identity.QueryByLookupKey", func(st *state) error {
		for _, v := range st.identities {
			if v.TenantID == tenantID && v.LookupKey == lookupKey {
				idt = v
				return nil
			}
		}
		return fmt.Errorf("db: %w", identitybus.ErrNotFound)
	})

	return idt, err
}

// SetClaims stores the claims and bumps the version when the stored version
// matches expected.
func (s *IdentityStore) SetClaims(ctx context.Context, uid uuid.UUID, claims authclaims.Claims, expected int, now time.Time) (identitybus.ClaimsRecord, error) {
	var rec identitybus.ClaimsRecord

	err := s.db.exec(s.tx, "identity.SetClaims", func(st *state) error {
		if _, exists := st.identities[uid]; !exists {
			return fmt.Errorf("db: %w", identitybus.ErrNotFound)
		}

		if current := st.claims[uid].Version; current != expected {
			return fmt.Errorf("db: stored[%d]: %w", current, identitybus.ErrVersionConflict)
		}

		rec = identitybus.ClaimsRecord{
			UID:       uid,
			Claims:    claims,
			Version:   expected + 1,
			UpdatedAt: now,
		}
		st.claims[uid] = rec
		return nil
	})

	return rec, err
}

// QueryClaims returns the stored claims.
func (s *IdentityStore) QueryClaims(ctx context.Context, uid uuid.UUID) (identitybus.ClaimsRecord, error) {
	var rec identitybus.ClaimsRecord

	err := s.db.read(s.tx, "identity.QueryClaims", func(st *state) error {
		v, exists := st.claims[uid]
		if !exists {
			return fmt.Errorf("db: %w", identitybus.ErrNotFound)
		}
		rec = v
		return nil
	})

	return rec, err
}
