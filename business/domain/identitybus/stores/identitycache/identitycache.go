// Package identitycache keeps the claims stored on identities close to the
// authentication path.
package identitycache

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/viccon/sturdyc"
)

// Store wraps an identity storer with a write-through claims cache.
type Store struct {
	log    *logger.Logger
	storer identitybus.Storer
	claims *sturdyc.Client[identitybus.ClaimsRecord]
	floor  *versions
	tx     sqldb.CommitRollbacker
}

// NewStore constructs the api for data and caching access.
func NewStore(log *logger.Logger, storer identitybus.Storer, ttl time.Duration) *Store {
	const capacity = 10000
	const numShards = 10
	const evictionPercentage = 10

	return &Store{
		log:    log,
		storer: storer,
		claims: sturdyc.New[identitybus.ClaimsRecord](capacity, numShards, ttl, evictionPercentage),
		floor:  &versions{m: make(map[string]int)},
	}
}

// NewWithTx constructs a new Store value replacing the sqlx DB
// value with a sqlx DB value that is currently inside a transaction.
// Claims written through it are evicted again once the transaction commits,
// dropping anything cached from the older committed row in the meantime.
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (identitybus.Storer, error) {
	storer, err := s.storer.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	store := Store{
		log:    s.log,
		storer: storer,
		claims: s.claims,
		floor:  s.floor,
		tx:     tx,
	}

	return &store, nil
}

// Create inserts a new identity.
func (s *Store) Create(ctx context.Context, idt identitybus.Identity) error {
	return s.storer.Create(ctx, idt)
}

// QueryByID gets the specified identity.
func (s *Store) QueryByID(ctx context.Context, uid uuid.UUID) (identitybus.Identity, error) {
	return s.storer.QueryByID(ctx, uid)
}

// QueryByLookupKey gets the identity holding the phone or email in the tenant.
func (s *Store) QueryByLookupKey(ctx context.Context, tenantID string, lookupKey string) (identitybus.Identity, error) {
	return s.storer.QueryByLookupKey(ctx, tenantID, lookupKey)
}

// SetClaims writes the claims and refreshes the cached copy.
func (s *Store) SetClaims(ctx context.Context, uid uuid.UUID, claims authclaims.Claims, expected int, now time.Time) (identitybus.ClaimsRecord, error) {
	key := uid.String()

	rec, err := s.storer.SetClaims(ctx, uid, claims, expected, now)
	if err != nil {
		s.claims.Delete(key)
		return identitybus.ClaimsRecord{}, err
	}

	if s.tx == nil {
		s.floor.raise(key, rec.Version)
		s.claims.Set(key, rec)
		return rec, nil
	}

	s.claims.Delete(key)

	committed := func() {
		s.floor.raise(key, rec.Version)
		s.claims.Delete(key)
	}

	if !sqldb.AfterCommit(s.tx, committed) {
		s.log.Warn(ctx, "identitycache: transaction cannot notify on commit", "userID", uid)
	}

	return rec, nil
}

// QueryClaims gets the claims from the cache or the database. A cached
// record older than the newest committed write is discarded.
func (s *Store) QueryClaims(ctx context.Context, uid uuid.UUID) (identitybus.ClaimsRecord, error) {
	if s.tx != nil {
		return s.storer.QueryClaims(ctx, uid)
	}

	key := uid.String()

	fetch := func(ctx context.Context) (identitybus.ClaimsRecord, error) {
		return s.storer.QueryClaims(ctx, uid)
	}

	rec, err := s.claims.GetOrFetch(ctx, key, fetch)
	if err != nil {
		return identitybus.ClaimsRecord{}, err
	}

	if rec.Version >= s.floor.get(key) {
		return rec, nil
	}

	s.claims.Delete(key)

	rec, err = s.storer.QueryClaims(ctx, uid)
	if err != nil {
		return identitybus.ClaimsRecord{}, err
	}

	s.claims.Set(key, rec)

	return rec, nil
}

// =============================================================================

// versions tracks the newest committed claims version per identity.
type versions struct {
	mu sync.Mutex
	m  map[string]int
}

func (v *versions) raise(key string, version int) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if version > v.m[key] {
		v.m[key] = version
	}
}

func (v *versions) get(key string) int {
	v.mu.Lock()
	defer v.mu.Unlock()

	return v.m[key]
}
