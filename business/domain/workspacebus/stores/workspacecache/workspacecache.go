// Package workspacecache contains workspace related CRUD functionality with
// caching.
package workspacecache

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/viccon/sturdyc"
)

// Store manages the set of APIs for workspace data and caching.
type Store struct {
	log    *logger.Logger
	storer workspacebus.Storer
	cache  *sturdyc.Client[workspacebus.Workspace]
	tx     sqldb.CommitRollbacker
}

// NewStore constructs the api for data and caching access.
func NewStore(log *logger.Logger, storer workspacebus.Storer, ttl time.Duration) *Store {
	const capacity = 10000
	const numShards = 10
	const evictionPercentage = 10

	return &Store{
		log:    log,
		storer: storer,
		cache:  sturdyc.New[workspacebus.Workspace](capacity, numShards, ttl, evictionPercentage),
	}
}

// NewWithTx constructs a new Store value replacing the sqlx DB
// value with a sqlx DB value that is currently inside a transaction.
// Workspaces written through it are evicted when the transaction commits.
func (s *Store) NewWithTx(tx sqldb.CommitRollbacker) (workspacebus.Storer, error) {
	storer, err := s.storer.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	store := Store{
		log:    s.log,
		storer: storer,
		cache:  s.cache,
		tx:     tx,
	}

	return &store, nil
}

// Create inserts a new workspace into the database.
func (s *Store) Create(ctx context.Context, ws workspacebus.Workspace) error {
	if err := s.storer.Create(ctx, ws); err != nil {
		return err
	}

	s.written(ctx, ws)

	return nil
}

// Update replaces a workspace document in the database.
func (s *Store) Update(ctx context.Context, ws workspacebus.Workspace) error {
	if err := s.storer.Update(ctx, ws); err != nil {
		return err
	}

	s.written(ctx, ws)

	return nil
}

// QueryByID gets the specified workspace from the cache or the database.
func (s *Store) QueryByID(ctx context.Context, workspaceID uuid.UUID) (workspacebus.Workspace, error) {
	if s.tx != nil {
		return s.storer.QueryByID(ctx, workspaceID)
	}

	fetch := func(ctx context.Context) (workspacebus.Workspace, error) {
		return s.storer.QueryByID(ctx, workspaceID)
	}

	return s.cache.GetOrFetch(ctx, workspaceID.String(), fetch)
}

func (s *Store) written(ctx context.Context, ws workspacebus.Workspace) {
	key := ws.ID.String()

	if s.tx == nil {
		s.cache.Set(key, ws)
		return
	}

	s.cache.Delete(key)

	if !sqldb.AfterCommit(s.tx, func() { s.cache.Delete(key) }) {
		s.log.Warn(ctx, "workspacecache: transaction cannot notify on commit", "workspaceID", ws.ID)
	}
}
