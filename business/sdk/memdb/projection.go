package memdb

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
)

// PointerStore implements pointerbus.Storer.
type PointerStore struct {
	db *DB
	tx *Tx
}

// PointerStore returns the pointer storer.
func (db *DB) PointerStore() *PointerStore {
	return &PointerStore{db: db}
}

// NewWithTx binds the store to the transaction.
func (s *PointerStore) NewWithTx(tx sqldb.CommitRollbacker) (pointerbus.Storer, error) {
	t, err := txOf(tx)
	if err != nil {
		return nil, err
	}

	return &PointerStore{db: s.db, tx: t}, nil
}

// Create adds a pointer, one per user.
func (s *PointerStore) Create(ctx context.Context, p pointerbus.Pointer) error {
	return s.db.exec(s.tx, "pointer.Create", func(st *state) error {
		if _, exists := st.pointers[p.UserID]; exists {
			return fmt.Errorf("db: %w", pointerbus.ErrExists)
		}
		st.pointers[p.UserID] = p
		return nil
	})
}

// Upsert writes the pointer whether or not it exists.
func (s *PointerStore) Upsert(ctx context.Context, p pointerbus.Pointer) error {
	return s.db.exec(s.tx, "pointer.Upsert", func(st *state) error {
		st.pointers[p.UserID] = p
		return nil
	})
}

// QueryByUserID finds the pointer of the user.
func (s *PointerStore) QueryByUserID(ctx context.Context, userID uuid.UUID) (pointerbus.Pointer, error) {
	var p pointerbus.Pointer

	err := s.db.read(s.tx, "pointer.QueryByUserID", func(st *state) error {
		v, exists := st.pointers[userID]
		if !exists {
			return fmt.Errorf("db: %w", pointerbus.ErrNotFound)
		}
		p = v
		return nil
	})

	return p, err
}

// =============================================================================

// RosterStore implements rosterbus.Storer.
type RosterStore struct {
	db *DB
	tx *Tx
}

// RosterStore returns the roster storer.
func (db *DB) RosterStore() *RosterStore {
	return &RosterStore{db: db}
}

// NewWithTx binds the store to the transaction.
func (s *RosterStore) NewWithTx(tx sqldb.CommitRollbacker) (rosterbus.Storer, error) {
	t, err := txOf(tx)
	if err != nil {
		return nil, err
	}

	return &RosterStore{db: s.db, tx: t}, nil
}

// Create adds a roster entry, one per user and workspace.
func (s *RosterStore) Create(ctx context.Context, e rosterbus.Entry) error {
	return s.db.exec(s.tx, "roster.Create", func(st *state) error {
		k := pairKey{e.UserID, e.WorkspaceID}
		if _, exists := st.roster[k]; exists {
			return fmt.Errorf("db: %w", rosterbus.ErrExists)
		}
		st.roster[k] = e
		return nil
	})
}

// Update replaces a roster entry.
func (s *RosterStore) Update(ctx context.Context, e rosterbus.Entry) error {
	return s.db.exec(s.tx, "roster.Update", func(st *state) error {
		k := pairKey{e.UserID, e.WorkspaceID}
		if _, exists := st.roster[k]; !exists {
			return nil
		}
		st.roster[k] = e
		return nil
	})
}

// QueryByID finds the roster entry of the user in the workspace.
func (s *RosterStore) QueryByID(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (rosterbus.Entry, error) {
	var e rosterbus.Entry

	err := s.db.read(s.tx, "roster.QueryByID", func(st *state) error {
		v, exists := st.roster[pairKey{userID, workspaceID}]
		if !exists {
			return fmt.Errorf("db: %w", rosterbus.ErrNotFound)
		}
		e = v
		return nil
	})

	return e, err
}

// QueryByWorkspace returns a page of the roster ordered by name.
func (s *RosterStore) QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]rosterbus.Entry, error) {
	var es []rosterbus.Entry

	err := s.db.read(s.tx, "roster.QueryByWorkspace", func(st *state) error {
		es = pageOf(collectRoster(st, workspaceID), pg)
		return nil
	})

	return es, err
}

// CountByWorkspace returns the size of the roster.
func (s *RosterStore) CountByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	var n int

	err := s.db.read(s.tx, "roster.CountByWorkspace", func(st *state) error {
		n = len(collectRoster(st, workspaceID))
		return nil
	})

	return n, err
}

func collectRoster(st *state, workspaceID uuid.UUID) []rosterbus.Entry {
	var es []rosterbus.Entry
	for _, e := range st.roster {
		if e.WorkspaceID == workspaceID {
			es = append(es, e)
		}
	}

	slices.SortFunc(es, func(a, b rosterbus.Entry) int {
		if c := cmp.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return cmp.Compare(a.UserID.String(), b.UserID.String())
	})

	return es
}

// =============================================================================

// AuditStore implements auditbus.Storer.
type AuditStore struct {
	db *DB
	tx *Tx
}

// AuditStore returns the audit storer.
func (db *DB) AuditStore() *AuditStore {
	return &AuditStore{db: db}
}

// NewWithTx binds the store to the transaction.
func (s *AuditStore) NewWithTx(tx sqldb.CommitRollbacker) (auditbus.Storer, error) {
	t, err := txOf(tx)
	if err != nil {
		return nil, err
	}

	return &AuditStore{db: s.db, tx: t}, nil
}

// Create appends an event.
func (s *AuditStore) Create(ctx context.Context, e auditbus.Event) error {
	return s.db.exec(s.tx, "audit.Create", func(st *state) error {
		st.events = append(st.events, e)
		return nil
	})
}

// QueryByTarget returns the events about the target, oldest first.
func (s *AuditStore) QueryByTarget(ctx context.Context, targetID string) ([]auditbus.Event, error) {
	var es []auditbus.Event

	err := s.db.read(s.tx, "audit.QueryByTarget", func(st *state) error {
		for _, e := range st.events {
			if e.TargetID == targetID {
				es = append(es, e)
			}
		}
		return nil
	})

	return es, err
}

// QueryByWorkspace returns a page of the workspace events, newest first.
func (s *AuditStore) QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]auditbus.Event, error) {
	var es []auditbus.Event

	err := s.db.read(s.tx, "audit.QueryByWorkspace", func(st *state) error {
		var all []auditbus.Event
		for _, e := range st.events {
			if e.WorkspaceID != nil && *e.WorkspaceID == workspaceID {
				all = append(all, e)
			}
		}
		slices.Reverse(all)
		es = pageOf(all, pg)
		return nil
	})

	return es, err
}

// Events returns every event recorded so far.
func (db *DB) Events() []auditbus.Event {
	db.mu.Lock()
	defer db.mu.Unlock()

	return slices.Clone(db.state.events)
}

// =============================================================================

// MappingStore implements repairbus.Storer.
type MappingStore struct {
	db *DB
}

// MappingStore returns the provisioning mapping storer.
func (db *DB) MappingStore() *MappingStore {
	return &MappingStore{db: db}
}

// Create adds a mapping, one per lookup key and workspace.
func (s *MappingStore) Create(ctx context.Context, m repairbus.Mapping) error {
	return s.db.exec(nil, "mapping.Create", func(st *state) error {
		for _, v := range st.mappings {
			if v.LookupKey == m.LookupKey && v.WorkspaceID == m.WorkspaceID {
				return fmt.Errorf("db: %w", repairbus.ErrMappingExists)
			}
		}
		st.mappings = append(st.mappings, m)
		return nil
	})
}

// QueryByLookupKey returns the mappings recorded for the key.
func (s *MappingStore) QueryByLookupKey(ctx context.Context, lookupKey string) ([]repairbus.Mapping, error) {
	var ms []repairbus.Mapping

	err := s.db.read(nil, "mapping.QueryByLookupKey", func(st *state) error {
		for _, m := range st.mappings {
			if m.LookupKey == lookupKey {
				ms = append(ms, m)
			}
		}
		return nil
	})

	return ms, err
}
