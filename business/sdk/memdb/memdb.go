// Package memdb provides an in memory database that implements every domain
// Storer, with transactions and fault injection, for running the business
// layer in tests without Postgres.
package memdb

import (
	"database/sql"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
)

type pairKey struct {
	userID      uuid.UUID
	workspaceID uuid.UUID
}

type state struct {
	workspaces  map[uuid.UUID]workspacebus.Workspace
	identities  map[uuid.UUID]identitybus.Identity
	claims      map[uuid.UUID]identitybus.ClaimsRecord
	memberships map[pairKey]membershipbus.Membership
	invitations map[uuid.UUID]invitationbus.Invitation
	pointers    map[uuid.UUID]pointerbus.Pointer
	roster      map[pairKey]rosterbus.Entry
	events      []auditbus.Event
	mappings    []repairbus.Mapping
}

func newState() *state {
	return &state{
		workspaces:  make(map[uuid.UUID]workspacebus.Workspace),
		identities:  make(map[uuid.UUID]identitybus.Identity),
		claims:      make(map[uuid.UUID]identitybus.ClaimsRecord),
		memberships: make(map[pairKey]membershipbus.Membership),
		invitations: make(map[uuid.UUID]invitationbus.Invitation),
		pointers:    make(map[uuid.UUID]pointerbus.Pointer),
		roster:      make(map[pairKey]rosterbus.Entry),
	}
}

func (s *state) clone() *state {
	c := state{
		workspaces:  maps.Clone(s.workspaces),
		identities:  maps.Clone(s.identities),
		claims:      maps.Clone(s.claims),
		memberships: maps.Clone(s.memberships),
		invitations: maps.Clone(s.invitations),
		pointers:    maps.Clone(s.pointers),
		roster:      maps.Clone(s.roster),
		events:      slices.Clone(s.events),
		mappings:    slices.Clone(s.mappings),
	}

	return &c
}

type op func(s *state) error

// =============================================================================

// DB is the shared in memory database. Writes outside a transaction apply
// immediately. Writes inside a transaction apply to a private snapshot and
// are replayed against the live state on commit, where every constraint is
// checked again.
type DB struct {
	mu     sync.Mutex
	state  *state
	faults map[string]error
}

// New constructs an empty database.
func New() *DB {
	return &DB{
		state:  newState(),
		faults: make(map[string]error),
	}
}

// FailOn makes every call of the named operation fail with err until Clear
// is called. Names have the form "<store>.<Method>", e.g.
// "membership.Create".
func (db *DB) FailOn(name string, err error) {
	db.mu.Lock()
	defer db.mu.Unlock()

	db.faults[name] = err
}

// Clear removes every injected fault.
func (db *DB) Clear() {
	db.mu.Lock()
	defer db.mu.Unlock()

	clear(db.faults)
}

func (db *DB) fault(name string) error {
	db.mu.Lock()
	defer db.mu.Unlock()

	return db.faults[name]
}

// Begin implements the sqldb.Beginner interface.
func (db *DB) Begin() (sqldb.CommitRollbacker, error) {
	if err := db.fault("db.Begin"); err != nil {
		return nil, err
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	tx := Tx{
		db:    db,
		state: db.state.clone(),
	}

	return &tx, nil
}

func (db *DB) exec(tx *Tx, name string, fn op) error {
	if err := db.fault(name); err != nil {
		return err
	}

	if tx != nil {
		return tx.exec(fn)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	return fn(db.state)
}

func (db *DB) read(tx *Tx, name string, fn op) error {
	if err := db.fault(name); err != nil {
		return err
	}

	if tx != nil {
		return tx.read(fn)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	return fn(db.state)
}

// =============================================================================

// Tx is a transaction against the database.
type Tx struct {
	db       *DB
	mu       sync.Mutex
	state    *state
	log      []op
	onCommit []func()
	done     bool
}

// OnCommit implements the sqldb.CommitNotifier interface.
func (tx *Tx) OnCommit(fn func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	tx.onCommit = append(tx.onCommit, fn)
}

func (tx *Tx) exec(fn op) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return sql.ErrTxDone
	}

	if err := fn(tx.state); err != nil {
		return err
	}

	tx.log = append(tx.log, fn)

	return nil
}

func (tx *Tx) read(fn op) error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return sql.ErrTxDone
	}

	return fn(tx.state)
}

// Commit replays the transaction's writes against the live state. If any
// write no longer holds nothing is applied. The functions registered with
// OnCommit run after the new state is visible.
func (tx *Tx) Commit() error {
	fns, err := tx.commit()
	if err != nil {
		return err
	}

	for _, fn := range fns {
		fn()
	}

	return nil
}

func (tx *Tx) commit() ([]func(), error) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return nil, sql.ErrTxDone
	}
	tx.done = true

	if err := tx.db.fault("db.Commit"); err != nil {
		return nil, err
	}

	tx.db.mu.Lock()
	defer tx.db.mu.Unlock()

	next := tx.db.state.clone()
	for _, fn := range tx.log {
		if err := fn(next); err != nil {
			return nil, err
		}
	}

	tx.db.state = next

	return tx.onCommit, nil
}

// Rollback discards the transaction.
func (tx *Tx) Rollback() error {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	if tx.done {
		return sql.ErrTxDone
	}
	tx.done = true

	return nil
}

func txOf(cr sqldb.CommitRollbacker) (*Tx, error) {
	tx, ok := cr.(*Tx)
	if !ok {
		return nil, errors.New("transactor not of type memdb.Tx")
	}

	return tx, nil
}
