package sqldb

import (
	"errors"
	"sync"

	"github.com/jmoiron/sqlx"
)

// Beginner represents a value that can begin a transaction.
type Beginner interface {
	Begin() (CommitRollbacker, error)
}

// CommitRollbacker represents a value that can commit or rollback a transaction.
type CommitRollbacker interface {
	Commit() error
	Rollback() error
}

// CommitNotifier is implemented by transactions that run functions after
// they commit.
type CommitNotifier interface {
	OnCommit(fn func())
}

// AfterCommit registers fn to run once the transaction commits. It reports
// false when the transaction cannot notify, in which case fn never runs.
func AfterCommit(tx CommitRollbacker, fn func()) bool {
	cn, ok := tx.(CommitNotifier)
	if !ok {
		return false
	}

	cn.OnCommit(fn)

	return true
}

// =============================================================================

// Tx is a database transaction that runs the functions registered with
// OnCommit after a successful commit. Nothing runs on rollback.
type Tx struct {
	*sqlx.Tx

	mu       sync.Mutex
	onCommit []func()
}

// OnCommit implements the CommitNotifier interface.
func (tx *Tx) OnCommit(fn func()) {
	tx.mu.Lock()
	defer tx.mu.Unlock()

	tx.onCommit = append(tx.onCommit, fn)
}

// Commit commits the transaction and then runs the registered functions.
func (tx *Tx) Commit() error {
	if err := tx.Tx.Commit(); err != nil {
		return classify(err)
	}

	tx.mu.Lock()
	fns := tx.onCommit
	tx.onCommit = nil
	tx.mu.Unlock()

	for _, fn := range fns {
		fn()
	}

	return nil
}

// =============================================================================

// DBBeginner implements the Beginner interface,
type DBBeginner struct {
	sqlxDB *sqlx.DB
}

// NewBeginner constructs a value that implements the beginner interface.
func NewBeginner(sqlxDB *sqlx.DB) *DBBeginner {
	return &DBBeginner{
		sqlxDB: sqlxDB,
	}
}

// Begin implements the Beginner interface and returns a concrete value that
// implements the CommitRollbacker interface.
func (db *DBBeginner) Begin() (CommitRollbacker, error) {
	tx, err := db.sqlxDB.Beginx()
	if err != nil {
		return nil, classify(err)
	}

	return &Tx{Tx: tx}, nil
}

// GetExtContext is a helper function that extracts the sqlx value
// from the domain transactor interface for transactional use.
func GetExtContext(tx CommitRollbacker) (sqlx.ExtContext, error) {
	ec, ok := tx.(sqlx.ExtContext)
	if !ok {
		return nil, errors.New("transactor not of type sqlx.ExtContext")
	}

	return ec, nil
}
