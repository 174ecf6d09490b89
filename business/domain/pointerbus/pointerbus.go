// Package pointerbus provides business access to the active workspace pointer
// each user carries.
package pointerbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jcpaschoal/crewspace/foundation/otel"
)

// Set of error variables for pointer operations.
var (
	ErrNotFound = errors.New("active workspace pointer not found")
	ErrExists   = errors.New("active workspace pointer already exists")
)

// Pointer records which workspace the user is currently operating in.
type Pointer struct {
	UserID            uuid.UUID
	ActiveWorkspaceID uuid.UUID
	ActiveTenantID    string
	LastSwitchedAt    time.Time
}

// Storer defines the behavior required by the pointerbus to interact with
// the database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, p Pointer) error
	Upsert(ctx context.Context, p Pointer) error
	QueryByUserID(ctx context.Context, userID uuid.UUID) (Pointer, error)
}

// Core manages the set of APIs for pointer access.
type Core struct {
	log    *logger.Logger
	storer Storer
}

// NewCore constructs a core for pointer api access.
func NewCore(log *logger.Logger, storer Storer) *Core {
	return &Core{
		log:    log,
		storer: storer,
	}
}

// NewWithTx constructs a new Core value replacing the Storer
// value with a Storer value that is currently inside a transaction.
func (c *Core) NewWithTx(tx sqldb.CommitRollbacker) (*Core, error) {
	storer, err := c.storer.NewWithTx(tx)
	if err != nil {
		return nil, fmt.Errorf("newWithTx: %w", err)
	}

	return NewCore(c.log, storer), nil
}

// Ensure creates the pointer on the user's first grant and leaves an existing
// one alone. The boolean reports whether the pointer was created.
func (c *Core) Ensure(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID, tenantID string) (Pointer, bool, error) {
	ctx, span := otel.AddSpan(ctx, "business.pointerbus.ensure")
	defer span.End()

	p, err := c.storer.QueryByUserID(ctx, userID)
	switch {
	case err == nil:
		return p, false, nil

	case !errors.Is(err, ErrNotFound):
		return Pointer{}, false, fmt.Errorf("ensure: query: userID[%s]: %w", userID, err)
	}

	p = Pointer{
		UserID:            userID,
		ActiveWorkspaceID: workspaceID,
		ActiveTenantID:    tenantID,
		LastSwitchedAt:    time.Now().UTC(),
	}

	if err := c.storer.Create(ctx, p); err != nil {
		if errors.Is(err, ErrExists) {
			p, err := c.storer.QueryByUserID(ctx, userID)
			if err != nil {
				return Pointer{}, false, fmt.Errorf("ensure: query: userID[%s]: %w", userID, err)
			}
			return p, false, nil
		}
		return Pointer{}, false, fmt.Errorf("ensure: create: userID[%s]: %w", userID, err)
	}

	return p, true, nil
}

// Set moves the pointer to the workspace. Concurrent calls resolve last write
// wins.
func (c *Core) Set(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID, tenantID string) (Pointer, error) {
	ctx, span := otel.AddSpan(ctx, "business.pointerbus.set")
	defer span.End()

	p := Pointer{
		UserID:            userID,
		ActiveWorkspaceID: workspaceID,
		ActiveTenantID:    tenantID,
		LastSwitchedAt:    time.Now().UTC(),
	}

	if err := c.storer.Upsert(ctx, p); err != nil {
		return Pointer{}, fmt.Errorf("set: userID[%s] workspaceID[%s]: %w", userID, workspaceID, err)
	}

	return p, nil
}

// QueryByUserID returns the user's pointer.
func (c *Core) QueryByUserID(ctx context.Context, userID uuid.UUID) (Pointer, error) {
	ctx, span := otel.AddSpan(ctx, "business.pointerbus.queryByUserID")
	defer span.End()

	p, err := c.storer.QueryByUserID(ctx, userID)
	if err != nil {
		return Pointer{}, fmt.Errorf("query: userID[%s]: %w", userID, err)
	}

	return p, nil
}
