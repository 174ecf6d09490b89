// Package rosterbus provides business access to the workspace roster
// projection.
package rosterbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jcpaschoal/crewspace/foundation/otel"
)

// Set of error variables for roster operations.
var (
	ErrNotFound = errors.New("roster entry not found")
	ErrExists   = errors.New("roster entry already exists")
)

// Storer defines the behavior required by the rosterbus to interact with the
// database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, e Entry) error
	Update(ctx context.Context, e Entry) error
	QueryByID(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (Entry, error)
	QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]Entry, error)
	CountByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error)
}

// Core manages the set of APIs for roster access.
type Core struct {
	log    *logger.Logger
	storer Storer
}

// NewCore constructs a core for roster api access.
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

// Ensure creates the entry when absent. An existing entry is never
// overwritten. The boolean reports whether the entry was created.
func (c *Core) Ensure(ctx context.Context, ne NewEntry) (Entry, bool, error) {
	ctx, span := otel.AddSpan(ctx, "business.rosterbus.ensure")
	defer span.End()

	e, err := c.storer.QueryByID(ctx, ne.UserID, ne.WorkspaceID)
	switch {
	case err == nil:
		return e, false, nil

	case !errors.Is(err, ErrNotFound):
		return Entry{}, false, fmt.Errorf("ensure: query: userID[%s] workspaceID[%s]: %w", ne.UserID, ne.WorkspaceID, err)
	}

	now := time.Now().UTC()

	e = Entry{
		UserID:      ne.UserID,
		WorkspaceID: ne.WorkspaceID,
		TenantID:    ne.TenantID,
		Name:        ne.Name,
		Contact:     ne.Contact,
		Role:        ne.Role,
		Status:      ne.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := c.storer.Create(ctx, e); err != nil {
		if errors.Is(err, ErrExists) {
			e, err := c.storer.QueryByID(ctx, ne.UserID, ne.WorkspaceID)
			if err != nil {
				return Entry{}, false, fmt.Errorf("ensure: query: userID[%s] workspaceID[%s]: %w", ne.UserID, ne.WorkspaceID, err)
			}
			return e, false, nil
		}
		return Entry{}, false, fmt.Errorf("ensure: create: userID[%s] workspaceID[%s]: %w", ne.UserID, ne.WorkspaceID, err)
	}

	return e, true, nil
}

// Update mirrors a membership change onto the entry.
func (c *Core) Update(ctx context.Context, e Entry, ue UpdateEntry) (Entry, error) {
	ctx, span := otel.AddSpan(ctx, "business.rosterbus.update")
	defer span.End()

	if ue.Role != nil {
		e.Role = *ue.Role
	}

	if ue.Status != nil {
		e.Status = *ue.Status
	}

	e.UpdatedAt = time.Now().UTC()

	if err := c.storer.Update(ctx, e); err != nil {
		return Entry{}, fmt.Errorf("update: userID[%s] workspaceID[%s]: %w", e.UserID, e.WorkspaceID, err)
	}

	return e, nil
}

// QueryByID finds the entry of the user in the workspace.
func (c *Core) QueryByID(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (Entry, error) {
	ctx, span := otel.AddSpan(ctx, "business.rosterbus.queryByID")
	defer span.End()

	e, err := c.storer.QueryByID(ctx, userID, workspaceID)
	if err != nil {
		return Entry{}, fmt.Errorf("query: userID[%s] workspaceID[%s]: %w", userID, workspaceID, err)
	}

	return e, nil
}

// QueryByWorkspace returns a page of the workspace roster.
func (c *Core) QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]Entry, error) {
	ctx, span := otel.AddSpan(ctx, "business.rosterbus.queryByWorkspace")
	defer span.End()

	es, err := c.storer.QueryByWorkspace(ctx, workspaceID, pg)
	if err != nil {
		return nil, fmt.Errorf("query: workspaceID[%s]: %w", workspaceID, err)
	}

	return es, nil
}

// CountByWorkspace returns the size of the workspace roster.
func (c *Core) CountByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	ctx, span := otel.AddSpan(ctx, "business.rosterbus.countByWorkspace")
	defer span.End()

	return c.storer.CountByWorkspace(ctx, workspaceID)
}
