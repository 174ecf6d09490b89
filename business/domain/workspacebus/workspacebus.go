// Package workspacebus provides business access to the workspace catalog.
package workspacebus

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jcpaschoal/crewspace/foundation/otel"
)

// Set of error variables for CRUD operations.
var (
	ErrNotFound = errors.New("workspace not found")
	ErrDisabled = errors.New("workspace is disabled")
	ErrTenant   = errors.New("tenant id is required")
)

// Storer defines the behavior required by the workspacebus to interact with
// the database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, ws Workspace) error
	Update(ctx context.Context, ws Workspace) error
	QueryByID(ctx context.Context, workspaceID uuid.UUID) (Workspace, error)
}

// Core manages the set of APIs for workspace access.
type Core struct {
	storer Storer
	log    *logger.Logger
}

// NewCore constructs a core for workspace api access.
func NewCore(log *logger.Logger, storer Storer) *Core {
	return &Core{
		storer: storer,
		log:    log,
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

// Create adds a new workspace to the system.
func (c *Core) Create(ctx context.Context, nw NewWorkspace) (Workspace, error) {
	ctx, span := otel.AddSpan(ctx, "business.workspacebus.create")
	defer span.End()

	tenantID := strings.TrimSpace(nw.TenantID)
	if tenantID == "" {
		return Workspace{}, ErrTenant
	}

	now := time.Now().UTC()

	ws := Workspace{
		ID:        uuid.New(),
		TenantID:  tenantID,
		Name:      nw.Name,
		Avatar:    nw.Avatar,
		Enabled:   true,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := c.storer.Create(ctx, ws); err != nil {
		return Workspace{}, fmt.Errorf("create: %w", err)
	}

	return ws, nil
}

// Update modifies data about a workspace.
func (c *Core) Update(ctx context.Context, ws Workspace, uw UpdateWorkspace) (Workspace, error) {
	ctx, span := otel.AddSpan(ctx, "business.workspacebus.update")
	defer span.End()

	if uw.Name != nil {
		ws.Name = *uw.Name
	}

	if uw.Avatar != nil {
		ws.Avatar = *uw.Avatar
	}

	if uw.Enabled != nil {
		ws.Enabled = *uw.Enabled
	}

	ws.UpdatedAt = time.Now().UTC()

	if err := c.storer.Update(ctx, ws); err != nil {
		return Workspace{}, fmt.Errorf("update: %w", err)
	}

	return ws, nil
}

// QueryByID finds the workspace by the specified ID.
func (c *Core) QueryByID(ctx context.Context, workspaceID uuid.UUID) (Workspace, error) {
	ctx, span := otel.AddSpan(ctx, "business.workspacebus.queryByID")
	defer span.End()

	ws, err := c.storer.QueryByID(ctx, workspaceID)
	if err != nil {
		return Workspace{}, fmt.Errorf("query: workspaceID[%s]: %w", workspaceID, err)
	}

	return ws, nil
}

// QueryEnabled finds the workspace and fails with ErrDisabled when it no
// longer accepts new members.
func (c *Core) QueryEnabled(ctx context.Context, workspaceID uuid.UUID) (Workspace, error) {
	ws, err := c.QueryByID(ctx, workspaceID)
	if err != nil {
		return Workspace{}, err
	}

	if !ws.Enabled {
		return Workspace{}, fmt.Errorf("query: workspaceID[%s]: %w", workspaceID, ErrDisabled)
	}

	return ws, nil
}
