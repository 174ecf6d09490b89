// Package auditbus provides the append only audit trail.
package auditbus

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

// ErrAction is returned when an event carries no action.
var ErrAction = errors.New("audit action is required")

// Storer defines the behavior required by the auditbus to interact with the
// database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, e Event) error
	QueryByTarget(ctx context.Context, targetID string) ([]Event, error)
	QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]Event, error)
}

// Core manages the set of APIs for audit access.
type Core struct {
	log    *logger.Logger
	storer Storer
}

// NewCore constructs a core for audit api access.
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

// Append records an event on the trail.
func (c *Core) Append(ctx context.Context, ne NewEvent) (Event, error) {
	ctx, span := otel.AddSpan(ctx, "business.auditbus.append")
	defer span.End()

	if ne.Action == "" {
		return Event{}, ErrAction
	}

	md := ne.Metadata
	if md == nil {
		md = map[string]any{}
	}

	e := Event{
		ID:          uuid.New(),
		ActorID:     ne.ActorID,
		WorkspaceID: ne.WorkspaceID,
		Action:      ne.Action,
		TargetID:    ne.TargetID,
		Metadata:    md,
		CreatedAt:   time.Now().UTC(),
	}

	if err := c.storer.Create(ctx, e); err != nil {
		return Event{}, fmt.Errorf("append: action[%s] target[%s]: %w", ne.Action, ne.TargetID, err)
	}

	return e, nil
}

// QueryByTarget returns the history of one record, oldest first.
func (c *Core) QueryByTarget(ctx context.Context, targetID string) ([]Event, error) {
	ctx, span := otel.AddSpan(ctx, "business.auditbus.queryByTarget")
	defer span.End()

	es, err := c.storer.QueryByTarget(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("query: target[%s]: %w", targetID, err)
	}

	return es, nil
}

// QueryByWorkspace returns a page of the workspace's events.
func (c *Core) QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]Event, error) {
	ctx, span := otel.AddSpan(ctx, "business.auditbus.queryByWorkspace")
	defer span.End()

	es, err := c.storer.QueryByWorkspace(ctx, workspaceID, pg)
	if err != nil {
		return nil, fmt.Errorf("query: workspaceID[%s]: %w", workspaceID, err)
	}

	return es, nil
}

// =============================================================================

// Ref returns a pointer to a copy of the id, for optional event fields.
func Ref(id uuid.UUID) *uuid.UUID {
	return &id
}
