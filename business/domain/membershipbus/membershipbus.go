// Package membershipbus provides business access to workspace memberships.
package membershipbus

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/capability"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jcpaschoal/crewspace/foundation/otel"
)

// Set of error variables for CRUD operations.
var (
	ErrNotFound = errors.New("membership not found")
	ErrExists   = errors.New("membership already exists")
)

// Storer defines the behavior required by the membershipbus to interact with
// the database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, m Membership) error
	Update(ctx context.Context, m Membership) error
	QueryByID(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (Membership, error)
	QueryByUserID(ctx context.Context, userID uuid.UUID) ([]Membership, error)
	QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]Membership, error)
	CountByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error)
}

// Core manages the set of APIs for membership access.
type Core struct {
	log    *logger.Logger
	storer Storer
}

// NewCore constructs a core for membership api access.
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

// Create adds a membership. It fails with ErrExists when the user already
// belongs to the workspace; the existing row is left untouched.
func (c *Core) Create(ctx context.Context, nm NewMembership) (Membership, error) {
	ctx, span := otel.AddSpan(ctx, "business.membershipbus.create")
	defer span.End()

	now := time.Now().UTC()

	m := Membership{
		UserID:          nm.UserID,
		WorkspaceID:     nm.WorkspaceID,
		TenantID:        nm.TenantID,
		Role:            nm.Role,
		Status:          nm.Status,
		Permissions:     capability.ForRole(nm.Role),
		WorkspaceName:   nm.WorkspaceName,
		WorkspaceAvatar: nm.WorkspaceAvatar,
		JoinedAt:        now,
		UpdatedAt:       now,
	}

	if err := c.storer.Create(ctx, m); err != nil {
		return Membership{}, fmt.Errorf("create: userID[%s] workspaceID[%s]: %w", nm.UserID, nm.WorkspaceID, err)
	}

	return m, nil
}

// Grant makes the user an active member of the workspace with the given
// role, creating the membership or updating the existing one. The boolean
// reports whether a new row was created.
func (c *Core) Grant(ctx context.Context, nm NewMembership) (Membership, bool, error) {
	ctx, span := otel.AddSpan(ctx, "business.membershipbus.grant")
	defer span.End()

	nm.Status = memberstatus.Active

	m, err := c.storer.QueryByID(ctx, nm.UserID, nm.WorkspaceID)
	switch {
	case errors.Is(err, ErrNotFound):
		m, err := c.Create(ctx, nm)
		if err != nil {
			return Membership{}, false, fmt.Errorf("grant: %w", err)
		}
		return m, true, nil

	case err != nil:
		return Membership{}, false, fmt.Errorf("grant: query: userID[%s] workspaceID[%s]: %w", nm.UserID, nm.WorkspaceID, err)
	}

	if m.Role.Equal(nm.Role) && m.Status.Equal(memberstatus.Active) {
		return m, false, nil
	}

	m.Role = nm.Role
	m.Status = memberstatus.Active
	m.Permissions = capability.ForRole(nm.Role)
	m.UpdatedAt = time.Now().UTC()

	if err := c.storer.Update(ctx, m); err != nil {
		return Membership{}, false, fmt.Errorf("grant: update: userID[%s] workspaceID[%s]: %w", nm.UserID, nm.WorkspaceID, err)
	}

	return m, false, nil
}

// Update modifies the role or status of a membership.
func (c *Core) Update(ctx context.Context, m Membership, um UpdateMembership) (Membership, error) {
	ctx, span := otel.AddSpan(ctx, "business.membershipbus.update")
	defer span.End()

	if um.Role != nil {
		m.Role = *um.Role
		m.Permissions = capability.ForRole(m.Role)
	}

	if um.Status != nil {
		m.Status = *um.Status
	}

	m.UpdatedAt = time.Now().UTC()

	if err := c.storer.Update(ctx, m); err != nil {
		return Membership{}, fmt.Errorf("update: userID[%s] workspaceID[%s]: %w", m.UserID, m.WorkspaceID, err)
	}

	return m, nil
}

// QueryByID finds the membership of the user in the workspace.
func (c *Core) QueryByID(ctx context.Context, userID uuid.UUID, workspaceID uuid.UUID) (Membership, error) {
	ctx, span := otel.AddSpan(ctx, "business.membershipbus.queryByID")
	defer span.End()

	m, err := c.storer.QueryByID(ctx, userID, workspaceID)
	if err != nil {
		return Membership{}, fmt.Errorf("query: userID[%s] workspaceID[%s]: %w", userID, workspaceID, err)
	}

	return m, nil
}

// QueryByUserID returns every membership the user holds, in any status.
func (c *Core) QueryByUserID(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	ctx, span := otel.AddSpan(ctx, "business.membershipbus.queryByUserID")
	defer span.End()

	ms, err := c.storer.QueryByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("query: userID[%s]: %w", userID, err)
	}

	return ms, nil
}

// QueryActiveByUserID returns the memberships eligible for claims.
func (c *Core) QueryActiveByUserID(ctx context.Context, userID uuid.UUID) ([]Membership, error) {
	ms, err := c.QueryByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	active := make([]Membership, 0, len(ms))
	for _, m := range ms {
		if m.Status.Equal(memberstatus.Active) {
			active = append(active, m)
		}
	}

	return active, nil
}

// QueryByWorkspace returns a page of the workspace's memberships.
func (c *Core) QueryByWorkspace(ctx context.Context, workspaceID uuid.UUID, pg page.Page) ([]Membership, error) {
	ctx, span := otel.AddSpan(ctx, "business.membershipbus.queryByWorkspace")
	defer span.End()

	ms, err := c.storer.QueryByWorkspace(ctx, workspaceID, pg)
	if err != nil {
		return nil, fmt.Errorf("query: workspaceID[%s]: %w", workspaceID, err)
	}

	return ms, nil
}

// CountByWorkspace returns the number of memberships in the workspace.
func (c *Core) CountByWorkspace(ctx context.Context, workspaceID uuid.UUID) (int, error) {
	ctx, span := otel.AddSpan(ctx, "business.membershipbus.countByWorkspace")
	defer span.End()

	return c.storer.CountByWorkspace(ctx, workspaceID)
}
