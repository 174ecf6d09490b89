// Package claimsbus projects a user's memberships into the claims bundle held
// by the identity provider. It is the only writer of those claims.
package claimsbus

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jcpaschoal/crewspace/foundation/otel"
)

// SyncError reports that the claims of a user could not be brought in line
// with the memberships. The memberships themselves are durable; running the
// sync again converges.
type SyncError struct {
	UserID uuid.UUID
	Err    error
}

// Error implements the error interface.
func (e *SyncError) Error() string {
	return fmt.Sprintf("claims sync: userID[%s]: %s", e.UserID, e.Err)
}

// Unwrap provides access to the underlying failure.
func (e *SyncError) Unwrap() error {
	return e.Err
}

// IsSyncError reports whether the error chain carries a SyncError.
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}

// SyncResult describes the outcome of a sync.
type SyncResult struct {
	Claims  authclaims.Claims
	Version int
	Changed bool
}

// Core manages the set of APIs for claims projection.
type Core struct {
	log           *logger.Logger
	membershipBus *membershipbus.Core
	pointerBus    *pointerbus.Core
	identityBus   *identitybus.Core
}

// NewCore constructs a core for claims projection.
func NewCore(log *logger.Logger, membershipBus *membershipbus.Core, pointerBus *pointerbus.Core, identityBus *identitybus.Core) *Core {
	return &Core{
		log:           log,
		membershipBus: membershipBus,
		pointerBus:    pointerBus,
		identityBus:   identityBus,
	}
}

// NewWithTx constructs a new Core value whose reads and writes run inside
// the transaction.
func (c *Core) NewWithTx(tx sqldb.CommitRollbacker) (*Core, error) {
	membershipBus, err := c.membershipBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	pointerBus, err := c.pointerBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	identityBus, err := c.identityBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	return NewCore(c.log, membershipBus, pointerBus, identityBus), nil
}

// Project computes the claims the user should hold from the durable
// records. It does not write anything.
func (c *Core) Project(ctx context.Context, userID uuid.UUID) (authclaims.Claims, error) {
	ctx, span := otel.AddSpan(ctx, "business.claimsbus.project")
	defer span.End()

	ms, err := c.membershipBus.QueryActiveByUserID(ctx, userID)
	if err != nil {
		return authclaims.Claims{}, fmt.Errorf("project: %w", err)
	}

	var ptr *pointerbus.Pointer

	p, err := c.pointerBus.QueryByUserID(ctx, userID)
	switch {
	case err == nil:
		ptr = &p

	case !errors.Is(err, pointerbus.ErrNotFound):
		return authclaims.Claims{}, fmt.Errorf("project: %w", err)
	}

	return Build(userID, ms, ptr), nil
}

// syncAttempts bounds how often Sync re-projects after losing a write race.
const syncAttempts = 3

// Sync writes the projected claims to the identity provider when they differ
// from what is stored. Re-running it with no intervening change is a no-op.
// A write that lost the race to a concurrent sync is projected again from
// the durable records. Every failure is returned as a *SyncError.
func (c *Core) Sync(ctx context.Context, userID uuid.UUID) (SyncResult, error) {
	ctx, span := otel.AddSpan(ctx, "business.claimsbus.sync")
	defer span.End()

	var err error
	for attempt := 1; attempt <= syncAttempts; attempt++ {
		var res SyncResult
		res, err = c.sync(ctx, userID)
		if err == nil {
			return res, nil
		}

		if !errors.Is(err, identitybus.ErrVersionConflict) {
			break
		}

		c.log.Info(ctx, "claims sync lost race", "userID", userID, "attempt", attempt)
	}

	return SyncResult{}, &SyncError{UserID: userID, Err: err}
}

func (c *Core) sync(ctx context.Context, userID uuid.UUID) (SyncResult, error) {
	claims, err := c.Project(ctx, userID)
	if err != nil {
		return SyncResult{}, err
	}

	var expected int

	rec, err := c.identityBus.QueryClaims(ctx, userID)
	switch {
	case err == nil:
		if rec.Claims.Equal(claims) {
			return SyncResult{Claims: rec.Claims, Version: rec.Version}, nil
		}
		expected = rec.Version

	case !errors.Is(err, identitybus.ErrNotFound):
		return SyncResult{}, err
	}

	rec, err = c.identityBus.SetClaims(ctx, userID, claims, expected)
	if err != nil {
		return SyncResult{}, err
	}

	c.log.Info(ctx, "claims synced", "userID", userID, "version", rec.Version, "workspaceID", claims.WorkspaceID)

	return SyncResult{Claims: rec.Claims, Version: rec.Version, Changed: true}, nil
}

// Current returns the stored claims and their version without projecting.
func (c *Core) Current(ctx context.Context, userID uuid.UUID) (SyncResult, error) {
	ctx, span := otel.AddSpan(ctx, "business.claimsbus.current")
	defer span.End()

	rec, err := c.identityBus.QueryClaims(ctx, userID)
	if err != nil {
		return SyncResult{}, fmt.Errorf("current: %w", err)
	}

	return SyncResult{Claims: rec.Claims, Version: rec.Version}, nil
}
