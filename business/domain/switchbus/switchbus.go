// Package switchbus changes which of a user's workspaces is active.
package switchbus

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/types/authclaims"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jcpaschoal/crewspace/foundation/otel"
)

// Result describes the outcome of a switch. When Switched is false nothing
// was written.
type Result struct {
	Switched bool
	Claims   authclaims.Claims
	Version  int
}

// Core manages the workspace switch protocol.
type Core struct {
	log           *logger.Logger
	membershipBus *membershipbus.Core
	pointerBus    *pointerbus.Core
	claimsBus     *claimsbus.Core
	auditBus      *auditbus.Core
}

// NewCore constructs a core for workspace switching.
func NewCore(log *logger.Logger, membershipBus *membershipbus.Core, pointerBus *pointerbus.Core, claimsBus *claimsbus.Core, auditBus *auditbus.Core) *Core {
	return &Core{
		log:           log,
		membershipBus: membershipBus,
		pointerBus:    pointerBus,
		claimsBus:     claimsBus,
		auditBus:      auditBus,
	}
}

// Switch points the user at the target workspace and resyncs the claims. A
// target that is not one of the user's active memberships is refused with
// Switched false and no error. Concurrent switches are last write wins.
func (c *Core) Switch(ctx context.Context, userID uuid.UUID, targetWorkspaceID uuid.UUID) (Result, error) {
	ctx, span := otel.AddSpan(ctx, "business.switchbus.switch")
	defer span.End()

	ms, err := c.membershipBus.QueryActiveByUserID(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("switch: userID[%s]: %w", userID, err)
	}

	var target membershipbus.Membership
	var found bool
	for _, m := range ms {
		if m.WorkspaceID == targetWorkspaceID {
			target = m
			found = true
			break
		}
	}

	if !found {
		c.log.Info(ctx, "switch refused", "userID", userID, "workspaceID", targetWorkspaceID)
		return Result{}, nil
	}

	ptr, err := c.pointerBus.Set(ctx, userID, target.WorkspaceID, target.TenantID)
	if err != nil {
		return Result{}, fmt.Errorf("switch: userID[%s]: %w", userID, err)
	}

	if _, err := c.auditBus.Append(ctx, auditbus.NewEvent{
		ActorID:     auditbus.Ref(userID),
		WorkspaceID: auditbus.Ref(target.WorkspaceID),
		Action:      auditbus.ActionWorkspaceSwitched,
		TargetID:    userID.String(),
		Metadata: map[string]any{
			"tenantId": target.TenantID,
		},
	}); err != nil {
		c.log.Error(ctx, "switch audit", "userID", userID, "ERROR", err)
	}

	sr, err := c.claimsBus.Sync(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("switch: userID[%s]: %w", userID, err)
	}

	c.log.Info(ctx, "workspace switched", "userID", userID, "workspaceID", ptr.ActiveWorkspaceID, "version", sr.Version)

	return Result{Switched: true, Claims: sr.Claims, Version: sr.Version}, nil
}

// SwitchActiveWorkspace is Switch reduced to whether the pointer moved.
func (c *Core) SwitchActiveWorkspace(ctx context.Context, userID uuid.UUID, targetWorkspaceID uuid.UUID) (bool, error) {
	res, err := c.Switch(ctx, userID, targetWorkspaceID)
	if err != nil {
		return false, err
	}

	return res.Switched, nil
}
