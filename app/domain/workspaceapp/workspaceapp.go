package workspaceapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/app/sdk/errs"
	"github.com/jcpaschoal/crewspace/app/sdk/mid"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/domain/switchbus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
)

type app struct {
	auth          *auth.Auth
	switchBus     *switchbus.Core
	membershipBus *membershipbus.Core
	rosterBus     *rosterbus.Core
	claimsBus     *claimsbus.Core
	auditBus      *auditbus.Core
}

func newApp(cfg Config) *app {
	return &app{
		auth:          cfg.Auth,
		switchBus:     cfg.SwitchBus,
		membershipBus: cfg.MembershipBus,
		rosterBus:     cfg.RosterBus,
		claimsBus:     cfg.ClaimsBus,
		auditBus:      cfg.AuditBus,
	}
}

// newWithTx constructs a new app value with the domain apis using the
// transaction placed in the context by the transaction middleware.
func (a *app) newWithTx(ctx context.Context) (*app, error) {
	tx, err := mid.GetTran(ctx)
	if err != nil {
		return nil, err
	}

	membershipBus, err := a.membershipBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	rosterBus, err := a.rosterBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	claimsBus, err := a.claimsBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	auditBus, err := a.auditBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	app := app{
		auth:          a.auth,
		switchBus:     a.switchBus,
		membershipBus: membershipBus,
		rosterBus:     rosterBus,
		claimsBus:     claimsBus,
		auditBus:      auditBus,
	}

	return &app, nil
}

// switchWorkspace moves the caller onto another workspace it is an active
// member of. A refused switch is not an error; the response says so.
func (a *app) switchWorkspace(ctx context.Context, r *http.Request) web.Encoder {
	var app Switch
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	target, err := uuid.Parse(app.WorkspaceID)
	if err != nil {
		return errs.NewFieldErrors("workspaceId", err)
	}

	claims := mid.GetClaims(ctx)

	res, err := a.switchBus.Switch(ctx, claims.UserID, target)
	if err != nil {
		return toError(err)
	}

	if !res.Switched {
		return Switched{
			Success:      false,
			Message:      "not an active member of the workspace",
			WorkspaceID:  claims.WorkspaceID.String(),
			ClaimVersion: claims.Version,
		}
	}

	token, err := a.auth.GenerateToken(claimsbus.SyncResult{Claims: res.Claims, Version: res.Version})
	if err != nil {
		return errs.Errorf(errs.Internal, "switch: token: %s", err)
	}

	return Switched{
		Success:      true,
		Message:      "active workspace switched",
		WorkspaceID:  res.Claims.WorkspaceID.String(),
		ClaimVersion: res.Version,
		Token:        token,
	}
}

// memberships lists every workspace the caller belongs to.
func (a *app) memberships(ctx context.Context, _ *http.Request) web.Encoder {
	claims := mid.GetClaims(ctx)

	ms, err := a.membershipBus.QueryByUserID(ctx, claims.UserID)
	if err != nil {
		return toError(err)
	}

	app := make([]Membership, len(ms))
	for i, m := range ms {
		app[i] = toAppMembership(m, m.WorkspaceID == claims.WorkspaceID)
	}

	return Memberships{Success: true, Message: "memberships found", Memberships: app}
}

// roster returns a page of the active workspace roster.
func (a *app) roster(ctx context.Context, r *http.Request) web.Encoder {
	pg, err := page.Parse(r.URL.Query().Get("page"), r.URL.Query().Get("rows"))
	if err != nil {
		return errs.NewFieldErrors("page", err)
	}

	wsID := mid.GetClaims(ctx).WorkspaceID

	entries, err := a.rosterBus.QueryByWorkspace(ctx, wsID, pg)
	if err != nil {
		return toError(err)
	}

	total, err := a.rosterBus.CountByWorkspace(ctx, wsID)
	if err != nil {
		return toError(err)
	}

	return page.NewDocument(toAppRoster(entries), total, pg)
}

// updateMember changes the role or status of a member of the active
// workspace. The roster mirror and the member's claims are written in the
// same transaction.
func (a *app) updateMember(ctx context.Context, r *http.Request) web.Encoder {
	var app UpdateMember
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	userID, err := uuid.Parse(web.Param(r, "user_id"))
	if err != nil {
		return errs.NewFieldErrors("user_id", err)
	}

	um, err := toBusUpdateMembership(app)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	a, err = a.newWithTx(ctx)
	if err != nil {
		return errs.New(errs.Internal, err)
	}

	claims := mid.GetClaims(ctx)

	m, err := a.membershipBus.QueryByID(ctx, userID, claims.WorkspaceID)
	if err != nil {
		return toError(err)
	}

	m, err = a.membershipBus.Update(ctx, m, um)
	if err != nil {
		return toError(err)
	}

	e, err := a.rosterBus.QueryByID(ctx, m.UserID, m.WorkspaceID)
	switch {
	case err == nil:
		if _, err := a.rosterBus.Update(ctx, e, rosterbus.UpdateEntry{Role: &m.Role, Status: &m.Status}); err != nil {
			return toError(err)
		}

	case !errors.Is(err, rosterbus.ErrNotFound):
		return toError(err)
	}

	if _, err := a.auditBus.Append(ctx, auditbus.NewEvent{
		ActorID:     auditbus.Ref(claims.UserID),
		WorkspaceID: auditbus.Ref(m.WorkspaceID),
		Action:      auditbus.ActionMembershipUpdated,
		TargetID:    m.UserID.String(),
		Metadata: map[string]any{
			"role":   m.Role.String(),
			"status": m.Status.String(),
		},
	}); err != nil {
		return toError(err)
	}

	if _, err := a.claimsBus.Sync(ctx, m.UserID); err != nil {
		return toError(err)
	}

	return MembershipResponse{Success: true, Message: "membership updated", Membership: toAppMembership(m, false)}
}

// =============================================================================

func toError(err error) *errs.Error {
	switch {
	case errors.Is(err, membershipbus.ErrNotFound):
		return errs.New(errs.NotFound, membershipbus.ErrNotFound)

	case claimsbus.IsSyncError(err), sqldb.IsUnavailable(err):
		return errs.New(errs.Unavailable, err)
	}

	return errs.Errorf(errs.InternalOnlyLog, "%s", err)
}
