package invitationapp

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/app/sdk/errs"
	"github.com/jcpaschoal/crewspace/app/sdk/metrics"
	"github.com/jcpaschoal/crewspace/app/sdk/mid"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
	"github.com/jcpaschoal/crewspace/business/types/invitestatus"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/phone"
)

type app struct {
	auth          *auth.Auth
	invitationBus *invitationbus.Core
	identityBus   *identitybus.Core
	workspaceBus  *workspacebus.Core
}

func newApp(cfg Config) *app {
	return &app{
		auth:          cfg.Auth,
		invitationBus: cfg.InvitationBus,
		identityBus:   cfg.IdentityBus,
		workspaceBus:  cfg.WorkspaceBus,
	}
}

// generate invites a phone number into the caller's active workspace.
func (a *app) generate(ctx context.Context, r *http.Request) web.Encoder {
	var app NewInvitation
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	claims := mid.GetClaims(ctx)

	var inviterName *string
	if idt, err := a.identityBus.QueryByID(ctx, claims.UserID); err == nil {
		n := idt.Name.String()
		inviterName = &n
	}

	ni, err := toBusNewInvitation(app, claims.WorkspaceID, claims.UserID, inviterName)
	if err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	inv, err := a.invitationBus.Generate(ctx, ni)
	if err != nil {
		return toError(err)
	}

	metrics.AddInvitationTransition(inv.Status.String())

	return InvitationResponse{Success: true, Message: "invitation created", Invitation: toAppInvitation(inv)}
}

// query lists the invitations of the caller's active workspace.
func (a *app) query(ctx context.Context, r *http.Request) web.Encoder {
	qp := r.URL.Query()

	pg, err := page.Parse(qp.Get("page"), qp.Get("rows"))
	if err != nil {
		return errs.NewFieldErrors("page", err)
	}

	wsID := mid.GetClaims(ctx).WorkspaceID
	filter := invitationbus.QueryFilter{WorkspaceID: &wsID}

	if v := qp.Get("status"); v != "" {
		st, err := invitestatus.Parse(v)
		if err != nil {
			return errs.NewFieldErrors("status", err)
		}
		filter.Status = &st
	}

	if v := qp.Get("phone"); v != "" {
		p, err := phone.Parse(v)
		if err != nil {
			return errs.NewFieldErrors("phone", err)
		}
		filter.Phone = &p
	}

	invs, err := a.invitationBus.Query(ctx, filter, pg)
	if err != nil {
		return toError(err)
	}

	total, err := a.invitationBus.Count(ctx, filter)
	if err != nil {
		return toError(err)
	}

	return page.NewDocument(toAppInvitations(invs), total, pg)
}

// check tells the accept screen whether a code can still be used.
func (a *app) check(ctx context.Context, r *http.Request) web.Encoder {
	inv, err := a.invitationBus.QueryByCode(ctx, web.Param(r, "code"))
	if err != nil {
		return toError(err)
	}

	cc := CodeCheck{
		Success:     true,
		Message:     "invitation found",
		Status:      inv.Status.String(),
		Name:        inv.Name.String(),
		Role:        inv.Role.String(),
		InviterName: inv.InviterName,
		ExpiresAt:   inv.ExpiresAt.Format(time.RFC3339),
	}

	if ws, err := a.workspaceBus.QueryByID(ctx, inv.WorkspaceID); err == nil {
		cc.WorkspaceName = ws.Name.String()
	}

	return cc
}

// accept redeems a code. The identity in the invitation's tenant is found or
// created only when the code can still be redeemed by that phone; otherwise
// the engine reports why the code cannot be used.
func (a *app) accept(ctx context.Context, r *http.Request) web.Encoder {
	var app Accept
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	p, err := phone.Parse(app.Phone)
	if err != nil {
		return errs.NewFieldErrors("phone", err)
	}

	inv, err := a.invitationBus.QueryByCode(ctx, app.Code)
	if err != nil {
		return toError(err)
	}

	uid := uuid.Nil

	redeemable := inv.Status.Equal(invitestatus.Pending) || inv.Status.Equal(invitestatus.Accepted)

	if redeemable && inv.Phone.Equal(p) {
		nme := inv.Name
		if app.Name != "" {
			if n, err := name.Parse(app.Name); err == nil {
				nme = n
			}
		}

		idt, _, err := a.identityBus.FindOrCreate(ctx, inv.TenantID, identitybus.Profile{
			LookupKey: p.String(),
			Name:      nme,
			Phone:     phone.FromPhone(p),
		})
		if err != nil {
			return toError(err)
		}

		uid = idt.UID
	}

	res, err := a.invitationBus.Accept(ctx, app.Code, p, uid)
	if err != nil {
		if errors.Is(err, invitationbus.ErrExpired) {
			metrics.AddInvitationTransition(invitestatus.Expired.String())
		}
		return toError(err)
	}

	metrics.AddInvitationTransition(res.Invitation.Status.String())

	token, err := a.auth.GenerateToken(res.Claims)
	if err != nil {
		return errs.Errorf(errs.Internal, "accept: token: %s", err)
	}

	return Accepted{
		Success:      true,
		Message:      "invitation accepted",
		Token:        token,
		UserID:       uid.String(),
		WorkspaceID:  res.Membership.WorkspaceID.String(),
		Role:         res.Membership.Role.String(),
		ClaimVersion: res.Claims.Version,
		Invitation:   toAppInvitation(res.Invitation),
	}
}

// cancel withdraws a pending invitation of the caller's active workspace.
func (a *app) cancel(ctx context.Context, r *http.Request) web.Encoder {
	id, err := uuid.Parse(web.Param(r, "invitation_id"))
	if err != nil {
		return errs.NewFieldErrors("invitation_id", err)
	}

	claims := mid.GetClaims(ctx)

	inv, err := a.invitationBus.Cancel(ctx, id, claims.WorkspaceID, claims.UserID)
	if err != nil {
		return toError(err)
	}

	metrics.AddInvitationTransition(inv.Status.String())

	return InvitationResponse{Success: true, Message: "invitation cancelled", Invitation: toAppInvitation(inv)}
}

// regenerate cancels the invitation and issues a fresh code for the same
// person.
func (a *app) regenerate(ctx context.Context, r *http.Request) web.Encoder {
	id, err := uuid.Parse(web.Param(r, "invitation_id"))
	if err != nil {
		return errs.NewFieldErrors("invitation_id", err)
	}

	claims := mid.GetClaims(ctx)

	inv, err := a.invitationBus.Regenerate(ctx, id, claims.WorkspaceID, claims.UserID)
	if err != nil {
		return toError(err)
	}

	metrics.AddInvitationTransition(invitestatus.Cancelled.String())
	metrics.AddInvitationTransition(inv.Status.String())

	return InvitationResponse{Success: true, Message: "invitation regenerated", Invitation: toAppInvitation(inv)}
}

// =============================================================================

func toError(err error) *errs.Error {
	switch {
	case errors.Is(err, invitationbus.ErrNotFound):
		return errs.New(errs.NotFound, invitationbus.ErrNotFound)

	case errors.Is(err, invitationbus.ErrExpired):
		return errs.New(errs.Expired, invitationbus.ErrExpired)

	case errors.Is(err, invitationbus.ErrAlreadyTerminal):
		return errs.New(errs.FailedPrecondition, invitationbus.ErrAlreadyTerminal)

	case errors.Is(err, invitationbus.ErrInvalidState):
		return errs.New(errs.FailedPrecondition, invitationbus.ErrInvalidState)

	case errors.Is(err, invitationbus.ErrForbidden):
		return errs.New(errs.PermissionDenied, invitationbus.ErrForbidden)

	case errors.Is(err, invitationbus.ErrPendingExists):
		return errs.New(errs.AlreadyExists, invitationbus.ErrPendingExists)

	case errors.Is(err, invitationbus.ErrCodeGenerationExhausted):
		return errs.New(errs.ResourceExhausted, invitationbus.ErrCodeGenerationExhausted)

	case errors.Is(err, invitationbus.ErrValidation):
		return errs.New(errs.InvalidArgument, err)

	case errors.Is(err, workspacebus.ErrNotFound), errors.Is(err, workspacebus.ErrDisabled):
		return errs.New(errs.FailedPrecondition, err)

	case claimsbus.IsSyncError(err):
		return errs.Errorf(errs.Unavailable, "membership granted, claims sync pending: %s", err)

	case sqldb.IsUnavailable(err), errors.Is(err, identitybus.ErrProviderUnavailable):
		return errs.New(errs.Unavailable, err)
	}

	return errs.Errorf(errs.InternalOnlyLog, "%s", err)
}
