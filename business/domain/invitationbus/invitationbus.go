// Package invitationbus provides the invitation protocol: generating codes,
// accepting them into a membership, cancelling and regenerating them.
package invitationbus

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/types/invitestatus"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/phone"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jcpaschoal/crewspace/foundation/otel"
)

// Set of error variables for invitation operations.
var (
	ErrNotFound                = errors.New("invitation not found")
	ErrAlreadyTerminal         = errors.New("invitation is no longer pending")
	ErrExpired                 = errors.New("invitation expired")
	ErrForbidden               = errors.New("invitation does not belong to the requester")
	ErrInvalidState            = errors.New("invitation is not in a state that allows this action")
	ErrPendingExists           = errors.New("a pending invitation already exists for this phone in the workspace")
	ErrCodeGenerationExhausted = errors.New("unable to generate a unique invitation code")
	ErrCodeTaken               = errors.New("invitation code already in use")
	ErrValidation              = errors.New("invalid invitation")
)

const (
	// Validity is how long a code can be accepted after it was generated.
	Validity = 7 * 24 * time.Hour

	maxCodeAttempts = 5
)

// Storer defines the behavior required by the invitationbus to interact with
// the database.
type Storer interface {
	NewWithTx(tx sqldb.CommitRollbacker) (Storer, error)
	Create(ctx context.Context, inv Invitation) error
	Transition(ctx context.Context, inv Invitation, from invitestatus.Status) error
	QueryByID(ctx context.Context, invitationID uuid.UUID) (Invitation, error)
	QueryByCode(ctx context.Context, code string) (Invitation, error)
	PendingCodeExists(ctx context.Context, code string) (bool, error)
	QueryPending(ctx context.Context, workspaceID uuid.UUID, p phone.Phone) ([]Invitation, error)
	QueryAcceptedByPhone(ctx context.Context, p phone.Phone) ([]Invitation, error)
	Query(ctx context.Context, filter QueryFilter, pg page.Page) ([]Invitation, error)
	Count(ctx context.Context, filter QueryFilter) (int, error)
}

// Notifier hands a fresh invitation to whatever delivers it to the invitee.
type Notifier interface {
	Notify(ctx context.Context, n Notice) error
}

// Config holds the collaborators the invitation protocol writes through.
type Config struct {
	Log           *logger.Logger
	Storer        Storer
	Beginner      sqldb.Beginner
	WorkspaceBus  *workspacebus.Core
	MembershipBus *membershipbus.Core
	PointerBus    *pointerbus.Core
	RosterBus     *rosterbus.Core
	AuditBus      *auditbus.Core
	ClaimsBus     *claimsbus.Core
	Notifier      Notifier
}

// Option customizes a Core.
type Option func(c *Core)

// WithClock replaces the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Core) {
		c.now = now
	}
}

// WithCodeGenerator replaces the random code source.
func WithCodeGenerator(fn func() (string, error)) Option {
	return func(c *Core) {
		c.genCode = fn
	}
}

// Core manages the set of APIs for invitation access.
type Core struct {
	log           *logger.Logger
	storer        Storer
	beginner      sqldb.Beginner
	workspaceBus  *workspacebus.Core
	membershipBus *membershipbus.Core
	pointerBus    *pointerbus.Core
	rosterBus     *rosterbus.Core
	auditBus      *auditbus.Core
	claimsBus     *claimsbus.Core
	notifier      Notifier
	now           func() time.Time
	genCode       func() (string, error)
	txBound       bool
}

// NewCore constructs a core for invitation api access.
func NewCore(cfg Config, opts ...Option) *Core {
	c := Core{
		log:           cfg.Log,
		storer:        cfg.Storer,
		beginner:      cfg.Beginner,
		workspaceBus:  cfg.WorkspaceBus,
		membershipBus: cfg.MembershipBus,
		pointerBus:    cfg.PointerBus,
		rosterBus:     cfg.RosterBus,
		auditBus:      cfg.AuditBus,
		claimsBus:     cfg.ClaimsBus,
		notifier:      cfg.Notifier,
		now:           func() time.Time { return time.Now().UTC() },
		genCode:       GenerateCode,
	}

	for _, opt := range opts {
		opt(&c)
	}

	return &c
}

// NewWithTx constructs a new Core value replacing the Storer and every
// delegate with values bound to the transaction.
func (c *Core) NewWithTx(tx sqldb.CommitRollbacker) (*Core, error) {
	storer, err := c.storer.NewWithTx(tx)
	if err != nil {
		return nil, fmt.Errorf("newWithTx: %w", err)
	}

	workspaceBus, err := c.workspaceBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	membershipBus, err := c.membershipBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	pointerBus, err := c.pointerBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	rosterBus, err := c.rosterBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	auditBus, err := c.auditBus.NewWithTx(tx)
	if err != nil {
		return nil, err
	}

	txc := *c
	txc.storer = storer
	txc.workspaceBus = workspaceBus
	txc.membershipBus = membershipBus
	txc.pointerBus = pointerBus
	txc.rosterBus = rosterBus
	txc.auditBus = auditBus
	txc.txBound = true

	return &txc, nil
}

// Generate creates a pending invitation for the phone in the workspace and
// hands it to the notifier.
func (c *Core) Generate(ctx context.Context, ni NewInvitation) (Invitation, error) {
	ctx, span := otel.AddSpan(ctx, "business.invitationbus.generate")
	defer span.End()

	inv, ws, err := c.generate(ctx, ni)
	if err != nil {
		return Invitation{}, err
	}

	c.notify(ctx, inv, ws)

	return inv, nil
}

func (c *Core) generate(ctx context.Context, ni NewInvitation) (Invitation, workspacebus.Workspace, error) {
	if ni.Phone.IsZero() {
		return Invitation{}, workspacebus.Workspace{}, fmt.Errorf("generate: phone is required: %w", ErrValidation)
	}

	if ni.Role.IsZero() {
		return Invitation{}, workspacebus.Workspace{}, fmt.Errorf("generate: role is required: %w", ErrValidation)
	}

	ws, err := c.workspaceBus.QueryEnabled(ctx, ni.WorkspaceID)
	if err != nil {
		return Invitation{}, workspacebus.Workspace{}, fmt.Errorf("generate: %w", err)
	}

	now := c.now()

	pending, err := c.storer.QueryPending(ctx, ni.WorkspaceID, ni.Phone)
	if err != nil {
		return Invitation{}, workspacebus.Workspace{}, fmt.Errorf("generate: query pending: %w", err)
	}

	for _, p := range pending {
		if !p.PastDue(now) {
			return Invitation{}, workspacebus.Workspace{}, fmt.Errorf("generate: invitationID[%s]: %w", p.ID, ErrPendingExists)
		}

		if _, err := c.expire(ctx, p, now); err != nil {
			return Invitation{}, workspacebus.Workspace{}, fmt.Errorf("generate: %w", err)
		}
	}

	for attempt := 1; attempt <= maxCodeAttempts; attempt++ {
		code, err := c.genCode()
		if err != nil {
			return Invitation{}, workspacebus.Workspace{}, fmt.Errorf("generate: %w", err)
		}

		exists, err := c.storer.PendingCodeExists(ctx, code)
		if err != nil {
			return Invitation{}, workspacebus.Workspace{}, fmt.Errorf("generate: code exists: %w", err)
		}

		if exists {
			c.log.Info(ctx, "invitation code collision", "attempt", attempt)
			continue
		}

		inv := Invitation{
			ID:          uuid.New(),
			Code:        code,
			Phone:       ni.Phone,
			Name:        ni.Name,
			WorkspaceID: ws.ID,
			TenantID:    ws.TenantID,
			Role:        ni.Role,
			InvitedBy:   ni.InvitedBy,
			InviterName: ni.InviterName,
			InvitedAt:   now,
			ExpiresAt:   now.Add(Validity),
			Status:      invitestatus.Pending,
			UpdatedAt:   now,
		}

		if err := c.storer.Create(ctx, inv); err != nil {
			if errors.Is(err, ErrCodeTaken) {
				c.log.Info(ctx, "invitation code collision", "attempt", attempt)
				continue
			}
			return Invitation{}, workspacebus.Workspace{}, fmt.Errorf("generate: create: %w", err)
		}

		c.audit(ctx, auditbus.NewEvent{
			ActorID:     auditbus.Ref(inv.InvitedBy),
			WorkspaceID: auditbus.Ref(inv.WorkspaceID),
			Action:      auditbus.ActionInvitationGenerated,
			TargetID:    inv.ID.String(),
			Metadata: map[string]any{
				"role":      inv.Role.String(),
				"expiresAt": inv.ExpiresAt,
			},
		})

		return inv, ws, nil
	}

	return Invitation{}, workspacebus.Workspace{}, fmt.Errorf("generate: attempts[%d]: %w", maxCodeAttempts, ErrCodeGenerationExhausted)
}

// Accept redeems the code for the identity. The invitation transition, the
// membership grant, the pointer and the roster entry are written in one
// transaction; the claims are synced after it commits. A sync failure is
// returned as a *claimsbus.SyncError alongside the committed result.
//
// Accepting an already accepted code again with the same identity re-derives
// the membership and succeeds.
func (c *Core) Accept(ctx context.Context, code string, p phone.Phone, identityUID uuid.UUID) (AcceptResult, error) {
	ctx, span := otel.AddSpan(ctx, "business.invitationbus.accept")
	defer span.End()

	code = NormalizeCode(code)
	if !ValidCode(code) {
		return AcceptResult{}, fmt.Errorf("accept: code[%s]: %w", code, ErrNotFound)
	}

	inv, err := c.storer.QueryByCode(ctx, code)
	if err != nil {
		return AcceptResult{}, fmt.Errorf("accept: code[%s]: %w", code, err)
	}

	if inv.Status.Equal(invitestatus.Accepted) {
		if inv.AcceptedBy == nil || *inv.AcceptedBy != identityUID || !inv.Phone.Equal(p) {
			return AcceptResult{}, fmt.Errorf("accept: code[%s]: %w", code, ErrAlreadyTerminal)
		}
		return c.rederive(ctx, inv)
	}

	if inv.Status.Equal(invitestatus.Expired) {
		return AcceptResult{}, fmt.Errorf("accept: code[%s]: %w", code, ErrExpired)
	}

	if inv.Status.IsTerminal() {
		return AcceptResult{}, fmt.Errorf("accept: code[%s] status[%s]: %w", code, inv.Status, ErrAlreadyTerminal)
	}

	now := c.now()

	if inv.PastDue(now) {
		if _, err := c.expire(ctx, inv, now); err != nil {
			return AcceptResult{}, fmt.Errorf("accept: %w", err)
		}
		return AcceptResult{}, fmt.Errorf("accept: code[%s]: %w", code, ErrExpired)
	}

	if !inv.Phone.Equal(p) {
		return AcceptResult{}, fmt.Errorf("accept: code[%s]: %w", code, ErrForbidden)
	}

	var res AcceptResult

	err = c.withTx(ctx, func(txc *Core) error {
		inv.Status = invitestatus.Accepted
		inv.AcceptedAt = &now
		inv.AcceptedBy = &identityUID
		inv.UpdatedAt = now

		if err := txc.storer.Transition(ctx, inv, invitestatus.Pending); err != nil {
			return fmt.Errorf("transition: %w", err)
		}

		m, err := txc.grant(ctx, inv, identityUID)
		if err != nil {
			return err
		}

		if _, err := txc.auditBus.Append(ctx, auditbus.NewEvent{
			ActorID:     auditbus.Ref(identityUID),
			WorkspaceID: auditbus.Ref(inv.WorkspaceID),
			Action:      auditbus.ActionInvitationAccepted,
			TargetID:    inv.ID.String(),
			Metadata: map[string]any{
				"role": inv.Role.String(),
			},
		}); err != nil {
			return err
		}

		res = AcceptResult{Invitation: inv, Membership: m}
		return nil
	})
	if err != nil {
		return AcceptResult{}, fmt.Errorf("accept: code[%s]: %w", code, err)
	}

	res.Claims, err = c.claimsBus.Sync(ctx, identityUID)
	if err != nil {
		return res, fmt.Errorf("accept: code[%s]: %w", code, err)
	}

	return res, nil
}

// rederive rebuilds what an accepted invitation implies, for retries after a
// partial failure.
func (c *Core) rederive(ctx context.Context, inv Invitation) (AcceptResult, error) {
	uid := *inv.AcceptedBy

	var res AcceptResult

	m, err := c.membershipBus.QueryByID(ctx, uid, inv.WorkspaceID)
	switch {
	case err == nil:
		res = AcceptResult{Invitation: inv, Membership: m}

	case errors.Is(err, membershipbus.ErrNotFound):
		err := c.withTx(ctx, func(txc *Core) error {
			m, err := txc.grant(ctx, inv, uid)
			if err != nil {
				return err
			}
			res = AcceptResult{Invitation: inv, Membership: m}
			return nil
		})
		if err != nil {
			return AcceptResult{}, fmt.Errorf("rederive: code[%s]: %w", inv.Code, err)
		}

	default:
		return AcceptResult{}, fmt.Errorf("rederive: code[%s]: %w", inv.Code, err)
	}

	res.Claims, err = c.claimsBus.Sync(ctx, uid)
	if err != nil {
		return res, fmt.Errorf("rederive: code[%s]: %w", inv.Code, err)
	}

	return res, nil
}

// grant writes the membership and the records derived from it.
func (c *Core) grant(ctx context.Context, inv Invitation, uid uuid.UUID) (membershipbus.Membership, error) {
	ws, err := c.workspaceBus.QueryByID(ctx, inv.WorkspaceID)
	if err != nil {
		return membershipbus.Membership{}, fmt.Errorf("grant: %w", err)
	}

	m, _, err := c.membershipBus.Grant(ctx, membershipbus.NewMembership{
		UserID:          uid,
		WorkspaceID:     inv.WorkspaceID,
		TenantID:        inv.TenantID,
		Role:            inv.Role,
		WorkspaceName:   ws.Name.String(),
		WorkspaceAvatar: ws.Avatar,
	})
	if err != nil {
		return membershipbus.Membership{}, err
	}

	if _, _, err := c.pointerBus.Ensure(ctx, uid, inv.WorkspaceID, inv.TenantID); err != nil {
		return membershipbus.Membership{}, err
	}

	if _, _, err := c.rosterBus.Ensure(ctx, rosterbus.NewEntry{
		UserID:      uid,
		WorkspaceID: inv.WorkspaceID,
		TenantID:    inv.TenantID,
		Name:        inv.Name.String(),
		Contact:     inv.Phone.String(),
		Role:        m.Role,
		Status:      memberstatus.Active,
	}); err != nil {
		return membershipbus.Membership{}, err
	}

	return m, nil
}

// Cancel withdraws a pending invitation. A pending invitation past its expiry
// that was never read can still be cancelled.
func (c *Core) Cancel(ctx context.Context, invitationID uuid.UUID, requesterWorkspaceID uuid.UUID, actorID uuid.UUID) (Invitation, error) {
	ctx, span := otel.AddSpan(ctx, "business.invitationbus.cancel")
	defer span.End()

	inv, err := c.cancel(ctx, invitationID, requesterWorkspaceID, actorID)
	if err != nil {
		return Invitation{}, err
	}

	return inv, nil
}

func (c *Core) cancel(ctx context.Context, invitationID uuid.UUID, requesterWorkspaceID uuid.UUID, actorID uuid.UUID) (Invitation, error) {
	inv, err := c.storer.QueryByID(ctx, invitationID)
	if err != nil {
		return Invitation{}, fmt.Errorf("cancel: invitationID[%s]: %w", invitationID, err)
	}

	if inv.WorkspaceID != requesterWorkspaceID {
		return Invitation{}, fmt.Errorf("cancel: invitationID[%s]: %w", invitationID, ErrForbidden)
	}

	if !inv.Status.Equal(invitestatus.Pending) {
		return Invitation{}, fmt.Errorf("cancel: invitationID[%s] status[%s]: %w", invitationID, inv.Status, ErrInvalidState)
	}

	inv.Status = invitestatus.Cancelled
	inv.UpdatedAt = c.now()

	if err := c.storer.Transition(ctx, inv, invitestatus.Pending); err != nil {
		if errors.Is(err, ErrAlreadyTerminal) {
			return Invitation{}, fmt.Errorf("cancel: invitationID[%s]: %w", invitationID, ErrInvalidState)
		}
		return Invitation{}, fmt.Errorf("cancel: invitationID[%s]: %w", invitationID, err)
	}

	c.audit(ctx, auditbus.NewEvent{
		ActorID:     auditbus.Ref(actorID),
		WorkspaceID: auditbus.Ref(inv.WorkspaceID),
		Action:      auditbus.ActionInvitationCancelled,
		TargetID:    inv.ID.String(),
	})

	return inv, nil
}

// Regenerate cancels a pending invitation and issues a fresh code for the
// same invitee, both in one transaction.
func (c *Core) Regenerate(ctx context.Context, invitationID uuid.UUID, requesterWorkspaceID uuid.UUID, actorID uuid.UUID) (Invitation, error) {
	ctx, span := otel.AddSpan(ctx, "business.invitationbus.regenerate")
	defer span.End()

	var inv Invitation
	var ws workspacebus.Workspace

	err := c.withTx(ctx, func(txc *Core) error {
		old, err := txc.cancel(ctx, invitationID, requesterWorkspaceID, actorID)
		if err != nil {
			return err
		}

		inv, ws, err = txc.generate(ctx, NewInvitation{
			Phone:       old.Phone,
			Name:        old.Name,
			WorkspaceID: old.WorkspaceID,
			Role:        old.Role,
			InvitedBy:   actorID,
			InviterName: old.InviterName,
		})
		if err != nil {
			return err
		}

		txc.audit(ctx, auditbus.NewEvent{
			ActorID:     auditbus.Ref(actorID),
			WorkspaceID: auditbus.Ref(inv.WorkspaceID),
			Action:      auditbus.ActionInvitationRegenerated,
			TargetID:    inv.ID.String(),
			Metadata: map[string]any{
				"previousInvitationId": old.ID.String(),
			},
		})

		return nil
	})
	if err != nil {
		return Invitation{}, fmt.Errorf("regenerate: %w", err)
	}

	c.notify(ctx, inv, ws)

	return inv, nil
}

// QueryByID finds the invitation by its id.
func (c *Core) QueryByID(ctx context.Context, invitationID uuid.UUID) (Invitation, error) {
	ctx, span := otel.AddSpan(ctx, "business.invitationbus.queryByID")
	defer span.End()

	inv, err := c.storer.QueryByID(ctx, invitationID)
	if err != nil {
		return Invitation{}, fmt.Errorf("query: invitationID[%s]: %w", invitationID, err)
	}

	return c.lazyExpire(ctx, inv), nil
}

// QueryByCode finds the most recent invitation carrying the code.
func (c *Core) QueryByCode(ctx context.Context, code string) (Invitation, error) {
	ctx, span := otel.AddSpan(ctx, "business.invitationbus.queryByCode")
	defer span.End()

	code = NormalizeCode(code)
	if !ValidCode(code) {
		return Invitation{}, fmt.Errorf("query: code[%s]: %w", code, ErrNotFound)
	}

	inv, err := c.storer.QueryByCode(ctx, code)
	if err != nil {
		return Invitation{}, fmt.Errorf("query: code[%s]: %w", code, err)
	}

	return c.lazyExpire(ctx, inv), nil
}

// QueryAcceptedByPhone returns the accepted invitations for the phone.
func (c *Core) QueryAcceptedByPhone(ctx context.Context, p phone.Phone) ([]Invitation, error) {
	ctx, span := otel.AddSpan(ctx, "business.invitationbus.queryAcceptedByPhone")
	defer span.End()

	invs, err := c.storer.QueryAcceptedByPhone(ctx, p)
	if err != nil {
		return nil, fmt.Errorf("query: phone[%s]: %w", p, err)
	}

	return invs, nil
}

// Query retrieves a page of invitations.
func (c *Core) Query(ctx context.Context, filter QueryFilter, pg page.Page) ([]Invitation, error) {
	ctx, span := otel.AddSpan(ctx, "business.invitationbus.query")
	defer span.End()

	invs, err := c.storer.Query(ctx, filter, pg)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}

	for i := range invs {
		invs[i] = c.lazyExpire(ctx, invs[i])
	}

	return invs, nil
}

// Count returns the number of invitations matching the filter.
func (c *Core) Count(ctx context.Context, filter QueryFilter) (int, error) {
	ctx, span := otel.AddSpan(ctx, "business.invitationbus.count")
	defer span.End()

	return c.storer.Count(ctx, filter)
}

// =============================================================================

// expire moves a past due pending invitation to expired. Losing the race to
// another transition is not an error.
func (c *Core) expire(ctx context.Context, inv Invitation, now time.Time) (Invitation, error) {
	inv.Status = invitestatus.Expired
	inv.UpdatedAt = now

	if err := c.storer.Transition(ctx, inv, invitestatus.Pending); err != nil {
		if errors.Is(err, ErrAlreadyTerminal) {
			return c.storer.QueryByID(ctx, inv.ID)
		}
		return Invitation{}, fmt.Errorf("expire: invitationID[%s]: %w", inv.ID, err)
	}

	c.audit(ctx, auditbus.NewEvent{
		WorkspaceID: auditbus.Ref(inv.WorkspaceID),
		Action:      auditbus.ActionInvitationExpired,
		TargetID:    inv.ID.String(),
	})

	return inv, nil
}

// lazyExpire applies expiry on read. A failed write leaves the stored row
// pending but the caller still sees it as expired.
func (c *Core) lazyExpire(ctx context.Context, inv Invitation) Invitation {
	now := c.now()

	if !inv.Status.Equal(invitestatus.Pending) || !inv.PastDue(now) {
		return inv
	}

	expired, err := c.expire(ctx, inv, now)
	if err != nil {
		c.log.Error(ctx, "invitation lazy expiry", "invitationID", inv.ID, "ERROR", err)
		inv.Status = invitestatus.Expired
		return inv
	}

	return expired
}

func (c *Core) audit(ctx context.Context, ne auditbus.NewEvent) {
	if _, err := c.auditBus.Append(ctx, ne); err != nil {
		c.log.Error(ctx, "invitation audit", "action", ne.Action, "target", ne.TargetID, "ERROR", err)
	}
}

func (c *Core) notify(ctx context.Context, inv Invitation, ws workspacebus.Workspace) {
	if c.notifier == nil {
		return
	}

	n := Notice{
		InvitationID:  inv.ID,
		Code:          inv.Code,
		Phone:         inv.Phone,
		InviteeName:   inv.Name,
		WorkspaceName: ws.Name.String(),
		Role:          inv.Role,
		ExpiresAt:     inv.ExpiresAt,
		InviterName:   inv.InviterName,
	}

	if err := c.notifier.Notify(ctx, n); err != nil {
		c.log.Warn(ctx, "invitation notify", "invitationID", inv.ID, "ERROR", err)
	}
}

// withTx runs fn against a transaction bound core. A core that is already
// bound runs fn directly and leaves commit to its owner.
func (c *Core) withTx(ctx context.Context, fn func(txc *Core) error) error {
	if c.txBound {
		return fn(c)
	}

	if c.beginner == nil {
		return errors.New("invitationbus: no transaction beginner configured")
	}

	tx, err := c.beginner.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	defer func() {
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			c.log.Error(ctx, "invitation rollback", "ERROR", err)
		}
	}()

	txc, err := c.NewWithTx(tx)
	if err != nil {
		return err
	}

	if err := fn(txc); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}

	return nil
}
