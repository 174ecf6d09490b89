// Package repairbus rebuilds missing membership state for an identity from
// its provisioning intents. Every run checks before it writes, so it can be
// repeated until it reports nothing left to fix.
package repairbus

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/phone"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jcpaschoal/crewspace/foundation/otel"
)

// Set of error variables for repair operations.
var (
	ErrMappingNotFound = errors.New("no provisioning mapping for identifier")
	ErrMappingExists   = errors.New("provisioning mapping already exists")
	ErrIdentifier      = errors.New("identifier is required")
)

// Storer defines the behavior required to read and record provisioning
// intents.
type Storer interface {
	Create(ctx context.Context, m Mapping) error
	QueryByLookupKey(ctx context.Context, lookupKey string) ([]Mapping, error)
}

// StepObserver is told about every step outcome.
type StepObserver func(step Step)

// Config holds the collaborators a repair run reads and writes through.
type Config struct {
	Log           *logger.Logger
	Storer        Storer
	WorkspaceBus  *workspacebus.Core
	IdentityBus   *identitybus.Core
	MembershipBus *membershipbus.Core
	PointerBus    *pointerbus.Core
	ClaimsBus     *claimsbus.Core
	RosterBus     *rosterbus.Core
	InvitationBus *invitationbus.Core
	AuditBus      *auditbus.Core
	Observer      StepObserver
}

// Core manages the repair service.
type Core struct {
	log           *logger.Logger
	storer        Storer
	workspaceBus  *workspacebus.Core
	identityBus   *identitybus.Core
	membershipBus *membershipbus.Core
	pointerBus    *pointerbus.Core
	claimsBus     *claimsbus.Core
	rosterBus     *rosterbus.Core
	invitationBus *invitationbus.Core
	auditBus      *auditbus.Core
	observer      StepObserver
}

// NewCore constructs a core for repair access.
func NewCore(cfg Config) *Core {
	return &Core{
		log:           cfg.Log,
		storer:        cfg.Storer,
		workspaceBus:  cfg.WorkspaceBus,
		identityBus:   cfg.IdentityBus,
		membershipBus: cfg.MembershipBus,
		pointerBus:    cfg.PointerBus,
		claimsBus:     cfg.ClaimsBus,
		rosterBus:     cfg.RosterBus,
		invitationBus: cfg.InvitationBus,
		auditBus:      cfg.AuditBus,
		observer:      cfg.Observer,
	}
}

// AddMapping records a provisioning intent for the workspace.
func (c *Core) AddMapping(ctx context.Context, nm NewMapping) (Mapping, error) {
	ctx, span := otel.AddSpan(ctx, "business.repairbus.addMapping")
	defer span.End()

	key := identitybus.NormalizeLookupKey(nm.LookupKey)
	if key == "" {
		return Mapping{}, ErrIdentifier
	}

	ws, err := c.workspaceBus.QueryByID(ctx, nm.WorkspaceID)
	if err != nil {
		return Mapping{}, fmt.Errorf("addmapping: %w", err)
	}

	contact := nm.Contact
	if contact == "" {
		contact = key
	}

	m := Mapping{
		LookupKey:   key,
		WorkspaceID: ws.ID,
		TenantID:    ws.TenantID,
		Role:        nm.Role,
		Name:        nm.Name,
		Contact:     contact,
		CreatedAt:   time.Now().UTC(),
	}

	if err := c.storer.Create(ctx, m); err != nil {
		return Mapping{}, fmt.Errorf("addmapping: key[%s] workspaceID[%s]: %w", key, ws.ID, err)
	}

	return m, nil
}

// Intents returns every provisioning intent known for the identifier: the
// recorded mappings plus, for a phone number, the accepted invitations.
func (c *Core) Intents(ctx context.Context, identifier string) ([]Mapping, error) {
	ctx, span := otel.AddSpan(ctx, "business.repairbus.intents")
	defer span.End()

	key := identitybus.NormalizeLookupKey(identifier)
	if key == "" {
		return nil, ErrIdentifier
	}

	ms, err := c.storer.QueryByLookupKey(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("intents: key[%s]: %w", key, err)
	}

	if p, err := phone.Parse(key); err == nil && c.invitationBus != nil {
		invs, err := c.invitationBus.QueryAcceptedByPhone(ctx, p)
		if err != nil {
			return nil, fmt.Errorf("intents: key[%s]: %w", key, err)
		}

		for _, inv := range invs {
			dup := slices.ContainsFunc(ms, func(m Mapping) bool {
				return m.WorkspaceID == inv.WorkspaceID
			})
			if dup {
				continue
			}

			ms = append(ms, Mapping{
				LookupKey:   key,
				WorkspaceID: inv.WorkspaceID,
				TenantID:    inv.TenantID,
				Role:        inv.Role,
				Name:        inv.Name,
				Contact:     inv.Phone.String(),
				CreatedAt:   inv.InvitedAt,
			})
		}
	}

	if len(ms) == 0 {
		return nil, fmt.Errorf("intents: key[%s]: %w", key, ErrMappingNotFound)
	}

	return ms, nil
}

// Repair walks every intent of the identifier through identity, membership,
// pointer, claims and roster. It stops at the first failing step and returns
// the report so far together with the error; nothing already written is
// undone.
func (c *Core) Repair(ctx context.Context, identifier string) (Report, error) {
	ctx, span := otel.AddSpan(ctx, "business.repairbus.repair")
	defer span.End()

	return c.repair(ctx, identifier, nil)
}

// RepairInWorkspace behaves like Repair but only touches the intents that
// target the workspace. ErrMappingNotFound is returned when the identifier
// has no intent there, whatever it holds elsewhere.
func (c *Core) RepairInWorkspace(ctx context.Context, identifier string, workspaceID uuid.UUID) (Report, error) {
	ctx, span := otel.AddSpan(ctx, "business.repairbus.repairInWorkspace")
	defer span.End()

	keep := func(m Mapping) bool {
		return m.WorkspaceID == workspaceID
	}

	return c.repair(ctx, identifier, keep)
}

func (c *Core) repair(ctx context.Context, identifier string, keep func(m Mapping) bool) (Report, error) {
	rep := Report{Identifier: identifier}

	intents, err := c.Intents(ctx, identifier)
	if err != nil {
		return rep, fmt.Errorf("repair: %w", err)
	}

	if keep != nil {
		intents = slices.DeleteFunc(intents, func(m Mapping) bool { return !keep(m) })
		if len(intents) == 0 {
			return rep, fmt.Errorf("repair: %w", ErrMappingNotFound)
		}
	}

	for _, in := range intents {
		if err := c.repairIntent(ctx, &rep, in); err != nil {
			c.log.Error(ctx, "repair step failed", "identifier", identifier, "workspaceID", in.WorkspaceID, "ERROR", err)
			return rep, fmt.Errorf("repair: key[%s] workspaceID[%s]: %w", in.LookupKey, in.WorkspaceID, err)
		}
	}

	c.log.Info(ctx, "repair complete", "identifier", identifier, "steps", len(rep.Steps), "converged", rep.Converged())

	return rep, nil
}

func (c *Core) repairIntent(ctx context.Context, rep *Report, in Mapping) error {
	rec := func(name string, uid uuid.UUID, created bool, detail string, err error) error {
		s := Step{
			Name:        name,
			WorkspaceID: in.WorkspaceID,
			UserID:      uid,
			Outcome:     OutcomeAlreadyCorrect,
			Detail:      detail,
		}

		switch {
		case err != nil:
			s.Outcome = OutcomeFailed
			s.Detail = err.Error()
		case created:
			s.Outcome = OutcomeCreated
		}

		rep.Steps = append(rep.Steps, s)
		if c.observer != nil {
			c.observer(s)
		}

		return err
	}

	// Identity.
	profile := identitybus.Profile{
		LookupKey: in.LookupKey,
		Name:      in.Name,
	}
	if p, err := phone.Parse(in.LookupKey); err == nil {
		profile.Phone = phone.FromPhone(p)
	}

	idt, created, err := c.identityBus.FindOrCreate(ctx, in.TenantID, profile)
	if err := rec(StepIdentity, idt.UID, created, "tenant "+in.TenantID, err); err != nil {
		return err
	}

	// Membership.
	created, err = c.ensureMembership(ctx, idt.UID, in)
	if err := rec(StepMembership, idt.UID, created, "role "+in.Role.String(), err); err != nil {
		return err
	}

	if created {
		c.audit(ctx, auditbus.ActionMembershipRepaired, idt.UID, in)
	}

	// Pointer.
	_, created, err = c.pointerBus.Ensure(ctx, idt.UID, in.WorkspaceID, in.TenantID)
	if err := rec(StepPointer, idt.UID, created, "", err); err != nil {
		return err
	}

	// Claims.
	sr, err := c.claimsBus.Sync(ctx, idt.UID)
	if err := rec(StepClaims, idt.UID, sr.Changed, fmt.Sprintf("version %d", sr.Version), err); err != nil {
		return err
	}

	// Roster.
	created, err = c.ensureRoster(ctx, idt.UID, in)
	if err := rec(StepRoster, idt.UID, created, "", err); err != nil {
		return err
	}

	return nil
}

// ensureMembership creates the membership when absent and leaves an existing
// one untouched, whatever its role or status.
func (c *Core) ensureMembership(ctx context.Context, uid uuid.UUID, in Mapping) (bool, error) {
	_, err := c.membershipBus.QueryByID(ctx, uid, in.WorkspaceID)
	switch {
	case err == nil:
		return false, nil

	case !errors.Is(err, membershipbus.ErrNotFound):
		return false, err
	}

	ws, err := c.workspaceBus.QueryByID(ctx, in.WorkspaceID)
	if err != nil {
		return false, err
	}

	_, err = c.membershipBus.Create(ctx, membershipbus.NewMembership{
		UserID:          uid,
		WorkspaceID:     in.WorkspaceID,
		TenantID:        in.TenantID,
		Role:            in.Role,
		Status:          memberstatus.Active,
		WorkspaceName:   ws.Name.String(),
		WorkspaceAvatar: ws.Avatar,
	})
	switch {
	case err == nil:
		return true, nil

	case errors.Is(err, membershipbus.ErrExists):
		return false, nil
	}

	return false, err
}

// ensureRoster mirrors the membership into the roster when the entry is
// missing.
func (c *Core) ensureRoster(ctx context.Context, uid uuid.UUID, in Mapping) (bool, error) {
	m, err := c.membershipBus.QueryByID(ctx, uid, in.WorkspaceID)
	if err != nil {
		return false, err
	}

	_, created, err := c.rosterBus.Ensure(ctx, rosterbus.NewEntry{
		UserID:      uid,
		WorkspaceID: in.WorkspaceID,
		TenantID:    in.TenantID,
		Name:        in.Name.String(),
		Contact:     in.Contact,
		Role:        m.Role,
		Status:      m.Status,
	})

	return created, err
}

func (c *Core) audit(ctx context.Context, action string, uid uuid.UUID, in Mapping) {
	if c.auditBus == nil {
		return
	}

	_, err := c.auditBus.Append(ctx, auditbus.NewEvent{
		WorkspaceID: auditbus.Ref(in.WorkspaceID),
		Action:      action,
		TargetID:    uid.String(),
		Metadata: map[string]any{
			"role":      in.Role.String(),
			"lookupKey": in.LookupKey,
		},
	})
	if err != nil {
		c.log.Error(ctx, "repair audit", "userID", uid, "ERROR", err)
	}
}
