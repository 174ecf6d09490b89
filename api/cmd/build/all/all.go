// Package all binds every route group of the service.
package all

import (
	"time"

	"github.com/jcpaschoal/crewspace/app/domain/authapp"
	"github.com/jcpaschoal/crewspace/app/domain/checkapp"
	"github.com/jcpaschoal/crewspace/app/domain/invitationapp"
	"github.com/jcpaschoal/crewspace/app/domain/repairapp"
	"github.com/jcpaschoal/crewspace/app/domain/workspaceapp"
	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/app/sdk/metrics"
	"github.com/jcpaschoal/crewspace/app/sdk/mux"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus/stores/auditdb"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus/stores/identitycache"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus/stores/identitydb"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus/stores/invitationdb"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus/stores/membershipdb"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus"
	"github.com/jcpaschoal/crewspace/business/domain/pointerbus/stores/pointerdb"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus/stores/mappingdb"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus/stores/rosterdb"
	"github.com/jcpaschoal/crewspace/business/domain/switchbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus/stores/workspacecache"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus/stores/workspacedb"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
	"github.com/jcpaschoal/crewspace/foundation/logger"
	"github.com/jmoiron/sqlx"
)

// Routes constructs the add value which provides the implementation of
// of RouteAdder for specifying what routes to bind to this instance.
func Routes() add {
	return add{}
}

type add struct{}

// Add implements the RouteAdder interface.
func (add) Add(app *web.App, cfg mux.Config) {
	bus := NewBusDomain(cfg.Log, cfg.DB, cfg.Notifier, cfg.CacheTTL)

	authClient := auth.New(auth.Config{
		Log:       cfg.Log,
		ClaimsBus: bus.Claims,
		KeyLookup: cfg.AuthConfig.KeyLookup,
		Issuer:    cfg.AuthConfig.Issuer,
		ActiveKID: cfg.AuthConfig.ActiveKID,
		TTL:       cfg.AuthConfig.TTL,
	})

	checkapp.Routes(app, checkapp.Config{
		Build: cfg.Build,
		Log:   cfg.Log,
		DB:    cfg.DB,
	})

	Bind(app, BindConfig{
		Log:      cfg.Log,
		Auth:     authClient,
		Beginner: sqldb.NewBeginner(cfg.DB),
		Bus:      bus,
	})
}

// BindConfig holds what the business route groups are bound over.
type BindConfig struct {
	Log      *logger.Logger
	Auth     *auth.Auth
	Beginner sqldb.Beginner
	Bus      BusDomain
}

// Bind registers the business route groups.
func Bind(app *web.App, cfg BindConfig) {
	authapp.Routes(app, authapp.Config{
		Auth: cfg.Auth,
	})

	invitationapp.Routes(app, invitationapp.Config{
		Auth:          cfg.Auth,
		InvitationBus: cfg.Bus.Invitation,
		IdentityBus:   cfg.Bus.Identity,
		WorkspaceBus:  cfg.Bus.Workspace,
	})

	workspaceapp.Routes(app, workspaceapp.Config{
		Log:           cfg.Log,
		Auth:          cfg.Auth,
		Beginner:      cfg.Beginner,
		SwitchBus:     cfg.Bus.Switch,
		MembershipBus: cfg.Bus.Membership,
		RosterBus:     cfg.Bus.Roster,
		ClaimsBus:     cfg.Bus.Claims,
		AuditBus:      cfg.Bus.Audit,
	})

	repairapp.Routes(app, repairapp.Config{
		Auth:      cfg.Auth,
		RepairBus: cfg.Bus.Repair,
	})
}

// BusDomain holds every business core wired over the database.
type BusDomain struct {
	Workspace  *workspacebus.Core
	Identity   *identitybus.Core
	Membership *membershipbus.Core
	Pointer    *pointerbus.Core
	Roster     *rosterbus.Core
	Audit      *auditbus.Core
	Claims     *claimsbus.Core
	Invitation *invitationbus.Core
	Switch     *switchbus.Core
	Repair     *repairbus.Core
}

// NewBusDomain constructs the business cores over the database. Workspaces
// and identity claims are read through caches that live for cacheTTL.
func NewBusDomain(log *logger.Logger, db *sqlx.DB, notifier invitationbus.Notifier, cacheTTL time.Duration) BusDomain {
	if cacheTTL <= 0 {
		cacheTTL = 5 * time.Minute
	}

	workspaceBus := workspacebus.NewCore(log, workspacecache.NewStore(log, workspacedb.NewStore(log, db), cacheTTL))
	identityBus := identitybus.NewCore(log, identitycache.NewStore(log, identitydb.NewStore(log, db), cacheTTL))
	membershipBus := membershipbus.NewCore(log, membershipdb.NewStore(log, db))
	pointerBus := pointerbus.NewCore(log, pointerdb.NewStore(log, db))
	rosterBus := rosterbus.NewCore(log, rosterdb.NewStore(log, db))
	auditBus := auditbus.NewCore(log, auditdb.NewStore(log, db))
	claimsBus := claimsbus.NewCore(log, membershipBus, pointerBus, identityBus)

	invitationBus := invitationbus.NewCore(invitationbus.Config{
		Log:           log,
		Storer:        invitationdb.NewStore(log, db),
		Beginner:      sqldb.NewBeginner(db),
		WorkspaceBus:  workspaceBus,
		MembershipBus: membershipBus,
		PointerBus:    pointerBus,
		RosterBus:     rosterBus,
		AuditBus:      auditBus,
		ClaimsBus:     claimsBus,
		Notifier:      notifier,
	})

	switchBus := switchbus.NewCore(log, membershipBus, pointerBus, claimsBus, auditBus)

	repairBus := repairbus.NewCore(repairbus.Config{
		Log:           log,
		Storer:        mappingdb.NewStore(log, db),
		WorkspaceBus:  workspaceBus,
		IdentityBus:   identityBus,
		MembershipBus: membershipBus,
		PointerBus:    pointerBus,
		ClaimsBus:     claimsBus,
		RosterBus:     rosterBus,
		InvitationBus: invitationBus,
		AuditBus:      auditBus,
		Observer: func(s repairbus.Step) {
			metrics.AddRepairStep(s.Name, string(s.Outcome))
		},
	})

	return BusDomain{
		Workspace:  workspaceBus,
		Identity:   identityBus,
		Membership: membershipBus,
		Pointer:    pointerBus,
		Roster:     rosterBus,
		Audit:      auditBus,
		Claims:     claimsBus,
		Invitation: invitationBus,
		Switch:     switchBus,
		Repair:     repairBus,
	}
}
