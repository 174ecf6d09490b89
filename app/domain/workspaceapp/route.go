package workspaceapp

import (
	"net/http"

	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/app/sdk/mid"
	"github.com/jcpaschoal/crewspace/business/domain/auditbus"
	"github.com/jcpaschoal/crewspace/business/domain/claimsbus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/rosterbus"
	"github.com/jcpaschoal/crewspace/business/domain/switchbus"
	"github.com/jcpaschoal/crewspace/business/sdk/sqldb"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
	"github.com/jcpaschoal/crewspace/business/types/capability"
	"github.com/jcpaschoal/crewspace/foundation/logger"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Log           *logger.Logger
	Auth          *auth.Auth
	Beginner      sqldb.Beginner
	SwitchBus     *switchbus.Core
	MembershipBus *membershipbus.Core
	RosterBus     *rosterbus.Core
	ClaimsBus     *claimsbus.Core
	AuditBus      *auditbus.Core
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	authen := mid.Authenticate(cfg.Auth)
	transaction := mid.BeginCommitRollback(cfg.Log, cfg.Beginner)

	api := newApp(cfg)

	app.HandlerFunc(http.MethodPost, version, "/workspaces/switch", api.switchWorkspace, authen)
	app.HandlerFunc(http.MethodGet, version, "/workspaces/memberships", api.memberships, authen)
	app.HandlerFunc(http.MethodGet, version, "/workspaces/roster", api.roster, authen, mid.Authorize(cfg.Auth, capability.RosterRead))
	app.HandlerFunc(http.MethodPut, version, "/workspaces/members/{user_id}", api.updateMember, authen, mid.Authorize(cfg.Auth, capability.MembershipUpdate), transaction)
}
