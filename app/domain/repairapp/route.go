package repairapp

import (
	"net/http"

	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/app/sdk/mid"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
	"github.com/jcpaschoal/crewspace/business/types/capability"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Auth      *auth.Auth
	RepairBus *repairbus.Core
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	authen := mid.Authenticate(cfg.Auth)

	api := newApp(cfg.RepairBus)

	app.HandlerFunc(http.MethodPost, version, "/repair", api.repair, authen, mid.Authorize(cfg.Auth, capability.MembershipRepair))
}
