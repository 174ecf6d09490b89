package invitationapp

import (
	"net/http"

	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/app/sdk/mid"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
	"github.com/jcpaschoal/crewspace/business/types/capability"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Auth          *auth.Auth
	InvitationBus *invitationbus.Core
	IdentityBus   *identitybus.Core
	WorkspaceBus  *workspacebus.Core
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	authen := mid.Authenticate(cfg.Auth)

	api := newApp(cfg)

	app.HandlerFunc(http.MethodPost, version, "/invitations", api.generate, authen, mid.Authorize(cfg.Auth, capability.InvitationCreate))
	app.HandlerFunc(http.MethodGet, version, "/invitations", api.query, authen, mid.Authorize(cfg.Auth, capability.InvitationRead))
	app.HandlerFunc(http.MethodGet, version, "/invitations/code/{code}", api.check)
	app.HandlerFunc(http.MethodPost, version, "/invitations/accept", api.accept)
	app.HandlerFunc(http.MethodPost, version, "/invitations/{invitation_id}/cancel", api.cancel, authen, mid.Authorize(cfg.Auth, capability.InvitationCancel))
	app.HandlerFunc(http.MethodPost, version, "/invitations/{invitation_id}/regenerate", api.regenerate, authen, mid.Authorize(cfg.Auth, capability.InvitationCreate))
}
