package authapp

import (
	"net/http"

	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
)

// Config contains all the mandatory systems required by handlers.
type Config struct {
	Auth *auth.Auth
}

// Routes adds specific routes for this group.
func Routes(app *web.App, cfg Config) {
	const version = "v1"

	api := newApp(cfg.Auth)

	app.HandlerFunc(http.MethodPost, version, "/auth/refresh", api.refresh)
}
