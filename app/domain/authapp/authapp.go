package authapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/app/sdk/errs"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
)

type app struct {
	auth *auth.Auth
}

func newApp(auth *auth.Auth) *app {
	return &app{
		auth: auth,
	}
}

// refresh re-issues the caller's token from the stored claims. It is the
// answer to a refresh_required error.
func (a *app) refresh(ctx context.Context, r *http.Request) web.Encoder {
	tkn, ok := web.BearerToken(r.Header.Get("authorization"))
	if !ok {
		return errs.New(errs.Unauthenticated, auth.ErrBearerMissing)
	}

	token, cur, err := a.auth.Refresh(ctx, "Bearer "+tkn)
	if err != nil {
		if errors.Is(err, identitybus.ErrNotFound) {
			return errs.New(errs.NotFound, err)
		}
		return errs.New(errs.Unauthenticated, err)
	}

	return Token{
		Success:      true,
		Message:      "token refreshed",
		Token:        token,
		WorkspaceID:  cur.Claims.WorkspaceID.String(),
		ClaimVersion: cur.Version,
	}
}
