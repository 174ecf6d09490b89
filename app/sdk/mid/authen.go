package mid

import (
	"context"
	"errors"
	"net/http"

	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/app/sdk/errs"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
)

// Authenticate validates the bearer token and places its claims in the
// context. A token older than the stored claims is answered with
// refresh_required.
func Authenticate(a *auth.Auth) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			authStr := r.Header.Get("authorization")
			if authStr == "" {
				return errs.New(errs.Unauthenticated, errors.New("missing authorization header"))
			}

			tkn, ok := web.BearerToken(authStr)
			if !ok {
				return errs.New(errs.Unauthenticated, auth.ErrBearerMissing)
			}

			claims, err := a.Authenticate(ctx, "Bearer "+tkn)
			if err != nil {
				if errors.Is(err, auth.ErrStale) {
					return errs.New(errs.RefreshRequired, err)
				}
				return errs.New(errs.Unauthenticated, err)
			}

			ctx = setClaims(ctx, claims)

			return next(ctx, r)
		}

		return h
	}

	return m
}
