package mid

import (
	"context"
	"net/http"

	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/app/sdk/errs"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
	"github.com/jcpaschoal/crewspace/business/types/capability"
)

// Authorize checks the active workspace of the authenticated user grants the
// capability. It must run after Authenticate.
func Authorize(a *auth.Auth, cp capability.Capability) web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			claims := GetClaims(ctx)

			if _, err := GetUserID(ctx); err != nil {
				return errs.New(errs.Unauthenticated, err)
			}

			if err := a.Authorize(claims, cp); err != nil {
				return errs.New(errs.PermissionDenied, err)
			}

			return next(ctx, r)
		}

		return h
	}

	return m
}
