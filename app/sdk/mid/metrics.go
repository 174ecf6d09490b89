package mid

import (
	"context"
	"net/http"
	"time"

	"github.com/jcpaschoal/crewspace/app/sdk/metrics"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
)

// Metrics updates program counters. The path label is the route pattern so
// the label set stays bounded.
func Metrics() web.MidFunc {
	m := func(next web.HandlerFunc) web.HandlerFunc {
		h := func(ctx context.Context, r *http.Request) web.Encoder {
			now := time.Now()

			resp := next(ctx, r)

			status := http.StatusOK
			if v, ok := resp.(interface{ HTTPStatus() int }); ok {
				status = v.HTTPStatus()
			} else if checkIsError(resp) != nil {
				status = http.StatusInternalServerError
			}

			metrics.AddRequest(r.Method, r.Pattern, status, time.Since(now))

			return resp
		}

		return h
	}

	return m
}
