package repairapp

import (
	"context"
	"errors"
	"net/http"

	"github.com/jcpaschoal/crewspace/app/sdk/errs"
	"github.com/jcpaschoal/crewspace/app/sdk/mid"
	"github.com/jcpaschoal/crewspace/business/domain/repairbus"
	"github.com/jcpaschoal/crewspace/business/sdk/web"
)

type app struct {
	repairBus *repairbus.Core
}

func newApp(repairBus *repairbus.Core) *app {
	return &app{
		repairBus: repairBus,
	}
}

// repair reconciles the projections of the identifier inside the caller's
// active workspace. Intents held in other workspaces are left alone. A failed
// run still answers with the partial report, with success false.
func (a *app) repair(ctx context.Context, r *http.Request) web.Encoder {
	var app Repair
	if err := web.Decode(r, &app); err != nil {
		return errs.New(errs.InvalidArgument, err)
	}

	workspaceID, err := mid.GetWorkspaceID(ctx)
	if err != nil {
		return errs.New(errs.PermissionDenied, err)
	}

	rep, err := a.repairBus.RepairInWorkspace(ctx, app.Identifier, workspaceID)
	if err != nil {
		switch {
		case errors.Is(err, repairbus.ErrMappingNotFound):
			return errs.New(errs.NotFound, repairbus.ErrMappingNotFound)

		case errors.Is(err, repairbus.ErrIdentifier):
			return errs.NewFieldErrors("identifier", err)
		}

		report := toAppReport(rep)
		report.Success = false
		report.Message = "repair stopped at a failing step"

		return errs.Errorf(errs.Unavailable, "repair: %s", err).WithFields(report)
	}

	return toAppReport(rep)
}
