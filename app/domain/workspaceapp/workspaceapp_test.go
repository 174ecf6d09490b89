package workspaceapp_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcpaschoal/crewspace/app/domain/authapp"
	"github.com/jcpaschoal/crewspace/app/domain/workspaceapp"
	"github.com/jcpaschoal/crewspace/app/sdk/apitest"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

type seedData struct {
	home        workspacebus.Workspace
	branch      workspacebus.Workspace
	admin       identitybus.Identity
	adminToken  string
	worker      identitybus.Identity
	workerToken string
}

func insertSeedData(t *testing.T, at *apitest.Test) seedData {
	home := at.DB.AddWorkspace(t, "Home Office", "tenant-acme")
	branch := at.DB.AddWorkspace(t, "North Branch", "tenant-acme")

	admin := at.AddMember(t, home, "admin@acme.example", role.WorkspaceAdmin)
	worker := at.AddMember(t, home, "crew@acme.example", role.Member)

	_, err := at.DB.Core.Membership.Create(context.Background(), membershipbus.NewMembership{
		UserID:        admin.UID,
		WorkspaceID:   branch.ID,
		TenantID:      branch.TenantID,
		Role:          role.Member,
		Status:        memberstatus.Active,
		WorkspaceName: branch.Name.String(),
	})
	if err != nil {
		t.Fatalf("Should be able to create membership: %s", err)
	}

	return seedData{
		home:        home,
		branch:      branch,
		admin:       admin,
		adminToken:  at.Token(t, admin),
		worker:      worker,
		workerToken: at.Token(t, worker),
	}
}

func Test_Workspace(t *testing.T) {
	t.Parallel()

	at := apitest.New(t)
	sd := insertSeedData(t, at)

	at.Run(t, memberships200(sd), "memberships-200")
	at.Run(t, updateMember(sd), "update-member")
	at.Run(t, switchWorkspace(sd), "switch")
	at.Run(t, refresh(sd), "refresh")
}

// =============================================================================

func errorCmp(got any, exp any) string {
	gotResp := got.(*apitest.ErrorResponse)
	expResp := exp.(*apitest.ErrorResponse)

	expResp.Message = gotResp.Message

	return cmp.Diff(gotResp, expResp)
}

func memberships200(sd seedData) []apitest.Table {
	return []apitest.Table{
		{
			Name:       "admin",
			URL:        "/v1/workspaces/memberships",
			Token:      sd.adminToken,
			Method:     http.MethodGet,
			StatusCode: http.StatusOK,
			GotResp:    &workspaceapp.Memberships{},
			ExpResp:    &workspaceapp.Memberships{},
			CmpFunc: func(got any, exp any) string {
				gotResp := got.(*workspaceapp.Memberships)

				if len(gotResp.Memberships) != 2 {
					return fmt.Sprintf("expected 2 memberships, got %d", len(gotResp.Memberships))
				}

				for _, m := range gotResp.Memberships {
					if active := m.WorkspaceID == sd.home.ID.String(); m.Active != active {
						return fmt.Sprintf("workspace %s: active %t", m.WorkspaceName, m.Active)
					}
				}

				return ""
			},
		},
	}
}

func updateMember(sd seedData) []apitest.Table {
	suspended := "suspended"
	url := "/v1/workspaces/members/" + sd.worker.UID.String()

	return []apitest.Table{
		{
			Name:       "not-admin",
			URL:        "/v1/workspaces/members/" + sd.admin.UID.String(),
			Token:      sd.workerToken,
			Method:     http.MethodPut,
			StatusCode: http.StatusForbidden,
			Input:      &workspaceapp.UpdateMember{Status: &suspended},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "permission_denied"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "bad-status",
			URL:        url,
			Token:      sd.adminToken,
			Method:     http.MethodPut,
			StatusCode: http.StatusBadRequest,
			Input:      map[string]string{"status": "retired"},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "invalid_argument"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "suspend",
			URL:        url,
			Token:      sd.adminToken,
			Method:     http.MethodPut,
			StatusCode: http.StatusOK,
			Input:      &workspaceapp.UpdateMember{Status: &suspended},
			GotResp:    &workspaceapp.MembershipResponse{},
			ExpResp:    &workspaceapp.MembershipResponse{},
			CmpFunc: func(got any, exp any) string {
				gotResp := got.(*workspaceapp.MembershipResponse)

				if !gotResp.Success || gotResp.Membership.Status != "suspended" {
					return fmt.Sprintf("membership should be suspended, got %+v", gotResp.Membership)
				}

				return ""
			},
		},
		{
			Name:       "stale-token",
			URL:        "/v1/workspaces/memberships",
			Token:      sd.workerToken,
			Method:     http.MethodGet,
			StatusCode: http.StatusUnauthorized,
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "refresh_required"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "unknown-member",
			URL:        "/v1/workspaces/members/" + sd.branch.ID.String(),
			Token:      sd.adminToken,
			Method:     http.MethodPut,
			StatusCode: http.StatusNotFound,
			Input:      &workspaceapp.UpdateMember{Status: &suspended},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "not_found"},
			CmpFunc:    errorCmp,
		},
	}
}

func switchWorkspace(sd seedData) []apitest.Table {
	return []apitest.Table{
		{
			Name:       "bad-id",
			URL:        "/v1/workspaces/switch",
			Token:      sd.adminToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusBadRequest,
			Input:      &workspaceapp.Switch{WorkspaceID: "north"},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "invalid_argument"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "basic",
			URL:        "/v1/workspaces/switch",
			Token:      sd.adminToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusOK,
			Input:      &workspaceapp.Switch{WorkspaceID: sd.branch.ID.String()},
			GotResp:    &workspaceapp.Switched{},
			ExpResp: &workspaceapp.Switched{
				Success:      true,
				Message:      "active workspace switched",
				WorkspaceID:  sd.branch.ID.String(),
				ClaimVersion: 2,
			},
			CmpFunc: func(got any, exp any) string {
				gotResp := got.(*workspaceapp.Switched)
				expResp := exp.(*workspaceapp.Switched)

				if gotResp.Token == "" {
					return "switch should return a token"
				}
				expResp.Token = gotResp.Token

				return cmp.Diff(gotResp, expResp)
			},
		},
		{
			Name:       "old-token-stale",
			URL:        "/v1/workspaces/switch",
			Token:      sd.adminToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusUnauthorized,
			Input:      &workspaceapp.Switch{WorkspaceID: sd.home.ID.String()},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "refresh_required"},
			CmpFunc:    errorCmp,
		},
	}
}

func refresh(sd seedData) []apitest.Table {
	return []apitest.Table{
		{
			Name:       "admin",
			URL:        "/v1/auth/refresh",
			Token:      sd.adminToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusOK,
			GotResp:    &authapp.Token{},
			ExpResp: &authapp.Token{
				Success:      true,
				Message:      "token refreshed",
				WorkspaceID:  sd.branch.ID.String(),
				ClaimVersion: 2,
			},
			CmpFunc: func(got any, exp any) string {
				gotResp := got.(*authapp.Token)
				expResp := exp.(*authapp.Token)

				if gotResp.Token == "" || gotResp.Token == sd.adminToken {
					return "refresh should return a new token"
				}
				expResp.Token = gotResp.Token

				return cmp.Diff(gotResp, expResp)
			},
		},
		{
			Name:       "suspended-worker",
			URL:        "/v1/auth/refresh",
			Token:      sd.workerToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusOK,
			GotResp:    &authapp.Token{},
			ExpResp: &authapp.Token{
				Success:      true,
				Message:      "token refreshed",
				WorkspaceID:  "00000000-0000-0000-0000-000000000000",
				ClaimVersion: 2,
			},
			CmpFunc: func(got any, exp any) string {
				gotResp := got.(*authapp.Token)
				expResp := exp.(*authapp.Token)

				expResp.Token = gotResp.Token

				return cmp.Diff(gotResp, expResp)
			},
		},
		{
			Name:       "garbage",
			URL:        "/v1/auth/refresh",
			Token:      "not.a.token",
			Method:     http.MethodPost,
			StatusCode: http.StatusUnauthorized,
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "unauthenticated"},
			CmpFunc:    errorCmp,
		},
	}
}
