package invitationapp_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcpaschoal/crewspace/app/domain/invitationapp"
	"github.com/jcpaschoal/crewspace/app/sdk/apitest"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/invitationbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/page"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/phone"
	"github.com/jcpaschoal/crewspace/business/types/role"
)

type seedData struct {
	ws          workspacebus.Workspace
	admin       identitybus.Identity
	adminToken  string
	memberToken string
	pending     invitationbus.Invitation
	other       invitationbus.Invitation
}

func insertSeedData(t *testing.T, at *apitest.Test) seedData {
	ctx := context.Background()

	ws := at.DB.AddWorkspace(t, "Acme Field Ops", "tenant-acme")
	admin := at.AddMember(t, ws, "admin@acme.example", role.WorkspaceAdmin)
	member := at.AddMember(t, ws, "crew@acme.example", role.Member)

	gen := func(p string) invitationbus.Invitation {
		inv, err := at.DB.Core.Invitation.Generate(ctx, invitationbus.NewInvitation{
			Phone:       phone.MustParse(p),
			Name:        name.MustParse("Field Hire"),
			WorkspaceID: ws.ID,
			Role:        role.Employee,
			InvitedBy:   admin.UID,
		})
		if err != nil {
			t.Fatalf("Should be able to generate invitation: %s", err)
		}
		return inv
	}

	return seedData{
		ws:          ws,
		admin:       admin,
		adminToken:  at.Token(t, admin),
		memberToken: at.Token(t, member),
		pending:     gen("+15550000001"),
		other:       gen("+15550000002"),
	}
}

func Test_Invitation(t *testing.T) {
	t.Parallel()

	at := apitest.New(t)
	sd := insertSeedData(t, at)

	at.Run(t, generate200(sd), "generate-200")
	at.Run(t, generateErrors(sd), "generate-err")
	at.Run(t, query200(sd), "query-200")
	at.Run(t, check(sd), "check")
	at.Run(t, accept(sd), "accept")
	at.Run(t, cancel(sd), "cancel")
}

// =============================================================================

func errorCmp(got any, exp any) string {
	gotResp := got.(*apitest.ErrorResponse)
	expResp := exp.(*apitest.ErrorResponse)

	expResp.Message = gotResp.Message

	return cmp.Diff(gotResp, expResp)
}

func generate200(sd seedData) []apitest.Table {
	return []apitest.Table{
		{
			Name:       "basic",
			URL:        "/v1/invitations",
			Token:      sd.adminToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusOK,
			Input: &invitationapp.NewInvitation{
				Phone: "+1 555-000-0099",
				Name:  "New Hire",
				Role:  "member",
			},
			GotResp: &invitationapp.InvitationResponse{},
			ExpResp: &invitationapp.InvitationResponse{
				Success: true,
				Message: "invitation created",
				Invitation: invitationapp.Invitation{
					Phone:       "+15550000099",
					Name:        "New Hire",
					WorkspaceID: sd.ws.ID.String(),
					Role:        "member",
					Status:      "pending",
					InvitedBy:   sd.admin.UID.String(),
				},
			},
			CmpFunc: func(got any, exp any) string {
				gotResp := got.(*invitationapp.InvitationResponse)
				expResp := exp.(*invitationapp.InvitationResponse)

				if len(gotResp.Invitation.Code) != 8 {
					return fmt.Sprintf("code should have 8 characters, got %q", gotResp.Invitation.Code)
				}

				if gotResp.Invitation.InviterName == nil || *gotResp.Invitation.InviterName != sd.admin.Name.String() {
					return "inviter name should be the admin's display name"
				}

				expResp.Invitation.ID = gotResp.Invitation.ID
				expResp.Invitation.Code = gotResp.Invitation.Code
				expResp.Invitation.InviterName = gotResp.Invitation.InviterName
				expResp.Invitation.InvitedAt = gotResp.Invitation.InvitedAt
				expResp.Invitation.ExpiresAt = gotResp.Invitation.ExpiresAt

				return cmp.Diff(gotResp, expResp)
			},
		},
	}
}

func generateErrors(sd seedData) []apitest.Table {
	return []apitest.Table{
		{
			Name:       "no-token",
			URL:        "/v1/invitations",
			Method:     http.MethodPost,
			StatusCode: http.StatusUnauthorized,
			Input:      &invitationapp.NewInvitation{Phone: "+15550000100", Name: "Nobody", Role: "member"},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "unauthenticated"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "not-admin",
			URL:        "/v1/invitations",
			Token:      sd.memberToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusForbidden,
			Input:      &invitationapp.NewInvitation{Phone: "+15550000100", Name: "Nobody", Role: "member"},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "permission_denied"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "missing-name",
			URL:        "/v1/invitations",
			Token:      sd.adminToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusBadRequest,
			Input:      &invitationapp.NewInvitation{Phone: "+15550000100", Role: "member"},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "invalid_argument"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "bad-phone",
			URL:        "/v1/invitations",
			Token:      sd.adminToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusBadRequest,
			Input:      &invitationapp.NewInvitation{Phone: "555", Name: "Nobody", Role: "member"},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "invalid_argument"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "pending-exists",
			URL:        "/v1/invitations",
			Token:      sd.adminToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusConflict,
			Input:      &invitationapp.NewInvitation{Phone: sd.pending.Phone.String(), Name: "Field Hire", Role: "employee"},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "already_exists"},
			CmpFunc:    errorCmp,
		},
	}
}

func query200(sd seedData) []apitest.Table {
	return []apitest.Table{
		{
			Name:       "pending",
			URL:        "/v1/invitations?page=1&rows=10&status=pending",
			Token:      sd.adminToken,
			Method:     http.MethodGet,
			StatusCode: http.StatusOK,
			GotResp:    &page.Document[invitationapp.Invitation]{},
			ExpResp: &page.Document[invitationapp.Invitation]{
				Success:     true,
				Total:       3,
				Page:        1,
				RowsPerPage: 10,
			},
			CmpFunc: func(got any, exp any) string {
				gotResp := got.(*page.Document[invitationapp.Invitation])
				expResp := exp.(*page.Document[invitationapp.Invitation])

				for _, inv := range gotResp.Items {
					if inv.Status != "pending" || inv.WorkspaceID != sd.ws.ID.String() {
						return fmt.Sprintf("unexpected invitation %+v", inv)
					}
				}

				expResp.Items = gotResp.Items

				return cmp.Diff(gotResp, expResp)
			},
		},
	}
}

func check(sd seedData) []apitest.Table {
	return []apitest.Table{
		{
			Name:       "found",
			URL:        "/v1/invitations/code/" + sd.pending.Code,
			Method:     http.MethodGet,
			StatusCode: http.StatusOK,
			GotResp:    &invitationapp.CodeCheck{},
			ExpResp: &invitationapp.CodeCheck{
				Success:       true,
				Message:       "invitation found",
				Status:        "pending",
				Name:          "Field Hire",
				WorkspaceName: "Acme Field Ops",
				Role:          "employee",
			},
			CmpFunc: func(got any, exp any) string {
				gotResp := got.(*invitationapp.CodeCheck)
				expResp := exp.(*invitationapp.CodeCheck)

				expResp.ExpiresAt = gotResp.ExpiresAt

				return cmp.Diff(gotResp, expResp)
			},
		},
		{
			Name:       "unknown",
			URL:        "/v1/invitations/code/ZZZZ2222",
			Method:     http.MethodGet,
			StatusCode: http.StatusNotFound,
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "not_found"},
			CmpFunc:    errorCmp,
		},
	}
}

func accept(sd seedData) []apitest.Table {
	acceptedCmp := func(got any, exp any) string {
		gotResp := got.(*invitationapp.Accepted)
		expResp := exp.(*invitationapp.Accepted)

		if gotResp.Token == "" || gotResp.UserID == "" {
			return "accept should return a token and the user"
		}

		if gotResp.Invitation.Status != "accepted" || gotResp.Invitation.AcceptedAt == "" {
			return fmt.Sprintf("invitation should be accepted, got %q", gotResp.Invitation.Status)
		}

		expResp.Token = gotResp.Token
		expResp.UserID = gotResp.UserID
		expResp.Invitation = gotResp.Invitation

		return cmp.Diff(gotResp, expResp)
	}

	return []apitest.Table{
		{
			Name:       "wrong-phone",
			URL:        "/v1/invitations/accept",
			Method:     http.MethodPost,
			StatusCode: http.StatusForbidden,
			Input:      &invitationapp.Accept{Code: sd.pending.Code, Phone: "+15559999999"},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "permission_denied"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "basic",
			URL:        "/v1/invitations/accept",
			Method:     http.MethodPost,
			StatusCode: http.StatusOK,
			Input:      &invitationapp.Accept{Code: sd.pending.Code, Phone: sd.pending.Phone.String(), Name: "Field Hire"},
			GotResp:    &invitationapp.Accepted{},
			ExpResp: &invitationapp.Accepted{
				Success:      true,
				Message:      "invitation accepted",
				WorkspaceID:  sd.ws.ID.String(),
				Role:         "employee",
				ClaimVersion: 1,
			},
			CmpFunc: acceptedCmp,
		},
		{
			Name:       "retry",
			URL:        "/v1/invitations/accept",
			Method:     http.MethodPost,
			StatusCode: http.StatusOK,
			Input:      &invitationapp.Accept{Code: sd.pending.Code, Phone: sd.pending.Phone.String()},
			GotResp:    &invitationapp.Accepted{},
			ExpResp: &invitationapp.Accepted{
				Success:      true,
				Message:      "invitation accepted",
				WorkspaceID:  sd.ws.ID.String(),
				Role:         "employee",
				ClaimVersion: 1,
			},
			CmpFunc: acceptedCmp,
		},
		{
			Name:       "malformed-phone",
			URL:        "/v1/invitations/accept",
			Method:     http.MethodPost,
			StatusCode: http.StatusBadRequest,
			Input:      &invitationapp.Accept{Code: sd.other.Code, Phone: "not-a-phone"},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "invalid_argument"},
			CmpFunc:    errorCmp,
		},
	}
}

func cancel(sd seedData) []apitest.Table {
	url := "/v1/invitations/" + sd.other.ID.String() + "/cancel"

	return []apitest.Table{
		{
			Name:       "not-admin",
			URL:        url,
			Token:      sd.memberToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusForbidden,
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "permission_denied"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "basic",
			URL:        url,
			Token:      sd.adminToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusOK,
			GotResp:    &invitationapp.InvitationResponse{},
			ExpResp:    &invitationapp.InvitationResponse{},
			CmpFunc: func(got any, exp any) string {
				gotResp := got.(*invitationapp.InvitationResponse)

				if !gotResp.Success || gotResp.Invitation.Status != "cancelled" {
					return fmt.Sprintf("invitation should be cancelled, got %+v", gotResp)
				}

				return ""
			},
		},
		{
			Name:       "again",
			URL:        url,
			Token:      sd.adminToken,
			Method:     http.MethodPost,
			StatusCode: http.StatusPreconditionFailed,
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "failed_precondition"},
			CmpFunc:    errorCmp,
		},
		{
			Name:       "accept-cancelled",
			URL:        "/v1/invitations/accept",
			Method:     http.MethodPost,
			StatusCode: http.StatusPreconditionFailed,
			Input:      &invitationapp.Accept{Code: sd.other.Code, Phone: sd.other.Phone.String()},
			GotResp:    &apitest.ErrorResponse{},
			ExpResp:    &apitest.ErrorResponse{Code: "failed_precondition"},
			CmpFunc:    errorCmp,
		},
	}
}
