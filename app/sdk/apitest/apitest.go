// Package apitest provides support for exercising the web api end to end over
// the in-memory database.
package apitest

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jcpaschoal/crewspace/api/cmd/build/all"
	"github.com/jcpaschoal/crewspace/app/sdk/auth"
	"github.com/jcpaschoal/crewspace/app/sdk/mux"
	"github.com/jcpaschoal/crewspace/business/domain/identitybus"
	"github.com/jcpaschoal/crewspace/business/domain/membershipbus"
	"github.com/jcpaschoal/crewspace/business/domain/workspacebus"
	"github.com/jcpaschoal/crewspace/business/sdk/dbtest"
	"github.com/jcpaschoal/crewspace/business/types/memberstatus"
	"github.com/jcpaschoal/crewspace/business/types/name"
	"github.com/jcpaschoal/crewspace/business/types/role"
	"github.com/jcpaschoal/crewspace/foundation/keystore"
	"go.opentelemetry.io/otel/trace/noop"
)

const (
	kid    = "s4sKIjD9kIRjxs2tulPqGLdxSfgPErRN1Mu3Hd9k9NQ"
	issuer = "crewspace-test"
)

// Table represent fields needed for running an api test.
type Table struct {
	Name       string
	URL        string
	Token      string
	Method     string
	StatusCode int
	Input      any
	GotResp    any
	ExpResp    any
	CmpFunc    func(got any, exp any) string
}

// Test contains functions for executing an api test.
type Test struct {
	DB   *dbtest.Test
	Auth *auth.Auth
	mux  http.Handler
}

// New constructs a Test value with every route group bound over a fresh
// in-memory database.
func New(t *testing.T, opts ...dbtest.Options) *Test {
	tst := dbtest.New(t, opts...)

	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("Should be able to generate a key: %s", err)
	}

	ks := keystore.New()
	if err := ks.Add(kid, privateKey); err != nil {
		t.Fatalf("Should be able to add the key: %s", err)
	}

	a := auth.New(auth.Config{
		Log:       tst.Log,
		ClaimsBus: tst.Core.Claims,
		KeyLookup: ks,
		Issuer:    issuer,
		ActiveKID: kid,
	})

	app := mux.NewApp(tst.Log, noop.NewTracerProvider().Tracer(""))

	all.Bind(app, all.BindConfig{
		Log:      tst.Log,
		Auth:     a,
		Beginner: tst.DB,
		Bus: all.BusDomain{
			Workspace:  tst.Core.Workspace,
			Identity:   tst.Core.Identity,
			Membership: tst.Core.Membership,
			Pointer:    tst.Core.Pointer,
			Roster:     tst.Core.Roster,
			Audit:      tst.Core.Audit,
			Claims:     tst.Core.Claims,
			Invitation: tst.Core.Invitation,
			Switch:     tst.Core.Switch,
			Repair:     tst.Core.Repair,
		},
	})

	return &Test{
		DB:   tst,
		Auth: a,
		mux:  app,
	}
}

// Run performs the actual test logic based on the table data.
func (at *Test) Run(t *testing.T, table []Table, testName string) {
	for _, tt := range table {
		f := func(t *testing.T) {
			r := httptest.NewRequest(tt.Method, tt.URL, nil)
			w := httptest.NewRecorder()

			if tt.Input != nil {
				d, err := json.Marshal(tt.Input)
				if err != nil {
					t.Fatalf("Should be able to marshal the model : %s", err)
				}

				r = httptest.NewRequest(tt.Method, tt.URL, bytes.NewBuffer(d))
			}

			if tt.Token != "" {
				r.Header.Set("Authorization", "Bearer "+tt.Token)
			}

			at.mux.ServeHTTP(w, r)

			if w.Code != tt.StatusCode {
				t.Fatalf("%s: Should receive a status code of %d for the response : %d\n%s", tt.Name, tt.StatusCode, w.Code, w.Body.String())
			}

			if tt.StatusCode == http.StatusNoContent {
				return
			}

			if err := json.Unmarshal(w.Body.Bytes(), tt.GotResp); err != nil {
				t.Fatalf("Should be able to unmarshal the response : %s", err)
			}

			diff := tt.CmpFunc(tt.GotResp, tt.ExpResp)
			if diff != "" {
				t.Log("DIFF")
				t.Logf("%s", diff)
				t.Log("GOT")
				t.Logf("%#v", tt.GotResp)
				t.Log("EXP")
				t.Logf("%#v", tt.ExpResp)
				t.Fatalf("Should get the expected response")
			}
		}

		t.Run(testName+"-"+tt.Name, f)
	}
}

// Token syncs the claims of the user and signs a token carrying them.
func (at *Test) Token(t *testing.T, idt identitybus.Identity) string {
	t.Helper()

	res, err := at.DB.Core.Claims.Sync(context.Background(), idt.UID)
	if err != nil {
		t.Fatalf("Should be able to sync claims: %s", err)
	}

	token, err := at.Auth.GenerateToken(res)
	if err != nil {
		t.Fatalf("Should be able to generate a token: %s", err)
	}

	return token
}

// AddMember creates an identity holding an active membership with the role
// in the workspace, with the workspace active.
func (at *Test) AddMember(t *testing.T, ws workspacebus.Workspace, key string, r role.Role) identitybus.Identity {
	t.Helper()
	ctx := context.Background()

	idt, err := at.DB.Core.Identity.CreateUserInTenant(ctx, ws.TenantID, identitybus.Profile{
		LookupKey: key,
		Name:      name.MustParse("Crew " + r.String()),
	})
	if err != nil {
		t.Fatalf("Should be able to create identity: %s", err)
	}

	_, err = at.DB.Core.Membership.Create(ctx, membershipbus.NewMembership{
		UserID:        idt.UID,
		WorkspaceID:   ws.ID,
		TenantID:      ws.TenantID,
		Role:          r,
		Status:        memberstatus.Active,
		WorkspaceName: ws.Name.String(),
	})
	if err != nil {
		t.Fatalf("Should be able to create membership: %s", err)
	}

	if _, _, err := at.DB.Core.Pointer.Ensure(ctx, idt.UID, ws.ID, ws.TenantID); err != nil {
		t.Fatalf("Should be able to create pointer: %s", err)
	}

	return idt
}

// ErrorResponse is the envelope every failed call answers with.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Code    string `json:"code"`
	Message string `json:"message"`
}
