package errs_test

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jcpaschoal/crewspace/app/sdk/errs"
)

type envelope struct {
	Success bool              `json:"success"`
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Fields  []errs.FieldError `json:"fields"`
}

func decode(t *testing.T, e *errs.Error) envelope {
	t.Helper()

	data, ct, err := e.Encode()
	if err != nil {
		t.Fatalf("Should be able to encode: %s", err)
	}

	if ct != "application/json" {
		t.Fatalf("Should encode as json, got %s", ct)
	}

	var env envelope
	if err := json.Unmarshal(data, &env); err != nil {
		t.Fatalf("Should be able to decode: %s", err)
	}

	return env
}

func Test_Check(t *testing.T) {
	type model struct {
		Phone string `json:"phone" validate:"required"`
		Role  string `json:"role" validate:"oneof=member employee"`
	}

	err := errs.Check(model{Role: "owner"})

	fe := errs.GetFieldErrors(err)
	if len(fe) != 2 {
		t.Fatalf("Should get two field errors, got %v", err)
	}

	fields := fe.Fields()
	if _, ok := fields["phone"]; !ok {
		t.Fatalf("Should name the field by its json tag, got %v", fields)
	}

	if err := errs.Check(model{Phone: "+15551234567", Role: "member"}); err != nil {
		t.Fatalf("Should pass a clean model: %s", err)
	}
}

func Test_New(t *testing.T) {
	var fe errs.FieldErrors
	fe.Add("phone", errors.New("invalid phone"))

	e := errs.New(errs.InvalidArgument, fmt.Errorf("validate: %w", fe))

	if e.HTTPStatus() != http.StatusBadRequest {
		t.Fatalf("Should map to 400, got %d", e.HTTPStatus())
	}

	exp := envelope{
		Code:    "invalid_argument",
		Message: e.Message,
		Fields:  []errs.FieldError{{Field: "phone", Err: "invalid phone"}},
	}

	if diff := cmp.Diff(decode(t, e), exp); diff != "" {
		t.Fatalf("Envelope mismatch:\n%s", diff)
	}
}

func Test_Codes(t *testing.T) {
	tests := []struct {
		code   errs.ErrCode
		name   string
		status int
	}{
		{errs.NotFound, "not_found", http.StatusNotFound},
		{errs.Expired, "expired", http.StatusGone},
		{errs.RefreshRequired, "refresh_required", http.StatusUnauthorized},
		{errs.FailedPrecondition, "failed_precondition", http.StatusPreconditionFailed},
		{errs.ResourceExhausted, "resource_exhausted", http.StatusTooManyRequests},
		{errs.Unavailable, "unavailable", http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := errs.Errorf(tt.code, "boom")

			if e.HTTPStatus() != tt.status {
				t.Fatalf("status: got %d, want %d", e.HTTPStatus(), tt.status)
			}

			if tt.code.String() != tt.name {
				t.Fatalf("name: got %s, want %s", tt.code, tt.name)
			}

			var back errs.ErrCode
			if err := back.UnmarshalText([]byte(tt.name)); err != nil || !back.Equal(tt.code) {
				t.Fatalf("Should parse the name back, got %v %v", back, err)
			}
		})
	}
}

func Test_InternalOnlyLog(t *testing.T) {
	e := errs.Errorf(errs.InternalOnlyLog, "db password is hunter2")

	env := decode(t, e)
	if env.Message != http.StatusText(http.StatusInternalServerError) {
		t.Fatalf("Should hide the detail, got %q", env.Message)
	}

	if e.HTTPStatus() != http.StatusInternalServerError {
		t.Fatalf("Should map to 500, got %d", e.HTTPStatus())
	}
}
