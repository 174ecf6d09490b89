package phone_test

import (
	"testing"

	"github.com/jcpaschoal/crewspace/business/types/phone"
)

func Test_Parse(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  string
		fail  bool
	}{
		{name: "e164", value: "+15551234567", want: "+15551234567"},
		{name: "separators", value: "+1 (555) 123-4567", want: "+15551234567"},
		{name: "brazil", value: "+5511987654321", want: "+5511987654321"},
		{name: "missing plus", value: "15551234567", fail: true},
		{name: "leading zero", value: "+05551234567", fail: true},
		{name: "too short", value: "+1555123", fail: true},
		{name: "too long", value: "+1555123456789012", fail: true},
		{name: "letters", value: "+1555CALLNOW", fail: true},
		{name: "empty", value: "", fail: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := phone.Parse(tt.value)
			if tt.fail {
				if err == nil {
					t.Fatalf("expected an error, got %s", got)
				}
				return
			}

			if err != nil {
				t.Fatalf("unexpected error: %s", err)
			}

			if got.String() != tt.want {
				t.Fatalf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func Test_ParseNull(t *testing.T) {
	n, err := phone.ParseNull("")
	if err != nil {
		t.Fatalf("empty: %s", err)
	}

	if n.Valid() {
		t.Fatal("empty value should not be valid")
	}

	n, err = phone.ParseNull("+15551234567")
	if err != nil {
		t.Fatalf("parse: %s", err)
	}

	if !n.Equal(phone.FromPhone(phone.MustParse("+15551234567"))) {
		t.Fatalf("got %s", n)
	}
}
