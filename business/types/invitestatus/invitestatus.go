// Package invitestatus represents the lifecycle state of an invitation code.
package invitestatus

import "fmt"

// The set of statuses that can be used.
var (
	Pending   = newStatus("pending", false)
	Accepted  = newStatus("accepted", true)
	Expired   = newStatus("expired", true)
	Cancelled = newStatus("cancelled", true)
)

// =============================================================================

// Set of known statuses.
var statuses = make(map[string]Status)

// Status represents the state of an invitation. A terminal status never
// changes again.
type Status struct {
	value    string
	terminal bool
}

func newStatus(status string, terminal bool) Status {
	s := Status{status, terminal}
	statuses[status] = s
	return s
}

// String returns the name of the status.
func (s Status) String() string {
	return s.value
}

// IsTerminal reports whether no further transition is allowed.
func (s Status) IsTerminal() bool {
	return s.terminal
}

// Equal provides support for the go-cmp package and testing.
func (s Status) Equal(s2 Status) bool {
	return s.value == s2.value
}

// MarshalText provides support for logging and any marshal needs.
func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.value), nil
}

// =============================================================================

// Parse parses the string value and returns a status if one exists.
func Parse(value string) (Status, error) {
	status, exists := statuses[value]
	if !exists {
		return Status{}, fmt.Errorf("invalid invitation status %q", value)
	}

	return status, nil
}

// MustParse parses the string value and returns a status if one exists. If
// an error occurs the function panics.
func MustParse(value string) Status {
	status, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return status
}
