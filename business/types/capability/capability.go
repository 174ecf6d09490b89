// Package capability represents the fine grained permissions a workspace role
// grants inside a workspace.
package capability

import "fmt"

// The set of capabilities that can be used.
var (
	InvitationCreate = newCapability("invitation.create")
	InvitationRead   = newCapability("invitation.read")
	InvitationCancel = newCapability("invitation.cancel")
	RosterRead       = newCapability("roster.read")
	MembershipUpdate = newCapability("membership.update")
	MembershipRepair = newCapability("membership.repair")
)

// =============================================================================

// Set of known capabilities.
var capabilities = make(map[string]Capability)

// Capability represents a permission in the system.
type Capability struct {
	value string
}

func newCapability(capability string) Capability {
	c := Capability{capability}
	capabilities[capability] = c
	return c
}

// String returns the name of the capability.
func (c Capability) String() string {
	return c.value
}

// Equal provides support for the go-cmp package and testing.
func (c Capability) Equal(c2 Capability) bool {
	return c.value == c2.value
}

// MarshalText provides support for logging and any marshal needs.
func (c Capability) MarshalText() ([]byte, error) {
	return []byte(c.value), nil
}

// UnmarshalText restores a capability from its encoded form.
func (c *Capability) UnmarshalText(data []byte) error {
	v, err := Parse(string(data))
	if err != nil {
		return err
	}

	*c = v
	return nil
}

// =============================================================================

// Parse parses the string value and returns a capability if one exists.
func Parse(value string) (Capability, error) {
	capability, exists := capabilities[value]
	if !exists {
		return Capability{}, fmt.Errorf("invalid capability %q", value)
	}

	return capability, nil
}

// MustParse parses the string value and returns a capability if one exists. If
// an error occurs the function panics.
func MustParse(value string) Capability {
	capability, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return capability
}

// ParseMany parses a list of values, failing on the first unknown one.
func ParseMany(values []string) ([]Capability, error) {
	caps := make([]Capability, len(values))
	for i, v := range values {
		c, err := Parse(v)
		if err != nil {
			return nil, err
		}
		caps[i] = c
	}

	return caps, nil
}

// Strings converts the list back into its string form.
func Strings(caps []Capability) []string {
	s := make([]string, len(caps))
	for i, c := range caps {
		s[i] = c.value
	}

	return s
}

// Contains reports whether c is in the list.
func Contains(caps []Capability, c Capability) bool {
	for _, v := range caps {
		if v == c {
			return true
		}
	}

	return false
}
