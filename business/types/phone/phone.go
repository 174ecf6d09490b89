// Package phone represents a phone number in the system.
package phone

import (
	"database/sql"
	"fmt"
	"regexp"
	"strings"
)

// Phone represents a phone number in international E.164 form.
type Phone struct {
	value string
}

// String returns the value of the phone number.
func (p Phone) String() string {
	return p.value
}

// IsZero reports whether the phone was never set.
func (p Phone) IsZero() bool {
	return p.value == ""
}

// Equal provides support for the go-cmp package and testing.
func (p Phone) Equal(p2 Phone) bool {
	return p.value == p2.value
}

// MarshalText provides support for logging and any marshal needs.
func (p Phone) MarshalText() ([]byte, error) {
	return []byte(p.value), nil
}

// =============================================================================

// phoneRegEx requires a leading +, a non zero country digit and 8 to 15
// digits in total.
var phoneRegEx = regexp.MustCompile(`^\+[1-9]\d{7,14}$`)

// separators are stripped before validation so "+1 555-123-4567" and
// "+15551234567" are the same number.
var separators = strings.NewReplacer(" ", "", "-", "", "(", "", ")", "", ".", "")

// Parse parses the string value and returns a phone number if the value complies
// with the rules for a phone number.
func Parse(value string) (Phone, error) {
	v := separators.Replace(strings.TrimSpace(value))

	if !phoneRegEx.MatchString(v) {
		return Phone{}, fmt.Errorf("invalid phone %q", value)
	}

	return Phone{v}, nil
}

// MustParse parses the string value and returns a phone number if the value
// complies with the rules for a phone number. If an error occurs the function panics.
func MustParse(value string) Phone {
	phone, err := Parse(value)
	if err != nil {
		panic(err)
	}

	return phone
}

// =============================================================================

// Null represents a phone number in the system that can be empty.
type Null struct {
	value string
	valid bool
}

// ToSQLNullString converts a Null value to a sql NullString.
func ToSQLNullString(n Null) sql.NullString {
	return sql.NullString{
		String: n.value,
		Valid:  n.valid,
	}
}

// FromPhone converts a required phone into a Null that holds it.
func FromPhone(p Phone) Null {
	if p.IsZero() {
		return Null{}
	}

	return Null{p.value, true}
}

// String returns the value of the phone number.
func (n Null) String() string {
	if !n.valid {
		return "NULL"
	}

	return n.value
}

// Valid reports whether a number is present.
func (n Null) Valid() bool {
	return n.valid
}

// Equal provides support for the go-cmp package and testing.
func (n Null) Equal(n2 Null) bool {
	return n.value == n2.value && n.valid == n2.valid
}

// MarshalText provides support for logging and any marshal needs.
func (n Null) MarshalText() ([]byte, error) {
	return []byte(n.value), nil
}

// =============================================================================

// ParseNull parses the string value and returns a phone number if the value complies
// with the rules for a phone number.
func ParseNull(value string) (Null, error) {
	if value == "" {
		return Null{}, nil
	}

	p, err := Parse(value)
	if err != nil {
		return Null{}, err
	}

	return Null{p.value, true}, nil
}

// MustParseNull parses the string value and returns a phone number if the value
// complies with the rules for a phone number. If an error occurs the function panics.
func MustParseNull(value string) Null {
	phone, err := ParseNull(value)
	if err != nil {
		panic(err)
	}

	return phone
}
