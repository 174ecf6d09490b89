package invitationbus

import (
	"crypto/rand"
	"fmt"
	"strings"
)

// CodeLength is the number of characters in an invitation code.
const CodeLength = 8

// codeAlphabet leaves out 0, 1, I and O so codes read back unambiguously.
// Its 32 symbols let every random byte map without bias.
const codeAlphabet = "ABCDEFGHJKLMNPQRSTUVWXYZ23456789"

// GenerateCode returns a random invitation code.
func GenerateCode() (string, error) {
	buf := make([]byte, CodeLength)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("generate code: %w", err)
	}

	for i, b := range buf {
		buf[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}

	return string(buf), nil
}

// NormalizeCode trims and upper cases a code as typed by a user.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// ValidCode reports whether the code has the shape of an invitation code.
func ValidCode(code string) bool {
	if len(code) != CodeLength {
		return false
	}

	for _, r := range code {
		switch {
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}

	return true
}
