// Package password enforces the registration password policy: minimum length,
// no numeric-only passwords, a blocklist of common choices, and no similarity
// to the username.
package password

import (
	"errors"
	"fmt"
	"strings"
	"unicode"
)

var ErrWeak = errors.New("weak password")

// Policy checks run in order; the first failure is reported.
type Policy struct {
	MinLength int
}

var commonPasswords = map[string]struct{}{
	"password":      {},
	"password1":     {},
	"password123":   {},
	"passw0rd":      {},
	"123456":        {},
	"12345678":      {},
	"123456789":     {},
	"1234567890":    {},
	"qwerty":        {},
	"qwerty123":     {},
	"qwertyuiop":    {},
	"abc123":        {},
	"iloveyou":      {},
	"admin":         {},
	"administrator": {},
	"welcome":       {},
	"welcome1":      {},
	"letmein":       {},
	"monkey":        {},
	"dragon":        {},
	"sunshine":      {},
	"princess":      {},
	"football":      {},
	"baseball":      {},
	"superman":      {},
	"batman":        {},
	"trustno1":      {},
	"master":        {},
	"shadow":        {},
	"michael":       {},
	"jennifer":      {},
	"computer":      {},
	"internet":      {},
	"changeme":      {},
	"secret":        {},
	"password12345": {},
	"1q2w3e4r":      {},
	"zaq12wsx":      {},
}

// Validate returns an error wrapping ErrWeak with a user-facing message when
// the password fails policy.
func (p Policy) Validate(username, pw string) error {
	minLen := p.MinLength
	if minLen <= 0 {
		minLen = 12
	}

	if len(pw) < minLen {
		return fmt.Errorf("this password is too short, it must contain at least %d characters: %w", minLen, ErrWeak)
	}

	if numericOnly(pw) {
		return fmt.Errorf("this password is entirely numeric: %w", ErrWeak)
	}

	if _, ok := commonPasswords[strings.ToLower(pw)]; ok {
		return fmt.Errorf("this password is too common: %w", ErrWeak)
	}

	if tooSimilar(username, pw) {
		return fmt.Errorf("the password is too similar to the username: %w", ErrWeak)
	}

	return nil
}

func numericOnly(pw string) bool {
	for _, r := range pw {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return len(pw) > 0
}

func tooSimilar(username, pw string) bool {
	u := strings.ToLower(strings.TrimSpace(username))
	w := strings.ToLower(pw)
	if len(u) < 3 {
		return false
	}
	return strings.Contains(w, u) || strings.Contains(u, w)
}
