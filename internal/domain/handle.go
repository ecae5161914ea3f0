package domain

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	MinHandleLen = 3
	MaxHandleLen = 30

	handleSuffixLen  = 4
	handleSuffixBase = 25
	handleAlphabet   = "abcdefghijklmnopqrstuvwxyz0123456789"
	strictAttempts   = 10
)

// HandleExists reports whether a handle is already held by some agent.
type HandleExists func(ctx context.Context, handle string) (bool, error)

// Slugify derives a handle candidate from a display name. Already-valid handles
// come back unchanged.
func Slugify(name string) string {
	lowered := strings.ToLower(name)

	var b strings.Builder
	pendingSpace := false
	for _, r := range lowered {
		switch {
		case unicode.IsSpace(r):
			pendingSpace = true
			continue
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') || r == '-':
		default:
			continue
		}
		if pendingSpace {
			b.WriteByte('-')
			pendingSpace = false
		}
		b.WriteRune(r)
	}
	if pendingSpace {
		b.WriteByte('-')
	}

	slug := collapseHyphens(b.String())
	slug = strings.Trim(slug, "-")
	if slug == "" || !isLowerLetter(slug[0]) {
		slug = "a-" + slug
	}
	slug = padHandle(slug)
	if len(slug) > MaxHandleLen {
		slug = strings.TrimRight(slug[:MaxHandleLen], "-")
		slug = padHandle(slug)
	}
	return slug
}

func padHandle(slug string) string {
	for len(slug) < MinHandleLen {
		slug += "x"
	}
	return slug
}

func collapseHyphens(s string) string {
	var b strings.Builder
	prevHyphen := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c == '-' {
			if prevHyphen {
				continue
			}
			prevHyphen = true
		} else {
			prevHyphen = false
		}
		b.WriteByte(c)
	}
	return b.String()
}

func isLowerLetter(c byte) bool {
	return c >= 'a' && c <= 'z'
}

// ValidateHandle is shared by agent creation and rename paths.
func ValidateHandle(handle string) error {
	n := utf8.RuneCountInString(handle)
	if n < MinHandleLen {
		return NewValidationError("handle", "HANDLE_TOO_SHORT", fmt.Sprintf("handle must be at least %d characters", MinHandleLen))
	}
	if n > MaxHandleLen {
		return NewValidationError("handle", "HANDLE_TOO_LONG", fmt.Sprintf("handle must be at most %d characters", MaxHandleLen))
	}
	if strings.ToLower(handle) != handle {
		return NewValidationError("handle", "HANDLE_UPPERCASE", "handle must be lowercase")
	}
	if !isLowerLetter(handle[0]) {
		return NewValidationError("handle", "HANDLE_MUST_START_WITH_LETTER", "handle must start with a letter")
	}
	for i := 0; i < len(handle); i++ {
		c := handle[i]
		if !isLowerLetter(c) && !(c >= '0' && c <= '9') && c != '-' {
			return NewValidationError("handle", "HANDLE_INVALID_CHARS", "handle may only contain lowercase letters, digits and hyphens")
		}
	}
	if strings.Contains(handle, "--") {
		return NewValidationError("handle", "HANDLE_CONSECUTIVE_HYPHENS", "handle must not contain consecutive hyphens")
	}
	if strings.HasSuffix(handle, "-") {
		return NewValidationError("handle", "HANDLE_TRAILING_HYPHEN", "handle must end with a letter or digit")
	}
	return nil
}

// NormalizeHandle trims and lowercases user input before validation.
func NormalizeHandle(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// EnsureUnique returns base if free, otherwise base with a random suffix. The
// suffixed form is not re-checked; the unique index catches the rare collision.
func EnsureUnique(ctx context.Context, base string, exists HandleExists) (string, error) {
	taken, err := exists(ctx, base)
	if err != nil {
		return "", err
	}
	if !taken {
		return base, nil
	}
	return suffixedHandle(base)
}

// EnsureUniqueStrict keeps drawing suffixes until one is free. Used by the
// backfill migration, which has no user to report a collision to.
func EnsureUniqueStrict(ctx context.Context, base string, exists HandleExists) (string, error) {
	candidate := base
	for attempt := 0; attempt < strictAttempts; attempt++ {
		taken, err := exists(ctx, candidate)
		if err != nil {
			return "", err
		}
		if !taken {
			return candidate, nil
		}
		candidate, err = suffixedHandle(base)
		if err != nil {
			return "", err
		}
	}
	return "", errors.New("could not find a free handle for " + base)
}

func suffixedHandle(base string) (string, error) {
	prefix := base
	if len(prefix) > handleSuffixBase {
		prefix = prefix[:handleSuffixBase]
	}
	prefix = strings.TrimRight(prefix, "-")
	suffix, err := randomString(handleAlphabet, handleSuffixLen)
	if err != nil {
		return "", err
	}
	return prefix + "-" + suffix, nil
}

func randomString(alphabet string, n int) (string, error) {
	max := big.NewInt(int64(len(alphabet)))
	out := make([]byte, n)
	for i := range out {
		idx, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", err
		}
		out[i] = alphabet[idx.Int64()]
	}
	return string(out), nil
}
