package validation

import (
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"portfolio/internal/models"
)

const (
	MaxFingerprintLength = 50
	MaxPostIDLength      = 200
)

var fingerprintRegex = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Fingerprint checks an anonymous client fingerprint. It becomes part of KV
// keys and set members, so only a restricted alphabet is accepted.
func Fingerprint(fp string) error {
	if fp == "" || len(fp) > MaxFingerprintLength || !fingerprintRegex.MatchString(fp) {
		return models.NewValidationError("Invalid fingerprint")
	}
	return nil
}

// PostID checks a post identifier. Post IDs are opaque; only emptiness,
// length, whitespace and control characters are rejected.
func PostID(id string) (string, error) {
	id = strings.TrimSpace(id)
	if id == "" || utf8.RuneCountInString(id) > MaxPostIDLength {
		return "", models.NewValidationError("Invalid post ID")
	}
	for _, r := range id {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return "", models.NewValidationError("Invalid post ID")
		}
	}
	return id, nil
}
