package validation

import (
	"net/mail"
	"regexp"
	"strings"
	"unicode/utf8"

	"portfolio/internal/models"
)

const (
	MaxNameLength        = 100
	MinMessageLength     = 10
	MaxMessageLength     = 2000
	MaxEmailLength       = 254
	MaxGeolocationLength = 200
	MaxUserAgentLength   = 255
)

var (
	emailRegex       = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	geolocationRegex = regexp.MustCompile(`^[\p{L}\p{N}\s,.'()°/\-]+$`)
)

// ContactInput is a sanitized, validated contact submission.
type ContactInput struct {
	Name    string
	Email   string
	Message string
}

// ValidateContact sanitizes name and message, normalizes the email and checks
// every field. The first failing field is reported.
func ValidateContact(name, email, message string) (ContactInput, error) {
	in := ContactInput{
		Name:    Sanitize(name),
		Email:   strings.ToLower(strings.TrimSpace(email)),
		Message: Sanitize(message),
	}

	switch n := utf8.RuneCountInString(in.Name); {
	case n == 0:
		return ContactInput{}, models.NewValidationError("Name is required")
	case n > MaxNameLength:
		return ContactInput{}, models.NewValidationError("Name must be 100 characters or less")
	}

	if in.Email == "" {
		return ContactInput{}, models.NewValidationError("Email is required")
	}
	if len(in.Email) > MaxEmailLength || !emailRegex.MatchString(in.Email) || !mailboxAddress(in.Email) {
		return ContactInput{}, models.NewValidationError("Invalid email address")
	}

	switch n := utf8.RuneCountInString(in.Message); {
	case n == 0:
		return ContactInput{}, models.NewValidationError("Message is required")
	case n < MinMessageLength:
		return ContactInput{}, models.NewValidationError("Message must be at least 10 characters")
	case n > MaxMessageLength:
		return ContactInput{}, models.NewValidationError("Message must be 2000 characters or less")
	}

	return in, nil
}

// mailboxAddress reports whether email parses as a bare RFC 5322 address, the
// form the mailer needs for To and Reply-To headers.
func mailboxAddress(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Name == "" && addr.Address == email
}

// Geolocation sanitizes a client-supplied location label. It reports false
// when the value is absent or does not look like a place name.
func Geolocation(raw *string) (string, bool) {
	if raw == nil {
		return "", false
	}
	v := Sanitize(*raw)
	if v == "" || utf8.RuneCountInString(v) > MaxGeolocationLength {
		return "", false
	}
	if !geolocationRegex.MatchString(v) {
		return "", false
	}
	return v, true
}

// UserAgent truncates a user agent for storage.
func UserAgent(ua string) string {
	ua = strings.TrimSpace(ua)
	if utf8.RuneCountInString(ua) <= MaxUserAgentLength {
		return ua
	}
	return string([]rune(ua)[:MaxUserAgentLength])
}
