// Package validator implements the ingestion-time checks the URL service
// runs before normalizing and persisting a submission. Redirect-time
// defenses (open-redirect guard, host allowlisting) live in the redirect
// dispatcher instead — ingestion only rejects malformed or oversized input.
package validator

import (
	"net/url"
	"strings"

	"github.com/northbeam-io/shortlink/internal/domain"
)

// URLValidator enforces the length bound and scheme restriction a
// submitted URL must satisfy before it is eligible for normalization.
type URLValidator struct {
	maxLength int
}

// NewURLValidator builds a validator with the configured maximum URL
// length (the spec default is 2048).
func NewURLValidator(maxLength int) *URLValidator {
	if maxLength <= 0 {
		maxLength = 2048
	}
	return &URLValidator{maxLength: maxLength}
}

// Validate returns domain.ErrURLTooLong or domain.ErrInvalidURL on
// violation, nil otherwise.
func (v *URLValidator) Validate(raw string) error {
	if raw == "" {
		return domain.ErrInvalidURL
	}
	if len(raw) > v.maxLength {
		return domain.ErrURLTooLong
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return domain.ErrInvalidURL
	}
	if parsed.Host == "" {
		return domain.ErrInvalidURL
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https":
	default:
		return domain.ErrInvalidURL
	}

	return nil
}
