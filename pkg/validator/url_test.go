package validator

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/northbeam-io/shortlink/internal/domain"
)

func TestURLValidator_Validate(t *testing.T) {
	v := NewURLValidator(2048)

	tests := []struct {
		name      string
		url       string
		expectErr error
	}{
		{"valid http", "http://example.com", nil},
		{"valid https", "https://example.com", nil},
		{"valid with path", "https://example.com/path/to/page", nil},
		{"valid with query", "https://example.com?param=value", nil},
		{"valid with port", "https://example.com:8080", nil},
		{"localhost is accepted at ingestion", "http://localhost", nil},
		{"private ip is accepted at ingestion", "http://192.168.1.1", nil},

		{"empty", "", domain.ErrInvalidURL},
		{"unsupported scheme ftp", "ftp://example.com", domain.ErrInvalidURL},
		{"no scheme", "example.com", domain.ErrInvalidURL},
		{"only scheme, no host", "https://", domain.ErrInvalidURL},
		{"javascript scheme", "javascript:alert('xss')", domain.ErrInvalidURL},
		{"too long", "https://example.com/" + strings.Repeat("a", 2100), domain.ErrURLTooLong},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(tt.url)
			if tt.expectErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.expectErr)
		})
	}
}

func TestURLValidator_DefaultMaxLength(t *testing.T) {
	v := NewURLValidator(0)
	assert.NoError(t, v.Validate("https://example.com"))
	assert.ErrorIs(t, v.Validate("https://example.com/"+strings.Repeat("a", 2049)), domain.ErrURLTooLong)
}
