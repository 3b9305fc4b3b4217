// Package shortcode implements the code allocator: production of random
// opaque short codes, and validation of user-requested custom aliases.
package shortcode

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"

	"github.com/northbeam-io/shortlink/internal/domain"
)

// alphabet is the full charset the spec allows for both generated codes and
// custom aliases: upper/lower letters, digits, underscore, hyphen.
const alphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789_-"

const (
	minLength = 4
	maxLength = 16

	aliasMinLength = 3
	aliasMaxLength = 50

	maxCollisionAttempts = 10
	collisionGrowStep    = 2
)

var codeFormat = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// ExistsFunc probes the authoritative store for a code; it must not consult
// a cache, since the allocator's collision guarantee is only as strong as
// the store it probes.
type ExistsFunc func(ctx context.Context, code string) (bool, error)

// Allocator mints random codes of a configured length.
type Allocator struct {
	length int
}

// New builds an Allocator, clamping an out-of-range configured length back
// to the default of 7.
func New(length int) *Allocator {
	if length < minLength || length > maxLength {
		length = 7
	}
	return &Allocator{length: length}
}

// Allocate produces a code unused according to exists. It tries up to
// maxCollisionAttempts codes at the configured length; if every one
// collides, it makes one further attempt at length+collisionGrowStep before
// giving up.
func (a *Allocator) Allocate(ctx context.Context, exists ExistsFunc) (string, error) {
	for attempt := 0; attempt < maxCollisionAttempts; attempt++ {
		code, err := randomCode(a.length)
		if err != nil {
			return "", fmt.Errorf("generate random code: %w", err)
		}
		taken, err := exists(ctx, code)
		if err != nil {
			return "", err
		}
		if !taken {
			return code, nil
		}
	}

	code, err := randomCode(a.length + collisionGrowStep)
	if err != nil {
		return "", fmt.Errorf("generate random code: %w", err)
	}
	taken, err := exists(ctx, code)
	if err != nil {
		return "", err
	}
	if taken {
		return "", domain.Wrap(domain.CodeInternal, "code allocator exhausted its collision budget", nil)
	}
	return code, nil
}

func randomCode(length int) (string, error) {
	result := make([]byte, length)
	alphabetLen := big.NewInt(int64(len(alphabet)))
	for i := range result {
		idx, err := rand.Int(rand.Reader, alphabetLen)
		if err != nil {
			return "", err
		}
		result[i] = alphabet[idx.Int64()]
	}
	return string(result), nil
}

// ValidateAlias checks a custom alias against the spec's charset and
// length rules, returning the typed ALIAS_INVALID error on failure.
func ValidateAlias(alias string) error {
	if len(alias) < aliasMinLength || len(alias) > aliasMaxLength {
		return domain.ErrAliasInvalid
	}
	if !codeFormat.MatchString(alias) {
		return domain.ErrAliasInvalid
	}
	return nil
}

// IsValidCode reports whether code could plausibly name a UrlRecord: the
// charset the redirect dispatcher enforces before ever consulting the
// store, plus the record-level length bound.
func IsValidCode(code string) bool {
	if len(code) < aliasMinLength || len(code) > aliasMaxLength {
		return false
	}
	return codeFormat.MatchString(code)
}
