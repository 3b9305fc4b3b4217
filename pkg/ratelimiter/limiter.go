// Package ratelimiter adapts the sliding-window RateLimiter primitive
// (§4.D) into key-generation and HTTP-facing convenience wrappers. The
// counting and window bookkeeping live entirely in the backing store; this
// package only builds keys and shapes the result for callers.
package ratelimiter

import (
	"context"
	"fmt"
	"net"
	"strings"
	"time"

	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
)

// RateLimiter wraps the shared sliding-window primitive with a fixed
// limit/window pair, so callers don't have to repeat them at every call
// site.
type RateLimiter struct {
	store  interfaces.RateLimiter
	limit  int
	window time.Duration
}

// New builds a RateLimiter bound to limit requests per window.
func New(store interfaces.RateLimiter, limit int, window time.Duration) *RateLimiter {
	return &RateLimiter{store: store, limit: limit, window: window}
}

// Allow reports whether key may proceed under the bound limit/window.
func (rl *RateLimiter) Allow(ctx context.Context, key string) (bool, int, error) {
	allowed, remaining, err := rl.store.Allow(ctx, key, rl.limit, rl.window)
	if err != nil {
		return false, 0, fmt.Errorf("check rate limit: %w", err)
	}
	return allowed, remaining, nil
}

// Info describes the outcome of a rate limit check for a key.
type Info struct {
	Key       string    `json:"key"`
	Limit     int       `json:"limit"`
	Remaining int       `json:"remaining"`
	ResetTime time.Time `json:"reset_time"`
}

// KeyGenerator builds namespaced rate-limit keys so unrelated dimensions
// (IP, user, endpoint) never collide in the backing store.
type KeyGenerator struct{}

// NewKeyGenerator creates a new key generator.
func NewKeyGenerator() *KeyGenerator {
	return &KeyGenerator{}
}

// IPKey generates a key based on IP address.
func (kg *KeyGenerator) IPKey(ip string) string {
	return fmt.Sprintf("ip:%s", kg.normalizeIP(ip))
}

// UserKey generates a key based on user ID.
func (kg *KeyGenerator) UserKey(userID string) string {
	return fmt.Sprintf("user:%s", userID)
}

// APIKey generates a key based on API key.
func (kg *KeyGenerator) APIKey(apiKey string) string {
	return fmt.Sprintf("api:%s", apiKey)
}

// EndpointKey generates a key based on endpoint and IP.
func (kg *KeyGenerator) EndpointKey(endpoint, ip string) string {
	return fmt.Sprintf("endpoint:%s:ip:%s", endpoint, kg.normalizeIP(ip))
}

// GlobalKey generates a global rate limit key.
func (kg *KeyGenerator) GlobalKey(prefix string) string {
	return fmt.Sprintf("global:%s", prefix)
}

// CompositeKey generates a composite key from multiple components.
func (kg *KeyGenerator) CompositeKey(components ...string) string {
	return strings.Join(components, ":")
}

func (kg *KeyGenerator) normalizeIP(ip string) string {
	if parsedIP := net.ParseIP(ip); parsedIP != nil {
		if ipv4 := parsedIP.To4(); ipv4 != nil {
			return ipv4.String()
		}
		return parsedIP.String()
	}
	return ip
}

// Middleware provides rate limiting convenience methods keyed by IP, user,
// or endpoint, each built on the same bound RateLimiter.
type Middleware struct {
	limiter      *RateLimiter
	keyGenerator *KeyGenerator
}

// NewMiddleware creates a new rate limiting middleware wrapper.
func NewMiddleware(limiter *RateLimiter) *Middleware {
	return &Middleware{
		limiter:      limiter,
		keyGenerator: NewKeyGenerator(),
	}
}

// CheckIPRateLimit checks the rate limit for an IP address.
func (m *Middleware) CheckIPRateLimit(ctx context.Context, ip string) (bool, *Info, error) {
	return m.check(ctx, m.keyGenerator.IPKey(ip))
}

// CheckUserRateLimit checks the rate limit for a user.
func (m *Middleware) CheckUserRateLimit(ctx context.Context, userID string) (bool, *Info, error) {
	return m.check(ctx, m.keyGenerator.UserKey(userID))
}

// CheckEndpointRateLimit checks the rate limit for an endpoint and IP
// combination.
func (m *Middleware) CheckEndpointRateLimit(ctx context.Context, endpoint, ip string) (bool, *Info, error) {
	return m.check(ctx, m.keyGenerator.EndpointKey(endpoint, ip))
}

func (m *Middleware) check(ctx context.Context, key string) (bool, *Info, error) {
	allowed, remaining, err := m.limiter.Allow(ctx, key)
	if err != nil {
		return false, nil, err
	}
	info := &Info{
		Key:       key,
		Limit:     m.limiter.limit,
		Remaining: remaining,
		ResetTime: time.Now().Add(m.limiter.window),
	}
	return allowed, info, nil
}
