// Package consumer implements the analytics consumer (§4.I): the
// per-message business logic applied to every HitEvent delivered off the
// event bus. Batching and bounded in-flight concurrency live in the event
// bus adapter; this package owns validation and the per-message application
// of the counter batch, access times and unique visitor. Each of these is a
// separate store call, so the three are not applied atomically.
package consumer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"go.uber.org/zap"

	"github.com/northbeam-io/shortlink/internal/domain"
	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
)

const (
	maxClockSkewBehind = 24 * time.Hour
	maxClockSkewAhead  = 5 * time.Minute
)

// Consumer applies validated HitEvents to the analytics store.
type Consumer struct {
	store  interfaces.AnalyticsStore
	logger *zap.Logger
}

// New builds a Consumer.
func New(store interfaces.AnalyticsStore, logger *zap.Logger) *Consumer {
	return &Consumer{store: store, logger: logger}
}

// Handle implements interfaces.HitEventHandler: reject out-of-tolerance or
// incomplete events, then apply the counter batch, touchAccessTimes, and
// recordUniqueVisitor. The analytics store's counters are commutative, so
// retrying this call on transient failure is always safe.
func (c *Consumer) Handle(ctx context.Context, event *domain.HitEvent) error {
	if err := validate(event); err != nil {
		c.logger.Warn("dropping malformed hit event", zap.String("code", event.Code), zap.Error(err))
		return nil
	}

	if err := c.store.ApplyHit(ctx, event); err != nil {
		return err
	}
	if err := c.store.TouchAccessTimes(ctx, event.Code, event.Timestamp); err != nil {
		return err
	}
	if err := c.store.RecordUniqueVisitor(ctx, event.Code, event.Timestamp, visitorHash(event.IP, event.UserAgent)); err != nil {
		return err
	}
	return nil
}

// visitorHash is the first 16 hex chars of SHA-256 over "ip:userAgent" —
// deliberately not a reversible PII token.
func visitorHash(ip, userAgent string) string {
	sum := sha256.Sum256([]byte(ip + ":" + userAgent))
	return hex.EncodeToString(sum[:])[:16]
}

type malformedEventError struct{ reason string }

func (e *malformedEventError) Error() string { return "malformed hit event: " + e.reason }

func validate(event *domain.HitEvent) error {
	if event.Code == "" {
		return &malformedEventError{"missing code"}
	}
	if event.Timestamp.IsZero() {
		return &malformedEventError{"missing timestamp"}
	}
	if event.IP == "" {
		return &malformedEventError{"missing ip"}
	}
	if event.UserAgent == "" {
		return &malformedEventError{"missing userAgent"}
	}
	now := time.Now()
	if event.Timestamp.Before(now.Add(-maxClockSkewBehind)) || event.Timestamp.After(now.Add(maxClockSkewAhead)) {
		return &malformedEventError{"timestamp outside tolerance window"}
	}
	return nil
}
