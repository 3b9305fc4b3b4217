// Package interfaces defines the narrow adapter contracts each storage
// technology behind the service implements. They take plain domain
// structs; unique-constraint enforcement and commutative-counter
// semantics live in the concrete store, not in application code.
package interfaces

import (
	"context"
	"time"

	"github.com/northbeam-io/shortlink/internal/domain"
)

// PrimaryStore is the durable key→record store for UrlRecords (§4.C).
type PrimaryStore interface {
	// Insert persists record atomically. Violating the unique index on
	// code or normalized returns a domain.AppError with CodeConflict and
	// Details naming the violated field ("code" or "normalized").
	Insert(ctx context.Context, record *domain.UrlRecord) error

	FindByCode(ctx context.Context, code string) (*domain.UrlRecord, error)
	FindByNormalized(ctx context.Context, normalized string) (*domain.UrlRecord, error)
	ExistsByCode(ctx context.Context, code string) (bool, error)

	// Delete removes the record for code, reporting whether a row was
	// actually removed.
	Delete(ctx context.Context, code string) (bool, error)

	// IncrementHitCount is a best-effort atomic counter update; it must
	// never block the redirect path, so callers invoke it from a
	// background task.
	IncrementHitCount(ctx context.Context, code string, delta int64) error

	List(ctx context.Context, filter domain.ListFilter) (*domain.ListResult, error)
	Stats(ctx context.Context, now time.Time) (*domain.URLStats, error)

	GetExpired(ctx context.Context, limit int) ([]*domain.UrlRecord, error)
}

// RedirectCache is the low-latency code→target cache with TTL (§4.D).
type RedirectCache interface {
	Get(ctx context.Context, code string) (*domain.CachedTarget, bool, error)
	SetWithTTL(ctx context.Context, target *domain.CachedTarget, ttl time.Duration) error
	Invalidate(ctx context.Context, code string) error
}

// RateLimiter is the counted rate-limit primitive the redirect cache's
// backing store also provides; its algorithmic internals sit outside the
// core's invariant set, but the HTTP boundary still depends on it.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (allowed bool, remaining int, err error)
}

// EventBus is the partitioned, ordered-per-key, at-least-once log of hit
// events (§4.E).
type EventBus interface {
	// Publish is non-blocking from the caller's perspective; durability
	// is achieved before it returns successfully.
	Publish(ctx context.Context, key string, event *domain.HitEvent) error
}

// HitEventHandler processes one delivered HitEvent; returning an error
// prevents the analytics consumer from advancing its offset for that
// message.
type HitEventHandler func(ctx context.Context, event *domain.HitEvent) error

// EventConsumer is the consumer-group side of the event bus, used only by
// the analytics consumer process.
type EventConsumer interface {
	// Subscribe runs handler for every delivered message until ctx is
	// cancelled, acking only after handler returns nil.
	Subscribe(ctx context.Context, handler HitEventHandler) error
}

// ReferrerCount, GeoCount and DeviceCount are the enumerable dimensions
// Analytics Query aggregates from the Analytics Store.
type ReferrerCount struct {
	Referrer string
	Count    int64
}

type GeoCount struct {
	Country string
	Count   int64
}

type DeviceCount struct {
	Key   string
	Count int64
}

// TimeBucket is one point of a time-series query result.
type TimeBucket struct {
	BucketStart time.Time
	Hits        int64
}

// AccessTimes is the first/last-seen row for a code.
type AccessTimes struct {
	FirstAt time.Time
	LastAt  time.Time
}

// Granularity selects the bucket width of a time-series query.
type Granularity string

const (
	GranularityMinute Granularity = "minute"
	GranularityHour   Granularity = "hour"
	GranularityDay    Granularity = "day"
)

// AnalyticsStore is the wide-column counter store with per-code
// partitioning (§4.F).
type AnalyticsStore interface {
	// ApplyHit applies the counter batch for one HitEvent:
	// hitsByHour, hitsByMinute, referrers (if present and not "direct"),
	// geographic (if country present), devices (always, "unknown" fill).
	// The ClickHouse store writes each table with its own insert, so the
	// batch is not atomic: an error part-way leaves the earlier inserts
	// applied.
	ApplyHit(ctx context.Context, event *domain.HitEvent) error

	TouchAccessTimes(ctx context.Context, code string, at time.Time) error

	// RecordUniqueVisitor is an idempotent set insert keyed by
	// (code, date, visitorHash).
	RecordUniqueVisitor(ctx context.Context, code string, date time.Time, visitorHash string) error

	TimeSeries(ctx context.Context, code string, start, end time.Time, granularity Granularity) ([]TimeBucket, error)
	TopReferrers(ctx context.Context, code string, limit int) ([]ReferrerCount, error)
	TopGeographic(ctx context.Context, code string, limit int) ([]GeoCount, error)
	DeviceBreakdown(ctx context.Context, code string) ([]DeviceCount, error)
	BrowserBreakdown(ctx context.Context, code string) ([]DeviceCount, error)
	GetAccessTimes(ctx context.Context, code string) (*AccessTimes, bool, error)
	TotalHits(ctx context.Context, code string, start, end time.Time) (int64, error)
}
