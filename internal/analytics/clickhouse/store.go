// Package clickhouse implements the analytics store (§4.F) as a set of
// wide-column counter tables in ClickHouse. Hit counters use
// SummingMergeTree so concurrent inserts of partial rows merge into correct
// totals in the background; access-time bookkeeping uses ReplacingMergeTree
// keyed by code and versioned by event timestamp, so after a merge the row
// written for the newest event time wins.
package clickhouse

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/ClickHouse/clickhouse-go/v2"

	"github.com/northbeam-io/shortlink/internal/domain"
	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
)

const schema = `
CREATE TABLE IF NOT EXISTS hits_by_hour (
	code        String,
	bucket      DateTime,
	hits        UInt64
) ENGINE = SummingMergeTree(hits)
ORDER BY (code, bucket);

CREATE TABLE IF NOT EXISTS hits_by_minute (
	code        String,
	bucket      DateTime,
	hits        UInt64
) ENGINE = SummingMergeTree(hits)
ORDER BY (code, bucket)
TTL bucket + INTERVAL 30 DAY;

CREATE TABLE IF NOT EXISTS referrers (
	code        String,
	referrer    String,
	hits        UInt64
) ENGINE = SummingMergeTree(hits)
ORDER BY (code, referrer);

CREATE TABLE IF NOT EXISTS geographic (
	code        String,
	country     String,
	hits        UInt64
) ENGINE = SummingMergeTree(hits)
ORDER BY (code, country);

CREATE TABLE IF NOT EXISTS devices (
	code         String,
	device_type  String,
	browser      String,
	hits         UInt64
) ENGINE = SummingMergeTree(hits)
ORDER BY (code, device_type, browser);

CREATE TABLE IF NOT EXISTS access_times (
	code      String,
	first_at  DateTime,
	last_at   DateTime,
	version   UInt64
) ENGINE = ReplacingMergeTree(version)
ORDER BY code;

CREATE TABLE IF NOT EXISTS unique_visitors (
	code          String,
	date          Date,
	visitor_hash  String
) ENGINE = MergeTree
ORDER BY (code, date, visitor_hash)
TTL date + INTERVAL 90 DAY;
`

// Store implements interfaces.AnalyticsStore.
type Store struct {
	db *sql.DB
}

// New wraps an existing *sql.DB opened with clickhouse-go's database/sql
// driver ("clickhouse").
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func (s *Store) EnsureSchema(ctx context.Context) error {
	for _, stmt := range splitStatements(schema) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("ensure analytics schema: %w", err)
		}
	}
	return nil
}

func (s *Store) ApplyHit(ctx context.Context, event *domain.HitEvent) error {
	hour := event.Timestamp.Truncate(time.Hour)
	minute := event.Timestamp.Truncate(time.Minute)

	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO hits_by_hour (code, bucket, hits) VALUES (?, ?, 1)`,
		event.Code, hour); err != nil {
		return domain.Wrap(domain.CodeDependencyUnavailable, "apply hit: hits_by_hour", err)
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO hits_by_minute (code, bucket, hits) VALUES (?, ?, 1)`,
		event.Code, minute); err != nil {
		return domain.Wrap(domain.CodeDependencyUnavailable, "apply hit: hits_by_minute", err)
	}

	if event.Referrer != "" && event.Referrer != "direct" {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO referrers (code, referrer, hits) VALUES (?, ?, 1)`,
			event.Code, event.Referrer); err != nil {
			return domain.Wrap(domain.CodeDependencyUnavailable, "apply hit: referrers", err)
		}
	}

	if event.Country != "" {
		if _, err := s.db.ExecContext(ctx,
			`INSERT INTO geographic (code, country, hits) VALUES (?, ?, 1)`,
			event.Code, event.Country); err != nil {
			return domain.Wrap(domain.CodeDependencyUnavailable, "apply hit: geographic", err)
		}
	}

	deviceType := event.DeviceType
	if deviceType == "" {
		deviceType = "unknown"
	}
	browser := event.Browser
	if browser == "" {
		browser = "unknown"
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO devices (code, device_type, browser, hits) VALUES (?, ?, ?, 1)`,
		event.Code, deviceType, browser); err != nil {
		return domain.Wrap(domain.CodeDependencyUnavailable, "apply hit: devices", err)
	}

	return nil
}

func (s *Store) TouchAccessTimes(ctx context.Context, code string, at time.Time) error {
	existing, ok, err := s.GetAccessTimes(ctx, code)
	if err != nil {
		return err
	}
	first := at
	if ok && existing.FirstAt.Before(at) {
		first = existing.FirstAt
	}
	version := uint64(at.UnixNano())
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO access_times (code, first_at, last_at, version) VALUES (?, ?, ?, ?)`,
		code, first, at, version); err != nil {
		return domain.Wrap(domain.CodeDependencyUnavailable, "touch access times", err)
	}
	return nil
}

func (s *Store) RecordUniqueVisitor(ctx context.Context, code string, date time.Time, visitorHash string) error {
	day := date.Truncate(24 * time.Hour)
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO unique_visitors (code, date, visitor_hash) VALUES (?, ?, ?)`,
		code, day, visitorHash); err != nil {
		return domain.Wrap(domain.CodeDependencyUnavailable, "record unique visitor", err)
	}
	return nil
}

func bucketTable(granularity interfaces.Granularity) (table, truncExpr string) {
	switch granularity {
	case interfaces.GranularityMinute:
		return "hits_by_minute", "bucket"
	case interfaces.GranularityDay:
		return "hits_by_hour", "toStartOfDay(bucket)"
	default:
		return "hits_by_hour", "bucket"
	}
}

func (s *Store) TimeSeries(ctx context.Context, code string, start, end time.Time, granularity interfaces.Granularity) ([]interfaces.TimeBucket, error) {
	table, truncExpr := bucketTable(granularity)
	query := fmt.Sprintf(`
		SELECT %s AS b, sum(hits) AS total
		FROM %s
		WHERE code = ? AND bucket >= ? AND bucket < ?
		GROUP BY b
		ORDER BY b ASC
	`, truncExpr, table)

	rows, err := s.db.QueryContext(ctx, query, code, start, end)
	if err != nil {
		return nil, domain.Wrap(domain.CodeDependencyUnavailable, "time series", err)
	}
	defer rows.Close()

	var out []interfaces.TimeBucket
	for rows.Next() {
		var b interfaces.TimeBucket
		if err := rows.Scan(&b.BucketStart, &b.Hits); err != nil {
			return nil, domain.Wrap(domain.CodeInternal, "scan time bucket", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *Store) TopReferrers(ctx context.Context, code string, limit int) ([]interfaces.ReferrerCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT referrer, sum(hits) AS total
		FROM referrers
		WHERE code = ?
		GROUP BY referrer
		ORDER BY total DESC
		LIMIT ?
	`, code, limit)
	if err != nil {
		return nil, domain.Wrap(domain.CodeDependencyUnavailable, "top referrers", err)
	}
	defer rows.Close()

	var out []interfaces.ReferrerCount
	for rows.Next() {
		var c interfaces.ReferrerCount
		if err := rows.Scan(&c.Referrer, &c.Count); err != nil {
			return nil, domain.Wrap(domain.CodeInternal, "scan referrer count", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) TopGeographic(ctx context.Context, code string, limit int) ([]interfaces.GeoCount, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT country, sum(hits) AS total
		FROM geographic
		WHERE code = ?
		GROUP BY country
		ORDER BY total DESC
		LIMIT ?
	`, code, limit)
	if err != nil {
		return nil, domain.Wrap(domain.CodeDependencyUnavailable, "top geographic", err)
	}
	defer rows.Close()

	var out []interfaces.GeoCount
	for rows.Next() {
		var c interfaces.GeoCount
		if err := rows.Scan(&c.Country, &c.Count); err != nil {
			return nil, domain.Wrap(domain.CodeInternal, "scan geo count", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) DeviceBreakdown(ctx context.Context, code string) ([]interfaces.DeviceCount, error) {
	return s.deviceDimension(ctx, code, "device_type")
}

func (s *Store) BrowserBreakdown(ctx context.Context, code string) ([]interfaces.DeviceCount, error) {
	return s.deviceDimension(ctx, code, "browser")
}

func (s *Store) deviceDimension(ctx context.Context, code, column string) ([]interfaces.DeviceCount, error) {
	query := fmt.Sprintf(`
		SELECT %s AS k, sum(hits) AS total
		FROM devices
		WHERE code = ?
		GROUP BY k
		ORDER BY total DESC
	`, column)
	rows, err := s.db.QueryContext(ctx, query, code)
	if err != nil {
		return nil, domain.Wrap(domain.CodeDependencyUnavailable, "device dimension "+column, err)
	}
	defer rows.Close()

	var out []interfaces.DeviceCount
	for rows.Next() {
		var c interfaces.DeviceCount
		if err := rows.Scan(&c.Key, &c.Count); err != nil {
			return nil, domain.Wrap(domain.CodeInternal, "scan device count", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) GetAccessTimes(ctx context.Context, code string) (*interfaces.AccessTimes, bool, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT first_at, last_at
		FROM access_times
		FINAL
		WHERE code = ?
	`, code)
	var at interfaces.AccessTimes
	if err := row.Scan(&at.FirstAt, &at.LastAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, domain.Wrap(domain.CodeDependencyUnavailable, "get access times", err)
	}
	return &at, true, nil
}

func (s *Store) TotalHits(ctx context.Context, code string, start, end time.Time) (int64, error) {
	var total sql.NullInt64
	row := s.db.QueryRowContext(ctx, `
		SELECT sum(hits) FROM hits_by_hour
		WHERE code = ? AND bucket >= ? AND bucket < ?
	`, code, start, end)
	if err := row.Scan(&total); err != nil {
		return 0, domain.Wrap(domain.CodeDependencyUnavailable, "total hits", err)
	}
	return total.Int64, nil
}

// splitStatements separates the DDL script on statement-terminating
// semicolons, since the clickhouse driver does not support executing
// several statements in one call.
func splitStatements(script string) []string {
	var out []string
	for _, stmt := range strings.Split(script, ";") {
		if trimmed := strings.TrimSpace(stmt); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
