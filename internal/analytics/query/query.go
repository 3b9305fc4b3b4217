// Package query implements the analytics query service (§4.J): it
// aggregates counter rows out of the analytics store into the dashboard
// response shapes the HTTP boundary serves. Empty buckets are materialized
// on read rather than relying on the store to gap-fill.
package query

import (
	"context"
	"time"

	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
)

const defaultTopN = 10

// Bucket is one point of a zero-filled time series.
type Bucket struct {
	BucketStart time.Time `json:"bucketStart"`
	Hits        int64     `json:"hits"`
}

// Share pairs a dimension key with its count and share of the dimension's
// total.
type Share struct {
	Key        string  `json:"key"`
	Count      int64   `json:"count"`
	Percentage float64 `json:"percentage"`
}

// Report is the full getAnalytics payload for one code.
type Report struct {
	Code        string    `json:"code"`
	TimeSeries  []Bucket  `json:"timeSeries"`
	Referrers   []Share   `json:"topReferrers"`
	Geographic  []Share   `json:"geographic"`
	Devices     []Share   `json:"devices"`
	Browsers    []Share   `json:"browsers"`
	FirstAt     time.Time `json:"firstAccessed,omitempty"`
	LastAt      time.Time `json:"lastAccessed,omitempty"`
	HasAccessed bool      `json:"-"`
	Total       int64     `json:"total"`
}

// Summary is the condensed view served by /summary: totals and access
// times only, no dimension breakdowns.
type Summary struct {
	Code    string    `json:"code"`
	Total   int64     `json:"total"`
	FirstAt time.Time `json:"firstAccessed,omitempty"`
	LastAt  time.Time `json:"lastAccessed,omitempty"`
}

// Service answers getAnalytics against an AnalyticsStore.
type Service struct {
	store interfaces.AnalyticsStore
}

// New builds a Service.
func New(store interfaces.AnalyticsStore) *Service {
	return &Service{store: store}
}

// GetAnalytics runs the full §4.J aggregation for code over
// [start, end) at the given granularity. topLimit caps the cardinality of
// the topReferrers/geographic breakdowns; 0 or negative falls back to
// defaultTopN.
func (s *Service) GetAnalytics(ctx context.Context, code string, start, end time.Time, granularity interfaces.Granularity, topLimit int) (*Report, error) {
	if topLimit <= 0 {
		topLimit = defaultTopN
	}

	rawSeries, err := s.store.TimeSeries(ctx, code, start, end, granularity)
	if err != nil {
		return nil, err
	}
	referrers, err := s.store.TopReferrers(ctx, code, topLimit)
	if err != nil {
		return nil, err
	}
	geo, err := s.store.TopGeographic(ctx, code, topLimit)
	if err != nil {
		return nil, err
	}
	devices, err := s.store.DeviceBreakdown(ctx, code)
	if err != nil {
		return nil, err
	}
	browsers, err := s.store.BrowserBreakdown(ctx, code)
	if err != nil {
		return nil, err
	}
	accessTimes, found, err := s.store.GetAccessTimes(ctx, code)
	if err != nil {
		return nil, err
	}
	total, err := s.store.TotalHits(ctx, code, start, end)
	if err != nil {
		return nil, err
	}

	report := &Report{
		Code:       code,
		TimeSeries: fillBuckets(rawSeries, start, end, granularity),
		Referrers:  shareReferrers(referrers),
		Geographic: shareGeographic(geo),
		Devices:    shareDevices(devices),
		Browsers:   shareDevices(browsers),
		Total:      total,
	}
	if found {
		report.FirstAt = accessTimes.FirstAt
		report.LastAt = accessTimes.LastAt
		report.HasAccessed = true
	}
	return report, nil
}

// GetSummary runs the condensed variant served by /summary: totals and
// access times only.
func (s *Service) GetSummary(ctx context.Context, code string, start, end time.Time) (*Summary, error) {
	total, err := s.store.TotalHits(ctx, code, start, end)
	if err != nil {
		return nil, err
	}
	accessTimes, found, err := s.store.GetAccessTimes(ctx, code)
	if err != nil {
		return nil, err
	}
	summary := &Summary{Code: code, Total: total}
	if found {
		summary.FirstAt = accessTimes.FirstAt
		summary.LastAt = accessTimes.LastAt
	}
	return summary, nil
}

// fillBuckets walks [start, end) at granularity's step and left-joins the
// store's (possibly sparse) rows onto the full sequence, so missing buckets
// read as zero rather than being absent.
func fillBuckets(rows []interfaces.TimeBucket, start, end time.Time, granularity interfaces.Granularity) []Bucket {
	step := bucketStep(granularity)
	byStart := make(map[time.Time]int64, len(rows))
	for _, row := range rows {
		byStart[row.BucketStart.Truncate(step)] = row.Hits
	}

	var buckets []Bucket
	for cursor := start.Truncate(step); cursor.Before(end); cursor = cursor.Add(step) {
		buckets = append(buckets, Bucket{BucketStart: cursor, Hits: byStart[cursor]})
	}
	return buckets
}

func bucketStep(granularity interfaces.Granularity) time.Duration {
	switch granularity {
	case interfaces.GranularityMinute:
		return time.Minute
	case interfaces.GranularityDay:
		return 24 * time.Hour
	default:
		return time.Hour
	}
}

func shareReferrers(rows []interfaces.ReferrerCount) []Share {
	var total int64
	for _, row := range rows {
		total += row.Count
	}
	shares := make([]Share, 0, len(rows))
	for _, row := range rows {
		shares = append(shares, Share{Key: row.Referrer, Count: row.Count, Percentage: percentage(row.Count, total)})
	}
	return shares
}

func shareGeographic(rows []interfaces.GeoCount) []Share {
	var total int64
	for _, row := range rows {
		total += row.Count
	}
	shares := make([]Share, 0, len(rows))
	for _, row := range rows {
		shares = append(shares, Share{Key: row.Country, Count: row.Count, Percentage: percentage(row.Count, total)})
	}
	return shares
}

func shareDevices(rows []interfaces.DeviceCount) []Share {
	var total int64
	for _, row := range rows {
		total += row.Count
	}
	shares := make([]Share, 0, len(rows))
	for _, row := range rows {
		shares = append(shares, Share{Key: row.Key, Count: row.Count, Percentage: percentage(row.Count, total)})
	}
	return shares
}

func percentage(count, total int64) float64 {
	if total == 0 {
		return 0
	}
	return 100 * float64(count) / float64(total)
}
