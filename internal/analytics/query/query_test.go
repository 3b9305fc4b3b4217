package query

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/northbeam-io/shortlink/internal/domain"
	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
)

type mockAnalyticsStore struct{ mock.Mock }

func (m *mockAnalyticsStore) ApplyHit(ctx context.Context, event *domain.HitEvent) error { return nil }

func (m *mockAnalyticsStore) TouchAccessTimes(ctx context.Context, code string, at time.Time) error {
	return nil
}

func (m *mockAnalyticsStore) RecordUniqueVisitor(ctx context.Context, code string, date time.Time, visitorHash string) error {
	return nil
}

func (m *mockAnalyticsStore) TimeSeries(ctx context.Context, code string, start, end time.Time, granularity interfaces.Granularity) ([]interfaces.TimeBucket, error) {
	args := m.Called(ctx, code, start, end, granularity)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.TimeBucket), args.Error(1)
}

func (m *mockAnalyticsStore) TopReferrers(ctx context.Context, code string, limit int) ([]interfaces.ReferrerCount, error) {
	args := m.Called(ctx, code, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.ReferrerCount), args.Error(1)
}

func (m *mockAnalyticsStore) TopGeographic(ctx context.Context, code string, limit int) ([]interfaces.GeoCount, error) {
	args := m.Called(ctx, code, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.GeoCount), args.Error(1)
}

func (m *mockAnalyticsStore) DeviceBreakdown(ctx context.Context, code string) ([]interfaces.DeviceCount, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.DeviceCount), args.Error(1)
}

func (m *mockAnalyticsStore) BrowserBreakdown(ctx context.Context, code string) ([]interfaces.DeviceCount, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]interfaces.DeviceCount), args.Error(1)
}

func (m *mockAnalyticsStore) GetAccessTimes(ctx context.Context, code string) (*interfaces.AccessTimes, bool, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(*interfaces.AccessTimes), args.Bool(1), args.Error(2)
}

func (m *mockAnalyticsStore) TotalHits(ctx context.Context, code string, start, end time.Time) (int64, error) {
	args := m.Called(ctx, code, start, end)
	return args.Get(0).(int64), args.Error(1)
}

func TestService_GetAnalytics_FillsEmptyBucketsAndComputesShares(t *testing.T) {
	store := &mockAnalyticsStore{}
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 13, 0, 0, 0, time.UTC)

	store.On("TimeSeries", mock.Anything, "abc1234", start, end, interfaces.GranularityHour).
		Return([]interfaces.TimeBucket{{BucketStart: start, Hits: 5}}, nil)
	store.On("TopReferrers", mock.Anything, "abc1234", defaultTopN).
		Return([]interfaces.ReferrerCount{{Referrer: "google.com", Count: 3}, {Referrer: "direct", Count: 1}}, nil)
	store.On("TopGeographic", mock.Anything, "abc1234", defaultTopN).
		Return([]interfaces.GeoCount{{Country: "US", Count: 4}}, nil)
	store.On("DeviceBreakdown", mock.Anything, "abc1234").
		Return([]interfaces.DeviceCount{{Key: "mobile", Count: 2}, {Key: "desktop", Count: 2}}, nil)
	store.On("BrowserBreakdown", mock.Anything, "abc1234").
		Return([]interfaces.DeviceCount{{Key: "chrome", Count: 4}}, nil)
	accessTimes := &interfaces.AccessTimes{FirstAt: start, LastAt: end}
	store.On("GetAccessTimes", mock.Anything, "abc1234").Return(accessTimes, true, nil)
	store.On("TotalHits", mock.Anything, "abc1234", start, end).Return(int64(5), nil)

	svc := New(store)
	report, err := svc.GetAnalytics(context.Background(), "abc1234", start, end, interfaces.GranularityHour, 0)

	require.NoError(t, err)
	require.Len(t, report.TimeSeries, 3)
	assert.Equal(t, int64(5), report.TimeSeries[0].Hits)
	assert.Equal(t, int64(0), report.TimeSeries[1].Hits)
	assert.Equal(t, int64(0), report.TimeSeries[2].Hits)

	require.Len(t, report.Referrers, 2)
	assert.Equal(t, "google.com", report.Referrers[0].Key)
	assert.InDelta(t, 75.0, report.Referrers[0].Percentage, 0.001)
	assert.InDelta(t, 25.0, report.Referrers[1].Percentage, 0.001)

	assert.True(t, report.HasAccessed)
	assert.Equal(t, start, report.FirstAt)
	assert.Equal(t, int64(5), report.Total)
}

func TestService_GetAnalytics_NoAccessTimesLeavesZeroValue(t *testing.T) {
	store := &mockAnalyticsStore{}
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)

	store.On("TimeSeries", mock.Anything, "new1234", start, end, interfaces.GranularityHour).Return([]interfaces.TimeBucket{}, nil)
	store.On("TopReferrers", mock.Anything, "new1234", defaultTopN).Return([]interfaces.ReferrerCount{}, nil)
	store.On("TopGeographic", mock.Anything, "new1234", defaultTopN).Return([]interfaces.GeoCount{}, nil)
	store.On("DeviceBreakdown", mock.Anything, "new1234").Return([]interfaces.DeviceCount{}, nil)
	store.On("BrowserBreakdown", mock.Anything, "new1234").Return([]interfaces.DeviceCount{}, nil)
	store.On("GetAccessTimes", mock.Anything, "new1234").Return(nil, false, nil)
	store.On("TotalHits", mock.Anything, "new1234", start, end).Return(int64(0), nil)

	svc := New(store)
	report, err := svc.GetAnalytics(context.Background(), "new1234", start, end, interfaces.GranularityHour, 0)

	require.NoError(t, err)
	assert.False(t, report.HasAccessed)
	assert.True(t, report.FirstAt.IsZero())
}

func TestService_GetAnalytics_CustomTopLimit(t *testing.T) {
	store := &mockAnalyticsStore{}
	start := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 1, 11, 0, 0, 0, time.UTC)

	store.On("TimeSeries", mock.Anything, "top12345", start, end, interfaces.GranularityHour).Return([]interfaces.TimeBucket{}, nil)
	store.On("TopReferrers", mock.Anything, "top12345", 3).Return([]interfaces.ReferrerCount{}, nil)
	store.On("TopGeographic", mock.Anything, "top12345", 3).Return([]interfaces.GeoCount{}, nil)
	store.On("DeviceBreakdown", mock.Anything, "top12345").Return([]interfaces.DeviceCount{}, nil)
	store.On("BrowserBreakdown", mock.Anything, "top12345").Return([]interfaces.DeviceCount{}, nil)
	store.On("GetAccessTimes", mock.Anything, "top12345").Return(nil, false, nil)
	store.On("TotalHits", mock.Anything, "top12345", start, end).Return(int64(0), nil)

	svc := New(store)
	_, err := svc.GetAnalytics(context.Background(), "top12345", start, end, interfaces.GranularityHour, 3)

	require.NoError(t, err)
	store.AssertCalled(t, "TopReferrers", mock.Anything, "top12345", 3)
	store.AssertCalled(t, "TopGeographic", mock.Anything, "top12345", 3)
}

func TestService_GetSummary(t *testing.T) {
	store := &mockAnalyticsStore{}
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	end := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	store.On("TotalHits", mock.Anything, "sum1234", start, end).Return(int64(42), nil)
	accessTimes := &interfaces.AccessTimes{FirstAt: start, LastAt: end}
	store.On("GetAccessTimes", mock.Anything, "sum1234").Return(accessTimes, true, nil)

	svc := New(store)
	summary, err := svc.GetSummary(context.Background(), "sum1234", start, end)

	require.NoError(t, err)
	assert.Equal(t, int64(42), summary.Total)
	assert.Equal(t, start, summary.FirstAt)
}
