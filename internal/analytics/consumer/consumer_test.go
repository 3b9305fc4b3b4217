package consumer

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/northbeam-io/shortlink/internal/domain"
	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
)

type mockAnalyticsStore struct{ mock.Mock }

func (m *mockAnalyticsStore) ApplyHit(ctx context.Context, event *domain.HitEvent) error {
	args := m.Called(ctx, event)
	return args.Error(0)
}

func (m *mockAnalyticsStore) TouchAccessTimes(ctx context.Context, code string, at time.Time) error {
	args := m.Called(ctx, code, at)
	return args.Error(0)
}

func (m *mockAnalyticsStore) RecordUniqueVisitor(ctx context.Context, code string, date time.Time, visitorHash string) error {
	args := m.Called(ctx, code, date, visitorHash)
	return args.Error(0)
}

func (m *mockAnalyticsStore) TimeSeries(ctx context.Context, code string, start, end time.Time, granularity interfaces.Granularity) ([]interfaces.TimeBucket, error) {
	return nil, nil
}

func (m *mockAnalyticsStore) TopReferrers(ctx context.Context, code string, limit int) ([]interfaces.ReferrerCount, error) {
	return nil, nil
}

func (m *mockAnalyticsStore) TopGeographic(ctx context.Context, code string, limit int) ([]interfaces.GeoCount, error) {
	return nil, nil
}

func (m *mockAnalyticsStore) DeviceBreakdown(ctx context.Context, code string) ([]interfaces.DeviceCount, error) {
	return nil, nil
}

func (m *mockAnalyticsStore) BrowserBreakdown(ctx context.Context, code string) ([]interfaces.DeviceCount, error) {
	return nil, nil
}

func (m *mockAnalyticsStore) GetAccessTimes(ctx context.Context, code string) (*interfaces.AccessTimes, bool, error) {
	return nil, false, nil
}

func (m *mockAnalyticsStore) TotalHits(ctx context.Context, code string, start, end time.Time) (int64, error) {
	return 0, nil
}

func TestConsumer_Handle_AppliesValidEvent(t *testing.T) {
	store := &mockAnalyticsStore{}
	c := New(store, zap.NewNop())

	event := &domain.HitEvent{Code: "abc1234", Timestamp: time.Now(), IP: "1.2.3.4", UserAgent: "curl/8"}
	store.On("ApplyHit", mock.Anything, event).Return(nil)
	store.On("TouchAccessTimes", mock.Anything, "abc1234", event.Timestamp).Return(nil)
	store.On("RecordUniqueVisitor", mock.Anything, "abc1234", event.Timestamp, mock.AnythingOfType("string")).Return(nil)

	err := c.Handle(context.Background(), event)

	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestConsumer_Handle_DropsMissingCode(t *testing.T) {
	store := &mockAnalyticsStore{}
	c := New(store, zap.NewNop())

	event := &domain.HitEvent{Timestamp: time.Now(), IP: "1.2.3.4", UserAgent: "curl/8"}
	err := c.Handle(context.Background(), event)

	require.NoError(t, err)
	store.AssertNotCalled(t, "ApplyHit", mock.Anything, mock.Anything)
}

func TestConsumer_Handle_DropsStaleTimestamp(t *testing.T) {
	store := &mockAnalyticsStore{}
	c := New(store, zap.NewNop())

	event := &domain.HitEvent{Code: "abc1234", Timestamp: time.Now().Add(-48 * time.Hour), IP: "1.2.3.4", UserAgent: "curl/8"}
	err := c.Handle(context.Background(), event)

	require.NoError(t, err)
	store.AssertNotCalled(t, "ApplyHit", mock.Anything, mock.Anything)
}

func TestConsumer_Handle_DropsFutureTimestamp(t *testing.T) {
	store := &mockAnalyticsStore{}
	c := New(store, zap.NewNop())

	event := &domain.HitEvent{Code: "abc1234", Timestamp: time.Now().Add(time.Hour), IP: "1.2.3.4", UserAgent: "curl/8"}
	err := c.Handle(context.Background(), event)

	require.NoError(t, err)
	store.AssertNotCalled(t, "ApplyHit", mock.Anything, mock.Anything)
}

func TestConsumer_Handle_PropagatesStoreError(t *testing.T) {
	store := &mockAnalyticsStore{}
	c := New(store, zap.NewNop())

	event := &domain.HitEvent{Code: "abc1234", Timestamp: time.Now(), IP: "1.2.3.4", UserAgent: "curl/8"}
	store.On("ApplyHit", mock.Anything, event).Return(assert.AnError)

	err := c.Handle(context.Background(), event)
	require.Error(t, err)
}
