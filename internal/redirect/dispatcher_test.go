package redirect

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/northbeam-io/shortlink/internal/domain"
	"github.com/northbeam-io/shortlink/internal/dispatch"
	"github.com/northbeam-io/shortlink/internal/enrichment/geoip"
	"github.com/northbeam-io/shortlink/internal/enrichment/useragent"
)

type mockResolver struct{ mock.Mock }

func (m *mockResolver) FindByCode(ctx context.Context, code string) (*domain.UrlRecord, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.UrlRecord), args.Error(1)
}

func (m *mockResolver) IncrementHitCount(ctx context.Context, code string) {
	m.Called(ctx, code)
}

type mockBus struct{ mock.Mock }

func (m *mockBus) Publish(ctx context.Context, key string, event *domain.HitEvent) error {
	args := m.Called(ctx, key, event)
	return args.Error(0)
}

func newTestDispatcher(t *testing.T, resolver *mockResolver, bus *mockBus) *Dispatcher {
	t.Helper()
	pool := dispatch.New(1, 8, zap.NewNop(), nil)
	t.Cleanup(pool.Close)
	return New(resolver, pool, bus, geoip.NoOp, useragent.NoOp, zap.NewNop())
}

func TestDispatcher_ResolveAndRedirect_Success(t *testing.T) {
	resolver := &mockResolver{}
	bus := &mockBus{}
	resolver.On("FindByCode", mock.Anything, "abc1234").Return(&domain.UrlRecord{Code: "abc1234", Original: "https://example.com"}, nil)
	resolver.On("IncrementHitCount", mock.Anything, "abc1234").Return().Maybe()
	bus.On("Publish", mock.Anything, "abc1234", mock.Anything).Return(nil).Maybe()

	d := newTestDispatcher(t, resolver, bus)
	status, target, err := d.ResolveAndRedirect(context.Background(), "abc1234", RequestContext{IP: "1.2.3.4"})

	require.NoError(t, err)
	assert.Equal(t, 302, status)
	assert.Equal(t, "https://example.com", target)
}

func TestDispatcher_ResolveAndRedirect_StableHostGets301(t *testing.T) {
	resolver := &mockResolver{}
	bus := &mockBus{}
	resolver.On("FindByCode", mock.Anything, "gh1").Return(&domain.UrlRecord{Code: "gh1", Original: "https://github.com/foo"}, nil)
	resolver.On("IncrementHitCount", mock.Anything, "gh1").Return().Maybe()
	bus.On("Publish", mock.Anything, "gh1", mock.Anything).Return(nil).Maybe()

	d := newTestDispatcher(t, resolver, bus)
	status, _, err := d.ResolveAndRedirect(context.Background(), "gh1", RequestContext{})

	require.NoError(t, err)
	assert.Equal(t, 301, status)
}

func TestDispatcher_ResolveAndRedirect_InvalidCode(t *testing.T) {
	d := newTestDispatcher(t, &mockResolver{}, &mockBus{})
	_, _, err := d.ResolveAndRedirect(context.Background(), "!!!", RequestContext{})
	assert.ErrorIs(t, err, domain.ErrInvalidCode)
}

func TestDispatcher_ResolveAndRedirect_NotFound(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("FindByCode", mock.Anything, "missing").Return(nil, nil)
	d := newTestDispatcher(t, resolver, &mockBus{})

	_, _, err := d.ResolveAndRedirect(context.Background(), "missing", RequestContext{})
	assert.ErrorIs(t, err, domain.ErrNotFoundCode)
}

func TestDispatcher_ResolveAndRedirect_Expired(t *testing.T) {
	resolver := &mockResolver{}
	past := time.Now().Add(-time.Hour)
	resolver.On("FindByCode", mock.Anything, "exp1").Return(&domain.UrlRecord{Code: "exp1", Original: "https://example.com", ExpiresAt: &past}, nil)
	d := newTestDispatcher(t, resolver, &mockBus{})

	_, _, err := d.ResolveAndRedirect(context.Background(), "exp1", RequestContext{})
	assert.ErrorIs(t, err, domain.ErrGone)
}

func TestDispatcher_ResolveAndRedirect_OpenRedirectBlocked(t *testing.T) {
	resolver := &mockResolver{}
	resolver.On("FindByCode", mock.Anything, "loc1").Return(&domain.UrlRecord{Code: "loc1", Original: "http://127.0.0.1/admin"}, nil)
	d := newTestDispatcher(t, resolver, &mockBus{})

	_, _, err := d.ResolveAndRedirect(context.Background(), "loc1", RequestContext{})
	assert.ErrorIs(t, err, domain.ErrInvalidRedirect)
}
