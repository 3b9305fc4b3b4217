package redirect

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/northbeam-io/shortlink/internal/domain"
	"github.com/northbeam-io/shortlink/internal/dispatch"
	"github.com/northbeam-io/shortlink/internal/enrichment/geoip"
	"github.com/northbeam-io/shortlink/internal/enrichment/useragent"
	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
	"github.com/northbeam-io/shortlink/internal/shortcode"
)

// storeCallTimeout and busCallTimeout bound the background side effects of
// a redirect (§5): a primary-store round trip gets at most 1s, an event-bus
// publish (including its own internal retries) gets at most 30s.
const (
	storeCallTimeout = time.Second
	busCallTimeout   = 30 * time.Second
)

// Resolver is the subset of the URL service the dispatcher depends on.
type Resolver interface {
	FindByCode(ctx context.Context, code string) (*domain.UrlRecord, error)
	IncrementHitCount(ctx context.Context, code string)
}

// RequestContext carries the per-request fields resolveAndRedirect needs for
// accounting and enrichment.
type RequestContext struct {
	IP        string
	UserAgent string
	Referrer  string
}

// Dispatcher implements 4.H resolveAndRedirect.
type Dispatcher struct {
	service Resolver
	pool    *dispatch.Pool
	bus     interfaces.EventBus
	geo     geoip.Lookup
	ua      useragent.Parser
	logger  *zap.Logger
}

// New builds a Dispatcher.
func New(service Resolver, pool *dispatch.Pool, bus interfaces.EventBus, geo geoip.Lookup, ua useragent.Parser, logger *zap.Logger) *Dispatcher {
	return &Dispatcher{service: service, pool: pool, bus: bus, geo: geo, ua: ua, logger: logger}
}

// ResolveAndRedirect runs the 7-step contract of 4.H and returns the HTTP
// status and target to redirect to. Side effects of step 6 are always
// dispatched to the background pool so they cannot fail or delay the
// response.
func (d *Dispatcher) ResolveAndRedirect(ctx context.Context, code string, reqCtx RequestContext) (status int, target string, err error) {
	if !shortcode.IsValidCode(code) {
		return 0, "", domain.ErrInvalidCode
	}

	record, err := d.service.FindByCode(ctx, code)
	if err != nil {
		return 0, "", err
	}
	if record == nil {
		return 0, "", domain.ErrNotFoundCode
	}

	now := time.Now()
	if record.IsExpired(now) {
		return 0, "", domain.ErrGone
	}

	if err := CheckOpenRedirect(record.Original); err != nil {
		d.logger.Warn("open redirect guard rejected target",
			zap.String("code", code), zap.String("target", record.Original))
		return 0, "", err
	}

	status = ChooseStatusCode(record.Original)

	d.pool.Submit(func(bgCtx context.Context) {
		hitCtx, hitCancel := context.WithTimeout(bgCtx, storeCallTimeout)
		d.service.IncrementHitCount(hitCtx, code)
		hitCancel()

		event := &domain.HitEvent{
			Code:      code,
			Timestamp: now,
			IP:        reqCtx.IP,
			UserAgent: reqCtx.UserAgent,
			Referrer:  reqCtx.Referrer,
		}
		if geoResult, ok := d.geo.Lookup(reqCtx.IP); ok {
			event.Country = geoResult.Country
			event.City = geoResult.City
		}
		if uaResult, ok := d.ua.Parse(reqCtx.UserAgent); ok {
			event.DeviceType = uaResult.DeviceType
			event.Browser = uaResult.Browser
			event.OS = uaResult.OS
		}

		publishCtx, publishCancel := context.WithTimeout(bgCtx, busCallTimeout)
		defer publishCancel()
		if err := d.bus.Publish(publishCtx, code, event); err != nil {
			d.logger.Warn("hit event publish failed", zap.String("code", code), zap.Error(err))
		}
	})

	return status, record.Original, nil
}
