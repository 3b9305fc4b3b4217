// Package housekeeping schedules the low-frequency sweep that keeps the
// redirect cache from serving expired targets past their TTL drift: the
// primary store's GetExpired is otherwise never invoked, so expired
// records would sit in cache until a natural eviction.
package housekeeping

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
)

const sweepBatchSize = 200

// Scheduler runs the periodic expired-record cache sweep on a cron
// schedule.
type Scheduler struct {
	cron   *cron.Cron
	store  interfaces.PrimaryStore
	cache  interfaces.RedirectCache
	logger *zap.Logger
}

// New builds a Scheduler. spec is a standard five-field cron expression.
func New(spec string, store interfaces.PrimaryStore, cache interfaces.RedirectCache, logger *zap.Logger) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(),
		store:  store,
		cache:  cache,
		logger: logger,
	}
	if _, err := s.cron.AddFunc(spec, s.sweep); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins running the schedule in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop halts the schedule, waiting for any in-flight sweep to finish.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}

func (s *Scheduler) sweep() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	expired, err := s.store.GetExpired(ctx, sweepBatchSize)
	if err != nil {
		s.logger.Warn("housekeeping sweep failed to list expired records", zap.Error(err))
		return
	}

	invalidated := 0
	for _, record := range expired {
		if err := s.cache.Invalidate(ctx, record.Code); err != nil {
			s.logger.Warn("housekeeping sweep failed to invalidate cache entry",
				zap.String("code", record.Code), zap.Error(err))
			continue
		}
		invalidated++
	}

	if invalidated > 0 {
		s.logger.Info("housekeeping sweep invalidated expired cache entries", zap.Int("count", invalidated))
	}
}
