// Package dispatch runs fire-and-forget background work — hit-count
// increments and analytics event publication — off the redirect response
// path. A bounded pool of goroutines drains a buffered channel so a burst
// of redirects degrades by dropping newly submitted tasks under a metric
// once the buffer is full, rather than spawning an unbounded number of
// goroutines.
package dispatch

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Task is one unit of background work. It receives a background context
// with no deadline, independent of the HTTP request that triggered it —
// cancelling the inbound request must never cancel an already-scheduled
// Task. A Task that needs a deadline derives its own from that context.
type Task func(ctx context.Context)

// Pool is a bounded, supervised set of background workers.
type Pool struct {
	tasks   chan Task
	logger  *zap.Logger
	wg      sync.WaitGroup
	dropped func()
}

// New starts a Pool with workers goroutines draining a channel of
// capacity queueSize. onDrop, if non-nil, is invoked once per task that
// could not be queued because the pool was saturated.
func New(workers, queueSize int, logger *zap.Logger, onDrop func()) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	p := &Pool{
		tasks:   make(chan Task, queueSize),
		logger:  logger,
		dropped: onDrop,
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go p.run()
	}
	return p
}

func (p *Pool) run() {
	defer p.wg.Done()
	for task := range p.tasks {
		p.safeRun(task)
	}
}

func (p *Pool) safeRun(task Task) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("background task panicked", zap.Any("recover", r))
		}
	}()
	task(context.Background())
}

// Submit enqueues a task without blocking the caller. If the queue is
// full, the task is dropped and onDrop is invoked — the redirect path must
// never be slowed down by a saturated analytics path.
func (p *Pool) Submit(task Task) {
	select {
	case p.tasks <- task:
	default:
		if p.dropped != nil {
			p.dropped()
		}
		p.logger.Warn("dispatch pool saturated, dropping background task")
	}
}

// Close stops accepting new tasks and waits for in-flight ones to finish.
func (p *Pool) Close() {
	close(p.tasks)
	p.wg.Wait()
}
