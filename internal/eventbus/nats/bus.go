// Package nats implements the event bus (§4.E) on top of NATS JetStream: a
// durable stream holding every redirect HitEvent, partitioned by short code
// so per-code ordering is preserved, consumed by the analytics consumer
// through a durable pull subscription.
package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"golang.org/x/sync/errgroup"

	"github.com/northbeam-io/shortlink/internal/domain"
	"github.com/northbeam-io/shortlink/internal/repository/interfaces"
)

// defaultBatchSize and defaultMaxInFlight are the analytics consumer's
// throughput policy defaults (§4.I): a bounded batch per Fetch, with a
// bounded number of messages from that batch applied concurrently.
const (
	defaultBatchSize   = 100
	defaultMaxInFlight = 5
)

// publishInitialBackoff and publishMaxAttempts implement the event bus's
// backpressure policy (§5): a saturated bus degrades to a bounded retry
// rather than failing or blocking the caller outright.
const (
	publishInitialBackoff = 300 * time.Millisecond
	publishMaxAttempts    = 8
)

// StreamHits is the JetStream stream name holding every published HitEvent.
const StreamHits = "URL_HITS"

// subjectPrefix namespaces the per-code subjects the stream captures.
const subjectPrefix = "url.hits."

// DurableConsumer is the shared consumer name every analytics-consumer
// replica binds to; replicas compete for messages across the stream's
// subjects rather than each replica seeing every message.
const DurableConsumer = "analytics-consumer"

func subjectFor(code string) string {
	return subjectPrefix + code
}

// Bus implements both interfaces.EventBus and interfaces.EventConsumer.
type Bus struct {
	js          nats.JetStreamContext
	batchSize   int
	maxInFlight int
	onPublished func()
	onDropped   func()
}

// New wraps an existing JetStream context. EnsureStream must be called once
// before Publish or Subscribe are used against a fresh NATS deployment.
func New(js nats.JetStreamContext) *Bus {
	return &Bus{js: js, batchSize: defaultBatchSize, maxInFlight: defaultMaxInFlight}
}

// WithThroughput overrides the default batch size / in-flight concurrency,
// corresponding to the analytics consumer's configurable B and C.
func (b *Bus) WithThroughput(batchSize, maxInFlight int) *Bus {
	if batchSize > 0 {
		b.batchSize = batchSize
	}
	if maxInFlight > 0 {
		b.maxInFlight = maxInFlight
	}
	return b
}

// WithMetrics wires publish success/drop counters. onPublished fires once
// per event accepted by the stream; onDropped fires once per event that is
// given up on, either because every attempt failed or because ctx ended
// before the next attempt.
func (b *Bus) WithMetrics(onPublished, onDropped func()) *Bus {
	b.onPublished = onPublished
	b.onDropped = onDropped
	return b
}

// EnsureStream declares the URL_HITS stream idempotently: a 7-day retention
// window bounds storage while giving the analytics consumer room to recover
// from an extended outage without losing hits.
func (b *Bus) EnsureStream() error {
	_, err := b.js.AddStream(&nats.StreamConfig{
		Name:     StreamHits,
		Subjects: []string{subjectPrefix + ">"},
		MaxAge:   7 * 24 * time.Hour,
		Storage:  nats.FileStorage,
	})
	if err != nil && err != nats.ErrStreamNameAlreadyInUse {
		return fmt.Errorf("ensure url hits stream: %w", err)
	}
	return nil
}

// Publish degrades to a bounded exponential-backoff retry when the stream
// is saturated or briefly unreachable: 300ms initial delay, doubling each
// attempt, up to 8 attempts total. Once every attempt is exhausted, or ctx
// ends while waiting between attempts, the event is dropped and onDropped
// fires.
func (b *Bus) Publish(ctx context.Context, key string, event *domain.HitEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return domain.Wrap(domain.CodeInternal, "encode hit event", err)
	}

	subject := subjectFor(key)
	backoff := publishInitialBackoff
	var lastErr error

retry:
	for attempt := 0; attempt < publishMaxAttempts; attempt++ {
		if attempt > 0 {
			timer := time.NewTimer(backoff)
			select {
			case <-ctx.Done():
				timer.Stop()
				lastErr = ctx.Err()
				break retry
			case <-timer.C:
			}
			backoff *= 2
		}

		if _, pubErr := b.js.Publish(subject, payload, nats.Context(ctx)); pubErr != nil {
			lastErr = pubErr
			continue
		}

		if b.onPublished != nil {
			b.onPublished()
		}
		return nil
	}

	if b.onDropped != nil {
		b.onDropped()
	}
	return domain.Wrap(domain.CodeDependencyUnavailable, "publish hit event after exhausting retries", lastErr)
}

// Subscribe binds a durable pull consumer across every url.hits.* subject
// and runs handler for each delivered message until ctx is cancelled.
// Structurally undecodable messages are Term'd so they are never
// redelivered; handler errors trigger Nak so JetStream retries with its
// configured back-off.
func (b *Bus) Subscribe(ctx context.Context, handler interfaces.HitEventHandler) error {
	sub, err := b.js.PullSubscribe(subjectPrefix+">", DurableConsumer,
		nats.BindStream(StreamHits),
		nats.AckExplicit(),
		nats.MaxDeliver(5),
	)
	if err != nil {
		return fmt.Errorf("pull subscribe url hits: %w", err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		msgs, err := sub.Fetch(b.batchSize, nats.Context(ctx))
		if err != nil {
			if err == nats.ErrTimeout || err == context.DeadlineExceeded {
				continue
			}
			if ctx.Err() != nil {
				return nil
			}
			continue
		}

		// Apply up to maxInFlight messages of the batch concurrently. Each
		// message's ack/nak is independent, so one poisoned event cannot
		// hold up or fail the rest of the batch — Promise.allSettled
		// semantics, not errgroup's usual fail-fast short-circuit.
		group := new(errgroup.Group)
		group.SetLimit(b.maxInFlight)
		for _, msg := range msgs {
			msg := msg
			group.Go(func() error {
				var event domain.HitEvent
				if err := json.Unmarshal(msg.Data, &event); err != nil {
					msg.Term()
					return nil
				}
				if err := handler(ctx, &event); err != nil {
					msg.Nak()
					return nil
				}
				msg.Ack()
				return nil
			})
		}
		group.Wait()
	}
}
