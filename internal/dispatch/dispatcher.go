// Package dispatch fans bulletins out to push subscribers and buffers them
// for pull consumers over a single shared feed.
package dispatch

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"slices"
	"sync"

	"github.com/couchcryptid/wxwire-feed-service/internal/domain"
	"github.com/couchcryptid/wxwire-feed-service/internal/observability"
)

// ErrStopped signals the end of the pull sequence. It is not an error
// condition: the dispatcher was told to stop and every pending or future
// Next call observes it.
var ErrStopped = errors.New("dispatch: stopped")

// Handler is a push subscriber callback. Handlers run synchronously on the
// publishing goroutine in registration order; a slow handler delays fan-out.
type Handler func(domain.Bulletin)

// Subscription identifies a registered handler. The zero Subscription is
// never issued, so unsubscribing it is a no-op.
type Subscription struct {
	id uint64
}

type subscriber struct {
	id uint64
	fn Handler
}

// Dispatcher owns the bounded pull queue and the subscriber registry.
// Publish never blocks: when the queue is full the bulletin is dropped with
// a warning. Once stopped, the pull sequence terminates permanently; a fresh
// Dispatcher is required to pull again. Push subscribers are unaffected by
// the stop flag.
type Dispatcher struct {
	queue chan domain.Bulletin
	stop  chan struct{}
	once  sync.Once

	// pubMu serializes fan-out loops so two publishes never interleave
	// their subscriber callbacks.
	pubMu sync.Mutex

	mu     sync.RWMutex
	subs   []subscriber
	nextID uint64

	logger  *slog.Logger
	metrics *observability.Metrics
}

// New creates a Dispatcher with a queue bounded at size.
func New(size int, logger *slog.Logger, metrics *observability.Metrics) *Dispatcher {
	return &Dispatcher{
		queue:   make(chan domain.Bulletin, size),
		stop:    make(chan struct{}),
		logger:  logger,
		metrics: metrics,
	}
}

// Publish delivers the bulletin to every subscriber in registration order,
// then attempts a non-blocking enqueue for pull consumers. A panicking
// subscriber is logged and skipped without aborting the remaining callbacks.
func (d *Dispatcher) Publish(b domain.Bulletin) {
	d.pubMu.Lock()
	d.mu.RLock()
	subs := slices.Clone(d.subs)
	d.mu.RUnlock()

	for _, s := range subs {
		d.invoke(s, b)
	}
	d.pubMu.Unlock()

	select {
	case d.queue <- b:
		d.metrics.QueueDepth.Set(float64(len(d.queue)))
	default:
		d.metrics.QueueDropped.Inc()
		d.logger.Warn("pull queue full, dropping bulletin",
			"id", b.ID,
			"awipsid", b.AwipsID,
			"queue_size", cap(d.queue),
		)
	}
}

// invoke runs a single subscriber callback, containing any panic so one bad
// subscriber cannot break fan-out for the rest.
func (d *Dispatcher) invoke(s subscriber, b domain.Bulletin) {
	defer func() {
		if r := recover(); r != nil {
			d.metrics.FanoutPanics.Inc()
			d.logger.Error("subscriber panicked",
				"subscription", s.id,
				"bulletin", b.ID,
				"panic", r,
			)
		}
	}()
	s.fn(b)
}

// Subscribe registers a handler and returns its subscription handle.
// Safe to call from within a handler invocation.
func (d *Dispatcher) Subscribe(fn Handler) Subscription {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.nextID++
	d.subs = append(d.subs, subscriber{id: d.nextID, fn: fn})
	d.metrics.Subscribers.Set(float64(len(d.subs)))
	return Subscription{id: d.nextID}
}

// Unsubscribe removes a previously registered handler. Unknown or already
// removed subscriptions are a no-op. Safe to call from within a handler
// invocation; the current fan-out still sees the snapshot it started with.
func (d *Dispatcher) Unsubscribe(sub Subscription) {
	d.mu.Lock()
	defer d.mu.Unlock()

	for i, s := range d.subs {
		if s.id == sub.id {
			d.subs = append(d.subs[:i], d.subs[i+1:]...)
			break
		}
	}
	d.metrics.Subscribers.Set(float64(len(d.subs)))
}

// Next blocks until a bulletin is available or the dispatcher is stopped.
// After Stop it returns ErrStopped immediately, even with bulletins still
// queued. A cancelled context returns ctx.Err without consuming anything.
func (d *Dispatcher) Next(ctx context.Context) (domain.Bulletin, error) {
	// Stop takes priority over queued items so consumers terminate promptly.
	select {
	case <-d.stop:
		return domain.Bulletin{}, ErrStopped
	default:
	}

	select {
	case <-d.stop:
		return domain.Bulletin{}, ErrStopped
	case <-ctx.Done():
		return domain.Bulletin{}, ctx.Err()
	case b := <-d.queue:
		d.metrics.QueueDepth.Set(float64(len(d.queue)))
		return b, nil
	}
}

// Messages returns the pull sequence as an iterator. The sequence ends when
// the dispatcher stops or the context is cancelled.
func (d *Dispatcher) Messages(ctx context.Context) iter.Seq[domain.Bulletin] {
	return func(yield func(domain.Bulletin) bool) {
		for {
			b, err := d.Next(ctx)
			if err != nil {
				return
			}
			if !yield(b) {
				return
			}
		}
	}
}

// Stop sets the stop flag, terminating all pending and future pull calls.
// Idempotent.
func (d *Dispatcher) Stop() {
	d.once.Do(func() { close(d.stop) })
}

// QueueDepth returns a point-in-time snapshot of the pull queue length.
func (d *Dispatcher) QueueDepth() int {
	return len(d.queue)
}

// SubscriberCount returns the current number of registered subscribers.
func (d *Dispatcher) SubscriberCount() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.subs)
}
