// Package wxwire implements the NWWS-OI feed client: connection lifecycle
// supervision, staleness monitoring, and the ingestion pipeline feeding the
// bulletin dispatcher.
package wxwire

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/wxwire-feed-service/internal/dispatch"
	"github.com/couchcryptid/wxwire-feed-service/internal/domain"
	"github.com/couchcryptid/wxwire-feed-service/internal/observability"
	"github.com/couchcryptid/wxwire-feed-service/internal/session"
)

// State is the connection-lifecycle state of the client.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateConnected
	StateShuttingDown
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateConnected:
		return "connected"
	case StateShuttingDown:
		return "shutting-down"
	default:
		return "unknown"
	}
}

// Settings are the explicit constants the client is constructed with, so
// multiple independent instances can coexist in tests.
type Settings struct {
	// Channel is the bulletin group channel; traffic from other channels
	// is discarded.
	Channel string

	// IdleTimeout is the silence threshold that triggers a forced
	// reconnect; MonitorInterval is how often it is checked.
	IdleTimeout     time.Duration
	MonitorInterval time.Duration

	// QueueSize bounds the pull-consumer queue.
	QueueSize int
}

// task is one cancellable background activity owned by the client.
type task struct {
	name   string
	cancel context.CancelFunc
	done   chan struct{}
}

// Client supervises the session lifecycle and distributes normalized
// bulletins to push subscribers and pull consumers.
type Client struct {
	settings Settings
	sess     session.Session
	disp     *dispatch.Dispatcher
	logger   *slog.Logger
	metrics  *observability.Metrics
	clock    clockwork.Clock

	mu    sync.Mutex
	state State
	tasks []*task

	lastMessage atomic.Int64 // unix nanoseconds of the last ingested bulletin
}

// Option configures a Client.
type Option func(*Client)

// WithClock swaps the time source, letting tests drive the staleness
// monitor deterministically.
func WithClock(c clockwork.Clock) Option {
	return func(cl *Client) {
		cl.clock = c
	}
}

// New creates a feed client over the given session and registers its
// delivery handlers.
func New(settings Settings, sess session.Session, logger *slog.Logger, metrics *observability.Metrics, opts ...Option) *Client {
	c := &Client{
		settings: settings,
		sess:     sess,
		logger:   logger,
		metrics:  metrics,
		clock:    clockwork.NewRealClock(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.disp = dispatch.New(settings.QueueSize, logger, metrics)
	c.lastMessage.Store(c.clock.Now().UnixNano())

	sess.SetHandlers(session.Handlers{
		OnMessage:     c.handleRawMessage,
		OnEstablished: c.handleEstablished,
	})
	return c
}

// Start connects the session. It returns (false, nil) when the transport
// declines the connection and a non-nil error when connecting fails
// outright; retry policy is the caller's. Calling Start again re-dials and
// never duplicates background tasks.
func (c *Client) Start(ctx context.Context) (bool, error) {
	c.setState(StateStarting)
	c.lastMessage.Store(c.clock.Now().UnixNano())

	ok, err := c.sess.Connect(ctx)
	if err != nil {
		c.setState(StateIdle)
		return false, fmt.Errorf("connect: %w", err)
	}
	if !ok {
		c.setState(StateIdle)
		c.logger.Error("feed connection declined")
		return false, nil
	}
	return true, nil
}

// Stop tears the client down: background services, channel membership, the
// session, and the pull sequence, in that order. Idempotent; a second call
// while shutting down is a no-op and teardown steps run exactly once.
func (c *Client) Stop(reason string) {
	c.mu.Lock()
	if c.state == StateShuttingDown {
		c.mu.Unlock()
		return
	}
	c.state = StateShuttingDown
	c.mu.Unlock()

	c.logger.Info("stopping feed client", "reason", reason)

	c.stopBackgroundServices()
	if err := c.sess.LeaveChannel(); err != nil {
		c.logger.Warn("leave channel failed", "error", err)
	}
	c.sess.Disconnect(reason)
	c.disp.Stop()
	c.metrics.Connected.Set(0)

	c.logger.Info("feed client stopped")
}

// handleEstablished reacts to the session-established callback: it starts
// the background services and joins the bulletin channel.
func (c *Client) handleEstablished() {
	c.mu.Lock()
	if c.state == StateShuttingDown {
		c.mu.Unlock()
		return
	}
	c.state = StateConnected
	c.mu.Unlock()

	c.metrics.Connected.Set(1)
	c.startBackgroundServices()

	if err := c.sess.JoinChannel(context.Background()); err != nil {
		c.logger.Error("failed to join bulletin channel", "error", err)
	}
}

// startBackgroundServices launches the staleness monitor, cancelling any
// prior instance first so repeated session establishments replace rather
// than accumulate tasks.
func (c *Client) startBackgroundServices() {
	c.stopBackgroundServices()

	ctx, cancel := context.WithCancel(context.Background())
	t := &task{name: "idle-monitor", cancel: cancel, done: make(chan struct{})}

	c.mu.Lock()
	c.tasks = append(c.tasks, t)
	c.mu.Unlock()

	c.lastMessage.Store(c.clock.Now().UnixNano())

	go func() {
		defer close(t.done)
		defer func() {
			if r := recover(); r != nil {
				c.logger.Error("background task panicked", "task", t.name, "panic", r)
			}
		}()
		c.monitorIdleTimeout(ctx)
	}()
}

// stopBackgroundServices cancels every owned task and waits for each to
// acknowledge before clearing the collection.
func (c *Client) stopBackgroundServices() {
	c.mu.Lock()
	tasks := c.tasks
	c.tasks = nil
	c.mu.Unlock()

	for _, t := range tasks {
		t.cancel()
		<-t.done
	}
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// IsClientConnected reports whether the session is established and the
// client is not shutting down.
func (c *Client) IsClientConnected() bool {
	return c.sess.IsConnected() && c.State() != StateShuttingDown
}

// CheckReadiness satisfies the HTTP readiness probe.
func (c *Client) CheckReadiness(_ context.Context) error {
	if !c.IsClientConnected() {
		return errors.New("feed session not connected")
	}
	return nil
}

func (c *Client) lastMessageAt() time.Time {
	return time.Unix(0, c.lastMessage.Load())
}

// Subscribe registers a push subscriber for every ingested bulletin.
func (c *Client) Subscribe(fn dispatch.Handler) dispatch.Subscription {
	return c.disp.Subscribe(fn)
}

// Unsubscribe removes a push subscriber; unknown handles are a no-op.
func (c *Client) Unsubscribe(sub dispatch.Subscription) {
	c.disp.Unsubscribe(sub)
}

// SubscriberCount returns the number of registered push subscribers.
func (c *Client) SubscriberCount() int {
	return c.disp.SubscriberCount()
}

// QueueDepth returns a snapshot of the pull queue length.
func (c *Client) QueueDepth() int {
	return c.disp.QueueDepth()
}

// Next blocks until a bulletin is available or the client is stopped, when
// it returns dispatch.ErrStopped. The pull sequence is terminated for good
// by Stop; construct a fresh client to pull again.
func (c *Client) Next(ctx context.Context) (domain.Bulletin, error) {
	return c.disp.Next(ctx)
}

// Messages returns the pull sequence as an iterator; it ends on Stop or
// context cancellation.
func (c *Client) Messages(ctx context.Context) iter.Seq[domain.Bulletin] {
	return c.disp.Messages(ctx)
}
