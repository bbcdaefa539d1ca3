package wxwire_test

import (
	"context"
	"testing"
	"time"

	"github.com/couchcryptid/wxwire-feed-service/internal/session"
	"github.com/couchcryptid/wxwire-feed-service/internal/wxwire"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// With IdleTimeout 45s and a 30s tick, the monitor reconnects on every tick
// where the feed has been silent longer than 45s, and stops once a fresh
// bulletin resets the idle clock.
func TestMonitor_ReconnectsWhileIdleAndStopsOnTraffic(t *testing.T) {
	fs := newFakeSession()
	fc := clockwork.NewFakeClock()
	c := newTestClient(t, fs, wxwire.WithClock(fc))

	_, err := c.Start(context.Background())
	require.NoError(t, err)
	fs.establish()

	// Tick 1: idle 30s, inside the threshold.
	fc.BlockUntil(1)
	fc.Advance(30 * time.Second)

	// Tick 2: idle 60s, one forced reconnect.
	fc.BlockUntil(1)
	fc.Advance(30 * time.Second)

	// Tick 3: still idle, another reconnect.
	fc.BlockUntil(1)
	fc.Advance(30 * time.Second)
	fc.BlockUntil(1)

	_, _, reconnects, _, _ := fs.counts()
	assert.Equal(t, 2, reconnects)

	// Fresh traffic resets the idle clock; the next tick stays quiet.
	fs.deliver(session.RawMessage{
		Channel:  testChannel,
		ID:       "reset_1",
		Envelope: []byte(`<message><x xmlns="nwws-oi" id="reset_1">fresh product</x></message>`),
	})

	fc.Advance(30 * time.Second)
	fc.BlockUntil(1)

	_, _, reconnects, _, _ = fs.counts()
	assert.Equal(t, 2, reconnects)
}

func TestMonitor_ReconnectFailureKeepsLoopAlive(t *testing.T) {
	fs := newFakeSession()
	fs.reconnectErr = assert.AnError
	fc := clockwork.NewFakeClock()
	c := newTestClient(t, fs, wxwire.WithClock(fc))

	_, err := c.Start(context.Background())
	require.NoError(t, err)
	fs.establish()

	// Three idle ticks past the threshold: the failing reconnect is retried
	// on every tick rather than killing the monitor.
	for i := 0; i < 4; i++ {
		fc.BlockUntil(1)
		fc.Advance(30 * time.Second)
	}
	fc.BlockUntil(1)

	_, _, reconnects, _, _ := fs.counts()
	assert.Equal(t, 3, reconnects)
}

func TestMonitor_StoppedOnShutdown(t *testing.T) {
	fs := newFakeSession()
	fc := clockwork.NewFakeClock()
	c := newTestClient(t, fs, wxwire.WithClock(fc))

	_, err := c.Start(context.Background())
	require.NoError(t, err)
	fs.establish()
	fc.BlockUntil(1)

	// Stop cancels the monitor and waits for it to acknowledge; afterwards
	// advancing the clock triggers nothing.
	c.Stop("shutdown")
	fc.Advance(10 * time.Minute)

	_, _, reconnects, _, _ := fs.counts()
	assert.Equal(t, 0, reconnects)
}
