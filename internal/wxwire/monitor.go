package wxwire

import "context"

// monitorIdleTimeout watches the feed for silence. NWWS-OI sessions can go
// half-dead without the transport noticing: the connection stays up but no
// traffic arrives. When nothing has been ingested for longer than the idle
// threshold, the monitor forces a session reconnect. A failed reconnect is
// logged and retried on the next tick; it never terminates the monitor.
func (c *Client) monitorIdleTimeout(ctx context.Context) {
	c.logger.Info("staleness monitor started",
		"idle_timeout", c.settings.IdleTimeout,
		"interval", c.settings.MonitorInterval,
	)

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("staleness monitor stopped")
			return
		case <-c.clock.After(c.settings.MonitorInterval):
		}

		if c.State() == StateShuttingDown {
			return
		}

		idle := c.clock.Now().Sub(c.lastMessageAt())
		if idle <= c.settings.IdleTimeout {
			continue
		}

		c.logger.Warn("feed idle past threshold, forcing reconnect",
			"idle", idle,
			"idle_timeout", c.settings.IdleTimeout,
		)
		c.metrics.Reconnects.Inc()

		if err := c.sess.Reconnect(ctx); err != nil {
			c.logger.Error("forced reconnect failed", "error", err)
		}
	}
}
