package wxwire

import (
	"github.com/couchcryptid/wxwire-feed-service/internal/domain"
	"github.com/couchcryptid/wxwire-feed-service/internal/session"
)

// handleRawMessage is the session's raw-message callback: filter by channel,
// parse, normalize, publish. One malformed message never stops the feed.
func (c *Client) handleRawMessage(msg session.RawMessage) {
	if msg.Channel != c.settings.Channel {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			c.metrics.ParseErrors.WithLabelValues("unexpected").Inc()
			c.logger.Error("unexpected message processing error",
				"message_id", msg.ID,
				"panic", r,
			)
		}
	}()

	env, err := domain.ParseEnvelope(msg.Envelope)
	if err != nil {
		c.metrics.ParseErrors.WithLabelValues("malformed").Inc()
		c.logger.Warn("message parsing failed", "error", err)
		return
	}
	if env == nil {
		// Presence and administrative chatter share the channel; not a
		// bulletin, not an error.
		return
	}

	b := domain.FromEnvelope(env, msg.ID)

	c.lastMessage.Store(c.clock.Now().UnixNano())
	c.metrics.BulletinsReceived.Inc()
	c.metrics.DelaySeconds.Observe(float64(b.DelaySeconds))

	c.logger.Debug("bulletin received",
		"id", b.ID,
		"ttaaii", b.TTAAII,
		"cccc", b.CCCC,
		"awipsid", b.AwipsID,
		"delay_seconds", b.DelaySeconds,
	)

	c.disp.Publish(b)
}
