package amqp

import (
	"testing"

	amqp091 "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestMapDelivery(t *testing.T) {
	d := amqp091.Delivery{
		MessageId: "stanza_42",
		Body:      []byte(`<message><x xmlns="nwws-oi">text</x></message>`),
	}

	raw := mapDelivery(d, "nwws@conference.nwws-oi.weather.gov")

	assert.Equal(t, "nwws@conference.nwws-oi.weather.gov", raw.Channel)
	assert.Equal(t, "stanza_42", raw.ID)
	assert.Equal(t, d.Body, raw.Envelope)
}

func TestMapDelivery_EmptyMessageID(t *testing.T) {
	raw := mapDelivery(amqp091.Delivery{Body: []byte("x")}, "ch")
	assert.Empty(t, raw.ID)
}
