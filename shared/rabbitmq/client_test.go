package rabbitmq

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestBackoffDelay(t *testing.T) {
	tests := []struct {
		name    string
		base    time.Duration
		mult    float64
		attempt int
		want    time.Duration
	}{
		{name: "first retry uses base", base: 50 * time.Millisecond, mult: 2, attempt: 0, want: 50 * time.Millisecond},
		{name: "grows by multiplier", base: 50 * time.Millisecond, mult: 3, attempt: 2, want: 450 * time.Millisecond},
		{name: "defaults", attempt: 3, want: 800 * time.Millisecond},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BackoffDelay(tt.base, tt.mult, tt.attempt))
		})
	}
}

func TestConfig_DSN(t *testing.T) {
	cfg := &Config{User: "guest", Password: "secret", Host: "mq", Port: 5672, VHost: "/"}
	assert.Equal(t, "amqp://guest:secret@mq:5672/", cfg.DSN())
}

func TestClient_NotConnected(t *testing.T) {
	c := &Client{config: &Config{ExchangeName: "x"}}
	_, err := c.Consume("tag")
	assert.ErrorIs(t, err, ErrNotConnected)
}
