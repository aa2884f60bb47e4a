package rabbitmq

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cuongbtq/content-i18n/shared/logger"
)

func TestConfig_URL(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{
			name: "default vhost",
			cfg:  Config{Host: "mq", Port: 5672, User: "guest", Password: "guest"},
			want: "amqp://guest:guest@mq:5672/",
		},
		{
			name: "named vhost",
			cfg:  Config{Host: "mq", Port: 5673, User: "i18n", Password: "pw", VHost: "/content"},
			want: "amqp://i18n:pw@mq:5673/content",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cfg.URL())
		})
	}
}

func TestClient_NotConnected(t *testing.T) {
	c := &Client{config: &Config{}, logger: logger.NewDiscard().Logger}

	err := c.PublishJSON(context.Background(), map[string]int{"jobs": 1})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = c.Consume("tag", 1)
	assert.ErrorIs(t, err, ErrNotConnected)
	assert.False(t, c.IsConnected())
}
