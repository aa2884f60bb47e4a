package pipeline

import (
	"context"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// Notifier wakes idle workers after jobs were enqueued
type Notifier interface {
	Notify(ctx context.Context, msg domain.JobMessage) error
}

// Publisher publishes a JSON message
type Publisher interface {
	PublishJSON(ctx context.Context, v any) error
}

// RabbitNotifier publishes wake-ups through RabbitMQ
type RabbitNotifier struct {
	publisher Publisher
}

// NewRabbitNotifier creates a new RabbitNotifier
func NewRabbitNotifier(publisher Publisher) *RabbitNotifier {
	return &RabbitNotifier{publisher: publisher}
}

// Notify publishes msg
func (n *RabbitNotifier) Notify(ctx context.Context, msg domain.JobMessage) error {
	return n.publisher.PublishJSON(ctx, msg)
}

// NopNotifier is used when no broker is configured; workers still poll.
type NopNotifier struct{}

// Notify does nothing
func (NopNotifier) Notify(context.Context, domain.JobMessage) error { return nil }
