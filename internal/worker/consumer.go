package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/cuongbtq/content-i18n/internal/domain"
)

// setupConsumer starts consuming wake-up messages
func (w *Worker) setupConsumer() (<-chan amqp.Delivery, error) {
	deliveries, err := w.consumer.Consume(w.workerID, w.prefetchCount)
	if err != nil {
		return nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	w.logger.Info("RabbitMQ consumer started",
		slog.String("consumer_tag", w.workerID),
		slog.Int("prefetch_count", w.prefetchCount),
	)
	return deliveries, nil
}

// startMessageDispatcher turns deliveries into wake-ups. Messages carry no
// job data, so they are acked as soon as they are read.
func (w *Worker) startMessageDispatcher(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-w.stopChan:
			return

		case <-ctx.Done():
			return

		case delivery, ok := <-deliveries:
			if !ok {
				w.logger.Warn("RabbitMQ delivery channel closed, relying on polling")
				return
			}
			w.handleDelivery(delivery)
		}
	}
}

func (w *Worker) handleDelivery(delivery amqp.Delivery) {
	var msg domain.JobMessage
	if err := json.Unmarshal(delivery.Body, &msg); err != nil {
		w.logger.Error("Failed to parse wake-up message",
			slog.Any("error", err),
			slog.String("body", string(delivery.Body)),
		)
		// Malformed messages are dropped, or dead-lettered if the queue has a DLX.
		if nackErr := delivery.Nack(false, false); nackErr != nil {
			w.logger.Error("Failed to NACK malformed message", slog.Any("error", nackErr))
		}
		return
	}
	msg.DeliveryTag = delivery.DeliveryTag

	w.wake(msg.Jobs)
	if ackErr := delivery.Ack(false); ackErr != nil {
		w.logger.Error("Failed to ACK message", slog.Any("error", ackErr))
	}

	w.logger.Debug("Wake-up received",
		slog.String("reason", msg.Reason),
		slog.Int("jobs", msg.Jobs),
		slog.Uint64("delivery_tag", msg.DeliveryTag),
	)
}
