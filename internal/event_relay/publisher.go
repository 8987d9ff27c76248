// Package event_relay drains the payment event outbox to Kafka. Rows are
// written by the engine in the same database transaction as the wallet
// mutation they describe; the relay gives at-least-once delivery to the
// stream, with an attempt cap and a dead letter topic for rows that never
// make it.
package event_relay

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/vocalix-payment-gateway/internal/domain/outbox"
	"github.com/vocalix-payment-gateway/internal/platform/messaging/producers"
)

// EventPublisher ships one outbox row to the payment event stream
type EventPublisher interface {
	PublishEvent(ctx context.Context, message *outbox.Message) error
}

// EventPublisherImpl implements EventPublisher
type EventPublisherImpl struct {
	outboxRepo outbox.Repository
	producer   producers.MessagePublisher
	logger     *slog.Logger
}

// NewEventPublisher creates a new publisher
func NewEventPublisher(
	outboxRepo outbox.Repository,
	producer producers.MessagePublisher,
	logger *slog.Logger,
) EventPublisher {
	return &EventPublisherImpl{
		outboxRepo: outboxRepo,
		producer:   producer,
		logger:     logger,
	}
}

// PublishEvent pushes the stored payload to Kafka and marks the row
// PROCESSED. The payload bytes committed by the engine go out verbatim,
// keyed by wallet id so one wallet's events stay ordered.
func (p *EventPublisherImpl) PublishEvent(ctx context.Context, message *outbox.Message) error {
	evt, err := message.GetPaymentEvent()
	if err != nil {
		p.logger.Error("Failed to unmarshal payment event from outbox payload",
			"outbox_id", message.ID, "reference_id", message.ReferenceID, "error", err,
		)
		if updateErr := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusFailedToPublish); updateErr != nil {
			p.logger.Error("Also failed to update outbox status to FAILED_TO_PUBLISH after unmarshal error", "outbox_id", message.ID, "update_error", updateErr)
		}
		return fmt.Errorf("unmarshal payload for outbox %d failed: %w", message.ID, err)
	}

	logger := p.logger
	if evt.CorrelationID != "" {
		logger = p.logger.With("correlation_id", evt.CorrelationID)
	}

	logger.Info("Attempting to publish outbox message to payment event stream",
		"outbox_id", message.ID, "reference_id", message.ReferenceID, "event_type", evt.Type,
	)

	if err := p.producer.Publish(ctx, message.WalletID.String(), message.Payload); err != nil {
		return fmt.Errorf("failed to publish payment event for outbox %d: %w", message.ID, err)
	}

	if err := p.outboxRepo.UpdateStatus(ctx, message.ID, outbox.StatusProcessed); err != nil {
		logger.Error("Failed to update outbox message status to PROCESSED",
			"outbox_id", message.ID, "reference_id", message.ReferenceID, "error", err,
		)
		return fmt.Errorf("event for %s published, but failed to mark outbox %d as PROCESSED: %w", message.ReferenceID, message.ID, err)
	}

	logger.Info("Outbox message successfully published and marked as PROCESSED", "outbox_id", message.ID, "reference_id", message.ReferenceID)
	return nil
}
