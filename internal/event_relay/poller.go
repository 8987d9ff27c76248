package event_relay

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/vocalix-payment-gateway/internal/config"
	"github.com/vocalix-payment-gateway/internal/domain/outbox"
	"github.com/vocalix-payment-gateway/internal/platform/messaging/producers"
)

// Poller drains pending outbox messages on a fixed interval, fanning each
// batch out over a worker pool.
type Poller struct {
	outboxRepo       outbox.Repository
	eventPublisher   EventPublisher
	dlqProducer      producers.DeadLetterPublisher
	pool             *ants.Pool
	logger           *slog.Logger
	pollInterval     time.Duration
	batchSize        int
	maxRetryAttempts int
}

func NewPoller(
	cfg *config.OutboxConfig,
	workers *config.WorkerPoolConfig,
	outboxRepo outbox.Repository,
	eventPublisher EventPublisher,
	dlqProducer producers.DeadLetterPublisher,
	logger *slog.Logger,
) (*Poller, error) {
	pool, err := ants.NewPool(workers.Size)
	if err != nil {
		return nil, fmt.Errorf("failed to create relay worker pool: %w", err)
	}

	return &Poller{
		outboxRepo:       outboxRepo,
		eventPublisher:   eventPublisher,
		dlqProducer:      dlqProducer,
		pool:             pool,
		logger:           logger,
		pollInterval:     cfg.PollingInterval,
		batchSize:        cfg.BatchSize,
		maxRetryAttempts: cfg.MaxRetryAttempts,
	}, nil
}

// Start begins polling until context is canceled
func (p *Poller) Start(ctx context.Context) {
	p.logger.Info("Starting outbox relay",
		"poll_interval", p.pollInterval.String(),
		"batch_size", p.batchSize,
		"max_retry_attempts", p.maxRetryAttempts,
		"workers", p.pool.Cap(),
	)
	ticker := time.NewTicker(p.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			p.logger.Info("Outbox relay stopping due to context cancellation.")
			return
		case <-ticker.C:
			p.logger.Debug("Outbox relay tick: processing pending messages")
			if err := p.processPendingMessages(ctx); err != nil {
				p.logger.Error("Error during batch processing of pending outbox messages", "error", err)
			}
		}
	}
}

// Shutdown releases the relay worker pool
func (p *Poller) Shutdown() {
	p.logger.Info("Shutting down relay worker pool", "running_workers", p.pool.Running())
	p.pool.Release()
}

// processPendingMessages fetches one batch and publishes its messages
// concurrently, returning after the whole batch settled.
func (p *Poller) processPendingMessages(ctx context.Context) error {
	messages, err := p.outboxRepo.GetPending(ctx, p.batchSize)
	if err != nil {
		return fmt.Errorf("failed to get pending outbox messages: %w", err)
	}

	if len(messages) == 0 {
		p.logger.Debug("No pending outbox messages found.")
		return nil
	}

	p.logger.Info("Fetched pending outbox messages", "count", len(messages))

	var wg sync.WaitGroup
	for _, msg := range messages {
		wg.Add(1)
		if err := p.pool.Submit(func() {
			defer wg.Done()
			p.processMessage(ctx, msg)
		}); err != nil {
			wg.Done()
			p.logger.Error("Failed to submit outbox message to relay pool", "outbox_id", msg.ID, "error", err)
		}
	}
	wg.Wait()

	return nil
}

func (p *Poller) processMessage(ctx context.Context, msg *outbox.Message) {
	logger := p.logger
	if evt, err := msg.GetPaymentEvent(); err == nil && evt.CorrelationID != "" {
		logger = p.logger.With("correlation_id", evt.CorrelationID)
	}

	err := p.eventPublisher.PublishEvent(ctx, msg)
	if err == nil {
		outboxPublishedTotal.Inc()
		logger.Info("Successfully processed and published outbox message", "outbox_id", msg.ID, "reference_id", msg.ReferenceID)
		return
	}
	outboxPublishFailuresTotal.Inc()

	logger.Error("Failed to publish outbox message to payment event stream",
		"outbox_id", msg.ID, "reference_id", msg.ReferenceID, "current_attempts", msg.Attempts, "error", err,
	)

	if errInc := p.outboxRepo.IncrementAttempts(ctx, msg.ID); errInc != nil {
		logger.Error("Failed to increment attempts for outbox message", "outbox_id", msg.ID, "error", errInc)
		// Continue to next message if increment fails
		return
	}

	if msg.Attempts+1 >= p.maxRetryAttempts {
		logger.Warn("Max retry attempts reached for outbox message, marking as FAILED_TO_PUBLISH",
			"outbox_id", msg.ID, "reference_id", msg.ReferenceID, "attempts_made", msg.Attempts+1,
		)
		if errUpdate := p.outboxRepo.UpdateStatus(ctx, msg.ID, outbox.StatusFailedToPublish); errUpdate != nil {
			logger.Error("Failed to update outbox status to FAILED_TO_PUBLISH after max retries", "outbox_id", msg.ID, "error", errUpdate)
		}
		p.shipToDeadLetter(ctx, logger, msg, err)
	}
}

// shipToDeadLetter forwards an exhausted message to the DLQ topic so it is
// not lost when the relay gives up on it.
func (p *Poller) shipToDeadLetter(ctx context.Context, logger *slog.Logger, msg *outbox.Message, cause error) {
	if p.dlqProducer == nil {
		logger.Warn("DLQ producer not configured, exhausted outbox message stays in FAILED_TO_PUBLISH", "outbox_id", msg.ID)
		return
	}

	if err := p.dlqProducer.PublishToDLQ(ctx, msg.WalletID.String(), msg.Payload, cause.Error()); err != nil {
		logger.Error("Failed to ship exhausted outbox message to DLQ", "outbox_id", msg.ID, "error", err)
		return
	}

	outboxDeadLetteredTotal.Inc()
	logger.Info("Shipped exhausted outbox message to DLQ", "outbox_id", msg.ID)
}
