package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/Sanandrew123/AICommerce/pkg/applog"
	"github.com/Sanandrew123/AICommerce/pkg/outbox/domain"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type OutboxRepository interface {
	SaveOutboxEvent(ctx context.Context, tx pgx.Tx, event *domain.OutboxEvent) error
	GetUnpublishedEvents(ctx context.Context, tx pgx.Tx, batchSize int) ([]*domain.OutboxEvent, error)
	MarkEventPublished(ctx context.Context, tx pgx.Tx, eventID int64) error
	MarkEventFailed(ctx context.Context, tx pgx.Tx, eventID int64, errMsg string) error
}

type KafkaProducer interface {
	ProduceMessage(ctx context.Context, topic string, message interface{}) error
}

// OutboxProcessor drains the outbox table in batches and publishes each
// event to its topic. Rows are claimed with FOR UPDATE SKIP LOCKED so
// multiple instances can run side by side.
type OutboxProcessor struct {
	pool          *pgxpool.Pool
	repo          OutboxRepository
	kafkaProducer KafkaProducer
	logger        *zap.Logger
	batchSize     int
	interval      time.Duration
	tracer        trace.Tracer
}

func NewOutboxProcessor(
	pool *pgxpool.Pool,
	repo OutboxRepository,
	producer KafkaProducer,
	logger *zap.Logger,
	batchSize int,
	interval time.Duration,
) *OutboxProcessor {
	return &OutboxProcessor{
		pool:          pool,
		repo:          repo,
		kafkaProducer: producer,
		logger:        logger,
		batchSize:     batchSize,
		interval:      interval,
		tracer:        otel.Tracer("outbox-worker"),
	}
}

func (p *OutboxProcessor) Start(ctx context.Context) {
	applog.Info(ctx, p.logger, "Starting outbox processor")

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			applog.Info(ctx, p.logger, "Outbox processor stopping")
			return
		case <-ticker.C:
			if err := p.processBatch(ctx); err != nil {
				applog.Error(ctx, p.logger, "Error processing outbox batch", zap.Error(err))
			}
		}
	}
}

func (p *OutboxProcessor) processBatch(ctx context.Context) error {
	ctx, span := p.tracer.Start(ctx, "OutboxProcessor.processBatch")
	defer span.End()

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("error beginning transaction: %w", err)
	}
	defer func() {
		cleanupCtx := context.WithoutCancel(ctx)

		if err := tx.Rollback(cleanupCtx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			applog.Error(cleanupCtx, p.logger, "Outbox worker failed to rollback transaction", zap.Error(err))
		}
	}()

	events, err := p.repo.GetUnpublishedEvents(ctx, tx, p.batchSize)
	if err != nil {
		return err
	}

	if len(events) == 0 {
		return nil
	}

	for _, event := range events {
		var payloadMap map[string]any
		if err := json.Unmarshal(event.Payload, &payloadMap); err != nil {
			applog.Error(
				ctx,
				p.logger,
				"Outbox worker failed to unmarshal event payload",
				zap.Int64("id", event.ID),
				zap.Error(err),
			)

			_ = p.repo.MarkEventFailed(ctx, tx, event.ID, err.Error())
			continue
		}

		if err := p.kafkaProducer.ProduceMessage(ctx, event.Topic, payloadMap); err != nil {
			applog.Error(
				ctx,
				p.logger,
				"Outbox worker failed to produce message",
				zap.Int64("id", event.ID),
				zap.Error(err),
			)

			if dbErr := p.repo.MarkEventFailed(ctx, tx, event.ID, err.Error()); dbErr != nil {
				applog.Error(ctx, p.logger, "Outbox worker failed to record failure", zap.Int64("id", event.ID), zap.Error(dbErr))
			}
			continue
		}

		if err := p.repo.MarkEventPublished(ctx, tx, event.ID); err != nil {
			applog.Error(ctx, p.logger, "Outbox worker failed to mark event published", zap.Int64("id", event.ID), zap.Error(err))
			return err
		}

		applog.Debug(ctx, p.logger, "Outbox event published", zap.Int64("id", event.ID))
	}

	return tx.Commit(ctx)
}
