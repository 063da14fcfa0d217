package infrastructure

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel/trace"

	"stockpile/internal/order/application"
	"stockpile/internal/order/domain"
	"stockpile/internal/pkg/logger"
	"stockpile/internal/pkg/mq"
)

// jobSource is the subset of kafka.Reader the consumer uses; tests substitute
// an in-memory implementation.
type jobSource interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// deadLetterer is satisfied by mq.FailureHandler.
type deadLetterer interface {
	Handle(ctx context.Context, msg kafka.Message, cause error)
}

// ConsumerConfig bounds the per-message retry budget for transient errors.
type ConsumerConfig struct {
	MaxAttempts  int
	RetryBackoff time.Duration
}

// OrderConsumer drives the processor from the order topic. Per delivery:
// terminal domain failures are acked after their status is recorded
// (insufficient stock) or dead-lettered (unknown user/products, malformed
// payload); transient errors retry with exponential backoff up to
// MaxAttempts and then dead-letter. The offset is committed in every case,
// because an unprocessable message must not wedge the partition. A crash
// before commit causes redelivery, which the processor absorbs through the
// order-ID idempotency key.
type OrderConsumer struct {
	reader    jobSource
	processor *application.Processor
	failures  deadLetterer
	status    domain.JobStatusStore
	cfg       ConsumerConfig
	tracer    trace.Tracer
}

func NewOrderConsumer(
	reader jobSource,
	processor *application.Processor,
	failures deadLetterer,
	status domain.JobStatusStore,
	cfg ConsumerConfig,
	tracer trace.Tracer,
) *OrderConsumer {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = 200 * time.Millisecond
	}
	return &OrderConsumer{
		reader:    reader,
		processor: processor,
		failures:  failures,
		status:    status,
		cfg:       cfg,
		tracer:    tracer,
	}
}

// Run consumes until ctx is cancelled; it is the blocking body of one
// worker goroutine.
func (c *OrderConsumer) Run(ctx context.Context) error {
	logger.Ctx(ctx).Info().Msg("order consumer started")
	defer logger.Ctx(ctx).Info().Msg("order consumer stopped")

	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Ctx(ctx).Error().Err(err).Msg("fetch message failed, backing off")
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(time.Second):
			}
			continue
		}

		c.handleMessage(ctx, msg)

		if err := c.reader.CommitMessages(ctx, msg); err != nil && ctx.Err() == nil {
			logger.Ctx(ctx).Error().Err(err).Msg("failed to commit offset")
		}
	}
}

// Close releases the underlying reader.
func (c *OrderConsumer) Close() error { return c.reader.Close() }

func (c *OrderConsumer) handleMessage(ctx context.Context, msg kafka.Message) {
	msgCtx := mq.ExtractTraceContext(ctx, msg.Headers)
	msgCtx, span := c.tracer.Start(msgCtx, "order.ConsumeMessage", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()

	var job domain.OrderJob
	if err := json.Unmarshal(msg.Value, &job); err != nil {
		// Programming/data error: never retried.
		c.failures.Handle(msgCtx, msg, err)
		return
	}

	var lastErr error
	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		err := c.processor.Process(msgCtx, &job)
		if err == nil {
			return
		}
		lastErr = err

		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			// Expected business outcome: status already records it, the
			// caller can observe it, and the DLT is not for it.
			return
		}
		if domain.IsTerminal(err) {
			c.failures.Handle(msgCtx, msg, err)
			return
		}

		if attempt == c.cfg.MaxAttempts {
			break
		}
		backoff := c.cfg.RetryBackoff << (attempt - 1)
		logger.Ctx(msgCtx).Warn().
			Err(err).
			Str("job_id", job.JobID).
			Int("attempt", attempt).
			Dur("backoff", backoff).
			Msg("transient processing error, retrying")
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
	}

	// Retry budget exhausted.
	c.failures.Handle(msgCtx, msg, lastErr)
	st := domain.NewJobStatus(job.JobID, domain.JobStateFailed, lastErr.Error())
	if err := c.status.SetStatus(msgCtx, st); err != nil {
		logger.Ctx(msgCtx).Warn().Err(err).Str("job_id", job.JobID).Msg("failed to record failed status")
	}
}
