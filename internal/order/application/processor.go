package application

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockpile/internal/order/domain"
	"stockpile/internal/pkg/logger"
	"stockpile/internal/pkg/metrics"
)

// Processor settles one job against inventory: resolve user and products,
// then commit every line's decrement and the order record in a single
// atomic step. Safe under redelivery and under concurrent workers.
type Processor struct {
	users    domain.UserRepository
	products domain.ProductRepository
	orders   domain.OrderRepository
	status   domain.JobStatusStore
	tracer   trace.Tracer
}

func NewProcessor(
	users domain.UserRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	status domain.JobStatusStore,
	tracer trace.Tracer,
) *Processor {
	return &Processor{
		users:    users,
		products: products,
		orders:   orders,
		status:   status,
		tracer:   tracer,
	}
}

// Process handles one dequeued job. Terminal failures (unknown user or
// products, insufficient stock, malformed payload) are recorded as the job's
// final status and returned; the caller must ack rather than retry them.
// Any other error is transient and retryable. A redelivered job that was
// already committed returns nil.
func (p *Processor) Process(ctx context.Context, job *domain.OrderJob) error {
	ctx, span := p.tracer.Start(ctx, "order.ProcessJob", trace.WithSpanKind(trace.SpanKindConsumer))
	defer span.End()
	span.SetAttributes(
		attribute.String("job.id", job.JobID),
		attribute.Int64("user.id", job.UserID),
	)

	start := time.Now()
	defer func() { metrics.ProcessingDuration.Observe(time.Since(start).Seconds()) }()

	if err := job.Validate(); err != nil {
		p.markFailed(ctx, job.JobID, err)
		metrics.JobsProcessedTotal.WithLabelValues("malformed").Inc()
		return err
	}

	// Fast path for redelivery. Purely an optimization: CommitOrder's
	// duplicate-key check is the authoritative guard.
	if done, err := p.status.AlreadyProcessed(ctx, job.JobID); err == nil && done {
		metrics.JobsProcessedTotal.WithLabelValues("duplicate").Inc()
		logger.Ctx(ctx).Info().Str("job_id", job.JobID).Msg("job already processed, skipping")
		return nil
	}

	if _, err := p.users.FindByID(ctx, job.UserID); err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			p.markFailed(ctx, job.JobID, err)
			metrics.JobsProcessedTotal.WithLabelValues("user_not_found").Inc()
		}
		span.RecordError(err)
		return err
	}

	uniqueIDs := job.UniqueProductIDs()
	products, err := p.products.FindByIDs(ctx, uniqueIDs)
	if err != nil {
		span.RecordError(err)
		return err
	}
	if len(products) != len(uniqueIDs) {
		p.markFailed(ctx, job.JobID, domain.ErrProductsNotFound)
		metrics.JobsProcessedTotal.WithLabelValues("products_not_found").Inc()
		span.SetStatus(codes.Error, "products not found")
		return domain.ErrProductsNotFound
	}

	byID := make(map[int64]*domain.Product, len(products))
	for _, prod := range products {
		byID[prod.ID] = prod
	}
	order, err := domain.BuildOrder(job, byID)
	if err != nil {
		p.markFailed(ctx, job.JobID, err)
		return err
	}

	err = p.orders.CommitOrder(ctx, order)
	switch {
	case err == nil:
	case errors.Is(err, domain.ErrAlreadyProcessed):
		metrics.JobsProcessedTotal.WithLabelValues("duplicate").Inc()
		logger.Ctx(ctx).Info().Str("job_id", job.JobID).Msg("order already committed, acking redelivery")
		p.markProcessed(ctx, job.JobID)
		return nil
	default:
		var insufficient *domain.InsufficientStockError
		if errors.As(err, &insufficient) {
			// Expected outcome of racing orders; final, not retryable.
			p.markFailed(ctx, job.JobID, err)
			metrics.JobsProcessedTotal.WithLabelValues("insufficient_stock").Inc()
			span.SetAttributes(attribute.String("order.rejected_product", insufficient.ProductName))
			logger.Ctx(ctx).Info().
				Str("job_id", job.JobID).
				Str("product", insufficient.ProductName).
				Int("requested", insufficient.Requested).
				Int("available", insufficient.Available).
				Msg("order rejected: insufficient stock at processing time")
			return err
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "order commit failed")
		metrics.JobsProcessedTotal.WithLabelValues("error").Inc()
		return err
	}

	p.markProcessed(ctx, job.JobID)
	if err := p.status.SetStatus(ctx, domain.NewJobStatus(job.JobID, domain.JobStateCompleted, "")); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("job_id", job.JobID).Msg("failed to record completed status")
	}

	metrics.JobsProcessedTotal.WithLabelValues("completed").Inc()
	logger.Ctx(ctx).Info().
		Str("job_id", job.JobID).
		Int64("user_id", job.UserID).
		Str("total", order.Total.String()).
		Msg("order processed")
	return nil
}

func (p *Processor) markFailed(ctx context.Context, jobID string, cause error) {
	st := domain.NewJobStatus(jobID, domain.JobStateFailed, cause.Error())
	if err := p.status.SetStatus(ctx, st); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("failed to record failed status")
	}
}

func (p *Processor) markProcessed(ctx context.Context, jobID string) {
	if err := p.status.MarkProcessed(ctx, jobID); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("job_id", jobID).Msg("failed to record processed marker")
	}
}
