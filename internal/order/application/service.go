// Package application orchestrates the order pipeline: the submission gate
// that validates and enqueues, and the worker that settles jobs against
// inventory.
package application

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"stockpile/internal/order/domain"
	"stockpile/internal/pkg/logger"
	"stockpile/internal/pkg/metrics"
)

// Service is the submission gate. It performs the synchronous, advisory
// checks and enqueues a job; it never mutates product or order state.
type Service struct {
	users    domain.UserRepository
	products domain.ProductRepository
	orders   domain.OrderRepository
	producer domain.JobProducer
	status   domain.JobStatusStore
	tracer   trace.Tracer
}

func NewService(
	users domain.UserRepository,
	products domain.ProductRepository,
	orders domain.OrderRepository,
	producer domain.JobProducer,
	status domain.JobStatusStore,
	tracer trace.Tracer,
) *Service {
	return &Service{
		users:    users,
		products: products,
		orders:   orders,
		producer: producer,
		status:   status,
		tracer:   tracer,
	}
}

// PlaceOrder validates the request, enqueues a job, and returns immediately.
// The stock check here is advisory: it rejects obviously doomed requests for
// fast feedback but reserves nothing, so the worker re-validates
// authoritatively. Exactly one enqueue happens per accepted call.
func (s *Service) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	ctx, span := s.tracer.Start(ctx, "order.PlaceOrder")
	defer span.End()
	span.SetAttributes(
		attribute.Int64("user.id", req.UserID),
		attribute.Int("order.lines", len(req.ProductIDs)),
	)

	job, err := domain.NewOrderJob(req.UserID, req.ProductIDs, req.Quantities)
	if err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	if _, err := s.users.FindByID(ctx, req.UserID); err != nil {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, err
	}

	uniqueIDs := job.UniqueProductIDs()
	products, err := s.products.FindByIDs(ctx, uniqueIDs)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if len(products) != len(uniqueIDs) {
		metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
		return nil, domain.ErrProductsNotFound
	}

	byID := make(map[int64]*domain.Product, len(products))
	for _, p := range products {
		byID[p.ID] = p
	}
	for i, id := range job.ProductIDs {
		p := byID[id]
		if p.Stock < job.Quantities[i] {
			metrics.SubmissionsTotal.WithLabelValues("rejected").Inc()
			return nil, &domain.InsufficientStockError{
				ProductID:   p.ID,
				ProductName: p.Name,
				Requested:   job.Quantities[i],
				Available:   p.Stock,
			}
		}
	}

	if err := s.producer.Enqueue(ctx, job); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "enqueue failed")
		metrics.SubmissionsTotal.WithLabelValues("queue_error").Inc()
		return nil, err
	}

	// Status record is best effort: the job is already durable in the
	// queue, so a status write failure must not fail the submission.
	if err := s.status.SetStatus(ctx, domain.NewJobStatus(job.JobID, domain.JobStateQueued, "")); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("job_id", job.JobID).Msg("failed to record queued status")
	}

	metrics.SubmissionsTotal.WithLabelValues("accepted").Inc()
	logger.Ctx(ctx).Info().
		Str("job_id", job.JobID).
		Int64("user_id", req.UserID).
		Int("lines", len(job.ProductIDs)).
		Msg("order accepted and enqueued")

	return &PlaceOrderResponse{
		Accepted: true,
		JobID:    job.JobID,
		Message:  "Order placed successfully.",
	}, nil
}

// GetUserOrders returns the user's persisted orders, newest first.
func (s *Service) GetUserOrders(ctx context.Context, userID int64) ([]OrderView, error) {
	ctx, span := s.tracer.Start(ctx, "order.GetUserOrders")
	defer span.End()

	if _, err := s.users.FindByID(ctx, userID); err != nil {
		return nil, err
	}
	orders, err := s.orders.FindByUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	views := make([]OrderView, 0, len(orders))
	for _, o := range orders {
		views = append(views, toOrderView(o))
	}
	return views, nil
}

// JobStatus returns the recorded outcome for one job.
func (s *Service) JobStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	ctx, span := s.tracer.Start(ctx, "order.JobStatus")
	defer span.End()
	return s.status.GetStatus(ctx, jobID)
}
