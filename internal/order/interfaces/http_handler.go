// Package interfaces exposes the pipeline over HTTP.
package interfaces

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"stockpile/internal/order/application"
	"stockpile/internal/order/domain"
	"stockpile/internal/pkg/logger"
)

const serviceName = "order-service"

// OrderHandler wires the application service to the HTTP surface.
type OrderHandler struct {
	service *application.Service
}

func NewOrderHandler(service *application.Service) *OrderHandler {
	return &OrderHandler{service: service}
}

// RegisterRoutes registers all routes on mux.
func (h *OrderHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) })
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/orders", h.orders)
	mux.HandleFunc("/orders/status", h.jobStatus)
}

func (h *OrderHandler) orders(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		h.placeOrder(w, r)
	case http.MethodGet:
		h.listOrders(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *OrderHandler) placeOrder(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.PlaceOrder")
	defer span.End()

	var req application.PlaceOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := h.service.PlaceOrder(ctx, &req)
	if err != nil {
		status, msg := mapSubmissionError(err)
		writeError(w, status, msg)
		return
	}
	writeJSON(w, http.StatusAccepted, resp)
}

func (h *OrderHandler) listOrders(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.GetUserOrders")
	defer span.End()

	userID, err := strconv.ParseInt(r.URL.Query().Get("userId"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "userId query parameter is required")
		return
	}

	views, err := h.service.GetUserOrders(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		logger.Ctx(ctx).Error().Err(err).Int64("user_id", userID).Msg("failed to list orders")
		writeError(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}
	writeJSON(w, http.StatusOK, views)
}

func (h *OrderHandler) jobStatus(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := otel.Tracer(serviceName).Start(ctx, "http.JobStatus")
	defer span.End()

	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	jobID := r.URL.Query().Get("jobId")
	if jobID == "" {
		writeError(w, http.StatusBadRequest, "jobId query parameter is required")
		return
	}

	status, err := h.service.JobStatus(ctx, jobID)
	if err != nil {
		if errors.Is(err, domain.ErrStatusNotFound) {
			writeError(w, http.StatusNotFound, "unknown job")
			return
		}
		logger.Ctx(ctx).Error().Err(err).Str("job_id", jobID).Msg("failed to read job status")
		writeError(w, http.StatusInternalServerError, "failed to read job status")
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func mapSubmissionError(err error) (int, string) {
	var insufficient *domain.InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		return http.StatusConflict, "Not enough stock for '" + insufficient.ProductName + "' product try again later"
	case errors.Is(err, domain.ErrUserNotFound):
		return http.StatusNotFound, "User not found"
	case errors.Is(err, domain.ErrProductsNotFound):
		return http.StatusNotFound, "Products not found"
	case errors.Is(err, domain.ErrEmptyOrder),
		errors.Is(err, domain.ErrLineMismatch),
		errors.Is(err, domain.ErrNonPositiveQuantity):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, domain.ErrQueueUnavailable):
		return http.StatusServiceUnavailable, "order queue unavailable, submission not accepted"
	default:
		return http.StatusInternalServerError, "an error occurred while placing the order"
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]any{"accepted": false, "message": msg})
}
