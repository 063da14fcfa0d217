package interfaces

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"stockpile/internal/order/application"
	"stockpile/internal/order/domain"
	"stockpile/internal/order/infrastructure"
)

type stubProducer struct {
	mu   sync.Mutex
	jobs []*domain.OrderJob
	err  error
}

func (p *stubProducer) Enqueue(ctx context.Context, job *domain.OrderJob) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.jobs = append(p.jobs, job)
	return nil
}

func newTestServer(t *testing.T, producer *stubProducer) (*httptest.Server, *infrastructure.MemoryStore, *infrastructure.MemoryJobStatusStore) {
	t.Helper()
	store := infrastructure.NewMemoryStore()
	store.AddUser(domain.User{ID: 1, Name: "Alice", Email: "alice@example.com"})
	store.AddProduct(domain.Product{ID: 10, Name: "Widget", Price: decimal.RequireFromString("19.99"), Stock: 10})
	status := infrastructure.NewMemoryJobStatusStore()

	service := application.NewService(store, store, store, producer, status, otel.Tracer("test"))
	mux := http.NewServeMux()
	NewOrderHandler(service).RegisterRoutes(mux)

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, store, status
}

func postOrder(t *testing.T, url string, body any) *http.Response {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	resp, err := http.Post(url+"/orders", "application/json", bytes.NewReader(raw))
	require.NoError(t, err)
	return resp
}

func decodeBody(t *testing.T, resp *http.Response, v any) {
	t.Helper()
	defer resp.Body.Close()
	require.NoError(t, json.NewDecoder(resp.Body).Decode(v))
}

func TestPlaceOrderEndpointAccepted(t *testing.T) {
	producer := &stubProducer{}
	server, _, _ := newTestServer(t, producer)

	resp := postOrder(t, server.URL, application.PlaceOrderRequest{
		UserID:     1,
		ProductIDs: []int64{10},
		Quantities: []int{2},
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)

	var body application.PlaceOrderResponse
	decodeBody(t, resp, &body)
	assert.True(t, body.Accepted)
	assert.NotEmpty(t, body.JobID)
	assert.Len(t, producer.jobs, 1)
}

func TestPlaceOrderEndpointBadBody(t *testing.T) {
	server, _, _ := newTestServer(t, &stubProducer{})

	resp, err := http.Post(server.URL+"/orders", "application/json", bytes.NewReader([]byte("{broken")))
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestPlaceOrderEndpointUnknownUser(t *testing.T) {
	server, _, _ := newTestServer(t, &stubProducer{})

	resp := postOrder(t, server.URL, application.PlaceOrderRequest{
		UserID:     999,
		ProductIDs: []int64{10},
		Quantities: []int{1},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPlaceOrderEndpointInsufficientStock(t *testing.T) {
	server, _, _ := newTestServer(t, &stubProducer{})

	resp := postOrder(t, server.URL, application.PlaceOrderRequest{
		UserID:     1,
		ProductIDs: []int64{10},
		Quantities: []int{50},
	})
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var body map[string]any
	decodeBody(t, resp, &body)
	assert.Contains(t, body["message"], "Widget")
}

func TestPlaceOrderEndpointQueueUnavailable(t *testing.T) {
	server, _, _ := newTestServer(t, &stubProducer{err: domain.ErrQueueUnavailable})

	resp := postOrder(t, server.URL, application.PlaceOrderRequest{
		UserID:     1,
		ProductIDs: []int64{10},
		Quantities: []int{1},
	})
	defer resp.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestListOrdersEndpoint(t *testing.T) {
	server, store, _ := newTestServer(t, &stubProducer{})

	require.NoError(t, store.CommitOrder(context.Background(), &domain.Order{
		ID:     "job-1",
		UserID: 1,
		Lines:  []domain.OrderLine{{ProductID: 10, Quantity: 2, UnitPrice: decimal.RequireFromString("19.99")}},
		Total:  decimal.RequireFromString("39.98"),
	}))

	resp, err := http.Get(server.URL + "/orders?userId=1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var views []application.OrderView
	decodeBody(t, resp, &views)
	require.Len(t, views, 1)
	assert.Equal(t, "job-1", views[0].ID)
	assert.True(t, views[0].Total.Equal(decimal.RequireFromString("39.98")))
}

func TestListOrdersEndpointUnknownUser(t *testing.T) {
	server, _, _ := newTestServer(t, &stubProducer{})

	resp, err := http.Get(server.URL + "/orders?userId=404")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestJobStatusEndpoint(t *testing.T) {
	server, _, status := newTestServer(t, &stubProducer{})
	require.NoError(t, status.SetStatus(context.Background(),
		domain.NewJobStatus("job-1", domain.JobStateFailed, "not enough stock")))

	resp, err := http.Get(server.URL + "/orders/status?jobId=job-1")
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var st domain.JobStatus
	decodeBody(t, resp, &st)
	assert.Equal(t, domain.JobStateFailed, st.State)
	assert.Equal(t, "not enough stock", st.Reason)

	resp, err = http.Get(server.URL + "/orders/status?jobId=unknown")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
