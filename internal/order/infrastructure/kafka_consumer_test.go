package infrastructure

import (
	"context"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"

	"stockpile/internal/order/application"
	"stockpile/internal/order/domain"
)

// fakeSource serves a fixed batch of messages, then cancels the consumer's
// context to end the run loop.
type fakeSource struct {
	mu        sync.Mutex
	msgs      []kafka.Message
	idx       int
	committed []kafka.Message
	cancel    context.CancelFunc
}

func (f *fakeSource) FetchMessage(ctx context.Context) (kafka.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.msgs) {
		f.cancel()
		return kafka.Message{}, context.Canceled
	}
	m := f.msgs[f.idx]
	f.idx++
	return m, nil
}

func (f *fakeSource) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.committed = append(f.committed, msgs...)
	return nil
}

func (f *fakeSource) Close() error { return nil }

func (f *fakeSource) committedCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.committed)
}

type fakeDeadLetterer struct {
	mu     sync.Mutex
	msgs   []kafka.Message
	causes []error
}

func (f *fakeDeadLetterer) Handle(ctx context.Context, msg kafka.Message, cause error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, msg)
	f.causes = append(f.causes, cause)
}

func (f *fakeDeadLetterer) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.msgs)
}

// flakyOrderRepo fails CommitOrder a configured number of times before
// delegating, to exercise the transient retry path.
type flakyOrderRepo struct {
	inner    domain.OrderRepository
	mu       sync.Mutex
	failures int
}

func (r *flakyOrderRepo) CommitOrder(ctx context.Context, order *domain.Order) error {
	r.mu.Lock()
	if r.failures > 0 {
		r.failures--
		r.mu.Unlock()
		return errors.New("storage unavailable")
	}
	r.mu.Unlock()
	return r.inner.CommitOrder(ctx, order)
}

func (r *flakyOrderRepo) FindByUser(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return r.inner.FindByUser(ctx, userID)
}

func jobMessage(t *testing.T, job *domain.OrderJob) kafka.Message {
	t.Helper()
	payload, err := json.Marshal(job)
	require.NoError(t, err)
	return kafka.Message{Topic: "order-jobs", Value: payload}
}

func runConsumer(t *testing.T, msgs []kafka.Message, orders domain.OrderRepository, store *MemoryStore, status domain.JobStatusStore) (*fakeSource, *fakeDeadLetterer) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	source := &fakeSource{msgs: msgs, cancel: cancel}
	dlt := &fakeDeadLetterer{}
	processor := application.NewProcessor(store, store, orders, status, otel.Tracer("test"))
	consumer := NewOrderConsumer(source, processor, dlt, status, ConsumerConfig{
		MaxAttempts:  3,
		RetryBackoff: time.Millisecond,
	}, otel.Tracer("test"))

	require.NoError(t, consumer.Run(ctx))
	return source, dlt
}

func TestConsumerCommitsProcessedJob(t *testing.T) {
	store := seededStore()
	status := NewMemoryJobStatusStore()
	job, err := domain.NewOrderJob(1, []int64{10}, []int{2})
	require.NoError(t, err)

	source, dlt := runConsumer(t, []kafka.Message{jobMessage(t, job)}, store, store, status)

	assert.Equal(t, 1, source.committedCount())
	assert.Zero(t, dlt.count())

	stock, _ := store.ProductStock(10)
	assert.Equal(t, 8, stock)
	orders, _ := store.FindByUser(context.Background(), 1)
	assert.Len(t, orders, 1)
}

func TestConsumerDeadLettersMalformedPayload(t *testing.T) {
	store := seededStore()
	status := NewMemoryJobStatusStore()
	msg := kafka.Message{Topic: "order-jobs", Value: []byte("{not json")}

	source, dlt := runConsumer(t, []kafka.Message{msg}, store, store, status)

	assert.Equal(t, 1, dlt.count(), "malformed payloads go straight to the DLT")
	assert.Equal(t, 1, source.committedCount(), "and their offset is still committed")
}

func TestConsumerDeadLettersUnknownUser(t *testing.T) {
	store := seededStore()
	status := NewMemoryJobStatusStore()
	job, err := domain.NewOrderJob(999, []int64{10}, []int{1})
	require.NoError(t, err)

	source, dlt := runConsumer(t, []kafka.Message{jobMessage(t, job)}, store, store, status)

	assert.Equal(t, 1, dlt.count())
	assert.Equal(t, 1, source.committedCount())

	orders, _ := store.FindByUser(context.Background(), 999)
	assert.Empty(t, orders)
	st, serr := status.GetStatus(context.Background(), job.JobID)
	require.NoError(t, serr)
	assert.Equal(t, domain.JobStateFailed, st.State)
}

func TestConsumerDoesNotDeadLetterInsufficientStock(t *testing.T) {
	store := seededStore()
	status := NewMemoryJobStatusStore()
	job, err := domain.NewOrderJob(1, []int64{20}, []int{50})
	require.NoError(t, err)

	source, dlt := runConsumer(t, []kafka.Message{jobMessage(t, job)}, store, store, status)

	assert.Zero(t, dlt.count(), "a stale-stock rejection is an outcome, not a dead letter")
	assert.Equal(t, 1, source.committedCount())

	st, serr := status.GetStatus(context.Background(), job.JobID)
	require.NoError(t, serr)
	assert.Equal(t, domain.JobStateFailed, st.State)
	assert.Contains(t, st.Reason, "Gadget")
}

func TestConsumerRetriesTransientErrors(t *testing.T) {
	store := seededStore()
	status := NewMemoryJobStatusStore()
	flaky := &flakyOrderRepo{inner: store, failures: 2}
	job, err := domain.NewOrderJob(1, []int64{10}, []int{1})
	require.NoError(t, err)

	source, dlt := runConsumer(t, []kafka.Message{jobMessage(t, job)}, flaky, store, status)

	assert.Zero(t, dlt.count(), "job recovered within the retry budget")
	assert.Equal(t, 1, source.committedCount())

	orders, _ := store.FindByUser(context.Background(), 1)
	assert.Len(t, orders, 1)
}

func TestConsumerDeadLettersAfterRetryBudget(t *testing.T) {
	store := seededStore()
	status := NewMemoryJobStatusStore()
	flaky := &flakyOrderRepo{inner: store, failures: 100}
	job, err := domain.NewOrderJob(1, []int64{10}, []int{1})
	require.NoError(t, err)

	source, dlt := runConsumer(t, []kafka.Message{jobMessage(t, job)}, flaky, store, status)

	assert.Equal(t, 1, dlt.count())
	assert.Equal(t, 1, source.committedCount())

	st, serr := status.GetStatus(context.Background(), job.JobID)
	require.NoError(t, serr)
	assert.Equal(t, domain.JobStateFailed, st.State)

	stock, _ := store.ProductStock(10)
	assert.Equal(t, 10, stock, "nothing was committed")
}
