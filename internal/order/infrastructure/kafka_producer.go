package infrastructure

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/segmentio/kafka-go"

	"stockpile/internal/order/domain"
	"stockpile/internal/pkg/mq"
)

// OrderJobProducer writes jobs to the order topic. Messages are keyed by
// user ID so one submitter's jobs stay in order on a single partition.
type OrderJobProducer struct {
	writer *kafka.Writer
}

func NewOrderJobProducer(writer *kafka.Writer) *OrderJobProducer {
	return &OrderJobProducer{writer: writer}
}

func (p *OrderJobProducer) Enqueue(ctx context.Context, job *domain.OrderJob) error {
	payload, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("marshal order job: %w", err)
	}
	key := []byte(strconv.FormatInt(job.UserID, 10))
	if err := mq.ProduceMessage(ctx, p.writer, key, payload); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrQueueUnavailable, err)
	}
	return nil
}
