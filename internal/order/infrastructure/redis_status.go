package infrastructure

import (
	"context"
	"encoding/json"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"stockpile/internal/order/domain"
)

const (
	statusKeyPrefix    = "order:status:"
	processedKeyPrefix = "order:done:"
)

// RedisJobStatusStore keeps job statuses and the processed-job fast-path
// markers in Redis with a bounded TTL.
type RedisJobStatusStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisJobStatusStore(client *redis.Client, ttl time.Duration) *RedisJobStatusStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisJobStatusStore{client: client, ttl: ttl}
}

func (s *RedisJobStatusStore) SetStatus(ctx context.Context, status domain.JobStatus) error {
	raw, err := json.Marshal(status)
	if err != nil {
		return errors.Wrap(err, "marshal job status")
	}
	if err := s.client.Set(ctx, statusKeyPrefix+status.JobID, raw, s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "set status for job %s", status.JobID)
	}
	return nil
}

func (s *RedisJobStatusStore) GetStatus(ctx context.Context, jobID string) (domain.JobStatus, error) {
	raw, err := s.client.Get(ctx, statusKeyPrefix+jobID).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return domain.JobStatus{}, domain.ErrStatusNotFound
		}
		return domain.JobStatus{}, errors.Wrapf(err, "get status for job %s", jobID)
	}
	var status domain.JobStatus
	if err := json.Unmarshal(raw, &status); err != nil {
		return domain.JobStatus{}, errors.Wrapf(err, "decode status for job %s", jobID)
	}
	return status, nil
}

func (s *RedisJobStatusStore) MarkProcessed(ctx context.Context, jobID string) error {
	if err := s.client.SetNX(ctx, processedKeyPrefix+jobID, "1", s.ttl).Err(); err != nil {
		return errors.Wrapf(err, "mark job %s processed", jobID)
	}
	return nil
}

func (s *RedisJobStatusStore) AlreadyProcessed(ctx context.Context, jobID string) (bool, error) {
	n, err := s.client.Exists(ctx, processedKeyPrefix+jobID).Result()
	if err != nil {
		return false, errors.Wrapf(err, "check processed marker for job %s", jobID)
	}
	return n > 0, nil
}
