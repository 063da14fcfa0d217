package mq

import (
	"context"
	"strconv"

	"github.com/segmentio/kafka-go"

	"stockpile/internal/pkg/logger"
	"stockpile/internal/pkg/metrics"
)

// Headers attached to dead-lettered messages so the original delivery can be
// reconstructed when the DLT is inspected.
const (
	HeaderOriginalTopic     = "x-original-topic"
	HeaderOriginalPartition = "x-original-partition"
	HeaderOriginalOffset    = "x-original-offset"
	HeaderExceptionMessage  = "x-exception-message"
)

// FailureHandler forwards messages that cannot be processed to the
// dead-letter topic. The original key and value are preserved.
type FailureHandler struct {
	writer *kafka.Writer
}

func NewFailureHandler(writer *kafka.Writer) *FailureHandler {
	return &FailureHandler{writer: writer}
}

// Handle publishes msg to the dead-letter topic, annotated with its origin
// and the error that killed it. A failure to dead-letter is logged but not
// propagated: the caller still commits the offset, and the log line is the
// remaining trail.
func (f *FailureHandler) Handle(ctx context.Context, msg kafka.Message, cause error) {
	dead := kafka.Message{
		Key:   msg.Key,
		Value: msg.Value,
		Headers: append(msg.Headers,
			kafka.Header{Key: HeaderOriginalTopic, Value: []byte(msg.Topic)},
			kafka.Header{Key: HeaderOriginalPartition, Value: []byte(strconv.Itoa(msg.Partition))},
			kafka.Header{Key: HeaderOriginalOffset, Value: []byte(strconv.FormatInt(msg.Offset, 10))},
			kafka.Header{Key: HeaderExceptionMessage, Value: []byte(cause.Error())},
		),
	}
	InjectTraceContext(ctx, &dead.Headers)

	if err := f.writer.WriteMessages(ctx, dead); err != nil {
		logger.Ctx(ctx).Error().
			Err(err).
			Str("key", string(msg.Key)).
			Str("cause", cause.Error()).
			Msg("failed to dead-letter message")
		return
	}

	metrics.DeadLettersTotal.Inc()
	logger.Ctx(ctx).Error().
		Str("original_topic", msg.Topic).
		Int("original_partition", msg.Partition).
		Int64("original_offset", msg.Offset).
		Str("key", string(msg.Key)).
		Str("cause", cause.Error()).
		Msg("message moved to dead-letter topic")
}
