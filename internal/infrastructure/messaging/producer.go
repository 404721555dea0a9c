package messaging

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"ai-chat-api/internal/domain/entity"
	domainservice "ai-chat-api/internal/domain/service"
	"ai-chat-api/pkg/logger"
	"ai-chat-api/pkg/metrics"
	"ai-chat-api/pkg/tracer"
)

var msgTracer = otel.Tracer("messaging")

const (
	DefaultStream = "ai-chat:conversation-events"
	defaultMaxLen = 10000
)

// Producer 消息生产者
type Producer struct {
	client *redis.Client
	stream string
	maxLen int64
}

var _ domainservice.EventPublisher = (*Producer)(nil)

// NewProducer 创建消息生产者
func NewProducer(client *redis.Client, stream string, maxLen int64) *Producer {
	if stream == "" {
		stream = DefaultStream
	}
	if maxLen <= 0 {
		maxLen = defaultMaxLen
	}
	return &Producer{
		client: client,
		stream: stream,
		maxLen: maxLen,
	}
}

// Stream 返回目标流名称
func (p *Producer) Stream() string { return p.stream }

// Publish 发布消息，返回流内消息 ID
func (p *Producer) Publish(ctx context.Context, msg *Message) (string, error) {
	ctx, span := msgTracer.Start(ctx, "producer.Publish",
		trace.WithAttributes(
			attribute.String("stream", p.stream),
			attribute.String("message.id", msg.ID),
			attribute.String("message.type", msg.Type),
		))
	defer span.End()

	data, err := json.Marshal(msg)
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to marshal message: %w", err)
	}

	result, err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		MaxLen: p.maxLen,
		Approx: true,
		Values: map[string]interface{}{
			"type": msg.Type,
			"data": string(data),
		},
	}).Result()
	if err != nil {
		span.RecordError(err)
		return "", fmt.Errorf("failed to publish message: %w", err)
	}

	span.SetAttributes(attribute.String("stream.message_id", result))
	return result, nil
}

// PublishConversationEvent 发布对话生命周期事件
func (p *Producer) PublishConversationEvent(ctx context.Context, evt *entity.ConversationEvent) error {
	msg, err := NewMessage(uuid.NewString(), string(evt.Type), evt.ConversationID, evt)
	if err != nil {
		return err
	}
	msg.SetMetadata("trace_id", tracer.TraceID(ctx))
	if rid, ok := ctx.Value(logger.RequestIDKey).(string); ok {
		msg.SetMetadata("request_id", rid)
	}

	if _, err := p.Publish(ctx, msg); err != nil {
		metrics.EventsPublishedTotal.WithLabelValues(string(evt.Type), "error").Inc()
		return err
	}
	metrics.EventsPublishedTotal.WithLabelValues(string(evt.Type), "success").Inc()
	return nil
}
