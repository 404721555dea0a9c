package redis

import (
	"context"
	"encoding/json"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"ai-chat-api/internal/domain/entity"
	domainservice "ai-chat-api/internal/domain/service"
	"ai-chat-api/pkg/logger"
	"ai-chat-api/pkg/metrics"
)

var cacheTracer = otel.Tracer("redis.cache")

const (
	conversationKeyPrefix  = "ai-chat:conversation:"
	defaultConversationTTL = 10 * time.Minute
)

// ConversationCache 对话详情 Read-Through 缓存
// Redis 故障时直接回源，不向调用方返回缓存错误；不存在的对话不缓存。
type ConversationCache struct {
	client *Client
	ttl    time.Duration
	group  singleflight.Group
}

var _ domainservice.ConversationCache = (*ConversationCache)(nil)

// NewConversationCache 创建对话缓存
func NewConversationCache(client *Client, ttl time.Duration) *ConversationCache {
	if ttl <= 0 {
		ttl = defaultConversationTTL
	}
	return &ConversationCache{client: client, ttl: ttl}
}

func conversationKey(id string) string {
	return conversationKeyPrefix + id
}

// GetOrLoad 命中时直接返回；未命中时使用 singleflight 合并并发回源
func (c *ConversationCache) GetOrLoad(ctx context.Context, id string, load func(ctx context.Context) (*entity.Conversation, error)) (*entity.Conversation, error) {
	key := conversationKey(id)
	ctx, span := cacheTracer.Start(ctx, "cache.GetOrLoad",
		trace.WithAttributes(attribute.String("cache.key", key)))
	defer span.End()

	if conv, ok := c.lookup(ctx, key); ok {
		span.SetAttributes(attribute.Bool("cache.hit", true))
		return conv, nil
	}
	span.SetAttributes(attribute.Bool("cache.hit", false))

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		conv, err := load(ctx)
		if err != nil || conv == nil {
			return conv, err
		}
		c.store(ctx, key, conv)
		return conv, nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	conv, _ := v.(*entity.Conversation)
	return conv, nil
}

// Invalidate 删除对话缓存
func (c *ConversationCache) Invalidate(ctx context.Context, id string) error {
	ctx, span := cacheTracer.Start(ctx, "cache.Invalidate",
		trace.WithAttributes(attribute.String("cache.key", conversationKey(id))))
	defer span.End()

	return c.client.Del(ctx, conversationKey(id))
}

func (c *ConversationCache) lookup(ctx context.Context, key string) (*entity.Conversation, bool) {
	raw, err := c.client.Get(ctx, key)
	switch {
	case err == nil:
	case IsNil(err):
		metrics.CacheRequestsTotal.WithLabelValues("miss").Inc()
		return nil, false
	default:
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "conversation cache read failed", "key", key, "error", err.Error())
		return nil, false
	}

	var conv entity.Conversation
	if err := json.Unmarshal(raw, &conv); err != nil {
		metrics.CacheRequestsTotal.WithLabelValues("error").Inc()
		logger.Warn(ctx, "conversation cache entry corrupted", "key", key, "error", err.Error())
		_ = c.client.Del(ctx, key)
		return nil, false
	}
	if conv.Messages == nil {
		conv.Messages = []*entity.Message{}
	}
	metrics.CacheRequestsTotal.WithLabelValues("hit").Inc()
	return &conv, true
}

func (c *ConversationCache) store(ctx context.Context, key string, conv *entity.Conversation) {
	b, err := json.Marshal(conv)
	if err != nil {
		logger.Warn(ctx, "marshal conversation for cache failed", "key", key, "error", err.Error())
		return
	}
	if err := c.client.Set(ctx, key, b, c.ttl); err != nil {
		logger.Warn(ctx, "conversation cache write failed", "key", key, "error", err.Error())
	}
}
