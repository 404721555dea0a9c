package wire

import (
	"context"
	"fmt"

	appconversation "ai-chat-api/internal/application/conversation"
	"ai-chat-api/internal/config"
	"ai-chat-api/internal/domain/repository"
	"ai-chat-api/internal/infrastructure/llm"
	"ai-chat-api/internal/infrastructure/messaging"
	"ai-chat-api/internal/infrastructure/persistence/memory"
	"ai-chat-api/internal/infrastructure/persistence/postgres"
	"ai-chat-api/internal/infrastructure/persistence/redis"
	"ai-chat-api/internal/interfaces/http/handler"
	"ai-chat-api/internal/workflow/prompt"
	"ai-chat-api/pkg/logger"
)

// ProvideStore 按 database.driver 选择存储网关
func ProvideStore(ctx context.Context, cfg *config.Config) (repository.Store, func(), error) {
	switch cfg.Database.Driver {
	case config.DriverMemory:
		logger.Warn(ctx, "using in-memory store, data is lost on restart")
		return memory.NewStore(), func() {}, nil
	case config.DriverPostgres, "":
	default:
		return nil, nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	client, err := postgres.NewClient(&cfg.Database.Postgres)
	if err != nil {
		return nil, nil, err
	}
	cleanup := func() {
		_ = client.Close()
	}

	if cfg.Database.AutoMigrate {
		sqlDB, err := client.SqlDB()
		if err != nil {
			cleanup()
			return nil, nil, err
		}
		if err := postgres.Migrate(sqlDB); err != nil {
			cleanup()
			return nil, nil, err
		}
		logger.Info(ctx, "database migrations applied")
	}

	return postgres.NewStore(client, cfg.Database.Retry), cleanup, nil
}

// ProvideRedisClientOptional Redis 未启用或不可达时返回 nil，不阻塞启动
func ProvideRedisClientOptional(ctx context.Context, cfg *config.Config) (*redis.Client, func(), error) {
	if !cfg.Cache.Redis.Enabled {
		return nil, func() {}, nil
	}
	client, err := redis.NewClient(&cfg.Cache.Redis)
	if err != nil {
		logger.Warn(ctx, "redis not available, cache and events disabled", "error", err.Error())
		return nil, func() {}, nil
	}
	cleanup := func() {
		_ = client.Close()
	}
	return client, cleanup, nil
}

// ProvideConversationCache 提供对话详情缓存
func ProvideConversationCache(client *redis.Client, cfg *config.Config) *redis.ConversationCache {
	if client == nil {
		return nil
	}
	return redis.NewConversationCache(client, cfg.Cache.ConversationTTL)
}

// ProvideMessagingProducer 提供对话事件生产者
func ProvideMessagingProducer(client *redis.Client, cfg *config.Config) *messaging.Producer {
	if client == nil || !cfg.Messaging.RedisStream.Enabled {
		return nil
	}
	return messaging.NewProducer(client.Redis(), cfg.Messaging.RedisStream.Stream, int64(cfg.Messaging.RedisStream.MaxLen))
}

// ProvideConversationService 组装对话服务；缓存与事件均为可选
func ProvideConversationService(
	store repository.Store,
	adapter *llm.Adapter,
	prompts *prompt.Registry,
	cache *redis.ConversationCache,
	producer *messaging.Producer,
	cfg *config.Config,
) (*appconversation.Service, error) {
	system, err := prompts.System(prompt.PromptChat)
	if err != nil {
		return nil, err
	}

	var opts []appconversation.Option
	if cache != nil {
		opts = append(opts, appconversation.WithCache(cache))
	}
	if producer != nil {
		opts = append(opts, appconversation.WithEventPublisher(producer))
	}
	return appconversation.NewService(store, adapter, system, cfg.Conversation, opts...), nil
}

// ProvideHealthHandler 提供健康检查处理器
func ProvideHealthHandler(store repository.Store, redisClient *redis.Client, cfg *config.Config) *handler.HealthHandler {
	return handler.NewHealthHandler(store, redisClient, cfg.App.Version)
}
