//go:build wireinject
// +build wireinject

// Package wire 提供依赖注入配置
package wire

import (
	"context"

	"github.com/google/wire"

	"ai-chat-api/internal/application/assistant"
	"ai-chat-api/internal/config"
	"ai-chat-api/internal/infrastructure/llm"
	"ai-chat-api/internal/interfaces/http/handler"
	"ai-chat-api/internal/interfaces/http/router"
	"ai-chat-api/internal/workflow/prompt"
)

// InitializeApp 初始化整个应用（带路由器）
func InitializeApp(ctx context.Context, cfg *config.Config) (*router.Router, func(), error) {
	wire.Build(
		StoreSet,
		RedisSet,
		LLMSet,
		RouterSet,
	)
	return nil, nil, nil
}

// StoreSet 存储网关提供者集合
var StoreSet = wire.NewSet(
	ProvideStore,
)

// RedisSet 可选 Redis：对话缓存与事件流
var RedisSet = wire.NewSet(
	ProvideRedisClientOptional,
	ProvideConversationCache,
	ProvideMessagingProducer,
)

// LLMSet 模型与提示词
var LLMSet = wire.NewSet(
	llm.NewEinoFactory,
	wire.Bind(new(llm.ModelSource), new(*llm.EinoFactory)),
	llm.NewAdapter,
	prompt.NewRegistry,
)

// RouterSet 路由器提供者集合
var RouterSet = wire.NewSet(
	ProvideConversationService,
	assistant.NewService,
	handler.NewConversationHandler,
	handler.NewAssistantHandler,
	ProvideHealthHandler,
	wire.Struct(new(router.Handlers), "*"),
	router.New,
)
