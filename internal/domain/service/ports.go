package service

import (
	"context"

	"github.com/cloudwego/eino/schema"

	"ai-chat-api/internal/domain/entity"
)

// ChatCompleter 以系统提示词加历史消息生成一条回复
type ChatCompleter interface {
	Complete(ctx context.Context, systemPrompt string, history []*schema.Message) (string, error)
}

// ConversationCache 对话详情读缓存
// 实现应为 best-effort：缓存故障时由调用方回源，不影响主流程。
type ConversationCache interface {
	GetOrLoad(ctx context.Context, id string, load func(ctx context.Context) (*entity.Conversation, error)) (*entity.Conversation, error)
	Invalidate(ctx context.Context, id string) error
}

// EventPublisher 发布对话生命周期事件
type EventPublisher interface {
	PublishConversationEvent(ctx context.Context, evt *entity.ConversationEvent) error
}
