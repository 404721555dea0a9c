// Package repository 定义数据访问层接口
package repository

import (
	"context"

	"ai-chat-api/internal/domain/entity"
)

// ConversationRepository 对话仓储
type ConversationRepository interface {
	// Create 插入对话，ID 与时间戳由调用方设置
	Create(ctx context.Context, c *entity.Conversation) error
	// GetByID 获取对话（不含消息），不存在时返回 nil, nil
	GetByID(ctx context.Context, id string) (*entity.Conversation, error)
	// GetByIDForUpdate 在当前事务中加行锁获取对话，不存在时返回 nil, nil
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Conversation, error)
	// ListByUpdatedDesc 按 updated_at 降序列出全部对话，相同时按 id 升序
	ListByUpdatedDesc(ctx context.Context) ([]*entity.Conversation, error)
	// Update 保存标题与更新时间
	Update(ctx context.Context, c *entity.Conversation) error
	// Delete 删除对话及其消息；不存在时不报错
	Delete(ctx context.Context, id string) error
}

// MessageRepository 消息仓储
type MessageRepository interface {
	// Create 追加消息，拒绝 USER/ASSISTANT 以外的角色
	Create(ctx context.Context, m *entity.Message) error
	// ListByConversation 按 created_at、seq 升序返回对话的全部消息
	ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error)
}
