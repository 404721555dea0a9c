// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"fmt"

	"ai-chat-api/internal/domain/entity"
	apperrors "ai-chat-api/pkg/errors"
)

type MessageRepository struct {
	client *Client
}

func NewMessageRepository(client *Client) *MessageRepository {
	return &MessageRepository{client: client}
}

func (r *MessageRepository) Create(ctx context.Context, m *entity.Message) error {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.Create")
	defer span.End()

	if !m.Role.Valid() {
		return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("invalid message role %q", m.Role))
	}

	db := getDB(ctx, r.client.db)
	if err := db.Create(m).Error; err != nil {
		span.RecordError(err)
		return classifyError(err, "create message")
	}
	return nil
}

func (r *MessageRepository) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	ctx, span := tracer.Start(ctx, "postgres.MessageRepository.ListByConversation")
	defer span.End()

	db := getDB(ctx, r.client.db)
	messages := make([]*entity.Message, 0)
	if err := db.Where("conversation_id = ?", conversationID).
		Order("created_at ASC").
		Order("seq ASC").
		Find(&messages).Error; err != nil {
		span.RecordError(err)
		return nil, classifyError(err, "list messages")
	}
	return messages, nil
}
