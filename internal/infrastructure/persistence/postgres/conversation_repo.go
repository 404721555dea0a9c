// Package postgres 提供 PostgreSQL Repository 实现
package postgres

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"ai-chat-api/internal/domain/entity"
)

type ConversationRepository struct {
	client *Client
}

func NewConversationRepository(client *Client) *ConversationRepository {
	return &ConversationRepository{client: client}
}

func (r *ConversationRepository) Create(ctx context.Context, c *entity.Conversation) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.Create")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Create(c).Error; err != nil {
		span.RecordError(err)
		return classifyError(err, "create conversation")
	}
	return nil
}

func (r *ConversationRepository) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.GetByID")
	defer span.End()

	return r.get(ctx, getDB(ctx, r.client.db), id, "get conversation")
}

func (r *ConversationRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.Conversation, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.GetByIDForUpdate")
	defer span.End()

	db := getDB(ctx, r.client.db).Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	return r.get(ctx, db, id, "get conversation for update")
}

func (r *ConversationRepository) get(ctx context.Context, db *gorm.DB, id, op string) (*entity.Conversation, error) {
	var c entity.Conversation
	if err := db.Where("id = ?", id).Take(&c).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, classifyError(err, op)
	}
	return &c, nil
}

func (r *ConversationRepository) ListByUpdatedDesc(ctx context.Context) ([]*entity.Conversation, error) {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.ListByUpdatedDesc")
	defer span.End()

	db := getDB(ctx, r.client.db)
	conversations := make([]*entity.Conversation, 0)
	if err := db.Order("updated_at DESC").Order("id ASC").Find(&conversations).Error; err != nil {
		span.RecordError(err)
		return nil, classifyError(err, "list conversations")
	}
	return conversations, nil
}

func (r *ConversationRepository) Update(ctx context.Context, c *entity.Conversation) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.Update")
	defer span.End()

	db := getDB(ctx, r.client.db)
	err := db.Model(&entity.Conversation{}).
		Where("id = ?", c.ID).
		Updates(map[string]interface{}{
			"title":      c.Title,
			"updated_at": c.UpdatedAt,
		}).Error
	if err != nil {
		span.RecordError(err)
		return classifyError(err, "update conversation")
	}
	return nil
}

// Delete 删除对话，消息由外键 ON DELETE CASCADE 级联删除
func (r *ConversationRepository) Delete(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "postgres.ConversationRepository.Delete")
	defer span.End()

	db := getDB(ctx, r.client.db)
	if err := db.Where("id = ?", id).Delete(&entity.Conversation{}).Error; err != nil {
		span.RecordError(err)
		return classifyError(err, "delete conversation")
	}
	return nil
}
