// Package entity 定义领域实体
package entity

import (
	"time"

	"github.com/google/uuid"
)

// Conversation 多轮对话
type Conversation struct {
	ID        string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	Title     *string   `json:"title" gorm:"type:text"`
	CreatedAt time.Time `json:"created_at" gorm:"not null"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;index:idx_conversations_updated_at,sort:desc"`

	// Messages 按 CreatedAt、Seq 升序；列表查询时不加载
	Messages []*Message `json:"messages,omitempty" gorm:"-"`
}

func (Conversation) TableName() string {
	return "conversations"
}

// NewConversation 创建空对话，标题为空
func NewConversation(now time.Time) *Conversation {
	now = now.UTC()
	return &Conversation{
		ID:        uuid.NewString(),
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Rename 设置标题并刷新更新时间
func (c *Conversation) Rename(title string, now time.Time) {
	c.Title = &title
	c.Touch(now)
}

// Touch 刷新更新时间，保证不早于创建时间
func (c *Conversation) Touch(now time.Time) {
	now = now.UTC()
	if now.Before(c.CreatedAt) {
		now = c.CreatedAt
	}
	if now.Before(c.UpdatedAt) {
		now = c.UpdatedAt
	}
	c.UpdatedAt = now
}

// Message 对话中的一条消息
type Message struct {
	ID             string    `json:"id" gorm:"type:varchar(36);primaryKey"`
	ConversationID string    `json:"conversation_id" gorm:"type:varchar(36);not null;index:idx_messages_conversation_order,priority:1"`
	Seq            int64     `json:"-" gorm:"column:seq;->;index:idx_messages_conversation_order,priority:3"`
	Role           Role      `json:"role" gorm:"type:varchar(16);not null"`
	Content        string    `json:"content" gorm:"type:text;not null"`
	CreatedAt      time.Time `json:"created_at" gorm:"not null;index:idx_messages_conversation_order,priority:2"`
}

func (Message) TableName() string {
	return "messages"
}

// NewMessage 创建消息，createdAt 不早于 notBefore，保证同一对话内时间单调
func NewMessage(conversationID string, role Role, content string, now, notBefore time.Time) *Message {
	now = now.UTC()
	if now.Before(notBefore) {
		now = notBefore.UTC()
	}
	return &Message{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           role,
		Content:        content,
		CreatedAt:      now,
	}
}
