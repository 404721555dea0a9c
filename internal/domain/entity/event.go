// Package entity 定义领域实体
package entity

import (
	"time"
)

// EventType 对话生命周期事件类型
type EventType string

const (
	EventConversationCreated  EventType = "conversation.created"
	EventConversationRenamed  EventType = "conversation.renamed"
	EventConversationDeleted  EventType = "conversation.deleted"
	EventConversationExchange EventType = "conversation.message_exchanged"
)

// ConversationEvent 对话变更事件，提交成功后发布
type ConversationEvent struct {
	Type           EventType `json:"type"`
	ConversationID string    `json:"conversation_id"`
	Title          *string   `json:"title,omitempty"`
	MessageIDs     []string  `json:"message_ids,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// NewConversationEvent 创建事件
func NewConversationEvent(t EventType, conversationID string, now time.Time) *ConversationEvent {
	return &ConversationEvent{
		Type:           t,
		ConversationID: conversationID,
		OccurredAt:     now.UTC(),
	}
}
