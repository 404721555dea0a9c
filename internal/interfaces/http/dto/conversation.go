// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"time"

	"ai-chat-api/internal/domain/entity"
)

// UpdateTitleRequest 重命名请求；title 必须出现，允许空串
type UpdateTitleRequest struct {
	Title *string `json:"title" binding:"required"`
}

// SendMessageRequest 发送消息请求
type SendMessageRequest struct {
	Message string `json:"message"`
}

// ConversationResponse 对话响应；列表接口不带消息，messages 序列化为 null
type ConversationResponse struct {
	ID        string             `json:"id"`
	Title     *string            `json:"title"`
	CreatedAt time.Time          `json:"createdAt"`
	UpdatedAt time.Time          `json:"updatedAt"`
	Messages  []*MessageResponse `json:"messages"`
}

// MessageResponse 消息响应，role 为小写
type MessageResponse struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"createdAt"`
}

// ToConversationResponse 转换对话；withMessages 为 true 时消息列表至少为空数组
func ToConversationResponse(c *entity.Conversation, withMessages bool) *ConversationResponse {
	if c == nil {
		return nil
	}
	resp := &ConversationResponse{
		ID:        c.ID,
		Title:     c.Title,
		CreatedAt: c.CreatedAt.UTC(),
		UpdatedAt: c.UpdatedAt.UTC(),
	}
	if withMessages {
		resp.Messages = make([]*MessageResponse, 0, len(c.Messages))
		for _, m := range c.Messages {
			resp.Messages = append(resp.Messages, ToMessageResponse(m))
		}
	}
	return resp
}

// ToConversationListResponse 转换对话列表，结果不为 nil
func ToConversationListResponse(list []*entity.Conversation) []*ConversationResponse {
	out := make([]*ConversationResponse, 0, len(list))
	for _, c := range list {
		out = append(out, ToConversationResponse(c, false))
	}
	return out
}

// ToMessageResponse 转换消息
func ToMessageResponse(m *entity.Message) *MessageResponse {
	if m == nil {
		return nil
	}
	return &MessageResponse{
		ID:        m.ID,
		Role:      m.Role.Wire(),
		Content:   m.Content,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

// ToMessage 将响应还原为实体；conversationID 不在响应中，需要调用方提供
func (r *MessageResponse) ToMessage(conversationID string) (*entity.Message, error) {
	role, err := entity.ParseRole(r.Role)
	if err != nil {
		return nil, err
	}
	return &entity.Message{
		ID:             r.ID,
		ConversationID: conversationID,
		Role:           role,
		Content:        r.Content,
		CreatedAt:      r.CreatedAt,
	}, nil
}
