// Package dto 提供 HTTP 层数据传输对象
package dto

import (
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "ai-chat-api/pkg/errors"
)

// ConversationIDRequest 对话 ID 请求
type ConversationIDRequest struct {
	ConversationID string `uri:"id" binding:"required"`
}

// TopicRequest 图书主题请求
type TopicRequest struct {
	Topic string `uri:"topic" binding:"required"`
}

// BindConversationID 从 URI 绑定对话 ID，空白 ID 视为缺失
func BindConversationID(c *gin.Context) (string, error) {
	var req ConversationIDRequest
	if err := c.ShouldBindUri(&req); err != nil {
		return "", apperrors.ErrInvalidParam.WithDetail("conversation id is required")
	}
	id := strings.TrimSpace(req.ConversationID)
	if id == "" {
		return "", apperrors.ErrInvalidParam.WithDetail("conversation id is required")
	}
	return id, nil
}

// BindTopic 从 URI 绑定图书主题
func BindTopic(c *gin.Context) (string, error) {
	var req TopicRequest
	if err := c.ShouldBindUri(&req); err != nil {
		return "", apperrors.ErrInvalidParam.WithDetail("topic is required")
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		return "", apperrors.ErrInvalidParam.WithDetail("topic is required")
	}
	return topic, nil
}
