package conversation

import (
	"github.com/cloudwego/eino/schema"

	"ai-chat-api/internal/domain/entity"
)

// DefaultHistoryWindow 发送给模型的历史消息上限
const DefaultHistoryWindow = 20

// BuildHistory 取最后 limit 条消息并转换为模型消息；不含系统提示词
func BuildHistory(messages []*entity.Message, limit int) []*schema.Message {
	if limit <= 0 {
		limit = DefaultHistoryWindow
	}
	start := 0
	if len(messages) > limit {
		start = len(messages) - limit
	}

	out := make([]*schema.Message, 0, len(messages)-start)
	for _, m := range messages[start:] {
		switch m.Role {
		case entity.RoleUser:
			out = append(out, schema.UserMessage(m.Content))
		case entity.RoleAssistant:
			out = append(out, schema.AssistantMessage(m.Content, nil))
		}
	}
	return out
}
