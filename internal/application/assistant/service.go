// Package assistant 单轮对话与图书推荐
package assistant

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"

	"ai-chat-api/internal/domain/entity"
	domainservice "ai-chat-api/internal/domain/service"
	"ai-chat-api/internal/infrastructure/llm"
	"ai-chat-api/internal/workflow/prompt"
	apperrors "ai-chat-api/pkg/errors"
	"ai-chat-api/pkg/logger"
)

type Service struct {
	llm     *llm.Adapter
	prompts *prompt.Registry
}

func NewService(adapter *llm.Adapter, prompts *prompt.Registry) *Service {
	return &Service{llm: adapter, prompts: prompts}
}

// Chat 单轮问答，不保存历史
func (s *Service) Chat(ctx context.Context, message string) (string, error) {
	if strings.TrimSpace(message) == "" {
		return "", apperrors.ErrInvalidParam.WithDetail("message is required")
	}
	ctx = domainservice.WithWorkflow(ctx, domainservice.WorkflowChat)

	// chat 模板无用户模板，消息经历史占位传入，不做变量替换
	msgs, err := s.prompts.Format(ctx, prompt.PromptChat, map[string]any{
		prompt.HistoryKey: []*schema.Message{schema.UserMessage(message)},
	})
	if err != nil {
		return "", apperrors.ErrInternalError.WithError(err)
	}

	reply, err := s.llm.Complete(ctx, msgs[0].Content, msgs[1:])
	if err != nil {
		return "", err
	}

	logger.Info(ctx, "chat completed",
		"message_length", utf8.RuneCountInString(message),
		"response_length", utf8.RuneCountInString(reply),
	)
	return reply, nil
}

// RecommendBooks 按主题推荐图书，模型输出解析为 BookList
func (s *Service) RecommendBooks(ctx context.Context, topic string) (*entity.BookList, error) {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("topic is required")
	}
	ctx = domainservice.WithWorkflow(ctx, domainservice.WorkflowBookRecommend)

	msgs, err := s.prompts.Format(ctx, prompt.PromptBookRecommend, map[string]any{"topic": topic})
	if err != nil {
		return nil, apperrors.ErrInternalError.WithError(err)
	}

	list, err := llm.CompleteTyped[entity.BookList](ctx, s.llm, msgs[0].Content, msgs[1].Content)
	if err != nil {
		return nil, err
	}
	if list.Books == nil {
		list.Books = []entity.Book{}
	}

	logger.Info(ctx, "books recommended", "topic", topic, "count", len(list.Books))
	return &list, nil
}
