// Package service 定义跨层共享的领域服务约定
package service

import (
	"context"
	"strings"
)

// LLM 调用所属的业务流程，用于指标与日志标签
const (
	WorkflowChat          = "chat"
	WorkflowConversation  = "conversation"
	WorkflowBookRecommend = "book_recommend"
)

const unknownLabel = "unknown"

type llmCtxKey string

const (
	llmCtxKeyWorkflow llmCtxKey = "llm_workflow"
	llmCtxKeyProvider llmCtxKey = "llm_provider"
	llmCtxKeyModel    llmCtxKey = "llm_model"
)

func withLabel(ctx context.Context, key llmCtxKey, value string) context.Context {
	v := strings.TrimSpace(value)
	if ctx == nil || v == "" {
		return ctx
	}
	return context.WithValue(ctx, key, v)
}

func labelFromContext(ctx context.Context, key llmCtxKey) string {
	if ctx == nil {
		return unknownLabel
	}
	s, ok := ctx.Value(key).(string)
	if !ok || s == "" {
		return unknownLabel
	}
	return s
}

// WithWorkflow 标记当前 LLM 调用的业务流程
func WithWorkflow(ctx context.Context, workflow string) context.Context {
	return withLabel(ctx, llmCtxKeyWorkflow, workflow)
}

// WithProvider 标记当前 LLM 调用的提供商
func WithProvider(ctx context.Context, provider string) context.Context {
	return withLabel(ctx, llmCtxKeyProvider, provider)
}

// WithModel 标记当前 LLM 调用的模型
func WithModel(ctx context.Context, model string) context.Context {
	return withLabel(ctx, llmCtxKeyModel, model)
}

func WithWorkflowProvider(ctx context.Context, workflow, provider string) context.Context {
	return WithProvider(WithWorkflow(ctx, workflow), provider)
}

func WorkflowFromContext(ctx context.Context) string {
	return labelFromContext(ctx, llmCtxKeyWorkflow)
}

func ProviderFromContext(ctx context.Context) string {
	return labelFromContext(ctx, llmCtxKeyProvider)
}

func ModelFromContext(ctx context.Context) string {
	return labelFromContext(ctx, llmCtxKeyModel)
}
