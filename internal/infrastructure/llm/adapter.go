package llm

import (
	"context"
	"time"

	"github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"ai-chat-api/internal/config"
	domainservice "ai-chat-api/internal/domain/service"
	apperrors "ai-chat-api/pkg/errors"
)

const defaultCallTimeout = 60 * time.Second

// Adapter 大模型调用适配器
// 负责超时控制、回调注入与上游错误归类，对上层只暴露纯文本或结构化结果。
type Adapter struct {
	models   ModelSource
	provider string
	model    string
	timeout  time.Duration
}

// NewAdapter 创建使用默认提供商的适配器
func NewAdapter(models ModelSource, cfg *config.Config) *Adapter {
	a := &Adapter{
		models:   models,
		provider: cfg.LLM.DefaultProvider,
		timeout:  defaultCallTimeout,
	}
	if p, ok := cfg.DefaultProviderConfig(); ok {
		a.model = p.Model
		if p.Timeout > 0 {
			a.timeout = p.Timeout
		}
	}
	return a
}

// Provider 返回提供商名称
func (a *Adapter) Provider() string { return a.provider }

// Model 返回模型名称
func (a *Adapter) Model() string { return a.model }

// Complete 以系统提示词加历史消息调用模型，返回回复文本
func (a *Adapter) Complete(ctx context.Context, systemPrompt string, history []*schema.Message) (string, error) {
	msgs := make([]*schema.Message, 0, len(history)+1)
	msgs = append(msgs, schema.SystemMessage(systemPrompt))
	msgs = append(msgs, history...)

	out, err := a.generate(ctx, msgs)
	if err != nil {
		return "", err
	}
	return out.Content, nil
}

// generate 执行一次模型调用；错误已归类为 AppError（客户端取消除外）
func (a *Adapter) generate(ctx context.Context, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	ctx = domainservice.WithModel(domainservice.WithProvider(ctx, a.provider), a.model)

	cm, err := a.models.Get(ctx, a.provider)
	if err != nil {
		if apperrors.IsAppError(err) {
			return nil, err
		}
		return nil, apperrors.ErrLLMNotConfigured.WithError(err)
	}

	callCtx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	out, err := a.invoke(callCtx, cm, msgs, opts...)
	if err != nil {
		return nil, classifyUpstreamError(ctx, err)
	}
	if out == nil {
		return nil, apperrors.ErrLLMMalformed.WithDetail("empty response")
	}
	return out, nil
}

// invoke 调用模型；模型自身不触发回调时由此处补齐 OnStart/OnEnd/OnError
func (a *Adapter) invoke(ctx context.Context, cm model.BaseChatModel, msgs []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	ctx = callbacks.InitCallbacks(ctx, &callbacks.RunInfo{
		Name:      domainservice.WorkflowFromContext(ctx),
		Type:      a.provider,
		Component: components.ComponentOfChatModel,
	})

	if components.IsCallbacksEnabled(cm) {
		return cm.Generate(ctx, msgs, opts...)
	}

	cfg := &model.Config{Model: a.model}
	ctx = callbacks.OnStart(ctx, &model.CallbackInput{Messages: msgs, Config: cfg})
	out, err := cm.Generate(ctx, msgs, opts...)
	if err != nil {
		callbacks.OnError(ctx, err)
		return nil, err
	}

	cbOut := &model.CallbackOutput{Message: out, Config: cfg}
	if out != nil && out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
		u := out.ResponseMeta.Usage
		cbOut.TokenUsage = &model.TokenUsage{
			PromptTokens:     u.PromptTokens,
			CompletionTokens: u.CompletionTokens,
			TotalTokens:      u.TotalTokens,
		}
	}
	callbacks.OnEnd(ctx, cbOut)
	return out, nil
}
