package eino

import (
	"context"
	"log/slog"
	"time"
	"unicode/utf8"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	cbtemplate "github.com/cloudwego/eino/utils/callbacks"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	domainservice "ai-chat-api/internal/domain/service"
	"ai-chat-api/pkg/logger"
	"ai-chat-api/pkg/metrics"
)

// callState 在 OnStart 与 OnEnd/OnError 之间传递
type callState struct {
	start    time.Time
	messages int
}

type callStateKey struct{}

// newChatModelCallbackHandler 记录模型调用的指标、追踪与日志
func newChatModelCallbackHandler() *cbtemplate.ModelCallbackHandler {
	return &cbtemplate.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			st := &callState{start: time.Now()}
			if input != nil {
				st.messages = len(input.Messages)
			}
			ctx = context.WithValue(ctx, callStateKey{}, st)

			workflow, provider, modelName := labels(ctx, modelNameFromInput(input))
			attrs := []attribute.KeyValue{
				attribute.String("eino.workflow", workflow),
				attribute.String("llm.provider", provider),
				attribute.String("llm.model", modelName),
				attribute.Int("llm.input_messages", st.messages),
			}
			if info != nil {
				attrs = append(attrs, attribute.String("eino.type", info.Type))
			}

			ctx, _ = otel.Tracer("eino").Start(ctx, "llm.generate", trace.WithAttributes(attrs...))
			return ctx
		},

		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			workflow, provider, modelName := labels(ctx, modelNameFromOutput(output))
			st := stateFromContext(ctx)

			metrics.LLMCallTotal.WithLabelValues(workflow, provider, modelName, "success").Inc()
			if d := st.elapsed(); d > 0 {
				metrics.LLMCallDuration.WithLabelValues(workflow, provider, modelName).Observe(d.Seconds())
			}

			var promptTokens, completionTokens int
			if output != nil && output.TokenUsage != nil {
				promptTokens = output.TokenUsage.PromptTokens
				completionTokens = output.TokenUsage.CompletionTokens
				metrics.LLMTokensUsed.WithLabelValues(workflow, provider, modelName, "prompt").Add(float64(promptTokens))
				metrics.LLMTokensUsed.WithLabelValues(workflow, provider, modelName, "completion").Add(float64(completionTokens))
			}

			content := ""
			if output != nil && output.Message != nil {
				content = output.Message.Content
			}
			logger.Info(ctx, "llm call finished",
				"workflow", workflow,
				"provider", provider,
				"model", modelName,
				"input_messages", st.messages,
				"response_length", utf8.RuneCountInString(content),
				"prompt_tokens", promptTokens,
				"completion_tokens", completionTokens,
				"duration_ms", st.elapsed().Milliseconds(),
			)
			if logger.Enabled(ctx, slog.LevelDebug) {
				logger.Debug(ctx, "llm response", "content", content)
			}

			span := trace.SpanFromContext(ctx)
			span.SetAttributes(
				attribute.Int("llm.prompt_tokens", promptTokens),
				attribute.Int("llm.completion_tokens", completionTokens),
			)
			span.End()
			return ctx
		},

		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			workflow, provider, modelName := labels(ctx, "")
			st := stateFromContext(ctx)

			metrics.LLMCallTotal.WithLabelValues(workflow, provider, modelName, "error").Inc()
			if d := st.elapsed(); d > 0 {
				metrics.LLMCallDuration.WithLabelValues(workflow, provider, modelName).Observe(d.Seconds())
			}

			logger.Warn(ctx, "llm call failed",
				"workflow", workflow,
				"provider", provider,
				"model", modelName,
				"duration_ms", st.elapsed().Milliseconds(),
				"error", err.Error(),
			)

			span := trace.SpanFromContext(ctx)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			span.End()
			return ctx
		},
	}
}

// labels 组装指标标签；模型名优先取回调配置，其次取上下文
func labels(ctx context.Context, modelName string) (workflow, provider, name string) {
	workflow = domainservice.WorkflowFromContext(ctx)
	provider = domainservice.ProviderFromContext(ctx)
	name = modelName
	if name == "" {
		name = domainservice.ModelFromContext(ctx)
	}
	return workflow, provider, name
}

func stateFromContext(ctx context.Context) *callState {
	if st, ok := ctx.Value(callStateKey{}).(*callState); ok {
		return st
	}
	return &callState{}
}

func (s *callState) elapsed() time.Duration {
	if s.start.IsZero() {
		return 0
	}
	return time.Since(s.start)
}

func modelNameFromInput(in *model.CallbackInput) string {
	if in == nil || in.Config == nil {
		return ""
	}
	return in.Config.Model
}

func modelNameFromOutput(out *model.CallbackOutput) string {
	if out == nil || out.Config == nil {
		return ""
	}
	return out.Config.Model
}
