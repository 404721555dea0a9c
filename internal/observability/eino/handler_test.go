package eino

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainservice "ai-chat-api/internal/domain/service"
	"ai-chat-api/pkg/logger"
	"ai-chat-api/pkg/metrics"
)

func TestChatModelHandler_Success(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter("info", "json", &buf)
	t.Cleanup(func() { logger.Init("info", "json") })

	h := newChatModelCallbackHandler()
	ctx := domainservice.WithWorkflowProvider(context.Background(), "obs_success", "openai")
	info := &einocb.RunInfo{Name: "obs_success", Type: "openai"}

	counter := metrics.LLMCallTotal.WithLabelValues("obs_success", "openai", "gpt-test", "success")
	promptCounter := metrics.LLMTokensUsed.WithLabelValues("obs_success", "openai", "gpt-test", "prompt")
	before := testutil.ToFloat64(counter)
	beforePrompt := testutil.ToFloat64(promptCounter)

	ctx = h.OnStart(ctx, info, &model.CallbackInput{
		Messages: []*schema.Message{schema.SystemMessage("s"), schema.UserMessage("hi")},
		Config:   &model.Config{Model: "gpt-test"},
	})
	h.OnEnd(ctx, info, &model.CallbackOutput{
		Message:    schema.AssistantMessage("你好", nil),
		Config:     &model.Config{Model: "gpt-test"},
		TokenUsage: &model.TokenUsage{PromptTokens: 12, CompletionTokens: 3, TotalTokens: 15},
	})

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Equal(t, beforePrompt+12, testutil.ToFloat64(promptCounter))

	var entry map[string]any
	line := strings.TrimSpace(buf.String())
	require.NoError(t, json.Unmarshal([]byte(line), &entry))
	assert.Equal(t, "llm call finished", entry["msg"])
	assert.Equal(t, float64(2), entry["input_messages"])
	assert.Equal(t, float64(2), entry["response_length"])
	assert.NotContains(t, line, "你好", "content is only logged at debug level")
}

func TestChatModelHandler_Error(t *testing.T) {
	var buf bytes.Buffer
	logger.InitWithWriter("info", "json", &buf)
	t.Cleanup(func() { logger.Init("info", "json") })

	h := newChatModelCallbackHandler()
	ctx := domainservice.WithWorkflowProvider(context.Background(), "obs_error", "openai")
	ctx = domainservice.WithModel(ctx, "gpt-test")

	counter := metrics.LLMCallTotal.WithLabelValues("obs_error", "openai", "gpt-test", "error")
	before := testutil.ToFloat64(counter)

	ctx = h.OnStart(ctx, nil, &model.CallbackInput{Config: &model.Config{Model: "gpt-test"}})
	h.OnError(ctx, nil, errors.New("upstream down"))

	assert.Equal(t, before+1, testutil.ToFloat64(counter))
	assert.Contains(t, buf.String(), "llm call failed")
	assert.Contains(t, buf.String(), "upstream down")
}
