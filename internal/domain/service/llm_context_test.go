package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLLMContextLabels(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "unknown", WorkflowFromContext(ctx))
	assert.Equal(t, "unknown", ProviderFromContext(ctx))
	assert.Equal(t, "unknown", ModelFromContext(ctx))

	ctx = WithWorkflowProvider(ctx, " chat ", "openai")
	ctx = WithModel(ctx, "gpt-4o-mini")
	assert.Equal(t, "chat", WorkflowFromContext(ctx))
	assert.Equal(t, "openai", ProviderFromContext(ctx))
	assert.Equal(t, "gpt-4o-mini", ModelFromContext(ctx))

	// 空白值不覆盖已有标签
	ctx = WithWorkflow(ctx, "  ")
	assert.Equal(t, "chat", WorkflowFromContext(ctx))
}
