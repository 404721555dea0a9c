package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"strings"

	"github.com/cloudwego/eino-ext/components/model/openai"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/eino-contrib/jsonschema"

	apperrors "ai-chat-api/pkg/errors"
	"ai-chat-api/pkg/logger"
)

// CompleteTyped 调用模型并将输出解析为 T
// 优先使用 response_format=json_schema 强约束；提供商不支持时降级为纯提示词约束重试一次。
func CompleteTyped[T any](ctx context.Context, a *Adapter, systemPrompt, userPrompt string) (T, error) {
	var zero T

	name, jsonSchema, err := SchemaFor[T]()
	if err != nil {
		return zero, apperrors.ErrInternalError.WithError(err)
	}

	msgs := []*schema.Message{
		schema.SystemMessage(systemPrompt),
		schema.UserMessage(userPrompt),
	}
	out, err := a.generate(ctx, msgs, responseFormatOption(name, jsonSchema))
	if err != nil && apperrors.HasCode(err, apperrors.CodeLLMRejected) && isResponseFormatUnsupportedError(err) {
		logger.Warn(ctx, "llm json_schema not supported, fallback to prompt-only",
			"provider", a.provider,
			"model", a.model,
			"error", err.Error(),
		)
		msgs[0] = schema.SystemMessage(systemPrompt + "\n\n" + formatInstructions(jsonSchema))
		out, err = a.generate(ctx, msgs)
	}
	if err != nil {
		return zero, err
	}

	var v T
	raw := extractJSONObject(out.Content)
	if raw == "" {
		return zero, apperrors.ErrLLMMalformed.WithDetail("no json object in model output")
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return zero, apperrors.ErrLLMMalformed.WithError(err)
	}
	return v, nil
}

func responseFormatOption(name string, jsonSchema map[string]any) model.Option {
	return openai.WithExtraFields(map[string]any{
		"response_format": map[string]any{
			"type": "json_schema",
			"json_schema": map[string]any{
				"name":   name,
				"strict": true,
				"schema": jsonSchema,
			},
		},
	})
}

func formatInstructions(jsonSchema map[string]any) string {
	b, _ := json.Marshal(jsonSchema)
	return "请只输出一个符合以下 JSON Schema 的 JSON 对象，不要输出任何其他文字：\n" + string(b)
}

// SchemaFor 反射生成 T 的 JSON Schema；顶层必须是对象
func SchemaFor[T any]() (string, map[string]any, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return "", nil, fmt.Errorf("structured output requires an object type, got %s", t.Kind())
	}

	r := &jsonschema.Reflector{
		Anonymous:      true,
		DoNotReference: true,
		ExpandedStruct: true,
	}
	b, err := json.Marshal(r.ReflectFromType(t))
	if err != nil {
		return "", nil, fmt.Errorf("marshal schema: %w", err)
	}
	var m map[string]any
	if err := json.Unmarshal(b, &m); err != nil {
		return "", nil, fmt.Errorf("unmarshal schema: %w", err)
	}
	delete(m, "$schema")
	delete(m, "$id")

	return schemaName(t), m, nil
}

// schemaName BookList -> book_list
func schemaName(t reflect.Type) string {
	var sb strings.Builder
	for i, r := range t.Name() {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				sb.WriteByte('_')
			}
			r += 'a' - 'A'
		}
		sb.WriteRune(r)
	}
	if sb.Len() == 0 {
		return "result"
	}
	return sb.String()
}

// extractJSONObject 截取模型输出中的第一个完整 JSON 对象
// 模型可能在 JSON 前后夹杂说明文字或 markdown 代码块。
func extractJSONObject(s string) string {
	start := strings.Index(s, "{")
	if start < 0 {
		return ""
	}
	dec := json.NewDecoder(strings.NewReader(s[start:]))
	var raw json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return ""
	}
	return string(raw)
}
