package llm

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	goopenai "github.com/meguminnnnnnnnn/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chat-api/internal/config"
	"ai-chat-api/internal/domain/entity"
	apperrors "ai-chat-api/pkg/errors"
)

type fakeReply struct {
	content string
	err     error
	block   bool
}

// fakeChatModel 按顺序返回预设结果，并记录每次调用的输入
type fakeChatModel struct {
	mu      sync.Mutex
	replies []fakeReply
	calls   [][]*schema.Message
	opts    [][]model.Option
}

func (f *fakeChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	f.mu.Lock()
	idx := len(f.calls)
	f.calls = append(f.calls, input)
	f.opts = append(f.opts, opts)
	var r fakeReply
	if idx < len(f.replies) {
		r = f.replies[idx]
	}
	f.mu.Unlock()

	if r.block {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if r.err != nil {
		return nil, r.err
	}
	return schema.AssistantMessage(r.content, nil), nil
}

func (f *fakeChatModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("stream not supported")
}

type fakeSource struct {
	model model.BaseChatModel
	err   error
}

func (s *fakeSource) Get(context.Context, string) (model.BaseChatModel, error) {
	return s.model, s.err
}

func newTestAdapter(m model.BaseChatModel, timeout time.Duration) *Adapter {
	cfg := &config.Config{LLM: config.LLMConfig{
		DefaultProvider: "fake",
		Providers: map[string]config.ProviderConfig{
			"fake": {APIKey: "k", Model: "fake-model", Timeout: timeout},
		},
	}}
	return NewAdapter(&fakeSource{model: m}, cfg)
}

func TestAdapter_Complete(t *testing.T) {
	fm := &fakeChatModel{replies: []fakeReply{{content: "你好！"}}}
	a := newTestAdapter(fm, time.Second)

	history := []*schema.Message{
		schema.UserMessage("hi"),
		schema.AssistantMessage("hello", nil),
		schema.UserMessage("how are you"),
	}
	out, err := a.Complete(context.Background(), "system prompt\n", history)
	require.NoError(t, err)
	assert.Equal(t, "你好！", out)

	require.Len(t, fm.calls, 1)
	sent := fm.calls[0]
	require.Len(t, sent, 4)
	assert.Equal(t, schema.System, sent[0].Role)
	assert.Equal(t, "system prompt\n", sent[0].Content)
	assert.Equal(t, "how are you", sent[3].Content)
	assert.Equal(t, "fake", a.Provider())
	assert.Equal(t, "fake-model", a.Model())
}

func TestAdapter_CompleteTimeout(t *testing.T) {
	fm := &fakeChatModel{replies: []fakeReply{{block: true}}}
	a := newTestAdapter(fm, 20*time.Millisecond)

	_, err := a.Complete(context.Background(), "s", []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeLLMTimeout), "got %v", err)
}

func TestAdapter_CompleteCanceledByCaller(t *testing.T) {
	fm := &fakeChatModel{replies: []fakeReply{{block: true}}}
	a := newTestAdapter(fm, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()
	_, err := a.Complete(ctx, "s", []*schema.Message{schema.UserMessage("hi")})
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, apperrors.IsAppError(err))
}

func TestAdapter_NotConfigured(t *testing.T) {
	a := NewAdapter(&fakeSource{err: errors.New("no provider")}, &config.Config{})
	_, err := a.Complete(context.Background(), "s", nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeLLMNotConfigured))
}

func TestCompleteTyped_ParsesBookList(t *testing.T) {
	fm := &fakeChatModel{replies: []fakeReply{{content: "下面是推荐：\n```json\n" +
		`{"books":[{"title":"三体","author":"刘慈欣","publisher":"重庆出版社","yearPublished":2008,"topics":["科幻"]}]}` +
		"\n```"}}}
	a := newTestAdapter(fm, time.Second)

	list, err := CompleteTyped[entity.BookList](context.Background(), a, "system", "请推荐5本关于主题 科幻 的热门书籍")
	require.NoError(t, err)
	require.Len(t, list.Books, 1)
	assert.Equal(t, "三体", list.Books[0].Title)
	assert.Equal(t, 2008, list.Books[0].YearPublished)
	assert.Equal(t, []string{"科幻"}, list.Books[0].Topics)

	require.Len(t, fm.calls, 1)
	assert.Len(t, fm.opts[0], 1, "response_format option expected")
	assert.Equal(t, schema.User, fm.calls[0][1].Role)
}

func TestCompleteTyped_Malformed(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{"no json", "抱歉，我无法回答"},
		{"wrong shape", `{"books":"not a list"}`},
		{"truncated", `{"books":[{"title":"x"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fm := &fakeChatModel{replies: []fakeReply{{content: tt.content}}}
			a := newTestAdapter(fm, time.Second)

			_, err := CompleteTyped[entity.BookList](context.Background(), a, "s", "u")
			assert.True(t, apperrors.HasCode(err, apperrors.CodeLLMMalformed), "got %v", err)
		})
	}
}

func TestCompleteTyped_FallbackWhenResponseFormatRejected(t *testing.T) {
	rejected := &goopenai.APIError{
		HTTPStatusCode: 400,
		Message:        "Invalid parameter: 'response_format' of type 'json_schema' is not supported with this model.",
	}
	fm := &fakeChatModel{replies: []fakeReply{
		{err: rejected},
		{content: `{"books":[]}`},
	}}
	a := newTestAdapter(fm, time.Second)

	list, err := CompleteTyped[entity.BookList](context.Background(), a, "system", "user")
	require.NoError(t, err)
	assert.Empty(t, list.Books)

	require.Len(t, fm.calls, 2)
	assert.Empty(t, fm.opts[1])
	assert.Contains(t, fm.calls[1][0].Content, "JSON Schema")
}

func TestCompleteTyped_UpstreamErrorNotRetried(t *testing.T) {
	fm := &fakeChatModel{replies: []fakeReply{
		{err: &goopenai.APIError{HTTPStatusCode: 503, Message: "overloaded"}},
	}}
	a := newTestAdapter(fm, time.Second)

	_, err := CompleteTyped[entity.BookList](context.Background(), a, "s", "u")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeLLMUnavailable))
	assert.Len(t, fm.calls, 1)
}

func TestClassifyUpstreamError(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		err  error
		code apperrors.ErrorCode
	}{
		{"deadline", context.DeadlineExceeded, apperrors.CodeLLMTimeout},
		{"rate limited", &goopenai.APIError{HTTPStatusCode: 429, Message: "slow down"}, apperrors.CodeLLMRateLimited},
		{"bad request", &goopenai.APIError{HTTPStatusCode: 400, Message: "bad"}, apperrors.CodeLLMRejected},
		{"unprocessable", &goopenai.RequestError{HTTPStatusCode: 422, Err: errors.New("x")}, apperrors.CodeLLMRejected},
		{"not found", &goopenai.RequestError{HTTPStatusCode: 404, Err: errors.New("x")}, apperrors.CodeLLMRejected},
		{"server error", &goopenai.APIError{HTTPStatusCode: 500, Message: "oops"}, apperrors.CodeLLMUnavailable},
		{"connection refused", errors.New("dial tcp 127.0.0.1:443: connect: connection refused"), apperrors.CodeLLMUnavailable},
		{"rate limit text", errors.New("error, status code: 429, message: too many"), apperrors.CodeLLMRateLimited},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := classifyUpstreamError(ctx, tt.err)
			assert.True(t, apperrors.HasCode(err, tt.code), "got %v", err)
		})
	}

	assert.ErrorIs(t, classifyUpstreamError(ctx, context.Canceled), context.Canceled)
	assert.Nil(t, classifyUpstreamError(ctx, nil))
}

func TestSchemaFor(t *testing.T) {
	name, s, err := SchemaFor[entity.BookList]()
	require.NoError(t, err)
	assert.Equal(t, "book_list", name)
	assert.Equal(t, "object", s["type"])
	assert.NotContains(t, s, "$schema")

	props, ok := s["properties"].(map[string]any)
	require.True(t, ok)
	books, ok := props["books"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "array", books["type"])

	_, _, err = SchemaFor[[]entity.Book]()
	assert.Error(t, err)
}

func TestExtractJSONObject(t *testing.T) {
	assert.Equal(t, `{"a":1}`, extractJSONObject(`prefix {"a":1} suffix {"b":2}`))
	assert.Equal(t, `{"a":{"b":"}"}}`, extractJSONObject("```json\n{\"a\":{\"b\":\"}\"}}\n```"))
	assert.Equal(t, "", extractJSONObject("no json here"))
	assert.Equal(t, "", extractJSONObject(`{"unterminated": `))
}
