package assistant

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ai-chat-api/internal/config"
	"ai-chat-api/internal/infrastructure/llm"
	"ai-chat-api/internal/workflow/prompt"
	apperrors "ai-chat-api/pkg/errors"
)

type stubModel struct {
	mu     sync.Mutex
	inputs [][]*schema.Message
	out    string
	err    error
}

func (m *stubModel) Generate(_ context.Context, input []*schema.Message, _ ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	m.inputs = append(m.inputs, input)
	m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return schema.AssistantMessage(m.out, nil), nil
}

func (m *stubModel) Stream(context.Context, []*schema.Message, ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not supported")
}

type stubSource struct{ m model.BaseChatModel }

func (s stubSource) Get(context.Context, string) (model.BaseChatModel, error) { return s.m, nil }

func newTestService(m *stubModel) *Service {
	cfg := &config.Config{LLM: config.LLMConfig{
		DefaultProvider: "stub",
		Providers: map[string]config.ProviderConfig{
			"stub": {APIKey: "k", Model: "stub-model", Timeout: time.Second},
		},
	}}
	return NewService(llm.NewAdapter(stubSource{m: m}, cfg), prompt.NewRegistry())
}

func TestChat(t *testing.T) {
	m := &stubModel{out: "你好，有什么可以帮你？"}
	svc := newTestService(m)

	reply, err := svc.Chat(context.Background(), "你好")
	require.NoError(t, err)
	assert.Equal(t, "你好，有什么可以帮你？", reply)

	require.Len(t, m.inputs, 1)
	in := m.inputs[0]
	require.Len(t, in, 2)
	assert.Equal(t, schema.System, in[0].Role)
	assert.Contains(t, in[0].Content, "你是一个友好、专业的 AI 助手。")
	assert.Equal(t, "你好", in[1].Content)
}

func TestChat_MessageNotTemplated(t *testing.T) {
	m := &stubModel{out: "ok"}
	svc := newTestService(m)

	_, err := svc.Chat(context.Background(), "{topic} 是什么意思？")
	require.NoError(t, err)

	require.Len(t, m.inputs, 1)
	require.Len(t, m.inputs[0], 2)
	assert.Equal(t, schema.User, m.inputs[0][1].Role)
	assert.Equal(t, "{topic} 是什么意思？", m.inputs[0][1].Content)
}

func TestChat_RejectsBlankMessage(t *testing.T) {
	m := &stubModel{}
	svc := newTestService(m)

	_, err := svc.Chat(context.Background(), "  ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidParam))
	assert.Empty(t, m.inputs)
}

func TestChat_UpstreamError(t *testing.T) {
	svc := newTestService(&stubModel{err: errors.New("dial tcp: connection refused")})
	_, err := svc.Chat(context.Background(), "hi")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeLLMUnavailable))
}

func TestRecommendBooks(t *testing.T) {
	m := &stubModel{out: `{"books":[
		{"title":"三体","author":"刘慈欣","publisher":"重庆出版社","yearPublished":2008,"topics":["科幻","宇宙"]},
		{"title":"沙丘","author":"弗兰克·赫伯特","publisher":"读客文化","yearPublished":1965,"topics":["科幻"]}
	]}`}
	svc := newTestService(m)

	list, err := svc.RecommendBooks(context.Background(), "科幻")
	require.NoError(t, err)
	require.Len(t, list.Books, 2)
	assert.Equal(t, "沙丘", list.Books[1].Title)
	assert.Equal(t, 1965, list.Books[1].YearPublished)

	require.Len(t, m.inputs, 1)
	in := m.inputs[0]
	require.Len(t, in, 2)
	assert.Contains(t, in[0].Content, "你是一位专业的图书推荐助手")
	assert.Equal(t, "请推荐5本关于主题 科幻 的热门书籍", in[1].Content)
}

func TestRecommendBooks_EmptyListIsNotNil(t *testing.T) {
	svc := newTestService(&stubModel{out: `{"books":null}`})
	list, err := svc.RecommendBooks(context.Background(), "诗歌")
	require.NoError(t, err)
	assert.NotNil(t, list.Books)
	assert.Empty(t, list.Books)
}

func TestRecommendBooks_Malformed(t *testing.T) {
	svc := newTestService(&stubModel{out: "我推荐《三体》"})
	_, err := svc.RecommendBooks(context.Background(), "科幻")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeLLMMalformed))
}
