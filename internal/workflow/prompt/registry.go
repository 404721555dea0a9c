package prompt

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	einoprompt "github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
)

//go:embed templates/*.txt
var templatesFS embed.FS

type PromptID string

const (
	PromptChat          PromptID = "chat"
	PromptBookRecommend PromptID = "book_recommend"
)

// HistoryKey 无用户模板的提示词以该变量承载历史消息
const HistoryKey = "history"

type Registry struct {
	mu      sync.RWMutex
	systems map[PromptID]string
	cache   map[PromptID]einoprompt.ChatTemplate
}

func NewRegistry() *Registry {
	return &Registry{
		systems: make(map[PromptID]string),
		cache:   make(map[PromptID]einoprompt.ChatTemplate),
	}
}

// System 返回系统提示词原文（保留首尾空白）
func (r *Registry) System(id PromptID) (string, error) {
	if r == nil {
		return "", fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	s, ok := r.systems[id]
	r.mu.RUnlock()
	if ok {
		return s, nil
	}

	s, err := readEmbeddedText(systemFile(id))
	if err != nil {
		return "", fmt.Errorf("unknown prompt id: %s: %w", id, err)
	}

	r.mu.Lock()
	r.systems[id] = s
	r.mu.Unlock()
	return s, nil
}

// ChatTemplate 返回 id 对应的模板
// 有用户模板时为 system + user；否则为 system + 历史消息占位。
func (r *Registry) ChatTemplate(id PromptID) (einoprompt.ChatTemplate, error) {
	if r == nil {
		return nil, fmt.Errorf("prompt registry is nil")
	}

	r.mu.RLock()
	if tpl, ok := r.cache[id]; ok {
		r.mu.RUnlock()
		return tpl, nil
	}
	r.mu.RUnlock()

	system, err := r.System(id)
	if err != nil {
		return nil, err
	}

	var tail schema.MessagesTemplate
	user, err := readEmbeddedText(userFile(id))
	switch {
	case err == nil:
		tail = schema.UserMessage(user)
	case isNotExist(err):
		tail = schema.MessagesPlaceholder(HistoryKey, false)
	default:
		return nil, err
	}

	tpl := einoprompt.FromMessages(schema.FString, schema.SystemMessage(system), tail)

	r.mu.Lock()
	defer r.mu.Unlock()
	if cached, ok := r.cache[id]; ok {
		return cached, nil
	}
	r.cache[id] = tpl
	return tpl, nil
}

// Format 渲染模板为消息列表
func (r *Registry) Format(ctx context.Context, id PromptID, vars map[string]any) ([]*schema.Message, error) {
	tpl, err := r.ChatTemplate(id)
	if err != nil {
		return nil, err
	}
	msgs, err := tpl.Format(ctx, vars)
	if err != nil {
		return nil, fmt.Errorf("format prompt %s: %w", id, err)
	}
	return msgs, nil
}

func systemFile(id PromptID) string { return "templates/" + string(id) + ".system.txt" }

func userFile(id PromptID) string { return "templates/" + string(id) + ".user.txt" }

func readEmbeddedText(path string) (string, error) {
	b, err := templatesFS.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func isNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
