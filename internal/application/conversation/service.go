// Package conversation 多轮对话应用服务
package conversation

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"ai-chat-api/internal/config"
	"ai-chat-api/internal/domain/entity"
	"ai-chat-api/internal/domain/repository"
	domainservice "ai-chat-api/internal/domain/service"
	apperrors "ai-chat-api/pkg/errors"
	"ai-chat-api/pkg/logger"
	"ai-chat-api/pkg/metrics"
)

var tracer = otel.Tracer("application.conversation")

// Service 对话服务
// 所有写操作在一个事务内完成；提交后的缓存失效与事件发布均为 best-effort。
type Service struct {
	store        repository.Store
	llm          domainservice.ChatCompleter
	systemPrompt string
	window       int
	holdTx       bool

	cache  domainservice.ConversationCache
	events domainservice.EventPublisher
	now    func() time.Time
}

// Option 可选依赖
type Option func(*Service)

// WithCache 启用对话详情缓存
func WithCache(c domainservice.ConversationCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithEventPublisher 启用事件发布
func WithEventPublisher(p domainservice.EventPublisher) Option {
	return func(s *Service) { s.events = p }
}

// WithClock 替换时钟（测试用）
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// NewService 创建对话服务
func NewService(store repository.Store, llm domainservice.ChatCompleter, systemPrompt string, cfg config.ConversationConfig, opts ...Option) *Service {
	s := &Service{
		store:        store,
		llm:          llm,
		systemPrompt: systemPrompt,
		window:       cfg.HistoryWindow,
		holdTx:       cfg.HoldTransactionDuringLLM,
		now:          time.Now,
	}
	if s.window <= 0 {
		s.window = DefaultHistoryWindow
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListConversations 按更新时间倒序列出对话，不含消息
func (s *Service) ListConversations(ctx context.Context) ([]*entity.Conversation, error) {
	ctx, span := tracer.Start(ctx, "conversation.List")
	defer span.End()

	list, err := s.store.Conversations().ListByUpdatedDesc(ctx)
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return list, nil
}

// GetConversation 获取对话及全部消息；不存在时返回 nil, nil
func (s *Service) GetConversation(ctx context.Context, id string) (*entity.Conversation, error) {
	ctx, span := tracer.Start(ctx, "conversation.Get",
		trace.WithAttributes(attribute.String("conversation.id", id)))
	defer span.End()

	var (
		c   *entity.Conversation
		err error
	)
	if s.cache != nil {
		c, err = s.cache.GetOrLoad(ctx, id, func(ctx context.Context) (*entity.Conversation, error) {
			return s.loadDetail(ctx, id)
		})
	} else {
		c, err = s.loadDetail(ctx, id)
	}
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	return c, nil
}

func (s *Service) loadDetail(ctx context.Context, id string) (*entity.Conversation, error) {
	var out *entity.Conversation
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.store.Conversations().GetByID(ctx, id)
		if err != nil || c == nil {
			return err
		}
		msgs, err := s.store.Messages().ListByConversation(ctx, id)
		if err != nil {
			return err
		}
		if msgs == nil {
			msgs = []*entity.Message{}
		}
		c.Messages = msgs
		out = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// CreateConversation 创建空对话
func (s *Service) CreateConversation(ctx context.Context) (*entity.Conversation, error) {
	ctx, span := tracer.Start(ctx, "conversation.Create")
	defer span.End()

	c := entity.NewConversation(s.clock())
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		return s.store.Conversations().Create(ctx, c)
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	span.SetAttributes(attribute.String("conversation.id", c.ID))

	logger.Info(ctx, "conversation created", "conversation_id", c.ID)
	s.afterCommit(ctx, c.ID, entity.NewConversationEvent(entity.EventConversationCreated, c.ID, c.CreatedAt))
	return c, nil
}

// DeleteConversation 删除对话及其消息；不存在时同样成功
func (s *Service) DeleteConversation(ctx context.Context, id string) error {
	ctx, span := tracer.Start(ctx, "conversation.Delete",
		trace.WithAttributes(attribute.String("conversation.id", id)))
	defer span.End()

	existed := false
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.store.Conversations().GetByIDForUpdate(ctx, id)
		if err != nil || c == nil {
			return err
		}
		existed = true
		return s.store.Conversations().Delete(ctx, id)
	})
	if err != nil {
		recordSpanError(span, err)
		return err
	}

	if !existed {
		return nil
	}
	logger.Info(ctx, "conversation deleted", "conversation_id", id)
	s.afterCommit(ctx, id, entity.NewConversationEvent(entity.EventConversationDeleted, id, s.clock()))
	return nil
}

// UpdateTitle 重命名对话；不存在时返回 nil, nil
func (s *Service) UpdateTitle(ctx context.Context, id, title string) (*entity.Conversation, error) {
	ctx, span := tracer.Start(ctx, "conversation.UpdateTitle",
		trace.WithAttributes(attribute.String("conversation.id", id)))
	defer span.End()

	var out *entity.Conversation
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.store.Conversations().GetByIDForUpdate(ctx, id)
		if err != nil || c == nil {
			return err
		}
		c.Rename(title, s.clock())
		if err := s.store.Conversations().Update(ctx, c); err != nil {
			return err
		}
		out = c
		return nil
	})
	if err != nil {
		recordSpanError(span, err)
		return nil, err
	}
	if out == nil {
		return nil, nil
	}

	evt := entity.NewConversationEvent(entity.EventConversationRenamed, id, out.UpdatedAt)
	evt.Title = out.Title
	s.afterCommit(ctx, id, evt)
	return out, nil
}

// SendMessage 追加用户消息并获取模型回复；成功时写入一对消息，失败时对话保持原状
func (s *Service) SendMessage(ctx context.Context, id, userText string) (*entity.Message, error) {
	if strings.TrimSpace(userText) == "" {
		return nil, apperrors.ErrInvalidParam.WithDetail("message is required")
	}

	ctx = domainservice.WithWorkflow(ctx, domainservice.WorkflowConversation)
	ctx = logger.WithContext(ctx, logger.ConversationIDKey, id)
	ctx, span := tracer.Start(ctx, "conversation.SendMessage",
		trace.WithAttributes(
			attribute.String("conversation.id", id),
			attribute.Bool("conversation.hold_tx", s.holdTx),
		))
	defer span.End()

	var (
		res *exchange
		err error
	)
	if s.holdTx {
		res, err = s.exchangeInTx(ctx, id, userText)
	} else {
		res, err = s.exchangeTwoPhase(ctx, id, userText)
	}
	if err != nil {
		metrics.ConversationMessagesExchanged.WithLabelValues("error").Inc()
		recordSpanError(span, err)
		if !errors.Is(err, context.Canceled) {
			logger.Warn(ctx, "send message failed", "error", err.Error())
		}
		return nil, err
	}

	metrics.ConversationMessagesExchanged.WithLabelValues("success").Inc()
	logger.Info(ctx, "message exchanged",
		"history_messages", res.historyLen,
		"response_length", utf8.RuneCountInString(res.assistant.Content),
		"titled", res.titled,
	)

	evt := entity.NewConversationEvent(entity.EventConversationExchange, id, res.assistant.CreatedAt)
	evt.MessageIDs = []string{res.user.ID, res.assistant.ID}
	if res.titled {
		evt.Title = res.conversation.Title
	}
	s.afterCommit(ctx, id, evt)
	return res.assistant, nil
}

// exchange 一次成功的问答
type exchange struct {
	conversation *entity.Conversation
	user         *entity.Message
	assistant    *entity.Message
	historyLen   int
	titled       bool
}

// exchangeInTx 在同一事务内完成加锁、写入用户消息、调用模型、写入回复
func (s *Service) exchangeInTx(ctx context.Context, id, userText string) (*exchange, error) {
	var res *exchange
	err := s.store.WithTransaction(ctx, func(ctx context.Context) error {
		c, prior, err := s.lockConversation(ctx, id)
		if err != nil {
			return err
		}

		user, titled := s.prepareUserTurn(c, prior, userText)
		if err := s.store.Messages().Create(ctx, user); err != nil {
			return err
		}

		history := BuildHistory(append(prior[:len(prior):len(prior)], user), s.window)
		reply, err := s.complete(ctx, history)
		if err != nil {
			return err
		}

		assistant := entity.NewMessage(id, entity.RoleAssistant, reply, s.clock(), user.CreatedAt)
		if err := s.store.Messages().Create(ctx, assistant); err != nil {
			return err
		}
		c.Touch(assistant.CreatedAt)
		if err := s.store.Conversations().Update(ctx, c); err != nil {
			return err
		}

		res = &exchange{conversation: c, user: user, assistant: assistant, historyLen: len(history), titled: titled}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// exchangeTwoPhase 读取历史后释放锁调用模型，再在新事务中校验并写入
// 期间若有其他消息写入则返回 Conflict，不覆盖对方结果。
func (s *Service) exchangeTwoPhase(ctx context.Context, id, userText string) (*exchange, error) {
	c, err := s.loadDetail(ctx, id)
	if err != nil {
		return nil, err
	}
	if c == nil {
		return nil, apperrors.ErrConversationNotFound.WithDetail(id)
	}

	prior := c.Messages
	draft, _ := s.prepareUserTurn(c, prior, userText)
	history := BuildHistory(append(prior[:len(prior):len(prior)], draft), s.window)

	reply, err := s.complete(ctx, history)
	if err != nil {
		return nil, err
	}

	var res *exchange
	err = s.store.WithTransaction(ctx, func(ctx context.Context) error {
		locked, current, err := s.lockConversation(ctx, id)
		if err != nil {
			return err
		}
		if !sameTail(prior, current) {
			return apperrors.ErrConflict.WithDetail("conversation changed while waiting for reply")
		}

		user, titled := s.prepareUserTurn(locked, current, userText)
		if err := s.store.Messages().Create(ctx, user); err != nil {
			return err
		}
		assistant := entity.NewMessage(id, entity.RoleAssistant, reply, s.clock(), user.CreatedAt)
		if err := s.store.Messages().Create(ctx, assistant); err != nil {
			return err
		}
		locked.Touch(assistant.CreatedAt)
		if err := s.store.Conversations().Update(ctx, locked); err != nil {
			return err
		}

		res = &exchange{conversation: locked, user: user, assistant: assistant, historyLen: len(history), titled: titled}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// lockConversation 行锁读取对话及其已有消息
func (s *Service) lockConversation(ctx context.Context, id string) (*entity.Conversation, []*entity.Message, error) {
	c, err := s.store.Conversations().GetByIDForUpdate(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if c == nil {
		return nil, nil, apperrors.ErrConversationNotFound.WithDetail(id)
	}
	prior, err := s.store.Messages().ListByConversation(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	return c, prior, nil
}

// prepareUserTurn 构造用户消息；若为首条消息则同时设置标题
func (s *Service) prepareUserTurn(c *entity.Conversation, prior []*entity.Message, userText string) (*entity.Message, bool) {
	var notBefore time.Time
	if n := len(prior); n > 0 {
		notBefore = prior[n-1].CreatedAt
	}
	user := entity.NewMessage(c.ID, entity.RoleUser, userText, s.clock(), notBefore)

	if len(prior) > 0 {
		return user, false
	}
	c.Rename(GenerateTitle(userText), user.CreatedAt)
	return user, true
}

func (s *Service) complete(ctx context.Context, history []*schema.Message) (string, error) {
	metrics.ConversationHistoryWindow.Observe(float64(len(history)))

	reply, err := s.llm.Complete(ctx, s.systemPrompt, history)
	if err != nil {
		return "", upstreamError(err)
	}
	return reply, nil
}

// afterCommit 提交后失效缓存并发布事件，失败只记录日志
func (s *Service) afterCommit(ctx context.Context, id string, evt *entity.ConversationEvent) {
	ctx = context.WithoutCancel(ctx)

	if s.cache != nil {
		if err := s.cache.Invalidate(ctx, id); err != nil {
			logger.Warn(ctx, "invalidate conversation cache failed", "conversation_id", id, "error", err.Error())
		}
	}
	if s.events != nil && evt != nil {
		if err := s.events.PublishConversationEvent(ctx, evt); err != nil {
			logger.Warn(ctx, "publish conversation event failed",
				"conversation_id", id,
				"event_type", string(evt.Type),
				"error", err.Error(),
			)
		}
	}
}

// clock 截断到微秒，与数据库时间精度一致
func (s *Service) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// sameTail 两次读取之间消息列表未变化
func sameTail(before, after []*entity.Message) bool {
	if len(before) != len(after) {
		return false
	}
	if len(before) == 0 {
		return true
	}
	return before[len(before)-1].ID == after[len(after)-1].ID
}

// upstreamError 模型错误统一为 AppError；客户端取消原样返回
func upstreamError(err error) error {
	if apperrors.IsAppError(err) || errors.Is(err, context.Canceled) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrLLMTimeout.WithError(err)
	}
	return apperrors.ErrLLMUnavailable.WithError(err)
}

func recordSpanError(span trace.Span, err error) {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
