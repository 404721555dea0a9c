// Package memory 提供进程内存储网关，用于开发与测试
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"

	"ai-chat-api/internal/domain/entity"
	"ai-chat-api/internal/domain/repository"
	apperrors "ai-chat-api/pkg/errors"
)

type txKey struct{}

// Store 进程内存储
// 事务内的写操作先记入日志，提交时在全局锁下一次性应用；
// GetByIDForUpdate 获取对话级锁直到事务结束。
type Store struct {
	mu            sync.RWMutex
	conversations map[string]*entity.Conversation
	messages      map[string][]*entity.Message

	locksMu sync.Mutex
	locks   map[string]*convLock

	seq atomic.Int64

	conversationRepo *conversationRepo
	messageRepo      *messageRepo
}

var _ repository.Store = (*Store)(nil)

// NewStore 创建空的内存存储
func NewStore() *Store {
	s := &Store{
		conversations: make(map[string]*entity.Conversation),
		messages:      make(map[string][]*entity.Message),
		locks:         make(map[string]*convLock),
	}
	s.conversationRepo = &conversationRepo{store: s}
	s.messageRepo = &messageRepo{store: s}
	return s
}

func (s *Store) Conversations() repository.ConversationRepository { return s.conversationRepo }

func (s *Store) Messages() repository.MessageRepository { return s.messageRepo }

// HealthCheck 内存存储始终可用
func (s *Store) HealthCheck(context.Context) error { return nil }

// WithTransaction 在事务中执行 fn；fn 返回错误或 panic 时丢弃全部写入
func (s *Store) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if txFromContext(ctx) != nil {
		return fn(ctx)
	}

	tx := newTx(s)
	defer tx.releaseLocks()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return s.commit(tx)
}

// autocommit 不在事务中的写操作按单语句事务执行
func (s *Store) autocommit(ctx context.Context, fn func(tx *tx) error) error {
	if t := txFromContext(ctx); t != nil {
		return fn(t)
	}
	t := newTx(s)
	defer t.releaseLocks()
	if err := fn(t); err != nil {
		return err
	}
	return s.commit(t)
}

func (s *Store) commit(t *tx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	// 先校验外键，失败时不应用任何写入
	for _, m := range t.newMessages {
		if t.deleted[m.ConversationID] {
			return apperrors.ErrConversationNotFound.WithDetail(m.ConversationID)
		}
		if t.created[m.ConversationID] {
			continue
		}
		if _, ok := s.conversations[m.ConversationID]; !ok {
			return apperrors.ErrConversationNotFound.WithDetail(m.ConversationID)
		}
	}

	for id := range t.deleted {
		delete(s.conversations, id)
		delete(s.messages, id)
	}
	for id, c := range t.upserts {
		// 更新已被并发删除的对话不产生效果，与 UPDATE 影响 0 行一致
		if _, ok := s.conversations[id]; !ok && !t.created[id] {
			continue
		}
		s.conversations[id] = c
	}
	for _, m := range t.newMessages {
		s.messages[m.ConversationID] = append(s.messages[m.ConversationID], m)
	}
	return nil
}

// convLock 对话级锁；refs 为持有与等待者数量，归零时从表中移除
type convLock struct {
	ch   chan struct{}
	refs int
}

// lock 获取对话级锁，可被 ctx 取消
func (s *Store) lock(ctx context.Context, id string) error {
	s.locksMu.Lock()
	l, ok := s.locks[id]
	if !ok {
		l = &convLock{ch: make(chan struct{}, 1)}
		s.locks[id] = l
	}
	l.refs++
	s.locksMu.Unlock()

	select {
	case l.ch <- struct{}{}:
		return nil
	case <-ctx.Done():
		s.release(id, l)
		return ctx.Err()
	}
}

func (s *Store) unlock(id string) {
	s.locksMu.Lock()
	l := s.locks[id]
	s.locksMu.Unlock()
	if l == nil {
		return
	}
	<-l.ch
	s.release(id, l)
}

func (s *Store) release(id string, l *convLock) {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	l.refs--
	if l.refs == 0 {
		delete(s.locks, id)
	}
}

// lockCount 当前锁表大小
func (s *Store) lockCount() int {
	s.locksMu.Lock()
	defer s.locksMu.Unlock()
	return len(s.locks)
}

// tx 事务写日志
type tx struct {
	store       *Store
	upserts     map[string]*entity.Conversation
	created     map[string]bool
	deleted     map[string]bool
	newMessages []*entity.Message
	locked      map[string]bool
}

func newTx(s *Store) *tx {
	return &tx{
		store:   s,
		upserts: make(map[string]*entity.Conversation),
		created: make(map[string]bool),
		deleted: make(map[string]bool),
		locked:  make(map[string]bool),
	}
}

func txFromContext(ctx context.Context) *tx {
	t, _ := ctx.Value(txKey{}).(*tx)
	return t
}

func (t *tx) lock(ctx context.Context, id string) error {
	if t.locked[id] {
		return nil
	}
	if err := t.store.lock(ctx, id); err != nil {
		return err
	}
	t.locked[id] = true
	return nil
}

func (t *tx) releaseLocks() {
	for id := range t.locked {
		t.store.unlock(id)
	}
	t.locked = nil
}

// conversation 返回事务视角下的对话副本
func (t *tx) conversation(id string) *entity.Conversation {
	if t.deleted[id] {
		return nil
	}
	if c, ok := t.upserts[id]; ok {
		return copyConversation(c)
	}
	t.store.mu.RLock()
	defer t.store.mu.RUnlock()
	if c, ok := t.store.conversations[id]; ok {
		return copyConversation(c)
	}
	return nil
}

func copyConversation(c *entity.Conversation) *entity.Conversation {
	cp := *c
	if c.Title != nil {
		title := *c.Title
		cp.Title = &title
	}
	cp.Messages = nil
	return &cp
}

func copyMessage(m *entity.Message) *entity.Message {
	cp := *m
	return &cp
}

type conversationRepo struct {
	store *Store
}

func (r *conversationRepo) Create(ctx context.Context, c *entity.Conversation) error {
	return r.store.autocommit(ctx, func(t *tx) error {
		if t.conversation(c.ID) != nil {
			return apperrors.ErrConflict.WithDetail(fmt.Sprintf("conversation %s already exists", c.ID))
		}
		t.upserts[c.ID] = copyConversation(c)
		t.created[c.ID] = true
		return nil
	})
}

func (r *conversationRepo) GetByID(ctx context.Context, id string) (*entity.Conversation, error) {
	t := txFromContext(ctx)
	if t == nil {
		t = &tx{store: r.store}
	}
	return t.conversation(id), nil
}

func (r *conversationRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Conversation, error) {
	t := txFromContext(ctx)
	if t == nil {
		// 不在事务中加锁没有意义
		return r.GetByID(ctx, id)
	}
	if err := t.lock(ctx, id); err != nil {
		return nil, err
	}
	return t.conversation(id), nil
}

func (r *conversationRepo) ListByUpdatedDesc(ctx context.Context) ([]*entity.Conversation, error) {
	t := txFromContext(ctx)

	r.store.mu.RLock()
	byID := make(map[string]*entity.Conversation, len(r.store.conversations))
	for id, c := range r.store.conversations {
		byID[id] = c
	}
	r.store.mu.RUnlock()

	if t != nil {
		for id := range t.deleted {
			delete(byID, id)
		}
		for id, c := range t.upserts {
			byID[id] = c
		}
	}

	list := make([]*entity.Conversation, 0, len(byID))
	for _, c := range byID {
		list = append(list, copyConversation(c))
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].UpdatedAt.Equal(list[j].UpdatedAt) {
			return list[i].UpdatedAt.After(list[j].UpdatedAt)
		}
		return list[i].ID < list[j].ID
	})
	return list, nil
}

func (r *conversationRepo) Update(ctx context.Context, c *entity.Conversation) error {
	return r.store.autocommit(ctx, func(t *tx) error {
		if t.conversation(c.ID) == nil {
			return nil
		}
		t.upserts[c.ID] = copyConversation(c)
		return nil
	})
}

func (r *conversationRepo) Delete(ctx context.Context, id string) error {
	return r.store.autocommit(ctx, func(t *tx) error {
		// 与并发发送互斥，等价于删除时的行锁
		if err := t.lock(ctx, id); err != nil {
			return err
		}
		delete(t.upserts, id)
		delete(t.created, id)
		t.deleted[id] = true

		kept := t.newMessages[:0]
		for _, m := range t.newMessages {
			if m.ConversationID != id {
				kept = append(kept, m)
			}
		}
		t.newMessages = kept
		return nil
	})
}

type messageRepo struct {
	store *Store
}

func (r *messageRepo) Create(ctx context.Context, m *entity.Message) error {
	if !m.Role.Valid() {
		return apperrors.ErrInvalidParam.WithDetail(fmt.Sprintf("invalid message role %q", m.Role))
	}
	return r.store.autocommit(ctx, func(t *tx) error {
		if t.conversation(m.ConversationID) == nil {
			return apperrors.ErrConversationNotFound.WithDetail(m.ConversationID)
		}
		m.Seq = r.store.seq.Add(1)
		t.newMessages = append(t.newMessages, copyMessage(m))
		return nil
	})
}

func (r *messageRepo) ListByConversation(ctx context.Context, conversationID string) ([]*entity.Message, error) {
	t := txFromContext(ctx)
	if t != nil && t.deleted[conversationID] {
		return []*entity.Message{}, nil
	}

	r.store.mu.RLock()
	committed := r.store.messages[conversationID]
	list := make([]*entity.Message, 0, len(committed))
	for _, m := range committed {
		list = append(list, copyMessage(m))
	}
	r.store.mu.RUnlock()

	if t != nil {
		for _, m := range t.newMessages {
			if m.ConversationID == conversationID {
				list = append(list, copyMessage(m))
			}
		}
	}

	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].CreatedAt.Equal(list[j].CreatedAt) {
			return list[i].CreatedAt.Before(list[j].CreatedAt)
		}
		return list[i].Seq < list[j].Seq
	})
	return list, nil
}
