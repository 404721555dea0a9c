package postgres

import (
	"ai-chat-api/internal/config"
	"ai-chat-api/internal/domain/repository"
)

// Store PostgreSQL 存储网关
type Store struct {
	*TxManager
	*Client
	conversations *ConversationRepository
	messages      *MessageRepository
}

var _ repository.Store = (*Store)(nil)

// NewStore 组装事务管理器与仓储
func NewStore(client *Client, retry config.RetryConfig) *Store {
	return &Store{
		TxManager:     NewTxManager(client, retry),
		Client:        client,
		conversations: NewConversationRepository(client),
		messages:      NewMessageRepository(client),
	}
}

func (s *Store) Conversations() repository.ConversationRepository { return s.conversations }

func (s *Store) Messages() repository.MessageRepository { return s.messages }
