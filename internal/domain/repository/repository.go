// Package repository 定义数据访问层接口
package repository

import (
	"context"
)

// TxKey 事务上下文键类型
type TxKey struct{}

// Transactor 事务管理接口
type Transactor interface {
	// WithTransaction 在事务中执行操作；fn 返回错误或 panic 时回滚
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// HealthChecker 存储健康检查
type HealthChecker interface {
	HealthCheck(ctx context.Context) error
}

// Store 聚合一个存储后端提供的全部端口
type Store interface {
	Transactor
	HealthChecker
	Conversations() ConversationRepository
	Messages() MessageRepository
}
