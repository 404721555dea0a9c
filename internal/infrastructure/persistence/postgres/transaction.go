// Package postgres 提供 PostgreSQL 数据库访问层实现
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"

	"ai-chat-api/internal/config"
	"ai-chat-api/internal/domain/repository"
	apperrors "ai-chat-api/pkg/errors"
	"ai-chat-api/pkg/logger"
	"ai-chat-api/pkg/metrics"
)

// TxManager 事务管理器，序列化冲突与死锁时整体重试
type TxManager struct {
	client *Client
	retry  config.RetryConfig
}

// NewTxManager 创建事务管理器
func NewTxManager(client *Client, retry config.RetryConfig) *TxManager {
	if retry.MaxAttempts <= 0 {
		retry.MaxAttempts = 3
	}
	if retry.InitialInterval <= 0 {
		retry.InitialInterval = 50 * time.Millisecond
	}
	if retry.MaxInterval <= 0 {
		retry.MaxInterval = time.Second
	}
	return &TxManager{client: client, retry: retry}
}

// WithTransaction 在事务中执行操作
// fn 返回错误或 panic 时回滚；已在事务中时直接复用外层事务。
func (m *TxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx := getTxFromContext(ctx); tx != nil {
		return fn(ctx)
	}

	ctx, span := tracer.Start(ctx, "postgres.TxManager.WithTransaction")
	defer span.End()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = m.retry.InitialInterval
	b.MaxInterval = m.retry.MaxInterval

	attempt := 0
	_, err := backoff.Retry(ctx, func() (struct{}, error) {
		attempt++
		var fnErr error
		err := m.client.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			fnErr = fn(context.WithValue(ctx, repository.TxKey{}, tx))
			return fnErr
		})
		if err == nil {
			return struct{}{}, nil
		}
		// 仓储错误已归类；其余为 begin/commit 阶段的数据库错误
		if fnErr == nil {
			err = classifyError(err, "transaction")
		}
		if apperrors.HasCode(err, apperrors.CodeConflict) {
			metrics.StoreRetriesTotal.WithLabelValues("conflict").Inc()
			logger.Warn(ctx, "transaction conflict, retrying", "attempt", attempt)
			return struct{}{}, err
		}
		return struct{}{}, backoff.Permanent(err)
	},
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(m.retry.MaxAttempts)),
	)
	if err != nil {
		var permanent *backoff.PermanentError
		if errors.As(err, &permanent) {
			err = permanent.Unwrap()
		}
		span.RecordError(err)
		return err
	}
	return nil
}

// getTxFromContext 从上下文获取事务
func getTxFromContext(ctx context.Context) *gorm.DB {
	if tx, ok := ctx.Value(repository.TxKey{}).(*gorm.DB); ok {
		return tx
	}
	return nil
}

// getDB 返回上下文中的事务，不在事务中时返回普通连接
func getDB(ctx context.Context, db *gorm.DB) *gorm.DB {
	if tx := getTxFromContext(ctx); tx != nil {
		return tx.WithContext(ctx)
	}
	return db.WithContext(ctx)
}
