package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	apperrors "ai-chat-api/pkg/errors"
)

// PostgreSQL SQLSTATE
const (
	sqlStateSerializationFailure = "40001"
	sqlStateDeadlockDetected     = "40P01"
	sqlStateForeignKeyViolation  = "23503"
	sqlStateCheckViolation       = "23514"
)

// classifyError 将数据库错误归类为 AppError
// 序列化失败/死锁 -> Conflict；连接与 I/O 错误 -> StoreUnavailable；客户端取消原样返回。
func classifyError(err error, op string) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) || errors.Is(err, context.Canceled) {
		return err
	}

	wrapped := fmt.Errorf("%s: %w", op, err)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == sqlStateSerializationFailure, pgErr.Code == sqlStateDeadlockDetected:
			return apperrors.ErrConflict.WithError(wrapped)
		case pgErr.Code == sqlStateForeignKeyViolation:
			return apperrors.ErrConversationNotFound.WithError(wrapped)
		case pgErr.Code == sqlStateCheckViolation:
			return apperrors.ErrInvalidParam.WithError(wrapped)
		case strings.HasPrefix(pgErr.Code, "08"), strings.HasPrefix(pgErr.Code, "57P"), strings.HasPrefix(pgErr.Code, "53"):
			// 连接异常、管理员关停、资源不足
			return apperrors.ErrStoreUnavailable.WithError(wrapped)
		default:
			return apperrors.ErrInternalError.WithError(wrapped)
		}
	}

	return apperrors.ErrStoreUnavailable.WithError(wrapped)
}
