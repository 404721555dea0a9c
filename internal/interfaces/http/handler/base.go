// Package handler 提供 HTTP 请求处理器
package handler

import (
	"context"
	stderrors "errors"
	"math"
	"strconv"

	"github.com/gin-gonic/gin"

	"ai-chat-api/internal/interfaces/http/dto"
	"ai-chat-api/pkg/errors"
	"ai-chat-api/pkg/logger"
)

// statusClientClosedRequest 客户端已断开，响应不会被读取
const statusClientClosedRequest = 499

// writeError 将服务层错误映射为 HTTP 响应
func writeError(c *gin.Context, op string, err error) {
	ctx := c.Request.Context()

	if stderrors.Is(err, context.Canceled) {
		logger.Info(ctx, op+" canceled by client")
		c.AbortWithStatus(statusClientClosedRequest)
		return
	}

	if !errors.IsAppError(err) {
		logger.Error(ctx, op+" failed", err)
		dto.InternalError(c, "internal server error")
		return
	}

	appErr := errors.AsAppError(err)
	if appErr.HTTPStatus >= 500 {
		logger.Error(ctx, op+" failed", err, "error_code", string(appErr.Code))
	} else {
		logger.Warn(ctx, op+" rejected", "error_code", string(appErr.Code), "error", err.Error())
	}
	if appErr.RetryAfter > 0 {
		c.Header("Retry-After", strconv.Itoa(int(math.Ceil(appErr.RetryAfter.Seconds()))))
	}
	dto.AppError(c, appErr)
}

// bindJSON 解析请求体，失败时直接写 400
// bindConversationID 绑定路径中的对话 ID，失败时已写出 400
func bindConversationID(c *gin.Context) (string, bool) {
	id, err := dto.BindConversationID(c)
	if err != nil {
		writeError(c, "bind conversation id", err)
		return "", false
	}
	return id, true
}

func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		dto.BadRequest(c, "invalid request body: "+err.Error())
		return false
	}
	return true
}
