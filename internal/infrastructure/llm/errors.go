package llm

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	goopenai "github.com/meguminnnnnnnnn/go-openai"

	apperrors "ai-chat-api/pkg/errors"
)

// classifyUpstreamError 将模型调用错误归类
// 调用方主动取消时原样返回 context.Canceled，其余统一转为 AppError。
func classifyUpstreamError(parent context.Context, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.IsAppError(err) {
		return err
	}
	if errors.Is(parent.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return context.Canceled
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return apperrors.ErrLLMTimeout.WithError(err)
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return apperrors.ErrLLMTimeout.WithError(err)
	}

	if status := upstreamStatus(err); status > 0 {
		return classifyStatus(status, err)
	}
	return classifyByMessage(err)
}

// upstreamStatus 提取上游 HTTP 状态码，未知时返回 0
func upstreamStatus(err error) int {
	var apiErr *goopenai.APIError
	if errors.As(err, &apiErr) && apiErr.HTTPStatusCode > 0 {
		return apiErr.HTTPStatusCode
	}
	var reqErr *goopenai.RequestError
	if errors.As(err, &reqErr) && reqErr.HTTPStatusCode > 0 {
		return reqErr.HTTPStatusCode
	}
	return 0
}

func classifyStatus(status int, err error) error {
	switch {
	case status == http.StatusTooManyRequests:
		return apperrors.ErrLLMRateLimited.WithError(err)
	case status == http.StatusRequestTimeout, status == http.StatusGatewayTimeout:
		return apperrors.ErrLLMTimeout.WithError(err)
	case status == http.StatusBadRequest, status == http.StatusNotFound, status == http.StatusUnprocessableEntity:
		return apperrors.ErrLLMRejected.WithError(err)
	case status == http.StatusUnauthorized, status == http.StatusForbidden:
		return apperrors.ErrLLMRejected.WithError(err)
	default:
		return apperrors.ErrLLMUnavailable.WithError(err)
	}
}

// classifyByMessage 错误链中没有结构化状态码时按错误文本兜底
func classifyByMessage(err error) error {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "status code: 429"), strings.Contains(msg, "rate limit"):
		return apperrors.ErrLLMRateLimited.WithError(err)
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return apperrors.ErrLLMTimeout.WithError(err)
	case strings.Contains(msg, "status code: 400"),
		strings.Contains(msg, "status code: 404"),
		strings.Contains(msg, "status code: 422"):
		return apperrors.ErrLLMRejected.WithError(err)
	default:
		return apperrors.ErrLLMUnavailable.WithError(err)
	}
}

// isResponseFormatUnsupportedError 判断提供商是否拒绝了 response_format 参数
func isResponseFormatUnsupportedError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "response_format"):
		return true
	case strings.Contains(msg, "json_schema"):
		return true
	case strings.Contains(msg, "unknown parameter") && strings.Contains(msg, "response"):
		return true
	case strings.Contains(msg, "response_schema"):
		return true
	default:
		return false
	}
}
