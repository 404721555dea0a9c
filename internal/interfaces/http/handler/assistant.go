package handler

import (
	"github.com/gin-gonic/gin"

	"ai-chat-api/internal/application/assistant"
	"ai-chat-api/internal/interfaces/http/dto"
)

// AssistantHandler 单轮对话与图书推荐
type AssistantHandler struct {
	svc *assistant.Service
}

func NewAssistantHandler(svc *assistant.Service) *AssistantHandler {
	return &AssistantHandler{svc: svc}
}

// Chat 单轮对话
// @Summary 单轮对话
// @Tags Assistant
// @Accept json
// @Produce json
// @Param body body dto.ChatRequest true "用户消息"
// @Success 200 {object} dto.ChatResponse
// @Router /api/chat [post]
func (h *AssistantHandler) Chat(c *gin.Context) {
	var req dto.ChatRequest
	if !bindJSON(c, &req) {
		return
	}

	reply, err := h.svc.Chat(c.Request.Context(), req.Message)
	if err != nil {
		writeError(c, "chat", err)
		return
	}
	dto.OK(c, dto.ChatResponse{Response: reply})
}

// RecommendBooks 按主题推荐图书
// @Summary 图书推荐
// @Tags Assistant
// @Produce json
// @Param topic path string true "主题"
// @Success 200 {object} dto.BookListResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /books/{topic} [get]
func (h *AssistantHandler) RecommendBooks(c *gin.Context) {
	topic, err := dto.BindTopic(c)
	if err != nil {
		writeError(c, "bind topic", err)
		return
	}
	list, err := h.svc.RecommendBooks(c.Request.Context(), topic)
	if err != nil {
		writeError(c, "recommend books", err)
		return
	}
	dto.OK(c, dto.ToBookListResponse(list))
}
