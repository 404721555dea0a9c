package handler

import (
	"github.com/gin-gonic/gin"

	appconversation "ai-chat-api/internal/application/conversation"
	"ai-chat-api/internal/interfaces/http/dto"
)

// ConversationHandler 多轮对话处理器
type ConversationHandler struct {
	svc *appconversation.Service
}

// NewConversationHandler 创建多轮对话处理器
func NewConversationHandler(svc *appconversation.Service) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

// ListConversations 获取对话列表
// @Summary 获取对话列表
// @Description 按更新时间倒序返回全部对话，不含消息
// @Tags Conversations
// @Produce json
// @Success 200 {array} dto.ConversationResponse
// @Failure 503 {object} dto.ErrorResponse
// @Router /api/conversations [get]
func (h *ConversationHandler) ListConversations(c *gin.Context) {
	list, err := h.svc.ListConversations(c.Request.Context())
	if err != nil {
		writeError(c, "list conversations", err)
		return
	}
	dto.OK(c, dto.ToConversationListResponse(list))
}

// GetConversation 获取对话详情
// @Summary 获取对话详情
// @Tags Conversations
// @Produce json
// @Param id path string true "对话 ID"
// @Success 200 {object} dto.ConversationResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/conversations/{id} [get]
func (h *ConversationHandler) GetConversation(c *gin.Context) {
	id, ok := bindConversationID(c)
	if !ok {
		return
	}

	conv, err := h.svc.GetConversation(c.Request.Context(), id)
	if err != nil {
		writeError(c, "get conversation", err)
		return
	}
	if conv == nil {
		dto.NotFound(c, "conversation not found")
		return
	}
	dto.OK(c, dto.ToConversationResponse(conv, true))
}

// CreateConversation 创建空对话
// @Summary 创建对话
// @Tags Conversations
// @Produce json
// @Success 200 {object} dto.ConversationResponse
// @Router /api/conversations [post]
func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	conv, err := h.svc.CreateConversation(c.Request.Context())
	if err != nil {
		writeError(c, "create conversation", err)
		return
	}
	dto.OK(c, dto.ToConversationResponse(conv, false))
}

// DeleteConversation 删除对话，对不存在的 ID 同样返回 204
// @Summary 删除对话
// @Tags Conversations
// @Param id path string true "对话 ID"
// @Success 204
// @Router /api/conversations/{id} [delete]
func (h *ConversationHandler) DeleteConversation(c *gin.Context) {
	id, ok := bindConversationID(c)
	if !ok {
		return
	}
	if err := h.svc.DeleteConversation(c.Request.Context(), id); err != nil {
		writeError(c, "delete conversation", err)
		return
	}
	dto.NoContent(c)
}

// UpdateTitle 重命名对话
// @Summary 重命名对话
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "对话 ID"
// @Param body body dto.UpdateTitleRequest true "新标题"
// @Success 200 {object} dto.ConversationResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /api/conversations/{id} [patch]
func (h *ConversationHandler) UpdateTitle(c *gin.Context) {
	id, ok := bindConversationID(c)
	if !ok {
		return
	}
	var req dto.UpdateTitleRequest
	if !bindJSON(c, &req) {
		return
	}

	conv, err := h.svc.UpdateTitle(c.Request.Context(), id, *req.Title)
	if err != nil {
		writeError(c, "update title", err)
		return
	}
	if conv == nil {
		dto.NotFound(c, "conversation not found")
		return
	}
	dto.OK(c, dto.ToConversationResponse(conv, false))
}

// SendMessage 发送消息并返回助手回复
// @Summary 发送消息
// @Tags Conversations
// @Accept json
// @Produce json
// @Param id path string true "对话 ID"
// @Param body body dto.SendMessageRequest true "用户消息"
// @Success 200 {object} dto.MessageResponse
// @Failure 400 {object} dto.ErrorResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 502 {object} dto.ErrorResponse
// @Router /api/conversations/{id}/messages [post]
func (h *ConversationHandler) SendMessage(c *gin.Context) {
	id, ok := bindConversationID(c)
	if !ok {
		return
	}
	var req dto.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	reply, err := h.svc.SendMessage(c.Request.Context(), id, req.Message)
	if err != nil {
		writeError(c, "send message", err)
		return
	}
	dto.OK(c, dto.ToMessageResponse(reply))
}
