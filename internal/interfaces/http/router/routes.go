// Package router 提供 HTTP 路由配置
package router

import (
	"github.com/gin-gonic/gin"

	"ai-chat-api/internal/interfaces/http/handler"
)

// RegisterAPIRoutes 注册 /api 路由
func RegisterAPIRoutes(
	api *gin.RouterGroup,
	conversationHandler *handler.ConversationHandler,
	assistantHandler *handler.AssistantHandler,
) {
	// 多轮对话
	conversations := api.Group("/conversations")
	{
		conversations.GET("", conversationHandler.ListConversations)
		conversations.POST("", conversationHandler.CreateConversation)
		conversations.GET("/:id", conversationHandler.GetConversation)
		conversations.PATCH("/:id", conversationHandler.UpdateTitle)
		conversations.DELETE("/:id", conversationHandler.DeleteConversation)
		conversations.POST("/:id/messages", conversationHandler.SendMessage)
	}

	// 单轮对话
	api.POST("/chat", assistantHandler.Chat)
}

// RegisterBookRoutes 注册图书推荐路由
func RegisterBookRoutes(r gin.IRouter, assistantHandler *handler.AssistantHandler) {
	r.GET("/books/:topic", assistantHandler.RecommendBooks)
}
