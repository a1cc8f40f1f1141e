package controllers

import (
	"net/http"

	"github.com/aihub/school-assistant/internal/services"
)

// ChatPage 聊天页面地址
const ChatPage = "/static/chat.html"

// RootController 根控制器
type RootController struct {
	BaseController
}

// Index 跳转到聊天页面
func (c *RootController) Index() {
	c.Redirect(ChatPage, http.StatusFound)
}

// HealthController 健康检查控制器
type HealthController struct {
	BaseController
	Assistant *services.AssistantService
}

// NewHealthController 创建健康检查控制器
func NewHealthController(assistant *services.AssistantService) *HealthController {
	return &HealthController{Assistant: assistant}
}

// Health 语料规模、协作方是否就绪与熔断状态
func (c *HealthController) Health() {
	status := map[string]interface{}{"status": "healthy"}
	if c.Assistant != nil {
		status["corpus_chunks"] = c.Assistant.CorpusSize()
		status["collaborators_ready"] = c.Assistant.Ready()
		status["breakers"] = c.Assistant.Breakers()
	}
	c.JSONSuccess(status)
}
