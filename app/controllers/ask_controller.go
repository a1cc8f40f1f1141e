package controllers

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/aihub/school-assistant/app/middleware"
	apperrors "github.com/aihub/school-assistant/internal/errors"
	"github.com/aihub/school-assistant/internal/services"
)

// AskRequest 问答请求
type AskRequest struct {
	Question string `json:"question"`
}

// AskController 问答控制器
//
// Assistant为导出字段，beego按请求复制控制器时会保留。
type AskController struct {
	BaseController
	Assistant *services.AssistantService
}

// NewAskController 创建问答控制器
func NewAskController(assistant *services.AssistantService) *AskController {
	return &AskController{Assistant: assistant}
}

// Ask 回答问题，成功时返回 {answer, url, link_label}
func (c *AskController) Ask() {
	question, ok := c.readQuestion()
	if !ok {
		c.JSONError(apperrors.NewValidationError("No question provided"))
		return
	}

	ctx := services.WithRequestID(c.Ctx.Request.Context(), middleware.GetRequestID(c.Ctx))
	answer, err := c.Assistant.Ask(ctx, question)
	if err != nil {
		c.JSONError(err)
		return
	}

	c.Data["json"] = answer
	_ = c.ServeJSON()
}

// readQuestion 解析JSON请求体，问题为空或请求体无效时返回false
func (c *AskController) readQuestion() (string, bool) {
	body := c.Ctx.Input.RequestBody
	if len(body) == 0 && c.Ctx.Request.Body != nil {
		var err error
		body, err = io.ReadAll(c.Ctx.Request.Body)
		if err != nil {
			return "", false
		}
	}

	var req AskRequest
	if err := json.Unmarshal(body, &req); err != nil {
		return "", false
	}
	if strings.TrimSpace(req.Question) == "" {
		return "", false
	}
	return req.Question, true
}
