package controllers

import (
	"net/http"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/aihub/school-assistant/app/middleware"
	apperrors "github.com/aihub/school-assistant/internal/errors"
	"github.com/aihub/school-assistant/internal/logger"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	_ = c.ServeJSON()
}

// JSONSuccess writes a standard success envelope.
func (c *BaseController) JSONSuccess(data interface{}) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    data,
	})
}

// JSONError writes the error envelope for err, hiding internals of non-AppErrors.
func (c *BaseController) JSONError(err error) {
	appErr := apperrors.GetAppError(err)
	appErr.WithRequestID(c.requestID())

	if appErr.HTTPCode >= http.StatusInternalServerError {
		logger.Error("Request failed",
			zap.String("path", c.Ctx.Input.URL()),
			zap.String("code", string(appErr.Code)),
			zap.String("request_id", appErr.RequestID),
			zap.Error(err))
	}
	c.JSON(appErr.HTTPCode, apperrors.Response(appErr))
}

// requestID 当前请求ID
func (c *BaseController) requestID() string {
	return middleware.GetRequestID(c.Ctx)
}
