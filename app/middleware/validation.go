package middleware

import (
	"net/http"
	"strings"

	"github.com/beego/beego/v2/server/web/context"

	apperrors "github.com/aihub/school-assistant/internal/errors"
)

// MaxRequestBytes 问答请求体上限
const MaxRequestBytes = 64 << 10

// ValidationMiddleware 问答接口输入检查：请求体大小与Content-Type
func ValidationMiddleware(maxBytes int64) func(*context.Context) {
	if maxBytes <= 0 {
		maxBytes = MaxRequestBytes
	}
	return func(ctx *context.Context) {
		if ctx.Input.Method() != http.MethodPost {
			return
		}

		if ctx.Request.ContentLength > maxBytes {
			writeError(ctx, apperrors.NewValidationError("Request too large").
				WithDetails(map[string]int64{"max_bytes": maxBytes}), http.StatusRequestEntityTooLarge)
			return
		}
		ctx.Request.Body = http.MaxBytesReader(ctx.ResponseWriter, ctx.Request.Body, maxBytes)

		if !validateContentType(ctx) {
			writeError(ctx, apperrors.NewValidationError("Content-Type must be application/json"),
				http.StatusUnsupportedMediaType)
			return
		}
	}
}

// validateContentType 没有Content-Type时放行，由控制器按JSON解析
func validateContentType(ctx *context.Context) bool {
	contentType := ctx.Input.Header("Content-Type")
	if contentType == "" {
		return true
	}
	return strings.HasPrefix(strings.ToLower(contentType), "application/json")
}

// writeError 以统一错误信封写回，status为0时取AppError的HTTP码
func writeError(ctx *context.Context, appErr *apperrors.AppError, status int) {
	if status == 0 {
		status = appErr.HTTPCode
	}
	appErr.WithRequestID(GetRequestID(ctx))
	ctx.Output.SetStatus(status)
	_ = ctx.Output.JSON(apperrors.Response(appErr), false, false)
}
