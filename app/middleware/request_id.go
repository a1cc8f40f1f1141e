package middleware

import (
	"github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"
)

const (
	// RequestIDHeader 请求ID头
	RequestIDHeader = "X-Request-ID"
	// RequestIDKey 请求ID在上下文中的键
	RequestIDKey = "request_id"
)

// RequestIDMiddleware 沿用客户端传入的请求ID，没有时生成
func RequestIDMiddleware() func(*context.Context) {
	return func(ctx *context.Context) {
		id := ctx.Input.Header(RequestIDHeader)
		if id == "" || len(id) > 128 {
			id = uuid.NewString()
		}
		ctx.Input.SetData(RequestIDKey, id)
		ctx.Output.Header(RequestIDHeader, id)
	}
}

// GetRequestID 取当前请求ID
func GetRequestID(ctx *context.Context) string {
	if id, ok := ctx.Input.GetData(RequestIDKey).(string); ok {
		return id
	}
	return ""
}
