package middleware

import (
	"net/http"

	"github.com/beego/beego/v2/server/web/context"
)

// CORSMiddleware CORS中间件，allowedOrigins含"*"时允许任意源
func CORSMiddleware(allowedOrigins []string) func(*context.Context) {
	allowAll := false
	allowed := make(map[string]bool, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[o] = true
	}

	return func(ctx *context.Context) {
		origin := ctx.Input.Header("Origin")

		switch {
		case origin == "":
			// 同源请求
		case allowAll:
			ctx.Output.Header("Access-Control-Allow-Origin", "*")
		case allowed[origin]:
			ctx.Output.Header("Access-Control-Allow-Origin", origin)
			ctx.Output.Header("Vary", "Origin")
		}

		ctx.Output.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		ctx.Output.Header("Access-Control-Allow-Headers", "Content-Type, Accept, Origin, X-Request-ID")
		ctx.Output.Header("Access-Control-Max-Age", "3600")

		// 处理OPTIONS预检请求
		if ctx.Input.Method() == http.MethodOptions {
			ctx.Output.SetStatus(http.StatusNoContent)
			_ = ctx.Output.Body([]byte(""))
		}
	}
}
