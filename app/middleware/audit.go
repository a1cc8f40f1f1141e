package middleware

import (
	"time"

	"github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"

	"github.com/aihub/school-assistant/internal/logger"
)

const accessStartKey = "access_start"

// AccessLogStart 记录请求开始时间，BeforeRouter阶段注册
func AccessLogStart() func(*context.Context) {
	return func(ctx *context.Context) {
		ctx.Input.SetData(accessStartKey, time.Now())
	}
}

// AccessLogFinish 请求结束后记录访问日志，FinishRouter阶段注册且不因输出提前返回
func AccessLogFinish() func(*context.Context) {
	return func(ctx *context.Context) {
		fields := []zap.Field{
			zap.String("method", ctx.Input.Method()),
			zap.String("path", ctx.Input.URL()),
			zap.Int("status", ctx.ResponseWriter.Status),
			zap.String("ip", RemoteIP(ctx)),
			zap.String("request_id", GetRequestID(ctx)),
		}
		if started, ok := ctx.Input.GetData(accessStartKey).(time.Time); ok {
			fields = append(fields, zap.Duration("latency", time.Since(started)))
		}
		logger.Info("HTTP request", fields...)
	}
}
