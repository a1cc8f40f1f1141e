package router

import (
	"github.com/beego/beego/v2/server/web"

	"github.com/aihub/school-assistant/app/controllers"
	"github.com/aihub/school-assistant/app/middleware"
)

// AskRoutes 问答接口路径，/api/ask 为前端使用的别名
var AskRoutes = []string{"/ask", "/api/ask"}

// Dependencies 路由注册所需的控制器与中间件依赖
type Dependencies struct {
	Ask            *controllers.AskController
	Health         *controllers.HealthController
	Metrics        *controllers.MetricsController
	AllowedOrigins []string
	Limiter        middleware.Limiter
	TrustedProxies *middleware.TrustedProxies
}

// Init registers all routes on the global beego app. Must be called after bootstrap.
func Init(deps Dependencies) error {
	return Register(web.BeeApp.Handlers, deps)
}

// Register 在指定路由器上注册过滤器与路由
func Register(handlers *web.ControllerRegister, deps Dependencies) error {
	mm := middleware.NewMiddlewareManager()
	mm.AddGlobalFilter(middleware.AccessLogStart())
	mm.AddGlobalFilter(middleware.RequestIDMiddleware())
	mm.AddGlobalFilter(middleware.SecurityHeaders())
	for _, path := range AskRoutes {
		mm.AddRouteFilter(path, middleware.CORSMiddleware(deps.AllowedOrigins))
		if deps.Limiter != nil {
			mm.AddRouteFilter(path, middleware.RateLimitMiddleware(deps.Limiter, deps.TrustedProxies))
		}
		mm.AddRouteFilter(path, middleware.ValidationMiddleware(middleware.MaxRequestBytes))
	}
	mm.AddFinishFilter(middleware.AccessLogFinish())
	if err := mm.Apply(handlers); err != nil {
		return err
	}

	root := &controllers.RootController{}
	handlers.Add("/", root, web.WithRouterMethods(root, "get:Index"))

	health := deps.Health
	if health == nil {
		health = &controllers.HealthController{}
	}
	handlers.Add("/health", health, web.WithRouterMethods(health, "get:Health"))

	if deps.Metrics != nil {
		handlers.Add("/metrics", deps.Metrics, web.WithRouterMethods(deps.Metrics, "get:Metrics"))
	}

	if deps.Ask != nil {
		for _, path := range AskRoutes {
			handlers.Add(path, deps.Ask, web.WithRouterMethods(deps.Ask, "post:Ask"))
		}
	}
	return nil
}
