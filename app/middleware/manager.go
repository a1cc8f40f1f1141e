package middleware

import (
	"github.com/beego/beego/v2/server/web"
)

// MiddlewareManager 中间件管理器，按添加顺序注册过滤器
type MiddlewareManager struct {
	globalFilters []web.FilterFunc
	routeFilters  []routeFilter
	finishFilters []web.FilterFunc
}

type routeFilter struct {
	pattern string
	filter  web.FilterFunc
}

// NewMiddlewareManager 创建中间件管理器
func NewMiddlewareManager() *MiddlewareManager {
	return &MiddlewareManager{}
}

// AddGlobalFilter 添加全局过滤器
func (mm *MiddlewareManager) AddGlobalFilter(filter web.FilterFunc) {
	mm.globalFilters = append(mm.globalFilters, filter)
}

// AddRouteFilter 添加路由特定过滤器
func (mm *MiddlewareManager) AddRouteFilter(pattern string, filter web.FilterFunc) {
	mm.routeFilters = append(mm.routeFilters, routeFilter{pattern: pattern, filter: filter})
}

// AddFinishFilter 添加请求结束后的过滤器，输出后依然执行
func (mm *MiddlewareManager) AddFinishFilter(filter web.FilterFunc) {
	mm.finishFilters = append(mm.finishFilters, filter)
}

// Apply 把全部过滤器注册到路由器
func (mm *MiddlewareManager) Apply(handlers *web.ControllerRegister) error {
	for _, filter := range mm.globalFilters {
		if err := handlers.InsertFilter("*", web.BeforeRouter, filter); err != nil {
			return err
		}
	}
	for _, rf := range mm.routeFilters {
		if err := handlers.InsertFilter(rf.pattern, web.BeforeRouter, rf.filter); err != nil {
			return err
		}
	}
	for _, filter := range mm.finishFilters {
		if err := handlers.InsertFilter("*", web.FinishRouter, filter, web.WithReturnOnOutput(false)); err != nil {
			return err
		}
	}
	return nil
}
