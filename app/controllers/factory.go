package controllers

import (
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/dig"

	"github.com/aihub/school-assistant/internal/services"
)

// ControllerFactory 控制器工厂
type ControllerFactory struct {
	container *dig.Container
}

// NewControllerFactory 创建控制器工厂
func NewControllerFactory(container *dig.Container) *ControllerFactory {
	return &ControllerFactory{
		container: container,
	}
}

// CreateAskController 创建问答控制器
func (f *ControllerFactory) CreateAskController() (*AskController, error) {
	var assistant *services.AssistantService

	err := f.container.Invoke(func(a *services.AssistantService) {
		assistant = a
	})

	if err != nil {
		return nil, err
	}

	return NewAskController(assistant), nil
}

// CreateHealthController 创建健康检查控制器
func (f *ControllerFactory) CreateHealthController() (*HealthController, error) {
	var assistant *services.AssistantService

	err := f.container.Invoke(func(a *services.AssistantService) {
		assistant = a
	})

	if err != nil {
		return nil, err
	}

	return NewHealthController(assistant), nil
}

// CreateMetricsController 创建指标控制器，注册器同时实现Gatherer时使用它
func (f *ControllerFactory) CreateMetricsController() (*MetricsController, error) {
	var gatherer prometheus.Gatherer

	err := f.container.Invoke(func(reg prometheus.Registerer) {
		if g, ok := reg.(prometheus.Gatherer); ok {
			gatherer = g
		}
	})

	if err != nil {
		return nil, err
	}

	return NewMetricsController(gatherer), nil
}
