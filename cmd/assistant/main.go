package main

import (
	"log"
	"strconv"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	"github.com/aihub/school-assistant/app/bootstrap"
	"github.com/aihub/school-assistant/internal/logger"
)

func main() {
	app, err := bootstrap.Init()
	if err != nil {
		log.Fatalf("failed to bootstrap application: %v", err)
	}
	defer app.Shutdown()

	cfg := app.Config

	// 配置Beego全局设置
	web.BConfig.AppName = cfg.Assistant.SchoolName + " Assistant"
	web.BConfig.CopyRequestBody = true
	web.BConfig.RunMode = cfg.Server.Mode
	port, err := strconv.Atoi(cfg.Server.Port)
	if err != nil {
		logger.Fatal("Invalid server port", zap.String("port", cfg.Server.Port), zap.Error(err))
	}
	web.BConfig.Listen.HTTPPort = port
	web.BConfig.WebConfig.AutoRender = false

	// 聊天页面
	if cfg.Server.StaticDir != "" {
		web.SetStaticPath("/static", cfg.Server.StaticDir)
	}

	if err := app.RegisterRoutes(); err != nil {
		logger.Fatal("Failed to register routes", zap.Error(err))
	}

	logger.Info("Starting assistant service",
		zap.Int("port", web.BConfig.Listen.HTTPPort),
		zap.String("mode", cfg.Server.Mode))
	web.Run()
}
