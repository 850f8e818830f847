package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	https_server "DocPilot/api/http"
	"DocPilot/internal/config"
	"DocPilot/pkg/redis"
	"DocPilot/pkg/zlog"
)

func main() {
	// 1. 加载配置与日志
	conf := config.GetConfig()
	zlog.InitLogger(conf.LogConfig.LogPath)
	host := conf.MainConfig.Host
	port := conf.MainConfig.Port

	// 2. 异步摄取消费者（仅 async 模式）
	workerCtx, stopWorker := context.WithCancel(context.Background())
	defer stopWorker()
	if https_server.IngestWorker != nil {
		go func() {
			zlog.Info("摄取消费者已启动")
			if err := https_server.IngestWorker.Run(workerCtx); err != nil && workerCtx.Err() == nil {
				zlog.Error("摄取消费者退出: " + err.Error())
			}
		}()
	}

	// 3. 启动 HTTP 服务
	go func() {
		addr := fmt.Sprintf("%s:%d", host, port)
		zlog.Info(fmt.Sprintf("服务器正在启动，监听地址: %s", addr))
		// 目前使用 HTTP 启动。如果需要 HTTPS，请配置证书并使用 GE.RunTLS
		if err := https_server.GE.Run(addr); err != nil {
			zlog.Fatal("服务器启动失败: " + err.Error())
			return
		}
	}()

	// 4. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("正在关闭服务器...")
	stopWorker()
	if https_server.IngestWorker != nil {
		_ = https_server.IngestWorker.Close()
	}
	_ = redis.Close()
	zlog.Info("服务器已关闭")
}
