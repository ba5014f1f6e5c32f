package main

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"pump-sentinel-sol/internal/config"
	"pump-sentinel-sol/internal/handler"
	"pump-sentinel-sol/internal/pkg/configloader"
	"pump-sentinel-sol/internal/pkg/logger"
	"pump-sentinel-sol/internal/pkg/rest"
	"pump-sentinel-sol/internal/sentinel"
	"pump-sentinel-sol/internal/svc"

	"github.com/zeromicro/go-zero/core/logx"
	zerosvc "github.com/zeromicro/go-zero/core/service"
)

var configFile = flag.String("f", "etc/pump-sentinel-svc/test.yaml", "the config file")

func main() {
	defer func() {
		if r := recover(); r != nil {
			logger.Errorf("panic: %+v\nstack: %s", r, debug.Stack())
		}
	}()
	defer logger.Sync()

	flag.Parse()
	logger.Infof("Loading config from %s", *configFile)

	// 加载配置
	var c config.Config
	if err := configloader.LoadConfig(*configFile, &c); err != nil {
		panic(fmt.Sprintf("配置加载失败: %v", err))
	}

	// 初始化 zap 日志
	logger.InitLogger(c.LogConf.ToLogOption())
	logx.SetWriter(logger.ZapWriter{})

	// 初始化依赖注入上下文
	svcCtx := svc.NewServiceContext(&c)

	// 构造 go-zero ServiceGroup 管理服务
	sg := zerosvc.NewServiceGroup()

	app := sentinel.NewApp(svcCtx)
	sg.Add(app)

	// 构建 rest 服务
	if c.Monitor.Port > 0 {
		sg.Add(initializeRestServer(&c, app))
	}

	// 启动服务
	logger.Infof("sentinel starting")
	sg.Start()

	// 等待退出
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down services...")
	sg.Stop()
}

func initializeRestServer(c *config.Config, app *sentinel.App) *rest.SimpleRestServer {
	healthCheck := handler.HealthCheck(app)
	routes := map[string]http.HandlerFunc{
		"/healthz":          healthCheck,
		"/health/readiness": healthCheck,
		"/health/liveness":  healthCheck,
		"/tokens":           handler.ListTrackedTokens(app),
		"/stats":            handler.RuntimeStats(app),
	}

	return rest.NewSimpleRestServer(c.Monitor.Port, routes)
}
