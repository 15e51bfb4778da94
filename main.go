package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"threed-server/common"
	"threed-server/common/logger"
	"threed-server/internal/config"
	infmysql "threed-server/internal/infra/mysql"
	infrds "threed-server/internal/infra/redis"
	"threed-server/internal/service"
	"threed-server/internal/worker"
	_ "threed-server/routers"

	beego "github.com/beego/beego/v2/server/web"
	_ "github.com/go-sql-driver/mysql"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	// 1. 日志初始化（配置加载前即可输出）
	logger.InitLogger()
	defer logger.Sync()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 2. 加载配置：优先 Nacos，降级本地文件
	cfg, err := config.Load(ctx)
	if err != nil {
		logger.Fatalf("load config failed", zap.Error(err))
	}
	config.Set(cfg)
	if cfg.Server.LogLevel != "" {
		logger.SetLevel(cfg.Server.LogLevel)
	}

	// 3. 初始化主库/从库连接池
	db := common.InitDB(cfg.Database.DSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
	infmysql.UseDB(db.DB)
	if cfg.Database.SlaveDSN != "" {
		slave := common.InitSlaveDB(cfg.Database.SlaveDSN, cfg.Database.MaxIdleConns, cfg.Database.MaxOpenConns)
		infmysql.UseSlaveDB(slave)
	}

	// 4. Redis
	infrds.Init(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err := infrds.Ping(ctx, 2*time.Second); err != nil {
		// Redis 不可用时服务仍可启动：幂等锁与缓存降级为直查数据库
		logger.Warn("redis ping failed, running degraded", zap.Error(err))
	}

	// 5. 种子数据：限额配置、封号表、当年场次日历
	if cfg.ThreeD.SeedOnStart {
		if err := service.SeedOnStart(ctx); err != nil {
			logger.Fatalf("seed on start failed", zap.Error(err))
		}
	}

	// 6. 配置热更新（仅 Nacos 模式生效）
	if err := config.StartWatch(ctx, func(oldCfg, newCfg *config.Config) {
		if oldCfg == nil || oldCfg.Server.LogLevel != newCfg.Server.LogLevel {
			logger.SetLevel(newCfg.Server.LogLevel)
		}
		fmt.Printf("[Config] 配置热更新已生效\n")
	}); err != nil {
		logger.Warn("config watch not started", zap.Error(err))
	}

	// 7. 后台任务：Outbox 分发、Inbox 消费、场次巡检
	var wg sync.WaitGroup
	worker.StartOutboxDispatcher(ctx, &wg)
	worker.StartInboxConsumer(ctx, &wg)
	worker.StartSessionSweeper(ctx, &wg)

	// 8. Prometheus 指标端点（独立端口，避免与业务端口混用）
	if cfg.Observability.EnableProm && cfg.Observability.PromAddr != "" {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", promhttp.Handler())
			logger.Info("prometheus endpoint started", zap.String("addr", cfg.Observability.PromAddr))
			if err := http.ListenAndServe(cfg.Observability.PromAddr, mux); err != nil {
				logger.Error("prometheus endpoint exited", zap.Error(err))
			}
		}()
	}

	// 9. 信号处理：优雅退出
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		s := <-sig
		fmt.Printf("[Main] 收到退出信号: %v，开始优雅关闭\n", s)
		cancel()

		// 等待后台任务退出（带超时兜底）
		done := make(chan struct{})
		go func() { wg.Wait(); close(done) }()
		select {
		case <-done:
		case <-time.After(10 * time.Second):
			logger.Warn("workers shutdown timeout")
		}
		logger.Sync()
		os.Exit(0)
	}()

	// 10. 启动 HTTP 服务
	port := cfg.Server.Port
	if port == 0 {
		port = 8080
	}
	common.Println("[Main] 服务启动: port=", port)
	beego.Run(fmt.Sprintf(":%d", port))
}
