package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"threed-server/common/logger"
	"threed-server/internal/config"
	"threed-server/internal/service"

	"go.uber.org/zap"
)

// StartSessionSweeper 启动场次生命周期巡检：
// 按固定间隔调用 AutoTransition，补齐日历场次并推进到期的开盘/封盘转换。
// 多实例部署时由 MySQL 咨询锁保证同一时刻只有一个实例执行巡检。
func StartSessionSweeper(ctx context.Context, wg *sync.WaitGroup) {
	interval := 30 * time.Second
	if cfg := config.Get(); cfg != nil && cfg.ThreeD.SweepIntervalSec > 0 {
		interval = time.Duration(cfg.ThreeD.SweepIntervalSec) * time.Second
	}

	svc := service.NewSessionService()

	wg.Add(1)
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		logger.Info("[sweeper] session sweeper started", zap.Duration("interval", interval))
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c, cancel := context.WithTimeout(ctx, 10*time.Second)
				// 每轮巡检生成独立 trace id，贯穿本轮产生的事件与审计
				c = logger.WithTraceID(c, fmt.Sprintf("sweep-%d", time.Now().UnixMilli()))
				if report, err := svc.AutoTransition(c); err != nil {
					logger.Warn("[sweeper] auto transition failed", zap.Error(err))
				} else if len(report.Transitions) > 0 {
					logger.Info("[sweeper] transitions applied",
						zap.String("current", report.Current),
						zap.Strings("transitions", report.Transitions))
				}
				cancel()
			}
		}
	}()
}
