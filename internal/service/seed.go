package service

import (
	"context"
	"fmt"

	"threed-server/common"
	infmysql "threed-server/internal/infra/mysql"
	"threed-server/internal/model"
)

// 启动播种：保证基础数据齐备（计数器行、默认限额、号码开关、当年场次）
// 幂等，重复执行不产生副作用

// 默认限额：单注 1~10000，单号码全场 100000，基础赔率 800，直中 500，组合中 100
var defaultLimit = model.ThreeDLimit{
	MinAmount:        1,
	MaxAmount:        10000,
	MaxTotal:         100000,
	PayoutMultiplier: 800,
	ExactMultiplier:  500,
	PermMultiplier:   100,
}

// SeedOnStart 启动时播种基础数据
func SeedOnStart(ctx context.Context) error {
	db := infmysql.SQLX()

	if err := model.EnsureSlipCounter(ctx, db); err != nil {
		return fmt.Errorf("ensure slip counter: %w", err)
	}

	l := defaultLimit
	if err := model.EnsureDefaultLimit(ctx, db, &l); err != nil {
		return fmt.Errorf("ensure default limit: %w", err)
	}

	if err := model.EnsureAllNumbers(ctx, db); err != nil {
		return fmt.Errorf("ensure close digits: %w", err)
	}

	// 补齐当年全部场次（状态保持 pending，开盘由巡检推进）
	now := common.NowBiz()
	sch := Schedule()
	for _, ses := range sch.SessionsForYear(now.Year()) {
		if err := model.EnsureSession(ctx, db, ses.Code, ses.DrawAt.UnixMilli(), ses.CloseAt.UnixMilli(), "seed"); err != nil {
			return fmt.Errorf("ensure session %s: %w", ses.Code, err)
		}
	}

	common.Printf("[Seed] 基础数据播种完成: year=%d", now.Year())
	return nil
}
