package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// ThreeDLimit 对应 three_d_limits 表（全局限额与赔率配置）
// 同一时间只允许一条启用中的配置（status=1）
// min_amount/max_amount: 单个号码的单注金额范围
// max_total: 单号码全场总敞口上限（所有用户合计）
// payout_multiplier: 下注时锁定的基础赔率（潜在派彩 = 金额 × 该值）
// exact_multiplier/perm_multiplier: 结算时直中/组合中的实际赔率
type ThreeDLimit struct {
	ID               int64   `db:"id"`
	MinAmount        float64 `db:"min_amount"`
	MaxAmount        float64 `db:"max_amount"`
	MaxTotal         float64 `db:"max_total"`
	PayoutMultiplier float64 `db:"payout_multiplier"`
	ExactMultiplier  float64 `db:"exact_multiplier"`
	PermMultiplier   float64 `db:"perm_multiplier"`
	Status           int8    `db:"status"`
	CreatedAt        int64   `db:"created_at"`
	UpdatedAt        int64   `db:"updated_at"`
}

// GetActiveLimit 获取启用中的限额配置
func GetActiveLimit(ctx context.Context, exec sqlx.ExtContext) (*ThreeDLimit, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `SELECT id, min_amount, max_amount, max_total, payout_multiplier, exact_multiplier, perm_multiplier, status, created_at, updated_at
		FROM three_d_limits WHERE status = 1 ORDER BY id DESC LIMIT 1`
	var l ThreeDLimit
	if err := sqlx.GetContext(ctx, exec, &l, sqlStr); err != nil {
		return nil, err
	}
	return &l, nil
}

// EnsureDefaultLimit 启动时保证存在一条启用中的限额配置（已存在则跳过）
func EnsureDefaultLimit(ctx context.Context, exec sqlx.ExtContext, l *ThreeDLimit) error {
	var cnt int
	if err := sqlx.GetContext(ctx, exec, &cnt, "SELECT COUNT(1) FROM three_d_limits WHERE status = 1"); err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}

	now := time.Now().UnixMilli()
	sqlStr := `INSERT INTO three_d_limits (min_amount, max_amount, max_total, payout_multiplier, exact_multiplier, perm_multiplier, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`
	_, err := exec.ExecContext(ctx, sqlStr, l.MinAmount, l.MaxAmount, l.MaxTotal, l.PayoutMultiplier, l.ExactMultiplier, l.PermMultiplier, now, now)
	return err
}

// ReplaceLimit 停用旧配置并插入新配置（后台修改限额）
// 调用方应在事务中调用以保证原子性
func ReplaceLimit(ctx context.Context, exec sqlx.ExtContext, l *ThreeDLimit) error {
	now := time.Now().UnixMilli()

	if _, err := exec.ExecContext(ctx, "UPDATE three_d_limits SET status = 0, updated_at = ? WHERE status = 1", now); err != nil {
		return err
	}

	sqlStr := `INSERT INTO three_d_limits (min_amount, max_amount, max_total, payout_multiplier, exact_multiplier, perm_multiplier, status, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)`
	result, err := exec.ExecContext(ctx, sqlStr, l.MinAmount, l.MaxAmount, l.MaxTotal, l.PayoutMultiplier, l.ExactMultiplier, l.PermMultiplier, now, now)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	l.ID = id
	return nil
}
