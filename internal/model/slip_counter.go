package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// 注单号序列表 slip_number_counters
// 固定使用 id=2 的行作为 3D 注单号计数器；行锁保证序列号不重复

const slipCounterID = 2

// NextSlipSeq 在事务中对计数器行加锁并返回自增后的序列号
// 必须在事务中调用，否则行锁不生效
func NextSlipSeq(ctx context.Context, exec sqlx.ExtContext) (int64, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "SELECT counter FROM slip_number_counters WHERE id = ? FOR UPDATE"
	var counter int64
	if err := sqlx.GetContext(ctx, exec, &counter, sqlStr, slipCounterID); err != nil {
		return 0, err
	}

	counter++
	now := time.Now().UnixMilli()
	if _, err := exec.ExecContext(ctx, "UPDATE slip_number_counters SET counter = ?, updated_at = ? WHERE id = ?", counter, now, slipCounterID); err != nil {
		return 0, err
	}
	return counter, nil
}

// EnsureSlipCounter 启动时保证计数器行存在
func EnsureSlipCounter(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	sqlStr := "INSERT INTO slip_number_counters (id, counter, updated_at) VALUES (?, 0, ?) ON DUPLICATE KEY UPDATE id=id"
	_, err := exec.ExecContext(ctx, sqlStr, slipCounterID, now)
	return err
}
