package model

import (
	"context"
	"fmt"
	"strings"
	"time"

	"threed-server/common"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

// CloseDigit 对应 three_d_close_digits 表（号码开关表，000~999 共 1000 行）
// is_open: 1=可投注 0=已关闭
type CloseDigit struct {
	ID        int64  `db:"id"`
	Number    string `db:"number"` // 三位数字字符串
	IsOpen    int8   `db:"is_open"`
	UpdatedAt int64  `db:"updated_at"`
}

// EnsureAllNumbers 启动时保证 000~999 全部存在（已有行不动）
func EnsureAllNumbers(ctx context.Context, exec sqlx.ExtContext) error {
	var cnt int
	if err := sqlx.GetContext(ctx, exec, &cnt, "SELECT COUNT(1) FROM three_d_close_digits"); err != nil {
		return err
	}
	if cnt >= 1000 {
		return nil
	}

	now := time.Now().UnixMilli()
	// 分批插入，避免单条语句过长
	const batch = 200
	for start := 0; start < 1000; start += batch {
		var sb strings.Builder
		sb.WriteString("INSERT IGNORE INTO three_d_close_digits (number, is_open, updated_at) VALUES ")
		args := make([]interface{}, 0, batch*3)
		for i := start; i < start+batch; i++ {
			if i > start {
				sb.WriteString(", ")
			}
			sb.WriteString("(?, 1, ?)")
			args = append(args, fmt.Sprintf("%03d", i), now)
		}
		if _, err := exec.ExecContext(ctx, sb.String(), args...); err != nil {
			return err
		}
	}
	return nil
}

// ListClosedNumbers 返回当前关闭的号码列表
func ListClosedNumbers(ctx context.Context, exec sqlx.ExtContext) ([]string, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "SELECT number FROM three_d_close_digits WHERE is_open = 0 ORDER BY number ASC"
	var list []string
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr); err != nil {
		return nil, err
	}
	return list, nil
}

// ClosedNumberSet 返回关闭号码的集合（投注准入校验用）
func ClosedNumberSet(ctx context.Context, exec sqlx.ExtContext) (map[string]struct{}, error) {
	list, err := ListClosedNumbers(ctx, exec)
	if err != nil {
		return nil, err
	}
	set := make(map[string]struct{}, len(list))
	for _, n := range list {
		set[n] = struct{}{}
	}
	return set, nil
}

// SetNumberOpen 设置单个号码的开关
func SetNumberOpen(ctx context.Context, exec sqlx.ExtContext, number string, open bool) error {
	now := time.Now().UnixMilli()
	isOpen := 0
	if open {
		isOpen = 1
	}
	result, err := common.UpdateCtx(ctx, exec, "three_d_close_digits",
		g.Record{"is_open": isOpen, "updated_at": now}, g.Ex{"number": number})
	if err != nil {
		return err
	}
	affected, _ := result.RowsAffected()
	if affected == 0 {
		// 行可能已存在且值未变化；区分"号码不存在"需再查一次
		var cnt int
		if err := sqlx.GetContext(ctx, exec, &cnt, "SELECT COUNT(1) FROM three_d_close_digits WHERE number = ?", number); err != nil {
			return err
		}
		if cnt == 0 {
			return fmt.Errorf("number %s not found", number)
		}
	}
	return nil
}
