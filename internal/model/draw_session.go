package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// DrawSession 对应 three_d_draw_sessions 表
// 说明：时间为毫秒时间戳在 Repo 层转换；状态采用数值码
// status: 1=未开盘 2=下注中 3=已封盘 4=已结算
// win_number: 三位数字字符串，未开奖为空
// is_settled: 0=未结算 1=已结算（防止重复结算）
type DrawSession struct {
	ID          int64  `db:"id"`
	SessionCode string `db:"session_code"` // 场次编号 YYYY-MM-DD
	DrawTime    int64  `db:"draw_time"`    // 开奖时间（毫秒）
	CloseTime   int64  `db:"close_time"`   // 封盘时间（毫秒）
	Status      int8   `db:"status"`
	WinNumber   string `db:"win_number"`
	IsSettled   int8   `db:"is_settled"` // 是否已结算: 0=未结算 1=已结算
	TraceID     string `db:"trace_id"`
	CreatedAt   int64  `db:"created_at"`
	UpdatedAt   int64  `db:"updated_at"`
}

// EnsureSession 保证场次存在（不存在则按日历参数插入，初始状态=1）
func EnsureSession(ctx context.Context, exec sqlx.ExtContext, sessionCode string, drawTimeMs, closeTimeMs int64, traceID string) error {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题

	// 1. 检查场次是否已存在
	var cnt int
	sqlCheck := "SELECT COUNT(1) FROM three_d_draw_sessions WHERE session_code = ?"
	if err := sqlx.GetContext(ctx, exec, &cnt, sqlCheck, sessionCode); err != nil {
		return err
	}
	if cnt > 0 {
		return nil
	}

	// 2. 插入新场次
	now := time.Now().UnixMilli()
	sqlIns := "INSERT INTO three_d_draw_sessions (session_code, draw_time, close_time, status, win_number, trace_id, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	_, err := exec.ExecContext(ctx, sqlIns, sessionCode, drawTimeMs, closeTimeMs, 1, "", traceID, now, now)
	return err
}

// GetSession 获取场次信息（不加锁）
func GetSession(ctx context.Context, exec sqlx.ExtContext, sessionCode string) (*DrawSession, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `SELECT id, session_code, draw_time, close_time, status, win_number, is_settled,
		trace_id, created_at, updated_at
		FROM three_d_draw_sessions WHERE session_code = ?`
	var ses DrawSession
	if err := sqlx.GetContext(ctx, exec, &ses, sqlStr, sessionCode); err != nil {
		return nil, err
	}
	return &ses, nil
}

// GetSessionForUpdate 获取场次信息并加锁（用于投注时校验时间窗口）
func GetSessionForUpdate(ctx context.Context, exec sqlx.ExtContext, sessionCode string) (*DrawSession, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `SELECT id, session_code, draw_time, close_time, status, win_number, is_settled,
		trace_id, created_at, updated_at
		FROM three_d_draw_sessions WHERE session_code = ? FOR UPDATE`
	var ses DrawSession
	if err := sqlx.GetContext(ctx, exec, &ses, sqlStr, sessionCode); err != nil {
		return nil, err
	}
	return &ses, nil
}

// GetSessionStatusForUpdate 在事务中按场次编号加锁并返回当前状态码
func GetSessionStatusForUpdate(ctx context.Context, exec sqlx.ExtContext, sessionCode string) (int8, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "SELECT status FROM three_d_draw_sessions WHERE session_code = ? FOR UPDATE"
	var status int8
	if err := sqlx.GetContext(ctx, exec, &status, sqlStr, sessionCode); err != nil {
		return 0, err
	}
	return status, nil
}

// GetSettlementStatusForUpdate 在事务中按场次编号加锁并返回结算状态
// 返回值: (status, is_settled, error)
func GetSettlementStatusForUpdate(ctx context.Context, exec sqlx.ExtContext, sessionCode string) (int8, int8, error) {
	sqlStr := "SELECT status, is_settled FROM three_d_draw_sessions WHERE session_code = ? FOR UPDATE"

	type result struct {
		Status    int8 `db:"status"`
		IsSettled int8 `db:"is_settled"`
	}

	var r result
	if err := sqlx.GetContext(ctx, exec, &r, sqlStr, sessionCode); err != nil {
		return 0, 0, err
	}
	return r.Status, r.IsSettled, nil
}

// MarkSessionSettled 标记场次为已结算并写入中奖号码
func MarkSessionSettled(ctx context.Context, exec sqlx.ExtContext, sessionCode, winNumber string) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE three_d_draw_sessions SET is_settled = 1, status = 4, win_number = ?, updated_at = ? WHERE session_code = ?"
	_, err := exec.ExecContext(ctx, sqlStr, winNumber, now, sessionCode)
	return err
}

// UpdateSessionState 更新场次状态
func UpdateSessionState(ctx context.Context, exec sqlx.ExtContext, sessionCode string, newStatus int8) error {
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "UPDATE three_d_draw_sessions SET status = ?, updated_at = ? WHERE session_code = ?"
	args := []interface{}{newStatus, now, sessionCode}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// SetSessionTimes 同时设置 close_time 和 draw_time（手动调整场次时间用）
func SetSessionTimes(ctx context.Context, exec sqlx.ExtContext, sessionCode string, closeMs, drawMs int64) error {
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "UPDATE three_d_draw_sessions SET close_time = ?, draw_time = ?, updated_at = ? WHERE session_code = ?"
	args := []interface{}{closeMs, drawMs, now, sessionCode}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// ListSessionsByStatus 按状态查询场次（生命周期巡检用）
func ListSessionsByStatus(ctx context.Context, exec sqlx.ExtContext, statuses []int8, limit int) ([]DrawSession, error) {
	if limit <= 0 {
		limit = 50
	}
	query, args, err := sqlx.In(
		"SELECT id, session_code, draw_time, close_time, status, win_number, is_settled, trace_id, created_at, updated_at FROM three_d_draw_sessions WHERE status IN (?) ORDER BY draw_time ASC LIMIT ?",
		statuses, limit)
	if err != nil {
		return nil, err
	}
	var list []DrawSession
	if err := sqlx.SelectContext(ctx, exec, &list, exec.Rebind(query), args...); err != nil {
		return nil, err
	}
	return list, nil
}

// ListSessionsByCodes 按场次编号批量查询（日历接口用）
func ListSessionsByCodes(ctx context.Context, exec sqlx.ExtContext, codes []string) ([]DrawSession, error) {
	if len(codes) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(
		"SELECT id, session_code, draw_time, close_time, status, win_number, is_settled, trace_id, created_at, updated_at FROM three_d_draw_sessions WHERE session_code IN (?) ORDER BY draw_time ASC",
		codes)
	if err != nil {
		return nil, err
	}
	var list []DrawSession
	if err := sqlx.SelectContext(ctx, exec, &list, exec.Rebind(query), args...); err != nil {
		return nil, err
	}
	return list, nil
}

// SessionSnapshot 提供 GET 接口所需的最小字段集合
type SessionSnapshot struct {
	SessionCode string `db:"session_code"`
	DrawTime    int64  `db:"draw_time"`
	CloseTime   int64  `db:"close_time"`
	Status      int8   `db:"status"`
	WinNumber   string `db:"win_number"`
}

// GetSessionSnapshot 按场次编号查询所需字段（无锁读取）
func GetSessionSnapshot(ctx context.Context, exec sqlx.ExtContext, sessionCode string) (*SessionSnapshot, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `SELECT session_code, draw_time, close_time, status, win_number
		FROM three_d_draw_sessions WHERE session_code = ?`
	var rs SessionSnapshot
	if err := sqlx.GetContext(ctx, exec, &rs, sqlStr, sessionCode); err != nil {
		return nil, err
	}
	return &rs, nil
}

// ListRecentSessions 按开奖时间倒序返回最近的场次（历史查询）
func ListRecentSessions(ctx context.Context, db *sqlx.DB, limit int) ([]SessionSnapshot, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	sqlStr := `SELECT session_code, draw_time, close_time, status, win_number
		FROM three_d_draw_sessions ORDER BY draw_time DESC LIMIT ?`
	var list []SessionSnapshot
	if err := db.SelectContext(ctx, &list, sqlStr, limit); err != nil {
		return nil, err
	}
	return list, nil
}
