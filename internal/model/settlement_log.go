package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// SettlementLog 结算日志表（防止重复结算）
type SettlementLog struct {
	ID          int64   `db:"id"`           // 自增ID
	SessionCode string  `db:"session_code"` // 场次编号（唯一索引）
	WinNumber   string  `db:"win_number"`   // 中奖号码
	TotalBets   int     `db:"total_bets"`   // 结算明细总数
	TotalPayout float64 `db:"total_payout"` // 总派彩金额
	Operator    string  `db:"operator"`     // 操作人
	TraceID     string  `db:"trace_id"`     // 链路追踪ID
	CreatedAt   int64   `db:"created_at"`   // 创建时间（13位毫秒时间戳）
}

// CreateSettlementLog 创建结算日志（利用唯一索引防止重复结算）
// 如果返回唯一键冲突错误，说明该场次已经结算过
func CreateSettlementLog(ctx context.Context, exec sqlx.ExtContext, log *SettlementLog) error {
	now := time.Now().UnixMilli()
	log.CreatedAt = now

	sqlStr := `INSERT INTO settlement_log (session_code, win_number, total_bets, total_payout, operator, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, sqlStr,
		log.SessionCode, log.WinNumber, log.TotalBets, log.TotalPayout, log.Operator, log.TraceID, log.CreatedAt)

	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	log.ID = id

	return nil
}

// UpdateSettlementStats 回填结算日志的统计信息
func UpdateSettlementStats(ctx context.Context, exec sqlx.ExtContext, sessionCode string, totalBets int, totalPayout float64) error {
	sqlStr := "UPDATE settlement_log SET total_bets = ?, total_payout = ? WHERE session_code = ?"
	_, err := exec.ExecContext(ctx, sqlStr, totalBets, totalPayout, sessionCode)
	return err
}

// GetSettlementLog 查询结算日志
func GetSettlementLog(ctx context.Context, db *sqlx.DB, sessionCode string) (*SettlementLog, error) {
	sqlStr := `SELECT id, session_code, win_number, total_bets, total_payout, operator, trace_id, created_at
	           FROM settlement_log WHERE session_code = ? LIMIT 1`

	var log SettlementLog
	if err := db.GetContext(ctx, &log, sqlStr, sessionCode); err != nil {
		return nil, err
	}

	return &log, nil
}
