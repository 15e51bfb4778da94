package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// BetSlip 对应 three_d_bet_slips 表（一次提交的注单，内含多条选号明细）
// 说明：金额为非负；状态采用数值枚举（从1开始）
// status: 1=待结算 2=已结算 3=已取消
type BetSlip struct {
	ID             int64   `db:"id"`
	SlipNumber     string  `db:"slip_number"`     // 注单号(唯一)
	UserID         int64   `db:"user_id"`         // 用户ID（内部ID）
	UserName       string  `db:"user_name"`       // 用户名
	SessionCode    string  `db:"session_code"`    // 场次编号
	TotalAmount    float64 `db:"total_amount"`    // 注单总金额(非负)
	PotentialTotal float64 `db:"potential_total"` // 潜在派彩合计
	BeforeBalance  float64 `db:"before_balance"`  // 扣款前余额
	AfterBalance   float64 `db:"after_balance"`   // 扣款后余额
	Status         int8    `db:"status"`
	Currency       string  `db:"currency"`
	IdempotencyKey string  `db:"idempotency_key"`
	TraceID        string  `db:"trace_id"`
	BetTime        int64   `db:"bet_time"` // 下注时间（毫秒戳由调用方维护）
	CreatedAt      int64   `db:"created_at"`
	UpdatedAt      int64   `db:"updated_at"`
}

// Insert 插入一条注单记录
func (s *BetSlip) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	bt := s.BetTime
	if bt == 0 {
		bt = now
	}

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `INSERT INTO three_d_bet_slips (slip_number, user_id, user_name, session_code,
		total_amount, potential_total, before_balance, after_balance, status, currency,
		idempotency_key, trace_id, bet_time, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	result, err := exec.ExecContext(ctx, sqlStr, s.SlipNumber, s.UserID, s.UserName, s.SessionCode,
		s.TotalAmount, s.PotentialTotal, s.BeforeBalance, s.AfterBalance, s.Status, s.Currency,
		s.IdempotencyKey, s.TraceID, bt, now, now)
	if err != nil {
		return err
	}
	id, _ := result.LastInsertId()
	s.ID = id
	return nil
}

// MarkSlipsSettled 将某场次的全部待结算注单标记为已结算
func MarkSlipsSettled(ctx context.Context, exec sqlx.ExtContext, sessionCode string) error {
	now := time.Now().UnixMilli()
	sqlStr := "UPDATE three_d_bet_slips SET status = 2, updated_at = ? WHERE session_code = ? AND status = 1"
	_, err := exec.ExecContext(ctx, sqlStr, now, sessionCode)
	return err
}

// GetUserSlip 按注单号查询某用户的注单（用于详情接口的归属校验）
func GetUserSlip(ctx context.Context, db *sqlx.DB, userID int64, slipNumber string) (*SlipRecord, error) {
	sqlStr := `SELECT slip_number, session_code, total_amount, potential_total, status, currency, bet_time, created_at
		FROM three_d_bet_slips
		WHERE user_id = ? AND slip_number = ? LIMIT 1`
	var rec SlipRecord
	if err := db.GetContext(ctx, &rec, sqlStr, userID, slipNumber); err != nil {
		return nil, err
	}
	return &rec, nil
}

// SlipRecord 注单记录（用于查询接口）
type SlipRecord struct {
	SlipNumber     string  `db:"slip_number" json:"slip_number"`
	SessionCode    string  `db:"session_code" json:"session_code"`
	TotalAmount    float64 `db:"total_amount" json:"total_amount"`
	PotentialTotal float64 `db:"potential_total" json:"potential_total"`
	Status         int8    `db:"status" json:"status"` // 1=待结算 2=已结算 3=已取消
	Currency       string  `db:"currency" json:"currency"`
	BetTime        int64   `db:"bet_time" json:"bet_time"`
	CreatedAt      int64   `db:"created_at" json:"created_at"`
}

// ListUserSlips 查询用户的注单记录
// sessionCode 可选，为空则查询所有场次
func ListUserSlips(ctx context.Context, db *sqlx.DB, userID int64, sessionCode string, limit int) ([]SlipRecord, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100 // 最多返回 100 条
	}

	var sqlStr string
	var args []interface{}

	if sessionCode != "" {
		sqlStr = `SELECT slip_number, session_code, total_amount, potential_total, status, currency, bet_time, created_at
			FROM three_d_bet_slips
			WHERE user_id = ? AND session_code = ?
			ORDER BY bet_time DESC
			LIMIT ?`
		args = []interface{}{userID, sessionCode, limit}
	} else {
		sqlStr = `SELECT slip_number, session_code, total_amount, potential_total, status, currency, bet_time, created_at
			FROM three_d_bet_slips
			WHERE user_id = ?
			ORDER BY bet_time DESC
			LIMIT ?`
		args = []interface{}{userID, limit}
	}

	var records []SlipRecord
	if err := db.SelectContext(ctx, &records, sqlStr, args...); err != nil {
		return nil, err
	}

	return records, nil
}
