package model

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
)

// Bet 对应 three_d_bets 表（注单内的单条选号明细）
// 说明：金额为非负；结算结果采用数值枚举
// bet_result: 0=未开奖 1=直中 2=组合中 3=未中
// prize_sent: 0=未派彩 1=已派彩
type Bet struct {
	ID              int64   `db:"id"`
	SlipID          int64   `db:"slip_id"`
	SlipNumber      string  `db:"slip_number"`
	UserID          int64   `db:"user_id"`
	SessionCode     string  `db:"session_code"`
	BetNumber       string  `db:"bet_number"`       // 三位数字字符串
	BreakGroup      int8    `db:"break_group"`      // 三位数字之和(0~27)
	Amount          float64 `db:"amount"`           // 下注金额(非负)
	PotentialPayout float64 `db:"potential_payout"` // 下注时锁定的潜在派彩
	WinAmount       float64 `db:"win_amount"`       // 实际派彩金额
	BetResult       int8    `db:"bet_result"`
	PrizeSent       int8    `db:"prize_sent"`
	TraceID         string  `db:"trace_id"`
	CreatedAt       int64   `db:"created_at"`
	UpdatedAt       int64   `db:"updated_at"`
}

// InsertBets 批量插入选号明细（同一注单内的全部选号一次写入）
func InsertBets(ctx context.Context, exec sqlx.ExtContext, bets []Bet) error {
	if len(bets) == 0 {
		return nil
	}
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `INSERT INTO three_d_bets (slip_id, slip_number, user_id, session_code, bet_number, break_group,
		amount, potential_payout, win_amount, bet_result, prize_sent, trace_id, created_at, updated_at) VALUES `
	args := make([]interface{}, 0, len(bets)*14)
	for i, b := range bets {
		if i > 0 {
			sqlStr += ", "
		}
		sqlStr += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, b.SlipID, b.SlipNumber, b.UserID, b.SessionCode, b.BetNumber, b.BreakGroup,
			b.Amount, b.PotentialPayout, 0, 0, 0, b.TraceID, now, now)
	}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// SumSessionNumberForUpdate 统计某场次某号码的全场已投金额（FOR UPDATE 锁定相关行）
// 必须在事务中调用，用于全局敞口校验的并发护栏
func SumSessionNumberForUpdate(ctx context.Context, exec sqlx.ExtContext, sessionCode, number string) (float64, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "SELECT COALESCE(SUM(amount), 0) FROM three_d_bets WHERE session_code = ? AND bet_number = ? FOR UPDATE"
	var total float64
	if err := sqlx.GetContext(ctx, exec, &total, sqlStr, sessionCode, number); err != nil {
		return 0, err
	}
	return total, nil
}

// SumUserSessionNumber 统计某用户在某场次某号码的已投金额（个人限额校验用）
func SumUserSessionNumber(ctx context.Context, exec sqlx.ExtContext, userID int64, sessionCode, number string) (float64, error) {
	sqlStr := "SELECT COALESCE(SUM(amount), 0) FROM three_d_bets WHERE user_id = ? AND session_code = ? AND bet_number = ?"
	var total float64
	if err := sqlx.GetContext(ctx, exec, &total, sqlStr, userID, sessionCode, number); err != nil {
		return 0, err
	}
	return total, nil
}

// ListBySessionForUpdate 按场次查询需结算的明细（FOR UPDATE），需要在事务中调用
func ListBySessionForUpdate(ctx context.Context, exec sqlx.ExtContext, sessionCode string) ([]Bet, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := `SELECT id, slip_id, slip_number, user_id, bet_number, break_group, amount, potential_payout
		FROM three_d_bets WHERE session_code = ? AND prize_sent = 0 AND bet_result = 0 FOR UPDATE`

	type row struct {
		ID              int64   `db:"id"`
		SlipID          int64   `db:"slip_id"`
		SlipNumber      string  `db:"slip_number"`
		UserID          int64   `db:"user_id"`
		BetNumber       string  `db:"bet_number"`
		BreakGroup      int8    `db:"break_group"`
		Amount          float64 `db:"amount"`
		PotentialPayout float64 `db:"potential_payout"`
	}
	var rs []row
	if err := sqlx.SelectContext(ctx, exec, &rs, sqlStr, sessionCode); err != nil {
		return nil, err
	}
	out := make([]Bet, 0, len(rs))
	for _, r := range rs {
		out = append(out, Bet{
			ID:              r.ID,
			SlipID:          r.SlipID,
			SlipNumber:      r.SlipNumber,
			UserID:          r.UserID,
			SessionCode:     sessionCode,
			BetNumber:       r.BetNumber,
			BreakGroup:      r.BreakGroup,
			Amount:          r.Amount,
			PotentialPayout: r.PotentialPayout,
		})
	}
	return out, nil
}

// UpdateBetSettlement 更新单条明细的派彩、结算结果和派彩标记
func UpdateBetSettlement(ctx context.Context, exec sqlx.ExtContext, id int64, winAmount float64, betResult int8, prizeSent int8) error {
	now := time.Now().UnixMilli()

	sqlStr := "UPDATE three_d_bets SET win_amount = ?, bet_result = ?, prize_sent = ?, updated_at = ? WHERE id = ?"
	args := []interface{}{winAmount, betResult, prizeSent, now, id}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// BetDetail 选号明细（用于查询接口）
type BetDetail struct {
	SlipNumber string  `db:"slip_number" json:"slip_number"`
	BetNumber  string  `db:"bet_number" json:"bet_number"`
	BreakGroup int8    `db:"break_group" json:"break_group"`
	Amount     float64 `db:"amount" json:"amount"`
	WinAmount  float64 `db:"win_amount" json:"win_amount"`
	BetResult  int8    `db:"bet_result" json:"bet_result"` // 0=未开奖 1=直中 2=组合中 3=未中
	CreatedAt  int64   `db:"created_at" json:"created_at"`
}

// ListSlipBets 查询某注单的全部选号明细
func ListSlipBets(ctx context.Context, db *sqlx.DB, slipNumber string) ([]BetDetail, error) {
	sqlStr := `SELECT slip_number, bet_number, break_group, amount, win_amount, bet_result, created_at
		FROM three_d_bets WHERE slip_number = ? ORDER BY id ASC`
	var list []BetDetail
	if err := db.SelectContext(ctx, &list, sqlStr, slipNumber); err != nil {
		return nil, err
	}
	return list, nil
}

// BreakGroupCount 某场次按 break_group 聚合的投注分布
type BreakGroupCount struct {
	BreakGroup int8    `db:"break_group" json:"break_group"`
	BetCount   int64   `db:"bet_count" json:"bet_count"`
	Total      float64 `db:"total" json:"total"`
}

// ListBreakGroupCounts 统计某场次各 break_group 的投注笔数与金额（报表用，走从库）
func ListBreakGroupCounts(ctx context.Context, db *sqlx.DB, sessionCode string) ([]BreakGroupCount, error) {
	sqlStr := `SELECT break_group, COUNT(1) AS bet_count, COALESCE(SUM(amount), 0) AS total
		FROM three_d_bets WHERE session_code = ? GROUP BY break_group ORDER BY break_group ASC`
	var list []BreakGroupCount
	if err := db.SelectContext(ctx, &list, sqlStr, sessionCode); err != nil {
		return nil, err
	}
	return list, nil
}

// NumberExposure 某场次按号码聚合的敞口（后台风控看板用）
type NumberExposure struct {
	BetNumber string  `db:"bet_number" json:"bet_number"`
	BetCount  int64   `db:"bet_count" json:"bet_count"`
	Total     float64 `db:"total" json:"total"`
}

// ListNumberExposure 统计某场次投注金额最高的号码（报表用，走从库）
func ListNumberExposure(ctx context.Context, db *sqlx.DB, sessionCode string, limit int) ([]NumberExposure, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 1000 {
		limit = 1000
	}
	sqlStr := `SELECT bet_number, COUNT(1) AS bet_count, COALESCE(SUM(amount), 0) AS total
		FROM three_d_bets WHERE session_code = ? GROUP BY bet_number ORDER BY total DESC LIMIT ?`
	var list []NumberExposure
	if err := db.SelectContext(ctx, &list, sqlStr, sessionCode, limit); err != nil {
		return nil, err
	}
	return list, nil
}
