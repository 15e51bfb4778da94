package model

import (
	"context"
	"time"

	"threed-server/common"

	g "github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/jmoiron/sqlx"
)

// ThreeDResult 对应 three_d_results 表（开奖结果，session_code 唯一索引）
type ThreeDResult struct {
	ID          int64  `db:"id"`
	SessionCode string `db:"session_code"`
	WinNumber   string `db:"win_number"`
	BreakGroup  int8   `db:"break_group"`
	DeclaredBy  string `db:"declared_by"` // 操作人
	TraceID     string `db:"trace_id"`
	CreatedAt   int64  `db:"created_at"`
}

// Insert 写入开奖结果（利用唯一索引防止同场次重复开奖）
// 如果返回唯一键冲突错误，说明该场次已经开过奖
func (r *ThreeDResult) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	now := time.Now().UnixMilli()
	r.CreatedAt = now

	sqlStr := `INSERT INTO three_d_results (session_code, win_number, break_group, declared_by, trace_id, created_at)
	           VALUES (?, ?, ?, ?, ?, ?)`

	result, err := exec.ExecContext(ctx, sqlStr,
		r.SessionCode, r.WinNumber, r.BreakGroup, r.DeclaredBy, r.TraceID, r.CreatedAt)
	if err != nil {
		return err
	}

	id, _ := result.LastInsertId()
	r.ID = id
	return nil
}

// GetResult 查询某场次的开奖结果
func GetResult(ctx context.Context, db *sqlx.DB, sessionCode string) (*ThreeDResult, error) {
	sqlStr := `SELECT id, session_code, win_number, break_group, declared_by, trace_id, created_at
	           FROM three_d_results WHERE session_code = ? LIMIT 1`

	var r ThreeDResult
	if err := db.GetContext(ctx, &r, sqlStr, sessionCode); err != nil {
		return nil, err
	}
	return &r, nil
}

// ListRecentResults 按时间倒序返回最近的开奖结果（历史查询，走从库）
func ListRecentResults(ctx context.Context, db *sqlx.DB, limit int) ([]ThreeDResult, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > 100 {
		limit = 100
	}
	var list []ThreeDResult
	err := common.SelectAllCtx(ctx, &list, common.QueryArg{
		Db:     db,
		Table:  "three_d_results",
		Fields: common.EnumFields(ThreeDResult{}),
		Order:  []exp.OrderedExpression{g.C("created_at").Desc()},
		Limit:  uint(limit),
	})
	if err != nil {
		return nil, err
	}
	return list, nil
}
