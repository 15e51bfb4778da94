package model

import (
	"context"
	"time"

	"threed-server/common"

	g "github.com/doug-martin/goqu/v9"
	"github.com/jmoiron/sqlx"
)

// SessionEventAudit 对应 session_event_audit 表（状态机审计）
// event_type 采用数值枚举（1=session_open 2=session_close 3=result_declared）
// prev_state/next_state 使用字符串快照，便于直观查询
type SessionEventAudit struct {
	ID int64 `db:"id"`
	// 场次编号
	SessionCode string `db:"session_code"`
	// 事件类型（数值：1=session_open 2=session_close 3=result_declared）
	EventType int8   `db:"event_type"`
	PrevState string `db:"prev_state"`
	NextState string `db:"next_state"`
	Operator  string `db:"operator"`
	Source    string `db:"source"` // sweeper=巡检自动触发 manual=后台手动
	Payload   string `db:"payload"`
	TraceID   string `db:"trace_id"`
	CreatedAt int64  `db:"created_at"`
}

// Insert
// 审计表是纯追加的旁路写入，不在热路径上，走 goqu 生成
func (e *SessionEventAudit) Insert(ctx context.Context, exec sqlx.ExtContext) error {
	e.CreatedAt = time.Now().UnixMilli()

	_, err := common.InsertCtx(ctx, exec, "session_event_audit", g.Record{
		"session_code": e.SessionCode,
		"event_type":   e.EventType,
		"prev_state":   e.PrevState,
		"next_state":   e.NextState,
		"operator":     e.Operator,
		"source":       e.Source,
		"payload":      e.Payload,
		"trace_id":     e.TraceID,
		"created_at":   e.CreatedAt,
	})
	return err
}
