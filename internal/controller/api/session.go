package api

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"threed-server/common"
	"threed-server/common/logger"
	helper "threed-server/internal/common/helper"
	"threed-server/internal/common/response"
	infmysql "threed-server/internal/infra/mysql"
	infrds "threed-server/internal/infra/redis"
	"threed-server/internal/model"
	"threed-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
	goredis "github.com/redis/go-redis/v9"
)

var newSessionService = service.NewSessionService

// SessionEventController 处理场次生命周期事件接口：/api/admin/threed/session_event
// 业务含义：驱动场次状态机在合法路径上流转（不负责开奖，开奖由 /api/admin/threed/result 执行）
type SessionEventController struct{ beego.Controller }

// SessionEventRequestParam 场次事件入参
type SessionEventRequestParam struct {
	SessionCode string `json:"session_code"`
	EventType   int    `json:"event_type"` // 1=session_open 2=session_close
	Operator    string `json:"operator"`
}

// SessionEvent 接收并处理事件
// 步骤：
// 1) 解析入参与基本校验
// 2) 调用 Service 层执行业务与状态检查
// 3) 按错误类型映射 HTTP 状态码：400 参数错误；409 非法状态跳转
func (c *SessionEventController) SessionEvent() {
	sp, ok, msg := helper.ParseAndValidateSessionEvent(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}
	svc := newSessionService()
	traceID := helper.GetTraceID(c.Ctx)
	if err := svc.Handle(c.Ctx.Request.Context(), service.SessionEventInput{
		SessionCode: sp.SessionCode,
		EventType:   int8(sp.EventType),
		Operator:    sp.Operator,
		Source:      "manual",
		TraceID:     traceID,
	}); err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		if errors.Is(err, service.ErrResultViaDrawAPI) {
			response.BadRequest(&c.Controller, "result must be declared via draw result api", traceID)
			return
		}
		response.Conflict(&c.Controller, response.CodeInvalidState, traceID)
		return
	}
	// 对于 session_open（1），返回数据库中写入的封盘/开奖时间，保持与入库时间强一致
	if sp.EventType == 1 {
		rs, err := model.GetSessionSnapshot(c.Ctx.Request.Context(), infmysql.SQLX(), sp.SessionCode)
		if err == nil && rs != nil {
			response.Success(&c.Controller, map[string]interface{}{
				"session_code": rs.SessionCode,
				"close_time":   rs.CloseTime,
				"draw_time":    rs.DrawTime,
				"status":       rs.Status,
			}, traceID)
			return
		}
		// 兜底：若读取失败，返回通用成功
		response.Success(&c.Controller, nil, traceID)
		return
	}
	// 其他事件类型，返回通用成功
	response.Success(&c.Controller, nil, traceID)
}

// Sweep 手动触发一次生命周期巡检：POST /api/admin/threed/sweep
// 与后台定时巡检共用同一把 MySQL 咨询锁，重叠触发时本次空转并返回空报告
// 返回 { current, next, current_closed, next_opened, transitions }
func (c *SessionEventController) Sweep() {
	traceID := helper.GetTraceID(c.Ctx)
	ctx := logger.WithTraceID(c.Ctx.Request.Context(), traceID)
	report, err := newSessionService().AutoTransition(ctx)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, report, traceID)
}

// SessionController 提供查询场次信息与开奖结果的接口
// GET /api/threed/session          当前场次（按开奖日历推算）
// GET /api/threed/session/:code    指定场次
// 返回 { ok, session_info, draw_result }
// - session_info 与 draw_result 优先从 Redis 读取，缓存未命中则回源数据库并回填
type SessionController struct {
	beego.Controller
}

// GetCurrent 查询当前可投注（或待开奖）的场次
func (c *SessionController) GetCurrent() {
	sch := service.Schedule()
	ses := sch.CurrentSession(time.Now())
	c.serveSession(ses.Code)
}

// GetSession 按场次编号查询
func (c *SessionController) GetSession() {
	code := c.Ctx.Input.Param(":session_code")
	if code == "" {
		c.CustomAbort(400, "session_code is required")
		return
	}
	if !helper.IsSessionCode(code) {
		c.CustomAbort(400, "session_code must be YYYY-MM-DD")
		return
	}
	c.serveSession(code)
}

// ListSessions 查询某年的开奖日历，含各场次当前状态
// GET /api/threed/sessions?year=2026（缺省为当前业务年份）
func (c *SessionController) ListSessions() {
	traceID := helper.GetTraceID(c.Ctx)
	year := common.NowBiz().Year()
	if ys := c.GetString("year"); ys != "" {
		y, err := strconv.Atoi(ys)
		if err != nil {
			response.BadRequest(&c.Controller, "year must be an integer", traceID)
			return
		}
		year = y
	}
	entries, err := newReportService().SessionCalendar(c.Ctx.Request.Context(), year)
	if err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "year out of range", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"year":     year,
		"sessions": entries,
	}, traceID)
}

func (c *SessionController) serveSession(sessionCode string) {
	r := infrds.Client()
	if r == nil {
		c.CustomAbort(503, "redis unavailable")
		return
	}

	ctx := context.Background()

	var sessionInfo map[string]any
	var drawResult map[string]any

	// 读取 session info
	if bs, err := r.Get(ctx, infrds.SessionInfoKey(sessionCode)).Bytes(); err == nil {
		_ = json.Unmarshal(bs, &sessionInfo)
	} else if err != goredis.Nil {
		// 非不存在错误，视为服务不可用
		c.CustomAbort(503, "redis error")
		return
	}

	// 读取 draw result
	if bs, err := r.Get(ctx, infrds.SessionResultKey(sessionCode)).Bytes(); err == nil {
		_ = json.Unmarshal(bs, &drawResult)
	} else if err != goredis.Nil {
		c.CustomAbort(503, "redis error")
		return
	}

	if sessionInfo == nil && drawResult == nil {
		// DB fallback：从数据库读取，并回填 Redis
		rs, err := model.GetSessionSnapshot(ctx, infmysql.SQLX(), sessionCode)
		if err != nil {
			if err == sql.ErrNoRows {
				c.CustomAbort(404, "session not found")
				return
			}
			c.CustomAbort(503, "db error")
			return
		}
		// 组装 session_info
		sessionInfo = map[string]any{
			"session_code": rs.SessionCode,
			"close_time":   rs.CloseTime,
			"draw_time":    rs.DrawTime,
			"status":       rs.Status,
		}
		// 组装 draw_result（如有）
		if rs.WinNumber != "" {
			drawResult = map[string]any{
				"session_code": rs.SessionCode,
				"win_number":   rs.WinNumber,
			}
		}
		// 回填 Redis
		if b, e := json.Marshal(sessionInfo); e == nil {
			_ = r.Set(ctx, infrds.SessionInfoKey(sessionCode), b, 20*time.Second).Err()
		}
		if drawResult != nil {
			if b, e := json.Marshal(drawResult); e == nil {
				_ = r.Set(ctx, infrds.SessionResultKey(sessionCode), b, 2*time.Minute).Err()
			}
		}
	}

	c.Data["json"] = map[string]any{
		"ok":           true,
		"session_info": sessionInfo,
		"draw_result":  drawResult,
	}
	_ = c.ServeJSON()
}
