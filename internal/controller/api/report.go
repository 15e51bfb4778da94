package api

import (
	"errors"
	"strconv"

	helper "threed-server/internal/common/helper"
	"threed-server/internal/common/response"
	"threed-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

// ReportController 报表查询接口
// 历史开奖对所有人开放；汇总/敞口/流水为管理接口
type ReportController struct{ beego.Controller }

// History 最近场次与开奖号码：GET /api/threed/history?limit=
func (c *ReportController) History() {
	traceID := helper.GetTraceID(c.Ctx)
	limit, _ := strconv.Atoi(c.GetString("limit"))

	list, err := newReportService().ListHistory(c.Ctx.Request.Context(), limit)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"sessions": list,
	}, traceID)
}

// BreakGroups 断组分布（000~999 按数字之和划分）：GET /api/threed/break_groups
// 纯静态数据，可长缓存
func (c *ReportController) BreakGroups() {
	traceID := helper.GetTraceID(c.Ctx)
	c.Ctx.Output.Header("Cache-Control", "public, max-age=86400")
	response.Success(&c.Controller, map[string]interface{}{
		"groups": service.BreakGroupTable(),
	}, traceID)
}

// QuickPatterns 快捷选号模板：GET /api/threed/quick_patterns
func (c *ReportController) QuickPatterns() {
	traceID := helper.GetTraceID(c.Ctx)
	c.Ctx.Output.Header("Cache-Control", "public, max-age=86400")
	response.Success(&c.Controller, map[string]interface{}{
		"patterns": service.QuickPatterns(),
	}, traceID)
}

// Summary 场次投注汇总：GET /api/admin/threed/report/session/:session_code
func (c *ReportController) Summary() {
	traceID := helper.GetTraceID(c.Ctx)
	sessionCode := c.Ctx.Input.Param(":session_code")

	summary, err := newReportService().SessionSummary(c.Ctx.Request.Context(), sessionCode)
	if err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "session_code must be YYYY-MM-DD", traceID)
			return
		}
		if errors.Is(err, service.ErrSessionNotFound) {
			response.NotFound(&c.Controller, "场次不存在", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, summary, traceID)
}

// Exposure 场次号码敞口排行：GET /api/admin/threed/report/exposure/:session_code?limit=
func (c *ReportController) Exposure() {
	traceID := helper.GetTraceID(c.Ctx)
	sessionCode := c.Ctx.Input.Param(":session_code")
	limit, _ := strconv.Atoi(c.GetString("limit"))

	list, err := newReportService().NumberExposure(c.Ctx.Request.Context(), sessionCode, limit)
	if err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "session_code must be YYYY-MM-DD", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"session_code": sessionCode,
		"numbers":      list,
	}, traceID)
}

// Turnover 投注/派彩合计：GET /api/admin/threed/report/turnover?date=2026-03-16
// 传 month=2026-03 时按整月统计，date 与 month 同时存在时 month 优先
func (c *ReportController) Turnover() {
	traceID := helper.GetTraceID(c.Ctx)
	dateStr := c.GetString("date")
	monthStr := c.GetString("month")

	var (
		stake, payout float64
		err           error
	)
	if monthStr != "" {
		stake, payout, err = newReportService().MonthlyTurnover(c.Ctx.Request.Context(), monthStr)
	} else {
		stake, payout, err = newReportService().DailyTurnover(c.Ctx.Request.Context(), dateStr)
	}
	if err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "date must be YYYY-MM-DD (month: YYYY-MM)", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	out := map[string]interface{}{
		"total_stake":  stake,
		"total_payout": payout,
	}
	if monthStr != "" {
		out["month"] = monthStr
	} else {
		out["date"] = dateStr
	}
	response.Success(&c.Controller, out, traceID)
}
