package api

import (
	"database/sql"
	"errors"
	"strconv"

	helper "threed-server/internal/common/helper"
	"threed-server/internal/common/response"
	infmysql "threed-server/internal/infra/mysql"
	"threed-server/internal/model"
	"threed-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newReportService = service.NewReportService

// UserController 用户侧查询接口（余额、注单、账本）
// 全部依赖 JWT 认证中间件注入的 user_id
type UserController struct{ beego.Controller }

// currentUserID 从 context 提取认证用户ID，缺失时返回 0 并输出 401
func (c *UserController) currentUserID(traceID string) int64 {
	if v := c.Ctx.Input.GetData("user_id"); v != nil {
		if uid, ok := v.(int64); ok && uid > 0 {
			return uid
		}
	}
	response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
	return 0
}

// Balance 查询余额：GET /api/threed/user/balance
func (c *UserController) Balance() {
	traceID := helper.GetTraceID(c.Ctx)
	userID := c.currentUserID(traceID)
	if userID == 0 {
		return
	}

	balance, err := model.GetUserBalance(c.Ctx.Request.Context(), infmysql.SQLX(), userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.NotFound(&c.Controller, "用户不存在", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"user_id":  userID,
		"balance":  balance,
		"currency": service.CurrencyMMK,
	}, traceID)
}

// Slips 查询注单列表：GET /api/threed/user/slips?session_code=&limit=
func (c *UserController) Slips() {
	traceID := helper.GetTraceID(c.Ctx)
	userID := c.currentUserID(traceID)
	if userID == 0 {
		return
	}

	sessionCode := c.GetString("session_code")
	if sessionCode != "" && !helper.IsSessionCode(sessionCode) {
		response.BadRequest(&c.Controller, "session_code must be YYYY-MM-DD", traceID)
		return
	}
	limit, _ := strconv.Atoi(c.GetString("limit"))

	slips, err := model.ListUserSlips(c.Ctx.Request.Context(), infmysql.SlaveSQLX(), userID, sessionCode, limit)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"slips": slips,
	}, traceID)
}

// SlipDetail 查询注单明细：GET /api/threed/user/slip/:slip_number
// 仅返回归属于当前用户的注单
func (c *UserController) SlipDetail() {
	traceID := helper.GetTraceID(c.Ctx)
	userID := c.currentUserID(traceID)
	if userID == 0 {
		return
	}

	slipNumber := c.Ctx.Input.Param(":slip_number")
	if slipNumber == "" || len(slipNumber) > 64 {
		response.BadRequest(&c.Controller, "slip_number is required", traceID)
		return
	}

	reqCtx := c.Ctx.Request.Context()
	slip, err := model.GetUserSlip(reqCtx, infmysql.SlaveSQLX(), userID, slipNumber)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			response.NotFound(&c.Controller, "注单不存在", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}

	bets, err := model.ListSlipBets(reqCtx, infmysql.SlaveSQLX(), slipNumber)
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"slip": slip,
		"bets": bets,
	}, traceID)
}

// Ledger 查询账本流水：GET /api/threed/user/ledger?start=&end=&limit=
// start/end 为 "2006-01-02 15:04:05" 格式
func (c *UserController) Ledger() {
	traceID := helper.GetTraceID(c.Ctx)
	userID := c.currentUserID(traceID)
	if userID == 0 {
		return
	}

	limit, _ := strconv.Atoi(c.GetString("limit"))
	records, err := newReportService().UserLedger(c.Ctx.Request.Context(), userID,
		c.GetString("start"), c.GetString("end"), limit)
	if err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid time range", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"records": records,
	}, traceID)
}
