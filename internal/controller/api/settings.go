package api

import (
	"errors"
	"strconv"

	helper "threed-server/internal/common/helper"
	"threed-server/internal/common/response"
	"threed-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newSettingsService = service.NewSettingsService

// SettingsController 后台配置管理接口（全局限额、号码开关、个人限额）
type SettingsController struct{ beego.Controller }

// operator 提取操作人标识：优先取显式参数，缺省记录为 admin
func (c *SettingsController) operator() string {
	if op := c.GetString("operator"); op != "" && len(op) <= 64 {
		return op
	}
	return "admin"
}

// UpdateLimit 更新全局限额配置：POST /api/admin/threed/limit
func (c *SettingsController) UpdateLimit() {
	traceID := helper.GetTraceID(c.Ctx)
	lp, ok, msg := helper.ParseAndValidateLimit(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	// 已通过金额格式校验，解析必定成功
	parse := func(s string) float64 {
		v, _ := strconv.ParseFloat(s, 64)
		return v
	}
	err := newSettingsService().UpdateLimit(c.Ctx.Request.Context(), service.LimitInput{
		MinAmount:        parse(lp.MinAmount),
		MaxAmount:        parse(lp.MaxAmount),
		MaxTotal:         parse(lp.MaxTotal),
		PayoutMultiplier: parse(lp.PayoutMultiplier),
		ExactMultiplier:  parse(lp.ExactMultiplier),
		PermMultiplier:   parse(lp.PermMultiplier),
		Operator:         c.operator(),
		TraceID:          traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrInvalidLimit) {
			response.BadRequest(&c.Controller, "invalid limit config", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}

// GetLimit 查询启用中的限额配置：GET /api/admin/threed/limit
func (c *SettingsController) GetLimit() {
	traceID := helper.GetTraceID(c.Ctx)
	limit, err := newSettingsService().GetActiveLimit(c.Ctx.Request.Context())
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, limit, traceID)
}

// ToggleNumbers 批量开关号码：POST /api/admin/threed/close_digit
func (c *SettingsController) ToggleNumbers() {
	traceID := helper.GetTraceID(c.Ctx)
	cp, ok, msg := helper.ParseAndValidateCloseDigit(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, traceID)
		return
	}

	err := newSettingsService().ToggleNumbers(c.Ctx.Request.Context(), service.CloseDigitInput{
		Numbers:  cp.Numbers,
		Open:     cp.Open,
		Operator: c.operator(),
		TraceID:  traceID,
	})
	if err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}

// ListClosedNumbers 查询当前关闭的号码：GET /api/admin/threed/close_digit
func (c *SettingsController) ListClosedNumbers() {
	traceID := helper.GetTraceID(c.Ctx)
	numbers, err := newSettingsService().ListClosedNumbers(c.Ctx.Request.Context())
	if err != nil {
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, map[string]interface{}{
		"numbers": numbers,
	}, traceID)
}

// UpdateUserLimit 更新用户个人单号码限额：POST /api/admin/threed/user_limit
func (c *SettingsController) UpdateUserLimit() {
	traceID := helper.GetTraceID(c.Ctx)

	userID, err := strconv.ParseInt(c.GetString("user_id"), 10, 64)
	if err != nil || userID <= 0 {
		response.BadRequest(&c.Controller, "user_id must be positive integer", traceID)
		return
	}
	limitStr := c.GetString("limit3")
	if !helper.IsMoneyFormat(limitStr) {
		response.BadRequest(&c.Controller, "limit3 must be numeric with up to 2 decimals", traceID)
		return
	}
	limit3, _ := strconv.ParseFloat(limitStr, 64)

	if err := newSettingsService().UpdateUserLimit(c.Ctx.Request.Context(), userID, limit3, traceID); err != nil {
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}
