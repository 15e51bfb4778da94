package api

import (
	"errors"

	helper "threed-server/internal/common/helper"
	"threed-server/internal/common/response"
	"threed-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"
)

var newDrawService = service.NewDrawService

type DrawResultController struct{ beego.Controller }

// 开奖录入请求参数
type DrawResultRequestParam struct {
	SessionCode string `json:"session_code"` // 场次编号 YYYY-MM-DD
	WinNumber   string `json:"win_number"`   // 官方开奖号码，恰好三位数字
	Operator    string `json:"operator"`     // 录入人
}

// Declare 人工录入开奖号码并触发结算：POST /api/admin/threed/result
// 同一场次重复提交返回 409，不会二次派彩
func (c *DrawResultController) Declare() {
	dp, ok, msg := helper.ParseAndValidateDrawResult(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}

	svc := newDrawService()
	traceID := helper.GetTraceID(c.Ctx)
	if err := svc.SubmitDrawResult(c.Ctx.Request.Context(), service.DrawInput{
		SessionCode: dp.SessionCode,
		WinNumber:   dp.WinNumber,
		Operator:    dp.Operator,
		TraceID:     traceID,
	}); err != nil {
		if errors.Is(err, service.ErrAlreadyDeclared) {
			response.Conflict(&c.Controller, response.CodeAlreadyDeclared, traceID)
			return
		}
		if errors.Is(err, service.ErrInvalidStateDraw) {
			response.Conflict(&c.Controller, response.CodeInvalidStateDraw, traceID)
			return
		}
		if errors.Is(err, service.ErrSessionNotFound) {
			response.NotFound(&c.Controller, "场次不存在", traceID)
			return
		}
		if errors.Is(err, service.ErrBadRequest) {
			response.BadRequest(&c.Controller, "invalid request", traceID)
			return
		}
		response.InternalError(&c.Controller, traceID)
		return
	}
	response.Success(&c.Controller, nil, traceID)
}
