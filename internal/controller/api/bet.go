package api

import (
	"errors"
	"strings"

	helper "threed-server/internal/common/helper"
	"threed-server/internal/common/response"
	"threed-server/internal/service"

	beego "github.com/beego/beego/v2/server/web"

	mysqlerr "github.com/go-sql-driver/mysql"
)

var newPlayService = service.NewPlayService

type BetController struct{ beego.Controller }

// 投注请求参数
type BetRequestParam struct {
	SessionCode string `json:"session_code"` // 场次编号 YYYY-MM-DD
	TotalAmount string `json:"total_amount"` // 注单合计金额
	// selections: [{"number":"123","amount":"500"}, ...]，整单准入，任一号码不通过则整单拒绝
	Selections []helper.SelectionParsed `json:"selections"`
	/*
		幂等键：客户端生成并随请求传入，用于在网络重试/超时重发/服务端重试时保证“同一业务请求只生效一次”。
		使用约定：
		- 对于“同一笔注单”的所有重试，请传相同的 idempotency_key；
		- 业务语义不同（如场次/号码/金额不同）的请求必须使用不同的 key；
		- 建议生成方式：UUID（推荐）或对 user_id+session_code+selections 做哈希；
		- 建议在客户端将 key 与该次操作绑定并在超时/失败后复用。
		服务端幂等保证（多层防护）：
		1) Redis 进行中锁（约45秒）：并发重复请求直接返回 202，并携带 Retry-After: 1；
		2) MySQL 唯一键：在事务内先插入 idempotency_keys(idempotency_key)，若已存在则视为重复请求，返回首次请求的结果；
		3) 结果缓存：首次成功结果会写入 Redis（短期缓存），后续重复可直接读缓存快速返回。
		错误语义：
		- 并发重复（正在处理）：HTTP 202 + { ok:false, message:"duplicate request in flight" }
		- 历史重复（已处理完）：返回首次的 slip_number 与余额，不算错误。
	*/
	IdempotencyKey string `json:"idempotency_key"`
}

// Bet 处理投注接口：POST /api/threed/bet
func (c *BetController) Bet() {
	// 1) 解析入参与基本校验
	// 这里必须要对业务参数严格校验，后续service不再重复校验
	sp, ok, msg := helper.ParseAndValidateSlip(c.Ctx)
	if !ok {
		response.BadRequest(&c.Controller, msg, helper.GetTraceID(c.Ctx))
		return
	}

	svc := newPlayService()
	traceID := helper.GetTraceID(c.Ctx)

	// 从 context 提取用户信息（由 JWT 认证中间件注入）
	var userID int64
	username := ""
	if v := c.Ctx.Input.GetData("user_id"); v != nil {
		if uid, ok := v.(int64); ok {
			userID = uid
		}
	}
	if v := c.Ctx.Input.GetData("username"); v != nil {
		if name, ok := v.(string); ok {
			username = name
		}
	}
	if userID == 0 && username == "" {
		response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
		return
	}

	selections := make([]service.Selection, 0, len(sp.Selections))
	for _, s := range sp.Selections {
		selections = append(selections, service.Selection{Number: s.Number, Amount: s.Amount})
	}

	// 进行投注业务逻辑处理
	out, err := svc.PlaceSlip(c.Ctx.Request.Context(), service.PlayInput{
		Username:       username,
		UserID:         userID,
		SessionCode:    sp.SessionCode,
		TotalAmount:    sp.TotalAmount,
		Selections:     selections,
		IdempotencyKey: sp.IdempotencyKey,
		TraceID:        traceID,
	})
	if err != nil {
		// MySQL 唯一键冲突
		if me, ok := err.(*mysqlerr.MySQLError); ok && me.Number == 1062 {
			response.Conflict(&c.Controller, response.CodeDuplicateKey, traceID)
			return
		}
		// 重复请求进行中
		if errors.Is(err, service.ErrDuplicateInFlight) {
			response.Accepted(&c.Controller, "重复请求进行中，请稍后重试", traceID)
			return
		}
		// 状态不允许投注
		if errors.Is(err, service.ErrInvalidStateBet) {
			response.Conflict(&c.Controller, response.CodeInvalidState, traceID)
			return
		}
		// 已封盘
		if errors.Is(err, service.ErrBetWindowClosed) {
			response.Conflict(&c.Controller, response.CodeBetWindowClosed, traceID)
			return
		}
		// 明细合计与总金额不一致
		if errors.Is(err, service.ErrAmountMismatch) {
			response.Error(&c.Controller, 400, response.CodeAmountMismatch, traceID)
			return
		}
		// 准入校验失败：返回全部未通过号码及原因
		var ole *service.OverLimitError
		if errors.As(err, &ole) {
			response.ErrorWithData(&c.Controller, 409, response.CodeOverLimit, map[string]interface{}{
				"rejected": ole.Rejected,
			}, traceID)
			return
		}
		// 场次不存在
		if errors.Is(err, service.ErrSessionNotFound) {
			response.NotFound(&c.Controller, "场次不存在", traceID)
			return
		}
		// 令牌有效但用户记录缺失
		if errors.Is(err, service.ErrUserNotFound) {
			response.Error(&c.Controller, 401, response.CodeUnauthorized, traceID)
			return
		}
		errMsg := err.Error()
		// 余额不足
		if strings.Contains(errMsg, "insufficient balance") {
			response.Error(&c.Controller, 400, response.CodeInsufficientBalance, traceID)
			return
		}
		// 用户状态异常
		if strings.Contains(errMsg, "user disabled") {
			response.BadRequest(&c.Controller, "用户状态异常", traceID)
			return
		}
		// 系统错误
		response.InternalError(&c.Controller, traceID)
		return
	}

	// 成功响应
	response.Success(&c.Controller, map[string]interface{}{
		"slip_number":     out.SlipNumber,
		"remain_amount":   out.RemainAmount,
		"potential_total": out.PotentialTotal,
	}, traceID)
}
