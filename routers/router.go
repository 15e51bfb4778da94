package routers

import (
	"threed-server/internal/controller/api"
	"threed-server/internal/metrics"
	"threed-server/internal/middleware"

	beego "github.com/beego/beego/v2/server/web"
)

// init 注册HTTP路由与全局过滤器
// 过滤器一律无条件注册：各过滤器内部自查配置开关，
// 避免依赖 init 阶段配置是否已加载
func init() {
	// 全局过滤器（按执行顺序）
	// 1. Panic Recovery（最先执行，捕获所有 panic）
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RecoveryFilter)

	// 2. 请求ID注入
	beego.InsertFilter("/*", beego.BeforeRouter, middleware.RequestIDFilter)

	// 3. CORS 处理（未启用时为空操作）
	beego.InsertFilter("/*", beego.BeforeExec, middleware.CORSFilter)

	// 4. HTTP 指标收集
	beego.InsertFilter("/*", beego.BeforeExec, metrics.HTTPMetricsFilter)
	beego.InsertFilter("/*", beego.FinishRouter, metrics.HTTPMetricsAfter)

	// 健康检查（无需认证）
	beego.Router("/healthz", &api.HealthController{}, "get:Healthz")
	beego.Router("/readyz", &api.HealthController{}, "get:Readyz")

	// ========== 公开查询 API ==========

	// 场次查询与历史开奖：无需认证
	beego.Router("/api/threed/session", &api.SessionController{}, "get:GetCurrent")
	beego.Router("/api/threed/session/:session_code", &api.SessionController{}, "get:GetSession")
	beego.Router("/api/threed/sessions", &api.SessionController{}, "get:ListSessions")
	beego.Router("/api/threed/history", &api.ReportController{}, "get:History")
	beego.Router("/api/threed/break_groups", &api.ReportController{}, "get:BreakGroups")
	beego.Router("/api/threed/quick_patterns", &api.ReportController{}, "get:QuickPatterns")

	// ========== 账户 API ==========

	// 注册/登录/刷新：无需认证；登出需要有效访问令牌
	beego.Router("/api/threed/auth/register", &api.AuthController{}, "post:Register")
	beego.Router("/api/threed/auth/login", &api.AuthController{}, "post:Login")
	beego.Router("/api/threed/auth/refresh", &api.AuthController{}, "post:Refresh")
	beego.InsertFilter("/api/threed/auth/logout", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/threed/auth/logout", &api.AuthController{}, "post:Logout")

	// ========== 业务 API（需要用户认证） ==========

	// 投注接口：JWT 认证 + 限流（认证在前，限流可按 user_id 维度生效）
	beego.InsertFilter("/api/threed/bet", beego.BeforeExec, middleware.UserAuthFilter)
	beego.InsertFilter("/api/threed/bet", beego.BeforeExec, middleware.RateLimitFilter)
	beego.Router("/api/threed/bet", &api.BetController{}, "post:Bet")

	// 用户查询接口：JWT 认证（用户只能查询自己的数据）
	beego.InsertFilter("/api/threed/user/*", beego.BeforeExec, middleware.UserAuthFilter)
	beego.Router("/api/threed/user/balance", &api.UserController{}, "get:Balance")
	beego.Router("/api/threed/user/slips", &api.UserController{}, "get:Slips")
	beego.Router("/api/threed/user/slip/:slip_number", &api.UserController{}, "get:SlipDetail")
	beego.Router("/api/threed/user/ledger", &api.UserController{}, "get:Ledger")

	// ========== 管理 API（需要管理员认证） ==========

	beego.InsertFilter("/api/admin/*", beego.BeforeExec, middleware.AdminAuthFilter)

	// 场次事件接口：手动开盘/封盘
	beego.Router("/api/admin/threed/session_event", &api.SessionEventController{}, "post:SessionEvent")

	// 手动触发一次生命周期巡检
	beego.Router("/api/admin/threed/sweep", &api.SessionEventController{}, "post:Sweep")

	// 开奖录入接口：录入官方号码并触发结算
	beego.Router("/api/admin/threed/result", &api.DrawResultController{}, "post:Declare")

	// 限额与号码开关配置
	beego.Router("/api/admin/threed/limit", &api.SettingsController{}, "get:GetLimit;post:UpdateLimit")
	beego.Router("/api/admin/threed/close_digit", &api.SettingsController{}, "get:ListClosedNumbers;post:ToggleNumbers")
	beego.Router("/api/admin/threed/user_limit", &api.SettingsController{}, "post:UpdateUserLimit")

	// 报表
	beego.Router("/api/admin/threed/report/session/:session_code", &api.ReportController{}, "get:Summary")
	beego.Router("/api/admin/threed/report/exposure/:session_code", &api.ReportController{}, "get:Exposure")
	beego.Router("/api/admin/threed/report/turnover", &api.ReportController{}, "get:Turnover")
}
