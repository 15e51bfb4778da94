package middleware

import (
	"runtime/debug"
	"time"

	"threed-server/common/logger"
	"threed-server/internal/common/helper"
	"threed-server/internal/common/response"

	beegocontext "github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// RecoveryFilter 捕获未处理的 panic，记录堆栈后返回统一的 500 响应
// 投注和结算链路上的任何 panic 都不应带崩整个进程
func RecoveryFilter(ctx *beegocontext.Context) {
	defer func() {
		if err := recover(); err != nil {
			traceID := helper.GetTraceID(ctx)

			logger.Error("panic recovered",
				zap.String("trace_id", traceID),
				zap.String("method", ctx.Request.Method),
				zap.String("path", ctx.Request.URL.Path),
				zap.Any("error", err),
				zap.String("stack", string(debug.Stack())))

			ctx.Output.SetStatus(500)
			ctx.Output.JSON(response.APIResponse{
				Code:      response.CodeSystemError,
				Message:   "系统繁忙，请稍后重试",
				Data:      nil,
				TraceID:   traceID,
				Timestamp: time.Now().UnixMilli(),
			}, false, false)

			ctx.Abort(500, "panic recovered")
		}
	}()
}
