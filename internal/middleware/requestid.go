package middleware

import (
	"github.com/beego/beego/v2/server/web/context"
	"github.com/google/uuid"
)

// 入站 Request-Id 长度上限，超长视为非法直接重新生成
const maxRequestIDLen = 64

// RequestIDFilter 透传或生成 X-Request-Id，写入请求数据与响应头
// 后续日志以它作为 trace_id 串联一次请求
func RequestIDFilter(ctx *context.Context) {
	id := ctx.Input.Header("X-Request-Id")
	if id == "" || len(id) > maxRequestIDLen {
		id = uuid.NewString()
	}
	ctx.Input.SetData("trace_id", id)
	ctx.Output.Header("X-Request-Id", id)
}
