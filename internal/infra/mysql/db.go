package mysql

import (
	"context"
	"database/sql"
)

// 主库全局句柄，启动时由 UseDB 注入一次

var db *sql.DB

// UseDB 注入外部初始化好的主库句柄（例如 common.InitDB 返回的句柄）
func UseDB(d *sql.DB) {
	if d == nil {
		return
	}
	db = d
}

// DB 返回主库 *sql.DB 句柄，未注入时为 nil
func DB() *sql.DB { return db }

// Ping 探测主库连通性，未注入时视为可用
func Ping(ctx context.Context) error {
	if db == nil {
		return nil
	}
	return db.PingContext(ctx)
}
