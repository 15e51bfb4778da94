package mysql

import (
	"github.com/jmoiron/sqlx"
)

// 报表等只读查询走从库；未配置从库时回落到主库

var slaveDB *sqlx.DB

// UseSlaveDB: 注入外部初始化好的从库句柄（例如 common.InitSlaveDB 返回的句柄）
func UseSlaveDB(d *sqlx.DB) {
	if d == nil {
		return
	}
	slaveDB = d
}

// SlaveSQLX 返回从库句柄；未注入时返回主库
func SlaveSQLX() *sqlx.DB {
	if slaveDB != nil {
		return slaveDB
	}
	return SQLX()
}
