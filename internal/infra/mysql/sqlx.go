package mysql

import (
	"sync"

	"github.com/jmoiron/sqlx"
)

// 主库的 sqlx 包装，基于已注入的 *sql.DB 惰性构建一次

var (
	sqlxOnce sync.Once
	sqlxDB   *sqlx.DB
)

// SQLX 返回主库 *sqlx.DB 句柄，主库未注入时为 nil
func SQLX() *sqlx.DB {
	sqlxOnce.Do(func() {
		if db != nil {
			sqlxDB = sqlx.NewDb(db, "mysql")
		}
	})
	return sqlxDB
}
