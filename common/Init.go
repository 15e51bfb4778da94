package common

import (
	"time"

	"threed-server/common/logger"

	"go.uber.org/zap"

	"github.com/jmoiron/sqlx"
)

// initConn 建连并设置连接池与会话级锁等待超时
// 投注/结算事务持有行锁的时间应该很短，5 秒拿不到锁就失败快返回
func initConn(dsn, label string, maxIdleConn, maxOpenConn int) *sqlx.DB {
	db, err := sqlx.Connect("mysql", dsn+"&parseTime=true&loc=Local")
	if err != nil {
		logger.Fatalf(label+" sqlx.Connect failed:", zap.Error(err))
	}

	db.SetMaxOpenConns(maxOpenConn)
	db.SetMaxIdleConns(maxIdleConn)
	db.SetConnMaxLifetime(2 * time.Minute)
	db.SetConnMaxIdleTime(1 * time.Minute)

	if _, err := db.Exec("SET SESSION innodb_lock_wait_timeout = ?", 5); err != nil {
		logger.Warn(label+": SET innodb_lock_wait_timeout failed", zap.Error(err))
	}

	if err := db.Ping(); err != nil {
		logger.Fatalf(label+" ping failed:", zap.Error(err))
	}
	return db
}

// InitDB 初始化主库连接
func InitDB(dsn string, maxIdleConn, maxOpenConn int) *sqlx.DB {
	return initConn(dsn, "InitDB", maxIdleConn, maxOpenConn)
}

// InitSlaveDB 初始化从库连接，报表与历史查询走从库
func InitSlaveDB(dsn string, maxIdleConn, maxOpenConn int) *sqlx.DB {
	return initConn(dsn, "InitSlaveDB", maxIdleConn, maxOpenConn)
}
