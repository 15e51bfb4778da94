package model

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"threed-server/common/logger"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

// Customers 用户表
// 金额使用 DECIMAL(18,2) 存储，Go 层以 float64 表示；数据库已做 UNSIGNED 约束
// limit3: 单个号码的个人投注上限，0=不限制（走全局限额）
type Customers struct {
	ID           int64   `db:"user_id"`       // 自增ID（内部使用）
	Username     string  `db:"username"`      // 用户名（唯一）
	PasswordHash string  `db:"password_hash"` // bcrypt 摘要，对外永不返回
	Balance      float64 `db:"balance"`       // 余额
	Limit3       float64 `db:"limit3"`        // 个人单号码限额
	Status       int8    `db:"status"`        // 状态: 1=正常 0=禁用
	CreatedAt    int64   `db:"created_at"`    // 创建时间（13位毫秒时间戳）
	UpdatedAt    int64   `db:"updated_at"`    // 更新时间（13位毫秒时间戳）
}

// GetUserByUsername 根据用户名查询用户
func GetUserByUsername(ctx context.Context, db *sqlx.DB, username string) (*Customers, error) {
	query := `SELECT user_id, username, password_hash, balance, limit3, status, created_at, updated_at
	          FROM customers
	          WHERE username = ?
	          LIMIT 1`

	var user Customers
	err := db.GetContext(ctx, &user, query, username)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get user by username failed",
			zap.String("username", username),
			zap.Error(err))
		return nil, err
	}

	return &user, nil
}

// GetUserByID 根据内部ID查询用户
func GetUserByID(ctx context.Context, db *sqlx.DB, userID int64) (*Customers, error) {
	query := `SELECT user_id, username, balance, limit3, status, created_at, updated_at
	          FROM customers
	          WHERE user_id = ?
	          LIMIT 1`

	var user Customers
	err := db.GetContext(ctx, &user, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get user by id failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	return &user, nil
}

// GetUserByIDForUpdate 根据内部ID查询用户（加锁）
// 必须在事务中调用
func GetUserByIDForUpdate(ctx context.Context, exec sqlx.ExtContext, userID int64) (*Customers, error) {
	query := `SELECT user_id, username, balance, limit3, status, created_at, updated_at
	          FROM customers
	          WHERE user_id = ?
	          FOR UPDATE`

	var user Customers
	err := sqlx.GetContext(ctx, exec, &user, query, userID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		logger.Error("get user by id for update failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return nil, err
	}

	return &user, nil
}

// Insert 插入用户
func (u *Customers) Insert(ctx context.Context, db *sqlx.DB) error {
	now := getCurrentMillis() // 13位毫秒时间戳
	u.CreatedAt = now
	u.UpdatedAt = now

	query := `INSERT INTO customers (username, password_hash, balance, limit3, status, created_at, updated_at)
	          VALUES (?, ?, ?, ?, ?, ?, ?)`

	result, err := db.ExecContext(ctx, query,
		u.Username, u.PasswordHash, u.Balance, u.Limit3, u.Status, u.CreatedAt, u.UpdatedAt)
	if err != nil {
		logger.Error("insert user failed",
			zap.String("username", u.Username),
			zap.Error(err))
		return err
	}

	id, _ := result.LastInsertId()
	u.ID = id

	logger.Info("user created",
		zap.Int64("id", u.ID),
		zap.String("username", u.Username))

	return nil
}

// UpdateUserBalance 更新用户余额
func UpdateUserBalance(ctx context.Context, exec sqlx.ExtContext, userID int64, newBalance float64) error {
	now := getCurrentMillis() // 13位毫秒时间戳
	query := `UPDATE customers SET balance = ?, updated_at = ? WHERE user_id = ?`

	_, err := exec.ExecContext(ctx, query, newBalance, now, userID)
	if err != nil {
		logger.Error("update user balance failed",
			zap.Int64("user_id", userID),
			zap.Float64("new_balance", newBalance),
			zap.Error(err))
		return err
	}

	return nil
}

// UpdateUserLimit 更新用户的个人单号码限额（后台调整）
func UpdateUserLimit(ctx context.Context, exec sqlx.ExtContext, userID int64, limit3 float64) error {
	now := getCurrentMillis()
	query := `UPDATE customers SET limit3 = ?, updated_at = ? WHERE user_id = ?`

	_, err := exec.ExecContext(ctx, query, limit3, now, userID)
	if err != nil {
		logger.Error("update user limit failed",
			zap.Int64("user_id", userID),
			zap.Float64("limit3", limit3),
			zap.Error(err))
		return err
	}

	return nil
}

// CreateUser 注册新用户
// 用户名唯一索引兜底并发注册，冲突由调用方按 IsDuplicateKeyError 处理
func CreateUser(ctx context.Context, db *sqlx.DB, username, passwordHash string) (*Customers, error) {
	newUser := &Customers{
		Username:     username,
		PasswordHash: passwordHash,
		Balance:      0.00, // 初始余额
		Limit3:       0,    // 默认走全局限额
		Status:       1,    // 正常状态
	}
	if err := newUser.Insert(ctx, db); err != nil {
		return nil, err
	}
	return newUser, nil
}

// IsDuplicateKeyError 判断是否为 MySQL 唯一键冲突错误
func IsDuplicateKeyError(err error) bool {
	if err == nil {
		return false
	}
	// MySQL 错误码 1062: Duplicate entry
	var mysqlErr *mysql.MySQLError
	if errors.As(err, &mysqlErr) {
		return mysqlErr.Number == 1062
	}
	return false
}

// GetUserBalance 获取用户余额（非锁查询）
func GetUserBalance(ctx context.Context, db *sqlx.DB, userID int64) (float64, error) {
	query := `SELECT balance FROM customers WHERE user_id = ? LIMIT 1`

	var balance float64
	err := db.GetContext(ctx, &balance, query, userID)
	if err != nil {
		logger.Error("get user balance failed",
			zap.Int64("user_id", userID),
			zap.Error(err))
		return 0, err
	}

	return balance, nil
}

// getCurrentMillis 获取当前13位毫秒时间戳
func getCurrentMillis() int64 {
	return time.Now().UnixMilli()
}
