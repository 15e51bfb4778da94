package model

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"
)

// outbox 状态机：待发送 -> 已发送 / 永久失败
const (
	OutboxStatusPending int8 = 1
	OutboxStatusSent    int8 = 2
	OutboxStatusDead    int8 = 3

	// 单条消息最大投递尝试次数，超过后标记永久失败
	outboxMaxRetry = 10
)

// Outbox 对应 outbox 表（事务消息表）
// 投注、开奖、场次开盘/封盘事件与业务数据同事务写入，
// 由后台调度器扫描投递到 RocketMQ
type Outbox struct {
	ID         int64  `db:"id"`          // 自增ID
	Topic      string `db:"topic"`       // 主题
	BizKey     string `db:"biz_key"`     // 业务键（注单号/场次号，去重幂等用）
	Payload    string `db:"payload"`     // 消息体(JSON字符串)
	Status     int8   `db:"status"`      // 状态
	RetryCount int    `db:"retry_count"` // 重试次数
	LastError  string `db:"last_error"`  // 最后一次错误
	CreatedAt  int64  `db:"created_at"`  // 创建时间
	UpdatedAt  int64  `db:"updated_at"`  // 更新时间
}

// CreateOutbox 序列化 payload 并插入一条待发送记录，与业务同事务调用
func CreateOutbox(ctx context.Context, exec sqlx.ExtContext, topic, bizKey string, payload any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "INSERT INTO outbox (topic, biz_key, payload, status, retry_count, last_error, created_at, updated_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)"
	args := []interface{}{topic, bizKey, string(b), OutboxStatusPending, 0, "", now, now}

	_, err = exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// OutboxRow 是调度器扫描用的轻量投影
type OutboxRow struct {
	ID      int64  `db:"id"`      // 自增ID
	Topic   string `db:"topic"`   // 主题
	BizKey  string `db:"biz_key"` // 业务键
	Payload string `db:"payload"` // 消息体
}

// ListOutboxPending 查询待发送且未达重试上限的记录，按写入顺序投递
func ListOutboxPending(ctx context.Context, exec sqlx.ExtContext, limit int) ([]OutboxRow, error) {
	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "SELECT id, topic, biz_key, payload FROM outbox WHERE status = ? AND retry_count < ? ORDER BY id ASC LIMIT ?"
	args := []interface{}{OutboxStatusPending, outboxMaxRetry, limit}

	var list []OutboxRow
	if err := sqlx.SelectContext(ctx, exec, &list, sqlStr, args...); err != nil {
		return nil, err
	}
	return list, nil
}

// MarkOutboxSent 标记一条消息已发送
func MarkOutboxSent(ctx context.Context, exec sqlx.ExtContext, id int64) error {
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "UPDATE outbox SET status = ?, updated_at = ? WHERE id = ?"
	args := []interface{}{OutboxStatusSent, now, id}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}

// MarkOutboxFailed 记录失败并累加重试次数
// 达到重试上限时标记永久失败，否则保持待发送等待下一轮
func MarkOutboxFailed(ctx context.Context, exec sqlx.ExtContext, id int64, lastError string) error {
	now := time.Now().UnixMilli()

	// 使用原生 SQL 以避免 goqu 在某些 MySQL 版本上的兼容性问题
	sqlStr := "UPDATE outbox SET status = CASE WHEN retry_count >= ? THEN ? ELSE ? END, last_error = ?, retry_count = retry_count + 1, updated_at = ? WHERE id = ?"
	args := []interface{}{outboxMaxRetry - 1, OutboxStatusDead, OutboxStatusPending, lastError, now, id}

	_, err := exec.ExecContext(ctx, sqlStr, args...)
	return err
}
