package worker

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"

	"threed-server/common/logger"
	"threed-server/internal/config"
	infmysql "threed-server/internal/infra/mysql"
	infmq "threed-server/internal/infra/rocketmq"
	"threed-server/internal/model"

	"go.uber.org/zap"
)

// StartOutboxDispatcher 启动 outbox 分发器：按秒扫描待发送的
// 投注/开奖/场次事件并投递到 MQ，通过 ctx 优雅退出
// 仅当 MQ 已启用时运行
func StartOutboxDispatcher(ctx context.Context, wg *sync.WaitGroup) {
	if !infmq.Enabled() {
		return
	}
	wg.Add(1)
	pub := infmq.PublisherInstance()
	go func() {
		defer wg.Done()

		ticker := time.NewTicker(1 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				c, cancel := context.WithTimeout(ctx, 2*time.Second)
				rows, err := model.ListOutboxPending(c, infmysql.SQLX(), 100)
				cancel()
				if err != nil {
					logger.Warn("outbox: list pending failed", zap.Error(err))
					continue
				}
				for _, r := range rows {
					if err := pub.Publish(r.Topic, []byte(r.Payload)); err != nil {
						_ = model.MarkOutboxFailed(ctx, infmysql.SQLX(), r.ID, truncateErr(err))
						continue
					}
					if err := model.MarkOutboxSent(ctx, infmysql.SQLX(), r.ID); err != nil {
						logger.Warn("outbox: mark sent failed", zap.Int64("id", r.ID), zap.Error(err))
					}
				}
			}
		}
	}()
}

// last_error 列长度有限，入库前截断
func truncateErr(err error) string {
	b, _ := json.Marshal(map[string]string{"error": err.Error()})
	if len(b) > 240 {
		return string(b[:240])
	}
	return string(b)
}

// StartInboxConsumer 启动 RocketMQ v5 SimpleConsumer，
// 订阅本服务发出的事件主题并按消息ID去重落库至 inbox 表
func StartInboxConsumer(ctx context.Context, wg *sync.WaitGroup) {
	// SDK 默认写文件日志到 /logs，重置为空实现
	rmq.ResetLogger()

	cfg := config.GetCurrent()
	if cfg == nil || strings.TrimSpace(cfg.RocketMQ.NameServer) == "" {
		return
	}

	endpoint := strings.TrimSpace(cfg.RocketMQ.NameServer)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if idx := strings.IndexAny(endpoint, ",;"); idx > 0 {
		endpoint = strings.TrimSpace(endpoint[:idx])
	}

	group := strings.TrimSpace(cfg.RocketMQ.ConsumerGroup)
	if group == "" {
		logger.Warn("[mq] consumer not started: empty consumer_group")
		return
	}
	ak := strings.TrimSpace(cfg.RocketMQ.AccessKey)
	sk := strings.TrimSpace(cfg.RocketMQ.SecretKey)
	if ak == "" || sk == "" {
		logger.Warn("[mq] consumer not started: missing access/secret key")
		return
	}

	mqCfg := &rmq.Config{Endpoint: endpoint, ConsumerGroup: group}
	mqCfg.Credentials = &credentials.SessionCredentials{AccessKey: ak, AccessSecret: sk}

	// 订阅本服务的全部出站主题，默认 SUB_ALL
	topics := infmq.EventTopics(cfg)
	subs := map[string]*rmq.FilterExpression{}
	for _, t := range topics {
		if t == "" {
			continue
		}
		subs[t] = rmq.SUB_ALL
	}

	awaitDuration := 5 * time.Second
	maxMessageNum := int32(16)
	invisibleDuration := 20 * time.Second

	// 带重试启动，避免容器刚起来时 broker 未就绪导致一次性失败
	var sc rmq.SimpleConsumer
	var err error
	for i := 0; i < 6; i++ { // 最长约 6*3s = 18s
		sc, err = rmq.NewSimpleConsumer(mqCfg,
			rmq.WithAwaitDuration(awaitDuration),
			rmq.WithSubscriptionExpressions(subs),
		)
		if err == nil {
			if e := sc.Start(); e == nil {
				break
			} else {
				err = e
			}
		}
		logger.Warn("[mq] simple consumer start retry", zap.Int("attempt", i+1), zap.Error(err))
		time.Sleep(3 * time.Second)
	}
	if err != nil {
		logger.Error("[mq] start simple consumer failed", zap.Error(err))
		return
	}
	logger.Info("[mq] inbox consumer started", zap.String("group", group), zap.Strings("topics", topics))

	wg.Add(1)

	go func() {
		defer wg.Done()

		defer sc.GracefulStop()
		for {
			select {
			case <-ctx.Done():
				return
			default:
				mvs, err := sc.Receive(ctx, maxMessageNum, invisibleDuration)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					logger.Warn("[mq] receive error", zap.Error(err))
					continue
				}
				for _, mv := range mvs {
					id := mv.GetMessageId()
					topic := mv.GetTopic()
					body := mv.GetBody()
					if err := model.UpsertInbox(ctx, infmysql.SQLX(), id, topic, string(body), time.Now().UnixMilli()); err != nil {
						logger.Warn("[mq] upsert inbox failed", zap.String("id", id), zap.String("topic", topic), zap.Error(err))
						continue
					}
					var payload map[string]any
					if err := json.Unmarshal(body, &payload); err == nil {
						if evt, ok := payload["event"].(string); ok && evt == "result_declared" {
							sessionCode, _ := payload["session_code"].(string)
							winNumber, _ := payload["win_number"].(string)
							logger.Info("[mq] consumed draw result", zap.String("session_code", sessionCode), zap.String("win_number", winNumber))
						}
					}
					if err := sc.Ack(ctx, mv); err != nil {
						logger.Warn("[mq] ack failed", zap.String("id", id), zap.Error(err))
					}
				}
			}
		}
	}()
}
