package rocketmq

import (
	"context"
	"strings"
	"sync"
	"time"

	rmq "github.com/apache/rocketmq-clients/golang/v5"
	"github.com/apache/rocketmq-clients/golang/v5/credentials"

	"threed-server/common/logger"
	"threed-server/internal/config"

	"go.uber.org/zap"
)

// Publisher 是发送消息的最小门面，outbox 调度器只依赖它
type Publisher interface {
	Publish(topic string, body []byte) error
}

var (
	initOnce sync.Once
	enabled  bool
	prod     rmq.Producer
	pub      Publisher
)

// Enabled 返回 MQ 是否已配置并成功启动
func Enabled() bool { initOnce.Do(initMQ); return enabled }

// PublisherInstance 返回当前发布器，MQ 未启用时返回丢弃消息的桩实现
func PublisherInstance() Publisher {
	initOnce.Do(initMQ)
	if pub == nil {
		pub = &stubPublisher{}
	}
	return pub
}

type rmqPublisher struct{ p rmq.Producer }

func (r *rmqPublisher) Publish(topic string, body []byte) error {
	if r.p == nil {
		return nil
	}
	msg := &rmq.Message{Topic: topic, Body: body}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_, err := r.p.Send(ctx, msg)
	return err
}

// MQ 未启用时的桩实现，消息丢弃但业务继续
type stubPublisher struct{}

func (s *stubPublisher) Publish(topic string, body []byte) error {
	logger.Warn("[mq disabled] drop message", zap.String("topic", topic))
	return nil
}

// EventTopics 返回本服务的全部出站主题：
// 配置的投注/结算主题，加上场次生命周期与开奖事件主题
// 生产端预注册、消费端订阅的是同一份列表
func EventTopics(cfg *config.Config) []string {
	topics := []string{"threed_session_opened", "threed_session_closed", "threed_result_declared"}
	if cfg.RocketMQ.TopicBet != "" {
		topics = append(topics, cfg.RocketMQ.TopicBet)
	} else {
		topics = append(topics, "threed_bet_placed")
	}
	if cfg.RocketMQ.TopicSettle != "" {
		topics = append(topics, cfg.RocketMQ.TopicSettle)
	} else {
		topics = append(topics, "threed_bet_settled")
	}
	for i := range topics {
		topics[i] = strings.TrimSpace(strings.ReplaceAll(topics[i], ".", "_"))
	}
	return topics
}

func initMQ() {
	// SDK 默认写文件日志到 /logs，重置为空实现
	rmq.ResetLogger()

	cfg := config.GetCurrent()
	if cfg == nil || strings.TrimSpace(cfg.RocketMQ.NameServer) == "" {
		enabled = false
		pub = &stubPublisher{}
		return
	}

	// 规整 endpoint：去掉 scheme，多地址时取第一个
	endpoint := strings.TrimSpace(cfg.RocketMQ.NameServer)
	endpoint = strings.TrimPrefix(strings.TrimPrefix(endpoint, "http://"), "https://")
	if idx := strings.IndexAny(endpoint, ",;"); idx > 0 {
		endpoint = strings.TrimSpace(endpoint[:idx])
	}

	ak := strings.TrimSpace(cfg.RocketMQ.AccessKey)
	sk := strings.TrimSpace(cfg.RocketMQ.SecretKey)
	// 缺少凭证时禁用 MQ，避免 SDK 在签名阶段空指针
	if ak == "" || sk == "" {
		enabled = false
		pub = &stubPublisher{}
		logger.Warn("rocketmq disabled: missing access/secret key while endpoint present")
		return
	}

	mqCfg := &rmq.Config{Endpoint: endpoint}
	mqCfg.Credentials = &credentials.SessionCredentials{AccessKey: ak, AccessSecret: sk}

	topics := EventTopics(cfg)
	logger.Info("rocketmq producer config",
		zap.String("endpoint", endpoint), zap.Strings("topics", topics))

	p, err := rmq.NewProducer(mqCfg, rmq.WithTopics(topics...))
	if err != nil {
		logger.Error("rocketmq: producer init failed", zap.Error(err))
		enabled = false
		pub = &stubPublisher{}
		return
	}

	// 异步启动并限时等待，避免 MQ 不可达时阻塞主流程
	startDone := make(chan error, 1)
	go func() {
		startDone <- p.Start()
	}()

	select {
	case err := <-startDone:
		if err != nil {
			logger.Warn("rocketmq: producer start failed (will use stub publisher)", zap.Error(err))
			enabled = false
			pub = &stubPublisher{}
			return
		}
		prod = p
		pub = &rmqPublisher{p: p}
		enabled = true
		logger.Info("rocketmq enabled", zap.String("endpoint", endpoint))
	case <-time.After(2 * time.Second):
		logger.Warn("rocketmq: producer start timeout (will use stub publisher, messages will be dropped)")
		enabled = false
		pub = &stubPublisher{}
	}
}
