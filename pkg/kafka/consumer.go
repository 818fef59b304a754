// 文件: pkg/kafka/consumer.go
// Kafka 消费者组封装
//
// 特点:
// - 消费者组, 自动提交 offset
// - 处理失败只记日志, 不中断分区
// - Stop 可重复调用

package kafka

import (
	"context"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lens.com/pkg/logger"
)

// =============================================================================
// Consumer 配置
// =============================================================================

// ConsumerConfig 消费者配置
type ConsumerConfig struct {
	Brokers       []string // Kafka broker 地址列表
	GroupID       string   // 消费者组 ID
	Topics        []string // 订阅的 topics
	OffsetInitial int64    // 初始 offset: -1=newest, -2=oldest
}

// DefaultConsumerConfig 默认配置, 从最早的 offset 开始读
func DefaultConsumerConfig(brokers []string, groupID string, topics ...string) ConsumerConfig {
	return ConsumerConfig{
		Brokers:       brokers,
		GroupID:       groupID,
		Topics:        topics,
		OffsetInitial: sarama.OffsetOldest,
	}
}

// =============================================================================
// Record / Handler
// =============================================================================

// Record 一条消费到的消息
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
}

// Handler 消息处理函数, 可能被多个分区并发调用
type Handler func(ctx context.Context, rec Record) error

// =============================================================================
// Consumer 消费者
// =============================================================================

// Consumer Kafka 消费者
type Consumer struct {
	group   sarama.ConsumerGroup
	config  ConsumerConfig
	handler Handler
	log     *zap.Logger

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewConsumer 创建消费者
func NewConsumer(cfg ConsumerConfig, handler Handler, log *zap.Logger) (*Consumer, error) {
	log = logger.OrNop(log)

	saramaConfig := sarama.NewConfig()
	saramaConfig.Consumer.Group.Rebalance.GroupStrategies = []sarama.BalanceStrategy{sarama.NewBalanceStrategyRoundRobin()}
	saramaConfig.Consumer.Offsets.Initial = cfg.OffsetInitial
	saramaConfig.Consumer.Offsets.AutoCommit.Enable = true

	group, err := sarama.NewConsumerGroup(cfg.Brokers, cfg.GroupID, saramaConfig)
	if err != nil {
		return nil, errors.Wrap(err, "create consumer group")
	}

	return newConsumer(group, cfg, handler, log), nil
}

func newConsumer(group sarama.ConsumerGroup, cfg ConsumerConfig, handler Handler, log *zap.Logger) *Consumer {
	ctx, cancel := context.WithCancel(context.Background())
	return &Consumer{
		group:   group,
		config:  cfg,
		handler: handler,
		log:     log.Named("kafka_consumer"),
		ctx:     ctx,
		cancel:  cancel,
	}
}

// Start 启动消费, rebalance 后自动重新加入消费者组
func (c *Consumer) Start() {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		for {
			h := &groupHandler{ctx: c.ctx, handler: c.handler, log: c.log}
			if err := c.group.Consume(c.ctx, c.config.Topics, h); err != nil {
				c.log.Warn("consume error", zap.Strings("topics", c.config.Topics), zap.Error(err))
			}

			if c.ctx.Err() != nil {
				return
			}
		}
	}()
}

// Stop 停止消费并关闭消费者组
func (c *Consumer) Stop() error {
	var err error
	c.once.Do(func() {
		c.cancel()
		c.wg.Wait()
		err = c.group.Close()
	})
	return err
}

// =============================================================================
// sarama.ConsumerGroupHandler 实现
// =============================================================================

type groupHandler struct {
	ctx     context.Context
	handler Handler
	log     *zap.Logger
}

func (h *groupHandler) Setup(_ sarama.ConsumerGroupSession) error   { return nil }
func (h *groupHandler) Cleanup(_ sarama.ConsumerGroupSession) error { return nil }

func (h *groupHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for msg := range claim.Messages() {
		rec := Record{
			Topic:     msg.Topic,
			Partition: msg.Partition,
			Offset:    msg.Offset,
			Key:       msg.Key,
			Value:     msg.Value,
			Timestamp: msg.Timestamp,
		}
		if err := h.handler(h.ctx, rec); err != nil {
			h.log.Warn("handle error",
				zap.String("topic", msg.Topic),
				zap.Int32("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
		}

		session.MarkMessage(msg, "")
	}
	return nil
}
