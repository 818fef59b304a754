// 文件: pkg/ingest/source.go
// 快照来源: 本地文件 / Kafka topic / NATS subject

package ingest

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lens.com/pkg/kafka"
	"lens.com/pkg/logger"
	bus "lens.com/pkg/nats"
)

// RunEndKey 采集器在一轮结束时发送的消息 key
const RunEndKey = "__run_end__"

// Source 一轮采集的全部快照
type Source interface {
	Collect(ctx context.Context) ([]Snapshot, error)
}

// =============================================================================
// 文件来源
// =============================================================================

// FileSource 按顺序读取多个快照文件
type FileSource struct {
	Paths []string
}

// Collect 实现 Source
func (f FileSource) Collect(ctx context.Context) ([]Snapshot, error) {
	var all []Snapshot
	for _, path := range f.Paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		list, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		all = append(all, list...)
	}
	if len(all) == 0 {
		return nil, ErrNoSnapshots
	}
	return all, nil
}

// =============================================================================
// 消息来源 (Kafka / NATS)
// =============================================================================

// Collector 累积一轮采集的快照消息
//
// 收到 RunEndKey 后关闭 Done(); 之后的消息属于下一轮, 忽略。
// Kafka 多个分区或 NATS 订阅回调可能并发写入。
type Collector struct {
	mu        sync.Mutex
	snapshots []Snapshot
	finished  bool
	rejected  int
	done      chan struct{}

	log *zap.Logger
}

// NewCollector 创建累加器
func NewCollector(log *zap.Logger) *Collector {
	log = logger.OrNop(log)
	return &Collector{
		done: make(chan struct{}),
		log:  log.Named("collector"),
	}
}

// Handle 实现 kafka.Handler
func (c *Collector) Handle(_ context.Context, rec kafka.Record) error {
	return c.add(rec.Key, rec.Value, fmt.Sprintf("offset %d", rec.Offset))
}

// HandleMessage 实现 nats.Handler, key 取自消息 header
func (c *Collector) HandleMessage(msg bus.Message) error {
	return c.add([]byte(msg.Key), msg.Data, "subject "+msg.Subject)
}

func (c *Collector) add(key, value []byte, pos string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.finished {
		c.log.Debug("message after run end ignored", zap.String("pos", pos))
		return nil
	}

	if string(key) == RunEndKey {
		c.finished = true
		close(c.done)
		c.log.Info("run end received",
			zap.Int("snapshots", len(c.snapshots)),
			zap.Int("rejected", c.rejected))
		return nil
	}

	s, err := DecodeSnapshot(value)
	if err != nil {
		c.rejected++
		return errors.Wrap(err, pos)
	}
	if s.URL == "" {
		s.URL = string(key)
	}
	c.snapshots = append(c.snapshots, s)
	return nil
}

// Done 收到 RunEndKey 后关闭
func (c *Collector) Done() <-chan struct{} {
	return c.done
}

// Snapshots 已累积的快照 (副本)
func (c *Collector) Snapshots() []Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Snapshot(nil), c.snapshots...)
}

// Rejected 无法解码的消息数
func (c *Collector) Rejected() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.rejected
}

// KafkaSource 从 Kafka topic 读取一轮快照
type KafkaSource struct {
	cfg kafka.ConsumerConfig
	log *zap.Logger
}

// NewKafkaSource 创建 Kafka 来源
func NewKafkaSource(cfg kafka.ConsumerConfig, log *zap.Logger) *KafkaSource {
	log = logger.OrNop(log)
	return &KafkaSource{cfg: cfg, log: log}
}

// Collect 阻塞直到收到 RunEndKey 或 ctx 结束
func (k *KafkaSource) Collect(ctx context.Context) ([]Snapshot, error) {
	col := NewCollector(k.log)

	consumer, err := kafka.NewConsumer(k.cfg, col.Handle, k.log)
	if err != nil {
		return nil, err
	}
	consumer.Start()
	defer func() {
		if err := consumer.Stop(); err != nil {
			k.log.Warn("stop consumer", zap.Error(err))
		}
	}()

	return await(ctx, col)
}

// =============================================================================
// NATS 来源
// =============================================================================

// DefaultSnapshotSubject 快照消息的默认主题
const DefaultSnapshotSubject = "lens.snapshots"

// NATSSource 从 NATS 主题读取一轮快照
//
// 消息 key 放在 nats.KeyHeader 中, 含义与 Kafka 消息的 key 相同。
type NATSSource struct {
	conn    *nats.Conn
	subject string
	log     *zap.Logger
}

// NewNATSSource 创建 NATS 来源, subject 为空时使用 DefaultSnapshotSubject
func NewNATSSource(conn *nats.Conn, subject string, log *zap.Logger) *NATSSource {
	if subject == "" {
		subject = DefaultSnapshotSubject
	}
	return &NATSSource{conn: conn, subject: subject, log: logger.OrNop(log)}
}

// Collect 阻塞直到收到 RunEndKey 或 ctx 结束
func (n *NATSSource) Collect(ctx context.Context) ([]Snapshot, error) {
	col := NewCollector(n.log)

	sub := bus.NewSubscriber(n.conn, col.HandleMessage, n.log)
	defer func() {
		if err := sub.Close(); err != nil {
			n.log.Warn("unsubscribe", zap.Error(err))
		}
	}()
	if err := sub.Subscribe(n.subject); err != nil {
		return nil, err
	}

	return await(ctx, col)
}

func await(ctx context.Context, col *Collector) ([]Snapshot, error) {
	select {
	case <-col.Done():
	case <-ctx.Done():
		return nil, errors.Wrap(ctx.Err(), "waiting for run end")
	}

	snapshots := col.Snapshots()
	if len(snapshots) == 0 {
		return nil, ErrNoSnapshots
	}
	return snapshots, nil
}
