// 文件: pkg/nats/publisher.go
// NATS 发布者, 消息体统一用 sonic 编码, 消息 key 放在 header 中

package nats

import (
	"time"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lens.com/pkg/logger"
)

// KeyHeader 消息 key 所在的 header, 对应 Kafka 消息的 key
const KeyHeader = "Lens-Key"

// Publisher NATS 发布者
type Publisher struct {
	conn *nats.Conn
	log  *zap.Logger
}

// Connect 建立连接, 断线自动重连
func Connect(url, name string, log *zap.Logger) (*nats.Conn, error) {
	log = logger.OrNop(log)
	l := log.Named("nats")

	conn, err := nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(10),
		nats.ReconnectWait(time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				l.Warn("disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			l.Info("reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, errors.Wrapf(err, "connect to nats %s", url)
	}
	return conn, nil
}

// NewPublisher 基于已有连接创建发布者
func NewPublisher(conn *nats.Conn, log *zap.Logger) *Publisher {
	log = logger.OrNop(log)
	return &Publisher{conn: conn, log: log.Named("nats_publisher")}
}

// Publish 编码后发布, key 非空时写入 KeyHeader
func (p *Publisher) Publish(subject, key string, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return errors.Wrapf(err, "encode %s", subject)
	}

	msg := nats.NewMsg(subject)
	msg.Data = data
	if key != "" {
		msg.Header.Set(KeyHeader, key)
	}
	if err := p.conn.PublishMsg(msg); err != nil {
		return errors.Wrapf(err, "publish %s", subject)
	}
	p.log.Debug("published", zap.String("subject", subject), zap.Int("bytes", len(data)))
	return nil
}

// Flush 等待服务端确认已收到缓冲区内的消息
func (p *Publisher) Flush(timeout time.Duration) error {
	return p.conn.FlushTimeout(timeout)
}
