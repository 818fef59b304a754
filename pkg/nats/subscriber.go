// 文件: pkg/nats/subscriber.go
// NATS 订阅者

package nats

import (
	"time"

	"github.com/nats-io/nats.go"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lens.com/pkg/logger"
)

// subscribeFlushTimeout 等待服务端登记订阅
const subscribeFlushTimeout = 2 * time.Second

// Message 收到的一条消息
type Message struct {
	Subject string
	Key     string // KeyHeader, 没有时为空
	Data    []byte
}

// Handler 消息处理函数
type Handler func(msg Message) error

// Subscriber NATS 订阅者
type Subscriber struct {
	conn    *nats.Conn
	subs    []*nats.Subscription
	handler Handler
	log     *zap.Logger
}

// NewSubscriber 基于已有连接创建订阅者
func NewSubscriber(conn *nats.Conn, handler Handler, log *zap.Logger) *Subscriber {
	log = logger.OrNop(log)
	return &Subscriber{
		conn:    conn,
		handler: handler,
		log:     log.Named("nats_subscriber"),
	}
}

// Subscribe 订阅主题, 返回时服务端已登记订阅
func (s *Subscriber) Subscribe(subjects ...string) error {
	for _, subject := range subjects {
		sub, err := s.conn.Subscribe(subject, s.dispatch)
		if err != nil {
			return errors.Wrapf(err, "subscribe %s", subject)
		}
		s.subs = append(s.subs, sub)
	}
	if err := s.conn.FlushTimeout(subscribeFlushTimeout); err != nil {
		return errors.Wrap(err, "flush subscriptions")
	}
	return nil
}

func (s *Subscriber) dispatch(msg *nats.Msg) {
	m := Message{Subject: msg.Subject, Data: msg.Data}
	if msg.Header != nil {
		m.Key = msg.Header.Get(KeyHeader)
	}
	if err := s.handler(m); err != nil {
		s.log.Warn("handle error", zap.String("subject", msg.Subject), zap.Error(err))
	}
}

// Close 取消全部订阅
func (s *Subscriber) Close() error {
	var first error
	for _, sub := range s.subs {
		if err := sub.Unsubscribe(); err != nil && first == nil {
			first = err
		}
	}
	s.subs = nil
	return first
}
