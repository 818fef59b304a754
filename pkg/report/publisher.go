// 文件: pkg/report/publisher.go
// 报告发布
//
// 【主题】
// NATS:  lens.report   完整报告
//        lens.risk     每条强平风险一条消息
//        lens.hotspot  每个热点一条消息
// Kafka: lens.reports  完整报告, key = RunID

package report

import (
	"context"
	"sort"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"lens.com/pkg/hotspot"
	"lens.com/pkg/kafka"
	"lens.com/pkg/liquidation"
	"lens.com/pkg/logger"
)

const (
	SubjectReport  = "lens.report"
	SubjectRisk    = "lens.risk"
	SubjectHotspot = "lens.hotspot"

	DefaultReportTopic = "lens.reports"
)

// Publisher 报告发布者
type Publisher interface {
	Publish(ctx context.Context, r *Report) error
}

// =============================================================================
// 单条事件
// =============================================================================

// RiskEvent lens.risk 消息体
type RiskEvent struct {
	RunID string `json:"run_id"`
	liquidation.RiskRecord
}

// HotspotEvent lens.hotspot 消息体
type HotspotEvent struct {
	RunID   string          `json:"run_id"`
	Asset   string          `json:"asset"`
	Cluster hotspot.Cluster `json:"cluster"`
}

// =============================================================================
// NATS
// =============================================================================

// FlushTimeout 发布完成后等待 NATS 确认的时间
const FlushTimeout = 5 * time.Second

// SubjectPublisher nats.Publisher 实现了它
type SubjectPublisher interface {
	Publish(subject, key string, v any) error
	Flush(timeout time.Duration) error
}

// NATSPublisher 发布到 NATS
type NATSPublisher struct {
	pub SubjectPublisher
	log *zap.Logger
}

// NewNATSPublisher 创建 NATS 发布者
func NewNATSPublisher(pub SubjectPublisher, log *zap.Logger) *NATSPublisher {
	log = logger.OrNop(log)
	return &NATSPublisher{pub: pub, log: log.Named("nats_report")}
}

// Publish 实现 Publisher
func (p *NATSPublisher) Publish(ctx context.Context, r *Report) error {
	if err := p.pub.Publish(SubjectReport, r.RunID, r); err != nil {
		return errors.Wrap(err, "publish report")
	}

	var errs error
	for _, rec := range r.LiquidationRisk {
		if err := ctx.Err(); err != nil {
			return multierr.Append(errs, err)
		}
		errs = multierr.Append(errs, p.pub.Publish(SubjectRisk, r.RunID, RiskEvent{RunID: r.RunID, RiskRecord: rec}))
	}
	for _, asset := range sortedAssets(r.Hotspots) {
		for _, c := range r.Hotspots[asset] {
			errs = multierr.Append(errs, p.pub.Publish(SubjectHotspot, r.RunID, HotspotEvent{RunID: r.RunID, Asset: asset, Cluster: c}))
		}
	}

	errs = multierr.Append(errs, p.pub.Flush(FlushTimeout))

	p.log.Debug("report published",
		zap.String("run_id", r.RunID),
		zap.Int("risk_events", len(r.LiquidationRisk)),
		zap.Int("failed", len(multierr.Errors(errs))))
	return errs
}

// =============================================================================
// Kafka
// =============================================================================

// MessageSender kafka.Producer 实现了它
type MessageSender interface {
	Send(msg kafka.Message) error
}

// reportMessage 实现 kafka.Message
type reportMessage struct {
	topic string
	r     *Report
}

func (m reportMessage) Topic() string { return m.topic }
func (m reportMessage) Key() string   { return m.r.RunID }

func (m reportMessage) Value() ([]byte, error) {
	return sonic.Marshal(m.r)
}

// KafkaPublisher 发布到 Kafka
type KafkaPublisher struct {
	sender MessageSender
	topic  string
}

// NewKafkaPublisher 创建 Kafka 发布者, topic 为空时使用 DefaultReportTopic
func NewKafkaPublisher(sender MessageSender, topic string) *KafkaPublisher {
	if topic == "" {
		topic = DefaultReportTopic
	}
	return &KafkaPublisher{sender: sender, topic: topic}
}

// Publish 实现 Publisher
func (p *KafkaPublisher) Publish(_ context.Context, r *Report) error {
	if err := p.sender.Send(reportMessage{topic: p.topic, r: r}); err != nil {
		return errors.Wrapf(err, "send report to %s", p.topic)
	}
	return nil
}

// =============================================================================
// 组合
// =============================================================================

// MultiPublisher 依次发布到多个目标, 单个失败不影响其余目标
type MultiPublisher []Publisher

// Publish 实现 Publisher
func (m MultiPublisher) Publish(ctx context.Context, r *Report) error {
	var errs error
	for _, p := range m {
		errs = multierr.Append(errs, p.Publish(ctx, r))
	}
	return errs
}

func sortedAssets(m map[string][]hotspot.Cluster) []string {
	assets := make([]string, 0, len(m))
	for a := range m {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets
}
