// 文件: pkg/report/report.go
// 运行报告 - 把一次运行的全部分析结果汇总成一个不可变的值
//
// 【流程】
// 1. 聚合统计 (纯计算, 不依赖价格)
// 2. 查询持仓资产的现价, 写入 Prices
// 3. 强平风险扫描 (复用第 2 步的价格, 每次运行只查询一次)
// 4. 挂单热点聚类
//
// 价格查询失败不会中断报告, 只在 Warnings 中记录。

package report

import (
	"context"
	"time"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lens.com/pkg/analytics"
	"lens.com/pkg/hotspot"
	"lens.com/pkg/ingest"
	"lens.com/pkg/liquidation"
	"lens.com/pkg/logger"
	"lens.com/pkg/model"
	"lens.com/pkg/price"
)

// Report 一次运行的分析结果
//
// 指针字段为 nil 表示 "无数据" (对应的持仓集合为空)。
type Report struct {
	RunID       string       `json:"run_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Ingest      ingest.Stats `json:"ingest"`

	LongShort  analytics.LongShortStats   `json:"long_short"`
	Leverage   *analytics.LeverageStats   `json:"leverage"`
	PnL        *analytics.PnLStats        `json:"pnl"`
	Collateral *analytics.CollateralStats `json:"collateral"`

	TopProfitable  []analytics.TraderPnL      `json:"top_profitable"`
	TopLosing      []analytics.TraderPnL      `json:"top_losing"`
	LargestHolders []analytics.TraderSize     `json:"largest_holders"`
	TopLeveraged   []analytics.TraderLeverage `json:"top_leveraged"`

	Assets        analytics.AssetTable `json:"assets"`
	PendingOrders analytics.OrderTable `json:"pending_orders"`

	Prices          map[string]float64           `json:"prices"`
	LiquidationRisk []liquidation.RiskRecord     `json:"liquidation_risk"`
	Hotspots        map[string][]hotspot.Cluster `json:"hotspots"`

	Warnings []string `json:"warnings,omitempty"`
}

// Encode 编码为 JSON (map 按 key 排序, 输出稳定)
func Encode(r *Report) ([]byte, error) {
	return sonic.ConfigStd.Marshal(r)
}

// =============================================================================
// Options
// =============================================================================

// Options 报告参数
type Options struct {
	TopN          int
	RiskThreshold float64
	Hotspot       hotspot.Config
}

// DefaultOptions 默认参数
func DefaultOptions() Options {
	return Options{
		TopN:          analytics.DefaultTopN,
		RiskThreshold: liquidation.DefaultThreshold,
		Hotspot:       hotspot.DefaultConfig(),
	}
}

// =============================================================================
// Generator
// =============================================================================

// Generator 报告生成器
type Generator struct {
	opts     Options
	prices   liquidation.PriceSource
	detector *liquidation.Detector
	ids      *IDGenerator
	log      *zap.Logger

	now func() time.Time
}

// NewGenerator 创建生成器
//
// prices 通常是本次运行的 *price.Oracle, 每次 Build 只查询一次。
func NewGenerator(opts Options, prices liquidation.PriceSource, ids *IDGenerator, log *zap.Logger) *Generator {
	log = logger.OrNop(log)
	return &Generator{
		opts:     opts,
		prices:   prices,
		detector: liquidation.NewDetector(opts.RiskThreshold, log),
		ids:      ids,
		log:      log.Named("report"),
		now:      time.Now,
	}
}

// Build 生成报告
//
// 只有价格源已关闭时返回错误, 其余价格问题记入 Warnings。
func (g *Generator) Build(ctx context.Context, pop model.Population, stats ingest.Stats) (*Report, error) {
	r := &Report{
		RunID:       g.ids.Next(),
		GeneratedAt: g.now().UTC(),
		Ingest:      stats,
	}

	// 1. 聚合
	n := g.opts.TopN
	r.LongShort = analytics.LongShort(pop)
	if s, ok := analytics.Leverage(pop); ok {
		r.Leverage = &s
	}
	if s, ok := analytics.PnL(pop); ok {
		r.PnL = &s
	}
	if s, ok := analytics.Collateral(pop); ok {
		r.Collateral = &s
	}
	r.TopProfitable = analytics.TopTraders(pop, true, n)
	r.TopLosing = analytics.TopTraders(pop, false, n)
	r.LargestHolders = analytics.LargestHolders(pop, n)
	r.TopLeveraged = analytics.TopLeveraged(pop, n)
	r.Assets = analytics.Assets(pop)
	r.PendingOrders = analytics.PendingOrders(pop)

	// 2. 现价
	prices, err := g.prices.Prices(ctx, pop.AssetsInUse())
	if errors.Is(err, price.ErrOracleClosed) {
		return nil, err
	}
	if err != nil {
		r.Warnings = append(r.Warnings, err.Error())
		g.log.Warn("live prices incomplete", zap.String("run_id", r.RunID), zap.Error(err))
	}
	r.Prices = prices
	if r.Prices == nil {
		r.Prices = map[string]float64{}
	}

	// 3. 强平风险, 复用第 2 步的价格, 不再查询
	r.LiquidationRisk = g.detector.Scan(pop, r.Prices)

	// 4. 热点
	r.Hotspots = hotspot.Detect(hotspot.Sequence(pop), g.opts.Hotspot)

	g.log.Info("report built",
		zap.String("run_id", r.RunID),
		zap.Int("traders", len(pop)),
		zap.Int("at_risk", len(r.LiquidationRisk)),
		zap.Int("hotspot_assets", len(r.Hotspots)),
		zap.Int("warnings", len(r.Warnings)))
	return r, nil
}
