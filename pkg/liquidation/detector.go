// 文件: pkg/liquidation/detector.go
// 强平风险扫描
//
// 【流程】
// 1. 收集持仓涉及的全部资产, 一次性查询现价 (Detect; 已有价格时直接 Scan)
// 2. 遍历持仓: 有强平价且现价已知的, 计算距离
// 3. 距离 <= 阈值 的持仓输出为 RiskRecord (按采集顺序)

package liquidation

import (
	"context"
	"math"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lens.com/pkg/logger"
	"lens.com/pkg/model"
)

// PriceSource 现价来源, price.Oracle 实现了它
//
// 返回的 map 可以缺少部分 ticker (价格未知)。出错时仍可能返回部分结果。
type PriceSource interface {
	Prices(ctx context.Context, tickers []string) (map[string]float64, error)
}

// Detector 强平风险检测器
type Detector struct {
	Threshold float64 // 百分比, <= 0 时使用 DefaultThreshold

	logger *zap.Logger
}

// NewDetector 创建检测器
func NewDetector(threshold float64, log *zap.Logger) *Detector {
	return &Detector{Threshold: threshold, logger: logger.OrNop(log).Named("liquidation")}
}

// Detect 查询现价后扫描全部持仓
//
// 价格源报错时, 用已返回的部分价格继续扫描, 并把错误一并返回;
// 调用方可以记录错误后照常使用结果。
func (d *Detector) Detect(ctx context.Context, pop model.Population, src PriceSource) ([]RiskRecord, error) {
	assets := pop.AssetsInUse()
	if len(assets) == 0 {
		return nil, nil
	}

	prices, srcErr := src.Prices(ctx, assets)
	if srcErr != nil {
		srcErr = errors.Wrap(srcErr, "live prices")
		d.log().Warn("price lookup incomplete",
			zap.Int("assets", len(assets)),
			zap.Int("resolved", len(prices)),
			zap.Error(srcErr))
	}
	return d.Scan(pop, prices), srcErr
}

// Scan 用已查到的现价扫描全部持仓, 不访问价格源
//
// prices 中缺少的资产视为价格未知。
func (d *Detector) Scan(pop model.Population, prices map[string]float64) []RiskRecord {
	threshold := d.Threshold
	if threshold <= 0 {
		threshold = DefaultThreshold
	}

	var records []RiskRecord
	for i := range pop {
		t := &pop[i]
		for _, p := range t.Positions {
			liq, ok := p.LiquidationPrice()
			if !ok {
				continue
			}
			live, ok := prices[p.Asset]
			if !ok || live <= 0 {
				continue
			}

			diff := math.Abs((liq-live)/live) * 100
			if diff > threshold {
				continue
			}

			records = append(records, RiskRecord{
				TraderID:         t.ID,
				TraderURL:        t.URL,
				Asset:            p.Asset,
				Leverage:         p.Leverage,
				Size:             p.Size,
				PnL:              p.PnL,
				Collateral:       p.Collateral,
				LiquidationPrice: liq,
				LivePrice:        live,
				DiffPercent:      diff,
				Level:            Classify(diff),
			})
		}
	}

	d.log().Debug("liquidation scan finished",
		zap.Float64("threshold", threshold),
		zap.Int("at_risk", len(records)))
	return records
}

func (d *Detector) log() *zap.Logger {
	return logger.OrNop(d.logger)
}
