// 文件: pkg/model/model.go
// 领域模型: 持仓 / 挂单 / 交易员
//
// 【生命周期】
// 1. 解析层通过 NewPosition / Order 字面量构造记录
// 2. Book 在采集阶段按账户追加记录, 分配 TraderID
// 3. 采集结束后 Book.Population() 冻结, 下游分析只读

package model

import "math"

// UnknownAsset 资产字段解析失败时的占位符
// 资产级统计会显式跳过它
const UnknownAsset = "Unknown"

// =============================================================================
// Position 持仓
// =============================================================================

// Position 一笔未平仓的杠杆持仓
//
// 构造后不可变: 统一通过 NewPosition 创建, 按值传递。
type Position struct {
	Asset      string  `json:"asset"`
	Leverage   float64 `json:"leverage"`
	Short      bool    `json:"short"`
	PnL        float64 `json:"pnl"`         // 未实现盈亏 (计价货币, 带符号)
	PnLPercent float64 `json:"pnl_percent"` // 相对保证金的百分比 (带符号)
	Collateral float64 `json:"collateral"`

	// Size 名义仓位 = floor(Collateral * Leverage)
	Size int64 `json:"size"`

	// Liquidation 强平价格, 页面未展示时为 nil
	Liquidation *float64 `json:"liquidation,omitempty"`

	Entry float64 `json:"entry"`
}

// NewPosition 根据解析出的字段生成持仓
//
// 传入的 Size 会被忽略, 始终由 Collateral * Leverage 重新计算。
// Liquidation 指针会被复制, 调用方之后修改原值不影响持仓。
func NewPosition(fields Position) Position {
	p := fields
	p.Size = int64(math.Floor(p.Collateral * p.Leverage))
	if fields.Liquidation != nil {
		liq := *fields.Liquidation
		p.Liquidation = &liq
	}
	return p
}

// LiquidationPrice 返回强平价格及其是否存在
func (p Position) LiquidationPrice() (float64, bool) {
	if p.Liquidation == nil {
		return 0, false
	}
	return *p.Liquidation, true
}

// Direction 返回 "Long" 或 "Short"
func (p Position) Direction() string {
	return directionOf(p.Short)
}

// =============================================================================
// Order 挂单
// =============================================================================

// Order 一笔尚未成交的挂单
type Order struct {
	Asset     string  `json:"asset"`
	Short     bool    `json:"short"`
	OrderType string  `json:"order_type"` // 原样保留, 如 "Limit" / "Stop"
	Size      float64 `json:"size"`       // 负数表示减仓/平仓
	Trigger   float64 `json:"trigger"`    // 触发价格
}

// Direction 返回 "Long" 或 "Short"
func (o Order) Direction() string {
	return directionOf(o.Short)
}

func directionOf(short bool) string {
	if short {
		return "Short"
	}
	return "Long"
}

// =============================================================================
// Trader 交易员
// =============================================================================

// Trader 一个被采集的账户
type Trader struct {
	ID        int        `json:"trader_id"` // 本次运行内顺序分配, 不跨运行持久化
	URL       string     `json:"url"`
	Positions []Position `json:"positions"`
	Orders    []Order    `json:"orders"`
}

// TotalPnL 该账户所有持仓盈亏之和
func (t *Trader) TotalPnL() float64 {
	var sum float64
	for _, p := range t.Positions {
		sum += p.PnL
	}
	return sum
}
