// 文件: pkg/extract/defaults.go
// 未命中时的默认值, 全部集中在这里

package extract

const (
	// DefaultAsset 资产无法识别时的占位 ticker, 与 model.UnknownAsset 一致
	DefaultAsset = "Unknown"

	// DefaultLeverage 杠杆缺失时按 1x 处理
	DefaultLeverage = 1.0

	// DefaultShort 方向缺失时按多头处理
	DefaultShort = false
)

// 下列字段没有业务默认值, 未命中时取零值并标记 Matched=false,
// 由解析层记录为 Issue:
//   PnL / PnLPercent / Collateral / Entry
//   OrderAsset / OrderShort / OrderSize / OrderTrigger
//
// Liquidation 的默认值是 nil (页面本来就可能不展示强平价)。

func defaultAsset() AssetInfo {
	return AssetInfo{Asset: DefaultAsset, Leverage: DefaultLeverage, Short: DefaultShort}
}
