// 文件: pkg/extract/position.go
// 持仓行的字段提取: 资产/杠杆/方向, 盈亏, 保证金, 开仓价, 强平价

package extract

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// "BTC 10.50x Short", 从串首开始匹配
	assetPattern = regexp.MustCompile(`^(\w+)\s*(\d+\.\d+)x\s*(\w+)`)

	// "-$120.50 -$80.25 (-3.40%)"
	// 第二个金额是盈亏, 括号内是百分比
	pnlPattern = regexp.MustCompile(`[-+]?\$([\d,]+\.\d+)\s*[-+]\$([\d,]+\.\d+)\s*\(([-+]?\d+\.\d+)%\)`)

	// "$1,234.56", 取第一个
	amountPattern = regexp.MustCompile(`\$([\d,]+\.\d+)`)
)

// AssetInfo 资产单元格的解析结果
type AssetInfo struct {
	Asset    string
	Leverage float64
	Short    bool
}

// PnLInfo 盈亏单元格的解析结果
type PnLInfo struct {
	PnL     float64
	Percent float64
}

// Asset 解析 "<ticker> <leverage>x <Long|Short>"
//
// 未命中: Unknown / 1.0 / Long
func Asset(text string) Field[AssetInfo] {
	m := assetPattern.FindStringSubmatch(text)
	if m == nil {
		return defaulted(defaultAsset(), ReasonNoMatch)
	}

	leverage, err := strconv.ParseFloat(m[2], 64)
	if err != nil {
		return defaulted(defaultAsset(), ReasonBadNumber)
	}

	return matched(AssetInfo{
		Asset:    m[1],
		Leverage: leverage,
		Short:    m[3] == "Short",
	})
}

// PnL 解析盈亏和百分比
//
// 符号不取自捕获组, 而是回到原文做子串查找:
//   - 原文包含 "-$<第二金额>" 则盈亏为负
//   - 原文包含 "-<百分比数字>" 则百分比取反
//
// 若同一金额在原文其他位置带 "-" 出现, 这条规则会误判符号。
func PnL(text string) Field[PnLInfo] {
	m := pnlPattern.FindStringSubmatch(text)
	if m == nil {
		return defaulted(PnLInfo{}, ReasonNoMatch)
	}

	pnl, err := parseAmount(m[2])
	if err != nil {
		return defaulted(PnLInfo{}, ReasonBadNumber)
	}
	if strings.Contains(text, "-$"+m[2]) {
		pnl = -pnl
	}

	pct, err := strconv.ParseFloat(m[3], 64)
	if err != nil {
		return defaulted(PnLInfo{}, ReasonBadNumber)
	}
	if strings.Contains(text, "-"+m[3]) {
		pct = -pct
	}

	return matched(PnLInfo{PnL: pnl, Percent: pct})
}

// Amount 取第一个 "$<amount>", 用于保证金和开仓价
func Amount(text string) Field[float64] {
	m := amountPattern.FindStringSubmatch(text)
	if m == nil {
		return defaulted(0.0, ReasonNoMatch)
	}

	v, err := parseAmount(m[1])
	if err != nil {
		return defaulted(0.0, ReasonBadNumber)
	}
	return matched(v)
}

// Liquidation 解析强平价, 页面未展示时返回 nil
func Liquidation(text string) Field[*float64] {
	amt := Amount(text)
	if !amt.Matched {
		return defaulted[*float64](nil, amt.Reason)
	}
	v := amt.Value
	return matched(&v)
}
