// 文件: pkg/extract/order.go
// 挂单行的字段提取: 资产/方向, 数量, 触发价

package extract

import (
	"regexp"
	"strings"
)

var (
	// "LongBTC/USD ...", RE2 不支持前瞻, "/USD" 参与匹配但不捕获
	orderAssetPattern = regexp.MustCompile(`^(Long|Short)([A-Z]+)/USD`)

	// "-$1,000.00"
	orderSizePattern = regexp.MustCompile(`[-+]?\$([\d,]+\.\d+)`)

	// "< $61,000.00", 比较方向丢弃
	orderTriggerPattern = regexp.MustCompile(`[<>]\s*\$([\d,]+\.\d+)`)
)

// OrderAssetInfo 挂单资产单元格的解析结果
type OrderAssetInfo struct {
	Asset string
	Short bool
}

// OrderAsset 解析 "(Long|Short)<TICKER>/USD"
func OrderAsset(text string) Field[OrderAssetInfo] {
	m := orderAssetPattern.FindStringSubmatch(text)
	if m == nil {
		return defaulted(OrderAssetInfo{}, ReasonNoMatch)
	}
	return matched(OrderAssetInfo{Asset: m[2], Short: m[1] == "Short"})
}

// OrderSize 解析挂单数量
//
// 符号只看原文是否以 "-" 开头 (与 PnL 的子串规则不同)
func OrderSize(text string) Field[float64] {
	m := orderSizePattern.FindStringSubmatch(text)
	if m == nil {
		return defaulted(0.0, ReasonNoMatch)
	}

	v, err := parseAmount(m[1])
	if err != nil {
		return defaulted(0.0, ReasonBadNumber)
	}
	if strings.HasPrefix(text, "-") {
		v = -v
	}
	return matched(v)
}

// OrderTrigger 解析触发价, 只保留数值
func OrderTrigger(text string) Field[float64] {
	m := orderTriggerPattern.FindStringSubmatch(text)
	if m == nil {
		return defaulted(0.0, ReasonNoMatch)
	}

	v, err := parseAmount(m[1])
	if err != nil {
		return defaulted(0.0, ReasonBadNumber)
	}
	return matched(v)
}
