// 文件: pkg/extract/field.go
// 字段提取器的通用结果类型
//
// 每个提取器只处理一个原始文本单元格, 返回带标签的结果:
// - Matched = true:  正则命中, Value 为解析值
// - Matched = false: 未命中, Value 为 defaults.go 中登记的默认值, Reason 说明原因

package extract

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Reason 默认值生效的原因
type Reason string

const (
	ReasonNone      Reason = ""           // 命中
	ReasonNoMatch   Reason = "no_match"   // 正则未命中
	ReasonBadNumber Reason = "bad_number" // 命中但数字无法解析
)

// Field 带标签的提取结果
type Field[T any] struct {
	Value   T
	Matched bool
	Reason  Reason
}

// Issue 一次默认值回退的记录, 供解析层汇总
type Issue struct {
	Field  string `json:"field"`
	Reason Reason `json:"reason"`
	Text   string `json:"text"`
}

// Issue 未命中时生成回退记录
func (f Field[T]) Issue(name, text string) (Issue, bool) {
	if f.Matched {
		return Issue{}, false
	}
	return Issue{Field: name, Reason: f.Reason, Text: text}, true
}

func matched[T any](v T) Field[T] {
	return Field[T]{Value: v, Matched: true}
}

func defaulted[T any](v T, reason Reason) Field[T] {
	return Field[T]{Value: v, Reason: reason}
}

// parseAmount 去掉千分位后解析金额, 例如 "1,234.56"
func parseAmount(raw string) (float64, error) {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return 0, err
	}
	f, _ := d.Float64()
	return f, nil
}
