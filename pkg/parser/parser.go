// 文件: pkg/parser/parser.go
// 行解析器: 把一行原始单元格组装成 Position / Order
//
// 【列映射】
// 持仓行 (至少 7 列):
//   0 资产/杠杆/方向  2 盈亏块  3 保证金  4 开仓价  6 强平价
//   (1, 5 列不使用)
// 挂单行 (4 列):
//   0 资产/方向  1 订单类型  2 数量  3 触发价

package parser

import (
	"github.com/pkg/errors"

	"lens.com/pkg/extract"
	"lens.com/pkg/model"
)

// PositionColumns 持仓行最少列数
const PositionColumns = 7

// ErrMalformedRow 持仓行列数不足, 整行丢弃
var ErrMalformedRow = errors.New("malformed row")

// Result 一行的解析结果
// Issues 记录使用了默认值的字段, 不影响记录本身
type Result[T any] struct {
	Record T
	Issues []extract.Issue
}

// noteField 未命中的字段记入 is
func noteField[T any](is *[]extract.Issue, name, text string, f extract.Field[T]) {
	if iss, ok := f.Issue(name, text); ok {
		*is = append(*is, iss)
	}
}

// PositionRow 解析持仓行
//
// 少于 7 列返回 ErrMalformedRow, 不产生任何部分记录。
func PositionRow(cells []string) (Result[model.Position], error) {
	if len(cells) < PositionColumns {
		return Result[model.Position]{}, errors.Wrapf(ErrMalformedRow,
			"expected at least %d cells, got %d", PositionColumns, len(cells))
	}

	assetText, pnlText, collatText, entryText, liqText := cells[0], cells[2], cells[3], cells[4], cells[6]

	asset := extract.Asset(assetText)
	pnl := extract.PnL(pnlText)
	collat := extract.Amount(collatText)
	entry := extract.Amount(entryText)
	liq := extract.Liquidation(liqText)

	var is []extract.Issue
	noteField(&is, "asset", assetText, asset)
	noteField(&is, "pnl", pnlText, pnl)
	noteField(&is, "collateral", collatText, collat)
	noteField(&is, "entry", entryText, entry)
	// 强平价缺失是正常情况, 不记 Issue

	pos := model.NewPosition(model.Position{
		Asset:       asset.Value.Asset,
		Leverage:    asset.Value.Leverage,
		Short:       asset.Value.Short,
		PnL:         pnl.Value.PnL,
		PnLPercent:  pnl.Value.Percent,
		Collateral:  collat.Value,
		Liquidation: liq.Value,
		Entry:       entry.Value,
	})

	return Result[model.Position]{Record: pos, Issues: is}, nil
}

// OrderRow 解析挂单行
//
// 与 PositionRow 不同, 这里不做列数校验; 缺失的单元格按空串处理,
// 对应字段走默认值并记入 Issues。error 目前恒为 nil。
func OrderRow(cells []string) (Result[model.Order], error) {
	assetText, typeText, sizeText, triggerText := cell(cells, 0), cell(cells, 1), cell(cells, 2), cell(cells, 3)

	asset := extract.OrderAsset(assetText)
	size := extract.OrderSize(sizeText)
	trigger := extract.OrderTrigger(triggerText)

	var is []extract.Issue
	noteField(&is, "order_asset", assetText, asset)
	noteField(&is, "order_size", sizeText, size)
	noteField(&is, "order_trigger", triggerText, trigger)

	ord := model.Order{
		Asset:     asset.Value.Asset,
		Short:     asset.Value.Short,
		OrderType: typeText,
		Size:      size.Value,
		Trigger:   trigger.Value,
	}

	return Result[model.Order]{Record: ord, Issues: is}, nil
}

func cell(cells []string, i int) string {
	if i < len(cells) {
		return cells[i]
	}
	return ""
}
