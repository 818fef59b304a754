// 文件: pkg/ingest/snapshot.go
// 账户页面快照 - 采集器与分析核心之间的边界格式
//
// 【格式】
//
//	{
//	  "url": "https://venue/#/accounts/0xabc",
//	  "positions": [["BTC 10.50x Short", "...", ...]],
//	  "orders":    [["ShortETH/USD", "Limit", "-$1,500.00", "> $3,450.00"]],
//	  "positions_html": "<tbody><tr><td>...</td></tr></tbody>",
//	  "orders_html":    "..."
//	}
//
// 单元格数组和 HTML 片段可以同时出现, 各自的行按 单元格在前、HTML 在后 合并。
// 一个文件可以是单个对象, 也可以是对象数组。

package ingest

import (
	"bytes"
	"os"

	"github.com/bytedance/sonic"
	"github.com/kaptinlin/jsonrepair"
	"github.com/pkg/errors"
)

// Snapshot 一个账户页面的原始行
type Snapshot struct {
	URL       string     `json:"url"`
	Positions [][]string `json:"positions,omitempty"`
	Orders    [][]string `json:"orders,omitempty"`

	PositionsHTML string `json:"positions_html,omitempty"`
	OrdersHTML    string `json:"orders_html,omitempty"`
}

// PositionRows 全部持仓行 (单元格 + HTML)
func (s *Snapshot) PositionRows() ([][]string, error) {
	return mergeRows(s.Positions, s.PositionsHTML)
}

// OrderRows 全部挂单行 (单元格 + HTML)
func (s *Snapshot) OrderRows() ([][]string, error) {
	return mergeRows(s.Orders, s.OrdersHTML)
}

func mergeRows(cells [][]string, fragment string) ([][]string, error) {
	if fragment == "" {
		return cells, nil
	}
	rows, err := RowsFromHTML(fragment)
	if err != nil {
		return nil, err
	}
	out := make([][]string, 0, len(cells)+len(rows))
	out = append(out, cells...)
	return append(out, rows...), nil
}

// =============================================================================
// 解码
// =============================================================================

// DecodeSnapshot 解码单个快照
func DecodeSnapshot(data []byte) (Snapshot, error) {
	var s Snapshot
	if err := unmarshalRepair(data, &s); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// DecodeSnapshots 解码快照数组, 也接受单个对象
func DecodeSnapshots(data []byte) ([]Snapshot, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 {
		return nil, ErrNoSnapshots
	}

	if trimmed[0] == '{' {
		s, err := DecodeSnapshot(trimmed)
		if err != nil {
			return nil, err
		}
		return []Snapshot{s}, nil
	}

	var list []Snapshot
	if err := unmarshalRepair(trimmed, &list); err != nil {
		return nil, err
	}
	return list, nil
}

// LoadFile 从文件读取快照
func LoadFile(path string) ([]Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", path)
	}
	list, err := DecodeSnapshots(data)
	if err != nil {
		return nil, errors.Wrapf(err, "decode %s", path)
	}
	return list, nil
}

// unmarshalRepair 先直接解码, 失败后修复 JSON 再试一次
//
// 采集器在页面中途被打断时常留下截断的 JSON。
func unmarshalRepair(data []byte, v any) error {
	err := sonic.Unmarshal(data, v)
	if err == nil {
		return nil
	}

	repaired, rerr := jsonrepair.JSONRepair(string(data))
	if rerr != nil {
		return errors.Wrap(err, "decode snapshot")
	}
	if err := sonic.UnmarshalString(repaired, v); err != nil {
		return errors.Wrap(err, "decode repaired snapshot")
	}
	return nil
}
