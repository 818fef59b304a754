// 文件: pkg/model/book.go
// 采集期累加器: 按账户追加持仓/挂单, 结束后冻结为只读 Population

package model

import (
	"sort"

	"github.com/pkg/errors"
)

// ErrBookSealed Population() 之后不允许再追加账户
var ErrBookSealed = errors.New("book sealed")

// Population 一次运行的全部交易员, 分析层只读
type Population []Trader

// Book 交易员累加器
//
// 单线程使用: 采集阶段由一个 goroutine 调用 Add,
// 采集结束后调用 Population() 冻结。
type Book struct {
	traders []Trader
	sealed  bool
}

// NewBook 创建空的累加器
func NewBook() *Book {
	return &Book{traders: make([]Trader, 0, 64)}
}

// Add 追加一个账户, 返回分配的 TraderID (从 0 开始递增)
//
// positions / orders 会被复制, 之后调用方修改原切片不影响 Book。
func (b *Book) Add(url string, positions []Position, orders []Order) (int, error) {
	if b.sealed {
		return 0, errors.Wrapf(ErrBookSealed, "add %s", url)
	}

	id := len(b.traders)
	t := Trader{
		ID:        id,
		URL:       url,
		Positions: append(make([]Position, 0, len(positions)), positions...),
		Orders:    append(make([]Order, 0, len(orders)), orders...),
	}
	b.traders = append(b.traders, t)
	return id, nil
}

// Len 已追加的账户数
func (b *Book) Len() int {
	return len(b.traders)
}

// Population 冻结并返回全部交易员
func (b *Book) Population() Population {
	b.sealed = true
	return Population(b.traders)
}

// =============================================================================
// Population 只读辅助
// =============================================================================

// PositionCount 全部持仓数
func (p Population) PositionCount() int {
	n := 0
	for i := range p {
		n += len(p[i].Positions)
	}
	return n
}

// OrderCount 全部挂单数
func (p Population) OrderCount() int {
	n := 0
	for i := range p {
		n += len(p[i].Orders)
	}
	return n
}

// AssetsInUse 持仓涉及的全部 ticker (去重, 按字母序)
func (p Population) AssetsInUse() []string {
	seen := make(map[string]struct{})
	for i := range p {
		for _, pos := range p[i].Positions {
			seen[pos.Asset] = struct{}{}
		}
	}

	assets := make([]string, 0, len(seen))
	for a := range seen {
		assets = append(assets, a)
	}
	sort.Strings(assets)
	return assets
}
