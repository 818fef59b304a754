// 文件: pkg/hotspot/hotspot.go
// 挂单热点聚类
//
// 【算法】贪心单遍扫描
// 1. 按输入序列逐笔处理挂单, 每个资产维护一组锚点 (按创建顺序)
// 2. 挂单价格带 = [trigger*(1-p%), trigger*(1+p%)]
// 3. 第一个落在价格带内的锚点收下该挂单; 锚点价格不随成员变化
// 4. 没有锚点落在价格带内时, 以该挂单价格新建锚点
//
// 结果依赖输入顺序, 所以顺序是显式参数 (Sequence), 而不是 map 遍历顺序。

package hotspot

import (
	"lens.com/pkg/model"
)

// Direction 挂单方向
type Direction string

const (
	Long  Direction = "Long"
	Short Direction = "Short"
)

// Config 聚类参数
type Config struct {
	BandPercent float64 // 价格带半宽 (百分比)
	MinTraders  int     // 热点所需的同方向独立交易员数
}

// DefaultConfig 默认参数: 3% / 3 人
func DefaultConfig() Config {
	return Config{BandPercent: 3, MinTraders: 3}
}

// =============================================================================
// 输入序列
// =============================================================================

// Entry 参与聚类的一笔挂单
type Entry struct {
	TraderID  int
	Asset     string
	Price     float64
	Type      string
	Direction Direction
}

// Sequence 按采集顺序展开全部挂单 (交易员顺序, 再挂单顺序)
func Sequence(pop model.Population) []Entry {
	seq := make([]Entry, 0, pop.OrderCount())
	for i := range pop {
		t := &pop[i]
		for _, o := range t.Orders {
			seq = append(seq, Entry{
				TraderID:  t.ID,
				Asset:     o.Asset,
				Price:     o.Trigger,
				Type:      o.OrderType,
				Direction: Direction(o.Direction()),
			})
		}
	}
	return seq
}

// =============================================================================
// 聚类
// =============================================================================

// Member 锚点下的一笔挂单
type Member struct {
	TraderID int     `json:"trader_id"`
	Price    float64 `json:"price"`
	Type     string  `json:"type"`
}

// Cluster 一个锚点及其成员
type Cluster struct {
	Anchor float64  `json:"cluster_price"`
	Long   []Member `json:"long"`
	Short  []Member `json:"short"`
}

// DistinctTraders 某个方向上的独立交易员数
func (c *Cluster) DistinctTraders(dir Direction) int {
	members := c.Long
	if dir == Short {
		members = c.Short
	}

	seen := make(map[int]struct{}, len(members))
	for _, m := range members {
		seen[m.TraderID] = struct{}{}
	}
	return len(seen)
}

func (c *Cluster) add(e Entry) {
	m := Member{TraderID: e.TraderID, Price: e.Price, Type: e.Type}
	if e.Direction == Short {
		c.Short = append(c.Short, m)
	} else {
		c.Long = append(c.Long, m)
	}
}

// Clusters 对整个序列做贪心聚类, 返回每个资产的全部锚点 (创建顺序)
func Clusters(seq []Entry, cfg Config) map[string][]Cluster {
	band := cfg.BandPercent / 100
	out := make(map[string][]Cluster)

	for _, e := range seq {
		lower := e.Price * (1 - band)
		upper := e.Price * (1 + band)

		clusters := out[e.Asset]
		found := false
		for i := range clusters {
			if lower <= clusters[i].Anchor && clusters[i].Anchor <= upper {
				clusters[i].add(e)
				found = true
				break
			}
		}
		if !found {
			c := Cluster{Anchor: e.Price}
			c.add(e)
			clusters = append(clusters, c)
		}
		out[e.Asset] = clusters
	}
	return out
}

// Detect 聚类后筛选热点
//
// 多头或空头任一方向的独立交易员数 >= MinTraders 即保留, 两个方向的成员都保留。
// 没有热点的资产不出现在结果中。
func Detect(seq []Entry, cfg Config) map[string][]Cluster {
	hot := make(map[string][]Cluster)
	for asset, clusters := range Clusters(seq, cfg) {
		for i := range clusters {
			c := &clusters[i]
			if c.DistinctTraders(Long) >= cfg.MinTraders || c.DistinctTraders(Short) >= cfg.MinTraders {
				hot[asset] = append(hot[asset], *c)
			}
		}
	}
	return hot
}
