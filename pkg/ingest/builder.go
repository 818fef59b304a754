// 文件: pkg/ingest/builder.go
// 快照 -> Population
//
// 【流程】
// 1. 按输入顺序处理快照, 重复的账户 URL 只保留第一次
// 2. 每行交给 parser; 列数不足的持仓行丢弃并计数
// 3. 字段默认值不算错误, 只计数
// 4. 全部快照处理完后冻结 Book
//
// TraderID 只分配给被接受的账户, 所以始终从 0 连续递增。

package ingest

import (
	"github.com/pkg/errors"
	"go.uber.org/zap"

	"lens.com/pkg/logger"
	"lens.com/pkg/model"
	"lens.com/pkg/parser"
)

// ErrNoSnapshots 没有可用的快照
var ErrNoSnapshots = errors.New("no snapshots")

// Stats 构建统计
type Stats struct {
	Accounts        int `json:"accounts"`
	Positions       int `json:"positions"`
	Orders          int `json:"orders"`
	MalformedRows   int `json:"malformed_rows"`
	DefaultedFields int `json:"defaulted_fields"`
	DuplicateURLs   int `json:"duplicate_urls"`
	BadSnapshots    int `json:"bad_snapshots"`
}

// Builder 构建器
type Builder struct {
	log *zap.Logger
}

// NewBuilder 创建构建器
func NewBuilder(log *zap.Logger) *Builder {
	log = logger.OrNop(log)
	return &Builder{log: log.Named("ingest")}
}

// Build 把快照组装成只读 Population
func (b *Builder) Build(snapshots []Snapshot) (model.Population, Stats, error) {
	var stats Stats
	if len(snapshots) == 0 {
		return nil, stats, ErrNoSnapshots
	}

	book := model.NewBook()
	seen := make(map[string]struct{}, len(snapshots))

	for i := range snapshots {
		s := &snapshots[i]
		if _, dup := seen[s.URL]; dup {
			stats.DuplicateURLs++
			b.log.Debug("duplicate account skipped", zap.String("url", s.URL))
			continue
		}

		positions, orders, err := b.parseSnapshot(s, &stats)
		if err != nil {
			stats.BadSnapshots++
			b.log.Warn("snapshot skipped", zap.String("url", s.URL), zap.Error(err))
			continue
		}

		if _, err := book.Add(s.URL, positions, orders); err != nil {
			return nil, stats, err
		}
		seen[s.URL] = struct{}{}
		stats.Positions += len(positions)
		stats.Orders += len(orders)
	}

	stats.Accounts = book.Len()
	if stats.Accounts == 0 {
		return nil, stats, ErrNoSnapshots
	}

	b.log.Info("population built",
		zap.Int("accounts", stats.Accounts),
		zap.Int("positions", stats.Positions),
		zap.Int("orders", stats.Orders),
		zap.Int("malformed_rows", stats.MalformedRows),
		zap.Int("defaulted_fields", stats.DefaultedFields))

	return book.Population(), stats, nil
}

func (b *Builder) parseSnapshot(s *Snapshot, stats *Stats) ([]model.Position, []model.Order, error) {
	posRows, err := s.PositionRows()
	if err != nil {
		return nil, nil, err
	}
	ordRows, err := s.OrderRows()
	if err != nil {
		return nil, nil, err
	}

	positions := make([]model.Position, 0, len(posRows))
	for n, cells := range posRows {
		res, err := parser.PositionRow(cells)
		if err != nil {
			stats.MalformedRows++
			b.log.Warn("position row dropped",
				zap.String("url", s.URL),
				zap.Int("row", n),
				zap.Error(err))
			continue
		}
		b.noteIssues(s.URL, n, len(res.Issues), stats)
		positions = append(positions, res.Record)
	}

	orders := make([]model.Order, 0, len(ordRows))
	for n, cells := range ordRows {
		// 挂单行没有列数下限, 缺失的列按默认值解析, 不计入 MalformedRows
		res, _ := parser.OrderRow(cells)
		b.noteIssues(s.URL, n, len(res.Issues), stats)
		orders = append(orders, res.Record)
	}

	return positions, orders, nil
}

func (b *Builder) noteIssues(url string, row, n int, stats *Stats) {
	if n == 0 {
		return
	}
	stats.DefaultedFields += n
	b.log.Debug("fields defaulted",
		zap.String("url", url),
		zap.Int("row", row),
		zap.Int("fields", n))
}
