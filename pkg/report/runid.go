// 文件: pkg/report/runid.go
// 运行 ID 生成器
// 使用开源库: github.com/bwmarrin/snowflake

package report

import (
	"github.com/bwmarrin/snowflake"
	"github.com/pkg/errors"
)

// IDGenerator 雪花算法 ID 生成器
type IDGenerator struct {
	node *snowflake.Node
}

// NewIDGenerator 创建生成器
// nodeID: 节点ID (0-1023)
func NewIDGenerator(nodeID int64) (*IDGenerator, error) {
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, errors.Wrapf(err, "snowflake node %d", nodeID)
	}
	return &IDGenerator{node: node}, nil
}

// Next 生成新的运行 ID (base58, 便于放进主题名和日志)
func (g *IDGenerator) Next() string {
	return g.node.Generate().Base58()
}
