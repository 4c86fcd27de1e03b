// Package ids hands out time-sortable snowflake identifiers.
package ids

import (
	"messenger/domain"

	"github.com/bwmarrin/snowflake"
)

// Epoch is 2023-10-01T00:00:00Z in milliseconds.
const Epoch int64 = 1696118400000

type IGenerator interface {
	Next() domain.ID
}

// Generator is safe for concurrent use, snowflake.Node guards its sequence with a mutex.
type Generator struct {
	node *snowflake.Node
}

func NewGenerator(nodeID int64) (*Generator, error) {
	snowflake.Epoch = Epoch
	node, err := snowflake.NewNode(nodeID)
	if err != nil {
		return nil, err
	}
	return &Generator{node: node}, nil
}

func (g *Generator) Next() domain.ID {
	return domain.ID(g.node.Generate().Int64())
}
