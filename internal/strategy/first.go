package strategy

import (
	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
)

type firstStrategy struct{}

// NewFirstStrategy always picks the first candidate. Useful when callers
// want sticky, predictable addressing.
func NewFirstStrategy() Strategy {
	return &firstStrategy{}
}

func (f *firstStrategy) Select(nodes []cluster.Node) (cluster.Node, bool) {
	if len(nodes) == 0 {
		return cluster.Node{}, false
	}

	return nodes[0], true
}
