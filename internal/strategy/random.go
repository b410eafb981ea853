package strategy

import (
	"math/rand/v2"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
)

type randomStrategy struct{}

// NewRandomStrategy picks uniformly over the candidate list.
func NewRandomStrategy() Strategy {
	return &randomStrategy{}
}

func (r *randomStrategy) Select(nodes []cluster.Node) (cluster.Node, bool) {
	if len(nodes) == 0 {
		return cluster.Node{}, false
	}

	index := rand.IntN(len(nodes))
	return nodes[index], true
}
