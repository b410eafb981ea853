package strategy

import (
	"sync/atomic"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
)

type roundRobinStrategy struct {
	current uint64
}

// NewRoundRobinStrategy cycles through the candidate list in order. The
// counter persists across calls, so consecutive selections over a stable
// list visit every node once before repeating.
func NewRoundRobinStrategy() Strategy {
	return &roundRobinStrategy{
		current: 0,
	}
}

func (rb *roundRobinStrategy) Select(nodes []cluster.Node) (cluster.Node, bool) {
	if len(nodes) == 0 {
		return cluster.Node{}, false
	}

	n := atomic.AddUint64(&rb.current, 1)

	index := (n - 1) % uint64(len(nodes))

	return nodes[index], true
}
