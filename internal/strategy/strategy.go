package strategy

import (
	"fmt"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
)

// Names accepted by New.
const (
	RoundRobin = "round-robin"
	Random     = "random"
	First      = "first"
)

// Strategy picks one node out of a candidate list. Implementations must be
// safe for concurrent use.
type Strategy interface {
	Select(nodes []cluster.Node) (cluster.Node, bool)
}

// New returns the strategy registered under the given name.
func New(name string) (Strategy, error) {
	switch name {
	case RoundRobin:
		return NewRoundRobinStrategy(), nil
	case Random:
		return NewRandomStrategy(), nil
	case First:
		return NewFirstStrategy(), nil
	}
	return nil, fmt.Errorf("unknown strategy %q", name)
}

// Names lists every registered strategy name.
func Names() []string {
	return []string{RoundRobin, Random, First}
}
