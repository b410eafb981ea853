package topology

import (
	"fmt"

	"github.com/georgeGeorgakakos/optimusddc-sub000/internal/cluster"
)

// Mode names the strategy by which logical node ids map to reachable URLs.
type Mode string

const (
	// ModeDirectPort addresses each node on localhost with its own port.
	ModeDirectPort Mode = "direct_port"
	// ModePathRouted addresses each node as a path under the frontend origin.
	ModePathRouted Mode = "path_routed"
	// ModePortRouted addresses each node on the frontend hostname with its
	// own port.
	ModePortRouted Mode = "port_routed"
)

// Override forces a cluster topology regardless of what detection would
// pick on its own.
type Override string

const (
	OverrideAuto       Override = "auto"
	OverridePathRouted Override = "path_routed"
	OverridePortRouted Override = "port_routed"
)

// ParseOverride maps a configuration value onto an Override. The empty
// string means auto.
func ParseOverride(s string) (Override, error) {
	switch Override(s) {
	case OverrideAuto, OverridePathRouted, OverridePortRouted:
		return Override(s), nil
	case "":
		return OverrideAuto, nil
	}
	return "", fmt.Errorf("unknown topology override %q", s)
}

// Options is the caller-settable part of topology detection.
type Options struct {
	Override Override
}

// Snapshot is one complete view of the cluster topology. A snapshot is
// immutable once built and replaced wholesale on re-detection, never patched
// field by field.
type Snapshot struct {
	Mode            Mode
	FrontendBaseURL string
	Nodes           []cluster.Node
}

// UsesPathRouting reports whether node URLs live under the frontend origin.
func (s *Snapshot) UsesPathRouting() bool {
	return s.Mode == ModePathRouted
}

// UsesPortRouting reports whether node URLs reuse the frontend hostname with
// a per-node port.
func (s *Snapshot) UsesPortRouting() bool {
	return s.Mode == ModePortRouted
}

// Node returns the node with the given id.
func (s *Snapshot) Node(id int) (cluster.Node, bool) {
	for _, n := range s.Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return cluster.Node{}, false
}

// Clone returns a deep copy of the snapshot.
func (s *Snapshot) Clone() *Snapshot {
	if s == nil {
		return nil
	}
	c := *s
	c.Nodes = cluster.CloneAll(s.Nodes)
	return &c
}
