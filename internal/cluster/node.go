package cluster

import (
	"fmt"
	"net/url"
)

// Node is an immutable descriptor for a single catalog node: where the node
// serves requests and where it reports its health.
type Node struct {
	ID             int
	Name           string
	BaseURL        *url.URL
	HealthCheckURL *url.URL
}

// New builds a Node from its base URL. The health check URL is derived by
// appending healthSuffix to the base path.
func New(id int, name string, base *url.URL, healthSuffix string) Node {
	return Node{
		ID:             id,
		Name:           name,
		BaseURL:        base,
		HealthCheckURL: base.JoinPath(healthSuffix),
	}
}

// String returns a short human readable form used in logs.
func (n Node) String() string {
	return fmt.Sprintf("%s (%s)", n.Name, n.BaseURL)
}

// Clone returns a copy of the node whose URL fields can be mutated without
// affecting the original.
func (n Node) Clone() Node {
	c := n
	if n.BaseURL != nil {
		u := *n.BaseURL
		c.BaseURL = &u
	}
	if n.HealthCheckURL != nil {
		u := *n.HealthCheckURL
		c.HealthCheckURL = &u
	}
	return c
}

// CloneAll returns a deep copy of the given node slice.
func CloneAll(nodes []Node) []Node {
	if nodes == nil {
		return nil
	}
	out := make([]Node, len(nodes))
	for i, n := range nodes {
		out[i] = n.Clone()
	}
	return out
}

// IDs returns the ids of the given nodes in order.
func IDs(nodes []Node) []int {
	ids := make([]int, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

// Names returns the names of the given nodes in order.
func Names(nodes []Node) []string {
	names := make([]string, len(nodes))
	for i, n := range nodes {
		names[i] = n.Name
	}
	return names
}
