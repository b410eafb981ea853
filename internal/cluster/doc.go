// Package cluster defines the node descriptors shared by the topology
// resolver, the health prober and the request router.
package cluster
