// Package gateway implements the HTTP entry point that forwards catalog
// requests to cluster nodes, with per-node circuit breaking and request
// tracing headers.
package gateway
