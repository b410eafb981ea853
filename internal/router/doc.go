// Package router owns the current topology snapshot and turns logical
// addressing requests into concrete URLs, either by node id or through a
// node selection strategy over the healthy set.
package router
