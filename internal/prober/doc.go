// Package prober implements concurrent, time-bounded health probing of the
// node set in a topology snapshot. Probe failures exclude a node but are
// never fatal; a round where every node fails degrades to the full
// candidate list.
package prober
