// Package strategy defines the node selection interface and implements the
// selection algorithms:
//
//   - Round Robin: sequential distribution across nodes via a persistent counter
//   - Random: uniform random node selection
//   - First: always the first node, for sticky addressing
//
// Strategies select over whatever candidate list the caller passes in;
// health filtering happens upstream.
package strategy
