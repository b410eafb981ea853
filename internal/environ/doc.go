// Package environ abstracts where the catalog frontend is served from.
// Topology detection consumes a Provider instead of reading ambient process
// state directly.
package environ
