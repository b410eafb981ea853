// Package admin contains the operational HTTP API of the gateway: topology
// inspection, on-demand probing, detection option rewrites, and URL
// resolution for debugging.
package admin
