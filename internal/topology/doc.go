// Package topology detects how the catalog frontend reaches its backend
// cluster. It classifies the deployment into direct-port, path-routed or
// port-routed mode and synthesizes an immutable snapshot of node
// descriptors for the active mode.
package topology
