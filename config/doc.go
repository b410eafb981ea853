// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the application configuration structure
// including server addresses, topology constants, health probing, companion
// service addressing, proxying, and the optional probe-result cache.
package config
