// Package config handles loading and parsing of configuration from YAML files
// and environment variables. It defines the tracker cap, dispatch settings,
// logging options, and the seed server list.
package config
