// Package config loads application configuration from environment
// variables (prefix MUNIFLOW) merged with an optional YAML file.
// Environment values take precedence over file values; defaults are
// declared on struct tags and validated on load.
package config
