// Package config loads the optional getbuf.yaml application configuration.
//
// Loading order: .env and .env.local are read into the process environment
// without overriding existing variables, ${VAR} references in the YAML are
// expanded, defaults are applied per section, then the result is validated.
// A missing file yields the defaults.
package config
