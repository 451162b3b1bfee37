// Package config defines the application configuration structure and loads
// it from environment variables (CARDS_ prefix) and optional config files.
package config
