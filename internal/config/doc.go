// Package config loads application configuration from the environment.
package config
