// Package config handles loading, validation, and access to tankwatch
// configuration.
//
// Configuration is read from a YAML file with hardcoded defaults and
// TANKWATCH_* environment variable overrides, in that precedence order.
// The topic table for the tank broker is deliberately NOT configuration:
// it is a fixed contract owned by the session package.
package config
