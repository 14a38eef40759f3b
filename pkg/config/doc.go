// Package config defines the root configuration for Meridian and loads
// it from YAML files with default values, environment overrides, and
// field-level validation.
package config
