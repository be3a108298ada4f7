// Package config provides configuration loading and validation for the
// voice note gateway. It handles YAML-based configuration with struct
// validation and environment variable overrides for backend URLs and
// model selection.
package config
