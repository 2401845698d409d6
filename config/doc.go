// Package config loads YAML run-configuration files for the sritool CLI.
// A config file can carry the same settings as the command-line flags;
// explicit flags take precedence over file values.
package config
