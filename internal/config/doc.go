// Package config loads relay configuration from YAML files.
//
// Values wrapped in ${VAR} are expanded from the environment before parsing.
// Load reads the raw file, LoadWithDefaults fills in optional fields, and
// LoadAndValidate additionally rejects incomplete configurations.
package config
