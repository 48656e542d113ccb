// Package servercard embeds the annotated default configuration.
//
// [DefaultConfigTOML] is written by cmd/genconfig from
// config.ExampleConfig and served by `servercard --print-config` as a
// starting point for a servercard.toml.
package servercard

import _ "embed"

// DefaultConfigTOML holds the raw bytes of config.default.toml, embedded at
// build time.
//
//go:embed config.default.toml
var DefaultConfigTOML []byte
