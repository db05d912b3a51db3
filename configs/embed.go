// Package configs provides the embedded configuration template for
// askdocs.
//
// The template is embedded at build time with go:embed so `askdocs
// init` can write a commented starter config in any distribution of
// the binary. The runtime defaults live in internal/config; this file
// only documents them for the user.
package configs

import _ "embed"

// ConfigTemplate is the commented askdocs.yaml starter written by
// `askdocs init`.
//
//go:embed askdocs.example.yaml
var ConfigTemplate string
