// Package features embeds the bundled Gherkin feature files so the binary
// can run them without a checkout.
package features

import "embed"

// FS holds every *.feature file of this directory.
//
//go:embed *.feature
var FS embed.FS
