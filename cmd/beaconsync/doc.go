// Package main hosts the beaconsync CLI entrypoint and command graph.
//
// The Cobra command tree covers protocol generation and inspection, detector
// diagnostics on captured WAV files, single-file and batch alignment of
// recordings, the alignment ledger, and configuration scaffolding. Config
// resolution and logger construction live in the command context so
// subcommands only wire flags to the internal packages.
package main
