// Package ffprobe provides a typed wrapper around ffprobe JSON output.
//
// The aligner probes every recording before extraction to confirm it has an
// audio stream and to learn its duration, which bounds the crop window.
//
// Primary entry point:
//   - Inspect: executes ffprobe and returns parsed Result
//
// Helper methods on Result provide stream lookups and numeric parsing of the
// string-typed fields ffprobe emits.
package ffprobe
