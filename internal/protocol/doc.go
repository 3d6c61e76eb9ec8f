// Package protocol assembles the ultrasonic synchronization signal.
//
// A protocol is a fixed sequence of segments:
//
//	initial silence | beacon | guard | chirp train | guard | beacon | tail
//
// The chirp train is one active block repeated Config.CyclesTotal times. An
// active block tiles whole chirp+gap cycles and pads the remainder with a
// truncated cycle so its length is exactly round(ActiveSecs*SampleRate).
//
// Key types:
//   - Config: immutable protocol parameters, validated by New
//   - Synthesizer: builds the waveform and its segment layout
//   - Layout: sample offsets of every segment, used by inspection tooling
package protocol
