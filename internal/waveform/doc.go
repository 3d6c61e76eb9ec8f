// Package waveform generates the primitive signals the sync protocol is
// assembled from: silence, constant tones, linear chirps, and edge fades.
//
// Every generator returns a freshly allocated []float64. Nothing in this
// package mutates a slice it was handed.
package waveform
