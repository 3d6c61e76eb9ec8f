// Package pcm owns the on-disk sample representation: signed 16-bit mono
// PCM in a RIFF/WAV container.
//
// Encode clips to [-1, 1], scales by 32767 and rounds half to even. Decode
// divides by 32768. The round trip is lossy by at most 1/32768 per sample.
//
// LoadCapture is the gate for recorded audio: it rejects anything that is not
// mono 16-bit PCM at the expected sample rate before analysis sees it.
package pcm
