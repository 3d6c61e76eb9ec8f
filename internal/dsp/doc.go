// Package dsp contains the numeric kernels the detectors are built from.
//
// Key entry points:
//   - ButterworthBandpass: digital band-pass design as second-order sections
//   - FiltFilt: zero-phase forward/backward filtering with odd-extension
//     padding and steady-state initial conditions
//   - Envelope: magnitude of the analytic signal (FFT Hilbert transform)
//   - MagnitudeSpectrogram: centered short-time magnitude spectrum with a
//     periodic Hann window, optionally restricted to a frequency band
//
// All functions operate on fully materialized buffers and never modify their
// inputs. FFTs come from gonum's dsp/fourier package.
package dsp
