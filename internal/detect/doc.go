// Package detect recovers alignment timestamps from captured protocol audio.
//
// Two independent strategies are provided:
//
//   - Beacon: band-limit around the beacon tone with a zero-phase
//     Butterworth filter, take the Hilbert envelope, threshold it and report
//     the first and last crossing moved inward by the minimum beacon length.
//   - Chirp: band-limited STFT, onset spectral flux, mean+2*stddev threshold,
//     distance-suppressed peak picking, then a window between two chirps
//     chosen by index.
//
// Detectors are pure functions of (samples, sample rate, params). They keep
// no state and may run concurrently on different captures. Thresholds are
// statistics over the whole buffer, so the input must be fully loaded.
package detect
