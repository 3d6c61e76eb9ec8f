// Package align turns a recording into a trimmed output whose first frame
// sits on the shared sync origin.
//
// An Aligner probes the source, extracts a mono capture at the protocol
// sample rate, runs the configured detectors, checks that the chosen window
// fits inside the capture, and trims the source. Every attempt, successful or
// not, is written to the ledger when one is attached. The aligner never
// retries; a failure aborts that file only.
package align
