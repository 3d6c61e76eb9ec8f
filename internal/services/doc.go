// Package services defines shared utilities consumed by the alignment
// pipeline and its command-line front end.
//
// Key responsibilities:
//   - Context helpers that stamp run identifiers, source paths, and stage
//     names for logging.
//   - Structured error markers plus the Wrap helper, and KindOf which turns
//     a wrapped failure into the classification stored in the ledger.
package services
