// Package logging assembles the slog loggers used by the beaconsync commands.
//
// It owns the console and JSON handlers, level and output plumbing, and the
// tee that mirrors command output into the log directory. Context helpers
// tag records with the run id, source recording, and pipeline stage stamped
// by the services package.
package logging
