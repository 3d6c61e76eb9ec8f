// Package ledger records per-file alignment outcomes in SQLite.
//
// Each source path owns one row that is overwritten on every attempt, so the
// ledger answers "was this file aligned, and where did the cut land" without
// rescanning outputs. The batch runner uses it to skip finished sources and
// the history command renders it.
package ledger
