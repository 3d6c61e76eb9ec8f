// Package batch aligns every recording under a directory.
//
// A Runner discovers sources by extension, plans one output per source,
// skips sources the ledger already marks as aligned when their output still
// exists, and feeds the rest to a fixed pool of workers. Each output is
// guarded by an advisory lock file so two runners over the same tree never
// write the same file.
package batch
