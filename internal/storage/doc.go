// Package storage provides the delivery journal: an append-only record of
// what each run did with each work item.
//
// Drivers:
//   - "file": JSON Lines file, one delivery per line
//   - "sqlite": SQLite database (modernc.org/sqlite, no cgo)
//
// The journal is write-mostly. Nothing in it is replayed; it is there for
// operators to audit past runs.
package storage
