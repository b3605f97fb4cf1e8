// Package storage implements a single-node, embeddable key-value
// store built on the log-structured merge pattern: writes land first
// in a write-ahead log, then an in-memory MemTable; once the MemTable
// grows past a threshold it is flushed to an immutable, sorted
// SSTable on disk.
//
// Architecture:
//
//	┌───────────────────────────────────────────────────────────┐
//	│                         Engine                             │
//	├───────────────────────────────────────────────────────────┤
//	│  Write path:  Put/Del → WAL.Append → MemTable → (flush?)   │
//	│  Read path:   Get → MemTable → newest SSTable → ... → oldest│
//	├───────────────────────────────────────────────────────────┤
//	│  Flush:  MemTable snapshot → BuildSSTable → WAL.Reset       │
//	└───────────────────────────────────────────────────────────┘
//
// The engine is single-threaded by design: there is no internal
// locking, no background goroutine, and no async I/O anywhere in this
// package. Every operation runs to completion on the caller's
// goroutine. Concurrent access from multiple goroutines is the
// caller's responsibility, and is out of scope here, as are range
// scans, compaction, transactions, and replication.
//
// Key components:
//   - MemTable: an ordered, skip-list-backed map of the most recent
//     mutation per key.
//   - WAL: a checksummed, append-only log replayed on open to rebuild
//     the MemTable after a restart.
//   - SSTable: an immutable, sorted on-disk file with a sparse index,
//     produced by flushing a MemTable snapshot.
//   - Engine: the façade that wires the three together and owns the
//     newest-to-oldest chain of SSTables.
package storage
