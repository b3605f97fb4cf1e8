// Package metrics collects in-process counters for engine activity.
//
// Unlike the broker-era version this was adapted from, there is no
// HTTP handler here: exposing a scrape endpoint would give the
// storage engine a network surface it is not supposed to have.
// Snapshot is the only way out; callers (the REPL's "stats" command,
// the TUI's stats panel) read it directly.
package metrics

import (
	"sync/atomic"
	"time"
)

// Metrics accumulates counters for an Engine's lifetime.
type Metrics struct {
	puts    atomic.Uint64
	dels    atomic.Uint64
	gets    atomic.Uint64
	hits    atomic.Uint64
	flushes atomic.Uint64

	bytesWritten atomic.Uint64

	startTime time.Time
}

// New creates a fresh counter set.
func New() *Metrics {
	return &Metrics{startTime: time.Now()}
}

// RecordPut records a successful Put of the given key+value size.
func (m *Metrics) RecordPut(bytes int) {
	m.puts.Add(1)
	m.bytesWritten.Add(uint64(bytes))
}

// RecordDel records a successful Del.
func (m *Metrics) RecordDel() {
	m.dels.Add(1)
}

// RecordGet records a Get, noting whether it resolved to a live
// value.
func (m *Metrics) RecordGet(hit bool) {
	m.gets.Add(1)
	if hit {
		m.hits.Add(1)
	}
}

// RecordFlush records a memtable flush to a new SSTable.
func (m *Metrics) RecordFlush() {
	m.flushes.Add(1)
}

// Snapshot is a point-in-time read of the accumulated counters, plus
// whatever the caller (Engine.Stats) fills in about current state.
type Snapshot struct {
	Puts         uint64
	Dels         uint64
	Gets         uint64
	Hits         uint64
	Flushes      uint64
	BytesWritten uint64
	UptimeSeconds float64

	MemTableBytes   int64
	MemTableEntries int64
	SSTableCount    int
}

// Snapshot returns the current counter values.
func (m *Metrics) Snapshot() Snapshot {
	return Snapshot{
		Puts:          m.puts.Load(),
		Dels:          m.dels.Load(),
		Gets:          m.gets.Load(),
		Hits:          m.hits.Load(),
		Flushes:       m.flushes.Load(),
		BytesWritten:  m.bytesWritten.Load(),
		UptimeSeconds: time.Since(m.startTime).Seconds(),
	}
}
