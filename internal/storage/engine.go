package storage

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/kvengine/kvengine/internal/metrics"
)

// DefaultFlushBytes is the MemTable size, in bytes, at which a Put or
// Del triggers an automatic flush to a new SSTable.
const DefaultFlushBytes int64 = 4 * 1024 * 1024

// EngineConfig configures an Engine at Open time.
type EngineConfig struct {
	// FlushBytes is the MemTable byte threshold that triggers a
	// flush. Zero or negative selects DefaultFlushBytes.
	FlushBytes int64
	// Logger receives structured events: soft failures during WAL
	// replay, orphan temp-file cleanup, flush lifecycle. Defaults to
	// a no-op logger.
	Logger *zap.Logger
	// Metrics accumulates put/get/del/flush counters. Defaults to a
	// fresh, private counter set.
	Metrics *metrics.Metrics
}

// Engine is the façade that coordinates the WAL, the MemTable, and
// the chain of on-disk SSTables. It is single-threaded: there is no
// internal locking anywhere in this package, and every method here
// runs to completion on the caller's goroutine. Using an Engine from
// more than one goroutine concurrently is undefined.
type Engine struct {
	dir    string
	cfg    EngineConfig
	mem    *MemTable
	wal    *WAL
	tables []*SSTable // newest first
	nextID uint64
	log    *zap.Logger
	mtr    *metrics.Metrics
	closed bool
}

// Open opens (or creates) an engine rooted at dir: it ensures the
// directory exists, sweeps any orphaned tmp_*.sst files left behind
// by a crash mid-flush, loads existing SSTables newest-to-oldest,
// opens the WAL, and replays it into a fresh MemTable.
func Open(dir string, cfg EngineConfig) (*Engine, error) {
	if cfg.FlushBytes <= 0 {
		cfg.FlushBytes = DefaultFlushBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("engine: mkdir %s: %w", dir, err)
	}

	sweepOrphanTempFiles(dir, cfg.Logger)

	tables, maxID, err := loadSSTables(dir, cfg.Logger)
	if err != nil {
		return nil, err
	}

	wal, err := OpenWAL(dir, cfg.Logger)
	if err != nil {
		return nil, err
	}

	e := &Engine{
		dir:    dir,
		cfg:    cfg,
		mem:    NewMemTable(),
		wal:    wal,
		tables: tables,
		nextID: maxID + 1,
		log:    cfg.Logger,
		mtr:    cfg.Metrics,
	}

	if err := wal.Replay(e.mem); err != nil {
		wal.Close()
		return nil, fmt.Errorf("engine: replay wal: %w", err)
	}

	e.log.Info("engine opened",
		zap.String("dir", dir),
		zap.Int("sstables", len(tables)),
		zap.Int("memtable_entries", e.mem.Len()))

	return e, nil
}

// sweepOrphanTempFiles removes tmp_NNNNNN.sst files left behind by a
// build that crashed before the rename into place. These are always
// safe to discard: BuildSSTable never makes a temp file visible under
// its final name until the write, fsync, and rename have all
// succeeded.
func sweepOrphanTempFiles(dir string, log *zap.Logger) {
	matches, err := filepath.Glob(filepath.Join(dir, "tmp_*.sst"))
	if err != nil {
		return
	}
	for _, m := range matches {
		if err := os.Remove(m); err != nil {
			log.Warn("engine: failed to remove orphan temp file", zap.String("path", m), zap.Error(err))
			continue
		}
		log.Info("engine: removed orphan temp file", zap.String("path", m))
	}
}

func loadSSTables(dir string, log *zap.Logger) ([]*SSTable, uint64, error) {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return nil, 0, fmt.Errorf("engine: read dir %s: %w", dir, err)
	}

	type idPath struct {
		id   uint64
		path string
	}
	var found []idPath
	var maxID uint64

	for _, ent := range ents {
		if ent.IsDir() {
			continue
		}
		name := ent.Name()
		if !strings.HasSuffix(name, ".sst") || strings.HasPrefix(name, "tmp_") {
			continue
		}
		stem := strings.TrimSuffix(name, ".sst")
		id, err := strconv.ParseUint(stem, 10, 64)
		if err != nil {
			continue
		}
		if id > maxID {
			maxID = id
		}
		found = append(found, idPath{id: id, path: filepath.Join(dir, name)})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].id > found[j].id })

	tables := make([]*SSTable, 0, len(found))
	for _, fp := range found {
		t, err := OpenSSTable(fp.path)
		if err != nil {
			log.Warn("engine: skipping sstable that failed to open", zap.String("path", fp.path), zap.Error(err))
			continue
		}
		tables = append(tables, t)
	}
	return tables, maxID, nil
}

// Put records key as holding value. The WAL is appended before the
// MemTable is updated, and the MemTable before any threshold-driven
// flush, so a crash at any point leaves the store in a state Open can
// recover from cleanly.
func (e *Engine) Put(key, value []byte) error {
	if e.closed {
		return ErrClosed
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if err := e.wal.AppendPut(key, value); err != nil {
		return err
	}
	e.mem.Put(key, value)
	e.mtr.RecordPut(len(key) + len(value))
	return e.flushIfNeeded()
}

// Del records key as deleted.
func (e *Engine) Del(key []byte) error {
	if e.closed {
		return ErrClosed
	}
	if len(key) == 0 {
		return ErrEmptyKey
	}
	if err := e.wal.AppendDel(key); err != nil {
		return err
	}
	e.mem.Del(key)
	e.mtr.RecordDel()
	return e.flushIfNeeded()
}

func (e *Engine) flushIfNeeded() error {
	if e.mem.Bytes() >= e.cfg.FlushBytes {
		return e.Flush()
	}
	return nil
}

// Get resolves key by checking the MemTable first, then each SSTable
// from newest to oldest. A tombstone at any layer is a definitive
// negative answer: it occludes whatever an older layer holds for the
// same key.
func (e *Engine) Get(key []byte) ([]byte, bool) {
	if v, ok := e.mem.Get(key); ok {
		hit := v.Kind == KindPut
		e.mtr.RecordGet(hit)
		if !hit {
			return nil, false
		}
		return v.Value, true
	}

	for _, t := range e.tables {
		switch result, value := t.Probe(key); result {
		case ProbePut:
			e.mtr.RecordGet(true)
			return value, true
		case ProbeTombstone:
			e.mtr.RecordGet(false)
			return nil, false
		}
	}

	e.mtr.RecordGet(false)
	return nil, false
}

// Flush snapshots the current MemTable, writes it out as a new
// SSTable (becoming the newest table in the chain), and resets the
// WAL. A Flush of an empty MemTable is a no-op.
func (e *Engine) Flush() error {
	if e.closed {
		return ErrClosed
	}
	entries := e.mem.Snapshot(nil)
	if len(entries) == 0 {
		return nil
	}

	sort.Slice(entries, func(i, j int) bool { return bytes.Compare(entries[i].Key, entries[j].Key) < 0 })
	entries = dedupAdjacent(entries)

	id := e.nextID
	path, err := BuildSSTable(e.dir, id, entries)
	if err != nil {
		return fmt.Errorf("engine: build sstable: %w", err)
	}

	t, err := OpenSSTable(path)
	if err != nil {
		return fmt.Errorf("engine: open new sstable: %w", err)
	}

	e.tables = append([]*SSTable{t}, e.tables...)
	e.nextID = id + 1

	if err := e.wal.Reset(); err != nil {
		return fmt.Errorf("engine: reset wal: %w", err)
	}
	e.mem.Clear()
	e.mtr.RecordFlush()

	e.log.Info("flushed memtable to sstable",
		zap.Uint64("file_id", id), zap.Int("entries", len(entries)))
	return nil
}

// dedupAdjacent collapses runs of equal keys, keeping the last one.
// MemTable.Snapshot never produces duplicates on its own (the skip
// list holds one node per key), but this keeps Flush correct even if
// a future caller feeds BuildSSTable a hand-assembled entry slice.
func dedupAdjacent(entries []Entry) []Entry {
	if len(entries) == 0 {
		return entries
	}
	out := entries[:1]
	for _, e := range entries[1:] {
		if !bytes.Equal(e.Key, out[len(out)-1].Key) {
			out = append(out, e)
		} else {
			out[len(out)-1] = e
		}
	}
	return out
}

// Sync forces the WAL to stable storage. SSTables are already fsynced
// durably as part of BuildSSTable; this only matters for mutations
// still sitting in the current MemTable/WAL.
func (e *Engine) Sync() error {
	if e.closed {
		return ErrClosed
	}
	return e.wal.Sync()
}

// TableInfo describes one SSTable in the engine's chain, newest
// first, for diagnostics (the REPL's "list" command, the TUI's table
// browser).
type TableInfo struct {
	Path         string
	FileID       uint64
	IndexEntries int
}

// ListTables returns every SSTable currently in the chain, newest
// first.
func (e *Engine) ListTables() []TableInfo {
	out := make([]TableInfo, 0, len(e.tables))
	for _, t := range e.tables {
		out = append(out, TableInfo{Path: t.Path(), FileID: t.FileID(), IndexEntries: t.IndexEntries()})
	}
	return out
}

// Stats returns a snapshot of engine activity counters plus the
// current MemTable/SSTable state.
func (e *Engine) Stats() metrics.Snapshot {
	snap := e.mtr.Snapshot()
	snap.MemTableBytes = e.mem.Bytes()
	snap.MemTableEntries = int64(e.mem.Len())
	snap.SSTableCount = len(e.tables)
	return snap
}

// Close closes the WAL file handle. It does not flush the MemTable;
// callers that want durability for in-memory mutations should call
// Flush or Sync first.
func (e *Engine) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	return e.wal.Close()
}
