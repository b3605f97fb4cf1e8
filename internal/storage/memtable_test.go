package storage

import (
	"fmt"
	"testing"
)

func TestMemTablePutGet(t *testing.T) {
	m := NewMemTable()

	m.Put([]byte("foo"), []byte("bar"))
	v, found := m.Get([]byte("foo"))
	if !found || v.Kind != KindPut || string(v.Value) != "bar" {
		t.Fatalf("expected put(bar), got %+v found=%v", v, found)
	}

	if _, found := m.Get([]byte("missing")); found {
		t.Error("expected missing key to be absent")
	}
}

func TestMemTableOverwrite(t *testing.T) {
	m := NewMemTable()

	m.Put([]byte("key"), []byte("first"))
	m.Put([]byte("key"), []byte("second"))

	v, found := m.Get([]byte("key"))
	if !found || string(v.Value) != "second" {
		t.Fatalf("expected second, got %+v", v)
	}
	if m.Len() != 1 {
		t.Errorf("expected 1 distinct key, got %d", m.Len())
	}
}

func TestMemTableDelIsDefinitive(t *testing.T) {
	m := NewMemTable()

	m.Put([]byte("key"), []byte("value"))
	m.Del([]byte("key"))

	v, found := m.Get([]byte("key"))
	if !found {
		t.Fatal("expected a tombstone entry to still be found")
	}
	if v.Kind != KindDel {
		t.Errorf("expected KindDel, got %v", v.Kind)
	}
}

func TestMemTableDelOfAbsentKeyRecordsTombstone(t *testing.T) {
	m := NewMemTable()

	m.Del([]byte("never-existed"))

	v, found := m.Get([]byte("never-existed"))
	if !found || v.Kind != KindDel {
		t.Fatalf("expected a tombstone entry, got %+v found=%v", v, found)
	}
}

func TestMemTableBytesAccounting(t *testing.T) {
	m := NewMemTable()

	m.Put([]byte("ab"), []byte("cdef")) // 2 + 4 + 2 = 8
	if got := m.Bytes(); got != 8 {
		t.Errorf("expected 8 bytes, got %d", got)
	}

	m.Put([]byte("ab"), []byte("x")) // overwrite: 2 + 1 + 2 = 5
	if got := m.Bytes(); got != 5 {
		t.Errorf("expected 5 bytes after overwrite, got %d", got)
	}

	m.Del([]byte("ab")) // tombstone: 2 + 0 + 2 = 4
	if got := m.Bytes(); got != 4 {
		t.Errorf("expected 4 bytes after delete, got %d", got)
	}
}

func TestMemTableClear(t *testing.T) {
	m := NewMemTable()
	m.Put([]byte("a"), []byte("1"))
	m.Put([]byte("b"), []byte("2"))

	m.Clear()

	if m.Len() != 0 || m.Bytes() != 0 {
		t.Errorf("expected empty memtable after Clear, got len=%d bytes=%d", m.Len(), m.Bytes())
	}
	if _, found := m.Get([]byte("a")); found {
		t.Error("expected no entries after Clear")
	}
}

func TestMemTableSnapshotIsSortedAscending(t *testing.T) {
	m := NewMemTable()
	for _, k := range []string{"delta", "alpha", "charlie", "bravo"} {
		m.Put([]byte(k), []byte(k))
	}

	entries := m.Snapshot(nil)
	want := []string{"alpha", "bravo", "charlie", "delta"}
	if len(entries) != len(want) {
		t.Fatalf("expected %d entries, got %d", len(want), len(entries))
	}
	for i, e := range entries {
		if string(e.Key) != want[i] {
			t.Errorf("position %d: expected %s, got %s", i, want[i], e.Key)
		}
	}
}

func TestMemTableManyKeysStayOrdered(t *testing.T) {
	m := NewMemTable()
	n := 500
	for i := n - 1; i >= 0; i-- {
		key := []byte(fmt.Sprintf("key%06d", i))
		m.Put(key, key)
	}

	entries := m.Snapshot(nil)
	if len(entries) != n {
		t.Fatalf("expected %d entries, got %d", n, len(entries))
	}
	for i := 1; i < len(entries); i++ {
		if string(entries[i-1].Key) >= string(entries[i].Key) {
			t.Fatalf("snapshot not strictly ascending at %d: %s >= %s", i, entries[i-1].Key, entries[i].Key)
		}
	}
}
