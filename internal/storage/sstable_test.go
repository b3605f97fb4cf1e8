package storage

import (
	"fmt"
	"path/filepath"
	"testing"
)

func entriesOf(pairs ...[2]string) []Entry {
	out := make([]Entry, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, Entry{Key: []byte(p[0]), Value: MemValue{Kind: KindPut, Value: []byte(p[1])}})
	}
	return out
}

func TestBuildAndOpenSSTable(t *testing.T) {
	dir := t.TempDir()

	entries := entriesOf([2]string{"apple", "red"}, [2]string{"banana", "yellow"}, [2]string{"cherry", "dark-red"})

	path, err := BuildSSTable(dir, 1, entries)
	if err != nil {
		t.Fatal(err)
	}

	sst, err := OpenSSTable(path)
	if err != nil {
		t.Fatal(err)
	}

	if v, found := sst.Get([]byte("banana")); !found || string(v) != "yellow" {
		t.Errorf("expected yellow, got %s found=%v", v, found)
	}
	if _, found := sst.Get([]byte("grape")); found {
		t.Error("expected grape to be absent")
	}
	if sst.FileID() != 1 {
		t.Errorf("expected file id 1, got %d", sst.FileID())
	}
}

func TestBuildSSTableRejectsUnorderedEntries(t *testing.T) {
	dir := t.TempDir()
	entries := entriesOf([2]string{"banana", "yellow"}, [2]string{"apple", "red"})

	if _, err := BuildSSTable(dir, 1, entries); err == nil {
		t.Fatal("expected an error for out-of-order entries")
	}
}

func TestBuildSSTableRejectsDuplicateKeys(t *testing.T) {
	dir := t.TempDir()
	entries := entriesOf([2]string{"apple", "red"}, [2]string{"apple", "green"})

	if _, err := BuildSSTable(dir, 1, entries); err == nil {
		t.Fatal("expected an error for duplicate adjacent keys (not strictly ascending)")
	}
}

func TestSSTableProbeDistinguishesTombstoneFromAbsent(t *testing.T) {
	dir := t.TempDir()
	entries := []Entry{
		{Key: []byte("alive"), Value: MemValue{Kind: KindPut, Value: []byte("v")}},
		{Key: []byte("dead"), Value: MemValue{Kind: KindDel}},
	}

	path, err := BuildSSTable(dir, 1, entries)
	if err != nil {
		t.Fatal(err)
	}
	sst, err := OpenSSTable(path)
	if err != nil {
		t.Fatal(err)
	}

	if result, _ := sst.Probe([]byte("dead")); result != ProbeTombstone {
		t.Errorf("expected ProbeTombstone, got %v", result)
	}
	if result, _ := sst.Probe([]byte("never-written")); result != ProbeAbsent {
		t.Errorf("expected ProbeAbsent, got %v", result)
	}
	if result, v := sst.Probe([]byte("alive")); result != ProbePut || string(v) != "v" {
		t.Errorf("expected ProbePut(v), got %v %q", result, v)
	}
}

func TestSSTableSparseIndexBoundary(t *testing.T) {
	dir := t.TempDir()

	n := 130
	entries := make([]Entry, 0, n)
	for i := 0; i < n; i++ {
		key := []byte(fmt.Sprintf("key%06d", i))
		entries = append(entries, Entry{Key: key, Value: MemValue{Kind: KindPut, Value: key}})
	}

	path, err := BuildSSTable(dir, 1, entries)
	if err != nil {
		t.Fatal(err)
	}
	sst, err := OpenSSTable(path)
	if err != nil {
		t.Fatal(err)
	}

	wantIndexCount := (n + sstIndexEvery - 1) / sstIndexEvery
	if sst.IndexEntries() != wantIndexCount {
		t.Errorf("expected %d sparse index entries for %d rows, got %d", wantIndexCount, n, sst.IndexEntries())
	}

	for _, i := range []int{0, 1, 63, 64, 65, 128, 129} {
		key := []byte(fmt.Sprintf("key%06d", i))
		v, found := sst.Get(key)
		if !found || string(v) != string(key) {
			t.Errorf("key index %d: expected %s, got %s found=%v", i, key, v, found)
		}
	}

	if _, found := sst.Get([]byte("key999999")); found {
		t.Error("expected out-of-range key to be absent")
	}
}

func TestSSTableFileNaming(t *testing.T) {
	dir := t.TempDir()
	entries := entriesOf([2]string{"a", "1"})

	path, err := BuildSSTable(dir, 42, entries)
	if err != nil {
		t.Fatal(err)
	}

	want := fmt.Sprintf("%s/000042.sst", dir)
	if path != want {
		t.Errorf("expected path %s, got %s", want, path)
	}

	sst, err := OpenSSTable(path)
	if err != nil {
		t.Fatal(err)
	}
	if sst.FileID() != 42 {
		t.Errorf("expected file id 42, got %d", sst.FileID())
	}
}

func TestBuildSSTableLeavesNoTempFileBehindOnSuccess(t *testing.T) {
	dir := t.TempDir()
	entries := entriesOf([2]string{"a", "1"})

	if _, err := BuildSSTable(dir, 1, entries); err != nil {
		t.Fatal(err)
	}

	matches, _ := filepath.Glob(filepath.Join(dir, "tmp_*.sst"))
	if len(matches) != 0 {
		t.Errorf("expected no leftover temp files, found %v", matches)
	}
}
