package storage

import (
	"bufio"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

const (
	walMagic      uint32 = 0x4B56574C // "KVWL"
	walVersion    uint32 = 1
	walHeaderSize        = 8
	walFileName          = "wal.log"
)

// WAL is the write-ahead log: every mutation is appended here, in the
// exact bytes it will be checksummed with, before it is applied to
// the MemTable. On restart, Replay reconstructs the MemTable from
// this file alone.
//
// Record format (repeated until EOF or truncation):
//
//	klen  uint32 (LE)
//	key   [klen]byte
//	kind  uint8           (KindPut or KindDel)
//	vlen  uint32 (LE)     (0 for KindDel)
//	value [vlen]byte      (absent for KindDel)
//	crc32 uint32 (LE)     (IEEE polynomial, over klen|key|kind|vlen|value above)
//
// Appends are written directly with a single os.File.Write per field
// group rather than through a buffered writer: the engine's write
// path assumes a put/del reaches the OS page cache the instant Append
// returns, with durability deferred to an explicit Sync. Buffering in
// user space would defer that write past the caller's intent.
type WAL struct {
	file *os.File
	path string
	log  *zap.Logger
}

// OpenWAL opens the WAL file in dir, creating and initializing it
// with a fresh header if it does not yet exist. If it exists, its
// header is validated and the file is positioned for appending.
func OpenWAL(dir string, log *zap.Logger) (*WAL, error) {
	if log == nil {
		log = zap.NewNop()
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("wal: mkdir %s: %w", dir, err)
	}
	path := filepath.Join(dir, walFileName)
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, fmt.Errorf("wal: open %s: %w", path, err)
	}
	w := &WAL{file: f, path: path, log: log}
	if err := w.initOrValidateHeader(); err != nil {
		f.Close()
		return nil, err
	}
	return w, nil
}

func (w *WAL) initOrValidateHeader() error {
	info, err := w.file.Stat()
	if err != nil {
		return fmt.Errorf("wal: stat: %w", err)
	}
	if info.Size() == 0 {
		return w.writeHeader()
	}

	hdr := make([]byte, walHeaderSize)
	if _, err := w.file.ReadAt(hdr, 0); err != nil {
		return fmt.Errorf("wal: read header: %w", err)
	}
	magic := binary.LittleEndian.Uint32(hdr[0:4])
	version := binary.LittleEndian.Uint32(hdr[4:8])
	if magic != walMagic || version != walVersion {
		return fmt.Errorf("wal: bad header magic=%#x version=%d: %w", magic, version, ErrFormatViolation)
	}
	if _, err := w.file.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("wal: seek end: %w", err)
	}
	return nil
}

func (w *WAL) writeHeader() error {
	var hdr [walHeaderSize]byte
	binary.LittleEndian.PutUint32(hdr[0:4], walMagic)
	binary.LittleEndian.PutUint32(hdr[4:8], walVersion)
	if _, err := w.file.Write(hdr[:]); err != nil {
		return fmt.Errorf("wal: write header: %w", err)
	}
	return nil
}

// AppendPut appends a Put record for key/value.
func (w *WAL) AppendPut(key, value []byte) error {
	return w.appendRecord(key, KindPut, value)
}

// AppendDel appends a Del record for key.
func (w *WAL) AppendDel(key []byte) error {
	return w.appendRecord(key, KindDel, nil)
}

func (w *WAL) appendRecord(key []byte, kind RecordKind, value []byte) error {
	valueBytes := value
	if kind == KindDel {
		valueBytes = nil
	}

	logical := make([]byte, 0, 4+len(key)+1+4+len(valueBytes))
	var klen, vlen [4]byte
	binary.LittleEndian.PutUint32(klen[:], uint32(len(key)))
	logical = append(logical, klen[:]...)
	logical = append(logical, key...)
	logical = append(logical, byte(kind))
	binary.LittleEndian.PutUint32(vlen[:], uint32(len(valueBytes)))
	logical = append(logical, vlen[:]...)
	logical = append(logical, valueBytes...)

	crc := crc32.ChecksumIEEE(logical)
	var crcBuf [4]byte
	binary.LittleEndian.PutUint32(crcBuf[:], crc)

	if _, err := w.file.Write(logical); err != nil {
		return fmt.Errorf("wal: append record: %w", err)
	}
	if _, err := w.file.Write(crcBuf[:]); err != nil {
		return fmt.Errorf("wal: append crc: %w", err)
	}
	return nil
}

// Sync forces the WAL's contents to stable storage.
func (w *WAL) Sync() error {
	if err := w.file.Sync(); err != nil {
		return fmt.Errorf("wal: sync: %w", err)
	}
	return nil
}

// Reset truncates the WAL back to a bare header, called after a
// successful flush makes the existing records redundant.
func (w *WAL) Reset() error {
	if err := w.file.Truncate(0); err != nil {
		return fmt.Errorf("wal: truncate: %w", err)
	}
	if _, err := w.file.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("wal: seek start: %w", err)
	}
	return w.writeHeader()
}

// Close closes the underlying file.
func (w *WAL) Close() error {
	return w.file.Close()
}

// Replay reads every record from the start of the log (skipping the
// header) and applies it to mem, in file order. It is tail-tolerant:
// a clean EOF at a record boundary, or any short/incomplete read
// partway through a record, stops replay and returns nil — the
// assumption being that the process crashed mid-append, not that the
// file is corrupt. A checksum mismatch is a soft failure: the record
// is logged and skipped, and replay continues. An unknown record type
// byte is a hard failure: the framing itself can no longer be
// trusted, so replay stops and returns an error.
func (w *WAL) Replay(mem *MemTable) error {
	f, err := os.Open(w.path)
	if err != nil {
		return fmt.Errorf("wal: open for replay: %w", err)
	}
	defer f.Close()

	hdr := make([]byte, walHeaderSize)
	if _, err := io.ReadFull(f, hdr); err != nil {
		return fmt.Errorf("wal: read header for replay: %w", err)
	}
	magic := binary.LittleEndian.Uint32(hdr[0:4])
	version := binary.LittleEndian.Uint32(hdr[4:8])
	if magic != walMagic || version != walVersion {
		return fmt.Errorf("wal: bad header magic=%#x version=%d: %w", magic, version, ErrFormatViolation)
	}

	r := bufio.NewReader(f)
	for {
		var klenBuf [4]byte
		if _, err := io.ReadFull(r, klenBuf[:]); err != nil {
			return nil // clean EOF or short read at a record boundary: tail tolerance
		}
		klen := binary.LittleEndian.Uint32(klenBuf[:])

		key := make([]byte, klen)
		if _, err := io.ReadFull(r, key); err != nil {
			return nil
		}

		var kindBuf [1]byte
		if _, err := io.ReadFull(r, kindBuf[:]); err != nil {
			return nil
		}
		kind := RecordKind(kindBuf[0])
		if kind != KindPut && kind != KindDel {
			w.log.Error("wal: unknown record type during replay, stopping",
				zap.Uint8("type", kindBuf[0]))
			return fmt.Errorf("wal: replay: %w", ErrUnknownRecordType)
		}

		var vlenBuf [4]byte
		if _, err := io.ReadFull(r, vlenBuf[:]); err != nil {
			return nil
		}
		vlen := binary.LittleEndian.Uint32(vlenBuf[:])

		var value []byte
		if kind == KindPut {
			value = make([]byte, vlen)
			if _, err := io.ReadFull(r, value); err != nil {
				return nil
			}
		} else if vlen > 0 {
			if _, err := io.CopyN(io.Discard, r, int64(vlen)); err != nil {
				return nil
			}
		}

		var crcBuf [4]byte
		if _, err := io.ReadFull(r, crcBuf[:]); err != nil {
			return nil
		}
		wantCRC := binary.LittleEndian.Uint32(crcBuf[:])

		logical := make([]byte, 0, 4+len(key)+1+4+len(value))
		logical = append(logical, klenBuf[:]...)
		logical = append(logical, key...)
		logical = append(logical, byte(kind))
		logical = append(logical, vlenBuf[:]...)
		if kind == KindPut {
			logical = append(logical, value...)
		}
		gotCRC := crc32.ChecksumIEEE(logical)

		if gotCRC != wantCRC {
			w.log.Warn("wal: checksum mismatch, skipping record",
				zap.Binary("key", key), zap.String("kind", kind.String()))
			continue
		}

		if kind == KindPut {
			mem.Put(key, value)
		} else {
			mem.Del(key)
		}
	}
}
