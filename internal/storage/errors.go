package storage

import "errors"

// Sentinel errors shared across the MemTable, WAL, SSTable, and Engine
// types. Callers should use errors.Is against these rather than
// matching on formatted text.
var (
	// ErrEmptyKey is returned by Engine.Put/Del for a zero-length key.
	ErrEmptyKey = errors.New("storage: key must not be empty")

	// ErrFormatViolation marks a structural problem with a file that
	// cannot be explained by ordinary crash-truncation: a bad magic
	// number, an unsupported version, or a footer that doesn't point
	// inside the file.
	ErrFormatViolation = errors.New("storage: format violation")

	// ErrUnorderedEntries is returned by BuildSSTable when the caller
	// supplies entries that are not in strictly ascending key order.
	// An SSTable's lookup discipline (sparse index + linear scan)
	// depends on this invariant; building one anyway would silently
	// corrupt future lookups instead of failing loudly now.
	ErrUnorderedEntries = errors.New("storage: entries must be in strictly ascending key order")

	// ErrUnknownRecordType is returned when a WAL record's type byte
	// is neither Put nor Del. Unlike a short read, this is treated as
	// fatal: it means the framing itself is untrustworthy, not merely
	// that the file ends mid-record.
	ErrUnknownRecordType = errors.New("storage: unknown record type")

	// ErrClosed is returned by Engine.Put, Del, Flush, and Sync when
	// called after Close.
	ErrClosed = errors.New("storage: already closed")
)
