package format

import (
	"bytes"
	"fmt"

	"github.com/dfirkit/nthive/internal/buf"
)

// DirtyPageRef is an {offset, size} pair identifying a page of hive-bins data
// overwritten by a LogEntry. Offset is relative to the start of hive-bins
// data (i.e. the byte immediately following the 4096-byte base block).
type DirtyPageRef struct {
	Offset uint32
	Size   uint32
}

// LogEntry is a single HvLE batch within a transaction log: a sequence
// number, the hive-bins-data size once this entry is applied, and the dirty
// pages it carries.
type LogEntry struct {
	Size           uint32
	Flags          uint32
	Sequence       uint32
	HiveBinsSize   uint32
	DirtyPageCount uint32
	Hash1          uint64
	Hash2          uint64
	Refs           []DirtyPageRef
	// Pages holds the raw page bytes in the same order as Refs.
	Pages [][]byte
	// raw is the full entry (header + ref table + page bytes), kept for
	// Marvin32 authentication which hashes byte ranges of the entry itself.
	raw []byte
}

// DecodeLogEntryHeader decodes the fixed 40-byte HvLE header at the start of
// b. It does not consume the dirty-page reference table or page payloads.
func DecodeLogEntryHeader(b []byte) (LogEntry, error) {
	if len(b) < LogEntryHeaderSize {
		return LogEntry{}, fmt.Errorf("log entry: %w (have %d, need %d)", ErrTruncated, len(b), LogEntryHeaderSize)
	}
	if !bytes.Equal(b[:4], LogEntrySignature) {
		return LogEntry{}, fmt.Errorf("log entry: %w", ErrSignatureMismatch)
	}
	size, err := CheckedReadU32(b, LogEntrySizeOffset)
	if err != nil {
		return LogEntry{}, fmt.Errorf("log entry size: %w", err)
	}
	if size < LogBlockSize || size%LogBlockSize != 0 {
		return LogEntry{}, fmt.Errorf("log entry: size %d not a positive multiple of %d: %w", size, LogBlockSize, ErrSanityLimit)
	}
	flags, err := CheckedReadU32(b, LogEntryFlagsOffset)
	if err != nil {
		return LogEntry{}, fmt.Errorf("log entry flags: %w", err)
	}
	if flags != 0 {
		return LogEntry{}, fmt.Errorf("log entry: %w (flags must be 0, got %#x)", ErrUnsupported, flags)
	}
	seq, err := CheckedReadU32(b, LogEntrySequenceOffset)
	if err != nil {
		return LogEntry{}, fmt.Errorf("log entry sequence: %w", err)
	}
	hbinSize, err := CheckedReadU32(b, LogEntryHbinSizeOffset)
	if err != nil {
		return LogEntry{}, fmt.Errorf("log entry hbin size: %w", err)
	}
	if hbinSize%HBINAlignment != 0 {
		return LogEntry{}, fmt.Errorf("log entry: hbin data size %d not %d-aligned: %w", hbinSize, HBINAlignment, ErrSanityLimit)
	}
	dirtyCount, err := CheckedReadU32(b, LogEntryDirtyCntOffset)
	if err != nil {
		return LogEntry{}, fmt.Errorf("log entry dirty count: %w", err)
	}
	if dirtyCount == 0 {
		return LogEntry{}, fmt.Errorf("log entry: %w (dirty page count is 0)", ErrSanityLimit)
	}
	hash1, err := CheckedReadU64(b, LogEntryHash1Offset)
	if err != nil {
		return LogEntry{}, fmt.Errorf("log entry hash1: %w", err)
	}
	hash2, err := CheckedReadU64(b, LogEntryHash2Offset)
	if err != nil {
		return LogEntry{}, fmt.Errorf("log entry hash2: %w", err)
	}
	return LogEntry{
		Size:           size,
		Flags:          flags,
		Sequence:       seq,
		HiveBinsSize:   hbinSize,
		DirtyPageCount: dirtyCount,
		Hash1:          hash1,
		Hash2:          hash2,
	}, nil
}

// DecodeLogEntry decodes a full HvLE entry (header, dirty-page reference
// table, and page payloads) from b, which must contain at least Size bytes
// starting at the entry's magic. The returned LogEntry retains the raw slice
// (sized exactly to Size) so callers can authenticate it with Marvin32.
func DecodeLogEntry(b []byte) (LogEntry, error) {
	e, err := DecodeLogEntryHeader(b)
	if err != nil {
		return LogEntry{}, err
	}
	if uint32(len(b)) < e.Size {
		return LogEntry{}, fmt.Errorf("log entry: %w (declared size %d, have %d)", ErrTruncated, e.Size, len(b))
	}
	raw := b[:e.Size]
	e.raw = raw

	refTableOff := LogEntryHeaderSize
	refTableLen := int(e.DirtyPageCount) * DirtyPageRefSize
	refEnd, ok := buf.AddOverflowSafe(refTableOff, refTableLen)
	if !ok || refEnd > len(raw) {
		return LogEntry{}, fmt.Errorf("log entry: %w (ref table needs %d bytes from %d)", ErrTruncated, refTableLen, refTableOff)
	}

	refs := make([]DirtyPageRef, e.DirtyPageCount)
	var totalPageBytes int
	for i := range refs {
		off := refTableOff + i*DirtyPageRefSize
		pageOff := buf.U32LE(raw[off:])
		pageSize := buf.U32LE(raw[off+4:])
		refs[i] = DirtyPageRef{Offset: pageOff, Size: pageSize}
		totalPageBytes += int(pageSize)
	}

	pagesStart := refEnd
	pagesEnd, ok := buf.AddOverflowSafe(pagesStart, totalPageBytes)
	if !ok || pagesEnd > len(raw) {
		return LogEntry{}, fmt.Errorf("log entry: %w (page data needs %d bytes from %d)", ErrTruncated, totalPageBytes, pagesStart)
	}

	pages := make([][]byte, len(refs))
	cursor := pagesStart
	for i, ref := range refs {
		pages[i] = raw[cursor : cursor+int(ref.Size)]
		cursor += int(ref.Size)
	}

	e.Refs = refs
	e.Pages = pages
	return e, nil
}

// Hash1Region returns the byte range of the entry hashed into Hash1
// (everything after the fixed 40-byte header).
func (e LogEntry) Hash1Region() []byte {
	return e.raw[LogEntryHash1RegionStart:]
}

// Hash2Region returns the byte range of the entry hashed into Hash2 (the
// first 32 bytes: header fields up to and including Hash1, excluding
// Hash2 itself).
func (e LogEntry) Hash2Region() []byte {
	return e.raw[:LogEntryHash2RegionLen]
}
