package format

import (
	"encoding/binary"
	"testing"
)

// buildLogEntry assembles a single HvLE entry with two dirty-page refs whose
// page payloads are 4 bytes each, padded out to a 512-byte block.
func buildLogEntry(sequence uint32, hash1, hash2 uint64) []byte {
	const size = LogBlockSize
	b := make([]byte, size)
	copy(b[LogEntrySignatureOffset:], LogEntrySignature)
	binary.LittleEndian.PutUint32(b[LogEntrySizeOffset:], size)
	binary.LittleEndian.PutUint32(b[LogEntryFlagsOffset:], 0)
	binary.LittleEndian.PutUint32(b[LogEntrySequenceOffset:], sequence)
	binary.LittleEndian.PutUint32(b[LogEntryHbinSizeOffset:], HBINAlignment)
	binary.LittleEndian.PutUint32(b[LogEntryDirtyCntOffset:], 2)
	binary.LittleEndian.PutUint64(b[LogEntryHash1Offset:], hash1)
	binary.LittleEndian.PutUint64(b[LogEntryHash2Offset:], hash2)

	refOff := LogEntryHeaderSize
	binary.LittleEndian.PutUint32(b[refOff:], 0)    // page 0 offset
	binary.LittleEndian.PutUint32(b[refOff+4:], 4)   // page 0 size
	binary.LittleEndian.PutUint32(b[refOff+8:], 0x2000)
	binary.LittleEndian.PutUint32(b[refOff+12:], 4)

	pagesStart := refOff + 2*DirtyPageRefSize
	copy(b[pagesStart:], []byte{0xAA, 0xBB, 0xCC, 0xDD})
	copy(b[pagesStart+4:], []byte{0x11, 0x22, 0x33, 0x44})
	return b
}

func TestDecodeLogEntryHeader(t *testing.T) {
	b := buildLogEntry(7, 0x1122334455667788, 0x99aabbccddeeff00)
	e, err := DecodeLogEntryHeader(b)
	if err != nil {
		t.Fatalf("DecodeLogEntryHeader: %v", err)
	}
	if e.Sequence != 7 {
		t.Fatalf("Sequence: want 7, got %d", e.Sequence)
	}
	if e.DirtyPageCount != 2 {
		t.Fatalf("DirtyPageCount: want 2, got %d", e.DirtyPageCount)
	}
	if e.Hash1 != 0x1122334455667788 || e.Hash2 != 0x99aabbccddeeff00 {
		t.Fatalf("hash mismatch: %+v", e)
	}
}

func TestDecodeLogEntryHeaderRejectsBadSignature(t *testing.T) {
	b := buildLogEntry(1, 0, 0)
	b[0] = 'X'
	if _, err := DecodeLogEntryHeader(b); err == nil {
		t.Fatalf("expected signature mismatch error")
	}
}

func TestDecodeLogEntryHeaderRejectsBadSize(t *testing.T) {
	b := buildLogEntry(1, 0, 0)
	binary.LittleEndian.PutUint32(b[LogEntrySizeOffset:], 100)
	if _, err := DecodeLogEntryHeader(b); err == nil {
		t.Fatalf("expected size sanity error")
	}
}

func TestDecodeLogEntryRefsAndPages(t *testing.T) {
	b := buildLogEntry(1, 0, 0)
	e, err := DecodeLogEntry(b)
	if err != nil {
		t.Fatalf("DecodeLogEntry: %v", err)
	}
	if len(e.Refs) != 2 || len(e.Pages) != 2 {
		t.Fatalf("expected 2 refs/pages, got %d/%d", len(e.Refs), len(e.Pages))
	}
	if e.Refs[0].Offset != 0 || e.Refs[0].Size != 4 {
		t.Fatalf("ref 0 mismatch: %+v", e.Refs[0])
	}
	if e.Refs[1].Offset != 0x2000 || e.Refs[1].Size != 4 {
		t.Fatalf("ref 1 mismatch: %+v", e.Refs[1])
	}
	want0 := []byte{0xAA, 0xBB, 0xCC, 0xDD}
	want1 := []byte{0x11, 0x22, 0x33, 0x44}
	for i, got := range [][]byte{e.Pages[0], e.Pages[1]} {
		w := want0
		if i == 1 {
			w = want1
		}
		for j := range w {
			if got[j] != w[j] {
				t.Fatalf("page %d byte %d: want %#x, got %#x", i, j, w[j], got[j])
			}
		}
	}
}

func TestLogEntryHashRegions(t *testing.T) {
	b := buildLogEntry(1, 0, 0)
	e, err := DecodeLogEntry(b)
	if err != nil {
		t.Fatalf("DecodeLogEntry: %v", err)
	}
	if len(e.Hash2Region()) != LogEntryHash2RegionLen {
		t.Fatalf("Hash2Region length: want %d, got %d", LogEntryHash2RegionLen, len(e.Hash2Region()))
	}
	if len(e.Hash1Region()) != int(e.Size)-LogEntryHeaderSize {
		t.Fatalf("Hash1Region length: want %d, got %d", int(e.Size)-LogEntryHeaderSize, len(e.Hash1Region()))
	}
}

func TestDecodeLogEntryRejectsTruncatedPageData(t *testing.T) {
	b := buildLogEntry(1, 0, 0)
	// Claim a page far larger than available space.
	binary.LittleEndian.PutUint32(b[LogEntryHeaderSize+4:], 0xFFFFFFFF)
	if _, err := DecodeLogEntry(b); err == nil {
		t.Fatalf("expected truncation error for oversized page size")
	}
}
