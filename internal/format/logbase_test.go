package format

import (
	"encoding/binary"
	"testing"
)

func makeLogHeader(fileType uint32) []byte {
	b := make([]byte, HeaderSize)
	copy(b, REGFSignature)
	binary.LittleEndian.PutUint32(b[REGFPrimarySeqOffset:], 4)
	binary.LittleEndian.PutUint32(b[REGFSecondarySeqOffset:], 4)
	binary.LittleEndian.PutUint32(b[REGFTypeOffset:], fileType)
	binary.LittleEndian.PutUint32(b[REGFFormatOffset:], FileFormatMemory)
	return b
}

func TestParseLogBaseBlockAcceptsLogVariants(t *testing.T) {
	for _, ft := range []uint32{FileTypeLogVariant1, FileTypeLogVariant2, FileTypeLogVariant3} {
		b := makeLogHeader(ft)
		lb, err := ParseLogBaseBlock(b)
		if err != nil {
			t.Fatalf("ParseLogBaseBlock(type=%d): %v", ft, err)
		}
		if lb.Type != ft {
			t.Fatalf("Type mismatch: want %d, got %d", ft, lb.Type)
		}
	}
}

func TestParseLogBaseBlockRejectsPrimaryHive(t *testing.T) {
	b := makeLogHeader(FileTypeHive)
	if _, err := ParseLogBaseBlock(b); err == nil {
		t.Fatalf("expected error parsing a primary hive as a log base block")
	}
}

func TestParseLogBaseBlockRejectsTruncated(t *testing.T) {
	b := makeLogHeader(FileTypeLogVariant1)
	if _, err := ParseLogBaseBlock(b[:100]); err == nil {
		t.Fatalf("expected truncation error")
	}
}
