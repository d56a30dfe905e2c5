package translog

import (
	"encoding/binary"
	"testing"

	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/internal/marvin32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSignedEntry assembles a single HvLE entry carrying one dirty page at
// the given hive-bins-data-relative offset, with both Marvin32 hashes
// computed and stored so it authenticates cleanly.
func buildSignedEntry(sequence, hbinSize uint32, pageOffset uint32, page []byte) []byte {
	contentLen := format.LogEntryHeaderSize + format.DirtyPageRefSize + len(page)
	size := ((contentLen + format.LogBlockSize - 1) / format.LogBlockSize) * format.LogBlockSize
	b := make([]byte, size)
	copy(b[format.LogEntrySignatureOffset:], format.LogEntrySignature)
	binary.LittleEndian.PutUint32(b[format.LogEntrySizeOffset:], uint32(size))
	binary.LittleEndian.PutUint32(b[format.LogEntryFlagsOffset:], 0)
	binary.LittleEndian.PutUint32(b[format.LogEntrySequenceOffset:], sequence)
	binary.LittleEndian.PutUint32(b[format.LogEntryHbinSizeOffset:], hbinSize)
	binary.LittleEndian.PutUint32(b[format.LogEntryDirtyCntOffset:], 1)

	refOff := format.LogEntryHeaderSize
	binary.LittleEndian.PutUint32(b[refOff:], pageOffset)
	binary.LittleEndian.PutUint32(b[refOff+4:], uint32(len(page)))
	copy(b[refOff+format.DirtyPageRefSize:], page)

	hash1 := marvin32.Hash(format.Marvin32LogSeed, b[format.LogEntryHash1RegionStart:size])
	binary.LittleEndian.PutUint64(b[format.LogEntryHash1Offset:], uint64(hash1))
	hash2 := marvin32.Hash(format.Marvin32LogSeed, b[:format.LogEntryHash2RegionLen])
	binary.LittleEndian.PutUint64(b[format.LogEntryHash2Offset:], uint64(hash2))
	return b
}

// buildLogFile assembles a complete transaction log: a checksummed base
// block of the given file type and primary sequence, followed by entries in
// file order.
func buildLogFile(fileType, primarySeq uint32, entries ...[]byte) []byte {
	b := make([]byte, format.HeaderSize)
	copy(b, format.REGFSignature)
	binary.LittleEndian.PutUint32(b[format.REGFPrimarySeqOffset:], primarySeq)
	binary.LittleEndian.PutUint32(b[format.REGFSecondarySeqOffset:], primarySeq)
	binary.LittleEndian.PutUint32(b[format.REGFTypeOffset:], fileType)
	binary.LittleEndian.PutUint32(b[format.REGFFormatOffset:], format.FileFormatMemory)
	checksum, err := format.ComputeChecksum(b)
	if err != nil {
		panic(err)
	}
	binary.LittleEndian.PutUint32(b[format.REGFCheckSumOffset:], checksum)

	for _, e := range entries {
		b = append(b, e...)
	}
	return b
}

func TestParseLogFile_AuthenticatedEntriesSurvive(t *testing.T) {
	e1 := buildSignedEntry(1, format.HBINAlignment, 0, []byte{1, 2, 3, 4})
	e2 := buildSignedEntry(2, format.HBINAlignment, 0x1000, []byte{5, 6, 7, 8})
	data := buildLogFile(format.FileTypeLogVariant1, 0, e1, e2)

	lf, err := ParseLogFile(data)
	require.NoError(t, err)
	require.Len(t, lf.Entries, 2)
	assert.Equal(t, uint32(1), lf.Entries[0].Sequence)
	assert.Equal(t, uint32(2), lf.Entries[1].Sequence)
}

func TestParseLogFile_TamperedEntryTruncatesStream(t *testing.T) {
	e1 := buildSignedEntry(1, format.HBINAlignment, 0, []byte{1, 2, 3, 4})
	e2 := buildSignedEntry(2, format.HBINAlignment, 0x1000, []byte{5, 6, 7, 8})
	e2[format.LogEntryHeaderSize] ^= 0xFF // corrupt the first dirty-page ref after hashing
	data := buildLogFile(format.FileTypeLogVariant1, 0, e1, e2)

	lf, err := ParseLogFile(data)
	require.NoError(t, err)
	require.Len(t, lf.Entries, 1, "corrupt second entry must truncate the stream")
	assert.Equal(t, uint32(1), lf.Entries[0].Sequence)
}

func TestParseLogFile_RejectsBadBaseBlockChecksum(t *testing.T) {
	e1 := buildSignedEntry(1, format.HBINAlignment, 0, []byte{1, 2, 3, 4})
	data := buildLogFile(format.FileTypeLogVariant1, 0, e1)
	data[format.REGFCheckSumOffset] ^= 0xFF

	_, err := ParseLogFile(data)
	assert.Error(t, err)
}

func TestParseLogFile_RejectsPrimaryHiveType(t *testing.T) {
	e1 := buildSignedEntry(1, format.HBINAlignment, 0, []byte{1, 2, 3, 4})
	data := buildLogFile(format.FileTypeHive, 0, e1)

	_, err := ParseLogFile(data)
	assert.Error(t, err)
}
