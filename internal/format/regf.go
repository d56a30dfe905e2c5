package format

import (
	"bytes"
	"fmt"

	"github.com/dfirkit/nthive/internal/buf"
)

// Header captures the minimal subset of the REGF header required to traverse a
// types. The diagram below highlights the offsets we care about.
//
//	Offset  Size  Description
//	------  ----  ----------------------------------------------------------
//	 0x000   4    'r' 'e' 'g' 'f'
//	 0x004   4    Primary sequence number
//	 0x008   4    Secondary sequence number
//	 0x00C   8    Last write timestamp (FILETIME)
//	 0x014   4    Major version
//	 0x018   4    Minor version
//	 0x01C   4    Type (0 = primary, 1 = alternate)
//	 0x020   4    File format (1 = "direct memory load", the only defined value)
//	 0x024   4    Offset (relative to first HBIN) of the root cell (NK)
//	 0x028   4    Total size of HBIN data
//	 0x02C   4    Clustering factor (rarely used)
//
// Windows stores the header in little-endian form.
type Header struct {
	PrimarySequence   uint32
	SecondarySequence uint32
	LastWriteRaw      uint64
	MajorVersion      uint32
	MinorVersion      uint32
	Type              uint32
	FileFormat        uint32
	RootCellOffset    uint32
	HiveBinsDataSize  uint32
	ClusteringFactor  uint32
}

// ComputeChecksum computes the REGF base block's XOR-32 checksum: the XOR of
// the first 127 little-endian uint32 words (bytes 0x000..0x1FB).
func ComputeChecksum(b []byte) (uint32, error) {
	if len(b) < REGFChecksumRegionLen {
		return 0, fmt.Errorf("regf checksum: %w (have %d, need %d)", ErrTruncated, len(b), REGFChecksumRegionLen)
	}
	var sum uint32
	for i := 0; i < REGFChecksumDwords; i++ {
		sum ^= buf.U32LE(b[i*4:])
	}
	return sum, nil
}

// VerifyChecksum reports whether b's stored checksum matches ComputeChecksum.
func VerifyChecksum(b []byte) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("regf checksum: %w", ErrTruncated)
	}
	want, err := ComputeChecksum(b)
	if err != nil {
		return err
	}
	got := buf.U32LE(b[REGFCheckSumOffset:])
	if got != want {
		return fmt.Errorf("regf checksum: stored 0x%08x, computed 0x%08x: %w", got, want, ErrSanityLimit)
	}
	return nil
}

// SetSequenceNumber patches both sequence-number fields in a base block to n
// and incrementally updates the stored checksum by XOR-ing out the old
// field values and XOR-ing in the new ones, rather than recomputing the
// full XOR-32 fold. The precondition n >= max(primary, secondary) mirrors
// the fact that sequence numbers only ever advance.
func SetSequenceNumber(b []byte, n uint32) error {
	if len(b) < HeaderSize {
		return fmt.Errorf("regf set sequence: %w", ErrTruncated)
	}
	oldPrimary := buf.U32LE(b[REGFPrimarySeqOffset:])
	oldSecondary := buf.U32LE(b[REGFSecondarySeqOffset:])
	if n < oldPrimary || n < oldSecondary {
		return fmt.Errorf("regf set sequence: new sequence %d precedes current (%d, %d)", n, oldPrimary, oldSecondary)
	}
	checksum := buf.U32LE(b[REGFCheckSumOffset:])
	checksum ^= oldPrimary ^ oldSecondary

	PutU32(b, REGFPrimarySeqOffset, n)
	PutU32(b, REGFSecondarySeqOffset, n)
	checksum ^= n ^ n // symmetric with the removal step; primary==secondary==n cancels

	PutU32(b, REGFCheckSumOffset, checksum)
	return nil
}

// WriteHeader serializes h into a fresh 4096-byte base block: fixed fields
// at their documented offsets, reserved regions zeroed, and a freshly
// computed XOR-32 checksum. It is used to emit synthetic fixtures and a
// from-scratch base block when no prior byte image is being patched in
// place (the common Apply path instead patches the caller's bytes directly
// via SetSequenceNumber, which preserves reserved/vendor fields verbatim).
func WriteHeader(h Header) []byte {
	b := make([]byte, HeaderSize)
	copy(b[REGFSignatureOffset:], REGFSignature)
	PutU32(b, REGFPrimarySeqOffset, h.PrimarySequence)
	PutU32(b, REGFSecondarySeqOffset, h.SecondarySequence)
	PutU64(b, REGFTimeStampOffset, h.LastWriteRaw)
	PutU32(b, REGFMajorVersionOffset, h.MajorVersion)
	PutU32(b, REGFMinorVersionOffset, h.MinorVersion)
	PutU32(b, REGFTypeOffset, h.Type)
	PutU32(b, REGFFormatOffset, FileFormatMemory)
	PutU32(b, REGFRootCellOffset, h.RootCellOffset)
	PutU32(b, REGFDataSizeOffset, h.HiveBinsDataSize)
	PutU32(b, REGFClusterOffset, h.ClusteringFactor)

	checksum, _ := ComputeChecksum(b)
	PutU32(b, REGFCheckSumOffset, checksum)
	return b
}

// ParseHeader validates and extracts key fields from a REGF header.
func ParseHeader(b []byte) (Header, error) {
	if len(b) < HeaderSize {
		return Header{}, fmt.Errorf("regf header: %w", ErrTruncated)
	}
	if !bytes.Equal(b[:REGFSignatureSize], REGFSignature) {
		return Header{}, fmt.Errorf("regf header: %w", ErrSignatureMismatch)
	}
	pseq := buf.U32LE(b[REGFPrimarySeqOffset:])
	sseq := buf.U32LE(b[REGFSecondarySeqOffset:])
	lastWrite := buf.U64LE(b[REGFTimeStampOffset:])
	major := buf.U32LE(b[REGFMajorVersionOffset:])
	minor := buf.U32LE(b[REGFMinorVersionOffset:])
	hType := buf.U32LE(b[REGFTypeOffset:])
	fileFormat := buf.U32LE(b[REGFFormatOffset:])
	rootOff := buf.U32LE(b[REGFRootCellOffset:])
	hbinsSize := buf.U32LE(b[REGFDataSizeOffset:])
	cluster := buf.U32LE(b[REGFClusterOffset:])

	if fileFormat != FileFormatMemory {
		return Header{}, fmt.Errorf("regf header: file format %d: %w", fileFormat, ErrUnsupportedFileFormat)
	}
	if hbinsSize%HBINAlignment != 0 {
		return Header{}, fmt.Errorf("regf header: hive-bins data size %d not a multiple of %d: %w", hbinsSize, HBINAlignment, ErrSanityLimit)
	}

	return Header{
		PrimarySequence:   pseq,
		SecondarySequence: sseq,
		LastWriteRaw:      lastWrite,
		MajorVersion:      major,
		MinorVersion:      minor,
		Type:              hType,
		FileFormat:        fileFormat,
		RootCellOffset:    rootOff,
		HiveBinsDataSize:  hbinsSize,
		ClusteringFactor:  cluster,
	}, nil
}
