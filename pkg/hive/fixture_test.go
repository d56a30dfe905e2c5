package hive

import (
	"encoding/binary"

	"github.com/dfirkit/nthive/internal/format"
)

// cellSize rounds a cell's header+payload length up to the 8-byte boundary
// every cell in a hive bin must land on.
func cellSize(payloadLen int) int {
	return format.Align8(format.CellHeaderSize + payloadLen)
}

// buildNKCell assembles a single nk cell. The name is stored compressed
// (Windows-1252) to keep fixtures simple, matching the scanner package's
// fixture convention.
func buildNKCell(allocated bool, name string, flags uint16, parentOffset, subkeyListOffset, valueListOffset, subkeyCount, valueCount uint32) []byte {
	nameBytes := []byte(name)
	padded := cellSize(format.NKFixedHeaderSize + len(nameBytes))
	b := make([]byte, padded)

	size := int32(padded)
	if allocated {
		size = -size
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(size))

	p := b[format.CellHeaderSize:]
	copy(p[format.NKSignatureOffset:], format.NKSignature)
	binary.LittleEndian.PutUint16(p[format.NKFlagsOffset:], flags|format.NKFlagCompressedName)
	binary.LittleEndian.PutUint32(p[format.NKParentOffset:], parentOffset)
	binary.LittleEndian.PutUint32(p[format.NKSubkeyCountOffset:], subkeyCount)
	binary.LittleEndian.PutUint32(p[format.NKSubkeyListOffset:], subkeyListOffset)
	binary.LittleEndian.PutUint32(p[format.NKValueCountOffset:], valueCount)
	binary.LittleEndian.PutUint32(p[format.NKValueListOffset:], valueListOffset)
	binary.LittleEndian.PutUint32(p[format.NKSecurityOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint32(p[format.NKClassNameOffset:], format.InvalidOffset)
	binary.LittleEndian.PutUint16(p[format.NKNameLenOffset:], uint16(len(nameBytes)))
	copy(p[format.NKNameOffset:], nameBytes)
	return b
}

// buildVKCell assembles a single vk cell. When inline is non-nil its bytes
// (at most 4) are written into the DataOffset field with the inline bit set;
// otherwise dataOffset/dataLen describe an out-of-line cell.
func buildVKCell(name string, regType uint32, inline []byte, dataOffset, dataLen uint32) []byte {
	nameBytes := []byte(name)
	padded := cellSize(format.VKFixedHeaderSize + len(nameBytes))
	b := make([]byte, padded)
	binary.LittleEndian.PutUint32(b[0:], uint32(-int32(padded)))

	p := b[format.CellHeaderSize:]
	copy(p[format.VKSignatureOffset:], format.VKSignature)
	binary.LittleEndian.PutUint16(p[format.VKNameLenOffset:], uint16(len(nameBytes)))
	binary.LittleEndian.PutUint32(p[format.VKTypeOffset:], regType)
	binary.LittleEndian.PutUint16(p[format.VKFlagsOffset:], format.VKFlagASCIIName)
	copy(p[format.VKNameOffset:], nameBytes)

	if inline != nil {
		var raw [4]byte
		copy(raw[:], inline)
		binary.LittleEndian.PutUint32(p[format.VKDataOffOffset:], binary.LittleEndian.Uint32(raw[:]))
		binary.LittleEndian.PutUint32(p[format.VKDataLenOffset:], uint32(len(inline))|format.VKDataInlineBit)
	} else {
		binary.LittleEndian.PutUint32(p[format.VKDataOffOffset:], dataOffset)
		binary.LittleEndian.PutUint32(p[format.VKDataLenOffset:], dataLen)
	}
	return b
}

// buildRawCell wraps an arbitrary payload (already built by the caller) in a
// cell header. Used for subkey lists, value lists, string data, and db/
// blocklist/block cells, none of which need the nk/vk field layout.
func buildRawCell(allocated bool, payload []byte) []byte {
	padded := cellSize(len(payload))
	b := make([]byte, padded)
	size := int32(padded)
	if allocated {
		size = -size
	}
	binary.LittleEndian.PutUint32(b[0:], uint32(size))
	copy(b[format.CellHeaderSize:], payload)
	return b
}

func buildLIList(childOffsets ...uint32) []byte {
	payload := make([]byte, format.ListHeaderSize+len(childOffsets)*format.LIEntrySize)
	copy(payload[:2], format.LISignature)
	binary.LittleEndian.PutUint16(payload[2:4], uint16(len(childOffsets)))
	for i, off := range childOffsets {
		binary.LittleEndian.PutUint32(payload[format.ListHeaderSize+i*format.LIEntrySize:], off)
	}
	return buildRawCell(true, payload)
}

func buildValueList(valueOffsets ...uint32) []byte {
	payload := make([]byte, len(valueOffsets)*format.OffsetFieldSize)
	for i, off := range valueOffsets {
		binary.LittleEndian.PutUint32(payload[i*format.OffsetFieldSize:], off)
	}
	return buildRawCell(true, payload)
}

func buildDBRecord(numBlocks uint16, blocklistOffset uint32) []byte {
	payload := make([]byte, format.DBHeaderSize)
	copy(payload[format.DBSignatureOffset:], format.DBSignature)
	binary.LittleEndian.PutUint16(payload[format.DBCountOffset:], numBlocks)
	binary.LittleEndian.PutUint32(payload[format.DBListOffset:], blocklistOffset)
	return buildRawCell(true, payload)
}

func buildBlocklist(blockOffsets ...uint32) []byte {
	payload := make([]byte, len(blockOffsets)*format.OffsetFieldSize)
	for i, off := range blockOffsets {
		binary.LittleEndian.PutUint32(payload[i*format.OffsetFieldSize:], off)
	}
	return buildRawCell(true, payload)
}

// buildDBBlock wraps chunk in a cell whose payload is DBBlockPadding bytes
// longer than the real data, matching the on-disk quirk where each block's
// trailing bytes actually belong to the following cell's header.
func buildDBBlock(chunk []byte) []byte {
	payload := make([]byte, len(chunk)+format.DBBlockPadding)
	copy(payload, chunk)
	return buildRawCell(true, payload)
}

func utf16leBytes(s string) []byte {
	out := make([]byte, 0, len(s)*2)
	for _, r := range s {
		var buf [2]byte
		binary.LittleEndian.PutUint16(buf[:], uint16(r))
		out = append(out, buf[:]...)
	}
	return out
}

// buildHiveBinsData lays cells out back-to-back in a single hive bin sized
// to fit them, returning the bin plus each cell's offset relative to the
// start of hive-bins data (the coordinate space every NodeID/ValueID lives
// in). Mirrors internal/scanner's buildHiveBinsData fixture helper.
func buildHiveBinsData(cells ...[]byte) ([]byte, []int) {
	total := format.HBINHeaderSize
	for _, c := range cells {
		total += len(c)
	}
	size := format.AlignHBIN(total)

	data := make([]byte, size)
	copy(data, format.HBINSignature)
	binary.LittleEndian.PutUint32(data[format.HBINFileOffsetField:], 0)
	binary.LittleEndian.PutUint32(data[format.HBINSizeOffset:], uint32(size))

	pos := format.HBINHeaderSize
	offsets := make([]int, len(cells))
	for i, c := range cells {
		offsets[i] = pos
		copy(data[pos:], c)
		pos += len(c)
	}
	remaining := len(data) - pos
	if remaining >= format.CellHeaderSize {
		binary.LittleEndian.PutUint32(data[pos:], uint32(remaining))
	}
	return data, offsets
}

// wrapWithBaseBlock prepends a checksummed REGF base block pointing at
// rootOffset, producing an image suitable for ParseModeNormalWithBaseBlock.
func wrapWithBaseBlock(bins []byte, rootOffset uint32) []byte {
	hdr := format.WriteHeader(format.Header{
		PrimarySequence:   1,
		SecondarySequence: 1,
		MajorVersion:      1,
		MinorVersion:      5,
		Type:              format.FileTypeHive,
		RootCellOffset:    rootOffset,
		HiveBinsDataSize:  uint32(len(bins)),
	})
	out := make([]byte, 0, len(hdr)+len(bins))
	out = append(out, hdr...)
	out = append(out, bins...)
	return out
}
