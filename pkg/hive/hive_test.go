package hive

import (
	"testing"

	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/pkg/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// buildSampleHive assembles ROOT (KEY_HIVE_ENTRY) -> Software, with two
// values on ROOT: Ver (REG_SZ, out-of-line) and Count (REG_DWORD, inline).
// It returns the wrapped (base-block-prefixed) image and the bin-relative
// offsets of every cell, indexed by label.
func buildSampleHive(t *testing.T) (image []byte, offsets map[string]int) {
	t.Helper()

	root1 := buildNKCell(true, "ROOT", format.NKFlagHiveEntry, format.InvalidOffset, 0, 0, 1, 2)
	child1 := buildNKCell(true, "Software", 0, 0, format.InvalidOffset, format.InvalidOffset, 0, 0)
	sklist1 := buildLIList(0)
	vlist1 := buildValueList(0, 0)
	vkVer1 := buildVKCell("Ver", format.REGSZ, nil, 0, 6)
	vkCount1 := buildVKCell("Count", format.REGDWORD, []byte{42, 0, 0, 0}, 0, 0)
	verData1 := buildRawCell(true, utf16leBytes("1.0"))

	_, off1 := buildHiveBinsData(root1, child1, sklist1, vlist1, vkVer1, vkCount1, verData1)
	rootOff := uint32(off1[0])
	childOff := uint32(off1[1])
	sklistOff := uint32(off1[2])
	vlistOff := uint32(off1[3])
	vkVerOff := uint32(off1[4])
	vkCountOff := uint32(off1[5])
	verDataOff := uint32(off1[6])

	root2 := buildNKCell(true, "ROOT", format.NKFlagHiveEntry, format.InvalidOffset, sklistOff, vlistOff, 1, 2)
	child2 := buildNKCell(true, "Software", 0, rootOff, format.InvalidOffset, format.InvalidOffset, 0, 0)
	sklist2 := buildLIList(childOff)
	vlist2 := buildValueList(vkVerOff, vkCountOff)
	vkVer2 := buildVKCell("Ver", format.REGSZ, nil, verDataOff, 6)
	vkCount2 := buildVKCell("Count", format.REGDWORD, []byte{42, 0, 0, 0}, 0, 0)
	verData2 := buildRawCell(true, utf16leBytes("1.0"))

	bins, off2 := buildHiveBinsData(root2, child2, sklist2, vlist2, vkVer2, vkCount2, verData2)
	require.Equal(t, off1, off2, "cell lengths must not depend on the offset values they carry")

	offsets = map[string]int{
		"root":    off2[0],
		"child":   off2[1],
		"sklist":  off2[2],
		"vlist":   off2[3],
		"vkVer":   off2[4],
		"vkCount": off2[5],
		"verData": off2[6],
	}
	image = wrapWithBaseBlock(bins, rootOff)
	return image, offsets
}

func TestOpenBytes_NavigatesAndDecodesValues(t *testing.T) {
	image, offsets := buildSampleHive(t)

	r, err := OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock})
	require.NoError(t, err)
	defer r.Close()

	root, err := r.Root()
	require.NoError(t, err)
	assert.Equal(t, types.NodeID(offsets["root"]), root)

	meta, err := r.StatKey(root)
	require.NoError(t, err)
	assert.Equal(t, "ROOT", meta.Name)
	assert.Equal(t, 1, meta.SubkeyN)
	assert.Equal(t, 2, meta.ValueN)

	kids, err := r.Subkeys(root)
	require.NoError(t, err)
	require.Len(t, kids, 1)
	childName, err := r.KeyName(kids[0])
	require.NoError(t, err)
	assert.Equal(t, "Software", childName)

	child, err := r.GetChild(root, "software")
	require.NoError(t, err)
	assert.Equal(t, kids[0], child)

	parent, err := r.Parent(child)
	require.NoError(t, err)
	assert.Equal(t, root, parent)

	_, err = r.Parent(root)
	assert.ErrorIs(t, err, types.ErrNotFound, "root has no parent")

	vals, err := r.Values(root)
	require.NoError(t, err)
	require.Len(t, vals, 2)

	verID, err := r.GetValue(root, "ver")
	require.NoError(t, err)
	s, err := r.ValueString(verID, types.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, "1.0", s)

	countID, err := r.GetValue(root, "Count")
	require.NoError(t, err)
	dw, err := r.ValueDWORD(countID)
	require.NoError(t, err)
	assert.Equal(t, uint32(42), dw)

	found, err := r.Find(`Software`)
	require.NoError(t, err)
	assert.Equal(t, child, found)

	var visited []string
	require.NoError(t, r.Walk(root, func(n types.NodeID) error {
		name, err := r.KeyName(n)
		if err != nil {
			return err
		}
		visited = append(visited, name)
		return nil
	}))
	assert.Equal(t, []string{"ROOT", "Software"}, visited)
}

func TestOpenBytes_ParseModeRawUsesCallerSuppliedRoot(t *testing.T) {
	root := buildNKCell(true, "ROOT", format.NKFlagHiveEntry, format.InvalidOffset, format.InvalidOffset, format.InvalidOffset, 0, 0)
	bins, offsets := buildHiveBinsData(root)

	r, err := OpenBytes(bins, types.OpenOptions{Mode: types.ParseModeRaw, RootOffset: types.Offset(offsets[0])})
	require.NoError(t, err)
	defer r.Close()

	got, err := r.Root()
	require.NoError(t, err)
	assert.Equal(t, types.NodeID(offsets[0]), got)
}

func TestOpenBytes_RejectsBadChecksumUnlessTolerant(t *testing.T) {
	root := buildNKCell(true, "ROOT", format.NKFlagHiveEntry, format.InvalidOffset, format.InvalidOffset, format.InvalidOffset, 0, 0)
	bins, offsets := buildHiveBinsData(root)
	image := wrapWithBaseBlock(bins, uint32(offsets[0]))
	image[format.REGFCheckSumOffset] ^= 0xFF

	_, err := OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock})
	require.Error(t, err)

	r, err := OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock, Tolerant: true})
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Root()
	assert.NoError(t, err)
}

func TestOpenBytes_StrictNarrowsMinorVersion(t *testing.T) {
	root := buildNKCell(true, "ROOT", format.NKFlagHiveEntry, format.InvalidOffset, format.InvalidOffset, format.InvalidOffset, 0, 0)
	bins, offsets := buildHiveBinsData(root)
	hdr := format.WriteHeader(format.Header{
		PrimarySequence:  1,
		MajorVersion:     1,
		MinorVersion:     3,
		Type:             format.FileTypeHive,
		RootCellOffset:   uint32(offsets[0]),
		HiveBinsDataSize: uint32(len(bins)),
	})
	image := append(hdr, bins...)

	_, err := OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock})
	require.NoError(t, err, "minor version 3 is accepted by default")

	_, err = OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock, Strict: true})
	assert.Error(t, err, "strict mode narrows acceptance to minor version 5")
}

func TestOpenBytes_RejectsLogFileType(t *testing.T) {
	root := buildNKCell(true, "ROOT", format.NKFlagHiveEntry, format.InvalidOffset, format.InvalidOffset, format.InvalidOffset, 0, 0)
	bins, offsets := buildHiveBinsData(root)
	hdr := format.WriteHeader(format.Header{
		PrimarySequence:  1,
		MajorVersion:     1,
		MinorVersion:     5,
		Type:             format.FileTypeLogVariant1,
		RootCellOffset:   uint32(offsets[0]),
		HiveBinsDataSize: uint32(len(bins)),
	})
	image := append(hdr, bins...)

	_, err := OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock})
	assert.Error(t, err)
}

func TestValueBytes_BigDataChainReassembled(t *testing.T) {
	// Chunk lengths are multiples of 8 so that chunkLen+DBBlockPadding+
	// CellHeaderSize lands exactly on an 8-byte boundary: real hives size
	// big-data blocks the same way, leaving no alignment slack beyond the
	// padding valueDB already knows to trim. The total also has to exceed
	// format.DBChunkSize, since ValueBytes dispatches to the db chain by
	// declared size rather than by sniffing the cell's signature: a full
	// first chunk plus an 8-byte remainder mirrors how a real hive splits
	// a value once it outgrows a single data block.
	chunk0 := make([]byte, format.DBChunkSize)
	for i := range chunk0 {
		chunk0[i] = byte(i)
	}
	chunk1 := []byte{11, 12, 13, 14, 15, 16, 17, 18}
	expected := append(append([]byte{}, chunk0...), chunk1...)

	block0 := buildDBBlock(chunk0)
	block1 := buildDBBlock(chunk1)
	_, pass1 := buildHiveBinsData(block0, block1)
	block0Off, block1Off := uint32(pass1[0]), uint32(pass1[1])

	blocklist := buildBlocklist(block0Off, block1Off)
	_, pass2 := buildHiveBinsData(block0, block1, blocklist)
	blocklistOff := uint32(pass2[2])

	db := buildDBRecord(2, blocklistOff)
	_, pass3 := buildHiveBinsData(block0, block1, blocklist, db)
	dbOff := uint32(pass3[3])

	vk := buildVKCell("Blob", format.REGBinary, nil, dbOff, uint32(len(expected)))
	_, pass4 := buildHiveBinsData(block0, block1, blocklist, db, vk)
	vkOff := uint32(pass4[4])

	vlist := buildValueList(vkOff)
	_, pass5 := buildHiveBinsData(block0, block1, blocklist, db, vk, vlist)
	vlistOff := uint32(pass5[5])

	root := buildNKCell(true, "ROOT", format.NKFlagHiveEntry, format.InvalidOffset, format.InvalidOffset, vlistOff, 0, 1)
	bins, final := buildHiveBinsData(block0, block1, blocklist, db, vk, vlist, root)
	require.Equal(t, pass5[:5], final[:5], "upstream cell placement must be unaffected by appending root")

	image := wrapWithBaseBlock(bins, uint32(final[6]))

	r, err := OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock})
	require.NoError(t, err)
	defer r.Close()

	root0, err := r.Root()
	require.NoError(t, err)
	blobID, err := r.GetValue(root0, "Blob")
	require.NoError(t, err)

	data, err := r.ValueBytes(blobID, types.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, expected, data)
}

// TestValueBytes_AtChunkSizeBoundaryUsesRawCell exercises the low edge of
// the big-data dispatch threshold: a value whose declared size is exactly
// format.DBChunkSize must be read as a plain single-cell value, never
// routed through the db-chain path, even though nothing about the cell
// itself (it isn't a db record) would stop a signature-sniffing dispatch
// from happening to work here too.
func TestValueBytes_AtChunkSizeBoundaryUsesRawCell(t *testing.T) {
	payload := make([]byte, format.DBChunkSize)
	for i := range payload {
		payload[i] = byte(i)
	}
	raw := buildRawCell(true, payload)
	_, pass1 := buildHiveBinsData(raw)
	rawOff := uint32(pass1[0])

	vk := buildVKCell("Blob", format.REGBinary, nil, rawOff, uint32(len(payload)))
	_, pass2 := buildHiveBinsData(raw, vk)
	vkOff := uint32(pass2[1])

	vlist := buildValueList(vkOff)
	_, pass3 := buildHiveBinsData(raw, vk, vlist)
	vlistOff := uint32(pass3[2])

	root := buildNKCell(true, "ROOT", format.NKFlagHiveEntry, format.InvalidOffset, format.InvalidOffset, vlistOff, 0, 1)
	bins, final := buildHiveBinsData(raw, vk, vlist, root)
	require.Equal(t, pass3[:2], final[:2], "upstream cell placement must be unaffected by appending root")

	image := wrapWithBaseBlock(bins, uint32(final[3]))

	r, err := OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock})
	require.NoError(t, err)
	defer r.Close()

	root0, err := r.Root()
	require.NoError(t, err)
	blobID, err := r.GetValue(root0, "Blob")
	require.NoError(t, err)

	data, err := r.ValueBytes(blobID, types.ReadOptions{})
	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

// TestValueBytes_OneByteOverChunkSizeRequiresDBRecord exercises the high
// edge of the same boundary: a declared size of format.DBChunkSize+1 must
// be dispatched to the db-chain path, so a plain (non-db) cell at that
// declared size is rejected as corrupt rather than silently truncated or
// read as raw bytes.
func TestValueBytes_OneByteOverChunkSizeRequiresDBRecord(t *testing.T) {
	payload := make([]byte, format.DBChunkSize)
	raw := buildRawCell(true, payload)
	_, pass1 := buildHiveBinsData(raw)
	rawOff := uint32(pass1[0])

	vk := buildVKCell("Blob", format.REGBinary, nil, rawOff, uint32(format.DBChunkSize+1))
	_, pass2 := buildHiveBinsData(raw, vk)
	vkOff := uint32(pass2[1])

	vlist := buildValueList(vkOff)
	_, pass3 := buildHiveBinsData(raw, vk, vlist)
	vlistOff := uint32(pass3[2])

	root := buildNKCell(true, "ROOT", format.NKFlagHiveEntry, format.InvalidOffset, format.InvalidOffset, vlistOff, 0, 1)
	bins, final := buildHiveBinsData(raw, vk, vlist, root)
	require.Equal(t, pass3[:2], final[:2], "upstream cell placement must be unaffected by appending root")

	image := wrapWithBaseBlock(bins, uint32(final[3]))

	r, err := OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock})
	require.NoError(t, err)
	defer r.Close()

	root0, err := r.Root()
	require.NoError(t, err)
	blobID, err := r.GetValue(root0, "Blob")
	require.NoError(t, err)

	_, err = r.ValueBytes(blobID, types.ReadOptions{})
	assert.Error(t, err, "declared size one byte over the chunk threshold must require a db record")
}

func TestDiagnose_FlagsDirtyHiveAndChecksumMismatch(t *testing.T) {
	root := buildNKCell(true, "ROOT", format.NKFlagHiveEntry, format.InvalidOffset, format.InvalidOffset, format.InvalidOffset, 0, 0)
	bins, offsets := buildHiveBinsData(root)
	hdr := format.WriteHeader(format.Header{
		PrimarySequence:   2,
		SecondarySequence: 1,
		MajorVersion:      1,
		MinorVersion:      5,
		Type:              format.FileTypeHive,
		RootCellOffset:    uint32(offsets[0]),
		HiveBinsDataSize:  uint32(len(bins)),
	})
	image := append(hdr, bins...)

	r, err := OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock, Tolerant: true})
	require.NoError(t, err)
	defer r.Close()

	report, err := r.Diagnose()
	require.NoError(t, err)
	assert.Equal(t, 0, report.Summary.Critical)
	assert.Equal(t, 1, report.Summary.Warnings, "dirty-sequence mismatch should surface as a warning")

	image[format.REGFCheckSumOffset] ^= 0xFF
	r2, err := OpenBytes(image, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock, Tolerant: true})
	require.NoError(t, err)
	defer r2.Close()

	report2, err := r2.Diagnose()
	require.NoError(t, err)
	assert.Equal(t, 1, report2.Summary.Critical, "checksum mismatch should surface as critical")
}

func TestScanAndRecoverTree_ReachUnlinkedStructure(t *testing.T) {
	orphan := buildNKCell(false, "Deleted", 0, 0xDEADBEEF, format.InvalidOffset, format.InvalidOffset, 0, 0)
	bins, _ := buildHiveBinsData(orphan)

	r, err := OpenBytes(bins, types.OpenOptions{Mode: types.ParseModeRaw})
	require.NoError(t, err)
	defer r.Close()

	hv, ok := r.(*Hive)
	require.True(t, ok)

	cells := hv.ScanCells(0, types.NoProgress)
	require.Len(t, cells, 1)
	assert.True(t, cells[0].IsNK())

	tree := hv.RecoverTree(0, types.NoProgress)
	require.Len(t, tree.Roots, 1)
	assert.Equal(t, "Deleted", tree.Roots[0].Name)
	assert.True(t, tree.Roots[0].IsDeleted)
}

func TestApplyLogs_ThenOpenBytes(t *testing.T) {
	image, _ := buildSampleHive(t)

	out, err := ApplyLogs(image)
	require.NoError(t, err)
	assert.Equal(t, image, out, "no logs supplied is a no-op")

	r, err := OpenBytes(out, types.OpenOptions{Mode: types.ParseModeNormalWithBaseBlock})
	require.NoError(t, err)
	defer r.Close()
	_, err = r.Root()
	assert.NoError(t, err)
}

func TestWriteBaseBlock_ProducesValidChecksum(t *testing.T) {
	b := WriteBaseBlock(types.HiveInfo{
		PrimarySequence:   3,
		SecondarySequence: 3,
		MajorVersion:      1,
		MinorVersion:      5,
		Type:              format.FileTypeHive,
		RootCellOffset:    format.HBINHeaderSize,
		HiveBinsDataSize:  format.HBINAlignment,
	})
	require.Len(t, b, format.HeaderSize)
	assert.NoError(t, format.VerifyChecksum(b))

	hdr, err := format.ParseHeader(b)
	require.NoError(t, err)
	assert.Equal(t, uint32(3), hdr.PrimarySequence)
	assert.Equal(t, uint32(format.HBINHeaderSize), hdr.RootCellOffset)
}
