package hive

import (
	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/internal/mmfile"
	"github.com/dfirkit/nthive/pkg/types"
)

const defaultMaxCellSize = 64 << 20

// Hive is the concrete types.Reader/types.Scanner implementation backing
// Open and OpenBytes. It holds the entire source image in memory (mapped
// read-only when opened from a path, a plain slice when opened from
// bytes) and resolves every NodeID/ValueID on demand rather than building
// an in-memory tree, so the cost of opening a hive is proportional to its
// base-block validation, not its size.
type Hive struct {
	opts types.OpenOptions

	data []byte // full source image: base block (if any) + hive-bins data
	bins []byte // data[baseOffset:]; NodeID/ValueID are offsets into this

	baseOffset int
	rootOffset int

	header    format.Header
	hasHeader bool

	hbins []hbinEntry

	diagnostics *types.DiagnosticReport

	closer func() error
	closed bool
}

type hbinEntry struct {
	offset int
	size   int
}

var (
	_ types.Reader  = (*Hive)(nil)
	_ types.Scanner = (*Hive)(nil)
)

// Open opens a hive file by path, mapping it read-only where the platform
// supports it (falling back to a plain read otherwise).
func Open(path string, opts types.OpenOptions) (types.Reader, error) {
	data, cleanup, err := mmfile.Map(path)
	if err != nil {
		return nil, wrapIOErr(err)
	}
	h, err := newHive(data, opts)
	if err != nil {
		cleanup()
		return nil, err
	}
	h.closer = cleanup
	return h, nil
}

// OpenBytes opens a hive already resident in memory, e.g. one already
// reassembled by ApplyLogs or sliced out of a larger acquisition image.
func OpenBytes(data []byte, opts types.OpenOptions) (types.Reader, error) {
	return newHive(data, opts)
}

func newHive(data []byte, opts types.OpenOptions) (*Hive, error) {
	if opts.MaxCellSize <= 0 {
		opts.MaxCellSize = defaultMaxCellSize
	}
	h := &Hive{opts: opts}

	switch opts.Mode {
	case types.ParseModeNormalWithBaseBlock:
		if err := h.loadBaseBlock(data); err != nil {
			return nil, err
		}
	case types.ParseModeNormal:
		h.baseOffset = format.HiveDataBase
		h.rootOffset = int(opts.RootOffset)
	case types.ParseModeRaw:
		h.baseOffset = 0
		h.rootOffset = int(opts.RootOffset)
	default:
		return nil, errStatef("hive: unrecognized parse mode %d", opts.Mode)
	}

	if h.baseOffset > len(data) {
		return nil, wrapFormatErr("regf", format.ErrTruncated)
	}
	h.data = data
	h.bins = data[h.baseOffset:]

	hbins, err := buildHBINIndex(h.bins)
	if err != nil && !opts.Tolerant {
		return nil, wrapFormatErr("hbin", err)
	}
	h.hbins = hbins

	if opts.CollectDiagnostics {
		h.diagnostics = types.NewDiagnosticReport()
		h.diagnostics.FileSize = int64(len(data))
	}

	return h, nil
}

// loadBaseBlock parses and validates the 4096-byte REGF header, populating
// h.header/h.rootOffset/h.baseOffset. It is the only code path that
// enforces version/checksum/file-type constraints: ParseModeNormal and
// ParseModeRaw exist precisely to skip this when the base block is known
// to be missing or unreliable.
func (h *Hive) loadBaseBlock(data []byte) error {
	if len(data) < format.HeaderSize {
		return wrapFormatErr("regf", format.ErrTruncated)
	}
	hdr, err := format.ParseHeader(data[:format.HeaderSize])
	if err != nil {
		return wrapFormatErr("regf", err)
	}
	if !h.opts.Tolerant {
		if err := format.VerifyChecksum(data[:format.HeaderSize]); err != nil {
			return wrapFormatErr("regf checksum", err)
		}
	}
	if hdr.MajorVersion != 1 {
		return errCorruptf("regf: unsupported major version %d", hdr.MajorVersion)
	}
	minorOK := map[uint32]bool{3: true, 4: true, 5: true, 6: true}
	if h.opts.Strict {
		minorOK = map[uint32]bool{5: true}
	}
	if !minorOK[hdr.MinorVersion] {
		return errCorruptf("regf: unsupported minor version %d", hdr.MinorVersion)
	}
	if format.IsLogFileType(hdr.Type) {
		return errCorruptf("regf: expected a primary hive, found transaction-log file type %d", hdr.Type)
	}

	h.header = hdr
	h.hasHeader = true
	h.baseOffset = format.HiveDataBase
	h.rootOffset = int(hdr.RootCellOffset)
	return nil
}

func buildHBINIndex(bins []byte) ([]hbinEntry, error) {
	var out []hbinEntry
	pos := 0
	for pos+format.HBINHeaderSize <= len(bins) {
		hb, next, err := format.NextHBIN(bins, pos)
		if err != nil {
			return out, err
		}
		out = append(out, hbinEntry{offset: pos, size: int(hb.Size)})
		pos = next
	}
	return out, nil
}

// Close releases the underlying mapping, if any. It is safe to call more
// than once.
func (h *Hive) Close() error {
	if h.closed {
		return nil
	}
	h.closed = true
	if h.closer != nil {
		return h.closer()
	}
	return nil
}

// Info returns zero-value HiveInfo when opened via ParseModeNormal/Raw,
// which never read a base block to populate it from.
func (h *Hive) Info() types.HiveInfo {
	if !h.hasHeader {
		return types.HiveInfo{}
	}
	return types.HiveInfo{
		PrimarySequence:   h.header.PrimarySequence,
		SecondarySequence: h.header.SecondarySequence,
		LastWrite:         format.FiletimeToTime(h.header.LastWriteRaw),
		MajorVersion:      h.header.MajorVersion,
		MinorVersion:      h.header.MinorVersion,
		Type:              h.header.Type,
		RootCellOffset:    h.header.RootCellOffset,
		HiveBinsDataSize:  h.header.HiveBinsDataSize,
		ClusteringFactor:  h.header.ClusteringFactor,
	}
}

// Root returns the root key node ID, verifying it actually resolves to an
// NK cell rather than trusting the stored offset blindly.
func (h *Hive) Root() (types.NodeID, error) {
	if h.rootOffset < 0 || h.rootOffset == int(format.InvalidOffset) {
		return 0, types.ErrNotFound
	}
	if _, err := h.nk(types.NodeID(h.rootOffset)); err != nil {
		return 0, err
	}
	return types.NodeID(h.rootOffset), nil
}

// cellAt resolves an offset (relative to the start of hive-bins data) to
// its cell, locating the owning hive bin via the index built at open time.
// Cross-hive-bin cells never reach here: NextCell itself rejects any cell
// whose declared size would extend past the end of the bin it started in,
// so unlike a reader that walks a live mmap'd file directly, there is no
// separate "does this cell span two bins" code path to maintain.
func (h *Hive) cellAt(off int) (format.Cell, error) {
	if off < 0 || off == int(format.InvalidOffset) {
		return format.Cell{}, types.ErrNotFound
	}
	hb, err := h.hbinFor(off)
	if err != nil {
		return format.Cell{}, err
	}
	cell, _, err := format.NextCell(h.bins, hb, off)
	if err != nil {
		return format.Cell{}, wrapFormatErr("cell", err)
	}
	if cell.Size > h.opts.MaxCellSize {
		return format.Cell{}, errCorruptf("cell at offset %d exceeds max cell size (%d > %d)", off, cell.Size, h.opts.MaxCellSize)
	}
	if cell.Free {
		h.noteDiagnostic(types.Diagnostic{
			Severity:  types.SevWarning,
			Category:  types.DiagStructure,
			Structure: "CELL",
			Offset:    uint64(h.baseOffset + off),
			Issue:     "cell referenced by a live structure is marked free",
		})
		if !h.opts.Tolerant {
			return format.Cell{}, errCorruptf("cell at offset %d is marked free", off)
		}
	}
	return cell, nil
}

// hbinFor performs an O(n) scan of the hive-bin index, mirroring the
// teacher's up-front validateAllHBINs approach: real hives hold at most a
// few thousand bins, far too few for the lookup to justify a sorted index
// and binary search.
func (h *Hive) hbinFor(off int) (format.HBIN, error) {
	for _, e := range h.hbins {
		if off >= e.offset+format.HBINHeaderSize && off < e.offset+e.size {
			return format.HBIN{FileOffset: uint32(e.offset), Size: uint32(e.size)}, nil
		}
	}
	return format.HBIN{}, errCorruptf("offset %d does not fall within any hive bin", off)
}

func (h *Hive) noteDiagnostic(d types.Diagnostic) {
	if h.diagnostics != nil {
		h.diagnostics.Add(d)
	}
}

func tagIs(tag [format.SignatureSize]byte, sig []byte) bool {
	return len(sig) == format.SignatureSize && tag[0] == sig[0] && tag[1] == sig[1]
}

func (h *Hive) nk(id types.NodeID) (format.NKRecord, error) {
	cell, err := h.cellAt(int(id))
	if err != nil {
		return format.NKRecord{}, err
	}
	if !tagIs(cell.Tag, format.NKSignature) {
		return format.NKRecord{}, errCorruptf("offset %d is not an nk record (tag %q)", id, cell.Tag[:])
	}
	nk, err := format.DecodeNK(cell.Data)
	if err != nil {
		return format.NKRecord{}, wrapFormatErr("nk", err)
	}
	return nk, nil
}

func (h *Hive) vk(id types.ValueID) (format.VKRecord, error) {
	cell, err := h.cellAt(int(id))
	if err != nil {
		return format.VKRecord{}, err
	}
	if !tagIs(cell.Tag, format.VKSignature) {
		return format.VKRecord{}, errCorruptf("offset %d is not a vk record (tag %q)", id, cell.Tag[:])
	}
	vk, err := format.DecodeVK(cell.Data)
	if err != nil {
		return format.VKRecord{}, wrapFormatErr("vk", err)
	}
	return vk, nil
}
