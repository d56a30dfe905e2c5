package hive

import (
	"encoding/binary"
	"strings"

	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/pkg/types"
)

func (h *Hive) valueOffsets(nk format.NKRecord) ([]uint32, error) {
	if nk.ValueListOffset == format.InvalidOffset || nk.ValueCount == 0 {
		return nil, nil
	}
	cell, err := h.cellAt(int(nk.ValueListOffset))
	if err != nil {
		return nil, err
	}
	offs, err := format.DecodeValueList(cell.Data, nk.ValueCount)
	if err != nil {
		return nil, wrapFormatErr("value list", err)
	}
	return offs, nil
}

// Values lists value handles for a key.
func (h *Hive) Values(id types.NodeID) ([]types.ValueID, error) {
	nk, err := h.nk(id)
	if err != nil {
		return nil, err
	}
	offs, err := h.valueOffsets(nk)
	if err != nil {
		return nil, err
	}
	out := make([]types.ValueID, len(offs))
	for i, o := range offs {
		out[i] = types.ValueID(o)
	}
	return out, nil
}

// StatValue returns cheap VK metadata without decoding the value's data.
func (h *Hive) StatValue(id types.ValueID) (types.ValueMeta, error) {
	vk, err := h.vk(id)
	if err != nil {
		return types.ValueMeta{}, err
	}
	decoded := format.DecodeValueName(vk.NameRaw, vk.NameIsASCII())
	return types.ValueMeta{
		Name:           decoded.Value,
		Type:           types.RegType(vk.Type),
		Size:           vk.InlineLength(),
		Inline:         vk.DataInline(),
		NameCompressed: vk.NameIsASCII(),
		NameRaw:        vk.NameRaw,
	}, nil
}

// ValueName is the hivex-compatible name for StatValue(id).Name.
func (h *Hive) ValueName(id types.ValueID) (string, error) {
	meta, err := h.StatValue(id)
	if err != nil {
		return "", err
	}
	return meta.Name, nil
}

// ValueType returns the value's declared registry type.
func (h *Hive) ValueType(id types.ValueID) (types.RegType, error) {
	vk, err := h.vk(id)
	if err != nil {
		return 0, err
	}
	return types.RegType(vk.Type), nil
}

// GetValue finds a value by name on parent, case-insensitively.
func (h *Hive) GetValue(parent types.NodeID, name string) (types.ValueID, error) {
	vals, err := h.Values(parent)
	if err != nil {
		return 0, err
	}
	for _, v := range vals {
		meta, err := h.StatValue(v)
		if err != nil {
			if h.opts.Tolerant {
				continue
			}
			return 0, err
		}
		if strings.EqualFold(meta.Name, name) {
			return v, nil
		}
	}
	return 0, types.ErrNotFound
}

// ValueBytes returns raw value bytes, reassembling a big-data (db) chain
// transparently when the value's data doesn't fit a single cell.
func (h *Hive) ValueBytes(id types.ValueID, opts types.ReadOptions) ([]byte, error) {
	vk, err := h.vk(id)
	if err != nil {
		return nil, err
	}

	if vk.DataInline() {
		n := vk.InlineLength()
		var raw [4]byte
		binary.LittleEndian.PutUint32(raw[:], vk.DataOffset)
		if n > len(raw) {
			n = len(raw)
		}
		out := make([]byte, n)
		copy(out, raw[:n])
		return out, nil
	}

	want := vk.InlineLength()
	cell, err := h.cellAt(int(vk.DataOffset))
	if err != nil {
		return nil, err
	}

	// A value's data is only ever split into a Big Data (db) chain once it
	// exceeds what a single data block can hold; at or under that size the
	// cell holds the raw bytes directly. Dispatching on declared size
	// rather than sniffing the cell's leading bytes for a "db" signature
	// also avoids misreading raw data that happens to start with 'd','b'.
	var data []byte
	if want > format.DBChunkSize {
		if !format.IsDBRecord(cell.Data) {
			if !h.opts.Tolerant {
				return nil, errCorruptf("value data: declared size %d exceeds single-cell capacity (%d) but cell is not a db record", want, format.DBChunkSize)
			}
		} else {
			data, err = h.valueDB(cell.Data, want)
			if err != nil {
				return nil, err
			}
			return data, nil
		}
	}

	data = cell.Data
	if len(data) < want {
		if !h.opts.Tolerant {
			return nil, errCorruptf("value data: cell holds %d bytes, vk declares %d", len(data), want)
		}
		want = len(data)
	}
	data = data[:want]

	if opts.CopyData || !h.opts.ZeroCopy {
		cp := make([]byte, len(data))
		copy(cp, data)
		return cp, nil
	}
	return data, nil
}

// valueDB reassembles a Big Data (db) chain: a blocklist cell of
// DBRecord.NumBlocks offsets, each pointing at a data-block cell whose
// trailing DBBlockPadding bytes belong to the next cell's header and must
// be trimmed before concatenation.
func (h *Hive) valueDB(dbPayload []byte, expectedLen int) ([]byte, error) {
	db, err := format.DecodeDB(dbPayload)
	if err != nil {
		return nil, wrapFormatErr("db", err)
	}

	blockList, err := h.cellAt(int(db.BlocklistOffset))
	if err != nil {
		return nil, err
	}
	need := int(db.NumBlocks) * format.OffsetFieldSize
	if len(blockList.Data) < need {
		return nil, errCorruptf("db blocklist: need %d bytes for %d blocks, have %d", need, db.NumBlocks, len(blockList.Data))
	}

	out := make([]byte, 0, expectedLen)
	for i := 0; i < int(db.NumBlocks) && len(out) < expectedLen; i++ {
		blockOff := format.ReadU32(blockList.Data, i*format.OffsetFieldSize)
		blockCell, err := h.cellAt(int(blockOff))
		if err != nil {
			if h.opts.Tolerant {
				break
			}
			return nil, err
		}
		chunk := blockCell.Data
		if len(chunk) > format.DBBlockPadding {
			chunk = chunk[:len(chunk)-format.DBBlockPadding]
		}
		if remaining := expectedLen - len(out); len(chunk) > remaining {
			chunk = chunk[:remaining]
		}
		out = append(out, chunk...)
	}

	if len(out) < expectedLen {
		if !h.opts.Tolerant {
			return nil, errCorruptf("db: reassembled %d of %d expected bytes", len(out), expectedLen)
		}
	}
	return out, nil
}

// ValueString decodes a REG_SZ/REG_EXPAND_SZ value.
func (h *Hive) ValueString(id types.ValueID, opts types.ReadOptions) (string, error) {
	vk, err := h.vk(id)
	if err != nil {
		return "", err
	}
	t := types.RegType(vk.Type)
	if t != types.REG_SZ && t != types.REG_EXPAND_SZ {
		return "", errTypef("value has type %s, not REG_SZ/REG_EXPAND_SZ", t)
	}
	data, err := h.ValueBytes(id, opts)
	if err != nil {
		return "", err
	}
	return format.DecodeRegString(data).Value, nil
}

// ValueStrings decodes a REG_MULTI_SZ value into its constituent strings.
func (h *Hive) ValueStrings(id types.ValueID, opts types.ReadOptions) ([]string, error) {
	vk, err := h.vk(id)
	if err != nil {
		return nil, err
	}
	if types.RegType(vk.Type) != types.REG_MULTI_SZ {
		return nil, errTypef("value has type %s, not REG_MULTI_SZ", types.RegType(vk.Type))
	}
	data, err := h.ValueBytes(id, opts)
	if err != nil {
		return nil, err
	}
	strs, _ := format.DecodeMultiString(data)
	return strs, nil
}

// ValueDWORD decodes a REG_DWORD or REG_DWORD_BE value, byte-swapping the
// big-endian variant so callers always get a native uint32.
func (h *Hive) ValueDWORD(id types.ValueID) (uint32, error) {
	vk, err := h.vk(id)
	if err != nil {
		return 0, err
	}
	t := types.RegType(vk.Type)
	if t != types.REG_DWORD && t != types.REG_DWORD_BE {
		return 0, errTypef("value has type %s, not REG_DWORD", t)
	}
	data, err := h.ValueBytes(id, types.ReadOptions{})
	if err != nil {
		return 0, err
	}
	if len(data) < format.DWORDSize {
		return 0, errCorruptf("REG_DWORD value is %d bytes, need %d", len(data), format.DWORDSize)
	}
	if t == types.REG_DWORD_BE {
		return binary.BigEndian.Uint32(data[:format.DWORDSize]), nil
	}
	return binary.LittleEndian.Uint32(data[:format.DWORDSize]), nil
}

// ValueQWORD decodes a REG_QWORD value.
func (h *Hive) ValueQWORD(id types.ValueID) (uint64, error) {
	vk, err := h.vk(id)
	if err != nil {
		return 0, err
	}
	if types.RegType(vk.Type) != types.REG_QWORD {
		return 0, errTypef("value has type %s, not REG_QWORD", types.RegType(vk.Type))
	}
	data, err := h.ValueBytes(id, types.ReadOptions{})
	if err != nil {
		return 0, err
	}
	if len(data) < format.QWORDSize {
		return 0, errCorruptf("REG_QWORD value is %d bytes, need %d", len(data), format.QWORDSize)
	}
	return binary.LittleEndian.Uint64(data[:format.QWORDSize]), nil
}
