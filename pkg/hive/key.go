package hive

import (
	"strings"
	"time"

	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/pkg/types"
)

// StatKey returns cheap NK metadata without touching subkey/value lists
// beyond their declared counts.
func (h *Hive) StatKey(id types.NodeID) (types.KeyMeta, error) {
	nk, err := h.nk(id)
	if err != nil {
		return types.KeyMeta{}, err
	}
	return h.keyMetaFromNK(nk), nil
}

func (h *Hive) keyMetaFromNK(nk format.NKRecord) types.KeyMeta {
	decoded := format.DecodeKeyName(nk.NameRaw, nk.NameIsCompressed())
	return types.KeyMeta{
		Name:           decoded.Value,
		LastWrite:      format.FiletimeToTime(nk.LastWriteRaw),
		SubkeyN:        int(nk.SubkeyCount),
		ValueN:         int(nk.ValueCount),
		HasSecDesc:     nk.SecurityOffset != format.InvalidOffset,
		NameCompressed: nk.NameIsCompressed(),
		NameRaw:        nk.NameRaw,
	}
}

// DetailKey returns the full NK record, including a decoded class name
// when one is present.
func (h *Hive) DetailKey(id types.NodeID) (types.KeyDetail, error) {
	nk, err := h.nk(id)
	if err != nil {
		return types.KeyDetail{}, err
	}
	detail := types.KeyDetail{
		KeyMeta:            h.keyMetaFromNK(nk),
		Flags:              nk.Flags,
		ParentOffset:       nk.ParentOffset,
		SubkeyListOffset:   nk.SubkeyListOffset,
		ValueListOffset:    nk.ValueListOffset,
		SecurityOffset:     nk.SecurityOffset,
		ClassNameOffset:    nk.ClassNameOffset,
		MaxNameLength:      nk.MaxNameLength,
		MaxClassLength:     nk.MaxClassLength,
		MaxValueNameLength: nk.MaxValueNameLength,
		MaxValueDataLength: nk.MaxValueDataLength,
	}
	if nk.ClassNameOffset != format.InvalidOffset && nk.ClassLength > 0 {
		if cell, err := h.cellAt(int(nk.ClassNameOffset)); err == nil {
			n := int(nk.ClassLength)
			if n > len(cell.Data) {
				n = len(cell.Data)
			}
			detail.ClassName = format.DecodeUTF16LE(cell.Data[:n]).Value
		}
	}
	return detail, nil
}

// subkeyOffsets resolves an NK's subkey list to NK cell offsets, flattening
// an RI (indirect) list's constituent LF/LH sub-lists transparently: per
// spec the sentinel (InvalidOffset/zero count) is checked before the list
// cell is ever read.
func (h *Hive) subkeyOffsets(nk format.NKRecord) ([]uint32, error) {
	if nk.SubkeyListOffset == format.InvalidOffset || nk.SubkeyCount == 0 {
		return nil, nil
	}
	cell, err := h.cellAt(int(nk.SubkeyListOffset))
	if err != nil {
		return nil, err
	}
	if format.IsRIList(cell.Data) {
		return h.flattenRIList(cell.Data)
	}
	offs, err := format.DecodeSubkeyList(cell.Data, nk.SubkeyCount)
	if err != nil {
		return nil, wrapFormatErr("subkey list", err)
	}
	return offs, nil
}

func (h *Hive) flattenRIList(riPayload []byte) ([]uint32, error) {
	subLists, err := format.DecodeRIList(riPayload)
	if err != nil {
		return nil, wrapFormatErr("ri list", err)
	}
	var out []uint32
	for _, sub := range subLists {
		subCell, err := h.cellAt(int(sub))
		if err != nil {
			if h.opts.Tolerant {
				continue
			}
			return nil, err
		}
		offs, err := format.DecodeSubkeyList(subCell.Data, 0)
		if err != nil {
			if h.opts.Tolerant {
				continue
			}
			return nil, wrapFormatErr("ri sublist", err)
		}
		out = append(out, offs...)
	}
	return out, nil
}

// Subkeys lists direct child keys.
func (h *Hive) Subkeys(id types.NodeID) ([]types.NodeID, error) {
	nk, err := h.nk(id)
	if err != nil {
		return nil, err
	}
	offs, err := h.subkeyOffsets(nk)
	if err != nil {
		return nil, err
	}
	out := make([]types.NodeID, len(offs))
	for i, o := range offs {
		out[i] = types.NodeID(o)
	}
	return out, nil
}

// Lookup finds a direct child key by name, case-insensitively, exactly as
// the registry itself treats key names.
func (h *Hive) Lookup(parent types.NodeID, childName string) (types.NodeID, error) {
	kids, err := h.Subkeys(parent)
	if err != nil {
		return 0, err
	}
	for _, k := range kids {
		meta, err := h.StatKey(k)
		if err != nil {
			if h.opts.Tolerant {
				continue
			}
			return 0, err
		}
		if strings.EqualFold(meta.Name, childName) {
			return k, nil
		}
	}
	return 0, types.ErrNotFound
}

// GetChild is the hivex-compatible name for Lookup.
func (h *Hive) GetChild(parent types.NodeID, name string) (types.NodeID, error) {
	return h.Lookup(parent, name)
}

// Parent returns the node's parent by following its own ParentOffset
// field directly, the ordinary top-down navigation mode: it trusts the NK
// record the way Windows itself does, with no cycle protection. A hive
// too damaged for this to be safe should be traversed via RecoverTree
// instead, which never follows a parent pointer for navigation.
func (h *Hive) Parent(id types.NodeID) (types.NodeID, error) {
	nk, err := h.nk(id)
	if err != nil {
		return 0, err
	}
	if nk.Flags&format.NKFlagHiveEntry != 0 || nk.ParentOffset == format.InvalidOffset {
		return 0, types.ErrNotFound
	}
	return types.NodeID(nk.ParentOffset), nil
}

// KeyName is the hivex-compatible name for StatKey(id).Name.
func (h *Hive) KeyName(id types.NodeID) (string, error) {
	meta, err := h.StatKey(id)
	if err != nil {
		return "", err
	}
	return meta.Name, nil
}

// KeySubkeyCount returns the NK's declared subkey count.
func (h *Hive) KeySubkeyCount(id types.NodeID) (int, error) {
	nk, err := h.nk(id)
	if err != nil {
		return 0, err
	}
	return int(nk.SubkeyCount), nil
}

// KeyValueCount returns the NK's declared value count.
func (h *Hive) KeyValueCount(id types.NodeID) (int, error) {
	nk, err := h.nk(id)
	if err != nil {
		return 0, err
	}
	return int(nk.ValueCount), nil
}

// KeyTimestamp returns the key's last-write time.
func (h *Hive) KeyTimestamp(id types.NodeID) (time.Time, error) {
	nk, err := h.nk(id)
	if err != nil {
		return time.Time{}, err
	}
	return format.FiletimeToTime(nk.LastWriteRaw), nil
}
