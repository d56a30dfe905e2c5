// Package scanner implements the linear cell-recovery walk and the
// offset-indexed tree builder used to reconstruct a key hierarchy from a
// hive that cannot be trusted to navigate cleanly top-down.
package scanner

import (
	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/pkg/types"
)

// Filter selects which cells a scan yields.
type Filter int

const (
	// All yields every cell, allocated and deleted alike.
	All Filter = iota
	// AllocatedOnly yields only cells currently marked in-use.
	AllocatedOnly
	// DeletedOnly yields only cells marked free (candidates for recovery).
	DeletedOnly
)

func (f Filter) accepts(free bool) bool {
	switch f {
	case AllocatedOnly:
		return !free
	case DeletedOnly:
		return free
	default:
		return true
	}
}

// Cell is a single cell yielded by Scan, carrying its offset relative to the
// start of hive-bins data so callers can cross-reference it against NK
// parent/subkey-list/value-list offsets without further translation.
type Cell struct {
	Offset int
	Size   int
	Free   bool
	Tag    [format.SignatureSize]byte
	Data   []byte
}

// Scan walks hiveBinsData (everything after the 4096-byte base block)
// linearly, yielding cells that match filter in file order. It never stops
// at the first malformed cell or bin: a parse failure triggers a resync to
// the next plausible boundary (spec §4.11), and the scan runs to the end of
// the buffer regardless of how much structure along the way is unreadable.
//
// progress is called with the current byte position after every cell; pass
// types.NoProgress for a no-op sink.
func Scan(hiveBinsData []byte, filter Filter, progress types.ProgressFunc) []Cell {
	if progress == nil {
		progress = types.NoProgress
	}

	var out []Cell
	pos := 0
	for pos+format.HBINHeaderSize <= len(hiveBinsData) {
		hbin, nextBin, err := format.NextHBIN(hiveBinsData, pos)
		if err != nil {
			pos += format.HBINAlignment
			continue
		}

		binEnd := pos + int(hbin.Size)
		if binEnd > len(hiveBinsData) {
			binEnd = len(hiveBinsData)
		}

		cellPos := pos + format.HBINHeaderSize
		for cellPos+format.CellHeaderSize <= binEnd {
			cell, nextCell, err := format.NextCell(hiveBinsData, hbin, cellPos)
			if err != nil {
				cellPos = ((cellPos / format.HBINAlignment) + 1) * format.HBINAlignment
				continue
			}
			if filter.accepts(cell.Free) {
				out = append(out, Cell{
					Offset: cell.Offset,
					Size:   cell.Size,
					Free:   cell.Free,
					Tag:    cell.Tag,
					Data:   cell.Data,
				})
			}
			progress(uint64(cellPos))
			cellPos = nextCell
		}
		pos = nextBin
	}
	return out
}

// IsNK reports whether a cell's tag identifies it as a key node.
func (c Cell) IsNK() bool {
	return c.Tag[0] == format.NKSignature[0] && c.Tag[1] == format.NKSignature[1]
}
