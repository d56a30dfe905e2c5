package hive

import (
	"github.com/dfirkit/nthive/internal/scanner"
	"github.com/dfirkit/nthive/pkg/types"
)

// nodeIter is a slice-backed types.NodeIter. Subkeys/Values already expand
// the whole list into memory, so this buys the caller the narrower
// iteration API without pretending to stream a structure that doesn't
// stream in this implementation.
type nodeIter struct {
	ids []types.NodeID
	i   int
}

func (it *nodeIter) Next() bool {
	if it.i >= len(it.ids) {
		return false
	}
	it.i++
	return true
}

func (it *nodeIter) Err() error          { return nil }
func (it *nodeIter) Node() types.NodeID  { return it.ids[it.i-1] }

type valueIter struct {
	ids []types.ValueID
	i   int
}

func (it *valueIter) Next() bool {
	if it.i >= len(it.ids) {
		return false
	}
	it.i++
	return true
}

func (it *valueIter) Err() error           { return nil }
func (it *valueIter) Value() types.ValueID { return it.ids[it.i-1] }

// ScanSubkeys returns an allocation-light iterator over a key's children.
func (h *Hive) ScanSubkeys(id types.NodeID) (types.NodeIter, error) {
	ids, err := h.Subkeys(id)
	if err != nil {
		return nil, err
	}
	return &nodeIter{ids: ids}, nil
}

// ScanValues returns an allocation-light iterator over a key's values.
func (h *Hive) ScanValues(id types.NodeID) (types.ValueIter, error) {
	ids, err := h.Values(id)
	if err != nil {
		return nil, err
	}
	return &valueIter{ids: ids}, nil
}

// ScanCells performs a linear, resync-on-corruption walk of every cell in
// the hive, bypassing NK/VK navigation entirely. Useful for carving a hive
// image too damaged to resolve Root().
func (h *Hive) ScanCells(filter scanner.Filter, progress types.ProgressFunc) []scanner.Cell {
	return scanner.Scan(h.bins, filter, progress)
}

// RecoverTree reconstructs a key hierarchy from a linear cell scan rather
// than top-down NK navigation, attaching orphaned subtrees under a
// synthetic "$Orphaned/<offset>" root instead of discarding them.
func (h *Hive) RecoverTree(filter scanner.Filter, progress types.ProgressFunc) *scanner.Tree {
	return scanner.Build(h.bins, filter, progress)
}
