package scanner

import (
	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/pkg/types"
)

// Node is a recovered key node: an offset-indexed NK record plus whatever
// children the builder was able to attach to it. Directed navigation only
// ever walks Children, never an NK's own parent offset, so no cycle through
// a corrupted or adversarial parent chain is representable.
type Node struct {
	Offset    int
	NK        format.NKRecord
	Name      string
	Tainted   bool
	IsDeleted bool
	Children  []*Node
}

// IsRoot reports whether this node carries the KEY_HIVE_ENTRY flag, the
// marker Windows sets on exactly one node: the hive's true root.
func (n *Node) IsRoot() bool {
	return n.NK.Flags&format.NKFlagHiveEntry != 0
}

// Tree is the forest produced by Build: every node whose declared parent
// offset was never resolved during the scan becomes a root. A hive that
// parses cleanly top-down yields exactly one root (the true KEY_HIVE_ENTRY
// node); a damaged hive yields one root per orphaned subtree.
type Tree struct {
	Roots []*Node
}

// Build implements the recovered-tree construction in spec §4.12: a single
// forward pass over cells maintaining by-offset, orphan, and
// waiting-on-parent indices, so that children arriving before their parent
// (or whose parent never arrives) are still attached correctly, without
// ever revisiting a cell once it's been read.
func Build(hiveBinsData []byte, filter Filter, progress types.ProgressFunc) *Tree {
	byOffset := make(map[int]*Node)
	orphans := make(map[int]*Node)
	waiting := make(map[int][]*Node)

	for _, cell := range Scan(hiveBinsData, filter, progress) {
		if !cell.IsNK() {
			continue
		}
		nk, err := format.DecodeNK(cell.Data)
		if err != nil {
			continue
		}
		decoded := format.DecodeKeyName(nk.NameRaw, nk.NameIsCompressed())
		node := &Node{
			Offset:    cell.Offset,
			NK:        nk,
			Name:      decoded.Value,
			Tainted:   decoded.Tainted,
			IsDeleted: cell.Free,
		}
		insert(node, int(nk.ParentOffset), byOffset, orphans, waiting)
	}

	roots := make([]*Node, 0, len(orphans))
	for _, n := range orphans {
		roots = append(roots, n)
	}
	return &Tree{Roots: roots}
}

func insert(node *Node, parentOffset int, byOffset map[int]*Node, orphans map[int]*Node, waiting map[int][]*Node) {
	byOffset[node.Offset] = node

	if parent, ok := byOffset[parentOffset]; ok {
		parent.Children = append(parent.Children, node)
	} else {
		orphans[node.Offset] = node
		waiting[parentOffset] = append(waiting[parentOffset], node)
	}

	if children, ok := waiting[node.Offset]; ok {
		for _, child := range children {
			node.Children = append(node.Children, child)
			delete(orphans, child.Offset)
		}
		delete(waiting, node.Offset)
	}
}

// OrphanPath returns the synthetic path spec §4.12 assigns to a recovered
// root that is not the hive's true KEY_HIVE_ENTRY node:
// "$Orphaned/<hex offset>".
func OrphanPath(n *Node) string {
	const hexDigits = "0123456789abcdef"
	off := uint32(n.Offset)
	var buf [8]byte
	for i := 7; i >= 0; i-- {
		buf[i] = hexDigits[off&0xF]
		off >>= 4
	}
	return "$Orphaned/" + string(buf[:])
}
