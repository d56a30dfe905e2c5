package hive

import (
	"strings"

	"github.com/dfirkit/nthive/pkg/types"
)

// Find resolves a backslash-separated path from the root, matching each
// segment against a child key name case-insensitively. A path of "" or
// "\" (after trimming leading/trailing separators) resolves to the root
// itself.
func (h *Hive) Find(path string) (types.NodeID, error) {
	root, err := h.Root()
	if err != nil {
		return 0, err
	}
	trimmed := strings.Trim(path, "\\")
	if trimmed == "" {
		return root, nil
	}
	cur := root
	for _, seg := range strings.Split(trimmed, "\\") {
		if seg == "" {
			continue
		}
		next, err := h.Lookup(cur, seg)
		if err != nil {
			return 0, err
		}
		cur = next
	}
	return cur, nil
}

// Walk performs a pre-order traversal of the key tree rooted at n. A
// non-nil error from fn aborts the traversal and is returned unchanged.
func (h *Hive) Walk(n types.NodeID, fn func(types.NodeID) error) error {
	if err := fn(n); err != nil {
		return err
	}
	kids, err := h.Subkeys(n)
	if err != nil {
		return err
	}
	for _, k := range kids {
		if err := h.Walk(k, fn); err != nil {
			return err
		}
	}
	return nil
}
