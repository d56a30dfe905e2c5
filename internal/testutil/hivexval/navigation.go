package hivexval

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dfirkit/nthive/pkg/types"
)

// Root returns the root node handle.
func (v *Validator) Root() (interface{}, error) {
	root, err := v.reader.Root()
	if err != nil {
		return nil, fmt.Errorf("get root: %w", err)
	}
	return root, nil
}

// GetKey finds a key by path.
//
// Path should be a slice of key names (e.g., []string{"Software", "MyApp"}).
func (v *Validator) GetKey(path []string) (interface{}, error) {
	root, err := v.Root()
	if err != nil {
		return nil, err
	}

	if len(path) == 0 {
		return root, nil
	}

	current := root
	for _, name := range path {
		current, err = v.getChild(current, name)
		if err != nil {
			return nil, fmt.Errorf("navigate to '%s': %w", strings.Join(path, "\\"), err)
		}
	}

	return current, nil
}

// GetKeyName returns the name of a key. Returns "" for the root key.
func (v *Validator) GetKeyName(key interface{}) (string, error) {
	nodeID, ok := key.(types.NodeID)
	if !ok {
		return "", errors.New("invalid key handle type")
	}
	return v.reader.KeyName(nodeID)
}

// GetSubkeys lists all child keys.
func (v *Validator) GetSubkeys(key interface{}) ([]interface{}, error) {
	nodeID, ok := key.(types.NodeID)
	if !ok {
		return nil, errors.New("invalid key handle type")
	}
	children, err := v.reader.Subkeys(nodeID)
	if err != nil {
		return nil, err
	}
	result := make([]interface{}, len(children))
	for i, child := range children {
		result[i] = child
	}
	return result, nil
}

// GetSubkeyCount returns the number of child keys.
func (v *Validator) GetSubkeyCount(key interface{}) (int, error) {
	nodeID, ok := key.(types.NodeID)
	if !ok {
		return 0, errors.New("invalid key handle type")
	}
	return v.reader.KeySubkeyCount(nodeID)
}

// GetParent returns the parent key. Returns an error if key is root.
func (v *Validator) GetParent(key interface{}) (interface{}, error) {
	nodeID, ok := key.(types.NodeID)
	if !ok {
		return nil, errors.New("invalid key handle type")
	}
	return v.reader.Parent(nodeID)
}

// CountKeys recursively counts all keys in the hive.
func (v *Validator) CountKeys() (int, error) {
	keys, _, err := v.CountTree()
	return keys, err
}

// CountValues recursively counts all values in the hive.
func (v *Validator) CountValues() (int, error) {
	_, values, err := v.CountTree()
	return values, err
}

// CountTree returns both key and value counts.
func (v *Validator) CountTree() (int, int, error) {
	root, err := v.Root()
	if err != nil {
		return 0, 0, err
	}
	return v.countNode(root)
}

func (v *Validator) countNode(node interface{}) (int, int, error) {
	keys := 1

	values := 0
	if valCount, err := v.GetValueCount(node); err == nil {
		values += valCount
	}

	children, err := v.GetSubkeys(node)
	if err != nil {
		return keys, values, nil //nolint:nilerr // no children is OK for counting
	}

	for _, child := range children {
		childKeys, childValues, err := v.countNode(child)
		if err != nil {
			return keys, values, err
		}
		keys += childKeys
		values += childValues
	}

	return keys, values, nil
}

// WalkTree performs recursive traversal with a callback.
//
// The callback is invoked for each key (with isValue=false) and each value
// (with isValue=true).
func (v *Validator) WalkTree(fn func(path string, depth int, isValue bool) error) error {
	root, err := v.Root()
	if err != nil {
		return err
	}
	return v.walkNode(root, "", 0, fn)
}

func (v *Validator) walkNode(node interface{}, currentPath string, depth int, fn func(string, int, bool) error) error {
	name, err := v.GetKeyName(node)
	if err != nil {
		return err
	}

	var nodePath string
	if currentPath == "" {
		nodePath = "\\"
	} else {
		nodePath = currentPath + "\\" + name
	}

	if err := fn(nodePath, depth, false); err != nil {
		return err
	}

	if values, err := v.GetValues(node); err == nil {
		for _, val := range values {
			valName, err := v.GetValueName(val)
			if err != nil {
				continue
			}
			if err := fn(nodePath+"\\"+valName, depth, true); err != nil {
				return err
			}
		}
	}

	children, err := v.GetSubkeys(node)
	if err != nil {
		return nil //nolint:nilerr // no children is OK for walking
	}

	for _, child := range children {
		if err := v.walkNode(child, nodePath, depth+1, fn); err != nil {
			return err
		}
	}

	return nil
}

// getChild finds a child key by name (case-insensitive).
func (v *Validator) getChild(parent interface{}, name string) (interface{}, error) {
	nodeID, ok := parent.(types.NodeID)
	if !ok {
		return nil, errors.New("invalid key handle type")
	}
	return v.reader.GetChild(nodeID, name)
}
