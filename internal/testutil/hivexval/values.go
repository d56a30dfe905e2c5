package hivexval

import (
	"errors"
	"time"

	"github.com/dfirkit/nthive/pkg/types"
)

// GetValues lists all values in a key.
func (v *Validator) GetValues(key interface{}) ([]interface{}, error) {
	nodeID, ok := key.(types.NodeID)
	if !ok {
		return nil, errors.New("invalid key handle type")
	}
	values, err := v.reader.Values(nodeID)
	if err != nil {
		return nil, err
	}
	result := make([]interface{}, len(values))
	for i, val := range values {
		result[i] = val
	}
	return result, nil
}

// GetValue finds a value by name (case-insensitive).
func (v *Validator) GetValue(key interface{}, name string) (interface{}, error) {
	nodeID, ok := key.(types.NodeID)
	if !ok {
		return nil, errors.New("invalid key handle type")
	}
	return v.reader.GetValue(nodeID, name)
}

// GetValueCount returns the number of values in a key.
func (v *Validator) GetValueCount(key interface{}) (int, error) {
	nodeID, ok := key.(types.NodeID)
	if !ok {
		return 0, errors.New("invalid key handle type")
	}
	return v.reader.KeyValueCount(nodeID)
}

// GetValueName returns a value's name.
func (v *Validator) GetValueName(val interface{}) (string, error) {
	valID, ok := val.(types.ValueID)
	if !ok {
		return "", errors.New("invalid value handle type")
	}
	return v.reader.ValueName(valID)
}

// GetValueType returns a value's type as a string, e.g. "REG_SZ".
func (v *Validator) GetValueType(val interface{}) (string, error) {
	valID, ok := val.(types.ValueID)
	if !ok {
		return "", errors.New("invalid value handle type")
	}
	regType, err := v.reader.ValueType(valID)
	if err != nil {
		return "", err
	}
	return regType.String(), nil
}

// GetValueData returns raw value bytes.
func (v *Validator) GetValueData(val interface{}) ([]byte, error) {
	valID, ok := val.(types.ValueID)
	if !ok {
		return nil, errors.New("invalid value handle type")
	}
	return v.reader.ValueBytes(valID, types.ReadOptions{})
}

// GetValueString returns a value as a string (REG_SZ/REG_EXPAND_SZ).
func (v *Validator) GetValueString(val interface{}) (string, error) {
	valID, ok := val.(types.ValueID)
	if !ok {
		return "", errors.New("invalid value handle type")
	}
	return v.reader.ValueString(valID, types.ReadOptions{})
}

// GetValueDWORD returns a value as uint32 (REG_DWORD).
func (v *Validator) GetValueDWORD(val interface{}) (uint32, error) {
	valID, ok := val.(types.ValueID)
	if !ok {
		return 0, errors.New("invalid value handle type")
	}
	return v.reader.ValueDWORD(valID)
}

// GetValueQWORD returns a value as uint64 (REG_QWORD).
func (v *Validator) GetValueQWORD(val interface{}) (uint64, error) {
	valID, ok := val.(types.ValueID)
	if !ok {
		return 0, errors.New("invalid value handle type")
	}
	return v.reader.ValueQWORD(valID)
}

// GetValueStrings returns a value as a string slice (REG_MULTI_SZ).
func (v *Validator) GetValueStrings(val interface{}) ([]string, error) {
	valID, ok := val.(types.ValueID)
	if !ok {
		return nil, errors.New("invalid value handle type")
	}
	return v.reader.ValueStrings(valID, types.ReadOptions{})
}

// GetKeyTimestamp returns a key's last-write time.
func (v *Validator) GetKeyTimestamp(key interface{}) (time.Time, error) {
	nodeID, ok := key.(types.NodeID)
	if !ok {
		return time.Time{}, errors.New("invalid key handle type")
	}
	return v.reader.KeyTimestamp(nodeID)
}
