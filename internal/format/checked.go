package format

import (
	"encoding/binary"
	"fmt"

	"github.com/dfirkit/nthive/internal/buf"
)

// CheckedReadU16 reads a little-endian uint16 at off, returning ErrBoundsCheck
// instead of panicking or silently zeroing when b is too short.
func CheckedReadU16(b []byte, off int) (uint16, error) {
	s, ok := buf.Slice(b, off, 2)
	if !ok {
		return 0, fmt.Errorf("%w (need 2 bytes at %d, have %d)", ErrBoundsCheck, off, len(b))
	}
	return binary.LittleEndian.Uint16(s), nil
}

// CheckedReadU32 reads a little-endian uint32 at off, returning ErrBoundsCheck
// instead of panicking or silently zeroing when b is too short.
func CheckedReadU32(b []byte, off int) (uint32, error) {
	s, ok := buf.Slice(b, off, 4)
	if !ok {
		return 0, fmt.Errorf("%w (need 4 bytes at %d, have %d)", ErrBoundsCheck, off, len(b))
	}
	return binary.LittleEndian.Uint32(s), nil
}

// CheckedReadU64 reads a little-endian uint64 at off, returning ErrBoundsCheck
// instead of panicking or silently zeroing when b is too short.
func CheckedReadU64(b []byte, off int) (uint64, error) {
	s, ok := buf.Slice(b, off, 8)
	if !ok {
		return 0, fmt.Errorf("%w (need 8 bytes at %d, have %d)", ErrBoundsCheck, off, len(b))
	}
	return binary.LittleEndian.Uint64(s), nil
}

// CheckedReadI32 reads a little-endian int32 at off, returning ErrBoundsCheck
// instead of panicking or silently zeroing when b is too short.
func CheckedReadI32(b []byte, off int) (int32, error) {
	v, err := CheckedReadU32(b, off)
	return int32(v), err
}
