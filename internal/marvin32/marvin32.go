// Package marvin32 implements Microsoft's Marvin32 hash, a 64-bit seeded
// block hash used to authenticate registry transaction-log entries.
package marvin32

import "math/bits"

// State is a streaming Marvin32 hasher. The zero value is not usable; create
// one with New.
type State struct {
	lo, hi uint32
	buf    [4]byte
	bufLen int
}

// New creates a Marvin32 hasher seeded with seed, split into low/high
// 32-bit halves per the published algorithm.
func New(seed uint64) *State {
	return &State{
		lo: uint32(seed),
		hi: uint32(seed >> 32),
	}
}

func mix(lo, hi, v uint32) (uint32, uint32) {
	lo += v
	hi ^= lo
	lo = bits.RotateLeft32(lo, 20) + hi
	hi = bits.RotateLeft32(hi, 9) ^ lo
	lo = bits.RotateLeft32(lo, 27) + hi
	hi = bits.RotateLeft32(hi, 19)
	return lo, hi
}

// Write absorbs bytes into the hash state in 4-byte little-endian blocks,
// buffering up to 3 trailing bytes across calls.
func (s *State) Write(p []byte) (int, error) {
	n := len(p)
	pos := 0
	if s.bufLen > 0 {
		for s.bufLen < 4 {
			if pos == len(p) {
				return n, nil
			}
			s.buf[s.bufLen] = p[pos]
			s.bufLen++
			pos++
		}
		v := uint32(s.buf[0]) | uint32(s.buf[1])<<8 | uint32(s.buf[2])<<16 | uint32(s.buf[3])<<24
		s.lo, s.hi = mix(s.lo, s.hi, v)
		s.bufLen = 0
	}
	for len(p)-pos >= 4 {
		v := uint32(p[pos]) | uint32(p[pos+1])<<8 | uint32(p[pos+2])<<16 | uint32(p[pos+3])<<24
		s.lo, s.hi = mix(s.lo, s.hi, v)
		pos += 4
	}
	s.bufLen = copy(s.buf[:], p[pos:])
	return n, nil
}

// Sum32 finalizes the hash and returns the 32-bit digest. It does not
// mutate the accumulated block state, so Write may continue to be called
// after Sum32 (matching hash.Hash32 semantics), though log authentication
// only ever finalizes once per entry.
func (s *State) Sum32() uint32 {
	fin := uint32(0x80)
	for i := s.bufLen - 1; i >= 0; i-- {
		fin = fin<<8 | uint32(s.buf[i])
	}
	lo, hi := mix(s.lo, s.hi, fin)
	lo, hi = mix(lo, hi, 0)
	return lo ^ hi
}

// Hash computes the Marvin32 digest of data in one call, seeded with seed.
func Hash(seed uint64, data []byte) uint32 {
	s := New(seed)
	_, _ = s.Write(data)
	return s.Sum32()
}

// FoldHash64 folds a stored 64-bit Marvin32 hash (as persisted in a
// transaction-log entry) down to the 32-bit digest it represents:
// (h >> 32) ^ h.
func FoldHash64(h uint64) uint32 {
	return uint32(h>>32) ^ uint32(h)
}
