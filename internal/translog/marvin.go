package translog

import (
	"github.com/dfirkit/nthive/internal/format"
	"github.com/dfirkit/nthive/internal/marvin32"
)

// authenticate verifies both Marvin32 hashes stored in a log entry, per
// spec §4.5 point 2:
//
//   - hash1 covers everything after the fixed 40-byte header.
//   - hash2 covers the first 32 bytes (header fields up to and including
//     hash1, excluding hash2 itself).
//
// Both stored hashes are folded 64-bit values; FoldHash64 reduces them to
// the 32-bit digest Marvin32 actually produces before comparing.
func authenticate(e format.LogEntry) bool {
	h1 := marvin32.Hash(format.Marvin32LogSeed, e.Hash1Region())
	if h1 != marvin32.FoldHash64(e.Hash1) {
		return false
	}
	h2 := marvin32.Hash(format.Marvin32LogSeed, e.Hash2Region())
	return h2 == marvin32.FoldHash64(e.Hash2)
}
