// Package overlay implements a random-access byte source with sparse
// byte-range overrides layered over an underlying source. It is how the
// engine synthesizes a clean in-memory hive view without mutating the
// caller-supplied bytes: transaction-log pages are installed as overrides
// rather than written back.
package overlay

import (
	"fmt"
	"io"
	"sort"

	"github.com/dfirkit/nthive/pkg/types"
)

// segment is a contiguous override range [start, start+len(data)).
type segment struct {
	start int64
	data  []byte
}

func (s segment) end() int64 { return s.start + int64(len(s.data)) }

// Overlay wraps a types.Source with byte-range overrides. The zero value is
// not usable; construct with New.
type Overlay struct {
	src      types.Source
	segments []segment // sorted, non-overlapping, ascending by start
}

// New wraps src in an overlay with no overrides installed.
func New(src types.Source) *Overlay {
	return &Overlay{src: src}
}

// BytesSource adapts a plain []byte to types.Source.
type BytesSource []byte

func (b BytesSource) ReadAt(p []byte, off int64) (int, error) {
	if off < 0 {
		return 0, fmt.Errorf("overlay: negative offset %d", off)
	}
	if off >= int64(len(b)) {
		return 0, io.EOF
	}
	n := copy(p, b[off:])
	if n < len(p) {
		return n, io.EOF
	}
	return n, nil
}

func (b BytesSource) Size() int64 { return int64(len(b)) }

// ReaderAtSource adapts an io.ReaderAt with a known size to types.Source.
type ReaderAtSource struct {
	R  io.ReaderAt
	Sz int64
}

func (r ReaderAtSource) ReadAt(p []byte, off int64) (int, error) { return r.R.ReadAt(p, off) }
func (r ReaderAtSource) Size() int64                             { return r.Sz }

// AddBytesAt installs an override for [pos, pos+len(data)). Overlapping
// installs replace earlier bytes only in the overlapping region; the rest of
// any previously installed segment survives.
func (o *Overlay) AddBytesAt(pos int64, data []byte) {
	if len(data) == 0 {
		return
	}
	end := pos + int64(len(data))
	kept := make([]segment, 0, len(o.segments)+2)
	for _, seg := range o.segments {
		switch {
		case seg.end() <= pos || seg.start >= end:
			kept = append(kept, seg)
		default:
			if seg.start < pos {
				kept = append(kept, segment{start: seg.start, data: seg.data[:pos-seg.start]})
			}
			if seg.end() > end {
				kept = append(kept, segment{start: end, data: seg.data[end-seg.start:]})
			}
		}
	}
	owned := make([]byte, len(data))
	copy(owned, data)
	kept = append(kept, segment{start: pos, data: owned})
	sort.Slice(kept, func(i, j int) bool { return kept[i].start < kept[j].start })
	o.segments = kept
}

// ReadAt implements types.Source, serving bytes from overrides where
// present and falling through to the underlying source elsewhere. A read
// that spans an override boundary is served piecewise. Reads entirely past
// the end of both the overrides and the source return io.EOF with whatever
// partial prefix was available, matching io.ReaderAt semantics.
func (o *Overlay) ReadAt(p []byte, off int64) (int, error) {
	if len(p) == 0 {
		return 0, nil
	}
	end := off + int64(len(p))
	filled := make([]bool, len(p))
	n := 0

	for _, seg := range o.segments {
		lo := seg.start
		if lo < off {
			lo = off
		}
		hi := seg.end()
		if hi > end {
			hi = end
		}
		if lo >= hi {
			continue
		}
		copy(p[lo-off:hi-off], seg.data[lo-seg.start:hi-seg.start])
		for i := lo - off; i < hi-off; i++ {
			filled[i] = true
		}
	}

	// Fill gaps from the underlying source, in contiguous runs so a single
	// source read can serve them.
	i := 0
	var lastErr error
	for i < len(p) {
		if filled[i] {
			i++
			continue
		}
		j := i
		for j < len(p) && !filled[j] {
			j++
		}
		m, err := o.src.ReadAt(p[i:j], off+int64(i))
		for k := 0; k < m; k++ {
			filled[i+k] = true
		}
		if err != nil {
			lastErr = err
			break
		}
		i = j
	}

	for _, f := range filled {
		if f {
			n++
		}
	}
	if n < len(p) {
		if lastErr == nil {
			lastErr = io.EOF
		}
		return n, lastErr
	}
	return n, nil
}

// Size reports the underlying source's size. Overrides never extend the
// logical size of the hive; they replace bytes within it.
func (o *Overlay) Size() int64 { return o.src.Size() }
