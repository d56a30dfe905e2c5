package overlay

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReadAt_PassthroughNoOverrides(t *testing.T) {
	src := BytesSource([]byte("0123456789"))
	o := New(src)
	buf := make([]byte, 4)
	n, err := o.ReadAt(buf, 2)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []byte("2345"), buf)
}

func TestReadAt_OverrideEntirelyWithinRead(t *testing.T) {
	src := BytesSource([]byte("0123456789"))
	o := New(src)
	o.AddBytesAt(3, []byte("XY"))
	buf := make([]byte, 6)
	n, err := o.ReadAt(buf, 1)
	require.NoError(t, err)
	assert.Equal(t, 6, n)
	assert.Equal(t, []byte("12XY56"), buf)
}

func TestReadAt_PiecewiseAcrossOverrideBoundary(t *testing.T) {
	src := BytesSource([]byte("aaaaaaaaaa"))
	o := New(src)
	o.AddBytesAt(0, []byte("XXX"))
	o.AddBytesAt(7, []byte("YYY"))
	buf := make([]byte, 10)
	n, err := o.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, []byte("XXXaaaaYYY"), buf)
}

func TestAddBytesAt_OverlappingReplacesOnlyOverlap(t *testing.T) {
	src := BytesSource(make([]byte, 20))
	o := New(src)
	o.AddBytesAt(0, []byte("AAAAAAAA")) // [0,8)
	o.AddBytesAt(4, []byte("BBBB"))     // [4,8) replaced
	buf := make([]byte, 8)
	n, err := o.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 8, n)
	assert.Equal(t, []byte("AAAABBBB"), buf)
}

func TestAddBytesAt_OverlapSplitsBothSides(t *testing.T) {
	src := BytesSource(make([]byte, 20))
	o := New(src)
	o.AddBytesAt(0, []byte("0123456789")) // [0,10)
	o.AddBytesAt(3, []byte("XX"))         // overlaps middle: [3,5)
	buf := make([]byte, 10)
	n, err := o.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, 10, n)
	assert.Equal(t, []byte("012XX56789"), buf)
}

func TestReadAt_OutOfRangeIsEOF(t *testing.T) {
	src := BytesSource([]byte("abc"))
	o := New(src)
	buf := make([]byte, 4)
	_, err := o.ReadAt(buf, 10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestAddBytesAt_NeverMutatesUnderlyingSource(t *testing.T) {
	underlying := []byte("0123456789")
	src := BytesSource(underlying)
	o := New(src)
	o.AddBytesAt(0, []byte("XXXX"))
	assert.Equal(t, []byte("0123456789"), []byte(underlying))

	// Installing the override must copy, not alias, the caller's slice.
	page := []byte("YYYY")
	o.AddBytesAt(0, page)
	page[0] = 'Z'
	buf := make([]byte, 4)
	_, err := o.ReadAt(buf, 0)
	require.NoError(t, err)
	assert.Equal(t, []byte("YYYY"), buf)
}
