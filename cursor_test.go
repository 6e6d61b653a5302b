package cab

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestByteReaderSequentialReads(t *testing.T) {
	r := newByteReader([]byte{0x01, 0x02, 0x03, 0x04, 0x05, 0x06, 'h', 'i', 0, 0xFF})

	v16, err := r.u16()
	require.NoError(t, err)
	assert.Equal(t, uint16(0x0201), v16)

	v32, err := r.u32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x06050403), v32)

	s, err := r.cstring()
	require.NoError(t, err)
	assert.Equal(t, "hi", s)
	assert.Equal(t, 9, r.offset())
	assert.Equal(t, 1, r.remaining())
}

func TestByteReaderTruncation(t *testing.T) {
	r := newByteReader([]byte{0x01, 0x02})
	_, err := r.u32()
	assert.ErrorIs(t, err, ErrTruncated)

	_, err = newByteReader([]byte("no terminator")).cstring()
	assert.ErrorIs(t, err, ErrTruncated)

	var header cabinetFileHeader
	err = binary.Read(newByteReader(make([]byte, 10)), binary.LittleEndian, &header)
	assert.ErrorIs(t, err, ErrTruncated)
}

func TestByteReaderSubCursor(t *testing.T) {
	r := newByteReader([]byte{0xAA, 0x01, 0x02, 0x03, 0x04})
	_, err := r.bytes(1)
	require.NoError(t, err)

	sub := r.sub()
	v, err := sub.u32()
	require.NoError(t, err)
	assert.Equal(t, uint32(0x04030201), v)

	// The parent advances by the sub-record's consumed length.
	r.advance(sub.offset())
	assert.Equal(t, 0, r.remaining())
}

func TestByteWriterPatch(t *testing.T) {
	w := &byteWriter{}
	w.raw([]byte("MSCF"))
	patchOff := w.offset()
	w.u32(0)
	w.u16(0x0102)
	w.cstring("a")
	w.patchU32(patchOff, 0xCAFEBABE)

	assert.Equal(t, []byte{'M', 'S', 'C', 'F', 0xBE, 0xBA, 0xFE, 0xCA, 0x02, 0x01, 'a', 0}, w.buf)
}
