package cab

import (
	"bytes"
	"encoding/binary"
	"fmt"
)

// byteReader is a sequential cursor over an in-memory buffer. Fixed-width
// record structs are decoded through it with binary.Read; any read past the
// end of the buffer fails with ErrTruncated.
type byteReader struct {
	buf []byte
	off int
}

func newByteReader(buf []byte) *byteReader {
	return &byteReader{buf: buf}
}

func (r *byteReader) Read(p []byte) (int, error) {
	n := copy(p, r.buf[r.off:])
	r.off += n
	if n < len(p) {
		return n, fmt.Errorf("%w: %d byte read at offset %d", ErrTruncated, len(p), r.off-n)
	}
	return n, nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if n > len(r.buf)-r.off {
		return nil, fmt.Errorf("%w: %d byte read at offset %d", ErrTruncated, n, r.off)
	}
	b := r.buf[r.off : r.off+n]
	r.off += n
	return b, nil
}

func (r *byteReader) u16() (uint16, error) {
	b, err := r.bytes(2)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint16(b), nil
}

func (r *byteReader) u32() (uint32, error) {
	b, err := r.bytes(4)
	if err != nil {
		return 0, err
	}
	return binary.LittleEndian.Uint32(b), nil
}

// cstring reads a NUL-terminated string and leaves the cursor positioned
// after the terminator.
func (r *byteReader) cstring() (string, error) {
	end := bytes.IndexByte(r.buf[r.off:], 0)
	if end < 0 {
		return "", fmt.Errorf("%w: unterminated string at offset %d", ErrTruncated, r.off)
	}
	s := string(r.buf[r.off : r.off+end])
	r.off += end + 1
	return s, nil
}

// sub spawns a cursor viewing the buffer from the current offset, so a
// record can be parsed independent of its absolute position. The parent is
// advanced separately once the record's consumed length is known.
func (r *byteReader) sub() *byteReader {
	return &byteReader{buf: r.buf[r.off:]}
}

func (r *byteReader) advance(n int) {
	r.off += n
}

func (r *byteReader) offset() int {
	return r.off
}

func (r *byteReader) remaining() int {
	return len(r.buf) - r.off
}

// byteWriter is an append-only buffer writer with in-place patching of
// already-written words, used to backpatch offset and size fields that are
// only known once later content has been emitted.
type byteWriter struct {
	buf []byte
}

func (w *byteWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	return len(p), nil
}

func (w *byteWriter) raw(p []byte) {
	w.buf = append(w.buf, p...)
}

func (w *byteWriter) u8(v uint8) {
	w.buf = append(w.buf, v)
}

func (w *byteWriter) u16(v uint16) {
	w.buf = binary.LittleEndian.AppendUint16(w.buf, v)
}

func (w *byteWriter) u32(v uint32) {
	w.buf = binary.LittleEndian.AppendUint32(w.buf, v)
}

func (w *byteWriter) cstring(s string) {
	w.buf = append(w.buf, s...)
	w.buf = append(w.buf, 0)
}

func (w *byteWriter) offset() int {
	return len(w.buf)
}

func (w *byteWriter) patchU32(off int, v uint32) {
	binary.LittleEndian.PutUint32(w.buf[off:], v)
}
