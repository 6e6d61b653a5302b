// Package mszip implements the MSZIP block compression scheme used inside
// cabinet folders: each data block carries a two-byte CK marker followed by
// a raw DEFLATE stream, and consecutive blocks within a folder share one
// 32KiB history window.
package mszip

import (
	"bytes"
	"compress/flate"
	"errors"
	"fmt"
	"io"
)

// MaxChunk is the maximum number of uncompressed bytes per block.
const MaxChunk = 1 << 15

var (
	// ErrBlockMagic is returned when a block does not start with the CK
	// marker.
	ErrBlockMagic = errors.New("invalid MSZIP block header")
)

const (
	magic0 = 0x43 // 'C'
	magic1 = 0x4B // 'K'
)

// Block is one compressed block as stored in a cabinet data block: the CK
// marker followed by DEFLATE bytes, plus the size of the chunk it encodes.
type Block struct {
	Payload          []byte
	UncompressedSize int
}

// Decompress inflates an ordered sequence of block payloads belonging to
// one folder. Block 0 decodes with an empty preset dictionary; every later
// block decodes with the previous block's full plaintext as dictionary,
// since each block was compressed with the previous block's bytes still in
// the window. Output is the concatenation of the per-block plaintexts.
func Decompress(blocks [][]byte) ([]byte, error) {
	var out []byte
	var dict []byte
	for i, block := range blocks {
		if len(block) < 2 || block[0] != magic0 || block[1] != magic1 {
			return nil, fmt.Errorf("block %d: %w", i, ErrBlockMagic)
		}
		plain, err := inflateBlock(block[2:], dict)
		if err != nil {
			return nil, fmt.Errorf("block %d: %w", i, err)
		}
		out = append(out, plain...)
		dict = plain
	}
	return out, nil
}

// inflateBlock decodes a single raw DEFLATE segment. A segment produced by
// a flush boundary rather than a stream finish ends without a final block,
// which surfaces as io.ErrUnexpectedEOF once its output is drained; that is
// the end of the block, not an error.
func inflateBlock(data []byte, dict []byte) ([]byte, error) {
	fr := flate.NewReaderDict(bytes.NewReader(data), dict)
	defer fr.Close()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, fr); err != nil && err != io.ErrUnexpectedEOF {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Compress deflates data into a sequence of blocks of at most MaxChunk
// uncompressed bytes each. A single compressor is carried across chunks so
// that each chunk is encoded with the previous chunk still in the window,
// the inverse of the dictionary chaining on the decompress side. Every
// chunk ends on a flush boundary except the last, which finishes the
// stream.
func Compress(data []byte) ([]Block, error) {
	var buf bytes.Buffer
	zw, err := flate.NewWriter(&buf, flate.DefaultCompression)
	if err != nil {
		return nil, err
	}
	var blocks []Block
	for start := 0; start < len(data); {
		chunk := data[start:]
		if len(chunk) > MaxChunk {
			chunk = chunk[:MaxChunk]
		}
		mark := buf.Len()
		if _, err := zw.Write(chunk); err != nil {
			return nil, err
		}
		last := start+len(chunk) == len(data)
		if last {
			err = zw.Close()
		} else {
			err = zw.Flush()
		}
		if err != nil {
			return nil, err
		}
		payload := make([]byte, 0, 2+buf.Len()-mark)
		payload = append(payload, magic0, magic1)
		payload = append(payload, buf.Bytes()[mark:]...)
		blocks = append(blocks, Block{
			Payload:          payload,
			UncompressedSize: len(chunk),
		})
		start += len(chunk)
	}
	return blocks, nil
}
