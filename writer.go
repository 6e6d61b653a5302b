package cab

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/packtool/mscab/mszip"
)

// FileSpec is one file to place into a cabinet folder.
type FileSpec struct {
	Name       string
	Data       []byte
	Modified   time.Time
	Attributes uint16
}

// FolderSpec is one folder: an ordered list of files whose concatenated
// bytes form the folder's logical stream.
type FolderSpec struct {
	Files []FileSpec
}

// BuildOptions carries the cabinet set fields written into the header.
type BuildOptions struct {
	SetId    uint16
	SetIndex uint16
}

// DefaultSetId is written by Build when no options are given.
const DefaultSetId = 42

const (
	versionMajor = 1
	versionMinor = 3
)

// Build lays out a new cabinet from folders of files. With compress set,
// every folder's stream is MSZIP-compressed; otherwise streams are stored
// in raw 32KiB blocks. The result parses back to an equivalent logical
// structure.
func Build(folders []FolderSpec, compress bool) ([]byte, error) {
	return BuildWith(folders, compress, BuildOptions{SetId: DefaultSetId})
}

// blockSpec is a data block waiting to be emitted: its payload bytes and
// the uncompressed chunk size it encodes.
type blockSpec struct {
	payload      []byte
	uncompressed int
}

type pendingFolder struct {
	blocks        []blockSpec
	startPatchOff int
}

// BuildWith is Build with explicit header set fields.
func BuildWith(folders []FolderSpec, compress bool, opts BuildOptions) ([]byte, error) {
	fileCount := 0
	for _, folder := range folders {
		fileCount += len(folder.Files)
	}
	if len(folders) > math.MaxUint16 {
		return nil, fmt.Errorf("too many folders: %d", len(folders))
	}
	if fileCount > math.MaxUint16 {
		return nil, fmt.Errorf("too many files: %d", fileCount)
	}

	writer := &byteWriter{}
	writer.raw(cabinetSignature[:])
	writer.u32(0)
	totalSizeOff := writer.offset()
	writer.u32(0) // cbCabinet, patched once the full layout is known
	writer.u32(0)
	firstFileOff := writer.offset()
	writer.u32(0) // coffFiles, patched after the folder directory
	writer.u32(0)
	writer.u8(versionMinor)
	writer.u8(versionMajor)
	writer.u16(uint16(len(folders)))
	writer.u16(uint16(fileCount))
	writer.u16(0) // flags
	writer.u16(opts.SetId)
	writer.u16(opts.SetIndex)

	compression := uint16(CompressionNone)
	if compress {
		compression = CompressionMszip
	}

	// Folder directory. Each entry's first-block offset is a placeholder
	// until the data blocks behind the file directory are emitted.
	pending := make([]*pendingFolder, len(folders))
	for i, folder := range folders {
		var stream []byte
		for _, file := range folder.Files {
			if int64(len(file.Data)) > math.MaxUint32 {
				return nil, fmt.Errorf("file %q is too large for a cabinet", file.Name)
			}
			stream = append(stream, file.Data...)
		}
		if int64(len(stream)) > math.MaxUint32 {
			return nil, fmt.Errorf("folder %d stream is too large for a cabinet", i)
		}

		blocks, err := makeBlocks(stream, compress)
		if err != nil {
			return nil, fmt.Errorf("folder %d: %w", i, err)
		}
		if len(blocks) > math.MaxUint16 {
			return nil, fmt.Errorf("folder %d needs too many data blocks: %d", i, len(blocks))
		}

		pending[i] = &pendingFolder{blocks: blocks, startPatchOff: writer.offset()}
		writer.u32(0) // coffCabStart placeholder
		writer.u16(uint16(len(blocks)))
		writer.u16(compression)
	}

	writer.patchU32(firstFileOff, uint32(writer.offset()))

	// File directory. Offsets are relative to the owning folder's
	// uncompressed stream.
	for i, folder := range folders {
		streamOffset := uint32(0)
		for _, file := range folder.Files {
			if strings.ContainsRune(file.Name, 0) {
				return nil, fmt.Errorf("file name %q contains a NUL byte", file.Name)
			}
			date, tim := encodeCabTimestamp(file.Modified)
			writer.u32(uint32(len(file.Data)))
			writer.u32(streamOffset)
			writer.u16(uint16(i))
			writer.u16(date)
			writer.u16(tim)
			writer.u16(file.Attributes)
			writer.cstring(file.Name)
			streamOffset += uint32(len(file.Data))
		}
	}

	// Data blocks, checksummed over their bytes after the checksum field.
	for _, folder := range pending {
		writer.patchU32(folder.startPatchOff, uint32(writer.offset()))
		for _, block := range folder.blocks {
			blockStart := writer.offset()
			writer.u32(0) // csum placeholder
			writer.u16(uint16(len(block.payload)))
			writer.u16(uint16(block.uncompressed))
			writer.raw(block.payload)
			writer.patchU32(blockStart, computeChecksum(writer.buf[blockStart+4:], 0))
		}
	}

	if int64(len(writer.buf)) > math.MaxUint32 {
		return nil, fmt.Errorf("cabinet is too large: %d bytes", len(writer.buf))
	}
	writer.patchU32(totalSizeOff, uint32(len(writer.buf)))
	return writer.buf, nil
}

// makeBlocks turns a folder stream into its data block contents. The
// uncompressed path still chunks at the MSZIP block size so that block
// lengths stay within their 16 bit fields.
func makeBlocks(stream []byte, compress bool) ([]blockSpec, error) {
	if compress {
		compressed, err := mszip.Compress(stream)
		if err != nil {
			return nil, err
		}
		blocks := make([]blockSpec, len(compressed))
		for i, block := range compressed {
			blocks[i] = blockSpec{payload: block.Payload, uncompressed: block.UncompressedSize}
		}
		return blocks, nil
	}
	var blocks []blockSpec
	for start := 0; start < len(stream); {
		chunk := stream[start:]
		if len(chunk) > mszip.MaxChunk {
			chunk = chunk[:mszip.MaxChunk]
		}
		blocks = append(blocks, blockSpec{payload: chunk, uncompressed: len(chunk)})
		start += len(chunk)
	}
	return blocks, nil
}
