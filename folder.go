package cab

import (
	"fmt"

	"github.com/packtool/mscab/mszip"
)

// ExtractedFile pairs a file name with its reconstructed contents.
type ExtractedFile struct {
	Name string
	Data []byte
}

// FolderResult is the outcome of reconstructing one folder. A failed folder
// carries its error without affecting other folders' results.
type FolderResult struct {
	Folder int
	Files  []ExtractedFile
	Err    error
}

// FolderFiles reconstructs the folder at index and returns the files it
// owns. The folder's data blocks are walked in stream order, each verified
// against its stored checksum, concatenated and decompressed according to
// the folder's compression type; every owned file is then sliced out of the
// reconstructed stream.
func (c *Cabinet) FolderFiles(index int) ([]ExtractedFile, error) {
	if index < 0 || index >= len(c.Folders) {
		return nil, fmt.Errorf("%w: folder %d of %d", ErrInvalidFolderRef, index, len(c.Folders))
	}
	folder := c.Folders[index]

	chunks := make([][]byte, 0, folder.blockCount)
	offset := folder.firstBlockOffset
	for i := 0; i < int(folder.blockCount); i++ {
		block, ok := c.blocks[offset]
		if !ok {
			return nil, fmt.Errorf("%w: folder %d: no data block at offset %d", ErrTruncated, index, offset)
		}
		// A stored checksum of zero means the block was written without
		// one; there is nothing to verify then.
		if block.header.Checksum != 0 {
			if csum := computeChecksum(block.body, 0); csum != block.header.Checksum {
				return nil, fmt.Errorf("%w: folder %d, block %d at offset %d", ErrChecksum, index, i, offset)
			}
		}
		chunks = append(chunks, block.payload)
		offset += uint32(block.size)
	}

	var stream []byte
	switch folder.Compression {
	case CompressionNone:
		for _, chunk := range chunks {
			stream = append(stream, chunk...)
		}
	case CompressionMszip:
		var err error
		if stream, err = mszip.Decompress(chunks); err != nil {
			return nil, fmt.Errorf("folder %d: %w", index, err)
		}
	default:
		return nil, fmt.Errorf("%w: folder %d has type %d", ErrUnsupportedCompression, index, folder.Compression)
	}

	var files []ExtractedFile
	for _, file := range c.Files {
		if int(file.header.FolderIndex) != index {
			continue
		}
		begin := int(file.header.UncompressedOffsetInFolder)
		end := begin + int(file.header.UncompressedFileSize)
		if end > len(stream) {
			return nil, fmt.Errorf("%w: file %q spans [%d, %d) of a %d byte folder stream",
				ErrTruncated, file.Name, begin, end, len(stream))
		}
		files = append(files, ExtractedFile{Name: file.Name, Data: stream[begin:end]})
	}
	return files, nil
}

// ExtractAll reconstructs every folder. A folder whose reconstruction fails
// is reported with its error while the remaining folders still return their
// data.
func (c *Cabinet) ExtractAll() []FolderResult {
	results := make([]FolderResult, len(c.Folders))
	for i := range c.Folders {
		files, err := c.FolderFiles(i)
		results[i] = FolderResult{Folder: i, Files: files, Err: err}
	}
	return results
}
