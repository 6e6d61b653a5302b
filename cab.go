// Package cab reads and writes Microsoft Cabinet archives. A cabinet is
// parsed in one pass over an in-memory buffer into an immutable record set;
// folder contents are reconstructed on demand from the folder's checksummed
// data blocks. Build runs the reverse pipeline and produces a new cabinet
// buffer from a list of folders of files.
package cab

import (
	"encoding/binary"
	"fmt"
)

type Cabinet struct {
	Folders             []*Folder
	Files               []*File
	ReservedHeaderBlock []byte
	MultiCabinetInfo

	blocks map[uint32]*dataBlock
}

type MultiCabinetInfo struct {
	PreviousFile string
	PreviousDisk string
	NextFile     string
	NextDisk     string
	SetId        uint16 // ID of this multi-cabinet set; should be the same in all files in the set
	SetIndex     uint16 // Index of this cabinet in the multi-cabinet set
}

// Folder is one compression unit: a run of data blocks whose decompressed
// concatenation backs the byte ranges of the files owned by this folder.
type Folder struct {
	Compression  uint16
	ReservedData []byte

	firstBlockOffset uint32
	blockCount       uint16
}

// Compression type codes for Folder.Compression. Only none and MSZIP are
// supported by folder reconstruction.
const (
	CompressionNone    = 0
	CompressionMszip   = 1
	CompressionQuantum = 2
	CompressionLzx     = 3
)

const (
	previousCabinetExists = 0x0001
	nextCabinetExists     = 0x0002
	cabinetReserveExists  = 0x0004
)

var cabinetSignature = [4]byte{0x4D, 0x53, 0x43, 0x46} // "MSCF"

// Cabinet file header according to https://docs.microsoft.com/en-us/previous-versions//bb267310(v=vs.85)#cfheader
type cabinetFileHeader struct {
	Signature            [4]byte
	_                    uint32
	Filesize             uint32
	_                    uint32
	FirstFileEntryOffset uint32
	_                    uint32
	VersionMinor         byte
	VersionMajor         byte
	FolderCount          uint16
	FileCount            uint16
	Flags                uint16
	SetId                uint16
	SetIndex             uint16
	// Optional: cabinetFileReservedSizes, if cabinetReserveExists is set
	// Optional: Cabinet reserved area, if cabinetReserveExists is set
	// Optional: Name of previous cabinet file
	// Optional: Name of previous disk
	// Optional: Name of next cabinet file
	// Optional: Name of next disk
}

type cabinetFileReservedSizes struct {
	ReservedHeaderSize    uint16
	ReservedFolderSize    uint8
	ReservedDatablockSize uint8
}

type cabinetFileFolderHeader struct {
	CoffCabStart    uint32
	CfDataCount     uint16
	CompressionType uint16
	// Optional: Per-Folder reserved area
}

type cabinetFileEntryHeader struct {
	UncompressedFileSize       uint32
	UncompressedOffsetInFolder uint32
	FolderIndex                uint16
	Date                       uint16
	Time                       uint16
	Attributes                 uint16
	// Followed by fileName, which is a zero-terminated string
}

type cabinetFileDataHeader struct {
	Checksum          uint32
	CompressedBytes   uint16
	UncompressedBytes uint16
	// Optional: Per-Datablock reserved area
	// Followed by compressed data bytes
}

type dataBlock struct {
	header       cabinetFileDataHeader
	reservedData []byte
	payload      []byte
	// body is the block's bytes in stream order starting immediately after
	// the checksum field; the stored checksum covers exactly these bytes.
	body []byte
	// size is the total number of bytes the block occupies in the buffer.
	size int
}

// Parse reads a cabinet from buf in a single sequential pass: header,
// optional flag-gated areas, folder directory, file directory, then data
// blocks until the buffer is exhausted. Directory errors abort the parse;
// per-folder data problems only surface later, during reconstruction.
func Parse(buf []byte) (*Cabinet, error) {
	reader := newByteReader(buf)
	cab := &Cabinet{blocks: map[uint32]*dataBlock{}}

	var cfHeader cabinetFileHeader
	if err := binary.Read(reader, binary.LittleEndian, &cfHeader); err != nil {
		return nil, fmt.Errorf("cabinet header: %w", err)
	}

	if cfHeader.Signature != cabinetSignature {
		return nil, fmt.Errorf("%w: signature did not match", ErrMalformedHeader)
	}
	if cfHeader.VersionMajor != 1 {
		return nil, fmt.Errorf("%w: unsupported major version %d", ErrMalformedHeader, cfHeader.VersionMajor)
	}
	if cfHeader.VersionMinor > 3 {
		return nil, fmt.Errorf("%w: unsupported minor version %d", ErrMalformedHeader, cfHeader.VersionMinor)
	}
	cab.SetId = cfHeader.SetId
	cab.SetIndex = cfHeader.SetIndex

	var reservedSizes cabinetFileReservedSizes
	if cfHeader.Flags&cabinetReserveExists != 0 {
		if err := binary.Read(reader, binary.LittleEndian, &reservedSizes); err != nil {
			return nil, fmt.Errorf("reserved sizes: %w", err)
		}
	}
	reservedHeaderBlock, err := reader.bytes(int(reservedSizes.ReservedHeaderSize))
	if err != nil {
		return nil, fmt.Errorf("reserved header block: %w", err)
	}
	cab.ReservedHeaderBlock = reservedHeaderBlock

	if cfHeader.Flags&previousCabinetExists != 0 {
		if cab.PreviousFile, err = reader.cstring(); err != nil {
			return nil, err
		}
		if cab.PreviousDisk, err = reader.cstring(); err != nil {
			return nil, err
		}
	}
	if cfHeader.Flags&nextCabinetExists != 0 {
		if cab.NextFile, err = reader.cstring(); err != nil {
			return nil, err
		}
		if cab.NextDisk, err = reader.cstring(); err != nil {
			return nil, err
		}
	}

	if cab.Folders, err = readFolderEntries(reader, cfHeader.FolderCount, reservedSizes.ReservedFolderSize); err != nil {
		return nil, err
	}

	fileEntries, err := readFileEntries(reader, cfHeader.FileCount)
	if err != nil {
		return nil, err
	}
	for _, fileEntry := range fileEntries {
		if int(fileEntry.header.FolderIndex) >= len(cab.Folders) {
			return nil, fmt.Errorf("%w: file %q references folder %d of %d",
				ErrInvalidFolderRef, fileEntry.Name, fileEntry.header.FolderIndex, len(cab.Folders))
		}
		cab.Files = append(cab.Files, fileEntry)
	}

	if err := readDataBlocks(reader, cab.blocks, reservedSizes.ReservedDatablockSize); err != nil {
		return nil, err
	}

	return cab, nil
}

func readFolderEntries(reader *byteReader, folderCount uint16, reservedAreaSize uint8) ([]*Folder, error) {
	var folders []*Folder
	for i := 0; i < int(folderCount); i++ {
		var folderHeader cabinetFileFolderHeader
		if err := binary.Read(reader, binary.LittleEndian, &folderHeader); err != nil {
			return nil, fmt.Errorf("folder entry %d: %w", i, err)
		}
		reservedData, err := reader.bytes(int(reservedAreaSize))
		if err != nil {
			return nil, fmt.Errorf("folder entry %d: %w", i, err)
		}
		folders = append(folders, &Folder{
			Compression:      folderHeader.CompressionType,
			ReservedData:     reservedData,
			firstBlockOffset: folderHeader.CoffCabStart,
			blockCount:       folderHeader.CfDataCount,
		})
	}
	return folders, nil
}

func readFileEntries(reader *byteReader, fileCount uint16) ([]*File, error) {
	var files []*File
	for i := 0; i < int(fileCount); i++ {
		var fileHeader cabinetFileEntryHeader
		if err := binary.Read(reader, binary.LittleEndian, &fileHeader); err != nil {
			return nil, fmt.Errorf("file entry %d: %w", i, err)
		}
		fileName, err := reader.cstring()
		if err != nil {
			return nil, fmt.Errorf("file entry %d: %w", i, err)
		}
		files = append(files, &File{
			Name:       fileName,
			Modified:   parseCabTimestamp(fileHeader.Date, fileHeader.Time),
			Attributes: fileHeader.Attributes,
			header:     fileHeader,
		})
	}
	return files, nil
}

// readDataBlocks consumes data blocks back-to-back until the buffer ends,
// indexing each by its absolute start offset. Folders reference their first
// block by that offset and walk forward by consumed block length.
func readDataBlocks(reader *byteReader, blocks map[uint32]*dataBlock, reservedAreaSize uint8) error {
	for reader.remaining() > 0 {
		start := reader.offset()
		sub := reader.sub()

		var dataHeader cabinetFileDataHeader
		if err := binary.Read(sub, binary.LittleEndian, &dataHeader); err != nil {
			return fmt.Errorf("data block at offset %d: %w", start, err)
		}
		reservedData, err := sub.bytes(int(reservedAreaSize))
		if err != nil {
			return fmt.Errorf("data block at offset %d: %w", start, err)
		}
		payload, err := sub.bytes(int(dataHeader.CompressedBytes))
		if err != nil {
			return fmt.Errorf("data block at offset %d: %w", start, err)
		}

		size := sub.offset()
		blocks[uint32(start)] = &dataBlock{
			header:       dataHeader,
			reservedData: reservedData,
			payload:      payload,
			body:         sub.buf[4:size],
			size:         size,
		}
		reader.advance(size)
	}
	return nil
}
