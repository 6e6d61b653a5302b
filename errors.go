package cab

import "errors"

var (
	// ErrMalformedHeader is returned when the cabinet signature or the
	// fixed header fields are not valid.
	ErrMalformedHeader = errors.New("malformed cabinet header")
	// ErrTruncated is returned when a record read would run past the end
	// of the buffer.
	ErrTruncated = errors.New("truncated cabinet buffer")
	// ErrChecksum is returned when a data block's stored checksum does not
	// match the checksum recomputed over its bytes.
	ErrChecksum = errors.New("data block checksum mismatch")
	// ErrUnsupportedCompression is returned for folders compressed with
	// Quantum, LZX or an unrecognized compression type.
	ErrUnsupportedCompression = errors.New("unsupported compression type")
	// ErrInvalidFolderRef is returned when a file entry references a
	// folder index with no corresponding folder.
	ErrInvalidFolderRef = errors.New("invalid folder reference")
)
