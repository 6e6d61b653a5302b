package cab

import (
	"io/fs"
	"path"
	"time"
)

// File is one entry of a cabinet's file directory. Its contents live inside
// the owning folder's reconstructed stream; see Cabinet.FolderFiles.
type File struct {
	Name       string
	Modified   time.Time
	Attributes uint16

	header cabinetFileEntryHeader
}

const (
	AttributeReadOnly = 0x1
	AttributeHidden   = 0x2
	AttributeSystem   = 0x4
	AttributeArch     = 0x20
	AttributeExec     = 0x40
	AttributeNameUtf  = 0x80
)

// FolderIndex returns the index of the folder owning this file's bytes.
func (f *File) FolderIndex() int {
	return int(f.header.FolderIndex)
}

func (f *File) Stat() fs.FileInfo {
	return FileInfo{f}
}

type FileInfo struct {
	File *File
}

func (f FileInfo) Name() string {
	return path.Base(f.File.Name)
}

func (f FileInfo) Size() int64 {
	return int64(f.File.header.UncompressedFileSize)
}

func (f FileInfo) Mode() fs.FileMode {
	return 0
}

func (f FileInfo) ModTime() time.Time {
	return f.File.Modified
}

func (f FileInfo) IsDir() bool {
	return false
}

func (f FileInfo) Sys() any {
	return f.File
}

func parseCabTimestamp(cabDate uint16, cabTime uint16) time.Time {
	// See https://docs.microsoft.com/en-us/previous-versions//bb267310(v=vs.85)#cffile
	// cabDate is ((year-1980) << 9)+(month << 5)+(day)
	// cabTime is (hour << 11)+(minute << 5)+(seconds/2)
	year := int(cabDate>>9) + 1980
	month := int(cabDate>>5) & 0b1111
	day := int(cabDate) & 0b11111
	hour := int(cabTime >> 11)
	minute := int(cabTime>>5) & 0b111111
	seconds := int(cabTime&0b11111) * 2
	return time.Date(year, time.Month(month), day, hour, minute, seconds, 0, time.Local)
}

// encodeCabTimestamp is the inverse of parseCabTimestamp. The zero time
// encodes as zeroed fields; seconds round down to the two-second
// granularity of the format.
func encodeCabTimestamp(t time.Time) (cabDate uint16, cabTime uint16) {
	if t.IsZero() {
		return 0, 0
	}
	t = t.Local()
	cabDate = uint16((t.Year()-1980)<<9 | int(t.Month())<<5 | t.Day())
	cabTime = uint16(t.Hour()<<11 | t.Minute()<<5 | t.Second()/2)
	return cabDate, cabTime
}
