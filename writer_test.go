package cab

import (
	"bytes"
	"crypto/md5"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/packtool/mscab/mszip"
)

func TestRoundTripUncompressedOffsets(t *testing.T) {
	buf := buildSingleFolder(t, []FileSpec{
		{Name: "a", Data: []byte("hello")},
		{Name: "b", Data: []byte("world!")},
	}, false)

	cabinet, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, cabinet.Files, 2)

	// The folder stream is the concatenation of both files.
	assert.Equal(t, uint32(0), cabinet.Files[0].header.UncompressedOffsetInFolder)
	assert.Equal(t, uint32(5), cabinet.Files[0].header.UncompressedFileSize)
	assert.Equal(t, uint32(5), cabinet.Files[1].header.UncompressedOffsetInFolder)
	assert.Equal(t, uint32(6), cabinet.Files[1].header.UncompressedFileSize)

	firstBlock := cabinet.blocks[cabinet.Folders[0].firstBlockOffset]
	require.NotNil(t, firstBlock)
	assert.Equal(t, []byte("helloworld!"), firstBlock.payload)

	files, err := cabinet.FolderFiles(0)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "a", files[0].Name)
	assert.Equal(t, []byte("hello"), files[0].Data)
	assert.Equal(t, "b", files[1].Name)
	assert.Equal(t, []byte("world!"), files[1].Data)
}

func TestRoundTripCompressedMultiBlock(t *testing.T) {
	data := bytes.Repeat([]byte{'A'}, 40000)
	wantDigest := md5.Sum(data)

	buf := buildSingleFolder(t, []FileSpec{{Name: "a.txt", Data: data}}, true)
	cabinet, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, cabinet.Folders, 1)
	// 40000 bytes span two 32768-byte chunks.
	assert.Equal(t, uint16(2), cabinet.Folders[0].blockCount)
	assert.Equal(t, uint16(CompressionMszip), cabinet.Folders[0].Compression)

	files, err := cabinet.FolderFiles(0)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "a.txt", files[0].Name)
	require.True(t, bytes.Equal(data, files[0].Data))
	assert.Equal(t, wantDigest, md5.Sum(files[0].Data))
}

func TestRoundTripMultipleFolders(t *testing.T) {
	folders := []FolderSpec{
		{Files: []FileSpec{
			{Name: "one/a.bin", Data: bytes.Repeat([]byte("abcd"), 9000)},
			{Name: "one/b.bin", Data: []byte("second file")},
		}},
		{Files: []FileSpec{
			{Name: "two/c.bin", Data: []byte{0x00, 0x01, 0x02}},
		}},
	}
	for _, compress := range []bool{false, true} {
		buf, err := Build(folders, compress)
		require.NoError(t, err)

		cabinet, err := Parse(buf)
		require.NoError(t, err)
		require.Len(t, cabinet.Folders, 2)
		require.Len(t, cabinet.Files, 3)

		for i, folder := range folders {
			files, err := cabinet.FolderFiles(i)
			require.NoError(t, err)
			require.Len(t, files, len(folder.Files))
			for j, want := range folder.Files {
				assert.Equal(t, want.Name, files[j].Name)
				assert.True(t, bytes.Equal(want.Data, files[j].Data), "folder %d file %d (compress=%v)", i, j, compress)
			}
		}
	}
}

func TestRoundTripEmptyFile(t *testing.T) {
	// A zero-length file inside a folder with other content.
	buf := buildSingleFolder(t, []FileSpec{
		{Name: "empty"},
		{Name: "x", Data: []byte("hi")},
	}, true)
	cabinet, err := Parse(buf)
	require.NoError(t, err)
	files, err := cabinet.FolderFiles(0)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Empty(t, files[0].Data)
	assert.Equal(t, []byte("hi"), files[1].Data)

	// A folder holding only an empty file has no data blocks at all.
	buf = buildSingleFolder(t, []FileSpec{{Name: "empty"}}, true)
	cabinet, err = Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(0), cabinet.Folders[0].blockCount)
	files, err = cabinet.FolderFiles(0)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Empty(t, files[0].Data)
}

func TestRoundTripSingleBlockFolder(t *testing.T) {
	data := []byte("fits in one block")
	buf := buildSingleFolder(t, []FileSpec{{Name: "a", Data: data}}, true)
	cabinet, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), cabinet.Folders[0].blockCount)

	files, err := cabinet.FolderFiles(0)
	require.NoError(t, err)
	assert.Equal(t, data, files[0].Data)
}

func TestWrittenChecksumsVerify(t *testing.T) {
	buf := buildSingleFolder(t, []FileSpec{{Name: "a", Data: []byte("checksummed payload")}}, true)
	cabinet, err := Parse(buf)
	require.NoError(t, err)

	for offset, block := range cabinet.blocks {
		require.NotZero(t, block.header.Checksum, "block at offset %d", offset)
		assert.Equal(t, block.header.Checksum, computeChecksum(block.body, 0), "block at offset %d", offset)
	}
}

func TestUncompressedBlockChunking(t *testing.T) {
	data := bytes.Repeat([]byte{0xAB}, mszip.MaxChunk+100)
	buf := buildSingleFolder(t, []FileSpec{{Name: "big", Data: data}}, false)
	cabinet, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(2), cabinet.Folders[0].blockCount)

	files, err := cabinet.FolderFiles(0)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(data, files[0].Data))
}

func TestBuildSetFields(t *testing.T) {
	buf := buildSingleFolder(t, []FileSpec{{Name: "a", Data: []byte("x")}}, false)
	cabinet, err := Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(DefaultSetId), cabinet.SetId)
	assert.Equal(t, uint16(0), cabinet.SetIndex)

	buf, err = BuildWith([]FolderSpec{{Files: []FileSpec{{Name: "a", Data: []byte("x")}}}}, false,
		BuildOptions{SetId: 7, SetIndex: 3})
	require.NoError(t, err)
	cabinet, err = Parse(buf)
	require.NoError(t, err)
	assert.Equal(t, uint16(7), cabinet.SetId)
	assert.Equal(t, uint16(3), cabinet.SetIndex)
}

func TestBuildRejectsNulInName(t *testing.T) {
	_, err := Build([]FolderSpec{{Files: []FileSpec{{Name: "a\x00b", Data: []byte("x")}}}}, false)
	assert.Error(t, err)
}

func TestRoundTripTimestampAndAttributes(t *testing.T) {
	modified := time.Date(2021, 11, 2, 14, 34, 56, 0, time.Local)
	buf := buildSingleFolder(t, []FileSpec{{
		Name:       "test.yml",
		Data:       []byte("key: value\n"),
		Modified:   modified,
		Attributes: AttributeReadOnly | AttributeArch,
	}}, true)

	cabinet, err := Parse(buf)
	require.NoError(t, err)
	require.Len(t, cabinet.Files, 1)
	file := cabinet.Files[0]
	assert.True(t, file.Modified.Equal(modified))
	assert.Equal(t, uint16(AttributeReadOnly|AttributeArch), file.Attributes)
	assert.Equal(t, int64(11), file.Stat().Size())
	assert.Equal(t, "test.yml", file.Stat().Name())
}
