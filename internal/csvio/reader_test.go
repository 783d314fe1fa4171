package csvio

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

func TestDecodeBytesUTF8(t *testing.T) {
	text, err := DecodeBytes([]byte("123-4567,東京都"))
	require.NoError(t, err)
	assert.Equal(t, "123-4567,東京都", text)
}

func TestDecodeBytesUTF8BOM(t *testing.T) {
	data := append([]byte{0xEF, 0xBB, 0xBF}, []byte("123-4567,東京都")...)
	text, err := DecodeBytes(data)
	require.NoError(t, err)
	assert.Equal(t, "123-4567,東京都", text)
}

func TestDecodeBytesShiftJIS(t *testing.T) {
	encoded, _, err := transform.Bytes(japanese.ShiftJIS.NewEncoder(), []byte("123-4567,北海道札幌市"))
	require.NoError(t, err)

	text, err := DecodeBytes(encoded)
	require.NoError(t, err)
	assert.Equal(t, "123-4567,北海道札幌市", text)
}

func TestDecodeBytesUnsupported(t *testing.T) {
	_, err := DecodeBytes([]byte{0x00, 0xFF, 0xFE, 0xFD, 0x80})
	assert.ErrorIs(t, err, ErrUnsupportedEncoding)
}

func TestReadFileDropsBlankRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "input.csv")
	content := "123-4567,東京都千代田区\n,\n234-5678,大阪市北区\n , \n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	records, removedBlank, err := ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, removedBlank)
	require.Len(t, records, 2)
	assert.Equal(t, "123-4567", records[0][0])
	assert.Equal(t, "大阪市北区", records[1][1])
}

func TestReadFileMissingFile(t *testing.T) {
	_, _, err := ReadFile(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestWriteResultsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "result.csv")

	rows := []Row{
		{Line: 1, Zipcode: "123-4567", Address: "東京都千代田区", Result: ResultAvailable, Note: "光配線方式"},
		{Line: 2, Zipcode: "234-5678", Address: "大阪市北区", Result: ""},
	}
	require.NoError(t, WriteResults(path, rows))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xEF, 0xBB, 0xBF}, data[:3], "result csv carries a UTF-8 BOM")

	records, removedBlank, err := ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 0, removedBlank)
	require.Len(t, records, 2)

	assert.Equal(t, []string{"123-4567", "東京都千代田区", ResultAvailable, "光配線方式"}, records[0])
	assert.Equal(t, ResultPending, records[1][2], "empty result is written as pending")
}
