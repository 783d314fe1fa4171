package update

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleHash = "2cf24dba5fb0a30e26e83b2ac5b9e29e1b161e5c1fa7425e73043362938b9824"

func TestParseChecksumLines(t *testing.T) {
	text := strings.Join([]string{
		sampleHash + "  CTI-Precheck-1.5.0.exe",
		strings.ToUpper(sampleHash) + " *other.exe",
		"third.exe: " + sampleHash,
		"fourth.exe = " + sampleHash,
		"",
		"not a checksum line",
	}, "\n")

	parsed := ParseChecksumLines(text)

	assert.Equal(t, sampleHash, parsed["CTI-Precheck-1.5.0.exe"])
	assert.Equal(t, sampleHash, parsed["other.exe"], "hashes are lowercased")
	assert.Equal(t, sampleHash, parsed["third.exe"])
	assert.Equal(t, sampleHash, parsed["fourth.exe"])
	assert.Len(t, parsed, 4)
}

func TestFindHashInBody(t *testing.T) {
	body := "## Release 1.5.0\n\nSHA256:\nCTI-Precheck-1.5.0.exe: " + sampleHash + "\n"
	assert.Equal(t, sampleHash, findHashInBody(body, "CTI-Precheck-1.5.0.exe"))

	inline := "checksum is " + sampleHash + " CTI-Precheck-1.5.0.exe for this build"
	assert.Equal(t, sampleHash, findHashInBody(inline, "CTI-Precheck-1.5.0.exe"))

	assert.Equal(t, "", findHashInBody(body, "missing.exe"))
	assert.Equal(t, "", findHashInBody("", "CTI-Precheck-1.5.0.exe"))
}

func TestIsChecksumAsset(t *testing.T) {
	assert.True(t, isChecksumAsset("checksums.txt"))
	assert.True(t, isChecksumAsset("SHA256SUMS.txt"))
	assert.True(t, isChecksumAsset("release-checksum.txt"))
	assert.False(t, isChecksumAsset("CTI-Precheck-1.5.0.exe"))
}

func TestSHA256File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "payload.bin")
	content := []byte("hello update payload")
	require.NoError(t, os.WriteFile(path, content, 0o644))

	sum := sha256.Sum256(content)
	expected := hex.EncodeToString(sum[:])

	actual, err := SHA256File(path)
	require.NoError(t, err)
	assert.Equal(t, expected, actual)

	_, err = SHA256File(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}
