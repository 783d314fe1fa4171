package update

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReleaseVersion(t *testing.T) {
	assert.Equal(t, "1.5.0", Release{TagName: "v1.5.0"}.Version())
	assert.Equal(t, "1.5.0", Release{TagName: "1.5.0"}.Version())
	assert.Equal(t, "2.0.1", Release{TagName: " v2.0.1 "}.Version())
}

func TestSelectExeAssetExactMatch(t *testing.T) {
	release := Release{
		TagName: "v1.5.0",
		Assets: []Asset{
			{Name: "checksums.txt"},
			{Name: "CTI-Precheck-1.5.0.exe", BrowserDownloadURL: "https://example.com/a"},
			{Name: "CTI-Precheck-debug.exe"},
		},
	}

	asset, err := release.SelectExeAsset("CTI-Precheck")
	require.NoError(t, err)
	assert.Equal(t, "CTI-Precheck-1.5.0.exe", asset.Name)
}

func TestSelectExeAssetUniquePrefix(t *testing.T) {
	release := Release{
		TagName: "v1.5.0",
		Assets: []Asset{
			{Name: "checksums.txt"},
			{Name: "CTI-Precheck-windows-amd64.exe"},
		},
	}

	asset, err := release.SelectExeAsset("CTI-Precheck")
	require.NoError(t, err)
	assert.Equal(t, "CTI-Precheck-windows-amd64.exe", asset.Name)
}

func TestSelectExeAssetAmbiguous(t *testing.T) {
	release := Release{
		TagName: "v1.5.0",
		Assets: []Asset{
			{Name: "CTI-Precheck-windows-amd64.exe"},
			{Name: "CTI-Precheck-windows-arm64.exe"},
		},
	}

	_, err := release.SelectExeAsset("CTI-Precheck")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")
}

func TestSelectExeAssetNone(t *testing.T) {
	_, err := Release{TagName: "v1.5.0"}.SelectExeAsset("CTI-Precheck")
	assert.Error(t, err)

	_, err = Release{
		TagName: "v1.5.0",
		Assets:  []Asset{{Name: "checksums.txt"}},
	}.SelectExeAsset("CTI-Precheck")
	assert.Error(t, err)
}

func TestReleaseMapRoundTrip(t *testing.T) {
	release := Release{
		TagName: "v1.5.0",
		Body:    "notes",
		Assets:  []Asset{{Name: "CTI-Precheck-1.5.0.exe", BrowserDownloadURL: "https://example.com/a"}},
	}

	cached := releaseToMap(release)
	require.NotNil(t, cached)

	restored, ok := releaseFromMap(cached)
	require.True(t, ok)
	assert.Equal(t, release, restored)
}

func TestReleaseFromMapRejectsEmpty(t *testing.T) {
	_, ok := releaseFromMap(nil)
	assert.False(t, ok)

	_, ok = releaseFromMap(map[string]interface{}{"body": "no tag"})
	assert.False(t, ok)
}

func TestIsNewer(t *testing.T) {
	tests := []struct {
		candidate string
		current   string
		want      bool
	}{
		{"1.5.0", "1.4.2", true},
		{"v1.5.0", "1.4.2", true},
		{"1.4.2", "1.4.2", false},
		{"1.4.1", "1.4.2", false},
		{"2.0.0", "1.9.9", true},
		{"1.4.10", "1.4.9", true},
		{"not-a-version", "1.4.2", false},
		{"1.5.0", "garbage", false},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, IsNewer(tt.candidate, tt.current),
			"IsNewer(%q, %q)", tt.candidate, tt.current)
	}
}
