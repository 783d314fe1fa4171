package update

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Release is the subset of the GitHub release payload the updater needs.
type Release struct {
	TagName string  `json:"tag_name"`
	Draft   bool    `json:"draft"`
	Body    string  `json:"body"`
	Assets  []Asset `json:"assets"`
}

type Asset struct {
	Name               string `json:"name"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Version reports the release tag without its leading "v".
func (r Release) Version() string {
	return strings.TrimPrefix(strings.TrimSpace(r.TagName), "v")
}

// SelectExeAsset finds the update executable for appName: the exact
// <appName>-<tag>.exe when present, otherwise a unique <appName>-*.exe.
func (r Release) SelectExeAsset(appName string) (Asset, error) {
	if len(r.Assets) == 0 {
		return Asset{}, fmt.Errorf("release %s has no assets", r.TagName)
	}

	exactName := fmt.Sprintf("%s-%s.exe", appName, r.Version())
	for _, asset := range r.Assets {
		if asset.Name == exactName {
			return asset, nil
		}
	}

	prefix := appName + "-"
	var candidates []Asset
	for _, asset := range r.Assets {
		if strings.HasPrefix(asset.Name, prefix) && strings.HasSuffix(asset.Name, ".exe") {
			candidates = append(candidates, asset)
		}
	}

	switch len(candidates) {
	case 1:
		return candidates[0], nil
	case 0:
		return Asset{}, fmt.Errorf("no update exe found (expected %s)", exactName)
	default:
		names := make([]string, 0, len(candidates))
		for _, candidate := range candidates {
			names = append(names, candidate.Name)
		}
		return Asset{}, fmt.Errorf("ambiguous update exe candidates: %s", strings.Join(names, ", "))
	}
}

// releaseToMap converts a release to the generic map persisted under
// update_settings.cached_release.
func releaseToMap(release Release) map[string]interface{} {
	data, err := json.Marshal(release)
	if err != nil {
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// releaseFromMap restores a cached release; ok is false when the cache is
// empty or unusable.
func releaseFromMap(cached map[string]interface{}) (Release, bool) {
	if len(cached) == 0 {
		return Release{}, false
	}
	data, err := json.Marshal(cached)
	if err != nil {
		return Release{}, false
	}
	var release Release
	if err := json.Unmarshal(data, &release); err != nil || release.TagName == "" {
		return Release{}, false
	}
	return release, true
}

var semverRegex = regexp.MustCompile(`v?(\d+)\.(\d+)\.(\d+)`)

type semver struct {
	major int
	minor int
	patch int
}

func parseSemver(input string) (semver, error) {
	match := semverRegex.FindStringSubmatch(strings.TrimSpace(input))
	if match == nil {
		return semver{}, fmt.Errorf("no semantic version found in %q", strings.TrimSpace(input))
	}

	// Regex groups are all-digit, so Atoi cannot fail here.
	major, _ := strconv.Atoi(match[1])
	minor, _ := strconv.Atoi(match[2])
	patch, _ := strconv.Atoi(match[3])
	return semver{major: major, minor: minor, patch: patch}, nil
}

func (s semver) compare(other semver) int {
	if s.major != other.major {
		return compareInt(s.major, other.major)
	}
	if s.minor != other.minor {
		return compareInt(s.minor, other.minor)
	}
	return compareInt(s.patch, other.patch)
}

func compareInt(a, b int) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

// IsNewer reports whether candidate is strictly newer than current.
// Unparseable versions are treated as not newer.
func IsNewer(candidate, current string) bool {
	candidateVer, err := parseSemver(candidate)
	if err != nil {
		return false
	}
	currentVer, err := parseSemver(current)
	if err != nil {
		return false
	}
	return candidateVer.compare(currentVer) > 0
}
