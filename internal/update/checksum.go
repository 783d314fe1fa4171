package update

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
)

var (
	hashNameLine = regexp.MustCompile(`(?i)^([a-f0-9]{64})\s+\*?(.+)$`)
	nameHashLine = regexp.MustCompile(`(?i)^(.+?)\s*[:=]\s*([a-f0-9]{64})$`)
)

// ParseChecksumLines extracts file→hash pairs from checksums.txt-style
// text. Both "hash  name" and "name: hash" forms are accepted.
func ParseChecksumLines(text string) map[string]string {
	result := make(map[string]string)

	for _, line := range strings.Split(text, "\n") {
		cleaned := strings.TrimSpace(line)
		if cleaned == "" {
			continue
		}

		if match := hashNameLine.FindStringSubmatch(cleaned); match != nil {
			result[strings.TrimSpace(match[2])] = strings.ToLower(match[1])
			continue
		}
		if match := nameHashLine.FindStringSubmatch(cleaned); match != nil {
			result[strings.TrimSpace(match[1])] = strings.ToLower(match[2])
		}
	}

	return result
}

// findHashInBody scans a release body for fileName's SHA-256, first as
// checksum lines, then as loose "<name>: <hash>" / "<hash> <name>" mentions.
func findHashInBody(body, fileName string) string {
	if body == "" {
		return ""
	}

	if parsed := ParseChecksumLines(body); parsed[fileName] != "" {
		return parsed[fileName]
	}

	escaped := regexp.QuoteMeta(fileName)
	patterns := []string{
		`(?im)` + escaped + `\s*[:=]\s*([a-f0-9]{64})`,
		`(?im)([a-f0-9]{64})\s+\*?` + escaped,
	}
	for _, pattern := range patterns {
		if match := regexp.MustCompile(pattern).FindStringSubmatch(body); match != nil {
			return strings.ToLower(match[1])
		}
	}

	return ""
}

// isChecksumAsset recognizes the release asset that carries hashes.
func isChecksumAsset(name string) bool {
	lower := strings.ToLower(name)
	return lower == "checksums.txt" || lower == "sha256sums.txt" || strings.Contains(lower, "checksum")
}

// SHA256File streams a file through SHA-256 and returns the hex digest.
func SHA256File(path string) (string, error) {
	file, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("open %s: %w", path, err)
	}
	defer file.Close()

	hasher := sha256.New()
	if _, err := io.Copy(hasher, file); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return hex.EncodeToString(hasher.Sum(nil)), nil
}
