package judge

import (
	"strings"

	"cti-precheck/internal/checker"
	"cti-precheck/internal/csvio"
)

// MapResult converts a lookup outcome to the row verdict shown in the
// results table. Investigation markers take precedence over the raw status
// because the carrier page sometimes reports "available" alongside the
// manual-investigation banner.
func MapResult(result checker.Result) string {
	note := result.Details["備考"]
	areaText := result.Details["提供エリア"]

	if strings.Contains(result.Message, "要手動再検索") ||
		strings.Contains(result.Message, "調査") ||
		strings.Contains(note, "調査") ||
		strings.Contains(areaText, "調査") {
		return csvio.ResultInvestigation
	}

	switch result.Status {
	case checker.StatusAvailable:
		return csvio.ResultAvailable
	case checker.StatusUnavailable:
		return csvio.ResultUnavailable
	case checker.StatusInvestigation:
		return csvio.ResultInvestigation
	case checker.StatusCancelled:
		return csvio.ResultStopped
	}

	if strings.Contains(result.Message, "未提供") {
		return csvio.ResultUnavailable
	}
	return csvio.ResultFailed
}

// ExtractNote merges the lookup's note detail, search notes, and the
// investigation-image marker into the row's note column. Segments are
// deduplicated and joined with " / ".
func ExtractNote(result checker.Result) string {
	var parts []string

	appendUnique := func(value string) {
		for _, segment := range strings.Split(strings.TrimSpace(value), "/") {
			segment = strings.TrimSpace(segment)
			if segment == "" {
				continue
			}
			if !containsString(parts, segment) {
				parts = append(parts, segment)
			}
		}
	}

	appendUnique(result.Details["備考"])
	for _, note := range result.SearchNotes {
		appendUnique(note)
	}

	if strings.Contains(result.Message, checker.InvestigationMessage) {
		appendUnique(checker.InvestigationImageNote)
	}

	return strings.Join(parts, " / ")
}

func containsString(values []string, target string) bool {
	for _, value := range values {
		if value == target {
			return true
		}
	}
	return false
}
