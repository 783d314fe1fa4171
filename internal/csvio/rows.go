package csvio

import (
	"regexp"
	"strings"

	"golang.org/x/text/width"
)

// Row statuses assigned during validation. The values are user facing and
// appear verbatim in the results table.
const (
	StatusOK        = "OK"
	StatusBlank     = "空行"
	StatusMissing   = "入力不足"
	StatusZipFormat = "郵便番号形式エラー"
)

// Judgement result values. Written to column C of the result CSV.
const (
	ResultPending       = "未実行"
	ResultAvailable     = "提供可能"
	ResultUnavailable   = "未提供"
	ResultInvestigation = "要調査"
	ResultStopped       = "停止"
	ResultFailed        = "失敗"
)

// Row is one CSV line after validation. Line numbers are 1-based and stable
// for the lifetime of a loaded file.
type Row struct {
	Line    int
	Zipcode string
	Address string
	Status  string
	Result  string
	Note    string
}

// Runnable reports whether the judgement runner should drive a browser
// check for this row.
func (r Row) Runnable() bool {
	return r.Status == StatusOK
}

// Unfinished reports whether the row still needs a judgement pass.
func (r Row) Unfinished() bool {
	return r.Result == ResultPending || r.Result == ResultStopped
}

var (
	zipPattern = regexp.MustCompile(`^\d{3}-?\d{4}$`)
	nonDigits  = regexp.MustCompile(`\D`)
	spaceRuns  = regexp.MustCompile(`\s+`)
)

// NormalizeZipcode canonicalizes a postal code to NNN-NNNN when it carries
// exactly seven digits. Full-width dashes are folded first; anything else
// is returned cleaned but unchanged so validation can flag it.
func NormalizeZipcode(value string) string {
	cleaned := strings.TrimSpace(value)
	cleaned = strings.NewReplacer("－", "-", "ー", "-").Replace(cleaned)

	digits := nonDigits.ReplaceAllString(cleaned, "")
	if len(digits) == 7 {
		return digits[:3] + "-" + digits[3:]
	}
	return cleaned
}

// NormalizeAddress folds full-width alphanumerics to half-width and
// collapses whitespace runs.
func NormalizeAddress(value string) string {
	folded := width.Fold.String(strings.TrimSpace(value))
	return spaceRuns.ReplaceAllString(folded, " ")
}

// ValidateRows converts raw CSV records into rows, flagging lines whose
// input cannot be judged. Returned line numbers are 1-based indexes of the
// invalid rows.
func ValidateRows(records [][]string) ([]Row, []int) {
	rows := make([]Row, 0, len(records))
	var invalidLines []int

	for index, record := range records {
		line := index + 1

		var zipcode, address string
		if len(record) >= 1 {
			zipcode = strings.TrimSpace(record[0])
		}
		if len(record) >= 2 {
			address = strings.TrimSpace(record[1])
		}

		normalizedZip := NormalizeZipcode(zipcode)
		normalizedAddr := ""
		if address != "" {
			normalizedAddr = NormalizeAddress(address)
		}

		status := StatusOK
		switch {
		case zipcode == "" && address == "":
			status = StatusBlank
		case zipcode == "" || address == "":
			status = StatusMissing
			invalidLines = append(invalidLines, line)
		case !zipPattern.MatchString(normalizedZip):
			status = StatusZipFormat
			invalidLines = append(invalidLines, line)
		}

		rows = append(rows, Row{
			Line:    line,
			Zipcode: normalizedZip,
			Address: normalizedAddr,
			Status:  status,
			Result:  ResultPending,
		})
	}

	return rows, invalidLines
}

// RestoreResults re-applies result/note columns (C/D) from a previously
// saved file onto freshly validated rows. A saved record only restores the
// row at the same position when its zipcode and address match, so results
// saved for a different file never attach to the wrong address.
func RestoreResults(rows []Row, records [][]string) []Row {
	for i := range rows {
		if i >= len(records) {
			break
		}
		record := records[i]
		if len(record) < 2 {
			continue
		}
		if NormalizeZipcode(record[0]) != rows[i].Zipcode {
			continue
		}
		if NormalizeAddress(record[1]) != rows[i].Address {
			continue
		}
		if len(record) >= 3 {
			if result := strings.TrimSpace(record[2]); result != "" {
				rows[i].Result = result
			}
		}
		if len(record) >= 4 {
			if note := strings.TrimSpace(record[3]); note != "" {
				rows[i].Note = note
			}
		}
	}
	return rows
}
