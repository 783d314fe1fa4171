package csvio

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeZipcode(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"already canonical", "123-4567", "123-4567"},
		{"seven digits no dash", "1234567", "123-4567"},
		{"full width dash", "123－4567", "123-4567"},
		{"katakana dash", "123ー4567", "123-4567"},
		{"surrounding spaces", " 123-4567 ", "123-4567"},
		{"too few digits", "12-345", "12-345"},
		{"too many digits", "12345678", "12345678"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeZipcode(tt.input))
		})
	}
}

func TestNormalizeAddress(t *testing.T) {
	assert.Equal(t, "東京都千代田区1-2-3", NormalizeAddress("東京都千代田区１－２－３"))
	assert.Equal(t, "札幌市 北区", NormalizeAddress("札幌市　　北区"))
	assert.Equal(t, "大阪市北区", NormalizeAddress("  大阪市北区  "))
}

func TestValidateRows(t *testing.T) {
	records := [][]string{
		{"123-4567", "東京都千代田区1-1"},
		{"1234567", "大阪市北区梅田1-1"},
		{"", "住所だけの行"},
		{"999-8888", ""},
		{"12-34", "桁が足りない行"},
		{"", ""},
	}

	rows, invalid := ValidateRows(records)

	assert.Len(t, rows, 6)
	assert.Equal(t, []int{3, 4, 5}, invalid)

	assert.Equal(t, StatusOK, rows[0].Status)
	assert.Equal(t, StatusOK, rows[1].Status)
	assert.Equal(t, "123-4567", rows[1].Zipcode)
	assert.Equal(t, StatusMissing, rows[2].Status)
	assert.Equal(t, StatusMissing, rows[3].Status)
	assert.Equal(t, StatusZipFormat, rows[4].Status)
	assert.Equal(t, StatusBlank, rows[5].Status)

	for i, row := range rows {
		assert.Equal(t, i+1, row.Line)
		assert.Equal(t, ResultPending, row.Result)
	}
}

func TestRowRunnableAndUnfinished(t *testing.T) {
	ok := Row{Status: StatusOK, Result: ResultPending}
	assert.True(t, ok.Runnable())
	assert.True(t, ok.Unfinished())

	stopped := Row{Status: StatusOK, Result: ResultStopped}
	assert.True(t, stopped.Unfinished())

	done := Row{Status: StatusOK, Result: ResultAvailable}
	assert.False(t, done.Unfinished())

	invalid := Row{Status: StatusZipFormat}
	assert.False(t, invalid.Runnable())
}

func TestRestoreResults(t *testing.T) {
	rows := []Row{
		{Line: 1, Zipcode: "123-4567", Address: "東京都", Status: StatusOK, Result: ResultPending},
		{Line: 2, Zipcode: "234-5678", Address: "大阪市", Status: StatusOK, Result: ResultPending},
		{Line: 3, Zipcode: "345-6789", Address: "札幌市", Status: StatusOK, Result: ResultPending},
	}

	saved := [][]string{
		{"123-4567", "東京都", ResultAvailable, "光配線方式"},
		{"234-5678", "大阪市", "", ""},
	}

	restored := RestoreResults(rows, saved)

	assert.Equal(t, ResultAvailable, restored[0].Result)
	assert.Equal(t, "光配線方式", restored[0].Note)
	assert.Equal(t, ResultPending, restored[1].Result)
	assert.Equal(t, ResultPending, restored[2].Result)
}

func TestRestoreResultsSkipsMismatchedRows(t *testing.T) {
	rows := []Row{
		{Line: 1, Zipcode: "999-0001", Address: "札幌市北区", Status: StatusOK, Result: ResultPending},
		{Line: 2, Zipcode: "123-4567", Address: "東京都港区", Status: StatusOK, Result: ResultPending},
	}

	// Autosave from a different file: the verdict must never attach to a
	// row whose zipcode or address does not match.
	saved := [][]string{
		{"123-4567", "東京都千代田区", ResultAvailable, "光配線方式"},
		{"123-4567", "東京都千代田区", ResultUnavailable, ""},
	}

	restored := RestoreResults(rows, saved)

	assert.Equal(t, ResultPending, restored[0].Result)
	assert.Empty(t, restored[0].Note)
	assert.Equal(t, ResultPending, restored[1].Result)
}

func TestRestoreResultsRebuildsFromSavedFile(t *testing.T) {
	// Startup restore: validate the autosave's own A/B columns, then
	// re-apply its C/D columns. A self-consistent file restores fully.
	saved := [][]string{
		{"123-4567", "東京都千代田区１－２", ResultAvailable, "光配線方式"},
		{"234-5678", "大阪市北区", ResultStopped, ""},
		{"", "住所だけの行", "", ""},
	}

	rows, invalid := ValidateRows(saved)
	rows = RestoreResults(rows, saved)

	assert.Equal(t, []int{3}, invalid)
	assert.Equal(t, ResultAvailable, rows[0].Result)
	assert.Equal(t, "光配線方式", rows[0].Note)
	assert.Equal(t, ResultStopped, rows[1].Result)
	assert.Equal(t, ResultPending, rows[2].Result)
}
