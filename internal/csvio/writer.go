package csvio

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
)

// AutosaveFileName is written next to the executable when the app exits
// with results loaded.
const AutosaveFileName = "result_autosave.csv"

// WriteResults saves rows as a result CSV: zipcode, address, result, note.
// A UTF-8 BOM is prepended so Excel opens the file correctly.
func WriteResults(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create result csv %s: %w", path, err)
	}
	defer file.Close()

	if _, err := file.Write(utf8BOM); err != nil {
		return fmt.Errorf("write bom: %w", err)
	}

	writer := csv.NewWriter(file)
	for _, row := range rows {
		result := row.Result
		if result == "" {
			result = ResultPending
		}
		if err := writer.Write([]string{row.Zipcode, row.Address, result, row.Note}); err != nil {
			return fmt.Errorf("write row %d: %w", row.Line, err)
		}
	}
	writer.Flush()

	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush result csv %s: %w", path, err)
	}
	return nil
}

// AutosavePath resolves the autosave file location next to the running
// executable, falling back to the working directory.
func AutosavePath() string {
	exe, err := os.Executable()
	if err != nil {
		return AutosaveFileName
	}
	return filepath.Join(filepath.Dir(exe), AutosaveFileName)
}
