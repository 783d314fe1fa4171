package csvio

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding/japanese"
	"golang.org/x/text/transform"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

// ErrUnsupportedEncoding is returned when a file decodes as neither UTF-8
// nor Shift-JIS (CP932).
var ErrUnsupportedEncoding = errors.New("csvio: unsupported file encoding")

// DecodeBytes converts raw file bytes to a string, accepting UTF-8 with or
// without BOM and falling back to CP932, the encoding Excel on Japanese
// Windows saves CSV in.
func DecodeBytes(data []byte) (string, error) {
	trimmed := bytes.TrimPrefix(data, utf8BOM)
	if utf8.Valid(trimmed) {
		return string(trimmed), nil
	}

	decoded, _, err := transform.Bytes(japanese.ShiftJIS.NewDecoder(), data)
	if err == nil && !bytes.ContainsRune(decoded, utf8.RuneError) {
		return string(decoded), nil
	}

	return "", ErrUnsupportedEncoding
}

// ReadFile reads and decodes a CSV file. Fully empty records are dropped
// before validation; the count of dropped records is returned so the UI can
// report it.
func ReadFile(path string) ([][]string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, 0, fmt.Errorf("read csv %s: %w", path, err)
	}

	text, err := DecodeBytes(data)
	if err != nil {
		return nil, 0, fmt.Errorf("decode csv %s: %w", path, err)
	}

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, 0, fmt.Errorf("parse csv %s: %w", path, err)
	}

	kept := records[:0]
	removedBlank := 0
	for _, record := range records {
		if recordIsBlank(record) {
			removedBlank++
			continue
		}
		kept = append(kept, record)
	}

	return kept, removedBlank, nil
}

func recordIsBlank(record []string) bool {
	for _, field := range record {
		if strings.TrimSpace(field) != "" {
			return false
		}
	}
	return true
}
