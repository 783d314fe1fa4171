package components

import (
	"strconv"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"

	"cti-precheck/internal/csvio"
)

var tableHeaders = []string{"行", "郵便番号", "住所", "状態", "判定結果", "備考"}

var tableWidths = []float32{50, 110, 320, 110, 110, 360}

// ResultTable renders the loaded rows and tracks the user's row selection.
type ResultTable struct {
	Table *widget.Table

	mu           sync.RWMutex
	rows         []csvio.Row
	selectedLine int

	onSelect func(line int)
}

func NewResultTable() *ResultTable {
	rt := &ResultTable{selectedLine: 0}

	rt.Table = widget.NewTable(
		func() (int, int) {
			rt.mu.RLock()
			defer rt.mu.RUnlock()
			return len(rt.rows), len(tableHeaders)
		},
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.Truncation = fyne.TextTruncateEllipsis
			return label
		},
		func(id widget.TableCellID, object fyne.CanvasObject) {
			label := object.(*widget.Label)
			label.SetText(rt.cellText(id.Row, id.Col))
		},
	)

	rt.Table.ShowHeaderRow = true
	rt.Table.CreateHeader = func() fyne.CanvasObject {
		return widget.NewLabel("")
	}
	rt.Table.UpdateHeader = func(id widget.TableCellID, object fyne.CanvasObject) {
		label := object.(*widget.Label)
		if id.Col >= 0 && id.Col < len(tableHeaders) {
			label.SetText(tableHeaders[id.Col])
		}
	}

	for col, width := range tableWidths {
		rt.Table.SetColumnWidth(col, width)
	}

	rt.Table.OnSelected = func(id widget.TableCellID) {
		rt.mu.Lock()
		line := 0
		if id.Row >= 0 && id.Row < len(rt.rows) {
			line = rt.rows[id.Row].Line
		}
		rt.selectedLine = line
		handler := rt.onSelect
		rt.mu.Unlock()

		if handler != nil && line > 0 {
			handler(line)
		}
	}

	return rt
}

func (rt *ResultTable) cellText(row, col int) string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()

	if row < 0 || row >= len(rt.rows) {
		return ""
	}
	r := rt.rows[row]
	switch col {
	case 0:
		return strconv.Itoa(r.Line)
	case 1:
		return r.Zipcode
	case 2:
		return r.Address
	case 3:
		return r.Status
	case 4:
		return r.Result
	case 5:
		return r.Note
	default:
		return ""
	}
}

// SetOnSelect registers a selection callback receiving the 1-based line.
func (rt *ResultTable) SetOnSelect(handler func(line int)) {
	rt.mu.Lock()
	rt.onSelect = handler
	rt.mu.Unlock()
}

func (rt *ResultTable) SetRows(rows []csvio.Row) {
	rt.mu.Lock()
	rt.rows = append([]csvio.Row(nil), rows...)
	rt.selectedLine = 0
	rt.mu.Unlock()

	rt.Table.UnselectAll()
	rt.Table.Refresh()
}

// UpdateRow replaces the row with the matching line number.
func (rt *ResultTable) UpdateRow(row csvio.Row) {
	rt.mu.Lock()
	for i := range rt.rows {
		if rt.rows[i].Line == row.Line {
			rt.rows[i] = row
			break
		}
	}
	rt.mu.Unlock()

	rt.Table.Refresh()
}

// SelectedLine returns the 1-based line of the current selection, or false
// when nothing is selected.
func (rt *ResultTable) SelectedLine() (int, bool) {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	return rt.selectedLine, rt.selectedLine > 0
}

// NoteForLine returns the note of the given line for the detail pane.
func (rt *ResultTable) NoteForLine(line int) string {
	rt.mu.RLock()
	defer rt.mu.RUnlock()
	for _, row := range rt.rows {
		if row.Line == line {
			return row.Note
		}
	}
	return ""
}
