package components

import (
	"fmt"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

const maxLogLines = 1000

// LogPanel groups the run log, the per-worker logs and the note detail
// pane. Worker panes are rebuilt when the worker count changes.
type LogPanel struct {
	mu sync.RWMutex

	globalLines []string
	globalList  *widget.List

	workerLines [][]string
	workerLists []*widget.List
	workerGrid  *fyne.Container

	noteLabel *widget.Label

	tabs *container.AppTabs
}

func NewLogPanel() *LogPanel {
	lp := &LogPanel{}

	lp.globalList = widget.NewList(
		func() int {
			lp.mu.RLock()
			defer lp.mu.RUnlock()
			return len(lp.globalLines)
		},
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.Truncation = fyne.TextTruncateEllipsis
			return label
		},
		func(id widget.ListItemID, object fyne.CanvasObject) {
			lp.mu.RLock()
			defer lp.mu.RUnlock()
			if id >= 0 && id < len(lp.globalLines) {
				object.(*widget.Label).SetText(lp.globalLines[id])
			}
		},
	)

	lp.workerGrid = container.NewGridWithColumns(2)

	lp.noteLabel = widget.NewLabel("行を選択すると備考の全文を表示します。")
	lp.noteLabel.Wrapping = fyne.TextWrapWord

	lp.tabs = container.NewAppTabs(
		container.NewTabItem("実行ログ", lp.globalList),
		container.NewTabItem("ワーカーログ", container.NewScroll(lp.workerGrid)),
		container.NewTabItem("備考詳細", container.NewScroll(lp.noteLabel)),
	)

	lp.SetWorkerCount(1)

	return lp
}

func (lp *LogPanel) GetContainer() fyne.CanvasObject {
	return lp.tabs
}

// SetWorkerCount rebuilds the worker panes. Existing worker logs are
// discarded.
func (lp *LogPanel) SetWorkerCount(count int) {
	if count < 1 {
		count = 1
	}

	lp.mu.Lock()
	lp.workerLines = make([][]string, count)
	lp.workerLists = make([]*widget.List, count)
	for i := 0; i < count; i++ {
		lp.workerLists[i] = lp.newWorkerList(i)
	}
	lists := lp.workerLists
	lp.mu.Unlock()

	lp.workerGrid.RemoveAll()
	for i, list := range lists {
		header := widget.NewLabel(fmt.Sprintf("ワーカー %d", i+1))
		header.TextStyle = fyne.TextStyle{Bold: true}
		pane := container.NewBorder(header, nil, nil, nil, list)
		lp.workerGrid.Add(pane)
	}
	lp.workerGrid.Refresh()
}

func (lp *LogPanel) newWorkerList(worker int) *widget.List {
	return widget.NewList(
		func() int {
			lp.mu.RLock()
			defer lp.mu.RUnlock()
			if worker >= len(lp.workerLines) {
				return 0
			}
			return len(lp.workerLines[worker])
		},
		func() fyne.CanvasObject {
			label := widget.NewLabel("")
			label.Truncation = fyne.TextTruncateEllipsis
			return label
		},
		func(id widget.ListItemID, object fyne.CanvasObject) {
			lp.mu.RLock()
			defer lp.mu.RUnlock()
			if worker < len(lp.workerLines) && id >= 0 && id < len(lp.workerLines[worker]) {
				object.(*widget.Label).SetText(lp.workerLines[worker][id])
			}
		},
	)
}

// AppendLog adds a timestamped line to the run log.
func (lp *LogPanel) AppendLog(message string) {
	line := time.Now().Format("15:04:05") + " " + message

	lp.mu.Lock()
	lp.globalLines = append(lp.globalLines, line)
	if len(lp.globalLines) > maxLogLines {
		lp.globalLines = lp.globalLines[len(lp.globalLines)-maxLogLines:]
	}
	last := len(lp.globalLines) - 1
	lp.mu.Unlock()

	lp.globalList.Refresh()
	lp.globalList.ScrollTo(last)
}

// AppendWorkerLog adds a timestamped line to the given worker's pane.
// Worker indexes are 0-based; out-of-range lines fall back to the run log.
func (lp *LogPanel) AppendWorkerLog(worker int, message string) {
	lp.mu.Lock()
	if worker < 0 || worker >= len(lp.workerLines) {
		lp.mu.Unlock()
		lp.AppendLog(message)
		return
	}

	line := time.Now().Format("15:04:05") + " " + message
	lp.workerLines[worker] = append(lp.workerLines[worker], line)
	if len(lp.workerLines[worker]) > maxLogLines {
		lp.workerLines[worker] = lp.workerLines[worker][len(lp.workerLines[worker])-maxLogLines:]
	}
	list := lp.workerLists[worker]
	last := len(lp.workerLines[worker]) - 1
	lp.mu.Unlock()

	list.Refresh()
	list.ScrollTo(last)
}

// SetNote shows the full note text of the selected row.
func (lp *LogPanel) SetNote(text string) {
	if text == "" {
		text = "（備考なし）"
	}
	lp.noteLabel.SetText(text)
}

// Clear empties the run log and all worker panes.
func (lp *LogPanel) Clear() {
	lp.mu.Lock()
	lp.globalLines = nil
	for i := range lp.workerLines {
		lp.workerLines[i] = nil
	}
	lists := append([]*widget.List(nil), lp.workerLists...)
	lp.mu.Unlock()

	lp.globalList.Refresh()
	for _, list := range lists {
		list.Refresh()
	}
}
