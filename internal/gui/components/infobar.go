package components

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// InfoBar shows run-level counters: total rows, status text, progress,
// start time and elapsed time.
type InfoBar struct {
	totalLabel    *widget.Label
	statusLabel   *widget.Label
	progressLabel *widget.Label
	startLabel    *widget.Label
	elapsedLabel  *widget.Label

	container *fyne.Container
}

func NewInfoBar() *InfoBar {
	ib := &InfoBar{
		totalLabel:    widget.NewLabel("総行数: 0"),
		statusLabel:   widget.NewLabel("CSVファイルを選択してください。"),
		progressLabel: widget.NewLabel("進捗: -"),
		startLabel:    widget.NewLabel("開始時刻: -"),
		elapsedLabel:  widget.NewLabel("実行時間: -"),
	}

	ib.container = container.NewHBox(
		ib.totalLabel,
		ib.statusLabel,
		ib.progressLabel,
		ib.startLabel,
		ib.elapsedLabel,
	)

	return ib
}

func (ib *InfoBar) GetContainer() *fyne.Container {
	return ib.container
}

func (ib *InfoBar) SetTotal(total int) {
	ib.totalLabel.SetText(fmt.Sprintf("総行数: %d", total))
}

func (ib *InfoBar) SetStatus(text string) {
	ib.statusLabel.SetText(text)
}

func (ib *InfoBar) SetProgress(current, total int) {
	ib.progressLabel.SetText(fmt.Sprintf("進捗: %d/%d", current, total))
}

func (ib *InfoBar) SetStartTime(text string) {
	ib.startLabel.SetText("開始時刻: " + text)
}

func (ib *InfoBar) SetElapsed(text string) {
	ib.elapsedLabel.SetText("実行時間: " + text)
}
