package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// Run scope options shown in the toolbar.
const (
	ScopeAll          = "全行"
	ScopeSelectedOnly = "選択行のみ"
	ScopeFromSelected = "選択行以降"
)

type Toolbar struct {
	SelectButton *widget.Button
	StartButton  *widget.Button
	StopButton   *widget.Button
	SaveButton   *widget.Button
	TargetButton *widget.Button
	ScopeSelect  *widget.Select
	TargetLabel  *widget.Label
	FileLabel    *widget.Label

	container *fyne.Container
}

func NewToolbar() *Toolbar {
	tb := &Toolbar{
		SelectButton: widget.NewButton("CSVファイルを選択", nil),
		StartButton:  widget.NewButton("提供判定開始", nil),
		StopButton:   widget.NewButton("停止", nil),
		SaveButton:   widget.NewButton("結果CSV保存", nil),
		TargetButton: widget.NewButton("選択行を対象にセット", nil),
		ScopeSelect:  widget.NewSelect([]string{ScopeAll, ScopeSelectedOnly, ScopeFromSelected}, nil),
		TargetLabel:  widget.NewLabel("対象行: 未選択"),
		FileLabel:    widget.NewLabel("未選択"),
	}

	tb.ScopeSelect.SetSelected(ScopeAll)
	tb.StopButton.Disable()

	tb.container = container.NewHBox(
		tb.SelectButton,
		tb.StartButton,
		tb.ScopeSelect,
		tb.TargetButton,
		tb.TargetLabel,
		tb.StopButton,
		tb.SaveButton,
		tb.FileLabel,
	)

	return tb
}

func (tb *Toolbar) GetContainer() *fyne.Container {
	return tb.container
}

// SetRunning flips the controls between idle and running states. Stop is
// the only control usable mid-run.
func (tb *Toolbar) SetRunning(running bool) {
	if running {
		tb.SelectButton.Disable()
		tb.StartButton.Disable()
		tb.TargetButton.Disable()
		tb.ScopeSelect.Disable()
		tb.StopButton.Enable()
	} else {
		tb.SelectButton.Enable()
		tb.StartButton.Enable()
		tb.TargetButton.Enable()
		tb.ScopeSelect.Enable()
		tb.StopButton.Disable()
	}
}

func (tb *Toolbar) SetTargetLine(text string) {
	tb.TargetLabel.SetText(text)
}

func (tb *Toolbar) SetFile(text string) {
	tb.FileLabel.SetText(text)
}

func (tb *Toolbar) Scope() string {
	return tb.ScopeSelect.Selected
}

func (tb *Toolbar) SetScope(scope string) {
	tb.ScopeSelect.SetSelected(scope)
}
