package components

import (
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// SettingsBar holds the run configuration controls: browser monitoring,
// result popups, parallel worker count, settings save and update check.
type SettingsBar struct {
	MonitorCheck   *widget.Check
	PopupCheck     *widget.Check
	ParallelSelect *widget.Select
	SaveButton     *widget.Button
	UpdateButton   *widget.Button

	container *fyne.Container
}

func NewSettingsBar() *SettingsBar {
	counts := make([]string, 0, 8)
	for i := 1; i <= 8; i++ {
		counts = append(counts, strconv.Itoa(i))
	}

	sb := &SettingsBar{
		MonitorCheck:   widget.NewCheck("ブラウザ表示で監視する", nil),
		PopupCheck:     widget.NewCheck("判定結果ポップアップを有効化", nil),
		ParallelSelect: widget.NewSelect(counts, nil),
		SaveButton:     widget.NewButton("設定保存", nil),
		UpdateButton:   widget.NewButton("更新チェック", nil),
	}

	sb.PopupCheck.SetChecked(true)
	sb.ParallelSelect.SetSelected("1")

	sb.container = container.NewHBox(
		sb.MonitorCheck,
		sb.PopupCheck,
		widget.NewLabel("並列数"),
		sb.ParallelSelect,
		sb.SaveButton,
		sb.UpdateButton,
	)

	return sb
}

func (sb *SettingsBar) GetContainer() *fyne.Container {
	return sb.container
}

func (sb *SettingsBar) SetRunning(running bool) {
	if running {
		sb.ParallelSelect.Disable()
		sb.SaveButton.Disable()
	} else {
		sb.ParallelSelect.Enable()
		sb.SaveButton.Enable()
	}
}

// ParallelCount returns the selected worker count, defaulting to 1 when
// the selection is unreadable.
func (sb *SettingsBar) ParallelCount() int {
	count, err := strconv.Atoi(sb.ParallelSelect.Selected)
	if err != nil || count < 1 || count > 8 {
		return 1
	}
	return count
}

func (sb *SettingsBar) SetParallelCount(count int) {
	if count < 1 || count > 8 {
		count = 1
	}
	sb.ParallelSelect.SetSelected(strconv.Itoa(count))
}
