package app

import (
	"fmt"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"

	"cti-precheck/internal/gui"
	"cti-precheck/internal/logger"
	"cti-precheck/internal/update"
)

// updateNotifier bridges the update flow onto Fyne dialogs. The update
// manager calls it from background goroutines.
type updateNotifier struct {
	guiManager *gui.Manager
	logger     logger.Logger
	exit       func()
}

func newUpdateNotifier(gm *gui.Manager, log logger.Logger, exit func()) *updateNotifier {
	return &updateNotifier{guiManager: gm, logger: log, exit: exit}
}

func (n *updateNotifier) Log(message string) {
	n.guiManager.AppendLog(message)
}

func (n *updateNotifier) Info(title, message string) {
	n.guiManager.ShowInfo(title, message)
}

func (n *updateNotifier) Error(title, message string) {
	n.guiManager.ShowErrorMessage(title, message)
}

// AskChoice blocks until the user answers. Declining the update offers a
// second prompt to mute future notifications for this version.
func (n *updateNotifier) AskChoice(prompt, latestVersion string) update.Choice {
	answer := make(chan update.Choice, 1)

	n.guiManager.ShowConfirm("更新の確認", prompt, func(confirmed bool) {
		if confirmed {
			answer <- update.ChoiceYes
			return
		}

		skipPrompt := fmt.Sprintf("バージョン %s の更新通知を今後スキップしますか？", latestVersion)
		n.guiManager.ShowConfirm("更新の確認", skipPrompt, func(skip bool) {
			if skip {
				answer <- update.ChoiceSkip
			} else {
				answer <- update.ChoiceNo
			}
		})
	})

	return <-answer
}

// StartDownload opens a cancellable progress dialog and returns the
// progress sink plus a done func that closes the dialog.
func (n *updateNotifier) StartDownload(fileName string, cancel func()) (func(downloaded, total int64), func()) {
	bar := widget.NewProgressBar()
	label := widget.NewLabel(fileName + " をダウンロード中...")

	var d dialog.Dialog
	fyne.Do(func() {
		content := container.NewVBox(label, bar)
		d = dialog.NewCustom("更新ダウンロード", "キャンセル", content, n.guiManager.GetWindow())
		d.SetOnClosed(cancel)
		d.Show()
	})

	progress := func(downloaded, total int64) {
		fyne.Do(func() {
			if total > 0 {
				bar.SetValue(float64(downloaded) / float64(total))
			}
			label.SetText(fmt.Sprintf("%s をダウンロード中... %d KB / %d KB",
				fileName, downloaded/1024, total/1024))
		})
	}

	done := func() {
		fyne.Do(func() {
			if d != nil {
				// Completion must not trigger the cancel path.
				d.SetOnClosed(func() {})
				d.Hide()
			}
		})
	}

	return progress, done
}

func (n *updateNotifier) RequestExit() {
	n.logger.Info("UpdateNotifier", "exit requested to apply update", nil)
	n.exit()
}
