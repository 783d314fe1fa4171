package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/storage"

	"cti-precheck/internal/checker"
	"cti-precheck/internal/csvio"
	"cti-precheck/internal/gui"
	"cti-precheck/internal/gui/components"
	"cti-precheck/internal/judge"
	"cti-precheck/internal/logger"
	"cti-precheck/internal/settings"
	"cti-precheck/internal/update"
)

// Handlers owns the loaded rows and the run lifecycle behind the GUI
// callbacks.
type Handlers struct {
	guiManager    *gui.Manager
	store         *settings.Store
	logger        logger.Logger
	updateManager *update.Manager

	mu         sync.Mutex
	rows       []csvio.Row
	filePath   string
	targetLine int
	running    bool
	startedAt  time.Time
	showPopup  bool
	cancel     context.CancelFunc
}

func NewHandlers(gm *gui.Manager, store *settings.Store, log logger.Logger) *Handlers {
	return &Handlers{
		guiManager: gm,
		store:      store,
		logger:     log,
	}
}

func (h *Handlers) SetUpdateManager(m *update.Manager) {
	h.updateManager = m
}

func (h *Handlers) isRunning() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.running
}

func (h *Handlers) snapshotRows() []csvio.Row {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]csvio.Row(nil), h.rows...)
}

func (h *Handlers) HandleFileSelect() {
	if h.isRunning() {
		return
	}

	fileDialog := dialog.NewFileOpen(func(reader fyne.URIReadCloser, err error) {
		if err != nil {
			h.guiManager.ShowError("CSV読み込み", err)
			return
		}
		if reader == nil {
			return
		}

		path := reader.URI().Path()
		reader.Close()

		go h.loadCSV(path)
	}, h.guiManager.GetWindow())

	fileDialog.SetFilter(storage.NewExtensionFileFilter([]string{".csv"}))
	fileDialog.Show()
}

func (h *Handlers) loadCSV(path string) {
	records, removedBlank, err := csvio.ReadFile(path)
	if err != nil {
		h.guiManager.ShowError("CSV読み込み", err)
		return
	}

	rows, invalidLines := csvio.ValidateRows(records)

	h.mu.Lock()
	h.rows = rows
	h.filePath = path
	h.targetLine = 0
	h.mu.Unlock()

	h.guiManager.SetRows(rows)
	h.guiManager.SetFile(filepath.Base(path))
	h.guiManager.SetStatus("CSVを読み込みました。")
	h.guiManager.AppendLog(fmt.Sprintf("CSVを読み込みました: %s（%d行）", filepath.Base(path), len(rows)))

	h.logger.Info("Handlers", "csv loaded", map[string]interface{}{
		"path":          path,
		"rows":          len(rows),
		"invalid":       len(invalidLines),
		"removed_blank": removedBlank,
	})

	if removedBlank > 0 {
		h.guiManager.AppendLog(fmt.Sprintf("空のレコードを%d件除外しました", removedBlank))
	}

	if len(invalidLines) > 0 {
		h.guiManager.ShowInfo("入力チェック", invalidLinesMessage(invalidLines))
	}
}

func invalidLinesMessage(lines []int) string {
	const maxListed = 20

	listed := lines
	if len(listed) > maxListed {
		listed = listed[:maxListed]
	}

	parts := make([]string, 0, len(listed))
	for _, line := range listed {
		parts = append(parts, strconv.Itoa(line)+"行目")
	}

	message := "入力に問題がある行は判定対象外になります:\n" + strings.Join(parts, "、")
	if len(lines) > maxListed {
		message += fmt.Sprintf("\nほか%d件", len(lines)-maxListed)
	}
	return message
}

// offerStartupRestore prompts at launch when the previous session left an
// autosave behind. Accepting rebuilds the working rows from the autosave
// file itself: columns A/B go through validation again, then the saved
// result/note columns are re-applied.
func (h *Handlers) offerStartupRestore() {
	autosavePath := csvio.AutosavePath()
	if _, err := os.Stat(autosavePath); err != nil {
		return
	}

	h.guiManager.ShowConfirm("自動保存の復元",
		"前回の自動保存結果が見つかりました。復元しますか？",
		func(confirmed bool) {
			if !confirmed {
				return
			}
			go h.restoreAutosave(autosavePath)
		})
}

func (h *Handlers) restoreAutosave(autosavePath string) {
	records, _, err := csvio.ReadFile(autosavePath)
	if err != nil {
		h.guiManager.ShowError("自動保存の復元", err)
		return
	}

	rows, invalidLines := csvio.ValidateRows(records)
	rows = csvio.RestoreResults(rows, records)

	h.mu.Lock()
	h.rows = rows
	h.filePath = autosavePath
	h.targetLine = 0
	h.mu.Unlock()

	h.guiManager.SetRows(rows)
	h.guiManager.SetFile(filepath.Base(autosavePath))
	h.guiManager.SetStatus("自動保存結果を復元しました。")
	h.guiManager.AppendLog(fmt.Sprintf("自動保存結果を復元しました（%d行）", len(rows)))
	h.logger.Info("Handlers", "autosave restored", map[string]interface{}{
		"path": autosavePath,
		"rows": len(rows),
	})

	if len(invalidLines) > 0 {
		h.guiManager.ShowInfo("入力チェック", invalidLinesMessage(invalidLines))
	}
}

func (h *Handlers) HandleStart() {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}
	rows := append([]csvio.Row(nil), h.rows...)
	targetLine := h.targetLine
	h.mu.Unlock()

	if len(rows) == 0 {
		h.guiManager.ShowErrorMessage("提供判定", "CSVファイルを選択してください")
		return
	}

	scope := h.guiManager.Scope()
	if scope == components.ScopeAll {
		h.startWithResumeCheck(rows)
		return
	}

	// Scoped runs need a target line: the explicitly set one wins, the
	// current table selection is the fallback.
	if targetLine == 0 {
		if line, ok := h.guiManager.SelectedLine(); ok {
			targetLine = line
		}
	}
	if targetLine == 0 {
		h.guiManager.ShowErrorMessage("提供判定", "対象行が選択されていません")
		return
	}

	targets := make(map[int]bool)
	for _, row := range rows {
		switch scope {
		case components.ScopeSelectedOnly:
			if row.Line == targetLine {
				targets[row.Line] = true
			}
		case components.ScopeFromSelected:
			if row.Line >= targetLine {
				targets[row.Line] = true
			}
		}
	}
	if len(targets) == 0 {
		h.guiManager.ShowErrorMessage("提供判定", "対象行が見つかりません")
		return
	}

	h.beginRun(targets)
}

// startWithResumeCheck offers to continue a partially finished run from the
// first unfinished line instead of re-judging every row.
func (h *Handlers) startWithResumeCheck(rows []csvio.Row) {
	firstUnfinished := 0
	finished := 0
	for _, row := range rows {
		if !row.Runnable() {
			continue
		}
		if row.Unfinished() {
			if firstUnfinished == 0 {
				firstUnfinished = row.Line
			}
		} else {
			finished++
		}
	}

	if finished == 0 || firstUnfinished <= 1 {
		h.beginRun(nil)
		return
	}

	fromFirst := make(map[int]bool)
	for _, row := range rows {
		if row.Line >= firstUnfinished {
			fromFirst[row.Line] = true
		}
	}

	prompt := fmt.Sprintf(
		"判定済みの行が%d件あります。%d行目から再開しますか？\n「いいえ」で全行を再実行します。",
		finished, firstUnfinished,
	)
	h.guiManager.ShowConfirm("提供判定", prompt, func(resume bool) {
		if resume {
			h.beginRun(fromFirst)
		} else {
			h.beginRun(nil)
		}
	})
}

func (h *Handlers) beginRun(targets map[int]bool) {
	h.mu.Lock()
	if h.running {
		h.mu.Unlock()
		return
	}

	browser := h.store.Browser()
	browser.Headless = !h.guiManager.MonitorBrowser()
	browser.ShowPopup = h.guiManager.ShowPopup()
	browser.ParallelCount = h.guiManager.ParallelCount()
	if err := h.store.SaveBrowser(browser); err != nil {
		h.logger.Error("Handlers", err, map[string]interface{}{"stage": "save_settings"})
	}

	ctx, cancel := context.WithCancel(context.Background())
	h.running = true
	h.cancel = cancel
	h.startedAt = time.Now()
	// Snapshot widget state here, on the UI thread; finishRun fires from the
	// event-drain goroutine and must not touch widgets directly.
	h.showPopup = browser.ShowPopup
	start := h.startedAt
	rows := append([]csvio.Row(nil), h.rows...)
	h.mu.Unlock()

	total := 0
	for _, row := range rows {
		if targets == nil || targets[row.Line] {
			total++
		}
	}

	h.guiManager.SetRunning(true)
	h.guiManager.ClearLogs()
	h.guiManager.SetStatus("判定を実行中です...")
	h.guiManager.SetStartTime(start.Format("15:04:05"))
	h.guiManager.SetProgress(0, total)
	h.guiManager.AppendLog(fmt.Sprintf("判定を開始します（対象%d行 / 並列%d）", total, browser.ParallelCount))

	go h.tickElapsed(ctx, start)

	client := checker.NewClient(browser, h.logger)
	runner := judge.NewRunner(client, h.logger)
	events := runner.Run(ctx, rows, judge.Options{
		Workers:     browser.ParallelCount,
		TargetLines: targets,
	})

	go h.drainEvents(events)
}

func (h *Handlers) tickElapsed(ctx context.Context, start time.Time) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			h.guiManager.SetElapsed(formatElapsed(time.Since(start)))
		case <-ctx.Done():
			return
		}
	}
}

func formatElapsed(d time.Duration) string {
	seconds := int(d.Seconds())
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds/60)%60, seconds%60)
}

func (h *Handlers) drainEvents(events <-chan judge.Event) {
	for event := range events {
		switch event.Kind {
		case judge.EventRow:
			h.applyRow(event.Row)
		case judge.EventLog:
			h.guiManager.AppendLog(event.Message)
		case judge.EventWorkerLog:
			h.guiManager.AppendWorkerLog(event.Worker, event.Message)
		case judge.EventProgress:
			h.guiManager.SetProgress(event.Current, event.Total)
		case judge.EventDone:
			h.finishRun(event.Done)
		}
	}
}

func (h *Handlers) applyRow(row csvio.Row) {
	h.mu.Lock()
	for i := range h.rows {
		if h.rows[i].Line == row.Line {
			h.rows[i] = row
			break
		}
	}
	h.mu.Unlock()

	h.guiManager.UpdateRow(row)
}

func (h *Handlers) finishRun(summary *judge.DoneSummary) {
	h.mu.Lock()
	h.running = false
	start := h.startedAt
	showPopup := h.showPopup
	if h.cancel != nil {
		h.cancel()
		h.cancel = nil
	}
	h.mu.Unlock()

	end := time.Now()
	elapsed := formatElapsed(end.Sub(start))

	status := "判定が完了しました。"
	if summary != nil && summary.Cancelled {
		status = "判定を停止しました。"
	}

	h.guiManager.SetRunning(false)
	h.guiManager.SetStatus(status)
	h.guiManager.SetElapsed(elapsed)
	h.guiManager.AppendLog(fmt.Sprintf("%s（実行時間 %s）", status, elapsed))

	h.Autosave()

	if showPopup {
		var failed []int
		if summary != nil {
			failed = summary.FailedLines
		}
		h.guiManager.ShowInfo("提供判定", completionMessage(status, start, end, failed))
	}
}

// completionMessage formats the end-of-run popup body.
func completionMessage(status string, start, end time.Time, failedLines []int) string {
	message := fmt.Sprintf("%s\n開始: %s / 終了: %s / 実行時間: %s",
		status, start.Format("15:04:05"), end.Format("15:04:05"), formatElapsed(end.Sub(start)))
	if len(failedLines) > 0 {
		message += "\n失敗した行: " + joinLines(failedLines)
	}
	return message
}

func joinLines(lines []int) string {
	parts := make([]string, 0, len(lines))
	for _, line := range lines {
		parts = append(parts, strconv.Itoa(line))
	}
	return strings.Join(parts, ", ")
}

func (h *Handlers) HandleStop() {
	h.mu.Lock()
	cancel := h.cancel
	running := h.running
	h.mu.Unlock()

	if !running || cancel == nil {
		return
	}

	cancel()
	h.guiManager.SetStatus("停止処理中...")
	h.guiManager.AppendLog("停止要求を受け付けました。実行中の行の完了を待っています...")
	h.logger.Info("Handlers", "stop requested", nil)
}

func (h *Handlers) HandleTargetSet() {
	line, ok := h.guiManager.SelectedLine()
	if !ok {
		h.guiManager.ShowInfo("対象行", "表から行を選択してください")
		return
	}

	h.mu.Lock()
	h.targetLine = line
	h.mu.Unlock()

	h.guiManager.SetTargetLine(fmt.Sprintf("対象行: %d行目", line))
}

func (h *Handlers) HandleSaveResults() {
	rows := h.snapshotRows()
	if len(rows) == 0 {
		h.guiManager.ShowErrorMessage("結果保存", "保存する結果がありません")
		return
	}

	saveDialog := dialog.NewFileSave(func(writer fyne.URIWriteCloser, err error) {
		if err != nil {
			h.guiManager.ShowError("結果保存", err)
			return
		}
		if writer == nil {
			return
		}

		path := writer.URI().Path()
		writer.Close()

		go func() {
			if err := csvio.WriteResults(path, rows); err != nil {
				h.guiManager.ShowError("結果保存", err)
				return
			}
			h.guiManager.AppendLog("結果CSVを保存しました: " + path)
			h.guiManager.ShowInfo("結果保存", "結果CSVを保存しました。")
		}()
	}, h.guiManager.GetWindow())

	saveDialog.SetFileName("result.csv")
	saveDialog.Show()
}

func (h *Handlers) HandleSaveSettings() {
	browser := h.store.Browser()
	browser.Headless = !h.guiManager.MonitorBrowser()
	browser.ShowPopup = h.guiManager.ShowPopup()
	browser.ParallelCount = h.guiManager.ParallelCount()

	if err := h.store.SaveBrowser(browser); err != nil {
		h.guiManager.ShowError("設定保存", err)
		return
	}

	h.guiManager.SetStatus("設定を保存しました。")
	h.guiManager.AppendLog("設定を保存しました: " + h.store.Path())
}

func (h *Handlers) HandleUpdateCheck() {
	if h.updateManager == nil {
		return
	}
	h.updateManager.CheckAsync(context.Background(), true, false)
}

// Autosave writes the current rows next to the executable so an aborted
// session can be restored.
func (h *Handlers) Autosave() {
	rows := h.snapshotRows()
	if len(rows) == 0 {
		return
	}

	path := csvio.AutosavePath()
	if err := csvio.WriteResults(path, rows); err != nil {
		h.logger.Error("Handlers", err, map[string]interface{}{"stage": "autosave"})
		return
	}
	h.logger.Info("Handlers", "autosave written", map[string]interface{}{"path": path})
}

// Shutdown cancels a running judgement and persists the autosave.
func (h *Handlers) Shutdown() {
	h.mu.Lock()
	cancel := h.cancel
	h.mu.Unlock()

	if cancel != nil {
		cancel()
	}

	h.Autosave()
}
