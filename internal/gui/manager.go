package gui

import (
	"errors"
	"fmt"

	"cti-precheck/internal/csvio"
	"cti-precheck/internal/gui/components"
	"cti-precheck/internal/logger"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
)

// Manager owns the widget tree and marshals every update onto the UI
// thread. Handlers are wired by the application layer.
type Manager struct {
	window     fyne.Window
	logger     logger.Logger
	isShutdown bool

	toolbar     *components.Toolbar
	settingsBar *components.SettingsBar
	infoBar     *components.InfoBar
	resultTable *components.ResultTable
	logPanel    *components.LogPanel

	parallelChangeHandler func(count int)
}

func NewManager(window fyne.Window, log logger.Logger) (*Manager, error) {
	manager := &Manager{
		window:      window,
		logger:      log,
		toolbar:     components.NewToolbar(),
		settingsBar: components.NewSettingsBar(),
		infoBar:     components.NewInfoBar(),
		resultTable: components.NewResultTable(),
		logPanel:    components.NewLogPanel(),
	}

	manager.resultTable.SetOnSelect(func(line int) {
		manager.toolbar.SetTargetLine(fmt.Sprintf("選択中: %d行目", line))
		manager.logPanel.SetNote(manager.resultTable.NoteForLine(line))
	})

	manager.settingsBar.ParallelSelect.OnChanged = func(string) {
		count := manager.settingsBar.ParallelCount()
		manager.logPanel.SetWorkerCount(count)
		if manager.parallelChangeHandler != nil {
			manager.parallelChangeHandler(count)
		}
	}

	log.Info("GUIManager", "initialized", map[string]interface{}{
		"components": 5,
	})

	return manager, nil
}

func (m *Manager) GetMainContainer() *fyne.Container {
	top := container.NewVBox(
		m.toolbar.GetContainer(),
		m.settingsBar.GetContainer(),
		m.infoBar.GetContainer(),
	)

	split := container.NewVSplit(m.resultTable.Table, m.logPanel.GetContainer())
	split.SetOffset(0.62)

	return container.NewBorder(top, nil, nil, nil, split)
}

func (m *Manager) GetWindow() fyne.Window {
	return m.window
}

// Handler wiring. The application layer registers these once at startup.

func (m *Manager) SetFileSelectHandler(handler func()) {
	m.toolbar.SelectButton.OnTapped = handler
}

func (m *Manager) SetStartHandler(handler func()) {
	m.toolbar.StartButton.OnTapped = handler
}

func (m *Manager) SetStopHandler(handler func()) {
	m.toolbar.StopButton.OnTapped = handler
}

func (m *Manager) SetSaveResultsHandler(handler func()) {
	m.toolbar.SaveButton.OnTapped = handler
}

func (m *Manager) SetSaveSettingsHandler(handler func()) {
	m.settingsBar.SaveButton.OnTapped = handler
}

func (m *Manager) SetUpdateCheckHandler(handler func()) {
	m.settingsBar.UpdateButton.OnTapped = handler
}

func (m *Manager) SetTargetSetHandler(handler func()) {
	m.toolbar.TargetButton.OnTapped = handler
}

func (m *Manager) SetParallelChangeHandler(handler func(count int)) {
	m.parallelChangeHandler = handler
}

// State readers used by the application handlers.

func (m *Manager) Scope() string {
	return m.toolbar.Scope()
}

func (m *Manager) SelectedLine() (int, bool) {
	return m.resultTable.SelectedLine()
}

func (m *Manager) MonitorBrowser() bool {
	return m.settingsBar.MonitorCheck.Checked
}

func (m *Manager) ShowPopup() bool {
	return m.settingsBar.PopupCheck.Checked
}

func (m *Manager) ParallelCount() int {
	return m.settingsBar.ParallelCount()
}

// ApplyBrowserSettings pushes persisted settings into the controls.
func (m *Manager) ApplyBrowserSettings(headless, showPopup bool, parallelCount int) {
	fyne.Do(func() {
		m.settingsBar.MonitorCheck.SetChecked(!headless)
		m.settingsBar.PopupCheck.SetChecked(showPopup)
		m.settingsBar.SetParallelCount(parallelCount)
		m.logPanel.SetWorkerCount(parallelCount)
	})
}

// UI updates. Safe to call from any goroutine.

func (m *Manager) SetRows(rows []csvio.Row) {
	fyne.Do(func() {
		m.resultTable.SetRows(rows)
		m.infoBar.SetTotal(len(rows))
		m.toolbar.SetTargetLine("対象行: 未選択")
	})
}

func (m *Manager) UpdateRow(row csvio.Row) {
	fyne.Do(func() {
		m.resultTable.UpdateRow(row)
	})
}

func (m *Manager) SetRunning(running bool) {
	fyne.Do(func() {
		m.toolbar.SetRunning(running)
		m.settingsBar.SetRunning(running)
	})
}

func (m *Manager) SetStatus(text string) {
	fyne.Do(func() {
		m.infoBar.SetStatus(text)
	})
}

func (m *Manager) SetProgress(current, total int) {
	fyne.Do(func() {
		m.infoBar.SetProgress(current, total)
	})
}

func (m *Manager) SetStartTime(text string) {
	fyne.Do(func() {
		m.infoBar.SetStartTime(text)
	})
}

func (m *Manager) SetElapsed(text string) {
	fyne.Do(func() {
		m.infoBar.SetElapsed(text)
	})
}

func (m *Manager) SetFile(text string) {
	fyne.Do(func() {
		m.toolbar.SetFile(text)
	})
}

func (m *Manager) SetTargetLine(text string) {
	fyne.Do(func() {
		m.toolbar.SetTargetLine(text)
	})
}

func (m *Manager) AppendLog(message string) {
	fyne.Do(func() {
		m.logPanel.AppendLog(message)
	})
}

func (m *Manager) AppendWorkerLog(worker int, message string) {
	fyne.Do(func() {
		m.logPanel.AppendWorkerLog(worker, message)
	})
}

func (m *Manager) ClearLogs() {
	fyne.Do(func() {
		m.logPanel.Clear()
	})
}

// Dialogs.

func (m *Manager) ShowError(title string, err error) {
	m.logger.Error("GUIManager", err, map[string]interface{}{
		"title": title,
	})

	fyne.Do(func() {
		dialog.ShowError(err, m.window)
	})
}

func (m *Manager) ShowErrorMessage(title, message string) {
	m.ShowError(title, errors.New(message))
}

func (m *Manager) ShowInfo(title, message string) {
	fyne.Do(func() {
		dialog.ShowInformation(title, message, m.window)
	})
}

// ShowConfirm runs callback with the user's answer. Non-blocking.
func (m *Manager) ShowConfirm(title, message string, callback func(bool)) {
	fyne.Do(func() {
		dialog.ShowConfirm(title, message, callback, m.window)
	})
}

func (m *Manager) Shutdown() {
	if m.isShutdown {
		return
	}

	m.isShutdown = true
	m.logger.Info("GUIManager", "shutdown initiated", nil)
}
