package app

import (
	"os"
	"path/filepath"
	"time"

	"fyne.io/fyne/v2"
	fyneapp "fyne.io/fyne/v2/app"

	"cti-precheck/internal/gui"
	"cti-precheck/internal/logger"
	"cti-precheck/internal/settings"
	"cti-precheck/internal/shutdown"
	"cti-precheck/internal/update"
	"cti-precheck/internal/version"
)

const (
	WindowWidth  = 1180
	WindowHeight = 760
)

type Application struct {
	fyneApp       fyne.App
	window        fyne.Window
	logger        logger.Logger
	guiManager    *gui.Manager
	store         *settings.Store
	handlers      *Handlers
	updateManager *update.Manager
	shutdownMgr   *shutdown.Manager
}

func NewApplication(log logger.Logger) (*Application, error) {
	fyneApp := fyneapp.NewWithID(version.AppID)
	window := fyneApp.NewWindow(version.AppName + " v" + version.Version)
	window.Resize(fyne.NewSize(WindowWidth, WindowHeight))
	window.CenterOnScreen()
	window.SetMaster()

	store := settings.NewStore(settingsPath())

	guiManager, err := gui.NewManager(window, log)
	if err != nil {
		return nil, err
	}

	handlers := NewHandlers(guiManager, store, log)

	application := &Application{
		fyneApp:     fyneApp,
		window:      window,
		logger:      log,
		guiManager:  guiManager,
		store:       store,
		handlers:    handlers,
		shutdownMgr: shutdown.NewManager(log, shutdown.DefaultComponentTimeout),
	}

	notifier := newUpdateNotifier(guiManager, log, application.exitForUpdate)
	application.updateManager = update.NewManager(store, log, notifier)
	handlers.SetUpdateManager(application.updateManager)

	application.shutdownMgr.Register("gui", guiManager)
	application.shutdownMgr.Register("handlers", handlers)
	application.shutdownMgr.Listen()

	application.setupHandlers()

	log.Info("Application", "initialization complete", map[string]interface{}{
		"version":  version.Version,
		"settings": store.Path(),
	})

	return application, nil
}

// settingsPath keeps settings.json next to the executable so a portable
// install carries its configuration.
func settingsPath() string {
	exe, err := os.Executable()
	if err != nil {
		return settings.DefaultPath
	}
	return filepath.Join(filepath.Dir(exe), settings.DefaultPath)
}

func (a *Application) setupHandlers() {
	a.guiManager.SetFileSelectHandler(a.handlers.HandleFileSelect)
	a.guiManager.SetStartHandler(a.handlers.HandleStart)
	a.guiManager.SetStopHandler(a.handlers.HandleStop)
	a.guiManager.SetSaveResultsHandler(a.handlers.HandleSaveResults)
	a.guiManager.SetSaveSettingsHandler(a.handlers.HandleSaveSettings)
	a.guiManager.SetUpdateCheckHandler(a.handlers.HandleUpdateCheck)
	a.guiManager.SetTargetSetHandler(a.handlers.HandleTargetSet)
}

func (a *Application) Run() error {
	a.window.SetCloseIntercept(func() {
		a.logger.Info("Application", "shutdown requested", nil)
		a.shutdownMgr.Shutdown()
		a.window.Close()
	})

	a.window.SetContent(a.guiManager.GetMainContainer())

	browser := a.store.Browser()
	a.guiManager.ApplyBrowserSettings(browser.Headless, browser.ShowPopup, browser.ParallelCount)

	a.window.Show()
	a.logger.Info("Application", "GUI displayed", nil)

	a.handlers.offerStartupRestore()

	// Startup auto-check waits for the window so dialogs have a parent.
	go func() {
		time.Sleep(1500 * time.Millisecond)
		a.updateManager.CheckAsync(a.shutdownMgr.Context(), false, true)
	}()

	a.fyneApp.Run()
	return nil
}

// exitForUpdate shuts the application down so the swap script can replace
// the executable.
func (a *Application) exitForUpdate() {
	a.logger.Info("Application", "exiting to apply update", nil)
	a.shutdownMgr.Shutdown()
	fyne.Do(func() {
		a.fyneApp.Quit()
	})
}
