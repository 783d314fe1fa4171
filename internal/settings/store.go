package settings

import (
	"fmt"
	"os"
	"sync"

	"github.com/spf13/viper"
)

// DefaultPath is the settings file written next to the executable.
const DefaultPath = "settings.json"

// MaxHistoryEntries caps the persisted update history.
const MaxHistoryEntries = 30

// BrowserSettings controls how the checker drives the browser.
type BrowserSettings struct {
	Headless                   bool   `mapstructure:"headless"`
	ShowPopup                  bool   `mapstructure:"show_popup"`
	AutoClose                  bool   `mapstructure:"auto_close"`
	PageLoadTimeout            int    `mapstructure:"page_load_timeout"`
	ScriptTimeout              int    `mapstructure:"script_timeout"`
	EnableScreenshots          bool   `mapstructure:"enable_screenshots"`
	DisableImages              bool   `mapstructure:"disable_images"`
	AggressiveResourceBlocking bool   `mapstructure:"aggressive_resource_blocking"`
	PageLoadStrategy           string `mapstructure:"page_load_strategy"`
	ParallelCount              int    `mapstructure:"parallel_count"`
}

// UpdateResult records the outcome of a single update check.
type UpdateResult struct {
	Status         string `mapstructure:"status"`
	Message        string `mapstructure:"message"`
	CurrentVersion string `mapstructure:"current_version"`
	LatestVersion  string `mapstructure:"latest_version"`
	CheckedAt      string `mapstructure:"checked_at"`
}

// UpdateSettings holds the updater's persisted state.
type UpdateSettings struct {
	Channel                string                 `mapstructure:"channel"`
	ETag                   string                 `mapstructure:"etag"`
	CachedRelease          map[string]interface{} `mapstructure:"cached_release"`
	LastCheckedAt          string                 `mapstructure:"last_checked_at"`
	LastLatestVersion      string                 `mapstructure:"last_latest_version"`
	SkippedVersion         string                 `mapstructure:"skipped_version"`
	AutoCheckIntervalHours int                    `mapstructure:"auto_check_interval_hours"`
	LastResult             *UpdateResult          `mapstructure:"last_result"`
}

func DefaultBrowserSettings() BrowserSettings {
	return BrowserSettings{
		Headless:                   true,
		ShowPopup:                  true,
		AutoClose:                  false,
		PageLoadTimeout:            60,
		ScriptTimeout:              60,
		EnableScreenshots:          true,
		DisableImages:              true,
		AggressiveResourceBlocking: true,
		PageLoadStrategy:           "eager",
		ParallelCount:              1,
	}
}

func DefaultUpdateSettings() UpdateSettings {
	return UpdateSettings{
		Channel:                "stable",
		AutoCheckIntervalHours: 24,
	}
}

// Store persists application settings through viper. A corrupt or missing
// settings file degrades to defaults rather than failing startup.
type Store struct {
	mu   sync.Mutex
	path string
	v    *viper.Viper
}

func NewStore(path string) *Store {
	if path == "" {
		path = DefaultPath
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("json")
	applyDefaults(v)

	if _, err := os.Stat(path); err == nil {
		// Corrupt files are ignored; defaults stay in effect.
		_ = v.ReadInConfig()
	}

	return &Store{path: path, v: v}
}

func applyDefaults(v *viper.Viper) {
	b := DefaultBrowserSettings()
	v.SetDefault("browser_settings.headless", b.Headless)
	v.SetDefault("browser_settings.show_popup", b.ShowPopup)
	v.SetDefault("browser_settings.auto_close", b.AutoClose)
	v.SetDefault("browser_settings.page_load_timeout", b.PageLoadTimeout)
	v.SetDefault("browser_settings.script_timeout", b.ScriptTimeout)
	v.SetDefault("browser_settings.enable_screenshots", b.EnableScreenshots)
	v.SetDefault("browser_settings.disable_images", b.DisableImages)
	v.SetDefault("browser_settings.aggressive_resource_blocking", b.AggressiveResourceBlocking)
	v.SetDefault("browser_settings.page_load_strategy", b.PageLoadStrategy)
	v.SetDefault("browser_settings.parallel_count", b.ParallelCount)

	u := DefaultUpdateSettings()
	v.SetDefault("update_settings.channel", u.Channel)
	v.SetDefault("update_settings.auto_check_interval_hours", u.AutoCheckIntervalHours)
}

func (s *Store) Path() string {
	return s.path
}

// Browser returns the effective browser settings (defaults merged with file).
func (s *Store) Browser() BrowserSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := DefaultBrowserSettings()
	_ = s.v.UnmarshalKey("browser_settings", &settings)
	settings = sanitizeBrowser(settings)
	return settings
}

func sanitizeBrowser(b BrowserSettings) BrowserSettings {
	switch b.PageLoadStrategy {
	case "normal", "eager", "none":
	default:
		b.PageLoadStrategy = "eager"
	}
	if b.ParallelCount < 1 || b.ParallelCount > 8 {
		b.ParallelCount = 1
	}
	if b.PageLoadTimeout <= 0 {
		b.PageLoadTimeout = 60
	}
	if b.ScriptTimeout <= 0 {
		b.ScriptTimeout = 60
	}
	return b
}

func (s *Store) SaveBrowser(b BrowserSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b = sanitizeBrowser(b)
	s.v.Set("browser_settings.headless", b.Headless)
	s.v.Set("browser_settings.show_popup", b.ShowPopup)
	s.v.Set("browser_settings.auto_close", b.AutoClose)
	s.v.Set("browser_settings.page_load_timeout", b.PageLoadTimeout)
	s.v.Set("browser_settings.script_timeout", b.ScriptTimeout)
	s.v.Set("browser_settings.enable_screenshots", b.EnableScreenshots)
	s.v.Set("browser_settings.disable_images", b.DisableImages)
	s.v.Set("browser_settings.aggressive_resource_blocking", b.AggressiveResourceBlocking)
	s.v.Set("browser_settings.page_load_strategy", b.PageLoadStrategy)
	s.v.Set("browser_settings.parallel_count", b.ParallelCount)

	return s.write()
}

// Update returns the persisted updater state.
func (s *Store) Update() UpdateSettings {
	s.mu.Lock()
	defer s.mu.Unlock()

	settings := DefaultUpdateSettings()
	_ = s.v.UnmarshalKey("update_settings", &settings)
	if settings.Channel == "" {
		settings.Channel = "stable"
	}
	return settings
}

func (s *Store) SaveUpdate(u UpdateSettings) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.v.Set("update_settings.channel", u.Channel)
	s.v.Set("update_settings.etag", u.ETag)
	s.v.Set("update_settings.cached_release", u.CachedRelease)
	s.v.Set("update_settings.last_checked_at", u.LastCheckedAt)
	s.v.Set("update_settings.last_latest_version", u.LastLatestVersion)
	s.v.Set("update_settings.skipped_version", u.SkippedVersion)
	s.v.Set("update_settings.auto_check_interval_hours", u.AutoCheckIntervalHours)
	if u.LastResult != nil {
		s.v.Set("update_settings.last_result", resultToMap(*u.LastResult))
	}

	return s.write()
}

// History returns persisted update check records, newest last.
func (s *Store) History() []UpdateResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []UpdateResult
	_ = s.v.UnmarshalKey("update_history", &history)
	return history
}

// AppendHistory records an update check outcome, keeping the most recent
// MaxHistoryEntries entries.
func (s *Store) AppendHistory(result UpdateResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var history []UpdateResult
	_ = s.v.UnmarshalKey("update_history", &history)

	history = append(history, result)
	if len(history) > MaxHistoryEntries {
		history = history[len(history)-MaxHistoryEntries:]
	}

	entries := make([]map[string]interface{}, 0, len(history))
	for _, entry := range history {
		entries = append(entries, resultToMap(entry))
	}
	s.v.Set("update_history", entries)

	return s.write()
}

func resultToMap(r UpdateResult) map[string]interface{} {
	return map[string]interface{}{
		"status":          r.Status,
		"message":         r.Message,
		"current_version": r.CurrentVersion,
		"latest_version":  r.LatestVersion,
		"checked_at":      r.CheckedAt,
	}
}

func (s *Store) write() error {
	if err := s.v.WriteConfigAs(s.path); err != nil {
		return fmt.Errorf("write settings %s: %w", s.path, err)
	}
	return nil
}
