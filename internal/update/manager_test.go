package update

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cti-precheck/internal/settings"
)

type nopLogger struct{}

func (nopLogger) Debug(string, string, map[string]interface{})   {}
func (nopLogger) Info(string, string, map[string]interface{})    {}
func (nopLogger) Warning(string, string, map[string]interface{}) {}
func (nopLogger) Error(string, error, map[string]interface{})    {}

type fakeNotifier struct {
	mu            sync.Mutex
	logs          []string
	infos         []string
	errs          []string
	choice        Choice
	asked         bool
	exitRequested bool
}

func (f *fakeNotifier) Log(message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.logs = append(f.logs, message)
}

func (f *fakeNotifier) Info(title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.infos = append(f.infos, title+": "+message)
}

func (f *fakeNotifier) Error(title, message string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = append(f.errs, title+": "+message)
}

func (f *fakeNotifier) AskChoice(prompt, latestVersion string) Choice {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.asked = true
	return f.choice
}

func (f *fakeNotifier) StartDownload(fileName string, cancel func()) (func(int64, int64), func()) {
	return func(int64, int64) {}, func() {}
}

func (f *fakeNotifier) RequestExit() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.exitRequested = true
}

func newTestManager(t *testing.T, serverURL string, notifier *fakeNotifier) (*Manager, *settings.Store) {
	t.Helper()

	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))
	m := &Manager{
		store:          store,
		logger:         nopLogger{},
		notifier:       notifier,
		client:         testClient(serverURL),
		appName:        "CTI-Precheck",
		currentVersion: "1.4.2",
		applyFunc: func(downloadedExe, assetName string) (bool, error) {
			return true, nil
		},
	}
	return m, store
}

// releaseServer serves one release with an exe asset and a checksums.txt
// covering it.
func releaseServer(t *testing.T, tag string, payload []byte) *httptest.Server {
	t.Helper()

	sum := sha256.Sum256(payload)
	hash := hex.EncodeToString(sum[:])
	exeName := fmt.Sprintf("CTI-Precheck-%s.exe", strings.TrimPrefix(tag, "v"))

	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/repos/example/cti-precheck/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		release := Release{
			TagName: tag,
			Body:    "release notes",
			Assets: []Asset{
				{Name: "checksums.txt", BrowserDownloadURL: server.URL + "/checksums"},
				{Name: exeName, BrowserDownloadURL: server.URL + "/exe"},
			},
		}
		_ = json.NewEncoder(w).Encode(release)
	})
	mux.HandleFunc("/checksums", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, "%s  %s\n", hash, exeName)
	})
	mux.HandleFunc("/exe", func(w http.ResponseWriter, r *http.Request) {
		w.Write(payload)
	})

	server = httptest.NewServer(mux)
	return server
}

func TestCheckAppliesUpdate(t *testing.T) {
	payload := []byte("new executable bytes")
	server := releaseServer(t, "v9.9.9", payload)
	defer server.Close()

	notifier := &fakeNotifier{choice: ChoiceYes}
	m, store := newTestManager(t, server.URL, notifier)

	m.check(context.Background(), true, false)

	assert.True(t, notifier.asked)
	assert.True(t, notifier.exitRequested)

	current := store.Update()
	require.NotNil(t, current.LastResult)
	assert.Equal(t, "applied", current.LastResult.Status)
	assert.Equal(t, "9.9.9", current.LastResult.LatestVersion)
	assert.Equal(t, "9.9.9", current.LastLatestVersion)

	history := store.History()
	require.Len(t, history, 1)
	assert.Equal(t, "applied", history[0].Status)
}

func TestCheckChecksumMismatchBlocksUpdate(t *testing.T) {
	mux := http.NewServeMux()
	var server *httptest.Server

	mux.HandleFunc("/repos/example/cti-precheck/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		release := Release{
			TagName: "v9.9.9",
			Assets: []Asset{
				{Name: "checksums.txt", BrowserDownloadURL: server.URL + "/checksums"},
				{Name: "CTI-Precheck-9.9.9.exe", BrowserDownloadURL: server.URL + "/exe"},
			},
		}
		_ = json.NewEncoder(w).Encode(release)
	})
	mux.HandleFunc("/checksums", func(w http.ResponseWriter, r *http.Request) {
		// Published hash covers different bytes than the served exe.
		fmt.Fprintf(w, "%s  CTI-Precheck-9.9.9.exe\n", sampleHash)
	})
	mux.HandleFunc("/exe", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("tampered executable bytes"))
	})

	server = httptest.NewServer(mux)
	defer server.Close()

	notifier := &fakeNotifier{choice: ChoiceYes}
	m, store := newTestManager(t, server.URL, notifier)

	m.check(context.Background(), true, false)

	assert.False(t, notifier.exitRequested)
	require.NotNil(t, store.Update().LastResult)
	assert.Equal(t, "failed", store.Update().LastResult.Status)
	assert.NotEmpty(t, notifier.errs)
}

func TestCheckUpToDate(t *testing.T) {
	server := releaseServer(t, "v1.0.0", []byte("irrelevant"))
	defer server.Close()

	notifier := &fakeNotifier{}
	m, store := newTestManager(t, server.URL, notifier)

	m.check(context.Background(), true, false)

	assert.False(t, notifier.asked)
	assert.False(t, notifier.exitRequested)
	require.NotNil(t, store.Update().LastResult)
	assert.Equal(t, "up-to-date", store.Update().LastResult.Status)
	assert.NotEmpty(t, notifier.infos)
}

func TestCheckUserSkipsVersion(t *testing.T) {
	server := releaseServer(t, "v9.9.9", []byte("irrelevant"))
	defer server.Close()

	notifier := &fakeNotifier{choice: ChoiceSkip}
	m, store := newTestManager(t, server.URL, notifier)

	m.check(context.Background(), true, false)

	assert.Equal(t, "9.9.9", store.Update().SkippedVersion)
	assert.Equal(t, "skipped", store.Update().LastResult.Status)
	assert.False(t, notifier.exitRequested)
}

func TestCheckAutoSuppressesSkippedVersion(t *testing.T) {
	server := releaseServer(t, "v9.9.9", []byte("irrelevant"))
	defer server.Close()

	notifier := &fakeNotifier{choice: ChoiceYes}
	m, store := newTestManager(t, server.URL, notifier)

	current := store.Update()
	current.SkippedVersion = "9.9.9"
	require.NoError(t, store.SaveUpdate(current))

	m.check(context.Background(), false, true)

	assert.False(t, notifier.asked, "auto checks never prompt for a skipped version")
	assert.Equal(t, "skipped", store.Update().LastResult.Status)
}

func TestCheckPlaceholderRepoGuard(t *testing.T) {
	notifier := &fakeNotifier{}
	store := settings.NewStore(filepath.Join(t.TempDir(), "settings.json"))
	m := &Manager{
		store:          store,
		logger:         nopLogger{},
		notifier:       notifier,
		client:         newGitHubClient("REPLACE_WITH_OWNER", "REPLACE_WITH_REPO", "test"),
		appName:        "CTI-Precheck",
		currentVersion: "1.4.2",
	}

	m.check(context.Background(), true, false)

	assert.NotEmpty(t, notifier.logs)
	assert.Empty(t, store.History(), "guarded checks leave no history")
}

func TestCheckServes304FromCache(t *testing.T) {
	var latestCalls int
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/example/cti-precheck/releases/latest", func(w http.ResponseWriter, r *http.Request) {
		latestCalls++
		w.WriteHeader(http.StatusNotModified)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	notifier := &fakeNotifier{}
	m, store := newTestManager(t, server.URL, notifier)

	current := store.Update()
	current.ETag = `"abc123"`
	current.CachedRelease = releaseToMap(Release{TagName: "v1.0.0"})
	require.NoError(t, store.SaveUpdate(current))

	m.check(context.Background(), true, false)

	assert.Equal(t, 1, latestCalls)
	assert.Equal(t, "up-to-date", store.Update().LastResult.Status)
}

func TestShouldAutoCheck(t *testing.T) {
	now := time.Now().UTC()

	tests := []struct {
		name    string
		current settings.UpdateSettings
		want    bool
	}{
		{"never checked", settings.UpdateSettings{AutoCheckIntervalHours: 24}, true},
		{"interval disabled", settings.UpdateSettings{AutoCheckIntervalHours: 0, LastCheckedAt: now.Format(time.RFC3339)}, true},
		{"checked recently", settings.UpdateSettings{AutoCheckIntervalHours: 24, LastCheckedAt: now.Add(-time.Hour).Format(time.RFC3339)}, false},
		{"checked long ago", settings.UpdateSettings{AutoCheckIntervalHours: 24, LastCheckedAt: now.Add(-25 * time.Hour).Format(time.RFC3339)}, true},
		{"garbage timestamp", settings.UpdateSettings{AutoCheckIntervalHours: 24, LastCheckedAt: "not a time"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, shouldAutoCheck(tt.current))
		})
	}
}
