// Package update implements the self-update flow: release discovery on
// GitHub with ETag caching, verified download, and in-place executable
// replacement.
package update

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"cti-precheck/internal/logger"
	"cti-precheck/internal/settings"
	"cti-precheck/internal/version"
)

// Choice is the user's answer to an update prompt.
type Choice int

const (
	ChoiceNo Choice = iota
	ChoiceYes
	ChoiceSkip
)

// Notifier is the GUI surface the update flow talks to. Every method may
// be called from a background goroutine; implementations marshal onto the
// UI thread themselves.
type Notifier interface {
	Log(message string)
	Info(title, message string)
	Error(title, message string)
	AskChoice(prompt, latestVersion string) Choice
	// StartDownload opens a progress dialog; cancel aborts the download.
	// The returned progress func receives byte counts, done closes the dialog.
	StartDownload(fileName string, cancel func()) (progress func(downloaded, total int64), done func())
	// RequestExit asks the application to quit so the swap script can run.
	RequestExit()
}

// Manager drives update checks. One check runs at a time; concurrent
// requests are dropped.
type Manager struct {
	store    *settings.Store
	logger   logger.Logger
	notifier Notifier
	client   *githubClient

	appName        string
	currentVersion string
	checking       atomic.Bool
	applyFunc      func(downloadedExe, assetName string) (bool, error)
}

func NewManager(store *settings.Store, log logger.Logger, notifier Notifier) *Manager {
	return &Manager{
		store:          store,
		logger:         log,
		notifier:       notifier,
		client:         newGitHubClient(version.GitHubOwner, version.GitHubRepo, version.UserAgent()),
		appName:        version.AppName,
		currentVersion: version.Version,
		applyFunc:      Apply,
	}
}

// CheckAsync runs a check in the background. interactive controls whether
// results surface as dialogs; auto applies the check-interval gate and the
// skipped-version suppression.
func (m *Manager) CheckAsync(ctx context.Context, interactive, auto bool) {
	if !m.checking.CompareAndSwap(false, true) {
		return
	}
	go func() {
		defer m.checking.Store(false)
		m.check(ctx, interactive, auto)
	}()
}

func (m *Manager) check(ctx context.Context, interactive, auto bool) {
	if strings.HasPrefix(m.client.owner, "REPLACE_WITH") || strings.HasPrefix(m.client.repo, "REPLACE_WITH") {
		msg := "更新チェックをスキップ: GitHub リポジトリ設定が未完了です"
		m.notifier.Log(msg)
		if interactive {
			m.notifier.Info("更新チェック", msg)
		}
		return
	}

	current := m.store.Update()
	if auto && !shouldAutoCheck(current) {
		return
	}

	checkedAt := time.Now().UTC().Truncate(time.Second).Format(time.RFC3339)
	status := "failed"
	latestVersion := ""
	message := ""

	defer func() {
		refreshed := m.store.Update()
		refreshed.LastCheckedAt = checkedAt
		refreshed.LastResult = &settings.UpdateResult{
			Status:         status,
			Message:        message,
			CurrentVersion: m.currentVersion,
			LatestVersion:  latestVersion,
			CheckedAt:      checkedAt,
		}
		if err := m.store.SaveUpdate(refreshed); err != nil {
			m.logger.Error("UpdateManager", err, nil)
		}
		if err := m.store.AppendHistory(*refreshed.LastResult); err != nil {
			m.logger.Error("UpdateManager", err, nil)
		}
	}()

	release, err := m.fetchLatestRelease(ctx, current)
	if err != nil {
		message = err.Error()
		m.notifier.Log("更新チェック失敗: " + message)
		if interactive {
			m.notifier.Error("更新チェック", "更新処理に失敗しました\n"+message)
		}
		return
	}

	latestVersion = release.Version()
	if latestVersion == "" {
		message = "最新リリースの tag_name が取得できませんでした"
		m.notifier.Log("更新チェック失敗: " + message)
		return
	}

	refreshed := m.store.Update()
	refreshed.LastCheckedAt = checkedAt
	refreshed.LastLatestVersion = latestVersion
	if err := m.store.SaveUpdate(refreshed); err != nil {
		m.logger.Error("UpdateManager", err, nil)
	}

	if !IsNewer(latestVersion, m.currentVersion) {
		status = "up-to-date"
		message = fmt.Sprintf("最新です（現在: %s / 最新: %s）", m.currentVersion, latestVersion)
		m.notifier.Log("更新チェック結果: " + message)
		if interactive {
			m.notifier.Info("更新チェック", message)
		}
		return
	}

	if auto && current.SkippedVersion != "" && current.SkippedVersion == latestVersion {
		status = "skipped"
		message = fmt.Sprintf("%s は通知スキップ設定", latestVersion)
		m.notifier.Log(fmt.Sprintf("更新通知をスキップ（ユーザーが %s をスキップ済み）", latestVersion))
		return
	}

	prompt := fmt.Sprintf(
		"新しいバージョン %s が見つかりました。\n現在のバージョン: %s\n\n更新をダウンロードして適用しますか？",
		latestVersion, m.currentVersion,
	)
	if body := strings.TrimSpace(release.Body); body != "" {
		if len(body) > 1400 {
			body = body[:1400]
		}
		prompt += "\n\n--- Release Note ---\n" + body
	}

	switch m.notifier.AskChoice(prompt, latestVersion) {
	case ChoiceSkip:
		skipSettings := m.store.Update()
		skipSettings.SkippedVersion = latestVersion
		if err := m.store.SaveUpdate(skipSettings); err != nil {
			m.logger.Error("UpdateManager", err, nil)
		}
		status = "skipped"
		message = fmt.Sprintf("%s をスキップしました", latestVersion)
		m.notifier.Log(message)
		return
	case ChoiceNo:
		status = "cancelled"
		message = "ユーザーが更新をキャンセルしました"
		m.notifier.Log(message)
		return
	}

	if err := m.downloadAndApply(ctx, release); err != nil {
		message = err.Error()
		m.notifier.Log("更新チェック失敗: " + message)
		if interactive {
			m.notifier.Error("更新チェック", "更新処理に失敗しました\n"+message)
		}
		return
	}

	status = "applied"
	message = fmt.Sprintf("更新 %s を適用しました", latestVersion)
	m.notifier.Log(message)
}

// fetchLatestRelease resolves the release for the configured channel,
// serving from the ETag cache on 304 and refreshing the cache otherwise.
func (m *Manager) fetchLatestRelease(ctx context.Context, current settings.UpdateSettings) (Release, error) {
	channel := strings.ToLower(strings.TrimSpace(current.Channel))
	if channel == "" {
		channel = "stable"
	}

	release, etag, err := m.client.fetchRelease(ctx, channel, current.ETag)
	if err == errNotModified {
		cached, ok := releaseFromMap(current.CachedRelease)
		if !ok {
			return Release{}, fmt.Errorf("304 を受信しましたがキャッシュがありません")
		}
		return cached, nil
	}
	if err != nil {
		return Release{}, err
	}

	refreshed := m.store.Update()
	refreshed.ETag = etag
	refreshed.CachedRelease = releaseToMap(release)
	refreshed.Channel = channel
	if saveErr := m.store.SaveUpdate(refreshed); saveErr != nil {
		m.logger.Error("UpdateManager", saveErr, nil)
	}

	return release, nil
}

func (m *Manager) downloadAndApply(ctx context.Context, release Release) error {
	asset, err := release.SelectExeAsset(m.appName)
	if err != nil {
		return err
	}

	downloadCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	progress, done := m.notifier.StartDownload(asset.Name, cancel)
	m.notifier.Log("更新ファイルをダウンロードします: " + asset.Name)

	downloadedPath, err := m.client.downloadAsset(downloadCtx, asset, progress)
	done()
	if err != nil {
		return err
	}
	m.notifier.Log("ダウンロード完了: " + downloadedPath)

	if err := m.verifySHA256(ctx, release, asset, downloadedPath); err != nil {
		return err
	}
	m.notifier.Log("SHA256 検証に成功しました")

	exitRequired, err := m.applyFunc(downloadedPath, asset.Name)
	if err != nil {
		return err
	}
	if !exitRequired {
		m.notifier.Info("更新ファイル取得完了",
			"このプラットフォームでは自動差し替えは行いません。\nダウンロード先: "+downloadedPath)
		return nil
	}

	m.notifier.Log("更新を適用します。アプリを自動で再起動します")
	m.notifier.RequestExit()
	return nil
}

// verifySHA256 blocks the update unless the downloaded file's hash matches
// the release's published checksum.
func (m *Manager) verifySHA256(ctx context.Context, release Release, asset Asset, filePath string) error {
	expected := ""

	for _, candidate := range release.Assets {
		if !isChecksumAsset(candidate.Name) || candidate.BrowserDownloadURL == "" {
			continue
		}
		content, err := m.client.fetchText(ctx, candidate.BrowserDownloadURL)
		if err != nil {
			m.logger.Warning("UpdateManager", "checksum asset fetch failed", map[string]interface{}{
				"asset": candidate.Name, "error": err.Error(),
			})
			continue
		}
		if hash := ParseChecksumLines(content)[asset.Name]; hash != "" {
			expected = hash
			break
		}
	}

	if expected == "" {
		expected = findHashInBody(release.Body, asset.Name)
	}
	if expected == "" {
		return fmt.Errorf("SHA256 がリリース情報に見つかりませんでした")
	}

	actual, err := SHA256File(filePath)
	if err != nil {
		return err
	}
	if !strings.EqualFold(actual, expected) {
		return fmt.Errorf("SHA256 検証に失敗しました")
	}
	return nil
}

// shouldAutoCheck applies the auto-check interval against the last check
// timestamp. Unparseable state errs on the side of checking.
func shouldAutoCheck(current settings.UpdateSettings) bool {
	if current.AutoCheckIntervalHours <= 0 {
		return true
	}

	lastChecked := strings.TrimSpace(current.LastCheckedAt)
	if lastChecked == "" {
		return true
	}

	lastTime, err := time.Parse(time.RFC3339, lastChecked)
	if err != nil {
		return true
	}

	elapsed := time.Since(lastTime)
	return elapsed >= time.Duration(current.AutoCheckIntervalHours)*time.Hour
}
