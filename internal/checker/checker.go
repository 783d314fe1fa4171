// Package checker drives the carrier area-search sites through a headless
// browser and classifies the availability verdict for one postal code and
// address pair.
package checker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"cti-precheck/internal/logger"
	"cti-precheck/internal/settings"
)

// Checker is what the judgement runner depends on; tests substitute fakes.
type Checker interface {
	Check(ctx context.Context, zipcode, address string, progress ProgressFunc) (Result, error)
}

// Client runs provisioning lookups through chromedp.
type Client struct {
	browser       settings.BrowserSettings
	logger        logger.Logger
	screenshotDir string
}

func NewClient(browser settings.BrowserSettings, log logger.Logger) *Client {
	return &Client{
		browser:       browser,
		logger:        log,
		screenshotDir: "screenshots",
	}
}

// Check performs one availability lookup. The caller's context carries
// cancellation; a cancelled run yields StatusCancelled, not an error, so
// the row is marked 停止 rather than 失敗.
func (c *Client) Check(ctx context.Context, zipcode, address string, progress ProgressFunc) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{Status: StatusCancelled, Message: "判定開始前に停止されました"}, nil
	}

	region := RegionForZipcode(zipcode)
	endpoint := endpoints[region]

	progress(fmt.Sprintf("ブラウザを起動します（%s）", region))

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, allocatorOptions(c.browser)...)
	defer cancelAlloc()

	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)
	defer cancelBrowser()

	pageBudget, scriptBudget := checkBudgets(c.browser)

	// Navigation runs on the page-load budget; form automation and result
	// extraction run on the script budget.
	navCtx, cancelNav := context.WithTimeout(browserCtx, pageBudget)
	defer cancelNav()

	if err := chromedp.Run(navCtx, renderOptimizations(c.browser.AggressiveResourceBlocking)); err != nil {
		return c.classifyError(ctx, err, "browser setup")
	}

	progress(fmt.Sprintf("検索ページを開きます: %s", endpoint.searchURL))

	navigation := chromedp.Tasks{
		navigateAction(endpoint.searchURL, c.browser.PageLoadStrategy),
		chromedp.WaitVisible(endpoint.zipSelector, chromedp.ByQuery),
	}
	if err := chromedp.Run(navCtx, navigation); err != nil {
		return c.classifyError(ctx, err, "page load")
	}

	scriptCtx, cancelScript := context.WithTimeout(browserCtx, scriptBudget)
	defer cancelScript()

	var resultText string
	automation := chromedp.Tasks{
		chromedp.SendKeys(endpoint.zipSelector, zipcode, chromedp.ByQuery),
		chromedp.Click(endpoint.submitSelector, chromedp.ByQuery),
		chromedp.WaitVisible(endpoint.resultSelector, chromedp.ByQuery),
		chromedp.Text(endpoint.resultSelector, &resultText, chromedp.ByQuery),
	}
	if err := chromedp.Run(scriptCtx, automation); err != nil {
		return c.classifyError(ctx, err, "area search")
	}

	progress("判定結果を解析します")

	result := classifyResultText(resultText, address)

	if c.browser.EnableScreenshots {
		if path, err := c.captureScreenshot(scriptCtx, zipcode); err != nil {
			c.logger.Warning("Checker", "screenshot capture failed", map[string]interface{}{
				"zipcode": zipcode, "error": err.Error(),
			})
		} else {
			result.SearchNotes = append(result.SearchNotes, "スクリーンショット: "+path)
		}
	}

	c.logger.Info("Checker", "lookup complete", map[string]interface{}{
		"zipcode": zipcode,
		"region":  string(region),
		"status":  string(result.Status),
	})

	// A visible session with auto-close off stays open briefly so the user
	// can inspect the result page before the context tears the window down.
	if hold := holdDuration(c.browser); hold > 0 {
		progress("確認のためブラウザを保持しています")
		select {
		case <-time.After(hold):
		case <-ctx.Done():
		}
	}

	return result, nil
}

const (
	defaultBudget = 60 * time.Second
	visibleHold   = 5 * time.Second
)

// checkBudgets splits one lookup into a navigation budget and an
// automation budget from the persisted timeout settings.
func checkBudgets(b settings.BrowserSettings) (pageLoad, script time.Duration) {
	pageLoad = time.Duration(b.PageLoadTimeout) * time.Second
	if pageLoad <= 0 {
		pageLoad = defaultBudget
	}
	script = time.Duration(b.ScriptTimeout) * time.Second
	if script <= 0 {
		script = defaultBudget
	}
	return pageLoad, script
}

// holdDuration is how long a finished lookup keeps its browser window open.
// Only visible sessions with auto-close disabled hold at all.
func holdDuration(b settings.BrowserSettings) time.Duration {
	if b.Headless || b.AutoClose {
		return 0
	}
	return visibleHold
}

// classifyError separates user cancellation from genuine automation
// failures. Timeouts from the page-load budget count as failures.
func (c *Client) classifyError(parent context.Context, err error, stage string) (Result, error) {
	if parent.Err() != nil || errors.Is(err, context.Canceled) {
		return Result{Status: StatusCancelled, Message: "判定を停止しました"}, nil
	}
	return Result{Status: StatusFailed, Message: err.Error()}, fmt.Errorf("%s: %w", stage, err)
}

// classifyResultText maps the verdict area's text to a status, falling back
// to failed when no known marker is present.
func classifyResultText(text, address string) Result {
	details := map[string]string{"提供エリア": strings.TrimSpace(text)}

	switch {
	case strings.Contains(text, "住所を特定できない"), strings.Contains(text, "担当者がお調べ"):
		return Result{
			Status:  StatusInvestigation,
			Message: InvestigationMessage,
			Details: details,
		}
	case strings.Contains(text, "提供可能"), strings.Contains(text, "ご利用いただけます"):
		return Result{Status: StatusAvailable, Message: "提供可能", Details: details}
	case strings.Contains(text, "未提供"), strings.Contains(text, "ご利用いただけません"):
		return Result{Status: StatusUnavailable, Message: "未提供", Details: details}
	default:
		return Result{
			Status:  StatusFailed,
			Message: "判定結果を特定できませんでした",
			Details: details,
			SearchNotes: []string{
				"検索住所: " + address,
			},
		}
	}
}

func (c *Client) captureScreenshot(ctx context.Context, zipcode string) (string, error) {
	var buf []byte
	if err := chromedp.Run(ctx, chromedp.CaptureScreenshot(&buf)); err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.screenshotDir, 0o755); err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s.png", strings.ReplaceAll(zipcode, "-", ""), time.Now().Format("20060102_150405"))
	path := filepath.Join(c.screenshotDir, name)
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
