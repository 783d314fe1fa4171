package checker

import (
	"context"
	"fmt"

	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"cti-precheck/internal/settings"
)

// blockedURLPatterns lists resource types the checker never needs. Blocking
// them keeps page loads fast on slow carrier pages.
var blockedURLPatterns = []string{
	"*.png", "*.jpg", "*.jpeg", "*.gif", "*.webp", "*.svg", "*.ico",
	"*.woff", "*.woff2", "*.ttf", "*.otf",
	"*.mp4", "*.webm", "*.mp3", "*.m4a", "*.wav",
	"data:image/*",
}

// animationKillerScript disables CSS animations and transitions on every
// new document so result markers settle immediately.
const animationKillerScript = `
(() => {
	try {
		const style = document.createElement('style');
		style.id = '__cti_render_light_style';
		style.textContent = ` + "`" + `
			*, *::before, *::after {
				animation: none !important;
				transition: none !important;
				caret-color: transparent !important;
			}
			html { scroll-behavior: auto !important; }
		` + "`" + `;
		document.documentElement.appendChild(style);
	} catch (e) {}
})();
`

// allocatorOptions translates browser settings into chromedp exec options,
// mirroring the hardening flags the packaged driver always sets.
func allocatorOptions(b settings.BrowserSettings) []chromedp.ExecAllocatorOption {
	opts := append([]chromedp.ExecAllocatorOption{}, chromedp.DefaultExecAllocatorOptions[:]...)

	if b.Headless {
		opts = append(opts, chromedp.Flag("headless", "new"))
	} else {
		opts = append(opts, chromedp.Flag("headless", false))
	}

	opts = append(opts,
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-infobars", true),
		chromedp.Flag("disable-notifications", true),
		chromedp.Flag("disable-popup-blocking", true),
		chromedp.Flag("disable-translate", true),
		chromedp.Flag("disable-background-networking", true),
		chromedp.Flag("disable-backgrounding-occluded-windows", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-component-update", true),
		chromedp.Flag("metrics-recording-only", true),
		chromedp.Flag("mute-audio", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
		chromedp.Flag("password-store", "basic"),
		chromedp.WindowSize(1280, 720),
	)

	if b.DisableImages {
		opts = append(opts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}

	return opts
}

// navigateAction maps the page-load strategy onto navigation wait
// behavior. "normal" waits for the load event; "eager" and "none" fire the
// navigation and let the subsequent selector waits gate readiness.
func navigateAction(url, strategy string) chromedp.Action {
	if strategy == "normal" {
		return chromedp.Navigate(url)
	}

	return chromedp.ActionFunc(func(ctx context.Context) error {
		_, _, errorText, err := page.Navigate(url).Do(ctx)
		if err != nil {
			return err
		}
		if errorText != "" {
			return fmt.Errorf("navigate %s: %s", url, errorText)
		}
		return nil
	})
}

// renderOptimizations applies network blocking and the animation killer
// before any navigation happens.
func renderOptimizations(aggressiveBlocking bool) chromedp.Tasks {
	tasks := chromedp.Tasks{network.Enable()}

	if aggressiveBlocking {
		tasks = append(tasks, network.SetBlockedURLs(blockedURLPatterns))
	}

	tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := page.AddScriptToEvaluateOnNewDocument(animationKillerScript).Do(ctx)
		return err
	}))

	return tasks
}
