package update

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sethvargo/go-retry"
)

const (
	defaultAPIBase  = "https://api.github.com"
	requestTimeout  = 15 * time.Second
	downloadTimeout = 30 * time.Second
	downloadChunk   = 256 * 1024
)

// githubClient talks to the GitHub Releases API. baseURL is swappable so
// tests can point it at an httptest server.
type githubClient struct {
	httpClient *http.Client
	baseURL    string
	owner      string
	repo       string
	userAgent  string
}

func newGitHubClient(owner, repo, userAgent string) *githubClient {
	return &githubClient{
		httpClient: &http.Client{},
		baseURL:    defaultAPIBase,
		owner:      owner,
		repo:       repo,
		userAgent:  userAgent,
	}
}

// errNotModified signals a 304 response; the caller falls back to the
// cached release.
var errNotModified = fmt.Errorf("release not modified")

// fetchRelease retrieves the latest release for the channel. Transient
// HTTP failures (429 and 5xx) are retried with exponential backoff.
func (c *githubClient) fetchRelease(ctx context.Context, channel, etag string) (Release, string, error) {
	url := c.baseURL + "/repos/" + c.owner + "/" + c.repo + "/releases/latest"
	if channel == "prerelease" {
		url = c.baseURL + "/repos/" + c.owner + "/" + c.repo + "/releases"
	}

	var body []byte
	var responseETag string
	var notModified bool

	backoff := retry.WithMaxRetries(3, retry.NewExponential(time.Second))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
		defer cancel()

		req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
		if err != nil {
			return err
		}
		req.Header.Set("Accept", "application/vnd.github+json")
		req.Header.Set("User-Agent", c.userAgent)
		if etag != "" {
			req.Header.Set("If-None-Match", etag)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return retry.RetryableError(err)
		}
		defer resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusNotModified:
			notModified = true
			return nil
		case resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500:
			return retry.RetryableError(fmt.Errorf("github api status %d", resp.StatusCode))
		case resp.StatusCode != http.StatusOK:
			return fmt.Errorf("github api status %d", resp.StatusCode)
		}

		body, err = io.ReadAll(resp.Body)
		if err != nil {
			return retry.RetryableError(err)
		}
		responseETag = resp.Header.Get("ETag")
		return nil
	})
	if err != nil {
		return Release{}, "", fmt.Errorf("fetch release: %w", err)
	}
	if notModified {
		return Release{}, "", errNotModified
	}

	if channel == "prerelease" {
		var releases []Release
		if err := json.Unmarshal(body, &releases); err != nil {
			return Release{}, "", fmt.Errorf("decode releases: %w", err)
		}
		for _, release := range releases {
			if !release.Draft {
				return release, responseETag, nil
			}
		}
		return Release{}, "", fmt.Errorf("no non-draft release found")
	}

	var release Release
	if err := json.Unmarshal(body, &release); err != nil {
		return Release{}, "", fmt.Errorf("decode release: %w", err)
	}
	return release, responseETag, nil
}

// fetchText downloads a small text asset (checksum files).
func (c *githubClient) fetchText(ctx context.Context, url string) (string, error) {
	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// downloadAsset streams the asset into a fresh temp directory, reporting
// progress per chunk. Cancelling ctx aborts the download.
func (c *githubClient) downloadAsset(ctx context.Context, asset Asset, progress func(downloaded, total int64)) (string, error) {
	if asset.BrowserDownloadURL == "" {
		return "", fmt.Errorf("asset %s has no download url", asset.Name)
	}

	tempDir, err := os.MkdirTemp("", "cti_update_")
	if err != nil {
		return "", fmt.Errorf("create temp dir: %w", err)
	}
	targetPath := filepath.Join(tempDir, asset.Name)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, asset.BrowserDownloadURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", c.userAgent)

	client := &http.Client{Timeout: 0} // streaming; ctx bounds the download
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("download %s: %w", asset.Name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("download %s: status %d", asset.Name, resp.StatusCode)
	}

	file, err := os.Create(targetPath)
	if err != nil {
		return "", fmt.Errorf("create %s: %w", targetPath, err)
	}
	defer file.Close()

	total := resp.ContentLength
	var downloaded int64
	buf := make([]byte, downloadChunk)

	for {
		if err := ctx.Err(); err != nil {
			return "", fmt.Errorf("download cancelled: %w", err)
		}

		n, readErr := resp.Body.Read(buf)
		if n > 0 {
			if _, err := file.Write(buf[:n]); err != nil {
				return "", fmt.Errorf("write %s: %w", targetPath, err)
			}
			downloaded += int64(n)
			if progress != nil {
				progress(downloaded, total)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			return "", fmt.Errorf("download %s: %w", asset.Name, readErr)
		}
	}

	return targetPath, nil
}
