package ics

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"meetdays/internal/config"
	appLog "meetdays/internal/log"
)

const maxFeedBytes = 10 << 20

// Fetcher downloads calendar feeds. With a cache directory it sends
// If-None-Match and serves the cached body on 304 or when the network fails.
type Fetcher struct {
	client   *http.Client
	cacheDir string
}

// NewFetcher returns a Fetcher. An empty cacheDir disables caching.
func NewFetcher(cacheDir string, timeout time.Duration) *Fetcher {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Fetcher{
		client:   &http.Client{Timeout: timeout},
		cacheDir: cacheDir,
	}
}

// Fetch returns the feed body at rawURL.
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) ([]byte, error) {
	if rawURL == "" {
		return nil, errors.New("feed URL is empty")
	}

	cached, etag := f.loadCache(rawURL)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "text/calendar")
	if etag != "" {
		req.Header.Set("If-None-Match", etag)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		if len(cached) > 0 {
			appLog.Error("ics fetch network error, using cached body", err, "url", redactURL(rawURL))
			return cached, nil
		}
		return nil, err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		body, err := io.ReadAll(io.LimitReader(resp.Body, maxFeedBytes))
		if err != nil {
			return nil, err
		}
		f.saveCache(rawURL, body, resp.Header.Get("ETag"))
		appLog.Info("ics fetch success", "url", redactURL(rawURL), "bytes", len(body))
		return body, nil
	case resp.StatusCode == http.StatusNotModified && len(cached) > 0:
		appLog.Info("ics fetch not modified; using cache", "url", redactURL(rawURL))
		return cached, nil
	case len(cached) > 0:
		appLog.Error("ics fetch non-OK, using cached body", errors.New(resp.Status), "url", redactURL(rawURL))
		return cached, nil
	default:
		return nil, fmt.Errorf("fetch %s: %s", redactURL(rawURL), resp.Status)
	}
}

func (f *Fetcher) cachePaths(rawURL string) (body, etag string) {
	sum := sha256.Sum256([]byte(rawURL))
	base := filepath.Join(f.cacheDir, hex.EncodeToString(sum[:8]))
	return base + ".ics", base + ".etag"
}

func (f *Fetcher) loadCache(rawURL string) ([]byte, string) {
	if f.cacheDir == "" {
		return nil, ""
	}
	bodyPath, etagPath := f.cachePaths(rawURL)
	body, err := os.ReadFile(bodyPath)
	if err != nil {
		return nil, ""
	}
	etag, _ := os.ReadFile(etagPath)
	return body, string(etag)
}

func (f *Fetcher) saveCache(rawURL string, body []byte, etag string) {
	if f.cacheDir == "" {
		return
	}
	bodyPath, etagPath := f.cachePaths(rawURL)
	// Body first so an etag never points at a missing body.
	if err := config.WriteFileAtomic(bodyPath, body, 0o600); err != nil {
		appLog.Error("ics cache save failed", err, "url", redactURL(rawURL))
		return
	}
	if err := config.WriteFileAtomic(etagPath, []byte(etag), 0o600); err != nil {
		appLog.Error("ics cache save failed", err, "url", redactURL(rawURL))
	}
}

// redactURL keeps scheme and host only; feed URLs often embed tokens.
func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return "ics://...(redacted)"
	}
	return u.Scheme + "://" + u.Host + "/...(redacted)"
}
