// Package remote is the client side of meet-day sync. It pulls the shared
// set from the edge service and pushes the local set back. The public
// Pull and Push methods never fail loudly; Fetch and Send expose the
// classified error for callers that want it.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"meetdays/internal/config"
	"meetdays/internal/days"
	appLog "meetdays/internal/log"
	"meetdays/internal/model"
)

const (
	// DefaultTimeout bounds every outbound request.
	DefaultTimeout = 8 * time.Second

	// KeyHeader carries the shared secret on writes.
	KeyHeader = "x-sync-key"

	maxResponseBytes = 1 << 20
)

// ErrNotConfigured is returned when no endpoint is configured.
var ErrNotConfigured = errors.New("remote sync not configured")

// Config is the client side sync configuration. An empty Endpoint disables
// sync.
type Config struct {
	Endpoint string
	Key      string
	Timeout  time.Duration
}

// ConfigFrom maps the application config onto a client Config.
func ConfigFrom(c config.SyncConfig) Config {
	return Config{Endpoint: c.Endpoint, Key: c.Key, Timeout: c.Timeout()}
}

// Client talks to the edge service's /dates resource.
type Client struct {
	cfg  Config
	url  string
	http *http.Client
}

// NewClient builds a Client. A malformed endpoint leaves the client
// disabled.
func NewClient(cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	c := &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
	c.url = resourceURL(cfg.Endpoint)
	return c
}

func resourceURL(endpoint string) string {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return ""
	}
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme == "" || u.Host == "" {
		appLog.Warn("ignoring malformed sync endpoint", "endpoint", endpoint)
		return ""
	}
	u.Path = strings.TrimRight(u.Path, "/")
	if !strings.HasSuffix(u.Path, "/dates") {
		u.Path += "/dates"
	}
	return u.String()
}

// Enabled reports whether an endpoint is configured.
func (c *Client) Enabled() bool {
	return c != nil && c.url != ""
}

// Fetch returns the normalized remote set.
func (c *Client) Fetch(ctx context.Context) ([]string, error) {
	if !c.Enabled() {
		return nil, ErrNotConfigured
	}
	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	body, err := c.do(req)
	if err != nil {
		return nil, err
	}
	dates, err := model.DecodeDates(body)
	if err != nil {
		return nil, &model.Error{Kind: model.KindParse, Message: "remote response", Err: err}
	}
	return dates, nil
}

// Send normalizes dates and replaces the remote set with them.
func (c *Client) Send(ctx context.Context, dates []string) error {
	if !c.Enabled() {
		return ErrNotConfigured
	}
	payload, err := json.Marshal(model.DatesPayload{Dates: days.Normalize(dates)})
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, c.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.cfg.Key != "" {
		req.Header.Set(KeyHeader, c.cfg.Key)
	}

	_, err = c.do(req)
	return err
}

// Pull returns the remote set, or nil when nothing is known about it.
// nil is "no information", never "empty".
func (c *Client) Pull(ctx context.Context) []string {
	dates, err := c.Fetch(ctx)
	if err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			appLog.Warn("sync pull failed", "err", err)
		}
		return nil
	}
	return dates
}

// Push reports whether the remote accepted dates. It does not retry.
func (c *Client) Push(ctx context.Context, dates []string) bool {
	if err := c.Send(ctx, dates); err != nil {
		if !errors.Is(err, ErrNotConfigured) {
			appLog.Warn("sync push failed", "err", err)
		}
		return false
	}
	return true
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		if isTimeout(req.Context(), err) {
			return nil, &model.Error{Kind: model.KindTimeout, Message: "sync request timed out", Err: err}
		}
		return nil, &model.Error{Kind: model.KindUpstream, Message: "sync request failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, &model.Error{Kind: model.KindUpstream, Message: "read sync response", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := strings.TrimSpace(string(body))
		var er model.ErrorResponse
		if json.Unmarshal(body, &er) == nil && er.Error != "" {
			msg = er.Error
		}
		return nil, model.Upstream(resp.StatusCode, "sync endpoint returned %d: %s", resp.StatusCode, msg)
	}
	return body, nil
}

func isTimeout(ctx context.Context, err error) bool {
	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return true
	}
	var ne interface{ Timeout() bool }
	return errors.As(err, &ne) && ne.Timeout()
}
