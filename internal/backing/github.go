package backing

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	appLog "meetdays/internal/log"
	"meetdays/internal/model"
)

const githubUserAgent = "meet-days-sync-worker"

// GitHubOptions configures access to the GitHub Contents API.
type GitHubOptions struct {
	APIURL  string
	Owner   string
	Repo    string
	Token   string
	Timeout time.Duration
}

// GitHub stores the file in a repository through the Contents API. The
// revision token is the blob SHA.
type GitHub struct {
	api   *url.URL
	owner string
	repo  string
	token string
	http  *http.Client
}

// NewGitHub returns a GitHub store. An unparsable APIURL falls back to the
// public API.
func NewGitHub(opts GitHubOptions) *GitHub {
	api, err := url.Parse(strings.TrimRight(opts.APIURL, "/"))
	if err != nil || opts.APIURL == "" {
		api, _ = url.Parse("https://api.github.com")
	}
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &GitHub{
		api:   api,
		owner: opts.Owner,
		repo:  opts.Repo,
		token: opts.Token,
		http:  &http.Client{Timeout: timeout},
	}
}

type contentsFile struct {
	SHA      string `json:"sha"`
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

type contentsPut struct {
	Message string `json:"message"`
	Content string `json:"content"`
	Branch  string `json:"branch,omitempty"`
	SHA     string `json:"sha,omitempty"`
}

func (g *GitHub) contentsURL(path, ref string) string {
	u := *g.api
	u.Path = u.Path + "/repos/" + g.owner + "/" + g.repo + "/contents/" + strings.Trim(path, "/")
	if ref != "" {
		u.RawQuery = url.Values{"ref": {ref}}.Encode()
	}
	return u.String()
}

// Get fetches the file at path on ref.
func (g *GitHub) Get(ctx context.Context, path, ref string) (Record, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.contentsURL(path, ref), nil)
	if err != nil {
		return Record{}, fmt.Errorf("create request: %w", err)
	}
	g.setHeaders(req)

	resp, err := g.http.Do(req)
	if err != nil {
		return Record{}, &model.Error{Kind: model.KindUpstream, Message: "GitHub read failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Record{}, ErrNotFound
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return Record{}, model.Upstream(resp.StatusCode, "GitHub read failed: %d", resp.StatusCode)
	}

	var file contentsFile
	if err := json.NewDecoder(resp.Body).Decode(&file); err != nil {
		return Record{}, &model.Error{Kind: model.KindParse, Message: "GitHub read failed: decode response", Err: err}
	}
	content, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(file.Content, "\n", ""))
	if err != nil {
		return Record{}, &model.Error{Kind: model.KindParse, Message: "GitHub read failed: decode content", Err: err}
	}
	return Record{Content: content, Revision: file.SHA}, nil
}

// Put writes the file at path on req.Ref. The SHA is sent only when the
// caller supplied a revision.
func (g *GitHub) Put(ctx context.Context, path string, req PutRequest) error {
	body, err := json.Marshal(contentsPut{
		Message: req.Message,
		Content: base64.StdEncoding.EncodeToString(req.Content),
		Branch:  req.Ref,
		SHA:     req.Revision,
	})
	if err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPut, g.contentsURL(path, ""), bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	g.setHeaders(httpReq)

	resp, err := g.http.Do(httpReq)
	if err != nil {
		return &model.Error{Kind: model.KindUpstream, Message: "GitHub write failed", Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		text, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		err := model.Upstream(resp.StatusCode, "GitHub write failed: %d %s", resp.StatusCode, strings.TrimSpace(string(text)))
		appLog.Error("github contents write rejected", err, "status", resp.StatusCode, "path", path, "ref", req.Ref)
		return err
	}
	return nil
}

func (g *GitHub) setHeaders(req *http.Request) {
	if g.token != "" {
		req.Header.Set("Authorization", "Bearer "+g.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", githubUserAgent)
}
