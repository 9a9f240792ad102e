package backing

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"cloud.google.com/go/storage"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"meetdays/internal/config"
	appLog "meetdays/internal/log"
	"meetdays/internal/model"
)

func TestGitHubGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/repos/octo/days/contents/data/meet-days.json", r.URL.Path)
		assert.Equal(t, "main", r.URL.Query().Get("ref"))
		assert.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		assert.Equal(t, "application/vnd.github+json", r.Header.Get("Accept"))
		assert.Equal(t, githubUserAgent, r.Header.Get("User-Agent"))

		enc := base64.StdEncoding.EncodeToString([]byte(`{"dates":["2024-01-01"]}`))
		// GitHub wraps base64 content at 60 columns.
		wrapped := enc[:10] + "\n" + enc[10:] + "\n"
		_ = json.NewEncoder(w).Encode(map[string]string{"sha": "abc123", "content": wrapped, "encoding": "base64"})
	}))
	defer srv.Close()

	gh := NewGitHub(GitHubOptions{APIURL: srv.URL, Owner: "octo", Repo: "days", Token: "tok"})
	rec, err := gh.Get(context.Background(), "data/meet-days.json", "main")
	require.NoError(t, err)
	assert.Equal(t, "abc123", rec.Revision)
	assert.JSONEq(t, `{"dates":["2024-01-01"]}`, string(rec.Content))
}

func TestGitHubGetErrors(t *testing.T) {
	var status atomic.Int32
	status.Store(http.StatusNotFound)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(int(status.Load()))
	}))
	defer srv.Close()

	gh := NewGitHub(GitHubOptions{APIURL: srv.URL, Owner: "o", Repo: "r"})
	_, err := gh.Get(context.Background(), "f.json", "main")
	assert.ErrorIs(t, err, ErrNotFound)

	status.Store(http.StatusForbidden)
	_, err = gh.Get(context.Background(), "f.json", "main")
	require.Error(t, err)
	assert.Equal(t, model.KindUpstream, model.KindOf(err))
	assert.Equal(t, "GitHub read failed: 403", err.Error())
}

func TestGitHubPut(t *testing.T) {
	var got contentsPut
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "/repos/octo/days/contents/data/meet-days.json", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	gh := NewGitHub(GitHubOptions{APIURL: srv.URL, Owner: "octo", Repo: "days"})
	err := gh.Put(context.Background(), "data/meet-days.json", PutRequest{
		Content:  []byte("{}"),
		Revision: "abc123",
		Ref:      "main",
		Message:  "chore: update meet-days data",
	})
	require.NoError(t, err)
	assert.Equal(t, "chore: update meet-days data", got.Message)
	assert.Equal(t, "main", got.Branch)
	assert.Equal(t, "abc123", got.SHA)
	assert.Equal(t, base64.StdEncoding.EncodeToString([]byte("{}")), got.Content)
}

func TestGitHubPutOmitsEmptySHA(t *testing.T) {
	var raw map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(body, &raw))
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("sha wanted"))
	}))
	defer srv.Close()

	logPath := filepath.Join(t.TempDir(), "backing.log")
	closeLog := appLog.Setup(appLog.Options{Level: appLog.LevelError, File: logPath, JSON: true})
	t.Cleanup(func() { appLog.Setup(appLog.Options{}) })

	gh := NewGitHub(GitHubOptions{APIURL: srv.URL, Owner: "o", Repo: "r"})
	err := gh.Put(context.Background(), "f.json", PutRequest{Content: []byte("[]"), Ref: "main"})
	require.Error(t, err)
	assert.Equal(t, "GitHub write failed: 422 sha wanted", err.Error())
	_, hasSHA := raw["sha"]
	assert.False(t, hasSHA)

	require.NoError(t, closeLog())
	logged, err := os.ReadFile(logPath)
	require.NoError(t, err)
	assert.Contains(t, string(logged), `"err":"GitHub write failed: 422 sha wanted"`)
	assert.Contains(t, string(logged), `"status":422`)
}

func TestMemoryRevisions(t *testing.T) {
	ctx := context.Background()
	m := NewMemory()

	_, err := m.Get(ctx, "f.json", "main")
	assert.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, m.Put(ctx, "f.json", PutRequest{Content: []byte("a"), Ref: "main"}))
	rec, err := m.Get(ctx, "f.json", "main")
	require.NoError(t, err)
	assert.Equal(t, "a", string(rec.Content))

	require.NoError(t, m.Put(ctx, "f.json", PutRequest{Content: []byte("b"), Ref: "main", Revision: rec.Revision}))

	err = m.Put(ctx, "f.json", PutRequest{Content: []byte("c"), Ref: "main", Revision: rec.Revision})
	require.Error(t, err)
	var me *model.Error
	require.ErrorAs(t, err, &me)
	assert.Equal(t, http.StatusConflict, me.Status)

	_, err = m.Get(ctx, "f.json", "other")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Len(t, m.Puts(), 2)
}

func TestNewSelectsBackend(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Server.Backend = "memory"
	s, err := New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, s)

	cfg.Server.Backend = "github"
	s, err = New(context.Background(), cfg)
	require.NoError(t, err)
	assert.IsType(t, &GitHub{}, s)

	cfg.Server.Backend = "ftp"
	_, err = New(context.Background(), cfg)
	assert.Error(t, err)
}

func TestObjectName(t *testing.T) {
	assert.Equal(t, "main/data/meet-days.json", objectName("/data/meet-days.json", "main"))
	assert.Equal(t, "x.json", objectName("x.json", ""))
}

func TestGCSPutRejectsCorruptRevision(t *testing.T) {
	client, err := storage.NewClient(context.Background(), option.WithoutAuthentication(), option.WithEndpoint("http://127.0.0.1:1"))
	require.NoError(t, err)
	g := &GCS{client: client, bucket: "meet-bucket"}
	t.Cleanup(func() { _ = g.Close() })

	err = g.Put(context.Background(), "data/meet-days.json", PutRequest{Content: []byte("[]"), Revision: "not-a-generation", Ref: "main"})
	require.Error(t, err)
	assert.Equal(t, model.KindParse, model.KindOf(err))
	assert.Equal(t, http.StatusInternalServerError, model.KindOf(err).HTTPStatus())
}
