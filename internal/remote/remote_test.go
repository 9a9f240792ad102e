package remote

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"meetdays/internal/model"
	"meetdays/internal/store"
)

// fakeEdge mimics the /dates resource with an in-memory set.
type fakeEdge struct {
	mu     sync.Mutex
	dates  []string
	key    string
	status int
	puts   int
}

func (f *fakeEdge) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.status != 0 {
		w.WriteHeader(f.status)
		_ = json.NewEncoder(w).Encode(model.ErrorResponse{Error: "boom"})
		return
	}
	if r.URL.Path != "/dates" {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	switch r.Method {
	case http.MethodGet:
		_ = json.NewEncoder(w).Encode(model.DatesPayload{Dates: f.dates})
	case http.MethodPut:
		if r.Header.Get(KeyHeader) != f.key {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		var p model.DatesPayload
		_ = json.NewDecoder(r.Body).Decode(&p)
		f.dates = p.Dates
		f.puts++
		_ = json.NewEncoder(w).Encode(model.PutResponse{OK: true, Dates: p.Dates})
	}
}

func (f *fakeEdge) setStatus(code int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status = code
}

func (f *fakeEdge) snapshot() ([]string, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.dates, f.puts
}

func newFake(t *testing.T, dates ...string) (*fakeEdge, *httptest.Server) {
	t.Helper()
	if dates == nil {
		dates = []string{}
	}
	f := &fakeEdge{dates: dates, key: "k"}
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)
	return f, srv
}

func TestResourceURL(t *testing.T) {
	assert.Equal(t, "https://sync.example.com/dates", resourceURL("https://sync.example.com"))
	assert.Equal(t, "https://sync.example.com/dates", resourceURL("https://sync.example.com/"))
	assert.Equal(t, "https://sync.example.com/api/dates", resourceURL("https://sync.example.com/api/dates/"))
	assert.Equal(t, "", resourceURL(""))
	assert.Equal(t, "", resourceURL("not a url"))
}

func TestDisabledClient(t *testing.T) {
	c := NewClient(Config{})
	assert.False(t, c.Enabled())

	_, err := c.Fetch(context.Background())
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.ErrorIs(t, c.Send(context.Background(), nil), ErrNotConfigured)
	assert.Nil(t, c.Pull(context.Background()))
	assert.False(t, c.Push(context.Background(), []string{"2024-01-01"}))
}

func TestPullNormalizes(t *testing.T) {
	_, srv := newFake(t, "2024-01-02", "bad", "2024-01-01", "2024-01-01")
	c := NewClient(Config{Endpoint: srv.URL})

	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, c.Pull(context.Background()))
}

func TestPullEmptyIsNotNil(t *testing.T) {
	_, srv := newFake(t)
	c := NewClient(Config{Endpoint: srv.URL})

	got := c.Pull(context.Background())
	require.NotNil(t, got)
	assert.Empty(t, got)
}

func TestPullFailures(t *testing.T) {
	f, srv := newFake(t, "2024-01-01")
	c := NewClient(Config{Endpoint: srv.URL})

	f.setStatus(http.StatusInternalServerError)
	assert.Nil(t, c.Pull(context.Background()))
	_, err := c.Fetch(context.Background())
	assert.Equal(t, model.KindUpstream, model.KindOf(err))
	assert.Contains(t, err.Error(), "boom")

	for _, body := range []string{`["2024-01-01"]`, `{"dates":null}`, `{}`} {
		bad := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		c = NewClient(Config{Endpoint: bad.URL})
		assert.Nil(t, c.Pull(context.Background()), body)
		_, err = c.Fetch(context.Background())
		assert.Equal(t, model.KindParse, model.KindOf(err), body)
		bad.Close()
	}
}

func TestPullUnreachableReturnsNil(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	c := NewClient(Config{Endpoint: "http://" + addr, Timeout: time.Second})
	assert.Nil(t, c.Pull(context.Background()))
}

func TestPullSlowEndpointIsBounded(t *testing.T) {
	slow := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer slow.Close()

	c := NewClient(Config{Endpoint: slow.URL, Timeout: 100 * time.Millisecond})
	start := time.Now()
	assert.Nil(t, c.Pull(context.Background()))
	assert.Less(t, time.Since(start), 2*time.Second)

	_, err := c.Fetch(context.Background())
	assert.Equal(t, model.KindTimeout, model.KindOf(err))
}

func TestPush(t *testing.T) {
	f, srv := newFake(t)

	c := NewClient(Config{Endpoint: srv.URL, Key: "k"})
	assert.True(t, c.Push(context.Background(), []string{"2024-01-02", "junk", "2024-01-01"}))
	got, _ := f.snapshot()
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, got)

	wrong := NewClient(Config{Endpoint: srv.URL, Key: "nope"})
	assert.False(t, wrong.Push(context.Background(), []string{"2024-05-05"}))
	got, _ = f.snapshot()
	assert.Equal(t, []string{"2024-01-01", "2024-01-02"}, got)
}

func TestSyncerPullInto(t *testing.T) {
	_, srv := newFake(t, "2024-02-01")
	local := store.New(store.NewMemoryKV())
	_, err := local.Save([]string{"2024-01-01"})
	require.NoError(t, err)

	s := &Syncer{Client: NewClient(Config{Endpoint: srv.URL}), Local: local}
	res, err := s.PullInto(context.Background())
	require.NoError(t, err)
	assert.True(t, res.RemoteKnown)
	assert.Equal(t, []string{"2024-02-01"}, local.Load())
}

func TestSyncerPullIntoKeepsLocalOnFailure(t *testing.T) {
	local := store.New(store.NewMemoryKV())
	_, err := local.Save([]string{"2024-01-01"})
	require.NoError(t, err)

	s := &Syncer{Client: NewClient(Config{}), Local: local}
	res, err := s.Run(context.Background(), ModePull)
	require.NoError(t, err)
	assert.False(t, res.RemoteKnown)
	assert.Equal(t, []string{"2024-01-01"}, res.Local)
	assert.Equal(t, []string{"2024-01-01"}, local.Load())
}

func TestSyncerMerge(t *testing.T) {
	f, srv := newFake(t, "2024-02-01", "2024-01-01")
	local := store.New(store.NewMemoryKV())
	_, err := local.Save([]string{"2024-01-01", "2024-03-01"})
	require.NoError(t, err)

	s := &Syncer{Client: NewClient(Config{Endpoint: srv.URL, Key: "k"}), Local: local}
	res, err := s.Run(context.Background(), ModeMerge)
	require.NoError(t, err)

	want := []string{"2024-01-01", "2024-02-01", "2024-03-01"}
	assert.True(t, res.RemoteKnown)
	assert.True(t, res.Pushed)
	assert.Equal(t, want, res.Local)
	assert.Equal(t, want, local.Load())
	got, _ := f.snapshot()
	assert.Equal(t, want, got)
}

func TestSyncerMergeAbortsWhenRemoteUnknown(t *testing.T) {
	f, srv := newFake(t, "2024-02-01")
	f.setStatus(http.StatusBadGateway)
	local := store.New(store.NewMemoryKV())
	_, err := local.Save([]string{"2024-01-01"})
	require.NoError(t, err)

	s := &Syncer{Client: NewClient(Config{Endpoint: srv.URL, Key: "k"}), Local: local}
	res, err := s.Merge(context.Background())
	require.NoError(t, err)
	assert.False(t, res.RemoteKnown)
	assert.False(t, res.Pushed)
	_, puts := f.snapshot()
	assert.Equal(t, 0, puts)
	assert.Equal(t, []string{"2024-01-01"}, local.Load())
}

func TestSyncerPushFrom(t *testing.T) {
	f, srv := newFake(t, "2024-02-01")
	local := store.New(store.NewMemoryKV())
	_, err := local.Save([]string{"2024-01-01"})
	require.NoError(t, err)

	s := &Syncer{Client: NewClient(Config{Endpoint: srv.URL, Key: "k"}), Local: local}
	res, err := s.PushFrom(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Pushed)
	got, _ := f.snapshot()
	assert.Equal(t, []string{"2024-01-01"}, got)
}
