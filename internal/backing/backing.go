// Package backing talks to the versioned file store behind the edge
// service. Every implementation exposes the same contract: read a file with
// its revision token, and write a file optionally guarded by the token that
// was read.
package backing

import (
	"context"
	"errors"
	"fmt"
	"time"

	"meetdays/internal/config"
)

// ErrNotFound is returned by Get when the file does not exist.
var ErrNotFound = errors.New("backing file not found")

// Record is a stored file and the revision it was read at.
type Record struct {
	Content  []byte
	Revision string
}

// PutRequest describes a write. An empty Revision means "create".
type PutRequest struct {
	Content  []byte
	Revision string
	Ref      string
	Message  string
}

// Store is a versioned file store.
type Store interface {
	Get(ctx context.Context, path, ref string) (Record, error)
	Put(ctx context.Context, path string, req PutRequest) error
}

// New builds the Store selected by cfg.Server.Backend.
func New(ctx context.Context, cfg *config.Config) (Store, error) {
	switch cfg.Server.Backend {
	case "github":
		return NewGitHub(GitHubOptions{
			APIURL:  cfg.GitHub.APIURL,
			Owner:   cfg.GitHub.Owner,
			Repo:    cfg.GitHub.Repo,
			Token:   cfg.GitHub.Token,
			Timeout: 15 * time.Second,
		}), nil
	case "gcs":
		return NewGCS(ctx, cfg.GCS.Bucket, cfg.GCS.CredentialsFile)
	case "memory":
		return NewMemory(), nil
	default:
		return nil, fmt.Errorf("unknown backend %q", cfg.Server.Backend)
	}
}
