package remote

import (
	"context"

	"meetdays/internal/days"
	appLog "meetdays/internal/log"
)

// Mode names a sync direction.
type Mode string

const (
	ModePull  Mode = "pull"
	ModePush  Mode = "push"
	ModeMerge Mode = "merge"
)

// Local is the local side of a sync.
type Local interface {
	Load() []string
	Save(dates []string) ([]string, error)
}

// SyncResult describes one sync run. RemoteKnown is false when the remote
// could not be read; Pushed is true when the remote accepted a write.
type SyncResult struct {
	Mode        Mode
	Local       []string
	RemoteKnown bool
	Pushed      bool
}

// Syncer runs caller-triggered syncs between a local store and a Client.
type Syncer struct {
	Client *Client
	Local  Local
}

// Run dispatches on mode. Unknown modes fall back to merge.
func (s *Syncer) Run(ctx context.Context, mode Mode) (SyncResult, error) {
	switch mode {
	case ModePull:
		return s.PullInto(ctx)
	case ModePush:
		return s.PushFrom(ctx)
	default:
		return s.Merge(ctx)
	}
}

// PullInto replaces the local set with the remote one when the remote
// answered. Otherwise local is left alone.
func (s *Syncer) PullInto(ctx context.Context) (SyncResult, error) {
	res := SyncResult{Mode: ModePull}
	remote := s.Client.Pull(ctx)
	if remote == nil {
		res.Local = s.Local.Load()
		return res, nil
	}
	res.RemoteKnown = true
	saved, err := s.Local.Save(remote)
	if err != nil {
		return res, err
	}
	res.Local = saved
	appLog.Info("pulled remote set", "count", len(saved))
	return res, nil
}

// PushFrom replaces the remote set with the local one.
func (s *Syncer) PushFrom(ctx context.Context) (SyncResult, error) {
	local := s.Local.Load()
	res := SyncResult{Mode: ModePush, Local: local}
	res.Pushed = s.Client.Push(ctx, local)
	if res.Pushed {
		appLog.Info("pushed local set", "count", len(local))
	}
	return res, nil
}

// Merge writes the union of local and remote to both sides. A failed pull
// aborts before anything is written.
func (s *Syncer) Merge(ctx context.Context) (SyncResult, error) {
	local := s.Local.Load()
	res := SyncResult{Mode: ModeMerge, Local: local}

	remote := s.Client.Pull(ctx)
	if remote == nil {
		return res, nil
	}
	res.RemoteKnown = true

	merged, err := s.Local.Save(days.Union(local, remote))
	if err != nil {
		return res, err
	}
	res.Local = merged
	res.Pushed = s.Client.Push(ctx, merged)
	appLog.Info("merged sets", "local", len(local), "remote", len(remote), "merged", len(merged), "pushed", res.Pushed)
	return res, nil
}
