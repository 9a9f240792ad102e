package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	appLog "meetdays/internal/log"
	"meetdays/internal/remote"
)

func syncCmd(a *app) *cobra.Command {
	var (
		schedule string
		watch    bool
	)
	cmd := &cobra.Command{
		Use:       "sync [pull|push|merge]",
		Short:     "Sync the local set with the remote endpoint",
		ValidArgs: []string{string(remote.ModePull), string(remote.ModePush), string(remote.ModeMerge)},
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		Long: `pull replaces the local set with the remote one, push does the
reverse, and merge (the default) writes the union to both sides. When the
remote cannot be read, pull and merge leave everything untouched.

With --schedule (or --watch, which uses sync.schedule from the config) the
sync repeats on a cron schedule until interrupted.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			mode := remote.ModeMerge
			if len(args) == 1 {
				mode = remote.Mode(args[0])
			}

			client := a.syncClient()
			if !client.Enabled() {
				return fmt.Errorf("%w: set sync.endpoint or MEETDAYS_SYNC_URL", remote.ErrNotConfigured)
			}

			st, closer, err := a.openStore()
			if err != nil {
				return err
			}
			defer closer.Close()
			syncer := &remote.Syncer{Client: client, Local: st}

			if watch && schedule == "" {
				schedule = a.cfg.Sync.Schedule
				if schedule == "" {
					return fmt.Errorf("--watch needs sync.schedule in the config")
				}
			}
			if schedule == "" {
				res, err := syncer.Run(cmd.Context(), mode)
				if err != nil {
					return err
				}
				printSyncResult(cmd.OutOrStdout(), res)
				return nil
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScheduled(ctx, schedule, func() {
				res, err := syncer.Run(ctx, mode)
				if err != nil {
					appLog.Error("scheduled sync failed", err, "mode", mode)
					return
				}
				printSyncResult(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "", `Cron spec to repeat the sync on, e.g. "*/15 * * * *"`)
	cmd.Flags().BoolVar(&watch, "watch", false, "Repeat on sync.schedule from the config")
	return cmd
}

// runScheduled runs job on spec until ctx is done, then waits for a
// running job to finish.
func runScheduled(ctx context.Context, spec string, job func()) error {
	if _, err := cron.ParseStandard(spec); err != nil {
		return fmt.Errorf("invalid schedule %q: %w", spec, err)
	}
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(spec, job); err != nil {
		return err
	}
	appLog.Info("sync scheduled", "schedule", spec)
	c.Start()

	<-ctx.Done()
	<-c.Stop().Done()
	appLog.Info("sync scheduler stopped")
	return nil
}

func printSyncResult(w io.Writer, res remote.SyncResult) {
	switch {
	case !res.RemoteKnown && res.Mode != remote.ModePush:
		fmt.Fprintf(w, "%s: remote unavailable; kept %d local meet days\n", res.Mode, len(res.Local))
	case res.Mode == remote.ModePull:
		fmt.Fprintf(w, "pull: %d meet days\n", len(res.Local))
	case res.Pushed:
		fmt.Fprintf(w, "%s: %d meet days, pushed\n", res.Mode, len(res.Local))
	default:
		fmt.Fprintf(w, "%s: %d meet days, push failed\n", res.Mode, len(res.Local))
	}
}
