package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"meetdays/internal/config"
	"meetdays/internal/days"
	"meetdays/internal/ics"
)

func exportCmd(a *app) *cobra.Command {
	var (
		out     string
		summary string
	)
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the local set as an iCalendar file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, closer, err := a.openStore()
			if err != nil {
				return err
			}
			defer closer.Close()

			data, err := ics.Export(st.Load(), ics.ExportOptions{Summary: summary, Now: a.now()})
			if err != nil {
				return err
			}
			if out == "" || out == "-" {
				_, err = cmd.OutOrStdout().Write(data)
				return err
			}
			return config.WriteFileAtomic(out, data, 0o644)
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "Output file (default: stdout)")
	cmd.Flags().StringVar(&summary, "summary", ics.DefaultSummary, "Event summary")
	return cmd
}

func importCmd(a *app) *cobra.Command {
	var (
		feedURL     string
		from, until string
		push        bool
	)
	cmd := &cobra.Command{
		Use:   "import [file.ics]",
		Short: "Add every day an iCalendar file or feed has an event on",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (len(args) == 0) == (feedURL == "") {
				return errors.New("give exactly one of a file or --url")
			}

			var (
				body []byte
				err  error
			)
			if feedURL != "" {
				cacheDir := ""
				if dir, derr := config.ExpandPath(a.cfg.Store.Path); derr == nil {
					cacheDir = filepath.Join(dir, "ics-cache")
				}
				body, err = ics.NewFetcher(cacheDir, a.cfg.Sync.Timeout()*2).Fetch(cmd.Context(), feedURL)
			} else {
				body, err = os.ReadFile(args[0])
			}
			if err != nil {
				return err
			}

			now := a.now()
			win := ics.Window{Location: now.Location()}
			if from != "" {
				if win.From, err = dateArgTime(from, now); err != nil {
					return err
				}
			}
			if until != "" {
				t, err := dateArgTime(until, now)
				if err != nil {
					return err
				}
				// Inclusive: keep everything before the next midnight.
				win.Until = t.AddDate(0, 0, 1).Add(-time.Nanosecond)
			}

			found, err := ics.ParseMeetDays(body, win)
			if err != nil {
				return err
			}

			st, closer, err := a.openStore()
			if err != nil {
				return err
			}
			defer closer.Close()

			before, after, err := saveUnion(st, found)
			if err != nil {
				return fmt.Errorf("save local set: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "found %d days, %d new, %d meet days total\n", len(found), len(after)-len(before), len(after))
			if push {
				pushLocal(cmd.Context(), a, cmd, after)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&feedURL, "url", "", "Fetch the calendar from this URL instead of a file")
	cmd.Flags().StringVar(&from, "from", "", "Ignore events before this date")
	cmd.Flags().StringVar(&until, "until", "", "Ignore events after this date")
	cmd.Flags().BoolVar(&push, "push", false, "Push the updated set to the sync endpoint")
	return cmd
}

// dateArgTime resolves a date argument to local midnight.
func dateArgTime(arg string, now time.Time) (time.Time, error) {
	d, err := parseDateArg(arg, now)
	if err != nil {
		return time.Time{}, err
	}
	y, m, dd, _ := days.Parse(d)
	return time.Date(y, time.Month(m), dd, 0, 0, 0, 0, now.Location()), nil
}
