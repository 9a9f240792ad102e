package main

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"meetdays/internal/days"
	"meetdays/internal/ics"
	appLog "meetdays/internal/log"
	"meetdays/internal/store"
)

func listCmd(a *app) *cobra.Command {
	var year int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Print the local meet days, one per line",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			st, closer, err := a.openStore()
			if err != nil {
				return err
			}
			defer closer.Close()

			prefix := ""
			if year > 0 {
				prefix = fmt.Sprintf("%d-", year)
			}
			for _, d := range st.Load() {
				if strings.HasPrefix(d, prefix) {
					fmt.Fprintln(cmd.OutOrStdout(), d)
				}
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&year, "year", 0, "Only list dates in this year")
	return cmd
}

func addCmd(a *app) *cobra.Command {
	var (
		rule, from, until string
		push              bool
	)
	cmd := &cobra.Command{
		Use:   "add [date...]",
		Short: "Record meet days",
		Long: `Record one or more meet days. Dates may be YYYY-MM-DD or a phrase such
as "today", "yesterday" or "last friday". With no arguments today is added.

--rrule adds every date an iCalendar recurrence rule produces between
--from and --until (both inclusive, default: the last 30 days).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			var add []string
			if rule != "" {
				expanded, err := expandRuleArgs(rule, from, until, now)
				if err != nil {
					return err
				}
				add = append(add, expanded...)
			}
			if len(args) == 0 && rule == "" {
				args = []string{"today"}
			}
			for _, arg := range args {
				d, err := parseDateArg(arg, now)
				if err != nil {
					return err
				}
				add = append(add, d)
			}

			return a.updateLocal(cmd, push, func(cur []string) []string {
				return days.Add(cur, add...)
			})
		},
	}
	cmd.Flags().StringVar(&rule, "rrule", "", `Recurrence rule, e.g. "FREQ=WEEKLY;BYDAY=TU,TH"`)
	cmd.Flags().StringVar(&from, "from", "", "First date for --rrule")
	cmd.Flags().StringVar(&until, "until", "", "Last date for --rrule")
	cmd.Flags().BoolVar(&push, "push", false, "Push the updated set to the sync endpoint")
	return cmd
}

func removeCmd(a *app) *cobra.Command {
	var push bool
	cmd := &cobra.Command{
		Use:   "remove date...",
		Short: "Forget meet days",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := a.now()
			drop := make([]string, 0, len(args))
			for _, arg := range args {
				d, err := parseDateArg(arg, now)
				if err != nil {
					return err
				}
				drop = append(drop, d)
			}
			return a.updateLocal(cmd, push, func(cur []string) []string {
				return days.Remove(cur, drop...)
			})
		},
	}
	cmd.Flags().BoolVar(&push, "push", false, "Push the updated set to the sync endpoint")
	return cmd
}

// updateLocal applies fn to the local set, saves it and optionally pushes.
// A failed push is reported but does not fail the command; the local copy
// is already saved.
func (a *app) updateLocal(cmd *cobra.Command, push bool, fn func([]string) []string) error {
	st, closer, err := a.openStore()
	if err != nil {
		return err
	}
	defer closer.Close()

	before := st.Load()
	saved, err := st.Save(fn(before))
	if err != nil {
		return fmt.Errorf("save local set: %w", err)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%d meet days (was %d)\n", len(saved), len(before))

	if push {
		pushLocal(cmd.Context(), a, cmd, saved)
	}
	return nil
}

func pushLocal(ctx context.Context, a *app, cmd *cobra.Command, dates []string) {
	if ctx == nil {
		ctx = context.Background()
	}
	client := a.syncClient()
	if !client.Enabled() {
		fmt.Fprintln(cmd.ErrOrStderr(), "sync endpoint not configured; skipped push")
		return
	}
	if client.Push(ctx, dates) {
		fmt.Fprintln(cmd.OutOrStdout(), "pushed")
		return
	}
	fmt.Fprintln(cmd.ErrOrStderr(), "push failed; local copy kept")
}

var datePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

var phraseParser = func() *when.Parser {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return w
}()

// parseDateArg turns a CLI argument into a canonical date relative to now.
func parseDateArg(arg string, now time.Time) (string, error) {
	s := strings.TrimSpace(arg)
	switch strings.ToLower(s) {
	case "":
		return "", errors.New("empty date")
	case "today":
		return days.Today(now), nil
	case "yesterday":
		return days.Today(now.AddDate(0, 0, -1)), nil
	}
	if datePattern.MatchString(s) {
		if !days.IsValid(s) {
			return "", fmt.Errorf("invalid date %q", s)
		}
		return s, nil
	}

	r, err := phraseParser.Parse(s, now)
	if err != nil {
		return "", fmt.Errorf("parse %q: %w", s, err)
	}
	if r == nil {
		return "", fmt.Errorf("could not understand date %q", s)
	}
	appLog.Debug("parsed date phrase", "input", s, "matched", r.Text, "date", r.Time.Format(days.Layout))
	return days.Today(r.Time), nil
}

// expandRuleArgs resolves --from/--until (defaulting to the last 30 days)
// and expands rule between them.
func expandRuleArgs(rule, from, until string, now time.Time) ([]string, error) {
	var err error
	if until == "" {
		until = days.Today(now)
	} else if until, err = parseDateArg(until, now); err != nil {
		return nil, err
	}
	if from == "" {
		from = days.Today(now.AddDate(0, 0, -29))
	} else if from, err = parseDateArg(from, now); err != nil {
		return nil, err
	}
	return ics.ExpandRule(rule, from, until)
}

// saveUnion merges more into the local set.
func saveUnion(st *store.Store, more []string) (before, after []string, err error) {
	before = st.Load()
	after, err = st.Save(days.Union(before, more))
	return before, after, err
}
