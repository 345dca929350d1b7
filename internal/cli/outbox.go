package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	domainOutbox "github.com/AlexeyMuratov2/interhubdev-sub002/internal/domain/outbox"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

func newStatsCmd(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count outbox events by status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, closeFn, err := env.OpenAdmin(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			stats, err := admin.Stats(cmd.Context())
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "STATUS\tCOUNT")
			for _, s := range []domainOutbox.Status{
				domainOutbox.StatusNew,
				domainOutbox.StatusProcessing,
				domainOutbox.StatusDone,
				domainOutbox.StatusFailed,
			} {
				fmt.Fprintf(tw, "%s\t%d\n", s, stats[s])
			}
			return tw.Flush()
		},
	}
}

func newFailedCmd(env Env) *cobra.Command {
	var (
		limit     int
		eventType string
	)

	cmd := &cobra.Command{
		Use:   "failed",
		Short: "List FAILED outbox events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, closeFn, err := env.OpenAdmin(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			events, err := admin.List(cmd.Context(), domainOutbox.ListFilter{
				Status:    domainOutbox.StatusFailed,
				EventType: eventType,
				Limit:     limit,
			})
			if err != nil {
				return err
			}

			return printEvents(cmd.OutOrStdout(), events)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of events to list")
	cmd.Flags().StringVar(&eventType, "event-type", "", "only list events of this type")

	return cmd
}

func newShowCmd(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print one outbox event as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q: %w", args[0], err)
			}

			admin, closeFn, err := env.OpenAdmin(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			e, err := admin.Get(cmd.Context(), id)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(e)
		},
	}
}

func newReplayCmd(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "replay <id>",
		Short: "Requeue a FAILED outbox event with a fresh retry budget",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := uuid.Parse(args[0])
			if err != nil {
				return fmt.Errorf("invalid event id %q: %w", args[0], err)
			}

			admin, closeFn, err := env.OpenAdmin(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			e, err := admin.Replay(cmd.Context(), id)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "replayed %s (%s), status %s\n", e.ID, e.EventType, e.Status)
			return nil
		},
	}
}

func newReleaseStaleCmd(env Env) *cobra.Command {
	var olderThan time.Duration

	cmd := &cobra.Command{
		Use:   "release-stale",
		Short: "Return PROCESSING leases older than --older-than to the queue",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			admin, closeFn, err := env.OpenAdmin(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			n, err := admin.ReleaseStale(cmd.Context(), olderThan)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "released %d stale leases\n", n)
			return nil
		},
	}

	cmd.Flags().DurationVar(&olderThan, "older-than", 5*time.Minute, "lease age after which it counts as stale")

	return cmd
}

func newWorkflowCmd(env Env) *cobra.Command {
	return &cobra.Command{
		Use:   "workflow <correlation-id>",
		Short: "Show the events and consumer claims recorded under a correlation id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			admin, closeFn, err := env.OpenAdmin(cmd.Context())
			if err != nil {
				return err
			}
			defer closeFn()

			wf, err := admin.Workflow(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if err := printEvents(out, wf.Outbox); err != nil {
				return err
			}

			fmt.Fprintln(out)
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CONSUMER\tEVENT_ID\tTYPE\tPROCESSED_AT")
			for _, c := range wf.Inbox {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", c.Consumer, c.EventID, c.EventType, c.ProcessedAt.Format(time.RFC3339))
			}
			return tw.Flush()
		},
	}
}

func newMigrateCmd(env Env) *cobra.Command {
	return &cobra.Command{
		Use:       "migrate [up|down]",
		Short:     "Run database migrations",
		Args:      cobra.MatchAll(cobra.MaximumNArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down"},
		RunE: func(cmd *cobra.Command, args []string) error {
			direction := "up"
			if len(args) > 0 {
				direction = args[0]
			}

			changed, err := env.Migrate(direction)
			if err != nil {
				return err
			}

			if !changed {
				fmt.Fprintln(cmd.OutOrStdout(), "no changes to apply")
				return nil
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migration %s applied\n", direction)
			return nil
		},
	}
}

func printEvents(w io.Writer, events []*domainOutbox.Event) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tSTATUS\tATTEMPTS\tOCCURRED_AT\tLAST_ERROR")
	for _, e := range events {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.EventType, e.Status, e.Attempts, e.OccurredAt.Format(time.RFC3339), oneLine(e.LastError, 80))
	}
	return tw.Flush()
}

func oneLine(s string, limit int) string {
	runes := []rune(s)
	for i, r := range runes {
		if r == '\n' || r == '\t' {
			runes[i] = ' '
		}
	}
	if len(runes) > limit {
		return string(runes[:limit-3]) + "..."
	}
	return string(runes)
}
