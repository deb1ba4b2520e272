package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ibeckermayer/x2notion/internal/app"
	"github.com/ibeckermayer/x2notion/internal/scheduler"
	"github.com/ibeckermayer/x2notion/internal/server"
	"github.com/ibeckermayer/x2notion/internal/summary"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newQueueCommand(opts *rootOptions) *cobra.Command {
	queue := &cobra.Command{
		Use:   "queue",
		Short: "Inspect and run the summary queue",
	}

	queue.AddCommand(&cobra.Command{
		Use:   "run",
		Short: "Process every queued summary once",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.ProcessSummaries(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "done: %d, retried: %d, dropped: %d\n", res.Done, res.Retried, res.Dropped)
			return nil
		},
	})

	queue.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "List recent saves and their summary state",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			saves, err := a.Store().RecentSaves(20)
			if err != nil {
				return err
			}
			for _, s := range saves {
				fmt.Fprintf(cmd.OutOrStdout(), "%s\t%-7s\t%s\t%s\n", s.SavedAt.Format("2006-01-02 15:04"), s.Status, s.Title, s.PageURL)
			}
			return nil
		},
	})

	return queue
}

func newDaemonCommand(opts *rootOptions) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Serve the local API and process summaries on a schedule",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := opts.openApp(nil)
			if err != nil {
				return err
			}
			defer a.Close()

			cfg := a.Config()
			if addr == "" {
				addr = cfg.Server.Addr
			}

			sched, err := scheduler.New("")
			if err != nil {
				return err
			}
			if a.SummariesEnabled() {
				if err := sched.AddSummaryJob(cfg.Summary.Schedule, summaryJob(a)); err != nil {
					return err
				}
			} else {
				log.Warn().Msg("summary queue disabled, not scheduling it")
			}
			sched.Start()
			defer func() { <-sched.Stop().Done() }()

			srv := server.New(a.Service(), server.Options{
				AllowedOrigins: cfg.Server.AllowedOrigins,
				SubmitRPS:      cfg.Server.SubmitRPS,
				Credentials:    cfg.Credentials(),
			})
			return srv.ListenAndServe(cmd.Context(), addr)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func summaryJob(a *app.App) scheduler.Job {
	return func(ctx context.Context) error {
		_, err := a.ProcessSummaries(ctx)
		if errors.Is(err, summary.ErrQueueBusy) {
			return nil
		}
		return err
	}
}
