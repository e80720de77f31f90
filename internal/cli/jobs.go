package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgo/modhub/internal/model"
)

func newRunCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "run <job-id>",
		Short: "Execute a pending job in this process and print the outcome",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.Env(cmd.Context())
			if err != nil {
				return err
			}
			runErr := env.Jobs.ExecuteJob(cmd.Context(), args[0])

			// Show the stored outcome, including for failed jobs
			job, err := env.Jobs.GetJob(cmd.Context(), args[0])
			if err == nil {
				if err := printJob(cmd.OutOrStdout(), opts.Format, job); err != nil {
					return err
				}
			}
			return runErr
		},
	}
}

func newCancelCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a pending or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.Env(cmd.Context())
			if err != nil {
				return err
			}
			job, err := env.Jobs.Cancel(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if opts.Format == "json" {
				return writeJSON(cmd.OutOrStdout(), job)
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "cancelled job %s\n", job.ID)
			return err
		},
	}
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show a job with its results and logs",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.Env(cmd.Context())
			if err != nil {
				return err
			}
			job, err := env.Jobs.GetJob(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return printJob(cmd.OutOrStdout(), opts.Format, job)
		},
	}
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var (
		status string
		limit  int
		offset int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.Env(cmd.Context())
			if err != nil {
				return err
			}
			var filter *model.JobStatus
			if status != "" {
				s := model.JobStatus(status)
				filter = &s
			}
			jobs, err := env.Jobs.ListJobs(cmd.Context(), filter, limit, offset)
			if err != nil {
				return err
			}
			return printJobs(cmd.OutOrStdout(), opts.Format, jobs)
		},
	}
	cmd.Flags().StringVar(&status, "status", "", "filter by status")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum jobs to list")
	cmd.Flags().IntVar(&offset, "offset", 0, "jobs to skip")
	return cmd
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Count jobs per status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.Env(cmd.Context())
			if err != nil {
				return err
			}
			stats, err := env.Jobs.GetJobStats(cmd.Context())
			if err != nil {
				return err
			}
			return printStats(cmd.OutOrStdout(), opts.Format, stats)
		},
	}
}

func newOnceCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Run one scheduler pass: auto-enqueue, then execute every pending job",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.Env(cmd.Context())
			if err != nil {
				return err
			}
			if err := env.RunOnce(cmd.Context()); err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), "scheduler pass complete")
			return err
		},
	}
}

func newTokenCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Manage per-user GitHub tokens",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "set <user-id> <github-token>",
		Short: "Seal and store a user's GitHub token",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := opts.Env(cmd.Context())
			if err != nil {
				return err
			}
			if err := env.SetToken(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "stored token for %s\n", args[0])
			return err
		},
	})
	return cmd
}
