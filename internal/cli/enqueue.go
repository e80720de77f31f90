package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgo/modhub/internal/model"
	"github.com/forgo/modhub/internal/service"
)

func newEnqueueCommand(opts *RootOptions) *cobra.Command {
	var (
		name        string
		description string
	)

	cmd := &cobra.Command{
		Use:   "enqueue",
		Short: "Queue a job for the scheduler sweep",
	}
	cmd.PersistentFlags().StringVar(&name, "name", "", "job name (defaults per job type)")
	cmd.PersistentFlags().StringVar(&description, "description", "", "job description")

	enqueue := func(cmd *cobra.Command, jobType model.JobType, defaultName string, params model.JobParams) error {
		env, err := opts.Env(cmd.Context())
		if err != nil {
			return err
		}
		jobName := name
		if jobName == "" {
			jobName = defaultName
		}
		job, err := env.Jobs.Enqueue(cmd.Context(), service.EnqueueRequest{
			Type:        jobType,
			Name:        jobName,
			Description: description,
			Params:      params,
			StartedBy:   opts.Actor,
		})
		if err != nil {
			return err
		}
		if opts.Format == "json" {
			return writeJSON(cmd.OutOrStdout(), job)
		}
		_, err = fmt.Fprintf(cmd.OutOrStdout(), "queued %s job %s\n", job.Type, job.ID)
		return err
	}

	var (
		scope    string
		moduleID string
	)
	scrape := &cobra.Command{
		Use:   "scrape",
		Short: "Sync GitHub releases (scope all, outdated or single)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := model.ScrapeParams{Scope: model.ScrapeScope(scope), ModuleID: moduleID}
			return enqueue(cmd, model.JobTypeScrapeReleases, "Manual GitHub Scrape", params)
		},
	}
	scrape.Flags().StringVar(&scope, "scope", string(model.ScrapeScopeAll), "all|outdated|single")
	scrape.Flags().StringVar(&moduleID, "module", "", "module ID for --scope single")

	var (
		target string
		days   int
	)
	cleanup := &cobra.Command{
		Use:   "cleanup",
		Short: "Delete old failed jobs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			params := model.CleanupParams{Target: target, Days: days}
			return enqueue(cmd, model.JobTypeCleanup, "Cleanup "+target, params)
		},
	}
	cleanup.Flags().StringVar(&target, "target", model.CleanupTargetFailedJobs, "cleanup target")
	cleanup.Flags().IntVar(&days, "days", model.DefaultCleanupDays, "delete rows older than this many days")

	configSync := &cobra.Command{
		Use:   "config-sync",
		Short: "Reconcile GitHub sync configs with published modules",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return enqueue(cmd, model.JobTypeSyncGitHubConfigs, "Manual GitHub Config Sync", model.ConfigSyncParams{})
		},
	}

	slugs := &cobra.Command{
		Use:   "slugs",
		Short: "Generate slugs for modules without one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return enqueue(cmd, model.JobTypeGenerateSlugs, "Generate Module Slugs", model.SlugParams{})
		},
	}

	cmd.AddCommand(scrape, cleanup, configSync, slugs)
	return cmd
}
