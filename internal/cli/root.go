// Package cli implements jobctl, the operator command line for the job queue.
package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/forgo/modhub/internal/model"
	"github.com/forgo/modhub/internal/service"
)

// JobBackend is the job queue as seen by the CLI
type JobBackend interface {
	Enqueue(ctx context.Context, req service.EnqueueRequest) (*model.Job, error)
	ExecuteJob(ctx context.Context, jobID string) error
	Cancel(ctx context.Context, jobID string) (*model.Job, error)
	GetJob(ctx context.Context, jobID string) (*model.Job, error)
	ListJobs(ctx context.Context, status *model.JobStatus, limit, offset int) ([]*model.Job, error)
	GetJobStats(ctx context.Context) (model.JobStats, error)
}

// Env is what a command operates on once connected
type Env struct {
	Jobs     JobBackend
	RunOnce  func(ctx context.Context) error
	SetToken func(ctx context.Context, userID, token string) error
	Close    func() error
}

// Connector builds an Env from the global options
type Connector func(ctx context.Context, opts *RootOptions) (*Env, error)

// RootOptions holds global flags for all commands
type RootOptions struct {
	EnvFile string
	Format  string // "json" | "text"
	Actor   string

	connect Connector
	env     *Env
}

// ValidFormats defines the allowed output formats
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command. connect is called lazily by
// commands that need the database.
func NewRootCommand(connect Connector) *cobra.Command {
	opts := &RootOptions{connect: connect}

	cmd := &cobra.Command{
		Use:           "jobctl",
		Short:         "Inspect and drive the module hub job queue",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if opts.env != nil && opts.env.Close != nil {
				return opts.env.Close()
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.EnvFile, "env-file", ".env", "optional dotenv file")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", model.SystemActor, "user ID recorded as the job's starter")

	cmd.AddCommand(newEnqueueCommand(opts))
	cmd.AddCommand(newRunCommand(opts))
	cmd.AddCommand(newCancelCommand(opts))
	cmd.AddCommand(newShowCommand(opts))
	cmd.AddCommand(newListCommand(opts))
	cmd.AddCommand(newStatsCommand(opts))
	cmd.AddCommand(newOnceCommand(opts))
	cmd.AddCommand(newTokenCommand(opts))

	return cmd
}

// Env connects on first use and caches the result
func (o *RootOptions) Env(ctx context.Context) (*Env, error) {
	if o.env != nil {
		return o.env, nil
	}
	env, err := o.connect(ctx, o)
	if err != nil {
		return nil, err
	}
	o.env = env
	return env, nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
