package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/forgo/modhub/internal/app"
	"github.com/forgo/modhub/internal/cli"
	"github.com/forgo/modhub/internal/config"
	"github.com/forgo/modhub/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cli.NewRootCommand(connect).ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func connect(ctx context.Context, opts *cli.RootOptions) (*cli.Env, error) {
	cfg, err := config.Load(opts.EnvFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		return nil, err
	}
	return &cli.Env{
		Jobs:     a.Jobs,
		RunOnce:  a.Scheduler.RunOnce,
		SetToken: a.SetUserToken,
		Close:    a.Close,
	}, nil
}
