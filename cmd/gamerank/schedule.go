package main

import (
	"context"
	"errors"
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/dshills/gamerank/internal/preset"
)

type scheduleFlags struct {
	buildFlags
	expr   string
	runNow bool
}

func newScheduleCmd(g *globalFlags) *cobra.Command {
	f := &scheduleFlags{}
	cmd := &cobra.Command{
		Use:   "schedule [snapshot.csv]",
		Short: "Rebuild the ranking page on a cron schedule",
		Long: "Rebuilds the page on every tick of a standard five-field cron expression.\n" +
			"Without a snapshot argument each run picks the latest export in --dir.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := g.logger(cmd.ErrOrStderr())
			p, err := f.resolvePreset(cmd)
			if err != nil {
				return err
			}
			return runSchedule(cmd.Context(), args, f, p, logger)
		},
	}
	f.buildFlags.register(cmd)
	flags := cmd.Flags()
	flags.StringVar(&f.expr, "cron", "0 6 * * *", "Cron expression")
	flags.BoolVar(&f.runNow, "run-now", false, "Build once immediately before waiting for the first tick")
	return cmd
}

// cronLogger routes scheduler events to slog.
type cronLogger struct{ l *slog.Logger }

func (c cronLogger) Info(msg string, kv ...any) { c.l.Debug("cron: "+msg, kv...) }

func (c cronLogger) Error(err error, msg string, kv ...any) {
	c.l.Error("cron: "+msg, append(kv, "err", err)...)
}

// buildJob runs one independent build; failures are logged, never fatal.
func buildJob(ctx context.Context, args []string, f *buildFlags, p *preset.Preset, logger *slog.Logger) func() {
	return func() {
		logger.Info("scheduled build starting")
		if err := runBuild(ctx, args, f, p, logger); err != nil {
			var ee *exitErr
			code := exitGeneric
			if errors.As(err, &ee) {
				code = ee.code
			}
			logger.Error("scheduled build failed", "code", code, "err", err)
			return
		}
		logger.Info("scheduled build finished")
	}
}

func runSchedule(ctx context.Context, args []string, f *scheduleFlags, p *preset.Preset, logger *slog.Logger) error {
	clog := cronLogger{logger}
	c := cron.New(cron.WithLogger(clog), cron.WithChain(cron.Recover(clog), cron.SkipIfStillRunning(clog)))

	job := buildJob(ctx, args, &f.buildFlags, p, logger)
	id, err := c.AddFunc(f.expr, job)
	if err != nil {
		return exitError(exitConfig, "invalid cron expression %q: %v", f.expr, err)
	}

	if f.runNow {
		c.Entry(id).WrappedJob.Run()
	}

	c.Start()
	logger.Info("scheduler started", "cron", f.expr, "next", c.Entry(id).Next)
	<-ctx.Done()
	stopped := c.Stop()
	<-stopped.Done()
	logger.Info("scheduler stopped")
	return nil
}
