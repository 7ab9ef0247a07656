package cli

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/roach88/ritual/internal/notify"
)

// DaemonOptions holds flags for the daemon command.
type DaemonOptions struct {
	*RootOptions
	Stdout bool // deliver to stdout instead of the log
	Once   bool // run the startup jobs and one dispatch pass, then exit
}

// NewDaemonCommand creates the daemon command.
func NewDaemonCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DaemonOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Deliver reminders and run the background jobs",
		Long: `Run in the foreground, delivering reminders as they fall due.

On start and on the configured cron schedules the daemon:
- renews reminders when none fire within the next 24 hours (daemon.renew_cron)
- refreshes the timetable and reschedules (daemon.refresh_cron)
- rolls the streak over to the new day (daemon.rollover_cron)

Examples:
  ritual daemon
  ritual daemon --stdout -v`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDaemon(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Stdout, "stdout", false, "print reminders to stdout instead of logging them")
	cmd.Flags().BoolVar(&opts.Once, "once", false, "run the startup jobs and deliver what is due, then exit")

	return cmd
}

func runDaemon(opts *DaemonOptions, cmd *cobra.Command) error {
	// Registrations made by the jobs wake the dispatcher early.
	var dispatcher *notify.Dispatcher
	a, err := openApp(opts.RootOptions, func() { dispatcher.Poke() })
	if err != nil {
		return err
	}
	defer a.Close()

	var deliverer notify.Deliverer = notify.LogDeliverer{Logger: slog.Default()}
	if opts.Stdout {
		deliverer = &notify.WriterDeliverer{W: cmd.OutOrStdout()}
	}
	dispatcher = notify.NewDispatcher(a.store, deliverer,
		notify.WithDispatcherClock(a.clock.Now),
		notify.WithDispatcherLogger(slog.Default()),
	)

	// Use command's context if available (for testing), otherwise create one
	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	go func() {
		select {
		case sig := <-sigChan:
			slog.Info("received signal, shutting down", "signal", sig)
			cancel()
		case <-ctx.Done():
		}
	}()

	jobs := daemonJobs{app: a}
	jobs.rollover(ctx)
	jobs.renew(ctx)

	if opts.Once {
		n, _, err := dispatcher.DispatchDue(ctx)
		if err != nil {
			return WrapExitError(ExitFailure, "dispatch failed", err)
		}
		slog.Info("dispatched notifications", "count", n)
		return nil
	}

	cfg := a.settings.Config()
	c := cron.New(cron.WithLocation(a.loc))
	for _, job := range []struct {
		name string
		spec string
		run  func(context.Context)
	}{
		{"renew", cfg.Daemon.RenewCron, jobs.renew},
		{"refresh", cfg.Daemon.RefreshCron, jobs.refresh},
		{"rollover", cfg.Daemon.RolloverCron, jobs.rollover},
	} {
		run := job.run
		if _, err := c.AddFunc(job.spec, func() { run(ctx) }); err != nil {
			return WrapExitError(ExitCommandError, fmt.Sprintf("invalid %s schedule", job.name), err)
		}
	}
	c.Start()
	defer func() { <-c.Stop().Done() }()

	slog.Info("daemon starting", "settings", a.settings.Path())
	fmt.Fprintln(cmd.ErrOrStderr(), "Daemon started. Press Ctrl-C to stop.")

	if err := dispatcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded) {
		return WrapExitError(ExitFailure, "dispatcher error", err)
	}

	slog.Info("daemon stopped gracefully")
	return nil
}

// daemonJobs are the periodic engine operations. Failures are logged and
// left for the next tick.
type daemonJobs struct {
	app *app
}

func (j daemonJobs) renew(ctx context.Context) {
	res, err := j.app.engine.EnsureScheduled(ctx)
	if err != nil {
		slog.Error("renew failed", "error", err)
		return
	}
	if res.Renewed {
		slog.Info("reminders renewed", "run_id", res.Result.RunID, "scheduled", res.Result.Scheduled)
	}
}

func (j daemonJobs) refresh(ctx context.Context) {
	s, err := j.app.settings.Get(ctx)
	if err != nil {
		slog.Error("refresh failed", "error", err)
		return
	}
	if !s.Enabled {
		return
	}
	res, err := j.app.engine.ForceReschedule(ctx)
	if err != nil {
		slog.Error("refresh failed", "error", err)
		return
	}
	slog.Info("timetable refreshed", "run_id", res.RunID, "scheduled", res.Scheduled)
}

func (j daemonJobs) rollover(ctx context.Context) {
	snap, err := j.app.engine.Rollover(ctx)
	if err != nil {
		slog.Error("streak rollover failed", "error", err)
		return
	}
	slog.Debug("streak rolled over", "date", snap.Completion.Date, "count", snap.Streak.Count)
}
