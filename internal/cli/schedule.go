package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ritual/internal/engine"
	"github.com/roach88/ritual/internal/settings"
)

// RescheduleOptions holds flags for the reschedule command.
type RescheduleOptions struct {
	*RootOptions
	Refresh bool
}

// EnableOptions holds flags for the enable command.
type EnableOptions struct {
	*RootOptions
	LeadMinutes int
	Events      []string
	Grant       bool
}

// rescheduleOutput renders a reschedule result.
type rescheduleOutput engine.Result

func (r rescheduleOutput) renderText(w io.Writer) {
	fmt.Fprintf(w, "Scheduled %d, skipped %d, failed %d (cancelled %d)\n",
		r.Scheduled, r.Skipped, r.Failed, r.Cancelled)
	if r.LeadCorrected {
		fmt.Fprintf(w, "Lead time was out of range and has been reset to %d minutes\n", settings.DefaultLeadMinutes)
	}
}

// cancelOutput renders a cancelAll result.
type cancelOutput struct {
	Cancelled int `json:"cancelled"`
}

func (c cancelOutput) renderText(w io.Writer) {
	fmt.Fprintf(w, "Cancelled %d reminders\n", c.Cancelled)
}

// statusOutput renders an inspection snapshot in the configured zone.
type statusOutput struct {
	engine.Status
	loc *time.Location
}

func (s statusOutput) renderText(w io.Writer) {
	fmt.Fprintf(w, "Reminders: %d owned of %d registered, %d in the next 24h\n",
		s.Owned, s.Total, s.UpcomingIn24h)
	for _, r := range s.Items {
		fmt.Fprintf(w, "  %s  %-8s %s\n", r.TriggerAt.In(s.loc).Format("2006-01-02 15:04"), r.EventName, r.Title)
	}
}

// NewRescheduleCommand creates the reschedule command.
func NewRescheduleCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &RescheduleOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reschedule",
		Short: "Replace all reminders from the current timetable",
		Long: `Cancel every reminder this tool registered and register fresh ones for
the configured scheduling window.

Past triggers are rolled forward one day when that still lies in the
future; anything else in the past is skipped.

Examples:
  ritual reschedule
  ritual reschedule --refresh --format json`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReschedule(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "bypass the timetable cache")

	return cmd
}

func runReschedule(opts *RescheduleOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	out := newFormatter(cmd, opts.RootOptions)
	ctx := commandContext(cmd)

	var res engine.Result
	if opts.Refresh {
		res, err = a.engine.ForceReschedule(ctx)
	} else {
		res, err = a.engine.Reschedule(ctx)
	}
	if err != nil {
		return out.Fail("reschedule failed", err)
	}
	return out.SuccessWithRun(res.RunID, rescheduleOutput(res))
}

// NewCancelCommand creates the cancel command.
func NewCancelCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "cancel",
		Short: "Cancel every reminder this tool registered",
		Long: `Cancel every registered reminder recognised as ours. Notifications
registered by anything else are left alone.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, nil)
			if err != nil {
				return err
			}
			defer a.Close()
			return cancelAll(cmd, rootOpts, a)
		},
	}
}

func cancelAll(cmd *cobra.Command, opts *RootOptions, a *app) error {
	out := newFormatter(cmd, opts)
	n, err := a.engine.CancelAll(commandContext(cmd))
	if err != nil {
		return out.Fail("cancel failed", err)
	}
	return out.Success(cancelOutput{Cancelled: n})
}

// NewStatusCommand creates the status command.
func NewStatusCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show registered reminders",
		Long: `List the reminders this tool has registered and count how many fire
within the next 24 hours.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			out := newFormatter(cmd, rootOpts)
			st, err := a.engine.Inspect(commandContext(cmd))
			if err != nil {
				return out.Fail("status failed", err)
			}
			if rootOpts.Format == "json" {
				return out.Success(st)
			}
			return out.Success(statusOutput{Status: st, loc: a.loc})
		},
	}
}

// NewEnableCommand creates the enable command.
func NewEnableCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &EnableOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "enable",
		Short: "Turn reminders on and schedule them",
		Long: `Enable reminders in the settings file and reschedule.

Examples:
  ritual enable
  ritual enable --lead 15 --events Fajr,Maghrib
  ritual enable --grant`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runEnable(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.LeadMinutes, "lead", 0, "minutes before each event (1-120)")
	cmd.Flags().StringSliceVar(&opts.Events, "events", nil, "events to remind about (default: keep current)")
	cmd.Flags().BoolVar(&opts.Grant, "grant", false, "record that notification permission was granted")

	return cmd
}

func runEnable(opts *EnableOptions, cmd *cobra.Command) error {
	a, err := openApp(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	err = a.settings.Update(func(c *settings.Config) {
		c.Notifications.Enabled = true
		if cmd.Flags().Changed("lead") {
			c.Notifications.LeadMinutes = opts.LeadMinutes
		}
		if cmd.Flags().Changed("events") {
			c.Notifications.ActiveEvents = append([]string{}, opts.Events...)
		}
		if opts.Grant {
			c.Notifications.PermissionGranted = true
		}
	})
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to update settings", err)
	}
	if opts.Grant {
		a.notifier.SetPermission(true)
	}

	out := newFormatter(cmd, opts.RootOptions)
	res, err := a.engine.Reschedule(commandContext(cmd))
	if err != nil {
		return out.Fail("reschedule failed", err)
	}
	return out.SuccessWithRun(res.RunID, rescheduleOutput(res))
}

// NewDisableCommand creates the disable command.
func NewDisableCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "disable",
		Short:         "Turn reminders off and cancel them",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.settings.Update(func(c *settings.Config) { c.Notifications.Enabled = false }); err != nil {
				return WrapExitError(ExitCommandError, "failed to update settings", err)
			}
			return cancelAll(cmd, rootOpts, a)
		},
	}
}

// newFormatter builds the formatter for cmd's output stream.
func newFormatter(cmd *cobra.Command, opts *RootOptions) *OutputFormatter {
	return &OutputFormatter{
		Format:  opts.Format,
		Writer:  cmd.OutOrStdout(),
		Verbose: opts.Verbose,
	}
}

// commandContext returns the command's context, or Background when the
// command was executed without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
