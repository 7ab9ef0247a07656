package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/ritual/internal/model"
	"github.com/roach88/ritual/internal/streak"
)

// DoneOptions holds flags for the done command.
type DoneOptions struct {
	*RootOptions
	Date string
	Undo bool
}

// streakOutput is the streak together with one day's completion.
type streakOutput struct {
	Completion model.DailyCompletion `json:"completion"`
	Streak     model.StreakState     `json:"streak"`
	Awarded    bool                  `json:"awarded,omitempty"`
}

func (s streakOutput) renderText(w io.Writer) {
	fmt.Fprintf(w, "%s: ritual %s, scripture %s\n",
		s.Completion.Date, doneWord(s.Completion.RitualDone), doneWord(s.Completion.ScriptureDone))
	fmt.Fprintf(w, "Streak: %d day(s), %d freeze token(s)\n", s.Streak.Count, s.Streak.FreezeTokens)
	if !s.Streak.LastCompleted.IsZero() {
		fmt.Fprintf(w, "Last completed: %s\n", s.Streak.LastCompleted)
	}
	if s.Awarded {
		fmt.Fprintln(w, "Earned a freeze token")
	}
}

func doneWord(done bool) string {
	if done {
		return "done"
	}
	return "pending"
}

// NewDoneCommand creates the done command.
func NewDoneCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DoneOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "done ritual|scripture",
		Short: "Mark a daily sub-goal as done",
		Long: `Record that one of the two daily sub-goals is satisfied and advance the
streak. A day counts once both are done.

Examples:
  ritual done ritual
  ritual done scripture --date 2026-10-15
  ritual done ritual --undo`,
		Args:          cobra.ExactArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDone(opts, cmd, args[0])
		},
	}

	cmd.Flags().StringVar(&opts.Date, "date", "", "calendar date YYYY-MM-DD (default today)")
	cmd.Flags().BoolVar(&opts.Undo, "undo", false, "clear the sub-goal instead")

	return cmd
}

func runDone(opts *DoneOptions, cmd *cobra.Command, arg string) error {
	which, ok := model.ParseSubGoal(arg)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown sub-goal %q: must be ritual or scripture", arg))
	}

	a, err := openApp(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	today := a.engine.Today()
	date := today
	if opts.Date != "" {
		date, err = model.ParseDate(opts.Date)
		if err != nil {
			return WrapExitError(ExitCommandError, "invalid --date", err)
		}
		if date.After(today) {
			return NewExitError(ExitCommandError, fmt.Sprintf("--date %s is after today (%s)", date, today))
		}
	}

	out := newFormatter(cmd, opts.RootOptions)
	snap, err := a.engine.OnSubGoalChanged(commandContext(cmd), date, which, !opts.Undo)
	if errors.Is(err, streak.ErrDateBehind) {
		return WrapExitError(ExitCommandError, "cannot update an earlier day", err)
	}
	if err != nil {
		return out.Fail("update failed", err)
	}
	return out.Success(snapshotOutput(snap))
}

func snapshotOutput(s streak.Snapshot) streakOutput {
	return streakOutput{Completion: s.Completion, Streak: s.Streak, Awarded: s.Awarded}
}

// NewStreakCommand creates the streak command.
func NewStreakCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "streak",
		Short:         "Show the current streak",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			out := newFormatter(cmd, rootOpts)
			ctx := commandContext(cmd)
			state, err := a.engine.StreakState(ctx)
			if err != nil {
				return out.Fail("read streak failed", err)
			}
			comp, err := a.engine.Completion(ctx, a.engine.Today())
			if err != nil {
				return out.Fail("read completion failed", err)
			}
			return out.Success(streakOutput{Completion: comp, Streak: state})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:           "reset",
		Short:         "Reset the streak to zero",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(rootOpts, nil)
			if err != nil {
				return err
			}
			defer a.Close()

			out := newFormatter(cmd, rootOpts)
			if err := a.engine.ResetStreak(commandContext(cmd)); err != nil {
				return out.Fail("reset failed", err)
			}
			return out.Success("Streak reset")
		},
	})

	return cmd
}
