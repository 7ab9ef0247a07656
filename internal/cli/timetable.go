package cli

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/ritual/internal/model"
)

// TimetableOptions holds flags for the timetable command.
type TimetableOptions struct {
	*RootOptions
	Refresh bool
	Days    int
}

// TimetableDay is one cached day as shown to the user.
type TimetableDay struct {
	Date      model.Date        `json:"date"`
	Events    []model.EventSpec `json:"events"`
	FetchedAt time.Time         `json:"fetched_at"`
}

// TimetableResult holds the timetable window output.
type TimetableResult struct {
	Location string         `json:"location"`
	From     model.Date     `json:"from"`
	To       model.Date     `json:"to"`
	Days     []TimetableDay `json:"days"`
}

func (r TimetableResult) renderText(w io.Writer) {
	if len(r.Days) == 0 {
		fmt.Fprintf(w, "No cached timetable for %s between %s and %s (try --refresh)\n", r.Location, r.From, r.To)
		return
	}
	fmt.Fprintf(w, "Timetable for %s\n", r.Location)
	for _, d := range r.Days {
		parts := make([]string, 0, len(d.Events))
		for _, ev := range d.Events {
			parts = append(parts, ev.Name+" "+ev.Time)
		}
		fmt.Fprintf(w, "  %s  %s\n", d.Date, strings.Join(parts, "  "))
	}
}

// NewTimetableCommand creates the timetable command.
func NewTimetableCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TimetableOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "timetable",
		Short: "Show the cached timetable window",
		Long: `Show the timetable days cached for the configured location, starting
today. With --refresh the window is fetched from the provider first.

Examples:
  ritual timetable
  ritual timetable --refresh --days 3`,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTimetable(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Refresh, "refresh", false, "fetch from the provider before showing")
	cmd.Flags().IntVar(&opts.Days, "days", 0, "number of days to show (default timetable.schedule_days)")

	return cmd
}

func runTimetable(opts *TimetableOptions, cmd *cobra.Command) error {
	if opts.Days < 0 {
		return NewExitError(ExitCommandError, "--days must not be negative")
	}

	a, err := openApp(opts.RootOptions, nil)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.settings.Config()
	days := opts.Days
	if days == 0 {
		days = cfg.Timetable.ScheduleDays
	}
	location := cfg.NotificationSettings().LocationKey()
	from := a.engine.Today()
	to := from.AddDays(days - 1)

	out := newFormatter(cmd, opts.RootOptions)
	ctx := commandContext(cmd)
	if opts.Refresh {
		if _, err := a.cache.Fetch(ctx, location, from, to, true); err != nil {
			return out.Fail("timetable refresh failed", err)
		}
	}

	cached, err := a.cache.Window(ctx, location, from, to)
	if err != nil {
		return out.Fail("timetable read failed", err)
	}

	res := TimetableResult{Location: location, From: from, To: to, Days: []TimetableDay{}}
	for _, cd := range cached {
		res.Days = append(res.Days, TimetableDay{
			Date:      cd.Day.Date,
			Events:    cd.Day.Events,
			FetchedAt: cd.FetchedAt,
		})
	}
	return out.Success(res)
}
