package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ritual/internal/settings"
	"github.com/roach88/ritual/internal/testutil"
)

// 04:00 UTC: every event of the day is still ahead.
var testNow = time.Date(2026, 10, 16, 4, 0, 0, 0, time.UTC)

type testEnv struct {
	t      *testing.T
	path   string
	clock  *testutil.FixedClock
	format string
}

// newTestEnv writes an enabled settings file using the fixed provider.
func newTestEnv(t *testing.T, mutate func(*settings.Config)) *testEnv {
	t.Helper()
	cfg := settings.DefaultConfig()
	cfg.Notifications.Enabled = true
	cfg.Location.City = "Cairo"
	cfg.Location.Country = "Egypt"
	cfg.Location.Timezone = "UTC"
	cfg.Timetable.Provider = settings.ProviderFixed
	cfg.Timetable.FixedTimes = map[string]string{
		"Fajr":    "05:00",
		"Dhuhr":   "12:00",
		"Asr":     "15:30",
		"Maghrib": "18:00",
		"Isha":    "19:30",
	}
	if mutate != nil {
		mutate(cfg)
	}
	path := filepath.Join(t.TempDir(), "settings.yaml")
	require.NoError(t, settings.Save(path, cfg))
	return &testEnv{t: t, path: path, clock: testutil.NewFixedClock(testNow), format: "json"}
}

func (e *testEnv) opts() *RootOptions {
	return &RootOptions{Format: e.format, ConfigPath: e.path, Clock: e.clock}
}

// run executes the command built by newCmd with args and returns stdout.
func (e *testEnv) run(newCmd func(*RootOptions) *cobra.Command, args ...string) (string, error) {
	e.t.Helper()
	buf := &bytes.Buffer{}
	cmd := newCmd(e.opts())
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

// response decodes a JSON CLIResponse with a map payload.
func response(t *testing.T, out string) (CLIResponse, map[string]any) {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(out), &resp), out)
	data, _ := resp.Data.(map[string]any)
	return resp, data
}

func (e *testEnv) config() *settings.Config {
	e.t.Helper()
	cfg, err := settings.Load(e.path)
	require.NoError(e.t, err)
	return cfg
}

func TestReschedule_RegistersWindow(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)

	resp, data := response(t, out)
	assert.Equal(t, "ok", resp.Status)
	assert.NotEmpty(t, resp.RunID)
	assert.Equal(t, float64(35), data["scheduled"])
	assert.Equal(t, float64(0), data["skipped"])
	assert.Equal(t, float64(0), data["failed"])
	assert.Equal(t, float64(0), data["cancelled"])
}

func TestReschedule_Idempotent(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)
	out, err := env.run(NewRescheduleCommand, "--refresh")
	require.NoError(t, err)

	_, data := response(t, out)
	assert.Equal(t, float64(35), data["scheduled"])
	assert.Equal(t, float64(35), data["cancelled"])

	out, err = env.run(NewStatusCommand)
	require.NoError(t, err)
	_, data = response(t, out)
	assert.Equal(t, float64(35), data["owned"])
	assert.Equal(t, float64(35), data["total"])
}

func TestReschedule_TextOutput(t *testing.T) {
	env := newTestEnv(t, nil)
	env.format = "text"

	out, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)
	assert.Equal(t, "Scheduled 35, skipped 0, failed 0 (cancelled 0)\n", out)
}

func TestReschedule_LeadCorrectedAndWrittenBack(t *testing.T) {
	env := newTestEnv(t, func(c *settings.Config) { c.Notifications.LeadMinutes = 500 })

	out, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)

	_, data := response(t, out)
	assert.Equal(t, true, data["lead_corrected"])
	assert.Equal(t, settings.DefaultLeadMinutes, env.config().Notifications.LeadMinutes)
}

func TestReschedule_Disabled(t *testing.T) {
	env := newTestEnv(t, func(c *settings.Config) { c.Notifications.Enabled = false })

	out, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, float64(0), data["scheduled"])
}

func TestReschedule_PermissionDenied(t *testing.T) {
	env := newTestEnv(t, func(c *settings.Config) { c.Notifications.PermissionGranted = false })

	out, err := env.run(NewRescheduleCommand)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	resp, _ := response(t, out)
	assert.Equal(t, "error", resp.Status)
	require.NotNil(t, resp.Error)
	assert.Equal(t, "PERMISSION_DENIED", resp.Error.Code)
}

func TestStatus_CountsUpcoming(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)

	out, err := env.run(NewStatusCommand)
	require.NoError(t, err)
	_, data := response(t, out)
	// Today's five reminders fall inside the next 24h; tomorrow's Fajr at
	// 04:50 does not.
	assert.Equal(t, float64(5), data["upcoming_in_24h"])

	items, ok := data["items"].([]any)
	require.True(t, ok)
	require.Len(t, items, 35)
	first := items[0].(map[string]any)
	assert.Equal(t, "Fajr", first["event_name"])
	assert.Equal(t, "2026-10-16", first["date"])
}

func TestStatus_TextOutput(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)

	env.format = "text"
	out, err := env.run(NewStatusCommand)
	require.NoError(t, err)
	assert.Contains(t, out, "Reminders: 35 owned of 35 registered, 5 in the next 24h")
	assert.Contains(t, out, "2026-10-16 04:50  Fajr")
}

func TestCancel(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)

	out, err := env.run(NewCancelCommand)
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, float64(35), data["cancelled"])

	out, err = env.run(NewStatusCommand)
	require.NoError(t, err)
	_, data = response(t, out)
	assert.Equal(t, float64(0), data["owned"])
}

func TestEnable(t *testing.T) {
	env := newTestEnv(t, func(c *settings.Config) { c.Notifications.Enabled = false })

	out, err := env.run(NewEnableCommand, "--lead", "15", "--events", "Fajr,Maghrib")
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, float64(14), data["scheduled"])

	cfg := env.config()
	assert.True(t, cfg.Notifications.Enabled)
	assert.Equal(t, 15, cfg.Notifications.LeadMinutes)
	assert.Equal(t, []string{"Fajr", "Maghrib"}, cfg.Notifications.ActiveEvents)
}

func TestEnable_KeepsUnsetFlags(t *testing.T) {
	env := newTestEnv(t, func(c *settings.Config) {
		c.Notifications.Enabled = false
		c.Notifications.LeadMinutes = 20
	})

	_, err := env.run(NewEnableCommand)
	require.NoError(t, err)
	assert.Equal(t, 20, env.config().Notifications.LeadMinutes)
}

func TestEnable_GrantPermission(t *testing.T) {
	env := newTestEnv(t, func(c *settings.Config) {
		c.Notifications.Enabled = false
		c.Notifications.PermissionGranted = false
	})

	_, err := env.run(NewEnableCommand)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	out, err := env.run(NewEnableCommand, "--grant")
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, float64(35), data["scheduled"])
	assert.True(t, env.config().Notifications.PermissionGranted)

	_, err = env.run(NewRescheduleCommand)
	require.NoError(t, err)
}

func TestDisable(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)

	out, err := env.run(NewDisableCommand)
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, float64(35), data["cancelled"])
	assert.False(t, env.config().Notifications.Enabled)
}

func TestDone_BothSubGoalsAdvanceStreak(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run(NewDoneCommand, "ritual")
	require.NoError(t, err)
	_, data := response(t, out)
	streakData := data["streak"].(map[string]any)
	assert.Equal(t, float64(0), streakData["count"])

	out, err = env.run(NewDoneCommand, "scripture")
	require.NoError(t, err)
	_, data = response(t, out)
	streakData = data["streak"].(map[string]any)
	assert.Equal(t, float64(1), streakData["count"])
	assert.Equal(t, "2026-10-16", streakData["last_completed"])

	completion := data["completion"].(map[string]any)
	assert.Equal(t, true, completion["ritual_done"])
	assert.Equal(t, true, completion["scripture_done"])
}

func TestDone_UndoKeepsCountedDay(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(NewDoneCommand, "ritual")
	require.NoError(t, err)
	_, err = env.run(NewDoneCommand, "scripture")
	require.NoError(t, err)

	out, err := env.run(NewDoneCommand, "ritual", "--undo")
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, false, data["completion"].(map[string]any)["ritual_done"])
	assert.Equal(t, float64(1), data["streak"].(map[string]any)["count"])
}

func TestDone_ExplicitDate(t *testing.T) {
	env := newTestEnv(t, nil)
	out, err := env.run(NewDoneCommand, "ritual", "--date", "2026-10-15")
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, "2026-10-15", data["completion"].(map[string]any)["date"])
}

func TestDone_RejectsFutureDate(t *testing.T) {
	env := newTestEnv(t, nil)

	for _, goal := range []string{"ritual", "scripture"} {
		_, err := env.run(NewDoneCommand, goal, "--date", "2027-10-16")
		require.Error(t, err)
		assert.Equal(t, ExitCommandError, GetExitCode(err))
	}

	_, err := env.run(NewDoneCommand, "ritual")
	require.NoError(t, err)
	out, err := env.run(NewDoneCommand, "scripture")
	require.NoError(t, err)
	_, data := response(t, out)
	streakData := data["streak"].(map[string]any)
	assert.Equal(t, float64(1), streakData["count"])
	assert.Equal(t, "2026-10-16", streakData["last_completed"])
}

func TestDone_EarlierDayAfterTodayStarted(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.run(NewDoneCommand, "ritual")
	require.NoError(t, err)
	_, err = env.run(NewDoneCommand, "ritual", "--date", "2026-10-15")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	out, err := env.run(NewDoneCommand, "scripture")
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, true, data["completion"].(map[string]any)["ritual_done"])
	assert.Equal(t, float64(1), data["streak"].(map[string]any)["count"])
}

func TestDone_InvalidInput(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.run(NewDoneCommand, "prayer")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = env.run(NewDoneCommand, "ritual", "--date", "16/10/2026")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	_, err = env.run(NewDoneCommand)
	require.Error(t, err)
}

func TestStreak_ShowAndReset(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(NewDoneCommand, "ritual")
	require.NoError(t, err)
	_, err = env.run(NewDoneCommand, "scripture")
	require.NoError(t, err)

	env.format = "text"
	out, err := env.run(NewStreakCommand)
	require.NoError(t, err)
	assert.Contains(t, out, "2026-10-16: ritual done, scripture done")
	assert.Contains(t, out, "Streak: 1 day(s), 0 freeze token(s)")

	out, err = env.run(NewStreakCommand, "reset")
	require.NoError(t, err)
	assert.Equal(t, "Streak reset\n", out)

	env.format = "json"
	out, err = env.run(NewStreakCommand)
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, float64(0), data["streak"].(map[string]any)["count"])
}

func TestTimetable_EmptyUntilRefreshed(t *testing.T) {
	env := newTestEnv(t, nil)

	out, err := env.run(NewTimetableCommand)
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, "Cairo,Egypt", data["location"])
	assert.Empty(t, data["days"])

	out, err = env.run(NewTimetableCommand, "--refresh", "--days", "3")
	require.NoError(t, err)
	_, data = response(t, out)
	days := data["days"].([]any)
	require.Len(t, days, 3)
	assert.Equal(t, "2026-10-16", days[0].(map[string]any)["date"])
	assert.Equal(t, "2026-10-18", data["to"])
}

func TestTimetable_TextAfterReschedule(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)

	env.format = "text"
	out, err := env.run(NewTimetableCommand, "--days", "1")
	require.NoError(t, err)
	assert.Equal(t, "Timetable for Cairo,Egypt\n  2026-10-16  Fajr 05:00  Dhuhr 12:00  Asr 15:30  Maghrib 18:00  Isha 19:30\n", out)
}

func TestTimetable_NegativeDays(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(NewTimetableCommand, "--days", "-1")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestDaemonOnce_DeliversDueReminders(t *testing.T) {
	env := newTestEnv(t, nil)
	_, err := env.run(NewRescheduleCommand)
	require.NoError(t, err)

	// Fajr's reminder fired at 04:50.
	env.clock.Set(time.Date(2026, 10, 16, 4, 55, 0, 0, time.UTC))
	out, err := env.run(NewDaemonCommand, "--once", "--stdout")
	require.NoError(t, err)
	assert.Equal(t, "[Ritual] Fajr in 10 min: Fajr at 05:00 on 2026-10-16\n", out)

	env.format = "json"
	out, err = env.run(NewStatusCommand)
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, float64(34), data["owned"])
}

func TestDaemonOnce_RenewsWhenNothingUpcoming(t *testing.T) {
	env := newTestEnv(t, nil)

	_, err := env.run(NewDaemonCommand, "--once")
	require.NoError(t, err)

	out, err := env.run(NewStatusCommand)
	require.NoError(t, err)
	_, data := response(t, out)
	assert.Equal(t, float64(35), data["owned"])
}

func TestOpenApp_Errors(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "settings.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("notifications: [\n"), 0o600))

	_, err := openApp(&RootOptions{ConfigPath: bad}, nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))

	env := newTestEnv(t, nil)
	opts := env.opts()
	opts.DBPath = filepath.Join(dir, "missing", "dir", "ritual.db")
	_, err = openApp(opts, nil)
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}

func TestOpenApp_DatabaseBesideSettings(t *testing.T) {
	env := newTestEnv(t, nil)
	a, err := openApp(env.opts(), nil)
	require.NoError(t, err)
	a.Close()

	_, err = os.Stat(filepath.Join(filepath.Dir(env.path), "ritual.db"))
	require.NoError(t, err)
}
