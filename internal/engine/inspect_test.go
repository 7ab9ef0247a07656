package engine

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ritual/internal/model"
)

func TestOwned(t *testing.T) {
	known := knownEvents([]string{"Tahajjud"})

	tests := []struct {
		name string
		r    model.Registered
		want bool
	}{
		{"tag", model.Registered{Notification: model.Notification{Tag: model.Tag, Title: "x"}}, true},
		{"owner marker", model.Registered{Notification: model.Notification{
			Title: "x", Payload: map[string]string{model.PayloadOwner: model.OwnerMarker},
		}}, true},
		{"payload event", model.Registered{Notification: model.Notification{
			Title: "x", Payload: map[string]string{model.PayloadEvent: "maghrib"},
		}}, true},
		{"payload custom event", model.Registered{Notification: model.Notification{
			Title: "x", Payload: map[string]string{model.PayloadEvent: "Tahajjud"},
		}}, true},
		{"title prefix", model.Registered{Notification: model.Notification{Title: "[Ritual] something"}}, true},
		{"event in title", model.Registered{Notification: model.Notification{Title: "ISHA soon"}}, true},
		{"foreign", model.Registered{Notification: model.Notification{
			Title: "Dentist appointment", Tag: "calendar", Payload: map[string]string{"event": "dentist"},
		}}, false},
		{"other owner marker", model.Registered{Notification: model.Notification{
			Title: "Standup", Payload: map[string]string{model.PayloadOwner: "someone-else/v1"},
		}}, false},
		{"empty", model.Registered{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Owned(tt.r, known))
		})
	}
}

func TestKnownEvents(t *testing.T) {
	got := knownEvents([]string{"fajr", "Tahajjud", "Tahajjud"})
	assert.Equal(t, []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha", "Tahajjud"}, got)
}

func TestInspect(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.Seed(model.Registered{
		ID: "dentist", At: f.clock.Now().Add(time.Hour),
		Notification: model.Notification{Title: "Dentist appointment"},
	})
	_, err := f.eng.Reschedule(ctx)
	require.NoError(t, err)

	st, err := f.eng.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 36, st.Total)
	assert.Equal(t, 35, st.Owned)
	// 04:00 on the 16th: all five of today's triggers, none of tomorrow's.
	assert.Equal(t, 5, st.UpcomingIn24h)
	require.Len(t, st.Items, 35)

	first := st.Items[0]
	assert.Equal(t, "Fajr", first.EventName)
	assert.Equal(t, model.NewDate(2026, 10, 16), first.Date)
	assert.Equal(t, 10, first.LeadMinutes)
	assert.Equal(t, model.Tag, first.Tag)
	assert.Equal(t, time.Date(2026, 10, 16, 4, 50, 0, 0, time.UTC), first.TriggerAt)
}

func TestInspect_UpcomingWindowBounds(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	now := f.clock.Now()
	seed := func(id string, at time.Time) {
		f.notifier.Seed(model.Registered{ID: id, At: at, Notification: model.Notification{Title: "[Ritual] Asr in 5 min", Tag: model.Tag}})
	}
	seed("past", now.Add(-time.Minute))
	seed("now", now)
	seed("edge", now.Add(24*time.Hour))
	seed("beyond", now.Add(24*time.Hour+time.Second))

	st, err := f.eng.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, st.Owned)
	assert.Equal(t, 2, st.UpcomingIn24h)
}

func TestInspect_DroppedMetadata(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.notifier.DropTag = true
	f.notifier.DropPayload = true
	_, err := f.eng.Reschedule(ctx)
	require.NoError(t, err)

	st, err := f.eng.Inspect(ctx)
	require.NoError(t, err)
	assert.Equal(t, 35, st.Owned)

	first := st.Items[0]
	assert.Equal(t, "Fajr", first.EventName, "name recovered from title")
	assert.Equal(t, model.NewDate(2026, 10, 16), first.Date, "date recovered from fire time")
	assert.Equal(t, 0, first.LeadMinutes)
	assert.Empty(t, first.Tag)
}

func TestInspect_Empty(t *testing.T) {
	f := newFixture(t)
	st, err := f.eng.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, Status{Items: []model.Reminder{}}, st)
}

func TestInspect_NoWrites(t *testing.T) {
	f := newFixture(t)
	_, err := f.eng.Inspect(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, f.notifier.ScheduleCalls)
	assert.Equal(t, 0, f.notifier.CancelCalls)
	assert.Equal(t, 0, f.settings.Puts)
}

func TestEnsureScheduled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	out, err := f.eng.EnsureScheduled(ctx)
	require.NoError(t, err)
	assert.True(t, out.Renewed)
	assert.Equal(t, 35, out.Result.Scheduled)

	out, err = f.eng.EnsureScheduled(ctx)
	require.NoError(t, err)
	assert.False(t, out.Renewed)
	assert.Equal(t, 5, out.Status.UpcomingIn24h)
	assert.Equal(t, 1, f.timetable.Calls)
}

func TestEnsureScheduled_RenewsWhenRunningDry(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	_, err := f.eng.Reschedule(ctx)
	require.NoError(t, err)

	// Past the last trigger of the window.
	f.clock.Set(time.Date(2026, 10, 22, 20, 0, 0, 0, time.UTC))
	out, err := f.eng.EnsureScheduled(ctx)
	require.NoError(t, err)
	assert.True(t, out.Renewed)
	assert.Equal(t, 35, out.Result.Cancelled)
}

func TestEnsureScheduled_Disabled(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	s := f.settings.Current()
	s.Enabled = false
	require.NoError(t, f.settings.Put(ctx, s))

	out, err := f.eng.EnsureScheduled(ctx)
	require.NoError(t, err)
	assert.Equal(t, RenewResult{}, out)
	assert.Equal(t, 0, f.timetable.Calls)
}

func TestEnsureScheduled_PropagatesFatal(t *testing.T) {
	f := newFixture(t)
	f.notifier.DenyErr = model.ErrPermissionDenied

	out, err := f.eng.EnsureScheduled(context.Background())
	require.Error(t, err)
	assert.True(t, out.Renewed)
	assert.True(t, IsPermissionDenied(err))
}
