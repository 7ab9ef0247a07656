package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContainsFold(t *testing.T) {
	tests := []struct {
		text, name string
		want       bool
	}{
		{"[Ritual] Fajr in 10 min", "Fajr", true},
		{"FAJR soon", "fajr", true},
		{"Maghrib reminder", "Isha", false},
		{"anything", "", false},
		{"Prière du soir", "prière", true},
	}

	for _, tt := range tests {
		t.Run(tt.text+"/"+tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ContainsFold(tt.text, tt.name))
		})
	}
}

func TestRenderTitle(t *testing.T) {
	title := RenderTitle("Asr", 15)
	assert.Equal(t, "[Ritual] Asr in 15 min", title)
	assert.True(t, ContainsFold(title, "asr"))
}

func TestRenderBody(t *testing.T) {
	assert.Equal(t, "Isha at 19:45 on 2026-10-17", RenderBody("Isha", "19:45", NewDate(2026, 10, 17)))
}

func TestSettingsHelpers(t *testing.T) {
	s := NotificationSettings{ActiveEvents: []string{"Fajr", "Isha"}, City: "Cairo", Country: "Egypt"}

	assert.True(t, s.IsActive("Isha"))
	assert.False(t, s.IsActive("Asr"))
	assert.Equal(t, "Cairo,Egypt", s.LocationKey())

	s.Country = ""
	assert.Equal(t, "Cairo", s.LocationKey())
}

func TestParseSubGoal(t *testing.T) {
	g, ok := ParseSubGoal("scripture")
	assert.True(t, ok)
	assert.Equal(t, SubGoalScripture, g)

	_, ok = ParseSubGoal("sleep")
	assert.False(t, ok)
}

func TestReminderFromPayload(t *testing.T) {
	d, lead := ReminderFromPayload(map[string]string{PayloadDate: "2026-10-16", PayloadLeadMinutes: "10"})
	assert.Equal(t, NewDate(2026, 10, 16), d)
	assert.Equal(t, 10, lead)

	d, lead = ReminderFromPayload(nil)
	assert.True(t, d.IsZero())
	assert.Equal(t, 0, lead)
}
