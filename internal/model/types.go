package model

import (
	"strconv"
	"time"
)

// Ownership markers written to every channel a notification offers.
// Versioned so a future format can be told apart from this one.
const (
	// Tag is the explicit tag attached to every reminder this engine registers.
	Tag = "ritual-reminder"

	// OwnerMarker is the payload value of PayloadOwner.
	OwnerMarker = "ritual-reminder/v1"

	// TitlePrefix starts the rendered title of every reminder.
	TitlePrefix = "[Ritual]"
)

// Payload keys.
const (
	PayloadOwner       = "owner"
	PayloadEvent       = "event"
	PayloadDate        = "date"
	PayloadLeadMinutes = "lead_minutes"
	PayloadKey         = "key"
)

// DefaultEvents are the five daily prayers in timetable order.
var DefaultEvents = []string{"Fajr", "Dhuhr", "Asr", "Maghrib", "Isha"}

// EventSpec is one named daily event inside a DaySchedule.
type EventSpec struct {
	Name string `json:"name" yaml:"name"`
	Time string `json:"time" yaml:"time"` // "HH:MM"
}

// DaySchedule holds the events of one calendar day.
// Immutable once fetched from a timetable provider.
type DaySchedule struct {
	Date   Date        `json:"date" yaml:"date"`
	Events []EventSpec `json:"events" yaml:"events"`
}

// Event returns the event with the given name, if present.
func (d DaySchedule) Event(name string) (EventSpec, bool) {
	for _, ev := range d.Events {
		if ev.Name == name {
			return ev, true
		}
	}
	return EventSpec{}, false
}

// NotificationSettings are the user preferences the scheduler reads.
type NotificationSettings struct {
	Enabled      bool     `json:"enabled" yaml:"enabled"`
	LeadMinutes  int      `json:"lead_minutes" yaml:"lead_minutes"`
	ActiveEvents []string `json:"active_events" yaml:"active_events"`
	City         string   `json:"city" yaml:"city"`
	Country      string   `json:"country" yaml:"country"`
}

// IsActive reports whether name is in the active event set.
func (s NotificationSettings) IsActive(name string) bool {
	for _, n := range s.ActiveEvents {
		if n == name {
			return true
		}
	}
	return false
}

// LocationKey identifies the timetable location of these settings.
func (s NotificationSettings) LocationKey() string {
	if s.Country == "" {
		return s.City
	}
	return s.City + "," + s.Country
}

// Notification is what the engine hands to the platform primitive.
type Notification struct {
	Title   string            `json:"title"`
	Body    string            `json:"body"`
	Tag     string            `json:"tag"`
	Payload map[string]string `json:"payload,omitempty"`
}

// Registered is a notification as reported back by the platform primitive.
// Tag and Payload may come back empty on platforms that drop them.
type Registered struct {
	ID string    `json:"id"`
	At time.Time `json:"at"`
	Notification
}

// Reminder is a registered notification recognised as one of ours.
type Reminder struct {
	ID          string    `json:"id"`
	EventName   string    `json:"event_name"`
	Date        Date      `json:"date"`
	TriggerAt   time.Time `json:"trigger_at"`
	LeadMinutes int       `json:"lead_minutes,omitempty"`
	Tag         string    `json:"tag,omitempty"`
	Title       string    `json:"title"`
}

// SubGoal names one of the two daily sub-goals.
type SubGoal string

const (
	SubGoalRitual    SubGoal = "ritual"
	SubGoalScripture SubGoal = "scripture"
)

// ParseSubGoal validates a sub-goal name.
func ParseSubGoal(s string) (SubGoal, bool) {
	switch SubGoal(s) {
	case SubGoalRitual, SubGoalScripture:
		return SubGoal(s), true
	}
	return "", false
}

// DailyCompletion is the per-day completion record.
type DailyCompletion struct {
	Date          Date `json:"date"`
	RitualDone    bool `json:"ritual_done"`
	ScriptureDone bool `json:"scripture_done"`
}

// BothDone reports whether both sub-goals are satisfied.
func (c DailyCompletion) BothDone() bool {
	return c.RitualDone && c.ScriptureDone
}

// StreakState is the streak counter and its freeze tokens.
//
// LastCompleted is the zero Date when there was never a completed day.
// FrozenOn records the day a freeze token was last consumed so a single
// day never pays twice.
type StreakState struct {
	Count         int  `json:"count"`
	FreezeTokens  int  `json:"freeze_tokens"`
	LastCompleted Date `json:"last_completed"`
	FrozenOn      Date `json:"frozen_on"`
}

// ReminderFromPayload rebuilds the date and lead minutes carried in a payload.
func ReminderFromPayload(p map[string]string) (Date, int) {
	d := ParseDateLenient(p[PayloadDate])
	lead, _ := strconv.Atoi(p[PayloadLeadMinutes])
	return d, lead
}
