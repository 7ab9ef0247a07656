package engine

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/roach88/ritual/internal/model"
)

// Status is a diagnostic snapshot of the primitive's registrations.
type Status struct {
	// Owned counts registrations recognised as ours; Total counts all.
	Owned int `json:"owned"`
	Total int `json:"total"`

	// UpcomingIn24h counts owned registrations firing in [now, now+24h].
	UpcomingIn24h int `json:"upcoming_in_24h"`

	// Items are the owned registrations in fire order.
	Items []model.Reminder `json:"items"`
}

// Owned reports whether r was registered by this engine.
//
// Any one channel suffices: the tag, the payload owner marker, a payload
// event name in known, the title prefix, or a known event name in the
// title. Platforms that drop tags or payloads still leave the title.
func Owned(r model.Registered, known []string) bool {
	if r.Tag == model.Tag {
		return true
	}
	if r.Payload[model.PayloadOwner] == model.OwnerMarker {
		return true
	}
	if ev := r.Payload[model.PayloadEvent]; ev != "" && matchKnown(ev, known) != "" {
		return true
	}
	if strings.HasPrefix(strings.TrimSpace(r.Title), model.TitlePrefix) {
		return true
	}
	return titleEvent(r.Title, known) != ""
}

// knownEvents is the default event set plus any extra active names.
func knownEvents(active []string) []string {
	known := append([]string(nil), model.DefaultEvents...)
	for _, name := range active {
		if matchKnown(name, known) == "" {
			known = append(known, name)
		}
	}
	return known
}

// matchKnown returns the entry of known equal to name, ignoring case and
// normalization, or "".
func matchKnown(name string, known []string) string {
	folded := model.FoldName(name)
	for _, k := range known {
		if model.FoldName(k) == folded {
			return k
		}
	}
	return ""
}

// titleEvent returns the first known event name contained in title, or "".
func titleEvent(title string, known []string) string {
	for _, k := range known {
		if model.ContainsFold(title, k) {
			return k
		}
	}
	return ""
}

// Inspect lists the primitive's registrations and classifies them.
// It performs no writes.
func (e *Engine) Inspect(ctx context.Context) (Status, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inspect(ctx)
}

func (e *Engine) inspect(ctx context.Context) (Status, error) {
	s, err := e.settings.Get(ctx)
	if err != nil {
		return Status{}, newError(ErrCodeInvalidSettings, "read settings", err)
	}
	items, err := e.notifier.ListAll(ctx)
	if err != nil {
		return Status{}, fmt.Errorf("list registrations: %w", err)
	}

	known := knownEvents(s.ActiveEvents)
	now := e.clock.Now()
	horizon := now.Add(24 * time.Hour)

	st := Status{Total: len(items), Items: []model.Reminder{}}
	for _, r := range items {
		if !Owned(r, known) {
			continue
		}
		st.Owned++
		if !r.At.Before(now) && !r.At.After(horizon) {
			st.UpcomingIn24h++
		}
		st.Items = append(st.Items, e.toReminder(r, known))
	}
	return st, nil
}

// toReminder rebuilds reminder details from whichever channels survived.
func (e *Engine) toReminder(r model.Registered, known []string) model.Reminder {
	date, lead := model.ReminderFromPayload(r.Payload)
	name := r.Payload[model.PayloadEvent]
	if name == "" {
		name = titleEvent(r.Title, known)
	}
	if date.IsZero() {
		// Without a payload the fire date is the best guess; a reminder
		// fires on the event's day unless the lead crosses midnight.
		date = model.DateOf(r.At.In(e.loc))
	}
	return model.Reminder{
		ID:          r.ID,
		EventName:   name,
		Date:        date,
		TriggerAt:   r.At,
		LeadMinutes: lead,
		Tag:         r.Tag,
		Title:       r.Title,
	}
}

// RenewResult reports what EnsureScheduled did.
type RenewResult struct {
	Renewed bool   `json:"renewed"`
	Status  Status `json:"status"`
	Result  Result `json:"result"`
}

// EnsureScheduled reschedules when notifications are enabled but no owned
// reminder fires within the next 24 hours.
func (e *Engine) EnsureScheduled(ctx context.Context) (RenewResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.settings.Get(ctx)
	if err != nil {
		return RenewResult{}, newError(ErrCodeInvalidSettings, "read settings", err)
	}
	if !schedulable(s) {
		return RenewResult{}, nil
	}

	st, err := e.inspect(ctx)
	if err != nil {
		return RenewResult{}, err
	}
	out := RenewResult{Status: st}
	if st.UpcomingIn24h > 0 {
		return out, nil
	}

	e.logger.Info("no reminders in the next 24h, rescheduling", "owned", st.Owned)
	res, err := e.reschedule(ctx, false)
	out.Renewed = true
	out.Result = res
	if err != nil {
		return out, err
	}
	return out, nil
}
