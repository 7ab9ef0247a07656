package engine

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/roach88/ritual/internal/model"
	"github.com/roach88/ritual/internal/trigger"
)

// Result is the outcome of one reschedule run.
type Result struct {
	RunID string `json:"run_id,omitempty"`

	// Scheduled, Skipped and Failed partition the candidates: every active
	// event of every day in the window.
	Scheduled int `json:"scheduled"`
	Skipped   int `json:"skipped"`
	Failed    int `json:"failed"`

	// Cancelled is the number of owned registrations removed first.
	Cancelled int `json:"cancelled"`

	// LeadCorrected is set when an out-of-range lead time was replaced and
	// written back before scheduling.
	LeadCorrected bool `json:"lead_corrected,omitempty"`
}

// Candidates returns Scheduled + Skipped + Failed.
func (r Result) Candidates() int { return r.Scheduled + r.Skipped + r.Failed }

// Reschedule cancels every owned reminder and registers the reminders for
// the current window, serving the timetable from cache when fresh.
func (e *Engine) Reschedule(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reschedule(ctx, false)
}

// ForceReschedule is Reschedule with a forced timetable refresh.
func (e *Engine) ForceReschedule(ctx context.Context) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.reschedule(ctx, true)
}

// RescheduleDays runs the scheduling pass over caller-supplied days and
// settings, without reading the settings store or the timetable provider.
// An out-of-range lead time is replaced for this run but not written back.
func (e *Engine) RescheduleDays(ctx context.Context, days []model.DaySchedule, s model.NotificationSettings) (Result, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	res := Result{RunID: e.runIDs.Generate()}
	if !schedulable(s) {
		return res, nil
	}
	if s.LeadMinutes < MinLeadMinutes || s.LeadMinutes > MaxLeadMinutes {
		s.LeadMinutes = DefaultLeadMinutes
		res.LeadCorrected = true
	}
	if err := e.authorize(ctx); err != nil {
		return res, err
	}
	return e.apply(ctx, res, days, s, e.clock.Now())
}

func (e *Engine) reschedule(ctx context.Context, force bool) (Result, error) {
	res := Result{RunID: e.runIDs.Generate()}
	logger := e.logger.With("run_id", res.RunID)

	s, err := e.settings.Get(ctx)
	if err != nil {
		return res, newError(ErrCodeInvalidSettings, "read settings", err)
	}
	if !schedulable(s) {
		logger.Info("reschedule skipped", "enabled", s.Enabled, "active_events", len(s.ActiveEvents))
		return res, nil
	}

	s, res.LeadCorrected, err = e.correctLead(ctx, s)
	if err != nil {
		return res, err
	}

	if err := e.authorize(ctx); err != nil {
		return res, err
	}

	now := e.clock.Now()
	from := model.DateOf(now.In(e.loc))
	to := from.AddDays(e.scheduleDays - 1)
	location := s.LocationKey()

	days, err := e.timetable.Fetch(ctx, location, from, to, force)
	if err != nil {
		return res, newError(ErrCodeDataUnavailable, fmt.Sprintf("timetable %s %s..%s", location, from, to), err)
	}
	if len(days) == 0 {
		return res, newError(ErrCodeDataUnavailable, fmt.Sprintf("timetable %s %s..%s is empty", location, from, to), nil)
	}

	res, err = e.apply(ctx, res, days, s, now)
	if err != nil {
		return res, err
	}
	logger.Info("reschedule complete",
		"scheduled", res.Scheduled,
		"skipped", res.Skipped,
		"failed", res.Failed,
		"cancelled", res.Cancelled,
		"lead_minutes", s.LeadMinutes,
		"forced", force,
	)
	return res, nil
}

func schedulable(s model.NotificationSettings) bool {
	return s.Enabled && len(s.ActiveEvents) > 0
}

// correctLead replaces an out-of-range lead time and writes it back.
func (e *Engine) correctLead(ctx context.Context, s model.NotificationSettings) (model.NotificationSettings, bool, error) {
	if s.LeadMinutes >= MinLeadMinutes && s.LeadMinutes <= MaxLeadMinutes {
		return s, false, nil
	}
	e.logger.Warn("lead minutes out of range, using default",
		"lead_minutes", s.LeadMinutes,
		"default", DefaultLeadMinutes,
	)
	s.LeadMinutes = DefaultLeadMinutes
	if err := e.settings.Put(ctx, s); err != nil {
		return s, true, newError(ErrCodeInvalidSettings, "write corrected lead minutes", err)
	}
	return s, true, nil
}

func (e *Engine) authorize(ctx context.Context) error {
	if err := e.notifier.Authorize(ctx); err != nil {
		return newError(ErrCodePermissionDenied, "notifications not permitted", err)
	}
	return nil
}

// apply cancels owned registrations, then registers every candidate.
func (e *Engine) apply(ctx context.Context, res Result, days []model.DaySchedule, s model.NotificationSettings, now time.Time) (Result, error) {
	logger := e.logger.With("run_id", res.RunID)

	cancelled, err := e.cancelOwned(ctx, s.ActiveEvents)
	res.Cancelled = cancelled
	if err != nil {
		return res, err
	}

	// Real timetable entries win over roll-forwards landing on the same day.
	present := make(map[reminderSlot]bool)
	for _, day := range days {
		for _, ev := range day.Events {
			if s.IsActive(ev.Name) {
				present[reminderSlot{ev.Name, day.Date}] = true
			}
		}
	}

	for _, day := range days {
		for _, ev := range day.Events {
			if !s.IsActive(ev.Name) {
				continue
			}

			trig, err := trigger.Compute(ev.Time, day.Date, s.LeadMinutes, now, e.loc)
			switch {
			case errors.Is(err, trigger.ErrPastTrigger):
				logger.Debug("trigger in the past", "event", ev.Name, "date", day.Date)
				res.Skipped++
				continue
			case err != nil:
				logger.Warn("trigger computation failed", "event", ev.Name, "date", day.Date, "error", err)
				res.Failed++
				continue
			}
			if trig.Rolled && present[reminderSlot{ev.Name, trig.Date}] {
				res.Skipped++
				continue
			}

			n := buildNotification(ev, trig, s.LeadMinutes)
			if _, err := e.notifier.ScheduleAt(ctx, trig.At, n); err != nil {
				if errors.Is(err, model.ErrPermissionDenied) {
					return res, newError(ErrCodePermissionDenied, "permission revoked during reschedule", err)
				}
				logger.Warn("registration failed", "event", ev.Name, "date", trig.Date, "at", trig.At, "error", err)
				res.Failed++
				continue
			}
			res.Scheduled++
		}
	}
	return res, nil
}

type reminderSlot struct {
	event string
	date  model.Date
}

// buildNotification marks the reminder as ours in every channel: tag,
// payload owner field and title prefix.
func buildNotification(ev model.EventSpec, trig trigger.Trigger, lead int) model.Notification {
	return model.Notification{
		Title: model.RenderTitle(ev.Name, lead),
		Body:  model.RenderBody(ev.Name, ev.Time, trig.Date),
		Tag:   model.Tag,
		Payload: map[string]string{
			model.PayloadOwner:       model.OwnerMarker,
			model.PayloadEvent:       ev.Name,
			model.PayloadDate:        trig.Date.String(),
			model.PayloadLeadMinutes: strconv.Itoa(lead),
			model.PayloadKey:         model.ReminderKey(ev.Name, trig.Date),
		},
	}
}

// CancelAll cancels every owned registration and returns how many were
// removed.
func (e *Engine) CancelAll(ctx context.Context) (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	s, err := e.settings.Get(ctx)
	if err != nil {
		return 0, newError(ErrCodeInvalidSettings, "read settings", err)
	}
	n, err := e.cancelOwned(ctx, s.ActiveEvents)
	if err != nil {
		return n, err
	}
	e.logger.Info("cancelled reminders", "count", n)
	return n, nil
}

func (e *Engine) cancelOwned(ctx context.Context, active []string) (int, error) {
	items, err := e.notifier.ListAll(ctx)
	if err != nil {
		return 0, newError(ErrCodeCancelFailed, "list registrations", err)
	}
	known := knownEvents(active)
	n := 0
	for _, r := range items {
		if !Owned(r, known) {
			continue
		}
		if err := e.notifier.Cancel(ctx, r.ID); err != nil {
			return n, newError(ErrCodeCancelFailed, "cancel "+r.ID, err)
		}
		n++
	}
	return n, nil
}
