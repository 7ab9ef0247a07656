package notify

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/ritual/internal/model"
)

const maxSleepCap = 60 * time.Second

// Source is the outbox view the Dispatcher reads and drains.
// *store.Store satisfies it.
type Source interface {
	DueNotifications(ctx context.Context, until time.Time) ([]model.Registered, error)
	NextFireAt(ctx context.Context) (time.Time, error)
	DeleteNotification(ctx context.Context, id string) (bool, error)
}

// Dispatcher fires due outbox notifications.
//
// It is an active object: Run owns the heap and the timer; other goroutines
// talk to it only through Poke.
type Dispatcher struct {
	source  Source
	deliver Deliverer
	now     func() time.Time
	logger  *slog.Logger
	poke    chan struct{}
}

// DispatcherOption configures a Dispatcher.
type DispatcherOption func(*Dispatcher)

// WithDispatcherClock sets the time source (default time.Now).
func WithDispatcherClock(now func() time.Time) DispatcherOption {
	return func(d *Dispatcher) { d.now = now }
}

// WithDispatcherLogger sets the logger (default slog.Default()).
func WithDispatcherLogger(l *slog.Logger) DispatcherOption {
	return func(d *Dispatcher) { d.logger = l }
}

// NewDispatcher creates a Dispatcher. Call Run to start it.
func NewDispatcher(source Source, deliver Deliverer, opts ...DispatcherOption) *Dispatcher {
	d := &Dispatcher{
		source:  source,
		deliver: deliver,
		now:     time.Now,
		logger:  slog.Default(),
		poke:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Poke asks a running Dispatcher to reload the outbox now.
// Never blocks; pokes coalesce.
func (d *Dispatcher) Poke() {
	select {
	case d.poke <- struct{}{}:
	default:
	}
}

// DispatchDue delivers every notification due at the current time and
// returns how many were delivered, together with the next pending fire time
// (zero when the outbox is empty).
//
// A notification is removed from the outbox only after successful delivery.
// A delivery failure is logged and the entry is left for the next wake.
func (d *Dispatcher) DispatchDue(ctx context.Context) (int, time.Time, error) {
	now := d.now()
	items, err := d.source.DueNotifications(ctx, now)
	if err != nil {
		return 0, time.Time{}, fmt.Errorf("dispatch: %w", err)
	}

	h := newPendingHeap(items)
	delivered := 0
	var retry []model.Registered

	for h.Len() > 0 {
		r := popDue(h)
		if err := d.deliver.Deliver(ctx, r); err != nil {
			d.logger.Warn("delivery failed", "id", r.ID, "title", r.Title, "error", err)
			retry = append(retry, r)
			continue
		}
		if _, err := d.source.DeleteNotification(ctx, r.ID); err != nil {
			return delivered, time.Time{}, fmt.Errorf("dispatch: %w", err)
		}
		delivered++
	}

	if len(retry) > 0 {
		return delivered, now.Add(maxSleepCap), nil
	}
	next, err := d.source.NextFireAt(ctx)
	if err != nil {
		return delivered, time.Time{}, fmt.Errorf("dispatch: %w", err)
	}
	return delivered, next, nil
}

// Run dispatches until ctx is cancelled. Storage errors are logged and
// retried after the sleep cap.
func (d *Dispatcher) Run(ctx context.Context) error {
	var timer *time.Timer
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		n, next, err := d.DispatchDue(ctx)
		if err != nil {
			d.logger.Error("dispatch failed", "error", err)
		} else if n > 0 {
			d.logger.Debug("dispatched notifications", "count", n)
		}

		wait := maxSleepCap
		if err == nil && !next.IsZero() {
			wait = next.Sub(d.now())
			if wait > maxSleepCap {
				wait = maxSleepCap
			}
			if wait < 0 {
				wait = 0
			}
		}

		if timer != nil {
			timer.Stop()
		}
		timer = time.NewTimer(wait)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-d.poke:
		case <-timer.C:
		}
	}
}
