package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/roach88/ritual/internal/model"
)

// Outbox is the persistence Local needs. *store.Store satisfies it.
type Outbox interface {
	InsertNotification(ctx context.Context, r model.Registered) error
	DeleteNotification(ctx context.Context, id string) (bool, error)
	ListNotifications(ctx context.Context) ([]model.Registered, error)
}

// Local is a notification primitive backed by an Outbox.
//
// Thread-safety: All methods are safe for concurrent use.
type Local struct {
	outbox   Outbox
	newID    func() (string, error)
	onChange func()

	mu      sync.RWMutex
	granted bool
}

// LocalOption configures a Local.
type LocalOption func(*Local)

// WithPermission sets the initial permission state.
func WithPermission(granted bool) LocalOption {
	return func(l *Local) { l.granted = granted }
}

// WithIDGenerator overrides registration id generation (default UUIDv7).
func WithIDGenerator(gen func() (string, error)) LocalOption {
	return func(l *Local) { l.newID = gen }
}

// WithOnChange registers a callback run after every successful
// registration or cancellation. The daemon uses it to poke the Dispatcher.
func WithOnChange(fn func()) LocalOption {
	return func(l *Local) { l.onChange = fn }
}

// NewLocal creates a Local over outbox. Permission is granted by default.
func NewLocal(outbox Outbox, opts ...LocalOption) *Local {
	l := &Local{
		outbox:  outbox,
		newID:   newUUIDv7,
		granted: true,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

func newUUIDv7() (string, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return "", fmt.Errorf("generate UUIDv7: %w", err)
	}
	return id.String(), nil
}

// SetPermission records the user's permission decision.
func (l *Local) SetPermission(granted bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.granted = granted
}

// Authorize returns model.ErrPermissionDenied when permission is not
// granted.
func (l *Local) Authorize(_ context.Context) error {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if !l.granted {
		return model.ErrPermissionDenied
	}
	return nil
}

// ScheduleAt registers n to fire at at and returns its id.
func (l *Local) ScheduleAt(ctx context.Context, at time.Time, n model.Notification) (string, error) {
	if err := l.Authorize(ctx); err != nil {
		return "", err
	}
	if at.IsZero() {
		return "", errors.New("schedule: zero fire time")
	}
	if n.Title == "" {
		return "", errors.New("schedule: empty title")
	}

	id, err := l.newID()
	if err != nil {
		return "", fmt.Errorf("schedule: %w", err)
	}

	payload := make(map[string]string, len(n.Payload))
	for k, v := range n.Payload {
		payload[k] = v
	}
	n.Payload = payload

	r := model.Registered{ID: id, At: at, Notification: n}
	if err := l.outbox.InsertNotification(ctx, r); err != nil {
		return "", fmt.Errorf("schedule: %w", err)
	}
	l.changed()
	return id, nil
}

// Cancel removes a registration. Unknown ids are not an error.
func (l *Local) Cancel(ctx context.Context, id string) error {
	removed, err := l.outbox.DeleteNotification(ctx, id)
	if err != nil {
		return fmt.Errorf("cancel %s: %w", id, err)
	}
	if removed {
		l.changed()
	}
	return nil
}

// ListAll returns every pending registration ordered by fire time.
func (l *Local) ListAll(ctx context.Context) ([]model.Registered, error) {
	items, err := l.outbox.ListNotifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

func (l *Local) changed() {
	if l.onChange != nil {
		l.onChange()
	}
}
