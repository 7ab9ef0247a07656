package testutil

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/roach88/ritual/internal/model"
)

// FakeNotifier is an in-memory notification primitive.
//
// It can simulate the platform behaviours the engine must cope with:
// permission denial, per-item registration failures and metadata channels
// (tag, payload) that are silently dropped.
type FakeNotifier struct {
	mu    sync.Mutex
	items map[string]model.Registered
	seq   int

	// DenyErr, when set, is returned by Authorize and ScheduleAt.
	DenyErr error

	// FailOn is consulted before each registration; a non-nil error fails
	// that registration only.
	FailOn func(at time.Time, n model.Notification) error

	// CancelErr, when set, is returned by Cancel.
	CancelErr error

	// DropTag and DropPayload make the fake forget those channels.
	DropTag     bool
	DropPayload bool

	ScheduleCalls int
	CancelCalls   int
}

// NewFakeNotifier creates an empty fake.
func NewFakeNotifier() *FakeNotifier {
	return &FakeNotifier{items: make(map[string]model.Registered)}
}

// Authorize reports whether notifications are permitted.
func (f *FakeNotifier) Authorize(_ context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.DenyErr
}

// ScheduleAt registers n to fire at at.
func (f *FakeNotifier) ScheduleAt(_ context.Context, at time.Time, n model.Notification) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.ScheduleCalls++
	if f.DenyErr != nil {
		return "", f.DenyErr
	}
	if f.FailOn != nil {
		if err := f.FailOn(at, n); err != nil {
			return "", err
		}
	}

	f.seq++
	id := fmt.Sprintf("n-%03d", f.seq)
	if f.DropTag {
		n.Tag = ""
	}
	if f.DropPayload {
		n.Payload = nil
	}
	f.items[id] = model.Registered{ID: id, At: at, Notification: n}
	return id, nil
}

// Cancel removes a registration. Unknown ids are ignored.
func (f *FakeNotifier) Cancel(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.CancelCalls++
	if f.CancelErr != nil {
		return f.CancelErr
	}
	delete(f.items, id)
	return nil
}

// ListAll returns every registration ordered by fire time, then id.
func (f *FakeNotifier) ListAll(_ context.Context) ([]model.Registered, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]model.Registered, 0, len(f.items))
	for _, r := range f.items {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].At.Equal(out[j].At) {
			return out[i].At.Before(out[j].At)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Seed registers a notification that did not come from the engine.
func (f *FakeNotifier) Seed(r model.Registered) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.items[r.ID] = r
}

// Len returns the number of registrations.
func (f *FakeNotifier) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.items)
}
