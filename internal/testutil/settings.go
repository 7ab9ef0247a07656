package testutil

import (
	"context"
	"sync"

	"github.com/roach88/ritual/internal/model"
)

// MemorySettings is an in-memory settings store.
type MemorySettings struct {
	mu sync.Mutex
	s  model.NotificationSettings

	// GetErr and PutErr, when set, are returned by Get and Put.
	GetErr error
	PutErr error

	Puts int
}

// NewMemorySettings creates a store holding s.
func NewMemorySettings(s model.NotificationSettings) *MemorySettings {
	return &MemorySettings{s: s}
}

// EnabledSettings returns enabled settings for all default events.
func EnabledSettings(lead int) model.NotificationSettings {
	return model.NotificationSettings{
		Enabled:      true,
		LeadMinutes:  lead,
		ActiveEvents: append([]string(nil), model.DefaultEvents...),
		City:         "Cairo",
		Country:      "Egypt",
	}
}

// Get returns the stored settings.
func (m *MemorySettings) Get(_ context.Context) (model.NotificationSettings, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetErr != nil {
		return model.NotificationSettings{}, m.GetErr
	}
	out := m.s
	out.ActiveEvents = append([]string(nil), m.s.ActiveEvents...)
	return out, nil
}

// Put replaces the stored settings.
func (m *MemorySettings) Put(_ context.Context, s model.NotificationSettings) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PutErr != nil {
		return m.PutErr
	}
	m.Puts++
	m.s = s
	return nil
}

// Current returns the stored settings without error injection.
func (m *MemorySettings) Current() model.NotificationSettings {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.s
}
