package settings

import (
	"context"
	"fmt"
	"sync"

	"github.com/roach88/ritual/internal/model"
)

// File is a loaded settings file that writes changes straight back.
//
// Thread-safety: All methods are safe for concurrent use.
type File struct {
	path string

	mu  sync.Mutex
	cfg *Config
}

// Open loads and validates the settings file at path, creating it with
// defaults when missing.
func Open(path string) (*File, error) {
	cfg, err := Load(path)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return &File{path: path, cfg: cfg}, nil
}

// Path returns the file location.
func (f *File) Path() string { return f.path }

// Config returns a copy of the current configuration.
func (f *File) Config() Config {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.clone()
}

// Get returns the notification preferences.
func (f *File) Get(_ context.Context) (model.NotificationSettings, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cfg.NotificationSettings(), nil
}

// Put stores the notification preferences and saves the file.
func (f *File) Put(_ context.Context, s model.NotificationSettings) error {
	return f.Update(func(c *Config) { c.ApplyNotificationSettings(s) })
}

// Update applies fn to a copy of the configuration, validates the result
// and saves it. The in-memory state changes only when the save succeeds.
func (f *File) Update(fn func(*Config)) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	next := f.cfg.clone()
	fn(&next)
	next.Normalize()
	if err := next.Validate(); err != nil {
		return err
	}
	if err := Save(f.path, &next); err != nil {
		return err
	}
	f.cfg = &next
	return nil
}

func (c *Config) clone() Config {
	out := *c
	out.Notifications.ActiveEvents = append([]string{}, c.Notifications.ActiveEvents...)
	out.Timetable.FixedTimes = make(map[string]string, len(c.Timetable.FixedTimes))
	for k, v := range c.Timetable.FixedTimes {
		out.Timetable.FixedTimes[k] = v
	}
	return out
}
