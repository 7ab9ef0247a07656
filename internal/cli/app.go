package cli

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/ritual/internal/engine"
	"github.com/roach88/ritual/internal/notify"
	"github.com/roach88/ritual/internal/settings"
	"github.com/roach88/ritual/internal/store"
	"github.com/roach88/ritual/internal/streak"
	"github.com/roach88/ritual/internal/timetable"
)

// app is the wired component graph every command works on.
type app struct {
	settings *settings.File
	store    *store.Store
	notifier *notify.Local
	cache    *timetable.Cached
	engine   *engine.Engine
	clock    engine.Clock
	loc      *time.Location
}

// openApp loads the settings file, opens the database and wires the
// engine. onChange, when set, runs after every registration change.
func openApp(opts *RootOptions, onChange func()) (*app, error) {
	path := opts.ConfigPath
	if path == "" {
		p, err := settings.DefaultPath()
		if err != nil {
			return nil, WrapExitError(ExitCommandError, "failed to locate settings", err)
		}
		path = p
	}

	file, err := settings.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load settings", err)
	}
	cfg := file.Config()

	loc, err := cfg.TimeLocation()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid settings", err)
	}
	staleAfter, err := cfg.StaleAfter()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "invalid settings", err)
	}

	clock := opts.Clock
	if clock == nil {
		clock = engine.SystemClock{}
	}

	dbPath := opts.DBPath
	if dbPath == "" {
		dbPath = cfg.DatabasePath(path)
	}
	slog.Debug("opening database", "path", dbPath)
	st, err := store.Open(dbPath, store.WithNow(clock.Now))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to open database", err)
	}

	upstream, err := newProvider(cfg, loc)
	if err != nil {
		st.Close()
		return nil, WrapExitError(ExitCommandError, "invalid timetable settings", err)
	}

	logger := slog.Default()
	cache := timetable.NewCached(upstream, st,
		timetable.WithStaleAfter(staleAfter),
		timetable.WithClock(clock.Now, loc),
		timetable.WithCacheLogger(logger),
	)

	localOpts := []notify.LocalOption{notify.WithPermission(cfg.Notifications.PermissionGranted)}
	if onChange != nil {
		localOpts = append(localOpts, notify.WithOnChange(onChange))
	}
	notifier := notify.NewLocal(st, localOpts...)

	gate := streak.NewGate(st,
		streak.WithPolicy(streak.Policy{
			FreezeEvery: cfg.Streak.FreezeEvery,
			MaxFreeze:   cfg.Streak.MaxFreeze,
		}),
		streak.WithLogger(logger),
	)

	eng := engine.New(notifier, cache, file, gate,
		engine.WithClock(clock),
		engine.WithLocation(loc),
		engine.WithScheduleDays(cfg.Timetable.ScheduleDays),
		engine.WithLogger(logger),
	)

	return &app{
		settings: file,
		store:    st,
		notifier: notifier,
		cache:    cache,
		engine:   eng,
		clock:    clock,
		loc:      loc,
	}, nil
}

// Close releases the database.
func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		slog.Error("error closing database", "error", err)
	}
}

// newProvider builds the upstream timetable provider named in cfg.
func newProvider(cfg settings.Config, loc *time.Location) (timetable.Provider, error) {
	switch cfg.Timetable.Provider {
	case settings.ProviderAladhan:
		return timetable.NewAladhan(cfg.Timetable.BaseURL,
			timetable.WithMethod(cfg.Location.Method),
			timetable.WithAladhanLogger(slog.Default()),
		), nil
	case settings.ProviderICS:
		return timetable.NewICS(cfg.Timetable.ICSPath, loc, slog.Default()), nil
	case settings.ProviderFixed:
		return timetable.NewFixed(cfg.Timetable.FixedTimes)
	default:
		return nil, fmt.Errorf("unknown timetable provider %q", cfg.Timetable.Provider)
	}
}
