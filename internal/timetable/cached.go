package timetable

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/roach88/ritual/internal/model"
	"github.com/roach88/ritual/internal/store"
)

// Default cache policy.
const (
	DefaultStaleAfter = 24 * time.Hour
	// RetainDays is how many past days are kept before pruning.
	RetainDays = 7
	// AheadDays is how far past today every upstream fetch reaches.
	AheadDays = 7
)

// Cache is the persistence the Cached provider needs. *store.Store satisfies it.
type Cache interface {
	PutDays(ctx context.Context, location string, days []model.DaySchedule, fetchedAt time.Time) error
	Days(ctx context.Context, location string, from, to model.Date) ([]store.CachedDay, error)
	PruneDays(ctx context.Context, location string, before model.Date) (int64, error)
}

// Cached serves timetable windows from a Cache, refreshing from upstream
// when entries are missing or stale.
type Cached struct {
	upstream   Provider
	cache      Cache
	staleAfter time.Duration
	now        func() time.Time
	loc        *time.Location
	logger     *slog.Logger
}

// CachedOption configures a Cached provider.
type CachedOption func(*Cached)

// WithStaleAfter sets the freshness limit for cached days.
func WithStaleAfter(d time.Duration) CachedOption {
	return func(c *Cached) {
		if d > 0 {
			c.staleAfter = d
		}
	}
}

// WithClock sets the time source and the zone "today" is computed in.
func WithClock(now func() time.Time, loc *time.Location) CachedOption {
	return func(c *Cached) {
		c.now = now
		if loc != nil {
			c.loc = loc
		}
	}
}

// WithCacheLogger sets the logger.
func WithCacheLogger(l *slog.Logger) CachedOption {
	return func(c *Cached) { c.logger = l }
}

// NewCached wraps upstream with cache.
func NewCached(upstream Provider, cache Cache, opts ...CachedOption) *Cached {
	c := &Cached{
		upstream:   upstream,
		cache:      cache,
		staleAfter: DefaultStaleAfter,
		now:        time.Now,
		loc:        time.Local,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns [from, to] for location.
//
// Fresh, complete cache windows are served without touching upstream unless
// force is set. Otherwise upstream is asked for [from, max(to, today+7)], the
// result is cached and days older than today-7 are pruned. When upstream
// fails or returns nothing, a complete but stale cache window is served;
// failing that, the error wraps ErrUnavailable.
func (c *Cached) Fetch(ctx context.Context, location string, from, to model.Date, force bool) ([]model.DaySchedule, error) {
	now := c.now()

	if !force {
		days, fresh, err := c.lookup(ctx, location, from, to, now)
		if err != nil {
			return nil, err
		}
		if fresh {
			return days, nil
		}
	}

	today := model.DateOf(now.In(c.loc))
	fetchTo := to
	if ahead := today.AddDays(AheadDays); ahead.After(fetchTo) {
		fetchTo = ahead
	}

	days, upErr := c.upstream.Fetch(ctx, location, from, fetchTo, force)
	if upErr == nil && len(days) > 0 {
		if err := c.cache.PutDays(ctx, location, days, now); err != nil {
			return nil, fmt.Errorf("timetable cache: %w", err)
		}
		if n, err := c.cache.PruneDays(ctx, location, today.AddDays(-RetainDays)); err != nil {
			c.logger.Warn("timetable prune failed", "location", location, "error", err)
		} else if n > 0 {
			c.logger.Debug("timetable pruned", "location", location, "days", n)
		}
		window := clip(days, from, to)
		if covers(window, from, to) {
			return window, nil
		}
		upErr = fmt.Errorf("upstream returned incomplete window %s..%s", from, to)
	}

	cached, err := c.cache.Days(ctx, location, from, to)
	if err != nil {
		return nil, fmt.Errorf("timetable cache: %w", err)
	}
	window := unwrap(cached)
	if covers(window, from, to) {
		c.logger.Warn("serving stale timetable", "location", location, "from", from, "to", to, "error", upErr)
		return window, nil
	}

	if upErr != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrUnavailable, location, upErr)
	}
	return nil, fmt.Errorf("%w: %s: no data for %s..%s", ErrUnavailable, location, from, to)
}

// lookup returns the cached window and whether it is complete and fresh.
func (c *Cached) lookup(ctx context.Context, location string, from, to model.Date, now time.Time) ([]model.DaySchedule, bool, error) {
	cached, err := c.cache.Days(ctx, location, from, to)
	if err != nil {
		return nil, false, fmt.Errorf("timetable cache: %w", err)
	}
	for _, cd := range cached {
		if now.Sub(cd.FetchedAt) >= c.staleAfter {
			return nil, false, nil
		}
	}
	days := unwrap(cached)
	if !covers(days, from, to) {
		return nil, false, nil
	}
	return days, true, nil
}

// Window returns whatever the cache holds for [from, to] without contacting
// upstream.
func (c *Cached) Window(ctx context.Context, location string, from, to model.Date) ([]store.CachedDay, error) {
	cached, err := c.cache.Days(ctx, location, from, to)
	if err != nil {
		return nil, fmt.Errorf("timetable cache: %w", err)
	}
	return cached, nil
}

func unwrap(cached []store.CachedDay) []model.DaySchedule {
	out := make([]model.DaySchedule, 0, len(cached))
	for _, cd := range cached {
		out = append(out, cd.Day)
	}
	return out
}
