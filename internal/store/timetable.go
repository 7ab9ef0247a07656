package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/ritual/internal/model"
)

// CachedDay is a timetable day together with the time it was fetched.
type CachedDay struct {
	Day       model.DaySchedule
	FetchedAt time.Time
}

// PutDays upserts days for location in a single transaction.
func (s *Store) PutDays(ctx context.Context, location string, days []model.DaySchedule, fetchedAt time.Time) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("put days: begin tx: %w", err)
	}
	defer tx.Rollback() // No-op if committed

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO timetable_days (location, date, events, fetched_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(location, date) DO UPDATE SET events = excluded.events, fetched_at = excluded.fetched_at
	`)
	if err != nil {
		return fmt.Errorf("put days: prepare: %w", err)
	}
	defer stmt.Close()

	for _, day := range days {
		events, err := json.Marshal(day.Events)
		if err != nil {
			return fmt.Errorf("put days: marshal %s: %w", day.Date, err)
		}
		if _, err := stmt.ExecContext(ctx, location, day.Date.String(), string(events), fetchedAt.Unix()); err != nil {
			return fmt.Errorf("put days: %s: %w", day.Date, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("put days: commit: %w", err)
	}
	return nil
}

// Days returns the cached days for location within [from, to], ordered by date.
func (s *Store) Days(ctx context.Context, location string, from, to model.Date) ([]CachedDay, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, events, fetched_at
		FROM timetable_days
		WHERE location = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, location, from.String(), to.String())
	if err != nil {
		return nil, fmt.Errorf("query days: %w", err)
	}
	defer rows.Close()

	var out []CachedDay
	for rows.Next() {
		var (
			dateStr   string
			eventsStr string
			fetchedAt int64
		)
		if err := rows.Scan(&dateStr, &eventsStr, &fetchedAt); err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		date, err := model.ParseDate(dateStr)
		if err != nil {
			return nil, fmt.Errorf("scan day: %w", err)
		}
		var events []model.EventSpec
		if err := json.Unmarshal([]byte(eventsStr), &events); err != nil {
			return nil, fmt.Errorf("scan day %s: %w", dateStr, err)
		}
		out = append(out, CachedDay{
			Day:       model.DaySchedule{Date: date, Events: events},
			FetchedAt: time.Unix(fetchedAt, 0),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate days: %w", err)
	}
	return out, nil
}

// PruneDays deletes cached days for location strictly before date.
func (s *Store) PruneDays(ctx context.Context, location string, before model.Date) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM timetable_days WHERE location = ? AND date < ?
	`, location, before.String())
	if err != nil {
		return 0, fmt.Errorf("prune days: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("prune days: rows affected: %w", err)
	}
	return n, nil
}
