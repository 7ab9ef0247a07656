package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/roach88/ritual/internal/model"
)

// InsertNotification adds a notification to the outbox.
// Uses ON CONFLICT(id) DO NOTHING so a retried insert is harmless.
func (s *Store) InsertNotification(ctx context.Context, r model.Registered) error {
	payload := r.Payload
	if payload == nil {
		payload = map[string]string{}
	}
	payloadJSON, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("insert notification: marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO notifications (id, fire_at, title, body, tag, payload, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		r.ID,
		r.At.Unix(),
		r.Title,
		r.Body,
		r.Tag,
		string(payloadJSON),
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}

// DeleteNotification removes a notification and reports whether it existed.
func (s *Store) DeleteNotification(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM notifications WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete notification: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete notification: rows affected: %w", err)
	}
	return n > 0, nil
}

// ListNotifications returns every pending notification ordered by fire time.
func (s *Store) ListNotifications(ctx context.Context) ([]model.Registered, error) {
	return s.queryNotifications(ctx, `
		SELECT id, fire_at, title, body, tag, payload
		FROM notifications
		ORDER BY fire_at ASC, id ASC
	`)
}

// DueNotifications returns notifications whose fire time is at or before until.
func (s *Store) DueNotifications(ctx context.Context, until time.Time) ([]model.Registered, error) {
	return s.queryNotifications(ctx, `
		SELECT id, fire_at, title, body, tag, payload
		FROM notifications
		WHERE fire_at <= ?
		ORDER BY fire_at ASC, id ASC
	`, until.Unix())
}

// NextFireAt returns the earliest pending fire time, or the zero time when
// the outbox is empty.
func (s *Store) NextFireAt(ctx context.Context) (time.Time, error) {
	var fireAt sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MIN(fire_at) FROM notifications`).Scan(&fireAt); err != nil {
		return time.Time{}, fmt.Errorf("next fire time: %w", err)
	}
	if !fireAt.Valid {
		return time.Time{}, nil
	}
	return time.Unix(fireAt.Int64, 0), nil
}

func (s *Store) queryNotifications(ctx context.Context, query string, args ...any) ([]model.Registered, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query notifications: %w", err)
	}
	defer rows.Close()

	var out []model.Registered
	for rows.Next() {
		r, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func scanNotification(rows *sql.Rows) (model.Registered, error) {
	var (
		r           model.Registered
		fireAt      int64
		payloadJSON string
	)
	if err := rows.Scan(&r.ID, &fireAt, &r.Title, &r.Body, &r.Tag, &payloadJSON); err != nil {
		return model.Registered{}, fmt.Errorf("scan notification: %w", err)
	}
	r.At = time.Unix(fireAt, 0)
	if payloadJSON != "" && payloadJSON != "{}" {
		if err := json.Unmarshal([]byte(payloadJSON), &r.Payload); err != nil {
			return model.Registered{}, fmt.Errorf("scan notification %s: payload: %w", r.ID, err)
		}
	}
	return r, nil
}
