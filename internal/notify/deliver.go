package notify

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"sync"

	"github.com/roach88/ritual/internal/model"
)

// Deliverer presents a due notification to the user.
type Deliverer interface {
	Deliver(ctx context.Context, r model.Registered) error
}

// DelivererFunc adapts a function to Deliverer.
type DelivererFunc func(ctx context.Context, r model.Registered) error

// Deliver calls f.
func (f DelivererFunc) Deliver(ctx context.Context, r model.Registered) error {
	return f(ctx, r)
}

// LogDeliverer delivers notifications as structured log records.
type LogDeliverer struct {
	Logger *slog.Logger
}

// Deliver logs r at Info.
func (d LogDeliverer) Deliver(ctx context.Context, r model.Registered) error {
	logger := d.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "notification",
		"id", r.ID,
		"at", r.At,
		"title", r.Title,
		"body", r.Body,
	)
	return nil
}

// WriterDeliverer prints each notification as one line to W.
type WriterDeliverer struct {
	mu sync.Mutex
	W  io.Writer
}

// Deliver writes "<title>: <body>" followed by a newline.
func (d *WriterDeliverer) Deliver(_ context.Context, r model.Registered) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if r.Body == "" {
		_, err := fmt.Fprintln(d.W, r.Title)
		return err
	}
	_, err := fmt.Fprintf(d.W, "%s: %s\n", r.Title, r.Body)
	return err
}
