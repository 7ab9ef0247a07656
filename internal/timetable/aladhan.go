package timetable

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/ritual/internal/model"
	"github.com/roach88/ritual/internal/trigger"
)

// DefaultAladhanURL is the public API endpoint.
const DefaultAladhanURL = "https://api.aladhan.com"

// Aladhan fetches monthly prayer calendars from the Aladhan API.
type Aladhan struct {
	baseURL string
	method  int
	events  []string
	client  *http.Client
	logger  *slog.Logger
}

// AladhanOption configures an Aladhan provider.
type AladhanOption func(*Aladhan)

// WithHTTPClient overrides the HTTP client (default 15s timeout).
func WithHTTPClient(c *http.Client) AladhanOption {
	return func(a *Aladhan) { a.client = c }
}

// WithMethod sets the calculation method id passed to the API.
func WithMethod(method int) AladhanOption {
	return func(a *Aladhan) { a.method = method }
}

// WithAladhanLogger sets the logger.
func WithAladhanLogger(l *slog.Logger) AladhanOption {
	return func(a *Aladhan) { a.logger = l }
}

// NewAladhan creates a provider talking to baseURL.
func NewAladhan(baseURL string, opts ...AladhanOption) *Aladhan {
	if baseURL == "" {
		baseURL = DefaultAladhanURL
	}
	a := &Aladhan{
		baseURL: strings.TrimRight(baseURL, "/"),
		method:  2,
		events:  model.DefaultEvents,
		client:  &http.Client{Timeout: 15 * time.Second},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

type calendarResponse struct {
	Code   int           `json:"code"`
	Status string        `json:"status"`
	Data   []calendarDay `json:"data"`
}

type calendarDay struct {
	Timings map[string]string `json:"timings"`
	Date    struct {
		Gregorian struct {
			Date string `json:"date"` // DD-MM-YYYY
		} `json:"gregorian"`
	} `json:"date"`
}

// Fetch requests every month touched by [from, to] and returns the days
// inside the window.
func (a *Aladhan) Fetch(ctx context.Context, location string, from, to model.Date, _ bool) ([]model.DaySchedule, error) {
	city, country := SplitLocation(location)
	if city == "" {
		return nil, fmt.Errorf("aladhan: empty city in location %q", location)
	}
	if to.Before(from) {
		return nil, fmt.Errorf("aladhan: window end %s before start %s", to, from)
	}

	var days []model.DaySchedule
	year, month := from.Year, from.Month
	for {
		monthDays, err := a.fetchMonth(ctx, city, country, year, month)
		if err != nil {
			return nil, err
		}
		days = append(days, monthDays...)

		if year == to.Year && month == to.Month {
			break
		}
		month++
		if month > time.December {
			month = time.January
			year++
		}
	}
	return clip(days, from, to), nil
}

func (a *Aladhan) fetchMonth(ctx context.Context, city, country string, year int, month time.Month) ([]model.DaySchedule, error) {
	q := url.Values{}
	q.Set("city", city)
	if country != "" {
		q.Set("country", country)
	}
	q.Set("method", strconv.Itoa(a.method))
	endpoint := fmt.Sprintf("%s/v1/calendarByCity/%d/%d?%s", a.baseURL, year, int(month), q.Encode())

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("aladhan: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	a.logger.Debug("timetable fetch", "city", city, "country", country, "year", year, "month", int(month))

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("aladhan: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 256))
		return nil, fmt.Errorf("aladhan: %d-%02d: status %d: %s", year, int(month), resp.StatusCode, strings.TrimSpace(string(snippet)))
	}

	var body calendarResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("aladhan: decode %d-%02d: %w", year, int(month), err)
	}
	if body.Code != http.StatusOK {
		return nil, fmt.Errorf("aladhan: %d-%02d: api code %d (%s)", year, int(month), body.Code, body.Status)
	}

	out := make([]model.DaySchedule, 0, len(body.Data))
	for _, d := range body.Data {
		day, err := a.parseDay(d)
		if err != nil {
			return nil, fmt.Errorf("aladhan: %w", err)
		}
		out = append(out, day)
	}
	return out, nil
}

func (a *Aladhan) parseDay(d calendarDay) (model.DaySchedule, error) {
	date, err := time.Parse("02-01-2006", d.Date.Gregorian.Date)
	if err != nil {
		return model.DaySchedule{}, fmt.Errorf("bad date %q: %w", d.Date.Gregorian.Date, err)
	}

	day := model.DaySchedule{Date: model.DateOf(date)}
	for _, name := range a.events {
		raw, ok := d.Timings[name]
		if !ok {
			continue
		}
		h, m, err := trigger.ParseClock(raw)
		if err != nil {
			return model.DaySchedule{}, fmt.Errorf("%s %s: %w", day.Date, name, err)
		}
		day.Events = append(day.Events, model.EventSpec{Name: name, Time: fmt.Sprintf("%02d:%02d", h, m)})
	}
	return day, nil
}
