package model

import (
	"encoding/json"
	"testing"
	"time"
	_ "time/tzdata"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	d, err := ParseDate("2026-10-16")
	require.NoError(t, err)
	assert.Equal(t, Date{Year: 2026, Month: time.October, Day: 16}, d)
	assert.Equal(t, "2026-10-16", d.String())

	_, err = ParseDate("16/10/2026")
	assert.Error(t, err)
}

func TestParseDateLenient(t *testing.T) {
	assert.True(t, ParseDateLenient("").IsZero())
	assert.True(t, ParseDateLenient("not-a-date").IsZero())
	assert.True(t, ParseDateLenient("2026-02-30").IsZero())
	assert.Equal(t, NewDate(2026, time.March, 1), ParseDateLenient("2026-03-01"))
}

func TestDayDiff(t *testing.T) {
	tests := []struct {
		name string
		a, b Date
		want int
	}{
		{"same day", NewDate(2026, 10, 16), NewDate(2026, 10, 16), 0},
		{"next day", NewDate(2026, 10, 17), NewDate(2026, 10, 16), 1},
		{"previous day", NewDate(2026, 10, 15), NewDate(2026, 10, 16), -1},
		{"month boundary", NewDate(2026, 11, 1), NewDate(2026, 10, 31), 1},
		{"leap day", NewDate(2028, 3, 1), NewDate(2028, 2, 28), 2},
		{"year boundary", NewDate(2027, 1, 1), NewDate(2026, 12, 29), 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DayDiff(tt.a, tt.b))
		})
	}
}

func TestDayDiff_IgnoresDST(t *testing.T) {
	loc, err := time.LoadLocation("Europe/Berlin")
	require.NoError(t, err)

	// 2026-10-25 is the DST change in Europe; the day has 25 hours.
	before := DateOf(time.Date(2026, 10, 25, 1, 0, 0, 0, loc))
	after := DateOf(time.Date(2026, 10, 26, 1, 0, 0, 0, loc))
	assert.Equal(t, 1, DayDiff(after, before))
}

func TestAddDays(t *testing.T) {
	d := NewDate(2026, 12, 31)
	assert.Equal(t, NewDate(2027, 1, 1), d.AddDays(1))
	assert.Equal(t, NewDate(2026, 12, 24), d.AddDays(-7))
	assert.True(t, d.AddDays(1).After(d))
	assert.True(t, d.AddDays(-1).Before(d))
}

func TestDate_JSON(t *testing.T) {
	type wrapper struct {
		D Date `json:"d"`
	}

	out, err := json.Marshal(wrapper{D: NewDate(2026, 1, 5)})
	require.NoError(t, err)
	assert.Equal(t, `{"d":"2026-01-05"}`, string(out))

	var w wrapper
	require.NoError(t, json.Unmarshal([]byte(`{"d":""}`), &w))
	assert.True(t, w.D.IsZero())

	assert.Error(t, json.Unmarshal([]byte(`{"d":"garbage"}`), &w))
}

func TestDate_In(t *testing.T) {
	loc := time.FixedZone("UTC+3", 3*3600)
	at := NewDate(2026, 10, 16).In(loc)
	assert.Equal(t, time.Date(2026, 10, 16, 0, 0, 0, 0, loc), at)
}
