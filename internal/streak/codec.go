package streak

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/ritual/internal/model"
)

// Persisted records keep dates as plain strings so a corrupted date
// degrades to "no date" instead of failing the whole record.

type streakRecord struct {
	Version       string `json:"v"`
	Count         int    `json:"count"`
	FreezeTokens  int    `json:"freeze_tokens"`
	LastCompleted string `json:"last_completed,omitempty"`
	FrozenOn      string `json:"frozen_on,omitempty"`
}

type completionRecord struct {
	Version       string `json:"v"`
	Date          string `json:"date"`
	RitualDone    bool   `json:"ritual_done"`
	ScriptureDone bool   `json:"scripture_done"`
}

func encodeStreak(s model.StreakState) ([]byte, error) {
	return json.Marshal(streakRecord{
		Version:       model.RecordVersion,
		Count:         s.Count,
		FreezeTokens:  s.FreezeTokens,
		LastCompleted: s.LastCompleted.String(),
		FrozenOn:      s.FrozenOn.String(),
	})
}

// decodeStreak returns the zero state for an absent record.
func decodeStreak(b []byte) (model.StreakState, error) {
	if len(b) == 0 {
		return model.StreakState{}, nil
	}
	var rec streakRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return model.StreakState{}, fmt.Errorf("decode streak state: %w", err)
	}
	return normalize(model.StreakState{
		Count:         rec.Count,
		FreezeTokens:  rec.FreezeTokens,
		LastCompleted: model.ParseDateLenient(rec.LastCompleted),
		FrozenOn:      model.ParseDateLenient(rec.FrozenOn),
	}), nil
}

func encodeCompletion(c model.DailyCompletion) ([]byte, error) {
	return json.Marshal(completionRecord{
		Version:       model.RecordVersion,
		Date:          c.Date.String(),
		RitualDone:    c.RitualDone,
		ScriptureDone: c.ScriptureDone,
	})
}

func decodeCompletion(b []byte) (model.DailyCompletion, error) {
	if len(b) == 0 {
		return model.DailyCompletion{}, nil
	}
	var rec completionRecord
	if err := json.Unmarshal(b, &rec); err != nil {
		return model.DailyCompletion{}, fmt.Errorf("decode daily completion: %w", err)
	}
	return model.DailyCompletion{
		Date:          model.ParseDateLenient(rec.Date),
		RitualDone:    rec.RitualDone,
		ScriptureDone: rec.ScriptureDone,
	}, nil
}
