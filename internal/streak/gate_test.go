package streak

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/ritual/internal/model"
	"github.com/roach88/ritual/internal/testutil"
)

func newTestGate(t *testing.T, opts ...GateOption) (*Gate, *testutil.MemoryKV) {
	t.Helper()
	kv := testutil.NewMemoryKV()
	opts = append([]GateOption{WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))}, opts...)
	return NewGate(kv, opts...), kv
}

func TestGate_BothGoalsAdvanceStreak(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t)

	snap, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalRitual, true)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Streak.Count)
	assert.True(t, snap.Completion.RitualDone)
	assert.False(t, snap.Completion.ScriptureDone)

	snap, err = g.OnSubGoalChanged(ctx, d0, model.SubGoalScripture, true)
	require.NoError(t, err)
	assert.Equal(t, 1, snap.Streak.Count)
	assert.Equal(t, d0, snap.Streak.LastCompleted)

	state, err := g.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, snap.Streak, state)
}

func TestGate_NewDayStartsFresh(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t)

	_, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalRitual, true)
	require.NoError(t, err)
	_, err = g.OnSubGoalChanged(ctx, d0, model.SubGoalScripture, true)
	require.NoError(t, err)

	next := d0.AddDays(1)
	snap, err := g.OnSubGoalChanged(ctx, next, model.SubGoalScripture, true)
	require.NoError(t, err)

	assert.Equal(t, model.DailyCompletion{Date: next, ScriptureDone: true}, snap.Completion)
	assert.Equal(t, 1, snap.Streak.Count, "scripture alone must not advance")
	assert.Equal(t, d0, snap.Streak.LastCompleted)

	snap, err = g.OnSubGoalChanged(ctx, next, model.SubGoalRitual, true)
	require.NoError(t, err)
	assert.Equal(t, 2, snap.Streak.Count)
}

func TestGate_UndoDoesNotUncount(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t)

	_, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalRitual, true)
	require.NoError(t, err)
	_, err = g.OnSubGoalChanged(ctx, d0, model.SubGoalScripture, true)
	require.NoError(t, err)

	snap, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalScripture, false)
	require.NoError(t, err)
	assert.False(t, snap.Completion.ScriptureDone)
	assert.Equal(t, 1, snap.Streak.Count)
	assert.Equal(t, d0, snap.Streak.LastCompleted)
}

func TestGate_EarlierDateKeepsCurrentRecord(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t)

	_, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalRitual, true)
	require.NoError(t, err)

	_, err = g.OnSubGoalChanged(ctx, d0.AddDays(-1), model.SubGoalRitual, true)
	require.ErrorIs(t, err, ErrDateBehind)
	_, err = g.Rollover(ctx, d0.AddDays(-1))
	require.ErrorIs(t, err, ErrDateBehind)

	snap, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalScripture, true)
	require.NoError(t, err)
	assert.Equal(t, model.DailyCompletion{Date: d0, RitualDone: true, ScriptureDone: true}, snap.Completion)
	assert.Equal(t, 1, snap.Streak.Count)
	assert.Equal(t, d0, snap.Streak.LastCompleted)
}

func TestGate_AwardsFreezeOnMilestone(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t, WithPolicy(Policy{FreezeEvery: 3, MaxFreeze: 1}))

	var snap Snapshot
	var err error
	for i := 0; i < 6; i++ {
		day := d0.AddDays(i)
		_, err = g.OnSubGoalChanged(ctx, day, model.SubGoalRitual, true)
		require.NoError(t, err)
		snap, err = g.OnSubGoalChanged(ctx, day, model.SubGoalScripture, true)
		require.NoError(t, err)
		if i == 2 {
			assert.True(t, snap.Awarded)
			assert.Equal(t, 1, snap.Streak.FreezeTokens)
		}
	}

	assert.Equal(t, 6, snap.Streak.Count)
	assert.False(t, snap.Awarded, "cap reached")
	assert.Equal(t, 1, snap.Streak.FreezeTokens)
}

func TestGate_FreezeCarriesStreakAcrossMissedDay(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGate(t, WithPolicy(Policy{}))

	seed, err := encodeStreak(model.StreakState{Count: 5, FreezeTokens: 1, LastCompleted: d0.AddDays(-2)})
	require.NoError(t, err)
	kv.Raw(KeyStreakState, seed)

	_, err = g.OnSubGoalChanged(ctx, d0, model.SubGoalRitual, true)
	require.NoError(t, err)
	snap, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalScripture, true)
	require.NoError(t, err)

	assert.Equal(t, 6, snap.Streak.Count)
	assert.Equal(t, 0, snap.Streak.FreezeTokens)
	assert.Equal(t, d0, snap.Streak.LastCompleted)
}

func TestGate_Rollover(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGate(t, WithPolicy(Policy{}))

	seed, err := encodeStreak(model.StreakState{Count: 8, LastCompleted: d0.AddDays(-3)})
	require.NoError(t, err)
	kv.Raw(KeyStreakState, seed)

	snap, err := g.Rollover(ctx, d0)
	require.NoError(t, err)
	assert.Equal(t, 0, snap.Streak.Count)
	assert.Equal(t, d0.AddDays(-3), snap.Streak.LastCompleted)
	assert.Equal(t, model.DailyCompletion{Date: d0}, snap.Completion)
}

func TestGate_MalformedPersistedDateIsNoPriorCompletion(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGate(t)
	kv.Raw(KeyStreakState, []byte(`{"v":"1","count":4,"freeze_tokens":0,"last_completed":"31/12/2025"}`))

	_, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalRitual, true)
	require.NoError(t, err)
	snap, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalScripture, true)
	require.NoError(t, err)

	assert.Equal(t, 1, snap.Streak.Count)
	assert.Equal(t, d0, snap.Streak.LastCompleted)
}

func TestGate_CorruptRecordIsError(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGate(t)
	kv.Raw(KeyStreakState, []byte(`{not json`))

	_, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalRitual, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode streak state")
}

func TestGate_StoreErrorsPropagate(t *testing.T) {
	ctx := context.Background()
	g, kv := newTestGate(t)
	kv.PutErr = errors.New("disk full")

	_, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalRitual, true)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
}

func TestGate_RejectsBadInput(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t)

	_, err := g.OnSubGoalChanged(ctx, model.Date{}, model.SubGoalRitual, true)
	assert.Error(t, err)

	_, err = g.OnSubGoalChanged(ctx, d0, model.SubGoal("sleep"), true)
	assert.Error(t, err)
}

func TestGate_Reset(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t)

	_, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalRitual, true)
	require.NoError(t, err)
	_, err = g.OnSubGoalChanged(ctx, d0, model.SubGoalScripture, true)
	require.NoError(t, err)

	require.NoError(t, g.Reset(ctx))
	state, err := g.State(ctx)
	require.NoError(t, err)
	assert.Equal(t, model.StreakState{}, state)
}

func TestGate_Completion(t *testing.T) {
	ctx := context.Background()
	g, _ := newTestGate(t)

	_, err := g.OnSubGoalChanged(ctx, d0, model.SubGoalScripture, true)
	require.NoError(t, err)

	c, err := g.Completion(ctx, d0)
	require.NoError(t, err)
	assert.True(t, c.ScriptureDone)

	c, err = g.Completion(ctx, d0.AddDays(1))
	require.NoError(t, err)
	assert.Equal(t, model.DailyCompletion{Date: d0.AddDays(1)}, c)
}
