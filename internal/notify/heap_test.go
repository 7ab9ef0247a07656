package notify

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/roach88/ritual/internal/model"
)

func TestPendingHeap_Ordering(t *testing.T) {
	base := time.Date(2026, 10, 17, 5, 0, 0, 0, time.UTC)
	h := newPendingHeap([]model.Registered{
		{ID: "c", At: base.Add(2 * time.Hour)},
		{ID: "b", At: base},
		{ID: "a", At: base},
		{ID: "d", At: base.Add(time.Hour)},
	})

	var got []string
	for h.Len() > 0 {
		got = append(got, popDue(h).ID)
	}
	assert.Equal(t, []string{"a", "b", "d", "c"}, got)
}

func TestPendingHeap_Empty(t *testing.T) {
	h := newPendingHeap(nil)
	assert.Equal(t, 0, h.Len())
}
