package types

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPriceRecord(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	r, err := NewPriceRecord(start, start.Add(15*time.Minute), "2025-03-01", -12.5)
	require.NoError(t, err)
	assert.Equal(t, -12.5, r.Price)
	assert.Equal(t, 0.0, r.PriceFloorZero)
	assert.Equal(t, 15*time.Minute, r.Granularity())
	assert.True(t, r.Covers(start))
	assert.True(t, r.Covers(start.Add(15*time.Minute)))
	assert.False(t, r.Covers(start.Add(16*time.Minute)))

	_, err = NewPriceRecord(start, start, "2025-03-01", 1)
	assert.Error(t, err)
}

func TestDaySliceOf(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	mk := func(offset int, date string) PriceRecord {
		s := base.Add(time.Duration(offset) * 15 * time.Minute)
		r, err := NewPriceRecord(s, s.Add(15*time.Minute), date, float64(offset))
		require.NoError(t, err)
		return r
	}

	records := []PriceRecord{mk(2, "2025-03-01"), mk(100, "2025-03-02"), mk(0, "2025-03-01"), mk(1, "2025-03-01")}
	day := DaySliceOf(records, "2025-03-01")

	require.Len(t, day, 3)
	assert.Equal(t, []float64{0, 1, 2}, []float64{day[0].Price, day[1].Price, day[2].Price})
	assert.Empty(t, DaySliceOf(records, "2025-03-03"))
}
