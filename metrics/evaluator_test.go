package metrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/optimize"
	"github.com/icodeforyou/rceprices-go/types"
)

func dayRecords(t *testing.T, date string, price func(q int) float64) []types.PriceRecord {
	t.Helper()
	midnight, err := hours.ParseDate(date)
	require.NoError(t, err)
	records := make([]types.PriceRecord, 0, 96)
	for q := range 96 {
		start := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), q/4, q%4*15, 0, 0, hours.Warsaw())
		r, err := types.NewPriceRecord(start, start.Add(15*time.Minute), date, price(q))
		require.NoError(t, err)
		records = append(records, r)
	}
	return records
}

// Today rises from 100 by one per quarter with a cheap hour at 02:00 and an
// expensive one at 18:00. Tomorrow is flat at 200.
func fixture(t *testing.T) []types.PriceRecord {
	today := dayRecords(t, "2025-07-01", func(q int) float64 {
		switch {
		case q >= 8 && q < 12:
			return 10
		case q >= 72 && q < 76:
			return 500
		default:
			return float64(100 + q)
		}
	})
	tomorrow := dayRecords(t, "2025-07-02", func(int) float64 { return 200 })
	return append(tomorrow, today...)
}

func at(hour, minute int) time.Time {
	return time.Date(2025, time.July, 1, hour, minute, 0, 0, hours.Warsaw())
}

func evaluate(t *testing.T, e *Evaluator, m Metric) Value {
	t.Helper()
	v, err := e.Evaluate(m)
	require.NoError(t, err)
	return v
}

func TestEvaluatePrices(t *testing.T) {
	e := NewEvaluator(fixture(t), at(15, 7), DefaultWindows())

	tests := []struct {
		metric   Metric
		expected float64
	}{
		{TodayAvgPrice, 156.96},
		{TodayMinPrice, 10},
		{TodayMaxPrice, 500},
		{TodayCurrentPrice, 160},
		{TodayCurrentVsAverage, 1.9},
		{CurrentKWhPrice, 0.16},
		{CurrentGrossKWhPrice, 0.1968},
		{NextHourPrice, 164},
		{Next3HoursPrice, 500},
		{PreviousHourPrice, 156},
		{TomorrowAvgPrice, 200},
		{TomorrowMedianPrice, 200},
		{TomorrowVsTodayAverage, 27.4},
	}

	for _, tt := range tests {
		t.Run(tt.metric.String(), func(t *testing.T) {
			v := evaluate(t, e, tt.metric)
			require.True(t, v.Value.IsValid())
			assert.InDelta(t, tt.expected, v.Value.Value(), 1e-9)
		})
	}
}

func TestEvaluateRanges(t *testing.T) {
	e := NewEvaluator(fixture(t), at(15, 7), DefaultWindows())

	tests := []struct {
		metric   Metric
		expected string
	}{
		{TodayMinPriceHourStart, "02:00"},
		{TodayMinPriceHourEnd, "03:00"},
		{TodayMinPriceRange, "02:00 - 03:00"},
		{TodayMaxPriceRange, "18:00 - 19:00"},
		{TodayCheapestWindowRange, "01:00 - 03:00"},
		{TodayExpensiveWindowStart, "18:00"},
		{TodayMorningPeakWindow, "08:00 - 09:00"},
		{TodayEveningPeakWindow, "18:00 - 19:00"},
		{TomorrowMinPriceRange, "00:00 - 00:00"},
	}

	for _, tt := range tests {
		t.Run(tt.metric.String(), func(t *testing.T) {
			assert.Equal(t, tt.expected, evaluate(t, e, tt.metric).Text)
		})
	}

	peak := evaluate(t, e, TodayMorningPeakWindow)
	assert.InDelta(t, 133.5, peak.Value.Value(), 1e-9)
}

func TestWindowActive(t *testing.T) {
	tests := []struct {
		name     string
		now      time.Time
		metric   Metric
		expected bool
	}{
		{"inside max window", at(18, 30), TodayMaxPriceWindowActive, true},
		{"window end is inclusive", at(19, 0), TodayMaxPriceWindowActive, true},
		{"outside max window", at(15, 7), TodayMaxPriceWindowActive, false},
		{"inside min window", at(2, 15), TodayMinPriceWindowActive, true},
		{"inside cheapest window", at(1, 30), TodayCheapestWindowActive, true},
		{"outside cheapest window", at(4, 0), TodayCheapestWindowActive, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := evaluate(t, NewEvaluator(fixture(t), tt.now, DefaultWindows()), tt.metric)
			require.NotNil(t, v.Active)
			assert.Equal(t, tt.expected, *v.Active)
		})
	}
}

func TestTomorrowHiddenBeforeAfternoon(t *testing.T) {
	e := NewEvaluator(fixture(t), at(13, 59), DefaultWindows())

	assert.False(t, e.TomorrowAvailable())
	assert.Empty(t, e.Tomorrow())
	assert.False(t, evaluate(t, e, TomorrowAvgPrice).Value.IsValid())
	assert.False(t, evaluate(t, e, TomorrowVsTodayAverage).Value.IsValid())
	assert.Empty(t, evaluate(t, e, TomorrowCheapestWindowRange).Text)
}

func TestEvaluateEmpty(t *testing.T) {
	e := NewEvaluator(nil, at(15, 0), DefaultWindows())

	for _, v := range e.All() {
		assert.False(t, v.Value.IsValid(), v.Metric)
		assert.Empty(t, v.Text, v.Metric)
		assert.Nil(t, v.Attributes["error"], v.Metric)
	}
}

func TestUnknownMetric(t *testing.T) {
	_, err := NewEvaluator(nil, at(15, 0), DefaultWindows()).Evaluate("nope")
	assert.ErrorIs(t, err, ErrUnknownMetric)

	_, ok := Parse("today_avg_price")
	assert.True(t, ok)
	_, ok = Parse("today_average")
	assert.False(t, ok)
}

func TestInvalidBandIsReported(t *testing.T) {
	w := DefaultWindows()
	w.Cheapest.End = 30
	e := NewEvaluator(fixture(t), at(15, 7), w)

	_, err := e.Evaluate(TodayCheapestWindowStart)
	assert.Error(t, err)

	for _, v := range e.All() {
		if v.Metric == TodayCheapestWindowStart {
			assert.NotNil(t, v.Attributes["error"])
		}
	}
}

func TestOptimalBuyThreshold(t *testing.T) {
	e := NewEvaluator(fixture(t), at(15, 7), DefaultWindows())
	assert.False(t, evaluate(t, e, OptimalBuyThreshold).Value.IsValid())

	e.WithReadings(optimize.Readings{
		Battery:             optimize.Battery{CapacityKWh: 10},
		DailyConsumptionKWh: 1,
		MaxGridPowerKW:      10,
		MaxChargingPowerKW:  4,
		PVStartHour:         7,
		PVEndHour:           19,
	})
	v := evaluate(t, e, OptimalBuyThreshold)
	require.True(t, v.Value.IsValid())
	assert.Equal(t, 160.0, v.Value.Value())
	assert.Equal(t, "ok", v.Text)
	assert.Equal(t, 1, v.Attributes["slots_allocated"])
}

func TestSlots(t *testing.T) {
	e := NewEvaluator(fixture(t), at(15, 7), DefaultWindows())

	hourly := e.Slots(false, SlotsHourly)
	require.Len(t, hourly, 24)
	assert.Equal(t, "H00", hourly[0].Key)
	assert.Equal(t, 101.5, hourly[0].Price.Value())
	assert.Equal(t, 10.0, hourly[2].Price.Value())
	assert.Equal(t, 500.0, hourly[18].Price.Value())

	quarter := e.Slots(true, SlotsQuarter)
	require.Len(t, quarter, 96)
	assert.Equal(t, "23:45", quarter[95].Key)
	assert.Equal(t, 200.0, quarter[95].Price.Value())
}

func TestQuarterSlotsFromHourlyRecords(t *testing.T) {
	midnight := at(0, 0)
	r, err := types.NewPriceRecord(midnight, midnight.Add(time.Hour), "2025-07-01", 42)
	require.NoError(t, err)

	quarter := NewEvaluator([]types.PriceRecord{r}, at(12, 0), DefaultWindows()).Slots(false, SlotsQuarter)
	for _, s := range quarter[:4] {
		assert.Equal(t, 42.0, s.Price.Value(), s.Key)
	}
	assert.False(t, quarter[4].Price.IsValid())
}
