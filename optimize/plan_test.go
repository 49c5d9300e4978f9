package optimize

import (
	"testing"
	"time"

	"github.com/icodeforyou/rceprices-go/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBattery(t *testing.T) {
	b := Battery{CapacityKWh: 10, SoCPercent: 40}
	assert.True(t, almostEqual(b.StoredKWh(), 4))
	assert.True(t, almostEqual(b.AvailableCapacity(), 6))
	assert.True(t, almostEqual(b.ToPercentage(2.5), 25))
	assert.Equal(t, 0.0, Battery{}.ToPercentage(1))
}

func TestReadingsParams(t *testing.T) {
	r := Readings{
		Battery:             Battery{CapacityKWh: 10, SoCPercent: 20},
		PVForecastKWh:       6,
		DailyConsumptionKWh: 15,
		MaxGridPowerKW:      8,
		MaxChargingPowerKW:  5,
		PVStartHour:         7,
		PVEndHour:           19,
	}

	p := r.Params()
	assert.True(t, almostEqual(p.EnergyToBuy, 7))
	assert.True(t, almostEqual(p.MaxPerSlot, 1.25))
	assert.True(t, almostEqual(p.MaxEnergyBeforePV, 4))
	assert.Equal(t, 6.0, p.PVForecast)

	r.PVForecastKWh = 30
	assert.Equal(t, 0.0, r.Params().MaxEnergyBeforePV)
}

func hourlyRecords(t *testing.T, day time.Time, date string, prices ...float64) []types.PriceRecord {
	t.Helper()
	out := make([]types.PriceRecord, 0, len(prices))
	for i, p := range prices {
		start := day.Add(time.Duration(i) * time.Hour)
		r, err := types.NewPriceRecord(start, start.Add(time.Hour), date, p)
		require.NoError(t, err)
		out = append(out, r)
	}
	return out
}

func TestSlotsFrom(t *testing.T) {
	recs := hourlyRecords(t, today, "2025-06-10", 1, 2, 3)
	now := at(0, 1, 20)

	slots := SlotsFrom(recs, now)
	require.Len(t, slots, 7, "rest of the current hour and the next hour in quarters")
	assert.Equal(t, at(0, 1, 15), slots[0].Start, "the running quarter is included")
	assert.Equal(t, at(0, 1, 45), slots[2].Start)
	assert.Equal(t, at(0, 2, 0), slots[3].Start)
	assert.Equal(t, 3.0, slots[6].Price)

	slots = SlotsFrom(hourlyRecords(t, today, "2025-06-10", 5), at(0, 0, 0))
	require.Len(t, slots, 4)

	old := hourlyRecords(t, today.AddDate(0, 0, -1), "2025-06-09", 1)
	assert.Empty(t, SlotsFrom(old, now))
}

func TestSlotsFromSkipsEndedQuartersOfHourlyRecords(t *testing.T) {
	recs := hourlyRecords(t, today, "2025-06-10", 500, 1, 400, 300)
	now := at(0, 1, 50)

	slots := SlotsFrom(recs, now)
	require.Len(t, slots, 9)
	assert.Equal(t, at(0, 1, 45), slots[0].Start)
	assert.Equal(t, 1.0, slots[0].Price)
	for _, s := range slots {
		assert.False(t, s.Start.Before(at(0, 1, 45)), "slot %s already ended", s.Start)
	}

	threshold, meta := OptimalBuyThreshold(slots, noPV(4, 1))
	assert.Equal(t, StatusOK, meta.Status)
	assert.Equal(t, 4, meta.SlotsAllocated)
	assert.Equal(t, 300.0, threshold.Value(), "only one cheap quarter is left")
}

func TestPlan(t *testing.T) {
	prices := make([]float64, 24)
	for i := range prices {
		prices[i] = float64(100 + i)
	}
	prices[22] = 10
	prices[23] = 20
	recs := hourlyRecords(t, today, "2025-06-10", prices...)

	r := Readings{
		Battery:             Battery{CapacityKWh: 10, SoCPercent: 50},
		DailyConsumptionKWh: 7,
		MaxGridPowerKW:      4,
		MaxChargingPowerKW:  4,
		PVStartHour:         7,
		PVEndHour:           19,
	}

	res, err := Plan(recs, at(0, 21, 5), r)
	require.NoError(t, err)
	assert.Equal(t, StatusOK, res.Status)
	assert.Equal(t, 12, res.EligibleSlots)
	assert.Equal(t, 2, res.SlotsAllocated)
	assert.Equal(t, 10.0, res.Threshold.Value())
	assert.Equal(t, 5.0, res.BatteryEnergyKWh)
	assert.Equal(t, 1.0, res.MaxPerSlotKWh)
	assert.Equal(t, 10.0, res.MaxEnergyBeforePVKWh)
	assert.Equal(t, 5.0, res.AvailableCapacityKWh)
	assert.Equal(t, 100.0, res.MaxSoCBeforePV)

	r.MaxChargingPowerKW = -1
	_, err = Plan(recs, at(0, 21, 5), r)
	assert.ErrorIs(t, err, ErrInvalidParams)
}
