package optimize

import (
	"math"
	"testing"
	"time"

	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) <= 1e-9
}

var today = time.Date(2025, time.June, 10, 0, 0, 0, 0, hours.Warsaw())

func at(day, hour, minute int) time.Time {
	return today.AddDate(0, 0, day).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

func noPV(energy, perSlot float64) ThresholdParams {
	return ThresholdParams{
		EnergyToBuy:       energy,
		MaxPerSlot:        perSlot,
		MaxEnergyBeforePV: 1000,
		PVStartHour:       7,
		PVEndHour:         19,
	}
}

func TestGreedyPicksCheapestSlots(t *testing.T) {
	slots := []types.PriceSlot{
		{Start: at(0, 20, 0), Price: 5},
		{Start: at(0, 20, 15), Price: 1},
		{Start: at(0, 20, 30), Price: 3},
	}

	threshold, meta := OptimalBuyThreshold(slots, noPV(2, 1))

	require.True(t, threshold.IsValid())
	assert.Equal(t, 3.0, threshold.Value())
	assert.Equal(t, StatusOK, meta.Status)
	assert.Equal(t, 3, meta.EligibleSlots)
	assert.Equal(t, 2, meta.SlotsAllocated)
	assert.Equal(t, 0.0, meta.EnergyRemainingKWh)
	assert.Equal(t, 3.0, meta.Threshold.Value())
}

func TestPartialSlotAndRemainingEnergy(t *testing.T) {
	slots := []types.PriceSlot{
		{Start: at(0, 1, 0), Price: 10},
		{Start: at(0, 2, 0), Price: 20},
	}

	threshold, meta := OptimalBuyThreshold(slots, noPV(1.5, 1))
	assert.Equal(t, 20.0, threshold.Value(), "half of the second slot still makes it marginal")
	assert.Equal(t, 2, meta.SlotsAllocated)

	threshold, meta = OptimalBuyThreshold(slots, noPV(3.25, 1))
	assert.Equal(t, 20.0, threshold.Value())
	assert.Equal(t, StatusOK, meta.Status)
	assert.True(t, almostEqual(meta.EnergyRemainingKWh, 1.25))
	assert.Equal(t, 3.25, meta.EnergyToBuyKWh)
}

func TestStableOrderOnEqualPrices(t *testing.T) {
	p := noPV(1, 1)
	p.MaxEnergyBeforePV = 0

	// Both cost the same, the pre-PV one comes first and is skipped by the cap.
	slots := []types.PriceSlot{
		{Start: at(0, 22, 0), Price: 7},
		{Start: at(1, 20, 0), Price: 7},
	}
	threshold, meta := OptimalBuyThreshold(slots, p)
	assert.Equal(t, 7.0, threshold.Value())
	assert.Equal(t, 1, meta.SlotsAllocated)
}

func TestShortCircuits(t *testing.T) {
	slots := []types.PriceSlot{{Start: at(0, 1, 0), Price: 10}}

	tests := []struct {
		name   string
		slots  []types.PriceSlot
		energy float64
		want   Status
	}{
		{"zero energy", slots, 0, StatusNoPurchaseNeeded},
		{"negative energy", slots, -3, StatusNoPurchaseNeeded},
		{"no slots", nil, 5, StatusInsufficientData},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			threshold, meta := OptimalBuyThreshold(tt.slots, noPV(tt.energy, 1))
			assert.False(t, threshold.IsValid())
			assert.False(t, meta.Threshold.IsValid())
			assert.Equal(t, tt.want, meta.Status)
			assert.Equal(t, 0, meta.SlotsAllocated)
			assert.Equal(t, 0, meta.EligibleSlots)
		})
	}
}

func TestPVWindowExclusion(t *testing.T) {
	slots := []types.PriceSlot{
		{Start: at(0, 23, 45), Price: 50},
		{Start: at(1, 8, 0), Price: 1},
		{Start: at(1, 12, 0), Price: 2},
		{Start: at(1, 20, 0), Price: 40},
	}
	p := noPV(2, 1)
	p.PVForecast = 10

	threshold, meta := OptimalBuyThreshold(slots, p)
	assert.Equal(t, StatusOK, meta.Status)
	assert.Equal(t, 2, meta.EligibleSlots)
	assert.Equal(t, 50.0, threshold.Value())

	// Without a PV forecast tomorrow's daylight is eligible again.
	p.PVForecast = 0
	threshold, meta = OptimalBuyThreshold(slots, p)
	assert.Equal(t, 4, meta.EligibleSlots)
	assert.Equal(t, 2.0, threshold.Value())
}

func TestSingleDateHasNoTomorrow(t *testing.T) {
	slots := []types.PriceSlot{
		{Start: at(1, 9, 0), Price: 1},
		{Start: at(1, 10, 0), Price: 2},
	}
	p := noPV(2, 1)
	p.PVForecast = 5

	threshold, meta := OptimalBuyThreshold(slots, p)
	assert.Equal(t, StatusOK, meta.Status)
	assert.Equal(t, 2, meta.EligibleSlots)
	assert.Equal(t, 2.0, threshold.Value())
}

func TestWindowTooSmall(t *testing.T) {
	slots := []types.PriceSlot{
		{Start: at(1, 9, 0), Price: 1},
		{Start: at(1, 10, 0), Price: 2},
	}
	p := noPV(2, 1)
	p.PVForecast = 5
	p.Tomorrow = at(1, 0, 0).Format(hours.DateLayout)

	threshold, meta := OptimalBuyThreshold(slots, p)
	assert.False(t, threshold.IsValid())
	assert.Equal(t, StatusWindowTooSmall, meta.Status)
	assert.Equal(t, 0, meta.EligibleSlots)
	assert.Equal(t, 2.0, meta.EnergyRemainingKWh)
}

func TestPrePVCap(t *testing.T) {
	slots := []types.PriceSlot{
		{Start: at(0, 22, 0), Price: 1},
		{Start: at(0, 22, 15), Price: 2},
		{Start: at(0, 22, 30), Price: 3},
		{Start: at(1, 20, 0), Price: 9},
	}
	p := noPV(3, 1)
	p.MaxEnergyBeforePV = 1.5

	threshold, meta := OptimalBuyThreshold(slots, p)
	require.True(t, threshold.IsValid())
	assert.Equal(t, 9.0, threshold.Value(), "cap forces the post-PV slot")
	assert.Equal(t, 3, meta.SlotsAllocated)
	assert.True(t, almostEqual(meta.EnergyRemainingKWh, 0.5))
}

func TestNothingAllocated(t *testing.T) {
	slots := []types.PriceSlot{{Start: at(0, 22, 0), Price: 1}}
	p := noPV(3, 1)
	p.MaxEnergyBeforePV = 0

	threshold, meta := OptimalBuyThreshold(slots, p)
	assert.False(t, threshold.IsValid())
	assert.Equal(t, StatusOK, meta.Status)
	assert.Equal(t, 3.0, meta.EnergyRemainingKWh)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, noPV(1, 1).Validate())

	bad := []ThresholdParams{
		{MaxPerSlot: -1, PVStartHour: 7, PVEndHour: 19},
		{MaxEnergyBeforePV: -1, PVStartHour: 7, PVEndHour: 19},
		{EnergyToBuy: math.NaN(), PVStartHour: 7, PVEndHour: 19},
		{PVForecast: math.Inf(1), PVStartHour: 7, PVEndHour: 19},
		{PVStartHour: 20, PVEndHour: 19},
		{PVStartHour: 7, PVEndHour: 25},
	}
	for _, p := range bad {
		assert.ErrorIs(t, p.Validate(), ErrInvalidParams)
	}
}

func TestStatus(t *testing.T) {
	assert.True(t, StatusWindowTooSmall.IsValid())
	assert.False(t, Status("bogus").IsValid())
	assert.Equal(t, "no_purchase_needed", StatusNoPurchaseNeeded.String())
}
