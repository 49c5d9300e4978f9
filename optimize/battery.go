package optimize

import (
	"github.com/icodeforyou/rceprices-go/convert"
)

type Battery struct {
	CapacityKWh float64 // Usable battery capacity in kWh
	SoCPercent  float64 // Current state of charge in percentage
}

// Returns the battery level in kWh for a given percentage
func (b Battery) ToKWh(percentage float64) float64 {
	return percentage / 100.0 * b.CapacityKWh
}

// Returns the battery level in percentage for a given kWh
func (b Battery) ToPercentage(kWh float64) float64 {
	if b.CapacityKWh == 0 {
		return 0
	}
	return kWh / b.CapacityKWh * 100.0
}

func (b Battery) StoredKWh() float64 {
	return b.ToKWh(b.SoCPercent)
}

// Returns the space available for charging in kWh
func (b Battery) AvailableCapacity() float64 {
	return max(0, b.CapacityKWh-b.StoredKWh())
}

// Readings are the external inputs the threshold depends on.
type Readings struct {
	Battery
	PVForecastKWh       float64 // Expected PV production tomorrow
	DailyConsumptionKWh float64 // Expected consumption until PV covers demand
	MaxGridPowerKW      float64
	MaxChargingPowerKW  float64
	PVStartHour         int
	PVEndHour           int
}

// Params derives the allocator input: what is missing after PV and the battery
// content, how much a single quarter can deliver and how much room PV needs.
func (r Readings) Params() ThresholdParams {
	return ThresholdParams{
		EnergyToBuy:       r.DailyConsumptionKWh - r.PVForecastKWh - r.StoredKWh(),
		MaxPerSlot:        convert.KWToQuarterKWh(min(r.MaxChargingPowerKW, r.MaxGridPowerKW)),
		MaxEnergyBeforePV: r.CapacityKWh - min(r.PVForecastKWh, r.CapacityKWh),
		PVForecast:        r.PVForecastKWh,
		PVStartHour:       r.PVStartHour,
		PVEndHour:         r.PVEndHour,
	}
}
