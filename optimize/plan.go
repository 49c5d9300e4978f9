package optimize

import (
	"fmt"
	"time"

	"github.com/icodeforyou/rceprices-go/convert"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/types"
	"github.com/icodeforyou/rceprices-go/types/maybe"
)

const quarter = 15 * time.Minute

// SlotsFrom turns the records of today and tomorrow into 15 minute slots,
// starting with the quarter now falls in. Hourly records are split into four
// slots and the quarters of the current hour that already ended are dropped.
func SlotsFrom(records []types.PriceRecord, now time.Time) []types.PriceSlot {
	today, tomorrow := hours.Today(now), hours.Tomorrow(now)
	from := hours.QuarterStart(now)

	slots := make([]types.PriceSlot, 0, len(records))
	for _, r := range records {
		if r.BusinessDate != today && r.BusinessDate != tomorrow {
			continue
		}
		if !r.PeriodEnd.After(from) {
			continue
		}
		n := max(1, int(r.Granularity()/quarter))
		for k := range n {
			start := r.PeriodStart.Add(time.Duration(k) * quarter)
			if start.Before(from) {
				continue
			}
			slots = append(slots, types.PriceSlot{Start: start, Price: r.Price})
		}
	}
	return slots
}

type Result struct {
	Metadata
	Threshold            maybe.Maybe[float64] `json:"threshold"`
	BatteryEnergyKWh     float64              `json:"battery_energy_kwh"`
	PVForecastKWh        float64              `json:"pv_forecast_kwh"`
	DailyConsumptionKWh  float64              `json:"daily_consumption_kwh"`
	SoCPercent           float64              `json:"soc_pct"`
	AvailableCapacityKWh float64              `json:"available_capacity_kwh"`
	MaxEnergyBeforePVKWh float64              `json:"max_energy_before_pv_kwh"`
	MaxPerSlotKWh        float64              `json:"max_per_slot_kwh"`
	MaxSoCBeforePV       float64              `json:"max_soc_before_pv_pct"`
}

// Plan computes the buy threshold for the forward slots of records.
func Plan(records []types.PriceRecord, now time.Time, r Readings) (Result, error) {
	p := r.Params()
	if err := p.Validate(); err != nil {
		return Result{}, fmt.Errorf("derive threshold parameters: %w", err)
	}

	p.Tomorrow = hours.Tomorrow(now)
	threshold, meta := OptimalBuyThreshold(SlotsFrom(records, now), p)

	return Result{
		Metadata:             meta,
		Threshold:            maybe.Map(threshold, convert.TwoDecimals),
		BatteryEnergyKWh:     convert.ThreeDecimals(r.StoredKWh()),
		PVForecastKWh:        r.PVForecastKWh,
		DailyConsumptionKWh:  r.DailyConsumptionKWh,
		SoCPercent:           r.SoCPercent,
		AvailableCapacityKWh: convert.ThreeDecimals(r.AvailableCapacity()),
		MaxEnergyBeforePVKWh: convert.ThreeDecimals(p.MaxEnergyBeforePV),
		MaxPerSlotKWh:        convert.ThreeDecimals(p.MaxPerSlot),
		MaxSoCBeforePV:       convert.TwoDecimals(r.ToPercentage(p.MaxEnergyBeforePV)),
	}, nil
}
