package optimize

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"sort"

	"github.com/icodeforyou/rceprices-go/convert"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/types"
	"github.com/icodeforyou/rceprices-go/types/maybe"
)

var ErrInvalidParams = errors.New("invalid threshold parameters")

type ThresholdParams struct {
	EnergyToBuy       float64 // Net energy needed from the grid in kWh
	MaxPerSlot        float64 // Max energy per 15 minute slot in kWh
	MaxEnergyBeforePV float64 // Cap on energy bought before PV starts in kWh
	PVForecast        float64 // Expected PV production tomorrow in kWh
	PVStartHour       int
	PVEndHour         int
	// Tomorrow is the YYYY-MM-DD date PV exclusion applies to. When empty it is
	// inferred as the latest slot date, provided the slots span two dates.
	Tomorrow string
}

func (p ThresholdParams) Validate() error {
	for name, v := range map[string]float64{
		"energy to buy":        p.EnergyToBuy,
		"max per slot":         p.MaxPerSlot,
		"max energy before pv": p.MaxEnergyBeforePV,
		"pv forecast":          p.PVForecast,
	} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("%w: %s is not a finite number", ErrInvalidParams, name)
		}
	}
	if p.MaxPerSlot < 0 {
		return fmt.Errorf("%w: negative max per slot %f", ErrInvalidParams, p.MaxPerSlot)
	}
	if p.MaxEnergyBeforePV < 0 {
		return fmt.Errorf("%w: negative max energy before pv %f", ErrInvalidParams, p.MaxEnergyBeforePV)
	}
	if p.PVStartHour < 0 || p.PVEndHour > 24 || p.PVStartHour > p.PVEndHour {
		return fmt.Errorf("%w: pv hours [%d, %d)", ErrInvalidParams, p.PVStartHour, p.PVEndHour)
	}
	return nil
}

type Metadata struct {
	Status             Status               `json:"status"`
	EnergyToBuyKWh     float64              `json:"energy_to_buy_kwh"`
	EligibleSlots      int                  `json:"eligible_slots_count"`
	SlotsAllocated     int                  `json:"slots_allocated"`
	Threshold          maybe.Maybe[float64] `json:"threshold_price"`
	EnergyRemainingKWh float64              `json:"energy_remaining_kwh"`
}

type candidate struct {
	types.PriceSlot
	prePV bool
}

// OptimalBuyThreshold walks the cheapest eligible slots until the energy need is
// covered and returns the price of the last slot it had to use. Tomorrow's PV
// hours are never eligible when PV is forecast, and energy bought before PV
// starts is capped at MaxEnergyBeforePV.
func OptimalBuyThreshold(slots []types.PriceSlot, p ThresholdParams) (maybe.Maybe[float64], Metadata) {
	meta := Metadata{
		EnergyToBuyKWh:     convert.ThreeDecimals(p.EnergyToBuy),
		Threshold:          maybe.None[float64](),
		EnergyRemainingKWh: convert.ThreeDecimals(max(0, p.EnergyToBuy)),
	}

	if p.EnergyToBuy <= 0 {
		meta.Status = StatusNoPurchaseNeeded
		return meta.Threshold, meta
	}

	if len(slots) == 0 {
		meta.Status = StatusInsufficientData
		return meta.Threshold, meta
	}

	tomorrow := p.Tomorrow
	if tomorrow == "" {
		tomorrow = tomorrowDate(slots)
	}

	var pre, post []candidate
	for _, s := range slots {
		isTomorrow := tomorrow != "" && s.Start.Format(hours.DateLayout) == tomorrow
		h := s.Start.Hour()
		switch {
		case isTomorrow && p.PVForecast > 0 && h >= p.PVStartHour && h < p.PVEndHour:
			// served by PV
		case isTomorrow && h >= p.PVEndHour:
			post = append(post, candidate{PriceSlot: s})
		default:
			pre = append(pre, candidate{PriceSlot: s, prePV: true})
		}
	}

	eligible := append(pre, post...)
	sort.SliceStable(eligible, func(i, j int) bool {
		return eligible[i].Price < eligible[j].Price
	})
	meta.EligibleSlots = len(eligible)

	if len(eligible) == 0 {
		meta.Status = StatusWindowTooSmall
		return meta.Threshold, meta
	}

	remaining := p.EnergyToBuy
	boughtPrePV := 0.0
	for _, c := range eligible {
		if remaining <= 0 {
			break
		}
		if c.prePV && boughtPrePV >= p.MaxEnergyBeforePV {
			continue
		}

		take := min(p.MaxPerSlot, remaining)
		if c.prePV {
			take = min(take, p.MaxEnergyBeforePV-boughtPrePV)
		}
		if take <= 0 {
			continue
		}

		remaining -= take
		if c.prePV {
			boughtPrePV += take
		}
		meta.SlotsAllocated++
		meta.Threshold = maybe.Some(c.Price)
	}

	meta.Status = StatusOK
	meta.EnergyRemainingKWh = convert.ThreeDecimals(max(0, remaining))
	return meta.Threshold, meta
}

// tomorrowDate is the latest date among the slots, or "" when they all share one date.
func tomorrowDate(slots []types.PriceSlot) string {
	dates := make([]string, 0, 2)
	for _, s := range slots {
		d := s.Start.Format(hours.DateLayout)
		if !slices.Contains(dates, d) {
			dates = append(dates, d)
		}
	}
	if len(dates) < 2 {
		return ""
	}
	return slices.Max(dates)
}
