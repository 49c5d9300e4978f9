package metrics

import (
	"fmt"
	"time"

	"github.com/icodeforyou/rceprices-go/calc"
	"github.com/icodeforyou/rceprices-go/convert"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/slice"
	"github.com/icodeforyou/rceprices-go/types"
	"github.com/icodeforyou/rceprices-go/types/maybe"
)

type SlotKind string

const (
	SlotsHourly  SlotKind = "hourly"
	SlotsQuarter SlotKind = "quarter"
)

func ParseSlotKind(s string) (SlotKind, error) {
	switch SlotKind(s) {
	case SlotsHourly, SlotsQuarter:
		return SlotKind(s), nil
	default:
		return "", fmt.Errorf("unknown slot kind %q", s)
	}
}

type Slot struct {
	Key   string               `json:"key"`
	Start time.Time            `json:"start"`
	Price maybe.Maybe[float64] `json:"price"`
}

// Slots returns per hour averages (H00..H23) or per quarter prices (HH:MM) of
// today, or of tomorrow when requested and published.
func (e *Evaluator) Slots(tomorrow bool, kind SlotKind) []Slot {
	date, day := hours.Today(e.now), e.today
	if tomorrow {
		date, day = hours.Tomorrow(e.now), e.tomorrow
	}
	midnight, err := hours.ParseDate(date)
	if err != nil {
		return nil
	}

	if kind == SlotsHourly {
		slots := make([]Slot, 0, 24)
		for h := range 24 {
			start := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h, 0, 0, 0, hours.Warsaw())
			inHour := slice.Filter(day, func(r types.PriceRecord) bool { return r.PeriodStart.Hour() == h })
			price := maybe.None[float64]()
			if avg, err := calc.Average(calc.PricesFrom(inHour)); err == nil {
				price = maybe.Some(convert.TwoDecimals(avg))
			}
			slots = append(slots, Slot{
				Key:   hours.FromTime(start).Key(),
				Start: start,
				Price: price,
			})
		}
		return slots
	}

	slots := make([]Slot, 0, 96)
	for q := range 96 {
		start := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), q/4, q%4*15, 0, 0, hours.Warsaw())
		slots = append(slots, Slot{
			Key:   start.Format(hours.ClockLayout),
			Start: start,
			Price: quarterPrice(day, start),
		})
	}
	return slots
}

// quarterPrice finds the record the quarter starts in, so hourly records fill
// all four of their quarters.
func quarterPrice(day []types.PriceRecord, start time.Time) maybe.Maybe[float64] {
	r, ok := slice.Find(day, func(r types.PriceRecord) bool {
		return !start.Before(r.PeriodStart) && start.Before(r.PeriodEnd)
	})
	if !ok {
		return maybe.None[float64]()
	}
	return maybe.Some(convert.TwoDecimals(r.Price))
}
