package types

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/icodeforyou/rceprices-go/slice"
)

// PriceRecord is one market interval, 15 minutes for raw data or one hour when aggregated.
type PriceRecord struct {
	PeriodStart    time.Time
	PeriodEnd      time.Time
	BusinessDate   string
	Price          float64 // PLN/MWh, may be negative
	PriceFloorZero float64
	PublishedAt    time.Time
}

func NewPriceRecord(start, end time.Time, businessDate string, price float64) (PriceRecord, error) {
	if !start.Before(end) {
		return PriceRecord{}, fmt.Errorf("period start %s is not before end %s", start, end)
	}
	return PriceRecord{
		PeriodStart:    start,
		PeriodEnd:      end,
		BusinessDate:   businessDate,
		Price:          price,
		PriceFloorZero: max(0, price),
	}, nil
}

func (r PriceRecord) Granularity() time.Duration {
	return r.PeriodEnd.Sub(r.PeriodStart)
}

// Covers reports whether t falls inside the record, both ends inclusive.
func (r PriceRecord) Covers(t time.Time) bool {
	return !t.Before(r.PeriodStart) && !t.After(r.PeriodEnd)
}

// DaySliceOf returns the records of one business date ordered by period start.
func DaySliceOf(records []PriceRecord, businessDate string) []PriceRecord {
	day := slice.Filter(records, func(r PriceRecord) bool { return r.BusinessDate == businessDate })
	sort.SliceStable(day, func(i, j int) bool {
		return day[i].PeriodStart.Before(day[j].PeriodStart)
	})
	return day
}

// PriceSlot is one future chargeable interval.
type PriceSlot struct {
	Start time.Time
	Price float64
}

type PriceRecordProvider interface {
	GetPriceRecords(ctx context.Context) ([]PriceRecord, error)
}
