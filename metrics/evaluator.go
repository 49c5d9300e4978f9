package metrics

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/icodeforyou/rceprices-go/calc"
	"github.com/icodeforyou/rceprices-go/convert"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/optimize"
	"github.com/icodeforyou/rceprices-go/slice"
	"github.com/icodeforyou/rceprices-go/types"
	"github.com/icodeforyou/rceprices-go/types/maybe"
)

var ErrUnknownMetric = errors.New("unknown metric")

// TomorrowFromHour is the Warsaw hour from which next day prices are considered published.
const TomorrowFromHour = 14

const (
	morningStart = 7
	morningEnd   = 9
	eveningStart = 17
	eveningEnd   = 21
	peakDuration = 1
)

// Band is an hour range [Start, End) searched for a window of Duration hours.
type Band struct {
	Start    int
	End      int
	Duration int
}

type Windows struct {
	Cheapest  Band
	Expensive Band
}

func DefaultWindows() Windows {
	return Windows{
		Cheapest:  Band{Start: 0, End: 24, Duration: 2},
		Expensive: Band{Start: 0, End: 24, Duration: 2},
	}
}

type Value struct {
	Metric     Metric               `json:"metric"`
	Value      maybe.Maybe[float64] `json:"value"`
	Text       string               `json:"text,omitempty"`
	Active     *bool                `json:"active,omitempty"`
	Attributes map[string]any       `json:"attributes,omitempty"`
}

// Evaluator computes metrics for one snapshot of records at a fixed instant.
type Evaluator struct {
	records  []types.PriceRecord
	now      time.Time
	windows  Windows
	readings *optimize.Readings
	today    []types.PriceRecord
	tomorrow []types.PriceRecord
}

func NewEvaluator(records []types.PriceRecord, now time.Time, windows Windows) *Evaluator {
	sorted := slices.Clone(records)
	slices.SortStableFunc(sorted, func(a, b types.PriceRecord) int {
		return a.PeriodStart.Compare(b.PeriodStart)
	})

	e := &Evaluator{
		records: sorted,
		now:     hours.InWarsaw(now),
		windows: windows,
	}
	e.today = types.DaySliceOf(sorted, hours.Today(now))
	if e.TomorrowAvailable() {
		e.tomorrow = types.DaySliceOf(sorted, hours.Tomorrow(now))
	}
	return e
}

// WithReadings enables the optimal buy threshold metric.
func (e *Evaluator) WithReadings(r optimize.Readings) *Evaluator {
	e.readings = &r
	return e
}

func (e *Evaluator) TomorrowAvailable() bool {
	return e.now.Hour() >= TomorrowFromHour
}

func (e *Evaluator) Today() []types.PriceRecord {
	return e.today
}

func (e *Evaluator) Tomorrow() []types.PriceRecord {
	return e.tomorrow
}

// All evaluates every metric, skipping none. Metrics that fail are returned
// without a value and with the error as an attribute.
func (e *Evaluator) All() []Value {
	values := make([]Value, 0, len(all))
	for _, m := range all {
		v, err := e.Evaluate(m)
		if err != nil {
			v = Value{Metric: m, Attributes: map[string]any{"error": err.Error()}}
		}
		values = append(values, v)
	}
	return values
}

func (e *Evaluator) Evaluate(m Metric) (Value, error) {
	v := Value{Metric: m}
	var err error

	switch m {
	case TodayAvgPrice:
		v.Value = average(e.today)
	case TodayMinPrice:
		v.Value = extremePrice(e.today, false)
	case TodayMaxPrice:
		v.Value = extremePrice(e.today, true)
	case TodayMedianPrice:
		v.Value = median(e.today)
	case TomorrowAvgPrice:
		v.Value = average(e.tomorrow)
	case TomorrowMinPrice:
		v.Value = extremePrice(e.tomorrow, false)
	case TomorrowMaxPrice:
		v.Value = extremePrice(e.tomorrow, true)
	case TomorrowMedianPrice:
		v.Value = median(e.tomorrow)

	case TodayCurrentPrice:
		v.Value = e.priceAt(e.now)
	case TodayCurrentVsAverage:
		v.Value = compare(e.priceAt(e.now), rawAverage(e.today))
	case TomorrowVsTodayAverage:
		v.Value = compare(rawAverage(e.tomorrow), rawAverage(e.today))
	case CurrentKWhPrice:
		v.Value = maybe.Map(e.priceAt(e.now), func(p float64) float64 { return convert.RoundFloat64(calc.KWhPrice(p), 4) })
	case CurrentGrossKWhPrice:
		v.Value = maybe.Map(e.priceAt(e.now), func(p float64) float64 { return convert.RoundFloat64(calc.GrossKWhPrice(p), 4) })
	case NextHourPrice:
		v.Value = e.priceAt(e.now.Add(time.Hour))
	case Next2HoursPrice:
		v.Value = e.priceAt(e.now.Add(2 * time.Hour))
	case Next3HoursPrice:
		v.Value = e.priceAt(e.now.Add(3 * time.Hour))
	case PreviousHourPrice:
		v.Value = e.priceBefore(e.now.Add(-time.Hour))

	case TodayMinPriceHourStart, TodayMinPriceHourEnd, TodayMinPriceRange:
		describe(&v, calc.ExtremePriceRecords(e.today, false), m)
	case TodayMaxPriceHourStart, TodayMaxPriceHourEnd, TodayMaxPriceRange:
		describe(&v, calc.ExtremePriceRecords(e.today, true), m)
	case TomorrowMinPriceHourStart, TomorrowMinPriceHourEnd, TomorrowMinPriceRange:
		describe(&v, calc.ExtremePriceRecords(e.tomorrow, false), m)
	case TomorrowMaxPriceHourStart, TomorrowMaxPriceHourEnd, TomorrowMaxPriceRange:
		describe(&v, calc.ExtremePriceRecords(e.tomorrow, true), m)

	case TodayCheapestWindowStart, TodayCheapestWindowEnd, TodayCheapestWindowRange:
		err = e.describeWindow(&v, e.today, e.windows.Cheapest, false)
	case TodayExpensiveWindowStart, TodayExpensiveWindowEnd, TodayExpensiveWindowRange:
		err = e.describeWindow(&v, e.today, e.windows.Expensive, true)
	case TomorrowCheapestWindowStart, TomorrowCheapestWindowEnd, TomorrowCheapestWindowRange:
		err = e.describeWindow(&v, e.tomorrow, e.windows.Cheapest, false)
	case TomorrowExpensiveWindowStart, TomorrowExpensiveWindowEnd, TomorrowExpensiveWindowRange:
		err = e.describeWindow(&v, e.tomorrow, e.windows.Expensive, true)

	case TodayMorningPeakWindow:
		err = e.describePeak(&v, e.today, morningStart, morningEnd)
	case TodayEveningPeakWindow:
		err = e.describePeak(&v, e.today, eveningStart, eveningEnd)
	case TomorrowMorningPeakWindow:
		err = e.describePeak(&v, e.tomorrow, morningStart, morningEnd)
	case TomorrowEveningPeakWindow:
		err = e.describePeak(&v, e.tomorrow, eveningStart, eveningEnd)

	case OptimalBuyThreshold:
		err = e.describeThreshold(&v)

	case TodayMinPriceWindowActive:
		v.Active = e.active(calc.ExtremePriceRecords(e.today, false))
	case TodayMaxPriceWindowActive:
		v.Active = e.active(calc.ExtremePriceRecords(e.today, true))
	case TodayCheapestWindowActive, TodayExpensiveWindowActive:
		band, isMax := e.windows.Cheapest, false
		if m == TodayExpensiveWindowActive {
			band, isMax = e.windows.Expensive, true
		}
		var w []types.PriceRecord
		w, err = calc.OptimalWindow(e.today, band.Start, band.End, band.Duration, isMax)
		v.Active = e.active(w)

	default:
		return Value{}, fmt.Errorf("%w: %s", ErrUnknownMetric, m)
	}

	if err != nil {
		return Value{}, fmt.Errorf("evaluating %s: %w", m, err)
	}
	return v, nil
}

// priceAt returns the price of the first record covering t.
func (e *Evaluator) priceAt(t time.Time) maybe.Maybe[float64] {
	if r, ok := slice.Find(e.records, func(r types.PriceRecord) bool { return r.Covers(t) }); ok {
		return maybe.Some(r.Price)
	}
	return maybe.None[float64]()
}

// priceBefore falls back to the record that ended closest before t. Records are
// sorted by start, so that is the last one ending at or before t.
func (e *Evaluator) priceBefore(t time.Time) maybe.Maybe[float64] {
	if p := e.priceAt(t); p.IsValid() {
		return p
	}
	if r, ok := slice.Last(e.records, func(r types.PriceRecord) bool { return !r.PeriodEnd.After(t) }); ok {
		return maybe.Some(r.Price)
	}
	return maybe.None[float64]()
}

func (e *Evaluator) active(records []types.PriceRecord) *bool {
	on := false
	if start, end, ok := calc.TimeRange(records); ok {
		on = !e.now.Before(start) && !e.now.After(end)
	}
	return &on
}

func (e *Evaluator) describeWindow(v *Value, day []types.PriceRecord, band Band, isMax bool) error {
	w, err := calc.OptimalWindow(day, band.Start, band.End, band.Duration, isMax)
	if err != nil {
		return err
	}
	describe(v, w, v.Metric)
	if len(w) > 0 {
		v.Attributes["average"] = average(w).Value()
		v.Attributes["duration_hours"] = band.Duration
	}
	return nil
}

// describePeak reports the most expensive single hour inside the band.
func (e *Evaluator) describePeak(v *Value, day []types.PriceRecord, startHour, endHour int) error {
	w, err := calc.OptimalWindow(day, startHour, endHour, peakDuration, true)
	if err != nil {
		return err
	}
	start, end, ok := calc.TimeRange(w)
	if !ok {
		return nil
	}
	v.Value = average(w)
	v.Text = hours.FormatRange(start, end)
	v.Attributes = map[string]any{"start": start, "end": end}
	return nil
}

func (e *Evaluator) describeThreshold(v *Value) error {
	if e.readings == nil {
		return nil
	}
	res, err := optimize.Plan(e.records, e.now, *e.readings)
	if err != nil {
		return err
	}
	v.Value = res.Threshold
	v.Text = res.Status.String()
	v.Attributes = map[string]any{
		"energy_to_buy_kwh":    res.EnergyToBuyKWh,
		"eligible_slots_count": res.EligibleSlots,
		"slots_allocated":      res.SlotsAllocated,
		"energy_remaining_kwh": res.EnergyRemainingKWh,
		"battery_energy_kwh":   res.BatteryEnergyKWh,
		"max_per_slot_kwh":     res.MaxPerSlotKWh,
	}
	return nil
}

// describe fills start, end or range text depending on the metric suffix.
func describe(v *Value, records []types.PriceRecord, m Metric) {
	start, end, ok := calc.TimeRange(records)
	if !ok {
		return
	}
	switch suffix(m) {
	case "start":
		v.Text = start.Format(hours.ClockLayout)
	case "end":
		v.Text = end.Format(hours.ClockLayout)
	default:
		v.Text = hours.FormatRange(start, end)
	}
	v.Attributes = map[string]any{
		"start": start,
		"end":   end,
		"price": records[0].Price,
	}
}

func suffix(m Metric) string {
	for _, sfx := range []string{"start", "end", "range"} {
		if strings.HasSuffix(string(m), "_"+sfx) {
			return sfx
		}
	}
	return ""
}

func rawAverage(records []types.PriceRecord) maybe.Maybe[float64] {
	avg, err := calc.Average(calc.PricesFrom(records))
	if err != nil {
		return maybe.None[float64]()
	}
	return maybe.Some(avg)
}

func average(records []types.PriceRecord) maybe.Maybe[float64] {
	return maybe.Map(rawAverage(records), convert.TwoDecimals)
}

func median(records []types.PriceRecord) maybe.Maybe[float64] {
	med, err := calc.Median(calc.PricesFrom(records))
	if err != nil {
		return maybe.None[float64]()
	}
	return maybe.Some(convert.TwoDecimals(med))
}

func extremePrice(records []types.PriceRecord, isMax bool) maybe.Maybe[float64] {
	if len(records) == 0 {
		return maybe.None[float64]()
	}
	prices := calc.PricesFrom(records)
	if isMax {
		return maybe.Some(slices.Max(prices))
	}
	return maybe.Some(slices.Min(prices))
}

// compare is the percentage difference rounded to one decimal, None unless both are known.
func compare(value, baseline maybe.Maybe[float64]) maybe.Maybe[float64] {
	if !value.IsValid() || !baseline.IsValid() {
		return maybe.None[float64]()
	}
	return maybe.Some(convert.RoundFloat64(calc.PercentageDifference(value.Value(), baseline.Value()), 1))
}
