package calc

import (
	"fmt"
	"time"

	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/slice"
	"github.com/icodeforyou/rceprices-go/types"
)

// OptimalWindow searches the contiguous run of durationHours whose mean price is
// the lowest (or highest when isMax) and whose records all start inside
// [startHour, endHour). The earliest run wins a tie. No valid placement gives an
// empty result, not an error.
func OptimalWindow(records []types.PriceRecord, startHour, endHour, durationHours int, isMax bool) ([]types.PriceRecord, error) {
	if durationHours < 0 {
		return nil, fmt.Errorf("%w: negative duration %d", ErrInvalidParameter, durationHours)
	}
	if startHour < 0 || startHour > 24 || endHour < 0 || endHour > 24 {
		return nil, fmt.Errorf("%w: hour band [%d, %d) outside 0-24", ErrInvalidParameter, startHour, endHour)
	}
	if len(records) == 0 || durationHours == 0 {
		return nil, nil
	}

	granularity := records[0].Granularity()
	if granularity <= 0 {
		return nil, fmt.Errorf("%w: non positive record granularity %s", ErrInvalidParameter, granularity)
	}

	size := int(time.Duration(durationHours) * time.Hour / granularity)
	if size < 1 || size > len(records) {
		return nil, nil
	}

	inBand := func(r types.PriceRecord) bool {
		h := r.PeriodEnd.Add(-granularity).Hour()
		return h >= startHour && h < endHour
	}

	best := -1
	bestMean := 0.0

	for start := 0; start+size <= len(records); start++ {
		window := records[start : start+size]
		if !slice.All(window, inBand) {
			continue
		}
		sum := 0.0
		for _, r := range window {
			sum += r.Price
		}
		mean := sum / float64(size)
		if best < 0 || (isMax && mean > bestMean) || (!isMax && mean < bestMean) {
			best = start
			bestMean = mean
		}
	}

	if best < 0 {
		return nil, nil
	}
	return records[best : best+size], nil
}

// TimeRange returns the start of the first record and the end of the last one.
func TimeRange(records []types.PriceRecord) (start, end time.Time, ok bool) {
	if len(records) == 0 {
		return time.Time{}, time.Time{}, false
	}
	first := records[0]
	return first.PeriodEnd.Add(-first.Granularity()), records[len(records)-1].PeriodEnd, true
}

// FormatTimeRange renders the records span as "HH:MM - HH:MM", empty when there are no records.
func FormatTimeRange(records []types.PriceRecord) string {
	start, end, ok := TimeRange(records)
	if !ok {
		return ""
	}
	return hours.FormatRange(start, end)
}
