package calc

import (
	"errors"
	"slices"

	"github.com/icodeforyou/rceprices-go/convert"
	"github.com/icodeforyou/rceprices-go/slice"
	"github.com/icodeforyou/rceprices-go/types"
)

var (
	ErrEmptyInput       = errors.New("empty input")
	ErrInvalidParameter = errors.New("invalid parameter")
)

func PricesFrom(records []types.PriceRecord) []float64 {
	return slice.Map(records, func(r types.PriceRecord) float64 { return r.Price })
}

func FloorZeroPricesFrom(records []types.PriceRecord) []float64 {
	return slice.Map(records, func(r types.PriceRecord) float64 { return r.PriceFloorZero })
}

// Average returns ErrEmptyInput when there is nothing to average.
func Average(prices []float64) (float64, error) {
	if len(prices) == 0 {
		return 0, ErrEmptyInput
	}
	sum := 0.0
	for _, p := range prices {
		sum += p
	}
	return sum / float64(len(prices)), nil
}

func Median(prices []float64) (float64, error) {
	if len(prices) == 0 {
		return 0, ErrEmptyInput
	}
	sorted := slices.Clone(prices)
	slices.Sort(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid], nil
	}
	return (sorted[mid-1] + sorted[mid]) / 2, nil
}

// PercentageDifference is 0 when baseline is 0.
func PercentageDifference(value, baseline float64) float64 {
	if baseline == 0 {
		return 0
	}
	return (value - baseline) / baseline * 100
}

type Summary struct {
	Count   int     `json:"count"`
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Range   float64 `json:"range"`
}

func Summarize(records []types.PriceRecord) (Summary, error) {
	prices := PricesFrom(records)
	avg, err := Average(prices)
	if err != nil {
		return Summary{}, err
	}
	med, err := Median(prices)
	if err != nil {
		return Summary{}, err
	}
	lo, hi := slices.Min(prices), slices.Max(prices)
	return Summary{
		Count:   len(prices),
		Average: convert.TwoDecimals(avg),
		Median:  convert.TwoDecimals(med),
		Min:     lo,
		Max:     hi,
		Range:   hi - lo,
	}, nil
}
