package calc

import (
	"slices"

	"github.com/icodeforyou/rceprices-go/types"
)

// ExtremePriceRecords returns the first unbroken run of records sharing the
// lowest (or highest) price. Later runs with the same price are not included.
func ExtremePriceRecords(records []types.PriceRecord, isMax bool) []types.PriceRecord {
	if len(records) == 0 {
		return nil
	}

	prices := PricesFrom(records)
	extreme := slices.Min(prices)
	if isMax {
		extreme = slices.Max(prices)
	}

	first := slices.Index(prices, extreme)
	last := first
	for last+1 < len(prices) && prices[last+1] == extreme {
		last++
	}

	return records[first : last+1]
}
