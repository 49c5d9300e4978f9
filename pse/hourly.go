package pse

import (
	"time"

	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/types"
	"github.com/shopspring/decimal"
)

type hourGroup struct {
	start        time.Time
	businessDate string
	prices       []decimal.Decimal
	published    time.Time
}

// HourlyAverages folds quarter records into one record per absolute hour, so the
// repeated wall clock hour of the autumn DST change stays two records.
// Both the price and the floor zero price are averages rounded to two decimals,
// so the floor zero price is the mean of clamped quarters, not a clamped mean.
func HourlyAverages(records []types.PriceRecord) []types.PriceRecord {
	var groups []*hourGroup
	index := make(map[int64]*hourGroup)

	for _, r := range records {
		start := r.PeriodStart.UTC().Truncate(time.Hour)
		g, ok := index[start.Unix()]
		if !ok {
			g = &hourGroup{start: hours.InWarsaw(start), businessDate: r.BusinessDate}
			index[start.Unix()] = g
			groups = append(groups, g)
		}
		g.prices = append(g.prices, decimal.NewFromFloat(r.Price))
		if r.PublishedAt.After(g.published) {
			g.published = r.PublishedAt
		}
	}

	out := make([]types.PriceRecord, 0, len(groups))
	for _, g := range groups {
		n := decimal.NewFromInt(int64(len(g.prices)))
		sum, sumFloorZero := decimal.Zero, decimal.Zero
		for _, p := range g.prices {
			sum = sum.Add(p)
			sumFloorZero = sumFloorZero.Add(decimal.Max(p, decimal.Zero))
		}

		avg := sum.Div(n).Round(2).InexactFloat64()
		r, err := types.NewPriceRecord(g.start, g.start.Add(time.Hour), g.businessDate, avg)
		if err != nil {
			continue
		}
		r.PriceFloorZero = sumFloorZero.Div(n).Round(2).InexactFloat64()
		r.PublishedAt = g.published
		out = append(out, r)
	}
	return out
}
