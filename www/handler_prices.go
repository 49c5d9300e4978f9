package www

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/icodeforyou/rceprices-go/calc"
	"github.com/icodeforyou/rceprices-go/convert"
	"github.com/icodeforyou/rceprices-go/slice"
	"github.com/icodeforyou/rceprices-go/types"
)

type priceRecordJSON struct {
	PeriodStart    time.Time `json:"periodStart"`
	PeriodEnd      time.Time `json:"periodEnd"`
	BusinessDate   string    `json:"businessDate"`
	Price          float64   `json:"price"`
	PriceFloorZero float64   `json:"priceFloorZero"`
	KWhPrice       float64   `json:"kwhPrice"`
	GrossKWhPrice  float64   `json:"grossKwhPrice"`
}

func toPriceRecordJSON(r types.PriceRecord) priceRecordJSON {
	return priceRecordJSON{
		PeriodStart:    r.PeriodStart,
		PeriodEnd:      r.PeriodEnd,
		BusinessDate:   r.BusinessDate,
		Price:          r.Price,
		PriceFloorZero: r.PriceFloorZero,
		KWhPrice:       convert.RoundFloat64(calc.KWhPrice(r.Price), 4),
		GrossKWhPrice:  convert.RoundFloat64(calc.GrossKWhPrice(r.Price), 4),
	}
}

func NewPricesHandler(logger *slog.Logger, v *priceView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		date, day, snap, ok := v.day(logger, w, r)
		if !ok {
			return
		}
		writeJSON(logger, w, http.StatusOK, struct {
			Date      string            `json:"date"`
			FetchedAt time.Time         `json:"fetchedAt"`
			Stale     bool              `json:"stale"`
			Records   []priceRecordJSON `json:"records"`
		}{
			Date:      date,
			FetchedAt: snap.FetchedAt,
			Stale:     snap.Stale,
			Records:   slice.Map(day, toPriceRecordJSON),
		})
	}
}

func NewSummaryHandler(logger *slog.Logger, v *priceView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		date, day, snap, ok := v.day(logger, w, r)
		if !ok {
			return
		}
		summary, err := calc.Summarize(day)
		if err != nil {
			logger.Error("summarizing prices", slog.String("date", date), slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		cheapest := calc.ExtremePriceRecords(day, false)
		expensive := calc.ExtremePriceRecords(day, true)

		writeJSON(logger, w, http.StatusOK, struct {
			calc.Summary
			Date          string `json:"date"`
			Stale         bool   `json:"stale"`
			MinPriceRange string `json:"minPriceRange"`
			MaxPriceRange string `json:"maxPriceRange"`
		}{
			Summary:       summary,
			Date:          date,
			Stale:         snap.Stale,
			MinPriceRange: calc.FormatTimeRange(cheapest),
			MaxPriceRange: calc.FormatTimeRange(expensive),
		})
	}
}
