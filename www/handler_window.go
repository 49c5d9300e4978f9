package www

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/icodeforyou/rceprices-go/calc"
	"github.com/icodeforyou/rceprices-go/convert"
	"github.com/icodeforyou/rceprices-go/slice"
)

// NewWindowHandler searches the cheapest window of a day, or the most
// expensive one with max=true. Missing band parameters come from the
// configured windows.
func NewWindowHandler(logger *slog.Logger, v *priceView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		isMax, err := boolOrDefault(r.URL, "max", false)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		band := v.cnfg().Windows.Bands().Cheapest
		if isMax {
			band = v.cnfg().Windows.Bands().Expensive
		}
		for key, dst := range map[string]*int{"start": &band.Start, "end": &band.End, "duration": &band.Duration} {
			if *dst, err = intOrDefault(r.URL, key, *dst); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
		}

		date, day, _, ok := v.day(logger, w, r)
		if !ok {
			return
		}

		window, err := calc.OptimalWindow(day, band.Start, band.End, band.Duration, isMax)
		if err != nil {
			if errors.Is(err, calc.ErrInvalidParameter) {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			logger.Error("searching price window", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		res := struct {
			Date     string            `json:"date"`
			Found    bool              `json:"found"`
			Range    string            `json:"range,omitempty"`
			Average  *float64          `json:"average,omitempty"`
			Records  []priceRecordJSON `json:"records"`
			Start    int               `json:"start"`
			End      int               `json:"end"`
			Duration int               `json:"duration"`
		}{
			Date:     date,
			Found:    len(window) > 0,
			Range:    calc.FormatTimeRange(window),
			Records:  slice.Map(window, toPriceRecordJSON),
			Start:    band.Start,
			End:      band.End,
			Duration: band.Duration,
		}
		if avg, err := calc.Average(calc.PricesFrom(window)); err == nil {
			avg = convert.TwoDecimals(avg)
			res.Average = &avg
		}
		writeJSON(logger, w, http.StatusOK, res)
	}
}
