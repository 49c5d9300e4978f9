package www

import (
	"log/slog"
	"net/http"

	"github.com/icodeforyou/rceprices-go/optimize"
)

// NewThresholdHandler runs the buy threshold optimiser on the forward slots.
// soc, pv and consumption override the configured readings.
func NewThresholdHandler(logger *slog.Logger, v *priceView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		readings := v.cnfg().Optimizer.Readings()
		var err error
		if readings.SoCPercent, err = floatOrDefault(r.URL, "soc", readings.SoCPercent); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if readings.PVForecastKWh, err = floatOrDefault(r.URL, "pv", readings.PVForecastKWh); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		if readings.DailyConsumptionKWh, err = floatOrDefault(r.URL, "consumption", readings.DailyConsumptionKWh); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		snap, ok := v.snapshot(logger, w, r)
		if !ok {
			return
		}

		res, err := optimize.Plan(snap.Records, v.now(), readings)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		writeJSON(logger, w, http.StatusOK, res)
	}
}
