package www

import (
	"log/slog"
	"net/http"

	"github.com/icodeforyou/rceprices-go/metrics"
)

func NewMetricsHandler(logger *slog.Logger, v *priceView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		e, snap, err := v.evaluator(r.Context())
		if err != nil {
			writeSnapshotError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, metricsMessage{
			Type:      "metrics",
			FetchedAt: snap.FetchedAt,
			Stale:     snap.Stale,
			Values:    e.All(),
		})
	}
}

func NewMetricHandler(logger *slog.Logger, v *priceView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		m, ok := metrics.Parse(r.PathValue("name"))
		if !ok {
			http.Error(w, "unknown metric "+r.PathValue("name"), http.StatusNotFound)
			return
		}

		e, _, err := v.evaluator(r.Context())
		if err != nil {
			writeSnapshotError(logger, w, err)
			return
		}
		value, err := e.Evaluate(m)
		if err != nil {
			logger.Warn("evaluating metric", slog.String("metric", m.String()), slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}
		writeJSON(logger, w, http.StatusOK, value)
	}
}

// NewSlotsHandler serves ?day=today|tomorrow&kind=hourly|quarter.
func NewSlotsHandler(logger *slog.Logger, v *priceView) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q := r.URL.Query()
		kindName := q.Get("kind")
		if kindName == "" {
			kindName = string(metrics.SlotsHourly)
		}
		kind, err := metrics.ParseSlotKind(kindName)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		tomorrow := false
		switch q.Get("day") {
		case "", "today":
		case "tomorrow":
			tomorrow = true
		default:
			http.Error(w, "day must be today or tomorrow", http.StatusBadRequest)
			return
		}

		e, _, err := v.evaluator(r.Context())
		if err != nil {
			writeSnapshotError(logger, w, err)
			return
		}
		writeJSON(logger, w, http.StatusOK, e.Slots(tomorrow, kind))
	}
}
