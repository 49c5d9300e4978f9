package www

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/icodeforyou/rceprices-go/metrics"
)

type dashboardData struct {
	FetchedAt time.Time
	Stale     bool
	Values    []metrics.Value
	Today     []metrics.Slot
	Tomorrow  []metrics.Slot
}

func NewDashboardHandler(logger *slog.Logger, v *priceView, tm *TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		var data dashboardData
		if e, snap, err := v.evaluator(r.Context()); err != nil {
			logger.Warn("dashboard without prices", slog.Any("error", err))
		} else {
			data = dashboardData{
				FetchedAt: snap.FetchedAt,
				Stale:     snap.Stale,
				Values:    e.All(),
				Today:     e.Slots(false, metrics.SlotsHourly),
			}
			if e.TomorrowAvailable() && len(e.Tomorrow()) > 0 {
				data.Tomorrow = e.Slots(true, metrics.SlotsHourly)
			}
		}

		w.Header().Set("Content-Type", "text/html")
		if err := tm.Execute(w, "index.html", data); err != nil {
			logger.Error("handling dashboard request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
