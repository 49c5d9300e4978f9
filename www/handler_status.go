package www

import (
	"log/slog"
	"net/http"
	"runtime"
	"slices"
	"time"

	"github.com/icodeforyou/rceprices-go/config"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/metrics"
	"github.com/icodeforyou/rceprices-go/types"
)

type status struct {
	Version           string    `json:"version"`
	GoVersion         string    `json:"goVersion"`
	Now               time.Time `json:"now"`
	LastFetch         time.Time `json:"lastFetch"`
	FetchedAt         time.Time `json:"fetchedAt"`
	Stale             bool      `json:"stale"`
	Records           int       `json:"records"`
	TomorrowPublished bool      `json:"tomorrowPublished"`
	HourlyPrices      bool      `json:"hourlyPrices"`
	DispatchEnabled   bool      `json:"dispatchEnabled"`
}

// NewStatusHandler reports the feed state without triggering a fetch.
func NewStatusHandler(logger *slog.Logger, prices PriceSource, cnfg func() *config.AppConfig, version string, now func() time.Time) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		c := cnfg()
		t := now()
		st := status{
			Version:         version,
			GoVersion:       runtime.Version(),
			Now:             t,
			LastFetch:       prices.LastFetch(),
			HourlyPrices:    c.Feed.Hourly,
			DispatchEnabled: c.Dispatch.Enabled,
		}
		if snap, ok := prices.Current(); ok {
			st.FetchedAt = snap.FetchedAt
			st.Stale = snap.Stale
			st.Records = len(snap.Records)
			st.TomorrowPublished = hours.InWarsaw(t).Hour() >= metrics.TomorrowFromHour &&
				slices.ContainsFunc(snap.Records, func(r types.PriceRecord) bool {
					return r.BusinessDate == hours.Tomorrow(t)
				})
		}
		writeJSON(logger, w, http.StatusOK, st)
	}
}
