package www

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/icodeforyou/rceprices-go/dispatch"
)

// NewDispatchHandler sends the masks on POST and lists the latest
// dispatches on GET.
func NewDispatchHandler(logger *slog.Logger, md MaskRunner, db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			limit, err := intOrDefault(r.URL, "limit", 20)
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			rows, err := db.GetMaskDispatches(r.Context(), limit)
			if err != nil {
				logger.Error("handling dispatch history request", slog.Any("error", err))
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
			writeJSON(logger, w, http.StatusOK, rows)

		case http.MethodPost:
			if md == nil {
				http.Error(w, "mask dispatch is disabled", http.StatusServiceUnavailable)
				return
			}
			outcomes, err := md.Run(r.Context())
			if err != nil {
				logger.Error("handling dispatch request", slog.Any("error", err))
				if errors.Is(err, dispatch.ErrNoPrices) {
					http.Error(w, err.Error(), http.StatusNotFound)
					return
				}
				http.Error(w, err.Error(), http.StatusBadGateway)
				return
			}
			writeJSON(logger, w, http.StatusOK, outcomes)

		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	}
}

func NewRefreshHandler(logger *slog.Logger, prices PriceSource) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		snap, err := prices.Refresh(r.Context())
		if err != nil {
			logger.Error("handling refresh request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}
		writeJSON(logger, w, http.StatusOK, struct {
			FetchedAt time.Time `json:"fetchedAt"`
			Stale     bool      `json:"stale"`
			Records   int       `json:"records"`
		}{
			FetchedAt: snap.FetchedAt,
			Stale:     snap.Stale,
			Records:   len(snap.Records),
		})
	}
}
