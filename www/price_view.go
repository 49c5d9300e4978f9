package www

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/icodeforyou/rceprices-go/config"
	"github.com/icodeforyou/rceprices-go/feed"
	"github.com/icodeforyou/rceprices-go/metrics"
	"github.com/icodeforyou/rceprices-go/types"
)

// priceView is what the price handlers read from: the feed snapshot, the
// live configuration and the clock.
type priceView struct {
	prices  PriceSource
	history interface {
		GetPriceRecordsForDate(ctx context.Context, date string) ([]types.PriceRecord, error)
	}
	cnfg func() *config.AppConfig
	now  func() time.Time
}

func (v *priceView) evaluator(ctx context.Context) (*metrics.Evaluator, feed.Snapshot, error) {
	snap, err := v.prices.Snapshot(ctx)
	if err != nil {
		return nil, feed.Snapshot{}, err
	}
	cnfg := v.cnfg()
	e := metrics.NewEvaluator(snap.Records, v.now(), cnfg.Windows.Bands()).
		WithReadings(cnfg.Optimizer.Readings())
	return e, snap, nil
}

// day resolves the date query parameter and returns that business day, from
// the snapshot or, for older dates, from the database. It writes the error
// response itself and reports false on failure.
func (v *priceView) day(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (string, []types.PriceRecord, feed.Snapshot, bool) {
	date, err := dateParam(r.URL, v.now())
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return "", nil, feed.Snapshot{}, false
	}
	snap, ok := v.snapshot(logger, w, r)
	if !ok {
		return "", nil, feed.Snapshot{}, false
	}
	day := types.DaySliceOf(snap.Records, date)
	if len(day) == 0 && v.history != nil {
		if day, err = v.history.GetPriceRecordsForDate(r.Context(), date); err != nil {
			logger.Error("reading stored prices", slog.String("date", date), slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return "", nil, feed.Snapshot{}, false
		}
	}
	if len(day) == 0 {
		http.Error(w, "no prices for "+date, http.StatusNotFound)
		return "", nil, feed.Snapshot{}, false
	}
	return date, day, snap, true
}

func (v *priceView) snapshot(logger *slog.Logger, w http.ResponseWriter, r *http.Request) (feed.Snapshot, bool) {
	snap, err := v.prices.Snapshot(r.Context())
	if err != nil {
		writeSnapshotError(logger, w, err)
		return feed.Snapshot{}, false
	}
	return snap, true
}

func writeSnapshotError(logger *slog.Logger, w http.ResponseWriter, err error) {
	logger.Error("getting price snapshot", slog.Any("error", err))
	if errors.Is(err, feed.ErrNoSnapshot) {
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	http.Error(w, err.Error(), http.StatusInternalServerError)
}
