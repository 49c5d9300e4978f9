package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/icodeforyou/rceprices-go/feed"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/metrics"
	"github.com/icodeforyou/rceprices-go/types"
)

type PriceStore interface {
	SavePriceRecords(ctx context.Context, records []types.PriceRecord) error
	HasPriceRecordsForDate(ctx context.Context, date string) (bool, error)
}

type PriceSource interface {
	Refresh(ctx context.Context) (feed.Snapshot, error)
}

func NewPriceTask(logger *slog.Logger, db PriceStore, src PriceSource) func() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if needImmediatePriceUpdate(ctx, db, time.Now()) {
		logger.Info("need an immediate update of prices")
		runPriceTask(logger, db, src)
	} else {
		logger.Debug("no need for immediate update of prices")
	}

	return func() { runPriceTask(logger, db, src) }
}

func runPriceTask(logger *slog.Logger, db PriceStore, src PriceSource) {
	logger.Debug("running price task...")

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	n, err := UpdatePrices(ctx, db, src)
	if err != nil {
		logger.Error("price task error", slog.Any("error", err))
		return
	}
	logger.Info("price task done", slog.Int("noOfRecordsSaved", n))
}

// UpdatePrices refreshes the feed and stores the records. A stale snapshot is
// not stored again since it already came from a previous run.
func UpdatePrices(ctx context.Context, db PriceStore, src PriceSource) (int, error) {
	snap, err := src.Refresh(ctx)
	if err != nil {
		return 0, err
	}
	if snap.Stale {
		slog.Default().With("module", "tasks").Warn("serving stale prices", slog.Time("fetchedAt", snap.FetchedAt))
		return 0, nil
	}
	if err := db.SavePriceRecords(ctx, snap.Records); err != nil {
		return 0, err
	}
	return len(snap.Records), nil
}

// needImmediatePriceUpdate is true when today is missing, or tomorrow is
// missing although it should be published.
func needImmediatePriceUpdate(ctx context.Context, db PriceStore, now time.Time) bool {
	dates := []string{hours.Today(now)}
	if hours.InWarsaw(now).Hour() >= metrics.TomorrowFromHour {
		dates = append(dates, hours.Tomorrow(now))
	}
	for _, d := range dates {
		if ok, err := db.HasPriceRecordsForDate(ctx, d); err != nil || !ok {
			return true
		}
	}
	return false
}
