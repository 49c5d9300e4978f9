package task

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/icodeforyou/rceprices-go/config"
	"github.com/icodeforyou/rceprices-go/database"
	"github.com/icodeforyou/rceprices-go/dispatch"
	"github.com/icodeforyou/rceprices-go/feed"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/optimize"
	"github.com/icodeforyou/rceprices-go/types"
	"github.com/icodeforyou/rceprices-go/types/maybe"
)

type SnapshotSource interface {
	Snapshot(ctx context.Context) (feed.Snapshot, error)
}

type MaskSender interface {
	PublishAll(ctx context.Context, requests []dispatch.Request) ([]dispatch.Outcome, error)
}

type DispatchStore interface {
	SaveMaskDispatch(ctx context.Context, r database.MaskDispatchRow) error
}

// MaskDispatch builds the masks for the next business day and sends them to
// the device. It is shared by the scheduled task and the HTTP api.
type MaskDispatch struct {
	logger *slog.Logger
	src    SnapshotSource
	sender MaskSender
	store  DispatchStore
	cnfg   func() *config.AppConfig
	now    func() time.Time
}

func NewMaskDispatch(src SnapshotSource, sender MaskSender, store DispatchStore, cnfg func() *config.AppConfig) *MaskDispatch {
	return &MaskDispatch{
		logger: slog.Default().With("module", "dispatch"),
		src:    src,
		sender: sender,
		store:  store,
		cnfg:   cnfg,
		now:    time.Now,
	}
}

// TargetDay picks tomorrow once it is published, otherwise today.
func TargetDay(records []types.PriceRecord, now time.Time) []types.PriceRecord {
	if day := types.DaySliceOf(records, hours.Tomorrow(now)); len(day) > 0 {
		return day
	}
	return types.DaySliceOf(records, hours.Today(now))
}

func (m *MaskDispatch) Run(ctx context.Context) ([]dispatch.Outcome, error) {
	cnfg := m.cnfg()
	now := m.now()

	snap, err := m.src.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("getting prices: %w", err)
	}
	day := TargetDay(snap.Records, now)

	settings := cnfg.Dispatch.Settings()
	threshold := maybe.None[float64]()
	if settings.BuyThresholdFromOptimizer && settings.BuySwitch != dispatch.BuyDisabled {
		res, err := optimize.Plan(snap.Records, now, cnfg.Optimizer.Readings())
		if err != nil {
			return nil, fmt.Errorf("computing buy threshold: %w", err)
		}
		m.logger.Info("optimizer result", slog.String("status", res.Status.String()), slog.Float64("threshold", res.Threshold.ValueOrDefault(0)))
		threshold = res.Threshold
	}

	requests, err := dispatch.BuildRequests(day, settings, threshold)
	if err != nil {
		return nil, err
	}

	outcomes, err := m.sender.PublishAll(ctx, requests)
	if err != nil {
		return nil, err
	}

	for _, o := range outcomes {
		err := m.store.SaveMaskDispatch(ctx, database.MaskDispatchRow{
			TransId:      o.TransId,
			BusinessDate: o.Date,
			Kind:         string(o.Kind),
			Mode:         o.Mode,
			Threshold:    o.Threshold,
			Flip:         o.Flip,
			Registers:    o.Registers.Slice(),
			Status:       string(o.Status),
			DispatchedAt: o.SentAt,
		})
		if err != nil {
			m.logger.Error("saving mask dispatch", slog.String("transId", o.TransId), slog.Any("error", err))
		}
	}

	return outcomes, nil
}

func NewDispatchTask(logger *slog.Logger, md *MaskDispatch) func() {
	return func() {
		logger.Debug("running dispatch task...")

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer cancel()

		outcomes, err := md.Run(ctx)
		if err != nil {
			logger.Error("dispatch task error", slog.Any("error", err))
			return
		}
		for _, o := range outcomes {
			logger.Info("mask dispatched", slog.String("kind", string(o.Kind)), slog.String("date", o.Date), slog.String("status", string(o.Status)))
		}
		logger.Info("dispatch task done")
	}
}
