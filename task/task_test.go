package task

import (
	"context"
	"errors"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icodeforyou/rceprices-go/config"
	"github.com/icodeforyou/rceprices-go/database"
	"github.com/icodeforyou/rceprices-go/dispatch"
	"github.com/icodeforyou/rceprices-go/feed"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/types"
)

type fakeStore struct {
	saved      []types.PriceRecord
	dates      map[string]bool
	dispatches []database.MaskDispatchRow
}

func (s *fakeStore) SavePriceRecords(_ context.Context, records []types.PriceRecord) error {
	s.saved = append(s.saved, records...)
	return nil
}

func (s *fakeStore) HasPriceRecordsForDate(_ context.Context, date string) (bool, error) {
	return s.dates[date], nil
}

func (s *fakeStore) SaveMaskDispatch(_ context.Context, r database.MaskDispatchRow) error {
	s.dispatches = append(s.dispatches, r)
	return nil
}

type fakeSource struct {
	snap feed.Snapshot
	err  error
}

func (f fakeSource) Refresh(context.Context) (feed.Snapshot, error)  { return f.snap, f.err }
func (f fakeSource) Snapshot(context.Context) (feed.Snapshot, error) { return f.snap, f.err }

type fakeSender struct {
	requests []dispatch.Request
}

func (f *fakeSender) PublishAll(_ context.Context, requests []dispatch.Request) ([]dispatch.Outcome, error) {
	f.requests = requests
	outcomes := make([]dispatch.Outcome, len(requests))
	for i, r := range requests {
		outcomes[i] = dispatch.Outcome{Request: r, Status: dispatch.StatusAcked, SentAt: time.Now()}
	}
	return outcomes, nil
}

func hourlyDay(t *testing.T, date string, price func(h int) float64) []types.PriceRecord {
	t.Helper()
	midnight, err := hours.ParseDate(date)
	require.NoError(t, err)
	var day []types.PriceRecord
	for h := range 24 {
		start := time.Date(midnight.Year(), midnight.Month(), midnight.Day(), h, 0, 0, 0, hours.Warsaw())
		r, err := types.NewPriceRecord(start, start.Add(time.Hour), date, price(h))
		require.NoError(t, err)
		day = append(day, r)
	}
	return day
}

func TestNeedImmediatePriceUpdate(t *testing.T) {
	morning := time.Date(2025, time.July, 1, 9, 0, 0, 0, hours.Warsaw())
	afternoon := time.Date(2025, time.July, 1, 15, 0, 0, 0, hours.Warsaw())
	ctx := context.Background()

	store := &fakeStore{dates: map[string]bool{}}
	assert.True(t, needImmediatePriceUpdate(ctx, store, morning))

	store.dates["2025-07-01"] = true
	assert.False(t, needImmediatePriceUpdate(ctx, store, morning))
	assert.True(t, needImmediatePriceUpdate(ctx, store, afternoon))

	store.dates["2025-07-02"] = true
	assert.False(t, needImmediatePriceUpdate(ctx, store, afternoon))
}

func TestUpdatePrices(t *testing.T) {
	ctx := context.Background()
	records := hourlyDay(t, "2025-07-01", func(int) float64 { return 1 })

	store := &fakeStore{}
	n, err := UpdatePrices(ctx, store, fakeSource{snap: feed.Snapshot{Records: records}})
	require.NoError(t, err)
	assert.Equal(t, 24, n)
	assert.Len(t, store.saved, 24)

	store = &fakeStore{}
	n, err = UpdatePrices(ctx, store, fakeSource{snap: feed.Snapshot{Records: records, Stale: true}})
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, store.saved)

	_, err = UpdatePrices(ctx, store, fakeSource{err: feed.ErrNoSnapshot})
	assert.ErrorIs(t, err, feed.ErrNoSnapshot)
}

func dispatchConfig(buySwitch int) *config.AppConfig {
	cnfg := &config.AppConfig{}
	cnfg.Dispatch = config.AppConfigDispatch{
		DeviceId:                  "inv1",
		SellThreshold:             300,
		BuySwitch:                 buySwitch,
		BuyThresholdFromOptimizer: true,
	}
	capacity, consumption := 10.0, 1.0
	cnfg.Optimizer = config.AppConfigOptimizer{BatteryCapacity: &capacity, DailyConsumption: &consumption}
	return cnfg
}

func TestMaskDispatchRun(t *testing.T) {
	now := time.Date(2025, time.July, 1, 15, 0, 0, 0, hours.Warsaw())
	today := hourlyDay(t, "2025-07-01", func(int) float64 { return 500 })
	tomorrow := hourlyDay(t, "2025-07-02", func(h int) float64 { return float64(100 + h*10) })
	src := fakeSource{snap: feed.Snapshot{Records: append(today, tomorrow...)}}

	store, sender := &fakeStore{}, &fakeSender{}
	md := NewMaskDispatch(src, sender, store, func() *config.AppConfig { return dispatchConfig(dispatch.BuyChargeOnly) })
	md.now = func() time.Time { return now }

	outcomes, err := md.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, outcomes, 2)

	sell, buy := sender.requests[0], sender.requests[1]
	assert.Equal(t, "2025-07-02", sell.Date)
	assert.Equal(t, 300.0, sell.Threshold)
	// 10 kWh capacity, 1 kWh needed: one quarter of tomorrow's cheapest pre PV hour
	assert.Equal(t, 100.0, buy.Threshold)
	assert.Equal(t, dispatch.BuyChargeOnly, buy.Mode)

	require.Len(t, store.dispatches, 2)
	assert.Equal(t, "ack", store.dispatches[0].Status)
	assert.Len(t, store.dispatches[1].Registers, 6)
}

func TestMaskDispatchFallsBackToToday(t *testing.T) {
	now := time.Date(2025, time.July, 1, 10, 0, 0, 0, hours.Warsaw())
	today := hourlyDay(t, "2025-07-01", func(int) float64 { return 50 })

	sender := &fakeSender{}
	md := NewMaskDispatch(fakeSource{snap: feed.Snapshot{Records: today}}, sender, &fakeStore{},
		func() *config.AppConfig { return dispatchConfig(dispatch.BuyDisabled) })
	md.now = func() time.Time { return now }

	_, err := md.Run(context.Background())
	require.NoError(t, err)
	require.Len(t, sender.requests, 1)
	assert.Equal(t, "2025-07-01", sender.requests[0].Date)
}

func TestMaskDispatchWithoutPrices(t *testing.T) {
	md := NewMaskDispatch(fakeSource{err: errors.New("down")}, &fakeSender{}, &fakeStore{},
		func() *config.AppConfig { return dispatchConfig(0) })
	_, err := md.Run(context.Background())
	assert.Error(t, err)

	md = NewMaskDispatch(fakeSource{}, &fakeSender{}, &fakeStore{},
		func() *config.AppConfig { return dispatchConfig(0) })
	_, err = md.Run(context.Background())
	assert.ErrorIs(t, err, dispatch.ErrNoPrices)
}

func TestRunMaintenance(t *testing.T) {
	ctx := context.Background()
	db, err := database.New(ctx, filepath.Join(t.TempDir(), "maintenance.db"))
	require.NoError(t, err)
	defer db.Close()

	old := hourlyDay(t, hours.Today(time.Now().AddDate(0, 0, -200)), func(int) float64 { return 1 })
	require.NoError(t, db.SavePriceRecords(ctx, old))

	runMaintenance(ctx, slog.Default(), db, &config.AppConfig{})

	records, err := db.GetPriceRecordsFrom(ctx, "2000-01-01")
	require.NoError(t, err)
	assert.Empty(t, records)
}
