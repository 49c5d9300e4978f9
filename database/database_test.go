package database

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/types"
)

func newTestDatabase(t *testing.T) *Database {
	t.Helper()
	db, err := New(context.Background(), filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(db.Close)
	return db
}

func quarterRecords(t *testing.T, date string, prices ...float64) []types.PriceRecord {
	t.Helper()
	day, err := hours.ParseDate(date)
	require.NoError(t, err)
	var records []types.PriceRecord
	for i, p := range prices {
		start := day.Add(time.Duration(i) * 15 * time.Minute)
		r, err := types.NewPriceRecord(start, start.Add(15*time.Minute), date, p)
		require.NoError(t, err)
		records = append(records, r)
	}
	return records
}

func TestMigrationsSetUserVersion(t *testing.T) {
	db := newTestDatabase(t)

	var ver int
	require.NoError(t, db.read.QueryRow("PRAGMA user_version").Scan(&ver))
	assert.Equal(t, 2, ver)

	// reopening an up to date database applies nothing
	again, err := New(context.Background(), db.path)
	require.NoError(t, err)
	again.Close()
}

func TestPriceRecordRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	in := quarterRecords(t, "2025-07-01", 410.5, -12.25, 388)
	require.NoError(t, db.SavePriceRecords(ctx, in))

	out, err := db.GetPriceRecordsForDate(ctx, "2025-07-01")
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i := range in {
		assert.True(t, in[i].PeriodStart.Equal(out[i].PeriodStart))
		assert.True(t, in[i].PeriodEnd.Equal(out[i].PeriodEnd))
		assert.Equal(t, in[i].Price, out[i].Price)
		assert.Equal(t, in[i].PriceFloorZero, out[i].PriceFloorZero)
		assert.Equal(t, hours.Warsaw(), out[i].PeriodStart.Location())
	}
	assert.Equal(t, 0.0, out[1].PriceFloorZero)

	ok, err := db.HasPriceRecordsForDate(ctx, "2025-07-02")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestSavePriceRecordsReplacesDay(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	require.NoError(t, db.SavePriceRecords(ctx, quarterRecords(t, "2025-07-01", 1, 2, 3, 4)))
	require.NoError(t, db.SavePriceRecords(ctx, quarterRecords(t, "2025-07-02", 5)))

	day, err := hours.ParseDate("2025-07-01")
	require.NoError(t, err)
	hourly, err := types.NewPriceRecord(day, day.Add(time.Hour), "2025-07-01", 2.5)
	require.NoError(t, err)
	require.NoError(t, db.SavePriceRecords(ctx, []types.PriceRecord{hourly}))

	out, err := db.GetPriceRecordsFrom(ctx, "2025-07-01")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, time.Hour, out[0].Granularity())
	assert.Equal(t, "2025-07-02", out[1].BusinessDate)
}

func TestPurgePriceRecords(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	old := hours.Today(time.Now().AddDate(0, 0, -10))
	today := hours.Today(time.Now())
	require.NoError(t, db.SavePriceRecords(ctx, quarterRecords(t, old, 1)))
	require.NoError(t, db.SavePriceRecords(ctx, quarterRecords(t, today, 2)))

	require.NoError(t, db.PurgePriceRecords(ctx, 7))

	out, err := db.GetPriceRecordsFrom(ctx, "2000-01-01")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, today, out[0].BusinessDate)
}

func TestLogEntries(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	now := time.Now().Truncate(time.Second)
	require.NoError(t, db.SaveLogEntry(ctx, LogEntryRow{Timestamp: now, Level: int(slog.LevelDebug), Module: "feed", Message: "debug", Attrs: "{}"}))
	require.NoError(t, db.SaveLogEntry(ctx, LogEntryRow{Timestamp: now, Level: int(slog.LevelWarn), Module: "feed", Message: "first", Attrs: "{}"}))
	require.NoError(t, db.SaveLogEntry(ctx, LogEntryRow{Timestamp: now, Level: int(slog.LevelError), Module: "dispatch", Message: "second", Attrs: `{"a":1}`}))

	entries, err := db.GetLogEntries(ctx, LogQuery{MinLevel: slog.LevelInfo, Limit: 10})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "second", entries[0].Message)
	assert.Equal(t, "dispatch", entries[0].Module)
	assert.True(t, now.Equal(entries[0].Timestamp))

	older, err := db.GetLogEntries(ctx, LogQuery{MinLevel: slog.LevelDebug, BeforeID: entries[0].ID, Limit: 1})
	require.NoError(t, err)
	require.Len(t, older, 1)
	assert.Equal(t, "first", older[0].Message)

	byModule, err := db.GetLogEntries(ctx, LogQuery{MinLevel: slog.LevelDebug, Module: "feed"})
	require.NoError(t, err)
	assert.Len(t, byModule, 2)

	found, err := db.GetLogEntries(ctx, LogQuery{MinLevel: slog.LevelDebug, Search: "SEC"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "second", found[0].Message)

	none, err := db.GetLogEntries(ctx, LogQuery{MinLevel: slog.LevelDebug, Search: "%"})
	require.NoError(t, err)
	assert.Empty(t, none, "like wildcards are matched literally")

	modules, err := db.GetLogModules(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"dispatch", "feed"}, modules)

	require.NoError(t, db.PurgeLog(ctx, 1))
	entries, err = db.GetLogEntries(ctx, LogQuery{MinLevel: slog.LevelDebug})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "second", entries[0].Message)
}

func TestMaskDispatchRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	row := MaskDispatchRow{
		TransId:      "abc",
		BusinessDate: "2025-07-01",
		Kind:         "sell",
		Mode:         1,
		Threshold:    350.5,
		Flip:         true,
		Registers:    []uint16{1, 2, 3, 4, 5, 0xffff},
		Status:       "sent",
		DispatchedAt: time.Now().Truncate(time.Second),
	}
	require.NoError(t, db.SaveMaskDispatch(ctx, row))
	require.NoError(t, db.UpdateMaskDispatchStatus(ctx, "abc", "ack"))

	rows, err := db.GetMaskDispatches(ctx, 5)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ack", rows[0].Status)
	assert.Equal(t, row.Registers, rows[0].Registers)
	assert.True(t, rows[0].Flip)
	assert.True(t, row.DispatchedAt.Equal(rows[0].DispatchedAt))
}

func TestBackupAndPurge(t *testing.T) {
	ctx := context.Background()
	db := newTestDatabase(t)

	require.NoError(t, db.PurgeBackups(ctx, 1))
	require.NoError(t, db.Backup(ctx))

	dir := db.backupDir()
	stale := filepath.Join(dir, "20000101_000000_rceprices.db.zip")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))

	require.NoError(t, db.PurgeBackups(ctx, 30))

	files, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Regexp(t, backupName, files[0].Name())
}
