package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/icodeforyou/rceprices-go/convert"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/types"
)

// SavePriceRecords replaces every business date present in records, so
// switching between quarter and hourly records never leaves a mix behind.
func (d *Database) SavePriceRecords(ctx context.Context, records []types.PriceRecord) error {
	if len(records) == 0 {
		return nil
	}

	tx, err := d.write.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin saving price records: %w", err)
	}
	defer tx.Rollback()

	cleared := make(map[string]bool)
	for _, r := range records {
		if cleared[r.BusinessDate] {
			continue
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM price_record WHERE business_date = ?`, r.BusinessDate); err != nil {
			return fmt.Errorf("clearing price records for %s: %w", r.BusinessDate, err)
		}
		cleared[r.BusinessDate] = true
	}

	for _, r := range records {
		var published sql.NullString
		if !r.PublishedAt.IsZero() {
			published = sql.NullString{String: r.PublishedAt.UTC().Format(time.RFC3339), Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO price_record (period_start, period_end, business_date, price, price_floor_zero, published_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(period_start) DO UPDATE SET
				period_end = excluded.period_end,
				business_date = excluded.business_date,
				price = excluded.price,
				price_floor_zero = excluded.price_floor_zero,
				published_at = excluded.published_at`,
			r.PeriodStart.UTC().Format(time.RFC3339),
			r.PeriodEnd.UTC().Format(time.RFC3339),
			r.BusinessDate,
			convert.RoundFloat64(r.Price, 4),
			convert.RoundFloat64(r.PriceFloorZero, 4),
			published)
		if err != nil {
			return fmt.Errorf("saving price record %s: %w", r.PeriodStart, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit price records: %w", err)
	}
	return nil
}

// GetPriceRecordsFrom returns every record with a business date on or after date.
func (d *Database) GetPriceRecordsFrom(ctx context.Context, date string) ([]types.PriceRecord, error) {
	return d.queryPriceRecords(ctx, `
		SELECT period_start, period_end, business_date, price, price_floor_zero, published_at
		FROM price_record
		WHERE business_date >= ?
		ORDER BY period_start ASC`, date)
}

func (d *Database) GetPriceRecordsForDate(ctx context.Context, date string) ([]types.PriceRecord, error) {
	return d.queryPriceRecords(ctx, `
		SELECT period_start, period_end, business_date, price, price_floor_zero, published_at
		FROM price_record
		WHERE business_date = ?
		ORDER BY period_start ASC`, date)
}

func (d *Database) HasPriceRecordsForDate(ctx context.Context, date string) (bool, error) {
	var n int
	err := d.read.QueryRowContext(ctx, `SELECT COUNT(*) FROM price_record WHERE business_date = ?`, date).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("counting price records for %s: %w", date, err)
	}
	return n > 0, nil
}

func (d *Database) queryPriceRecords(ctx context.Context, query string, args ...any) ([]types.PriceRecord, error) {
	rows, err := d.read.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching price records: %w", err)
	}
	defer rows.Close()

	var records []types.PriceRecord
	for rows.Next() {
		var start, end string
		var published sql.NullString
		var r types.PriceRecord
		if err := rows.Scan(&start, &end, &r.BusinessDate, &r.Price, &r.PriceFloorZero, &published); err != nil {
			return nil, fmt.Errorf("scanning price record row: %w", err)
		}
		if r.PeriodStart, err = parseStored(start); err != nil {
			return nil, err
		}
		if r.PeriodEnd, err = parseStored(end); err != nil {
			return nil, err
		}
		if published.Valid {
			if r.PublishedAt, err = parseStored(published.String); err != nil {
				return nil, err
			}
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading price record rows: %w", err)
	}

	return records, nil
}

func (d *Database) PurgePriceRecords(ctx context.Context, retentionDays int) error {
	return d.purgeByDate(ctx, "price_record", "business_date", retentionDays)
}

func parseStored(s string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing stored timestamp %q: %w", s, err)
	}
	return hours.InWarsaw(t), nil
}
