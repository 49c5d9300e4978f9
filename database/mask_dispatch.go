package database

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

type MaskDispatchRow struct {
	TransId      string    `json:"transId"`
	BusinessDate string    `json:"businessDate"`
	Kind         string    `json:"kind"`
	Mode         int       `json:"mode"`
	Threshold    float64   `json:"threshold"`
	Flip         bool      `json:"flip"`
	Registers    []uint16  `json:"registers"`
	Status       string    `json:"status"`
	DispatchedAt time.Time `json:"dispatchedAt"`
}

func (d *Database) SaveMaskDispatch(ctx context.Context, r MaskDispatchRow) error {
	regs, err := json.Marshal(r.Registers)
	if err != nil {
		return fmt.Errorf("encoding registers: %w", err)
	}

	flip := 0
	if r.Flip {
		flip = 1
	}

	_, err = d.write.ExecContext(ctx, `
		INSERT INTO mask_dispatch (trans_id, business_date, kind, mode, threshold, flip, registers, status, dispatched_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.TransId,
		r.BusinessDate,
		r.Kind,
		r.Mode,
		r.Threshold,
		flip,
		string(regs),
		r.Status,
		r.DispatchedAt.UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("saving mask dispatch %s: %w", r.TransId, err)
	}
	return nil
}

// GetMaskDispatches returns the latest dispatches, newest first.
func (d *Database) GetMaskDispatches(ctx context.Context, limit int) ([]MaskDispatchRow, error) {
	if limit < 1 {
		limit = 20
	}

	rows, err := d.read.QueryContext(ctx, `
		SELECT trans_id, business_date, kind, mode, threshold, flip, registers, status, dispatched_at
		FROM mask_dispatch
		ORDER BY id DESC
		LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetching mask dispatches: %w", err)
	}
	defer rows.Close()

	var result []MaskDispatchRow
	for rows.Next() {
		var r MaskDispatchRow
		var flip int
		var regs, ts string
		if err := rows.Scan(&r.TransId, &r.BusinessDate, &r.Kind, &r.Mode, &r.Threshold, &flip, &regs, &r.Status, &ts); err != nil {
			return nil, fmt.Errorf("scanning mask dispatch row: %w", err)
		}
		r.Flip = flip != 0
		if err := json.Unmarshal([]byte(regs), &r.Registers); err != nil {
			return nil, fmt.Errorf("decoding registers of %s: %w", r.TransId, err)
		}
		if r.DispatchedAt, err = parseStored(ts); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading mask dispatch rows: %w", err)
	}

	return result, nil
}

func (d *Database) UpdateMaskDispatchStatus(ctx context.Context, transId, status string) error {
	_, err := d.write.ExecContext(ctx, `UPDATE mask_dispatch SET status = ? WHERE trans_id = ?`, status, transId)
	if err != nil {
		return fmt.Errorf("updating mask dispatch %s: %w", transId, err)
	}
	return nil
}

func (d *Database) PurgeMaskDispatch(ctx context.Context, retentionDays int) error {
	return d.purgeByDate(ctx, "mask_dispatch", "business_date", retentionDays)
}
