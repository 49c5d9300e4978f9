package database

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"
)

type LogEntryRow struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Level     int       `json:"level"`
	Module    string    `json:"module,omitempty"`
	Message   string    `json:"message"`
	Attrs     string    `json:"attrs"`
}

// LogQuery selects log entries newest first. Paging is by id: BeforeID is the
// id of the oldest entry already shown, 0 starts at the newest one.
type LogQuery struct {
	MinLevel slog.Level
	Module   string // exact match
	Search   string // case insensitive substring of the message
	BeforeID int64
	Limit    int
}

func (d *Database) SaveLogEntry(ctx context.Context, r LogEntryRow) error {
	_, err := d.write.ExecContext(ctx, `
		INSERT INTO log (timestamp, level, module, message, attrs)
		VALUES (?, ?, ?, ?, ?)`,
		r.Timestamp.UTC().Format(time.RFC3339),
		r.Level,
		r.Module,
		r.Message,
		r.Attrs)
	if err != nil {
		return fmt.Errorf("saving log entry: %w", err)
	}
	return nil
}

func (d *Database) GetLogEntries(ctx context.Context, q LogQuery) ([]LogEntryRow, error) {
	if q.Limit < 1 {
		q.Limit = 25
	}

	where := []string{"level >= ?"}
	args := []any{int(q.MinLevel)}
	if q.Module != "" {
		where = append(where, "module = ?")
		args = append(args, q.Module)
	}
	if q.Search != "" {
		where = append(where, "message LIKE ? ESCAPE '\\'")
		args = append(args, "%"+escapeLike(q.Search)+"%")
	}
	if q.BeforeID > 0 {
		where = append(where, "id < ?")
		args = append(args, q.BeforeID)
	}
	args = append(args, q.Limit)

	rows, err := d.read.QueryContext(ctx, `
		SELECT id, timestamp, level, module, message, COALESCE(attrs, '')
		FROM log
		WHERE `+strings.Join(where, " AND ")+`
		ORDER BY id DESC
		LIMIT ?`, args...)
	if err != nil {
		return nil, fmt.Errorf("fetching log entries: %w", err)
	}
	defer rows.Close()

	var ts string
	var entries []LogEntryRow
	for rows.Next() {
		var r LogEntryRow
		if err := rows.Scan(&r.ID, &ts, &r.Level, &r.Module, &r.Message, &r.Attrs); err != nil {
			return nil, fmt.Errorf("scanning log row: %w", err)
		}
		r.Timestamp, err = time.Parse(time.RFC3339, ts)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		entries = append(entries, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading log rows: %w", err)
	}

	return entries, nil
}

// GetLogModules lists the modules that have logged, for the viewer's filter.
func (d *Database) GetLogModules(ctx context.Context) ([]string, error) {
	rows, err := d.read.QueryContext(ctx, `
		SELECT DISTINCT module FROM log WHERE module != '' ORDER BY module`)
	if err != nil {
		return nil, fmt.Errorf("fetching log modules: %w", err)
	}
	defer rows.Close()

	var modules []string
	for rows.Next() {
		var m string
		if err := rows.Scan(&m); err != nil {
			return nil, fmt.Errorf("scanning log module: %w", err)
		}
		modules = append(modules, m)
	}
	return modules, rows.Err()
}

func (d *Database) PurgeLog(ctx context.Context, maxLogEntries int) error {
	d.logger.Debug("purging log")
	_, err := d.write.ExecContext(ctx, `
		DELETE FROM log WHERE id <= (SELECT id FROM log ORDER BY id DESC LIMIT 1 OFFSET ?)`, maxLogEntries)
	if err != nil {
		return fmt.Errorf("purging log: %w", err)
	}
	return nil
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}
