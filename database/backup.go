package database

import (
	"archive/zip"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"time"
)

const backupStamp = "20060102_150405"

var backupName = regexp.MustCompile(`^(\d{8}_\d{6})_rceprices\.db\.zip$`)

func (d *Database) backupDir() string {
	return filepath.Join(filepath.Dir(d.path), "backups")
}

// Backup writes a compacted copy of the database into backups/ as a zip archive.
func (d *Database) Backup(ctx context.Context) error {
	dir := d.backupDir()
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create backup directory: %w", err)
	}

	dest := filepath.Join(dir, fmt.Sprintf("%s_rceprices.db", time.Now().Format(backupStamp)))
	if _, err := d.write.ExecContext(ctx, "VACUUM INTO ?", dest); err != nil {
		return fmt.Errorf("vacuuming database into '%s': %w", dest, err)
	}

	zipPath := dest + ".zip"
	if err := d.compress(dest, zipPath); err != nil {
		os.Remove(zipPath)
		return err
	}

	if err := os.Remove(dest); err != nil {
		d.logger.Warn("could not remove uncompressed backup", slog.String("error", err.Error()))
	}

	d.logger.Info("database backup complete", slog.String("filename", zipPath))
	return nil
}

func (d *Database) compress(src, zipPath string) error {
	zipFile, err := os.Create(zipPath)
	if err != nil {
		return fmt.Errorf("create zip file: %w", err)
	}
	defer zipFile.Close()

	dbFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open database backup for compression: %w", err)
	}
	defer dbFile.Close()

	info, err := dbFile.Stat()
	if err != nil {
		return fmt.Errorf("get file info: %w", err)
	}

	header, err := zip.FileInfoHeader(info)
	if err != nil {
		return fmt.Errorf("create zip header: %w", err)
	}
	header.Name = filepath.Base(d.path)
	header.Method = zip.Deflate

	zw := zip.NewWriter(zipFile)
	w, err := zw.CreateHeader(header)
	if err != nil {
		zw.Close()
		return fmt.Errorf("create zip file entry: %w", err)
	}
	if _, err := io.Copy(w, dbFile); err != nil {
		zw.Close()
		return fmt.Errorf("write database to zip: %w", err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("finalize zip file: %w", err)
	}
	return zipFile.Close()
}

// PurgeBackups removes backup archives older than retentionDays. A retention
// below one day keeps everything.
func (d *Database) PurgeBackups(ctx context.Context, retentionDays int) error {
	if retentionDays < 1 {
		return nil
	}
	cutoff := time.Now().AddDate(0, 0, -retentionDays)

	dir := d.backupDir()
	d.logger.Debug("purging old backups", slog.String("dir", dir))

	files, err := os.ReadDir(dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("read backup directory: %w", err)
	}

	removed := 0
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return err
		}
		m := backupName.FindStringSubmatch(file.Name())
		if m == nil {
			continue
		}
		t, err := time.ParseInLocation(backupStamp, m[1], time.Local)
		if err != nil {
			d.logger.Debug("failed to parse backup timestamp", slog.String("filename", file.Name()), slog.String("error", err.Error()))
			continue
		}
		if t.Before(cutoff) {
			p := filepath.Join(dir, file.Name())
			if err := os.Remove(p); err != nil {
				return fmt.Errorf("remove old backup '%s': %w", p, err)
			}
			removed++
		}
	}

	d.logger.Info("backup purge complete", slog.Int("removed", removed))
	return nil
}
