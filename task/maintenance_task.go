package task

import (
	"context"
	"log/slog"
	"time"

	"github.com/icodeforyou/rceprices-go/config"
	"github.com/icodeforyou/rceprices-go/database"
)

func NewMaintenanceTask(logger *slog.Logger, db *database.Database, cnfg *config.AppConfig) func() {
	return func() {
		logger.Debug("running maintenance task...")

		ctx, cancel := context.WithTimeout(context.Background(), 1*time.Minute)
		defer cancel()

		runMaintenance(ctx, logger, db, cnfg)

		logger.Info("maintenance task done")
	}
}

func runMaintenance(ctx context.Context, logger *slog.Logger, db *database.Database, cnfg *config.AppConfig) {
	if err := db.Backup(ctx); err != nil {
		logger.Error("database backup error", slog.Any("error", err))
	}

	if err := db.PurgeBackups(ctx, cnfg.Database.GetBackupRetentionDays()); err != nil {
		logger.Error("backup maintenance error", slog.Any("error", err))
	}

	if err := db.PurgeLog(ctx, cnfg.Logging.GetDbMaxEntries()); err != nil {
		logger.Error("log maintenance error", slog.Any("error", err))
	}

	if err := db.PurgePriceRecords(ctx, cnfg.Database.GetDataRetentionDays()); err != nil {
		logger.Error("price_record maintenance error", slog.Any("error", err))
	}

	if err := db.PurgeMaskDispatch(ctx, cnfg.Database.GetDataRetentionDays()); err != nil {
		logger.Error("mask_dispatch maintenance error", slog.Any("error", err))
	}
}
