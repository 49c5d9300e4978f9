package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/lmittmann/tint"

	"github.com/icodeforyou/rceprices-go/config"
	"github.com/icodeforyou/rceprices-go/database"
	"github.com/icodeforyou/rceprices-go/dispatch"
	"github.com/icodeforyou/rceprices-go/feed"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/logging"
	"github.com/icodeforyou/rceprices-go/pse"
	"github.com/icodeforyou/rceprices-go/task"
	"github.com/icodeforyou/rceprices-go/www"
)

var Version = "?.?.?"

func main() {
	defer func() {
		if err := recover(); err != nil {
			exitWithError(slog.Default(), fmt.Errorf("application panicked: %v", err))
		} else {
			slog.Default().Info("application is shutting down...")
		}
	}()

	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	live, err := config.LoadLive(*configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	cnfg := live.Get()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	consoleHandler := tint.NewHandler(os.Stdout, &tint.Options{
		Level:      cnfg.Logging.GetConsoleLevel(),
		TimeFormat: time.RFC3339,
	})
	slog.New(consoleHandler).Debug("rceprices is starting...", slog.String("version", Version))

	db, err := database.New(ctx, cnfg.Database.Path)
	if err != nil {
		panic(fmt.Sprintf("failed to connect to database: %v", err))
	}
	defer db.Close()

	handlers := []slog.Handler{
		consoleHandler,
		logging.NewSQLiteHandler(db, cnfg.Logging.GetDbLevel(), cnfg.Logging.GetDbAttrsFormat()),
	}
	if cnfg.Logging.File != "" {
		fileHandler, closer := logging.NewFileHandler(cnfg.Logging.FileOptions(), cnfg.Logging.GetFileLevel())
		defer closeQuietly(closer)
		handlers = append(handlers, fileHandler)
	}
	logger := slog.New(logging.NewMultiHandler(handlers...))
	slog.SetDefault(logger)

	// Now we can use the logger to log database operations into the database itself
	db.SetLogger(logger.With("module", "database"))

	live.Watch(logger.With("module", "config"), func(c *config.AppConfig) {
		logger.Info("config changed, schedules and connections apply after a restart",
			slog.Bool("dispatchEnabled", c.Dispatch.Enabled))
	})

	fd := feed.New(pse.New(cnfg.Feed.GetUrl(), cnfg.Feed.Hourly), feed.Options{
		Interval:   cnfg.Feed.GetInterval(),
		Timeout:    cnfg.Feed.GetTimeout(),
		MaxRetries: uint64(cnfg.Feed.GetMaxRetries()),
	})
	seedFeed(ctx, logger, db, fd)

	var md *task.MaskDispatch
	var runner www.MaskRunner
	if cnfg.Dispatch.Enabled {
		d := dispatch.New(cnfg.Dispatch.Options())
		d.OnLateResponse = func(transId, status string) {
			if err := db.UpdateMaskDispatchStatus(context.Background(), transId, status); err != nil {
				logger.Warn("updating late mask response", slog.String("transId", transId), slog.Any("error", err))
			}
		}
		if isDevMode() {
			logger.Info("dev mode, skipping dispatch connection")
		} else {
			if err := d.Connect(); err != nil {
				panic(fmt.Sprintf("dispatch connection error: %v", err))
			}
			defer d.Disconnect()
		}
		md = task.NewMaskDispatch(fd, d, db, live.Get)
		runner = md
	}

	tasks := task.NewTasks(db, fd, md, cnfg)
	if isDevMode() {
		logger.Info("dev mode, skipping task scheduling")
	} else {
		if err := tasks.Run(); err != nil {
			panic(fmt.Sprintf("failed to schedule tasks: %v", err))
		}
		defer tasks.Stop()
	}

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		select {
		case <-ctx.Done():
			logger.Info("main context done")
		case sig := <-sigCh:
			logger.Info("received signal", slog.Any("signal", sig))
			cancel()
		}
	}()

	server, err := www.NewServer(live.Get, fd, db, runner, Version)
	if err != nil {
		panic(fmt.Sprintf("failed to create server: %v", err))
	}
	if err := server.Run(ctx); err != nil {
		exitWithError(logger, err)
	}
}

// seedFeed installs the stored prices from today on as the fallback snapshot,
// the api has data before the first successful fetch.
func seedFeed(ctx context.Context, logger *slog.Logger, db *database.Database, fd *feed.Feed) {
	records, err := db.GetPriceRecordsFrom(ctx, hours.Today(time.Now()))
	if err != nil {
		logger.Warn("failed to load stored prices", slog.Any("error", err))
		return
	}
	var fetchedAt time.Time
	for _, r := range records {
		if r.PublishedAt.After(fetchedAt) {
			fetchedAt = r.PublishedAt
		}
	}
	fd.Seed(records, fetchedAt)
	logger.Debug("feed seeded from database", slog.Int("records", len(records)))
}

func isDevMode() bool {
	return strings.EqualFold(os.Getenv("APP_ENV"), "development")
}

func closeQuietly(c io.Closer) {
	if err := c.Close(); err != nil {
		slog.Default().Warn("closing log file failed", slog.Any("error", err))
	}
}

func exitWithError(logger *slog.Logger, err error) {
	if err != nil {
		logger.Error("application shutting down with error", slog.Any("error", err))
	}
	if syncer, ok := logger.Handler().(interface{ Sync() error }); ok {
		if syncErr := syncer.Sync(); syncErr != nil {
			logger.Error("failed to flush logger", slog.Any("error", syncErr))
		}
	}

	time.Sleep(2 * time.Second)
	os.Exit(1)
}
