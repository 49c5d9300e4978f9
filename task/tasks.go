package task

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/icodeforyou/rceprices-go/config"
	"github.com/icodeforyou/rceprices-go/database"
	"github.com/icodeforyou/rceprices-go/feed"
	"github.com/icodeforyou/rceprices-go/hours"
)

type Tasks struct {
	cron            *cron.Cron
	cnfg            *config.AppConfig
	PriceTask       func()
	DispatchTask    func()
	MaintenanceTask func()
}

// NewTasks builds the scheduled jobs. Schedules are read in Warsaw time.
// md may be nil when dispatching is disabled.
func NewTasks(db *database.Database, fd *feed.Feed, md *MaskDispatch, cnfg *config.AppConfig) *Tasks {
	logger := slog.Default().With("module", "tasks")
	t := &Tasks{
		cron: cron.New(
			cron.WithLocation(hours.Warsaw()),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		cnfg:            cnfg,
		PriceTask:       NewPriceTask(logger.With(slog.String("task", "price")), db, fd),
		MaintenanceTask: NewMaintenanceTask(logger.With(slog.String("task", "maintenance")), db, cnfg),
	}
	if md != nil {
		t.DispatchTask = NewDispatchTask(logger.With(slog.String("task", "dispatch")), md)
	}
	return t
}

func (t *Tasks) Run() error {
	jobs := []struct {
		name string
		spec string
		fn   func()
	}{
		{"price", t.cnfg.Feed.GetRunAt(), t.PriceTask},
		{"dispatch", t.cnfg.Dispatch.GetRunAt(), t.DispatchTask},
		{"maintenance", t.cnfg.Maintenance.GetRunAt(), t.MaintenanceTask},
	}
	for _, j := range jobs {
		if j.fn == nil {
			continue
		}
		if _, err := t.cron.AddFunc(j.spec, j.fn); err != nil {
			return fmt.Errorf("scheduling %s task %q: %w", j.name, j.spec, err)
		}
	}
	t.cron.Start()
	return nil
}

func (t *Tasks) Stop() context.Context {
	return t.cron.Stop()
}
