package www

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log"
	"log/slog"
	"net/http"
	"os"
	"path"
	"time"

	"github.com/icodeforyou/rceprices-go/config"
	"github.com/icodeforyou/rceprices-go/database"
	"github.com/icodeforyou/rceprices-go/dispatch"
	"github.com/icodeforyou/rceprices-go/feed"
	"github.com/icodeforyou/rceprices-go/metrics"
	"github.com/icodeforyou/rceprices-go/types"
)

type PriceSource interface {
	Snapshot(ctx context.Context) (feed.Snapshot, error)
	Refresh(ctx context.Context) (feed.Snapshot, error)
	Current() (feed.Snapshot, bool)
	LastFetch() time.Time
}

type Store interface {
	GetLogEntries(ctx context.Context, q database.LogQuery) ([]database.LogEntryRow, error)
	GetLogModules(ctx context.Context) ([]string, error)
	GetMaskDispatches(ctx context.Context, limit int) ([]database.MaskDispatchRow, error)
	GetPriceRecordsForDate(ctx context.Context, date string) ([]types.PriceRecord, error)
}

type MaskRunner interface {
	Run(ctx context.Context) ([]dispatch.Outcome, error)
}

type Server struct {
	logger *slog.Logger
	cnfg   func() *config.AppConfig
	view   *priceView
	hub    *Hub
	mux    *http.ServeMux
}

//go:embed static
var embeddedStaticDir embed.FS

// NewServer wires the handlers. md is nil when dispatching is disabled.
func NewServer(cnfg func() *config.AppConfig, prices PriceSource, db Store, md MaskRunner, version string) (*Server, error) {
	return newServer(cnfg, prices, db, md, version, time.Now)
}

func newServer(cnfg func() *config.AppConfig, prices PriceSource, db Store, md MaskRunner, version string, now func() time.Time) (*Server, error) {
	logger := slog.Default().With("module", "www")
	api := cnfg().Api

	tm, err := NewTemplateManager(logger, api.WwwDir)
	if err != nil {
		return nil, fmt.Errorf("template manager initialization: %w", err)
	}

	s := &Server{
		logger: logger,
		cnfg:   cnfg,
		view:   &priceView{prices: prices, history: db, cnfg: cnfg, now: now},
		hub:    NewHub(logger),
		mux:    http.NewServeMux(),
	}

	logReqMW := func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s.logger.Debug("http request",
				slog.String("method", r.Method),
				slog.String("url", r.URL.String()),
				slog.String("remoteAddr", r.RemoteAddr))
			next.ServeHTTP(w, r)
		})
	}
	handle := func(pattern, name string, h func(*slog.Logger) http.HandlerFunc) {
		s.mux.Handle(pattern, logReqMW(h(logger.With(slog.String("handler", name)))))
	}

	s.mux.Handle("/", staticFilesHandler(api.WwwDir))
	handle("/{$}", "dashboard", func(l *slog.Logger) http.HandlerFunc { return NewDashboardHandler(l, s.view, tm) })
	handle("/log", "log", func(l *slog.Logger) http.HandlerFunc { return NewLogPageHandler(l, db, tm) })

	handle("/api/metrics", "metrics", func(l *slog.Logger) http.HandlerFunc { return NewMetricsHandler(l, s.view) })
	handle("/api/metrics/{name}", "metric", func(l *slog.Logger) http.HandlerFunc { return NewMetricHandler(l, s.view) })
	handle("/api/slots", "slots", func(l *slog.Logger) http.HandlerFunc { return NewSlotsHandler(l, s.view) })
	handle("/api/prices", "prices", func(l *slog.Logger) http.HandlerFunc { return NewPricesHandler(l, s.view) })
	handle("/api/summary", "summary", func(l *slog.Logger) http.HandlerFunc { return NewSummaryHandler(l, s.view) })
	handle("/api/window", "window", func(l *slog.Logger) http.HandlerFunc { return NewWindowHandler(l, s.view) })
	handle("/api/threshold", "threshold", func(l *slog.Logger) http.HandlerFunc { return NewThresholdHandler(l, s.view) })
	handle("/api/mask", "mask", func(l *slog.Logger) http.HandlerFunc { return NewMaskHandler(l, s.view) })
	handle("/api/refresh", "refresh", func(l *slog.Logger) http.HandlerFunc { return NewRefreshHandler(l, prices) })
	handle("/api/dispatch", "dispatch", func(l *slog.Logger) http.HandlerFunc { return NewDispatchHandler(l, md, db) })
	handle("/api/log", "log", func(l *slog.Logger) http.HandlerFunc { return NewLogHandler(l, db) })
	handle("/api/status", "status", func(l *slog.Logger) http.HandlerFunc {
		return NewStatusHandler(l, prices, cnfg, version, now)
	})

	s.mux.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		name := r.Header.Get("User-Agent")
		client, err := NewClient(s.hub, w, r, name)
		if err != nil {
			s.logger.Error("new websocket client failed", slog.Any("error", err))
			return
		}
		s.hub.Register <- client
		go client.WritePump()
		go client.ReadPump()
	})

	return s, nil
}

func (s *Server) Handler() http.Handler {
	return s.mux
}

// Run serves until ctx is done and pushes the metric set to websocket
// clients on every broadcast interval.
func (s *Server) Run(ctx context.Context) error {
	api := s.cnfg().Api
	s.logger.Info("starting server...", slog.String("address", api.Address), slog.Int("port", int(api.Port)))
	srv := &http.Server{
		Addr:              fmt.Sprintf("%s:%d", api.Address, api.Port),
		Handler:           s.mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	hubCtx, stopHub := context.WithCancel(ctx)
	defer stopHub()
	go s.hub.Run(hubCtx)

	srvErrors := make(chan error, 1)
	go func() {
		srvErrors <- srv.ListenAndServe()
	}()

	ticker := time.NewTicker(api.GetBroadcastInterval())
	defer ticker.Stop()

	// Keeping state to avoid spamming logs
	broadcastErrorState := false

	for {
		select {
		case err := <-srvErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)

		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				s.logger.Error("server shutdown failed", slog.Any("error", err))
			}
			return nil

		case <-ticker.C:
			if err := s.broadcastMetrics(ctx); err != nil {
				if !broadcastErrorState {
					broadcastErrorState = true
					s.logger.Warn("failed to broadcast metrics", slog.Any("error", err))
				}
			} else {
				broadcastErrorState = false
			}
		}
	}
}

type metricsMessage struct {
	Type      string          `json:"type"`
	FetchedAt time.Time       `json:"fetchedAt"`
	Stale     bool            `json:"stale"`
	Values    []metrics.Value `json:"values"`
}

func (s *Server) broadcastMetrics(ctx context.Context) error {
	if s.hub.ClientCount() == 0 {
		return nil
	}

	e, snap, err := s.view.evaluator(ctx)
	if err != nil {
		return err
	}
	buf, err := json.Marshal(metricsMessage{
		Type:      "metrics",
		FetchedAt: snap.FetchedAt,
		Stale:     snap.Stale,
		Values:    e.All(),
	})
	if err != nil {
		return fmt.Errorf("encoding metrics: %w", err)
	}

	select {
	case s.hub.Broadcast <- buf:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func staticFilesHandler(extDir *string) http.Handler {
	if extDir != nil && *extDir != "" {
		staticDir := path.Join(*extDir, "static")
		if _, err := os.Stat(staticDir); err == nil {
			return http.FileServer(http.Dir(staticDir))
		}
	}

	fsys, err := fs.Sub(embeddedStaticDir, "static")
	if err != nil {
		log.Panic(err)
	}
	return http.FileServer(http.FS(fsys))
}
