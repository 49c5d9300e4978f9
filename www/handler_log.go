package www

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/icodeforyou/rceprices-go/database"
	"github.com/icodeforyou/rceprices-go/logging"
)

const maxLogLimit = 500

func parseLogQuery(r *http.Request) (database.LogQuery, error) {
	q := database.LogQuery{
		MinLevel: slog.LevelDebug,
		Module:   r.URL.Query().Get("module"),
		Search:   r.URL.Query().Get("q"),
	}
	if lvl := r.URL.Query().Get("level"); lvl != "" {
		q.MinLevel = logging.LevelFromString(lvl)
	}

	limit, err := intOrDefault(r.URL, "limit", 25)
	if err != nil {
		return q, err
	}
	if limit < 1 || limit > maxLogLimit {
		return q, fmt.Errorf("limit: %d is outside 1-%d", limit, maxLogLimit)
	}
	q.Limit = limit

	if v := r.URL.Query().Get("before"); v != "" {
		if q.BeforeID, err = strconv.ParseInt(v, 10, 64); err != nil || q.BeforeID < 0 {
			return q, fmt.Errorf("before: %q is not a log entry id", v)
		}
	}
	return q, nil
}

// nextBefore is the cursor of the following page, 0 when this page was the last one.
func nextBefore(entries []database.LogEntryRow, limit int) int64 {
	if len(entries) < limit || len(entries) == 0 {
		return 0
	}
	return entries[len(entries)-1].ID
}

func NewLogHandler(logger *slog.Logger, db Store) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q, err := parseLogQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		e, err := db.GetLogEntries(r.Context(), q)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if e == nil {
			e = []database.LogEntryRow{}
		}
		writeJSON(logger, w, http.StatusOK, struct {
			Entries    []database.LogEntryRow `json:"entries"`
			NextBefore int64                  `json:"nextBefore,omitempty"`
		}{e, nextBefore(e, q.Limit)})
	}
}

func NewLogPageHandler(logger *slog.Logger, db Store, tm *TemplateManager) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}

		q, err := parseLogQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		e, err := db.GetLogEntries(r.Context(), q)
		if err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		modules, err := db.GetLogModules(r.Context())
		if err != nil {
			logger.Warn("loading log modules", slog.Any("error", err))
		}

		data := struct {
			Query      database.LogQuery
			Level      string
			Levels     []string
			Modules    []string
			Entries    []database.LogEntryRow
			NextBefore int64
		}{
			Query:      q,
			Level:      q.MinLevel.String(),
			Levels:     []string{"DEBUG", "INFO", "WARN", "ERROR"},
			Modules:    modules,
			Entries:    e,
			NextBefore: nextBefore(e, q.Limit),
		}

		w.Header().Set("Content-Type", "text/html")
		if err := tm.Execute(w, "log.html", data); err != nil {
			logger.Error("handling log request", slog.Any("error", err))
			http.Error(w, err.Error(), http.StatusInternalServerError)
		}
	}
}
