package www

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/icodeforyou/rceprices-go/hours"
)

func intOrDefault(u *url.URL, key string, defaultValue int) (int, error) {
	v := u.Query().Get(key)
	if v == "" {
		return defaultValue, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not an integer", key, v)
	}
	return i, nil
}

func floatOrDefault(u *url.URL, key string, defaultValue float64) (float64, error) {
	v := u.Query().Get(key)
	if v == "" {
		return defaultValue, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: %q is not a number", key, v)
	}
	return f, nil
}

func boolOrDefault(u *url.URL, key string, defaultValue bool) (bool, error) {
	v := u.Query().Get(key)
	if v == "" {
		return defaultValue, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %q is not a boolean", key, v)
	}
	return b, nil
}

// dateParam accepts YYYY-MM-DD, "today" or "tomorrow" and defaults to today.
func dateParam(u *url.URL, now time.Time) (string, error) {
	switch v := u.Query().Get("date"); v {
	case "", "today":
		return hours.Today(now), nil
	case "tomorrow":
		return hours.Tomorrow(now), nil
	default:
		if _, err := hours.ParseDate(v); err != nil {
			return "", fmt.Errorf("date: %q is not a YYYY-MM-DD date", v)
		}
		return v, nil
	}
}

func writeJSON(logger *slog.Logger, w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("writing json response failed", slog.Any("error", err))
	}
}
