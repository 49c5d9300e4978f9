package hours

import (
	"fmt"
	"time"
)

const (
	DateLayout  = "2006-01-02"
	DTimeLayout = "2006-01-02 15:04:05"
	ClockLayout = "15:04"
)

var warsawLoc *time.Location

func init() {
	var err error
	warsawLoc, err = time.LoadLocation("Europe/Warsaw")
	if err != nil {
		panic(fmt.Sprintf("failed to load Warsaw location: %v", err))
	}
}

// Warsaw is the market's wall clock, all naive feed timestamps are interpreted in it.
func Warsaw() *time.Location {
	return warsawLoc
}

func InWarsaw(t time.Time) time.Time {
	return t.In(warsawLoc)
}

// DateHour identifies one wall clock hour of a market day.
type DateHour struct {
	Date string
	Hour uint8
}

func (dh DateHour) String() string {
	return fmt.Sprintf("%s %02d", dh.Date, dh.Hour)
}

// Key is the label used for hourly slots, e.g. "H07".
func (dh DateHour) Key() string {
	return fmt.Sprintf("H%02d", dh.Hour)
}

func FromTime(t time.Time) DateHour {
	if t.IsZero() {
		return DateHour{}
	}
	t = t.In(warsawLoc)
	return DateHour{
		Date: t.Format(DateLayout),
		Hour: uint8(t.Hour()),
	}
}

// ParseDTime parses a feed timestamp such as "2025-03-01 14:15:00" as Warsaw wall clock.
func ParseDTime(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DTimeLayout, s, warsawLoc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse dtime %q: %w", s, err)
	}
	return t, nil
}

func ParseDate(s string) (time.Time, error) {
	t, err := time.ParseInLocation(DateLayout, s, warsawLoc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date %q: %w", s, err)
	}
	return t, nil
}

// Today returns the Warsaw calendar date of t.
func Today(t time.Time) string {
	return t.In(warsawLoc).Format(DateLayout)
}

func Tomorrow(t time.Time) string {
	return t.In(warsawLoc).AddDate(0, 0, 1).Format(DateLayout)
}

// QuarterStart truncates t to the start of its 15 minute slot in Warsaw time.
func QuarterStart(t time.Time) time.Time {
	t = t.In(warsawLoc)
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute()/15*15, 0, 0, warsawLoc)
}

// FormatRange renders "HH:MM - HH:MM".
func FormatRange(start, end time.Time) string {
	return fmt.Sprintf("%s - %s", start.In(warsawLoc).Format(ClockLayout), end.In(warsawLoc).Format(ClockLayout))
}

func FormatTime(t time.Time) string {
	return t.In(warsawLoc).Format(DTimeLayout)
}
