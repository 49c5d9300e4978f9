// Command rce_fetch downloads the current RCE prices once and prints a day
// summary, the cheapest and most expensive windows and the slot mask.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/lmittmann/tint"

	"github.com/icodeforyou/rceprices-go/calc"
	"github.com/icodeforyou/rceprices-go/hours"
	"github.com/icodeforyou/rceprices-go/mask"
	"github.com/icodeforyou/rceprices-go/pse"
	"github.com/icodeforyou/rceprices-go/types"
)

type report struct {
	Date      string       `json:"date"`
	Records   int          `json:"records"`
	Summary   calc.Summary `json:"summary"`
	Cheapest  string       `json:"cheapest"`
	Expensive string       `json:"expensive"`
	Threshold float64      `json:"threshold"`
	Mask      string       `json:"mask"`
}

func main() {
	url := flag.String("url", pse.DefaultURL, "price endpoint")
	hourly := flag.Bool("hourly", false, "average quarters into hourly prices")
	day := flag.String("day", "today", "today or tomorrow")
	duration := flag.Int("duration", 2, "window length in hours")
	threshold := flag.Float64("threshold", 0, "mask threshold in PLN/MWh")
	flip := flag.Bool("flip", false, "mark slots at or above the threshold")
	asJSON := flag.Bool("json", false, "print the report as json")
	debug := flag.Bool("debug", false, "debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *debug {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(tint.NewHandler(os.Stderr, &tint.Options{
		Level:      level,
		TimeFormat: time.RFC3339,
	})))

	if err := run(*url, *hourly, *day, *duration, *threshold, *flip, *asJSON); err != nil {
		slog.Error("rce_fetch failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func run(url string, hourly bool, day string, duration int, threshold float64, flip, asJSON bool) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	date := hours.Today(time.Now())
	if day == "tomorrow" {
		date = hours.Tomorrow(time.Now())
	}

	records, err := pse.New(url, hourly).GetPriceRecords(ctx)
	if err != nil {
		return err
	}
	records = types.DaySliceOf(records, date)
	if len(records) == 0 {
		return fmt.Errorf("no prices published for %s", date)
	}

	summary, err := calc.Summarize(records)
	if err != nil {
		return err
	}
	cheapest, err := calc.OptimalWindow(records, 0, 24, duration, false)
	if err != nil {
		return err
	}
	expensive, err := calc.OptimalWindow(records, 0, 24, duration, true)
	if err != nil {
		return err
	}
	regs, err := mask.ForDay(records, threshold, flip)
	if err != nil {
		return err
	}

	r := report{
		Date:      date,
		Records:   len(records),
		Summary:   summary,
		Cheapest:  calc.FormatTimeRange(cheapest),
		Expensive: calc.FormatTimeRange(expensive),
		Threshold: threshold,
		Mask:      regs.String(),
	}

	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	}

	fmt.Printf("date:       %s (%d records)\n", r.Date, r.Records)
	fmt.Printf("average:    %.2f PLN/MWh (median %.2f)\n", summary.Average, summary.Median)
	fmt.Printf("min / max:  %.2f / %.2f PLN/MWh\n", summary.Min, summary.Max)
	fmt.Printf("cheapest:   %s\n", r.Cheapest)
	fmt.Printf("expensive:  %s\n", r.Expensive)
	fmt.Printf("mask < %.2f: %s\n", threshold, r.Mask)
	return nil
}
