package metrics

type Metric string

const (
	TodayAvgPrice          Metric = "today_avg_price"
	TodayMinPrice          Metric = "today_min_price"
	TodayMaxPrice          Metric = "today_max_price"
	TodayMedianPrice       Metric = "today_median_price"
	TodayCurrentPrice      Metric = "today_current_price"
	TodayCurrentVsAverage  Metric = "today_current_vs_average"
	CurrentKWhPrice        Metric = "current_kwh_price"
	CurrentGrossKWhPrice   Metric = "current_gross_kwh_price"
	NextHourPrice          Metric = "next_hour_price"
	Next2HoursPrice        Metric = "next_2_hours_price"
	Next3HoursPrice        Metric = "next_3_hours_price"
	PreviousHourPrice      Metric = "previous_hour_price"
	TomorrowAvgPrice       Metric = "tomorrow_avg_price"
	TomorrowMinPrice       Metric = "tomorrow_min_price"
	TomorrowMaxPrice       Metric = "tomorrow_max_price"
	TomorrowMedianPrice    Metric = "tomorrow_median_price"
	TomorrowVsTodayAverage Metric = "tomorrow_vs_today_avg"

	TodayMinPriceHourStart    Metric = "today_min_price_hour_start"
	TodayMinPriceHourEnd      Metric = "today_min_price_hour_end"
	TodayMinPriceRange        Metric = "today_min_price_range"
	TodayMaxPriceHourStart    Metric = "today_max_price_hour_start"
	TodayMaxPriceHourEnd      Metric = "today_max_price_hour_end"
	TodayMaxPriceRange        Metric = "today_max_price_range"
	TomorrowMinPriceHourStart Metric = "tomorrow_min_price_hour_start"
	TomorrowMinPriceHourEnd   Metric = "tomorrow_min_price_hour_end"
	TomorrowMinPriceRange     Metric = "tomorrow_min_price_range"
	TomorrowMaxPriceHourStart Metric = "tomorrow_max_price_hour_start"
	TomorrowMaxPriceHourEnd   Metric = "tomorrow_max_price_hour_end"
	TomorrowMaxPriceRange     Metric = "tomorrow_max_price_range"

	TodayCheapestWindowStart     Metric = "today_cheapest_window_start"
	TodayCheapestWindowEnd       Metric = "today_cheapest_window_end"
	TodayCheapestWindowRange     Metric = "today_cheapest_window_range"
	TodayExpensiveWindowStart    Metric = "today_expensive_window_start"
	TodayExpensiveWindowEnd      Metric = "today_expensive_window_end"
	TodayExpensiveWindowRange    Metric = "today_expensive_window_range"
	TomorrowCheapestWindowStart  Metric = "tomorrow_cheapest_window_start"
	TomorrowCheapestWindowEnd    Metric = "tomorrow_cheapest_window_end"
	TomorrowCheapestWindowRange  Metric = "tomorrow_cheapest_window_range"
	TomorrowExpensiveWindowStart Metric = "tomorrow_expensive_window_start"
	TomorrowExpensiveWindowEnd   Metric = "tomorrow_expensive_window_end"
	TomorrowExpensiveWindowRange Metric = "tomorrow_expensive_window_range"

	TodayMorningPeakWindow    Metric = "today_morning_peak_window"
	TodayEveningPeakWindow    Metric = "today_evening_peak_window"
	TomorrowMorningPeakWindow Metric = "tomorrow_morning_peak_window"
	TomorrowEveningPeakWindow Metric = "tomorrow_evening_peak_window"

	OptimalBuyThreshold Metric = "optimal_buy_threshold"

	TodayMinPriceWindowActive  Metric = "today_min_price_window_active"
	TodayMaxPriceWindowActive  Metric = "today_max_price_window_active"
	TodayCheapestWindowActive  Metric = "today_cheapest_window_active"
	TodayExpensiveWindowActive Metric = "today_expensive_window_active"
)

var all = []Metric{
	TodayAvgPrice, TodayMinPrice, TodayMaxPrice, TodayMedianPrice,
	TodayCurrentPrice, TodayCurrentVsAverage, CurrentKWhPrice, CurrentGrossKWhPrice,
	NextHourPrice, Next2HoursPrice, Next3HoursPrice, PreviousHourPrice,
	TomorrowAvgPrice, TomorrowMinPrice, TomorrowMaxPrice, TomorrowMedianPrice, TomorrowVsTodayAverage,
	TodayMinPriceHourStart, TodayMinPriceHourEnd, TodayMinPriceRange,
	TodayMaxPriceHourStart, TodayMaxPriceHourEnd, TodayMaxPriceRange,
	TomorrowMinPriceHourStart, TomorrowMinPriceHourEnd, TomorrowMinPriceRange,
	TomorrowMaxPriceHourStart, TomorrowMaxPriceHourEnd, TomorrowMaxPriceRange,
	TodayCheapestWindowStart, TodayCheapestWindowEnd, TodayCheapestWindowRange,
	TodayExpensiveWindowStart, TodayExpensiveWindowEnd, TodayExpensiveWindowRange,
	TomorrowCheapestWindowStart, TomorrowCheapestWindowEnd, TomorrowCheapestWindowRange,
	TomorrowExpensiveWindowStart, TomorrowExpensiveWindowEnd, TomorrowExpensiveWindowRange,
	TodayMorningPeakWindow, TodayEveningPeakWindow, TomorrowMorningPeakWindow, TomorrowEveningPeakWindow,
	OptimalBuyThreshold,
	TodayMinPriceWindowActive, TodayMaxPriceWindowActive, TodayCheapestWindowActive, TodayExpensiveWindowActive,
}

// Metrics lists every metric in presentation order.
func Metrics() []Metric {
	return append([]Metric(nil), all...)
}

func (m Metric) String() string {
	return string(m)
}

func (m Metric) IsValid() bool {
	for _, known := range all {
		if m == known {
			return true
		}
	}
	return false
}

func Parse(name string) (Metric, bool) {
	m := Metric(name)
	return m, m.IsValid()
}
