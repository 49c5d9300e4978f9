package convert

import (
	"math"
)

func TwoDecimals(number float64) float64 {
	return RoundFloat64(number, 2)
}

func ThreeDecimals(number float64) float64 {
	return RoundFloat64(number, 3)
}

func RoundFloat64(number float64, decimals int) float64 {
	return math.Round(number*math.Pow10(decimals)) / math.Pow10(decimals)
}

// MWhToKWh converts a PLN/MWh price into PLN/kWh.
func MWhToKWh(pricePerMWh float64) float64 {
	return pricePerMWh / 1e3
}

// KWToQuarterKWh is the energy delivered by a constant power during one 15 minute slot.
func KWToQuarterKWh(kW float64) float64 {
	return kW * 0.25
}
