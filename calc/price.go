package calc

import "github.com/icodeforyou/rceprices-go/convert"

// TaxRate is the VAT applied on top of the net market price.
const TaxRate = 0.23

func GrossPrice(price float64) float64 {
	return price * (1 + TaxRate)
}

// KWhPrice converts a net PLN/MWh price into PLN/kWh.
func KWhPrice(pricePerMWh float64) float64 {
	return convert.MWhToKWh(pricePerMWh)
}

func GrossKWhPrice(pricePerMWh float64) float64 {
	return GrossPrice(KWhPrice(pricePerMWh))
}
