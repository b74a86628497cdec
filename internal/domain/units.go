package domain

import "github.com/shopspring/decimal"

// Round2 rounds half away from zero to two decimal places.
func Round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

// Kilometers converts meters for display.
func Kilometers(meters float64) float64 {
	return Round2(meters / 1000)
}

// Hours converts seconds for display.
func Hours(seconds int64) float64 {
	return Round2(float64(seconds) / 3600)
}

// SpeedKMH derives km/h from meters and seconds. Zero duration yields zero.
func SpeedKMH(meters float64, seconds int64) float64 {
	if seconds <= 0 {
		return 0
	}
	return meters / float64(seconds) * 3.6
}
