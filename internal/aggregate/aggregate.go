// Package aggregate reduces a window of samples into the values a SymbolView reports.
package aggregate

import (
	"time"

	"github.com/shopspring/decimal"

	"pricewatch/internal/model"
)

// MovingAverage returns the arithmetic mean of the sample prices.
// With no samples it returns fallback, which callers set to the current price.
func MovingAverage(samples []model.PriceSample, fallback float64) float64 {
	if len(samples) == 0 {
		return fallback
	}
	sum := decimal.Zero
	for _, s := range samples {
		sum = sum.Add(decimal.NewFromFloat(s.Price))
	}
	mean, _ := sum.Div(decimal.NewFromInt(int64(len(samples)))).Float64()
	return mean
}

// LastChecked returns the newest sample time, or created when there are no samples.
// Samples need not be sorted.
func LastChecked(samples []model.PriceSample, created time.Time) time.Time {
	if len(samples) == 0 {
		return created
	}
	latest := samples[0].CreatedAt
	for _, s := range samples[1:] {
		if s.CreatedAt.After(latest) {
			latest = s.CreatedAt
		}
	}
	return latest
}

// Window trims samples, assumed newest first, to the moving-average window.
func Window(samples []model.PriceSample) []model.PriceSample {
	if len(samples) > model.MovingAverageWindow {
		return samples[:model.MovingAverageWindow]
	}
	return samples
}
