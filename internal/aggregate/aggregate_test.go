package aggregate

import (
	"testing"
	"time"

	"pricewatch/internal/model"
)

func samplesAt(base time.Time, prices ...float64) []model.PriceSample {
	out := make([]model.PriceSample, 0, len(prices))
	for i, p := range prices {
		// newest first
		out = append(out, model.PriceSample{
			ID:        int64(len(prices) - i),
			Price:     p,
			CreatedAt: base.Add(-time.Duration(i) * time.Minute),
		})
	}
	return out
}

func TestMovingAverage_Mean(t *testing.T) {
	base := time.Date(2025, 1, 2, 3, 4, 0, 0, time.UTC)
	in := samplesAt(base, 190.0, 189.0, 188.0, 187.0, 186.0)

	got := MovingAverage(in, 0)
	if got != 188.0 {
		t.Fatalf("want 188, got %v", got)
	}
}

func TestMovingAverage_NoBinaryDrift(t *testing.T) {
	in := samplesAt(time.Now(), 0.1, 0.2, 0.3)

	got := MovingAverage(in, 0)
	if got != 0.2 {
		t.Fatalf("want exactly 0.2, got %v", got)
	}
}

func TestMovingAverage_EmptyFallsBack(t *testing.T) {
	if got := MovingAverage(nil, 412.5); got != 412.5 {
		t.Fatalf("want fallback 412.5, got %v", got)
	}
}

func TestLastChecked(t *testing.T) {
	created := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	base := created.Add(48 * time.Hour)

	if got := LastChecked(nil, created); !got.Equal(created) {
		t.Fatalf("empty: want %v, got %v", created, got)
	}

	in := samplesAt(base, 1, 2, 3)
	// unsorted input still picks the newest
	in[0], in[2] = in[2], in[0]
	if got := LastChecked(in, created); !got.Equal(base) {
		t.Fatalf("want %v, got %v", base, got)
	}
}

func TestWindow(t *testing.T) {
	prices := make([]float64, 12)
	for i := range prices {
		prices[i] = float64(i + 1)
	}
	in := samplesAt(time.Now(), prices...)

	got := Window(in)
	if len(got) != model.MovingAverageWindow {
		t.Fatalf("want %d, got %d", model.MovingAverageWindow, len(got))
	}
	if got[0].Price != 1 {
		t.Fatalf("window must keep the newest samples: %+v", got[0])
	}
	if len(Window(in[:3])) != 3 {
		t.Fatalf("short input must pass through")
	}
}
