package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

const (
	defaultIntervalWidth = 0.80
	// History must span this many days before weekday effects are fitted.
	seasonalMinSpan = 14
	hoursPerDay     = 24
)

// TrendModel fits a least-squares line over the day index plus an additive
// day-of-week effect, with a normal prediction band that widens with the
// distance from the last observation.
type TrendModel struct {
	// IntervalWidth is the coverage of [YhatLower, YhatUpper], 0 < w < 1.
	IntervalWidth float64
}

func (m *TrendModel) Name() string { return "trend" }

// CacheTag identifies the model and its parameters for forecast caching.
func (m *TrendModel) CacheTag() string {
	return fmt.Sprintf("trend/w=%.3f", m.width())
}

func (m *TrendModel) width() float64 {
	if m.IntervalWidth <= 0 || m.IntervalWidth >= 1 {
		return defaultIntervalWidth
	}
	return m.IntervalWidth
}

func dayIndex(origin, t time.Time) float64 {
	return math.Round(t.Sub(origin).Hours() / hoursPerDay)
}

// Predict returns one prediction per history date and per future day.
func (m *TrendModel) Predict(ctx context.Context, history []Observation, horizon int) ([]Prediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	n := len(history)
	if n < 2 {
		return nil, fmt.Errorf("%w: trend needs 2 days, got %d", ErrInsufficientHistory, n)
	}

	origin := history[0].Date
	xs := make([]float64, n)
	ys := make([]float64, n)
	for i, o := range history {
		xs[i] = dayIndex(origin, o.Date)
		ys[i] = o.Value
	}
	if stat.Variance(xs, nil) == 0 {
		return nil, fmt.Errorf("%w: all observations fall on one day", ErrInsufficientHistory)
	}

	alpha, beta := stat.LinearRegression(xs, ys, nil, false)
	trend := func(x float64) float64 { return alpha + beta*x }

	var weekday [7]float64
	if xs[n-1]+1 >= seasonalMinSpan {
		var sums [7]float64
		var counts [7]int
		for i, o := range history {
			wd := o.Date.Weekday()
			sums[wd] += ys[i] - trend(xs[i])
			counts[wd]++
		}
		for wd := range weekday {
			if counts[wd] > 0 {
				weekday[wd] = sums[wd] / float64(counts[wd])
			}
		}
	}
	fit := func(x float64, t time.Time) float64 { return trend(x) + weekday[t.Weekday()] }

	var ss float64
	for i, o := range history {
		r := ys[i] - fit(xs[i], o.Date)
		ss += r * r
	}
	sigma := 0.0
	if n > 2 {
		sigma = math.Sqrt(ss / float64(n-2))
	}
	z := distuv.UnitNormal.Quantile(0.5 + m.width()/2)

	out := make([]Prediction, 0, n+horizon)
	for i, o := range history {
		y := fit(xs[i], o.Date)
		out = append(out, Prediction{Date: o.Date, Yhat: y, YhatLower: y - z*sigma, YhatUpper: y + z*sigma})
	}

	last := history[n-1].Date
	for h := 1; h <= horizon; h++ {
		if h%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		t := last.AddDate(0, 0, h)
		x := xs[n-1] + float64(h)
		y := fit(x, t)
		band := z * sigma * math.Sqrt(1+float64(h)/float64(n))
		out = append(out, Prediction{Date: t, Yhat: y, YhatLower: y - band, YhatUpper: y + band})
	}
	return out, nil
}
