// Package forecast predicts near-future daily spend from the ledger's history.
package forecast

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/pipeline"
)

var (
	ErrInsufficientHistory = errors.New("insufficient history")
	ErrInvalidHorizon      = errors.New("horizon must be at least 1 day")
	ErrTimeout             = errors.New("forecast timed out")
	ErrBadModelOutput      = errors.New("model returned malformed output")
)

// ForecastError wraps any failure of a forecast run with the model that ran it.
type ForecastError struct { //nolint:revive // mirrors config.ConfigError and source.LoadError
	Model string
	Err   error
}

func (e *ForecastError) Error() string {
	return fmt.Sprintf("forecast (%s): %v", e.Model, e.Err)
}

func (e *ForecastError) Unwrap() error { return e.Err }

// Observation is one day of history: the total spent on Date.
type Observation struct {
	Date  time.Time `json:"ds"`
	Value float64   `json:"y"`
}

// Prediction is one day of model output.
type Prediction struct {
	Date      time.Time `json:"ds"`
	Yhat      float64   `json:"yhat"`
	YhatLower float64   `json:"yhat_lower"`
	YhatUpper float64   `json:"yhat_upper"`
}

// Model fits daily history and predicts. Implementations return one
// prediction per history date followed by horizon future days.
type Model interface {
	Name() string
	Predict(ctx context.Context, history []Observation, horizon int) ([]Prediction, error)
}

// Forecaster runs a Model over a ledger with the guards the presentation
// layer relies on: minimum history, a timeout and validated, non-negative output.
type Forecaster struct {
	Model      Model
	Timeout    time.Duration
	MinHistory int
	Logger     *slog.Logger
}

// New builds a Forecaster around m using the forecast settings.
func New(m Model, cfg config.ForecastConfig, logger *slog.Logger) *Forecaster {
	if logger == nil {
		logger = slog.Default()
	}
	return &Forecaster{
		Model:      m,
		Timeout:    cfg.Timeout(),
		MinHistory: cfg.MinHistory,
		Logger:     logger.With("component", "forecast"),
	}
}

// NewModel returns the model named in cfg.
func NewModel(cfg config.ForecastConfig) (Model, error) {
	switch cfg.Model {
	case "", config.ModelTrend:
		return &TrendModel{IntervalWidth: cfg.IntervalWidth}, nil
	case config.ModelRemote:
		if cfg.RemoteURL == "" {
			return nil, &config.ConfigError{Field: "forecast.remote_url", Value: "", Reason: "required when forecast.model is remote"}
		}
		return NewRemoteModel(cfg.RemoteURL), nil
	}
	return nil, &config.ConfigError{Field: "forecast.model", Value: cfg.Model, Reason: "must be trend or remote"}
}

// History aggregates txns into one observation per day with spend, ascending.
// Days without transactions are absent, not zero.
func History(txns []model.Transaction) []Observation {
	daily := pipeline.DailySeries(txns, false)
	out := make([]Observation, len(daily))
	for i, d := range daily {
		out[i] = Observation{Date: d.Date, Value: d.Total.InexactFloat64()}
	}
	return out
}

// Forecast predicts daily spend for the horizon days after the last
// transaction date.
func (f *Forecaster) Forecast(ctx context.Context, txns []model.Transaction, horizon int) ([]model.ForecastPoint, error) {
	name := "none"
	if f.Model != nil {
		name = f.Model.Name()
	}
	fail := func(err error) ([]model.ForecastPoint, error) {
		return nil, &ForecastError{Model: name, Err: err}
	}

	if horizon < 1 {
		return fail(fmt.Errorf("%w (got %d)", ErrInvalidHorizon, horizon))
	}
	if f.Model == nil {
		return fail(errors.New("no model configured"))
	}

	history := History(txns)
	minHistory := max(f.MinHistory, 2)
	if len(history) < minHistory {
		return fail(fmt.Errorf("%w: %d day(s) of spend, need %d", ErrInsufficientHistory, len(history), minHistory))
	}

	start := time.Now()
	preds, err := f.run(ctx, history, horizon)
	if err != nil {
		return fail(err)
	}
	f.logger().Debug("model finished", "model", name, "history_days", len(history), "horizon", horizon, "elapsed", time.Since(start))

	points, err := finalize(preds, history[len(history)-1].Date, horizon)
	if err != nil {
		return fail(err)
	}
	return points, nil
}

func (f *Forecaster) logger() *slog.Logger {
	if f.Logger == nil {
		return slog.Default()
	}
	return f.Logger
}

// run calls the model under the timeout. The select guarantees the deadline
// holds even when a model ignores ctx.
func (f *Forecaster) run(ctx context.Context, history []Observation, horizon int) ([]Prediction, error) {
	if f.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.Timeout)
		defer cancel()
	}

	type result struct {
		preds []Prediction
		err   error
	}
	done := make(chan result, 1)
	go func() {
		p, err := f.Model.Predict(ctx, history, horizon)
		done <- result{p, err}
	}()

	select {
	case r := <-done:
		if r.err != nil && errors.Is(r.err, context.DeadlineExceeded) && ctx.Err() != nil {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, f.Timeout)
		}
		return r.preds, r.err
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, f.Timeout)
		}
		return nil, ctx.Err()
	}
}

// finalize keeps the last horizon predictions, checks they are the
// consecutive days after lastDay and clamps every value at zero.
func finalize(preds []Prediction, lastDay time.Time, horizon int) ([]model.ForecastPoint, error) {
	if len(preds) < horizon {
		return nil, fmt.Errorf("%w: %d predictions for a %d-day horizon", ErrBadModelOutput, len(preds), horizon)
	}
	tail := preds[len(preds)-horizon:]

	out := make([]model.ForecastPoint, horizon)
	want := model.Day(lastDay)
	for i, p := range tail {
		want = want.AddDate(0, 0, 1)
		if got := model.Day(p.Date); !got.Equal(want) {
			return nil, fmt.Errorf("%w: day %d is %s, want %s", ErrBadModelOutput, i+1, got.Format(time.DateOnly), want.Format(time.DateOnly))
		}
		for _, v := range []float64{p.Yhat, p.YhatLower, p.YhatUpper} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, fmt.Errorf("%w: non-finite value on %s", ErrBadModelOutput, want.Format(time.DateOnly))
			}
		}
		out[i] = model.ForecastPoint{
			Date:      want,
			Predicted: math.Max(0, p.Yhat),
			Lower:     math.Max(0, p.YhatLower),
			Upper:     math.Max(0, p.YhatUpper),
		}
	}
	return out, nil
}
