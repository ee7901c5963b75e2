package forecast

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/model"
)

func day(s string) time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return t
}

func spend(date string, amount int64) model.Transaction {
	return model.Transaction{Date: day(date), Amount: decimal.NewFromInt(amount)}
}

// stubModel echoes history dates and then horizon days of a fixed value.
type stubModel struct {
	value float64
	skew  int // shifts future dates to produce malformed output
	block bool
	calls int
	mu    sync.Mutex
}

func (s *stubModel) Name() string { return "stub" }

func (s *stubModel) Predict(ctx context.Context, history []Observation, horizon int) ([]Prediction, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	if s.block {
		time.Sleep(time.Second)
	}
	var out []Prediction
	for _, o := range history {
		out = append(out, Prediction{Date: o.Date, Yhat: o.Value})
	}
	last := history[len(history)-1].Date
	for h := 1; h <= horizon; h++ {
		out = append(out, Prediction{
			Date:      last.AddDate(0, 0, h+s.skew),
			Yhat:      s.value,
			YhatLower: s.value - 10,
			YhatUpper: s.value + 10,
		})
	}
	return out, nil
}

func newForecaster(m Model) *Forecaster {
	return &Forecaster{Model: m, Timeout: 5 * time.Second, MinHistory: 2}
}

func TestForecastLengthContiguityAndClamp(t *testing.T) {
	txns := []model.Transaction{spend("2024-01-01", 100), spend("2024-01-03", 50), spend("2024-01-03", 25)}
	f := newForecaster(&stubModel{value: -5})

	points, err := f.Forecast(context.Background(), txns, 30)
	require.NoError(t, err)
	require.Len(t, points, 30)

	want := day("2024-01-04")
	for i, p := range points {
		assert.Equal(t, want.AddDate(0, 0, i), p.Date)
		assert.GreaterOrEqual(t, p.Predicted, 0.0)
		assert.GreaterOrEqual(t, p.Lower, 0.0)
		assert.GreaterOrEqual(t, p.Upper, 0.0)
	}
	assert.Equal(t, 0.0, points[0].Predicted)
	assert.Equal(t, 5.0, points[0].Upper)
}

func TestForecastInsufficientHistory(t *testing.T) {
	f := newForecaster(&stubModel{})
	_, err := f.Forecast(context.Background(), []model.Transaction{spend("2024-01-01", 10), spend("2024-01-01", 20)}, 7)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
	var fe *ForecastError
	require.True(t, errors.As(err, &fe))
	assert.Equal(t, "stub", fe.Model)

	_, err = f.Forecast(context.Background(), nil, 7)
	assert.ErrorIs(t, err, ErrInsufficientHistory)
}

func TestForecastInvalidHorizon(t *testing.T) {
	f := newForecaster(&stubModel{})
	_, err := f.Forecast(context.Background(), []model.Transaction{spend("2024-01-01", 1), spend("2024-01-02", 1)}, 0)
	assert.ErrorIs(t, err, ErrInvalidHorizon)
}

func TestForecastRejectsGappedOutput(t *testing.T) {
	f := newForecaster(&stubModel{value: 1, skew: 1})
	_, err := f.Forecast(context.Background(), []model.Transaction{spend("2024-01-01", 1), spend("2024-01-02", 1)}, 3)
	assert.ErrorIs(t, err, ErrBadModelOutput)
}

func TestForecastTimeout(t *testing.T) {
	f := newForecaster(&stubModel{block: true})
	f.Timeout = 20 * time.Millisecond

	start := time.Now()
	_, err := f.Forecast(context.Background(), []model.Transaction{spend("2024-01-01", 1), spend("2024-01-02", 1)}, 3)
	assert.ErrorIs(t, err, ErrTimeout)
	assert.Less(t, time.Since(start), 500*time.Millisecond, "timeout holds even when the model ignores ctx")
}

func TestTrendModelRecoversLine(t *testing.T) {
	var history []Observation
	start := day("2024-03-01")
	for i := 0; i < 10; i++ {
		history = append(history, Observation{Date: start.AddDate(0, 0, i), Value: 100 + 10*float64(i)})
	}

	m := &TrendModel{IntervalWidth: 0.8}
	preds, err := m.Predict(context.Background(), history, 5)
	require.NoError(t, err)
	require.Len(t, preds, 15)

	next := preds[10]
	assert.Equal(t, start.AddDate(0, 0, 10), next.Date)
	assert.InDelta(t, 200, next.Yhat, 1e-6)
	assert.InDelta(t, next.Yhat, next.YhatLower, 1e-6, "perfect fit has no band")
}

func TestTrendModelBandWidensWithHorizon(t *testing.T) {
	var history []Observation
	start := day("2024-03-01")
	for i := 0; i < 30; i++ {
		noise := 15.0
		if i%2 == 0 {
			noise = -15
		}
		history = append(history, Observation{Date: start.AddDate(0, 0, i), Value: 500 + noise})
	}

	preds, err := (&TrendModel{}).Predict(context.Background(), history, 10)
	require.NoError(t, err)

	first, last := preds[30], preds[39]
	assert.Greater(t, first.YhatUpper-first.Yhat, 0.0)
	assert.Greater(t, last.YhatUpper-last.Yhat, first.YhatUpper-first.Yhat)
	for _, p := range preds {
		assert.False(t, math.IsNaN(p.Yhat))
	}
}

func TestTrendModelWeekdayEffect(t *testing.T) {
	var history []Observation
	start := day("2024-04-01") // Monday
	for i := 0; i < 28; i++ {
		v := 100.0
		if start.AddDate(0, 0, i).Weekday() == time.Saturday {
			v = 800
		}
		history = append(history, Observation{Date: start.AddDate(0, 0, i), Value: v})
	}

	preds, err := (&TrendModel{}).Predict(context.Background(), history, 7)
	require.NoError(t, err)

	var sat, mon float64
	for _, p := range preds[28:] {
		switch p.Date.Weekday() {
		case time.Saturday:
			sat = p.Yhat
		case time.Monday:
			mon = p.Yhat
		}
	}
	assert.Greater(t, sat, mon+500)
}

func TestTrendModelThroughForecasterSkipsGaps(t *testing.T) {
	txns := []model.Transaction{spend("2024-01-01", 100), spend("2024-01-10", 100), spend("2024-01-20", 100)}
	f := newForecaster(&TrendModel{})

	points, err := f.Forecast(context.Background(), txns, 3)
	require.NoError(t, err)
	require.Len(t, points, 3)
	assert.Equal(t, day("2024-01-21"), points[0].Date)
	assert.InDelta(t, 100, points[0].Predicted, 1e-6)
}

func TestRemoteModel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/forecast", r.URL.Path)
		assert.Equal(t, http.MethodPost, r.Method)

		var req remoteRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, 2, req.Periods)
		assert.Equal(t, "2024-01-02", req.History[1].DS)

		_, _ = w.Write([]byte(`{"forecast":[
			{"ds":"2024-01-01","yhat":1,"yhat_lower":0,"yhat_upper":2},
			{"ds":"2024-01-02","yhat":1,"yhat_lower":0,"yhat_upper":2},
			{"ds":"2024-01-03 00:00:00","yhat":-4,"yhat_lower":-8,"yhat_upper":3},
			{"ds":"2024-01-04T00:00:00","yhat":7,"yhat_lower":5,"yhat_upper":9}
		]}`))
	}))
	defer srv.Close()

	f := newForecaster(NewRemoteModel(srv.URL + "/"))
	points, err := f.Forecast(context.Background(), []model.Transaction{spend("2024-01-01", 1), spend("2024-01-02", 3)}, 2)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 0.0, points[0].Predicted)
	assert.Equal(t, 3.0, points[0].Upper)
	assert.Equal(t, 7.0, points[1].Predicted)
}

func TestRemoteModelErrors(t *testing.T) {
	tests := []struct {
		status int
		want   error
	}{
		{http.StatusUnprocessableEntity, ErrRemoteRejected},
		{http.StatusBadRequest, ErrRemoteRejected},
		{http.StatusServiceUnavailable, ErrRemoteUnavailable},
	}
	history := []Observation{{Date: day("2024-01-01"), Value: 1}, {Date: day("2024-01-02"), Value: 2}}

	for _, tt := range tests {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "nope", tt.status)
		}))
		_, err := NewRemoteModel(srv.URL).Predict(context.Background(), history, 1)
		assert.ErrorIs(t, err, tt.want, "status %d", tt.status)
		srv.Close()
	}

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"forecast":[{"ds":"soon","yhat":1}]}`))
	}))
	defer srv.Close()
	_, err := NewRemoteModel(srv.URL).Predict(context.Background(), history, 1)
	assert.ErrorIs(t, err, ErrBadModelOutput)
}

type memCache struct {
	entries map[string][]Prediction
	puts    int
}

func (m *memCache) GetForecast(key string) ([]Prediction, bool, error) {
	p, ok := m.entries[key]
	return p, ok, nil
}

func (m *memCache) PutForecast(key, _ string, _ int, preds []Prediction) error {
	m.entries[key] = preds
	m.puts++
	return nil
}

func TestCachedModel(t *testing.T) {
	inner := &stubModel{value: 3}
	cache := &memCache{entries: map[string][]Prediction{}}
	m := NewCachedModel(inner, cache, nil)
	assert.Equal(t, "stub", m.Name())

	history := []Observation{{Date: day("2024-01-01"), Value: 1}, {Date: day("2024-01-02"), Value: 2}}
	first, err := m.Predict(context.Background(), history, 4)
	require.NoError(t, err)
	second, err := m.Predict(context.Background(), history, 4)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, 1, cache.puts)

	_, err = m.Predict(context.Background(), history, 5)
	require.NoError(t, err)
	assert.Equal(t, 2, inner.calls, "horizon is part of the key")
}

func TestCacheKeyDependsOnParameters(t *testing.T) {
	history := []Observation{{Date: day("2024-01-01"), Value: 1}}
	a := CacheKey(&TrendModel{IntervalWidth: 0.8}, history, 7)
	b := CacheKey(&TrendModel{IntervalWidth: 0.9}, history, 7)
	c := CacheKey(&TrendModel{IntervalWidth: 0.8}, history, 7)
	assert.NotEqual(t, a, b)
	assert.Equal(t, a, c)
}

func TestNewModel(t *testing.T) {
	m, err := NewModel(config.DefaultConfig().Forecast)
	require.NoError(t, err)
	assert.Equal(t, "trend", m.Name())

	_, err = NewModel(config.ForecastConfig{Model: config.ModelRemote})
	assert.ErrorIs(t, err, config.ErrInvalid)

	m, err = NewModel(config.ForecastConfig{Model: config.ModelRemote, RemoteURL: "http://localhost:9"})
	require.NoError(t, err)
	assert.Equal(t, "remote", m.Name())
}
