package forecast

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"log/slog"
	"strconv"
	"time"
)

// Cache persists derived forecasts by key.
type Cache interface {
	GetForecast(key string) ([]Prediction, bool, error)
	PutForecast(key, modelName string, horizon int, preds []Prediction) error
}

// Tagger is implemented by models whose output depends on parameters beyond
// their name.
type Tagger interface {
	CacheTag() string
}

// CachedModel serves repeated forecasts of the same history from a Cache.
// Cache failures are logged and never fail the forecast.
type CachedModel struct {
	Model  Model
	Cache  Cache
	Logger *slog.Logger
}

// NewCachedModel wraps m with cache. A nil cache returns m unchanged.
func NewCachedModel(m Model, cache Cache, logger *slog.Logger) Model {
	if cache == nil {
		return m
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &CachedModel{Model: m, Cache: cache, Logger: logger.With("component", "forecast-cache")}
}

func (c *CachedModel) Name() string { return c.Model.Name() }

// Predict returns cached predictions for an identical history and horizon,
// otherwise runs the wrapped model and stores its output.
func (c *CachedModel) Predict(ctx context.Context, history []Observation, horizon int) ([]Prediction, error) {
	key := CacheKey(c.Model, history, horizon)

	preds, ok, err := c.Cache.GetForecast(key)
	switch {
	case err != nil:
		c.Logger.Warn("forecast cache read failed", "error", err)
	case ok:
		c.Logger.Debug("forecast cache hit", "key", key[:12])
		return preds, nil
	}

	preds, err = c.Model.Predict(ctx, history, horizon)
	if err != nil {
		return nil, err
	}
	if err := c.Cache.PutForecast(key, c.Model.Name(), horizon, preds); err != nil {
		c.Logger.Warn("forecast cache write failed", "error", err)
	}
	return preds, nil
}

// CacheKey hashes the model identity, horizon and full history.
func CacheKey(m Model, history []Observation, horizon int) string {
	tag := m.Name()
	if t, ok := m.(Tagger); ok {
		tag = t.CacheTag()
	}

	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|", tag, horizon)
	for _, o := range history {
		h.Write([]byte(o.Date.Format(time.DateOnly)))
		h.Write([]byte{'='})
		h.Write([]byte(strconv.FormatFloat(o.Value, 'g', -1, 64)))
		h.Write([]byte{';'})
	}
	return hex.EncodeToString(h.Sum(nil))
}
