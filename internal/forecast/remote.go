package forecast

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	remoteMaxBody = 4 << 20 // 4 MB
	remotePath    = "/forecast"
)

var (
	// ErrRemoteUnavailable indicates the forecast service could not be reached or failed.
	ErrRemoteUnavailable = errors.New("forecast service unavailable")
	// ErrRemoteRejected indicates the forecast service refused the history.
	ErrRemoteRejected = errors.New("forecast service rejected the request")
)

var remoteDateLayouts = []string{
	time.DateOnly,
	time.DateTime,
	time.RFC3339,
	"2006-01-02T15:04:05",
}

// RemoteModel delegates fitting to an HTTP forecasting service (for example a
// Prophet wrapper) speaking {"history":[{ds,y}],"periods":N} ->
// {"forecast":[{ds,yhat,yhat_lower,yhat_upper}]}.
type RemoteModel struct {
	baseURL string
	http    *http.Client
}

// NewRemoteModel creates a model that posts to baseURL + "/forecast".
func NewRemoteModel(baseURL string) *RemoteModel {
	return &RemoteModel{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		http:    &http.Client{},
	}
}

func (m *RemoteModel) Name() string { return "remote" }

// CacheTag identifies the model and its endpoint for forecast caching.
func (m *RemoteModel) CacheTag() string { return "remote/" + m.baseURL }

type remoteObservation struct {
	DS string  `json:"ds"`
	Y  float64 `json:"y"`
}

type remoteRequest struct {
	History []remoteObservation `json:"history"`
	Periods int                 `json:"periods"`
}

type remotePrediction struct {
	DS        string  `json:"ds"`
	Yhat      float64 `json:"yhat"`
	YhatLower float64 `json:"yhat_lower"`
	YhatUpper float64 `json:"yhat_upper"`
}

type remoteResponse struct {
	Forecast []remotePrediction `json:"forecast"`
}

// Predict posts the history and decodes the service's predictions. The
// request is bounded by ctx; the caller owns the timeout.
func (m *RemoteModel) Predict(ctx context.Context, history []Observation, horizon int) ([]Prediction, error) {
	req := remoteRequest{Periods: horizon, History: make([]remoteObservation, len(history))}
	for i, o := range history {
		req.History[i] = remoteObservation{DS: o.Date.Format(time.DateOnly), Y: o.Value}
	}
	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encoding history: %w", err)
	}

	body, err := m.post(ctx, remotePath, payload)
	if err != nil {
		return nil, err
	}

	var resp remoteResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("%w: decoding response: %w", ErrBadModelOutput, err)
	}

	out := make([]Prediction, len(resp.Forecast))
	for i, p := range resp.Forecast {
		t, err := parseRemoteDate(p.DS)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBadModelOutput, err)
		}
		out[i] = Prediction{Date: t, Yhat: p.Yhat, YhatLower: p.YhatLower, YhatUpper: p.YhatUpper}
	}
	return out, nil
}

func parseRemoteDate(s string) (time.Time, error) {
	for _, layout := range remoteDateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable ds %q", s)
}

func (m *RemoteModel) post(ctx context.Context, path string, payload []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "github.com/theirongolddev/spendburn/1.0")

	//nolint:gosec // URL comes from the user's own config
	resp, err := m.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %w", ErrRemoteUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, remoteMaxBody))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %w", ErrRemoteUnavailable, err)
	}

	switch {
	case resp.StatusCode == http.StatusBadRequest || resp.StatusCode == http.StatusUnprocessableEntity:
		return nil, fmt.Errorf("%w: %s", ErrRemoteRejected, snippet(body))
	case resp.StatusCode >= 500:
		return nil, fmt.Errorf("%w: status %d", ErrRemoteUnavailable, resp.StatusCode)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("unexpected status %d from forecast service", resp.StatusCode)
	}
	return body, nil
}

func snippet(b []byte) string {
	const limit = 200
	s := strings.TrimSpace(string(b))
	if len(s) > limit {
		s = s[:limit] + "..."
	}
	if s == "" {
		return "empty body"
	}
	return s
}
