// Package daemon provides the long-running ledger watcher and report API.
package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/forecast"
	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/notify"
	"github.com/theirongolddev/spendburn/internal/pipeline"
	"github.com/theirongolddev/spendburn/internal/report"
	"github.com/theirongolddev/spendburn/internal/source"
)

// Event types.
const (
	EventSnapshot      = "snapshot"
	EventLedgerChanged = "ledger_changed"
	EventAlert         = "alert"
)

// Config controls the daemon runtime behavior.
type Config struct {
	LedgerPath   string
	Source       source.Options
	App          config.Config
	Forecaster   *forecast.Forecaster // nil disables the forecast section
	Publisher    notify.Publisher     // nil publishes nowhere
	Logger       *slog.Logger
	Interval     time.Duration
	Addr         string
	EventsBuffer int
}

// Snapshot is a compact ledger state for status/event payloads.
type Snapshot struct {
	At            time.Time          `json:"at"`
	Transactions  int                `json:"transactions"`
	Total         decimal.Decimal    `json:"total"`
	Month         model.MonthKey     `json:"month"`
	MonthSpent    decimal.Decimal    `json:"month_spent"`
	Budget        *model.BudgetState `json:"budget,omitempty"`
	Triggered     int                `json:"triggered_alerts"`
	ForecastTotal float64            `json:"forecast_total"`
}

// Delta captures snapshot deltas between ledger changes.
type Delta struct {
	Transactions int             `json:"transactions"`
	Total        decimal.Decimal `json:"total"`
}

func (d Delta) isZero() bool {
	return d.Transactions == 0 && d.Total.IsZero()
}

// Event is emitted when the ledger changes or an alert starts firing.
type Event struct {
	ID        int64               `json:"id"`
	Type      string              `json:"type"`
	Timestamp time.Time           `json:"timestamp"`
	Snapshot  Snapshot            `json:"snapshot"`
	Delta     *Delta              `json:"delta,omitempty"`
	Alert     *model.AlertVerdict `json:"alert,omitempty"`
}

// Status is served at /v1/status.
type Status struct {
	StartedAt       time.Time `json:"started_at"`
	LastPollAt      time.Time `json:"last_poll_at"`
	LastLoadAt      time.Time `json:"last_load_at"`
	PollIntervalSec int       `json:"poll_interval_sec"`
	PollCount       int64     `json:"poll_count"`
	LoadCount       int64     `json:"load_count"`
	LedgerPath      string    `json:"ledger_path"`
	Summary         Snapshot  `json:"summary"`
	LastError       string    `json:"last_error,omitempty"`
	EventCount      int       `json:"event_count"`
	SubscriberCount int       `json:"subscriber_count"`
}

// Service provides the daemon runtime and HTTP API.
type Service struct {
	cfg    Config
	logger *slog.Logger

	// Replaced in tests.
	fingerprint func() (string, error)
	load        func(ctx context.Context) (*pipeline.LoadResult, error)
	now         func() time.Time

	mu          sync.RWMutex
	startedAt   time.Time
	lastPollAt  time.Time
	lastLoadAt  time.Time
	pollCount   int64
	loadCount   int64
	lastError   string
	lastPrint   string
	hasSnapshot bool
	snapshot    Snapshot
	report      *report.Report
	firing      map[string]bool
	nextEventID int64
	events      []Event

	nextSubID int
	subs      map[int]chan Event
}

// New returns a new daemon service with the provided config.
func New(cfg Config) *Service {
	if cfg.Interval < 2*time.Second {
		cfg.Interval = 10 * time.Second
	}
	if cfg.EventsBuffer < 1 {
		cfg.EventsBuffer = 200
	}
	if cfg.Addr == "" {
		cfg.Addr = "127.0.0.1:8787"
	}
	if cfg.Publisher == nil {
		cfg.Publisher = notify.Nop{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Service{
		cfg:       cfg,
		logger:    logger.With("component", "daemon"),
		now:       time.Now,
		startedAt: time.Now(),
		firing:    make(map[string]bool),
		subs:      make(map[int]chan Event),
	}
	s.fingerprint = s.fingerprintLedger
	s.load = func(ctx context.Context) (*pipeline.LoadResult, error) {
		return pipeline.Load(ctx, s.cfg.LedgerPath, s.cfg.Source, nil)
	}
	return s
}

// Handler returns the HTTP API.
func (s *Service) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", s.handleHealth)
	mux.HandleFunc("/v1/status", s.handleStatus)
	mux.HandleFunc("/v1/report", s.handleReport)
	mux.HandleFunc("/v1/alerts", s.handleAlerts)
	mux.HandleFunc("/v1/events", s.handleEvents)
	mux.HandleFunc("/v1/stream", s.handleStream)
	return mux
}

// Run starts HTTP endpoints and polling until ctx is canceled.
func (s *Service) Run(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.cfg.Addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	s.logger.Info("listening", "addr", s.cfg.Addr, "ledger", s.cfg.LedgerPath, "interval", s.cfg.Interval)

	// Seed initial report so status is useful immediately.
	s.pollOnce(ctx)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			return server.Shutdown(shutdownCtx)
		case <-ticker.C:
			s.pollOnce(ctx)
		case err := <-errCh:
			return fmt.Errorf("daemon http server: %w", err)
		}
	}
}

// fingerprintLedger summarizes the ledger file set by path, size and mtime.
func (s *Service) fingerprintLedger() (string, error) {
	files, err := source.ScanPath(s.cfg.LedgerPath)
	if err != nil {
		return "", err
	}
	var b strings.Builder
	for _, f := range files {
		info, err := os.Stat(f.Path)
		if err != nil {
			return "", err
		}
		fmt.Fprintf(&b, "%s|%d|%d\n", f.Path, info.Size(), info.ModTime().UnixNano())
	}
	return b.String(), nil
}

func (s *Service) recordError(err error) {
	s.mu.Lock()
	s.lastError = err.Error()
	s.lastPollAt = s.now()
	s.pollCount++
	s.mu.Unlock()
	s.logger.Warn("poll failed", "error", err)
}

func (s *Service) pollOnce(ctx context.Context) {
	fp, err := s.fingerprint()
	if err != nil {
		s.recordError(err)
		return
	}

	s.mu.RLock()
	unchanged := s.hasSnapshot && fp == s.lastPrint
	s.mu.RUnlock()
	if unchanged {
		s.mu.Lock()
		s.lastPollAt = s.now()
		s.pollCount++
		s.lastError = ""
		s.mu.Unlock()
		return
	}

	start := s.now()
	res, err := s.load(ctx)
	if err != nil {
		s.recordError(err)
		return
	}
	rep, err := report.Build(ctx, res, s.cfg.App, s.cfg.Forecaster, report.Options{})
	if err != nil {
		s.recordError(err)
		return
	}
	if rep.ForecastError != "" {
		s.logger.Debug("forecast unavailable", "error", rep.ForecastError)
	}

	now := s.now()
	snap := snapshotFromReport(rep, now)

	var events []Event
	var newlyFiring []model.AlertVerdict

	s.mu.Lock()
	prev := s.snapshot
	prevExists := s.hasSnapshot

	s.hasSnapshot = true
	s.snapshot = snap
	s.report = rep
	s.lastPrint = fp
	s.lastPollAt = now
	s.lastLoadAt = now
	s.pollCount++
	s.loadCount++
	s.lastError = ""

	if !prevExists {
		s.nextEventID++
		events = append(events, Event{ID: s.nextEventID, Type: EventSnapshot, Timestamp: now, Snapshot: snap})
	} else if delta := diffSnapshots(prev, snap); !delta.isZero() {
		s.nextEventID++
		events = append(events, Event{ID: s.nextEventID, Type: EventLedgerChanged, Timestamp: now, Snapshot: snap, Delta: &delta})
	}

	firing := make(map[string]bool, len(rep.Alerts))
	for _, v := range rep.Alerts {
		if !v.Triggered {
			continue
		}
		firing[v.Rule] = true
		if s.firing[v.Rule] {
			continue
		}
		s.nextEventID++
		events = append(events, Event{ID: s.nextEventID, Type: EventAlert, Timestamp: now, Snapshot: snap, Alert: &v})
		newlyFiring = append(newlyFiring, v)
	}
	s.firing = firing
	s.mu.Unlock()

	s.logger.Debug("ledger reloaded", "transactions", snap.Transactions, "elapsed", s.now().Sub(start))

	for _, ev := range events {
		s.publishEvent(ev)
	}
	for _, v := range newlyFiring {
		if err := s.cfg.Publisher.Publish(ctx, notify.NewAlertEvent(v, rep.Month, now)); err != nil {
			s.logger.Warn("alert notification failed", "rule", v.Rule, "error", err)
		}
	}
}

func snapshotFromReport(r *report.Report, at time.Time) Snapshot {
	snap := Snapshot{
		At:            at,
		Transactions:  r.Summary.Transactions,
		Total:         r.Summary.Total,
		Month:         r.Month,
		MonthSpent:    decimal.Zero,
		Budget:        r.Budget,
		Triggered:     len(r.TriggeredAlerts()),
		ForecastTotal: r.ForecastTotal(),
	}
	for _, m := range r.Monthly {
		if m.Month == r.Month {
			snap.MonthSpent = m.Total
		}
	}
	return snap
}

func diffSnapshots(prev, curr Snapshot) Delta {
	return Delta{
		Transactions: curr.Transactions - prev.Transactions,
		Total:        curr.Total.Sub(prev.Total),
	}
}

func (s *Service) publishEvent(ev Event) {
	s.mu.Lock()
	s.events = append(s.events, ev)
	if len(s.events) > s.cfg.EventsBuffer {
		s.events = s.events[len(s.events)-s.cfg.EventsBuffer:]
	}

	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
	s.mu.Unlock()
}

func (s *Service) snapshotStatus() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return Status{
		StartedAt:       s.startedAt,
		LastPollAt:      s.lastPollAt,
		LastLoadAt:      s.lastLoadAt,
		PollIntervalSec: int(s.cfg.Interval.Seconds()),
		PollCount:       s.pollCount,
		LoadCount:       s.loadCount,
		LedgerPath:      s.cfg.LedgerPath,
		Summary:         s.snapshot,
		LastError:       s.lastError,
		EventCount:      len(s.events),
		SubscriberCount: len(s.subs),
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func (s *Service) currentReport() *report.Report {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.report
}

func (s *Service) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Service) handleStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, s.snapshotStatus())
}

func (s *Service) handleReport(w http.ResponseWriter, _ *http.Request) {
	rep := s.currentReport()
	if rep == nil {
		http.Error(w, "report not ready", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, rep)
}

func (s *Service) handleAlerts(w http.ResponseWriter, r *http.Request) {
	rep := s.currentReport()
	if rep == nil {
		http.Error(w, "report not ready", http.StatusServiceUnavailable)
		return
	}
	alerts := rep.Alerts
	if r.URL.Query().Get("triggered") == "true" {
		alerts = rep.TriggeredAlerts()
	}
	if alerts == nil {
		alerts = []model.AlertVerdict{}
	}
	writeJSON(w, alerts)
}

func (s *Service) handleEvents(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	events := make([]Event, len(s.events))
	copy(events, s.events)
	s.mu.RUnlock()

	writeJSON(w, events)
}

func (s *Service) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := make(chan Event, 16)
	id := s.addSubscriber(ch)
	defer s.removeSubscriber(id)

	// Send current snapshot immediately.
	current := Event{
		Type:      EventSnapshot,
		Timestamp: s.now(),
		Snapshot:  s.snapshotStatus().Summary,
	}
	writeSSE(w, current)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case ev := <-ch:
			writeSSE(w, ev)
			flusher.Flush()
		}
	}
}

func writeSSE(w http.ResponseWriter, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		return
	}
	_, _ = fmt.Fprintf(w, "event: %s\n", ev.Type)
	_, _ = fmt.Fprintf(w, "data: %s\n\n", data)
}

func (s *Service) addSubscriber(ch chan Event) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	id := s.nextSubID
	s.subs[id] = ch
	return id
}

func (s *Service) removeSubscriber(id int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.subs, id)
}
