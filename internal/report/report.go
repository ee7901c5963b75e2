// Package report composes the pipeline stages into one JSON-serializable view.
package report

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendburn/internal/alert"
	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/forecast"
	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/pipeline"
)

// maxReportedRowErrors bounds the row diagnostics copied into a report.
const maxReportedRowErrors = 10

// Options selects what Build computes.
type Options struct {
	Month        model.MonthKey   // zero selects the latest month in the ledger
	Budget       *decimal.Decimal // overrides budget.monthly
	Horizon      int              // zero uses forecast.horizon_days
	SkipForecast bool
}

// LoadInfo summarizes how the ledger was read.
type LoadInfo struct {
	Files     int      `json:"files"`
	Rows      int      `json:"rows"`
	Skipped   int      `json:"skipped"`
	RowErrors []string `json:"row_errors,omitempty"`
}

// Report is the full analytics view of one ledger.
type Report struct {
	GeneratedAt time.Time        `json:"generated_at"`
	Currency    string           `json:"currency"`
	Month       model.MonthKey   `json:"month"`
	Months      []model.MonthKey `json:"months"`

	Summary    model.Summary      `json:"summary"`
	Monthly    []model.MonthTotal `json:"monthly"`
	Categories []model.KeyTotal   `json:"categories"`
	Merchants  []model.KeyTotal   `json:"merchants"`
	Daily      []model.DailyTotal `json:"daily"`

	Budget *model.BudgetState `json:"budget,omitempty"`

	Forecast      []model.ForecastPoint `json:"forecast,omitempty"`
	ForecastModel string                `json:"forecast_model,omitempty"`
	ForecastError string                `json:"forecast_error,omitempty"`

	Alerts []model.AlertVerdict `json:"alerts"`
	Load   LoadInfo             `json:"load"`
}

// Build computes every section of the report for res. Budget validation
// failures are returned as errors; a failed forecast is recorded in
// ForecastError so the rest of the report stays usable.
func Build(ctx context.Context, res *pipeline.LoadResult, cfg config.Config, fc *forecast.Forecaster, opts Options) (*Report, error) {
	l := res.Ledger
	txns := l.Transactions()

	month := opts.Month
	if month.IsZero() {
		month, _ = l.LatestMonth()
	}
	inMonth := pipeline.FilterByMonth(txns, month)

	r := &Report{
		GeneratedAt: time.Now().UTC(),
		Currency:    cfg.General.Currency,
		Month:       month,
		Months:      l.Months(),
		Summary:     pipeline.Summarize(txns, cfg.General.Seasonal()),
		Monthly:     pipeline.MonthlySeries(txns),
		Categories:  pipeline.CategoryBreakdown(inMonth),
		Merchants:   pipeline.MerchantBreakdown(inMonth),
		Daily:       pipeline.DailySeries(inMonth, true),
		Alerts:      alert.NewEngine(cfg.Alerts, cfg.General.Currency).Evaluate(txns),
		Load:        loadInfo(res),
	}

	budget := opts.Budget
	if budget == nil && cfg.Budget.Monthly != nil {
		b := decimal.NewFromFloat(*cfg.Budget.Monthly)
		budget = &b
	}
	if budget != nil && !month.IsZero() {
		st, err := pipeline.NewBudgetTracker(cfg.Budget).Evaluate(month, txns, *budget)
		if err != nil {
			return nil, err
		}
		r.Budget = &st
	}

	if !opts.SkipForecast && fc != nil {
		horizon := opts.Horizon
		if horizon == 0 {
			horizon = cfg.Forecast.HorizonDays
		}
		if fc.Model != nil {
			r.ForecastModel = fc.Model.Name()
		}
		points, err := fc.Forecast(ctx, txns, horizon)
		if err != nil {
			r.ForecastError = err.Error()
		} else {
			r.Forecast = points
		}
	}

	return r, nil
}

func loadInfo(res *pipeline.LoadResult) LoadInfo {
	info := LoadInfo{Files: res.ParsedFiles, Rows: res.Rows, Skipped: res.Skipped}
	for i, err := range res.RowErrors {
		if i == maxReportedRowErrors {
			break
		}
		info.RowErrors = append(info.RowErrors, err.Error())
	}
	return info
}

// ForecastTotal sums the predicted spend over the forecast horizon.
func (r *Report) ForecastTotal() float64 {
	var sum float64
	for _, p := range r.Forecast {
		sum += p.Predicted
	}
	return sum
}

// TriggeredAlerts returns only the alerts that fired.
func (r *Report) TriggeredAlerts() []model.AlertVerdict {
	return alert.Triggered(r.Alerts)
}
