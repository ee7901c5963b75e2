package model

import "time"

// Alert severities.
const (
	SeverityOK   = "ok"
	SeverityWarn = "warn"
	SeverityInfo = "info"
)

// AlertVerdict is the result of running one alert rule.
type AlertVerdict struct {
	Rule      string `json:"rule"`
	Triggered bool   `json:"triggered"`
	Message   string `json:"message"`
	Severity  string `json:"severity"`
}

// ForecastPoint is one predicted day. All values are non-negative.
type ForecastPoint struct {
	Date      time.Time `json:"date"`
	Predicted float64   `json:"predicted"`
	Lower     float64   `json:"lower"`
	Upper     float64   `json:"upper"`
}
