// Package config loads, validates and saves spendburn settings.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: SPENDBURN_BUDGET_MONTHLY=45000.
const EnvPrefix = "SPENDBURN"

// Config holds all spendburn configuration.
type Config struct {
	General    GeneralConfig    `toml:"general" mapstructure:"general"`
	Budget     BudgetConfig     `toml:"budget" mapstructure:"budget"`
	Forecast   ForecastConfig   `toml:"forecast" mapstructure:"forecast"`
	Alerts     AlertsConfig     `toml:"alerts" mapstructure:"alerts"`
	Appearance AppearanceConfig `toml:"appearance" mapstructure:"appearance"`
	Daemon     DaemonConfig     `toml:"daemon" mapstructure:"daemon"`
	Notify     NotifyConfig     `toml:"notify" mapstructure:"notify"`
}

// GeneralConfig holds ledger and display preferences.
type GeneralConfig struct {
	Ledger         string `toml:"ledger,omitempty" mapstructure:"ledger"`
	DateOrder      string `toml:"date_order" mapstructure:"date_order"`   // dmy | mdy
	LoadPolicy     string `toml:"load_policy" mapstructure:"load_policy"` // strict | skip
	Currency       string `toml:"currency" mapstructure:"currency"`
	SeasonalMonths []int  `toml:"seasonal_months" mapstructure:"seasonal_months"`
}

// Seasonal returns SeasonalMonths as time.Month values.
func (g GeneralConfig) Seasonal() []time.Month {
	out := make([]time.Month, 0, len(g.SeasonalMonths))
	for _, m := range g.SeasonalMonths {
		out = append(out, time.Month(m))
	}
	return out
}

// BudgetConfig holds budget tracking settings.
type BudgetConfig struct {
	Monthly *float64 `toml:"monthly,omitempty" mapstructure:"monthly"`
	Floor   float64  `toml:"floor" mapstructure:"floor"`
	Step    float64  `toml:"step" mapstructure:"step"`
}

// Forecast model names.
const (
	ModelTrend  = "trend"
	ModelRemote = "remote"
)

// ForecastConfig holds forecaster settings.
type ForecastConfig struct {
	Model         string  `toml:"model" mapstructure:"model"`
	HorizonDays   int     `toml:"horizon_days" mapstructure:"horizon_days"`
	TimeoutSec    int     `toml:"timeout_sec" mapstructure:"timeout_sec"`
	MinHistory    int     `toml:"min_history" mapstructure:"min_history"`
	IntervalWidth float64 `toml:"interval_width" mapstructure:"interval_width"`
	RemoteURL     string  `toml:"remote_url,omitempty" mapstructure:"remote_url"`
}

// Timeout returns TimeoutSec as a duration.
func (f ForecastConfig) Timeout() time.Duration {
	return time.Duration(f.TimeoutSec) * time.Second
}

// AlertsConfig holds alert rule thresholds.
type AlertsConfig struct {
	WatchedCategory   string  `toml:"watched_category" mapstructure:"watched_category"`
	CategoryThreshold float64 `toml:"category_threshold" mapstructure:"category_threshold"`
	MerchantThreshold float64 `toml:"merchant_threshold" mapstructure:"merchant_threshold"`
	LargeTransaction  float64 `toml:"large_transaction" mapstructure:"large_transaction"`
}

// AppearanceConfig holds theme settings.
type AppearanceConfig struct {
	Theme string `toml:"theme" mapstructure:"theme"`
}

// DaemonConfig holds background service settings.
type DaemonConfig struct {
	Addr         string `toml:"addr" mapstructure:"addr"`
	IntervalSec  int    `toml:"interval_sec" mapstructure:"interval_sec"`
	EventsBuffer int    `toml:"events_buffer" mapstructure:"events_buffer"`
}

// Interval returns IntervalSec as a duration.
func (d DaemonConfig) Interval() time.Duration {
	return time.Duration(d.IntervalSec) * time.Second
}

// NotifyConfig holds alert notification settings. An empty AMQPURL disables publishing.
type NotifyConfig struct {
	AMQPURL    string `toml:"amqp_url,omitempty" mapstructure:"amqp_url"`
	Exchange   string `toml:"exchange" mapstructure:"exchange"`
	RoutingKey string `toml:"routing_key" mapstructure:"routing_key"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		General: GeneralConfig{
			DateOrder:      "dmy",
			LoadPolicy:     "strict",
			Currency:       "₹",
			SeasonalMonths: []int{5, 6, 7},
		},
		Budget: BudgetConfig{
			Floor: 30000,
			Step:  500,
		},
		Forecast: ForecastConfig{
			Model:         ModelTrend,
			HorizonDays:   30,
			TimeoutSec:    30,
			MinHistory:    2,
			IntervalWidth: 0.80,
		},
		Alerts: AlertsConfig{
			WatchedCategory:   "Food",
			CategoryThreshold: 0.30,
			MerchantThreshold: 0.15,
			LargeTransaction:  10000,
		},
		Appearance: AppearanceConfig{
			Theme: "flexoki-dark",
		},
		Daemon: DaemonConfig{
			Addr:         "127.0.0.1:8787",
			IntervalSec:  30,
			EventsBuffer: 200,
		},
		Notify: NotifyConfig{
			Exchange:   "spendburn",
			RoutingKey: "alerts",
		},
	}
}

// ConfigDir returns the XDG-compliant config directory.
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "spendburn")
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "spendburn")
}

// ConfigPath returns the full path to the config file.
func ConfigPath() string {
	return filepath.Join(ConfigDir(), "config.toml")
}

// Load reads the default config file. See LoadFrom.
func Load() (Config, error) {
	return LoadFrom(ConfigPath())
}

// LoadFrom layers defaults, the TOML file at path (if present) and SPENDBURN_*
// environment variables, in that order. A .env file in the working directory
// is loaded into the environment first.
func LoadFrom(path string) (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v, DefaultConfig())
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// Keys without a default are invisible to AutomaticEnv during Unmarshal.
	for _, key := range []string{"general.ledger", "budget.monthly", "forecast.remote_url", "notify.amqp_url"} {
		_ = v.BindEnv(key)
	}

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			v.SetConfigType("toml")
			if err := v.ReadInConfig(); err != nil {
				return DefaultConfig(), fmt.Errorf("parsing config: %w", err)
			}
		} else if !os.IsNotExist(err) {
			return DefaultConfig(), fmt.Errorf("reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return DefaultConfig(), fmt.Errorf("decoding config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d Config) {
	v.SetDefault("general.date_order", d.General.DateOrder)
	v.SetDefault("general.load_policy", d.General.LoadPolicy)
	v.SetDefault("general.currency", d.General.Currency)
	v.SetDefault("general.seasonal_months", d.General.SeasonalMonths)

	v.SetDefault("budget.floor", d.Budget.Floor)
	v.SetDefault("budget.step", d.Budget.Step)

	v.SetDefault("forecast.model", d.Forecast.Model)
	v.SetDefault("forecast.horizon_days", d.Forecast.HorizonDays)
	v.SetDefault("forecast.timeout_sec", d.Forecast.TimeoutSec)
	v.SetDefault("forecast.min_history", d.Forecast.MinHistory)
	v.SetDefault("forecast.interval_width", d.Forecast.IntervalWidth)

	v.SetDefault("alerts.watched_category", d.Alerts.WatchedCategory)
	v.SetDefault("alerts.category_threshold", d.Alerts.CategoryThreshold)
	v.SetDefault("alerts.merchant_threshold", d.Alerts.MerchantThreshold)
	v.SetDefault("alerts.large_transaction", d.Alerts.LargeTransaction)

	v.SetDefault("appearance.theme", d.Appearance.Theme)

	v.SetDefault("daemon.addr", d.Daemon.Addr)
	v.SetDefault("daemon.interval_sec", d.Daemon.IntervalSec)
	v.SetDefault("daemon.events_buffer", d.Daemon.EventsBuffer)

	v.SetDefault("notify.exchange", d.Notify.Exchange)
	v.SetDefault("notify.routing_key", d.Notify.RoutingKey)
}

// Save writes the config to the default path.
func Save(cfg Config) error {
	return SaveTo(ConfigPath(), cfg)
}

// SaveTo writes the config as TOML to path, creating parent directories.
func SaveTo(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return fmt.Errorf("creating config dir: %w", err)
	}

	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return fmt.Errorf("creating config file: %w", err)
	}

	if err := toml.NewEncoder(f).Encode(cfg); err != nil {
		_ = f.Close()
		return fmt.Errorf("encoding config: %w", err)
	}
	return f.Close()
}

// Exists returns true if a config file exists at the default path.
func Exists() bool {
	return ExistsAt(ConfigPath())
}

// ExistsAt returns true if a config file exists at path.
func ExistsAt(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Validate checks every section and joins all problems into one error.
func (c Config) Validate() error {
	var errs []error
	bad := func(field string, value any, reason string) {
		errs = append(errs, &ConfigError{Field: field, Value: value, Reason: reason})
	}

	switch c.General.DateOrder {
	case "dmy", "mdy":
	default:
		bad("general.date_order", c.General.DateOrder, "must be dmy or mdy")
	}
	switch c.General.LoadPolicy {
	case "strict", "skip":
	default:
		bad("general.load_policy", c.General.LoadPolicy, "must be strict or skip")
	}
	for _, m := range c.General.SeasonalMonths {
		if m < 1 || m > 12 {
			bad("general.seasonal_months", m, "months must be 1..12")
		}
	}

	if c.Budget.Floor < 0 {
		bad("budget.floor", c.Budget.Floor, "must not be negative")
	}
	if c.Budget.Step < 0 {
		bad("budget.step", c.Budget.Step, "must not be negative")
	}
	if c.Budget.Monthly != nil && *c.Budget.Monthly < c.Budget.Floor {
		bad("budget.monthly", *c.Budget.Monthly, fmt.Sprintf("must be at least the floor (%.0f)", c.Budget.Floor))
	}

	switch c.Forecast.Model {
	case ModelTrend:
	case ModelRemote:
		if c.Forecast.RemoteURL == "" {
			bad("forecast.remote_url", "", "required when forecast.model is remote")
		}
	default:
		bad("forecast.model", c.Forecast.Model, "must be trend or remote")
	}
	if c.Forecast.HorizonDays < 1 {
		bad("forecast.horizon_days", c.Forecast.HorizonDays, "must be at least 1")
	}
	if c.Forecast.TimeoutSec <= 0 {
		bad("forecast.timeout_sec", c.Forecast.TimeoutSec, "must be positive")
	}
	if c.Forecast.MinHistory < 2 {
		bad("forecast.min_history", c.Forecast.MinHistory, "must be at least 2")
	}
	if c.Forecast.IntervalWidth <= 0 || c.Forecast.IntervalWidth >= 1 {
		bad("forecast.interval_width", c.Forecast.IntervalWidth, "must be between 0 and 1 (exclusive)")
	}

	if c.Alerts.CategoryThreshold <= 0 || c.Alerts.CategoryThreshold > 1 {
		bad("alerts.category_threshold", c.Alerts.CategoryThreshold, "must be in (0, 1]")
	}
	if c.Alerts.MerchantThreshold <= 0 || c.Alerts.MerchantThreshold > 1 {
		bad("alerts.merchant_threshold", c.Alerts.MerchantThreshold, "must be in (0, 1]")
	}
	if c.Alerts.LargeTransaction < 0 {
		bad("alerts.large_transaction", c.Alerts.LargeTransaction, "must not be negative")
	}

	if c.Daemon.IntervalSec <= 0 {
		bad("daemon.interval_sec", c.Daemon.IntervalSec, "must be positive")
	}

	return errors.Join(errs...)
}
