// Package tui provides the interactive Bubble Tea dashboard for spendburn.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"github.com/shopspring/decimal"

	"github.com/theirongolddev/spendburn/internal/alert"
	"github.com/theirongolddev/spendburn/internal/cli"
	"github.com/theirongolddev/spendburn/internal/config"
	"github.com/theirongolddev/spendburn/internal/forecast"
	"github.com/theirongolddev/spendburn/internal/model"
	"github.com/theirongolddev/spendburn/internal/pipeline"
	"github.com/theirongolddev/spendburn/internal/source"
	"github.com/theirongolddev/spendburn/internal/tui/components"
	"github.com/theirongolddev/spendburn/internal/tui/theme"
)

// DataLoadedMsg is sent when the ledger finishes loading.
type DataLoadedMsg struct {
	Result   *pipeline.LoadResult
	Err      error
	LoadTime time.Duration
}

// ProgressMsg reports file parsing progress.
type ProgressMsg struct {
	Current int
	Total   int
}

// ForecastMsg carries a finished forecast. Gen discards results from a
// ledger that has since been reloaded.
type ForecastMsg struct {
	Points []model.ForecastPoint
	Err    error
	Gen    int
}

// Options configures a new App.
type Options struct {
	Config     config.Config
	LedgerPath string
	Source     source.Options
	Forecaster *forecast.Forecaster
	Horizon    int
	Month      model.MonthKey // initial month; zero selects the latest
	NeedSetup  bool
	ConfigPath string // where the setup form saves; empty uses the default path
}

const (
	tabOverview = iota
	tabMonth
	tabBudget
	tabForecast
	tabAlerts
)

// App is the root Bubble Tea model.
type App struct {
	cfg        config.Config
	ledgerPath string
	srcOpts    source.Options
	forecaster *forecast.Forecaster
	horizon    int
	saveConfig func(config.Config) error

	// Data
	result   *pipeline.LoadResult
	txns     []model.Transaction
	loaded   bool
	loadErr  error
	loadTime time.Duration

	// Pre-computed for the whole ledger
	months  []model.MonthKey
	summary model.Summary
	monthly []model.MonthTotal
	alerts  []model.AlertVerdict

	// Pre-computed for the selected month
	monthIdx   int
	wantMonth  model.MonthKey
	monthSpent decimal.Decimal
	prevSpent  decimal.Decimal
	monthCount int
	categories []model.KeyTotal
	merchants  []model.KeyTotal
	daily      []model.DailyTotal

	// Budget
	tracker   pipeline.BudgetTracker
	budget    decimal.Decimal
	hasBudget bool
	budgetErr error

	// Forecast
	forecast    []model.ForecastPoint
	forecastErr error
	forecasting bool
	forecastGen int

	// UI state
	width      int
	height     int
	activeTab  int
	showHelp   bool
	refreshing bool

	// First-run setup (huh form)
	setupForm *huh.Form
	setupVals *SetupValues
	setupErr  error

	// Loading, channel-based progress subscription
	spinner     spinner.Model
	progress    int
	progressMax int
	loadSub     chan tea.Msg
}

const (
	minTerminalWidth = 80
	maxContentWidth  = 180
	minContentHeight = 5
)

// NewApp creates the dashboard model.
func NewApp(opts Options) App {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(theme.Active.Accent).Background(theme.Active.Surface)

	horizon := opts.Horizon
	if horizon <= 0 {
		horizon = opts.Config.Forecast.HorizonDays
	}

	a := App{
		cfg:        opts.Config,
		ledgerPath: opts.LedgerPath,
		srcOpts:    opts.Source,
		forecaster: opts.Forecaster,
		horizon:    horizon,
		saveConfig: config.Save,
		wantMonth:  opts.Month,
		tracker:    pipeline.NewBudgetTracker(opts.Config.Budget),
		spinner:    sp,
		loadSub:    make(chan tea.Msg, 1),
	}
	if opts.ConfigPath != "" {
		path := opts.ConfigPath
		a.saveConfig = func(cfg config.Config) error { return config.SaveTo(path, cfg) }
	}
	a.initBudget()

	if opts.NeedSetup {
		vals := SetupValuesFrom(opts.Config)
		if vals.Ledger == "" {
			vals.Ledger = opts.LedgerPath
		}
		a.setupVals = &vals
		a.setupForm = NewSetupForm(opts.Config, a.setupVals)
	}
	return a
}

func (a *App) initBudget() {
	a.hasBudget = false
	a.budgetErr = nil
	if a.cfg.Budget.Monthly == nil {
		return
	}
	a.budget = decimal.NewFromFloat(*a.cfg.Budget.Monthly)
	a.hasBudget = true
	a.budgetErr = a.tracker.Validate(a.budget)
}

// Init implements tea.Model.
func (a App) Init() tea.Cmd {
	if a.setupForm != nil {
		return tea.Batch(a.setupForm.Init(), a.spinner.Tick)
	}
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.ledgerPath, a.srcOpts, a.loadSub),
		a.spinner.Tick,
	)
}

// recompute rebuilds every derived view from the loaded ledger.
func (a *App) recompute() {
	a.txns = a.result.Ledger.Transactions()
	a.months = a.result.Ledger.Months()
	a.summary = pipeline.Summarize(a.txns, a.cfg.General.Seasonal())
	a.monthly = pipeline.MonthlySeries(a.txns)
	a.alerts = alert.NewEngine(a.cfg.Alerts, a.cfg.General.Currency).Evaluate(a.txns)

	a.monthIdx = len(a.months) - 1
	if !a.wantMonth.IsZero() {
		for i, m := range a.months {
			if m == a.wantMonth {
				a.monthIdx = i
			}
		}
	}
	a.recomputeMonth()
}

// recomputeMonth rebuilds the views scoped to the selected month.
func (a *App) recomputeMonth() {
	month := a.selectedMonth()
	a.wantMonth = month
	inMonth := pipeline.FilterByMonth(a.txns, month)
	a.monthSpent = pipeline.Total(inMonth)
	a.prevSpent = pipeline.Total(pipeline.FilterByMonth(a.txns, month.Prev()))
	a.monthCount = len(inMonth)
	a.categories = pipeline.CategoryBreakdown(inMonth)
	a.merchants = pipeline.MerchantBreakdown(inMonth)
	a.daily = pipeline.DailySeries(inMonth, true)
}

func (a App) selectedMonth() model.MonthKey {
	if a.monthIdx < 0 || a.monthIdx >= len(a.months) {
		return model.MonthKey{}
	}
	return a.months[a.monthIdx]
}

func (a App) budgetState() model.BudgetState {
	st := pipeline.EvaluateBudget(a.monthSpent, a.budget)
	st.Period = a.selectedMonth()
	return st
}

// Update implements tea.Model.
func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	if ws, ok := msg.(tea.WindowSizeMsg); ok {
		a.width = ws.Width
		a.height = ws.Height
		if a.setupForm != nil {
			a.setupForm = a.setupForm.WithWidth(ws.Width).WithHeight(ws.Height)
		}
		return a, nil
	}

	// First-run setup wizard intercepts everything else
	if a.setupForm != nil {
		if k, ok := msg.(tea.KeyMsg); ok && k.String() == "ctrl+c" {
			return a, tea.Quit
		}
		return a.updateSetupForm(msg)
	}

	switch msg := msg.(type) {
	case ProgressMsg:
		a.progress = msg.Current
		a.progressMax = msg.Total
		return a, waitForLoadMsg(a.loadSub)

	case DataLoadedMsg:
		return a.handleLoaded(msg)

	case ForecastMsg:
		if msg.Gen != a.forecastGen {
			return a, nil
		}
		a.forecasting = false
		a.forecast = msg.Points
		a.forecastErr = msg.Err
		return a, nil

	case spinner.TickMsg:
		if a.loaded && !a.forecasting && !a.refreshing {
			return a, nil
		}
		var cmd tea.Cmd
		a.spinner, cmd = a.spinner.Update(msg)
		return a, cmd

	case tea.MouseMsg:
		if !a.loaded || a.showHelp {
			return a, nil
		}
		if msg.Button == tea.MouseButtonLeft && msg.Action == tea.MouseActionPress && msg.Y == 0 {
			if tab := a.tabAtX(msg.X); tab >= 0 {
				a.activeTab = tab
			}
		}
		return a, nil

	case tea.KeyMsg:
		return a.handleKey(msg)
	}

	return a, nil
}

func (a App) handleLoaded(msg DataLoadedMsg) (tea.Model, tea.Cmd) {
	a.loaded = true
	a.refreshing = false
	a.loadTime = msg.LoadTime
	a.loadErr = msg.Err
	if msg.Err != nil {
		return a, nil
	}
	a.result = msg.Result
	a.recompute()

	a.forecastGen++
	a.forecast = nil
	a.forecastErr = nil
	if a.forecaster == nil {
		return a, nil
	}
	a.forecasting = true
	return a, tea.Batch(
		forecastCmd(a.forecaster, a.txns, a.horizon, a.forecastGen),
		a.spinner.Tick,
	)
}

func (a App) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	if key == "ctrl+c" {
		return a, tea.Quit
	}
	if !a.loaded {
		return a, nil
	}

	if key == "?" {
		a.showHelp = !a.showHelp
		return a, nil
	}
	if a.showHelp {
		a.showHelp = false
		return a, nil
	}

	switch key {
	case "q":
		return a, tea.Quit
	case "r":
		if a.refreshing {
			return a, nil
		}
		a.refreshing = true
		return a, tea.Batch(refreshDataCmd(a.ledgerPath, a.srcOpts), a.spinner.Tick)
	case "right", "tab", "l":
		a.activeTab = (a.activeTab + 1) % len(components.Tabs)
		return a, nil
	case "left", "shift+tab", "h":
		a.activeTab = (a.activeTab - 1 + len(components.Tabs)) % len(components.Tabs)
		return a, nil
	case "[":
		if a.monthIdx > 0 {
			a.monthIdx--
			a.recomputeMonth()
		}
		return a, nil
	case "]":
		if a.monthIdx < len(a.months)-1 {
			a.monthIdx++
			a.recomputeMonth()
		}
		return a, nil
	case "+", "=":
		a.adjustBudget(1)
		return a, nil
	case "-", "_":
		a.adjustBudget(-1)
		return a, nil
	}

	if len(msg.Runes) == 1 {
		if idx := components.TabIdxByKey(msg.Runes[0]); idx >= 0 {
			a.activeTab = idx
		}
	}
	return a, nil
}

// adjustBudget moves the budget by n steps, starting from the floor when no
// budget is set. The floor clamps instead of rejecting.
func (a *App) adjustBudget(n int) {
	if !a.hasBudget {
		a.budget = a.tracker.Floor
		a.hasBudget = true
	} else {
		a.budget = a.tracker.Adjust(a.budget, n)
	}
	a.budgetErr = a.tracker.Validate(a.budget)
}

func (a App) updateSetupForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.setupForm.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.setupForm = f
	}

	switch a.setupForm.State {
	case huh.StateCompleted:
		a.setupErr = ApplySetup(&a.cfg, *a.setupVals)
		if a.setupErr == nil {
			a.setupErr = a.saveConfig(a.cfg)
			theme.SetActive(a.cfg.Appearance.Theme)
			a.tracker = pipeline.NewBudgetTracker(a.cfg.Budget)
			a.initBudget()
			if a.cfg.General.Ledger != "" {
				a.ledgerPath = expandHome(a.cfg.General.Ledger)
			}
			if order, err := source.ParseDateOrder(a.cfg.General.DateOrder); err == nil {
				a.srcOpts.DateOrder = order
			}
		}
		a.setupForm = nil
		return a, a.startLoad()
	case huh.StateAborted:
		a.setupForm = nil
		return a, a.startLoad()
	}
	return a, cmd
}

func (a App) startLoad() tea.Cmd {
	return tea.Batch(
		tea.EnableMouseCellMotion,
		loadDataCmd(a.ledgerPath, a.srcOpts, a.loadSub),
		a.spinner.Tick,
	)
}

func (a App) contentWidth() int {
	return min(a.width, maxContentWidth)
}

// View implements tea.Model.
func (a App) View() string {
	if a.width == 0 {
		return ""
	}
	if a.setupForm != nil {
		return a.setupForm.View()
	}
	if a.width < minTerminalWidth {
		return a.viewTooNarrow()
	}
	if !a.loaded {
		return a.viewLoading()
	}
	if a.loadErr != nil {
		return a.viewLoadError()
	}
	if a.showHelp {
		return a.viewHelp()
	}
	return a.viewMain()
}

func (a App) viewTooNarrow() string {
	h := max(a.height, 5)
	msg := fmt.Sprintf(
		"\n  Terminal too narrow (%d cols)\n\n  spendburn needs at least %d columns.\n",
		a.width,
		minTerminalWidth,
	)
	return padHeight(truncateHeight(msg, h), h)
}

func (a App) overlayCard(body string) string {
	t := theme.Active
	card := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(t.BorderAccent).
		Background(t.Surface).
		Padding(1, 3).
		Render(body)
	return lipgloss.Place(a.width, a.height, lipgloss.Center, lipgloss.Center, card,
		lipgloss.WithWhitespaceBackground(t.Background))
}

func (a App) viewLoading() string {
	t := theme.Active
	logo := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	sub := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	count := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface)

	var b strings.Builder
	b.WriteString(logo.Render("◈ spendburn"))
	b.WriteString(sub.Render(" · Spending Analytics"))
	b.WriteString("\n\n")
	b.WriteString(a.spinner.View())
	if a.progressMax > 0 {
		b.WriteString(sub.Render(" Parsing ledger files  "))
		b.WriteString(count.Render(cli.FormatNumber(int64(a.progress))))
		b.WriteString(sub.Render(" / "))
		b.WriteString(count.Render(cli.FormatNumber(int64(a.progressMax))))
	} else {
		b.WriteString(sub.Render(" Reading " + truncStr(a.ledgerPath, 50)))
	}
	return a.overlayCard(b.String())
}

func (a App) viewLoadError() string {
	t := theme.Active
	title := lipgloss.NewStyle().Foreground(t.Bad).Background(t.Surface).Bold(true)
	body := lipgloss.NewStyle().Foreground(t.TextPrimary).Background(t.Surface).Width(min(a.width-10, 70))
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	return a.overlayCard(title.Render("Could not load ledger") + "\n\n" +
		body.Render(a.loadErr.Error()) + "\n\n" +
		dim.Render("Fix the file and press r to retry, or q to quit"))
}

func (a App) viewHelp() string {
	t := theme.Active
	title := lipgloss.NewStyle().Foreground(t.AccentBright).Background(t.Surface).Bold(true)
	section := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	keyStyle := lipgloss.NewStyle().Foreground(t.Info).Background(t.Surface).Bold(true)
	desc := lipgloss.NewStyle().Foreground(t.TextMuted).Background(t.Surface)
	dim := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)

	groups := []struct {
		name     string
		bindings [][2]string
	}{
		{"Navigation", [][2]string{
			{"o m b f a", "Jump to tab"},
			{"← →", "Previous / Next tab"},
			{"[ ]", "Previous / Next month"},
		}},
		{"Actions", [][2]string{
			{"+ -", "Raise / lower budget by one step"},
			{"r", "Reload ledger"},
			{"?", "Toggle help"},
			{"q", "Quit"},
		}},
	}

	var b strings.Builder
	b.WriteString(title.Render("◈ Keyboard Shortcuts"))
	b.WriteString("\n")
	for _, g := range groups {
		b.WriteString("\n")
		b.WriteString(section.Render(g.name))
		b.WriteString("\n")
		for _, bind := range g.bindings {
			fmt.Fprintf(&b, "  %s  %s\n",
				keyStyle.Render(fmt.Sprintf("%-10s", bind[0])),
				desc.Render(bind[1]))
		}
	}
	b.WriteString("\n")
	b.WriteString(dim.Render("Press any key to close"))
	return a.overlayCard(b.String())
}

func (a App) viewMain() string {
	t := theme.Active
	w := a.width
	cw := a.contentWidth()
	h := a.height

	pill := lipgloss.NewStyle().Foreground(t.TextDim).Background(t.Surface)
	accent := lipgloss.NewStyle().Foreground(t.Accent).Background(t.Surface).Bold(true)
	filter := pill.Render(" ") + accent.Render(cli.FormatMonth(a.selectedMonth())) +
		pill.Render(" │ "+truncStr(a.ledgerPath, 60)+" ")
	header := components.RenderTabBar(a.activeTab, w) + "\n" +
		lipgloss.NewStyle().Background(t.Surface).Width(w).Render(filter)

	dataAge := fmt.Sprintf("%.1fs", a.loadTime.Seconds())
	if a.refreshing {
		dataAge = a.spinner.View() + " reloading"
	}
	left := fmt.Sprintf("%d txns", a.summary.Transactions)
	if a.result != nil && a.result.Skipped > 0 {
		left += fmt.Sprintf(", %d skipped", a.result.Skipped)
	}
	statusBar := components.RenderStatusBar(w, left, dataAge)

	contentH := max(h-lipgloss.Height(header)-lipgloss.Height(statusBar), minContentHeight)

	var content string
	switch a.activeTab {
	case tabOverview:
		content = a.renderOverviewTab(cw)
	case tabMonth:
		content = a.renderMonthTab(cw)
	case tabBudget:
		content = a.renderBudgetTab(cw)
	case tabForecast:
		content = a.renderForecastTab(cw, contentH)
	case tabAlerts:
		content = a.renderAlertsTab(cw)
	}

	content = padHeight(truncateHeight(content, contentH), contentH)
	content = fillLinesWithBackground(content, cw, t.Background)
	content = lipgloss.Place(w, contentH, lipgloss.Center, lipgloss.Top, content,
		lipgloss.WithWhitespaceBackground(t.Background))

	output := lipgloss.JoinVertical(lipgloss.Left, header, content, statusBar)
	return lipgloss.Place(w, h, lipgloss.Left, lipgloss.Top, output,
		lipgloss.WithWhitespaceBackground(t.Background))
}

// ─── Commands ───────────────────────────────────────────────────

// loadDataCmd starts loading in a background goroutine. It streams
// ProgressMsg updates and a final DataLoadedMsg through sub.
func loadDataCmd(path string, opts source.Options, sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		go func() {
			start := time.Now()
			progressFn := func(current, total int) {
				// Drop the update when the UI is behind; the next one catches up.
				select {
				case sub <- ProgressMsg{Current: current, Total: total}:
				default:
				}
			}
			res, err := pipeline.Load(context.Background(), path, opts, progressFn)
			sub <- DataLoadedMsg{Result: res, Err: err, LoadTime: time.Since(start)}
		}()
		return <-sub
	}
}

// waitForLoadMsg blocks until the next message arrives from the loader goroutine.
func waitForLoadMsg(sub chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		return <-sub
	}
}

// refreshDataCmd reloads the ledger without progress updates.
func refreshDataCmd(path string, opts source.Options) tea.Cmd {
	return func() tea.Msg {
		start := time.Now()
		res, err := pipeline.Load(context.Background(), path, opts, nil)
		return DataLoadedMsg{Result: res, Err: err, LoadTime: time.Since(start)}
	}
}

// forecastCmd runs the forecaster off the UI goroutine. The forecaster
// enforces its own timeout.
func forecastCmd(fc *forecast.Forecaster, txns []model.Transaction, horizon, gen int) tea.Cmd {
	return func() tea.Msg {
		points, err := fc.Forecast(context.Background(), txns, horizon)
		return ForecastMsg{Points: points, Err: err, Gen: gen}
	}
}

// ─── Helpers ────────────────────────────────────────────────────

func (a App) money(d decimal.Decimal) string {
	return cli.FormatMoney(a.cfg.General.Currency, d)
}

func (a App) compact(d decimal.Decimal) string {
	return cli.FormatCompact(a.cfg.General.Currency, d)
}

// tabAtX returns the tab index at the given X coordinate, or -1 if none.
func (a App) tabAtX(x int) int {
	return components.TabAtX(x, a.activeTab)
}

func truncStr(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit-1]) + "…"
}

func truncateHeight(s string, limit int) string {
	lines := strings.Split(s, "\n")
	if len(lines) <= limit {
		return s
	}
	return strings.Join(lines[:limit], "\n")
}

func padHeight(s string, h int) string {
	lines := strings.Split(s, "\n")
	if len(lines) >= h {
		return s
	}
	return s + strings.Repeat("\n", h-len(lines))
}

// fillLinesWithBackground pads each line to width w with background color.
func fillLinesWithBackground(s string, w int, bg lipgloss.Color) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = lipgloss.PlaceHorizontal(w, lipgloss.Left, line,
			lipgloss.WithWhitespaceBackground(bg))
	}
	return strings.Join(lines, "\n")
}
