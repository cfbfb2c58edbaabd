package ui

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/skalibog/screener/internal/analysis/composite"
	"github.com/skalibog/screener/internal/analysis/pattern"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// Стили UI
var (
	primaryColor   = lipgloss.Color("#0077cc")
	secondaryColor = lipgloss.Color("#333333")
	errorColor     = lipgloss.Color("#cc3300")
	successColor   = lipgloss.Color("#33cc33")
	warningColor   = lipgloss.Color("#cccc00")
	mutedColor     = lipgloss.Color("#999999")

	appStyle = lipgloss.NewStyle().
			Padding(1, 2).
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor)
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(primaryColor).
			Padding(0, 1).
			Align(lipgloss.Center)
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#ffffff")).
			Background(secondaryColor).
			Padding(0, 1)
	sectionStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(secondaryColor).
			Padding(0, 1)
	selectedStyle = lipgloss.NewStyle().Background(lipgloss.Color("#222222"))
	footerStyle   = lipgloss.NewStyle().Foreground(mutedColor).Padding(0, 1)
)

const maxLogLines = 50

// TermUI интерактивный просмотр результатов скрининга
type TermUI struct {
	mu       sync.RWMutex
	report   *models.Report
	logs     []string
	config   config.UIConfig
	program  *tea.Program
	selected int
	width    int
	height   int
	logFile  string
}

// Сообщения для обновления UI
type refreshMsg struct{}
type tickMsg time.Time

// bubbleModel модель для bubbletea
type bubbleModel struct {
	ui *TermUI
}

// NewTermUI создает интерфейс; logFile указывает на JSON лог для панели логов
func NewTermUI(cfg config.UIConfig, logFile string) *TermUI {
	return &TermUI{
		logs:    []string{"Скринер запущен. Ожидание результатов..."},
		config:  cfg,
		width:   120,
		height:  40,
		logFile: logFile,
	}
}

// Run запускает интерфейс и блокируется до выхода пользователя или отмены контекста
func (ui *TermUI) Run(ctx context.Context) error {
	model := bubbleModel{ui: ui}
	program := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))

	ui.mu.Lock()
	ui.program = program
	ui.mu.Unlock()

	if _, err := program.Run(); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("ошибка запуска UI: %w", err)
	}
	return nil
}

// UpdateReport заменяет отображаемый отчет
func (ui *TermUI) UpdateReport(report *models.Report) {
	ui.mu.Lock()
	ui.report = report
	if report != nil && ui.selected >= len(report.Results) {
		ui.selected = max(0, len(report.Results)-1)
	}
	program := ui.program
	ui.mu.Unlock()

	if program != nil {
		program.Send(refreshMsg{})
	}
}

func (ui *TermUI) tick() tea.Cmd {
	interval := time.Duration(ui.config.RefreshRate) * time.Millisecond
	if interval <= 0 {
		interval = time.Second
	}
	return tea.Tick(interval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// loadLogs перечитывает последние строки JSON лога
func (ui *TermUI) loadLogs() error {
	if ui.logFile == "" {
		return nil
	}
	file, err := os.Open(ui.logFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	defer file.Close()

	var logs []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		logs = append(logs, formatLogLine(scanner.Text()))
		if len(logs) > maxLogLines {
			logs = logs[1:]
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if len(logs) > 0 {
		ui.mu.Lock()
		ui.logs = logs
		ui.mu.Unlock()
	}
	return nil
}

var ansiRegex = regexp.MustCompile(`\x1b\[[0-9;]*m`)

// formatLogLine переводит JSON запись zap в короткую строку
func formatLogLine(line string) string {
	var entry map[string]interface{}
	if err := json.Unmarshal([]byte(line), &entry); err != nil {
		return line
	}

	level, _ := entry["level"].(string)
	ts, _ := entry["ts"].(string)
	msg, _ := entry["msg"].(string)
	level = ansiRegex.ReplaceAllString(level, "")

	timestamp := ""
	if t, err := time.Parse("02.01.2006 - 15:04:05.999999999Z07:00", ts); err == nil {
		timestamp = t.Format("15:04:05")
	}

	keys := make([]string, 0, len(entry))
	for k := range entry {
		if k != "level" && k != "ts" && k != "msg" && k != "caller" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] [%s] %s", timestamp, level, msg)
	for _, k := range keys {
		fmt.Fprintf(&b, " (%s: %v)", k, entry[k])
	}
	return b.String()
}

// Методы для bubbletea
func (m bubbleModel) Init() tea.Cmd {
	return m.ui.tick()
}

func (m bubbleModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			return m, tea.Quit
		case "up", "k":
			m.ui.mu.Lock()
			m.ui.selected = max(0, m.ui.selected-1)
			m.ui.mu.Unlock()
		case "down", "j":
			m.ui.mu.Lock()
			m.ui.selected = min(m.ui.rowCount()-1, m.ui.selected+1)
			m.ui.selected = max(0, m.ui.selected)
			m.ui.mu.Unlock()
		case "r":
			_ = m.ui.loadLogs()
		}

	case tea.WindowSizeMsg:
		m.ui.mu.Lock()
		m.ui.width = msg.Width
		m.ui.height = msg.Height
		m.ui.mu.Unlock()

	case tickMsg:
		_ = m.ui.loadLogs()
		return m, m.ui.tick()

	case refreshMsg:
	}

	return m, nil
}

// rowCount число строк таблицы с учетом ограничения; вызывается под блокировкой
func (ui *TermUI) rowCount() int {
	if ui.report == nil {
		return 0
	}
	n := len(ui.report.Results)
	if ui.config.MaxRows > 0 && n > ui.config.MaxRows {
		n = ui.config.MaxRows
	}
	return n
}

func (m bubbleModel) View() string {
	m.ui.mu.RLock()
	defer m.ui.mu.RUnlock()

	report := m.ui.report
	title := "Скринер"
	if report != nil {
		title = fmt.Sprintf("Скринер: %s / %s", report.Strategy, report.Exchange)
	}

	sections := []string{
		titleStyle.Render(title),
		renderResultsSection(report, m.ui.selected, m.ui.rowCount()),
	}
	if report != nil && m.ui.selected < len(report.Results) {
		sections = append(sections, renderDetailSection(report.Results[m.ui.selected]))
	}
	if report != nil && len(report.Failures) > 0 {
		sections = append(sections, renderFailuresSection(report.Failures))
	}
	sections = append(sections,
		renderLogsSection(m.ui.logs),
		footerStyle.Render("Клавиши: ↑/↓ - навигация, R - перезагрузить логи, Q - выход"),
	)

	return appStyle.Render(lipgloss.JoinVertical(lipgloss.Left, sections...))
}

func renderResultsSection(report *models.Report, selected, rows int) string {
	var content strings.Builder

	switch {
	case report == nil:
		content.WriteString("  Ожидание данных...\n")
	case len(report.Results) == 0:
		content.WriteString("  Нет результатов\n")
	default:
		for i, r := range report.Results[:rows] {
			line := fmt.Sprintf("  %-12s %s %7.2f  Цена: %.2f  %s",
				r.Symbol, passMark(r.Passed), r.Score, r.Close, formatRecommendation(r.Recommendation))
			if i == selected {
				line = selectedStyle.Render("> " + line[2:])
			}
			content.WriteString(line + "\n")
		}
	}

	header := "РЕЗУЛЬТАТЫ"
	if report != nil {
		header = fmt.Sprintf("РЕЗУЛЬТАТЫ (%d из %d прошли)", len(report.Passed()), len(report.Results))
		if report.Partial {
			header += " [частичный]"
		}
	}
	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render(header), content.String()))
}

func renderDetailSection(r *models.ScreeningResult) string {
	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(r.Symbol),
		strings.Join(detailLines(r), "\n"),
	))
}

// detailLines описывает результат построчно
func detailLines(r *models.ScreeningResult) []string {
	var lines []string
	if b := r.Breakout; b != nil {
		lines = append(lines, fmt.Sprintf("Пробой: %s, сопротивление %.2f, поддержка %.2f, объем x%.2f",
			b.State, b.Resistance, b.Support, b.VolumeRatio))
	}
	if v := r.VolumeProfile; v != nil {
		lines = append(lines, fmt.Sprintf("POC: %.2f (%.2f%% от цены), узлов рядом: %d, институциональных: %d",
			v.POC.Price, v.DistanceToPOC, v.NearbyNodes, len(v.Institutional)))
	}
	if s := r.Structure; s != nil {
		lines = append(lines, fmt.Sprintf("Структура: %s, тренд %s, серия %d", s.Regime, s.Trend, s.RunLength))
	}
	if m := r.Movement; m != nil {
		lines = append(lines, fmt.Sprintf("Движение за %d свечей: %.2f%% (цель %.2f%%), %.2f -> %.2f",
			m.Duration, m.ChangePercent, m.TargetPercent, m.StartPrice, m.EndPrice))
	}
	if len(r.Components) > 0 {
		keys := make([]string, 0, len(r.Components))
		for k := range r.Components {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		parts := make([]string, len(keys))
		for i, k := range keys {
			parts[i] = fmt.Sprintf("%s=%.1f", k, r.Components[k])
		}
		lines = append(lines, "Факторы: "+strings.Join(parts, " "))
	}
	for _, p := range r.Patterns {
		lines = append(lines, fmt.Sprintf("Паттерн: %s (%.0f) %s", p.Kind, p.Strength, pattern.Description(p.Kind)))
	}
	if len(lines) == 0 {
		lines = append(lines, "Нет деталей")
	}
	return lines
}

func renderFailuresSection(failures []models.Failure) string {
	var content strings.Builder
	style := lipgloss.NewStyle().Foreground(errorColor)
	for _, f := range failures {
		content.WriteString("  " + style.Render(fmt.Sprintf("%s [%s]", f.Symbol, f.Kind)) + "\n")
	}
	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left,
		headerStyle.Render(fmt.Sprintf("СБОИ (%d)", len(failures))),
		content.String(),
	))
}

func renderLogsSection(logs []string) string {
	var content strings.Builder

	for _, log := range logs {
		switch {
		case strings.Contains(log, "[ERROR]"):
			log = lipgloss.NewStyle().Foreground(errorColor).Render(log)
		case strings.Contains(log, "[INFO]"):
			log = lipgloss.NewStyle().Foreground(successColor).Render(log)
		case strings.Contains(log, "[WARN]"):
			log = lipgloss.NewStyle().Foreground(warningColor).Render(log)
		case strings.Contains(log, "[DEBUG]"):
			log = lipgloss.NewStyle().Foreground(lipgloss.Color("#9999ff")).Render(log)
		}
		content.WriteString("  " + log + "\n")
	}

	return sectionStyle.Render(lipgloss.JoinVertical(lipgloss.Left, headerStyle.Render("ЛОГИ"), content.String()))
}

func passMark(passed bool) string {
	if passed {
		return lipgloss.NewStyle().Foreground(successColor).Render("✔")
	}
	return lipgloss.NewStyle().Foreground(mutedColor).Render("·")
}

func formatRecommendation(recommendation string) string {
	var style lipgloss.Style

	switch recommendation {
	case composite.StrongBuy:
		style = lipgloss.NewStyle().Foreground(successColor).Bold(true)
	case composite.Buy:
		style = lipgloss.NewStyle().Foreground(successColor)
	case composite.StrongSell:
		style = lipgloss.NewStyle().Foreground(errorColor).Bold(true)
	case composite.Sell:
		style = lipgloss.NewStyle().Foreground(errorColor)
	default:
		style = lipgloss.NewStyle().Foreground(warningColor)
	}

	return style.Render(recommendation)
}
