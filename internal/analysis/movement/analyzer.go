package movement

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// tolerance абсолютный допуск сравнения с целевым процентом
const tolerance = 1e-9

// Params параметры кастомного скрининга движения
type Params struct {
	Duration      int
	TargetPercent float64
	Direction     models.Polarity
}

// Analyzer проверяет, прошла ли цена заданный процент за заданное число свечей
type Analyzer struct {
	config config.MovementConfig
}

// NewAnalyzer создает новый анализатор движения цены
func NewAnalyzer(cfg config.MovementConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Defaults возвращает параметры из конфигурации
func (a *Analyzer) Defaults() Params {
	dir := models.Bullish
	if a.config.Direction == "down" {
		dir = models.Bearish
	}
	return Params{
		Duration:      a.config.Duration,
		TargetPercent: a.config.TargetPercent,
		Direction:     dir,
	}
}

// HistoryFor возвращает глубину истории, запрашиваемую для заданной длительности
func (a *Analyzer) HistoryFor(duration int) int {
	return max(2*duration, a.config.MinHistory)
}

// Analyze считает изменение цены за последние Duration свечей
func (a *Analyzer) Analyze(series *models.Series, p Params) (*models.Movement, error) {
	if p.Duration < 1 {
		return nil, fmt.Errorf("%w: длительность должна быть положительной: %d", models.ErrConfig, p.Duration)
	}
	n := series.Len()
	if n < p.Duration+1 {
		return nil, fmt.Errorf("%w: для движения за %d свечей нужно %d свечей, получено %d",
			models.ErrInsufficientData, p.Duration, p.Duration+1, n)
	}

	closes := series.Closes()
	volumes := series.Volumes()
	change := last(talib.Roc(closes, p.Duration))

	result := &models.Movement{
		Duration:      p.Duration,
		TargetPercent: p.TargetPercent,
		Direction:     p.Direction,
		StartPrice:    closes[n-1-p.Duration],
		EndPrice:      closes[n-1],
		ChangePercent: change,
		VolumeTrend:   volumeTrend(volumes, p.Duration),
		Volatility:    volatility(closes, p.Duration),
	}

	switch p.Direction {
	case models.Bearish:
		result.Passed = change <= -p.TargetPercent+tolerance
	default:
		result.Passed = change >= p.TargetPercent-tolerance
	}
	if p.TargetPercent > 0 {
		result.Strength = math.Abs(change) / p.TargetPercent
	}

	return result, nil
}

// volumeTrend отношение среднего объема окна к среднему объему предыдущего окна
func volumeTrend(volumes []float64, duration int) float64 {
	n := len(volumes)
	recent := last(talib.Sma(volumes, duration))

	earlier := volumes[:n-duration]
	prior := last(talib.Sma(earlier, min(duration, len(earlier))))
	if prior <= 0 {
		return 0
	}
	return recent / prior
}

// volatility стандартное отклонение процентных изменений закрытий внутри окна
func volatility(closes []float64, duration int) float64 {
	if duration < 2 {
		return 0
	}
	n := len(closes)
	returns := make([]float64, 0, duration)
	for i := n - duration; i < n; i++ {
		prev := closes[i-1]
		if prev == 0 {
			returns = append(returns, 0)
			continue
		}
		returns = append(returns, (closes[i]/prev-1)*100)
	}
	return last(talib.StdDev(returns, duration, 1))
}

func last(values []float64) float64 {
	return values[len(values)-1]
}
