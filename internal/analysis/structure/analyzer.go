package structure

import (
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// Analyzer определяет точки разворота и структуру рынка
type Analyzer struct {
	config config.StructureConfig
}

// NewAnalyzer создает новый анализатор структуры рынка
func NewAnalyzer(cfg config.StructureConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// MinCandles возвращает минимальную длину серии для поиска разворотов
func (a *Analyzer) MinCandles() int {
	return 2*a.config.PivotWidth + 1
}

// Analyze строит последовательность точек разворота и классифицирует режим рынка.
// Короткая серия не является ошибкой: режим помечается как insufficient_data.
func (a *Analyzer) Analyze(series *models.Series) *models.MarketStructure {
	result := &models.MarketStructure{
		Direction: models.Neutral,
		Regime:    models.RegimeInsufficient,
		Trend:     models.TrendUndefined,
	}
	if series.Len() < a.MinCandles() {
		return result
	}

	result.Points = a.label(a.pivots(series))

	// Длина последней серии однонаправленных меток
	for i := len(result.Points) - 1; i >= 0; i-- {
		dir := result.Points[i].Label.Direction()
		if dir == models.Neutral {
			break
		}
		if result.Direction == models.Neutral {
			result.Direction = dir
		}
		if dir != result.Direction {
			break
		}
		result.RunLength++
	}

	labeled := 0
	for _, p := range result.Points {
		if p.Label != models.LabelNone {
			labeled++
		}
	}
	if labeled > 0 {
		result.Strength = float64(result.RunLength) / float64(labeled) * 100
	}

	result.Regime = models.RegimeRanging
	if result.RunLength > a.config.TrendThreshold {
		if result.Direction == models.Bullish {
			result.Regime = models.RegimeTrendingUp
		} else {
			result.Regime = models.RegimeTrendingDown
		}
	}
	result.Trend = coarseTrend(result.Points)

	return result
}

// pivots находит локальные экстремумы в симметричном окне шириной k.
// При равных значениях экстремумом считается самая ранняя свеча окна.
func (a *Analyzer) pivots(series *models.Series) []models.StructurePoint {
	k := a.config.PivotWidth
	highs := series.Highs()
	lows := series.Lows()

	var points []models.StructurePoint
	for i := k; i < len(highs)-k; i++ {
		if isExtreme(highs, i, k, func(x, y float64) bool { return x > y }) {
			points = append(points, models.StructurePoint{Index: i, Price: highs[i], Kind: models.SwingHigh})
		}
		if isExtreme(lows, i, k, func(x, y float64) bool { return x < y }) {
			points = append(points, models.StructurePoint{Index: i, Price: lows[i], Kind: models.SwingLow})
		}
	}
	return points
}

// isExtreme проверяет, что values[i] строго лучше левых соседей и не хуже правых
func isExtreme(values []float64, i, k int, better func(x, y float64) bool) bool {
	for j := i - k; j < i; j++ {
		if !better(values[i], values[j]) {
			return false
		}
	}
	for j := i + 1; j <= i+k; j++ {
		if better(values[j], values[i]) {
			return false
		}
	}
	return true
}

// label сравнивает каждую точку с предыдущей точкой того же типа
func (a *Analyzer) label(points []models.StructurePoint) []models.StructurePoint {
	var prevHigh, prevLow *models.StructurePoint
	for i := range points {
		p := &points[i]
		switch p.Kind {
		case models.SwingHigh:
			if prevHigh != nil {
				p.Label = models.LabelLH
				if p.Price > prevHigh.Price {
					p.Label = models.LabelHH
				}
			}
			prevHigh = p
		case models.SwingLow:
			if prevLow != nil {
				p.Label = models.LabelLL
				if p.Price > prevLow.Price {
					p.Label = models.LabelHL
				}
			}
			prevLow = p
		}
	}
	return points
}

// coarseTrend оценивает тренд по двум последним максимумам и минимумам
func coarseTrend(points []models.StructurePoint) models.Trend {
	var highs, lows []float64
	for _, p := range points {
		if p.Kind == models.SwingHigh {
			highs = append(highs, p.Price)
		} else {
			lows = append(lows, p.Price)
		}
	}
	if len(highs) < 2 || len(lows) < 2 {
		return models.TrendUndefined
	}

	h1, h2 := highs[len(highs)-2], highs[len(highs)-1]
	l1, l2 := lows[len(lows)-2], lows[len(lows)-1]
	switch {
	case h2 > h1 && l2 > l1:
		return models.TrendUp
	case h2 < h1 && l2 < l1:
		return models.TrendDown
	}
	return models.TrendSideways
}
