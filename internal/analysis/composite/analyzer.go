package composite

import (
	"fmt"
	"math"
	"sort"
	"sync"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/screener/internal/analysis/breakout"
	"github.com/skalibog/screener/internal/analysis/pattern"
	"github.com/skalibog/screener/internal/analysis/structure"
	"github.com/skalibog/screener/internal/analysis/volumeprofile"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

// Ключи компонентов скоринга
const (
	ComponentBreakout         = "breakout"
	ComponentVolume           = "volume"
	ComponentStructure        = "structure"
	ComponentRelativeStrength = "relative_strength"
	ComponentBreadth          = "breadth"
)

// Рекомендации по итоговому скорингу
const (
	StrongBuy  = "СИЛЬНАЯ ПОКУПКА"
	Buy        = "ПОКУПКА"
	Hold       = "НЕЙТРАЛЬНО"
	Sell       = "ПРОДАЖА"
	StrongSell = "СИЛЬНАЯ ПРОДАЖА"
)

// Analyzer объединяет пробой, объемный профиль, структуру рынка,
// относительную силу и ширину рынка в один скоринг от 0 до 100
type Analyzer struct {
	config        config.CompositeConfig
	breakoutAnal  *breakout.Analyzer
	volumeAnal    *volumeprofile.Analyzer
	structureAnal *structure.Analyzer
	topMatches    int
}

// NewAnalyzer создает новый мультифакторный анализатор
func NewAnalyzer(cfg config.AnalysisConfig) *Analyzer {
	detector := pattern.NewDetector(cfg.Pattern)
	return &Analyzer{
		config:        cfg.Composite,
		breakoutAnal:  breakout.NewAnalyzer(cfg.Breakout, detector),
		volumeAnal:    volumeprofile.NewAnalyzer(cfg.VolumeProfile),
		structureAnal: structure.NewAnalyzer(cfg.Structure),
		topMatches:    cfg.Pattern.TopMatches,
	}
}

// MinCandles возвращает минимальную длину серии для скоринга
func (a *Analyzer) MinCandles() int {
	return max(a.breakoutAnal.MinCandles(), a.config.RSLookback+1)
}

// Analyze считает компоненты скоринга для одного символа.
// Относительная сила и ширина рынка уточняются в Finalize после обработки всей вселенной.
func (a *Analyzer) Analyze(series *models.Series) (*models.ScreeningResult, error) {
	if series.Len() < a.MinCandles() {
		return nil, fmt.Errorf("%w: для мультифакторного скоринга нужно %d свечей, получено %d",
			models.ErrInsufficientData, a.MinCandles(), series.Len())
	}

	// Запускаем анализаторы параллельно
	var wg sync.WaitGroup
	var breakoutRes *models.Breakout
	var profile *models.VolumeProfile
	var marketStructure *models.MarketStructure
	var breakoutErr, volumeErr, structureErr error

	wg.Add(3)

	go func() {
		defer wg.Done()
		breakoutErr = safely("breakout", func() (err error) {
			breakoutRes, err = a.breakoutAnal.Analyze(series)
			return err
		})
	}()

	go func() {
		defer wg.Done()
		volumeErr = safely("volume_profile", func() (err error) {
			profile, err = a.volumeAnal.Analyze(series)
			return err
		})
	}()

	go func() {
		defer wg.Done()
		structureErr = safely("structure", func() error {
			marketStructure = a.structureAnal.Analyze(series)
			return nil
		})
	}()

	wg.Wait()

	if breakoutErr != nil {
		return nil, fmt.Errorf("ошибка анализа пробоя: %w", breakoutErr)
	}
	if volumeErr != nil {
		return nil, fmt.Errorf("ошибка анализа объемного профиля: %w", volumeErr)
	}
	if structureErr != nil {
		return nil, fmt.Errorf("ошибка анализа структуры: %w", structureErr)
	}

	ret := last(talib.Roc(series.Closes(), a.config.RSLookback))
	candle := series.Last()

	result := &models.ScreeningResult{
		Symbol:        series.Symbol,
		Timestamp:     candle.OpenTime,
		Close:         candle.Close,
		Volume:        candle.Volume,
		Return:        ret,
		Patterns:      pattern.Top(breakoutRes.Evidence, a.topMatches),
		Breakout:      breakoutRes,
		VolumeProfile: profile,
		Structure:     marketStructure,
		Components: map[string]float64{
			ComponentBreakout:         BreakoutScore(breakoutRes),
			ComponentVolume:           VolumeScore(profile),
			ComponentStructure:        StructureScore(marketStructure),
			ComponentRelativeStrength: a.relativeStrengthScore(ret, 0),
			ComponentBreadth:          50,
		},
	}
	a.score(result)

	logger.Debug("COMPOSITE: скоринг символа",
		zap.String("symbol", result.Symbol),
		zap.Float64("score", result.Score),
		zap.String("breakout", string(breakoutRes.State)),
		zap.String("regime", string(marketStructure.Regime)))

	return result, nil
}

// Finalize пересчитывает относительную силу к медиане вселенной и ширину рынка,
// одинаковую для всех символов прогона
func (a *Analyzer) Finalize(results []*models.ScreeningResult) {
	if len(results) == 0 {
		return
	}

	returns := make([]float64, 0, len(results))
	up, down := 0, 0
	for _, r := range results {
		returns = append(returns, r.Return)
		switch r.Regime() {
		case models.RegimeTrendingUp:
			up++
		case models.RegimeTrendingDown:
			down++
		}
	}
	med := median(returns)
	breadth := BreadthScore(up, down, len(results))

	for _, r := range results {
		if r.Components == nil {
			continue
		}
		r.Components[ComponentRelativeStrength] = a.relativeStrengthScore(r.Return, med)
		r.Components[ComponentBreadth] = breadth
		a.score(r)
	}

	logger.Info("COMPOSITE: финализация вселенной",
		zap.Int("symbols", len(results)),
		zap.Float64("median_return", med),
		zap.Float64("breadth", breadth))
}

// score считает взвешенную сумму компонентов и рекомендацию
func (a *Analyzer) score(r *models.ScreeningResult) {
	// Взвешиваем сигналы
	weights := map[string]float64{
		ComponentBreakout:         a.config.BreakoutWeight,
		ComponentVolume:           a.config.VolumeWeight,
		ComponentStructure:        a.config.StructureWeight,
		ComponentRelativeStrength: a.config.RelativeWeight,
		ComponentBreadth:          a.config.BreadthWeight,
	}

	var sum, total float64
	for _, key := range []string{ComponentBreakout, ComponentVolume, ComponentStructure, ComponentRelativeStrength, ComponentBreadth} {
		sum += weights[key] * r.Components[key]
		total += weights[key]
	}
	if total > 0 {
		r.Score = sum / total
	}
	r.Recommendation = Recommend(r.Score, a.config.Thresholds)
	r.Passed = r.Score >= a.config.MinScore
}

func (a *Analyzer) relativeStrengthScore(ret, median float64) float64 {
	return clamp(50 + a.config.RSScale*(ret-median))
}

// Recommend сопоставляет скоринг с рекомендацией
func Recommend(score float64, t config.SignalThresholds) string {
	switch {
	case score >= t.StrongBuy:
		return StrongBuy
	case score >= t.Buy:
		return Buy
	case score <= t.StrongSell:
		return StrongSell
	case score <= t.Sell:
		return Sell
	default:
		return Hold
	}
}

// BreakoutScore: нейтральный пробой 50, бычий выше, медвежий ниже
func BreakoutScore(b *models.Breakout) float64 {
	if b == nil {
		return 50
	}
	return clamp(50 + b.Direction.Sign()*b.Strength/2)
}

// VolumeScore оценивает положение цены относительно POC и институциональные узлы
func VolumeScore(p *models.VolumeProfile) float64 {
	if p == nil {
		return 50
	}
	score := 50 + math.Max(-25, math.Min(25, 5*p.DistanceToPOC))
	if len(p.Institutional) > 0 {
		// Цена над зоной накопления поддерживает рост
		if p.LastClose >= p.POC.Price {
			score += 15
		} else {
			score -= 15
		}
	}
	return clamp(score)
}

// StructureScore учитывает направление и силу последней серии меток
func StructureScore(m *models.MarketStructure) float64 {
	if m.Insufficient() {
		return 50
	}
	return clamp(50 + m.Direction.Sign()*m.Strength/2)
}

// BreadthScore: 100 когда вся вселенная в восходящем тренде, 0 когда вся в нисходящем
func BreadthScore(up, down, total int) float64 {
	if total == 0 {
		return 50
	}
	return clamp(50 + 50*float64(up-down)/float64(total))
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(100, v))
}

func last(values []float64) float64 {
	return values[len(values)-1]
}

// safely выполняет анализатор, превращая панику в ошибку
func safely(name string, fn func() error) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("паника в анализаторе %s: %v", name, r)
		}
	}()
	return fn()
}
