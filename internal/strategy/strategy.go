package strategy

import (
	"fmt"

	"github.com/skalibog/screener/internal/analysis/breakout"
	"github.com/skalibog/screener/internal/analysis/composite"
	"github.com/skalibog/screener/internal/analysis/movement"
	"github.com/skalibog/screener/internal/analysis/pattern"
	"github.com/skalibog/screener/internal/analysis/structure"
	"github.com/skalibog/screener/internal/analysis/volumeprofile"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// Strategy анализирует серию одного символа
type Strategy interface {
	// Name возвращает селектор стратегии
	Name() Kind
	// Lookback возвращает число свечей, запрашиваемых у источника данных
	Lookback() int
	// Analyze возвращает результат или ошибку по символу
	Analyze(series *models.Series) (*models.ScreeningResult, error)
}

// Finalizer реализуется стратегиями, которым нужны данные всей вселенной
type Finalizer interface {
	Finalize(results []*models.ScreeningResult)
}

// New создает стратегию по проверенному запросу
func New(req Request, cfg *config.Config) (Strategy, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	analysis := cfg.Analysis
	history := cfg.Screening.HistoryCandles
	detector := pattern.NewDetector(analysis.Pattern)

	switch req.Strategy {
	case PriceActionBreakout:
		return &breakoutStrategy{
			analyzer: breakout.NewAnalyzer(analysis.Breakout, detector),
			history:  history,
			top:      analysis.Pattern.TopMatches,
		}, nil
	case VolumeProfile:
		return &volumeStrategy{
			analyzer: volumeprofile.NewAnalyzer(analysis.VolumeProfile),
			detector: detector,
			history:  history,
			top:      analysis.Pattern.TopMatches,
		}, nil
	case MarketStructure:
		return &structureStrategy{
			analyzer: structure.NewAnalyzer(analysis.Structure),
			history:  history,
		}, nil
	case MultiFactor:
		return &multiFactorStrategy{
			analyzer: composite.NewAnalyzer(analysis),
			history:  history,
		}, nil
	case CustomMovement:
		analyzer := movement.NewAnalyzer(analysis.Movement)
		dir := models.Bullish
		if req.Direction == DirectionDown {
			dir = models.Bearish
		}
		return &movementStrategy{
			analyzer: analyzer,
			params: movement.Params{
				Duration:      req.Duration,
				TargetPercent: req.TargetPercent,
				Direction:     dir,
			},
			history: analyzer.HistoryFor(req.Duration),
		}, nil
	}
	return nil, fmt.Errorf("%w: неизвестная стратегия %q", models.ErrConfig, req.Strategy)
}

// newResult заполняет общие поля результата по последней свече
func newResult(kind Kind, series *models.Series) *models.ScreeningResult {
	last := series.Last()
	return &models.ScreeningResult{
		Symbol:    series.Symbol,
		Strategy:  string(kind),
		Timestamp: last.OpenTime,
		Close:     last.Close,
		Volume:    last.Volume,
	}
}

type breakoutStrategy struct {
	analyzer *breakout.Analyzer
	history  int
	top      int
}

func (s *breakoutStrategy) Name() Kind { return PriceActionBreakout }

func (s *breakoutStrategy) Lookback() int { return max(s.history, s.analyzer.MinCandles()) }

func (s *breakoutStrategy) Analyze(series *models.Series) (*models.ScreeningResult, error) {
	b, err := s.analyzer.Analyze(series)
	if err != nil {
		return nil, err
	}
	result := newResult(s.Name(), series)
	result.Breakout = b
	result.Patterns = pattern.Top(b.Evidence, s.top)
	result.Score = b.Strength
	result.Passed = b.State != models.BreakoutNone
	return result, nil
}

type volumeStrategy struct {
	analyzer *volumeprofile.Analyzer
	detector *pattern.Detector
	history  int
	top      int
}

func (s *volumeStrategy) Name() Kind { return VolumeProfile }

func (s *volumeStrategy) Lookback() int { return s.history }

func (s *volumeStrategy) Analyze(series *models.Series) (*models.ScreeningResult, error) {
	p, err := s.analyzer.Analyze(series)
	if err != nil {
		return nil, err
	}
	result := newResult(s.Name(), series)
	result.VolumeProfile = p
	result.Patterns = pattern.Top(s.detector.Latest(series), s.top)
	result.Score = composite.VolumeScore(p)
	result.Passed = p.NearbyNodes > 0
	return result, nil
}

type structureStrategy struct {
	analyzer *structure.Analyzer
	history  int
}

func (s *structureStrategy) Name() Kind { return MarketStructure }

func (s *structureStrategy) Lookback() int { return max(s.history, s.analyzer.MinCandles()) }

func (s *structureStrategy) Analyze(series *models.Series) (*models.ScreeningResult, error) {
	m := s.analyzer.Analyze(series)
	if m.Insufficient() {
		return nil, fmt.Errorf("%w: для структуры рынка нужно %d свечей, получено %d",
			models.ErrInsufficientData, s.analyzer.MinCandles(), series.Len())
	}
	result := newResult(s.Name(), series)
	result.Structure = m
	result.Score = composite.StructureScore(m)
	result.Passed = m.Regime == models.RegimeTrendingUp || m.Regime == models.RegimeTrendingDown
	return result, nil
}

type multiFactorStrategy struct {
	analyzer *composite.Analyzer
	history  int
}

func (s *multiFactorStrategy) Name() Kind { return MultiFactor }

func (s *multiFactorStrategy) Lookback() int { return max(s.history, s.analyzer.MinCandles()) }

func (s *multiFactorStrategy) Analyze(series *models.Series) (*models.ScreeningResult, error) {
	result, err := s.analyzer.Analyze(series)
	if err != nil {
		return nil, err
	}
	result.Strategy = string(s.Name())
	return result, nil
}

func (s *multiFactorStrategy) Finalize(results []*models.ScreeningResult) {
	s.analyzer.Finalize(results)
}

type movementStrategy struct {
	analyzer *movement.Analyzer
	params   movement.Params
	history  int
}

func (s *movementStrategy) Name() Kind { return CustomMovement }

func (s *movementStrategy) Lookback() int { return s.history }

func (s *movementStrategy) Analyze(series *models.Series) (*models.ScreeningResult, error) {
	m, err := s.analyzer.Analyze(series, s.params)
	if err != nil {
		return nil, err
	}
	result := newResult(s.Name(), series)
	result.Movement = m
	result.Return = m.ChangePercent
	// Ранжирование по изменению цены в запрошенном направлении
	result.Score = m.Direction.Sign() * m.ChangePercent
	result.Passed = m.Passed
	return result, nil
}
