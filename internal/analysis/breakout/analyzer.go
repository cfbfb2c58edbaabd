package breakout

import (
	"fmt"
	"math"

	"github.com/markcheno/go-talib"
	"github.com/skalibog/screener/internal/analysis/pattern"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// Analyzer определяет пробой уровней поддержки и сопротивления по последней свече
type Analyzer struct {
	config   config.BreakoutConfig
	detector *pattern.Detector
}

// NewAnalyzer создает новый анализатор пробоев
func NewAnalyzer(cfg config.BreakoutConfig, detector *pattern.Detector) *Analyzer {
	return &Analyzer{
		config:   cfg,
		detector: detector,
	}
}

// MinCandles возвращает минимальную длину серии для анализа
func (a *Analyzer) MinCandles() int {
	return max(a.config.Lookback, a.config.VolumePeriod) + 1
}

// Analyze классифицирует последнюю свечу серии
func (a *Analyzer) Analyze(series *models.Series) (*models.Breakout, error) {
	n := series.Len()
	if n < a.MinCandles() {
		return nil, fmt.Errorf("%w: для анализа пробоя нужно %d свечей, получено %d",
			models.ErrInsufficientData, a.MinCandles(), n)
	}

	// Уровни считаются по истории без последней свечи
	highs := series.Highs()[:n-1]
	lows := series.Lows()[:n-1]
	volumes := series.Volumes()[:n-1]

	resistance := last(talib.Max(highs, a.config.Lookback))
	support := last(talib.Min(lows, a.config.Lookback))
	avgVolume := last(talib.Sma(volumes, a.config.VolumePeriod))

	candle := series.Last()
	result := &models.Breakout{
		State:      models.BreakoutNone,
		Direction:  models.Neutral,
		Resistance: resistance,
		Support:    support,
		Close:      candle.Close,
		Volume:     candle.Volume,
		AvgVolume:  avgVolume,
	}
	if avgVolume > 0 {
		result.VolumeRatio = candle.Volume / avgVolume
	}

	// Подтверждение объемом
	volumeConfirmed := candle.Volume > a.config.VolumeMultiplier*avgVolume

	switch {
	case candle.Close > resistance*(1+a.config.Margin):
		result.Direction = models.Bullish
		result.Confirmed = volumeConfirmed
		result.State = models.BreakoutBullishUnconfirmed
		if volumeConfirmed {
			result.State = models.BreakoutBullish
		}
		if resistance > 0 {
			result.Penetration = (candle.Close - resistance) / resistance * 100
		}
	case candle.Close < support*(1-a.config.Margin):
		result.Direction = models.Bearish
		result.Confirmed = volumeConfirmed
		result.State = models.BreakoutBearishUnconfirmed
		if volumeConfirmed {
			result.State = models.BreakoutBearish
		}
		if support > 0 {
			result.Penetration = (support - candle.Close) / support * 100
		}
	}

	// Паттерны на свече пробоя как подтверждающие данные
	if a.detector != nil {
		result.Evidence = pattern.Rank(a.detector.Latest(series))
		for _, m := range result.Evidence {
			switch m.Polarity {
			case models.Bullish:
				result.BullishHits++
			case models.Bearish:
				result.BearishHits++
			}
		}
	}

	result.Strength = a.strength(result)
	return result, nil
}

// strength оценивает силу пробоя от 0 до 100
func (a *Analyzer) strength(b *models.Breakout) float64 {
	if b.Direction == models.Neutral {
		return 0
	}

	score := 25.0
	if b.Confirmed {
		score = 50
	}
	score += math.Min(25, 5*b.Penetration)
	if b.VolumeRatio > 1 {
		score += math.Min(15, 10*(b.VolumeRatio-1))
	}

	// Согласованные паттерны усиливают сигнал
	aligned := b.BullishHits
	if b.Direction == models.Bearish {
		aligned = b.BearishHits
	}
	score += math.Min(10, 5*float64(aligned))

	return math.Max(0, math.Min(100, score))
}

func last(values []float64) float64 {
	return values[len(values)-1]
}
