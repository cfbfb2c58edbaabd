package movement

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

func series(closes []float64, volumes []float64) *models.Series {
	startTime := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]*models.Candle, len(closes))
	for i, c := range closes {
		v := 1000.0
		if volumes != nil {
			v = volumes[i]
		}
		candles[i] = &models.Candle{
			OpenTime: startTime.Add(time.Duration(i) * 24 * time.Hour),
			Open:     c,
			High:     c,
			Low:      c,
			Close:    c,
			Volume:   v,
		}
	}
	return models.NewSeries("TEST", "NSE", candles)
}

func analyzer() *Analyzer {
	return NewAnalyzer(config.Default().Analysis.Movement)
}

func TestAnalyze_Boundaries(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		params Params
		passed bool
	}{
		{"up exactly at target", []float64{100, 110}, Params{1, 10, models.Bullish}, true},
		{"down exactly at target", []float64{100, 90}, Params{1, 10, models.Bearish}, true},
		{"up below target", []float64{100, 109.99}, Params{1, 10, models.Bullish}, false},
		{"down below target", []float64{100, 90.01}, Params{1, 10, models.Bearish}, false},
		{"wrong direction", []float64{100, 80}, Params{1, 10, models.Bullish}, false},
		{"longer window", []float64{50, 100, 105, 103, 125}, Params{3, 25, models.Bullish}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := analyzer().Analyze(series(tt.closes, nil), tt.params)
			if err != nil {
				t.Fatalf("Analyze: %v", err)
			}
			if res.Passed != tt.passed {
				t.Errorf("passed = %v (change %.12f%%), ожидалось %v", res.Passed, res.ChangePercent, tt.passed)
			}
			n := len(tt.closes)
			if res.EndPrice != tt.closes[n-1] || res.StartPrice != tt.closes[n-1-tt.params.Duration] {
				t.Errorf("start/end = %v/%v", res.StartPrice, res.EndPrice)
			}
		})
	}
}

func TestAnalyze_InsufficientHistory(t *testing.T) {
	_, err := analyzer().Analyze(series([]float64{1, 2, 3, 4, 5}, nil), Params{5, 10, models.Bullish})
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("err = %v, ожидалась ErrInsufficientData", err)
	}
}

func TestAnalyze_InvalidDuration(t *testing.T) {
	_, err := analyzer().Analyze(series([]float64{1, 2}, nil), Params{0, 10, models.Bullish})
	if !errors.Is(err, models.ErrConfig) {
		t.Fatalf("err = %v, ожидалась ErrConfig", err)
	}
}

func TestAnalyze_AuxiliaryMetrics(t *testing.T) {
	res, err := analyzer().Analyze(
		series([]float64{100, 100, 100, 110, 99}, []float64{100, 100, 100, 200, 200}),
		Params{2, 5, models.Bearish},
	)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	// среднее 200 против среднего 100 предыдущих двух свечей
	if math.Abs(res.VolumeTrend-2) > 1e-9 {
		t.Errorf("volume trend = %v, ожидалось 2", res.VolumeTrend)
	}
	// изменения +10% и -10%
	if math.Abs(res.Volatility-10) > 1e-6 {
		t.Errorf("volatility = %v, ожидалось 10", res.Volatility)
	}
	if math.Abs(res.ChangePercent-(-1)) > 1e-9 {
		t.Errorf("change = %v, ожидалось -1", res.ChangePercent)
	}
	if res.Passed {
		t.Error("падение на 1% не должно проходить цель 5%")
	}
	if math.Abs(res.Strength-0.2) > 1e-9 {
		t.Errorf("strength = %v, ожидалось 0.2", res.Strength)
	}
}

func TestAnalyze_ShortPriorWindow(t *testing.T) {
	// до окна только одна свеча
	res, err := analyzer().Analyze(series([]float64{10, 11, 12, 13}, []float64{50, 100, 100, 100}), Params{3, 10, models.Bullish})
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if math.Abs(res.VolumeTrend-2) > 1e-9 {
		t.Errorf("volume trend = %v, ожидалось 2", res.VolumeTrend)
	}
	if !res.Passed {
		t.Errorf("рост на 30%% должен пройти цель 10%%, change = %v", res.ChangePercent)
	}
}

func TestHistoryFor(t *testing.T) {
	a := analyzer()
	if got := a.HistoryFor(30); got != 365 {
		t.Errorf("HistoryFor(30) = %d", got)
	}
	if got := a.HistoryFor(300); got != 600 {
		t.Errorf("HistoryFor(300) = %d", got)
	}
	if d := a.Defaults(); d.Duration != 30 || d.TargetPercent != 10 || d.Direction != models.Bullish {
		t.Errorf("Defaults = %+v", d)
	}
}
