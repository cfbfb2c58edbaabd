package composite

import (
	"errors"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// zigzag строит пилообразную серию с периодом 12 свечей и заданным наклоном
func zigzag(symbol string, drift float64, n int) *models.Series {
	startTime := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]*models.Candle, n)
	prev := 0.0
	for i := 0; i < n; i++ {
		tri := math.Abs(float64(i%12) - 6)
		c := 100 + drift*float64(i) + tri
		open := c
		if i > 0 {
			open = prev
		}
		candles[i] = &models.Candle{
			Symbol:   symbol,
			OpenTime: startTime.Add(time.Duration(i) * 24 * time.Hour),
			Open:     open,
			High:     math.Max(open, c) + 0.5,
			Low:      math.Min(open, c) - 0.5,
			Close:    c,
			Volume:   1000 + float64(i%5)*100,
		}
		prev = c
	}
	return models.NewSeries(symbol, "NSE", candles)
}

func universe() []*models.Series {
	return []*models.Series{
		zigzag("UP", 0.5, 120),
		zigzag("SLOW", 0.3, 120),
		zigzag("DOWN", -0.5, 120),
	}
}

func run(t *testing.T, a *Analyzer) map[string]*models.ScreeningResult {
	t.Helper()
	var results []*models.ScreeningResult
	out := map[string]*models.ScreeningResult{}
	for _, s := range universe() {
		r, err := a.Analyze(s)
		if err != nil {
			t.Fatalf("Analyze(%s): %v", s.Symbol, err)
		}
		results = append(results, r)
		out[r.Symbol] = r
	}
	a.Finalize(results)
	return out
}

func TestAnalyze_Components(t *testing.T) {
	a := NewAnalyzer(config.Default().Analysis)
	results := run(t, a)

	for sym, r := range results {
		if r.Score < 0 || r.Score > 100 {
			t.Errorf("%s: score %v вне [0,100]", sym, r.Score)
		}
		for key, v := range r.Components {
			if v < 0 || v > 100 {
				t.Errorf("%s: компонент %s = %v вне [0,100]", sym, key, v)
			}
		}
		if r.Recommendation == "" {
			t.Errorf("%s: пустая рекомендация", sym)
		}
	}

	if results["UP"].Regime() != models.RegimeTrendingUp {
		t.Errorf("UP regime = %s", results["UP"].Regime())
	}
	if results["DOWN"].Regime() != models.RegimeTrendingDown {
		t.Errorf("DOWN regime = %s", results["DOWN"].Regime())
	}
	if results["UP"].Score <= results["DOWN"].Score {
		t.Errorf("восходящий тренд %v не выше нисходящего %v", results["UP"].Score, results["DOWN"].Score)
	}
}

func TestFinalize_UniverseFactors(t *testing.T) {
	a := NewAnalyzer(config.Default().Analysis)
	results := run(t, a)

	// два восходящих тренда и один нисходящий
	want := BreadthScore(2, 1, 3)
	for sym, r := range results {
		if got := r.Components[ComponentBreadth]; math.Abs(got-want) > 1e-9 {
			t.Errorf("%s: breadth = %v, ожидалось %v", sym, got, want)
		}
	}
	// медиана совпадает с доходностью SLOW
	if got := results["SLOW"].Components[ComponentRelativeStrength]; math.Abs(got-50) > 1e-9 {
		t.Errorf("SLOW: relative strength = %v, ожидалось 50", got)
	}
	if results["UP"].Components[ComponentRelativeStrength] <= 50 {
		t.Error("UP должен быть сильнее медианы")
	}
}

func TestScore_WeightScalingPreservesOrder(t *testing.T) {
	base := config.Default().Analysis
	doubled := base
	doubled.Composite.BreakoutWeight *= 2
	doubled.Composite.VolumeWeight *= 2
	doubled.Composite.StructureWeight *= 2
	doubled.Composite.RelativeWeight *= 2
	doubled.Composite.BreadthWeight *= 2

	first := run(t, NewAnalyzer(base))
	second := run(t, NewAnalyzer(doubled))

	for sym, r := range first {
		if math.Abs(r.Score-second[sym].Score) > 1e-9 {
			t.Errorf("%s: %v != %v после удвоения весов", sym, r.Score, second[sym].Score)
		}
	}
	for a := range first {
		for b := range first {
			if (first[a].Score > first[b].Score) != (second[a].Score > second[b].Score) {
				t.Errorf("порядок %s и %s изменился", a, b)
			}
		}
	}
}

func TestAnalyze_InsufficientData(t *testing.T) {
	a := NewAnalyzer(config.Default().Analysis)
	_, err := a.Analyze(zigzag("SHORT", 0.5, 30))
	if !errors.Is(err, models.ErrInsufficientData) {
		t.Fatalf("err = %v, ожидалась ErrInsufficientData", err)
	}
}

func TestRecommend(t *testing.T) {
	thresholds := config.SignalThresholds{StrongBuy: 75, Buy: 60, Sell: 40, StrongSell: 25}
	tests := []struct {
		score float64
		want  string
	}{
		{90, StrongBuy},
		{75, StrongBuy},
		{60, Buy},
		{50, Hold},
		{40, Sell},
		{25, StrongSell},
		{0, StrongSell},
	}
	for _, tt := range tests {
		if got := Recommend(tt.score, thresholds); got != tt.want {
			t.Errorf("Recommend(%v) = %s, ожидалось %s", tt.score, got, tt.want)
		}
	}
}

func TestFactorScores(t *testing.T) {
	if got := BreadthScore(3, 1, 4); got != 75 {
		t.Errorf("BreadthScore = %v", got)
	}
	if got := BreadthScore(0, 0, 0); got != 50 {
		t.Errorf("BreadthScore пустой вселенной = %v", got)
	}
	if got := BreakoutScore(&models.Breakout{Direction: models.Bearish, Strength: 80}); got != 10 {
		t.Errorf("BreakoutScore = %v", got)
	}
	if got := StructureScore(&models.MarketStructure{Regime: models.RegimeInsufficient}); got != 50 {
		t.Errorf("StructureScore = %v", got)
	}
}

func TestScore_PassedUsesMinScore(t *testing.T) {
	cfg := config.Default().Analysis
	results := run(t, NewAnalyzer(cfg))

	for sym, r := range results {
		if r.Passed != (r.Score >= cfg.Composite.MinScore) {
			t.Errorf("%s: passed = %v при score %.2f и пороге %.2f", sym, r.Passed, r.Score, cfg.Composite.MinScore)
		}
	}

	cfg.Composite.MinScore = 101
	for sym, r := range run(t, NewAnalyzer(cfg)) {
		if r.Passed {
			t.Errorf("%s: скоринг %.2f не может пройти порог 101", sym, r.Score)
		}
	}
}

func TestSafely(t *testing.T) {
	if err := safely("breakout", func() error { return nil }); err != nil {
		t.Errorf("err = %v", err)
	}

	want := errors.New("boom")
	if err := safely("breakout", func() error { return want }); !errors.Is(err, want) {
		t.Errorf("ошибка анализатора потеряна: %v", err)
	}

	err := safely("structure", func() error {
		var points []models.StructurePoint
		_ = points[3]
		return nil
	})
	if err == nil || !strings.Contains(err.Error(), "structure") {
		t.Errorf("паника не превращена в ошибку: %v", err)
	}
}

func TestAnalyze_BrokenSeriesIsError(t *testing.T) {
	series := zigzag("BROKEN", 0.5, 120)
	series.Candles[110] = nil

	_, err := NewAnalyzer(config.Default().Analysis).Analyze(series)
	if err == nil {
		t.Fatal("паника анализатора должна возвращаться ошибкой")
	}
}
