package structure

import (
	"testing"
	"time"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// fromCloses строит свечи с телом от предыдущего закрытия и тенями по 0.5
func fromCloses(closes ...float64) *models.Series {
	startTime := time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]*models.Candle, len(closes))
	for i, c := range closes {
		open := c
		if i > 0 {
			open = closes[i-1]
		}
		hi, lo := max(open, c), min(open, c)
		candles[i] = &models.Candle{
			OpenTime: startTime.Add(time.Duration(i) * 24 * time.Hour),
			Open:     open,
			High:     hi + 0.5,
			Low:      lo - 0.5,
			Close:    c,
			Volume:   100,
		}
	}
	return models.NewSeries("TEST", "NSE", candles)
}

func analyzer(k int) *Analyzer {
	return NewAnalyzer(config.StructureConfig{PivotWidth: k, TrendThreshold: 2})
}

func labels(points []models.StructurePoint) []models.StructureLabel {
	out := make([]models.StructureLabel, len(points))
	for i, p := range points {
		out[i] = p.Label
	}
	return out
}

func TestAnalyze_Regimes(t *testing.T) {
	tests := []struct {
		name   string
		closes []float64
		regime models.Regime
		trend  models.Trend
		run    int
		labels []models.StructureLabel
	}{
		{
			name:   "uptrend",
			closes: []float64{10, 12, 11, 13, 12, 14, 13, 15, 14},
			regime: models.RegimeTrendingUp,
			trend:  models.TrendUp,
			run:    5,
			labels: []models.StructureLabel{"", "", "HH", "HL", "HH", "HL", "HH"},
		},
		{
			name:   "downtrend",
			closes: []float64{20, 18, 19, 17, 18, 16, 17, 15, 16},
			regime: models.RegimeTrendingDown,
			trend:  models.TrendDown,
			run:    5,
			labels: []models.StructureLabel{"", "", "LL", "LH", "LL", "LH", "LL"},
		},
		{
			name:   "expanding range",
			closes: []float64{10, 12, 9, 13, 8, 14, 7},
			regime: models.RegimeRanging,
			trend:  models.TrendSideways,
			run:    1,
			labels: []models.StructureLabel{"", "", "HH", "LL", "HH"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := analyzer(1).Analyze(fromCloses(tt.closes...))
			if res.Regime != tt.regime {
				t.Errorf("regime = %s, ожидалось %s", res.Regime, tt.regime)
			}
			if res.Trend != tt.trend {
				t.Errorf("trend = %s, ожидалось %s", res.Trend, tt.trend)
			}
			if res.RunLength != tt.run {
				t.Errorf("run = %d, ожидалось %d", res.RunLength, tt.run)
			}
			got := labels(res.Points)
			if len(got) != len(tt.labels) {
				t.Fatalf("labels = %v, ожидалось %v", got, tt.labels)
			}
			for i := range got {
				if got[i] != tt.labels[i] {
					t.Errorf("label[%d] = %q, ожидалось %q", i, got[i], tt.labels[i])
				}
			}
		})
	}
}

func TestAnalyze_InsufficientData(t *testing.T) {
	res := analyzer(5).Analyze(fromCloses(1, 2, 3, 4, 5, 6, 7, 8, 9, 10))
	if !res.Insufficient() {
		t.Fatalf("regime = %s, ожидалось insufficient_data", res.Regime)
	}
	if len(res.Points) != 0 || res.Trend != models.TrendUndefined {
		t.Errorf("результат для короткой серии: %+v", res)
	}
}

func TestAnalyze_LabelsFollowPrices(t *testing.T) {
	closes := make([]float64, 200)
	price := 100.0
	for i := range closes {
		price += float64((i*7)%11) - 5
		closes[i] = price
	}
	res := analyzer(3).Analyze(fromCloses(closes...))
	if res.Insufficient() {
		t.Fatal("неожиданная нехватка данных")
	}

	last := map[models.SwingKind]float64{}
	seen := map[models.SwingKind]bool{}
	for i, p := range res.Points {
		if i > 0 && p.Index < res.Points[i-1].Index {
			t.Fatalf("точки не упорядочены по индексу")
		}
		if seen[p.Kind] {
			switch p.Label {
			case models.LabelHH, models.LabelHL:
				if p.Price < last[p.Kind] {
					t.Errorf("%s на %d ниже предыдущей точки %v", p.Label, p.Index, last[p.Kind])
				}
			case models.LabelLH, models.LabelLL:
				if p.Price > last[p.Kind] {
					t.Errorf("%s на %d выше предыдущей точки %v", p.Label, p.Index, last[p.Kind])
				}
			default:
				t.Errorf("точка %d без метки", p.Index)
			}
		} else if p.Label != models.LabelNone {
			t.Errorf("первая точка типа %s получила метку %s", p.Kind, p.Label)
		}
		last[p.Kind] = p.Price
		seen[p.Kind] = true
	}
	if res.Strength < 0 || res.Strength > 100 {
		t.Errorf("strength = %v", res.Strength)
	}
}
