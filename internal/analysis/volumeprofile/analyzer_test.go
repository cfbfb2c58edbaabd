package volumeprofile

import (
	"errors"
	"math"
	"testing"
	"time"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

func series(bars ...[5]float64) *models.Series {
	startTime := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	candles := make([]*models.Candle, len(bars))
	for i, b := range bars {
		candles[i] = &models.Candle{
			OpenTime: startTime.Add(time.Duration(i) * 24 * time.Hour),
			Open:     b[0],
			High:     b[1],
			Low:      b[2],
			Close:    b[3],
			Volume:   b[4],
		}
	}
	return models.NewSeries("TEST", "BSE", candles)
}

func analyzer(buckets int) *Analyzer {
	cfg := config.Default().Analysis.VolumeProfile
	cfg.Buckets = buckets
	return NewAnalyzer(cfg)
}

func sumNodes(p *models.VolumeProfile) float64 {
	total := 0.0
	for _, n := range p.Nodes {
		total += n.Volume
	}
	return total
}

func TestAnalyze_VolumeIsPreserved(t *testing.T) {
	s := series(
		[5]float64{100, 103.7, 99.1, 102, 1500},
		[5]float64{102, 102, 102, 102, 700},
		[5]float64{102, 108.3, 101.9, 107, 3200},
		[5]float64{107, 107.5, 95.2, 96, 4100},
		[5]float64{96, 99.9, 95.2, 99, 900},
	)
	for _, buckets := range []int{1, 7, 50, 333} {
		p, err := analyzer(buckets).Analyze(s)
		if err != nil {
			t.Fatalf("Analyze(%d): %v", buckets, err)
		}
		if len(p.Nodes) != buckets {
			t.Errorf("buckets=%d: получено %d узлов", buckets, len(p.Nodes))
		}
		if got := sumNodes(p); math.Abs(got-10400) > 1e-6 {
			t.Errorf("buckets=%d: сумма объемов %v, ожидалось 10400", buckets, got)
		}
		if p.TotalVolume != 10400 {
			t.Errorf("total = %v", p.TotalVolume)
		}
		for _, n := range p.Nodes {
			if n.Volume > p.POC.Volume {
				t.Errorf("узел %v объемнее POC %v", n, p.POC)
			}
		}
	}
}

func TestAnalyze_InstitutionalNode(t *testing.T) {
	s := series(
		[5]float64{100, 110, 100, 105, 1000},
		[5]float64{105, 110, 100, 101, 1000},
		[5]float64{104.4, 104.8, 104.2, 104.6, 10000},
		[5]float64{104.6, 104.8, 104.2, 104.3, 10000},
		[5]float64{104.3, 104.8, 104.2, 104.5, 10000},
	)
	p, err := analyzer(10).Analyze(s)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if p.POC.Price != 104.5 {
		t.Errorf("POC = %v, ожидалось 104.5", p.POC.Price)
	}
	if p.POC.Rank != 1 {
		t.Errorf("rank POC = %d", p.POC.Rank)
	}
	if math.Abs(p.POC.Volume-30200) > 1e-6 {
		t.Errorf("объем POC = %v, ожидалось 30200", p.POC.Volume)
	}
	if len(p.Institutional) != 1 || p.Institutional[0].Price != 104.5 {
		t.Errorf("institutional = %+v", p.Institutional)
	}
	if p.NearbyNodes != 1 {
		t.Errorf("nearby = %d, ожидалось 1", p.NearbyNodes)
	}
	if len(p.HighVolume) != 0 {
		t.Errorf("high volume = %+v", p.HighVolume)
	}
}

func TestAnalyze_BroadDistribution(t *testing.T) {
	var bars [][5]float64
	for i := 0; i < 5; i++ {
		bars = append(bars, [5]float64{105, 110, 100, 105, 1000})
	}
	p, err := analyzer(10).Analyze(series(bars...))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(p.Institutional) != 0 {
		t.Errorf("равномерный профиль не должен давать институциональных узлов: %+v", p.Institutional)
	}
	if p.POC.Price != 100.5 {
		t.Errorf("при равных объемах POC должен быть нижней корзиной, получено %v", p.POC.Price)
	}
	if p.NearbyNodes != 0 {
		t.Errorf("nearby = %d", p.NearbyNodes)
	}
}

func TestAnalyze_FlatPrice(t *testing.T) {
	p, err := analyzer(50).Analyze(series(
		[5]float64{100, 100, 100, 100, 300},
		[5]float64{100, 100, 100, 100, 200},
	))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(p.Nodes) != 1 || p.POC.Volume != 500 || p.POC.Price != 100 {
		t.Errorf("profile = %+v", p)
	}
}

func TestAnalyze_BucketWidth(t *testing.T) {
	cfg := config.Default().Analysis.VolumeProfile
	cfg.Buckets = 0
	cfg.BucketWidth = 2.5
	p, err := NewAnalyzer(cfg).Analyze(series([5]float64{105, 110, 100, 105, 1000}))
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(p.Nodes) != 4 {
		t.Errorf("узлов %d, ожидалось 4", len(p.Nodes))
	}
}

func TestAnalyze_Empty(t *testing.T) {
	if _, err := analyzer(10).Analyze(models.NewSeries("EMPTY", "NSE", nil)); !errors.Is(err, models.ErrInsufficientData) {
		t.Errorf("err = %v", err)
	}
}
