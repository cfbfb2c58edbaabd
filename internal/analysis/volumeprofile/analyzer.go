package volumeprofile

import (
	"fmt"
	"math"
	"sort"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// Analyzer строит объемный профиль серии
type Analyzer struct {
	config config.VolumeProfileConfig
}

// NewAnalyzer создает новый анализатор объемного профиля
func NewAnalyzer(cfg config.VolumeProfileConfig) *Analyzer {
	return &Analyzer{
		config: cfg,
	}
}

// Analyze распределяет объем свечей по ценовым корзинам.
// Объем свечи делится между корзинами пропорционально перекрытию ее диапазона [low, high].
func (a *Analyzer) Analyze(series *models.Series) (*models.VolumeProfile, error) {
	if series.Len() == 0 {
		return nil, fmt.Errorf("%w: пустая серия для объемного профиля", models.ErrInsufficientData)
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	for _, c := range series.Candles {
		lo = math.Min(lo, c.Low)
		hi = math.Max(hi, c.High)
	}

	count, width := a.buckets(lo, hi)
	volumes := make([]float64, count)
	total := 0.0

	index := func(price float64) int {
		if width == 0 {
			return 0
		}
		i := int((price - lo) / width)
		return max(0, min(count-1, i))
	}

	for _, c := range series.Candles {
		total += c.Volume
		rng := c.High - c.Low
		if rng <= 0 || width == 0 {
			volumes[index(c.Close)] += c.Volume
			continue
		}

		first, lastIdx := index(c.Low), index(c.High)
		overlaps := make([]float64, lastIdx-first+1)
		sum := 0.0
		for b := first; b <= lastIdx; b++ {
			bLow := lo + float64(b)*width
			bHigh := bLow + width
			if b == count-1 {
				bHigh = hi
			}
			overlap := math.Min(c.High, bHigh) - math.Max(c.Low, bLow)
			if overlap > 0 {
				overlaps[b-first] = overlap
				sum += overlap
			}
		}
		if sum <= 0 {
			volumes[index(c.Close)] += c.Volume
			continue
		}
		for k, overlap := range overlaps {
			volumes[first+k] += c.Volume * overlap / sum
		}
	}

	nodes := make([]models.VolumeNode, count)
	for b := range nodes {
		pLow := lo + float64(b)*width
		pHigh := pLow + width
		if b == count-1 {
			pHigh = hi
		}
		nodes[b] = models.VolumeNode{
			Price:     (pLow + pHigh) / 2,
			PriceLow:  pLow,
			PriceHigh: pHigh,
			Volume:    volumes[b],
		}
	}
	rankNodes(nodes)

	profile := &models.VolumeProfile{
		Nodes:       nodes,
		BucketWidth: width,
		MeanVolume:  total / float64(count),
		TotalVolume: total,
		LastClose:   series.Last().Close,
	}

	poc := 0
	for b := range nodes {
		if nodes[b].Volume > nodes[poc].Volume {
			poc = b
		}
	}
	profile.POC = nodes[poc]
	if profile.POC.Price > 0 {
		profile.DistanceToPOC = (profile.LastClose - profile.POC.Price) / profile.POC.Price * 100
	}

	// Вторичные узлы высокого объема: локальные максимумы выше порога
	threshold := a.config.NodeThreshold * profile.MeanVolume
	candidates := []int{poc}
	for b := range nodes {
		if b == poc || nodes[b].Volume < threshold || nodes[b].Volume == 0 {
			continue
		}
		if b > 0 && nodes[b].Volume < nodes[b-1].Volume {
			continue
		}
		if b < count-1 && nodes[b].Volume < nodes[b+1].Volume {
			continue
		}
		profile.HighVolume = append(profile.HighVolume, nodes[b])
		candidates = append(candidates, b)
	}

	// Институциональная активность: большой объем в узкой ценовой зоне
	for _, b := range candidates {
		node := nodes[b]
		if node.Volume == 0 || node.Volume < a.config.InstitutionalMultiple*profile.MeanVolume {
			continue
		}
		if a.valueAreaSpan(nodes, b, profile.MeanVolume) <= a.config.NarrowRangePct {
			profile.Institutional = append(profile.Institutional, node)
		}
	}

	// Узлы рядом с текущей ценой
	if profile.LastClose > 0 {
		for _, b := range candidates {
			dist := math.Abs(nodes[b].Price-profile.LastClose) / profile.LastClose * 100
			if dist <= a.config.NearbyPct {
				profile.NearbyNodes++
			}
		}
	}

	return profile, nil
}

// buckets возвращает число и ширину корзин для диапазона [lo, hi]
func (a *Analyzer) buckets(lo, hi float64) (int, float64) {
	span := hi - lo
	if span <= 0 {
		return 1, 0
	}
	if a.config.BucketWidth > 0 {
		count := int(math.Ceil(span / a.config.BucketWidth))
		return max(1, count), a.config.BucketWidth
	}
	count := a.config.Buckets
	if count < 1 {
		count = 1
	}
	return count, span / float64(count)
}

// valueAreaSpan возвращает ширину непрерывной зоны вокруг узла с объемом не ниже среднего
// в процентах от цены узла
func (a *Analyzer) valueAreaSpan(nodes []models.VolumeNode, b int, mean float64) float64 {
	left, right := b, b
	for left > 0 && nodes[left-1].Volume >= mean {
		left--
	}
	for right < len(nodes)-1 && nodes[right+1].Volume >= mean {
		right++
	}
	price := nodes[b].Price
	if price <= 0 {
		return math.Inf(1)
	}
	return (nodes[right].PriceHigh - nodes[left].PriceLow) / price * 100
}

// rankNodes проставляет ранг по убыванию объема, при равенстве ниже цена выше ранг
func rankNodes(nodes []models.VolumeNode) {
	order := make([]int, len(nodes))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		return nodes[order[i]].Volume > nodes[order[j]].Volume
	})
	for rank, b := range order {
		nodes[b].Rank = rank + 1
	}
}
