package pattern

import (
	"math"
	"sort"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// Detector распознает свечные паттерны
type Detector struct {
	config config.PatternConfig
}

// NewDetector создает новый детектор паттернов
func NewDetector(cfg config.PatternConfig) *Detector {
	return &Detector{
		config: cfg,
	}
}

// Detect возвращает все паттерны, заканчивающиеся на свече i.
// Паттерны, окно которых не помещается в историю, не рассматриваются.
func (d *Detector) Detect(series *models.Series, i int) []models.PatternMatch {
	if i < 0 || i >= series.Len() {
		return nil
	}

	var matches []models.PatternMatch
	matches = append(matches, d.detectSingle(series, i)...)
	if i >= 1 {
		matches = append(matches, d.detectDouble(series, i)...)
	}
	if i >= 2 {
		matches = append(matches, d.detectTriple(series, i)...)
	}
	return matches
}

// Latest возвращает паттерны на последней свече серии
func (d *Detector) Latest(series *models.Series) []models.PatternMatch {
	return d.Detect(series, series.Len()-1)
}

// Scan возвращает паттерны для всех свечей начиная с from
func (d *Detector) Scan(series *models.Series, from int) []models.PatternMatch {
	if from < 0 {
		from = 0
	}
	var matches []models.PatternMatch
	for i := from; i < series.Len(); i++ {
		matches = append(matches, d.Detect(series, i)...)
	}
	return matches
}

// detectSingle проверяет паттерны из одной свечи
func (d *Detector) detectSingle(series *models.Series, i int) []models.PatternMatch {
	c := series.Candles[i]
	rng := c.Range()
	if rng <= 0 {
		// Вырожденная свеча без диапазона
		return nil
	}

	body := c.Body()
	upper := c.UpperShadow()
	lower := c.LowerShadow()
	cfg := d.config

	var matches []models.PatternMatch
	add := func(kind models.PatternKind, polarity models.Polarity) {
		matches = append(matches, d.match(series, kind, i, i, polarity))
	}

	// Семейство доджи
	if body <= cfg.DojiBodyRatio*rng {
		switch {
		case upper <= cfg.SmallShadowRatio*rng && lower > cfg.ShadowBodyRatio*body:
			add(DragonflyDoji, models.Bullish)
		case lower <= cfg.SmallShadowRatio*rng && upper > cfg.ShadowBodyRatio*body:
			add(GravestoneDoji, models.Bearish)
		case upper > cfg.LongShadowRatio*rng && lower > cfg.LongShadowRatio*rng:
			add(LongLeggedDoji, models.Neutral)
		default:
			add(Doji, models.Neutral)
		}
	}

	// Молот и повешенный различаются предшествующим трендом
	trend := d.priorTrend(series, i)
	if body > 0 && lower >= cfg.ShadowBodyRatio*body && upper <= cfg.SmallShadowRatio*rng {
		if trend == models.Bullish {
			add(HangingMan, models.Bearish)
		} else {
			add(Hammer, models.Bullish)
		}
	}
	if body > 0 && upper >= cfg.ShadowBodyRatio*body && lower <= cfg.SmallShadowRatio*rng {
		if trend == models.Bullish {
			add(ShootingStar, models.Bearish)
		} else {
			add(InvertedHammer, models.Bullish)
		}
	}

	if body >= cfg.MarubozuBodyRatio*rng {
		if c.IsBullish() {
			add(Marubozu, models.Bullish)
		} else {
			add(Marubozu, models.Bearish)
		}
	}

	if body > cfg.DojiBodyRatio*rng && body <= cfg.SpinningTopRatio*rng && upper > body && lower > body {
		add(SpinningTop, models.Neutral)
	}

	return matches
}

// detectDouble проверяет паттерны из двух свечей
func (d *Detector) detectDouble(series *models.Series, i int) []models.PatternMatch {
	prev := series.Candles[i-1]
	cur := series.Candles[i]

	var matches []models.PatternMatch
	add := func(kind models.PatternKind, polarity models.Polarity) {
		matches = append(matches, d.match(series, kind, i-1, i, polarity))
	}

	if isBullishEngulfing(cur, prev) {
		add(BullishEngulfing, models.Bullish)
	}
	if isBearishEngulfing(cur, prev) {
		add(BearishEngulfing, models.Bearish)
	}

	bullHarami := isBullishHarami(cur, prev)
	bearHarami := isBearishHarami(cur, prev)
	if bullHarami {
		add(BullishHarami, models.Bullish)
	}
	if bearHarami {
		add(BearishHarami, models.Bearish)
	}
	if (bullHarami || bearHarami) && cur.Range() > 0 && cur.Body() <= d.config.DojiBodyRatio*cur.Range() {
		if bullHarami {
			add(HaramiCross, models.Bullish)
		} else {
			add(HaramiCross, models.Bearish)
		}
	}

	if prev.IsBearish() && cur.IsBullish() &&
		cur.Open < prev.Low && cur.Close > prev.Close+prev.Body()/2 {
		add(Piercing, models.Bullish)
	}
	if prev.IsBullish() && cur.IsBearish() &&
		cur.Open > prev.High && cur.Close < prev.Close-prev.Body()/2 {
		add(DarkCloudCover, models.Bearish)
	}

	tol := d.config.TweezerTolerance
	if prev.IsBullish() && cur.IsBearish() && math.Abs(cur.High-prev.High) <= tol*cur.High {
		add(TweezerTop, models.Bearish)
	}
	if prev.IsBearish() && cur.IsBullish() && math.Abs(cur.Low-prev.Low) <= tol*cur.Low {
		add(TweezerBottom, models.Bullish)
	}

	return matches
}

// detectTriple проверяет паттерны из трех свечей
func (d *Detector) detectTriple(series *models.Series, i int) []models.PatternMatch {
	first := series.Candles[i-2]
	second := series.Candles[i-1]
	third := series.Candles[i]

	var matches []models.PatternMatch
	add := func(kind models.PatternKind, polarity models.Polarity) {
		matches = append(matches, d.match(series, kind, i-2, i, polarity))
	}

	star := d.config.StarBodyRatio
	if first.IsBearish() && second.Body() < star*first.Body() &&
		third.IsBullish() && third.Close > (first.Open+first.Close)/2 {
		add(MorningStar, models.Bullish)
	}
	if first.IsBullish() && second.Body() < star*first.Body() &&
		third.IsBearish() && third.Close < (first.Open+first.Close)/2 {
		add(EveningStar, models.Bearish)
	}

	if first.IsBullish() && second.IsBullish() && third.IsBullish() &&
		second.Open > first.Open && third.Open > second.Open &&
		second.Close > first.Close && third.Close > second.Close {
		add(ThreeWhiteSoldiers, models.Bullish)
	}
	if first.IsBearish() && second.IsBearish() && third.IsBearish() &&
		second.Open < first.Open && third.Open < second.Open &&
		second.Close < first.Close && third.Close < second.Close {
		add(ThreeBlackCrows, models.Bearish)
	}

	if isBullishHarami(second, first) && third.IsBullish() && third.Close > second.High {
		add(ThreeInsideUp, models.Bullish)
	}
	if isBearishHarami(second, first) && third.IsBearish() && third.Close < second.Low {
		add(ThreeInsideDown, models.Bearish)
	}
	if isBullishEngulfing(second, first) && third.IsBullish() && third.Close > second.High {
		add(ThreeOutsideUp, models.Bullish)
	}
	if isBearishEngulfing(second, first) && third.IsBearish() && third.Close < second.Low {
		add(ThreeOutsideDown, models.Bearish)
	}

	return matches
}

func isBullishEngulfing(cur, prev *models.Candle) bool {
	return prev.IsBearish() && cur.IsBullish() && cur.Open < prev.Close && cur.Close > prev.Open
}

func isBearishEngulfing(cur, prev *models.Candle) bool {
	return prev.IsBullish() && cur.IsBearish() && cur.Open > prev.Close && cur.Close < prev.Open
}

func isBullishHarami(cur, prev *models.Candle) bool {
	return prev.IsBearish() && cur.IsBullish() && cur.High < prev.Open && cur.Low > prev.Close
}

func isBearishHarami(cur, prev *models.Candle) bool {
	return prev.IsBullish() && cur.IsBearish() && cur.High < prev.Close && cur.Low > prev.Open
}

// priorTrend определяет направление закрытий за TrendLookback свечей до i
func (d *Detector) priorTrend(series *models.Series, i int) models.Polarity {
	lookback := d.config.TrendLookback
	if lookback < 1 || i < lookback {
		return models.Neutral
	}
	ref := series.Candles[i-lookback].Close
	last := series.Candles[i-1].Close
	switch {
	case last > ref:
		return models.Bullish
	case last < ref:
		return models.Bearish
	}
	return models.Neutral
}

// match собирает совпадение и считает силу паттерна
func (d *Detector) match(series *models.Series, kind models.PatternKind, start, end int, polarity models.Polarity) models.PatternMatch {
	return models.PatternMatch{
		Kind:     kind,
		Start:    start,
		End:      end,
		Strength: strength(series, start, end, polarity),
		Polarity: polarity,
	}
}

// strength монотонно растет с долей тела, асимметрией теней и подтверждением
// следующей свечой. Результат в диапазоне [0, 100].
func strength(series *models.Series, start, end int, polarity models.Polarity) float64 {
	last := series.Candles[end]
	window := end - start + 1

	score := 20 + 10*float64(window)
	if rng := last.Range(); rng > 0 {
		score += 25 * last.Body() / rng
		score += 15 * math.Abs(last.UpperShadow()-last.LowerShadow()) / rng
	}

	if end+1 < series.Len() {
		hi, lo := series.Candles[start].High, series.Candles[start].Low
		for _, c := range series.Candles[start : end+1] {
			hi = math.Max(hi, c.High)
			lo = math.Min(lo, c.Low)
		}
		next := series.Candles[end+1]
		var confirmed bool
		switch polarity {
		case models.Bullish:
			confirmed = next.Close > hi
		case models.Bearish:
			confirmed = next.Close < lo
		default:
			confirmed = next.Close > hi || next.Close < lo
		}
		if confirmed {
			score += 20
		}
	}

	return math.Max(0, math.Min(100, score))
}

func polarityOrder(p models.Polarity) int {
	switch p {
	case models.Bullish:
		return 0
	case models.Bearish:
		return 1
	}
	return 2
}

// Rank упорядочивает совпадения: сила, затем многосвечные выше одиночных,
// затем бычьи перед медвежьими. Исходный срез не изменяется.
func Rank(matches []models.PatternMatch) []models.PatternMatch {
	ranked := make([]models.PatternMatch, len(matches))
	copy(ranked, matches)
	sort.SliceStable(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.Strength != b.Strength {
			return a.Strength > b.Strength
		}
		if a.Window() != b.Window() {
			return a.Window() > b.Window()
		}
		if pa, pb := polarityOrder(a.Polarity), polarityOrder(b.Polarity); pa != pb {
			return pa < pb
		}
		if a.End != b.End {
			return a.End > b.End
		}
		return a.Kind < b.Kind
	})
	return ranked
}

// Best выбирает главный паттерн для отображения
func Best(matches []models.PatternMatch) (models.PatternMatch, bool) {
	if len(matches) == 0 {
		return models.PatternMatch{}, false
	}
	return Rank(matches)[0], true
}

// Top возвращает n лучших паттернов
func Top(matches []models.PatternMatch, n int) []models.PatternMatch {
	ranked := Rank(matches)
	if n >= 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}
