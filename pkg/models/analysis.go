package models

// Polarity направленность паттерна или сигнала
type Polarity string

const (
	Bullish Polarity = "bullish"
	Bearish Polarity = "bearish"
	Neutral Polarity = "neutral"
)

// Sign возвращает +1 для бычьей, -1 для медвежьей и 0 для нейтральной направленности
func (p Polarity) Sign() float64 {
	switch p {
	case Bullish:
		return 1
	case Bearish:
		return -1
	}
	return 0
}

// PatternKind тип свечного паттерна
type PatternKind string

// PatternMatch найденный паттерн, заканчивающийся на свече End
type PatternMatch struct {
	Kind     PatternKind `json:"kind"`
	Start    int         `json:"start"`
	End      int         `json:"end"`
	Strength float64     `json:"strength"`
	Polarity Polarity    `json:"polarity"`
}

// Window количество свечей паттерна
func (m PatternMatch) Window() int {
	return m.End - m.Start + 1
}

// BreakoutState классификация пробоя
type BreakoutState string

const (
	BreakoutNone               BreakoutState = "neutral"
	BreakoutBullish            BreakoutState = "bullish_breakout"
	BreakoutBullishUnconfirmed BreakoutState = "bullish_unconfirmed"
	BreakoutBearish            BreakoutState = "bearish_breakdown"
	BreakoutBearishUnconfirmed BreakoutState = "bearish_unconfirmed"
)

// Breakout результат анализа пробоя по последней свече
type Breakout struct {
	State       BreakoutState  `json:"state"`
	Direction   Polarity       `json:"direction"`
	Confirmed   bool           `json:"confirmed"`
	Resistance  float64        `json:"resistance"`
	Support     float64        `json:"support"`
	Close       float64        `json:"close"`
	Volume      float64        `json:"volume"`
	AvgVolume   float64        `json:"avg_volume"`
	VolumeRatio float64        `json:"volume_ratio"`
	Penetration float64        `json:"penetration_pct"`
	Strength    float64        `json:"strength"`
	Evidence    []PatternMatch `json:"evidence"`
	BullishHits int            `json:"bullish_patterns"`
	BearishHits int            `json:"bearish_patterns"`
}

// VolumeNode уровень объемного профиля
type VolumeNode struct {
	Price     float64 `json:"price"`
	PriceLow  float64 `json:"price_low"`
	PriceHigh float64 `json:"price_high"`
	Volume    float64 `json:"volume"`
	Rank      int     `json:"rank"`
}

// VolumeProfile распределение объема по ценовым уровням
type VolumeProfile struct {
	Nodes         []VolumeNode `json:"nodes"`
	POC           VolumeNode   `json:"poc"`
	HighVolume    []VolumeNode `json:"high_volume_nodes"`
	Institutional []VolumeNode `json:"institutional_nodes"`
	BucketWidth   float64      `json:"bucket_width"`
	MeanVolume    float64      `json:"mean_volume"`
	TotalVolume   float64      `json:"total_volume"`
	LastClose     float64      `json:"last_close"`
	DistanceToPOC float64      `json:"distance_to_poc_pct"`
	NearbyNodes   int          `json:"nearby_nodes"`
}

// SwingKind тип точки разворота
type SwingKind string

const (
	SwingHigh SwingKind = "swing_high"
	SwingLow  SwingKind = "swing_low"
)

// StructureLabel метка структуры рынка
type StructureLabel string

const (
	LabelNone StructureLabel = ""
	LabelHH   StructureLabel = "HH"
	LabelHL   StructureLabel = "HL"
	LabelLH   StructureLabel = "LH"
	LabelLL   StructureLabel = "LL"
)

// Direction направление метки: HH и HL восходящие, LH и LL нисходящие
func (l StructureLabel) Direction() Polarity {
	switch l {
	case LabelHH, LabelHL:
		return Bullish
	case LabelLH, LabelLL:
		return Bearish
	}
	return Neutral
}

// StructurePoint точка разворота рынка
type StructurePoint struct {
	Index int            `json:"index"`
	Price float64        `json:"price"`
	Kind  SwingKind      `json:"kind"`
	Label StructureLabel `json:"label"`
}

// Regime режим рынка
type Regime string

const (
	RegimeTrendingUp   Regime = "trending_up"
	RegimeTrendingDown Regime = "trending_down"
	RegimeRanging      Regime = "ranging"
	RegimeInsufficient Regime = "insufficient_data"
)

// Trend грубая оценка тренда по двум последним максимумам и минимумам
type Trend string

const (
	TrendUp        Trend = "uptrend"
	TrendDown      Trend = "downtrend"
	TrendSideways  Trend = "sideways"
	TrendUndefined Trend = "undefined"
)

// MarketStructure результат анализа структуры рынка
type MarketStructure struct {
	Points    []StructurePoint `json:"points"`
	Direction Polarity         `json:"direction"`
	RunLength int              `json:"run_length"`
	Strength  float64          `json:"strength"`
	Regime    Regime           `json:"regime"`
	Trend     Trend            `json:"trend"`
}

// Insufficient сообщает, что свечей не хватило для поиска разворотов
func (m *MarketStructure) Insufficient() bool {
	return m == nil || m.Regime == RegimeInsufficient
}

// Movement результат кастомного скрининга движения цены
type Movement struct {
	Duration      int      `json:"duration"`
	TargetPercent float64  `json:"target_percent"`
	Direction     Polarity `json:"direction"`
	StartPrice    float64  `json:"start_price"`
	EndPrice      float64  `json:"end_price"`
	ChangePercent float64  `json:"change_percent"`
	Passed        bool     `json:"passed"`
	VolumeTrend   float64  `json:"volume_trend"`
	Volatility    float64  `json:"volatility"`
	Strength      float64  `json:"strength"`
}
