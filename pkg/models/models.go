package models

import (
	"fmt"
	"math"
	"time"
)

// Candle представляет свечу
type Candle struct {
	Symbol    string    `json:"symbol"`
	Interval  string    `json:"interval"`
	OpenTime  time.Time `json:"open_time"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	Volume    float64   `json:"volume"`
	CloseTime time.Time `json:"close_time"`
}

// Body возвращает размер тела свечи
func (c *Candle) Body() float64 {
	if c.Close > c.Open {
		return c.Close - c.Open
	}
	return c.Open - c.Close
}

// Range возвращает полный диапазон свечи
func (c *Candle) Range() float64 {
	return c.High - c.Low
}

// UpperShadow возвращает длину верхней тени
func (c *Candle) UpperShadow() float64 {
	if c.Close > c.Open {
		return c.High - c.Close
	}
	return c.High - c.Open
}

// LowerShadow возвращает длину нижней тени
func (c *Candle) LowerShadow() float64 {
	if c.Close < c.Open {
		return c.Close - c.Low
	}
	return c.Open - c.Low
}

func (c *Candle) IsBullish() bool { return c.Close > c.Open }
func (c *Candle) IsBearish() bool { return c.Close < c.Open }

// Validate проверяет соотношения OHLCV
func (c *Candle) Validate() error {
	for _, v := range []float64{c.Open, c.High, c.Low, c.Close, c.Volume} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("нечисловое значение свечи: o=%v h=%v l=%v c=%v v=%v", c.Open, c.High, c.Low, c.Close, c.Volume)
		}
	}
	if c.Volume < 0 {
		return fmt.Errorf("отрицательный объем %.4f", c.Volume)
	}
	hiBody, loBody := c.Open, c.Close
	if c.Close > c.Open {
		hiBody, loBody = c.Close, c.Open
	}
	if c.High < hiBody || c.Low > loBody {
		return fmt.Errorf("нарушены границы свечи: o=%.4f h=%.4f l=%.4f c=%.4f", c.Open, c.High, c.Low, c.Close)
	}
	return nil
}

// Series упорядоченная история свечей одного символа
type Series struct {
	Symbol   string    `json:"symbol"`
	Exchange string    `json:"exchange"`
	Candles  []*Candle `json:"candles"`
}

// NewSeries создает серию из свечей
func NewSeries(symbol, exchange string, candles []*Candle) *Series {
	return &Series{Symbol: symbol, Exchange: exchange, Candles: candles}
}

// Len возвращает количество свечей
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Candles)
}

// Last возвращает последнюю свечу или nil
func (s *Series) Last() *Candle {
	if s.Len() == 0 {
		return nil
	}
	return s.Candles[len(s.Candles)-1]
}

// Closes возвращает цены закрытия
func (s *Series) Closes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Close
	}
	return out
}

// Highs возвращает максимумы
func (s *Series) Highs() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.High
	}
	return out
}

// Lows возвращает минимумы
func (s *Series) Lows() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Low
	}
	return out
}

// Volumes возвращает объемы
func (s *Series) Volumes() []float64 {
	out := make([]float64, len(s.Candles))
	for i, c := range s.Candles {
		out[i] = c.Volume
	}
	return out
}

// Tail возвращает серию из последних n свечей (без копирования свечей)
func (s *Series) Tail(n int) *Series {
	if n >= s.Len() {
		return s
	}
	return &Series{Symbol: s.Symbol, Exchange: s.Exchange, Candles: s.Candles[len(s.Candles)-n:]}
}

// Validate проверяет свечи и строгий рост временных меток
func (s *Series) Validate() error {
	for i, c := range s.Candles {
		if c == nil {
			return fmt.Errorf("пустая свеча на позиции %d", i)
		}
		if err := c.Validate(); err != nil {
			return fmt.Errorf("свеча %d: %w", i, err)
		}
		if i > 0 && !c.OpenTime.After(s.Candles[i-1].OpenTime) {
			return fmt.Errorf("временные метки не возрастают на позиции %d", i)
		}
	}
	return nil
}
