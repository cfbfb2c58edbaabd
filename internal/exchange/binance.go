package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/adshao/go-binance/v2"
	"github.com/shopspring/decimal"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// binanceMaxLimit максимальное число свечей в одном запросе klines
const binanceMaxLimit = 1000

// BinanceClient загружает дневные свечи спотового рынка Binance
type BinanceClient struct {
	spot     *binance.Client
	interval string
}

// NewBinanceClient создает новый клиент Binance
func NewBinanceClient(cfg config.BinanceConfig, interval string) *BinanceClient {
	spotClient := binance.NewClient(cfg.APIKey, cfg.APISecret)

	switch {
	case cfg.BaseURL != "":
		spotClient.BaseURL = cfg.BaseURL
	case cfg.Testnet:
		spotClient.BaseURL = "https://testnet.binance.vision"
	}

	return &BinanceClient{
		spot:     spotClient,
		interval: interval,
	}
}

// GetCandles получает последние lookback свечей символа
func (c *BinanceClient) GetCandles(ctx context.Context, symbol, exchange string, lookback int) ([]*models.Candle, error) {
	limit := min(max(lookback, 1), binanceMaxLimit)

	klines, err := c.spot.NewKlinesService().
		Symbol(symbol).
		Interval(c.interval).
		Limit(limit).
		Do(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: ошибка получения свечей %s: %w", models.ErrFetch, symbol, err)
	}

	candles := make([]*models.Candle, 0, len(klines))
	for _, k := range klines {
		values, err := parseDecimals(k.Open, k.High, k.Low, k.Close, k.Volume)
		if err != nil {
			return nil, fmt.Errorf("%w: свеча %s: %w", models.ErrFetch, symbol, err)
		}
		candles = append(candles, &models.Candle{
			Symbol:    symbol,
			Interval:  c.interval,
			OpenTime:  time.UnixMilli(k.OpenTime).UTC(),
			Open:      values[0],
			High:      values[1],
			Low:       values[2],
			Close:     values[3],
			Volume:    values[4],
			CloseTime: time.UnixMilli(k.CloseTime).UTC(),
		})
	}

	return candles, nil
}

// parseDecimals разбирает десятичные строки ответа биржи
func parseDecimals(raw ...string) ([]float64, error) {
	out := make([]float64, len(raw))
	for i, s := range raw {
		d, err := decimal.NewFromString(s)
		if err != nil {
			return nil, fmt.Errorf("некорректное число %q: %w", s, err)
		}
		out[i] = d.InexactFloat64()
	}
	return out, nil
}
