package storage

import (
	"context"
	"time"

	"github.com/skalibog/screener/internal/exchange"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

// Source отдает свечи из хранилища, если история достаточна и свежа,
// иначе загружает их из следующего источника и сохраняет
type Source struct {
	store    Storage
	next     exchange.CandleSource
	interval string
	maxAge   time.Duration
	now      func() time.Time
}

// NewSource создает источник с чтением через хранилище
func NewSource(store Storage, next exchange.CandleSource, interval string, maxAge time.Duration) *Source {
	return &Source{
		store:    store,
		next:     next,
		interval: interval,
		maxAge:   maxAge,
		now:      time.Now,
	}
}

// GetCandles реализует exchange.CandleSource
func (s *Source) GetCandles(ctx context.Context, symbol, exchangeName string, lookback int) ([]*models.Candle, error) {
	stored, err := s.store.GetCandles(ctx, symbol, exchangeName, s.interval, lookback)
	if err != nil {
		logger.Warn("Ошибка чтения свечей из хранилища", zap.String("symbol", symbol), zap.Error(err))
	} else if s.fresh(stored, lookback) {
		logger.Debug("Свечи из хранилища", zap.String("symbol", symbol), zap.Int("count", len(stored)))
		return stored, nil
	}

	candles, err := s.next.GetCandles(ctx, symbol, exchangeName, lookback)
	if err != nil {
		return nil, err
	}

	if err := s.store.SaveCandles(ctx, exchangeName, candles); err != nil {
		logger.Warn("Ошибка сохранения свечей", zap.String("symbol", symbol), zap.Error(err))
	}
	return candles, nil
}

// fresh проверяет длину истории и возраст последней свечи
func (s *Source) fresh(candles []*models.Candle, lookback int) bool {
	if len(candles) == 0 || len(candles) < lookback {
		return false
	}
	last := candles[len(candles)-1]
	return s.now().Sub(last.OpenTime) <= s.maxAge
}
