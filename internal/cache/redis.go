package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/internal/exchange"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

// Client подмножество команд Redis, используемых кэшем
type Client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// NewRedisClient создает клиент Redis и проверяет соединение
func NewRedisClient(ctx context.Context, cfg config.CacheConfig) (*redis.Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с Redis %s: %w", cfg.Addr, err)
	}
	return client, nil
}

// Source кэширует загруженные серии свечей с TTL
type Source struct {
	client   Client
	next     exchange.CandleSource
	prefix   string
	interval string
	ttl      time.Duration
}

// NewSource создает кэширующий источник свечей
func NewSource(client Client, next exchange.CandleSource, cfg config.CacheConfig, interval string) *Source {
	return &Source{
		client:   client,
		next:     next,
		prefix:   cfg.Prefix,
		interval: interval,
		ttl:      time.Duration(cfg.TTLMinutes) * time.Minute,
	}
}

func (s *Source) key(symbol, exchangeName string, lookback int) string {
	return fmt.Sprintf("%scandles:%s:%s:%s:%d", s.prefix, exchangeName, symbol, s.interval, lookback)
}

// GetCandles реализует exchange.CandleSource
func (s *Source) GetCandles(ctx context.Context, symbol, exchangeName string, lookback int) ([]*models.Candle, error) {
	key := s.key(symbol, exchangeName, lookback)

	data, err := s.client.Get(ctx, key).Result()
	switch {
	case err == nil:
		var candles []*models.Candle
		if err := json.Unmarshal([]byte(data), &candles); err == nil {
			logger.Debug("Свечи из кэша", zap.String("key", key), zap.Int("count", len(candles)))
			return candles, nil
		}
		logger.Warn("Поврежденная запись кэша", zap.String("key", key))
	case !errors.Is(err, redis.Nil):
		logger.Warn("Ошибка чтения кэша", zap.String("key", key), zap.Error(err))
	}

	candles, err := s.next.GetCandles(ctx, symbol, exchangeName, lookback)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(candles)
	if err != nil {
		return candles, nil
	}
	if err := s.client.Set(ctx, key, payload, s.ttl).Err(); err != nil {
		logger.Warn("Ошибка записи кэша", zap.String("key", key), zap.Error(err))
	}
	return candles, nil
}
