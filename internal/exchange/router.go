package exchange

import (
	"context"
	"fmt"
	"strings"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// CandleSource источник исторических свечей
type CandleSource interface {
	GetCandles(ctx context.Context, symbol, exchange string, lookback int) ([]*models.Candle, error)
}

// Router выбирает источник свечей по бирже
type Router struct {
	sources map[string]CandleSource
}

// NewRouter создает пустой маршрутизатор
func NewRouter() *Router {
	return &Router{
		sources: make(map[string]CandleSource),
	}
}

// NewDefaultRouter подключает Binance для криптовалют и Yahoo для бирж из списка суффиксов
func NewDefaultRouter(cfg *config.Config) *Router {
	r := NewRouter()
	r.Register("BINANCE", NewBinanceClient(cfg.Binance, cfg.Screening.Interval))
	yahoo := NewYahooClient(cfg.Yahoo, cfg.Screening.Interval)
	for exchange := range cfg.Yahoo.Suffixes {
		r.Register(exchange, yahoo)
	}
	return r
}

// Register назначает источник для биржи
func (r *Router) Register(exchange string, source CandleSource) {
	r.sources[strings.ToUpper(exchange)] = source
}

// Exchanges возвращает зарегистрированные биржи
func (r *Router) Exchanges() []string {
	out := make([]string, 0, len(r.sources))
	for name := range r.sources {
		out = append(out, name)
	}
	return out
}

// GetCandles перенаправляет запрос источнику биржи
func (r *Router) GetCandles(ctx context.Context, symbol, exchange string, lookback int) ([]*models.Candle, error) {
	source, ok := r.sources[strings.ToUpper(exchange)]
	if !ok {
		return nil, fmt.Errorf("%w: биржа %q не поддерживается", models.ErrFetch, exchange)
	}
	return source.GetCandles(ctx, symbol, exchange, lookback)
}
