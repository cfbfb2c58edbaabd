package exchange

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// YahooClient загружает дневные свечи акций через chart API Yahoo Finance
type YahooClient struct {
	client   *http.Client
	baseURL  string
	interval string
	suffixes map[string]string
}

// NewYahooClient создает новый клиент Yahoo Finance
func NewYahooClient(cfg config.YahooConfig, interval string) *YahooClient {
	transport := &http.Transport{}
	if cfg.Proxy != "" {
		if u, err := url.Parse(cfg.Proxy); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &YahooClient{
		client: &http.Client{
			Timeout:   time.Duration(cfg.TimeoutSeconds) * time.Second,
			Transport: transport,
		},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		interval: interval,
		suffixes: cfg.Suffixes,
	}
}

// ticker добавляет к символу суффикс биржи (RELIANCE на NSE -> RELIANCE.NS)
func (c *YahooClient) ticker(symbol, exchange string) string {
	suffix := c.suffixes[strings.ToUpper(exchange)]
	if suffix == "" || strings.HasSuffix(symbol, suffix) {
		return symbol
	}
	return symbol + suffix
}

// chartRange подбирает период запроса с запасом на выходные и праздники
func chartRange(lookback int) string {
	switch {
	case lookback <= 20:
		return "1mo"
	case lookback <= 60:
		return "3mo"
	case lookback <= 120:
		return "6mo"
	case lookback <= 240:
		return "1y"
	case lookback <= 490:
		return "2y"
	case lookback <= 1240:
		return "5y"
	default:
		return "max"
	}
}

// yahooChart структура ответа chart API
type yahooChart struct {
	Chart struct {
		Result []struct {
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Open   []*float64 `json:"open"`
					High   []*float64 `json:"high"`
					Low    []*float64 `json:"low"`
					Close  []*float64 `json:"close"`
					Volume []*float64 `json:"volume"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// GetCandles получает последние lookback свечей символа
func (c *YahooClient) GetCandles(ctx context.Context, symbol, exchange string, lookback int) ([]*models.Candle, error) {
	ticker := c.ticker(symbol, exchange)
	u := fmt.Sprintf("%s/v8/finance/chart/%s?interval=%s&range=%s",
		c.baseURL, url.PathEscape(ticker), c.interval, chartRange(lookback))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", models.ErrFetch, err)
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: запрос %s: %w", models.ErrFetch, ticker, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: чтение ответа %s: %w", models.ErrFetch, ticker, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: %s: статус %d", models.ErrFetch, ticker, resp.StatusCode)
	}

	var chart yahooChart
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, fmt.Errorf("%w: разбор ответа %s: %w", models.ErrFetch, ticker, err)
	}
	if chart.Chart.Error != nil {
		return nil, fmt.Errorf("%w: %s: %s", models.ErrFetch, ticker, chart.Chart.Error.Description)
	}
	if len(chart.Chart.Result) == 0 || len(chart.Chart.Result[0].Indicators.Quote) == 0 {
		return nil, fmt.Errorf("%w: %s: нет данных", models.ErrFetch, ticker)
	}

	result := chart.Chart.Result[0]
	quote := result.Indicators.Quote[0]
	candles := make([]*models.Candle, 0, len(result.Timestamp))

	for i, ts := range result.Timestamp {
		o, h, l, cl := at(quote.Open, i), at(quote.High, i), at(quote.Low, i), at(quote.Close, i)
		if o == nil || h == nil || l == nil || cl == nil {
			// Пустые бары в праздники
			continue
		}
		volume := 0.0
		if v := at(quote.Volume, i); v != nil {
			volume = *v
		}
		candles = append(candles, &models.Candle{
			Symbol:   symbol,
			Interval: c.interval,
			OpenTime: time.Unix(ts, 0).UTC(),
			Open:     *o,
			High:     *h,
			Low:      *l,
			Close:    *cl,
			Volume:   volume,
		})
	}

	sort.Slice(candles, func(i, j int) bool { return candles[i].OpenTime.Before(candles[j].OpenTime) })
	if len(candles) > lookback && lookback > 0 {
		candles = candles[len(candles)-lookback:]
	}
	return candles, nil
}

func at(values []*float64, i int) *float64 {
	if i >= len(values) {
		return nil
	}
	return values[i]
}
