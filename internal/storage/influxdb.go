// internal/storage/influxdb.go
package storage

import (
	"context"
	"fmt"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/pkg/models"
)

// measurement имя измерения со свечами
const measurement = "candles"

// Storage хранилище истории свечей
type Storage interface {
	SaveCandles(ctx context.Context, exchange string, candles []*models.Candle) error
	GetCandles(ctx context.Context, symbol, exchange, interval string, limit int) ([]*models.Candle, error)
	Close()
}

// InfluxDBStorage реализует интерфейс Storage с использованием InfluxDB
type InfluxDBStorage struct {
	client   influxdb2.Client
	queryAPI api.QueryAPI
	writeAPI api.WriteAPIBlocking
	org      string
	bucket   string
}

// NewInfluxDBStorage создает новое хранилище InfluxDB
func NewInfluxDBStorage(ctx context.Context, cfg config.StorageConfig) (*InfluxDBStorage, error) {
	client := influxdb2.NewClient(cfg.URL, cfg.Token)

	// Проверка соединения
	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("ошибка соединения с InfluxDB: %w", err)
	}
	if health == nil || health.Status != "pass" {
		client.Close()
		return nil, fmt.Errorf("InfluxDB не в состоянии 'pass': %+v", health)
	}

	return &InfluxDBStorage{
		client:   client,
		queryAPI: client.QueryAPI(cfg.Organization),
		writeAPI: client.WriteAPIBlocking(cfg.Organization, cfg.Bucket),
		org:      cfg.Organization,
		bucket:   cfg.Bucket,
	}, nil
}

// Close закрывает соединение с базой данных
func (s *InfluxDBStorage) Close() {
	s.client.Close()
}

// SaveCandles сохраняет свечи одной пачкой
func (s *InfluxDBStorage) SaveCandles(ctx context.Context, exchange string, candles []*models.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	points := make([]*write.Point, 0, len(candles))
	for _, candle := range candles {
		points = append(points, candlePoint(exchange, candle))
	}
	if err := s.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("ошибка записи свечей: %w", err)
	}
	return nil
}

// candlePoint создает точку InfluxDB для свечи
func candlePoint(exchange string, candle *models.Candle) *write.Point {
	return influxdb2.NewPoint(
		measurement,
		map[string]string{
			"symbol":   candle.Symbol,
			"exchange": exchange,
			"interval": candle.Interval,
		},
		map[string]interface{}{
			"open":   candle.Open,
			"high":   candle.High,
			"low":    candle.Low,
			"close":  candle.Close,
			"volume": candle.Volume,
		},
		candle.OpenTime,
	)
}

// candleQuery формирует Flux-запрос последних limit свечей
func (s *InfluxDBStorage) candleQuery(symbol, exchange, interval string, limit int) string {
	// Запас по времени на выходные и праздники
	days := int(2*time.Duration(limit)*getIntervalDuration(interval)/(24*time.Hour)) + 7
	return fmt.Sprintf(`
		from(bucket: %q)
			|> range(start: -%dd)
			|> filter(fn: (r) => r._measurement == %q)
			|> filter(fn: (r) => r.symbol == %q)
			|> filter(fn: (r) => r.exchange == %q)
			|> filter(fn: (r) => r.interval == %q)
			|> pivot(rowKey:["_time"], columnKey: ["_field"], valueColumn: "_value")
			|> sort(columns: ["_time"], desc: true)
			|> limit(n: %d)
	`, s.bucket, days, measurement, symbol, exchange, interval, limit)
}

// GetCandles получает последние свечи в порядке возрастания времени
func (s *InfluxDBStorage) GetCandles(ctx context.Context, symbol, exchange, interval string, limit int) ([]*models.Candle, error) {
	result, err := s.queryAPI.Query(ctx, s.candleQuery(symbol, exchange, interval, limit))
	if err != nil {
		return nil, fmt.Errorf("ошибка запроса свечей: %w", err)
	}
	defer result.Close()

	// Обрабатываем результаты
	var candles []*models.Candle
	for result.Next() {
		record := result.Record()

		// Извлекаем поля
		timestamp := record.Time()
		open, _ := record.ValueByKey("open").(float64)
		high, _ := record.ValueByKey("high").(float64)
		low, _ := record.ValueByKey("low").(float64)
		close, _ := record.ValueByKey("close").(float64)
		volume, _ := record.ValueByKey("volume").(float64)

		candles = append(candles, &models.Candle{
			Symbol:    symbol,
			Interval:  interval,
			OpenTime:  timestamp,
			Open:      open,
			High:      high,
			Low:       low,
			Close:     close,
			Volume:    volume,
			CloseTime: timestamp.Add(getIntervalDuration(interval)),
		})
	}

	// Проверяем на ошибки при обработке результатов
	if result.Err() != nil {
		return nil, fmt.Errorf("ошибка при обработке результатов: %w", result.Err())
	}

	// Запрос сортирует по убыванию, анализаторам нужен рост времени
	for i, j := 0, len(candles)-1; i < j; i, j = i+1, j-1 {
		candles[i], candles[j] = candles[j], candles[i]
	}
	return candles, nil
}

// getIntervalDuration конвертирует строковый интервал в duration
func getIntervalDuration(interval string) time.Duration {
	switch interval {
	case "1m":
		return time.Minute
	case "5m":
		return 5 * time.Minute
	case "15m":
		return 15 * time.Minute
	case "30m":
		return 30 * time.Minute
	case "1h":
		return time.Hour
	case "4h":
		return 4 * time.Hour
	case "1d":
		return 24 * time.Hour
	case "1w", "1wk":
		return 7 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
