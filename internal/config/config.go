package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/skalibog/screener/pkg/logger"
	"go.uber.org/zap"
	"gopkg.in/yaml.v2"
)

// Config представляет полную конфигурацию приложения
type Config struct {
	Logging   LoggingConfig       `yaml:"logging"`
	Binance   BinanceConfig       `yaml:"binance"`
	Yahoo     YahooConfig         `yaml:"yahoo"`
	Storage   StorageConfig       `yaml:"storage"`
	Cache     CacheConfig         `yaml:"cache"`
	Screening ScreeningConfig     `yaml:"screening"`
	Universes map[string][]string `yaml:"universes"`
	Analysis  AnalysisConfig      `yaml:"analysis"`
	UI        UIConfig            `yaml:"ui"`
}

// LoggingConfig настройки логирования
type LoggingConfig struct {
	Level    string `yaml:"level"`
	File     string `yaml:"file"`
	JSONFile string `yaml:"json_file"`
	Console  bool   `yaml:"console"`
	Truncate bool   `yaml:"truncate"`
}

// BinanceConfig содержит настройки подключения к Binance
type BinanceConfig struct {
	APIKey    string `yaml:"api_key"`
	APISecret string `yaml:"api_secret"`
	Testnet   bool   `yaml:"testnet"`
	BaseURL   string `yaml:"base_url"`
}

// YahooConfig настройки загрузки свечей акций
type YahooConfig struct {
	BaseURL        string            `yaml:"base_url"`
	Proxy          string            `yaml:"proxy"`
	TimeoutSeconds int               `yaml:"timeout_seconds"`
	Suffixes       map[string]string `yaml:"suffixes"`
}

// StorageConfig настройки хранения истории свечей
type StorageConfig struct {
	Enabled      bool   `yaml:"enabled"`
	URL          string `yaml:"url"`
	Token        string `yaml:"token"`
	Organization string `yaml:"organization"`
	Bucket       string `yaml:"bucket"`
	MaxAgeHours  int    `yaml:"max_age_hours"`
}

// CacheConfig настройки кэша свечей в Redis
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Addr       string `yaml:"addr"`
	Password   string `yaml:"password"`
	DB         int    `yaml:"db"`
	Prefix     string `yaml:"prefix"`
	TTLMinutes int    `yaml:"ttl_minutes"`
}

// ScreeningConfig настройки оркестратора
type ScreeningConfig struct {
	Workers        int    `yaml:"workers"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
	HistoryCandles int    `yaml:"history_candles"`
	Interval       string `yaml:"interval"`
	Schedule       string `yaml:"schedule"`
}

// Timeout возвращает общий дедлайн прогона; ноль означает отсутствие дедлайна
func (c ScreeningConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

// AnalysisConfig содержит настройки аналитических модулей
type AnalysisConfig struct {
	Pattern       PatternConfig       `yaml:"pattern"`
	Breakout      BreakoutConfig      `yaml:"breakout"`
	VolumeProfile VolumeProfileConfig `yaml:"volume_profile"`
	Structure     StructureConfig     `yaml:"structure"`
	Composite     CompositeConfig     `yaml:"composite"`
	Movement      MovementConfig      `yaml:"movement"`
}

// PatternConfig пороги распознавания свечных паттернов
type PatternConfig struct {
	DojiBodyRatio     float64 `yaml:"doji_body_ratio"`
	ShadowBodyRatio   float64 `yaml:"shadow_body_ratio"`
	SmallShadowRatio  float64 `yaml:"small_shadow_ratio"`
	LongShadowRatio   float64 `yaml:"long_shadow_ratio"`
	MarubozuBodyRatio float64 `yaml:"marubozu_body_ratio"`
	SpinningTopRatio  float64 `yaml:"spinning_top_ratio"`
	StarBodyRatio     float64 `yaml:"star_body_ratio"`
	TweezerTolerance  float64 `yaml:"tweezer_tolerance"`
	TrendLookback     int     `yaml:"trend_lookback"`
	TopMatches        int     `yaml:"top_matches"`
}

// BreakoutConfig настройки анализа пробоев
type BreakoutConfig struct {
	Lookback         int     `yaml:"lookback"`
	Margin           float64 `yaml:"margin"`
	VolumePeriod     int     `yaml:"volume_period"`
	VolumeMultiplier float64 `yaml:"volume_multiplier"`
}

// VolumeProfileConfig настройки объемного профиля
type VolumeProfileConfig struct {
	Buckets               int     `yaml:"buckets"`
	BucketWidth           float64 `yaml:"bucket_width"`
	NodeThreshold         float64 `yaml:"node_threshold"`
	InstitutionalMultiple float64 `yaml:"institutional_multiple"`
	NarrowRangePct        float64 `yaml:"narrow_range_pct"`
	NearbyPct             float64 `yaml:"nearby_pct"`
}

// StructureConfig настройки анализа структуры рынка
type StructureConfig struct {
	PivotWidth     int `yaml:"pivot_width"`
	TrendThreshold int `yaml:"trend_threshold"`
}

// CompositeConfig веса мультифакторного скоринга
type CompositeConfig struct {
	BreakoutWeight  float64          `yaml:"breakout_weight"`
	VolumeWeight    float64          `yaml:"volume_weight"`
	StructureWeight float64          `yaml:"structure_weight"`
	RelativeWeight  float64          `yaml:"relative_strength_weight"`
	BreadthWeight   float64          `yaml:"breadth_weight"`
	RSLookback      int              `yaml:"relative_strength_lookback"`
	RSScale         float64          `yaml:"relative_strength_scale"`
	MinScore        float64          `yaml:"min_score"`
	Thresholds      SignalThresholds `yaml:"signal"`
}

// SignalThresholds пороговые значения для рекомендаций
type SignalThresholds struct {
	StrongBuy  float64 `yaml:"threshold_strong_buy"`
	Buy        float64 `yaml:"threshold_buy"`
	Sell       float64 `yaml:"threshold_sell"`
	StrongSell float64 `yaml:"threshold_strong_sell"`
}

// MovementConfig значения по умолчанию для кастомного скрининга
type MovementConfig struct {
	Duration      int     `yaml:"duration"`
	TargetPercent float64 `yaml:"target_percent"`
	Direction     string  `yaml:"direction"`
	MinHistory    int     `yaml:"min_history"`
}

// UIConfig настройки пользовательского интерфейса
type UIConfig struct {
	RefreshRate int  `yaml:"refresh_rate_ms"`
	Interactive bool `yaml:"interactive"`
	MaxRows     int  `yaml:"max_rows"`
}

// Load загружает конфигурацию из файла, .env и переменных окружения
func Load(path string) (*Config, error) {
	// .env необязателен
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		logger.Warn("Ошибка чтения .env", zap.Error(err))
	}

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("ошибка чтения файла конфигурации: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("ошибка разбора файла конфигурации: %w", err)
		}
	}

	cfg.applyEnv()
	cfg.ApplyDefaults()

	logger.Debug("Загружена конфигурация", zap.String("path", path), zap.Int("universes", len(cfg.Universes)))
	return cfg, nil
}

// applyEnv переопределяет секреты и адреса из окружения
func (c *Config) applyEnv() {
	if v := os.Getenv("BINANCE_API_KEY"); v != "" {
		c.Binance.APIKey = v
	}
	if v := os.Getenv("BINANCE_API_SECRET"); v != "" {
		c.Binance.APISecret = v
	}
	if v := os.Getenv("INFLUXDB_TOKEN"); v != "" {
		c.Storage.Token = v
	}
	if v := os.Getenv("REDIS_ADDR"); v != "" {
		c.Cache.Addr = v
	}
	if v := os.Getenv("REDIS_PASSWORD"); v != "" {
		c.Cache.Password = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" && c.Yahoo.Proxy == "" {
		c.Yahoo.Proxy = v
	}
	if v := os.Getenv("SCREENER_WORKERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.Screening.Workers = n
		}
	}
}

// Default возвращает конфигурацию со значениями по умолчанию
func Default() *Config {
	cfg := &Config{}
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults заполняет незаданные параметры
func (c *Config) ApplyDefaults() {
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}

	if c.Yahoo.BaseURL == "" {
		c.Yahoo.BaseURL = "https://query1.finance.yahoo.com"
	}
	if c.Yahoo.TimeoutSeconds == 0 {
		c.Yahoo.TimeoutSeconds = 30
	}
	if c.Yahoo.Suffixes == nil {
		c.Yahoo.Suffixes = map[string]string{"NSE": ".NS", "BSE": ".BO"}
	}

	if c.Storage.MaxAgeHours == 0 {
		c.Storage.MaxAgeHours = 24
	}
	if c.Cache.Prefix == "" {
		c.Cache.Prefix = "screener:"
	}
	if c.Cache.TTLMinutes == 0 {
		c.Cache.TTLMinutes = 60
	}

	if c.Screening.Workers == 0 {
		c.Screening.Workers = 50
	}
	if c.Screening.HistoryCandles == 0 {
		c.Screening.HistoryCandles = 365
	}
	if c.Screening.Interval == "" {
		c.Screening.Interval = "1d"
	}

	p := &c.Analysis.Pattern
	if p.DojiBodyRatio == 0 {
		p.DojiBodyRatio = 0.1
	}
	if p.ShadowBodyRatio == 0 {
		p.ShadowBodyRatio = 2.0
	}
	if p.SmallShadowRatio == 0 {
		p.SmallShadowRatio = 0.1
	}
	if p.LongShadowRatio == 0 {
		p.LongShadowRatio = 0.2
	}
	if p.MarubozuBodyRatio == 0 {
		p.MarubozuBodyRatio = 0.9
	}
	if p.SpinningTopRatio == 0 {
		p.SpinningTopRatio = 0.3
	}
	if p.StarBodyRatio == 0 {
		p.StarBodyRatio = 0.5
	}
	if p.TweezerTolerance == 0 {
		p.TweezerTolerance = 0.002
	}
	if p.TrendLookback == 0 {
		p.TrendLookback = 5
	}
	if p.TopMatches == 0 {
		p.TopMatches = 3
	}

	b := &c.Analysis.Breakout
	if b.Lookback == 0 {
		b.Lookback = 20
	}
	if b.VolumePeriod == 0 {
		b.VolumePeriod = b.Lookback
	}
	if b.VolumeMultiplier == 0 {
		b.VolumeMultiplier = 1.5
	}

	v := &c.Analysis.VolumeProfile
	if v.Buckets == 0 && v.BucketWidth == 0 {
		v.Buckets = 50
	}
	if v.NodeThreshold == 0 {
		v.NodeThreshold = 1.5
	}
	if v.InstitutionalMultiple == 0 {
		v.InstitutionalMultiple = 2.0
	}
	if v.NarrowRangePct == 0 {
		v.NarrowRangePct = 3.0
	}
	if v.NearbyPct == 0 {
		v.NearbyPct = 2.0
	}

	s := &c.Analysis.Structure
	if s.PivotWidth == 0 {
		s.PivotWidth = 5
	}
	if s.TrendThreshold == 0 {
		s.TrendThreshold = 2
	}

	m := &c.Analysis.Composite
	if m.BreakoutWeight == 0 && m.VolumeWeight == 0 && m.StructureWeight == 0 &&
		m.RelativeWeight == 0 && m.BreadthWeight == 0 {
		m.BreakoutWeight = 0.30
		m.VolumeWeight = 0.20
		m.StructureWeight = 0.25
		m.RelativeWeight = 0.15
		m.BreadthWeight = 0.10
	}
	if m.RSLookback == 0 {
		m.RSLookback = 60
	}
	if m.RSScale == 0 {
		m.RSScale = 2.0
	}
	if m.Thresholds == (SignalThresholds{}) {
		m.Thresholds = SignalThresholds{StrongBuy: 75, Buy: 60, Sell: 40, StrongSell: 25}
	}
	// Мультифакторный фильтр пропускает сигналы не слабее ПОКУПКИ
	if m.MinScore == 0 {
		m.MinScore = m.Thresholds.Buy
	}

	mv := &c.Analysis.Movement
	if mv.Duration == 0 {
		mv.Duration = 30
	}
	if mv.TargetPercent == 0 {
		mv.TargetPercent = 10
	}
	if mv.Direction == "" {
		mv.Direction = "up"
	}
	if mv.MinHistory == 0 {
		mv.MinHistory = 365
	}

	if c.UI.RefreshRate == 0 {
		c.UI.RefreshRate = 500
	}
	if c.UI.MaxRows == 0 {
		c.UI.MaxRows = 50
	}
}

// Validate проверяет диапазоны параметров
func (c *Config) Validate() error {
	if c.Screening.Workers < 1 {
		return fmt.Errorf("screening.workers должен быть положительным: %d", c.Screening.Workers)
	}
	if c.Screening.TimeoutSeconds < 0 {
		return fmt.Errorf("screening.timeout_seconds не может быть отрицательным")
	}
	if c.Analysis.Breakout.Lookback < 2 {
		return fmt.Errorf("analysis.breakout.lookback должен быть не меньше 2")
	}
	if c.Analysis.Breakout.VolumePeriod < 1 {
		return fmt.Errorf("analysis.breakout.volume_period должен быть положительным")
	}
	if c.Analysis.Breakout.Margin < 0 {
		return fmt.Errorf("analysis.breakout.margin не может быть отрицательным")
	}
	if c.Analysis.VolumeProfile.Buckets < 0 || c.Analysis.VolumeProfile.BucketWidth < 0 {
		return fmt.Errorf("analysis.volume_profile: отрицательное число или ширина корзин")
	}
	if c.Analysis.Structure.PivotWidth < 1 {
		return fmt.Errorf("analysis.structure.pivot_width должен быть положительным")
	}
	w := c.Analysis.Composite
	if w.BreakoutWeight < 0 || w.VolumeWeight < 0 || w.StructureWeight < 0 || w.RelativeWeight < 0 || w.BreadthWeight < 0 {
		return fmt.Errorf("analysis.composite: веса не могут быть отрицательными")
	}
	if w.BreakoutWeight+w.VolumeWeight+w.StructureWeight+w.RelativeWeight+w.BreadthWeight == 0 {
		return fmt.Errorf("analysis.composite: сумма весов равна нулю")
	}
	if c.Storage.Enabled && (c.Storage.URL == "" || c.Storage.Bucket == "") {
		return fmt.Errorf("storage.url и storage.bucket обязательны при включенном хранилище")
	}
	if c.Cache.Enabled && c.Cache.Addr == "" {
		return fmt.Errorf("cache.addr обязателен при включенном кэше")
	}
	return nil
}

// LoggerOptions переводит настройки логирования в опции логгера
func (c LoggingConfig) LoggerOptions() logger.Options {
	return logger.Options{
		Level:    c.Level,
		File:     c.File,
		JSONFile: c.JSONFile,
		Console:  c.Console,
		Truncate: c.Truncate,
	}
}
