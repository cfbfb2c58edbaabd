package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/skalibog/screener/internal/cache"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/internal/exchange"
	"github.com/skalibog/screener/internal/screener"
	"github.com/skalibog/screener/internal/storage"
	"github.com/skalibog/screener/internal/strategy"
	"github.com/skalibog/screener/internal/ui"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

func main() {
	// Обработка флагов командной строки
	configPath := flag.String("config", "config.yaml", "путь к файлу конфигурации")
	strategyName := flag.String("strategy", string(strategy.MultiFactor), "стратегия: "+kindList())
	universe := flag.String("universe", "", "имя списка символов из конфигурации")
	symbols := flag.String("symbols", "", "символы через запятую, имеют приоритет над -universe")
	exchangeName := flag.String("exchange", "NSE", "биржа: NSE, BSE, BINANCE")
	duration := flag.Int("duration", 0, "custom-movement: длительность в свечах (1-365)")
	target := flag.Float64("target", 0, "custom-movement: целевое изменение в процентах (0.1-1000)")
	direction := flag.String("direction", "", "custom-movement: направление up или down")
	interactive := flag.Bool("ui", false, "интерактивный просмотр результатов")
	schedule := flag.String("schedule", "", "cron расписание повторных прогонов")
	asJSON := flag.Bool("json", false, "вывести отчет в JSON")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка загрузки конфигурации: %v\n", err)
		os.Exit(1)
	}

	useUI := *interactive || cfg.UI.Interactive
	logOpts := cfg.Logging.LoggerOptions()
	if useUI {
		// Вывод в терминал занят интерфейсом
		logOpts.Console = false
		if logOpts.JSONFile == "" {
			logOpts.JSONFile = "screener.json.log"
		}
	}
	if err := logger.Init(logOpts); err != nil {
		fmt.Fprintf(os.Stderr, "Ошибка инициализации логгера: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("Некорректная конфигурация", zap.Error(err))
	}

	req := strategy.Request{
		Exchange:      strings.ToUpper(*exchangeName),
		Universe:      *universe,
		Symbols:       splitSymbols(*symbols),
		Strategy:      strategy.Kind(*strategyName),
		Duration:      *duration,
		TargetPercent: *target,
		Direction:     *direction,
	}
	applyMovementDefaults(&req, cfg.Analysis.Movement)
	if err := req.Validate(); err != nil {
		logger.Fatal("Некорректный запрос", zap.Error(err))
	}

	// Контекст отменяется по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	source, closeSource := buildSource(ctx, cfg)
	defer closeSource()

	service := screener.NewService(cfg, source)

	var termUI *ui.TermUI
	onReport := func(report *models.Report) {
		if termUI != nil {
			termUI.UpdateReport(report)
			return
		}
		if err := printReport(report, cfg.UI.MaxRows, *asJSON); err != nil {
			logger.Error("Ошибка вывода отчета", zap.Error(err))
		}
	}
	if useUI {
		termUI = ui.NewTermUI(cfg.UI, logOpts.JSONFile)
	}

	cronSpec := *schedule
	if cronSpec == "" {
		cronSpec = cfg.Screening.Schedule
	}

	sched := screener.NewScheduler(ctx, service, req, onReport)
	if cronSpec != "" {
		if err := sched.Register(cronSpec); err != nil {
			logger.Fatal("Ошибка регистрации расписания", zap.Error(err))
		}
		sched.Start()
		defer sched.Stop()
	}

	if termUI != nil {
		go sched.RunNow()
		// Блокирующий вызов в основном потоке
		if err := termUI.Run(ctx); err != nil {
			logger.Error("Ошибка интерфейса", zap.Error(err))
		}
		return
	}

	sched.RunNow()
	if cronSpec != "" {
		<-ctx.Done()
		logger.Info("Завершение работы...")
	}
}

// buildSource собирает цепочку источников: кэш Redis, история InfluxDB, биржа
func buildSource(ctx context.Context, cfg *config.Config) (exchange.CandleSource, func()) {
	var source exchange.CandleSource = exchange.NewDefaultRouter(cfg)
	var closers []func()

	if cfg.Storage.Enabled {
		store, err := storage.NewInfluxDBStorage(ctx, cfg.Storage)
		if err != nil {
			logger.Warn("Хранилище недоступно, работа без истории", zap.Error(err))
		} else {
			source = storage.NewSource(store, source, cfg.Screening.Interval, time.Duration(cfg.Storage.MaxAgeHours)*time.Hour)
			closers = append(closers, store.Close)
		}
	}

	if cfg.Cache.Enabled {
		client, err := cache.NewRedisClient(ctx, cfg.Cache)
		if err != nil {
			logger.Warn("Redis недоступен, работа без кэша", zap.Error(err))
		} else {
			source = cache.NewSource(client, source, cfg.Cache, cfg.Screening.Interval)
			closers = append(closers, func() { _ = client.Close() })
		}
	}

	return source, func() {
		for _, c := range closers {
			c()
		}
	}
}

// applyMovementDefaults подставляет параметры custom-movement из конфигурации
func applyMovementDefaults(req *strategy.Request, cfg config.MovementConfig) {
	if req.Strategy != strategy.CustomMovement {
		return
	}
	if req.Duration == 0 {
		req.Duration = cfg.Duration
	}
	if req.TargetPercent == 0 {
		req.TargetPercent = cfg.TargetPercent
	}
	if req.Direction == "" {
		req.Direction = cfg.Direction
	}
}

func printReport(report *models.Report, maxRows int, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(report)
	}
	return ui.RenderTable(os.Stdout, report, maxRows)
}

func splitSymbols(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func kindList() string {
	kinds := strategy.Kinds()
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}
