package screener

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/internal/exchange"
	"github.com/skalibog/screener/internal/strategy"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// outcome результат обработки одного символа: либо результат, либо сбой
type outcome struct {
	result  *models.ScreeningResult
	failure *models.Failure
}

// Orchestrator запускает стратегию по всем символам вселенной в ограниченном пуле
type Orchestrator struct {
	source  exchange.CandleSource
	workers int
	timeout time.Duration
}

// NewOrchestrator создает оркестратор скрининга
func NewOrchestrator(source exchange.CandleSource, cfg config.ScreeningConfig) *Orchestrator {
	workers := cfg.Workers
	if workers < 1 {
		workers = 1
	}
	return &Orchestrator{
		source:  source,
		workers: workers,
		timeout: cfg.Timeout(),
	}
}

// Run анализирует каждый символ и возвращает отчет. Каждый символ попадает
// ровно в один из списков: результаты или сбои.
func (o *Orchestrator) Run(ctx context.Context, strat strategy.Strategy, exchangeName string, symbols []string) *models.Report {
	report := &models.Report{
		RunID:     uuid.New().String(),
		Strategy:  string(strat.Name()),
		Exchange:  exchangeName,
		StartedAt: time.Now(),
	}

	runCtx := ctx
	cancel := func() {}
	if o.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, o.timeout)
	}
	defer cancel()

	logger.Info("Запуск скрининга",
		zap.String("run_id", report.RunID),
		zap.String("strategy", report.Strategy),
		zap.String("exchange", exchangeName),
		zap.Int("symbols", len(symbols)),
		zap.Int("workers", o.workers))

	// Буфер на каждый символ: опоздавшие задачи не блокируются после выхода Run
	outcomes := make(chan outcome, len(symbols))
	dispatched := make(chan struct{})

	go func() {
		defer close(dispatched)

		var g errgroup.Group
		g.SetLimit(o.workers)

		lookback := strat.Lookback()
		for _, symbol := range symbols {
			if err := abortError(runCtx); err != nil {
				// Новые задачи не запускаем, символ фиксируется как сбой
				f := models.NewFailure(symbol, err)
				outcomes <- outcome{failure: &f}
				continue
			}

			symbol := symbol
			g.Go(func() error {
				outcomes <- o.analyze(runCtx, strat, exchangeName, symbol, lookback)
				return nil
			})
		}
		_ = g.Wait()
	}()

	pending := make(map[string]bool, len(symbols))
	for _, symbol := range symbols {
		pending[symbol] = true
	}
	collect := func(out outcome) {
		if out.failure != nil {
			if pending[out.failure.Symbol] {
				delete(pending, out.failure.Symbol)
				report.Failures = append(report.Failures, *out.failure)
			}
			return
		}
		if pending[out.result.Symbol] {
			delete(pending, out.result.Symbol)
			report.Results = append(report.Results, out.result)
		}
	}
	drain := func() {
		for {
			select {
			case out := <-outcomes:
				collect(out)
			default:
				return
			}
		}
	}

	// Единственный сборщик результатов. После дедлайна задачи, не уважающие
	// контекст, не дожидаются: их символы фиксируются как сбои.
	func() {
		for len(pending) > 0 {
			select {
			case out := <-outcomes:
				collect(out)
			case <-dispatched:
				drain()
				return
			case <-runCtx.Done():
				drain()
				return
			}
		}
	}()

	if err := abortError(runCtx); err != nil {
		report.Partial = true
		report.Err = err
		abandoned := 0
		for _, symbol := range symbols {
			if pending[symbol] {
				delete(pending, symbol)
				abandoned++
				report.Failures = append(report.Failures, models.NewFailure(symbol, err))
			}
		}
		if abandoned > 0 {
			logger.Warn("Прогон прерван, незавершенные задачи брошены",
				zap.String("run_id", report.RunID),
				zap.Int("abandoned", abandoned),
				zap.Error(err))
		}
	}

	if f, ok := strat.(strategy.Finalizer); ok {
		f.Finalize(report.Results)
	}
	models.SortResults(report.Results)
	sort.Slice(report.Failures, func(i, j int) bool {
		return report.Failures[i].Symbol < report.Failures[j].Symbol
	})
	report.FinishedAt = time.Now()

	logger.Info("Скрининг завершен",
		zap.String("run_id", report.RunID),
		zap.Int("results", len(report.Results)),
		zap.Int("passed", len(report.Passed())),
		zap.Int("failures", len(report.Failures)),
		zap.Bool("partial", report.Partial),
		zap.Duration("elapsed", report.FinishedAt.Sub(report.StartedAt)))

	return report
}

// analyze загружает и анализирует один символ. Паника анализатора
// превращается в сбой этого символа.
func (o *Orchestrator) analyze(ctx context.Context, strat strategy.Strategy, exchangeName, symbol string, lookback int) (out outcome) {
	fail := func(err error) outcome {
		f := models.NewFailure(symbol, err)
		logger.Warn("Сбой анализа символа",
			zap.String("symbol", symbol),
			zap.String("kind", string(f.Kind)),
			zap.Error(err))
		return outcome{failure: &f}
	}

	defer func() {
		if r := recover(); r != nil {
			out = fail(fmt.Errorf("паника при анализе: %v", r))
		}
	}()

	// Задача могла дождаться слота уже после отмены
	if err := abortError(ctx); err != nil {
		return fail(err)
	}

	candles, err := o.source.GetCandles(ctx, symbol, exchangeName, lookback)
	if err != nil {
		if abort := abortError(ctx); abort != nil {
			return fail(fmt.Errorf("%w: %w", abort, err))
		}
		if !errors.Is(err, models.ErrFetch) {
			err = fmt.Errorf("%w: %w", models.ErrFetch, err)
		}
		return fail(err)
	}

	series := models.NewSeries(symbol, exchangeName, candles)
	if err := series.Validate(); err != nil {
		return fail(fmt.Errorf("%w: некорректные свечи: %w", models.ErrFetch, err))
	}

	result, err := strat.Analyze(series)
	if err != nil {
		return fail(err)
	}
	result.Symbol = symbol
	result.Strategy = string(strat.Name())

	logger.Debug("Символ обработан",
		zap.String("symbol", symbol),
		zap.Float64("score", result.Score),
		zap.Bool("passed", result.Passed))

	return outcome{result: result}
}

// abortError переводит ошибку контекста в ErrTimeout или ErrCanceled
func abortError(ctx context.Context) error {
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return fmt.Errorf("%w: %w", models.ErrTimeout, err)
	default:
		return fmt.Errorf("%w: %w", models.ErrCanceled, err)
	}
}
