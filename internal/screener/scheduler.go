package screener

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/skalibog/screener/internal/strategy"
	"github.com/skalibog/screener/pkg/logger"
	"github.com/skalibog/screener/pkg/models"
	"go.uber.org/zap"
)

// Scheduler повторяет один и тот же запрос по cron расписанию
type Scheduler struct {
	cron     *cron.Cron
	service  *Service
	request  strategy.Request
	onReport func(*models.Report)
	ctx      context.Context
}

// NewScheduler создает планировщик. Расписание принимает 5 или 6 полей
// (с секундами) и дескрипторы вида @daily.
func NewScheduler(ctx context.Context, service *Service, req strategy.Request, onReport func(*models.Report)) *Scheduler {
	parser := cron.NewParser(cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	return &Scheduler{
		cron: cron.New(
			cron.WithParser(parser),
			cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)),
		),
		service:  service,
		request:  req,
		onReport: onReport,
		ctx:      ctx,
	}
}

// Register добавляет задачу скрининга с заданным расписанием
func (s *Scheduler) Register(schedule string) error {
	if _, err := s.cron.AddFunc(schedule, s.RunNow); err != nil {
		return fmt.Errorf("%w: некорректное расписание %q: %w", models.ErrConfig, schedule, err)
	}
	logger.Info("Скрининг запланирован", zap.String("schedule", schedule))
	return nil
}

// Start запускает планировщик
func (s *Scheduler) Start() {
	s.cron.Start()
	logger.Info("Планировщик запущен")
}

// Stop останавливает планировщик и ждет завершения текущего прогона
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
	logger.Info("Планировщик остановлен")
}

// RunNow выполняет скрининг немедленно
func (s *Scheduler) RunNow() {
	if s.ctx.Err() != nil {
		return
	}
	report, err := s.service.Screen(s.ctx, s.request)
	if err != nil {
		logger.Error("Ошибка планового скрининга", zap.Error(err))
		return
	}
	if s.onReport != nil {
		s.onReport(report)
	}
}
