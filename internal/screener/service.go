package screener

import (
	"context"
	"fmt"
	"strings"

	"github.com/skalibog/screener/internal/config"
	"github.com/skalibog/screener/internal/exchange"
	"github.com/skalibog/screener/internal/strategy"
	"github.com/skalibog/screener/pkg/models"
)

// Service принимает запрос на скрининг и передает его оркестратору
type Service struct {
	cfg          *config.Config
	orchestrator *Orchestrator
}

// NewService создает сервис скрининга поверх источника свечей
func NewService(cfg *config.Config, source exchange.CandleSource) *Service {
	return &Service{
		cfg:          cfg,
		orchestrator: NewOrchestrator(source, cfg.Screening),
	}
}

// Screen проверяет запрос и запускает скрининг. Ошибка возвращается только для
// некорректного запроса, сбои по символам попадают в отчет.
func (s *Service) Screen(ctx context.Context, req strategy.Request) (*models.Report, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	strat, err := strategy.New(req, s.cfg)
	if err != nil {
		return nil, err
	}

	symbols, err := strategy.ResolveUniverse(req, s.cfg.Universes)
	if err != nil {
		return nil, fmt.Errorf("ошибка определения списка символов: %w", err)
	}

	return s.orchestrator.Run(ctx, strat, strings.ToUpper(req.Exchange), symbols), nil
}
