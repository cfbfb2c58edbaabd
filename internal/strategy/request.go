package strategy

import (
	"fmt"
	"strings"

	"github.com/skalibog/screener/pkg/models"
)

// Kind селектор стратегии скрининга
type Kind string

const (
	PriceActionBreakout Kind = "price-action-breakout"
	VolumeProfile       Kind = "volume-profile"
	MarketStructure     Kind = "market-structure"
	MultiFactor         Kind = "multi-factor"
	CustomMovement      Kind = "custom-movement"
)

// Kinds возвращает все поддерживаемые стратегии
func Kinds() []Kind {
	return []Kind{PriceActionBreakout, VolumeProfile, MarketStructure, MultiFactor, CustomMovement}
}

// Направления кастомного скрининга
const (
	DirectionUp   = "up"
	DirectionDown = "down"
)

// Границы параметров кастомного скрининга
const (
	MinDuration = 1
	MaxDuration = 365
	MinTarget   = 0.1
	MaxTarget   = 1000
)

// Request запрос на скрининг
type Request struct {
	Exchange      string   `json:"exchange" yaml:"exchange"`
	Universe      string   `json:"universe" yaml:"universe"`
	Symbols       []string `json:"symbols,omitempty" yaml:"symbols"`
	Strategy      Kind     `json:"strategy" yaml:"strategy"`
	Duration      int      `json:"duration,omitempty" yaml:"duration"`
	TargetPercent float64  `json:"target_percent,omitempty" yaml:"target_percent"`
	Direction     string   `json:"direction,omitempty" yaml:"direction"`
}

// Validate проверяет запрос до запуска скрининга
func (r Request) Validate() error {
	if strings.TrimSpace(r.Exchange) == "" {
		return fmt.Errorf("%w: не указана биржа", models.ErrConfig)
	}
	if r.Universe == "" && len(r.Symbols) == 0 {
		return fmt.Errorf("%w: не указан список символов", models.ErrConfig)
	}

	known := false
	for _, k := range Kinds() {
		if r.Strategy == k {
			known = true
			break
		}
	}
	if !known {
		return fmt.Errorf("%w: неизвестная стратегия %q", models.ErrConfig, r.Strategy)
	}

	if r.Strategy == CustomMovement {
		if r.Duration < MinDuration || r.Duration > MaxDuration {
			return fmt.Errorf("%w: длительность %d вне диапазона %d-%d", models.ErrConfig, r.Duration, MinDuration, MaxDuration)
		}
		if r.TargetPercent < MinTarget || r.TargetPercent > MaxTarget {
			return fmt.Errorf("%w: целевой процент %.4f вне диапазона %.1f-%d", models.ErrConfig, r.TargetPercent, MinTarget, MaxTarget)
		}
		if r.Direction != DirectionUp && r.Direction != DirectionDown {
			return fmt.Errorf("%w: направление должно быть up или down, получено %q", models.ErrConfig, r.Direction)
		}
	}
	return nil
}

// ResolveUniverse возвращает символы запроса без повторов.
// Явный список символов имеет приоритет над именованной вселенной.
func ResolveUniverse(r Request, universes map[string][]string) ([]string, error) {
	source := r.Symbols
	if len(source) == 0 {
		list, ok := universes[r.Universe]
		if !ok {
			return nil, fmt.Errorf("%w: неизвестная вселенная %q", models.ErrConfig, r.Universe)
		}
		source = list
	}

	seen := make(map[string]bool, len(source))
	symbols := make([]string, 0, len(source))
	for _, s := range source {
		s = strings.ToUpper(strings.TrimSpace(s))
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		symbols = append(symbols, s)
	}
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: пустой список символов", models.ErrConfig)
	}
	return symbols, nil
}
