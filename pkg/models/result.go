package models

import (
	"encoding/json"
	"sort"
	"time"
)

// ScreeningResult итог анализа одного символа. После создания не изменяется,
// кроме финализации мультифакторного скоринга до сортировки.
type ScreeningResult struct {
	Symbol         string             `json:"symbol"`
	Strategy       string             `json:"strategy"`
	Timestamp      time.Time          `json:"timestamp"`
	Score          float64            `json:"score"`
	Passed         bool               `json:"passed"`
	Recommendation string             `json:"recommendation,omitempty"`
	Close          float64            `json:"close"`
	Volume         float64            `json:"volume"`
	Return         float64            `json:"return_pct"`
	Patterns       []PatternMatch     `json:"patterns"`
	Breakout       *Breakout          `json:"breakout,omitempty"`
	VolumeProfile  *VolumeProfile     `json:"volume_profile,omitempty"`
	Structure      *MarketStructure   `json:"structure,omitempty"`
	Movement       *Movement          `json:"movement,omitempty"`
	Components     map[string]float64 `json:"components,omitempty"`
}

// Regime возвращает режим рынка, если структура была посчитана
func (r *ScreeningResult) Regime() Regime {
	if r.Structure == nil {
		return ""
	}
	return r.Structure.Regime
}

// Report результат одного прогона скрининга
type Report struct {
	RunID      string             `json:"run_id"`
	Strategy   string             `json:"strategy"`
	Exchange   string             `json:"exchange"`
	StartedAt  time.Time          `json:"started_at"`
	FinishedAt time.Time          `json:"finished_at"`
	Results    []*ScreeningResult `json:"results"`
	Failures   []Failure          `json:"failures"`
	Partial    bool               `json:"partial"`
	Err        error              `json:"-"`
}

// MarshalJSON добавляет текст ошибки прерванного прогона
func (r Report) MarshalJSON() ([]byte, error) {
	type plain Report
	out := struct {
		plain
		Error string `json:"error,omitempty"`
	}{plain: plain(r)}
	if out.Failures == nil {
		out.Failures = []Failure{}
	}
	if r.Err != nil {
		out.Error = r.Err.Error()
	}
	return json.Marshal(out)
}

// Passed возвращает только прошедшие фильтр результаты в порядке ранжирования
func (r *Report) Passed() []*ScreeningResult {
	out := make([]*ScreeningResult, 0, len(r.Results))
	for _, res := range r.Results {
		if res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// SortResults упорядочивает результаты: прошедшие фильтр первыми, затем по убыванию
// скоринга, при равенстве по символу
func SortResults(results []*ScreeningResult) {
	sort.SliceStable(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Passed != b.Passed {
			return a.Passed
		}
		if a.Score != b.Score {
			return a.Score > b.Score
		}
		return a.Symbol < b.Symbol
	})
}
