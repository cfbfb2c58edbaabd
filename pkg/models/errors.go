package models

import (
	"context"
	"encoding/json"
	"errors"
)

// Категории ошибок скрининга
var (
	ErrConfig           = errors.New("некорректный запрос скрининга")
	ErrFetch            = errors.New("не удалось получить свечи")
	ErrInsufficientData = errors.New("недостаточно данных")
	ErrTimeout          = errors.New("превышено время скрининга")
	ErrCanceled         = errors.New("скрининг прерван")
)

// FailureKind категория сбоя по символу
type FailureKind string

const (
	FailureFetch            FailureKind = "fetch"
	FailureInsufficientData FailureKind = "insufficient_data"
	FailureTimeout          FailureKind = "timeout"
	FailureCanceled         FailureKind = "canceled"
	FailureAnalysis         FailureKind = "analysis"
)

// Failure описывает сбой анализа одного символа
type Failure struct {
	Symbol string      `json:"symbol"`
	Kind   FailureKind `json:"kind"`
	Err    error       `json:"-"`
}

// MarshalJSON сериализует сбой с текстом ошибки
func (f Failure) MarshalJSON() ([]byte, error) {
	out := struct {
		Symbol string      `json:"symbol"`
		Kind   FailureKind `json:"kind"`
		Error  string      `json:"error,omitempty"`
	}{Symbol: f.Symbol, Kind: f.Kind}
	if f.Err != nil {
		out.Error = f.Err.Error()
	}
	return json.Marshal(out)
}

// NewFailure определяет категорию сбоя по цепочке ошибок
func NewFailure(symbol string, err error) Failure {
	return Failure{Symbol: symbol, Kind: ClassifyError(err), Err: err}
}

// ClassifyError сопоставляет ошибку с категорией сбоя
func ClassifyError(err error) FailureKind {
	switch {
	case errors.Is(err, ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return FailureTimeout
	case errors.Is(err, ErrCanceled), errors.Is(err, context.Canceled):
		return FailureCanceled
	case errors.Is(err, ErrInsufficientData):
		return FailureInsufficientData
	case errors.Is(err, ErrFetch):
		return FailureFetch
	default:
		return FailureAnalysis
	}
}

func (f Failure) Error() string {
	if f.Err == nil {
		return f.Symbol + ": " + string(f.Kind)
	}
	return f.Symbol + ": " + f.Err.Error()
}
