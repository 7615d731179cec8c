package service

import (
	"fmt"
)

// Kind classifies a bootstrap failure.
type Kind uint8

const (
	KindConfig Kind = iota + 1
	KindDerivation
	KindSync
	KindAggregation
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindConfig:
		return "configuration"
	case KindDerivation:
		return "derivation"
	case KindSync:
		return "synchronization"
	case KindAggregation:
		return "aggregation"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Sentinels for errors.Is; they match any *Error of the same kind.
var (
	ErrConfig      = &Error{Kind: KindConfig}
	ErrDerivation  = &Error{Kind: KindDerivation}
	ErrSync        = &Error{Kind: KindSync}
	ErrAggregation = &Error{Kind: KindAggregation}
	ErrPersistence = &Error{Kind: KindPersistence}
)

// Error is the single error type surfaced by the bootstrap pipeline.
type Error struct {
	Kind Kind
	Op   string
	Err  error
}

func newError(kind Kind, op string, err error) *Error {
	return &Error{Kind: kind, Op: op, Err: err}
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s error", e.Kind)
	}
	if e.Op == "" {
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	}
	return fmt.Sprintf("%s error: %s: %v", e.Kind, e.Op, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Err == nil && t.Op == "" && t.Kind == e.Kind
}
