package indexer

import (
	"fmt"
)

// Error es un fallo del indexer con su categoría de dominio (Kind).
// Kind es uno de los sentinels de domain, de modo que errors.Is(err,
// domain.ErrRateLimited) funciona sobre cualquier error devuelto por Client.
type Error struct {
	Kind   error
	Op     string
	Status int // HTTP status, 0 si no hubo respuesta
	Err    error
}

func (e *Error) Error() string {
	msg := fmt.Sprintf("indexer.%s: %v", e.Op, e.Kind)
	if e.Status != 0 {
		msg += fmt.Sprintf(" (status %d)", e.Status)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap expone tanto la categoría como la causa.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}
