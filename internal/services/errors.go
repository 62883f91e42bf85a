package services

import (
	"errors"
	"fmt"
)

// ErrorKind clasificación de los errores de una corrida
type ErrorKind string

const (
	// KindConfiguration falta la tabla destino o el maestro de productos; aborta la corrida
	KindConfiguration ErrorKind = "configuration"
	// KindConcurrency no se obtuvo el lock; reintentar más tarde
	KindConcurrency ErrorKind = "concurrency"
	// KindSource falla de lectura o escritura en la fuente tabular
	KindSource ErrorKind = "source"
)

var (
	// ErrUnknownAction acción de disparo desconocida
	ErrUnknownAction = errors.New("unknown action")
	// ErrInvalidRecord registro con campos inválidos
	ErrInvalidRecord = errors.New("invalid record")
	// ErrInvalidQuery parámetros de consulta inválidos
	ErrInvalidQuery = errors.New("invalid query")
)

// RunError error estructurado con mensaje legible
type RunError struct {
	Kind ErrorKind
	Op   string
	Err  error
}

func (e *RunError) Error() string {
	return fmt.Sprintf("%s failed (%s error): %v", e.Op, e.Kind, e.Err)
}

func (e *RunError) Unwrap() error {
	return e.Err
}

// KindOf retorna la clasificación de err, o "" si no es un RunError
func KindOf(err error) ErrorKind {
	var runErr *RunError
	if errors.As(err, &runErr) {
		return runErr.Kind
	}
	return ""
}
