// Package lock provee el lock de ejecución que serializa materializaciones y altas de registros.
package lock

import (
	"context"
	"errors"
	"time"
)

// ErrLockTimeout no se obtuvo el lock dentro del tiempo de espera
var ErrLockTimeout = errors.New("timed out waiting for run lock")

// Release libera un lock obtenido
type Release func()

// RunLock lock de exclusión mutua con espera acotada
type RunLock interface {
	Acquire(ctx context.Context, wait time.Duration) (Release, error)
}
