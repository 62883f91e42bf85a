package scheduler

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// Job trabajo ejecutado una vez por día
type Job func(ctx context.Context) error

// Daily ejecuta un Job todos los días a la hora configurada en la zona de negocio
type Daily struct {
	hour   int
	minute int
	loc    *time.Location
	job    Job
	logger *zap.Logger

	now   func() time.Time
	after func(time.Duration) <-chan time.Time
}

func NewDaily(hour, minute int, loc *time.Location, job Job, logger *zap.Logger) *Daily {
	return &Daily{
		hour:   hour,
		minute: minute,
		loc:    loc,
		job:    job,
		logger: logger,
		now:    time.Now,
		after:  time.After,
	}
}

// NextRun primera ejecución estrictamente posterior a from
func (d *Daily) NextRun(from time.Time) time.Time {
	local := from.In(d.loc)
	next := time.Date(local.Year(), local.Month(), local.Day(), d.hour, d.minute, 0, 0, d.loc)
	if !next.After(local) {
		next = time.Date(local.Year(), local.Month(), local.Day()+1, d.hour, d.minute, 0, 0, d.loc)
	}
	return next
}

// Start corre el ciclo en una goroutine hasta que ctx se cancela.
// Un error del job se registra y no detiene las ejecuciones siguientes.
func (d *Daily) Start(ctx context.Context) <-chan struct{} {
	done := make(chan struct{})
	logger := d.logger.With(zap.String("operation", "daily_scheduler"))

	go func() {
		defer close(done)
		for {
			next := d.NextRun(d.now())
			logger.Info("⏰ Próxima ejecución programada", zap.Time("next_run", next))

			select {
			case <-ctx.Done():
				logger.Info("Scheduler detenido")
				return
			case <-d.after(next.Sub(d.now())):
			}

			if err := d.job(ctx); err != nil {
				logger.Error("❌ Ejecución programada fallida", zap.Error(err))
				continue
			}
			logger.Info("✅ Ejecución programada completada")
		}
	}()
	return done
}
