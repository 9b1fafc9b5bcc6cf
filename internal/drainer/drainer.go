// Package drainer runs the polling loop that feeds pending recordings to
// the pipeline engine. It owns scheduling, backoff and shutdown; the
// engine owns all pipeline logic.
package drainer

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"audio-notes-go/internal/logger"
)

// Processor is the batch entrypoint the drainer drives.
type Processor interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

type Drainer struct {
	processor Processor
	interval  time.Duration
	limit     int
	log       *logger.Logger
}

func New(processor Processor, interval time.Duration, limit int, log *logger.Logger) *Drainer {
	return &Drainer{
		processor: processor,
		interval:  interval,
		limit:     limit,
		log:       log,
	}
}

// RunOnce executes a single batch.
func (d *Drainer) RunOnce(ctx context.Context) error {
	log := d.log.WithComponent("drainer")
	processed, err := d.processor.ProcessPending(ctx, d.limit)
	if err != nil {
		return err
	}
	log.WithField("processed", processed).Info("batch complete")
	return nil
}

// Run loops until ctx is done. The in-flight batch always finishes before
// exit. A failed batch selection backs off exponentially and the delay
// resets on the next success.
func (d *Drainer) Run(ctx context.Context) {
	log := d.log.WithComponent("drainer")
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = d.interval
	bo.MaxElapsedTime = 0 // retry forever

	for {
		wait := d.interval
		if err := d.RunOnce(ctx); err != nil {
			wait = bo.NextBackOff()
			log.WithField("error", err.Error()).
				WithField("retry_in", wait.String()).
				Warn("batch selection failed")
		} else {
			bo.Reset()
		}

		select {
		case <-ctx.Done():
			log.Info("stop requested, exiting loop")
			return
		case <-time.After(wait):
		}
	}
}
