package service

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/rs/zerolog"
)

// Sweeper is the work a FinalizeWorker runs on each tick.
type Sweeper interface {
	Sweep(ctx context.Context) (SweepReport, error)
}

// FinalizeWorker is a periodic background job that finalizes content whose
// voting window has ended. The first sweep runs after startDelay, then every
// interval.
type FinalizeWorker struct {
	sweeper    Sweeper
	clock      clock.Clock
	startDelay time.Duration
	interval   time.Duration
	log        zerolog.Logger

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	afterSweep func(SweepReport, error)
}

// NewFinalizeWorker creates a worker. A nil clock uses the wall clock.
func NewFinalizeWorker(sweeper Sweeper, clk clock.Clock, startDelay, interval time.Duration, log zerolog.Logger) *FinalizeWorker {
	if clk == nil {
		clk = clock.New()
	}
	return &FinalizeWorker{
		sweeper:    sweeper,
		clock:      clk,
		startDelay: startDelay,
		interval:   interval,
		log:        log.With().Str("component", "finalize-worker").Logger(),
		stopCh:     make(chan struct{}),
	}
}

// Start schedules the sweeps and returns immediately. The timers are armed
// before Start returns, so advancing a mock clock afterwards is observed.
func (w *FinalizeWorker) Start(ctx context.Context) {
	w.log.Info().
		Dur("start_delay", w.startDelay).
		Dur("interval", w.interval).
		Msg("starting")

	first := w.clock.Timer(w.startDelay)
	ticker := w.clock.Ticker(w.interval)

	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		defer first.Stop()
		defer ticker.Stop()

		for {
			select {
			case <-first.C:
				w.tick(ctx)
			case <-ticker.C:
				w.tick(ctx)
			case <-ctx.Done():
				w.log.Info().Msg("stopping (context cancelled)")
				return
			case <-w.stopCh:
				w.log.Info().Msg("stopping (stop signal)")
				return
			}
		}
	}()
}

// Stop signals the worker to stop and waits for an in-flight sweep to end.
func (w *FinalizeWorker) Stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
	w.wg.Wait()
}

// tick runs one sweep.
func (w *FinalizeWorker) tick(ctx context.Context) {
	start := w.clock.Now()

	report, err := w.sweeper.Sweep(ctx)
	if err != nil {
		w.log.Error().Err(err).Msg("sweep failed")
	} else {
		w.log.Info().
			Int("checked", report.Checked).
			Int("finalized", report.Finalized).
			Int("failed", report.Failed).
			Dur("elapsed", w.clock.Since(start)).
			Msg("sweep complete")
	}

	if w.afterSweep != nil {
		w.afterSweep(report, err)
	}
}
