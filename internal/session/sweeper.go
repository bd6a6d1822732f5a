package session

import (
	"context"
	"time"

	"github.com/wolfman30/pathlab-ai-platform/pkg/logging"
)

// SweepRecorder observes each garbage-collection pass.
type SweepRecorder interface {
	ObserveSweep(evicted, active int)
}

// Sweeper periodically evicts idle sessions from a Store.
type Sweeper struct {
	store    *Store
	logger   *logging.Logger
	interval time.Duration
	recorder SweepRecorder
}

func NewSweeper(store *Store, logger *logging.Logger) *Sweeper {
	if logger == nil {
		logger = logging.Default()
	}
	return &Sweeper{
		store:    store,
		logger:   logger,
		interval: 5 * time.Minute,
	}
}

func (w *Sweeper) WithInterval(d time.Duration) *Sweeper {
	if d > 0 {
		w.interval = d
	}
	return w
}

func (w *Sweeper) WithRecorder(r SweepRecorder) *Sweeper {
	w.recorder = r
	return w
}

// Run sweeps on every tick until ctx is cancelled.
func (w *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			w.Sweep()
		}
	}
}

// Sweep runs one garbage-collection pass.
func (w *Sweeper) Sweep() int {
	if w.store == nil {
		return 0
	}
	evicted := w.store.GarbageCollect()
	active := w.store.Len()
	if evicted > 0 {
		w.logger.Info("evicted idle chat sessions", "evicted", evicted, "active", active)
	}
	if w.recorder != nil {
		w.recorder.ObserveSweep(evicted, active)
	}
	return evicted
}
