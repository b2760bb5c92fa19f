// Package flusher periodically persists the in-memory state of file-backed
// storage, so a crash loses at most one interval of writes.
package flusher

import (
	"context"
	"time"

	"github.com/t5krishn/tinyapp/internal/logger"
)

type flushable interface {
	Flush(ctx context.Context) error
}

// Flusher runs the periodic snapshot loop.
type Flusher struct {
	db           flushable
	interval     time.Duration
	errorChannel chan error
}

// New returns a Flusher snapshotting db every interval.
func New(db flushable, interval time.Duration, errorChannelCapacity int) *Flusher {
	return &Flusher{
		db:           db,
		interval:     interval,
		errorChannel: make(chan error, errorChannelCapacity),
	}
}

// ListenErrors forwards snapshot failures to the callback.
func (f *Flusher) ListenErrors(callback func(error)) {
	go func() {
		for err := range f.errorChannel {
			callback(err)
		}
	}()
}

// Run starts the snapshot loop. It stops, takes a final snapshot and closes
// the error channel when ctx is cancelled.
func (f *Flusher) Run(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(f.interval)
		defer ticker.Stop()
		defer close(f.errorChannel)

		for {
			select {
			case <-ctx.Done():
				if err := f.db.Flush(context.Background()); err != nil {
					f.errorChannel <- err
				}
				return
			case <-ticker.C:
				if err := f.db.Flush(ctx); err != nil {
					f.errorChannel <- err
					continue
				}
				logger.Log.Debugln("storage snapshot flushed")
			}
		}
	}()
}
