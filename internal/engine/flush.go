package engine

import (
	"context"
	"time"

	"github.com/deploymenttheory/go-smrsim/internal/persistence"
	"github.com/deploymenttheory/go-smrsim/internal/types"
)

// worker polls the dirty state at the flush interval until Close.
func (e *Engine) worker() {
	defer close(e.done)

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	for {
		select {
		case <-e.stop:
			return
		case <-ticker.C:
			if err := e.flush(context.Background()); err != nil {
				e.log.Warn("state flush failed, will retry", err)
			}
		}
	}
}

func (e *Engine) scheduledCheckpoint() {
	if err := e.Checkpoint(context.Background()); err != nil {
		e.log.Warn("scheduled checkpoint failed", err)
	}
}

// Checkpoint forces a full rewrite of the persisted state.
func (e *Engine) Checkpoint(ctx context.Context) error {
	e.mu.Lock()
	e.tracker.MarkConfig()
	e.mu.Unlock()
	return e.flush(ctx)
}

// Dirty reports whether state changes await a flush.
func (e *Engine) Dirty() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.tracker.Dirty()
}

// flush writes the smallest sufficient set of pages. The image is encoded
// under the state lock with a fresh checksum; the pages are written after it
// is released. A failed write is retried as a full rewrite on the next flush.
func (e *Engine) flush(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.flushMu.Lock()
	defer e.flushMu.Unlock()

	e.mu.Lock()
	plan := e.tracker.Take(e.table.NumZones())
	if plan.Empty() {
		e.mu.Unlock()
		return nil
	}
	image, err := persistence.Encode(e.snapshot())
	if err != nil {
		e.tracker.Requeue()
		e.mu.Unlock()
		e.met.RecordError("encode")
		return err
	}
	e.mu.Unlock()

	if err := e.store.Apply(plan, image); err != nil {
		e.mu.Lock()
		e.tracker.Requeue()
		e.mu.Unlock()
		e.met.RecordError("flush")
		return err
	}

	pages := len(plan.Pages)
	if plan.Full {
		pages = len(image) / types.PageSize
	}
	e.met.RecordFlush(plan.Full, pages)
	e.log.Debug("state flushed", "full", plan.Full, "pages", pages)
	return nil
}

// snapshot copies the current state for encoding. The caller holds mu.
func (e *Engine) snapshot() *persistence.State {
	s := e.agg.Snapshot()
	return &persistence.State{
		Config: e.table.Config(),
		Idle:   s.Device,
		Stats:  s.Zones,
		Zones:  e.table.Zones(),
	}
}
