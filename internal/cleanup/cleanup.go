// Package cleanup removes a request's staged input and compiler outputs once
// its response has gone out. Removal is best-effort and never reported to
// the client.
package cleanup

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"

	"stcgate/internal/collect"
	"stcgate/internal/workdir"
)

// Coordinator runs deferred cleanups in the background and lets shutdown
// wait for the ones still pending.
type Coordinator struct {
	barrier collect.Barrier
	wg      sync.WaitGroup
}

// New returns a Coordinator that awaits release before deleting outputs.
func New(release collect.Barrier) *Coordinator {
	return &Coordinator{barrier: release}
}

// Release schedules removal of dir: the named output artifacts first, then
// the whole request directory with the staged input. It does not block.
func (c *Coordinator) Release(dir *workdir.Dir, outputs []string, logger *slog.Logger) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		c.run(dir, outputs, logger)
	}()
}

func (c *Coordinator) run(dir *workdir.Dir, outputs []string, logger *slog.Logger) {
	if c.barrier != nil {
		_ = c.barrier.Wait(context.Background(), dir.OutputDir())
	}
	removed := 0
	for _, name := range outputs {
		err := os.Remove(dir.Output(name))
		switch {
		case err == nil:
			removed++
		case errors.Is(err, os.ErrNotExist):
			logger.Debug("output already gone", "artifact", name)
		default:
			logger.Warn("remove output failed", "artifact", name, "error", err)
		}
	}
	if err := dir.Remove(); err != nil {
		logger.Warn("remove request dir failed", "dir", dir.Root, "error", err)
		return
	}
	logger.Debug("request cleaned up", "outputs_removed", removed)
}

// Wait blocks until every scheduled cleanup has finished or ctx ends.
func (c *Coordinator) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		c.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
