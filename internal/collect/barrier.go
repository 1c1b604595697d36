package collect

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"stcgate/internal/config"
)

// ErrMarkerMissing is returned when the done marker did not appear in time.
var ErrMarkerMissing = errors.New("done marker not written")

const defaultPoll = 20 * time.Millisecond

// Barrier decides when a compiler's output directory is safe to touch.
type Barrier interface {
	Wait(ctx context.Context, dir string) error
}

// MarkerBarrier waits for a file the compiler writes after every artifact.
type MarkerBarrier struct {
	Name    string
	Timeout time.Duration
	Poll    time.Duration
}

// Wait polls dir for the marker until it exists, the timeout passes, or ctx ends.
func (b MarkerBarrier) Wait(ctx context.Context, dir string) error {
	path := filepath.Join(dir, b.Name)
	poll := b.Poll
	if poll <= 0 {
		poll = defaultPoll
	}
	deadline := time.NewTimer(b.Timeout)
	defer deadline.Stop()
	tick := time.NewTicker(poll)
	defer tick.Stop()

	for {
		if _, err := os.Stat(path); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-deadline.C:
			return fmt.Errorf("%w: %s after %s", ErrMarkerMissing, b.Name, b.Timeout)
		case <-tick.C:
		}
	}
}

// DelayBarrier sleeps a fixed settle time, for compilers that write no marker.
type DelayBarrier struct {
	Delay time.Duration
}

func (b DelayBarrier) Wait(ctx context.Context, _ string) error {
	if b.Delay <= 0 {
		return nil
	}
	t := time.NewTimer(b.Delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// ReadBarrier is awaited before artifacts are read: the marker when one is
// configured, otherwise nothing (the process has already exited).
func ReadBarrier(cfg config.Compiler) Barrier {
	if cfg.DoneMarker != "" {
		return MarkerBarrier{Name: cfg.DoneMarker, Timeout: cfg.BarrierTimeout}
	}
	return DelayBarrier{}
}

// ReleaseBarrier is awaited before outputs are deleted. With a marker the
// read barrier already proved the writes complete; without one the settle
// delay applies.
func ReleaseBarrier(cfg config.Compiler) Barrier {
	if cfg.DoneMarker != "" {
		return DelayBarrier{}
	}
	return DelayBarrier{Delay: cfg.SettleDelay}
}
