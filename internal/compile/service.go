// Package compile runs one compilation request end to end: stage the upload
// in its own directory, invoke the compiler, collect its artifacts, apply the
// partial-failure policy and schedule cleanup once the response is out.
package compile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"stcgate/internal/artifact"
	"stcgate/internal/cleanup"
	"stcgate/internal/collect"
	"stcgate/internal/config"
	"stcgate/internal/invoke"
	"stcgate/internal/journal"
	"stcgate/internal/logging"
	"stcgate/internal/metrics"
	"stcgate/internal/workdir"
)

// Service owns the shared pieces every compilation uses.
type Service struct {
	cfg       config.Config
	files     artifact.Files
	invoker   *invoke.Invoker
	collector *collect.Collector
	cleanup   *cleanup.Coordinator
	slots     *semaphore.Weighted
	journal   journal.Store
	metrics   *metrics.Metrics
}

// New builds a Service. journal and metrics may be nil.
func New(cfg config.Config, j journal.Store, m *metrics.Metrics) *Service {
	files := artifact.Files{
		Tokens:      cfg.Artifacts.Tokens,
		Diagnostics: cfg.Artifacts.Diagnostics,
		Tree:        cfg.Artifacts.Tree,
		Code:        cfg.Artifacts.Code,
	}
	return &Service{
		cfg:       cfg,
		files:     files,
		invoker:   invoke.New(cfg.Compiler),
		collector: &collect.Collector{Files: files, Barrier: collect.ReadBarrier(cfg.Compiler)},
		cleanup:   cleanup.New(collect.ReleaseBarrier(cfg.Compiler)),
		slots:     semaphore.NewWeighted(cfg.MaxConcurrent),
		journal:   j,
		metrics:   m,
	}
}

// Compilation is one staged request. Run it once, then Close it after the
// response has been written.
type Compilation struct {
	ID       string
	Filename string

	svc     *Service
	dir     *workdir.Dir
	source  string
	started time.Time
	logger  *slog.Logger

	mu    sync.Mutex
	phase Phase
	once  sync.Once
}

// Stage allocates a request directory and writes src into it.
func (s *Service) Stage(ctx context.Context, filename string, src io.Reader) (*Compilation, error) {
	if err := ctx.Err(); err != nil {
		return nil, &Error{Kind: KindTransport, Err: err}
	}
	dir, err := workdir.Create(s.cfg.WorkDir)
	if err != nil {
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	c := &Compilation{
		ID:       dir.ID,
		Filename: workdir.SanitizeName(filename),
		svc:      s,
		dir:      dir,
		started:  time.Now(),
		logger:   logging.ForRequest("compile", dir.ID),
	}
	c.source, err = dir.Stage(filename, src)
	if err != nil {
		_ = dir.Remove()
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			return nil, &Error{Kind: KindPayloadTooLarge, Err: err}
		}
		return nil, fmt.Errorf("stage upload: %w", err)
	}
	c.logger.Info("source staged", "filename", c.Filename)
	return c, nil
}

// Phase reports the current lifecycle phase.
func (c *Compilation) Phase() Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

func (c *Compilation) enter(p Phase) {
	c.mu.Lock()
	c.phase = p
	c.mu.Unlock()
	c.logger.Debug("phase", "phase", p.String())
}

// Run invokes the compiler and assembles the bundle. A non-nil error is a
// *Error whose Kind selects the response status; its detail is logged here
// and must not reach the client.
func (c *Compilation) Run(ctx context.Context) (*artifact.Bundle, error) {
	s := c.svc
	if err := s.slots.Acquire(ctx, 1); err != nil {
		return nil, &Error{Kind: KindTransport, Err: fmt.Errorf("wait for compiler slot: %w", err)}
	}
	c.enter(PhaseInvoking)
	done := s.metrics.Started()
	inv, err := s.invoker.Run(ctx, c.source, c.dir.OutputDir())
	done()
	s.slots.Release(1)

	if err != nil {
		c.enter(PhaseRespondingError)
		kind, outcome := KindInvocation, OutcomeInvocationFailure
		if errors.Is(err, invoke.ErrTimeout) {
			kind, outcome = KindTimeout, OutcomeTimeout
		}
		c.logger.Error("compiler invocation failed",
			"error", err, "command", inv.Command, "exit_code", inv.ExitCode,
			"stderr", inv.Stderr, "duration", inv.Duration)
		c.record(outcome, inv.ExitCode, nil)
		return nil, &Error{Kind: kind, Err: err}
	}

	c.enter(PhaseCollecting)
	res := s.collector.Collect(ctx, c.dir.OutputDir(), c.logger)
	for _, f := range res.Failures {
		s.metrics.ArtifactFailed(f.Artifact)
	}

	c.enter(PhaseDeciding)
	bundle := res.Bundle
	if bundle.HasErrors() {
		bundle.Tree, bundle.Code = nil, nil
	}
	if inv.Stderr != "" {
		bundle.ToolError = inv.Stderr
		c.logger.Warn("compiler complained on a successful run", "stderr_bytes", len(inv.Stderr))
	}

	outcome := OutcomeOf(bundle)
	c.enter(PhaseResponding)
	c.record(outcome, inv.ExitCode, bundle)
	c.logger.Info("compilation finished", "outcome", string(outcome),
		"tokens", bundle.TokenCount(), "diagnostics", bundle.DiagnosticCount(), "duration", inv.Duration)
	return bundle, nil
}

func (c *Compilation) record(outcome Outcome, exitCode int, b *artifact.Bundle) {
	elapsed := time.Since(c.started)
	c.svc.metrics.Observe(string(outcome), elapsed)
	if c.svc.journal == nil {
		return
	}
	e := &journal.Entry{
		RequestID: c.ID,
		Filename:  c.Filename,
		StartedAt: c.started,
		Duration:  elapsed,
		Outcome:   string(outcome),
		ExitCode:  exitCode,
	}
	if b != nil {
		e.TokenCount = b.TokenCount()
		e.DiagnosticCount = b.DiagnosticCount()
	}
	if _, err := c.svc.journal.Record(e); err != nil {
		c.logger.Warn("journal record failed", "error", err)
	}
}

// Close schedules removal of the staged input and every output artifact.
// Call it after the response has been flushed; it returns immediately and
// is safe to call more than once.
func (c *Compilation) Close() {
	c.once.Do(func() {
		c.enter(PhaseCleaningUp)
		outputs := c.svc.files.All()
		if m := c.svc.cfg.Compiler.DoneMarker; m != "" {
			outputs = append(outputs, m)
		}
		c.svc.cleanup.Release(c.dir, outputs, c.logger)
	})
}

// Compile stages, runs and closes in one call, for callers with no response
// to flush first.
func (s *Service) Compile(ctx context.Context, filename string, src io.Reader) (*artifact.Bundle, error) {
	c, err := s.Stage(ctx, filename, src)
	if err != nil {
		return nil, err
	}
	defer c.Close()
	return c.Run(ctx)
}

// Wait blocks until every scheduled cleanup has finished or ctx ends.
func (s *Service) Wait(ctx context.Context) error {
	return s.cleanup.Wait(ctx)
}
