// Package collect reads the artifacts a compiler run left in its output
// directory. Each artifact is read independently; one that is missing or
// malformed is dropped from the bundle without affecting the others.
package collect

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"golang.org/x/sync/errgroup"

	"stcgate/internal/artifact"
)

// Artifact names used in failures, logs and metrics.
const (
	Tokens      = "tokens"
	Diagnostics = "diagnostics"
	Tree        = "tree"
	Code        = "code"
)

// Failure is one artifact that could not be read or parsed.
type Failure struct {
	Artifact string
	Err      error
}

func (f Failure) Error() string { return f.Artifact + ": " + f.Err.Error() }

// Result is the collected bundle plus the artifacts that degraded.
type Result struct {
	Bundle   *artifact.Bundle
	Failures []Failure
	// Withheld is true when tree and code were not read because diagnostics exist.
	Withheld bool
}

// Collector reads artifacts from a compiler output directory.
type Collector struct {
	Files   artifact.Files
	Barrier Barrier
}

// Collect reads tokens, then diagnostics, then (only when diagnostics are
// absent or empty) tree and code. It never fails as a whole.
func (c *Collector) Collect(ctx context.Context, dir string, logger *slog.Logger) *Result {
	res := &Result{Bundle: &artifact.Bundle{}}
	fail := func(name string, err error) {
		logger.Warn("artifact degraded", "artifact", name, "error", err)
		res.Failures = append(res.Failures, Failure{Artifact: name, Err: err})
	}

	if c.Barrier != nil {
		if err := c.Barrier.Wait(ctx, dir); err != nil {
			logger.Warn("completion barrier not reached; collecting anyway", "error", err)
		}
	}

	if data, err := readArtifact(dir, c.Files.Tokens); err != nil {
		fail(Tokens, err)
	} else if toks, err := artifact.DecodeTokens(data); err != nil {
		fail(Tokens, err)
	} else {
		res.Bundle.Tokens = &toks
	}

	// The compiler writes diagnostics only when it found some.
	data, err := readArtifact(dir, c.Files.Diagnostics)
	switch {
	case errors.Is(err, os.ErrNotExist):
		empty := artifact.DiagnosticTable{}
		res.Bundle.Diagnostics = &empty
	case err != nil:
		fail(Diagnostics, err)
	default:
		// An unparseable table degrades only itself: tree and code are
		// withheld for diagnostics that were read, not for ones that were not.
		if diags, err := artifact.DecodeDiagnostics(data); err != nil {
			fail(Diagnostics, err)
		} else {
			res.Bundle.Diagnostics = &diags
		}
	}

	if res.Bundle.HasErrors() {
		res.Withheld = true
		logger.Info("diagnostics found; tree and code withheld", "diagnostics", res.Bundle.DiagnosticCount())
		return res
	}

	var (
		g                errgroup.Group
		tree             *artifact.TreeNode
		code             string
		treeErr, codeErr error
	)
	g.Go(func() error {
		data, err := readArtifact(dir, c.Files.Tree)
		if err != nil {
			treeErr = err
			return nil
		}
		tree, treeErr = artifact.DecodeTree(data)
		return nil
	})
	g.Go(func() error {
		data, err := readArtifact(dir, c.Files.Code)
		if err != nil {
			codeErr = err
			return nil
		}
		code = string(data)
		return nil
	})
	_ = g.Wait()

	if treeErr != nil {
		fail(Tree, treeErr)
	} else {
		res.Bundle.Tree = tree
	}
	if codeErr != nil {
		fail(Code, codeErr)
	} else {
		res.Bundle.Code = &code
	}
	return res
}

func readArtifact(dir, name string) ([]byte, error) {
	data, err := os.ReadFile(filepath.Join(dir, name))
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
