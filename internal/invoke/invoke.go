// Package invoke runs the external compiler against one staged source file.
//
// The compiler reports structured results through files in its working
// directory. The invoker only captures its exit status and diagnostic
// stream (stderr).
package invoke

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"stcgate/internal/config"
	"stcgate/internal/logging"
)

// ErrTimeout marks an invocation killed because its deadline expired.
var ErrTimeout = errors.New("compiler deadline exceeded")

// waitDelay bounds how long Wait blocks on pipes held open by orphaned children.
const waitDelay = 2 * time.Second

// Invocation records one run of the compiler.
type Invocation struct {
	Command  string // quoted command line, for logs
	Dir      string
	ExitCode int // -1 when the process never exited normally
	Stdout   string
	Stderr   string // diagnostic stream
	Duration time.Duration
}

// Invoker runs the configured compiler executable.
type Invoker struct {
	Executable string
	Args       []string
	Env        []string
	Timeout    time.Duration
}

// New builds an Invoker from compiler settings, resolving the platform
// executable name.
func New(cfg config.Compiler) *Invoker {
	return &Invoker{
		Executable: resolve(ExecutableName(cfg.Executable, runtime.GOOS)),
		Args:       cfg.Args,
		Env:        cfg.Env,
		Timeout:    cfg.Timeout,
	}
}

// ExecutableName appends ".exe" on windows and ".out" elsewhere unless the
// name already carries an extension.
func ExecutableName(base, goos string) string {
	if filepath.Ext(base) != "" {
		return base
	}
	if goos == "windows" {
		return base + ".exe"
	}
	return base + ".out"
}

// resolve makes path-like executables absolute; the command runs from the
// request's output directory, where relative paths would not resolve.
func resolve(name string) string {
	if strings.ContainsAny(name, `/\`) {
		if abs, err := filepath.Abs(name); err == nil {
			return abs
		}
		return name
	}
	if info, err := os.Stat(name); err == nil && !info.IsDir() {
		if abs, err := filepath.Abs(name); err == nil {
			return abs
		}
	}
	return name
}

// Run executes `<executable> [args...] <sourcePath>` with dir as working
// directory and blocks until it exits or the deadline expires. The returned
// Invocation is always non-nil. A non-nil error means the run failed: the
// process could not start, exited non-zero, or timed out (ErrTimeout).
func (iv *Invoker) Run(ctx context.Context, sourcePath, dir string) (*Invocation, error) {
	logger := logging.New("invoke")
	timeout := iv.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	args := append(append([]string{}, iv.Args...), sourcePath)
	cmd := exec.CommandContext(ctx, iv.Executable, args...)
	cmd.Dir = dir
	if len(iv.Env) > 0 {
		cmd.Env = append(os.Environ(), iv.Env...)
	}
	configureCommandProcess(cmd)
	cmd.Cancel = func() error {
		terminateCommandProcess(cmd)
		return nil
	}
	cmd.WaitDelay = waitDelay

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	inv := &Invocation{
		Command:  CommandLine(iv.Executable, args),
		Dir:      dir,
		ExitCode: -1,
	}
	logger.Debug("starting compiler", "command", inv.Command, "dir", dir, "timeout", timeout)

	start := time.Now()
	err := cmd.Run()
	inv.Duration = time.Since(start)
	inv.Stdout = stdout.String()
	inv.Stderr = stderr.String()
	if cmd.ProcessState != nil {
		inv.ExitCode = cmd.ProcessState.ExitCode()
	}

	if errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return inv, fmt.Errorf("%w after %s", ErrTimeout, timeout)
	}
	if err != nil {
		return inv, fmt.Errorf("run compiler: %w", err)
	}
	logger.Debug("compiler exited", "exit_code", inv.ExitCode, "duration", inv.Duration,
		"stdout_bytes", len(inv.Stdout), "stderr_bytes", len(inv.Stderr))
	return inv, nil
}

// CommandLine renders argv as a single line, double-quoting arguments that
// contain spaces or quotes.
func CommandLine(exe string, args []string) string {
	parts := make([]string, 0, len(args)+1)
	for _, a := range append([]string{exe}, args...) {
		if a == "" || strings.ContainsAny(a, " \t\"") {
			a = `"` + strings.ReplaceAll(a, `"`, `\"`) + `"`
		}
		parts = append(parts, a)
	}
	return strings.Join(parts, " ")
}
