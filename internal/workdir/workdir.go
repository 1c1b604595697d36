// Package workdir gives every compilation request its own directory so
// concurrent compilations never share staging or output paths.
//
// Layout under the configured root:
//
//	<root>/<request-id>/entrada/<file>   staged source
//	<root>/<request-id>/salida/          compiler working directory (artifacts)
package workdir

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

const (
	inputDir  = "entrada"
	outputDir = "salida"

	// FallbackName is used when an upload carries no usable filename.
	FallbackName = "fuente.stc"
)

// Dir is one request's isolated working area.
type Dir struct {
	ID   string
	Root string // <root>/<id>
}

// Create allocates a fresh request directory with its input and output subdirectories.
func Create(root string) (*Dir, error) {
	id := uuid.NewString()
	d := &Dir{ID: id, Root: filepath.Join(root, id)}
	for _, sub := range []string{d.InputDir(), d.OutputDir()} {
		if err := os.MkdirAll(sub, 0o755); err != nil {
			return nil, fmt.Errorf("create request dir: %w", err)
		}
	}
	return d, nil
}

// InputDir holds the staged source file.
func (d *Dir) InputDir() string { return filepath.Join(d.Root, inputDir) }

// OutputDir is where the compiler runs and writes its artifacts.
func (d *Dir) OutputDir() string { return filepath.Join(d.Root, outputDir) }

// Output returns the path of an artifact inside OutputDir.
func (d *Dir) Output(name string) string { return filepath.Join(d.OutputDir(), name) }

// Stage writes src under InputDir using the sanitized filename and returns
// the absolute staged path. A second Stage with the same name overwrites.
func (d *Dir) Stage(filename string, src io.Reader) (string, error) {
	path := filepath.Join(d.InputDir(), SanitizeName(filename))
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve staged path: %w", err)
	}
	f, err := os.Create(abs)
	if err != nil {
		return "", fmt.Errorf("create staged file: %w", err)
	}
	if _, err := io.Copy(f, src); err != nil {
		_ = f.Close()
		return "", fmt.Errorf("write staged file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close staged file: %w", err)
	}
	return abs, nil
}

// Remove deletes the whole request directory. A directory that is already
// gone is not an error.
func (d *Dir) Remove() error {
	if err := os.RemoveAll(d.Root); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove request dir: %w", err)
	}
	return nil
}

// SanitizeName strips any directory part from an uploaded filename.
func SanitizeName(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	base := filepath.Base(filepath.FromSlash(name))
	switch base {
	case "", ".", "..", string(filepath.Separator):
		return FallbackName
	}
	return base
}
