// Package config holds the gateway configuration: where the compiler lives,
// how long it may run, which artifacts it writes, and where requests are staged.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"stcgate/internal/journal"
)

// DefaultPath is the config file looked up when --config is not given.
const DefaultPath = "stcgate.yaml"

// Compiler describes the external compiler executable and its side channel.
type Compiler struct {
	// Executable is the compiler path. A name without extension gets the
	// platform suffix (".exe" on windows, ".out" elsewhere).
	Executable string        `yaml:"executable"`
	Args       []string      `yaml:"args,omitempty"` // placed before the staged source path
	Env        []string      `yaml:"env,omitempty"`  // KEY=VALUE pairs appended to the inherited env
	Timeout    time.Duration `yaml:"timeout"`

	// DoneMarker is written by the compiler last. Empty selects the legacy
	// settle delay instead of the marker barrier.
	DoneMarker     string        `yaml:"done_marker,omitempty"`
	BarrierTimeout time.Duration `yaml:"barrier_timeout"`
	SettleDelay    time.Duration `yaml:"settle_delay"`
}

// Artifacts are the file names the compiler writes into its working directory.
type Artifacts struct {
	Tokens      string `yaml:"tokens"`
	Diagnostics string `yaml:"diagnostics"`
	Tree        string `yaml:"tree"`
	Code        string `yaml:"code"`
}

// Log selects the slog handler.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Config is the full gateway configuration.
type Config struct {
	Listen         string    `yaml:"listen"`
	WorkDir        string    `yaml:"workdir"`
	ManualPath     string    `yaml:"manual_path"`
	MaxUploadBytes int64     `yaml:"max_upload_bytes"`
	MaxConcurrent  int64     `yaml:"max_concurrent"`
	JournalPath    string    `yaml:"journal_path"` // "" keeps the journal in memory
	Compiler       Compiler  `yaml:"compiler"`
	Artifacts      Artifacts `yaml:"artifacts"`
	Log            Log       `yaml:"log"`
}

// Default returns the configuration matching the stock compiladorStC build.
func Default() Config {
	return Config{
		Listen:         ":3000",
		WorkDir:        "trabajo",
		ManualPath:     "manual/manual.pdf",
		MaxUploadBytes: 1 << 20,
		MaxConcurrent:  4,
		JournalPath:    journal.DefaultDBPath,
		Compiler: Compiler{
			Executable:     "compiladorStC",
			Timeout:        30 * time.Second,
			BarrierTimeout: 2 * time.Second,
			SettleDelay:    250 * time.Millisecond,
		},
		Artifacts: Artifacts{
			Tokens:      "tokens.json",
			Diagnostics: "errores.json",
			Tree:        "ast.json",
			Code:        "salida.cpp",
		},
		Log: Log{Level: "info", Format: "text"},
	}
}

// LoadFromPath reads a YAML config file over Default. A missing file at
// DefaultPath is not an error; any other missing path is.
func LoadFromPath(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) && path == DefaultPath {
			return cfg, nil
		}
		return cfg, fmt.Errorf("read config: %w", err)
	}
	return Load(data)
}

// Load parses YAML config bytes over Default.
func Load(data []byte) (Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config yaml: %w", err)
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that would make compilation impossible.
func (c Config) Validate() error {
	switch {
	case c.Compiler.Executable == "":
		return errors.New("compiler.executable must be set")
	case c.Compiler.Timeout <= 0:
		return fmt.Errorf("compiler.timeout must be positive, got %s", c.Compiler.Timeout)
	case c.Compiler.BarrierTimeout < 0 || c.Compiler.SettleDelay < 0:
		return errors.New("compiler.barrier_timeout and compiler.settle_delay must not be negative")
	case c.Artifacts.Tokens == "" || c.Artifacts.Diagnostics == "" || c.Artifacts.Tree == "" || c.Artifacts.Code == "":
		return errors.New("artifacts: tokens, diagnostics, tree and code names are all required")
	case c.WorkDir == "":
		return errors.New("workdir must be set")
	case c.MaxConcurrent < 1:
		return fmt.Errorf("max_concurrent must be at least 1, got %d", c.MaxConcurrent)
	case c.MaxUploadBytes < 1:
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	return nil
}
