package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"stcgate/internal/journal"
)

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("Default().Validate(): %v", err)
	}
}

func TestDefault_JournalIsPersistent(t *testing.T) {
	if got := Default().JournalPath; got != journal.DefaultDBPath {
		t.Errorf("JournalPath = %q, want %q so history sees what serve records", got, journal.DefaultDBPath)
	}
	cfg, err := Load([]byte("journal_path: \"\"\n"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.JournalPath != "" {
		t.Errorf("explicit empty journal_path not kept: %q", cfg.JournalPath)
	}
}

func TestLoad_OverridesDefaults(t *testing.T) {
	yml := `
listen: ":8080"
max_concurrent: 2
compiler:
  executable: /opt/stc/compiladorStC
  timeout: 5s
  done_marker: listo
artifacts:
  tree: arbol.json
`
	cfg, err := Load([]byte(yml))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	want := Default()
	want.Listen = ":8080"
	want.MaxConcurrent = 2
	want.Compiler.Executable = "/opt/stc/compiladorStC"
	want.Compiler.Timeout = 5 * time.Second
	want.Compiler.DoneMarker = "listo"
	want.Artifacts.Tree = "arbol.json"

	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		yml  string
		want string
	}{
		{"zero timeout", "compiler:\n  timeout: 0s\n", "compiler.timeout"},
		{"empty artifact", "artifacts:\n  code: \"\"\n", "artifacts"},
		{"no concurrency", "max_concurrent: 0\n", "max_concurrent"},
		{"bad yaml", "listen: [\n", "parse config yaml"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load([]byte(tt.yml))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("error %q does not mention %q", err, tt.want)
			}
		})
	}
}

func TestLoadFromPath_MissingDefaultIsFine(t *testing.T) {
	dir := t.TempDir()
	wd, _ := os.Getwd()
	if err := os.Chdir(dir); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := LoadFromPath(DefaultPath)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Listen != ":3000" {
		t.Errorf("Listen = %q, want default", cfg.Listen)
	}
}

func TestLoadFromPath_MissingExplicitFails(t *testing.T) {
	_, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config")
	}
}
