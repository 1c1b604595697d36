package cleanup

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"stcgate/internal/collect"
	"stcgate/internal/workdir"
)

func TestRelease_RemovesEverything(t *testing.T) {
	dir, err := workdir.Create(t.TempDir())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := dir.Stage("prog.stc", strings.NewReader("x")); err != nil {
		t.Fatalf("Stage: %v", err)
	}
	for _, name := range []string{"tokens.json", "salida.cpp"} {
		if err := os.WriteFile(dir.Output(name), []byte("{}"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))
	c := New(collect.DelayBarrier{})
	// errores.json and ast.json were never written: swallowed, logged.
	c.Release(dir, []string{"tokens.json", "errores.json", "ast.json", "salida.cpp"}, logger)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, err := os.Stat(dir.Root); !os.IsNotExist(err) {
		t.Errorf("request dir still present: %v", err)
	}
	if !strings.Contains(logs.String(), "output already gone") {
		t.Errorf("missing-file removal not logged:\n%s", logs.String())
	}
}

func TestRelease_DoesNotBlockCaller(t *testing.T) {
	dir, err := workdir.Create(t.TempDir())
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	c := New(collect.DelayBarrier{Delay: 200 * time.Millisecond})
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	start := time.Now()
	c.Release(dir, nil, logger)
	if time.Since(start) > 100*time.Millisecond {
		t.Fatal("Release blocked on the settle delay")
	}
	if _, err := os.Stat(dir.Root); err != nil {
		t.Fatalf("directory removed before settle delay elapsed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.Wait(ctx); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if _, err := os.Stat(dir.Root); !os.IsNotExist(err) {
		t.Errorf("request dir still present after Wait: %v", err)
	}
}
