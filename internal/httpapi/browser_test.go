//go:build e2e

package httpapi_test

import (
	"context"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/chromedp/chromedp"

	"stcgate/internal/compile"
	"stcgate/internal/config"
	"stcgate/internal/fakecompiler"
	"stcgate/internal/httpapi"
	"stcgate/internal/journal"
)

func TestBrowser_UploadFormShowsErrors(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	dir := t.TempDir()
	cfg := config.Default()
	cfg.WorkDir = filepath.Join(dir, "trabajo")
	cfg.Compiler = fakecompiler.Compiler()
	svc := compile.New(cfg, journal.NewMemStore(), nil)
	ts := httptest.NewServer(httpapi.New(cfg, svc, nil, nil).Handler())
	defer ts.Close()

	src := filepath.Join(dir, "roto.stc")
	if err := os.WriteFile(src, []byte("entero x = ;\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-sandbox", true),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, opts...)
	defer allocCancel()

	browserCtx, browserCancel := chromedp.NewContext(allocCtx)
	defer browserCancel()

	t.Run("form loads", func(t *testing.T) {
		var title string
		err := chromedp.Run(browserCtx,
			chromedp.Navigate(ts.URL),
			chromedp.WaitReady("#compilar", chromedp.ByID),
			chromedp.Title(&title),
		)
		if err != nil {
			t.Fatalf("chromedp: %v", err)
		}
		if title != "Compilador StC" {
			t.Errorf("title = %q", title)
		}
	})

	t.Run("upload renders the error table", func(t *testing.T) {
		var errores, page string
		err := chromedp.Run(browserCtx,
			chromedp.Navigate(ts.URL),
			chromedp.WaitReady("#archivo", chromedp.ByID),
			chromedp.SetUploadFiles("#archivo", []string{src}, chromedp.ByID),
			chromedp.Click("#compilar button", chromedp.ByQuery),
			chromedp.WaitVisible("#errores", chromedp.ByID),
			chromedp.Text("#errores", &errores, chromedp.ByID),
			chromedp.OuterHTML("main", &page, chromedp.ByQuery),
		)
		if err != nil {
			t.Fatalf("chromedp: %v", err)
		}
		if !strings.Contains(errores, "1:12") {
			t.Errorf("#errores lacks the diagnostic position: %q", errores)
		}
		if strings.Contains(page, `id="arbol"`) && strings.Contains(page, "Programa") {
			t.Error("tree must be withheld when the program has errors")
		}
	})

	waitCtx, waitCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer waitCancel()
	_ = svc.Wait(waitCtx)
}
