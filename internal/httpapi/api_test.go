package httpapi_test

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"stcgate/internal/artifact"
	"stcgate/internal/compile"
	"stcgate/internal/config"
	"stcgate/internal/fakecompiler"
	"stcgate/internal/httpapi"
	"stcgate/internal/journal"
	"stcgate/internal/metrics"
)

type gateway struct {
	url  string
	svc  *compile.Service
	cfg  config.Config
	root string
}

func newGateway(tweak func(*config.Config)) *gateway {
	dir := ginkgo.GinkgoT().TempDir()
	cfg := config.Default()
	cfg.WorkDir = filepath.Join(dir, "trabajo")
	cfg.ManualPath = filepath.Join(dir, "manual", "manual.pdf")
	cfg.Compiler = fakecompiler.Compiler()
	if tweak != nil {
		tweak(&cfg)
	}
	gomega.Expect(os.MkdirAll(cfg.WorkDir, 0o755)).To(gomega.Succeed())

	j := journal.NewMemStore()
	m := metrics.New()
	svc := compile.New(cfg, j, m)
	ts := httptest.NewServer(httpapi.New(cfg, svc, j, m).Handler())
	ginkgo.DeferCleanup(ts.Close)
	return &gateway{url: ts.URL, svc: svc, cfg: cfg, root: cfg.WorkDir}
}

func (g *gateway) post(path, field, filename, src string) (*http.Response, []byte) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		gomega.Expect(err).To(gomega.Succeed())
		_, err = io.WriteString(fw, src)
		gomega.Expect(err).To(gomega.Succeed())
	} else {
		gomega.Expect(mw.WriteField("otro", "valor")).To(gomega.Succeed())
	}
	gomega.Expect(mw.Close()).To(gomega.Succeed())

	resp, err := http.Post(g.url+path, mw.FormDataContentType(), &body)
	gomega.Expect(err).To(gomega.Succeed())
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	gomega.Expect(err).To(gomega.Succeed())
	return resp, data
}

func (g *gateway) compile(src string) (*http.Response, map[string]json.RawMessage) {
	resp, data := g.post("/compilar", "archivo", "prog.stc", src)
	var out map[string]json.RawMessage
	gomega.Expect(json.Unmarshal(data, &out)).To(gomega.Succeed(), string(data))
	return resp, out
}

func (g *gateway) get(path string) (*http.Response, []byte) {
	resp, err := http.Get(g.url + path)
	gomega.Expect(err).To(gomega.Succeed())
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	gomega.Expect(err).To(gomega.Succeed())
	return resp, data
}

// drained waits for every scheduled cleanup and reports what is left under the work root.
func (g *gateway) drained() []os.DirEntry {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	gomega.Expect(g.svc.Wait(ctx)).To(gomega.Succeed())
	entries, err := os.ReadDir(g.root)
	gomega.Expect(err).To(gomega.Succeed())
	return entries
}

func decode[T any](raw json.RawMessage) T {
	var v T
	gomega.Expect(json.Unmarshal(raw, &v)).To(gomega.Succeed())
	return v
}

var _ = ginkgo.Describe("POST /compilar", func() {
	var g *gateway
	ginkgo.BeforeEach(func() { g = newGateway(nil) })

	ginkgo.It("reports diagnostics and withholds tree and code (scenario A)", func() {
		resp, out := g.compile("int x = ;")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))
		gomega.Expect(resp.Header.Get("X-Request-ID")).NotTo(gomega.BeEmpty())

		diags := decode[[]artifact.Diagnostic](out["tablaErrores"])
		gomega.Expect(diags).To(gomega.Equal([]artifact.Diagnostic{
			{Line: 1, Column: 9, Kind: "SyntaxError", Message: "expected expression"},
		}))
		gomega.Expect(out).NotTo(gomega.HaveKey("arbol"))
		gomega.Expect(out).NotTo(gomega.HaveKey("codigoCompilado"))
		gomega.Expect(out).To(gomega.HaveKey("tablaTokens"))
		gomega.Expect(g.drained()).To(gomega.BeEmpty())
	})

	ginkgo.It("returns tree and code for a clean program (scenario B)", func() {
		resp, out := g.compile("int main(){return 0;}")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))

		tree := decode[artifact.TreeNode](out["arbol"])
		gomega.Expect(tree.Kind).To(gomega.Equal("Programa"))
		gomega.Expect(decode[string](out["codigoCompilado"])).NotTo(gomega.BeEmpty())
		gomega.Expect(decode[[]artifact.Diagnostic](out["tablaErrores"])).To(gomega.BeEmpty())
		gomega.Expect(out).NotTo(gomega.HaveKey("compiladorError"))
	})

	ginkgo.It("answers 500 with a generic message when the compiler exits non-zero", func() {
		resp, data := g.post("/compilar", "archivo", "prog.stc", "#falla")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(string(data)).To(gomega.MatchJSON(`{"error":"Error al ejecutar el compilador"}`))
		gomega.Expect(string(data)).NotTo(gomega.ContainSubstring(fakecompiler.CrashMessage))
		gomega.Expect(g.drained()).To(gomega.BeEmpty())
	})

	ginkgo.It("carries stderr verbatim when the compiler complains but succeeds", func() {
		resp, out := g.compile("#queja\nint main(){return 0;}")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))
		gomega.Expect(decode[string](out["compiladorError"])).To(gomega.Equal(fakecompiler.Complaint))
		gomega.Expect(out).To(gomega.HaveKey("arbol"))
	})

	ginkgo.It("withholds tree and code written alongside diagnostics", func() {
		_, out := g.compile("#huerfanos\nint x = ;")
		gomega.Expect(out).To(gomega.HaveKey("tablaErrores"))
		gomega.Expect(out).NotTo(gomega.HaveKey("arbol"))
		gomega.Expect(out).NotTo(gomega.HaveKey("codigoCompilado"))
	})

	ginkgo.It("drops only the artifact that is malformed", func() {
		resp, out := g.compile("#arbol-roto\nint main(){return 0;}")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))
		gomega.Expect(out).NotTo(gomega.HaveKey("arbol"))
		gomega.Expect(out).To(gomega.HaveKey("codigoCompilado"))
		gomega.Expect(out).To(gomega.HaveKey("tablaTokens"))
	})

	ginkgo.It("rejects a request without the upload field before invoking", func() {
		resp, data := g.post("/compilar", "", "", "")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusBadRequest))
		gomega.Expect(string(data)).To(gomega.MatchJSON(fmt.Sprintf(`{"error":%q}`, compile.MsgNoFile)))
		gomega.Expect(resp.Header.Get("X-Request-ID")).To(gomega.BeEmpty())
		gomega.Expect(g.drained()).To(gomega.BeEmpty())
	})

	ginkgo.It("does not contaminate a resubmission with the previous run's artifacts", func() {
		_, first := g.compile("int x = ;")
		gomega.Expect(first).NotTo(gomega.HaveKey("arbol"))
		gomega.Expect(g.drained()).To(gomega.BeEmpty())

		_, second := g.compile("int main(){return 0;}")
		gomega.Expect(decode[[]artifact.Diagnostic](second["tablaErrores"])).To(gomega.BeEmpty())
		gomega.Expect(second).To(gomega.HaveKey("arbol"))
	})

	ginkgo.It("keeps concurrent compilations apart", func() {
		const n = 6
		var wg sync.WaitGroup
		results := make([]map[string]json.RawMessage, n)
		for i := range n {
			wg.Add(1)
			go func() {
				defer wg.Done()
				defer ginkgo.GinkgoRecover()
				src := fmt.Sprintf("int v%d = %d;", i, i)
				if i%2 == 1 {
					src = fmt.Sprintf("int v%d = ;", i)
				}
				_, results[i] = g.compile(src)
			}()
		}
		wg.Wait()
		for i, out := range results {
			toks := decode[[]artifact.Token](out["tablaTokens"])
			gomega.Expect(toks[1].Lexeme).To(gomega.Equal(fmt.Sprintf("v%d", i)))
			if i%2 == 1 {
				gomega.Expect(out).NotTo(gomega.HaveKey("arbol"))
			} else {
				gomega.Expect(out).To(gomega.HaveKey("arbol"))
			}
		}
		gomega.Expect(g.drained()).To(gomega.BeEmpty())
	})

	ginkgo.It("answers 405 to other methods", func() {
		resp, _ := g.get("/compilar")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusMethodNotAllowed))
	})
})

var _ = ginkgo.Describe("limits", func() {
	ginkgo.It("kills a compiler that outlives its deadline and answers 504", func() {
		g := newGateway(func(c *config.Config) { c.Compiler.Timeout = 300 * time.Millisecond })
		start := time.Now()
		resp, data := g.post("/compilar", "archivo", "lento.stc", "#duerme")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusGatewayTimeout))
		gomega.Expect(string(data)).To(gomega.MatchJSON(fmt.Sprintf(`{"error":%q}`, compile.MsgTimeout)))
		gomega.Expect(time.Since(start)).To(gomega.BeNumerically("<", 5*time.Second))
		gomega.Expect(g.drained()).To(gomega.BeEmpty())
	})

	ginkgo.It("answers 413 to an oversized upload", func() {
		g := newGateway(func(c *config.Config) { c.MaxUploadBytes = 512 })
		resp, data := g.post("/compilar", "archivo", "grande.stc", strings.Repeat("entero x = 1;\n", 200))
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusRequestEntityTooLarge))
		gomega.Expect(string(data)).To(gomega.MatchJSON(fmt.Sprintf(`{"error":%q}`, compile.MsgTooLarge)))
	})

	ginkgo.It("waits for the done marker when one is configured", func() {
		g := newGateway(func(c *config.Config) { c.Compiler = fakecompiler.WithMarker(c.Compiler, "listo") })
		_, out := g.compile("int main(){return 0;}")
		gomega.Expect(out).To(gomega.HaveKey("arbol"))
		gomega.Expect(g.drained()).To(gomega.BeEmpty())
	})
})

var _ = ginkgo.Describe("POST /ver", func() {
	ginkgo.It("renders the result page", func() {
		g := newGateway(nil)
		resp, data := g.post("/ver", "archivo", "prog.stc", "int x = ;")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))
		gomega.Expect(resp.Header.Get("Content-Type")).To(gomega.HavePrefix("text/html"))
		page := string(data)
		gomega.Expect(page).To(gomega.ContainSubstring(`id="errores"`))
		gomega.Expect(page).To(gomega.ContainSubstring("expected expression"))
		gomega.Expect(page).To(gomega.ContainSubstring("prog.stc"))
	})

	ginkgo.It("shows the generic message with the error status", func() {
		g := newGateway(nil)
		resp, data := g.post("/ver", "archivo", "prog.stc", "#falla")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusInternalServerError))
		gomega.Expect(string(data)).To(gomega.ContainSubstring(compile.MsgCompilerFail))
		gomega.Expect(string(data)).NotTo(gomega.ContainSubstring(fakecompiler.CrashMessage))
	})
})

var _ = ginkgo.Describe("supporting routes", func() {
	var g *gateway
	ginkgo.BeforeEach(func() { g = newGateway(nil) })

	ginkgo.It("serves the upload form and stylesheet", func() {
		resp, data := g.get("/")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))
		gomega.Expect(string(data)).To(gomega.ContainSubstring(`name="archivo"`))

		resp, _ = g.get("/static/estilo.css")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("answers 404 JSON when the manual is absent", func() {
		resp, data := g.get("/descargar-manual")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusNotFound))
		gomega.Expect(string(data)).To(gomega.MatchJSON(`{"error":"Manual no encontrado"}`))
	})

	ginkgo.It("serves the manual as an attachment", func() {
		gomega.Expect(os.MkdirAll(filepath.Dir(g.cfg.ManualPath), 0o755)).To(gomega.Succeed())
		gomega.Expect(os.WriteFile(g.cfg.ManualPath, []byte("%PDF-1.4 manual"), 0o644)).To(gomega.Succeed())
		resp, data := g.get("/descargar-manual")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))
		gomega.Expect(resp.Header.Get("Content-Disposition")).To(gomega.Equal(`attachment; filename="manual.pdf"`))
		gomega.Expect(string(data)).To(gomega.Equal("%PDF-1.4 manual"))
	})

	ginkgo.It("lists recent compilations newest first", func() {
		g.compile("int main(){return 0;}")
		g.compile("int x = ;")
		resp, data := g.get("/compilaciones?limite=5")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))
		var entries []journal.Entry
		gomega.Expect(json.Unmarshal(data, &entries)).To(gomega.Succeed())
		gomega.Expect(entries).To(gomega.HaveLen(2))
		gomega.Expect(entries[0].Outcome).To(gomega.Equal("diagnostics"))
		gomega.Expect(entries[1].Outcome).To(gomega.Equal("ok"))

		resp, _ = g.get("/compilaciones?limite=abc")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusBadRequest))
	})

	ginkgo.It("exposes metrics and health", func() {
		g.compile("int main(){return 0;}")
		_, data := g.get("/metrics")
		gomega.Expect(string(data)).To(gomega.ContainSubstring(`stcgate_compilations_total{outcome="ok"} 1`))

		resp, data := g.get("/healthz")
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusOK))
		gomega.Expect(string(data)).To(gomega.Equal("OK\n"))
	})

	ginkgo.It("answers CORS preflight", func() {
		req, err := http.NewRequest(http.MethodOptions, g.url+"/compilar", nil)
		gomega.Expect(err).To(gomega.Succeed())
		req.Header.Set("Origin", "http://localhost:5500")
		req.Header.Set("Access-Control-Request-Method", "POST")
		resp, err := http.DefaultClient.Do(req)
		gomega.Expect(err).To(gomega.Succeed())
		resp.Body.Close()
		gomega.Expect(resp.StatusCode).To(gomega.Equal(http.StatusNoContent))
		gomega.Expect(resp.Header.Get("Access-Control-Allow-Origin")).To(gomega.Equal("*"))
	})
})
