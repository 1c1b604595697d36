// Package fakecompiler is a stand-in for compiladorStC used by tests. A test
// binary calls MaybeRun first thing in TestMain; when re-executed with EnvVar
// set it behaves as the compiler instead of running tests.
//
// Behaviour is chosen by directives in the source text:
//
//	#falla        exit 3 with a crash message on stderr
//	#duerme       sleep far beyond any test deadline
//	#queja        complain on stderr but exit 0
//	#sin-tokens   do not write the tokens artifact
//	#tokens-rotos write a malformed tokens artifact
//	#arbol-roto   write a malformed tree artifact
//	#huerfanos    write diagnostics and also tree and code
//
// A line containing "= ;" yields a SyntaxError "expected expression".
package fakecompiler

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"stcgate/internal/config"
)

const (
	// EnvVar switches a test binary into compiler mode.
	EnvVar = "STCGATE_FAKE_COMPILER"
	// MarkerEnv names the done marker the fake writes last, if set.
	MarkerEnv = "STCGATE_FAKE_MARKER"

	// CrashMessage is what #falla prints on stderr.
	CrashMessage = "violación de segmento en generador"
	// Complaint is what #queja prints on stderr.
	Complaint = "aviso: optimizaciones deshabilitadas\n"
)

// MaybeRun turns the current process into the fake compiler when EnvVar is set.
func MaybeRun() {
	if os.Getenv(EnvVar) != "1" {
		return
	}
	os.Exit(Main(os.Args[1:], os.Stdout, os.Stderr))
}

// Compiler returns settings that re-execute the running binary as the fake.
func Compiler() config.Compiler {
	exe, err := os.Executable()
	if err != nil {
		exe = os.Args[0]
	}
	c := config.Default().Compiler
	c.Executable = exe
	c.Env = []string{EnvVar + "=1"}
	c.SettleDelay = 0
	return c
}

// WithMarker switches c to the done-marker barrier.
func WithMarker(c config.Compiler, marker string) config.Compiler {
	c.DoneMarker = marker
	c.Env = append(append([]string{}, c.Env...), MarkerEnv+"="+marker)
	return c
}

// Main runs the fake against args[len(args)-1] in the current directory.
func Main(args []string, stdout, stderr io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(stderr, "Error: falta la ruta del archivo")
		return 1
	}
	data, err := os.ReadFile(args[len(args)-1])
	if err != nil {
		fmt.Fprintf(stderr, "Error: No se pudo abrir el archivo '%s'.\n", args[len(args)-1])
		return 1
	}
	src := string(data)
	files := config.Default().Artifacts

	switch {
	case strings.Contains(src, "#falla"):
		fmt.Fprintln(stderr, CrashMessage)
		return 3
	case strings.Contains(src, "#duerme"):
		time.Sleep(10 * time.Minute)
		return 0
	}
	if strings.Contains(src, "#queja") {
		fmt.Fprint(stderr, Complaint)
	}

	switch {
	case strings.Contains(src, "#sin-tokens"):
	case strings.Contains(src, "#tokens-rotos"):
		write(files.Tokens, []byte(`{"tablaTokens": [`))
	default:
		writeJSON(files.Tokens, map[string]any{"tablaTokens": tokenize(src)})
	}
	fmt.Fprintln(stdout, "Analisis lexico completado!")

	diags := diagnose(src)
	if len(diags) > 0 {
		writeJSON(files.Diagnostics, map[string]any{"tablaErrores": diags})
	}
	if len(diags) == 0 || strings.Contains(src, "#huerfanos") {
		if strings.Contains(src, "#arbol-roto") {
			write(files.Tree, []byte(`{"tipo": "Programa", "declaraciones": [1]}`))
		} else {
			writeJSON(files.Tree, tree(src))
		}
		write(files.Code, []byte("// generado por compiladorStC\n"+src))
		fmt.Fprintln(stdout, "Codigo generado exitosamente en salida.cpp!")
	}

	if marker := os.Getenv(MarkerEnv); marker != "" {
		write(marker, nil)
	}
	return 0
}

var keywords = map[string]bool{
	"int": true, "return": true, "entero": true, "decimal": true, "si": true,
	"sino": true, "mientras": true, "configurar": true, "bucle_principal": true,
}

type token struct {
	Token   string `json:"token"`
	Tipo    string `json:"tipo"`
	Linea   int    `json:"linea"`
	Columna int    `json:"columna"`
}

func tokenize(src string) []token {
	var out []token
	for li, line := range strings.Split(src, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "#") {
			continue
		}
		runes := []rune(line)
		for i := 0; i < len(runes); {
			r := runes[i]
			switch {
			case unicode.IsSpace(r):
				i++
			case unicode.IsLetter(r) || r == '_':
				j := i
				for j < len(runes) && (unicode.IsLetter(runes[j]) || unicode.IsDigit(runes[j]) || runes[j] == '_') {
					j++
				}
				word := string(runes[i:j])
				class := "IDENTIFICADOR"
				if keywords[word] {
					class = "PALABRA_RESERVADA"
				}
				out = append(out, token{word, class, li + 1, i + 1})
				i = j
			case unicode.IsDigit(r):
				j := i
				for j < len(runes) && unicode.IsDigit(runes[j]) {
					j++
				}
				out = append(out, token{string(runes[i:j]), "NUMERO", li + 1, i + 1})
				i = j
			default:
				out = append(out, token{string(r), "SIMBOLO", li + 1, i + 1})
				i++
			}
		}
	}
	return out
}

type diagnostic struct {
	Mensaje string `json:"mensaje"`
	Linea   int    `json:"linea"`
	Columna int    `json:"columna"`
	Tipo    string `json:"tipo"`
}

func diagnose(src string) []diagnostic {
	var out []diagnostic
	for li, line := range strings.Split(src, "\n") {
		if idx := strings.Index(line, "= ;"); idx >= 0 {
			out = append(out, diagnostic{
				Mensaje: "expected expression",
				Linea:   li + 1,
				Columna: len([]rune(line[:idx])) + 3,
				Tipo:    "SyntaxError",
			})
		}
	}
	return out
}

func tree(src string) map[string]any {
	var decls []map[string]any
	for _, line := range strings.Split(src, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		decls = append(decls, map[string]any{"tipo": "SENTENCIA", "valor": line})
	}
	return map[string]any{"tipo": "Programa", "declaraciones": decls}
}

func writeJSON(name string, v any) {
	data, err := json.MarshalIndent(v, "", "    ")
	if err != nil {
		panic(err)
	}
	write(name, data)
}

func write(name string, data []byte) {
	if err := os.WriteFile(filepath.Clean(name), data, 0o644); err != nil {
		panic(err)
	}
}
