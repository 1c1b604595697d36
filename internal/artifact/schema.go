// Package artifact defines the canonical shape of everything the compiler
// hands back through its output directory, and the decoders that map the
// compiler's historical field spellings onto it.
package artifact

import (
	"encoding/json"
	"sort"
	"strings"
)

// Token is one row of the lexical table.
type Token struct {
	Line   int    `json:"linea"`
	Column int    `json:"columna"`
	Lexeme string `json:"lexema"`
	Class  string `json:"tipo"`
	Value  string `json:"valor,omitempty"`
}

// Diagnostic is a lexical, syntax or semantic error at a source position.
type Diagnostic struct {
	Line    int    `json:"linea"`
	Column  int    `json:"columna"`
	Kind    string `json:"tipo"`
	Message string `json:"descripcion"`
}

// TokenTable always encodes as a JSON array, never null.
type TokenTable []Token

func (t TokenTable) MarshalJSON() ([]byte, error) {
	if t == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Token(t))
}

// HasValues reports whether any row carries a literal value.
func (t TokenTable) HasValues() bool {
	for _, tok := range t {
		if tok.Value != "" {
			return true
		}
	}
	return false
}

// DiagnosticTable always encodes as a JSON array, never null.
type DiagnosticTable []Diagnostic

func (d DiagnosticTable) MarshalJSON() ([]byte, error) {
	if d == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]Diagnostic(d))
}

// TreeNode is one node of the syntax tree. Keys the schema does not name are
// kept in Attributes so new node kinds survive ingestion untouched.
type TreeNode struct {
	Kind       string            `json:"tipo"`
	Identifier string            `json:"identificador,omitempty"`
	DataType   string            `json:"tipoDato,omitempty"`
	Value      string            `json:"valor,omitempty"`
	Name       string            `json:"nombre,omitempty"`
	Arguments  []string          `json:"argumentos,omitempty"`
	Condition  string            `json:"condicion,omitempty"`
	Attributes map[string]string `json:"atributos,omitempty"`
	Children   []*TreeNode       `json:"hijos,omitempty"`
}

// Field is a labelled node attribute, in display order.
type Field struct {
	Key   string
	Value string
}

// Fields lists the node's non-empty attributes: the named ones first in a
// fixed order, then Attributes sorted by key. Renderers iterate this instead
// of knowing node kinds.
func (n *TreeNode) Fields() []Field {
	var out []Field
	add := func(k, v string) {
		if v != "" {
			out = append(out, Field{Key: k, Value: v})
		}
	}
	add("identificador", n.Identifier)
	add("tipoDato", n.DataType)
	add("valor", n.Value)
	add("nombre", n.Name)
	if len(n.Arguments) > 0 {
		add("argumentos", strings.Join(n.Arguments, ", "))
	}
	add("condicion", n.Condition)

	keys := make([]string, 0, len(n.Attributes))
	for k := range n.Attributes {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		add(k, n.Attributes[k])
	}
	return out
}

// Walk visits n and its descendants depth-first, pre-order. depth is 0 at n.
func (n *TreeNode) Walk(fn func(node *TreeNode, depth int)) {
	var visit func(*TreeNode, int)
	visit = func(node *TreeNode, depth int) {
		fn(node, depth)
		for _, c := range node.Children {
			visit(c, depth+1)
		}
	}
	visit(n, 0)
}

// Count returns the number of nodes in the subtree rooted at n.
func (n *TreeNode) Count() int {
	total := 0
	n.Walk(func(*TreeNode, int) { total++ })
	return total
}

// Bundle is the per-request response body. A nil field is absent: the
// compiler did not produce it, it could not be parsed, or policy withheld it.
type Bundle struct {
	Tokens      *TokenTable      `json:"tablaTokens,omitempty"`
	Diagnostics *DiagnosticTable `json:"tablaErrores,omitempty"`
	Tree        *TreeNode        `json:"arbol,omitempty"`
	Code        *string          `json:"codigoCompilado,omitempty"`
	ToolError   string           `json:"compiladorError,omitempty"`
}

// HasErrors reports whether the diagnostics table is present and non-empty.
func (b *Bundle) HasErrors() bool {
	return b.Diagnostics != nil && len(*b.Diagnostics) > 0
}

// TokenCount returns the number of tokens, 0 when the table is absent.
func (b *Bundle) TokenCount() int {
	if b.Tokens == nil {
		return 0
	}
	return len(*b.Tokens)
}

// DiagnosticCount returns the number of diagnostics, 0 when the table is absent.
func (b *Bundle) DiagnosticCount() int {
	if b.Diagnostics == nil {
		return 0
	}
	return len(*b.Diagnostics)
}

// Files names the artifacts inside a compiler output directory.
type Files struct {
	Tokens      string
	Diagnostics string
	Tree        string
	Code        string
}

// All returns every artifact name, in read order.
func (f Files) All() []string {
	return []string{f.Tokens, f.Diagnostics, f.Tree, f.Code}
}
