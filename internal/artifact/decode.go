package artifact

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// Field spellings seen across compiler releases, first match wins.
var (
	tokenTableKeys      = []string{"tablaTokens", "tokens", "tabla_tokens"}
	diagnosticTableKeys = []string{"tablaErrores", "errores", "errors"}
	treeWrapperKeys     = []string{"arbol", "ast", "tree"}

	lineKeys    = []string{"linea", "line"}
	columnKeys  = []string{"columna", "column"}
	lexemeKeys  = []string{"lexema", "token", "lexeme", "nombre"}
	valueKeys   = []string{"valor", "value"}
	classKeys   = []string{"tipo", "clase", "class", "type"}
	kindKeys    = []string{"tipo", "kind", "type"}
	messageKeys = []string{"descripcion", "mensaje", "message", "description"}

	nodeIdentifierKeys = []string{"identificador", "identifier"}
	nodeDataTypeKeys   = []string{"tipoDato", "dataType"}
	nodeValueKeys      = []string{"valor", "value"}
	nodeNameKeys       = []string{"nombre", "name"}
	nodeArgumentKeys   = []string{"argumentos", "arguments"}
	nodeConditionKeys  = []string{"condicion", "condition"}
	nodeChildKeys      = []string{"hijos", "children", "declaraciones", "instrucciones"}
	nodeBranchKeys     = []string{"cuerpo", "sino"}
	nodeAttributesKey  = "atributos"
)

const maxTreeDepth = 512

var errTooDeep = fmt.Errorf("tree deeper than %d levels", maxTreeDepth)

// ErrNoTable is returned when a table artifact holds no recognizable table.
var ErrNoTable = errors.New("no table found")

// DecodeTokens parses a tokens artifact: a {tablaTokens: [...]} wrapper or a
// bare array. Elements may be objects or plain lexeme strings.
func DecodeTokens(data []byte) (TokenTable, error) {
	rows, err := tableRows(data, tokenTableKeys, false)
	if err != nil {
		return nil, fmt.Errorf("decode tokens: %w", err)
	}
	out := make(TokenTable, 0, len(rows))
	for i, row := range rows {
		switch v := row.(type) {
		case string:
			out = append(out, Token{Lexeme: v})
		case map[string]any:
			line, err := intField(v, lineKeys)
			if err != nil {
				return nil, fmt.Errorf("decode tokens: row %d: %w", i, err)
			}
			col, err := intField(v, columnKeys)
			if err != nil {
				return nil, fmt.Errorf("decode tokens: row %d: %w", i, err)
			}
			tok := Token{
				Line:   line,
				Column: col,
				Lexeme: stringField(v, lexemeKeys),
				Class:  stringField(v, classKeys),
				Value:  stringField(v, valueKeys),
			}
			// Rows that only carry a value use it as the lexeme.
			if _, named := pick(v, lexemeKeys); !named {
				tok.Lexeme, tok.Value = tok.Value, ""
			}
			out = append(out, tok)
		default:
			return nil, fmt.Errorf("decode tokens: row %d: unexpected %T", i, row)
		}
	}
	return out, nil
}

// DecodeDiagnostics parses a diagnostics artifact. A null document or an
// object without a table decodes to an empty table.
func DecodeDiagnostics(data []byte) (DiagnosticTable, error) {
	rows, err := tableRows(data, diagnosticTableKeys, true)
	if err != nil {
		return nil, fmt.Errorf("decode diagnostics: %w", err)
	}
	out := make(DiagnosticTable, 0, len(rows))
	for i, row := range rows {
		switch v := row.(type) {
		case string:
			out = append(out, Diagnostic{Message: v})
		case map[string]any:
			line, err := intField(v, lineKeys)
			if err != nil {
				return nil, fmt.Errorf("decode diagnostics: row %d: %w", i, err)
			}
			col, err := intField(v, columnKeys)
			if err != nil {
				return nil, fmt.Errorf("decode diagnostics: row %d: %w", i, err)
			}
			out = append(out, Diagnostic{
				Line:    line,
				Column:  col,
				Kind:    stringField(v, kindKeys),
				Message: stringField(v, messageKeys),
			})
		default:
			return nil, fmt.Errorf("decode diagnostics: row %d: unexpected %T", i, row)
		}
	}
	return out, nil
}

// DecodeTree parses a syntax-tree artifact into its root node.
func DecodeTree(data []byte) (*TreeNode, error) {
	root, err := decodeAny(data)
	if err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	obj, ok := root.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("decode tree: root is %T, want object", root)
	}
	if _, hasKind := pick(obj, kindKeys); !hasKind && len(obj) == 1 {
		if inner, ok := pick(obj, treeWrapperKeys); ok {
			if m, ok := inner.(map[string]any); ok {
				obj = m
			}
		}
	}
	node, err := decodeNode(obj, 0)
	if err != nil {
		return nil, fmt.Errorf("decode tree: %w", err)
	}
	return node, nil
}

func decodeNode(obj map[string]any, depth int) (*TreeNode, error) {
	if depth > maxTreeDepth {
		return nil, errTooDeep
	}
	n := &TreeNode{
		Kind:       stringField(obj, kindKeys),
		Identifier: stringField(obj, nodeIdentifierKeys),
		DataType:   stringField(obj, nodeDataTypeKeys),
		Value:      stringField(obj, nodeValueKeys),
		Name:       stringField(obj, nodeNameKeys),
		Condition:  stringField(obj, nodeConditionKeys),
	}
	if raw, ok := pick(obj, nodeArgumentKeys); ok {
		if list, ok := raw.([]any); ok {
			for _, a := range list {
				n.Arguments = append(n.Arguments, scalarString(a))
			}
		} else {
			n.Arguments = []string{scalarString(raw)}
		}
	}

	known := map[string]bool{nodeAttributesKey: true}
	for _, group := range [][]string{kindKeys, nodeIdentifierKeys, nodeDataTypeKeys, nodeValueKeys,
		nodeNameKeys, nodeArgumentKeys, nodeConditionKeys, nodeChildKeys, nodeBranchKeys} {
		for _, k := range group {
			known[k] = true
		}
	}

	for _, k := range nodeChildKeys {
		if raw, ok := obj[k]; ok {
			kids, err := decodeChildren(raw, depth)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", k, err)
			}
			n.Children = append(n.Children, kids...)
		}
	}
	// Branches keep their key as a labelled node so the then and else
	// sides stay apart.
	for _, k := range nodeBranchKeys {
		if raw, ok := obj[k]; ok {
			if err := n.addGroup(k, raw, depth); err != nil {
				return nil, err
			}
		}
	}

	if attrs, ok := obj[nodeAttributesKey].(map[string]any); ok {
		for k, v := range attrs {
			n.setAttribute(k, scalarString(v))
		}
	}

	extra := make([]string, 0, len(obj))
	for k := range obj {
		if !known[k] {
			extra = append(extra, k)
		}
	}
	sort.Strings(extra)
	for _, k := range extra {
		v := obj[k]
		if arr, ok := v.([]any); ok && len(arr) == 0 {
			continue
		}
		if !isSubtree(v) {
			n.setAttribute(k, scalarString(v))
			continue
		}
		if err := n.addGroup(k, v, depth); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// addGroup decodes raw and appends it under a node of kind key. Empty groups
// add nothing.
func (n *TreeNode) addGroup(key string, raw any, depth int) error {
	if depth+1 > maxTreeDepth {
		return errTooDeep
	}
	kids, err := decodeChildren(raw, depth+1)
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	if len(kids) > 0 {
		n.Children = append(n.Children, &TreeNode{Kind: key, Children: kids})
	}
	return nil
}

// isSubtree reports whether v holds nodes: an object, or a non-empty array
// of objects. Anything else is an attribute value.
func isSubtree(v any) bool {
	switch v := v.(type) {
	case map[string]any:
		return true
	case []any:
		if len(v) == 0 {
			return false
		}
		for _, item := range v {
			if _, ok := item.(map[string]any); !ok {
				return false
			}
		}
		return true
	}
	return false
}

func decodeChildren(raw any, depth int) ([]*TreeNode, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		child, err := decodeNode(v, depth+1)
		if err != nil {
			return nil, err
		}
		return []*TreeNode{child}, nil
	case []any:
		out := make([]*TreeNode, 0, len(v))
		for i, item := range v {
			m, ok := item.(map[string]any)
			if !ok {
				return nil, fmt.Errorf("child %d is %T, want object", i, item)
			}
			child, err := decodeNode(m, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, child)
		}
		return out, nil
	}
	return nil, fmt.Errorf("children are %T, want array or object", raw)
}

func (n *TreeNode) setAttribute(k, v string) {
	if v == "" {
		return
	}
	if n.Attributes == nil {
		n.Attributes = make(map[string]string)
	}
	n.Attributes[k] = v
}

// tableRows extracts the row list from a wrapper object or bare array.
func tableRows(data []byte, keys []string, emptyOK bool) ([]any, error) {
	root, err := decodeAny(data)
	if err != nil {
		return nil, err
	}
	switch v := root.(type) {
	case nil:
		if emptyOK {
			return nil, nil
		}
		return nil, ErrNoTable
	case []any:
		return v, nil
	case map[string]any:
		raw, ok := pick(v, keys)
		if !ok || raw == nil {
			if emptyOK {
				return nil, nil
			}
			return nil, ErrNoTable
		}
		rows, ok := raw.([]any)
		if !ok {
			return nil, fmt.Errorf("table is %T, want array", raw)
		}
		return rows, nil
	}
	return nil, fmt.Errorf("root is %T, want object or array", root)
}

func decodeAny(data []byte) (any, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, errors.New("empty document")
	}
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return nil, err
	}
	return v, nil
}

func pick(obj map[string]any, keys []string) (any, bool) {
	for _, k := range keys {
		if v, ok := obj[k]; ok {
			return v, true
		}
	}
	return nil, false
}

func stringField(obj map[string]any, keys []string) string {
	v, ok := pick(obj, keys)
	if !ok {
		return ""
	}
	return scalarString(v)
}

// intField accepts JSON numbers and numeric strings; absent means 0.
func intField(obj map[string]any, keys []string) (int, error) {
	v, ok := pick(obj, keys)
	if !ok || v == nil {
		return 0, nil
	}
	switch x := v.(type) {
	case json.Number:
		n, err := strconv.Atoi(x.String())
		if err != nil {
			f, ferr := x.Float64()
			if ferr != nil {
				return 0, fmt.Errorf("bad number %q", x)
			}
			return int(f), nil
		}
		return n, nil
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(x))
		if err != nil {
			return 0, fmt.Errorf("bad number %q", x)
		}
		return n, nil
	}
	return 0, fmt.Errorf("position is %T, want number", v)
}

func scalarString(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprint(v)
	}
	return string(b)
}

// ErrErrorResponse is returned by DecodeBundle for a saved error body.
var ErrErrorResponse = errors.New("response is an error")

// DecodeBundle parses a saved /compilar response. Each section goes through
// the artifact decoders above, so bodies written by older gateways load too.
func DecodeBundle(data []byte) (*Bundle, error) {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("decode bundle: %w", err)
	}
	if msg, ok := raw["error"]; ok {
		var s string
		_ = json.Unmarshal(msg, &s)
		return nil, fmt.Errorf("decode bundle: %w: %s", ErrErrorResponse, s)
	}

	b := &Bundle{}
	if r, ok := raw["tablaTokens"]; ok {
		toks, err := DecodeTokens(r)
		if err != nil {
			return nil, fmt.Errorf("decode bundle: %w", err)
		}
		b.Tokens = &toks
	}
	if r, ok := raw["tablaErrores"]; ok {
		diags, err := DecodeDiagnostics(r)
		if err != nil {
			return nil, fmt.Errorf("decode bundle: %w", err)
		}
		b.Diagnostics = &diags
	}
	if r, ok := raw["arbol"]; ok && !isNull(r) {
		tree, err := DecodeTree(r)
		if err != nil {
			return nil, fmt.Errorf("decode bundle: %w", err)
		}
		b.Tree = tree
	}
	if r, ok := raw["codigoCompilado"]; ok && !isNull(r) {
		var code string
		if err := json.Unmarshal(r, &code); err != nil {
			return nil, fmt.Errorf("decode bundle: codigoCompilado: %w", err)
		}
		b.Code = &code
	}
	if r, ok := raw["compiladorError"]; ok {
		if err := json.Unmarshal(r, &b.ToolError); err != nil {
			return nil, fmt.Errorf("decode bundle: compiladorError: %w", err)
		}
	}
	return b, nil
}

func isNull(r json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(r), []byte("null"))
}
