// Package display provides human-readable names for machine codes.
//
// Rule: code is for machines, words are for humans.
// Use these functions in CLI output, HTML pages and tool results.
// Keep raw codes for JSON fields, map keys, and equality comparisons.
package display

import "strings"

// --- Token Classes ---

var tokenClasses = map[string]string{
	"PALABRA_RESERVADA": "Palabra reservada",
	"IDENTIFICADOR":     "Identificador",
	"NUMERO":            "Número",
	"NUMERO_LIT":        "Número",
	"DECIMAL_LIT":       "Decimal",
	"CADENA_LIT":        "Cadena",
	"SIMBOLO":           "Símbolo",
	"PUNTO_COMA":        "Punto y coma",
	"ASIGNACION":        "Asignación",
	"FIN_PROGRAMA":      "Fin de programa",
	"PARENTESIS_IZQ":    "Paréntesis izquierdo",
	"PARENTESIS_DER":    "Paréntesis derecho",
	"LLAVE_IZQ":         "Llave izquierda",
	"LLAVE_DER":         "Llave derecha",
}

// TokenClass returns the human-readable name for a lexer class.
// The compiler's "TOKEN_" prefix is ignored; unknown classes are
// humanized from their upper-snake spelling.
// "TOKEN_PUNTO_COMA" -> "Punto y coma", "TOKEN_CONFIGURAR_PIN" -> "Configurar pin".
func TokenClass(code string) string {
	bare := strings.TrimPrefix(code, "TOKEN_")
	if name, ok := tokenClasses[bare]; ok {
		return name
	}
	return humanize(bare)
}

// TokenClassWithCode returns "Punto y coma (TOKEN_PUNTO_COMA)" format.
func TokenClassWithCode(code string) string {
	if code == "" {
		return ""
	}
	return TokenClass(code) + " (" + code + ")"
}

// --- Diagnostic Kinds ---

var diagnosticKinds = map[string]string{
	"lexico":        "Error léxico",
	"lexicalerror":  "Error léxico",
	"sintactico":    "Error sintáctico",
	"syntaxerror":   "Error sintáctico",
	"semantico":     "Error semántico",
	"semanticerror": "Error semántico",
}

// DiagnosticKind returns the human-readable name for a diagnostic kind.
// Both the Spanish and English spellings the compiler has used are known.
// Unknown kinds are returned as-is.
func DiagnosticKind(kind string) string {
	key := strings.ToLower(strings.NewReplacer("á", "a", "é", "e", "í", "i", "ó", "o", "_", "").Replace(kind))
	if name, ok := diagnosticKinds[key]; ok {
		return name
	}
	return kind
}

// --- Outcomes ---

var outcomes = map[string]string{
	"ok":                 "Compilado",
	"diagnostics":        "Con errores en el código",
	"tool_error":         "Compilado con avisos",
	"invocation_failure": "Fallo del compilador",
	"timeout":            "Tiempo agotado",
}

// Outcome returns the human-readable name for a compilation outcome.
func Outcome(code string) string {
	if name, ok := outcomes[code]; ok {
		return name
	}
	return code
}

// OutcomeWithCode returns "Tiempo agotado (timeout)" format.
func OutcomeWithCode(code string) string {
	if name, ok := outcomes[code]; ok {
		return name + " (" + code + ")"
	}
	return code
}

// --- Tree Keys ---

var treeKeys = map[string]string{
	"identificador": "Identificador",
	"tipoDato":      "Tipo de dato",
	"valor":         "Valor",
	"nombre":        "Nombre",
	"argumentos":    "Argumentos",
	"condicion":     "Condición",
}

// TreeKey labels a syntax-tree attribute. Keys the compiler added later
// are shown as they arrive.
func TreeKey(key string) string {
	if name, ok := treeKeys[key]; ok {
		return name
	}
	return key
}

// humanize turns "CONFIGURAR_PIN" into "Configurar pin".
func humanize(code string) string {
	if code == "" {
		return ""
	}
	s := strings.ToLower(strings.ReplaceAll(code, "_", " "))
	r := []rune(s)
	r[0] = []rune(strings.ToUpper(string(r[0])))[0]
	return string(r)
}
