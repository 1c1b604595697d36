package render

import (
	"strings"

	"stcgate/internal/artifact"
)

// Tree draws n as an indented outline, one node per line: the kind followed
// by its non-empty fields.
//
//	Programa
//	├── FUNCION nombre=main tipoDato=entero
//	│   └── RETORNO valor=0
//	└── ...
func Tree(n *artifact.TreeNode) string {
	var sb strings.Builder
	sb.WriteString(nodeLine(n) + "\n")
	writeChildren(&sb, n.Children, "")
	return sb.String()
}

func writeChildren(sb *strings.Builder, children []*artifact.TreeNode, prefix string) {
	for i, c := range children {
		branch, next := "├── ", "│   "
		if i == len(children)-1 {
			branch, next = "└── ", "    "
		}
		sb.WriteString(prefix + branch + nodeLine(c) + "\n")
		writeChildren(sb, c.Children, prefix+next)
	}
}

func nodeLine(n *artifact.TreeNode) string {
	kind := n.Kind
	if kind == "" {
		kind = "?"
	}
	parts := []string{kind}
	for _, f := range n.Fields() {
		v := f.Value
		if strings.ContainsAny(v, " \t\n") {
			v = `"` + strings.ReplaceAll(v, "\n", `\n`) + `"`
		}
		parts = append(parts, f.Key+"="+v)
	}
	return strings.Join(parts, " ")
}
