package adf

import "strings"

// Block node types that end a line when flattening.
var blockTypes = map[string]bool{
	"paragraph": true,
	"heading":   true,
	"listItem":  true,
	"tableRow":  true,
	"codeBlock": true,
}

// Flatten reduces a document to plain text. Inline nodes concatenate;
// block nodes terminate their line. Formatting marks are discarded.
func Flatten(d *Doc) string {
	if d == nil {
		return ""
	}
	var b strings.Builder
	for _, n := range d.Content {
		flattenNode(&b, n)
	}
	return strings.TrimSpace(b.String())
}

func flattenNode(b *strings.Builder, n Node) {
	switch n.Type {
	case "text":
		b.WriteString(n.Text)
	case "hardBreak":
		b.WriteString("\n")
	}
	for _, c := range n.Content {
		flattenNode(b, c)
	}
	if blockTypes[n.Type] {
		b.WriteString("\n")
	}
}
