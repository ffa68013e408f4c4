// Package adf models the subset of the Atlassian Document Format that
// helpdraft reads and writes: plain paragraphs, links, and the
// expand/table combination used for reference lists.
package adf

// Doc is the root node of an ADF document.
type Doc struct {
	Type    string `json:"type"`
	Version int    `json:"version"`
	Content []Node `json:"content"`
}

// Node is a single ADF content node. Fields are populated per node
// type; empty ones are omitted from the serialized document.
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []Node         `json:"content,omitempty"`
}

// Mark decorates a text node, e.g. with a hyperlink.
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

// NewDoc returns an empty version-1 document.
func NewDoc() *Doc {
	return &Doc{Type: "doc", Version: 1, Content: []Node{}}
}

// Append adds top-level nodes to the document.
func (d *Doc) Append(nodes ...Node) {
	d.Content = append(d.Content, nodes...)
}

// Text returns a plain text node.
func Text(s string) Node {
	return Node{Type: "text", Text: s}
}

// Link returns a text node marked up as a hyperlink.
func Link(text, href string) Node {
	return Node{
		Type:  "text",
		Text:  text,
		Marks: []Mark{{Type: "link", Attrs: map[string]any{"href": href}}},
	}
}

// Paragraph wraps inline nodes in a paragraph.
func Paragraph(inline ...Node) Node {
	return Node{Type: "paragraph", Content: inline}
}

// Expand returns a collapsible section with the given title.
func Expand(title string, content ...Node) Node {
	return Node{Type: "expand", Attrs: map[string]any{"title": title}, Content: content}
}

// Table assembles a default-layout table node from rows.
func Table(rows ...Node) Node {
	return Node{
		Type:    "table",
		Attrs:   map[string]any{"isNumberColumnEnabled": false, "layout": "default"},
		Content: rows,
	}
}

// Row assembles a table row from cells.
func Row(cells ...Node) Node {
	return Node{Type: "tableRow", Content: cells}
}

// HeaderCell returns a header cell containing a single paragraph.
func HeaderCell(inline ...Node) Node {
	return Node{Type: "tableHeader", Content: []Node{Paragraph(inline...)}}
}

// Cell returns a body cell containing a single paragraph.
func Cell(inline ...Node) Node {
	return Node{Type: "tableCell", Content: []Node{Paragraph(inline...)}}
}
