// Package docs loads help-site source files for indexing. It handles
// the two formats help content ships in: markdown and exported HTML.
package docs

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// Document is one help page ready for embedding. Path is relative to
// the indexed root and doubles as the document's id in the index.
type Document struct {
	Path  string
	Title string
	Text  string
}

var indexableExt = map[string]bool{
	".md":   true,
	".htm":  true,
	".html": true,
}

// Find walks root and returns the relative paths of all indexable
// files, in lexical order.
func Find(root string) ([]string, error) {
	var paths []string
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !indexableExt[strings.ToLower(filepath.Ext(path))] {
			return nil
		}
		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		paths = append(paths, rel)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", root, err)
	}
	return paths, nil
}

// Load reads and converts one help page. rel is a path returned by
// Find. A page that yields no text comes back with an empty Text and
// no error; the caller decides whether to skip it.
func Load(root, rel string) (Document, error) {
	raw, err := os.ReadFile(filepath.Join(root, rel))
	if err != nil {
		return Document{}, fmt.Errorf("read %s: %w", rel, err)
	}

	doc := Document{Path: filepath.ToSlash(rel)}
	switch strings.ToLower(filepath.Ext(rel)) {
	case ".md":
		doc.Title, doc.Text = fromMarkdown(string(raw))
	default:
		doc.Title, doc.Text = fromHTML(string(raw))
	}
	if doc.Title == "" {
		doc.Title = titleFromPath(rel)
	}
	return doc, nil
}

var mdHeading = regexp.MustCompile(`^#{1,6}\s+(.+?)\s*$`)

func fromMarkdown(src string) (title, text string) {
	for _, line := range strings.Split(src, "\n") {
		if m := mdHeading.FindStringSubmatch(strings.TrimSpace(line)); m != nil {
			title = m[1]
			break
		}
	}
	return title, strings.TrimSpace(src)
}

// blockTags get a newline around their content so the extracted text
// keeps paragraph boundaries.
var blockTags = map[string]bool{
	"p": true, "div": true, "br": true, "li": true, "tr": true,
	"h1": true, "h2": true, "h3": true, "h4": true, "h5": true, "h6": true,
	"table": true, "blockquote": true, "pre": true, "section": true, "article": true,
}

// fromHTML extracts the page title and readable text. The title comes
// from <title>, falling back to the first <h1>.
func fromHTML(src string) (title, text string) {
	root, err := html.Parse(strings.NewReader(src))
	if err != nil {
		return "", ""
	}

	var b strings.Builder
	var h1 string
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style":
				return
			case "title":
				if title == "" {
					title = strings.TrimSpace(textContent(n))
				}
				return
			case "h1":
				if h1 == "" {
					h1 = strings.TrimSpace(textContent(n))
				}
			}
		}
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		block := n.Type == html.ElementNode && blockTags[n.Data]
		if block {
			b.WriteString("\n")
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if block {
			b.WriteString("\n")
		}
	}
	walk(root)

	if title == "" {
		title = h1
	}
	return title, collapseBlank(b.String())
}

func textContent(n *html.Node) string {
	var b strings.Builder
	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return b.String()
}

var blankRuns = regexp.MustCompile(`\n{3,}`)

func collapseBlank(s string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimRight(line, " \t\r")
	}
	s = blankRuns.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}

// titleFromPath turns "widgets/export_dialog.htm" into "export dialog".
func titleFromPath(rel string) string {
	base := filepath.Base(rel)
	base = strings.TrimSuffix(base, filepath.Ext(base))
	return strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(base))
}
