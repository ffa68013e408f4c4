package models

import "github.com/joescharf/helpdraft/internal/adf"

// Reference is a supporting document pulled from the vector index.
type Reference struct {
	Title  string
	Text   string
	Source string // canonical identifier (URL or path); dedupe key
}

// RenderedComment is the final draft in both representations Jira
// accepts: legacy wiki markup and an ADF document.
type RenderedComment struct {
	PlainText string
	ADF       *adf.Doc
}
