package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/joescharf/helpdraft/internal/adf"
	"github.com/joescharf/helpdraft/internal/models"
)

const dateLayout = "2006-01-02"

// RenderComment turns a completion into the two representations Jira
// accepts: wiki markup and an ADF document. Both are built from the
// same paragraph split and the same deduplicated reference list.
// accessed stamps the "date accessed" column of the references table.
func RenderComment(completionText string, refs []models.Reference, accessed time.Time) models.RenderedComment {
	deduped := DedupeReferences(refs)
	date := accessed.Format(dateLayout)
	paragraphs := splitParagraphs(completionText)

	return models.RenderedComment{
		PlainText: renderPlain(paragraphs, deduped, date),
		ADF:       renderADF(paragraphs, deduped, date),
	}
}

func renderPlain(paragraphs []string, refs []models.Reference, date string) string {
	var lines []string
	for _, p := range paragraphs {
		lines = append(lines, p, "")
	}
	if len(refs) > 0 {
		lines = append(lines, "||Reference||Date accessed||")
		for _, ref := range refs {
			lines = append(lines, fmt.Sprintf("|[%s|%s]|%s|", ref.Title, ref.Source, date))
		}
		lines = append(lines, "")
	}
	return strings.TrimSpace(strings.Join(lines, "\n"))
}

func renderADF(paragraphs []string, refs []models.Reference, date string) *adf.Doc {
	doc := adf.NewDoc()
	for _, p := range paragraphs {
		doc.Append(adf.Paragraph(adf.Text(p)))
	}

	if len(refs) > 0 {
		rows := []adf.Node{adf.Row(
			adf.HeaderCell(adf.Text("Reference")),
			adf.HeaderCell(adf.Text("Date accessed")),
		)}
		for _, ref := range refs {
			rows = append(rows, adf.Row(
				adf.Cell(adf.Link(ref.Title, ref.Source)),
				adf.Cell(adf.Text(date)),
			))
		}
		doc.Append(adf.Expand("References", adf.Table(rows...)))
	}
	return doc
}

// splitParagraphs breaks completion text on blank lines, dropping
// carriage returns and whitespace-only paragraphs.
func splitParagraphs(text string) []string {
	text = strings.ReplaceAll(text, "\r", "")
	var out []string
	for _, p := range strings.Split(text, "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
