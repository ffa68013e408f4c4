package pipeline

import (
	"fmt"
	"strings"

	"github.com/joescharf/helpdraft/internal/llm"
	"github.com/joescharf/helpdraft/internal/models"
)

// UserComment is one curated developer comment fed into the prompt.
type UserComment struct {
	Author  string
	Content string
}

const (
	openingInstruction = "Use only the material below to produce the deliverables described in the system prompt. " +
		"If information is missing, list clarifying questions."
	closingInstruction = "End of input. Follow the Output Structure from the system prompt. Do not invent details."
)

// CompilePrompt assembles the two-message drafting prompt. The user
// block has a fixed section order: standing instruction, topic, curated
// comments, references, closing instruction. Empty sections are
// omitted, never rendered as bare headers.
func CompilePrompt(systemPrompt, topic string, comments []UserComment, refs []models.Reference) []llm.Message {
	var parts []string

	parts = append(parts, openingInstruction)

	if topic != "" {
		parts = append(parts, "# Topic\n"+topic)
	}

	if len(comments) > 0 {
		lines := []string{"## Curated developer comments (from Jira)"}
		for i, uc := range comments {
			author := strings.TrimSpace(uc.Author)
			content := compact(uc.Content, commentBudget)
			lines = append(lines, fmt.Sprintf("### Comment %d — %s\n%s", i+1, author, content))
		}
		parts = append(parts, strings.Join(lines, "\n\n"))
	}

	if len(refs) > 0 {
		lines := []string{"## Reference documents (retrieved)"}
		for i, ref := range refs {
			// Headings inside reference text sit below the section header.
			text := compact(demoteHeadings(ref.Text), referenceBudget)
			lines = append(lines, fmt.Sprintf("### Reference %d: %s\n%s\n\nSource: %s", i+1, ref.Title, text, ref.Source))
		}
		parts = append(parts, strings.Join(lines, "\n\n"))
	}

	parts = append(parts, closingInstruction)

	return []llm.Message{
		{Role: llm.RoleSystem, Content: systemPrompt},
		{Role: llm.RoleUser, Content: strings.Join(parts, "\n\n")},
	}
}

// demoteHeadings pushes every markdown heading down one level.
func demoteHeadings(text string) string {
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		if strings.HasPrefix(line, "#") {
			lines[i] = "#" + line
		}
	}
	return strings.Join(lines, "\n")
}
