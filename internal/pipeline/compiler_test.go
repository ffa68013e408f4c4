package pipeline

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joescharf/helpdraft/internal/llm"
	"github.com/joescharf/helpdraft/internal/models"
)

func TestCompilePrompt(t *testing.T) {
	comments := []UserComment{
		{Author: "Dana", Content: "Steps: open Settings, pick Export."},
		{Author: "Lee", Content: "Mention the CSV delimiter option."},
	}
	refs := []models.Reference{
		{Title: "Exporting data", Text: "# Export\nUse the Export dialog.", Source: "https://help.example.com/export"},
	}

	t.Run("system and user roles", func(t *testing.T) {
		msgs := CompilePrompt("system prompt here", "Export dialog", comments, refs)

		require.Len(t, msgs, 2)
		assert.Equal(t, llm.RoleSystem, msgs[0].Role)
		assert.Equal(t, "system prompt here", msgs[0].Content)
		assert.Equal(t, llm.RoleUser, msgs[1].Role)
	})

	t.Run("sections appear in fixed order", func(t *testing.T) {
		msgs := CompilePrompt("sys", "Export dialog", comments, refs)
		body := msgs[1].Content

		opening := strings.Index(body, openingInstruction)
		topic := strings.Index(body, "# Topic\nExport dialog")
		curated := strings.Index(body, "## Curated developer comments (from Jira)")
		retrieved := strings.Index(body, "## Reference documents (retrieved)")
		closing := strings.Index(body, closingInstruction)

		for name, pos := range map[string]int{
			"opening": opening, "topic": topic, "comments": curated,
			"references": retrieved, "closing": closing,
		} {
			require.GreaterOrEqual(t, pos, 0, "section %s missing", name)
		}
		assert.Less(t, opening, topic)
		assert.Less(t, topic, curated)
		assert.Less(t, curated, retrieved)
		assert.Less(t, retrieved, closing)
	})

	t.Run("comments are numbered with authors", func(t *testing.T) {
		msgs := CompilePrompt("sys", "t", comments, nil)
		body := msgs[1].Content

		assert.Contains(t, body, "### Comment 1 — Dana\nSteps: open Settings, pick Export.")
		assert.Contains(t, body, "### Comment 2 — Lee\n")
	})

	t.Run("references carry title and source", func(t *testing.T) {
		msgs := CompilePrompt("sys", "t", nil, refs)
		body := msgs[1].Content

		assert.Contains(t, body, "### Reference 1: Exporting data")
		assert.Contains(t, body, "Source: https://help.example.com/export")
	})

	t.Run("reference headings are demoted", func(t *testing.T) {
		msgs := CompilePrompt("sys", "t", nil, refs)
		body := msgs[1].Content

		assert.Contains(t, body, "\n## Export\n")
		assert.NotContains(t, body, "\n# Export\n")
	})

	t.Run("heading on the first reference line is demoted too", func(t *testing.T) {
		ref := models.Reference{Title: "T", Text: "## Already deep\ntext", Source: "s"}
		msgs := CompilePrompt("sys", "t", nil, []models.Reference{ref})
		assert.Contains(t, msgs[1].Content, "\n### Already deep\n")
	})

	t.Run("empty sections are omitted", func(t *testing.T) {
		msgs := CompilePrompt("sys", "", nil, nil)
		body := msgs[1].Content

		assert.NotContains(t, body, "# Topic")
		assert.NotContains(t, body, "## Curated developer comments")
		assert.NotContains(t, body, "## Reference documents")
		assert.True(t, strings.HasPrefix(body, openingInstruction))
		assert.True(t, strings.HasSuffix(body, closingInstruction))
	})

	t.Run("long comment bodies are compacted", func(t *testing.T) {
		long := strings.Repeat("x", commentBudget*2)
		msgs := CompilePrompt("sys", "t", []UserComment{{Author: "A", Content: long}}, nil)
		body := msgs[1].Content

		assert.Contains(t, body, "…")
		assert.Less(t, len([]rune(body)), commentBudget*2)
	})

	t.Run("long reference bodies are compacted", func(t *testing.T) {
		long := models.Reference{Title: "T", Text: strings.Repeat("y", referenceBudget*2), Source: "s"}
		msgs := CompilePrompt("sys", "t", nil, []models.Reference{long})
		body := msgs[1].Content

		assert.Contains(t, body, "…")
		assert.Less(t, len([]rune(body)), referenceBudget*2)
	})

	t.Run("sections are separated by blank lines", func(t *testing.T) {
		msgs := CompilePrompt("sys", "Topic text", comments, refs)
		body := msgs[1].Content

		assert.Contains(t, body, openingInstruction+"\n\n# Topic")
		assert.Contains(t, body, "\n\n"+closingInstruction)
	})

	t.Run("author whitespace is trimmed", func(t *testing.T) {
		msgs := CompilePrompt("sys", "t", []UserComment{{Author: "  Pat  ", Content: "c"}}, nil)
		assert.Contains(t, msgs[1].Content, "### Comment 1 — Pat\nc")
	})
}
