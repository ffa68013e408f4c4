// Package audit persists per-run artifacts: compiled prompts, raw
// classifier scores, rendered comments, and the batch report. Artifacts
// are write-once; nothing is read back by the pipeline.
package audit

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joescharf/helpdraft/internal/llm"
	"github.com/joescharf/helpdraft/internal/models"
)

// Writer lays out one run's artifacts under
// <stateDir>/runs/<runID>/<issueKey>/.
type Writer struct {
	dir   string
	runID string
}

// NewRunID generates a ULID for a pipeline run.
func NewRunID() string {
	entropy := rand.New(rand.NewSource(time.Now().UnixNano()))
	return ulid.MustNew(ulid.Timestamp(time.Now()), ulid.Monotonic(entropy, 0)).String()
}

// NewWriter creates a writer for one run.
func NewWriter(stateDir, runID string) *Writer {
	return &Writer{dir: filepath.Join(stateDir, "runs", runID), runID: runID}
}

// RunID returns the run this writer belongs to.
func (w *Writer) RunID() string {
	return w.runID
}

// WritePrompt saves the compiled prompt for an issue.
func (w *Writer) WritePrompt(issueKey string, msgs []llm.Message) error {
	return w.writeJSON(issueKey, "prompt.json", msgs, false)
}

// WriteScores saves the validated classifier scores for an issue.
func (w *Writer) WriteScores(issueKey string, scores map[string]float64) error {
	return w.writeJSON(issueKey, "scores.json", scores, true)
}

// WriteComment saves both representations of the rendered draft.
func (w *Writer) WriteComment(issueKey string, rc models.RenderedComment) error {
	dir := filepath.Join(w.dir, issueKey)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "comment.md"), []byte(rc.PlainText), 0644); err != nil {
		return fmt.Errorf("write comment.md: %w", err)
	}
	return w.writeJSON(issueKey, "comment.adf.json", rc.ADF, true)
}

// WriteReport saves the batch report at the run root.
func (w *Writer) WriteReport(report models.BatchReport) error {
	return w.writeJSON("", "report.json", report, true)
}

func (w *Writer) writeJSON(issueKey, name string, v any, indent bool) error {
	dir := w.dir
	if issueKey != "" {
		dir = filepath.Join(dir, issueKey)
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("create audit dir: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("marshal %s: %w", name, err)
	}

	if err := os.WriteFile(filepath.Join(dir, name), buf.Bytes(), 0644); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
