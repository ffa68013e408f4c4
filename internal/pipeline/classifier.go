package pipeline

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/joescharf/helpdraft/internal/llm"
	"github.com/joescharf/helpdraft/internal/models"
)

const classifierMaxTokens = 500

const classifierSystem = "You are a senior triage engineer. The Jira issue has already been resolved. " +
	"Identify which of the provided comments were relevant to diagnosing or fixing the issue." +
	"\nGuidelines:" +
	"\n- Relevant: technical findings, steps taken, logs, config, root-cause clues, links to authoritative docs, direct fix instructions, code changes." +
	"\n- Not relevant: chit-chat, thanks, scheduling, duplicated text, off-topic, meta commentary." +
	"\n- Prefer comments that contain concrete steps, error messages, or references that directly contributed to the resolution." +
	"\nReturn a single JSON object only with keys: scores (object mapping id->0..1 (float))."

// Classifier decides which comments on a resolved issue contributed to
// the resolution. A malformed model response degrades to "nothing
// relevant" instead of failing the issue.
type Classifier struct {
	completer llm.Completer
	threshold float64
	log       *slog.Logger
}

// NewClassifier creates a classifier selecting comments scored at or
// above threshold. The threshold is clamped to [0,1].
func NewClassifier(completer llm.Completer, threshold float64, log *slog.Logger) *Classifier {
	if threshold < 0 {
		threshold = 0
	}
	if threshold > 1 {
		threshold = 1
	}
	return &Classifier{completer: completer, threshold: threshold, log: log}
}

// Wire shape of the classifier's user payload.
type (
	classifierPayload struct {
		Issue        classifierIssue     `json:"issue"`
		Comments     []classifierComment `json:"comments"`
		OutputSchema outputSchema        `json:"output_schema"`
	}

	classifierIssue struct {
		Key         string `json:"key"`
		Summary     string `json:"summary"`
		Description string `json:"description"`
		Created     string `json:"created"`
	}

	classifierComment struct {
		ID      string `json:"id"`
		Author  string `json:"author"`
		Created string `json:"created"`
		Body    string `json:"body"`
	}

	outputSchema struct {
		Scores map[string]float64 `json:"scores"`
	}
)

// buildMessages assembles the classification request. Long fields are
// compacted so the payload stays inside the model's context.
func buildMessages(issue models.Issue, candidates []models.Comment) ([]llm.Message, error) {
	payload := classifierPayload{
		Issue: classifierIssue{
			Key:         issue.Key,
			Summary:     compact(issue.Summary, summaryBudget),
			Description: compact(issue.Description, descriptionBudget),
			Created:     issue.Created.Format(time.RFC3339),
		},
		OutputSchema: outputSchema{Scores: map[string]float64{"<comment_id>": 0.1}},
	}
	for _, c := range candidates {
		payload.Comments = append(payload.Comments, classifierComment{
			ID:      c.ID,
			Author:  c.Author,
			Created: c.Created.Format(time.RFC3339),
			Body:    compact(c.Body, commentBudget),
		})
	}

	// Plain encoder so comment bodies keep <, >, & readable.
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(payload); err != nil {
		return nil, fmt.Errorf("marshal classifier payload: %w", err)
	}

	return []llm.Message{
		{Role: llm.RoleSystem, Content: classifierSystem},
		{Role: llm.RoleUser, Content: "You must answer with a single JSON object only, no extra text.\n" + strings.TrimSpace(buf.String())},
	}, nil
}

// Classify scores the candidate comments and returns those at or above
// the threshold, in candidate order, together with the raw validated
// scores for audit. Ids the model invents are kept in the score map but
// never select anything.
func (c *Classifier) Classify(ctx context.Context, issue models.Issue, candidates []models.Comment) ([]models.Comment, map[string]float64, error) {
	msgs, err := buildMessages(issue, candidates)
	if err != nil {
		return nil, nil, err
	}

	text, err := c.completer.Complete(ctx, msgs, classifierMaxTokens)
	if err != nil {
		return nil, nil, fmt.Errorf("classify comments for %s: %w", issue.Key, err)
	}

	scores := c.parseScores(text)

	selected := make([]models.Comment, 0, len(candidates))
	for _, cand := range candidates {
		if s, ok := scores[cand.ID]; ok && s >= c.threshold {
			selected = append(selected, cand)
		}
	}
	return selected, scores, nil
}

// parseScores validates the model response. Structural failures return
// an empty map with a warning; they never error.
func (c *Classifier) parseScores(text string) map[string]float64 {
	blob := strings.TrimSpace(text)
	scores, err := decodeScores(blob)
	if err != nil {
		if extracted, ok := extractJSONObject(blob); ok {
			scores, err = decodeScores(extracted)
		}
	}
	if err != nil {
		c.log.Warn("classifier response failed validation", "error", err)
		return map[string]float64{}
	}
	return scores
}

// decodeScores enforces the response contract: a single top-level
// scores field. Entries that are not numbers in [0,1] are dropped
// silently.
func decodeScores(s string) (map[string]float64, error) {
	dec := json.NewDecoder(strings.NewReader(s))
	dec.DisallowUnknownFields()

	var parsed struct {
		Scores map[string]json.RawMessage `json:"scores"`
	}
	if err := dec.Decode(&parsed); err != nil {
		return nil, err
	}

	out := make(map[string]float64, len(parsed.Scores))
	for id, raw := range parsed.Scores {
		var f float64
		if err := json.Unmarshal(raw, &f); err != nil {
			continue
		}
		if f < 0 || f > 1 {
			continue
		}
		out[id] = f
	}
	return out, nil
}
