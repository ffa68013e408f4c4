// Package pipeline implements the issue-processing stages: relevance
// classification, reference retrieval, prompt compilation, rendering,
// and the per-issue orchestration that ties them to the tracker.
package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"regexp"
	"time"

	"github.com/joescharf/helpdraft/internal/audit"
	"github.com/joescharf/helpdraft/internal/llm"
	"github.com/joescharf/helpdraft/internal/models"
	"github.com/joescharf/helpdraft/internal/tracker"
)

const defaultDraftMaxTokens = 16384

// Options carry the run-level knobs that are not collaborators.
type Options struct {
	SystemPrompt   string
	DraftMaxTokens int64          // 0 selects the default of 16384
	Post           bool           // actually post drafts to the tracker
	ReplyToTrigger bool           // post as a reply to the trigger comment
	Trigger        *regexp.Regexp // nil selects TriggerPattern
}

// Pipeline sequences the stages for each issue and isolates per-issue
// failures so one bad issue never aborts a batch.
type Pipeline struct {
	tracker    tracker.Client
	classifier *Classifier
	retriever  *Retriever
	completer  llm.Completer
	audit      *audit.Writer // nil disables artifact writing
	opts       Options
	log        *slog.Logger
}

// New assembles a pipeline from its collaborators.
func New(tc tracker.Client, cl *Classifier, rt *Retriever, completer llm.Completer, aud *audit.Writer, opts Options, log *slog.Logger) *Pipeline {
	if opts.Trigger == nil {
		opts.Trigger = TriggerPattern
	}
	if opts.DraftMaxTokens <= 0 {
		opts.DraftMaxTokens = defaultDraftMaxTokens
	}
	return &Pipeline{
		tracker:    tc,
		classifier: cl,
		retriever:  rt,
		completer:  completer,
		audit:      aud,
		opts:       opts,
		log:        log,
	}
}

// WithPost returns a copy of the pipeline with posting switched on or
// off. The original is not modified.
func (p *Pipeline) WithPost(post bool) *Pipeline {
	clone := *p
	clone.opts.Post = post
	return &clone
}

// Run searches the tracker and processes every matching issue,
// best-effort per item. Only the search itself can fail the batch.
func (p *Pipeline) Run(ctx context.Context, jql string) (models.BatchReport, error) {
	report := models.BatchReport{RunID: p.runID(), Started: time.Now().UTC()}

	issues, err := p.tracker.SearchIssues(ctx, jql)
	if err != nil {
		return report, fmt.Errorf("search issues: %w", err)
	}
	p.log.Info("processing batch", "run", report.RunID, "issues", len(issues))

	for _, issue := range issues {
		res, _ := p.ProcessIssue(ctx, issue)
		report.Add(res)
	}

	if p.audit != nil {
		if err := p.audit.WriteReport(report); err != nil {
			p.log.Warn("write batch report", "error", err)
		}
	}
	return report, nil
}

// DraftByKey fetches one issue and runs it through the pipeline.
func (p *Pipeline) DraftByKey(ctx context.Context, key string) (models.IssueResult, *models.RenderedComment) {
	issue, err := p.tracker.GetIssue(ctx, key)
	if err != nil {
		return p.fail(models.IssueResult{IssueKey: key}, err), nil
	}
	return p.ProcessIssue(ctx, *issue)
}

// ProcessIssue runs the stages for a single issue. Every failure is
// captured on the result rather than returned; the rendered draft
// accompanies any result that got far enough to have one.
func (p *Pipeline) ProcessIssue(ctx context.Context, issue models.Issue) (models.IssueResult, *models.RenderedComment) {
	res := models.IssueResult{IssueKey: issue.Key}

	trigger, ok := TargetComment(issue.Comments, p.opts.Trigger)
	if !ok {
		res.Status = models.ResultSkipped
		res.SkipReason = "no trigger comment"
		p.log.Debug("issue skipped", "issue", issue.Key)
		return res, nil
	}

	selected, scores, err := p.classifier.Classify(ctx, issue, issue.Comments)
	if err != nil {
		return p.fail(res, err), nil
	}
	res.Selected = len(selected)

	refs, err := p.retriever.Retrieve(ctx, issue.Summary)
	if err != nil {
		return p.fail(res, fmt.Errorf("retrieve references: %w", err)), nil
	}
	res.References = len(refs)

	comments := make([]UserComment, 0, len(selected))
	for _, c := range selected {
		comments = append(comments, UserComment{Author: c.Author, Content: c.Body})
	}
	msgs := CompilePrompt(p.opts.SystemPrompt, issue.Summary, comments, refs)

	if p.audit != nil {
		if err := p.audit.WritePrompt(issue.Key, msgs); err != nil {
			p.log.Warn("write prompt artifact", "issue", issue.Key, "error", err)
		}
		if err := p.audit.WriteScores(issue.Key, scores); err != nil {
			p.log.Warn("write scores artifact", "issue", issue.Key, "error", err)
		}
	}

	text, err := p.completer.Complete(ctx, msgs, p.opts.DraftMaxTokens)
	if err != nil {
		return p.fail(res, fmt.Errorf("generate draft: %w", err)), nil
	}

	rendered := RenderComment(text, refs, time.Now())
	if p.audit != nil {
		if err := p.audit.WriteComment(issue.Key, rendered); err != nil {
			p.log.Warn("write comment artifacts", "issue", issue.Key, "error", err)
		}
	}

	res.Status = models.ResultDrafted
	if p.opts.Post {
		parentID := ""
		if p.opts.ReplyToTrigger {
			parentID = trigger.ID
		}
		status, err := p.tracker.PostComment(ctx, issue.Key, rendered.ADF, parentID)
		res.PostStatus = status
		if err != nil {
			// A failed post keeps the drafted status.
			p.log.Error("post comment", "issue", issue.Key, "status", status, "error", err)
			res.Error = err.Error()
		} else {
			res.Status = models.ResultPosted
			p.log.Info("comment posted", "issue", issue.Key, "status", status)
		}
	}
	return res, &rendered
}

func (p *Pipeline) fail(res models.IssueResult, err error) models.IssueResult {
	res.Status = models.ResultFailed
	res.Error = err.Error()
	p.log.Error("issue failed", "issue", res.IssueKey, "error", err)
	return res
}

func (p *Pipeline) runID() string {
	if p.audit != nil {
		return p.audit.RunID()
	}
	return audit.NewRunID()
}
