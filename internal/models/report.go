package models

import "time"

// ResultStatus is the terminal state of one issue in a batch run.
type ResultStatus string

const (
	ResultPosted  ResultStatus = "posted"  // draft generated and posted to the tracker
	ResultDrafted ResultStatus = "drafted" // draft generated, not posted (dry run or post failure)
	ResultSkipped ResultStatus = "skipped" // issue did not qualify
	ResultFailed  ResultStatus = "failed"  // a pipeline stage errored
)

// IssueResult records the outcome for a single issue. A post failure
// after successful generation keeps status drafted; PostStatus and
// Error carry the details.
type IssueResult struct {
	IssueKey   string       `json:"issue_key"`
	Status     ResultStatus `json:"status"`
	Selected   int          `json:"selected_comments"`
	References int          `json:"references"`
	PostStatus int          `json:"post_status,omitempty"` // HTTP status from posting, 0 if not attempted
	SkipReason string       `json:"skip_reason,omitempty"`
	Error      string       `json:"error,omitempty"`
}

// BatchReport is the outcome of one pipeline run across a set of issues.
type BatchReport struct {
	RunID   string        `json:"run_id"`
	Started time.Time     `json:"started"`
	Results []IssueResult `json:"results"`
}

// Add appends a per-issue result.
func (r *BatchReport) Add(res IssueResult) {
	r.Results = append(r.Results, res)
}

// Counts tallies results by status.
func (r *BatchReport) Counts() (posted, drafted, skipped, failed int) {
	for _, res := range r.Results {
		switch res.Status {
		case ResultPosted:
			posted++
		case ResultDrafted:
			drafted++
		case ResultSkipped:
			skipped++
		case ResultFailed:
			failed++
		}
	}
	return posted, drafted, skipped, failed
}
