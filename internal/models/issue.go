package models

import "time"

// Issue is a tracker issue as fetched from Jira, with its discussion
// flattened to plain text.
type Issue struct {
	Key         string
	Summary     string
	Description string
	Created     time.Time
	Comments    []Comment
}

// Comment is a single issue comment. ID is the tracker's comment id and
// is the key the relevance classifier scores against.
type Comment struct {
	ID      string
	Author  string
	Created time.Time
	Body    string
}
