package pipeline

import (
	"regexp"
	"strings"

	"github.com/joescharf/helpdraft/internal/models"
)

// TriggerPattern matches the wiki heading developers write to request a
// documentation draft, e.g. "h2. Online Help".
var TriggerPattern = regexp.MustCompile(`(?i)^h[1-6]\.\s*(online help|doc & test|test & doc)\b`)

// TargetComment returns the first comment whose opening line matches
// the trigger pattern, and whether one was found.
func TargetComment(comments []models.Comment, pattern *regexp.Regexp) (models.Comment, bool) {
	for _, c := range comments {
		if pattern.MatchString(firstLine(c.Body)) {
			return c, true
		}
	}
	return models.Comment{}, false
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[:i]
	}
	return strings.TrimSuffix(s, "\r")
}
