package pipeline

import "strings"

// Character budgets for prompt assembly.
const (
	summaryBudget     = 500
	descriptionBudget = 1500
	commentBudget     = 1500
	referenceBudget   = 1800
)

// compact fits text into a character budget, keeping the head and the
// final 200 characters. Trailing text often carries the resolution, so
// it is worth more than the middle. Inputs within the budget pass
// through untouched.
func compact(text string, limit int) string {
	text = strings.TrimSpace(strings.ReplaceAll(text, "\r", ""))
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	headLen := limit - 220
	if headLen < 0 {
		headLen = 0
	}
	head := string(runes[:headLen])
	tail := string(runes[len(runes)-200:])
	return head + "\n…\n" + tail
}
