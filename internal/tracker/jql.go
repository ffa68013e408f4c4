package tracker

import (
	"fmt"
	"strings"
)

// ExpandPeriod substitutes a {period} placeholder in a JQL query with a
// time window: everything updated since the last run, or the past two
// weeks when no last run is known.
func ExpandPeriod(jql, since string) string {
	period := `updated >= -14d`
	if since != "" {
		period = fmt.Sprintf(`updated >= "%s"`, since)
	}
	return strings.ReplaceAll(jql, "{period}", period)
}
