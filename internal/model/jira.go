package model

import "regexp"

var jiraKeyRe = regexp.MustCompile(`\[(\w+-\d+)\]`)

// ExtractJiraID returns the first bracketed KEY-123 token in a revision
// title, or the empty string when none is present. Absence is valid, not an
// error.
func ExtractJiraID(title string) string {
	if m := jiraKeyRe.FindStringSubmatch(title); len(m) == 2 {
		return m[1]
	}
	return ""
}
