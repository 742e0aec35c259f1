package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/revq-dev/revq/internal/aggregate"
	"github.com/revq-dev/revq/internal/model"
)

// statusLabels maps raw platform status values to display labels. Statuses
// not listed here are shown as-is; the platforms grow new values faster
// than we care to track them.
var statusLabels = map[string]string{
	"mergeable":                 "Mergeable",
	"not_approved":              "Awaiting Approval",
	"discussions_not_resolved":  "Open Discussions",
	"ci_still_running":          "CI Running",
	"ci_must_pass":              "CI Failed",
	"draft_status":              "Draft",
	"conflict":                  "Has Conflicts",
	"checking":                  "Checking",
	"needs-review":              "Needs Review",
	"needs-revision":            "Needs Revision",
	"accepted":                  "Accepted",
	"changes-planned":           "Changes Planned",
}

func statusLabel(status string) string {
	if label, ok := statusLabels[status]; ok {
		return label
	}
	return status
}

// TextWriter renders human-readable reports.
type TextWriter struct{}

func (t *TextWriter) WriteList(w io.Writer, report *ListReport) error {
	ew := &errWriter{w: w}

	ew.printf("Open revisions: %d\n", len(report.Revisions))
	ew.println(strings.Repeat("─", 72))

	for _, r := range report.Revisions {
		ew.printf("\n%s %s\n", revisionRef(r), r.Title)
		ew.printf("  %s", statusLabel(r.Status))
		if r.IsDraft {
			ew.printf(" (draft)")
		}
		ew.printf(" | %s", authorName(r.Author))
		if r.Project != "" {
			ew.printf(" | %s", r.Project)
		}
		if r.JiraID != "" {
			ew.printf(" | %s", r.JiraID)
		}
		ew.println("")
		if r.DateModified > 0 {
			ew.printf("  updated %s\n", time.UnixMilli(r.DateModified).UTC().Format("2006-01-02 15:04"))
		}
		if r.URL != "" {
			ew.printf("  %s\n", r.URL)
		}
	}

	if len(report.Errors) > 0 {
		ew.printf("\n%s\n", strings.Repeat("─", 72))
		ew.printf("Warnings: %d project(s) could not be fetched\n", len(report.Errors))
		for _, se := range report.Errors {
			ew.printf("  [%s] project %s: %s\n", se.Source, se.ProjectID, se.Message)
		}
	}

	return ew.err
}

func (t *TextWriter) WriteDetail(w io.Writer, detail *aggregate.Detail) error {
	ew := &errWriter{w: w}
	r := detail.Revision

	ew.printf("%s %s\n", revisionRef(r), r.Title)
	ew.println(strings.Repeat("─", 72))
	ew.printf("Status:  %s", statusLabel(r.Status))
	if r.IsDraft {
		ew.printf(" (draft)")
	}
	ew.println("")
	ew.printf("Author:  %s\n", authorName(r.Author))
	if r.Project != "" {
		ew.printf("Project: %s\n", r.Project)
	}
	if r.Branch != "" {
		ew.printf("Branch:  %s\n", r.Branch)
	}
	if r.JiraID != "" {
		ew.printf("Jira:    %s\n", r.JiraID)
	}
	if r.URL != "" {
		ew.printf("URL:     %s\n", r.URL)
	}
	if len(detail.Reviewers) > 0 {
		names := make([]string, 0, len(detail.Reviewers))
		for _, rev := range detail.Reviewers {
			names = append(names, authorName(model.Author{Name: rev.Name, Username: rev.Username}))
		}
		ew.printf("Reviewers: %s\n", strings.Join(names, ", "))
	}
	if r.Summary != "" {
		ew.println("")
		for _, line := range strings.Split(strings.TrimRight(r.Summary, "\n"), "\n") {
			ew.printf("  %s\n", line)
		}
	}

	if len(detail.Diffs) > 0 {
		ew.printf("\nFiles changed: %d\n", len(detail.Diffs))
		for _, d := range detail.Diffs {
			ew.printf("  %s %s\n", diffMarker(d), diffPath(d))
		}
	}

	if len(detail.Comments) > 0 {
		ew.printf("\nComments: %d\n", len(detail.Comments))
		for _, c := range detail.Comments {
			ew.printf("\n  %s", authorName(c.Author))
			if c.CreatedAt > 0 {
				ew.printf(" — %s", time.UnixMilli(c.CreatedAt).UTC().Format("2006-01-02 15:04"))
			}
			if c.Position != nil {
				ew.printf(" — %s:%d", c.Position.FilePath, c.Position.LineNumber())
			}
			ew.println("")
			for _, line := range strings.Split(strings.TrimRight(c.Body, "\n"), "\n") {
				ew.printf("    %s\n", line)
			}
		}
	}

	return ew.err
}

func (t *TextWriter) WriteProjects(w io.Writer, report *ProjectReport) error {
	ew := &errWriter{w: w}
	ew.printf("Projects: %d\n", len(report.Projects))
	ew.println(strings.Repeat("─", 72))
	for _, p := range report.Projects {
		// Namespace carries the full path for GitLab projects; Phabricator
		// repositories only have a name.
		name := p.Name
		if p.Namespace != "" {
			name = p.Namespace
		}
		ew.printf("[%s] %-12s %s", p.Source, p.ID, name)
		if label := accessLabel(p.AccessLevel); label != "" {
			ew.printf(" (%s)", label)
		}
		ew.println("")
	}
	return ew.err
}

// accessLabel names a GitLab access level; zero (Phabricator projects) has
// no label.
func accessLabel(level int) string {
	switch {
	case level >= 50:
		return "owner"
	case level >= 40:
		return "maintainer"
	case level >= 30:
		return "developer"
	case level >= 20:
		return "reporter"
	case level >= 10:
		return "guest"
	default:
		return ""
	}
}

func revisionRef(r model.Revision) string {
	switch r.Source {
	case model.SourceGitLab:
		return fmt.Sprintf("[GITLAB] !%d", r.ID)
	case model.SourcePhabricator:
		return fmt.Sprintf("[PHABRICATOR] D%d", r.ID)
	default:
		return fmt.Sprintf("[%s] %d", r.Source, r.ID)
	}
}

func authorName(a model.Author) string {
	switch {
	case a.Name != "" && a.Username != "":
		return fmt.Sprintf("%s (@%s)", a.Name, a.Username)
	case a.Name != "":
		return a.Name
	case a.Username != "":
		return "@" + a.Username
	default:
		return "unknown"
	}
}

func diffMarker(d model.DiffFile) string {
	switch {
	case d.IsNewFile:
		return "A"
	case d.IsDeletedFile:
		return "D"
	case d.IsRenamedFile:
		return "R"
	default:
		return "M"
	}
}

func diffPath(d model.DiffFile) string {
	if d.IsRenamedFile && d.OldPath != d.NewPath {
		return d.OldPath + " -> " + d.NewPath
	}
	if d.NewPath != "" {
		return d.NewPath
	}
	return d.OldPath
}

// errWriter wraps an io.Writer and captures the first error.
type errWriter struct {
	w   io.Writer
	err error
}

func (ew *errWriter) printf(format string, args ...interface{}) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintf(ew.w, format, args...)
}

func (ew *errWriter) println(s string) {
	if ew.err != nil {
		return
	}
	_, ew.err = fmt.Fprintln(ew.w, s)
}
