package model

// Source identifies the platform a revision originated from. It forms part
// of a revision's identity: IDs are unique only within one source.
type Source string

const (
	SourceGitLab      Source = "GITLAB"
	SourcePhabricator Source = "PHABRICATOR"
)

// ParseSource maps a user-supplied source name to a Source tag.
func ParseSource(s string) (Source, bool) {
	switch s {
	case "gitlab", "GITLAB", "gl":
		return SourceGitLab, true
	case "phabricator", "PHABRICATOR", "phab", "ph":
		return SourcePhabricator, true
	}
	return "", false
}

// Author identifies who created a revision or comment. Username may be
// empty for Phabricator summary views, where only the display name is
// resolvable without an extra lookup.
type Author struct {
	Name       string `json:"name"`
	Username   string `json:"username,omitempty"`
	PlatformID string `json:"platformId,omitempty"`
}

// Revision is the unified cross-platform code-review item.
//
// Status is the platform's own status string, not remapped to a shared
// vocabulary; consumers map status to presentation via a lookup table.
type Revision struct {
	ID           int64  `json:"id"`
	Source       Source `json:"source"`
	Title        string `json:"title"`
	Summary      string `json:"summary,omitempty"`
	Status       string `json:"status"`
	URL          string `json:"url"`
	Author       Author `json:"author"`
	DateModified int64  `json:"dateModified"` // epoch milliseconds
	IsDraft      bool   `json:"isDraft"`
	Project      string `json:"project"`
	ProjectURL   string `json:"projectUrl"`
	ProjectID    string `json:"projectId"`
	JiraID       string `json:"jiraId,omitempty"`
	Branch       string `json:"branch,omitempty"` // detail view only
}

// Key is the natural key of a revision within an aggregation: two revisions
// with equal keys are the same logical item.
type Key struct {
	Source Source
	ID     int64
}

// Key returns the revision's (source, id) identity.
func (r Revision) Key() Key {
	return Key{Source: r.Source, ID: r.ID}
}

// Project is a platform-native project/repository record. The ID holds the
// platform's native identifier: a decimal number for GitLab, a PHID for
// Phabricator repositories. AccessLevel carries GitLab membership hints and
// is zero for Phabricator.
type Project struct {
	ID          string `json:"id"`
	Source      Source `json:"source"`
	Name        string `json:"name"`
	Namespace   string `json:"namespace"`
	URL         string `json:"url"`
	AccessLevel int    `json:"accessLevel,omitempty"`
}

// DiffFile is one file's change within a revision. DiffText holds the raw
// hunk text, unparsed further. Order in a diff result matches file order in
// the source diff.
type DiffFile struct {
	OldPath       string `json:"oldPath"`
	NewPath       string `json:"newPath"`
	DiffText      string `json:"diffText"`
	IsNewFile     bool   `json:"isNewFile"`
	IsRenamedFile bool   `json:"isRenamedFile"`
	IsDeletedFile bool   `json:"isDeletedFile"`
}

// CommentPosition anchors an inline comment to a file and line. For display,
// LineNumber reports the new line when present, otherwise the old line. When
// posting, FilePath and at least one of OldLine/NewLine are required.
type CommentPosition struct {
	FilePath string `json:"filePath"`
	OldLine  int    `json:"oldLine,omitempty"`
	NewLine  int    `json:"newLine,omitempty"`
	Side     string `json:"side,omitempty"`
}

// LineNumber returns the display line for the position.
func (p CommentPosition) LineNumber() int {
	if p.NewLine > 0 {
		return p.NewLine
	}
	return p.OldLine
}

// Comment is a normalized revision comment. Position is nil for general
// (non-inline) comments.
type Comment struct {
	ID        int64            `json:"id"`
	Author    Author           `json:"author"`
	Body      string           `json:"body"`
	CreatedAt int64            `json:"createdAt"` // epoch milliseconds
	Position  *CommentPosition `json:"position,omitempty"`
}

// Reviewer is a resolved reviewer identity. Entries that cannot be resolved,
// or that equal the revision author, are omitted rather than nulled.
type Reviewer struct {
	Name     string `json:"name"`
	Username string `json:"username,omitempty"`
}

// SourceError records one failed fetch during aggregation. Errors are
// collected alongside partial data, never thrown past the orchestrator.
type SourceError struct {
	Source    Source `json:"source"`
	ProjectID string `json:"projectId,omitempty"`
	Err       error  `json:"-"`
	Message   string `json:"message"`
}

func (e SourceError) Error() string {
	if e.ProjectID != "" {
		return string(e.Source) + " project " + e.ProjectID + ": " + e.Message
	}
	return string(e.Source) + ": " + e.Message
}
