package normalize

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/revq-dev/revq/internal/gitlab"
	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/phabricator"
)

// unknownAuthor is the display fallback when a platform record carries no
// resolvable author.
const unknownAuthor = "Unknown"

// ProjectIndex is the caller-owned project lookup table, keyed by
// platform-native project ID (decimal string for GitLab, repository PHID
// for Phabricator). The core consumes it; it never owns project storage.
type ProjectIndex map[string]model.Project

// NewProjectIndex builds a lookup table from a caller-supplied project list.
func NewProjectIndex(projects []model.Project) ProjectIndex {
	ix := make(ProjectIndex, len(projects))
	for _, p := range projects {
		ix[p.ID] = p
	}
	return ix
}

// UnresolvedProjectError reports a normalization-time lookup miss. It drops
// the single affected item, never the batch.
type UnresolvedProjectError struct {
	ProjectID string
}

func (e *UnresolvedProjectError) Error() string {
	return "project " + e.ProjectID + " not present in project lookup table"
}

// GitLabRevision maps one raw merge request to a unified Revision.
func GitLabRevision(mr gitlab.MergeRequest, projects ProjectIndex) (model.Revision, error) {
	projectID := strconv.FormatInt(mr.ProjectID, 10)
	project, ok := projects[projectID]
	if !ok {
		return model.Revision{}, &UnresolvedProjectError{ProjectID: projectID}
	}

	author := model.Author{Name: unknownAuthor}
	if mr.Author != nil && mr.Author.Name != "" {
		author = model.Author{
			Name:       mr.Author.Name,
			Username:   mr.Author.Username,
			PlatformID: strconv.FormatInt(mr.Author.ID, 10),
		}
	}

	return model.Revision{
		ID:           mr.IID,
		Source:       model.SourceGitLab,
		Title:        mr.Title,
		Summary:      mr.Description,
		Status:       mr.DetailedMergeStatus,
		URL:          mr.WebURL,
		Author:       author,
		DateModified: isoToEpochMillis(mr.UpdatedAt),
		IsDraft:      mr.WorkInProgress,
		Project:      project.Namespace,
		ProjectURL:   project.URL,
		ProjectID:    projectID,
		JiraID:       model.ExtractJiraID(mr.Title),
		Branch:       mr.SourceBranch,
	}, nil
}

// GitLabRevisions normalizes a batch, dropping items whose project cannot
// be resolved. Drops are logged, not fatal to the batch.
func GitLabRevisions(mrs []gitlab.MergeRequest, projects ProjectIndex, log *zap.Logger) []model.Revision {
	revisions := make([]model.Revision, 0, len(mrs))
	for _, mr := range mrs {
		rev, err := GitLabRevision(mr, projects)
		if err != nil {
			log.Warn("dropping merge request during normalization",
				zap.Int64("iid", mr.IID),
				zap.Int64("project_id", mr.ProjectID),
				zap.Error(err),
			)
			continue
		}
		revisions = append(revisions, rev)
	}
	return revisions
}

// PhabricatorOptions carries context the search payload does not include.
type PhabricatorOptions struct {
	// BaseURL of the install, for building canonical D<id> links.
	BaseURL string
}

// PhabricatorRevisions normalizes a search result batch. Author PHIDs for
// the whole batch are resolved in one lookup through the per-call identity
// cache; items whose repository is missing from the project table are
// dropped and logged.
func PhabricatorRevisions(ctx context.Context, revs []phabricator.Revision, ids *IdentityCache, projects ProjectIndex, opts PhabricatorOptions, log *zap.Logger) ([]model.Revision, error) {
	phids := make([]string, 0, len(revs))
	for _, rev := range revs {
		phids = append(phids, rev.Fields.AuthorPHID)
	}
	authors, err := ids.Resolve(ctx, phids)
	if err != nil {
		return nil, fmt.Errorf("resolving revision authors: %w", err)
	}

	revisions := make([]model.Revision, 0, len(revs))
	for _, rev := range revs {
		normalized, err := phabricatorRevision(rev, authors, projects, opts)
		if err != nil {
			log.Warn("dropping revision during normalization",
				zap.Int64("revision_id", rev.ID),
				zap.String("repository_phid", rev.Fields.RepositoryPHID),
				zap.Error(err),
			)
			continue
		}
		revisions = append(revisions, normalized)
	}
	return revisions, nil
}

// PhabricatorRevision maps one raw revision, resolving its author through
// the cache.
func PhabricatorRevision(ctx context.Context, rev phabricator.Revision, ids *IdentityCache, projects ProjectIndex, opts PhabricatorOptions) (model.Revision, error) {
	authors, err := ids.Resolve(ctx, []string{rev.Fields.AuthorPHID})
	if err != nil {
		return model.Revision{}, fmt.Errorf("resolving author for D%d: %w", rev.ID, err)
	}
	return phabricatorRevision(rev, authors, projects, opts)
}

func phabricatorRevision(rev phabricator.Revision, authors map[string]model.Author, projects ProjectIndex, opts PhabricatorOptions) (model.Revision, error) {
	project, ok := projects[rev.Fields.RepositoryPHID]
	if !ok {
		return model.Revision{}, &UnresolvedProjectError{ProjectID: rev.Fields.RepositoryPHID}
	}

	author, ok := authors[rev.Fields.AuthorPHID]
	if !ok {
		author = model.Author{Name: unknownAuthor, PlatformID: rev.Fields.AuthorPHID}
	}

	return model.Revision{
		ID:           rev.ID,
		Source:       model.SourcePhabricator,
		Title:        rev.Fields.Title,
		Summary:      rev.Fields.Summary,
		Status:       rev.Fields.Status.Value,
		URL:          fmt.Sprintf("%s/D%d", opts.BaseURL, rev.ID),
		Author:       author,
		DateModified: rev.Fields.DateModified * 1000,
		IsDraft:      rev.Fields.IsDraft,
		Project:      project.Name,
		ProjectURL:   project.URL,
		ProjectID:    rev.Fields.RepositoryPHID,
		JiraID:       model.ExtractJiraID(rev.Fields.Title),
	}, nil
}

// isoToEpochMillis parses an ISO-8601 timestamp to epoch milliseconds.
// Unparseable input yields zero rather than an error: a missing timestamp
// is a display defect, not a reason to drop a revision.
func isoToEpochMillis(s string) int64 {
	if s == "" {
		return 0
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return 0
	}
	return t.UnixMilli()
}
