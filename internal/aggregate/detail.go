package aggregate

import (
	"context"
	"fmt"
	"strconv"

	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/normalize"
	"github.com/revq-dev/revq/internal/unidiff"
)

// Detail is the full view of one revision: diffs, the ordered comment
// stream, its inline subset, and resolved reviewers.
type Detail struct {
	Revision       model.Revision
	Diffs          []model.DiffFile
	Comments       []model.Comment
	InlineComments []model.Comment
	Reviewers      []model.Reviewer
}

// FetchRevisionDetail fetches one revision with diffs and comments.
// projectID is required for GitLab (items are addressed per project) and
// ignored for Phabricator.
func (a *Aggregator) FetchRevisionDetail(ctx context.Context, src model.Source, id, projectID int64) (*Detail, error) {
	switch src {
	case model.SourceGitLab:
		return a.gitlabDetail(ctx, projectID, id)
	case model.SourcePhabricator:
		return a.phabricatorDetail(ctx, id)
	}
	return nil, fmt.Errorf("unknown source %q", src)
}

func (a *Aggregator) gitlabDetail(ctx context.Context, projectID, iid int64) (*Detail, error) {
	if a.gitlab == nil {
		return nil, ErrUnsupported
	}
	mr, err := a.gitlab.GetMergeRequest(ctx, projectID, iid)
	if err != nil {
		return nil, err
	}
	revision, err := normalize.GitLabRevision(*mr, a.projects)
	if err != nil {
		return nil, err
	}

	diffs, err := a.gitlab.GetChanges(ctx, projectID, iid)
	if err != nil {
		return nil, err
	}
	notes, err := a.gitlab.ListNotes(ctx, projectID, iid)
	if err != nil {
		return nil, err
	}
	comments := normalize.GitLabComments(notes)

	return &Detail{
		Revision:       revision,
		Diffs:          diffs,
		Comments:       comments,
		InlineComments: normalize.Inline(comments),
		Reviewers:      normalize.GitLabReviewers(*mr),
	}, nil
}

func (a *Aggregator) phabricatorDetail(ctx context.Context, id int64) (*Detail, error) {
	if a.phab == nil {
		return nil, ErrUnsupported
	}
	raw, err := a.phab.GetRevision(ctx, id)
	if err != nil {
		return nil, err
	}

	ids := normalize.NewIdentityCache(a.phab)
	revision, err := normalize.PhabricatorRevision(ctx, *raw, ids, a.projects,
		normalize.PhabricatorOptions{BaseURL: a.phab.BaseURL()})
	if err != nil {
		return nil, err
	}

	blob, err := a.phab.GetRawDiff(ctx, raw.PHID)
	if err != nil {
		return nil, err
	}
	txns, err := a.phab.SearchTransactions(ctx, raw.PHID)
	if err != nil {
		return nil, err
	}
	comments, err := normalize.PhabricatorComments(ctx, txns, ids)
	if err != nil {
		return nil, err
	}
	reviewers, err := normalize.PhabricatorReviewers(ctx, *raw, ids)
	if err != nil {
		return nil, err
	}

	return &Detail{
		Revision:       revision,
		Diffs:          unidiff.Parse(blob),
		Comments:       comments,
		InlineComments: normalize.Inline(comments),
		Reviewers:      reviewers,
	}, nil
}

// PostComment creates a general or positioned comment on one revision,
// routed per source.
func (a *Aggregator) PostComment(ctx context.Context, src model.Source, id, projectID int64, body string, pos *model.CommentPosition) (*model.Comment, error) {
	switch src {
	case model.SourceGitLab:
		if a.gitlab == nil {
			return nil, ErrUnsupported
		}
		note, err := a.gitlab.PostNote(ctx, projectID, id, body, pos)
		if err != nil {
			return nil, err
		}
		return &model.Comment{
			ID: note.ID,
			Author: model.Author{
				Name:       note.Author.Name,
				Username:   note.Author.Username,
				PlatformID: strconv.FormatInt(note.Author.ID, 10),
			},
			Body:     note.Body,
			Position: pos,
		}, nil
	case model.SourcePhabricator:
		if a.phab == nil {
			return nil, ErrUnsupported
		}
		if err := a.phab.CreateComment(ctx, id, body, pos); err != nil {
			return nil, err
		}
		// Conduit's edit call does not echo the created comment back.
		return &model.Comment{Body: body, Position: pos}, nil
	}
	return nil, fmt.Errorf("unknown source %q", src)
}

// DeleteComment removes a comment from one revision. The Conduit API has no
// comment-deletion call, so Phabricator reports ErrUnsupported.
func (a *Aggregator) DeleteComment(ctx context.Context, src model.Source, id, projectID, commentID int64) error {
	switch src {
	case model.SourceGitLab:
		if a.gitlab == nil {
			return ErrUnsupported
		}
		return a.gitlab.DeleteNote(ctx, projectID, id, commentID)
	case model.SourcePhabricator:
		return fmt.Errorf("deleting comments: %w", ErrUnsupported)
	}
	return fmt.Errorf("unknown source %q", src)
}
