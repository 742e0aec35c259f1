package normalize

import (
	"context"
	"fmt"
	"sort"
	"strconv"

	"github.com/revq-dev/revq/internal/gitlab"
	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/phabricator"
)

// GitLabComments flattens a merge request's notes list into ordered
// comments. System notes (status changes, pushes) carry no review content
// and are rejected.
func GitLabComments(notes []gitlab.Note) []model.Comment {
	comments := make([]model.Comment, 0, len(notes))
	for _, note := range notes {
		if note.System || note.Body == "" {
			continue
		}
		c := model.Comment{
			ID: note.ID,
			Author: model.Author{
				Name:       note.Author.Name,
				Username:   note.Author.Username,
				PlatformID: strconv.FormatInt(note.Author.ID, 10),
			},
			Body:      note.Body,
			CreatedAt: isoToEpochMillis(note.CreatedAt),
		}
		if note.Position != nil {
			pos := &model.CommentPosition{
				FilePath: note.Position.NewPath,
				OldLine:  note.Position.OldLine,
				NewLine:  note.Position.NewLine,
			}
			if pos.FilePath == "" {
				pos.FilePath = note.Position.OldPath
			}
			if note.Position.NewLine > 0 {
				pos.Side = "new"
			} else {
				pos.Side = "old"
			}
			c.Position = pos
		}
		comments = append(comments, c)
	}
	sortComments(comments)
	return comments
}

// PhabricatorComments flattens a transaction stream into ordered comments.
// Only comment-bearing transactions survive: type "comment" (general) and
// type "inline" (positioned); metadata-only entries such as status changes
// are rejected, as are removed comment bodies. Author names resolve through
// the per-call identity cache in one batched lookup.
func PhabricatorComments(ctx context.Context, txns []phabricator.Transaction, ids *IdentityCache) ([]model.Comment, error) {
	kept := make([]phabricator.Transaction, 0, len(txns))
	phids := make([]string, 0, len(txns))
	for _, txn := range txns {
		if txn.Type != "comment" && txn.Type != "inline" {
			continue
		}
		if body(txn) == "" {
			continue
		}
		kept = append(kept, txn)
		phids = append(phids, txn.AuthorPHID)
	}

	authors, err := ids.Resolve(ctx, phids)
	if err != nil {
		return nil, fmt.Errorf("resolving comment authors: %w", err)
	}

	comments := make([]model.Comment, 0, len(kept))
	for _, txn := range kept {
		author, ok := authors[txn.AuthorPHID]
		if !ok {
			author = model.Author{Name: unknownAuthor, PlatformID: txn.AuthorPHID}
		}
		c := model.Comment{
			ID:        txn.ID,
			Author:    author,
			Body:      body(txn),
			CreatedAt: txn.DateCreated * 1000,
		}
		if txn.Type == "inline" {
			c.Position = &model.CommentPosition{
				FilePath: txn.Fields.Path,
				NewLine:  txn.Fields.Line,
				Side:     "new",
			}
		}
		comments = append(comments, c)
	}
	sortComments(comments)
	return comments, nil
}

func body(txn phabricator.Transaction) string {
	for _, c := range txn.Comments {
		if !c.Removed && c.Content.Raw != "" {
			return c.Content.Raw
		}
	}
	return ""
}

// Inline returns the positioned subset of an ordered comment list. The
// result shares elements with the full list — callers must not assume the
// two views are disjoint.
func Inline(comments []model.Comment) []model.Comment {
	var inline []model.Comment
	for _, c := range comments {
		if c.Position != nil {
			inline = append(inline, c)
		}
	}
	return inline
}

// sortComments orders by createdAt ascending, id ascending as tiebreaker
// for determinism.
func sortComments(comments []model.Comment) {
	sort.Slice(comments, func(i, j int) bool {
		if comments[i].CreatedAt != comments[j].CreatedAt {
			return comments[i].CreatedAt < comments[j].CreatedAt
		}
		return comments[i].ID < comments[j].ID
	})
}

// GitLabReviewers maps a merge request's reviewer list, omitting entries
// equal to the author (self-review artifacts).
func GitLabReviewers(mr gitlab.MergeRequest) []model.Reviewer {
	var reviewers []model.Reviewer
	for _, r := range mr.Reviewers {
		if mr.Author != nil && r.Username == mr.Author.Username {
			continue
		}
		reviewers = append(reviewers, model.Reviewer{Name: r.Name, Username: r.Username})
	}
	return reviewers
}

// PhabricatorReviewers resolves the reviewers attachment of a revision.
// Entries that cannot be resolved, or that equal the author, are omitted
// rather than nulled.
func PhabricatorReviewers(ctx context.Context, rev phabricator.Revision, ids *IdentityCache) ([]model.Reviewer, error) {
	records := rev.Attachments.Reviewers.Reviewers
	phids := make([]string, 0, len(records))
	for _, r := range records {
		phids = append(phids, r.ReviewerPHID)
	}
	authors, err := ids.Resolve(ctx, phids)
	if err != nil {
		return nil, fmt.Errorf("resolving reviewers for D%d: %w", rev.ID, err)
	}

	var reviewers []model.Reviewer
	for _, r := range records {
		if r.ReviewerPHID == rev.Fields.AuthorPHID {
			continue
		}
		author, ok := authors[r.ReviewerPHID]
		if !ok {
			continue
		}
		reviewers = append(reviewers, model.Reviewer{Name: author.Name, Username: author.Username})
	}
	return reviewers, nil
}
