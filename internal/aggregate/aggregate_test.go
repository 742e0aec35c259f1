package aggregate

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/revq-dev/revq/internal/gitlab"
	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/phabricator"
	"github.com/revq-dev/revq/internal/source"
)

// fakeGitLab implements GitLabAPI from per-project fixtures.
type fakeGitLab struct {
	mu       sync.Mutex
	mrs      map[int64][]gitlab.MergeRequest
	failing  map[int64]error
	delay    time.Duration
	inFlight atomic.Int64
	maxSeen  atomic.Int64
	notes    map[int64][]gitlab.Note
	deleted  []int64
}

func (f *fakeGitLab) ListOpenMergeRequests(ctx context.Context, projectID int64) ([]gitlab.MergeRequest, error) {
	cur := f.inFlight.Add(1)
	defer f.inFlight.Add(-1)
	for {
		max := f.maxSeen.Load()
		if cur <= max || f.maxSeen.CompareAndSwap(max, cur) {
			break
		}
	}
	if f.delay > 0 {
		time.Sleep(f.delay)
	}
	if err, ok := f.failing[projectID]; ok {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.mrs[projectID], nil
}

func (f *fakeGitLab) GetMergeRequest(ctx context.Context, projectID, iid int64) (*gitlab.MergeRequest, error) {
	for _, mr := range f.mrs[projectID] {
		if mr.IID == iid {
			return &mr, nil
		}
	}
	return nil, &source.NotFoundError{Resource: fmt.Sprintf("merge request !%d", iid)}
}

func (f *fakeGitLab) GetChanges(context.Context, int64, int64) ([]model.DiffFile, error) {
	return []model.DiffFile{{OldPath: "a.go", NewPath: "a.go", DiffText: "@@ -1 +1 @@\n"}}, nil
}

func (f *fakeGitLab) ListNotes(ctx context.Context, projectID, iid int64) ([]gitlab.Note, error) {
	return f.notes[iid], nil
}

func (f *fakeGitLab) PostNote(ctx context.Context, projectID, iid int64, body string, pos *model.CommentPosition) (*gitlab.Note, error) {
	return &gitlab.Note{ID: 500, Body: body}, nil
}

func (f *fakeGitLab) DeleteNote(ctx context.Context, projectID, iid, noteID int64) error {
	f.deleted = append(f.deleted, noteID)
	return nil
}

// fakePhab implements PhabricatorAPI from fixtures.
type fakePhab struct {
	revisions []phabricator.Revision
	searchErr error
	users     map[string]phabricator.User
	userCalls int
	txns      map[string][]phabricator.Transaction
	rawDiffs  map[string]string
	comments  []string
}

func (f *fakePhab) BaseURL() string { return "https://phab.example.com" }

func (f *fakePhab) SearchOpenRevisions(context.Context) ([]phabricator.Revision, error) {
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.revisions, nil
}

func (f *fakePhab) GetRevision(ctx context.Context, id int64) (*phabricator.Revision, error) {
	for _, rev := range f.revisions {
		if rev.ID == id {
			return &rev, nil
		}
	}
	return nil, &source.NotFoundError{Resource: fmt.Sprintf("revision D%d", id)}
}

func (f *fakePhab) GetRawDiff(ctx context.Context, phid string) (string, error) {
	return f.rawDiffs[phid], nil
}

func (f *fakePhab) SearchTransactions(ctx context.Context, phid string) ([]phabricator.Transaction, error) {
	return f.txns[phid], nil
}

func (f *fakePhab) SearchUsers(ctx context.Context, phids []string) ([]phabricator.User, error) {
	f.userCalls++
	var out []phabricator.User
	for _, phid := range phids {
		if u, ok := f.users[phid]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (f *fakePhab) CreateComment(ctx context.Context, id int64, body string, pos *model.CommentPosition) error {
	f.comments = append(f.comments, body)
	return nil
}

func glProject(id int64) model.Project {
	return model.Project{
		ID:        fmt.Sprintf("%d", id),
		Source:    model.SourceGitLab,
		Name:      fmt.Sprintf("proj%d", id),
		Namespace: fmt.Sprintf("team/proj%d", id),
		URL:       fmt.Sprintf("https://git.example.com/team/proj%d", id),
	}
}

func mr(projectID, iid int64, title string) gitlab.MergeRequest {
	return gitlab.MergeRequest{
		IID:                 iid,
		ProjectID:           projectID,
		Title:               title,
		DetailedMergeStatus: "mergeable",
		UpdatedAt:           "2026-08-01T10:30:00Z",
		Author:              &gitlab.UserRecord{Name: "Alice Doe", Username: "alice"},
	}
}

func TestFetchAllRevisions_PartialFailure(t *testing.T) {
	gl := &fakeGitLab{
		mrs: map[int64][]gitlab.MergeRequest{
			1: {mr(1, 11, "from project one")},
			3: {mr(3, 31, "from project three")},
		},
		failing: map[int64]error{2: &source.APIError{Status: 500, PlatformMessage: "boom"}},
	}
	a := New([]model.Project{glProject(1), glProject(2), glProject(3)}, WithGitLab(gl))

	result, err := a.FetchAllRevisions(context.Background(), Scope{ProjectIDs: []int64{1, 2, 3}})
	require.NoError(t, err, "partial failures are collected, never thrown")
	assert.Len(t, result.Revisions, 2)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, "2", result.Errors[0].ProjectID)
	assert.Equal(t, model.SourceGitLab, result.Errors[0].Source)
}

func TestFetchAllRevisions_DeduplicatesWithinSource(t *testing.T) {
	dup := mr(1, 101, "same item twice")
	gl := &fakeGitLab{mrs: map[int64][]gitlab.MergeRequest{
		1: {dup, dup},
	}}
	a := New([]model.Project{glProject(1)}, WithGitLab(gl))

	result, err := a.FetchAllRevisions(context.Background(), Scope{ProjectIDs: []int64{1}})
	require.NoError(t, err)
	assert.Len(t, result.Revisions, 1, "(source, id) is the natural key; duplicates collapse")
}

func TestFetchAllRevisions_BoundedConcurrency(t *testing.T) {
	mrs := make(map[int64][]gitlab.MergeRequest)
	var ids []int64
	for i := int64(1); i <= 8; i++ {
		mrs[i] = []gitlab.MergeRequest{mr(i, i*10, "x")}
		ids = append(ids, i)
	}
	gl := &fakeGitLab{mrs: mrs, delay: 20 * time.Millisecond}

	var projects []model.Project
	for _, id := range ids {
		projects = append(projects, glProject(id))
	}
	a := New(projects, WithGitLab(gl), WithConcurrency(2))

	_, err := a.FetchAllRevisions(context.Background(), Scope{ProjectIDs: ids})
	require.NoError(t, err)
	assert.LessOrEqual(t, gl.maxSeen.Load(), int64(2), "in-flight requests must not exceed the pool limit")
}

func TestFetchAllRevisions_CancellationDiscardsPartials(t *testing.T) {
	gl := &fakeGitLab{mrs: map[int64][]gitlab.MergeRequest{1: {mr(1, 11, "x")}}}
	a := New([]model.Project{glProject(1)}, WithGitLab(gl))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	result, err := a.FetchAllRevisions(ctx, Scope{ProjectIDs: []int64{1}})
	require.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, result, "cancellation is give up, not best effort")
}

func TestFetchAllRevisions_PhabricatorSearchFailureIsSideband(t *testing.T) {
	phab := &fakePhab{searchErr: &source.APIError{Status: 502, PlatformMessage: "bad gateway"}}
	a := New(nil, WithPhabricator(phab))

	result, err := a.FetchAllRevisions(context.Background(), Scope{})
	require.NoError(t, err)
	assert.Empty(t, result.Revisions)
	require.Len(t, result.Errors, 1)
	assert.Equal(t, model.SourcePhabricator, result.Errors[0].Source)
	assert.Empty(t, result.Errors[0].ProjectID, "global search failures carry no project")
}

func phabRev(id int64, title string) phabricator.Revision {
	rev := phabricator.Revision{ID: id, PHID: fmt.Sprintf("PHID-DREV-%d", id)}
	rev.Fields.Title = title
	rev.Fields.Status.Value = "needs-review"
	rev.Fields.AuthorPHID = "PHID-USER-1"
	rev.Fields.RepositoryPHID = "PHID-REPO-1"
	rev.Fields.DateModified = 1754042400
	return rev
}

func phabProject() model.Project {
	return model.Project{ID: "PHID-REPO-1", Source: model.SourcePhabricator, Name: "core", URL: "https://phab.example.com/source/core"}
}

func phabUser(phid, username, name string) phabricator.User {
	u := phabricator.User{PHID: phid}
	u.Fields.Username = username
	u.Fields.RealName = name
	return u
}

func TestFetchAllRevisions_MergesBothSources(t *testing.T) {
	gl := &fakeGitLab{mrs: map[int64][]gitlab.MergeRequest{1: {mr(1, 101, "gitlab item")}}}
	phab := &fakePhab{
		revisions: []phabricator.Revision{phabRev(101, "phab item")},
		users:     map[string]phabricator.User{"PHID-USER-1": phabUser("PHID-USER-1", "alice", "Alice Doe")},
	}
	a := New([]model.Project{glProject(1), phabProject()}, WithGitLab(gl), WithPhabricator(phab))

	result, err := a.FetchAllRevisions(context.Background(), Scope{ProjectIDs: []int64{1}})
	require.NoError(t, err)
	require.Len(t, result.Revisions, 2, "equal IDs across sources are distinct items")

	bySource := map[model.Source]int{}
	for _, rev := range result.Revisions {
		bySource[rev.Source]++
	}
	assert.Equal(t, 1, bySource[model.SourceGitLab])
	assert.Equal(t, 1, bySource[model.SourcePhabricator])
}

func TestFetchAllRevisions_NoSourceConfigured(t *testing.T) {
	a := New(nil)
	_, err := a.FetchAllRevisions(context.Background(), Scope{})
	require.Error(t, err)
}

func TestFetchAllRevisions_UnresolvableProjectTable(t *testing.T) {
	gl := &fakeGitLab{}
	a := New(nil, WithGitLab(gl))
	_, err := a.FetchAllRevisions(context.Background(), Scope{Sources: []model.Source{model.SourceGitLab}})
	require.Error(t, err, "an empty project table makes a GitLab-wide request meaningless")
}

func TestFetchRevisionDetail_Phabricator(t *testing.T) {
	rev := phabRev(123, "[CD-99] detail")
	rev.Attachments.Reviewers.Reviewers = []phabricator.ReviewerRecord{
		{ReviewerPHID: "PHID-USER-2"},
	}
	inline := phabricator.Transaction{ID: 1, Type: "inline", AuthorPHID: "PHID-USER-2", DateCreated: 200}
	inline.Fields.Path = "a.go"
	inline.Fields.Line = 3
	cmt := phabricator.TransactionComment{ID: 10}
	cmt.Content.Raw = "tighten this"
	inline.Comments = []phabricator.TransactionComment{cmt}

	general := phabricator.Transaction{ID: 2, Type: "comment", AuthorPHID: "PHID-USER-1", DateCreated: 100}
	gc := phabricator.TransactionComment{ID: 20}
	gc.Content.Raw = "overall fine"
	general.Comments = []phabricator.TransactionComment{gc}

	phab := &fakePhab{
		revisions: []phabricator.Revision{rev},
		users: map[string]phabricator.User{
			"PHID-USER-1": phabUser("PHID-USER-1", "alice", "Alice Doe"),
			"PHID-USER-2": phabUser("PHID-USER-2", "bob", "Bob Roe"),
		},
		txns:     map[string][]phabricator.Transaction{"PHID-DREV-123": {inline, general}},
		rawDiffs: map[string]string{"PHID-DREV-123": "diff --git a/a.go b/a.go\n+++ b/a.go\n+x\n"},
	}
	a := New([]model.Project{phabProject()}, WithPhabricator(phab))

	detail, err := a.FetchRevisionDetail(context.Background(), model.SourcePhabricator, 123, 0)
	require.NoError(t, err)
	assert.Equal(t, "CD-99", detail.Revision.JiraID)
	require.Len(t, detail.Diffs, 1)
	assert.Equal(t, "a.go", detail.Diffs[0].NewPath)
	require.Len(t, detail.Comments, 2)
	assert.Equal(t, "overall fine", detail.Comments[0].Body, "comments ordered by createdAt")
	require.Len(t, detail.InlineComments, 1)
	assert.Equal(t, "tighten this", detail.InlineComments[0].Body)
	require.Len(t, detail.Reviewers, 1)
	assert.Equal(t, "bob", detail.Reviewers[0].Username)
}

func TestFetchRevisionDetail_GitLab(t *testing.T) {
	gl := &fakeGitLab{
		mrs: map[int64][]gitlab.MergeRequest{1: {mr(1, 7, "[AB-12] detail")}},
		notes: map[int64][]gitlab.Note{7: {
			{ID: 1, Body: "looks good", CreatedAt: "2026-08-01T10:00:00Z", Author: gitlab.UserRecord{Name: "Bob"}},
		}},
	}
	a := New([]model.Project{glProject(1)}, WithGitLab(gl))

	detail, err := a.FetchRevisionDetail(context.Background(), model.SourceGitLab, 7, 1)
	require.NoError(t, err)
	assert.Equal(t, "AB-12", detail.Revision.JiraID)
	assert.Len(t, detail.Diffs, 1)
	require.Len(t, detail.Comments, 1)
	assert.Empty(t, detail.InlineComments)
}

func TestPostComment_RoutesPerSource(t *testing.T) {
	gl := &fakeGitLab{}
	phab := &fakePhab{}
	a := New(nil, WithGitLab(gl), WithPhabricator(phab))

	c, err := a.PostComment(context.Background(), model.SourceGitLab, 7, 1, "hi", nil)
	require.NoError(t, err)
	assert.Equal(t, int64(500), c.ID)

	_, err = a.PostComment(context.Background(), model.SourcePhabricator, 123, 0, "hello", nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, phab.comments)
}

func TestDeleteComment(t *testing.T) {
	gl := &fakeGitLab{}
	a := New(nil, WithGitLab(gl), WithPhabricator(&fakePhab{}))

	require.NoError(t, a.DeleteComment(context.Background(), model.SourceGitLab, 7, 1, 900))
	assert.Equal(t, []int64{900}, gl.deleted)

	err := a.DeleteComment(context.Background(), model.SourcePhabricator, 123, 0, 1)
	assert.ErrorIs(t, err, ErrUnsupported)
}
