package normalize

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/revq-dev/revq/internal/gitlab"
	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/phabricator"
)

// fakeResolver satisfies IdentityResolver from a fixed user set and counts
// lookup calls.
type fakeResolver struct {
	users map[string]phabricator.User
	calls int
}

func (f *fakeResolver) SearchUsers(_ context.Context, phids []string) ([]phabricator.User, error) {
	f.calls++
	var out []phabricator.User
	for _, phid := range phids {
		if u, ok := f.users[phid]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func phabUser(phid, username, realName string) phabricator.User {
	u := phabricator.User{PHID: phid}
	u.Fields.Username = username
	u.Fields.RealName = realName
	return u
}

func testProjects() ProjectIndex {
	return NewProjectIndex([]model.Project{
		{ID: "42", Source: model.SourceGitLab, Name: "api", Namespace: "team/api", URL: "https://git.example.com/team/api"},
		{ID: "PHID-REPO-1", Source: model.SourcePhabricator, Name: "core", URL: "https://phab.example.com/source/core"},
	})
}

func sampleMR() gitlab.MergeRequest {
	return gitlab.MergeRequest{
		IID:                 7,
		ProjectID:           42,
		Title:               "[AB-12] add pagination guard",
		Description:         "caps the page loop",
		DetailedMergeStatus: "mergeable",
		WorkInProgress:      true,
		WebURL:              "https://git.example.com/team/api/-/merge_requests/7",
		UpdatedAt:           "2026-08-01T10:30:00Z",
		SourceBranch:        "fix/pagination",
		Author:              &gitlab.UserRecord{ID: 5, Name: "Alice Doe", Username: "alice"},
	}
}

func TestGitLabRevision_Mapping(t *testing.T) {
	rev, err := GitLabRevision(sampleMR(), testProjects())
	require.NoError(t, err)

	assert.Equal(t, int64(7), rev.ID)
	assert.Equal(t, model.SourceGitLab, rev.Source)
	assert.Equal(t, "mergeable", rev.Status, "status comes from detailed_merge_status")
	assert.True(t, rev.IsDraft, "isDraft comes from work_in_progress")
	assert.Equal(t, "Alice Doe", rev.Author.Name)
	assert.Equal(t, "AB-12", rev.JiraID)
	assert.Equal(t, "team/api", rev.Project)
	assert.Equal(t, "42", rev.ProjectID)
	assert.Equal(t, "fix/pagination", rev.Branch)

	// 2026-08-01T10:30:00Z in epoch milliseconds.
	assert.Equal(t, int64(1785580200000), rev.DateModified)
}

func TestGitLabRevision_AuthorFallback(t *testing.T) {
	mr := sampleMR()
	mr.Author = nil
	rev, err := GitLabRevision(mr, testProjects())
	require.NoError(t, err)
	assert.Equal(t, "Unknown", rev.Author.Name)
}

func TestGitLabRevision_Idempotent(t *testing.T) {
	mr := sampleMR()
	a, err := GitLabRevision(mr, testProjects())
	require.NoError(t, err)
	b, err := GitLabRevision(mr, testProjects())
	require.NoError(t, err)
	assert.Equal(t, a, b, "normalizing the same raw item twice must be structurally equal")
}

func TestGitLabRevisions_DropsUnresolvedProject(t *testing.T) {
	known := sampleMR()
	orphan := sampleMR()
	orphan.IID = 8
	orphan.ProjectID = 999

	revisions := GitLabRevisions([]gitlab.MergeRequest{known, orphan}, testProjects(), zap.NewNop())
	require.Len(t, revisions, 1, "lookup miss drops the single item, not the batch")
	assert.Equal(t, int64(7), revisions[0].ID)
}

func samplePhabRevision() phabricator.Revision {
	rev := phabricator.Revision{ID: 123, PHID: "PHID-DREV-abc"}
	rev.Fields.Title = "[CD-99] rework session storage"
	rev.Fields.Summary = "moves sessions out of memory"
	rev.Fields.Status.Value = "needs-review"
	rev.Fields.AuthorPHID = "PHID-USER-1"
	rev.Fields.RepositoryPHID = "PHID-REPO-1"
	rev.Fields.IsDraft = false
	rev.Fields.DateModified = 1754042400 // epoch seconds
	return rev
}

func TestPhabricatorRevisions_Mapping(t *testing.T) {
	resolver := &fakeResolver{users: map[string]phabricator.User{
		"PHID-USER-1": phabUser("PHID-USER-1", "alice", "Alice Doe"),
	}}
	ids := NewIdentityCache(resolver)
	opts := PhabricatorOptions{BaseURL: "https://phab.example.com"}

	revisions, err := PhabricatorRevisions(context.Background(), []phabricator.Revision{samplePhabRevision()}, ids, testProjects(), opts, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, revisions, 1)

	rev := revisions[0]
	assert.Equal(t, int64(123), rev.ID)
	assert.Equal(t, model.SourcePhabricator, rev.Source)
	assert.Equal(t, "needs-review", rev.Status, "status comes from fields.status.value")
	assert.Equal(t, "https://phab.example.com/D123", rev.URL)
	assert.Equal(t, "Alice Doe", rev.Author.Name)
	assert.Equal(t, "alice", rev.Author.Username)
	assert.Equal(t, int64(1754042400000), rev.DateModified, "epoch seconds normalize to milliseconds")
	assert.Equal(t, "CD-99", rev.JiraID)
	assert.Equal(t, "core", rev.Project)
}

func TestPhabricatorRevisions_BatchesAuthorLookup(t *testing.T) {
	resolver := &fakeResolver{users: map[string]phabricator.User{
		"PHID-USER-1": phabUser("PHID-USER-1", "alice", "Alice Doe"),
		"PHID-USER-2": phabUser("PHID-USER-2", "bob", "Bob Roe"),
	}}
	ids := NewIdentityCache(resolver)

	second := samplePhabRevision()
	second.ID = 124
	second.Fields.AuthorPHID = "PHID-USER-2"
	third := samplePhabRevision()
	third.ID = 125 // repeat author PHID-USER-1

	_, err := PhabricatorRevisions(context.Background(),
		[]phabricator.Revision{samplePhabRevision(), second, third},
		ids, testProjects(), PhabricatorOptions{BaseURL: "https://phab.example.com"}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 1, resolver.calls, "whole batch resolves in one identity lookup")
}

func TestPhabricatorRevisions_UnknownAuthorFallsBack(t *testing.T) {
	ids := NewIdentityCache(&fakeResolver{users: map[string]phabricator.User{}})
	revisions, err := PhabricatorRevisions(context.Background(), []phabricator.Revision{samplePhabRevision()}, ids, testProjects(), PhabricatorOptions{}, zap.NewNop())
	require.NoError(t, err)
	require.Len(t, revisions, 1)
	assert.Equal(t, "Unknown", revisions[0].Author.Name)
	assert.Empty(t, revisions[0].Author.Username, "username is optional for unresolved summary views")
}

func TestPhabricatorRevisions_DropsUnresolvedRepository(t *testing.T) {
	rev := samplePhabRevision()
	rev.Fields.RepositoryPHID = "PHID-REPO-unknown"
	ids := NewIdentityCache(&fakeResolver{})
	revisions, err := PhabricatorRevisions(context.Background(), []phabricator.Revision{rev}, ids, testProjects(), PhabricatorOptions{}, zap.NewNop())
	require.NoError(t, err)
	assert.Empty(t, revisions)
}

func TestIdentityCache_MemoizesAcrossCalls(t *testing.T) {
	resolver := &fakeResolver{users: map[string]phabricator.User{
		"PHID-USER-1": phabUser("PHID-USER-1", "alice", "Alice Doe"),
	}}
	ids := NewIdentityCache(resolver)

	for i := 0; i < 3; i++ {
		authors, err := ids.Resolve(context.Background(), []string{"PHID-USER-1"})
		require.NoError(t, err)
		assert.Equal(t, "alice", authors["PHID-USER-1"].Username)
	}
	assert.Equal(t, 1, resolver.calls, "repeat PHIDs must not trigger repeat lookups")
}

func TestIsoToEpochMillis(t *testing.T) {
	assert.Equal(t, int64(0), isoToEpochMillis(""))
	assert.Equal(t, int64(0), isoToEpochMillis("not a date"))
	assert.Equal(t, int64(1722508200000), isoToEpochMillis("2024-08-01T10:30:00Z"))
}
