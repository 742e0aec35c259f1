package aggregate

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"go.uber.org/zap"

	"github.com/revq-dev/revq/internal/gitlab"
	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/normalize"
	"github.com/revq-dev/revq/internal/phabricator"
	"github.com/revq-dev/revq/internal/redact"
)

// defaultConcurrency caps in-flight fan-out requests. Exceeding the cap
// queues; it never fails.
const defaultConcurrency = 4

// ErrUnsupported reports an operation the originating platform has no API
// for.
var ErrUnsupported = errors.New("operation not supported by this source")

// GitLabAPI is the merge-request adapter surface consumed by the
// orchestrator. Project listing is not part of it: the project table is
// built by the caller and passed to New.
type GitLabAPI interface {
	ListOpenMergeRequests(ctx context.Context, projectID int64) ([]gitlab.MergeRequest, error)
	GetMergeRequest(ctx context.Context, projectID, iid int64) (*gitlab.MergeRequest, error)
	GetChanges(ctx context.Context, projectID, iid int64) ([]model.DiffFile, error)
	ListNotes(ctx context.Context, projectID, iid int64) ([]gitlab.Note, error)
	PostNote(ctx context.Context, projectID, iid int64, body string, pos *model.CommentPosition) (*gitlab.Note, error)
	DeleteNote(ctx context.Context, projectID, iid, noteID int64) error
}

// PhabricatorAPI is the differential-revision adapter surface consumed by
// the orchestrator. It embeds the identity resolver used by the per-call
// identity caches.
type PhabricatorAPI interface {
	normalize.IdentityResolver
	BaseURL() string
	SearchOpenRevisions(ctx context.Context) ([]phabricator.Revision, error)
	GetRevision(ctx context.Context, id int64) (*phabricator.Revision, error)
	GetRawDiff(ctx context.Context, revisionPHID string) (string, error)
	SearchTransactions(ctx context.Context, revisionPHID string) ([]phabricator.Transaction, error)
	CreateComment(ctx context.Context, revisionID int64, body string, pos *model.CommentPosition) error
}

// Scope selects what an aggregation fetches. An empty Sources list means
// every configured source; an empty ProjectIDs list means every project in
// the caller's project table.
type Scope struct {
	Sources    []model.Source
	ProjectIDs []int64
}

func (s Scope) includes(src model.Source) bool {
	if len(s.Sources) == 0 {
		return true
	}
	for _, candidate := range s.Sources {
		if candidate == src {
			return true
		}
	}
	return false
}

// Result is a merged revision list plus the sideband failures collected
// while building it. A partial result is strictly more useful than none, so
// per-scope failures land in Errors instead of aborting the batch.
type Result struct {
	Revisions []model.Revision
	Errors    []model.SourceError
}

// Aggregator fans out adapter calls, merges and deduplicates results, and
// normalizes raw records into unified revisions. Construct one per
// configuration; each aggregation call builds its own identity cache.
type Aggregator struct {
	gitlab      GitLabAPI
	phab        PhabricatorAPI
	projects    normalize.ProjectIndex
	log         *zap.Logger
	concurrency int
}

// Option configures an Aggregator.
type Option func(*Aggregator)

// WithGitLab wires the merge-request adapter.
func WithGitLab(api GitLabAPI) Option {
	return func(a *Aggregator) { a.gitlab = api }
}

// WithPhabricator wires the differential-revision adapter.
func WithPhabricator(api PhabricatorAPI) Option {
	return func(a *Aggregator) { a.phab = api }
}

// WithLogger sets the sink for non-fatal per-item errors.
func WithLogger(log *zap.Logger) Option {
	return func(a *Aggregator) { a.log = log }
}

// WithConcurrency bounds the fan-out pool.
func WithConcurrency(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.concurrency = n
		}
	}
}

// New creates an Aggregator over the caller's project table.
func New(projects []model.Project, opts ...Option) *Aggregator {
	a := &Aggregator{
		projects:    normalize.NewProjectIndex(projects),
		log:         zap.NewNop(),
		concurrency: defaultConcurrency,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// FetchAllRevisions returns all open revisions within scope, merged across
// sources, plus a sideband list of partial failures. The returned error is
// non-nil only for failures that make the whole request meaningless:
// cancellation, or no adapter configured for the requested scope.
func (a *Aggregator) FetchAllRevisions(ctx context.Context, scope Scope) (*Result, error) {
	result := &Result{}

	ranAny := false
	if a.gitlab != nil && scope.includes(model.SourceGitLab) {
		ranAny = true
		if err := a.fetchGitLab(ctx, scope, result); err != nil {
			return nil, err
		}
	}
	if a.phab != nil && scope.includes(model.SourcePhabricator) {
		ranAny = true
		if err := a.fetchPhabricator(ctx, result); err != nil {
			return nil, err
		}
	}
	if !ranAny {
		return nil, errors.New("no source configured for the requested scope")
	}
	return result, nil
}

// fetchGitLab fans out one list call per project with bounded concurrency.
// Each call is independent: a failed project contributes a SourceError and
// never cancels its siblings.
func (a *Aggregator) fetchGitLab(ctx context.Context, scope Scope, result *Result) error {
	projectIDs, err := a.resolveProjectIDs(scope)
	if err != nil {
		return err
	}

	type projectResult struct {
		projectID int64
		mrs       []gitlab.MergeRequest
		err       error
	}

	results := make([]projectResult, len(projectIDs))
	var wg sync.WaitGroup
	sem := make(chan struct{}, a.concurrency)

	for i, projectID := range projectIDs {
		// Cancellation stops issuing further fan-out calls; partials
		// already collected are discarded below, not returned.
		if err := ctx.Err(); err != nil {
			return err
		}
		wg.Add(1)
		go func(i int, projectID int64) {
			defer wg.Done()
			sem <- struct{}{}        // acquire
			defer func() { <-sem }() // release

			mrs, err := a.gitlab.ListOpenMergeRequests(ctx, projectID)
			results[i] = projectResult{projectID: projectID, mrs: mrs, err: err}
		}(i, projectID)
	}
	wg.Wait()

	if err := ctx.Err(); err != nil {
		return err
	}

	var raw []gitlab.MergeRequest
	for _, r := range results {
		if r.err != nil {
			projectID := strconv.FormatInt(r.projectID, 10)
			a.log.Warn("project fetch failed",
				zap.String("source", string(model.SourceGitLab)),
				zap.String("project_id", projectID),
				zap.Error(r.err),
			)
			result.Errors = append(result.Errors, model.SourceError{
				Source:    model.SourceGitLab,
				ProjectID: projectID,
				Err:       r.err,
				Message:   redact.Secrets(r.err.Error()),
			})
			continue
		}
		raw = append(raw, r.mrs...)
	}

	revisions := normalize.GitLabRevisions(raw, a.projects, a.log)
	result.Revisions = append(result.Revisions, dedupe(revisions)...)
	return nil
}

// fetchPhabricator needs no fan-out: one constrained search returns the
// global set of revisions needing attention.
func (a *Aggregator) fetchPhabricator(ctx context.Context, result *Result) error {
	raw, err := a.phab.SearchOpenRevisions(ctx)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		a.log.Warn("revision search failed",
			zap.String("source", string(model.SourcePhabricator)),
			zap.Error(err),
		)
		result.Errors = append(result.Errors, model.SourceError{
			Source:  model.SourcePhabricator,
			Err:     err,
			Message: redact.Secrets(err.Error()),
		})
		return nil
	}

	ids := normalize.NewIdentityCache(a.phab)
	revisions, err := normalize.PhabricatorRevisions(ctx, raw, ids, a.projects,
		normalize.PhabricatorOptions{BaseURL: a.phab.BaseURL()}, a.log)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		result.Errors = append(result.Errors, model.SourceError{
			Source:  model.SourcePhabricator,
			Err:     err,
			Message: redact.Secrets(err.Error()),
		})
		return nil
	}
	result.Revisions = append(result.Revisions, dedupe(revisions)...)
	return nil
}

// resolveProjectIDs expands the scope against the caller's project table.
// An unresolvable table is a whole-batch failure: without projects the
// request is meaningless.
func (a *Aggregator) resolveProjectIDs(scope Scope) ([]int64, error) {
	if len(scope.ProjectIDs) > 0 {
		return scope.ProjectIDs, nil
	}
	var ids []int64
	for _, p := range a.projects {
		if p.Source != model.SourceGitLab {
			continue
		}
		id, err := strconv.ParseInt(p.ID, 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, errors.New("project list could not be resolved: no projects in scope")
	}
	return ids, nil
}

// dedupe removes revisions repeating an already-seen (source, id) key,
// keeping first occurrence order. Keys are never compared across sources.
func dedupe(revisions []model.Revision) []model.Revision {
	seen := make(map[model.Key]bool, len(revisions))
	out := make([]model.Revision, 0, len(revisions))
	for _, rev := range revisions {
		if seen[rev.Key()] {
			continue
		}
		seen[rev.Key()] = true
		out = append(out, rev)
	}
	return out
}
