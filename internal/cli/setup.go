package cli

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/revq-dev/revq/internal/aggregate"
	"github.com/revq-dev/revq/internal/cache"
	"github.com/revq-dev/revq/internal/config"
	"github.com/revq-dev/revq/internal/gitlab"
	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/phabricator"
)

// newLogger builds the CLI logger. Quiet by default; --verbose switches to
// the human-readable development encoder at debug level.
func newLogger() *zap.Logger {
	if flagVerbose {
		log, err := zap.NewDevelopment()
		if err != nil {
			return zap.NewNop()
		}
		return log
	}
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop()
	}
	return log
}

// buildClients constructs an adapter per configured platform. At least one
// platform must be configured for any fetching command to mean anything.
func buildClients(cfg config.Config) (*gitlab.Client, *phabricator.Client, error) {
	var (
		glc *gitlab.Client
		phc *phabricator.Client
		err error
	)
	if cfg.GitLab.Configured() {
		glc, err = gitlab.NewClient(cfg.GitLab.BaseURL, cfg.GitLab.Token)
		if err != nil {
			return nil, nil, err
		}
	}
	if cfg.Phabricator.Configured() {
		phc, err = phabricator.NewClient(cfg.Phabricator.BaseURL, cfg.Phabricator.Token)
		if err != nil {
			return nil, nil, err
		}
	}
	if glc == nil && phc == nil {
		return nil, nil, fmt.Errorf("no platform configured; run 'revq config init' and set credentials")
	}
	return glc, phc, nil
}

// loadProjects builds the cross-source project table, serving each source
// from the cache when a fresh-enough listing exists.
func loadProjects(ctx context.Context, cfg config.Config, glc *gitlab.Client, phc *phabricator.Client, refresh bool) ([]model.Project, error) {
	c, err := cache.New(cfg.Cache.IsEnabled(), cfg.Cache.Dir, cfg.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("opening project cache: %w", err)
	}

	var projects []model.Project
	if glc != nil {
		ps, err := sourceProjects(ctx, c, model.SourceGitLab, refresh, glc.ListProjects)
		if err != nil {
			return nil, fmt.Errorf("listing gitlab projects: %w", err)
		}
		projects = append(projects, ps...)
	}
	if phc != nil {
		ps, err := sourceProjects(ctx, c, model.SourcePhabricator, refresh, phc.SearchRepositories)
		if err != nil {
			return nil, fmt.Errorf("listing phabricator repositories: %w", err)
		}
		projects = append(projects, ps...)
	}
	return projects, nil
}

func sourceProjects(ctx context.Context, c *cache.Cache, src model.Source, refresh bool, list func(context.Context) ([]model.Project, error)) ([]model.Project, error) {
	if !refresh {
		if ps, ok := c.GetProjects(src); ok {
			return ps, nil
		}
	}
	ps, err := list(ctx)
	if err != nil {
		return nil, err
	}
	// A failed cache write only costs the next run a refetch.
	_ = c.PutProjects(src, ps)
	return ps, nil
}

// buildAggregator wires the configured adapters over the project table.
func buildAggregator(cfg config.Config, glc *gitlab.Client, phc *phabricator.Client, projects []model.Project, log *zap.Logger) *aggregate.Aggregator {
	opts := []aggregate.Option{
		aggregate.WithLogger(log),
		aggregate.WithConcurrency(cfg.Concurrency),
	}
	if glc != nil {
		opts = append(opts, aggregate.WithGitLab(glc))
	}
	if phc != nil {
		opts = append(opts, aggregate.WithPhabricator(phc))
	}
	return aggregate.New(projects, opts...)
}

// revisionRef addresses one revision across both platforms: "D123" for a
// Phabricator revision, "<project>!<iid>" (e.g. "42!7") for a GitLab merge
// request.
type revisionRef struct {
	Source    model.Source
	ID        int64
	ProjectID int64 // gitlab only
}

func parseRevisionRef(s string) (revisionRef, error) {
	if rest, ok := strings.CutPrefix(s, "D"); ok && rest != "" {
		id, err := strconv.ParseInt(rest, 10, 64)
		if err == nil {
			return revisionRef{Source: model.SourcePhabricator, ID: id}, nil
		}
	}
	if project, iid, ok := strings.Cut(s, "!"); ok {
		pid, errP := strconv.ParseInt(project, 10, 64)
		id, errI := strconv.ParseInt(iid, 10, 64)
		if errP == nil && errI == nil {
			return revisionRef{Source: model.SourceGitLab, ID: id, ProjectID: pid}, nil
		}
	}
	return revisionRef{}, fmt.Errorf("invalid revision reference %q: use D<id> or <project>!<iid>", s)
}
