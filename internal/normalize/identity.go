package normalize

import (
	"context"
	"fmt"

	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/phabricator"
)

// IdentityResolver resolves PHID-style identities to user records. The
// Phabricator client satisfies this; tests supply fakes.
type IdentityResolver interface {
	SearchUsers(ctx context.Context, phids []string) ([]phabricator.User, error)
}

// IdentityCache memoizes PHID-to-author resolution for one aggregation
// call. Without it, author resolution costs one network round trip per
// comment. Each call constructs its own cache — it is never shared across
// concurrent aggregations, so a stale author in one call cannot leak into
// another.
type IdentityCache struct {
	resolver IdentityResolver
	known    map[string]model.Author
}

// NewIdentityCache creates an empty cache backed by the given resolver.
func NewIdentityCache(resolver IdentityResolver) *IdentityCache {
	return &IdentityCache{
		resolver: resolver,
		known:    make(map[string]model.Author),
	}
}

// Resolve returns authors for the given PHIDs, fetching all not-yet-known
// PHIDs in a single batched lookup. PHIDs the platform cannot resolve are
// absent from the returned map.
func (c *IdentityCache) Resolve(ctx context.Context, phids []string) (map[string]model.Author, error) {
	var missing []string
	seen := make(map[string]bool, len(phids))
	for _, phid := range phids {
		if phid == "" || seen[phid] {
			continue
		}
		seen[phid] = true
		if _, ok := c.known[phid]; !ok {
			missing = append(missing, phid)
		}
	}

	if len(missing) > 0 {
		users, err := c.resolver.SearchUsers(ctx, missing)
		if err != nil {
			return nil, fmt.Errorf("resolving identities: %w", err)
		}
		for _, u := range users {
			c.known[u.PHID] = model.Author{
				Name:       u.Fields.RealName,
				Username:   u.Fields.Username,
				PlatformID: u.PHID,
			}
		}
	}

	out := make(map[string]model.Author, len(phids))
	for phid := range seen {
		if author, ok := c.known[phid]; ok {
			out[phid] = author
		}
	}
	return out, nil
}
