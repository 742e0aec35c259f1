package phabricator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/revq-dev/revq/internal/model"
	"github.com/revq-dev/revq/internal/source"
)

// Revision states considered "needing attention" by the global search.
var openStatuses = []string{"needs-review", "needs-revision", "accepted"}

const (
	// maxSearchPages guards the cursor loop against a server that never
	// exhausts its result set.
	maxSearchPages = 20
	// requestsPerSecond paces Conduit calls; identity lookups in
	// particular can fan out quickly during comment normalization.
	requestsPerSecond = 10
)

// Client provides authenticated access to a Phabricator-style Conduit API.
// All calls are form-encoded POSTs carrying the API token in the body.
type Client struct {
	baseURL string
	token   string
	httpCli *http.Client
	limiter *rate.Limiter
}

// NewClient creates a Conduit client for the given install URL and API
// token.
func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("phabricator base URL is not set")
	}
	if token == "" {
		return nil, fmt.Errorf("phabricator token is not set")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpCli: &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}, nil
}

// BaseURL returns the install URL, used to build canonical revision links.
func (c *Client) BaseURL() string { return c.baseURL }

// conduitEnvelope is the uniform Conduit response wrapper. Conduit reports
// request failures in-band with HTTP 200.
type conduitEnvelope struct {
	Result    json.RawMessage `json:"result"`
	ErrorCode string          `json:"error_code"`
	ErrorInfo string          `json:"error_info"`
}

type searchResult[T any] struct {
	Data   []T `json:"data"`
	Cursor struct {
		After string `json:"after"`
	} `json:"cursor"`
}

// SearchOpenRevisions returns all revisions in states needs-review,
// needs-revision, or accepted. Results are global — Conduit search is not
// scoped per project, so no fan-out is needed.
func (c *Client) SearchOpenRevisions(ctx context.Context) ([]Revision, error) {
	params := url.Values{}
	for i, status := range openStatuses {
		params.Set(fmt.Sprintf("constraints[statuses][%d]", i), status)
	}
	params.Set("attachments[reviewers]", "1")

	revisions, err := searchAll[Revision](ctx, c, "differential.revision.search", params)
	if err != nil {
		return nil, fmt.Errorf("searching open revisions: %w", err)
	}
	return revisions, nil
}

// GetRevision fetches one revision by ID.
func (c *Client) GetRevision(ctx context.Context, id int64) (*Revision, error) {
	params := url.Values{}
	params.Set("constraints[ids][0]", strconv.FormatInt(id, 10))
	params.Set("attachments[reviewers]", "1")

	var result searchResult[Revision]
	if err := c.call(ctx, "differential.revision.search", params, &result); err != nil {
		return nil, fmt.Errorf("fetching revision D%d: %w", id, err)
	}
	if len(result.Data) == 0 {
		return nil, &source.NotFoundError{Resource: fmt.Sprintf("revision D%d", id)}
	}
	return &result.Data[0], nil
}

// GetRawDiff returns the raw unified-diff text of a revision's current
// diff: one diff.search call to resolve the diff ID, then the raw-diff
// endpoint. The result is an opaque blob for the diff parser; an empty blob
// is valid for a revision with no changes recorded yet.
func (c *Client) GetRawDiff(ctx context.Context, revisionPHID string) (string, error) {
	params := url.Values{}
	params.Set("constraints[revisionPHIDs][0]", revisionPHID)
	params.Set("order", "newest")

	var diffs searchResult[DiffRecord]
	if err := c.call(ctx, "differential.diff.search", params, &diffs); err != nil {
		return "", fmt.Errorf("resolving diff for %s: %w", revisionPHID, err)
	}
	if len(diffs.Data) == 0 {
		return "", nil
	}

	raw := url.Values{}
	raw.Set("diffID", strconv.FormatInt(diffs.Data[0].ID, 10))

	var blob string
	if err := c.call(ctx, "differential.getrawdiff", raw, &blob); err != nil {
		return "", fmt.Errorf("fetching raw diff for %s: %w", revisionPHID, err)
	}
	return blob, nil
}

// SearchTransactions returns the activity stream of one revision. The
// stream mixes comments with metadata-only entries; the comment normalizer
// filters and orders them.
func (c *Client) SearchTransactions(ctx context.Context, revisionPHID string) ([]Transaction, error) {
	params := url.Values{}
	params.Set("objectIdentifier", revisionPHID)

	txns, err := searchAll[Transaction](ctx, c, "transaction.search", params)
	if err != nil {
		return nil, fmt.Errorf("searching transactions for %s: %w", revisionPHID, err)
	}
	return txns, nil
}

// SearchRepositories lists active repositories, keyed by PHID so revision
// records can be joined against them.
func (c *Client) SearchRepositories(ctx context.Context) ([]model.Project, error) {
	params := url.Values{}
	params.Set("constraints[statuses][0]", "active")

	repos, err := searchAll[Repository](ctx, c, "diffusion.repository.search", params)
	if err != nil {
		return nil, fmt.Errorf("searching repositories: %w", err)
	}

	projects := make([]model.Project, 0, len(repos))
	for _, repo := range repos {
		projects = append(projects, model.Project{
			ID:     repo.PHID,
			Source: model.SourcePhabricator,
			Name:   repo.Fields.Name,
			URL:    c.repositoryURL(repo),
		})
	}
	return projects, nil
}

// repositoryURL builds the canonical browse link for a repository.
func (c *Client) repositoryURL(repo Repository) string {
	if repo.Fields.ShortName != "" {
		return c.baseURL + "/source/" + repo.Fields.ShortName + "/"
	}
	if repo.Fields.Callsign != "" {
		return c.baseURL + "/diffusion/" + repo.Fields.Callsign + "/"
	}
	return fmt.Sprintf("%s/diffusion/%d/", c.baseURL, repo.ID)
}

// SearchUsers resolves user PHIDs to identities in one call.
func (c *Client) SearchUsers(ctx context.Context, phids []string) ([]User, error) {
	if len(phids) == 0 {
		return nil, nil
	}
	params := url.Values{}
	for i, phid := range phids {
		params.Set(fmt.Sprintf("constraints[phids][%d]", i), phid)
	}

	var result searchResult[User]
	if err := c.call(ctx, "user.search", params, &result); err != nil {
		return nil, fmt.Errorf("resolving %d user PHIDs: %w", len(phids), err)
	}
	return result.Data, nil
}

// CreateComment posts a general comment, or an inline comment when pos is
// set. Inline positions need a file path and at least one line number.
func (c *Client) CreateComment(ctx context.Context, revisionID int64, body string, pos *model.CommentPosition) error {
	if body == "" {
		return &source.ValidationError{Msg: "comment body is empty"}
	}

	if pos != nil {
		if pos.FilePath == "" {
			return &source.ValidationError{Msg: "inline comment position requires a file path"}
		}
		if pos.OldLine <= 0 && pos.NewLine <= 0 {
			return &source.ValidationError{Msg: "inline comment position requires an old or new line"}
		}
		params := url.Values{}
		params.Set("revisionID", strconv.FormatInt(revisionID, 10))
		params.Set("filePath", pos.FilePath)
		params.Set("lineNumber", strconv.Itoa(pos.LineNumber()))
		if pos.NewLine > 0 {
			params.Set("isNewFile", "1")
		} else {
			params.Set("isNewFile", "0")
		}
		params.Set("content", body)
		return c.call(ctx, "differential.createinline", params, nil)
	}

	params := url.Values{}
	params.Set("objectIdentifier", fmt.Sprintf("D%d", revisionID))
	params.Set("transactions[0][type]", "comment")
	params.Set("transactions[0][value]", body)
	return c.call(ctx, "differential.revision.edit", params, nil)
}

// searchAll pages a Conduit *.search method through its cursor until the
// server stops returning an "after" marker.
func searchAll[T any](ctx context.Context, c *Client, method string, params url.Values) ([]T, error) {
	var all []T
	after := ""
	for page := 0; page < maxSearchPages; page++ {
		if after != "" {
			params.Set("after", after)
		}
		var result searchResult[T]
		if err := c.call(ctx, method, params, &result); err != nil {
			return nil, err
		}
		all = append(all, result.Data...)
		if result.Cursor.After == "" {
			break
		}
		after = result.Cursor.After
	}
	return all, nil
}

// call issues one rate-limited, retried Conduit call and decodes the result
// envelope into out. In-band Conduit errors surface as *source.APIError.
func (c *Client) call(ctx context.Context, method string, params url.Values, out any) error {
	u := c.baseURL + "/api/" + method

	return source.WithRetry(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		form := url.Values{}
		form.Set("api.token", c.token)
		for key, vals := range params {
			for _, v := range vals {
				form.Add(key, v)
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, strings.NewReader(form.Encode()))
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		resp, err := c.httpCli.Do(req)
		if err != nil {
			return &source.TransportError{Op: "POST " + method, Err: err}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return &source.TransportError{Op: "reading " + method, Err: err}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &source.APIError{Status: resp.StatusCode, PlatformMessage: strings.TrimSpace(string(respBody))}
		}

		var envelope conduitEnvelope
		if err := json.Unmarshal(respBody, &envelope); err != nil {
			return fmt.Errorf("parsing conduit envelope: %w", err)
		}
		if envelope.ErrorCode != "" {
			return &source.APIError{
				Status:          http.StatusBadRequest,
				PlatformMessage: envelope.ErrorCode + ": " + envelope.ErrorInfo,
			}
		}

		if out != nil && len(envelope.Result) > 0 {
			if err := json.Unmarshal(envelope.Result, out); err != nil {
				return fmt.Errorf("parsing %s result: %w", method, err)
			}
		}
		return nil
	})
}
