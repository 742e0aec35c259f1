package gitlab

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
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

const (
	perPage = 100
	// maxProjectPages guards the empty-page termination loop against a
	// misbehaving server that never returns an empty page.
	maxProjectPages = 100
	// requestsPerSecond paces calls to stay under GitLab rate limits
	// during concurrent fan-out.
	requestsPerSecond = 10
)

// Client provides authenticated access to a GitLab REST API.
type Client struct {
	baseURL string
	token   string
	httpCli *http.Client
	limiter *rate.Limiter
}

// NewClient creates a GitLab client for the given instance URL and bearer
// token.
func NewClient(baseURL, token string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("gitlab base URL is not set")
	}
	if token == "" {
		return nil, fmt.Errorf("gitlab token is not set")
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		httpCli: &http.Client{Timeout: 60 * time.Second},
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestsPerSecond),
	}, nil
}

// ListProjects pages through the membership project list at a fixed page
// size until a page comes back empty — the API does not reliably report a
// total count. Projects where the caller is below developer access are
// discarded client-side.
func (c *Client) ListProjects(ctx context.Context) ([]model.Project, error) {
	var projects []model.Project
	for page := 1; page <= maxProjectPages; page++ {
		q := url.Values{}
		q.Set("membership", "true")
		q.Set("per_page", strconv.Itoa(perPage))
		q.Set("page", strconv.Itoa(page))

		var records []ProjectRecord
		if err := c.get(ctx, "/api/v4/projects", q, &records); err != nil {
			return nil, fmt.Errorf("listing projects page %d: %w", page, err)
		}
		if len(records) == 0 {
			break
		}
		for _, rec := range records {
			level := rec.AccessLevel()
			if level < AccessDeveloper {
				continue
			}
			projects = append(projects, model.Project{
				ID:          strconv.FormatInt(rec.ID, 10),
				Source:      model.SourceGitLab,
				Name:        rec.Name,
				Namespace:   rec.PathWithNamespace,
				URL:         rec.WebURL,
				AccessLevel: level,
			})
		}
	}
	return projects, nil
}

// ListOpenMergeRequests returns the open merge requests of one project,
// filtered server-side by state.
func (c *Client) ListOpenMergeRequests(ctx context.Context, projectID int64) ([]MergeRequest, error) {
	q := url.Values{}
	q.Set("state", "opened")
	q.Set("per_page", strconv.Itoa(perPage))

	var mrs []MergeRequest
	path := fmt.Sprintf("/api/v4/projects/%d/merge_requests", projectID)
	if err := c.get(ctx, path, q, &mrs); err != nil {
		return nil, fmt.Errorf("listing open merge requests for project %d: %w", projectID, err)
	}
	return mrs, nil
}

// GetMergeRequest fetches one merge request by project ID and IID.
func (c *Client) GetMergeRequest(ctx context.Context, projectID, iid int64) (*MergeRequest, error) {
	var mr MergeRequest
	path := fmt.Sprintf("/api/v4/projects/%d/merge_requests/%d", projectID, iid)
	if err := c.get(ctx, path, nil, &mr); err != nil {
		return nil, asNotFound(err, fmt.Sprintf("merge request !%d in project %d", iid, projectID))
	}
	return &mr, nil
}

// GetChanges fetches the changed files of a merge request. GitLab returns a
// structured file list directly; no raw-diff parsing is needed.
func (c *Client) GetChanges(ctx context.Context, projectID, iid int64) ([]model.DiffFile, error) {
	var resp changesResponse
	path := fmt.Sprintf("/api/v4/projects/%d/merge_requests/%d/changes", projectID, iid)
	if err := c.get(ctx, path, nil, &resp); err != nil {
		return nil, asNotFound(err, fmt.Sprintf("changes for merge request !%d in project %d", iid, projectID))
	}

	files := make([]model.DiffFile, 0, len(resp.Changes))
	for _, ch := range resp.Changes {
		files = append(files, model.DiffFile{
			OldPath:       ch.OldPath,
			NewPath:       ch.NewPath,
			DiffText:      ch.Diff,
			IsNewFile:     ch.NewFile,
			IsRenamedFile: ch.RenamedFile,
			IsDeletedFile: ch.DeletedFile,
		})
	}
	return files, nil
}

// ListNotes returns the flat notes list of a merge request, including system
// notes; the normalizer filters those out.
func (c *Client) ListNotes(ctx context.Context, projectID, iid int64) ([]Note, error) {
	q := url.Values{}
	q.Set("per_page", strconv.Itoa(perPage))

	var notes []Note
	path := fmt.Sprintf("/api/v4/projects/%d/merge_requests/%d/notes", projectID, iid)
	if err := c.get(ctx, path, q, &notes); err != nil {
		return nil, fmt.Errorf("listing notes for merge request !%d: %w", iid, err)
	}
	return notes, nil
}

// PostNote creates a general note, or a positioned discussion when pos is
// set. A position missing its file path or both line numbers is rejected
// before any network call.
func (c *Client) PostNote(ctx context.Context, projectID, iid int64, body string, pos *model.CommentPosition) (*Note, error) {
	if body == "" {
		return nil, &source.ValidationError{Msg: "comment body is empty"}
	}

	var path string
	payload := map[string]any{"body": body}
	if pos != nil {
		if pos.FilePath == "" {
			return nil, &source.ValidationError{Msg: "inline comment position requires a file path"}
		}
		if pos.OldLine <= 0 && pos.NewLine <= 0 {
			return nil, &source.ValidationError{Msg: "inline comment position requires an old or new line"}
		}
		position := map[string]any{
			"position_type": "text",
			"old_path":      pos.FilePath,
			"new_path":      pos.FilePath,
		}
		if pos.OldLine > 0 {
			position["old_line"] = pos.OldLine
		}
		if pos.NewLine > 0 {
			position["new_line"] = pos.NewLine
		}
		payload["position"] = position
		path = fmt.Sprintf("/api/v4/projects/%d/merge_requests/%d/discussions", projectID, iid)
	} else {
		path = fmt.Sprintf("/api/v4/projects/%d/merge_requests/%d/notes", projectID, iid)
	}

	var note Note
	if err := c.post(ctx, path, payload, &note); err != nil {
		return nil, fmt.Errorf("posting note to merge request !%d: %w", iid, err)
	}
	return &note, nil
}

// DeleteNote removes a note from a merge request.
func (c *Client) DeleteNote(ctx context.Context, projectID, iid, noteID int64) error {
	path := fmt.Sprintf("/api/v4/projects/%d/merge_requests/%d/notes/%d", projectID, iid, noteID)
	if err := c.do(ctx, http.MethodDelete, path, nil, nil, nil); err != nil {
		return asNotFound(err, fmt.Sprintf("note %d on merge request !%d", noteID, iid))
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}
	return c.do(ctx, http.MethodPost, path, nil, body, out)
}

// do issues one rate-limited, retried API call. Non-2xx responses surface as
// *source.APIError; network failures as *source.TransportError.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	return source.WithRetry(ctx, func() error {
		if err := c.limiter.Wait(ctx); err != nil {
			return err
		}

		var reader io.Reader
		if body != nil {
			reader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, u, reader)
		if err != nil {
			return fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+c.token)
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := c.httpCli.Do(req)
		if err != nil {
			return &source.TransportError{Op: method + " " + path, Err: err}
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return &source.TransportError{Op: "reading " + path, Err: err}
		}

		if resp.StatusCode < 200 || resp.StatusCode >= 300 {
			return &source.APIError{Status: resp.StatusCode, PlatformMessage: strings.TrimSpace(string(respBody))}
		}

		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return fmt.Errorf("parsing response: %w", err)
			}
		}
		return nil
	})
}

// asNotFound converts a 404 APIError into a NotFoundError naming the missing
// resource; other errors pass through unchanged.
func asNotFound(err error, resource string) error {
	var ae *source.APIError
	if errors.As(err, &ae) && ae.Status == http.StatusNotFound {
		return &source.NotFoundError{Resource: resource}
	}
	return err
}
