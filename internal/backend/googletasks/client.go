// Package googletasks implements platform.Platform using the Google Tasks API.
// Importing the package registers it as "googletasks".
package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"net/http"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	tasks "google.golang.org/api/tasks/v1"

	"taskbridge/internal/platform"
)

const (
	// ID is the registry identifier.
	ID platform.ID = "googletasks"

	// DefaultListID is the special ID for the default list.
	DefaultListID = "@default"

	// PageSize is the number of tasks per page.
	PageSize = 100

	// APITimeout is the timeout for API calls.
	APITimeout = 5 * time.Second

	// OAuth scope for Google Tasks
	tasksScope = "https://www.googleapis.com/auth/tasks"

	statusCompleted   = "completed"
	statusNeedsAction = "needsAction"
)

// Settings keys besides platform.TokenKey.
const (
	KeyListID       = "list_id"
	KeyClientID     = "client_id"
	KeyClientSecret = "client_secret"
	KeyEndpoint     = "endpoint"
)

func init() {
	platform.Register(platform.Registration{
		ID:          ID,
		Description: "Google Tasks",
		New:         New,
		Authorize:   Authorize,
	})
}

// Client implements platform.Platform using Google Tasks API.
// All tasks live in one task list.
type Client struct {
	svc    *tasks.Service
	listID string
}

// New creates a client from settings. It makes no API calls.
//
// The token is either an OAuth token JSON document (as stored by login) or
// a bare access token. With client_id and client_secret the token is
// refreshed automatically.
func New(settings platform.Settings) (platform.Platform, error) {
	token, err := parseToken(settings[platform.TokenKey])
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	var ts oauth2.TokenSource
	clientID, clientSecret := settings[KeyClientID], settings[KeyClientSecret]
	switch {
	case clientID != "" && clientSecret != "":
		ts = oauthConfig(clientID, clientSecret, "").TokenSource(ctx, token)
	case token.AccessToken == "":
		return nil, fmt.Errorf("%w: refresh-only token needs %s and %s", platform.ErrInvalidSettings, KeyClientID, KeyClientSecret)
	default:
		ts = oauth2.StaticTokenSource(token)
	}

	return newClient(ctx, oauth2.NewClient(ctx, ts), settings[KeyEndpoint], settings[KeyListID])
}

// newClient creates a client with a custom HTTP client and endpoint.
func newClient(ctx context.Context, httpClient *http.Client, endpoint, listID string) (*Client, error) {
	opts := []option.ClientOption{option.WithHTTPClient(httpClient)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	svc, err := tasks.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create tasks service: %w", err)
	}
	if listID == "" {
		listID = DefaultListID
	}
	return &Client{svc: svc, listID: listID}, nil
}

func parseToken(raw string) (*oauth2.Token, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("%w: %s is empty", platform.ErrInvalidSettings, platform.TokenKey)
	}
	if !strings.HasPrefix(raw, "{") {
		return &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}, nil
	}

	var token oauth2.Token
	if err := json.Unmarshal([]byte(raw), &token); err != nil {
		return nil, fmt.Errorf("%w: invalid token JSON: %v", platform.ErrInvalidSettings, err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, fmt.Errorf("%w: token has neither access nor refresh token", platform.ErrInvalidSettings)
	}
	return &token, nil
}

func oauthConfig(clientID, clientSecret, redirectURL string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		RedirectURL:  redirectURL,
		Scopes:       []string{tasksScope},
	}
}

// CreateTask creates a new task in the client's list.
func (c *Client) CreateTask(ctx context.Context, task platform.TaskRecord) (platform.ExternalTaskID, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	t := &tasks.Task{
		Title: task.Title,
		Notes: task.Description,
	}
	if task.Due != nil {
		t.Due = task.Due.UTC().Format(time.RFC3339)
	}
	if task.Completed {
		t.Status = statusCompleted
	}

	created, err := c.svc.Tasks.Insert(c.listID, t).Context(ctx).Do()
	if err != nil {
		return "", wrapError("CreateTask", err)
	}
	return platform.ExternalTaskID(created.Id), nil
}

// UpdateTask patches a task. Only the fields set in patch are sent.
func (c *Client) UpdateTask(ctx context.Context, id platform.ExternalTaskID, patch platform.TaskPatch) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := c.svc.Tasks.Patch(c.listID, string(id), toPatch(patch)).Context(ctx).Do()
	if err != nil {
		return wrapError("UpdateTask", err)
	}
	return nil
}

// DeleteTask deletes a task. A task that is already gone counts as deleted.
func (c *Client) DeleteTask(ctx context.Context, id platform.ExternalTaskID) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	err := c.svc.Tasks.Delete(c.listID, string(id)).Context(ctx).Do()
	if err != nil {
		err = wrapError("DeleteTask", err)
		if errors.Is(err, platform.ErrNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// ListTasks yields tasks in API order, fetching a page at a time.
func (c *Client) ListTasks(ctx context.Context, filter platform.TaskFilter) iter.Seq2[platform.TaskRecord, error] {
	return func(yield func(platform.TaskRecord, error) bool) {
		call := c.svc.Tasks.List(c.listID).
			MaxResults(PageSize).
			ShowCompleted(filter.IncludeCompleted).
			ShowHidden(filter.IncludeCompleted).
			ShowDeleted(false)
		if filter.DueBefore != nil {
			call = call.DueMax(filter.DueBefore.UTC().Format(time.RFC3339))
		}

		n := 0
		var pageToken string
		for {
			resp, err := c.fetchPage(ctx, call, pageToken)
			if err != nil {
				yield(platform.TaskRecord{}, err)
				return
			}
			for _, t := range resp.Items {
				if t.Deleted {
					continue
				}
				rec := toRecord(t)
				if !filter.Match(rec) {
					continue
				}
				if !yield(rec, nil) {
					return
				}
				n++
				if filter.Limit > 0 && n >= filter.Limit {
					return
				}
			}
			if resp.NextPageToken == "" {
				return
			}
			pageToken = resp.NextPageToken
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, call *tasks.TasksListCall, pageToken string) (*tasks.Tasks, error) {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	resp, err := call.PageToken(pageToken).Context(ctx).Do()
	if err != nil {
		return nil, wrapError("ListTasks", err)
	}
	return resp, nil
}

// ValidateCredentials fetches the configured task list.
func (c *Client) ValidateCredentials(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, APITimeout)
	defer cancel()

	_, err := c.svc.Tasklists.Get(c.listID).Context(ctx).Do()
	if err == nil {
		return nil
	}
	err = wrapError("ValidateCredentials", err)
	if errors.Is(err, platform.ErrNotFound) {
		return fmt.Errorf("%w: task list not found: %s", platform.ErrInvalidSettings, c.listID)
	}
	return err
}

func toRecord(t *tasks.Task) platform.TaskRecord {
	rec := platform.TaskRecord{
		ExternalID:  platform.ExternalTaskID(t.Id),
		Title:       t.Title,
		Description: t.Notes,
		Completed:   t.Status == statusCompleted,
	}
	if t.Due != "" {
		if due, err := time.Parse(time.RFC3339, t.Due); err == nil {
			rec.Due = &due
		}
	}
	return rec
}

func toPatch(p platform.TaskPatch) *tasks.Task {
	t := &tasks.Task{}
	if p.Title != nil {
		t.Title = *p.Title
		t.ForceSendFields = append(t.ForceSendFields, "Title")
	}
	if p.Description != nil {
		t.Notes = *p.Description
		t.ForceSendFields = append(t.ForceSendFields, "Notes")
	}
	switch {
	case p.ClearDue:
		t.NullFields = append(t.NullFields, "Due")
	case p.Due != nil:
		t.Due = p.Due.UTC().Format(time.RFC3339)
	}
	if p.Completed != nil {
		if *p.Completed {
			t.Status = statusCompleted
		} else {
			t.Status = statusNeedsAction
			t.NullFields = append(t.NullFields, "Completed")
		}
	}
	return t
}

// wrapError maps API errors onto the platform error taxonomy.
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case http.StatusUnauthorized, http.StatusForbidden:
			err = fmt.Errorf("%w: token expired or revoked (%d)", platform.ErrAuth, apiErr.Code)
		case http.StatusNotFound, http.StatusGone:
			err = fmt.Errorf("%w (%d)", platform.ErrNotFound, apiErr.Code)
		}
	}

	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		err = fmt.Errorf("%w: token refresh failed: %w", platform.ErrAuth, err)
	}

	return &platform.Error{Platform: ID, Op: op, Err: err}
}
