package googletasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"taskbridge/internal/platform"
)

// fakeAPI serves the subset of the Tasks API the client uses.
type fakeAPI struct {
	mu       sync.Mutex
	requests []string
	bodies   []map[string]any
	auth     []string
	handler  func(w http.ResponseWriter, r *http.Request) bool
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	f.requests = append(f.requests, r.Method+" "+r.URL.Path)
	f.auth = append(f.auth, r.Header.Get("Authorization"))
	if r.Body != nil {
		data, _ := io.ReadAll(r.Body)
		var body map[string]any
		if len(data) > 0 && json.Unmarshal(data, &body) == nil {
			f.bodies = append(f.bodies, body)
		}
	}
	handler := f.handler
	f.mu.Unlock()

	if handler != nil && handler(w, r) {
		return
	}
	writeAPIError(w, http.StatusNotImplemented)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeAPIError(w http.ResponseWriter, code int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	fmt.Fprintf(w, `{"error":{"code":%d,"message":"%s"}}`, code, http.StatusText(code))
}

func newTestClient(t *testing.T, api *fakeAPI) *Client {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	c, err := newClient(context.Background(), srv.Client(), srv.URL+"/", "L1")
	if err != nil {
		t.Fatalf("newClient: %v", err)
	}
	return c
}

func TestCreateTask(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method == http.MethodPost && r.URL.Path == "/tasks/v1/lists/L1/tasks" {
			writeJSON(w, map[string]any{"id": "T1", "title": "Buy milk"})
			return true
		}
		return false
	}}
	c := newTestClient(t, api)
	due := time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC)

	id, err := c.CreateTask(context.Background(), platform.TaskRecord{Title: "Buy milk", Description: "2l", Due: &due})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "T1" {
		t.Errorf("expected T1, got %q", id)
	}
	body := api.bodies[0]
	if body["title"] != "Buy milk" || body["notes"] != "2l" || body["due"] != "2026-05-01T00:00:00Z" {
		t.Errorf("unexpected body %v", body)
	}
}

func TestUpdateTask_SendsOnlyPatch(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method == http.MethodPatch && r.URL.Path == "/tasks/v1/lists/L1/tasks/T1" {
			writeJSON(w, map[string]any{"id": "T1"})
			return true
		}
		return false
	}}
	c := newTestClient(t, api)
	done := true

	err := c.UpdateTask(context.Background(), "T1", platform.TaskPatch{Completed: &done, ClearDue: true})

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	body := api.bodies[0]
	if body["status"] != statusCompleted {
		t.Errorf("expected completed status, got %v", body)
	}
	if v, ok := body["due"]; !ok || v != nil {
		t.Errorf("expected due sent as null, got %v", body)
	}
	if _, ok := body["title"]; ok {
		t.Errorf("title should not be sent, got %v", body)
	}
}

func TestUpdateTask_NotFound(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) bool {
		writeAPIError(w, http.StatusNotFound)
		return true
	}}
	c := newTestClient(t, api)
	title := "x"

	err := c.UpdateTask(context.Background(), "T9", platform.TaskPatch{Title: &title})

	if !errors.Is(err, platform.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
	var perr *platform.Error
	if !errors.As(err, &perr) || perr.Platform != ID || perr.Op != "UpdateTask" {
		t.Errorf("expected *platform.Error for UpdateTask, got %v", err)
	}
}

func TestDeleteTask_MissingSucceeds(t *testing.T) {
	for _, code := range []int{http.StatusNotFound, http.StatusGone} {
		api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) bool {
			writeAPIError(w, code)
			return true
		}}
		c := newTestClient(t, api)

		if err := c.DeleteTask(context.Background(), "T9"); err != nil {
			t.Errorf("%d: expected nil, got %v", code, err)
		}
	}
}

func TestDeleteTask_ServerError(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) bool {
		writeAPIError(w, http.StatusInternalServerError)
		return true
	}}
	c := newTestClient(t, api)

	err := c.DeleteTask(context.Background(), "T1")

	var perr *platform.Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected *platform.Error, got %v", err)
	}
	if errors.Is(err, platform.ErrNotFound) || errors.Is(err, platform.ErrAuth) {
		t.Errorf("500 should not map to a sentinel, got %v", err)
	}
}

func TestListTasks_Pages(t *testing.T) {
	var pages int
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) bool {
		if r.Method != http.MethodGet || r.URL.Path != "/tasks/v1/lists/L1/tasks" {
			return false
		}
		pages++
		if r.URL.Query().Get("showCompleted") != "false" {
			writeAPIError(w, http.StatusBadRequest)
			return true
		}
		switch r.URL.Query().Get("pageToken") {
		case "":
			writeJSON(w, map[string]any{
				"items": []map[string]any{
					{"id": "A", "title": "first", "status": statusNeedsAction, "due": "2026-05-01T00:00:00.000Z"},
					{"id": "B", "title": "second", "deleted": true},
				},
				"nextPageToken": "p2",
			})
		case "p2":
			writeJSON(w, map[string]any{
				"items": []map[string]any{{"id": "C", "title": "third", "notes": "n"}},
			})
		}
		return true
	}}
	c := newTestClient(t, api)

	var got []platform.TaskRecord
	for task, err := range c.ListTasks(context.Background(), platform.TaskFilter{}) {
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got = append(got, task)
	}

	if len(got) != 2 || got[0].ExternalID != "A" || got[1].ExternalID != "C" {
		t.Fatalf("unexpected tasks %+v", got)
	}
	if got[0].Due == nil || got[0].Due.Day() != 1 {
		t.Errorf("expected due parsed, got %v", got[0].Due)
	}
	if got[1].Description != "n" {
		t.Errorf("expected notes mapped, got %q", got[1].Description)
	}
	if pages != 2 {
		t.Errorf("expected 2 pages, got %d", pages)
	}
}

func TestListTasks_LimitStopsPaging(t *testing.T) {
	var pages int
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) bool {
		pages++
		writeJSON(w, map[string]any{
			"items":         []map[string]any{{"id": "A", "title": "a"}, {"id": "B", "title": "b"}},
			"nextPageToken": "more",
		})
		return true
	}}
	c := newTestClient(t, api)

	n := 0
	for _, err := range c.ListTasks(context.Background(), platform.TaskFilter{Limit: 1}) {
		if err != nil {
			t.Fatal(err)
		}
		n++
	}
	if n != 1 || pages != 1 {
		t.Errorf("expected 1 task from 1 page, got %d tasks from %d pages", n, pages)
	}
}

func TestListTasks_AuthError(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) bool {
		writeAPIError(w, http.StatusUnauthorized)
		return true
	}}
	c := newTestClient(t, api)

	var last error
	for _, err := range c.ListTasks(context.Background(), platform.TaskFilter{}) {
		last = err
	}
	if !errors.Is(last, platform.ErrAuth) {
		t.Errorf("expected ErrAuth, got %v", last)
	}
}

func TestValidateCredentials(t *testing.T) {
	tests := []struct {
		status  int
		wantErr error
	}{
		{http.StatusOK, nil},
		{http.StatusUnauthorized, platform.ErrAuth},
		{http.StatusForbidden, platform.ErrAuth},
		{http.StatusNotFound, platform.ErrInvalidSettings},
	}
	for _, tt := range tests {
		t.Run(http.StatusText(tt.status), func(t *testing.T) {
			api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) bool {
				if r.URL.Path != "/tasks/v1/users/@me/lists/L1" {
					return false
				}
				if tt.status != http.StatusOK {
					writeAPIError(w, tt.status)
					return true
				}
				writeJSON(w, map[string]any{"id": "L1", "title": "Inbox"})
				return true
			}}
			c := newTestClient(t, api)

			err := c.ValidateCredentials(context.Background())
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestNew_SendsBearerToken(t *testing.T) {
	api := &fakeAPI{handler: func(w http.ResponseWriter, r *http.Request) bool {
		writeJSON(w, map[string]any{"id": "L1"})
		return true
	}}
	srv := httptest.NewServer(api)
	defer srv.Close()

	p, err := New(platform.Settings{
		platform.TokenKey: "ya29.access",
		KeyListID:         "L1",
		KeyEndpoint:       srv.URL + "/",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(api.requests) != 0 {
		t.Error("construction must not call the API")
	}

	if err := p.ValidateCredentials(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if api.auth[0] != "Bearer ya29.access" {
		t.Errorf("expected bearer header, got %q", api.auth[0])
	}
}

func TestNew_DefaultList(t *testing.T) {
	p, err := New(platform.Settings{platform.TokenKey: "x"})
	if err != nil {
		t.Fatal(err)
	}
	if p.(*Client).listID != DefaultListID {
		t.Errorf("expected default list, got %q", p.(*Client).listID)
	}
}

func TestParseToken(t *testing.T) {
	tests := []struct {
		raw     string
		access  string
		refresh string
		wantErr bool
	}{
		{raw: "ya29.abc", access: "ya29.abc"},
		{raw: `{"access_token":"a","refresh_token":"r","token_type":"Bearer"}`, access: "a", refresh: "r"},
		{raw: `{"refresh_token":"r"}`, refresh: "r"},
		{raw: "", wantErr: true},
		{raw: "{not json", wantErr: true},
		{raw: `{"token_type":"Bearer"}`, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			tok, err := parseToken(tt.raw)
			if tt.wantErr {
				if !errors.Is(err, platform.ErrInvalidSettings) {
					t.Errorf("expected ErrInvalidSettings, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tok.AccessToken != tt.access || tok.RefreshToken != tt.refresh {
				t.Errorf("unexpected token %+v", tok)
			}
		})
	}
}

func TestNew_RefreshOnlyNeedsClient(t *testing.T) {
	_, err := New(platform.Settings{platform.TokenKey: `{"refresh_token":"r"}`})
	if !errors.Is(err, platform.ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), KeyClientID) {
		t.Errorf("expected message to name %s, got %v", KeyClientID, err)
	}

	_, err = New(platform.Settings{
		platform.TokenKey: `{"refresh_token":"r"}`,
		KeyClientID:       "cid",
		KeyClientSecret:   "secret",
	})
	if err != nil {
		t.Errorf("unexpected error with client credentials: %v", err)
	}
}

func TestRegistered(t *testing.T) {
	reg, err := platform.DefaultRegistry.Lookup(ID)
	if err != nil {
		t.Fatalf("expected %s registered: %v", ID, err)
	}
	if reg.Authorize == nil {
		t.Error("expected login flow")
	}
}

func TestAuthorize_RequiresClient(t *testing.T) {
	_, err := Authorize(context.Background(), platform.Settings{}, io.Discard)
	if !errors.Is(err, platform.ErrInvalidSettings) {
		t.Errorf("expected ErrInvalidSettings, got %v", err)
	}
}
