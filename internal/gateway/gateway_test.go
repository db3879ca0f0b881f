package gateway

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestListSessionsQueryParam(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/sessions" {
			t.Errorf("path = %q", r.URL.Path)
		}
		gotQuery = r.URL.Query().Get("query")
		json.NewEncoder(w).Encode(map[string]any{
			"sessions": []map[string]any{
				{"id": 1, "title": "Monday run"},
				{"id": 2, "title": "Titration", "is_archived": true},
			},
		})
	}))
	defer srv.Close()

	c := New(srv.URL)
	sessions, err := c.ListSessions(context.Background(), "  agar ")
	if err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
	if gotQuery != "agar" {
		t.Errorf("query param = %q, want trimmed %q", gotQuery, "agar")
	}
	if len(sessions) != 2 || sessions[0].ID != 1 || !sessions[1].IsArchived {
		t.Errorf("sessions: %+v", sessions)
	}
}

func TestListSessionsEmptyQueryOmitsParam(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.RawQuery != "" {
			t.Errorf("unexpected query string %q", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(map[string]any{"sessions": []any{}})
	}))
	defer srv.Close()

	if _, err := New(srv.URL).ListSessions(context.Background(), "   "); err != nil {
		t.Fatalf("ListSessions: %v", err)
	}
}

func TestFetchNotebookDecodesBlocks(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/notebook" {
			t.Errorf("path = %q", r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"sessions": []map[string]any{
				{
					"id": 1, "title": "Run",
					"blocks": []map[string]any{
						{"id": 10, "kind": "paragraph", "text": "hello"},
						{"id": 11, "kind": "chart", "title": "Growth"},
					},
				},
			},
		})
	}))
	defer srv.Close()

	sessions, err := New(srv.URL).FetchNotebook(context.Background())
	if err != nil {
		t.Fatalf("FetchNotebook: %v", err)
	}
	if len(sessions) != 1 || len(sessions[0].Blocks) != 2 {
		t.Fatalf("sessions: %+v", sessions)
	}
	if sessions[0].Blocks[1].Title != "Growth" {
		t.Errorf("block decode: %+v", sessions[0].Blocks[1])
	}
}

func TestRenameSession(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPut || r.URL.Path != "/sessions/7/title" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		var body struct {
			ID    int64  `json:"id"`
			Title string `json:"title"`
		}
		json.NewDecoder(r.Body).Decode(&body)
		if body.ID != 7 || body.Title != "Session 7" {
			t.Errorf("body: %+v", body)
		}
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	if err := New(srv.URL).RenameSession(context.Background(), 7, "Session 7"); err != nil {
		t.Fatalf("RenameSession: %v", err)
	}
}

func TestMutationFailureSurfacesError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL)
	if err := c.SetArchived(context.Background(), 3, true); err == nil {
		t.Error("expected error on HTTP 500")
	}
	if err := c.RenameSession(context.Background(), 3, "x"); err == nil {
		t.Error("expected error on HTTP 500")
	}
}

func TestSubmitCommand(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/commands" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		json.NewEncoder(w).Encode(map[string]any{
			"status": "ok",
			"applied": map[string]any{
				"type": "rename_session", "session_id": 4, "title": "PCR prep",
			},
		})
	}))
	defer srv.Close()

	res, err := New(srv.URL).SubmitCommand(context.Background(), "rename session four to PCR prep")
	if err != nil {
		t.Fatalf("SubmitCommand: %v", err)
	}
	if res.Applied.Type != "rename_session" || res.Applied.SessionID != 4 {
		t.Errorf("applied: %+v", res.Applied)
	}
}

func TestSubmitCommandErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"status": "error"})
	}))
	defer srv.Close()

	if _, err := New(srv.URL).SubmitCommand(context.Background(), "gibberish"); err == nil {
		t.Error("expected error for status=error")
	}
}
