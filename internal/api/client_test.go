package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/messages" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]string
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatal(err)
		}
		if body["content"] != "hola" || body["group_id"] != "g1" {
			t.Errorf("body = %v", body)
		}
		json.NewEncoder(w).Encode(SendResult{ID: "srv-1", CreatedAt: "2025-03-01T10:00:00Z"})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	res, err := c.SendMessage(context.Background(), "hola", "g1")
	if err != nil {
		t.Fatal(err)
	}
	if res.ID != "srv-1" || res.CreatedAt != "2025-03-01T10:00:00Z" {
		t.Errorf("got %+v", res)
	}
}

func TestFetchMessages(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Message{
			{ID: "1", Content: "a", SenderName: "ana", GroupID: "global", CreatedAt: "2025-03-01T10:00:00Z"},
			{ID: "2", Content: "b", SenderName: "bruno", GroupID: "g1", CreatedAt: "2025-03-01T10:01:00Z"},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	msgs, err := c.FetchMessages(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 || msgs[1].SenderName != "bruno" {
		t.Errorf("got %+v", msgs)
	}
}

func TestErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		wantMsg string
	}{
		{"error field", http.StatusBadRequest, `{"error":"content required"}`, "content required"},
		{"message field", http.StatusForbidden, `{"message":"not a member"}`, "not a member"},
		{"no body", http.StatusInternalServerError, ``, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			c := NewClient(srv.URL, "tok")
			_, err := c.FetchMessages(context.Background())
			var apiErr *Error
			if !errors.As(err, &apiErr) {
				t.Fatalf("err = %v, want *Error", err)
			}
			if apiErr.Status != tt.status || apiErr.Message != tt.wantMsg {
				t.Errorf("got %+v, want status %d msg %q", apiErr, tt.status, tt.wantMsg)
			}
		})
	}
}

func TestDeleteGroupEscapesID(t *testing.T) {
	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	if err := c.DeleteGroup(context.Background(), "g/1"); err != nil {
		t.Fatal(err)
	}
	if gotPath != "/groups/g%2F1" {
		t.Errorf("path = %q", gotPath)
	}
}

func TestFetchObjectivesByGroup(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/objectives/group/g1" {
			t.Errorf("path = %s", r.URL.Path)
		}
		json.NewEncoder(w).Encode([]Objective{
			{ID: "o1", Title: "Ship it", GroupID: "g1", Tasks: []Task{
				{ID: "t1", Title: "Write code", Status: "completada"},
				{ID: "t2", Title: "Review", Status: "pending"},
			}},
		})
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	objs, err := c.FetchObjectivesByGroup(context.Background(), "g1")
	if err != nil {
		t.Fatal(err)
	}
	if len(objs) != 1 || len(objs[0].Tasks) != 2 || objs[0].Tasks[0].Status != "completada" {
		t.Errorf("got %+v", objs)
	}
}

func TestSubmitTaskForReview(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/tasks/t1/submit" {
			t.Errorf("got %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "tok")
	if err := c.SubmitTaskForReview(context.Background(), "t1"); err != nil {
		t.Fatal(err)
	}
}
