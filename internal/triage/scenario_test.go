package triage

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"sync"
	"testing"
	"time"

	"triagedesk/internal/api"
	"triagedesk/internal/model"
)

// fakeBackend is a minimal advising backend for end-to-end state tests.
type fakeBackend struct {
	mu         sync.Mutex
	emails     map[int]model.Email
	failDelete map[int]bool
}

func (f *fakeBackend) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /emails", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ids := make([]int, 0, len(f.emails))
		for id := range f.emails {
			ids = append(ids, id)
		}
		sort.Ints(ids)
		out := make([]model.Email, 0, len(ids))
		for _, id := range ids {
			out = append(out, f.emails[id])
		}
		json.NewEncoder(w).Encode(out)
	})
	mux.HandleFunc("DELETE /emails/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		if f.failDelete[id] {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		delete(f.emails, id)
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("POST /emails/{id}/send", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		id, err := strconv.Atoi(r.PathValue("id"))
		if err != nil {
			http.Error(w, "bad id", http.StatusBadRequest)
			return
		}
		e, ok := f.emails[id]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		e.Status = model.StatusSent
		f.emails[id] = e
		json.NewEncoder(w).Encode(map[string]string{"message": "sent"})
	})
	return mux
}

// Bulk-delete of {1,2,3} where id 2's DELETE fails with a 500: ids 1 and 3
// leave state and selection, id 2 remains selected, and the aggregate result
// reports the failure.
func TestScenario_BulkDeletePartialFailure(t *testing.T) {
	backend := &fakeBackend{
		emails: map[int]model.Email{
			1: {ID: 1, Status: model.StatusNeedsReview},
			2: {ID: 2, Status: model.StatusNeedsReview},
			3: {ID: 3, Status: model.StatusNeedsReview},
		},
		failDelete: map[int]bool{2: true},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := api.NewClient(srv.URL, 5*time.Second, nil)
	ctx := context.Background()

	s := NewState(nil)
	emails, err := client.ListEmails(ctx)
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	s.ApplyFetch(ctx, s.BeginFetch(), emails)
	s.Selection().SelectAll([]int{1, 2, 3})

	res := FanOut(ctx, "delete", s.Selection().IDs(), client.DeleteEmail)

	// Successes stand: apply them to local state and clear them from the
	// selection, exactly as the dashboard's completion handler does.
	for _, id := range res.Succeeded {
		s.Remove(id)
		s.ConfirmDelete(ctx, id)
	}

	if res.Ok() {
		t.Fatal("expected partial failure")
	}
	if len(res.Succeeded) != 2 {
		t.Fatalf("Succeeded = %v", res.Succeeded)
	}
	var se *api.StatusError
	if err := res.Failed[2]; err == nil {
		t.Fatal("id 2 should have failed")
	} else if !errors.As(err, &se) || se.Code != http.StatusInternalServerError {
		t.Fatalf("id 2 error = %v", err)
	}

	if _, ok := s.Get(1); ok {
		t.Fatal("id 1 still in state")
	}
	if _, ok := s.Get(3); ok {
		t.Fatal("id 3 still in state")
	}
	if _, ok := s.Get(2); !ok {
		t.Fatal("id 2 should remain in state")
	}
	if !s.Selection().Selected(2) {
		t.Fatal("id 2 should remain selected")
	}
	if s.Selection().Selected(1) || s.Selection().Selected(3) {
		t.Fatal("succeeded ids should be cleared from selection")
	}

	// The next authoritative fetch agrees with local state.
	emails, err = client.ListEmails(ctx)
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if !s.ApplyFetch(ctx, s.BeginFetch(), emails) {
		t.Fatal("fetch not applied")
	}
	if len(s.Emails()) != 1 || s.Emails()[0].ID != 2 {
		t.Fatalf("post-fetch state = %v", s.Emails())
	}
}

// A draft saved for email 5 is gone after the email is sent and the list is
// refreshed.
func TestScenario_DraftPurgedAfterSend(t *testing.T) {
	backend := &fakeBackend{
		emails: map[int]model.Email{
			5: {ID: 5, Status: model.StatusNeedsReview, SuggestedReply: "suggested"},
		},
	}
	srv := httptest.NewServer(backend.handler())
	defer srv.Close()

	client := api.NewClient(srv.URL, 5*time.Second, nil)
	ctx := context.Background()

	s := NewState(nil)
	emails, _ := client.ListEmails(ctx)
	s.ApplyFetch(ctx, s.BeginFetch(), emails)

	if err := s.Drafts().Save(ctx, 5, "my edit"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// Send uses the overlay as the outgoing text.
	e, _ := s.Get(5)
	if err := client.SendEmail(ctx, 5, s.Drafts().ReplyFor(e)); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}

	emails, _ = client.ListEmails(ctx)
	s.ApplyFetch(ctx, s.BeginFetch(), emails)

	if s.Drafts().Has(5) {
		t.Fatal("draft overlay for sent email 5 should be absent after refresh")
	}
	if got, _ := s.Get(5); got.Status != model.StatusSent {
		t.Fatalf("status = %q", got.Status)
	}
}
