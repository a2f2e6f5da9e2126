package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"triagedesk/internal/model"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, 5*time.Second, nil)
}

func TestListEmails(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet || r.URL.Path != "/emails" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		io.WriteString(w, `[
			{"id":1,"subject":"Withdrawal","body":"...","confidence":0.95,"status":"sent","suggested_reply":"Hi","received_at":"2025-01-01T00:00:00"},
			{"id":2,"subject":"Housing","body":"...","confidence":0.4,"status":"needs_review","suggested_reply":"Hello","received_at":"2025-01-02T10:00:00Z"}
		]`)
	})

	emails, err := c.ListEmails(context.Background())
	if err != nil {
		t.Fatalf("ListEmails: %v", err)
	}
	if len(emails) != 2 {
		t.Fatalf("got %d emails", len(emails))
	}
	if emails[0].ID != 1 || emails[0].Status != model.StatusSent || emails[0].Confidence != 0.95 {
		t.Fatalf("emails[0] = %+v", emails[0])
	}
}

func TestUpdateEmail_PatchPayload(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPatch || r.URL.Path != "/emails/7" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]any
		json.NewDecoder(r.Body).Decode(&body)
		if body["status"] != "approved_pending_send" {
			t.Errorf("status = %v", body["status"])
		}
		if _, ok := body["suggested_reply"]; ok {
			t.Error("nil reply field must be omitted")
		}
		io.WriteString(w, `{"id":7,"subject":"x","body":"y","confidence":0.5,"status":"approved_pending_send","suggested_reply":"r","received_at":"2025-01-01T00:00:00Z"}`)
	})

	st := model.StatusApprovedPendingSend
	e, err := c.UpdateEmail(context.Background(), 7, EmailUpdate{Status: &st})
	if err != nil {
		t.Fatalf("UpdateEmail: %v", err)
	}
	if e.Status != model.StatusApprovedPendingSend {
		t.Fatalf("status = %q", e.Status)
	}
}

func TestSendEmail_OverrideText(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/emails/5/send" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["text"] != "edited reply" {
			t.Errorf("text = %q", body["text"])
		}
		io.WriteString(w, `{"message":"sent"}`)
	})
	if err := c.SendEmail(context.Background(), 5, "edited reply"); err != nil {
		t.Fatalf("SendEmail: %v", err)
	}
}

func TestAssignments_KeyConversion(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"1":"jordan","8":"alex","not-a-number":"skip"}`)
	})
	m, err := c.Assignments(context.Background())
	if err != nil {
		t.Fatalf("Assignments: %v", err)
	}
	if len(m) != 2 || m[1] != "jordan" || m[8] != "alex" {
		t.Fatalf("m = %v", m)
	}
}

func TestAssign_EscapesPerson(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/emails/3/assign" {
			t.Errorf("path = %q", r.URL.Path)
		}
		if got := r.URL.Query().Get("person"); got != "a b&c" {
			t.Errorf("person = %q", got)
		}
		w.WriteHeader(http.StatusOK)
	})
	if err := c.Assign(context.Background(), 3, "a b&c"); err != nil {
		t.Fatalf("Assign: %v", err)
	}
}

func TestMailboxAndFetch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gmail/status":
			io.WriteString(w, `{"connected":true,"last_synced_at":"2025-01-01T00:00:00Z"}`)
		case "/gmail/fetch":
			io.WriteString(w, `{"ingested":3,"auto_sent":1,"last_synced_at":"2025-01-01T00:01:00Z"}`)
		default:
			t.Errorf("unexpected path %q", r.URL.Path)
		}
	})

	st, err := c.MailboxStatus(context.Background())
	if err != nil {
		t.Fatalf("MailboxStatus: %v", err)
	}
	if !st.Connected {
		t.Fatal("expected connected")
	}

	fr, err := c.TriggerFetch(context.Background())
	if err != nil {
		t.Fatalf("TriggerFetch: %v", err)
	}
	if fr.Ingested != 3 || fr.AutoSent != 1 {
		t.Fatalf("fr = %+v", fr)
	}
}

func TestDo_StatusError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	})
	err := c.DeleteEmail(context.Background(), 9)
	if err == nil {
		t.Fatal("expected error")
	}
	var se *StatusError
	if !errors.As(err, &se) {
		t.Fatalf("error type %T: %v", err, err)
	}
	if se.Code != http.StatusInternalServerError || se.Body != "nope" {
		t.Fatalf("se = %+v", se)
	}
}
