package graph

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestFetchMessage(t *testing.T) {
	var gotPath, gotPrefer string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.EscapedPath()
		gotPrefer = r.Header.Get("Prefer")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"subject": "Broken login",
			"from": {"emailAddress": {"name": "Ann", "address": "ann@example.com"}},
			"body": {"contentType": "text", "content": "I cannot log in."}
		}`))
	}))
	defer srv.Close()

	c := newClient(srv.Client(), srv.URL, "support@example.com", 0, zap.NewNop())
	email, err := c.FetchMessage(context.Background(), "AAMk/abc=")
	if err != nil {
		t.Fatalf("FetchMessage() error = %v", err)
	}

	if gotPath != "/users/support@example.com/messages/AAMk%2Fabc=" {
		t.Errorf("path = %q", gotPath)
	}
	if gotPrefer != `outlook.body-content-type="text"` {
		t.Errorf("Prefer = %q", gotPrefer)
	}
	if email.SenderEmail != "ann@example.com" || *email.SenderName != "Ann" {
		t.Errorf("sender = %s / %v", email.SenderEmail, email.SenderName)
	}
	if email.Subject != "Broken login" || email.Body != "I cannot log in." {
		t.Errorf("email = %+v", email)
	}
}

func TestFetchMessageDefaults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/me/messages/m1" {
			t.Errorf("path = %q", r.URL.Path)
		}
		_, _ = w.Write([]byte(`{"body": {"content": "hello"}}`))
	}))
	defer srv.Close()

	c := newClient(srv.Client(), srv.URL, "", 0, zap.NewNop())
	email, err := c.FetchMessage(context.Background(), "m1")
	if err != nil {
		t.Fatal(err)
	}
	if email.SenderEmail != unknownSender || email.Subject != defaultSubject {
		t.Errorf("defaults not applied: %+v", email)
	}
	if email.SenderName != nil {
		t.Errorf("sender name = %v, want nil", *email.SenderName)
	}
}

func TestFetchMessageErrors(t *testing.T) {
	status := http.StatusNotFound
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(status)
		_, _ = w.Write([]byte(`{"error":{"code":"x"}}`))
	}))
	defer srv.Close()

	c := newClient(srv.Client(), srv.URL, "", 0, zap.NewNop())
	if _, err := c.FetchMessage(context.Background(), "gone"); !errors.Is(err, ErrMessageNotFound) {
		t.Errorf("404 error = %v, want ErrMessageNotFound", err)
	}

	status = http.StatusInternalServerError
	_, err := c.FetchMessage(context.Background(), "boom")
	if err == nil || errors.Is(err, ErrMessageNotFound) {
		t.Errorf("500 error = %v", err)
	}
}
