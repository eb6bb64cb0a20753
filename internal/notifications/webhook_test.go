package notifications

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSend_NoWebhook(t *testing.T) {
	s := NewSender("", "TestReport", nil)
	if s.Enabled() {
		t.Fatal("should not be enabled with empty URL")
	}
	if err := s.Send(context.Background(), "hello from test"); err != nil {
		t.Fatalf("log-only send failed: %v", err)
	}
}

func TestSend_SlackFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "TestReport", nil)
	if !s.Enabled() {
		t.Fatal("should be enabled")
	}

	if err := s.Send(context.Background(), "realized 250.00 USD over 1 sell"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if received["username"] != "TestReport" {
		t.Fatalf("username: got %s", received["username"])
	}
	if received["text"] != "`[TestReport] realized 250.00 USD over 1 sell`" {
		t.Fatalf("text: got %q", received["text"])
	}
}

func TestSend_DiscordFormat(t *testing.T) {
	var received map[string]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		json.Unmarshal(body, &received)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	// URL containing "discord" triggers Discord format
	s := NewSender(srv.URL+"/discord/webhook", "TrahnBot", nil)
	if err := s.Send(context.Background(), "monthly report ready"); err != nil {
		t.Fatalf("Send: %v", err)
	}

	if received["content"] == "" {
		t.Fatal("content should not be empty for Discord")
	}
	if received["username"] != "TrahnBot" {
		t.Fatalf("username: got %s", received["username"])
	}
	if _, hasText := received["text"]; hasText {
		t.Fatal("Discord payload should not have 'text' field")
	}
}

func TestSend_ClientErrorIsReported(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewSender(srv.URL, "TestReport", nil)
	if err := s.Send(context.Background(), "lost"); err == nil {
		t.Fatal("expected error for 404")
	}
}

func TestSend_Cancelled(t *testing.T) {
	s := NewSender("http://localhost:1/bogus", "TestReport", nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Send(ctx, "this will fail gracefully"); err == nil {
		t.Fatal("expected error for cancelled context")
	}
}

func TestDefaultName(t *testing.T) {
	s := NewSender("", "", nil)
	if s.name != defaultName {
		t.Fatalf("expected default name, got %s", s.name)
	}
}
