package alerts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"dains/internal/core"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	client, err := New("test-key", "DAINS Monitor <updates@victordelrosal.com>", "alerts@example.com", 10*time.Second, zerolog.Nop())
	if err != nil {
		t.Fatalf("failed to create client: %v", err)
	}
	client.baseURL = server.URL
	return client
}

func captureRequest(t *testing.T, captured *sendRequest) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", got)
		}
		if err := json.NewDecoder(r.Body).Decode(captured); err != nil {
			t.Errorf("failed to decode request: %v", err)
		}
		_, _ = w.Write([]byte(`{"id": "email-123"}`))
	}
}

func TestSendCritical(t *testing.T) {
	var got sendRequest
	client := newTestClient(t, captureRequest(t, &got))

	alert := CriticalAlert{
		Subject: "Scan failed",
		Body:    "Synthesis returned an error",
		Layer:   "synthesis",
		Error:   `model said: "quota exceeded" & gave up`,
		Action:  "Retried once",
		LiveURL: "https://victordelrosal.com/daily-ai-news-scan-2026-08-28/",
	}
	if err := client.SendCritical(context.Background(), alert); err != nil {
		t.Fatalf("SendCritical failed: %v", err)
	}

	if got.Subject != "Scan failed" || got.To != "alerts@example.com" {
		t.Errorf("unexpected envelope: %+v", got)
	}
	if !strings.Contains(got.HTML, "Failed at:</strong> Layer synthesis") {
		t.Error("layer missing from alert body")
	}
	if !strings.Contains(got.HTML, "&amp;") || strings.Contains(got.HTML, `said: "quota`) {
		t.Error("error detail should be HTML-escaped")
	}
	if !strings.Contains(got.HTML, "Automatic action taken:") {
		t.Error("action box missing")
	}
}

func TestSendCritical_OmitsEmptySections(t *testing.T) {
	var got sendRequest
	client := newTestClient(t, captureRequest(t, &got))

	if err := client.SendCritical(context.Background(), CriticalAlert{Subject: "s", Body: "b"}); err != nil {
		t.Fatalf("SendCritical failed: %v", err)
	}
	for _, absent := range []string{"Failed at:", "error-box", "action-box"} {
		if strings.Contains(got.HTML, absent) {
			t.Errorf("empty alert should omit %q", absent)
		}
	}
}

func TestSendDigest(t *testing.T) {
	var got sendRequest
	client := newTestClient(t, captureRequest(t, &got))

	items := []DigestItem{
		{Severity: "warning", Message: "Feed openai-blog timed out once"},
		{Severity: "info", Message: "Retry succeeded"},
	}
	if err := client.SendDigest(context.Background(), items); err != nil {
		t.Fatalf("SendDigest failed: %v", err)
	}
	if got.Subject != "DAINS Morning Digest - 2 issue(s)" {
		t.Errorf("unexpected subject %q", got.Subject)
	}
	if !strings.Contains(got.HTML, "Feed openai-blog timed out once") {
		t.Error("digest item missing from body")
	}
}

func TestSendDigest_EmptySkips(t *testing.T) {
	called := false
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		called = true
	})
	if err := client.SendDigest(context.Background(), nil); err != nil {
		t.Fatalf("empty digest should be a no-op, got %v", err)
	}
	if called {
		t.Error("no request should be sent for an empty digest")
	}
}

func TestSendPost(t *testing.T) {
	var got sendRequest
	client := newTestClient(t, captureRequest(t, &got))

	post := core.PublishedPost{
		Slug:        "daily-ai-news-scan-2026-08-28",
		Title:       "Daily AI News Scan — Friday, August 28, 2026",
		Content:     "<h1>Daily AI News Scan</h1><p>Body</p>",
		PublishedAt: time.Now(),
	}
	if err := client.SendPost(context.Background(), post); err != nil {
		t.Fatalf("SendPost failed: %v", err)
	}
	if got.Subject != "[TEST] Daily AI News Scan — Friday, August 28, 2026" {
		t.Errorf("unexpected subject %q", got.Subject)
	}
	if !strings.Contains(got.HTML, "<h1>Daily AI News Scan</h1>") {
		t.Error("post HTML should pass through unescaped")
	}
}

func TestSend_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte(`{"message": "invalid from address"}`))
	})
	err := client.SendCritical(context.Background(), CriticalAlert{Subject: "s", Body: "b"})
	if err == nil || !strings.Contains(err.Error(), "invalid from address") {
		t.Errorf("expected resend rejection error, got %v", err)
	}
}

func TestNew_Validation(t *testing.T) {
	if _, err := New("", "from", "to", time.Second, zerolog.Nop()); err == nil {
		t.Error("expected error for missing API key")
	}
	if _, err := New("key", "from", "", time.Second, zerolog.Nop()); err == nil {
		t.Error("expected error for missing recipient")
	}
}
