package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"youdub/internal/services"
)

func completionHandler(t *testing.T, content string) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"choices": []any{
				map[string]any{
					"message": map[string]any{
						"content": content,
					},
				},
			},
		}
		if err := json.NewEncoder(w).Encode(payload); err != nil {
			t.Errorf("encode response: %v", err)
		}
	}
}

func TestClientHealthCheck(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test" {
			t.Errorf("unexpected authorization %q", got)
		}
		completionHandler(t, `{"ok":true}`)(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckCodeFence(t *testing.T) {
	server := httptest.NewServer(completionHandler(t, "```json\n{\"ok\":true}\n```"))
	defer server.Close()

	client := NewClient(Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"})
	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck returned error: %v", err)
	}
}

func TestClientHealthCheckFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "unauthorized"})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "bad", BaseURL: server.URL, Model: "demo"})
	if err := client.HealthCheck(context.Background()); err == nil {
		t.Fatal("expected health check to fail")
	}
}

func TestChatSendsMessagesAndExtraBody(t *testing.T) {
	var received map[string]any
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Errorf("decode request: %v", err)
		}
		completionHandler(t, "你好")(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{
		APIKey:    "test",
		BaseURL:   server.URL + "/",
		Model:     "demo-model",
		ExtraBody: map[string]any{"temperature": 0.2, "model": "ignored"},
	})
	reply, err := client.Chat(context.Background(), []Message{System("sys"), User("hello")})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if reply != "你好" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if received["model"] != "demo-model" {
		t.Fatalf("model should not be overridden by extra body, got %v", received["model"])
	}
	if received["temperature"] != 0.2 {
		t.Fatalf("expected temperature from extra body, got %v", received["temperature"])
	}
	messages, ok := received["messages"].([]any)
	if !ok || len(messages) != 2 {
		t.Fatalf("expected two messages, got %v", received["messages"])
	}
	first := messages[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "sys" {
		t.Fatalf("unexpected first message %v", first)
	}
}

func TestChatRequiresAPIKeyForRemoteEndpoint(t *testing.T) {
	client := NewClient(Config{BaseURL: "https://api.example.com/v1", Model: "demo"})
	_, err := client.Chat(context.Background(), []Message{User("hi")})
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if services.IsRetryable(err) {
		t.Fatal("configuration errors must not be retryable")
	}
}

func TestChatAllowsLocalEndpointWithoutKey(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "" {
			t.Errorf("expected no authorization header")
		}
		completionHandler(t, "ok")(w, r)
	}))
	defer server.Close()

	client := NewClient(Config{BaseURL: server.URL, Model: "llama"})
	if _, err := client.Chat(context.Background(), []Message{User("hi")}); err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
}

func TestChatDeltaAndLegacyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"choices": []any{
				map[string]any{"delta": map[string]any{"content": ""}},
				map[string]any{"text": "legacy"},
			},
		})
	}))
	defer server.Close()

	client := NewClient(Config{APIKey: "k", BaseURL: server.URL, Model: "m"})
	reply, err := client.Chat(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if reply != "legacy" {
		t.Fatalf("expected legacy text, got %q", reply)
	}
}

func TestClientRetriesOnHTTP429(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			_ = json.NewEncoder(w).Encode(map[string]string{"error": "rate limited"})
			return
		}
		completionHandler(t, "done")(w, r)
	}))
	defer server.Close()

	var slept []time.Duration
	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(d time.Duration) { slept = append(slept, d) }),
		WithRetryBackoff(0, 10*time.Second),
		WithRetryMaxAttempts(5),
	)
	reply, err := client.Chat(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if reply != "done" {
		t.Fatalf("unexpected reply %q", reply)
	}
	if calls != 2 {
		t.Fatalf("expected 2 calls, got %d", calls)
	}
	if len(slept) != 1 || slept[0] != time.Second {
		t.Fatalf("expected single sleep of 1s, got %v", slept)
	}
}

func TestClientRetriesOnEmptyContentThenSucceeds(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		content := ""
		if calls >= 3 {
			content = "third time"
		}
		completionHandler(t, content)(w, r)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithRetryBackoff(0, 0),
		WithSleeper(func(time.Duration) {}),
		WithRetryMaxAttempts(5),
	)
	reply, err := client.Chat(context.Background(), []Message{User("hi")})
	if err != nil {
		t.Fatalf("Chat returned error: %v", err)
	}
	if reply != "third time" || calls != 3 {
		t.Fatalf("unexpected reply %q after %d calls", reply, calls)
	}
}

func TestClientDoesNotRetryBadRequest(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer server.Close()

	client := NewClient(
		Config{APIKey: "test", BaseURL: server.URL, Model: "demo-model"},
		WithSleeper(func(time.Duration) {}),
	)
	_, err := client.Chat(context.Background(), []Message{User("hi")})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("expected a single call, got %d", calls)
	}
}

func TestDecodeJSONWithProse(t *testing.T) {
	var out struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
	}
	content := "Sure! Here it is:\n{\"title\": \"A {braced} title\", \"summary\": \"text\"}\nThanks."
	if err := DecodeJSON(content, &out); err != nil {
		t.Fatalf("DecodeJSON returned error: %v", err)
	}
	if out.Title != "A {braced} title" || out.Summary != "text" {
		t.Fatalf("unexpected decode %+v", out)
	}
	if err := DecodeJSON("   ", &out); err == nil {
		t.Fatal("expected error for empty payload")
	}
}

func TestBackoffDelayCapped(t *testing.T) {
	client := NewClient(Config{}, WithRetryBackoff(time.Second, 5*time.Second))
	cases := map[int]time.Duration{1: time.Second, 2: 2 * time.Second, 3: 4 * time.Second, 4: 5 * time.Second, 10: 5 * time.Second}
	for attempt, want := range cases {
		if got := client.backoffDelay(attempt); got != want {
			t.Fatalf("attempt %d: expected %s, got %s", attempt, want, got)
		}
	}
}
