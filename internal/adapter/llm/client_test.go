package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/opengrants/councild/internal/port/oracle"
)

func chatServer(t *testing.T, handler func(req map[string]any) string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		resp := map[string]any{
			"model": req["model"],
			"choices": []map[string]any{
				{"message": map[string]any{"content": handler(req)}},
			},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5},
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
}

func TestClient_Judge(t *testing.T) {
	srv := chatServer(t, func(map[string]any) string { return "verdict" })
	defer srv.Close()

	c := NewClient(srv.URL, "test-key", time.Second)
	resp, err := c.Judge(context.Background(), oracle.Request{
		Model:    "test-model",
		Messages: []oracle.Message{{Role: "user", Content: "judge this"}},
	})
	if err != nil {
		t.Fatalf("Judge: %v", err)
	}
	if resp.Content != "verdict" {
		t.Fatalf("content = %q, want verdict", resp.Content)
	}
	if resp.TokensIn != 10 || resp.TokensOut != 5 {
		t.Fatalf("usage = %d/%d, want 10/5", resp.TokensIn, resp.TokensOut)
	}
}

func TestClient_AskAppendsSchemaToSystemMessage(t *testing.T) {
	var gotSystem string
	srv := chatServer(t, func(req map[string]any) string {
		msgs := req["messages"].([]any)
		first := msgs[0].(map[string]any)
		gotSystem = first["content"].(string)
		return `{"pattern":"p"}`
	})
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	_, err := c.Ask(context.Background(), oracle.Request{
		Model: "test-model",
		Messages: []oracle.Message{
			{Role: "system", Content: "base instructions"},
			{Role: "user", Content: "reflect"},
		},
	}, map[string]string{"pattern": "string", "confidence": "float 0-1"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if !strings.Contains(gotSystem, "base instructions") {
		t.Fatalf("system message lost original content: %q", gotSystem)
	}
	if !strings.Contains(gotSystem, `"confidence"`) || !strings.Contains(gotSystem, `"pattern"`) {
		t.Fatalf("system message missing schema fields: %q", gotSystem)
	}
	// Schema fields render in sorted order for deterministic prompts.
	if strings.Index(gotSystem, `"confidence"`) > strings.Index(gotSystem, `"pattern"`) {
		t.Fatalf("schema fields not sorted: %q", gotSystem)
	}
}

func TestClient_JudgeErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "overloaded", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "", time.Second)
	if _, err := c.Judge(context.Background(), oracle.Request{Model: "m"}); err == nil {
		t.Fatal("expected error for 503 response")
	}
}
