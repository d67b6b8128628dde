package openai

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/yungbote/fynix-backend/internal/platform/ai"
	"github.com/yungbote/fynix-backend/internal/platform/logger"
)

const okBody = `{"output":[{"type":"message","role":"assistant","content":[{"type":"output_text","text":"hello"}]}]}`

type recorder struct {
	mu   sync.Mutex
	reqs []map[string]any
}

func (r *recorder) add(t *testing.T, req *http.Request) map[string]any {
	t.Helper()
	raw, _ := io.ReadAll(req.Body)
	var body map[string]any
	if err := json.Unmarshal(raw, &body); err != nil {
		t.Errorf("bad request body: %v", err)
	}
	r.mu.Lock()
	r.reqs = append(r.reqs, body)
	r.mu.Unlock()
	return body
}

func (r *recorder) all() []map[string]any {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]map[string]any(nil), r.reqs...)
}

func newTestClient(t *testing.T, h http.HandlerFunc, retries int) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	c, err := NewClient(logger.Nop(), Config{APIKey: "k", BaseURL: srv.URL, Model: "text-model", VisionModel: "vision-model", MaxRetries: retries})
	if err != nil {
		t.Fatalf("NewClient: %v", err)
	}
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	if _, err := NewClient(logger.Nop(), Config{}); err != ErrMissingAPIKey {
		t.Fatalf("err=%v", err)
	}
}

func TestGenerateSendsSystemPromptAndTemperature(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/responses" || r.Header.Get("Authorization") != "Bearer k" {
			t.Errorf("unexpected request %s %q", r.URL.Path, r.Header.Get("Authorization"))
		}
		rec.add(t, r)
		_, _ = io.WriteString(w, okBody)
	}, 0)

	res := c.Generate(context.Background(), "write facts", "", ai.GenerateOptions{Temperature: ai.Temperature(0.7), SystemPrompt: "be short"})
	if !res.Usable() || res.Text != "hello" {
		t.Fatalf("result %+v", res)
	}
	body := rec.all()[0]
	if body["model"] != "text-model" || body["temperature"] != 0.7 {
		t.Fatalf("body %v", body)
	}
	input := body["input"].([]any)
	if len(input) != 2 || input[0].(map[string]any)["role"] != "system" {
		t.Fatalf("input %v", input)
	}
}

func TestGenerateReportsFailureWithoutError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = io.WriteString(w, `{"error":"nope"}`)
	}, 2)
	res := c.Generate(context.Background(), "p", "m", ai.GenerateOptions{})
	if res.Success || res.Err == nil {
		t.Fatalf("result %+v", res)
	}
}

func TestGenerateRetriesServerErrors(t *testing.T) {
	var (
		mu    sync.Mutex
		calls int
	)
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		mu.Lock()
		calls++
		n := calls
		mu.Unlock()
		if n == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = io.WriteString(w, okBody)
	}, 1)
	if res := c.Generate(context.Background(), "p", "", ai.GenerateOptions{}); !res.Usable() {
		t.Fatalf("result %+v", res)
	}
	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Fatalf("calls=%d", calls)
	}
}

func TestGenerateDropsRejectedTemperature(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		body := rec.add(t, r)
		if _, ok := body["temperature"]; ok {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = io.WriteString(w, `{"error":{"message":"Unsupported parameter: 'temperature' is not supported with this model."}}`)
			return
		}
		_, _ = io.WriteString(w, okBody)
	}, 0)

	opts := ai.GenerateOptions{Temperature: ai.Temperature(0.3)}
	if res := c.Generate(context.Background(), "p", "", opts); !res.Usable() {
		t.Fatalf("first call %+v", res)
	}
	if res := c.Generate(context.Background(), "p", "", opts); !res.Usable() {
		t.Fatalf("second call %+v", res)
	}
	// rejected once, retried without, then omitted up front
	if len(rec.all()) != 3 {
		t.Fatalf("requests=%d", len(rec.all()))
	}
}

func TestChatSendsImagesAsDataURLs(t *testing.T) {
	rec := &recorder{}
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		rec.add(t, r)
		_, _ = io.WriteString(w, okBody)
	}, 0)

	text, err := c.Chat(context.Background(), "transcribe", "", []string{"QUJD"})
	if err != nil || text != "hello" {
		t.Fatalf("Chat = %q, %v", text, err)
	}
	body := rec.all()[0]
	if body["model"] != "vision-model" {
		t.Fatalf("model %v", body["model"])
	}
	raw, _ := json.Marshal(body["input"])
	if !strings.Contains(string(raw), "data:image/jpeg;base64,QUJD") {
		t.Fatalf("input %s", raw)
	}

	if _, err := c.Chat(context.Background(), "transcribe", "", nil); err == nil {
		t.Fatalf("chat without images should fail")
	}
}
