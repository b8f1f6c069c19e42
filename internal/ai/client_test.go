package ai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync/atomic"
	"syscall"
	"testing"
	"time"
)

type ipv4Server struct {
	URL string
	srv *http.Server
	ln  net.Listener
}

func newIPv4Server(t *testing.T, handler http.Handler) *ipv4Server {
	t.Helper()
	ln, err := net.Listen("tcp4", "127.0.0.1:0")
	if err != nil {
		if errors.Is(err, syscall.EACCES) || errors.Is(err, syscall.EPERM) {
			t.Skipf("skipping test: cannot open local listener (%v)", err)
		}
		t.Fatalf("listen tcp4: %v", err)
	}
	srv := &http.Server{Handler: handler}
	s := &ipv4Server{
		URL: "http://" + ln.Addr().String(),
		srv: srv,
		ln:  ln,
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			panic(fmt.Sprintf("test server serve: %v", err))
		}
	}()
	return s
}

func (s *ipv4Server) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	_ = s.srv.Shutdown(ctx)
}

func testServerSequence(t *testing.T, statuses []int, headers []http.Header, bodyOK any) *ipv4Server {
	t.Helper()
	var idx int32
	return newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		i := int(atomic.AddInt32(&idx, 1)) - 1
		if i >= len(statuses) {
			i = len(statuses) - 1
		}
		st := statuses[i]
		if headers != nil && i < len(headers) && headers[i] != nil {
			for k, vals := range headers[i] {
				for _, v := range vals {
					w.Header().Add(k, v)
				}
			}
		}
		if st >= 200 && st < 300 {
			w.WriteHeader(st)
			_ = json.NewEncoder(w).Encode(bodyOK)
			return
		}
		w.WriteHeader(st)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "rate limited"}})
	}))
}

func testClient(url string, retryMax int, base, max time.Duration) *Client {
	return NewClient(ClientConfig{BaseURL: url, APIKey: "test", HTTPTimeout: 5 * time.Second, RetryMax: retryMax, BaseDelay: base, MaxDelay: max})
}

var hi = []Message{{Role: "user", Content: "hi"}}

func TestGenerateRetriesOn429(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	srv := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"0"}}, {}}, okBody)
	defer srv.Close()

	c := testClient(srv.URL, 3, 10*time.Millisecond, 100*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	resp, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: hi, MaxTokens: 1})
	if err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if resp.Text() != "ok" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestRetryAfterHonored(t *testing.T) {
	okBody := GenerateResponse{Choices: []Choice{{Message: Message{Role: "assistant", Content: "ok"}}}}
	// Ask server to instruct a 1-second Retry-After, then succeed.
	srv := testServerSequence(t, []int{429, 200}, []http.Header{{"Retry-After": {"1"}}, {}}, okBody)
	defer srv.Close()

	c := testClient(srv.URL, 3, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	start := time.Now()
	if _, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: hi, MaxTokens: 1}); err != nil {
		t.Fatalf("Generate returned error: %v", err)
	}
	if elapsed := time.Since(start); elapsed < 900*time.Millisecond { // allow some scheduling variance
		t.Fatalf("expected at least ~1s delay due to Retry-After, got %v", elapsed)
	}
}

func TestRetryWaitStopsOnCancel(t *testing.T) {
	srv := testServerSequence(t, []int{429}, []http.Header{{"Retry-After": {"30"}}}, nil)
	defer srv.Close()

	c := testClient(srv.URL, 3, 0, 0)
	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()
	start := time.Now()
	_, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: hi})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if time.Since(start) > 5*time.Second {
		t.Fatal("retry wait ignored context cancellation")
	}
}

func TestServerErrorsExhaustAttempts(t *testing.T) {
	var hits int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.WriteHeader(http.StatusBadGateway)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "upstream"}})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3, time.Millisecond, 5*time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: hi})
	var se *ServerError
	if !errors.As(err, &se) {
		t.Fatalf("expected ServerError, got %T %v", err, err)
	}
	if got := atomic.LoadInt32(&hits); got != 3 {
		t.Fatalf("hits = %d, want 3", got)
	}
}

func TestAuthErrorNotRetried(t *testing.T) {
	var hits int32
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		if r.Header.Get("Authorization") != "Bearer test" {
			t.Errorf("authorization header = %q", r.Header.Get("Authorization"))
		}
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "Invalid API Key", "code": "invalid_api_key"}})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3, time.Millisecond, time.Millisecond)
	_, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: hi})
	var ae *AuthError
	if !errors.As(err, &ae) {
		t.Fatalf("expected AuthError, got %T %v", err, err)
	}
	if got := atomic.LoadInt32(&hits); got != 1 {
		t.Fatalf("hits = %d, want 1", got)
	}
}

func TestModelNotFoundClassified(t *testing.T) {
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "The model `nope` does not exist", "code": "model_not_found"}})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 1, 0, 0).Generate(context.Background(), GenerateRequest{Model: "nope", Messages: hi})
	var mnf *ModelNotFoundError
	if !errors.As(err, &mnf) {
		t.Fatalf("expected ModelNotFoundError, got %T %v", err, err)
	}
}

func TestErrorIncludesRequestID(t *testing.T) {
	// Server returns 400 with X-Request-Id header
	srv := newIPv4Server(t, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/chat/completions" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("X-Request-Id", "req_test_123")
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": map[string]any{"message": "bad req", "code": "bad_request"}})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 1, 10*time.Millisecond, 50*time.Millisecond)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	_, err := c.Generate(ctx, GenerateRequest{Model: "test-model", Messages: hi, MaxTokens: 1})
	if err == nil {
		t.Fatalf("expected error")
	}
	var bre *BadRequestError
	if !errors.As(err, &bre) {
		t.Fatalf("expected BadRequestError, got %T", err)
	}
	if !strings.Contains(err.Error(), "req_test_123") {
		t.Fatalf("expected request id in error, got: %v", err)
	}
}

func TestGenerateValidation(t *testing.T) {
	c := NewClient(ClientConfig{})
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "m", Messages: hi}); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
	c = NewClient(ClientConfig{APIKey: "k"})
	if _, err := c.Generate(context.Background(), GenerateRequest{Messages: hi}); err == nil {
		t.Fatal("expected error for empty model")
	}
	if _, err := c.Generate(context.Background(), GenerateRequest{Model: "m"}); err == nil {
		t.Fatal("expected error for empty messages")
	}
}

func TestNewRuntimeProviders(t *testing.T) {
	cases := map[string]string{
		"":           GroqBaseURL,
		"groq":       GroqBaseURL,
		"GROQ":       GroqBaseURL,
		"openrouter": OpenRouterBaseURL,
		"openai":     OpenAIBaseURL,
	}
	for provider, want := range cases {
		rt, err := NewRuntime(context.Background(), provider, RuntimeConfig{APIKey: "k"})
		if err != nil {
			t.Fatalf("%q: %v", provider, err)
		}
		c, ok := rt.(*Client)
		if !ok {
			t.Fatalf("%q: runtime is %T", provider, rt)
		}
		if c.BaseURL() != want {
			t.Fatalf("%q: base = %s, want %s", provider, c.BaseURL(), want)
		}
	}

	rt, err := NewRuntime(context.Background(), "openai", RuntimeConfig{APIKey: "k", BaseURL: "http://localhost:9999/v1/"})
	if err != nil {
		t.Fatal(err)
	}
	if got := rt.(*Client).BaseURL(); got != "http://localhost:9999/v1" {
		t.Fatalf("override base = %s", got)
	}

	if rt, err := NewRuntime(context.Background(), "ollama", RuntimeConfig{}); err != nil {
		t.Fatal(err)
	} else if _, ok := rt.(*OllamaClient); !ok {
		t.Fatalf("ollama runtime is %T", rt)
	}

	if _, err := NewRuntime(context.Background(), "ark", RuntimeConfig{Model: "ep-1"}); err == nil {
		t.Fatal("expected ark credential error")
	}
	if _, err := NewRuntime(context.Background(), "ark", RuntimeConfig{Model: "ep-1", AccessKey: "ak"}); err == nil {
		t.Fatal("expected ark credential error with half a key pair")
	}
	if rt, err := NewRuntime(context.Background(), "ark", RuntimeConfig{Model: "ep-1", AccessKey: "ak", SecretKey: "sk"}); err != nil {
		t.Fatalf("ark with access key pair: %v", err)
	} else if _, ok := rt.(*ArkRuntime); !ok {
		t.Fatalf("ark runtime is %T", rt)
	}
	if _, err := NewRuntime(context.Background(), "bard", RuntimeConfig{}); err == nil || !strings.Contains(err.Error(), "groq") {
		t.Fatalf("unknown provider error should list providers, got %v", err)
	}
}

func TestParseRetryAfter(t *testing.T) {
	if s, err := parseRetryAfterSeconds("7"); err != nil || s != 7 {
		t.Fatalf("seconds: %d %v", s, err)
	}
	future := time.Now().Add(90 * time.Second).UTC().Format(http.TimeFormat)
	if s, err := parseRetryAfterSeconds(future); err != nil || s < 80 || s > 90 {
		t.Fatalf("http date: %d %v", s, err)
	}
	if _, err := parseRetryAfterSeconds("soon"); err == nil {
		t.Fatal("expected error")
	}
}

func TestCatalog(t *testing.T) {
	mi, ok := LookupModel(DefaultModel)
	if !ok || mi.Provider != ProviderGroq || mi.ContextTokens != 8192 {
		t.Fatalf("default model = %+v ok=%v", mi, ok)
	}
	cost, ok := EstimateCostUSD("gpt-4o", 1000, 1000)
	if !ok || cost <= 0 {
		t.Fatalf("cost = %v ok=%v", cost, ok)
	}
	cat := Catalog()
	for i := 1; i < len(cat); i++ {
		a, b := cat[i-1], cat[i]
		if a.Provider > b.Provider || (a.Provider == b.Provider && a.Name > b.Name) {
			t.Fatalf("catalog not sorted at %d: %s/%s then %s/%s", i, a.Provider, a.Name, b.Provider, b.Name)
		}
	}
}
