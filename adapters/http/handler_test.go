package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/satriahrh/persona-chat/adapters/hasher"
	"github.com/satriahrh/persona-chat/adapters/llm"
	"github.com/satriahrh/persona-chat/adapters/metrics"
	"github.com/satriahrh/persona-chat/usecase"
)

// routerReply is one scripted answer from the mock completion router.
type routerReply struct {
	status       int
	content      string
	finishReason string
}

// mockRouter serves scripted chat completions and records request bodies.
type mockRouter struct {
	mu       sync.Mutex
	replies  []routerReply
	payloads []map[string]any
}

func (m *mockRouter) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var payload map[string]any
	json.NewDecoder(r.Body).Decode(&payload) //nolint:errcheck
	m.payloads = append(m.payloads, payload)

	next := m.replies[0]
	if len(m.replies) > 1 {
		m.replies = m.replies[1:]
	}
	if next.status != 0 && next.status != http.StatusOK {
		w.WriteHeader(next.status)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
		"id":    "chatcmpl-1",
		"model": "test-model",
		"choices": []map[string]any{{
			"index":         0,
			"message":       map[string]string{"role": "assistant", "content": next.content},
			"finish_reason": next.finishReason,
		}},
	})
}

type testEnv struct {
	router  *mockRouter
	handler http.Handler
	reg     *prometheus.Registry
}

func newTestEnv(t *testing.T, replies ...routerReply) *testEnv {
	t.Helper()
	router := &mockRouter{replies: replies}
	upstream := httptest.NewServer(router)
	t.Cleanup(upstream.Close)

	completer, err := llm.NewOpenAIClient(llm.OpenAIConfig{
		BaseURL: upstream.URL + "/v1",
		APIKey:  "hf_test",
		Timeout: 5 * time.Second,
	})
	require.NoError(t, err)

	svc := usecase.NewChatService(completer, hasher.New(), usecase.Options{
		Model:            "meta-llama/Meta-Llama-3-70B-Instruct",
		MaxContinuations: 5,
	})

	reg := prometheus.NewRegistry()
	h := NewChatHandler(svc, HandlerOptions{
		Metrics:        metrics.New(reg),
		RequestTimeout: 10 * time.Second,
		Provider:       "openai",
		Model:          "meta-llama/Meta-Llama-3-70B-Instruct",
	})
	e := NewRouter(h, RouterConfig{
		BodyLimit: "1M",
		Metrics:   promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
	})
	return &testEnv{router: router, handler: e, reg: reg}
}

func (env *testEnv) post(t *testing.T, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, req)
	return rec
}

func decodeReply(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var resp ChatResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Reply
}

func TestChat_ShortMessageUsesShortParams(t *testing.T) {
	env := newTestEnv(t, routerReply{content: "Hello, I speak for OLAYEMI.", finishReason: "stop"})

	rec := env.post(t, `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Hello, I speak for OLAYEMI.", decodeReply(t, rec))
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))

	require.Len(t, env.router.payloads, 1)
	p := env.router.payloads[0]
	assert.Equal(t, "meta-llama/Meta-Llama-3-70B-Instruct", p["model"])
	assert.EqualValues(t, 100, p["max_tokens"])
	assert.InDelta(t, 0.3, p["temperature"], 1e-6)
	assert.InDelta(t, 0.8, p["top_p"], 1e-6)

	msgs := p["messages"].([]any)
	require.Len(t, msgs, 2)
	assert.Equal(t, "system", msgs[0].(map[string]any)["role"])
	assert.Equal(t, map[string]any{"role": "user", "content": "hi"}, msgs[1])
}

func TestChat_StrategicMediumMessage(t *testing.T) {
	env := newTestEnv(t, routerReply{content: "Grow steadily.", finishReason: "stop"})

	rec := env.post(t, `{"message":"what career path suits a cloud developer best"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 300, env.router.payloads[0]["max_tokens"])

	// Category only surfaces in metrics.
	mrec := httptest.NewRecorder()
	env.handler.ServeHTTP(mrec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, mrec.Body.String(),
		`personachat_chat_requests_total{bucket="medium",category="strategic",outcome="ok"} 1`)
}

func TestChat_UpstreamFailureReturnsFallback(t *testing.T) {
	env := newTestEnv(t, routerReply{status: http.StatusBadGateway})

	rec := env.post(t, `{"message":"hi"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"❌🌐 Connection lost — Please check your internet connection and try again."}`, rec.Body.String())
}

func TestChat_ContinuationsAreConcatenated(t *testing.T) {
	env := newTestEnv(t,
		routerReply{content: "Part one. ", finishReason: "length"},
		routerReply{content: "Part two. ", finishReason: "length"},
		routerReply{content: "The end.", finishReason: "stop"},
	)

	rec := env.post(t, `{"message":"tell me about his work"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Part one. Part two. The end.", decodeReply(t, rec))

	require.Len(t, env.router.payloads, 3)
	msgs := env.router.payloads[2]["messages"].([]any)
	require.Len(t, msgs, 4)
	for _, m := range msgs[2:] {
		assert.Equal(t, "user", m.(map[string]any)["role"])
		assert.Equal(t, "Please continue from where you left off.", m.(map[string]any)["content"])
	}
}

func TestChat_MalformedRequests(t *testing.T) {
	env := newTestEnv(t, routerReply{content: "unused", finishReason: "stop"})

	for name, body := range map[string]string{
		"missing message": `{"text":"hi"}`,
		"null message":    `{"message":null}`,
		"not a string":    `{"message":42}`,
		"invalid json":    `{"message":`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.post(t, body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Empty(t, env.router.payloads)
}

func TestChat_NonJSONBodyRejected(t *testing.T) {
	stub := &stubReplier{out: usecase.Outcome{Reply: "ok"}}
	e := NewRouter(NewChatHandler(stub, HandlerOptions{}), RouterConfig{})

	for name, contentType := range map[string]string{
		"plain text": echo.MIMETextPlain,
		"form":       echo.MIMEApplicationForm,
		"none":       "",
	} {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`message=hi`))
			if contentType != "" {
				req.Header.Set(echo.HeaderContentType, contentType)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	assert.Nil(t, stub.ctx, "replier must not be called")
}

func TestChat_EmptyBodyRejected(t *testing.T) {
	stub := &stubReplier{out: usecase.Outcome{Reply: "ok"}}
	e := NewRouter(NewChatHandler(stub, HandlerOptions{}), RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/chat", nil)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Nil(t, stub.ctx)
}

func TestIndex_ServesPage(t *testing.T) {
	env := newTestEnv(t, routerReply{})

	rec := httptest.NewRecorder()
	env.handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
	assert.Contains(t, rec.Body.String(), `fetch("/chat"`)
}

type fixedClients int

func (f fixedClients) ClientCount() int { return int(f) }

type stubReplier struct {
	out usecase.Outcome
	err error
	ctx context.Context
}

func (s *stubReplier) Reply(ctx context.Context, _ string) (usecase.Outcome, error) {
	s.ctx = ctx
	return s.out, s.err
}

func TestHealthCheck(t *testing.T) {
	h := NewChatHandler(&stubReplier{}, HandlerOptions{Clients: fixedClients(3), Provider: "openai", Model: "m"})
	e := NewRouter(h, RouterConfig{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, "openai", body["provider"])
	assert.EqualValues(t, 3, body["ws_clients"])
}

func TestReply_AppliesRequestTimeout(t *testing.T) {
	stub := &stubReplier{out: usecase.Outcome{Reply: "ok"}}
	h := NewChatHandler(stub, HandlerOptions{RequestTimeout: time.Minute})

	assert.Equal(t, "ok", h.Reply(context.Background(), "hi"))
	_, hasDeadline := stub.ctx.Deadline()
	assert.True(t, hasDeadline)
}

func TestChat_RateLimited(t *testing.T) {
	stub := &stubReplier{out: usecase.Outcome{Reply: "ok"}}
	e := NewRouter(NewChatHandler(stub, HandlerOptions{}), RouterConfig{RateLimit: 1})

	codes := make([]int, 0, 5)
	for i := 0; i < 5; i++ {
		req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusOK, codes[0])
	assert.Contains(t, codes, http.StatusTooManyRequests)
}

func TestChat_UnreachableUpstreamReturnsFallback(t *testing.T) {
	upstream := httptest.NewServer(http.NotFoundHandler())
	url := upstream.URL
	upstream.Close()

	completer, err := llm.NewOpenAIClient(llm.OpenAIConfig{BaseURL: url + "/v1", APIKey: "k", Timeout: time.Second})
	require.NoError(t, err)
	svc := usecase.NewChatService(completer, hasher.New(), usecase.Options{Model: "m"})
	e := NewRouter(NewChatHandler(svc, HandlerOptions{}), RouterConfig{})

	req := httptest.NewRequest(http.MethodPost, "/chat", strings.NewReader(`{"message":"hi"}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"reply":"`+usecase.FallbackReply+`"}`, rec.Body.String())
}
