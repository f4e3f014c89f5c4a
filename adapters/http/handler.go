package http

import (
	"context"
	_ "embed"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/satriahrh/persona-chat/adapters/metrics"
	"github.com/satriahrh/persona-chat/usecase"
	"github.com/satriahrh/persona-chat/utils/log"
)

//go:embed static/index.html
var indexHTML []byte

// ChatReplier is the orchestrator the handlers call.
type ChatReplier interface {
	Reply(ctx context.Context, message string) (usecase.Outcome, error)
}

// ClientCounter reports live websocket connections.
type ClientCounter interface {
	ClientCount() int
}

type ChatRequest struct {
	Message *string `json:"message"`
}

type ChatResponse struct {
	Reply string `json:"reply"`
}

type ChatHandler struct {
	chat           ChatReplier
	metrics        *metrics.Recorder
	clients        ClientCounter
	requestTimeout time.Duration
	provider       string
	model          string
}

type HandlerOptions struct {
	Metrics        *metrics.Recorder
	Clients        ClientCounter
	RequestTimeout time.Duration
	Provider       string
	Model          string
}

func NewChatHandler(chat ChatReplier, opts HandlerOptions) *ChatHandler {
	return &ChatHandler{
		chat:           chat,
		metrics:        opts.Metrics,
		clients:        opts.Clients,
		requestTimeout: opts.RequestTimeout,
		provider:       opts.Provider,
		model:          opts.Model,
	}
}

// Index serves the chat page.
func (h *ChatHandler) Index(c echo.Context) error {
	return c.HTMLBlob(http.StatusOK, indexHTML)
}

// Chat answers POST /chat. Completion failures are reported as the fallback
// reply with status 200; only malformed requests get an error status.
func (h *ChatHandler) Chat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid JSON body").SetInternal(err)
	}
	if req.Message == nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Missing \"message\" field")
	}

	ctx := log.ContextWithRequestID(c.Request().Context(), c.Response().Header().Get(echo.HeaderXRequestID))
	reply := h.Reply(ctx, *req.Message)

	return c.JSON(http.StatusOK, ChatResponse{Reply: reply})
}

// Reply runs the orchestrator under the request timeout, records metrics and
// collapses any failure into usecase.FallbackReply.
func (h *ChatHandler) Reply(ctx context.Context, message string) string {
	if h.requestTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.requestTimeout)
		defer cancel()
	}

	start := time.Now()
	out, err := h.chat.Reply(ctx, message)
	if h.metrics != nil {
		h.metrics.Observe(out, err, time.Since(start))
	}
	if err != nil {
		return usecase.FallbackReply
	}
	return out.Reply
}

// HealthCheck reports liveness and the configured provider.
func (h *ChatHandler) HealthCheck(c echo.Context) error {
	wsClients := 0
	if h.clients != nil {
		wsClients = h.clients.ClientCount()
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"status":     "healthy",
		"timestamp":  time.Now().UTC(),
		"provider":   h.provider,
		"model":      h.model,
		"ws_clients": wsClients,
	})
}
