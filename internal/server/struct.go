package server

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/guidechat-ai/guidechat/internal/history"
	"github.com/guidechat-ai/guidechat/internal/rag"
)

// Config holds the HTTP server configuration.
type Config struct {
	// Host is the address to bind to (default: 127.0.0.1).
	Host string
	// Port is the TCP port to listen on (default: 3000).
	Port int
	// ReadTimeout is the maximum duration for reading the request.
	ReadTimeout time.Duration
	// WriteTimeout is the maximum duration for writing the response.
	WriteTimeout time.Duration
	// ShutdownTimeout is the maximum duration for a graceful shutdown.
	ShutdownTimeout time.Duration
	// Logger is the structured logger used by the server and its handlers.
	// If nil, [logging.New] is used.
	Logger *slog.Logger
	// Pingers is the ordered list of dependency probes run by GET /api/ready.
	// If empty, /api/ready returns 200 with no checks (liveness-only mode).
	Pingers []Pinger
	// RateLimit is the sustained request rate allowed per IP on rate-limited
	// endpoints (requests/second). Defaults to 10 if zero.
	RateLimit float64
	// RateBurst is the maximum instantaneous burst per IP. Defaults to 20 if zero.
	RateBurst int
	// APIKey is the Bearer token required on all /api/chat/* routes.
	// If empty, authentication is disabled (development mode).
	APIKey string
	// Registry receives the server's Prometheus metrics and backs GET /metrics.
	// If nil, a private registry is created.
	Registry *prometheus.Registry
}

// querier is the interface the chat handlers call to answer a question.
// *assistant.Assistant satisfies it; tests inject a fake.
type querier interface {
	// Query answers question against the given category in one shot.
	Query(ctx context.Context, question string, cat rag.Category) (string, error)
	// QueryStream answers question incrementally, writing each answer
	// segment to w, and returns the accumulated answer.
	QueryStream(ctx context.Context, question string, cat rag.Category, w io.Writer) (string, error)
}

// historyReader is the interface handleHistory calls to list past
// exchanges. *history.Store satisfies it; a nil value disables the endpoint
// payload (it returns an empty list).
type historyReader interface {
	Recent(ctx context.Context, category string, n int) ([]history.Exchange, error)
}

// Server is the HTTP server exposing the guide assistant.
type Server struct {
	// assistant answers chat queries; set to *assistant.Assistant in
	// production, overridden by a fake in tests.
	assistant querier
	// store reports category training state for GET /api/chat/documents.
	store rag.Store
	// history lists past exchanges for GET /api/chat/history. May be nil.
	history historyReader
	// cfg holds the resolved server configuration.
	cfg *Config
	// httpServer is the underlying net/http server.
	httpServer *http.Server
	// log is the structured logger for this server instance.
	log *slog.Logger
	// pingers is the ordered list of dependency probes for GET /api/ready.
	pingers []Pinger
	// metrics holds the Prometheus instruments owned by this server.
	metrics *serverMetrics
	// stopRL stops the rate limiter's background eviction goroutine on shutdown.
	stopRL func()
}

// queryRequest is the JSON body for POST /api/chat/query and
// POST /api/chat/query-stream.
type queryRequest struct {
	// Question is the user's natural language question.
	Question string `json:"question"`
	// DocumentType selects the guide to answer from. Defaults to the first
	// configured category when empty.
	DocumentType string `json:"documentType"`
}

// queryResponse is the JSON response for POST /api/chat/query.
type queryResponse struct {
	Question     string `json:"question"`
	Answer       string `json:"answer"`
	DocumentType string `json:"documentType"`
	Timestamp    string `json:"timestamp"`
}

// errorResponse is the JSON error body for non-streaming failures.
type errorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// historyResponse is the JSON response for GET /api/chat/history.
type historyResponse struct {
	Exchanges []history.Exchange `json:"exchanges"`
}
