package api

import (
	"errors"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/richardwu/ai-chatbot/internal/auth"
	"github.com/richardwu/ai-chatbot/internal/chat"
	"github.com/richardwu/ai-chatbot/internal/log"
)

// defaultTurnTimeout bounds a single turn's wall clock when the config
// does not set one.
const defaultTurnTimeout = 60 * time.Second

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger       log.Logger
	Orchestrator *chat.Orchestrator // Required
	Chats        chatLister         // Required: history reads
	Auth         *auth.Authenticator
	ResolveModel func(alias string) (string, error) // Required: alias to provider model
	Pool         *pgxpool.Pool                      // Optional: nil degrades /ready to liveness
	CORSOrigins  []string
	TrustProxy   bool    // Trust X-Real-IP/X-Forwarded-For (behind reverse proxy)
	Secure       bool    // Adds HSTS, marks cookies Secure
	TurnTimeout  time.Duration
	RateRPS      float64 // Tokens per second per IP (0 = default 1)
	RateBurst    int     // Burst size per IP (0 = default 60)
}

// Server is the JSON/SSE API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Orchestrator == nil {
		return nil, errors.New("orchestrator is required")
	}
	if cfg.Chats == nil {
		return nil, errors.New("chat lister is required")
	}
	if cfg.Auth == nil {
		return nil, errors.New("authenticator is required")
	}
	if cfg.ResolveModel == nil {
		return nil, errors.New("model resolver is required")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	turnTimeout := cfg.TurnTimeout
	if turnTimeout <= 0 {
		turnTimeout = defaultTurnTimeout
	}

	ch := &chatHandler{
		orch:         cfg.Orchestrator,
		chats:        cfg.Chats,
		resolveModel: cfg.ResolveModel,
		turnTimeout:  turnTimeout,
		logger:       logger,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat", ch.send)
	mux.HandleFunc("DELETE /api/chat", ch.delete)
	mux.HandleFunc("GET /api/history", ch.history)

	rps := cfg.RateRPS
	if rps <= 0 {
		rps = 1.0
	}
	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(rps, burst)

	// Middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → User → Routes
	// RequestID precedes Logging so request_id is available in log
	// attributes; CORS precedes RateLimit so preflight OPTIONS gets
	// proper CORS headers.
	var handler http.Handler = mux
	handler = userMiddleware(cfg.Auth)(handler)
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware(cfg.CORSOrigins)(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	secure := cfg.Secure
	final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setSecurityHeaders(w, secure)
		handler.ServeHTTP(w, r)
	})

	// Health probes bypass the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("GET /ready", readiness(cfg.Pool))
	topMux.Handle("/", final)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
