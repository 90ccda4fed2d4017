package app

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-symdex-server/internal/auth"
	"github.com/sha1n/mcp-symdex-server/internal/config"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
)

// StartSSEServer starts the SSE server with authentication
func StartSSEServer(s *mcp.Server, settings *config.Settings, m *metrics.Metrics) error {
	srv, err := NewSSEServer(s, settings, m)
	if err != nil {
		return err
	}

	slog.Info("Server listening (HTTP)", "addr", srv.Addr, "auth_type", settings.Auth.Type, "rate_limit", settings.RateLimit.Enabled)
	return srv.ListenAndServe()
}

// NewSSEServer creates the HTTP server: /health, /metrics when m is set, and
// the MCP SSE endpoint. Everything but /health passes auth and rate limiting.
func NewSSEServer(s *mcp.Server, settings *config.Settings, m *metrics.Metrics) (*http.Server, error) {
	// Factory function returns the server instance for each request
	sseHandler := mcp.NewSSEHandler(func(r *http.Request) *mcp.Server {
		return s
	}, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	if m != nil {
		mux.Handle("/metrics", m.Handler())
	}
	mux.Handle("/sse", sseHandler)

	authMiddleware, err := auth.NewMiddleware(settings.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to create auth middleware: %w", err)
	}

	// Rejected credentials are answered before they spend rate budget.
	handler := auth.Chain(mux, authMiddleware, auth.NewRateLimiter(settings.RateLimit, m))

	return &http.Server{
		Addr:              fmt.Sprintf("%s:%d", settings.Host, settings.Port),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}, nil
}
