package testkit

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/sha1n/mcp-symdex-server/internal/app"
	"github.com/sha1n/mcp-symdex-server/internal/config"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
)

// Property names published by the services in this package
const (
	PropRedisAddr = "redis_addr"
	PropRedis     = "redis"
	PropServerURL = "server_url"
	PropMetrics   = "metrics"
)

// RedisService runs an in-process Redis server.
type RedisService struct {
	server *miniredis.Miniredis
}

// NewRedisService creates a RedisService.
func NewRedisService() *RedisService {
	return &RedisService{}
}

func (r *RedisService) Start() (map[string]any, error) {
	s, err := miniredis.Run()
	if err != nil {
		return nil, err
	}
	r.server = s
	return map[string]any{PropRedisAddr: s.Addr(), PropRedis: s}, nil
}

func (r *RedisService) Stop() error {
	if r.server != nil {
		r.server.Close()
		r.server = nil
	}
	return nil
}

func (r *RedisService) GetName() string {
	return "redis"
}

// ServerService runs the SSE server the way the binary wires it.
type ServerService struct {
	t       testing.TB
	opts    FlagOptions
	srv     *http.Server
	cleanup func()
	done    chan error
}

// NewServerService creates a ServerService. A Redis address published by an
// earlier service enables the search cache.
func NewServerService(t testing.TB, opts FlagOptions) *ServerService {
	return &ServerService{t: t, opts: opts}
}

func (s *ServerService) Configure(props map[string]any) {
	if addr, ok := props[PropRedisAddr].(string); ok && s.opts.RedisAddr == "" {
		s.opts.RedisAddr = addr
	}
}

func (s *ServerService) Start() (map[string]any, error) {
	settings, err := config.LoadSettingsWithFlags(NewTestFlags(s.t, &s.opts))
	if err != nil {
		return nil, err
	}
	if err := config.ValidateSettings(settings); err != nil {
		return nil, err
	}

	m := metrics.New()
	mcpServer, cleanup, err := app.CreateMCPServer(settings, m, "test")
	if err != nil {
		return nil, err
	}
	s.cleanup = cleanup

	srv, err := app.NewSSEServer(mcpServer, settings, m)
	if err != nil {
		s.runCleanup()
		return nil, err
	}
	l, err := net.Listen("tcp", srv.Addr)
	if err != nil {
		s.runCleanup()
		return nil, err
	}
	s.srv = srv
	s.done = make(chan error, 1)
	go func() { s.done <- srv.Serve(l) }()

	url := "http://" + l.Addr().String()
	if err := waitHealthy(url+"/health", 5*time.Second); err != nil {
		_ = s.Stop()
		return nil, err
	}
	return map[string]any{PropServerURL: url, PropMetrics: m}, nil
}

func (s *ServerService) runCleanup() {
	if s.cleanup != nil {
		s.cleanup()
		s.cleanup = nil
	}
}

func (s *ServerService) Stop() error {
	defer s.runCleanup()
	if s.srv == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	if serveErr := <-s.done; serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
		err = errors.Join(err, serveErr)
	}
	s.srv = nil
	return err
}

func (s *ServerService) GetName() string {
	return "symdex-server"
}

func waitHealthy(url string, timeout time.Duration) error {
	client := &http.Client{Timeout: time.Second}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		resp, err := client.Get(url)
		if err == nil {
			_ = resp.Body.Close()
			if resp.StatusCode == http.StatusOK {
				return nil
			}
		}
		time.Sleep(20 * time.Millisecond)
	}
	return fmt.Errorf("server at %s not healthy after %s", url, timeout)
}
