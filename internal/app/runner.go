package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-symdex-server/internal/config"
	mcputil "github.com/sha1n/mcp-symdex-server/internal/mcp"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
	"github.com/spf13/pflag"
)

// ServerName is the MCP implementation name.
const ServerName = "symdex-mcp"

// RunParams contains dependencies for the run function
type RunParams struct {
	LoadSettings      func(*pflag.FlagSet) (*config.Settings, error)
	ValidSettings     func(*config.Settings) error
	StartSSEServer    func(*mcp.Server, *config.Settings, *metrics.Metrics) error
	CreateServer      func(*config.Settings, *metrics.Metrics, string) (*mcp.Server, func(), error)
	CustomIOTransport mcp.Transport // Optional: for testing with custom IO
}

// DefaultRunParams returns production dependencies
func DefaultRunParams() RunParams {
	return RunParams{
		LoadSettings:   config.LoadSettingsWithFlags,
		ValidSettings:  config.ValidateSettings,
		StartSSEServer: StartSSEServer,
		CreateServer:   CreateMCPServer,
	}
}

// SetupLogging installs the default logger. Logs always go to stderr so
// they never mix with the stdio transport.
func SetupLogging() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, nil)))
}

// LoadAndValidate loads settings and rejects conflicting configurations.
func LoadAndValidate(params RunParams, flags *pflag.FlagSet) (*config.Settings, error) {
	settings, err := params.LoadSettings(flags)
	if err != nil {
		return nil, fmt.Errorf("failed to load settings: %w", err)
	}
	if err := params.ValidSettings(settings); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

// RunWithDeps executes the server with the provided dependencies
func RunWithDeps(ctx context.Context, params RunParams, flags *pflag.FlagSet, version string) error {
	settings, err := LoadAndValidate(params, flags)
	if err != nil {
		return err
	}

	SetupLogging()
	slog.Info("Starting symdex MCP server", "version", version)
	config.Log(settings)

	m := metrics.New()
	mcpServer, cleanup, err := params.CreateServer(settings, m, version)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	if settings.Transport == "stdio" {
		// Use custom transport if provided (for testing), otherwise use stdio
		transport := params.CustomIOTransport
		if transport == nil {
			transport = &mcp.StdioTransport{}
		}
		return mcpServer.Run(ctx, transport)
	}

	slog.Info("Starting SSE server", "host", settings.Host, "port", settings.Port)
	return params.StartSSEServer(mcpServer, settings, m)
}

// CreateMCPServer creates the MCP server with registered tools.
// A failed docs initialization leaves the server running without tools.
func CreateMCPServer(settings *config.Settings, m *metrics.Metrics, version string) (*mcp.Server, func(), error) {
	cfg := mcputil.ServerConfig{
		Name:    ServerName,
		Version: version,
		Metrics: m,
	}
	var cleanup func()

	if settings.Docs.Enabled {
		// Background context: the index outlives any single request.
		docs, err := NewDocsComponents(context.Background(), settings, m)
		if err != nil {
			slog.Error("Docs service unavailable", "error", err)
		} else {
			syncCtx, cancel := context.WithCancel(context.Background())
			docs.Service.StartPeriodicSync(syncCtx)

			cfg.DocsSvc = docs.Service
			cfg.Cache = docs.Cache
			cleanup = func() {
				cancel()
				docs.Close()
			}
		}
	}

	return mcputil.CreateServer(cfg), cleanup, nil
}
