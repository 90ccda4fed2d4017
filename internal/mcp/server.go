package mcp

import (
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-symdex-server/internal/cache"
	"github.com/sha1n/mcp-symdex-server/internal/docindex"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
)

// ServerConfig contains configuration for creating an MCP server
type ServerConfig struct {
	Name    string
	Version string

	// DocsSvc serves the symbol tools. Without it the server exposes no tools.
	DocsSvc *docindex.Service
	// Cache, if set, caches search_symbols results.
	Cache *cache.QueryCache
	// Metrics, if set, records tool calls.
	Metrics *metrics.Metrics
}

// CreateServer creates and configures the MCP server
func CreateServer(cfg ServerConfig) *mcp.Server {
	s := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	if cfg.DocsSvc != nil {
		docindex.RegisterSearchTool(s, cfg.DocsSvc, cfg.Cache, cfg.Metrics)
		docindex.RegisterLookupTool(s, cfg.DocsSvc, cfg.Metrics)
	}

	return s
}
