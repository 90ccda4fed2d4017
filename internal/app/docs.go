package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sha1n/mcp-symdex-server/internal/cache"
	"github.com/sha1n/mcp-symdex-server/internal/config"
	"github.com/sha1n/mcp-symdex-server/internal/docindex"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
)

// DocsComponents are the pieces backing the symbol tools.
type DocsComponents struct {
	Service *docindex.Service
	Cache   *cache.QueryCache // nil when caching is disabled
}

// Close releases the service and the cache backend.
func (d *DocsComponents) Close() {
	if d == nil {
		return
	}
	if err := d.Service.Close(); err != nil {
		slog.Error("Failed to close docs service", "error", err)
	}
	if d.Cache != nil {
		if err := d.Cache.Close(); err != nil {
			slog.Error("Failed to close search cache", "error", err)
		}
	}
}

// NewDocsComponents builds the query cache and the docs service and runs the
// initial sync. A cache backend that cannot be reached is logged and skipped.
func NewDocsComponents(ctx context.Context, settings *config.Settings, m *metrics.Metrics) (*DocsComponents, error) {
	var qc *cache.QueryCache
	if settings.Cache.Enabled {
		backend, err := cache.New(&settings.Cache)
		if err != nil {
			slog.Warn("Search cache unavailable, continuing without it", "error", err)
		} else {
			qc = cache.NewQueryCache(backend, settings.Cache.TTL, m)
		}
	}

	opts := []docindex.Option{docindex.WithMetrics(m)}
	if qc != nil {
		opts = append(opts, docindex.WithQueryCache(qc))
	}
	svc, err := docindex.NewService(&settings.Docs, opts...)
	if err != nil {
		if qc != nil {
			_ = qc.Close()
		}
		return nil, fmt.Errorf("failed to create docs service: %w", err)
	}

	d := &DocsComponents{Service: svc, Cache: qc}
	if err := svc.Initialize(ctx); err != nil {
		d.Close()
		return nil, fmt.Errorf("docs initialization failed: %w", err)
	}
	return d, nil
}
