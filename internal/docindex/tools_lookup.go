package docindex

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
)

// LookupArgument defines lookup parameters.
type LookupArgument struct {
	Key    string `json:"key" jsonschema_description:"Symbol name (e.g., vectorAdd, Vector.c) or its encoded search key (e.g., vector_2ec)"`
	Prefix bool   `json:"prefix,omitempty" jsonschema_description:"List symbols whose key starts with the given key instead of exact matches"`
}

// LookupHandler handles the lookup_symbol MCP tool.
type LookupHandler struct {
	service *Service
	metrics *metrics.Metrics
}

// NewLookupHandler creates a new lookup handler. m may be nil.
func NewLookupHandler(service *Service, m *metrics.Metrics) *LookupHandler {
	return &LookupHandler{service: service, metrics: m}
}

// Handle resolves the key against the in-memory tables of every source.
func (h *LookupHandler) Handle(_ context.Context, _ *mcp.CallToolRequest, args LookupArgument) (*mcp.CallToolResult, any, error) {
	if !h.service.HasTables() {
		h.metrics.ObserveLookup(metrics.OutcomeNotReady)
		return errorResult("Lookup is not available. The documentation sources are still being loaded. Please try again later."), nil, nil
	}

	key := strings.TrimSpace(args.Key)
	if key == "" && !args.Prefix {
		h.metrics.ObserveLookup(metrics.OutcomeInvalid)
		return errorResult("Key cannot be empty"), nil, nil
	}

	matches := h.service.Lookup(key, args.Prefix, h.service.Settings().MaxResults)
	if len(matches) == 0 {
		h.metrics.ObserveLookup(metrics.OutcomeNotFound)
		return textResult(fmt.Sprintf("No symbol found for key: %s", key)), nil, nil
	}

	h.metrics.ObserveLookup(metrics.OutcomeFound)
	return textResult(formatMatches(matches)), nil, nil
}

// formatMatches renders lookup results as markdown, grouped by source.
func formatMatches(matches []SourceMatch) string {
	var sb strings.Builder
	for _, m := range matches {
		fmt.Fprintf(&sb, "## %s\n\n", SourceIDToDisplay(m.Source))
		for _, e := range m.Entries {
			fmt.Fprintf(&sb, "### %s (`%s`)\n", e.Label, e.RawKey)
			for _, ref := range e.Refs {
				fmt.Fprintf(&sb, "- [%s] %s", ref.Kind(), ref.URL())
				if ref.Scope != "" {
					fmt.Fprintf(&sb, ": %s", ref.Scope)
				}
				sb.WriteString("\n")
			}
			sb.WriteString("\n")
		}
	}
	return sb.String()
}

// GetToolDefinition returns the MCP tool definition.
func (h *LookupHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "lookup_symbol",
		Description: "Look up a documented symbol by exact name or key and list every documentation location (page and anchor) that references it",
	}
}

// RegisterLookupTool registers the lookup tool with an MCP server.
func RegisterLookupTool(server *mcp.Server, service *Service, m *metrics.Metrics) {
	handler := NewLookupHandler(service, m)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
