package docindex

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-symdex-server/internal/cache"
	"github.com/sha1n/mcp-symdex-server/internal/domain"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
	"github.com/sha1n/mcp-symdex-server/internal/searchdata"
)

// SearchArgument defines search parameters.
type SearchArgument struct {
	Query  string `json:"query" jsonschema_description:"Symbol name or words from its signature; * and ? match within a name"`
	Source string `json:"source,omitempty" jsonschema_description:"Filter by source (e.g., github.com/org/docs or /srv/docs/html)"`
	Kind   string `json:"kind,omitempty" jsonschema_description:"Filter by reference kind: declaration, definition, type, file or other"`
}

var validKinds = []searchdata.Kind{
	searchdata.KindDeclaration,
	searchdata.KindDefinition,
	searchdata.KindType,
	searchdata.KindFile,
	searchdata.KindOther,
}

// searchFields are loaded for every hit.
var searchFields = []string{
	domain.SymbolFieldSource,
	domain.SymbolFieldLabel,
	domain.SymbolFieldPage,
	domain.SymbolFieldAnchor,
	domain.SymbolFieldKind,
	domain.SymbolFieldScope,
	domain.SymbolFieldSignature,
	domain.SymbolFieldFile,
}

// cachedSearch is the cached form of a rendered result.
type cachedSearch struct {
	Total uint64 `json:"total"`
	Text  string `json:"text"`
}

// SearchHandler handles the search_symbols MCP tool.
type SearchHandler struct {
	service *Service
	cache   *cache.QueryCache
	metrics *metrics.Metrics
}

// NewSearchHandler creates a new search handler. qc and m may be nil.
func NewSearchHandler(service *Service, qc *cache.QueryCache, m *metrics.Metrics) *SearchHandler {
	return &SearchHandler{
		service: service,
		cache:   qc,
		metrics: m,
	}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: msg}},
		IsError: true,
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}

// Handle executes the search and returns formatted results.
func (h *SearchHandler) Handle(ctx context.Context, _ *mcp.CallToolRequest, args SearchArgument) (*mcp.CallToolResult, any, error) {
	start := time.Now()

	if !h.service.IsReady() {
		h.metrics.ObserveSearch(metrics.OutcomeNotReady, "", 0)
		return errorResult("Search is not available. The documentation sources are still being indexed. Please try again later."), nil, nil
	}

	q := strings.TrimSpace(args.Query)
	if q == "" {
		h.metrics.ObserveSearch(metrics.OutcomeInvalid, "", 0)
		return errorResult("Query cannot be empty"), nil, nil
	}

	sourceID := ""
	if args.Source != "" {
		id, ok := h.service.ResolveSource(args.Source)
		if !ok {
			h.metrics.ObserveSearch(metrics.OutcomeInvalid, "", 0)
			return errorResult(fmt.Sprintf("Unknown source: %s", args.Source)), nil, nil
		}
		sourceID = id
	}

	kind := strings.ToLower(strings.TrimSpace(args.Kind))
	if kind != "" && !isValidKind(kind) {
		h.metrics.ObserveSearch(metrics.OutcomeInvalid, "", 0)
		return errorResult(fmt.Sprintf("Unknown kind %q, expected one of: %s", args.Kind, kindList())), nil, nil
	}

	compute := func(ctx context.Context) ([]byte, error) {
		res, err := h.service.Search(ctx, h.buildRequest(q, sourceID, kind))
		if err != nil {
			return nil, err
		}
		return json.Marshal(cachedSearch{Total: res.Total, Text: formatResults(res, q)})
	}

	var (
		raw         []byte
		err         error
		cacheStatus = metrics.CacheStatusBypass
	)
	if h.cache != nil {
		var hit bool
		raw, hit, err = h.cache.GetOrCompute(ctx, cache.Key("search_symbols", q, sourceID, kind), compute)
		cacheStatus = metrics.CacheStatusMiss
		if hit {
			cacheStatus = metrics.CacheStatusHit
		}
	} else {
		raw, err = compute(ctx)
	}
	if err != nil {
		if errors.Is(err, ErrNotReady) {
			h.metrics.ObserveSearch(metrics.OutcomeNotReady, "", 0)
			return errorResult("Search is not available. The documentation sources are still being indexed. Please try again later."), nil, nil
		}
		h.metrics.ObserveSearch(metrics.OutcomeError, cacheStatus, time.Since(start))
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	var result cachedSearch
	if err := json.Unmarshal(raw, &result); err != nil {
		h.metrics.ObserveSearch(metrics.OutcomeError, cacheStatus, time.Since(start))
		return errorResult(fmt.Sprintf("Search failed: %s", err)), nil, nil
	}

	outcome := metrics.OutcomeOK
	if result.Total == 0 {
		outcome = metrics.OutcomeZeroResult
	}
	h.metrics.ObserveSearch(outcome, cacheStatus, time.Since(start))
	return textResult(result.Text), nil, nil
}

func isValidKind(kind string) bool {
	for _, k := range validKinds {
		if string(k) == kind {
			return true
		}
	}
	return false
}

func kindList() string {
	names := make([]string, len(validKinds))
	for i, k := range validKinds {
		names[i] = string(k)
	}
	return strings.Join(names, ", ")
}

func (h *SearchHandler) buildRequest(q, sourceID, kind string) *bleve.SearchRequest {
	req := bleve.NewSearchRequest(buildQuery(q, sourceID, kind))
	req.Size = h.service.Settings().MaxResults
	req.Fields = searchFields
	req.Highlight = bleve.NewHighlight()
	req.Highlight.AddField(domain.SymbolFieldScope)
	return req
}

// buildQuery matches q against the label, boosting exact names, then the
// scope and signature, and applies the optional filters.
func buildQuery(q, sourceID, kind string) query.Query {
	var text query.Query
	if strings.ContainsAny(q, "*?") {
		wildcard := bleve.NewWildcardQuery(strings.ToLower(q))
		wildcard.SetField(domain.SymbolFieldLabel)
		text = wildcard
	} else {
		exact := bleve.NewTermQuery(q)
		exact.SetField(domain.SymbolFieldLabelExact)
		exact.SetBoost(10.0)

		label := bleve.NewMatchQuery(q)
		label.SetField(domain.SymbolFieldLabel)
		label.SetBoost(5.0)

		signature := bleve.NewMatchQuery(q)
		signature.SetField(domain.SymbolFieldSignature)
		signature.SetBoost(2.0)

		scope := bleve.NewMatchQuery(q)
		scope.SetField(domain.SymbolFieldScope)

		text = bleve.NewDisjunctionQuery(exact, label, signature, scope)
	}

	if sourceID == "" && kind == "" {
		return text
	}

	must := []query.Query{text}
	if sourceID != "" {
		src := bleve.NewTermQuery(sourceID)
		src.SetField(domain.SymbolFieldSource)
		must = append(must, src)
	}
	if kind != "" {
		k := bleve.NewTermQuery(kind)
		k.SetField(domain.SymbolFieldKind)
		must = append(must, k)
	}
	return bleve.NewConjunctionQuery(must...)
}

func stringField(hit map[string]interface{}, field string) string {
	if v, ok := hit[field].(string); ok {
		return v
	}
	return ""
}

// formatResults renders search hits as markdown.
func formatResults(results *bleve.SearchResult, q string) string {
	if results.Total == 0 {
		return fmt.Sprintf("No results found for query: %s", q)
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "Found %d results for '%s':\n\n", results.Total, q)

	for i, hit := range results.Hits {
		label := stringField(hit.Fields, domain.SymbolFieldLabel)
		ref := searchdata.Ref{
			Page:   stringField(hit.Fields, domain.SymbolFieldPage),
			Anchor: stringField(hit.Fields, domain.SymbolFieldAnchor),
		}

		fmt.Fprintf(&sb, "### %d. %s (%s)\n", i+1, label, stringField(hit.Fields, domain.SymbolFieldKind))
		fmt.Fprintf(&sb, "**Source**: %s\n", SourceIDToDisplay(stringField(hit.Fields, domain.SymbolFieldSource)))
		fmt.Fprintf(&sb, "**Location**: %s\n", ref.URL())
		if sig := stringField(hit.Fields, domain.SymbolFieldSignature); sig != "" {
			fmt.Fprintf(&sb, "**Signature**: `%s`\n", sig)
		} else if scope := stringField(hit.Fields, domain.SymbolFieldScope); scope != "" {
			fmt.Fprintf(&sb, "**Scope**: %s\n", scope)
		}
		if file := stringField(hit.Fields, domain.SymbolFieldFile); file != "" {
			fmt.Fprintf(&sb, "**File**: %s\n", file)
		}
		fmt.Fprintf(&sb, "**Score**: %.4f\n\n", hit.Score)
	}

	if results.Total > uint64(len(results.Hits)) {
		fmt.Fprintf(&sb, "... and %d more results\n", results.Total-uint64(len(results.Hits)))
	}
	return sb.String()
}

// GetToolDefinition returns the MCP tool definition.
func (h *SearchHandler) GetToolDefinition() *mcp.Tool {
	return &mcp.Tool{
		Name:        "search_symbols",
		Description: "Full-text search for documented symbols (functions, types, files) across the indexed documentation sources",
	}
}

// RegisterSearchTool registers the search tool with an MCP server.
func RegisterSearchTool(server *mcp.Server, service *Service, qc *cache.QueryCache, m *metrics.Metrics) {
	handler := NewSearchHandler(service, qc, m)
	mcp.AddTool(server, handler.GetToolDefinition(), handler.Handle)
}
