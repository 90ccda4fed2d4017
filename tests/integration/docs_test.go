package integration

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/sha1n/mcp-symdex-server/internal/cache"
	"github.com/sha1n/mcp-symdex-server/internal/config"
	"github.com/sha1n/mcp-symdex-server/internal/docindex"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
	"github.com/sha1n/mcp-symdex-server/tests/integration/testkit"
)

const vectorFragment = `var searchData=
[
  ['vectoradd_534',['vectorAdd',['../_vector_8h.html#acb4',1,'vectorAdd(Vector *list, void *item):&#160;Vector.c'],['../_vector_8c.html#acb4',1,'vectorAdd(Vector *list, void *item):&#160;Vector.c']]],
  ['vector_531',['Vector',['../struct_vector.html',1,'']]],
  ['vector_2ec_12',['Vector.c',['../_vector_8c.html',1,'']]]
];
`

const listFragment = `var searchData=
[
  ['listpush_10',['listPush',['../_list_8c.html#a10',1,'listPush(List *l, void *item):&#160;List.c']]]
];
`

// writeDocs creates a documentation tree with one search directory.
func writeDocs(t *testing.T, fragments map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for name, content := range fragments {
		path := filepath.Join(root, "html", "search", name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return root
}

type headerTransport struct {
	header, value string
	base          http.RoundTripper
}

func (h *headerTransport) RoundTrip(r *http.Request) (*http.Response, error) {
	r = r.Clone(r.Context())
	r.Header.Set(h.header, h.value)
	return h.base.RoundTrip(r)
}

// connect opens an MCP client session over SSE. apiKey may be empty.
func connect(t *testing.T, serverURL, apiKey string) *mcp.ClientSession {
	t.Helper()
	httpClient := http.DefaultClient
	if apiKey != "" {
		httpClient = &http.Client{Transport: &headerTransport{header: "X-API-Key", value: apiKey, base: http.DefaultTransport}}
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client := mcp.NewClient(&mcp.Implementation{Name: "integration-test", Version: "1.0.0"}, nil)
	session, err := client.Connect(ctx, &mcp.SSEClientTransport{Endpoint: serverURL + "/sse", HTTPClient: httpClient}, nil)
	if err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	t.Cleanup(func() { _ = session.Close() })
	return session
}

func callTool(t *testing.T, session *mcp.ClientSession, name string, args map[string]any) (string, bool) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	result, err := session.CallTool(ctx, &mcp.CallToolParams{Name: name, Arguments: args})
	if err != nil {
		t.Fatalf("CallTool(%s) failed: %v", name, err)
	}
	return extractTextContent(result), result.IsError
}

func extractTextContent(result *mcp.CallToolResult) string {
	var sb strings.Builder
	for _, c := range result.Content {
		if tc, ok := c.(*mcp.TextContent); ok {
			sb.WriteString(tc.Text)
		}
	}
	return sb.String()
}

func TestSSE_SearchAndLookupWithRedisCache(t *testing.T) {
	docs := writeDocs(t, map[string]string{"all_0.js": vectorFragment, "all_1.js": listFragment})

	env := testkit.NewTestEnv(
		testkit.NewRedisService(),
		testkit.NewServerService(t, testkit.FlagOptions{
			DocsSources: []string{docs},
			DocsBaseDir: t.TempDir(),
		}),
	)
	props := testkit.MustStart(t, env)
	session := connect(t, props[testkit.PropServerURL].(string), "")
	m := props[testkit.PropMetrics].(*metrics.Metrics)
	redis := props[testkit.PropRedis].(*miniredis.Miniredis)

	tools, err := session.ListTools(context.Background(), nil)
	if err != nil {
		t.Fatalf("ListTools failed: %v", err)
	}
	if len(tools.Tools) != 2 {
		t.Errorf("len(tools) = %d, want 2", len(tools.Tools))
	}

	first, isErr := callTool(t, session, "search_symbols", map[string]any{"query": "vectorAdd"})
	if isErr {
		t.Fatalf("search failed: %s", first)
	}
	if !strings.Contains(first, "Found 2 results") || !strings.Contains(first, "../_vector_8c.html#acb4") {
		t.Errorf("unexpected search result:\n%s", first)
	}

	second, _ := callTool(t, session, "search_symbols", map[string]any{"query": "vectorAdd"})
	if second != first {
		t.Error("cached result differs from the computed one")
	}
	if got := testutil.ToFloat64(m.CacheHitsTotal); got != 1 {
		t.Errorf("cache hits = %v, want 1", got)
	}
	var cached int
	for _, k := range redis.Keys() {
		if strings.HasPrefix(k, cache.KeyPrefix) {
			cached++
		}
	}
	if cached != 1 {
		t.Errorf("redis holds %d search keys, want 1", cached)
	}

	lookup, isErr := callTool(t, session, "lookup_symbol", map[string]any{"key": "Vector.c"})
	if isErr {
		t.Fatalf("lookup failed: %s", lookup)
	}
	if !strings.Contains(lookup, "### Vector.c (`vector_2ec_12`)") || !strings.Contains(lookup, "[file] ../_vector_8c.html") {
		t.Errorf("unexpected lookup result:\n%s", lookup)
	}

	filtered, _ := callTool(t, session, "search_symbols", map[string]any{"query": "item", "kind": "declaration"})
	if !strings.Contains(filtered, "vectorAdd (declaration)") || strings.Contains(filtered, "listPush") {
		t.Errorf("unexpected filtered result:\n%s", filtered)
	}

	invalid, isErr := callTool(t, session, "search_symbols", map[string]any{"query": "x", "source": "git@github.com:none/here.git"})
	if !isErr || !strings.Contains(invalid, "Unknown source") {
		t.Errorf("unknown source: isError=%v text=%q", isErr, invalid)
	}
}

func TestSSE_APIKeyAuth(t *testing.T) {
	docs := writeDocs(t, map[string]string{"all_0.js": vectorFragment})
	props := testkit.MustStart(t, testkit.NewTestEnv(testkit.NewServerService(t, testkit.FlagOptions{
		AuthType:    "apikey",
		APIKeys:     []string{"secret-key"},
		DocsSources: []string{docs},
		DocsBaseDir: t.TempDir(),
	})))
	url := props[testkit.PropServerURL].(string)

	for _, path := range []string{"/sse", "/metrics"} {
		resp, err := http.Get(url + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		_ = resp.Body.Close()
		if resp.StatusCode != http.StatusUnauthorized {
			t.Errorf("GET %s without key: status = %d, want 401", path, resp.StatusCode)
		}
	}

	session := connect(t, url, "secret-key")
	text, isErr := callTool(t, session, "lookup_symbol", map[string]any{"key": "vector", "prefix": true})
	if isErr || !strings.Contains(text, "vectorAdd") {
		t.Errorf("prefix lookup: isError=%v text=%q", isErr, text)
	}
}

func TestSSE_MetricsAndRateLimit(t *testing.T) {
	props := testkit.MustStart(t, testkit.NewTestEnv(testkit.NewServerService(t, testkit.FlagOptions{
		RateLimit: 0.001,
		RateBurst: 1,
	})))
	url := props[testkit.PropServerURL].(string)

	resp, err := http.Get(url + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("first /metrics status = %d, want 200", resp.StatusCode)
	}
	if !strings.Contains(string(body), "symdex_") {
		t.Errorf("metrics body missing symdex collectors:\n%s", body)
	}

	resp, err = http.Get(url + "/metrics")
	if err != nil {
		t.Fatalf("GET /metrics failed: %v", err)
	}
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusTooManyRequests {
		t.Errorf("second /metrics status = %d, want 429", resp.StatusCode)
	}

	m := props[testkit.PropMetrics].(*metrics.Metrics)
	if got := testutil.ToFloat64(m.RateLimitedTotal); got != 1 {
		t.Errorf("rate limited = %v, want 1", got)
	}
}

func newDocsSettings(baseDir string, sources ...string) *config.DocsSettings {
	return &config.DocsSettings{
		Enabled:      true,
		Sources:      sources,
		BaseDir:      baseDir,
		SyncInterval: time.Hour,
		SyncTimeout:  5 * time.Second,
		MaxFileSize:  1024 * 1024,
		MaxResults:   20,
	}
}

// Two services sharing a base directory: the second finds the index current
// and opens it without rebuilding.
func TestSharedBaseDir_SecondServiceReusesIndex(t *testing.T) {
	docs := writeDocs(t, map[string]string{"all_0.js": vectorFragment})
	baseDir := t.TempDir()
	ctx := context.Background()

	first, err := docindex.NewService(newDocsSettings(baseDir, docs))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { _ = first.Close() })
	if err := first.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	id, _ := first.ResolveSource(docs)
	before, _ := first.Manifest().State(id)

	second, err := docindex.NewService(newDocsSettings(baseDir, docs))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { _ = second.Close() })
	if err := second.Initialize(ctx); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}
	if !first.IsReady() || !second.IsReady() {
		t.Fatalf("ready = %v/%v, want both", first.IsReady(), second.IsReady())
	}

	after, _ := second.Manifest().State(id)
	if after.LastRevision != before.LastRevision || after.EntryCount != 3 {
		t.Errorf("state = %+v, want revision %s and 3 entries", after, before.LastRevision)
	}

	for _, svc := range []*docindex.Service{first, second} {
		if matches := svc.Lookup("vectorAdd", false, 10); len(matches) != 1 || len(matches[0].Entries) != 1 {
			t.Errorf("Lookup(vectorAdd) = %+v, want one entry", matches)
		}
	}
}

func TestMultipleSources_CombinedSearch(t *testing.T) {
	vectorDocs := writeDocs(t, map[string]string{"all_0.js": vectorFragment})
	listDocs := writeDocs(t, map[string]string{"all_0.js": listFragment})

	svc, err := docindex.NewService(newDocsSettings(t.TempDir(), vectorDocs, listDocs))
	if err != nil {
		t.Fatalf("NewService failed: %v", err)
	}
	t.Cleanup(func() { _ = svc.Close() })
	if err := svc.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize failed: %v", err)
	}

	handler := docindex.NewSearchHandler(svc, nil, nil)
	result, _, err := handler.Handle(context.Background(), &mcp.CallToolRequest{}, docindex.SearchArgument{Query: "item"})
	if err != nil {
		t.Fatalf("Handle failed: %v", err)
	}
	text := extractTextContent(result)
	if !strings.Contains(text, "vectorAdd") || !strings.Contains(text, "listPush") {
		t.Errorf("expected hits from both sources:\n%s", text)
	}

	matches := svc.Lookup("listPush", false, 10)
	if len(matches) != 1 {
		t.Fatalf("len(matches) = %d, want 1", len(matches))
	}
	if id, _ := svc.ResolveSource(listDocs); matches[0].Source != id {
		t.Errorf("Source = %s, want %s", matches[0].Source, id)
	}
}
