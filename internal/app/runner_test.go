package app

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/sha1n/mcp-symdex-server/internal/config"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
	"github.com/spf13/pflag"
)

// noopValidate is a no-op validation function for tests
func noopValidate(*config.Settings) error {
	return nil
}

func fixedSettings(s *config.Settings) func(*pflag.FlagSet) (*config.Settings, error) {
	return func(*pflag.FlagSet) (*config.Settings, error) {
		return s, nil
	}
}

func TestRunWithDeps_ErrorCases(t *testing.T) {
	tests := []struct {
		name           string
		params         RunParams
		wantErrContain string
	}{
		{
			name: "LoadSettings error",
			params: RunParams{
				LoadSettings: func(*pflag.FlagSet) (*config.Settings, error) {
					return nil, errors.New("settings error")
				},
				ValidSettings: noopValidate,
			},
			wantErrContain: "failed to load settings",
		},
		{
			name: "ValidSettings error",
			params: RunParams{
				LoadSettings: fixedSettings(&config.Settings{Transport: "sse"}),
				ValidSettings: func(*config.Settings) error {
					return errors.New("validation error")
				},
			},
			wantErrContain: "invalid configuration",
		},
		{
			name: "CreateServer error",
			params: RunParams{
				LoadSettings:  fixedSettings(&config.Settings{Transport: "sse"}),
				ValidSettings: noopValidate,
				CreateServer: func(*config.Settings, *metrics.Metrics, string) (*mcp.Server, func(), error) {
					return nil, nil, errors.New("create server error")
				},
			},
			wantErrContain: "create server error",
		},
		{
			name: "StartSSEServer error",
			params: RunParams{
				LoadSettings:  fixedSettings(&config.Settings{Transport: "sse"}),
				ValidSettings: noopValidate,
				CreateServer: func(*config.Settings, *metrics.Metrics, string) (*mcp.Server, func(), error) {
					return nil, nil, nil
				},
				StartSSEServer: func(*mcp.Server, *config.Settings, *metrics.Metrics) error {
					return errors.New("sse start error")
				},
			},
			wantErrContain: "sse start error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RunWithDeps(context.Background(), tt.params, nil, "test")
			if err == nil {
				t.Fatalf("Expected error containing %q, got nil", tt.wantErrContain)
			}
			if !strings.Contains(err.Error(), tt.wantErrContain) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErrContain)
			}
		})
	}
}

func TestRunWithDeps_Cleanup(t *testing.T) {
	cleanupCalled := false
	var gotMetrics *metrics.Metrics
	var sseMetrics *metrics.Metrics
	params := RunParams{
		LoadSettings:  fixedSettings(&config.Settings{Transport: "sse"}),
		ValidSettings: noopValidate,
		CreateServer: func(_ *config.Settings, m *metrics.Metrics, _ string) (*mcp.Server, func(), error) {
			gotMetrics = m
			return nil, func() { cleanupCalled = true }, nil
		},
		StartSSEServer: func(_ *mcp.Server, _ *config.Settings, m *metrics.Metrics) error {
			sseMetrics = m
			return errors.New("intentional error to trigger cleanup")
		},
	}

	_ = RunWithDeps(context.Background(), params, nil, "test")

	if !cleanupCalled {
		t.Error("Cleanup was not called")
	}
	if gotMetrics == nil || gotMetrics != sseMetrics {
		t.Error("server and SSE endpoint must share one metrics registry")
	}
}

func TestDefaultRunParams(t *testing.T) {
	params := DefaultRunParams()

	if params.LoadSettings == nil {
		t.Error("LoadSettings is nil")
	}
	if params.ValidSettings == nil {
		t.Error("ValidSettings is nil")
	}
	if params.StartSSEServer == nil {
		t.Error("StartSSEServer is nil")
	}
	if params.CreateServer == nil {
		t.Error("CreateServer is nil")
	}
}

func TestRunWithDeps_StdioWithCustomTransport(t *testing.T) {
	transportUsed := false
	params := RunParams{
		LoadSettings:  fixedSettings(&config.Settings{Transport: "stdio"}),
		ValidSettings: noopValidate,
		CreateServer: func(*config.Settings, *metrics.Metrics, string) (*mcp.Server, func(), error) {
			return newTestMCPServer(), nil, nil
		},
		CustomIOTransport: &mockTransport{connectCalled: &transportUsed},
	}

	// Use a cancelled context to avoid hanging
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_ = RunWithDeps(ctx, params, nil, "test")

	if !transportUsed {
		t.Error("Custom transport Connect was not called")
	}
}

func TestCreateMCPServer_DocsDisabled(t *testing.T) {
	server, cleanup, err := CreateMCPServer(&config.Settings{Transport: "stdio"}, metrics.New(), "test")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if server == nil {
		t.Error("Expected server to be created")
	}
	if cleanup != nil {
		t.Error("Expected no cleanup without docs")
	}
}

const runnerFragment = `var searchData=
[
  ['vectoradd_534',['vectorAdd',['../_vector_8h.html#acb4',1,'vectorAdd(Vector *list, void *item):&#160;Vector.c']]]
];
`

func TestCreateMCPServer_DocsEnabled(t *testing.T) {
	root := t.TempDir()
	fragment := filepath.Join(root, "html", "search", "all_0.js")
	if err := os.MkdirAll(filepath.Dir(fragment), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(fragment, []byte(runnerFragment), 0644); err != nil {
		t.Fatal(err)
	}

	settings := &config.Settings{
		Transport: "stdio",
		Docs: config.DocsSettings{
			Enabled:      true,
			Sources:      []string{root},
			BaseDir:      t.TempDir(),
			SyncInterval: time.Hour,
			SyncTimeout:  time.Second,
			MaxFileSize:  1024 * 1024,
			MaxResults:   10,
		},
		Cache: config.CacheSettings{Enabled: true, TTL: time.Minute, Size: 16},
	}

	m := metrics.New()
	server, cleanup, err := CreateMCPServer(settings, m, "test")
	if err != nil {
		t.Fatalf("Unexpected error: %v", err)
	}
	if server == nil {
		t.Fatal("Expected server to be created")
	}
	if cleanup == nil {
		t.Fatal("Expected a cleanup function")
	}
	cleanup()
}

func TestNewDocsComponents_InvalidSource(t *testing.T) {
	settings := &config.Settings{
		Docs: config.DocsSettings{
			Enabled: true,
			Sources: []string{"https://example.com/not-ssh.git"},
			BaseDir: t.TempDir(),
		},
	}
	if _, err := NewDocsComponents(context.Background(), settings, nil); err == nil {
		t.Error("Expected error for an invalid source")
	}
}

// mockTransport implements mcp.Transport for testing
type mockTransport struct {
	connectCalled *bool
}

func (m *mockTransport) Connect(ctx context.Context) (mcp.Connection, error) {
	if m.connectCalled != nil {
		*m.connectCalled = true
	}
	return nil, errors.New("mock transport - no real connection")
}
