// Package testkit starts the collaborators an integration test needs and
// hands their coordinates to the test as named properties.
package testkit

import (
	"errors"
	"fmt"
	"net"
	"strings"
	"testing"

	"github.com/sha1n/mcp-symdex-server/internal/app"
	"github.com/spf13/pflag"
)

// Service represents a test service that can be started and stopped
type Service interface {
	Start() (map[string]any, error)
	Stop() error
	GetName() string
}

// TestEnvContext provides access to properties collected during environment startup
type TestEnvContext interface {
	GetProperties() map[string]any
	GetProperty(name string) (any, bool)
}

// TestEnv manages the lifecycle of test services
type TestEnv interface {
	Start() (map[string]any, error)
	Stop() error
	GetContext() TestEnvContext
}

type testEnvContext struct {
	properties map[string]any
}

func (c *testEnvContext) GetProperties() map[string]any {
	return c.properties
}

func (c *testEnvContext) GetProperty(name string) (any, bool) {
	val, ok := c.properties[name]
	return val, ok
}

type testEnv struct {
	services []Service
	started  int
	context  *testEnvContext
}

// NewTestEnv creates a new test environment with the given services.
// Services start in order; a service sees the properties of the ones
// before it through Configure when it implements Configurable.
func NewTestEnv(services ...Service) TestEnv {
	return &testEnv{
		services: services,
		context:  &testEnvContext{properties: make(map[string]any)},
	}
}

// Configurable services receive the properties collected so far before they start.
type Configurable interface {
	Configure(props map[string]any)
}

func (e *testEnv) Start() (map[string]any, error) {
	for _, s := range e.services[e.started:] {
		if c, ok := s.(Configurable); ok {
			c.Configure(e.context.properties)
		}
		props, err := s.Start()
		if err != nil {
			return nil, fmt.Errorf("%s: %w", s.GetName(), err)
		}
		e.started++
		for k, v := range props {
			e.context.properties[k] = v
		}
	}
	return e.context.properties, nil
}

// Stop stops the started services in reverse order and returns every error.
func (e *testEnv) Stop() error {
	var errs []error
	for i := e.started - 1; i >= 0; i-- {
		if err := e.services[i].Stop(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", e.services[i].GetName(), err))
		}
	}
	e.started = 0
	return errors.Join(errs...)
}

func (e *testEnv) GetContext() TestEnvContext {
	return e.context
}

// MustStart starts env and registers its shutdown with t.
func MustStart(t testing.TB, env TestEnv) map[string]any {
	t.Helper()
	t.Cleanup(func() {
		if err := env.Stop(); err != nil {
			t.Errorf("Failed to stop test env: %v", err)
		}
	})
	props, err := env.Start()
	if err != nil {
		t.Fatalf("Failed to start test env: %v", err)
	}
	return props
}

// GetFreePort returns a free port from the kernel
func GetFreePort() (int, error) {
	return getFreePortWithAddr("localhost:0")
}

// MustGetFreePort returns a free port or fails the test
func MustGetFreePort(t testing.TB) int {
	t.Helper()
	port, err := GetFreePort()
	if err != nil {
		t.Fatalf("Failed to get free port: %v", err)
	}
	return port
}

func getFreePortWithAddr(addrStr string) (int, error) {
	addr, err := net.ResolveTCPAddr("tcp", addrStr)
	if err != nil {
		return 0, err
	}

	l, err := net.ListenTCP("tcp", addr)
	if err != nil {
		return 0, err
	}
	defer func() { _ = l.Close() }()
	return l.Addr().(*net.TCPAddr).Port, nil
}

// FlagOptions configures NewTestFlags
type FlagOptions struct {
	Port      int      // Uses free port if 0
	Transport string   // Defaults to "sse"
	AuthType  string   // Defaults to "none"
	APIKeys   []string // Used with AuthType "apikey"
	Host      string   // Defaults to "localhost"

	DocsSources []string // Enables docs indexing when set
	DocsBaseDir string
	RedisAddr   string // Enables the Redis search cache when set
	RateLimit   float64
	RateBurst   int
}

// NewTestFlags creates a configured pflag.FlagSet for testing
func NewTestFlags(t testing.TB, opts *FlagOptions) *pflag.FlagSet {
	t.Helper()

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	app.RegisterFlags(flags)

	o := FlagOptions{Transport: "sse", AuthType: "none", Host: "localhost"}
	if opts != nil {
		o.Port = opts.Port
		o.APIKeys = opts.APIKeys
		o.DocsSources = opts.DocsSources
		o.DocsBaseDir = opts.DocsBaseDir
		o.RedisAddr = opts.RedisAddr
		o.RateLimit = opts.RateLimit
		o.RateBurst = opts.RateBurst
		if opts.Transport != "" {
			o.Transport = opts.Transport
		}
		if opts.AuthType != "" {
			o.AuthType = opts.AuthType
		}
		if opts.Host != "" {
			o.Host = opts.Host
		}
	}
	if o.Port == 0 {
		o.Port = MustGetFreePort(t)
	}

	set := func(name, value string) {
		if err := flags.Set(name, value); err != nil {
			t.Fatalf("Failed to set flag %s: %v", name, err)
		}
	}
	set("port", fmt.Sprintf("%d", o.Port))
	set("transport", o.Transport)
	set("auth-type", o.AuthType)
	set("host", o.Host)
	if len(o.APIKeys) > 0 {
		set("auth-api-keys", strings.Join(o.APIKeys, ","))
	}

	if len(o.DocsSources) > 0 {
		set("docs-enabled", "true")
		set("docs-sources", strings.Join(o.DocsSources, ","))
	}
	if o.DocsBaseDir != "" {
		set("docs-base-dir", o.DocsBaseDir)
	}
	if o.RedisAddr != "" {
		set("cache-enabled", "true")
		set("cache-redis-addr", o.RedisAddr)
	}
	if o.RateLimit > 0 {
		set("rate-limit-enabled", "true")
		set("rate-limit-rps", fmt.Sprintf("%g", o.RateLimit))
		set("rate-limit-burst", fmt.Sprintf("%d", max(o.RateBurst, 1)))
	}

	return flags
}
