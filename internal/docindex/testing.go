package docindex

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
)

// MockExecutor records commands and returns configured responses.
// It is safe for concurrent use and is exported for integration tests.
type MockExecutor struct {
	mu       sync.Mutex
	commands []MockCommand
	calls    []ExecutorCall
	// OnRun, if set, runs before a matched response is returned, e.g. to
	// materialize a clone on disk.
	OnRun func(call ExecutorCall)
}

// MockCommand defines a one-shot mock response for a command prefix.
type MockCommand struct {
	NamePrefix string
	Output     []byte
	Err        error
}

// ExecutorCall records a command invocation.
type ExecutorCall struct {
	Dir  string
	Name string
	Args []string
}

// String renders the call as a command line.
func (c ExecutorCall) String() string {
	return c.Name + " " + strings.Join(c.Args, " ")
}

// NewMockExecutor creates a new mock executor.
func NewMockExecutor() *MockExecutor {
	return &MockExecutor{}
}

// AddResponse adds a one-shot response for commands matching the given prefix.
func (m *MockExecutor) AddResponse(namePrefix string, output []byte, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.commands = append(m.commands, MockCommand{NamePrefix: namePrefix, Output: output, Err: err})
}

// Run records the call and returns the first matching configured response.
func (m *MockExecutor) Run(_ context.Context, dir string, name string, args ...string) ([]byte, error) {
	call := ExecutorCall{Dir: dir, Name: name, Args: args}

	m.mu.Lock()
	m.calls = append(m.calls, call)
	full := call.String()
	var (
		resp  MockCommand
		found bool
	)
	for i, cmd := range m.commands {
		if strings.HasPrefix(full, cmd.NamePrefix) {
			resp, found = cmd, true
			m.commands = append(m.commands[:i], m.commands[i+1:]...)
			break
		}
	}
	onRun := m.OnRun
	m.mu.Unlock()

	if !found {
		return nil, errors.New("no mock response configured for: " + full)
	}
	if onRun != nil && resp.Err == nil {
		onRun(call)
	}
	return resp.Output, resp.Err
}

// GetCalls returns a copy of all recorded command calls.
func (m *MockExecutor) GetCalls() []ExecutorCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ExecutorCall(nil), m.calls...)
}

// MustGetLastCall returns the last recorded call, fails the test if no calls were made.
func (m *MockExecutor) MustGetLastCall(t *testing.T) ExecutorCall {
	t.Helper()
	calls := m.GetCalls()
	if len(calls) == 0 {
		t.Fatal("Expected at least one command call")
	}
	return calls[len(calls)-1]
}
