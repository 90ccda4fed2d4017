package docindex

import (
	"encoding/json"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"
)

const (
	// ManifestVersion is the current schema version
	ManifestVersion = 1

	// ManifestFilename is the default manifest filename
	ManifestFilename = "manifest.json"
)

// Manifest stores the sync state of every configured source.
type Manifest struct {
	Version  int                    `json:"version"`
	LastSync time.Time              `json:"last_sync"`
	Sources  map[string]SourceState `json:"sources"`
	mu       sync.RWMutex
}

// SourceState is the sync state of one source.
type SourceState struct {
	Location string     `json:"location"`
	Kind     SourceKind `json:"kind"`
	ClonedAt time.Time  `json:"cloned_at,omitzero"`
	LastSync time.Time  `json:"last_sync,omitzero"`
	// LastRevision is the HEAD commit for git sources and a content digest of
	// the fragments for local sources. Empty until the first successful index.
	LastRevision string `json:"last_revision"`
	EntryCount   int    `json:"entry_count"`
	Error        string `json:"error,omitempty"`
}

// NewManifest creates a new empty manifest.
func NewManifest() *Manifest {
	return &Manifest{
		Version: ManifestVersion,
		Sources: make(map[string]SourceState),
	}
}

// LoadManifest reads a manifest from disk. A missing file yields an empty manifest.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return NewManifest(), nil
		}
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var manifest Manifest
	if err := json.Unmarshal(data, &manifest); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}
	if manifest.Version > ManifestVersion {
		return nil, fmt.Errorf("unsupported manifest version %d", manifest.Version)
	}
	if manifest.Sources == nil {
		manifest.Sources = make(map[string]SourceState)
	}
	return &manifest, nil
}

// Save writes the manifest to disk atomically (temp file + rename).
func (m *Manifest) Save(path string) error {
	m.mu.RLock()
	data, err := json.MarshalIndent(m, "", "  ")
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("failed to marshal manifest: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create manifest directory: %w", err)
	}

	tempPath := path + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write manifest temp file: %w", err)
	}
	if err := os.Rename(tempPath, path); err != nil {
		_ = os.Remove(tempPath)
		return fmt.Errorf("failed to rename manifest file: %w", err)
	}
	return nil
}

// State returns the state of a source and whether it is known.
func (m *Manifest) State(id string) (SourceState, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	state, ok := m.Sources[id]
	return state, ok
}

// SetState replaces the state of a source.
func (m *Manifest) SetState(id string, state SourceState) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Sources[id] = state
}

// SetError records a sync failure, keeping the rest of the source state.
func (m *Manifest) SetError(id string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	state := m.Sources[id]
	state.Error = err.Error()
	m.Sources[id] = state
}

// RemoveSource drops a source from the manifest.
func (m *Manifest) RemoveSource(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Sources, id)
}

// SourceIDs returns all known source IDs, sorted.
func (m *Manifest) SourceIDs() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return slices.Sorted(maps.Keys(m.Sources))
}

// RemoveStaleSources drops every source not in keep and returns the removed
// IDs, sorted.
func (m *Manifest) RemoveStaleSources(keep []Source) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	expected := make(map[string]bool, len(keep))
	for _, src := range keep {
		expected[src.ID] = true
	}

	var removed []string
	for id := range m.Sources {
		if !expected[id] {
			removed = append(removed, id)
		}
	}
	for _, id := range removed {
		delete(m.Sources, id)
	}
	slices.Sort(removed)
	return removed
}

// Errors returns the recorded error of every failing source.
func (m *Manifest) Errors() map[string]string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make(map[string]string)
	for id, state := range m.Sources {
		if state.Error != "" {
			result[id] = state.Error
		}
	}
	return result
}

// TotalEntries sums the entry counts of all sources.
func (m *Manifest) TotalEntries() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	total := 0
	for _, state := range m.Sources {
		total += state.EntryCount
	}
	return total
}

// UpdateLastSync stamps the manifest with the current time.
func (m *Manifest) UpdateLastSync() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.LastSync = time.Now()
}

// NeedsSyncCheck reports whether interval has passed since the last sync.
func (m *Manifest) NeedsSyncCheck(interval time.Duration) bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.LastSync.IsZero() || time.Since(m.LastSync) >= interval
}
