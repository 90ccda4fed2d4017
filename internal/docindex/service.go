package docindex

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync"
	"time"

	"github.com/blevesearch/bleve/v2"
	"github.com/sha1n/mcp-symdex-server/internal/cache"
	"github.com/sha1n/mcp-symdex-server/internal/config"
	"github.com/sha1n/mcp-symdex-server/internal/metrics"
	"github.com/sha1n/mcp-symdex-server/internal/searchdata"
	"golang.org/x/sync/errgroup"
)

const (
	// LockFilename is the name of the sync lock file
	LockFilename = "sync.lock"

	// MaxParallelSyncs is the maximum number of concurrent source syncs
	MaxParallelSyncs = 4
)

// ErrNotReady is returned while no index is available for search.
var ErrNotReady = errors.New("indexes not ready")

// Option configures a Service.
type Option func(*Service)

// WithMetrics records sync and index metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithQueryCache invalidates c whenever a sync changes an index.
func WithQueryCache(c *cache.QueryCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithGitClient replaces the git client, e.g. with one backed by a MockExecutor.
func WithGitClient(g *GitClient) Option {
	return func(s *Service) { s.git = g }
}

// Service keeps the configured documentation sources mirrored and indexed,
// and serves full-text search and exact lookups over them.
type Service struct {
	settings *config.DocsSettings
	sources  []Source
	git      *GitClient
	indexer  *Indexer
	filter   *FragmentFilter
	manifest *Manifest
	lock     *FileLock
	metrics  *metrics.Metrics
	cache    *cache.QueryCache
	logger   *slog.Logger

	// syncMu serializes syncs within the process; lock does so across processes.
	syncMu sync.Mutex

	mu     sync.RWMutex
	alias  bleve.IndexAlias
	tables map[string]*searchdata.Table
	ready  bool
	closed bool
}

// NewService creates the service and its on-disk layout under settings.BaseDir.
func NewService(settings *config.DocsSettings, opts ...Option) (*Service, error) {
	if settings == nil {
		return nil, errors.New("settings cannot be nil")
	}

	sources := make([]Source, 0, len(settings.Sources))
	seen := make(map[string]string, len(settings.Sources))
	for _, location := range settings.Sources {
		src, err := ParseSource(location)
		if err != nil {
			return nil, err
		}
		if prev, dup := seen[src.ID]; dup {
			return nil, fmt.Errorf("sources %q and %q map to the same id %s", prev, location, src.ID)
		}
		seen[src.ID] = location
		sources = append(sources, src)
	}

	for _, dir := range []string{settings.BaseDir, filepath.Join(settings.BaseDir, "repos"), filepath.Join(settings.BaseDir, "indexes")} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	manifest, err := LoadManifest(filepath.Join(settings.BaseDir, ManifestFilename))
	if err != nil {
		return nil, fmt.Errorf("failed to load manifest: %w", err)
	}

	filter := NewFragmentFilter(settings.MaxFileSize)
	s := &Service{
		settings: settings,
		sources:  sources,
		git:      NewGitClient(),
		indexer:  NewIndexer(settings.BaseDir, filter),
		filter:   filter,
		manifest: manifest,
		lock:     NewFileLock(filepath.Join(settings.BaseDir, LockFilename)),
		logger:   slog.Default().With("component", "docindex"),
		tables:   map[string]*searchdata.Table{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Sources returns the configured sources.
func (s *Service) Sources() []Source {
	return slices.Clone(s.sources)
}

// ResolveSource maps a source ID, location or display name to its ID.
func (s *Service) ResolveSource(name string) (string, bool) {
	for _, src := range s.sources {
		if name == src.ID || name == src.Location || name == SourceIDToDisplay(src.ID) {
			return src.ID, true
		}
	}
	return "", false
}

// Root returns the directory fragments of src are read from.
func (s *Service) Root(src Source) string {
	if src.Kind == SourceGit {
		return filepath.Join(s.settings.BaseDir, "repos", src.ID)
	}
	return src.Location
}

// Initialize syncs the sources when this process wins the sync lock, or waits
// up to SyncTimeout for the winner otherwise, then opens the indexes.
func (s *Service) Initialize(ctx context.Context) error {
	acquired, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}

	if acquired {
		s.logger.Info("acquired sync leader lock, starting sync")
		s.leaderSync(ctx)
	} else {
		s.logger.Info("another instance is syncing, waiting for completion")
		if err := s.lock.LockWithContext(ctx, s.settings.SyncTimeout); err != nil {
			s.logger.Warn("timeout waiting for sync, using existing indexes", "error", err)
		} else if err := s.lock.Unlock(); err != nil {
			s.logger.Error("failed to unlock", "error", err)
		}
		if err := s.reloadManifest(); err != nil {
			s.logger.Warn("failed to reload manifest", "error", err)
		}
	}

	return s.openIndexes()
}

// leaderSync runs SyncAll while holding the file lock.
func (s *Service) leaderSync(ctx context.Context) {
	defer func() {
		if err := s.lock.Unlock(); err != nil {
			s.logger.Error("failed to unlock", "error", err)
		}
	}()
	if err := s.SyncAll(ctx); err != nil {
		s.logger.Error("sync failed", "error", err)
	}
}

// Resync performs one periodic round: sync when the lock is free and re-open
// the indexes if anything changed.
func (s *Service) Resync(ctx context.Context) error {
	acquired, err := s.lock.TryLock()
	if err != nil {
		return fmt.Errorf("failed to acquire lock: %w", err)
	}
	if !acquired {
		s.logger.Debug("sync lock held by another instance, skipping round")
		return nil
	}
	s.leaderSync(ctx)

	s.mu.RLock()
	detached := !s.ready
	s.mu.RUnlock()
	if detached {
		return s.openIndexes()
	}
	return nil
}

// StartPeriodicSync runs Resync every SyncInterval until ctx is done.
func (s *Service) StartPeriodicSync(ctx context.Context) {
	interval := s.settings.SyncInterval
	if interval <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := s.Resync(ctx); err != nil {
					s.logger.Error("periodic sync failed", "error", err)
				}
			}
		}
	}()
}

// syncPlan describes the index work one source needs.
type syncPlan struct {
	src      Source
	root     string
	state    SourceState
	revision string
	// changed lists the paths to re-index incrementally; nil means full.
	changed []string
}

// SyncAll brings every source up to date. Sources are prepared and indexed
// at most MaxParallelSyncs at a time; a failing source does not stop the
// others. The returned error joins the per-source failures.
func (s *Service) SyncAll(ctx context.Context) error {
	s.syncMu.Lock()
	defer s.syncMu.Unlock()

	start := time.Now()
	defer func() { s.metrics.ObserveSync(time.Since(start)) }()

	s.removeStaleSources()

	var (
		mu    sync.Mutex
		errs  []error
		plans []*syncPlan
	)
	fail := func(src Source, err error) {
		s.logger.Error("failed to sync source", "source_id", src.ID, "error", err)
		s.manifest.SetError(src.ID, err)
		s.metrics.SyncFailed(src.ID)
		mu.Lock()
		errs = append(errs, fmt.Errorf("sync %s: %w", src.ID, err))
		mu.Unlock()
	}

	var prepare errgroup.Group
	prepare.SetLimit(MaxParallelSyncs)
	for _, src := range s.sources {
		prepare.Go(func() error {
			plan, err := s.prepare(ctx, src)
			if err != nil {
				fail(src, err)
				return nil
			}
			if plan != nil {
				mu.Lock()
				plans = append(plans, plan)
				mu.Unlock()
			}
			return nil
		})
	}
	_ = prepare.Wait()

	if len(plans) > 0 {
		// Writers must not share index files with the open alias.
		s.detach()

		var apply errgroup.Group
		apply.SetLimit(MaxParallelSyncs)
		for _, plan := range plans {
			apply.Go(func() error {
				if err := s.apply(plan); err != nil {
					fail(plan.src, err)
				}
				return nil
			})
		}
		_ = apply.Wait()

		if s.cache != nil {
			if err := s.cache.Invalidate(ctx); err != nil {
				s.logger.Warn("failed to invalidate search cache", "error", err)
			}
		}
	}

	s.manifest.UpdateLastSync()
	if err := s.saveManifest(); err != nil {
		s.logger.Error("failed to save manifest", "error", err)
	}

	return errors.Join(errs...)
}

func (s *Service) removeStaleSources() {
	for _, id := range s.manifest.RemoveStaleSources(s.sources) {
		s.logger.Info("removing stale source", "source_id", id)
		if err := s.indexer.DeleteIndex(id); err != nil {
			s.logger.Error("failed to delete index for stale source", "source_id", id, "error", err)
		}
		if err := os.RemoveAll(filepath.Join(s.settings.BaseDir, "repos", id)); err != nil {
			s.logger.Error("failed to remove stale clone", "source_id", id, "error", err)
		}
		s.metrics.ForgetSource(id)
	}
}

// prepare updates the source checkout and decides what to index. A nil plan
// means the index is current.
func (s *Service) prepare(ctx context.Context, src Source) (*syncPlan, error) {
	state, known := s.manifest.State(src.ID)
	state.Location = src.Location
	state.Kind = src.Kind
	plan := &syncPlan{src: src, root: s.Root(src), state: state}
	indexed := s.indexer.IndexExists(src.ID) && state.LastRevision != ""

	switch src.Kind {
	case SourceGit:
		fresh := !known || state.ClonedAt.IsZero() || !s.git.IsRepository(ctx, plan.root)
		if fresh {
			s.logger.Info("cloning source", "source_id", src.ID, "url", src.Location)
			if err := os.RemoveAll(plan.root); err != nil {
				return nil, fmt.Errorf("failed to clear clone directory: %w", err)
			}
			if err := s.git.Clone(ctx, src.Location, plan.root); err != nil {
				return nil, fmt.Errorf("clone failed: %w", err)
			}
			plan.state.ClonedAt = time.Now()
		} else {
			s.logger.Info("fetching source updates", "source_id", src.ID)
			if err := s.git.Update(ctx, plan.root); err != nil {
				return nil, fmt.Errorf("update failed: %w", err)
			}
		}

		revision, err := s.git.HeadCommit(ctx, plan.root)
		if err != nil {
			return nil, fmt.Errorf("failed to get HEAD commit: %w", err)
		}
		plan.revision = revision

		if !fresh && indexed && revision == state.LastRevision {
			s.markSynced(src.ID, plan.state)
			return nil, nil
		}
		if !fresh && indexed {
			changed, err := s.git.ChangedFiles(ctx, plan.root, state.LastRevision, revision)
			if err != nil {
				s.logger.Warn("cannot diff revisions, falling back to full index", "source_id", src.ID, "error", err)
			} else {
				plan.changed = changed
			}
		}

	default:
		fragments, err := s.indexer.Fragments(plan.root)
		if err != nil {
			return nil, err
		}
		digest, err := Digest(plan.root, fragments)
		if err != nil {
			return nil, err
		}
		plan.revision = digest
		if indexed && digest == state.LastRevision {
			s.markSynced(src.ID, plan.state)
			return nil, nil
		}
	}

	return plan, nil
}

func (s *Service) markSynced(id string, state SourceState) {
	s.logger.Info("source already up to date", "source_id", id)
	state.LastSync = time.Now()
	state.Error = ""
	s.manifest.SetState(id, state)
}

// apply runs the planned index pass and records the new state.
func (s *Service) apply(plan *syncPlan) error {
	id := plan.src.ID
	var (
		stats IndexStats
		err   error
	)

	if plan.changed != nil {
		s.logger.Info("incremental indexing", "source_id", id, "changed_files", len(plan.changed))
		stats, err = s.indexer.IncrementalIndex(id, plan.root, plan.changed)
		if err != nil {
			s.logger.Warn("incremental index failed, falling back to full index", "source_id", id, "error", err)
		}
	}
	if plan.changed == nil || err != nil {
		s.logger.Info("full indexing", "source_id", id)
		stats, err = s.indexer.FullIndex(id, plan.root)
		if err != nil {
			return fmt.Errorf("full index failed: %w", err)
		}
		plan.state.EntryCount = stats.Entries
	}

	for _, ferr := range stats.Errors {
		s.logger.Warn("skipped fragment", "source_id", id, "error", ferr)
	}

	plan.state.LastRevision = plan.revision
	plan.state.LastSync = time.Now()
	plan.state.Error = ""
	s.manifest.SetState(id, plan.state)
	s.logger.Info("index complete", "source_id", id, "fragments", stats.Fragments, "documents", stats.Documents)
	return nil
}

// detach closes the search alias; tables keep serving lookups.
func (s *Service) detach() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.alias != nil {
		if err := s.alias.Close(); err != nil {
			s.logger.Warn("failed to close index alias", "error", err)
		}
		s.alias = nil
	}
	s.ready = false
}

// openIndexes opens every available index behind one alias and loads the
// lookup tables of every source.
func (s *Service) openIndexes() error {
	s.detach()

	tables := make(map[string]*searchdata.Table, len(s.sources))
	var indexed []string
	for _, src := range s.sources {
		if s.indexer.IndexExists(src.ID) {
			indexed = append(indexed, src.ID)
		}

		root := s.Root(src)
		fragments, err := s.indexer.Fragments(root)
		if err != nil {
			s.logger.Warn("no fragments for source", "source_id", src.ID, "error", err)
			continue
		}
		table, errs := LoadTable(root, fragments)
		for _, ferr := range errs {
			s.logger.Warn("skipped fragment", "source_id", src.ID, "error", ferr)
		}
		tables[src.ID] = table
		s.metrics.SetIndexedEntries(src.ID, table.Len())
		if state, ok := s.manifest.State(src.ID); ok {
			state.EntryCount = table.Len()
			s.manifest.SetState(src.ID, state)
		}
	}

	var alias bleve.IndexAlias
	if len(indexed) > 0 {
		var err error
		alias, err = s.indexer.CreateAlias(indexed)
		if err != nil {
			return fmt.Errorf("failed to create index alias: %w", err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		if alias != nil {
			_ = alias.Close()
		}
		return nil
	}
	s.tables = tables
	s.alias = alias
	s.ready = alias != nil
	if s.ready {
		s.logger.Info("indexes ready", "count", len(indexed))
	} else {
		s.logger.Warn("no indexes available")
	}
	return nil
}

func (s *Service) saveManifest() error {
	return s.manifest.Save(filepath.Join(s.settings.BaseDir, ManifestFilename))
}

func (s *Service) reloadManifest() error {
	m, err := LoadManifest(filepath.Join(s.settings.BaseDir, ManifestFilename))
	if err != nil {
		return err
	}
	s.manifest = m
	return nil
}

// Manifest returns the sync state.
func (s *Service) Manifest() *Manifest {
	return s.manifest
}

// IsReady returns true if indexes are ready for search.
func (s *Service) IsReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

// Search runs req against the combined index of all sources.
func (s *Service) Search(ctx context.Context, req *bleve.SearchRequest) (*bleve.SearchResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready || s.alias == nil {
		return nil, ErrNotReady
	}
	return s.alias.SearchInContext(ctx, req)
}

// SourceMatch groups the entries one source holds for a lookup.
type SourceMatch struct {
	Source  string             `json:"source" yaml:"source"`
	Entries []searchdata.Entry `json:"entries" yaml:"entries"`
}

// Lookup finds entries by name in every source's table. With prefix set it
// lists up to limit entries whose key starts with name instead.
func (s *Service) Lookup(name string, prefix bool, limit int) []SourceMatch {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []SourceMatch
	for _, src := range s.sources {
		table, ok := s.tables[src.ID]
		if !ok {
			continue
		}
		var entries []searchdata.Entry
		if prefix {
			entries = table.Prefix(name, limit)
		} else {
			entries = table.Lookup(name)
		}
		if len(entries) > 0 {
			out = append(out, SourceMatch{Source: src.ID, Entries: entries})
		}
	}
	return out
}

// HasTables reports whether any lookup table is loaded.
func (s *Service) HasTables() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tables) > 0
}

// Settings returns the service settings.
func (s *Service) Settings() *config.DocsSettings {
	return s.settings
}

// Close releases all resources. It is safe to call more than once.
func (s *Service) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.closed = true
	s.ready = false
	s.tables = map[string]*searchdata.Table{}
	if s.alias != nil {
		err := s.alias.Close()
		s.alias = nil
		if err != nil {
			return fmt.Errorf("failed to close alias: %w", err)
		}
	}
	return nil
}
