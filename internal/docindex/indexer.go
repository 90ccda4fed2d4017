package docindex

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/standard"
	"github.com/blevesearch/bleve/v2/mapping"
	"github.com/sha1n/mcp-symdex-server/internal/container/deque"
	"github.com/sha1n/mcp-symdex-server/internal/domain"
	"github.com/sha1n/mcp-symdex-server/internal/searchdata"
)

const (
	// IndexSuffix is the suffix for index directories
	IndexSuffix = ".bleve"

	// MaxBatchSize is the maximum number of documents per batch
	MaxBatchSize = 100

	// MaxBatchBytes is the maximum bytes per batch (10MB)
	MaxBatchBytes = 10 * 1024 * 1024
)

// IndexStats summarizes one indexing pass.
type IndexStats struct {
	Fragments int
	Entries   int
	Documents int
	// Errors holds one error per fragment that could not be read or parsed.
	// Such fragments are skipped; the rest of the source is still indexed.
	Errors []error
}

// Indexer manages the per-source Bleve indexes.
type Indexer struct {
	baseDir string
	filter  *FragmentFilter
}

// NewIndexer creates a new indexer storing indexes under baseDir/indexes.
func NewIndexer(baseDir string, filter *FragmentFilter) *Indexer {
	return &Indexer{
		baseDir: baseDir,
		filter:  filter,
	}
}

func (i *Indexer) indexPath(sourceID string) string {
	return filepath.Join(i.baseDir, "indexes", sourceID+IndexSuffix)
}

func keywordField() *mapping.FieldMapping {
	f := bleve.NewTextFieldMapping()
	f.Analyzer = keyword.Name
	f.Store = true
	return f
}

// CreateIndexMapping creates the Bleve index mapping for symbol documents.
func CreateIndexMapping() mapping.IndexMapping {
	docMapping := bleve.NewDocumentMapping()

	// Label is analyzed for full-text search and also kept verbatim for
	// exact-match boosting.
	labelText := bleve.NewTextFieldMapping()
	labelText.Analyzer = standard.Name
	labelText.Store = true
	labelText.IncludeTermVectors = true
	labelExact := keywordField()
	labelExact.Name = domain.SymbolFieldLabelExact
	labelExact.Store = false
	docMapping.AddFieldMappingsAt(domain.SymbolFieldLabel, labelText, labelExact)

	for _, field := range []string{domain.SymbolFieldScope, domain.SymbolFieldSignature} {
		text := bleve.NewTextFieldMapping()
		text.Analyzer = standard.Name
		text.Store = true
		text.IncludeTermVectors = true
		docMapping.AddFieldMappingsAt(field, text)
	}

	for _, field := range []string{
		domain.SymbolFieldSource,
		domain.SymbolFieldFragment,
		domain.SymbolFieldKey,
		domain.SymbolFieldKind,
		domain.SymbolFieldFile,
	} {
		docMapping.AddFieldMappingsAt(field, keywordField())
	}

	// Stored, not searched
	for _, field := range []string{domain.SymbolFieldID, domain.SymbolFieldPage, domain.SymbolFieldAnchor} {
		stored := bleve.NewTextFieldMapping()
		stored.Index = false
		stored.Store = true
		docMapping.AddFieldMappingsAt(field, stored)
	}

	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultMapping = docMapping
	indexMapping.DefaultAnalyzer = standard.Name
	return indexMapping
}

// OpenForWrite opens or creates an index for writing.
func (i *Indexer) OpenForWrite(sourceID string) (bleve.Index, error) {
	indexPath := i.indexPath(sourceID)

	index, err := bleve.Open(indexPath)
	if err == nil {
		return index, nil
	}

	index, err = bleve.New(indexPath, CreateIndexMapping())
	if err != nil {
		return nil, fmt.Errorf("failed to create index: %w", err)
	}
	return index, nil
}

// OpenForRead opens an existing index read-only, so other processes sharing
// the base directory can still open it.
func (i *Indexer) OpenForRead(sourceID string) (bleve.Index, error) {
	index, err := bleve.OpenUsing(i.indexPath(sourceID), map[string]interface{}{"read_only": true})
	if err != nil {
		return nil, fmt.Errorf("failed to open index: %w", err)
	}
	return index, nil
}

// IndexExists checks if an index exists for the given source ID.
func (i *Indexer) IndexExists(sourceID string) bool {
	_, err := os.Stat(i.indexPath(sourceID))
	return err == nil
}

// CreateAlias opens the indexes of sourceIDs behind a single IndexAlias.
func (i *Indexer) CreateAlias(sourceIDs []string) (bleve.IndexAlias, error) {
	indexes := make([]bleve.Index, 0, len(sourceIDs))
	for _, id := range sourceIDs {
		index, err := i.OpenForRead(id)
		if err != nil {
			for _, idx := range indexes {
				_ = idx.Close()
			}
			return nil, fmt.Errorf("failed to open index for %s: %w", id, err)
		}
		indexes = append(indexes, index)
	}

	if len(indexes) == 0 {
		return nil, errors.New("no indexes to combine")
	}
	return bleve.NewIndexAlias(indexes...), nil
}

// Fragments walks root breadth-first and returns the slash-separated paths,
// relative to root, of every fragment the filter accepts.
func (i *Indexer) Fragments(root string) ([]string, error) {
	queue := deque.New[string](16)
	queue.InsertRear(".")

	var out []string
	for !queue.IsEmpty() {
		rel, _ := queue.DeleteFront()
		entries, err := os.ReadDir(filepath.Join(root, rel))
		if err != nil {
			if rel == "." {
				return nil, fmt.Errorf("failed to read source directory: %w", err)
			}
			continue
		}

		for _, e := range entries {
			child := filepath.Join(rel, e.Name())
			if e.IsDir() {
				if !i.filter.SkipDir(e.Name()) {
					queue.InsertRear(child)
				}
				continue
			}
			if !e.Type().IsRegular() || !i.filter.IsFragment(child) {
				continue
			}
			info, err := e.Info()
			if err != nil || !i.filter.Accept(child, info.Size()) {
				continue
			}
			out = append(out, filepath.ToSlash(child))
		}
	}
	return out, nil
}

// Digest returns a content digest over the given fragments, used as the
// revision of sources that are not git repositories.
func Digest(root string, fragments []string) (string, error) {
	h := sha256.New()
	for _, rel := range fragments {
		f, err := os.Open(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return "", fmt.Errorf("failed to digest %s: %w", rel, err)
		}
		_, _ = io.WriteString(h, rel)
		h.Write([]byte{0})
		_, err = io.Copy(h, f)
		_ = f.Close()
		if err != nil {
			return "", fmt.Errorf("failed to digest %s: %w", rel, err)
		}
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

// LoadTable parses the given fragments and merges them into one table.
// Fragments that fail to parse are skipped and reported.
func LoadTable(root string, fragments []string) (*searchdata.Table, []error) {
	tables := make([]*searchdata.Table, 0, len(fragments))
	var errs []error
	for _, rel := range fragments {
		table, err := searchdata.ParseFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", rel, err))
			continue
		}
		tables = append(tables, table)
	}
	return searchdata.Merge(tables...), errs
}

// Documents converts the entries of one fragment into index documents, one
// per reference.
func Documents(sourceID, fragment string, table *searchdata.Table) []domain.SymbolDocument {
	var docs []domain.SymbolDocument
	for _, e := range table.Entries() {
		for n, ref := range e.Refs {
			sig := searchdata.ParseScope(ref.Scope)
			doc := domain.SymbolDocument{
				ID:       documentID(sourceID, fragment, e.RawKey, n),
				Source:   sourceID,
				Fragment: fragment,
				Key:      e.Key,
				Label:    e.Label,
				Page:     ref.Page,
				Anchor:   ref.Anchor,
				Kind:     string(ref.Kind()),
				Scope:    ref.Scope,
				File:     sig.File,
			}
			if sig.Callable {
				doc.Signature = sig.String()
			}
			docs = append(docs, doc)
		}
	}
	return docs
}

func documentID(sourceID, fragment, rawKey string, n int) string {
	return sourceID + "/" + fragment + "#" + rawKey + "/" + strconv.Itoa(n)
}

func docBytes(d *domain.SymbolDocument) int {
	return len(d.ID) + len(d.Label) + len(d.Page) + len(d.Anchor) + len(d.Scope) + len(d.Signature) + len(d.File)
}

// batcher flushes a Bleve batch whenever it reaches the size limits.
type batcher struct {
	index bleve.Index
	batch *bleve.Batch
	docs  int
	bytes int
	total int
}

func newBatcher(index bleve.Index) *batcher {
	return &batcher{index: index, batch: index.NewBatch()}
}

func (b *batcher) add(doc domain.SymbolDocument) error {
	if err := b.batch.Index(doc.ID, doc); err != nil {
		return fmt.Errorf("failed to index %s: %w", doc.ID, err)
	}
	b.docs++
	b.bytes += docBytes(&doc)
	if b.docs >= MaxBatchSize || b.bytes >= MaxBatchBytes {
		return b.flush()
	}
	return nil
}

func (b *batcher) delete(id string) {
	b.batch.Delete(id)
}

func (b *batcher) flush() error {
	if b.batch.Size() == 0 {
		return nil
	}
	if err := b.index.Batch(b.batch); err != nil {
		return fmt.Errorf("batch index failed: %w", err)
	}
	b.total += b.docs
	b.batch = b.index.NewBatch()
	b.docs = 0
	b.bytes = 0
	return nil
}

// indexFragment parses one fragment and queues its documents.
func indexFragment(b *batcher, sourceID, root, fragment string, stats *IndexStats) error {
	table, err := searchdata.ParseFile(filepath.Join(root, filepath.FromSlash(fragment)))
	if err != nil {
		stats.Errors = append(stats.Errors, fmt.Errorf("%s: %w", fragment, err))
		return nil
	}
	stats.Fragments++
	stats.Entries += table.Len()
	for _, doc := range Documents(sourceID, fragment, table) {
		if err := b.add(doc); err != nil {
			return err
		}
	}
	return nil
}

// FullIndex rebuilds the index of a source from scratch.
func (i *Indexer) FullIndex(sourceID, root string) (stats IndexStats, err error) {
	fragments, err := i.Fragments(root)
	if err != nil {
		return stats, err
	}

	if err := i.DeleteIndex(sourceID); err != nil {
		return stats, fmt.Errorf("failed to remove old index: %w", err)
	}
	index, err := i.OpenForWrite(sourceID)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := index.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	b := newBatcher(index)
	for _, fragment := range fragments {
		if err := indexFragment(b, sourceID, root, fragment, &stats); err != nil {
			return stats, err
		}
	}
	if err := b.flush(); err != nil {
		return stats, err
	}
	stats.Documents = b.total
	return stats, nil
}

// IncrementalIndex re-indexes only the changed paths. Paths are relative to
// root; those that are not fragments are ignored. Every document of a changed
// fragment is deleted before the fragment is re-added, so removed entries
// and removed fragments disappear from the index.
func (i *Indexer) IncrementalIndex(sourceID, root string, changed []string) (stats IndexStats, err error) {
	index, err := i.OpenForWrite(sourceID)
	if err != nil {
		return stats, err
	}
	defer func() {
		if cerr := index.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()

	b := newBatcher(index)
	for _, rel := range changed {
		fragment := filepath.ToSlash(rel)
		if !i.filter.IsFragment(fragment) {
			continue
		}

		ids, err := fragmentDocIDs(index, fragment)
		if err != nil {
			return stats, err
		}
		for _, id := range ids {
			b.delete(id)
		}

		info, err := os.Stat(filepath.Join(root, filepath.FromSlash(fragment)))
		if err != nil || !i.filter.Accept(fragment, info.Size()) {
			continue
		}
		if err := indexFragment(b, sourceID, root, fragment, &stats); err != nil {
			return stats, err
		}
	}

	if err := b.flush(); err != nil {
		return stats, err
	}
	stats.Documents = b.total
	return stats, nil
}

// fragmentDocIDs returns the IDs of every document indexed from fragment.
func fragmentDocIDs(index bleve.Index, fragment string) ([]string, error) {
	q := bleve.NewTermQuery(fragment)
	q.SetField(domain.SymbolFieldFragment)

	count := bleve.NewSearchRequestOptions(q, 0, 0, false)
	res, err := index.Search(count)
	if err != nil {
		return nil, fmt.Errorf("failed to find documents of %s: %w", fragment, err)
	}
	if res.Total == 0 {
		return nil, nil
	}

	all := bleve.NewSearchRequestOptions(q, int(res.Total), 0, false)
	res, err = index.Search(all)
	if err != nil {
		return nil, fmt.Errorf("failed to find documents of %s: %w", fragment, err)
	}
	ids := make([]string, 0, len(res.Hits))
	for _, hit := range res.Hits {
		ids = append(ids, hit.ID)
	}
	return ids, nil
}

// DeleteIndex removes an index from disk.
func (i *Indexer) DeleteIndex(sourceID string) error {
	return os.RemoveAll(i.indexPath(sourceID))
}

// GetDocumentCount returns the number of documents in an index.
func (i *Indexer) GetDocumentCount(sourceID string) (count uint64, err error) {
	index, err := i.OpenForRead(sourceID)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := index.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	return index.DocCount()
}
