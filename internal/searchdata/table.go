// Package searchdata decodes, validates and queries the symbol tables that
// documentation generators emit for their client-side search.
package searchdata

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/sha1n/mcp-symdex-server/internal/algo"
	"github.com/sha1n/mcp-symdex-server/internal/container/hashset"
	"github.com/sha1n/mcp-symdex-server/internal/container/heap"
	"github.com/sha1n/mcp-symdex-server/internal/container/vector"
)

var (
	// ErrMalformed indicates input that is not a search fragment.
	ErrMalformed = errors.New("malformed search data")

	// ErrDuplicateKey indicates two entries with the same raw key.
	ErrDuplicateKey = errors.New("duplicate search key")

	// ErrEmptyRefs indicates an entry without references.
	ErrEmptyRefs = errors.New("entry has no references")

	// ErrEmptyPage indicates a reference without a page.
	ErrEmptyPage = errors.New("reference has no page")
)

// Entry is one search-index entry: a symbol key, its display label, and every
// documented location of the symbol.
type Entry struct {
	// RawKey is the key exactly as emitted ("vectoradd_534").
	RawKey string `json:"raw_key" yaml:"raw_key"`
	// Key is RawKey without the numeric suffix ("vectoradd").
	Key string `json:"key" yaml:"key"`
	// ID is the numeric suffix ("534"), empty if absent.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`
	// Label is the display name ("vectorAdd").
	Label string `json:"label" yaml:"label"`
	// Refs lists the documentation locations; declaration and definition
	// each get their own reference.
	Refs []Ref `json:"refs" yaml:"refs"`
}

// Name returns the decoded key ("vector_2ec" -> "vector.c").
func (e Entry) Name() string {
	return DecodeKey(e.Key)
}

// Table is an immutable, sorted collection of entries.
type Table struct {
	// entries is ordered by RawKey.
	entries []Entry
	// byKey holds positions into entries ordered by (Key, RawKey).
	byKey []int
}

func compareRaw(a, b Entry) int {
	return strings.Compare(a.RawKey, b.RawKey)
}

// NewTable builds a table over a copy of entries.
func NewTable(entries []Entry) *Table {
	v := vector.From(entries, compareRaw)
	_ = v.Sort() // comparator is always set

	sorted := v.ToArray()
	byKey := make([]int, len(sorted))
	for i := range byKey {
		byKey[i] = i
	}
	algo.HeapSort(byKey, func(a, b int) int {
		if c := strings.Compare(sorted[a].Key, sorted[b].Key); c != 0 {
			return c
		}
		return strings.Compare(sorted[a].RawKey, sorted[b].RawKey)
	})

	return &Table{entries: sorted, byKey: byKey}
}

// Len returns the number of entries.
func (t *Table) Len() int {
	return len(t.entries)
}

// Entries returns a copy of all entries ordered by raw key.
func (t *Table) Entries() []Entry {
	return slices.Clone(t.entries)
}

// Validate checks that raw keys are unique, every entry has at least one
// reference, and every reference names a page.
func (t *Table) Validate() error {
	seen := hashset.NewStrings()
	var errs []error
	for _, e := range t.entries {
		if !seen.Insert(e.RawKey) {
			errs = append(errs, fmt.Errorf("%w: %q", ErrDuplicateKey, e.RawKey))
		}
		if len(e.Refs) == 0 {
			errs = append(errs, fmt.Errorf("%w: %q", ErrEmptyRefs, e.RawKey))
		}
		for i, r := range e.Refs {
			if r.Page == "" {
				errs = append(errs, fmt.Errorf("%w: %q ref %d", ErrEmptyPage, e.RawKey, i))
			}
		}
	}
	return errors.Join(errs...)
}

// Get returns the entry with exactly the given raw key.
func (t *Table) Get(rawKey string) (Entry, bool) {
	idx := algo.ExponentialSearch(t.entries, rawKey, func(k string, e Entry) int {
		return strings.Compare(k, e.RawKey)
	})
	if idx < 0 {
		return Entry{}, false
	}
	return t.entries[idx], true
}

// Lookup returns every entry whose key matches name, case-insensitively.
// name is encoded first ("vectorAdd", "Vector.c"). When nothing matches, an
// exact raw key ("vectoradd_534") and then an already encoded key
// ("vector_2ec") are tried.
func (t *Table) Lookup(name string) []Entry {
	name = strings.TrimSpace(name)
	encoded, literal := queryKeys(name)
	if encoded == "" {
		return nil
	}
	if out := t.keyRange(encoded, false); len(out) > 0 {
		return out
	}
	if e, ok := t.Get(name); ok {
		return []Entry{e}
	}
	if literal != "" {
		return t.keyRange(literal, false)
	}
	return nil
}

// Prefix returns up to limit entries whose key starts with prefix, shortest
// keys first and ties broken by key. A non-positive limit means no limit.
// An already encoded prefix is used as is when its encoded form matches
// nothing.
func (t *Table) Prefix(prefix string, limit int) []Entry {
	encoded, literal := queryKeys(prefix)
	matches := t.keyRange(encoded, true)
	if len(matches) == 0 && literal != "" {
		matches = t.keyRange(literal, true)
	}
	if len(matches) == 0 {
		return nil
	}

	h := heap.Heapify(matches, compareByRank)
	if limit <= 0 || limit > h.Len() {
		limit = h.Len()
	}
	out := make([]Entry, 0, limit)
	for len(out) < limit {
		e, err := h.Delete()
		if err != nil {
			break
		}
		out = append(out, e)
	}
	return out
}

// keyRange collects the entries whose key equals key, or starts with it when
// prefix is set.
func (t *Table) keyRange(key string, prefix bool) []Entry {
	start := algo.LowerBound(t.byKey, key, func(k string, pos int) int {
		return strings.Compare(k, t.entries[pos].Key)
	})

	var out []Entry
	for _, pos := range t.byKey[start:] {
		e := t.entries[pos]
		if (prefix && !strings.HasPrefix(e.Key, key)) || (!prefix && e.Key != key) {
			break
		}
		out = append(out, e)
	}
	return out
}

// compareByRank orders shorter keys first, then lexically.
func compareByRank(a, b Entry) int {
	if len(a.Key) != len(b.Key) {
		return len(a.Key) - len(b.Key)
	}
	if c := strings.Compare(a.Key, b.Key); c != 0 {
		return c
	}
	return strings.Compare(a.RawKey, b.RawKey)
}

// Merge combines tables. Entries sharing a raw key are joined: their
// references are concatenated with duplicate (page, anchor) pairs dropped.
// The first label seen wins.
func Merge(tables ...*Table) *Table {
	joined := make(map[string]int)
	var merged []Entry
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, e := range t.entries {
			idx, ok := joined[e.RawKey]
			if !ok {
				joined[e.RawKey] = len(merged)
				e.Refs = dedupeRefs(nil, e.Refs)
				merged = append(merged, e)
				continue
			}
			merged[idx].Refs = dedupeRefs(merged[idx].Refs, e.Refs)
		}
	}
	return NewTable(merged)
}

// Concat combines tables and fails on the first raw key present in more
// than one of them.
func Concat(tables ...*Table) (*Table, error) {
	seen := hashset.NewStrings()
	var all []Entry
	for _, t := range tables {
		if t == nil {
			continue
		}
		for _, e := range t.Entries() {
			if !seen.Insert(e.RawKey) {
				return nil, fmt.Errorf("%w: %q", ErrDuplicateKey, e.RawKey)
			}
			all = append(all, e)
		}
	}
	return NewTable(all), nil
}

func dedupeRefs(dst, src []Ref) []Ref {
	seen := hashset.NewStrings()
	for _, r := range dst {
		seen.Insert(r.URL())
	}
	out := append([]Ref(nil), dst...)
	for _, r := range src {
		if seen.Insert(r.URL()) {
			out = append(out, r)
		}
	}
	return out
}
