package searchdata

import (
	"errors"
	"fmt"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func rawKeys(entries []Entry) []string {
	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.RawKey
	}
	return keys
}

func TestTable_Lookup(t *testing.T) {
	table := loadSample(t)

	tests := []struct {
		name  string
		query string
		want  []string
	}{
		{name: "display name", query: "vectorAdd", want: []string{"vectoradd_534"}},
		{name: "encoded key", query: "vectorgetindex", want: []string{"vectorgetindex_538"}},
		{name: "file name", query: "Vector.c", want: []string{"vector_2ec_532"}},
		{name: "escaped file key", query: "vector_2eh", want: []string{"vector_2eh_533"}},
		{name: "type", query: "Vector", want: []string{"vector_531"}},
		{name: "padded", query: "  value ", want: []string{"value_530"}},
		{name: "raw key", query: "vectoradd_534", want: []string{"vectoradd_534"}},
		{name: "raw file key", query: " vector_2ec_532 ", want: []string{"vector_2ec_532"}},
		{name: "missing", query: "vectorPush", want: nil},
		{name: "empty", query: "", want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := rawKeys(table.Lookup(tt.query))
			if len(got) == 0 {
				got = nil
			}
			if diff := cmp.Diff(tt.want, got); diff != "" {
				t.Errorf("Lookup(%q) mismatch (-want +got):\n%s", tt.query, diff)
			}
		})
	}
}

func TestTable_LookupSharedKey(t *testing.T) {
	table := NewTable([]Entry{
		{RawKey: "init_2", Key: "init", ID: "2", Label: "init", Refs: []Ref{{Page: "b.html"}}},
		{RawKey: "init_1", Key: "init", ID: "1", Label: "init", Refs: []Ref{{Page: "a.html"}}},
		{RawKey: "initall_3", Key: "initall", ID: "3", Label: "initAll", Refs: []Ref{{Page: "c.html"}}},
	})

	got := rawKeys(table.Lookup("init"))
	want := []string{"init_1", "init_2"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Lookup() mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_LookupUnderscoreName(t *testing.T) {
	table := NewTable([]Entry{
		{RawKey: "vector_5fadd_7", Key: "vector_5fadd", Label: "vector_add", Refs: []Ref{{Page: "a.html"}}},
		{RawKey: "vectoradd_8", Key: "vectoradd", Label: "vectorAdd", Refs: []Ref{{Page: "b.html"}}},
	})

	got := table.Lookup("vector_add")
	if len(got) != 1 || got[0].Label != "vector_add" {
		t.Fatalf("Lookup(vector_add) = %v, want the vector_add entry", got)
	}
	if name := got[0].Name(); name != "vector_add" {
		t.Errorf("Name() = %q, want vector_add", name)
	}

	if got := table.Lookup("other_add"); got != nil {
		t.Errorf("Lookup(other_add) = %v, want nil", got)
	}
}

func syntheticTable(n int) *Table {
	entries := make([]Entry, n)
	for i := range entries {
		key := fmt.Sprintf("k%07d", i)
		entries[i] = Entry{RawKey: fmt.Sprintf("%s_%d", key, i), Key: key, Label: key, Refs: []Ref{{Page: "p.html"}}}
	}
	return NewTable(entries)
}

func TestTable_LookupAllocations(t *testing.T) {
	small, large := syntheticTable(100), syntheticTable(20000)

	tests := []struct {
		name string
		run  func(table *Table)
	}{
		{"get", func(table *Table) { table.Get("k0000001_1") }},
		{"lookup", func(table *Table) { table.Lookup("k0000001") }},
		{"lookup raw key", func(table *Table) { table.Lookup("k0000001_1") }},
		{"prefix", func(table *Table) { table.Prefix("k000000", 3) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := testing.AllocsPerRun(50, func() { tt.run(small) })
			b := testing.AllocsPerRun(50, func() { tt.run(large) })
			if a != b {
				t.Errorf("allocations grow with table size: %v at 100, %v at 20000", a, b)
			}
			if b > 16 {
				t.Errorf("allocations = %v, want at most 16", b)
			}
		})
	}

	if allocs := testing.AllocsPerRun(50, func() { large.Get("k0000001_1") }); allocs != 0 {
		t.Errorf("Get allocations = %v, want 0", allocs)
	}
}

func TestTable_Prefix(t *testing.T) {
	table := loadSample(t)

	got := rawKeys(table.Prefix("vectorGet", 0))
	want := []string{"vectorget_537", "vectorgetindex_538", "vectorgetlength_540", "vectorgetlastindex_539"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Prefix() mismatch (-want +got):\n%s", diff)
	}

	got = rawKeys(table.Prefix("vectorGet", 2))
	if diff := cmp.Diff(want[:2], got); diff != "" {
		t.Errorf("Prefix(limit 2) mismatch (-want +got):\n%s", diff)
	}

	if got := table.Prefix("zzz", 5); got != nil {
		t.Errorf("Prefix(zzz) = %v, want nil", got)
	}

	if got := len(table.Prefix("", 0)); got != table.Len() {
		t.Errorf("len(Prefix(\"\")) = %d, want %d", got, table.Len())
	}
}

func TestTable_Get(t *testing.T) {
	table := loadSample(t)

	for _, key := range []string{"value_530", "version_550", "vectorsort_547"} {
		if _, ok := table.Get(key); !ok {
			t.Errorf("Get(%q) not found", key)
		}
	}
	if _, ok := table.Get("vectorsort"); ok {
		t.Error("Get(vectorsort) should require the raw key")
	}
}

func TestTable_EntriesSorted(t *testing.T) {
	table := NewTable([]Entry{
		{RawKey: "c_3", Key: "c"},
		{RawKey: "a_1", Key: "a"},
		{RawKey: "b_2", Key: "b"},
	})
	got := rawKeys(table.Entries())
	want := []string{"a_1", "b_2", "c_3"}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("Entries() mismatch (-want +got):\n%s", diff)
	}
}

func TestTable_Validate(t *testing.T) {
	tests := []struct {
		name    string
		entries []Entry
		wantErr []error
	}{
		{
			name: "valid",
			entries: []Entry{
				{RawKey: "a_1", Key: "a", Refs: []Ref{{Page: "a.html"}}},
			},
		},
		{
			name: "duplicate key",
			entries: []Entry{
				{RawKey: "a_1", Key: "a", Refs: []Ref{{Page: "a.html"}}},
				{RawKey: "a_1", Key: "a", Refs: []Ref{{Page: "b.html"}}},
			},
			wantErr: []error{ErrDuplicateKey},
		},
		{
			name: "no refs",
			entries: []Entry{
				{RawKey: "a_1", Key: "a"},
			},
			wantErr: []error{ErrEmptyRefs},
		},
		{
			name: "empty page and duplicate",
			entries: []Entry{
				{RawKey: "a_1", Key: "a", Refs: []Ref{{Anchor: "x"}}},
				{RawKey: "a_1", Key: "a", Refs: []Ref{{Page: "b.html"}}},
			},
			wantErr: []error{ErrEmptyPage, ErrDuplicateKey},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewTable(tt.entries).Validate()
			if len(tt.wantErr) == 0 {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			for _, want := range tt.wantErr {
				if !errors.Is(err, want) {
					t.Errorf("Validate() error = %v, want %v", err, want)
				}
			}
		})
	}
}

func TestMerge(t *testing.T) {
	a := NewTable([]Entry{
		{RawKey: "f_1", Key: "f", Label: "f", Refs: []Ref{{Page: "f.h", Anchor: "x"}}},
		{RawKey: "g_2", Key: "g", Label: "g", Refs: []Ref{{Page: "g.h"}}},
	})
	b := NewTable([]Entry{
		{RawKey: "f_1", Key: "f", Label: "F", Refs: []Ref{{Page: "f.h", Anchor: "x"}, {Page: "f.c", Anchor: "x"}}},
		{RawKey: "h_3", Key: "h", Label: "h", Refs: []Ref{{Page: "h.h"}}},
	})

	merged := Merge(a, nil, b)
	if merged.Len() != 3 {
		t.Fatalf("Len() = %d, want 3", merged.Len())
	}
	f, _ := merged.Get("f_1")
	if f.Label != "f" {
		t.Errorf("Label = %q, want first label %q", f.Label, "f")
	}
	want := []Ref{{Page: "f.h", Anchor: "x"}, {Page: "f.c", Anchor: "x"}}
	if diff := cmp.Diff(want, f.Refs); diff != "" {
		t.Errorf("Refs mismatch (-want +got):\n%s", diff)
	}
	if err := merged.Validate(); err != nil {
		t.Errorf("Validate() error = %v", err)
	}
}

func TestConcat(t *testing.T) {
	a := NewTable([]Entry{{RawKey: "f_1", Key: "f", Refs: []Ref{{Page: "f.h"}}}})
	b := NewTable([]Entry{{RawKey: "g_2", Key: "g", Refs: []Ref{{Page: "g.h"}}}})

	joined, err := Concat(a, b)
	if err != nil {
		t.Fatalf("Concat() error = %v", err)
	}
	if joined.Len() != 2 {
		t.Errorf("Len() = %d, want 2", joined.Len())
	}

	_, err = Concat(a, b, a)
	if !errors.Is(err, ErrDuplicateKey) {
		t.Errorf("Concat() error = %v, want ErrDuplicateKey", err)
	}
}
